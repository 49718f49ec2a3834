package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"time"

	config "github.com/phillip/freelance-marketplace-go/config"
	models "github.com/phillip/freelance-marketplace-go/models"
)

type rankRequest struct {
	Prompt   string        `json:"prompt"`
	Projects []rankProject `json:"projects"`
}

type rankProject struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Brief  string   `json:"brief"`
	Skills []string `json:"skills"`
	Budget float64  `json:"budget"`
}

type rankResponse struct {
	Scores map[string]float64 `json:"scores"`
}

const rankPrompt = "Score each project from 0 to 1 by expected profitability " +
	"for the marketplace, considering budget, scope and skill demand. " +
	"Respond with a JSON object mapping project id to score."

// RankProjects orders projects by the profitability score returned from the
// hosted model API. When the ranker is not configured or the call fails, it
// falls back to budget-descending order so the admin view still works.
func RankProjects(cfg *config.Config, projects []models.Project) []models.Project {
	ranked := make([]models.Project, len(projects))
	copy(ranked, projects)

	scores, err := fetchScores(cfg, ranked)
	if err != nil {
		log.Printf("ranker: falling back to budget order: %v", err)
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].Budget > ranked[j].Budget
		})
		return ranked
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return scores[ranked[i].ID.Hex()] > scores[ranked[j].ID.Hex()]
	})
	return ranked
}

func fetchScores(cfg *config.Config, projects []models.Project) (map[string]float64, error) {
	if cfg.RankerAPIURL == "" || cfg.RankerAPIKey == "" {
		return nil, fmt.Errorf("ranker API not configured")
	}

	payload := rankRequest{Prompt: rankPrompt}
	for _, p := range projects {
		payload.Projects = append(payload.Projects, rankProject{
			ID:     p.ID.Hex(),
			Title:  p.Title,
			Brief:  p.Brief,
			Skills: p.Skills,
			Budget: p.Budget,
		})
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.RankerAPIURL, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.RankerAPIKey)

	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ranker API returned status %s", resp.Status)
	}

	var out rankResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Scores) == 0 {
		return nil, fmt.Errorf("ranker API returned no scores")
	}
	return out.Scores, nil
}
