package utils

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	viewKeyPrefix     = "views:cache:"     // cached rendered view per path: views:cache:{path}
	revalidateChannel = "views:revalidate" // channel the frontends subscribe to
)

// Revalidator invalidates cached views after a project mutation. Delivery is
// fire-and-forget: the mutation has already committed, so failures are only
// logged.
type Revalidator struct {
	client *redis.Client
}

func NewRevalidator(client *redis.Client) *Revalidator {
	return &Revalidator{client: client}
}

// Notify drops the cached entries for the given view paths and publishes
// them on the revalidation channel.
func (r *Revalidator) Notify(paths []string) {
	if r == nil || r.client == nil || len(paths) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pipe := r.client.Pipeline()
	for _, p := range paths {
		pipe.Del(ctx, viewKeyPrefix+p)
	}
	pipe.Publish(ctx, revalidateChannel, strings.Join(paths, ","))

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("revalidate: failed to signal %v: %v", paths, err)
	}
}

// ProjectPaths lists the views affected by a change to one project: the
// owner dashboard, the project detail page and the admin project list.
func ProjectPaths(ownerID, projectID string) []string {
	return []string{
		"/dashboard/" + ownerID,
		"/projects/" + projectID,
		"/admin/projects",
	}
}
