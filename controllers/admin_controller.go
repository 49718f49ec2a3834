package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	config "github.com/phillip/freelance-marketplace-go/config"
	models "github.com/phillip/freelance-marketplace-go/models"
	utils "github.com/phillip/freelance-marketplace-go/utils"
)

// requireAdmin resolves the admin capability against the users collection
// and returns the requester id, or writes the error response itself.
func requireAdmin(c *gin.Context, cfg *config.Config) (primitive.ObjectID, bool) {
	uid := c.GetString("user_id")
	userID, err := primitive.ObjectIDFromHex(uid)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user id"})
		return primitive.NilObjectID, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	users := cfg.MongoClient.Database(cfg.DBName).Collection("users")
	if !models.IsAdmin(ctx, users, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
		return primitive.NilObjectID, false
	}
	return userID, true
}

// ---------------- FORCE CLOSE ----------------
// ForceCloseProject closes a project regardless of how much has been paid.
// It goes through the same status machine as payment verification so the
// two mutation paths cannot diverge.
func ForceCloseProject(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireAdmin(c, cfg); !ok {
			return
		}

		projectID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
			return
		}

		col := cfg.MongoClient.Database(cfg.DBName).Collection("projects")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var project models.Project
		if err := col.FindOne(ctx, bson.M{"_id": projectID}).Decode(&project); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}

		newStatus := models.NextStatus(project.Status, project.AmountPaid, project.Budget, true)

		res, err := col.UpdateOne(ctx,
			bson.M{"_id": projectID},
			bson.M{"$set": bson.M{"status": newStatus, "updated_at": time.Now()}},
		)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to close project"})
			return
		}
		if res.MatchedCount == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}

		go utils.NewRevalidator(cfg.RedisClient).Notify(
			utils.ProjectPaths(project.OwnerID.Hex(), projectID.Hex()),
		)

		c.JSON(http.StatusOK, gin.H{
			"message":     "project closed",
			"id":          projectID.Hex(),
			"new_status":  newStatus,
			"amount_paid": project.AmountPaid,
		})
	}
}

// ---------------- LIST ALL ----------------
func ListAllProjects(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireAdmin(c, cfg); !ok {
			return
		}

		col := cfg.MongoClient.Database(cfg.DBName).Collection("projects")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		filter := bson.M{}
		if status := c.Query("status"); status != "" {
			filter["status"] = status
		}

		cursor, err := col.Find(ctx, filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch projects"})
			return
		}

		var projects []models.Project
		if err := cursor.All(ctx, &projects); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not decode projects"})
			return
		}

		if len(projects) == 0 {
			c.JSON(http.StatusOK, []models.Project{})
			return
		}

		latest := projects[0]
		for _, p := range projects {
			if p.UpdatedAt.After(latest.UpdatedAt) {
				latest = p
			}
		}

		etag := utils.GenerateETag(latest.ID, latest.UpdatedAt)
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			c.Status(http.StatusNotModified)
			return
		}
		c.Header("ETag", etag)
		c.Header("Last-Modified", latest.UpdatedAt.UTC().Format(http.TimeFormat))

		c.JSON(http.StatusOK, projects)
	}
}

// ---------------- RANK OPEN PROJECTS ----------------
func RankOpenProjects(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireAdmin(c, cfg); !ok {
			return
		}

		col := cfg.MongoClient.Database(cfg.DBName).Collection("projects")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		cursor, err := col.Find(ctx, bson.M{"status": models.StatusOpen})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch projects"})
			return
		}

		var projects []models.Project
		if err := cursor.All(ctx, &projects); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not decode projects"})
			return
		}

		ranked := utils.RankProjects(cfg, projects)
		c.JSON(http.StatusOK, ranked)
	}
}
