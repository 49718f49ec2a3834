package controllers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	config "github.com/phillip/freelance-marketplace-go/config"
	models "github.com/phillip/freelance-marketplace-go/models"
	utils "github.com/phillip/freelance-marketplace-go/utils"
)

// ---------------- CREATE ----------------
func CreateProject(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		// --- Authenticated user ---
		uid := c.GetString("user_id")
		ownerID, err := primitive.ObjectIDFromHex(uid)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user id"})
			return
		}

		// --- Bind form fields ---
		var input struct {
			Title       string   `form:"title" binding:"required"`
			Brief       string   `form:"brief"`
			Skills      []string `form:"skills"`
			Budget      string   `form:"budget"`
			Deadline    string   `form:"deadline"`
			PaymentType string   `form:"payment_type"`
		}

		if err := c.ShouldBind(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		// --- Parse deadline if provided ---
		var deadline *time.Time
		if input.Deadline != "" {
			parsed, err := time.Parse(time.RFC3339, input.Deadline)
			if err != nil {
				// Try fallback formats
				layouts := []string{"2006-01-02", "2006-01-02 15:04", "2006-01-02 15:04:05"}
				for _, layout := range layouts {
					if t, e := time.Parse(layout, input.Deadline); e == nil {
						parsed = t
						err = nil
						break
					}
				}
				if err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": "invalid deadline format, use RFC3339 or YYYY-MM-DD"})
					return
				}
			}
			deadline = &parsed
		}

		// --- Validate fields, reporting every offending one ---
		if fields := models.ValidateProjectFields(input.Title, input.Brief, input.Skills, input.Budget, deadline, input.PaymentType); len(fields) > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": fields})
			return
		}
		budget, _ := strconv.ParseFloat(input.Budget, 64)

		// --- Handle attachment uploads ---
		form, err := c.MultipartForm()
		if err != nil && err != http.ErrNotMultipart {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form data"})
			return
		}

		attachments := []string{}
		if form != nil {
			files := form.File["attachments"] // key must be "attachments"
			for _, fileHeader := range files {
				file, err := fileHeader.Open()
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open file"})
					return
				}

				url, err := utils.UploadProjectAttachment(file, fileHeader)
				file.Close()
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{
						"error":   "attachment upload failed",
						"details": err.Error(),
						"file":    fileHeader.Filename,
					})
					return
				}

				attachments = append(attachments, url)
			}
		}

		// --- Save project ---
		now := time.Now()
		project := models.Project{
			ID:                primitive.NewObjectID(),
			OwnerID:           ownerID,
			Title:             input.Title,
			Brief:             input.Brief,
			Skills:            input.Skills,
			Budget:            budget,
			PaymentType:       input.PaymentType,
			AmountPaid:        0,
			Status:            models.StatusOpen,
			Deadline:          deadline,
			Attachments:       attachments,
			AppliedPaymentIDs: []string{},
			CreatedAt:         now,
			UpdatedAt:         now,
		}

		col := cfg.MongoClient.Database(cfg.DBName).Collection("projects")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if _, err := col.InsertOne(ctx, project); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create project"})
			return
		}

		c.JSON(http.StatusCreated, project)
	}
}

// ---------------- LIST (own projects) ----------------
func ListMyProjects(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		// --- Validate user ID ---
		uid := c.GetString("user_id")
		ownerID, err := primitive.ObjectIDFromHex(uid)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user id"})
			return
		}

		col := cfg.MongoClient.Database(cfg.DBName).Collection("projects")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// --- Build filter ---
		filter := bson.M{"owner_id": ownerID}
		if status := c.Query("status"); status != "" {
			filter["status"] = status
		}

		// --- Fetch data ---
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

		// --- Pick the most recently updated project ---
		latest := projects[0]
		for _, p := range projects {
			if p.UpdatedAt.After(latest.UpdatedAt) {
				latest = p
			}
		}

		// --- Generate ETag from latest project ---
		etag := utils.GenerateETag(latest.ID, latest.UpdatedAt)
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			c.Status(http.StatusNotModified)
			return
		}
		c.Header("ETag", etag)

		// --- Add Last-Modified from latest project ---
		c.Header("Last-Modified", latest.UpdatedAt.UTC().Format(http.TimeFormat))

		c.JSON(http.StatusOK, projects)
	}
}

// ---------------- GET ----------------
func GetProject(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
			return
		}

		var project models.Project
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err = cfg.MongoClient.Database(cfg.DBName).
			Collection("projects").
			FindOne(ctx, bson.M{"_id": projectID}).
			Decode(&project)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}

		etag := utils.GenerateETag(project.ID, project.UpdatedAt)
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			c.Status(http.StatusNotModified)
			return
		}
		c.Header("ETag", etag)

		c.JSON(http.StatusOK, project)
	}
}

// ---------------- DELETE ----------------
func DeleteProject(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		// --- Validate requester identity ---
		role := c.GetString("role")
		requesterID := c.GetString("user_id")
		if requesterID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
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

		// --- Fetch existing project ---
		var existing models.Project
		if err := col.FindOne(ctx, bson.M{"_id": projectID}).Decode(&existing); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}

		// --- Check permission ---
		if role != models.RoleAdmin && existing.OwnerID.Hex() != requesterID {
			c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}

		res, err := col.DeleteOne(ctx, bson.M{"_id": projectID})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete project"})
			return
		}
		if res.DeletedCount == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}

		for _, att := range existing.Attachments {
			utils.DeleteProjectAttachment(att)
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "project deleted",
			"id":      projectID.Hex(),
		})
	}
}
