package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	config "github.com/phillip/freelance-marketplace-go/config"
	models "github.com/phillip/freelance-marketplace-go/models"
	utils "github.com/phillip/freelance-marketplace-go/utils"
)

const settleRetries = 3

// ---------------- CREATE ORDER ----------------
func CreatePaymentOrder(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Amount    float64 `json:"amount"`
			Currency  string  `json:"currency"`
			ProjectID string  `json:"project_id"`
			ClientID  string  `json:"client_id"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if input.Amount <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be greater than 0"})
			return
		}
		if input.Currency == "" {
			input.Currency = cfg.DefaultCurrency
		}

		gateway, err := utils.NewGateway(cfg)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "payment gateway is not configured"})
			return
		}

		// The project id is only correlation metadata here: order creation
		// precedes any DB mutation, so a bad id fails at verification time.
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		order, err := gateway.CreateOrder(ctx, input.Amount, input.Currency, map[string]string{
			"project_id": input.ProjectID,
			"client_id":  input.ClientID,
		})
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "gateway error", "details": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, order)
	}
}

// ---------------- CREATE CHECKOUT SESSION ----------------
func CreateCheckoutSession(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Amount      float64 `json:"amount"`
			ProductName string  `json:"product_name"`
			ProjectID   string  `json:"project_id"`
			ClientID    string  `json:"client_id"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if input.Amount <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be greater than 0"})
			return
		}

		gateway, err := utils.NewGateway(cfg)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "payment gateway is not configured"})
			return
		}

		// Redirect targets come from the caller's origin plus the project id
		origin := c.GetHeader("Origin")
		if origin == "" {
			origin = "https://" + c.Request.Host
		}
		successURL := origin + "/projects/" + input.ProjectID + "?payment=success"
		cancelURL := origin + "/projects/" + input.ProjectID + "?payment=cancelled"

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		session, err := gateway.CreateCheckoutSession(ctx, input.Amount, input.ProductName, successURL, cancelURL, map[string]string{
			"project_id": input.ProjectID,
			"client_id":  input.ClientID,
		})
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "gateway error", "details": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, session)
	}
}

// ---------------- VERIFY ----------------
// VerifyPayment is the only code path allowed to move amount_paid/status
// forward from an externally asserted payment event.
func VerifyPayment(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			OrderID   string  `json:"order_id" binding:"required"`
			PaymentID string  `json:"payment_id" binding:"required"`
			Signature string  `json:"signature" binding:"required"`
			ProjectID string  `json:"project_id" binding:"required"`
			Amount    float64 `json:"amount"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if input.Amount <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be greater than 0"})
			return
		}

		projectID, err := primitive.ObjectIDFromHex(input.ProjectID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
			return
		}

		gateway, err := utils.NewGateway(cfg)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "payment gateway is not configured"})
			return
		}

		// Step 1: check the proof before touching any state
		if err := gateway.VerifyProof(input.OrderID, input.PaymentID, input.Signature); err != nil {
			log.Printf("payment verification rejected: order=%s payment=%s: signature mismatch", input.OrderID, input.PaymentID)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment signature"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		col := cfg.MongoClient.Database(cfg.DBName).Collection("projects")
		project, applied, err := applySettlement(ctx, col, projectID, input.PaymentID, input.Amount)
		switch {
		case errors.Is(err, models.ErrProjectNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		case errors.Is(err, models.ErrConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "concurrent update, retry verification"})
			return
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not apply payment"})
			return
		}

		if applied {
			receiptID := uuid.New().String()
			// Ledger record for audit and listing. The applied_payment_ids
			// guard on the project document is the replay authority.
			payment := models.Payment{
				ID:        primitive.NewObjectID(),
				ProjectID: project.ID,
				ClientID:  project.OwnerID,
				OrderID:   input.OrderID,
				PaymentID: input.PaymentID,
				Amount:    input.Amount,
				Currency:  cfg.DefaultCurrency,
				NewStatus: project.Status,
				ReceiptID: receiptID,
				CreatedAt: time.Now(),
			}
			ledger := cfg.MongoClient.Database(cfg.DBName).Collection("payments")
			if _, err := ledger.InsertOne(ctx, payment); err != nil {
				log.Printf("payment ledger insert failed for %s: %v", input.PaymentID, err)
			}

			// Fire-and-forget: the payment already succeeded, a failed
			// signal must not fail the call.
			ownerID := project.OwnerID
			projectTitle := project.Title
			amount := input.Amount
			go func() {
				utils.NewRevalidator(cfg.RedisClient).Notify(utils.ProjectPaths(ownerID.Hex(), projectID.Hex()))
				if !utils.EmailConfigured() {
					return
				}
				if email := lookupUserEmail(cfg, ownerID); email != "" {
					if err := utils.SendPaymentReceipt(email, projectTitle, amount, cfg.DefaultCurrency, receiptID); err != nil {
						log.Printf("receipt email failed: %v", err)
					}
				}
			}()
		}

		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"new_status":  project.Status,
			"amount_paid": project.AmountPaid,
		})
	}
}

// applySettlement performs steps 3-5 of the verification flow as one atomic
// conditional update. The filter pins the amount_paid and status that were
// read (compare-and-swap) and excludes already-applied payment ids, so a
// replayed proof returns the prior result and concurrent settlements
// serialize. Returns applied=false when the payment id had already been
// counted.
func applySettlement(ctx context.Context, col *mongo.Collection, projectID primitive.ObjectID, paymentID string, amount float64) (*models.Project, bool, error) {
	for attempt := 0; attempt < settleRetries; attempt++ {
		var project models.Project
		err := col.FindOne(ctx, bson.M{"_id": projectID}).Decode(&project)
		if err == mongo.ErrNoDocuments {
			return nil, false, models.ErrProjectNotFound
		}
		if err != nil {
			return nil, false, err
		}

		for _, applied := range project.AppliedPaymentIDs {
			if applied == paymentID {
				return &project, false, nil
			}
		}

		newPaid := project.AmountPaid + amount
		newStatus := models.NextStatus(project.Status, newPaid, project.Budget, false)

		res, err := col.UpdateOne(ctx,
			bson.M{
				"_id":                 projectID,
				"amount_paid":         project.AmountPaid,
				"status":              project.Status,
				"applied_payment_ids": bson.M{"$ne": paymentID},
			},
			bson.M{
				"$set":  bson.M{"amount_paid": newPaid, "status": newStatus, "updated_at": time.Now()},
				"$push": bson.M{"applied_payment_ids": paymentID},
			},
		)
		if err != nil {
			return nil, false, err
		}
		if res.MatchedCount == 1 {
			project.AmountPaid = newPaid
			project.Status = newStatus
			return &project, true, nil
		}
		// Lost the race against another settlement or a force-close; re-read
	}
	return nil, false, models.ErrConflict
}

// ---------------- LIST (per project) ----------------
func ListProjectPayments(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
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

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var project models.Project
		err = cfg.MongoClient.Database(cfg.DBName).
			Collection("projects").
			FindOne(ctx, bson.M{"_id": projectID}).
			Decode(&project)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}

		if role != models.RoleAdmin && project.OwnerID.Hex() != requesterID {
			c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}

		col := cfg.MongoClient.Database(cfg.DBName).Collection("payments")
		cursor, err := col.Find(ctx, bson.M{"project_id": projectID})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch payments"})
			return
		}

		var payments []models.Payment
		if err := cursor.All(ctx, &payments); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not decode payments"})
			return
		}
		if payments == nil {
			payments = []models.Payment{}
		}

		c.JSON(http.StatusOK, payments)
	}
}

func lookupUserEmail(cfg *config.Config, userID primitive.ObjectID) string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var user models.User
	err := cfg.MongoClient.Database(cfg.DBName).
		Collection("users").
		FindOne(ctx, bson.M{"_id": userID}).
		Decode(&user)
	if err != nil {
		return ""
	}
	return user.Email
}
