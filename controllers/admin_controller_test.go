package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	config "github.com/phillip/freelance-marketplace-go/config"
	models "github.com/phillip/freelance-marketplace-go/models"
)

func userDoc(id primitive.ObjectID, role string) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "name", Value: "Test User"},
		{Key: "email", Value: "user@example.com"},
		{Key: "role", Value: role},
	}
}

func TestForceCloseProject(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("closes an in-progress project without touching amount_paid", func(mt *mtest.T) {
		adminID := primitive.NewObjectID()
		projectID := primitive.NewObjectID()
		cfg := &config.Config{MongoClient: mt.Client, DBName: "testdb"}

		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "testdb.users", mtest.FirstBatch,
				userDoc(adminID, models.RoleAdmin)),
			mtest.CreateCursorResponse(0, "testdb.projects", mtest.FirstBatch,
				projectDoc(projectID, models.StatusInProgress, 300, 1000, "pay_1")),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)

		gin.SetMode(gin.TestMode)
		r := gin.New()
		r.POST("/admin/projects/:id/close", stubAuth(adminID.Hex(), models.RoleAdmin), ForceCloseProject(cfg))

		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/admin/projects/"+projectID.Hex()+"/close", nil)
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			NewStatus  string  `json:"new_status"`
			AmountPaid float64 `json:"amount_paid"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, models.StatusClosed, resp.NewStatus)
		assert.Equal(t, 300.0, resp.AmountPaid)
	})

	mt.Run("refuses a non-admin requester", func(mt *mtest.T) {
		userID := primitive.NewObjectID()
		cfg := &config.Config{MongoClient: mt.Client, DBName: "testdb"}

		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "testdb.users", mtest.FirstBatch,
				userDoc(userID, "client")),
		)

		gin.SetMode(gin.TestMode)
		r := gin.New()
		r.POST("/admin/projects/:id/close", stubAuth(userID.Hex(), "client"), ForceCloseProject(cfg))

		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/admin/projects/"+primitive.NewObjectID().Hex()+"/close", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	mt.Run("returns not found for a missing project", func(mt *mtest.T) {
		adminID := primitive.NewObjectID()
		cfg := &config.Config{MongoClient: mt.Client, DBName: "testdb"}

		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "testdb.users", mtest.FirstBatch,
				userDoc(adminID, models.RoleAdmin)),
			mtest.CreateCursorResponse(0, "testdb.projects", mtest.FirstBatch),
		)

		gin.SetMode(gin.TestMode)
		r := gin.New()
		r.POST("/admin/projects/:id/close", stubAuth(adminID.Hex(), models.RoleAdmin), ForceCloseProject(cfg))

		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/admin/projects/"+primitive.NewObjectID().Hex()+"/close", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
