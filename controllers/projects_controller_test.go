package controllers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	config "github.com/phillip/freelance-marketplace-go/config"
)

// stubAuth stands in for the jwt middleware in handler tests.
func stubAuth(userID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Set("role", role)
		c.Next()
	}
}

func postForm(r *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.ServeHTTP(w, req)
	return w
}

func TestCreateProjectValidation(t *testing.T) {
	cfg := &config.Config{DBName: "testdb"}
	owner := primitive.NewObjectID().Hex()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/projects", stubAuth(owner, "client"), CreateProject(cfg))

	t.Run("lists every offending field", func(t *testing.T) {
		form := url.Values{}
		form.Set("title", "ab")
		form.Set("brief", "too short")
		form.Set("budget", "free")
		form.Set("payment_type", "WEEKLY")
		form.Set("deadline", "2020-01-01")

		w := postForm(r, "/projects", form)
		require.Equal(t, http.StatusBadRequest, w.Code)
		for _, field := range []string{"title", "brief", "skills", "budget", "deadline", "payment_type"} {
			assert.Contains(t, w.Body.String(), field)
		}
	})

	t.Run("rejects an unparseable deadline", func(t *testing.T) {
		form := url.Values{}
		form.Set("title", "Marketplace dashboard")
		form.Set("brief", "Build a marketplace dashboard with payment history views.")
		form.Add("skills", "go")
		form.Set("budget", "2500")
		form.Set("payment_type", "FIXED")
		form.Set("deadline", "next tuesday")

		w := postForm(r, "/projects", form)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "deadline format")
	})

	t.Run("rejects an invalid authenticated user id", func(t *testing.T) {
		r := gin.New()
		r.POST("/projects", stubAuth("not-an-object-id", "client"), CreateProject(cfg))

		form := url.Values{}
		form.Set("title", "Marketplace dashboard")
		w := postForm(r, "/projects", form)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestGetProjectRejectsBadID(t *testing.T) {
	cfg := &config.Config{DBName: "testdb"}
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/projects/:id", stubAuth(primitive.NewObjectID().Hex(), "client"), GetProject(cfg))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/projects/not-hex", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
