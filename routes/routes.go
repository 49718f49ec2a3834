package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	config "github.com/phillip/freelance-marketplace-go/config"
	controllers "github.com/phillip/freelance-marketplace-go/controllers"
	middleware "github.com/phillip/freelance-marketplace-go/middleware"
)

func SetupRoutes(r *gin.Engine, cfg *config.Config) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// protected
	auth := middleware.AuthMiddleware(cfg)

	projects := r.Group("/projects")
	projects.Use(auth)
	{
		projects.POST("", controllers.CreateProject(cfg))
		projects.GET("", controllers.ListMyProjects(cfg))
		projects.GET("/:id", controllers.GetProject(cfg))
		projects.DELETE("/:id", controllers.DeleteProject(cfg))
		projects.GET("/:id/payments", controllers.ListProjectPayments(cfg))
	}

	payments := r.Group("/payments")
	payments.Use(auth)
	{
		payments.POST("/orders", controllers.CreatePaymentOrder(cfg))
		payments.POST("/checkout-sessions", controllers.CreateCheckoutSession(cfg))
		payments.POST("/verify", controllers.VerifyPayment(cfg))
	}

	admin := r.Group("/admin")
	admin.Use(auth)
	{
		admin.GET("/projects", controllers.ListAllProjects(cfg))
		admin.POST("/projects/:id/close", controllers.ForceCloseProject(cfg))
		admin.POST("/projects/rank", controllers.RankOpenProjects(cfg))
	}
}
