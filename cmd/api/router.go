package api

import (
	"net/http"
	"strconv"

	"shifttask-backend/internal/app"
	"shifttask-backend/internal/auth/delivery"
	taskDelivery "shifttask-backend/internal/task/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, a *app.App, taskHandler *taskDelivery.TaskHandler) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		protected := api.Group("")
		protected.Use(delivery.AuthMiddleware(a.Tokens))
		{
			taskHandler.Register(protected)

			// In-app activities of the caller
			protected.GET("/activities", func(c *gin.Context) {
				userID := c.GetString(delivery.KeyUserID)
				if userID == "" {
					c.JSON(http.StatusOK, gin.H{"activities": []interface{}{}})
					return
				}
				limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
				activities, err := a.Activities.FindByUser(userID, limit)
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
					return
				}
				c.JSON(http.StatusOK, gin.H{"activities": activities})
			})

			// Audit history of a task list or item (manager)
			protected.GET("/history/:type/:id", delivery.RequireManager(), func(c *gin.Context) {
				notes, err := a.Audit.History(c.Param("type"), c.Param("id"))
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
					return
				}
				c.JSON(http.StatusOK, gin.H{"notes": notes})
			})
		}
	}
}
