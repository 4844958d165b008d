package routes

import (
	"github.com/gin-gonic/gin"

	"site_tracker/internal/controllers"
	"site_tracker/internal/middleware"
)

func LocationRoutes(r *gin.RouterGroup, h *controllers.Handler) {
	r.POST("/location", h.SendLocation)
}

func SessionRoutes(r *gin.RouterGroup, h *controllers.Handler, operatorKeyHash string) {
	sessions := r.Group("/sessions")
	{
		sessions.POST("/create", h.CreateSession)
		sessions.GET("/list", h.ListSessions)
		sessions.GET("/planned/:object_id", h.PlannedSessions)
		sessions.POST("/auto-create", middleware.RequireOperatorKey(operatorKeyHash), h.AutoCreateSessions)
	}
}

func PhotoRoutes(r *gin.RouterGroup, h *controllers.Handler) {
	r.POST("/photo/upload", h.UploadPhoto)
}

func HistoryRoutes(r *gin.RouterGroup, h *controllers.Handler) {
	history := r.Group("/session-history")
	{
		history.POST("/create", h.CreateHistory)
		history.GET("/list", h.ListHistory)
	}
}
