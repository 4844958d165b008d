package routes

import (
	"github.com/gin-gonic/gin"

	"site_tracker/internal/controllers"
)

func AuthRoutes(r *gin.RouterGroup, h *controllers.Handler) {
	auth := r.Group("/login")
	{
		auth.POST("", h.LoginUser)
		auth.POST("/login", h.LoginUser)
	}
}
