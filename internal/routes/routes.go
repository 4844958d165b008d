package routes

import (
	"net/http"

	ginlog "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"site_tracker/internal/controllers"
	"site_tracker/internal/middleware"
)

const apiPrefix = "/api/v1"

type Options struct {
	OperatorKeyHash string
	AccessLog       bool
}

func SetupRouter(h *controllers.Handler, opts Options) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestID())
	if opts.AccessLog {
		r.Use(ginlog.SetLogger(
			ginlog.WithUTC(true),
			ginlog.WithWriter(logrus.StandardLogger().Out),
			ginlog.WithSkipPath([]string{apiPrefix + "/ping"}),
		))
	}
	r.Use(gin.Recovery(), middleware.SecurityHeaders())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "Not found"})
	})

	api := r.Group(apiPrefix)
	api.GET("/ping", controllers.Ping)

	AuthRoutes(api, h)
	LocationRoutes(api, h)
	SessionRoutes(api, h, opts.OperatorKeyHash)
	PhotoRoutes(api, h)
	HistoryRoutes(api, h)

	return r
}
