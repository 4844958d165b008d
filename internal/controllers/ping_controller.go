package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"message":   "pong",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
