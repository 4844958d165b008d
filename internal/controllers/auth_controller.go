package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"site_tracker/internal/middleware"
)

type loginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginUser runs the two-gate check. A valid login without a session today
// answers 200 with access=false and the token, so clients can tell the two
// denials apart.
func (h *Handler) LoginUser(c *gin.Context) {
	var body loginInput
	if err := c.ShouldBindJSON(&body); err != nil {
		respondErrorWith(c, badRequest(err.Error()), gin.H{"access": false, "token": nil})
		return
	}

	d, err := h.Gate.Authorize(c.Request.Context(), body.Email, body.Password)
	if err != nil {
		respondErrorWith(c, err, gin.H{"access": false, "token": nil})
		return
	}

	if d.Token == "" {
		middleware.Log(c).WithField("reason", d.Reason).Info("login denied")
		c.JSON(http.StatusUnauthorized, gin.H{
			"status":  "error",
			"access":  false,
			"token":   nil,
			"message": d.Reason.Message(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"access":  d.Granted,
		"token":   d.Token,
		"message": d.Reason.Message(),
	})
}
