package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"site_tracker/internal/middleware"
	"site_tracker/internal/upload"
)

type photoInput struct {
	Token        string   `json:"token"`
	PhotosBase64 []string `json:"photos_base64"`
	ImageBase64  string   `json:"imageBase64"` // single-photo form used by older clients
	Date         string   `json:"date"`
	ObjectID     int      `json:"object_id"`
	Tag          string   `json:"tag"`
}

func (h *Handler) UploadPhoto(c *gin.Context) {
	var body photoInput
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, badRequest(err.Error()))
		return
	}
	token := body.Token
	if token == "" {
		token = middleware.BearerToken(c)
	}
	photos := body.PhotosBase64
	if body.ImageBase64 != "" {
		photos = append(photos, body.ImageBase64)
	}

	res, err := h.Uploads.Upload(c.Request.Context(), upload.Request{
		Token:        token,
		PhotosBase64: photos,
		Date:         body.Date,
		ObjectID:     body.ObjectID,
		Tag:          body.Tag,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"message":   res.Message,
		"role":      res.Role,
		"object_id": res.ObjectID,
		"photos":    res.Photos,
	})
}
