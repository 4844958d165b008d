package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"site_tracker/internal/geo"
	"site_tracker/internal/geofence"
	"site_tracker/internal/middleware"
)

type locationInput struct {
	Token     string   `json:"token"`
	ObjectID  int      `json:"object_id" binding:"required"`
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

func (h *Handler) SendLocation(c *gin.Context) {
	var body locationInput
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, badRequest(err.Error()))
		return
	}
	token := body.Token
	if token == "" {
		token = middleware.BearerToken(c)
	}
	if err := middleware.ValidateToken(token); err != nil {
		respondError(c, badRequestOr(err))
		return
	}

	res, err := h.Location.Check(c.Request.Context(), geofence.Request{
		Token:    token,
		ObjectID: body.ObjectID,
		Point:    geo.Point{Lat: *body.Latitude, Lon: *body.Longitude},
	})
	if err != nil {
		respondError(c, err)
		return
	}

	status := "success"
	if res.Status == geo.StatusPolygonUnavailable {
		status = "error"
	}
	out := gin.H{
		"status":           status,
		"location_granted": res.Inside,
		"message":          res.Message,
		"check":            res.Status,
	}
	if res.SubPolygonID != nil {
		out["sub_polygon_id"] = *res.SubPolygonID
	}
	c.JSON(http.StatusOK, out)
}

// badRequestOr keeps expired-token errors distinct and turns anything else
// into a validation error.
func badRequestOr(err error) error {
	if code, _ := statusFor(err); code != http.StatusInternalServerError {
		return err
	}
	return badRequest(err.Error())
}
