package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"site_tracker/internal/geo"
	"site_tracker/internal/ledger"
)

type historyInput struct {
	UserID       string   `json:"user_id" binding:"required"`
	ObjectID     int      `json:"object_id" binding:"required,gt=0"`
	SubPolygonID *int     `json:"sub_polygon_id"`
	Latitude     *float64 `json:"latitude" binding:"required"`
	Longitude    *float64 `json:"longitude" binding:"required"`
	Date         string   `json:"date"`
}

func (h *Handler) CreateHistory(c *gin.Context) {
	var body historyInput
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, badRequest(err.Error()))
		return
	}
	p := geo.Point{Lat: *body.Latitude, Lon: *body.Longitude}
	if err := p.Validate(); err != nil {
		respondError(c, badRequest(err.Error()))
		return
	}
	at, err := parseTime("date", body.Date, h.Sessions.Location())
	if err != nil {
		respondError(c, err)
		return
	}

	rec, err := h.Sessions.CreateHistory(c.Request.Context(), ledger.NewHistory{
		UserID:       body.UserID,
		ObjectID:     body.ObjectID,
		SubPolygonID: body.SubPolygonID,
		Latitude:     p.Lat,
		Longitude:    p.Lon,
		At:           at,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success", "message": "History record created", "id": rec.ID})
}

func (h *Handler) ListHistory(c *gin.Context) {
	objectID, err := optionalInt(c, "object_id")
	if err != nil {
		respondError(c, err)
		return
	}
	subPolygonID, err := optionalInt(c, "sub_polygon_id")
	if err != nil {
		respondError(c, err)
		return
	}

	records, err := h.Sessions.ListHistory(c.Request.Context(), ledger.HistoryFilter{
		UserID:       c.Query("user_id"),
		ObjectID:     objectID,
		SubPolygonID: subPolygonID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "history": records, "total": len(records)})
}
