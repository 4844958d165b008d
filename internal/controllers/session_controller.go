package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"site_tracker/internal/ledger"
	"site_tracker/internal/models"
)

type sessionInput struct {
	UserID    string  `json:"user_id" binding:"required"`
	UserRole  string  `json:"user_role"`
	Role      string  `json:"role"` // alias of user_role
	ObjectID  int     `json:"object_id" binding:"required,gt=0"`
	AreaID    *int    `json:"area_id"`
	AreaName  *string `json:"area_name"`
	VisitDate string  `json:"visit_date"`
}

// timeLayouts are tried in order; layouts without a zone are read in the
// ledger location.
var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", time.DateOnly}

func parseTime(field, s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, badRequest(field + " must be RFC 3339 or YYYY-MM-DD")
}

func (h *Handler) CreateSession(c *gin.Context) {
	var body sessionInput
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, badRequest(err.Error()))
		return
	}

	roleText := body.UserRole
	if roleText == "" {
		roleText = body.Role
	}
	role, err := models.ParseRole(roleText)
	if err != nil {
		respondError(c, badRequest("user_role must be one of foreman, ssk, iko"))
		return
	}
	visit, err := parseTime("visit_date", body.VisitDate, h.Sessions.Location())
	if err != nil {
		respondError(c, err)
		return
	}

	s, err := h.Sessions.CreateSession(c.Request.Context(), ledger.NewSession{
		UserID:    body.UserID,
		Role:      role,
		ObjectID:  body.ObjectID,
		AreaID:    body.AreaID,
		AreaName:  body.AreaName,
		VisitDate: visit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":     "success",
		"message":    "Session created",
		"session_id": s.ID,
		"visit_date": s.VisitDate,
	})
}

func (h *Handler) ListSessions(c *gin.Context) {
	objectID, err := optionalInt(c, "object_id")
	if err != nil {
		respondError(c, err)
		return
	}

	sessions, err := h.Sessions.ListSessions(c.Request.Context(), ledger.Filter{
		UserID:   c.Query("user_id"),
		ObjectID: objectID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "sessions": sessions, "total": len(sessions)})
}

func (h *Handler) PlannedSessions(c *gin.Context) {
	objectID, err := strconv.Atoi(c.Param("object_id"))
	if err != nil || objectID <= 0 {
		respondError(c, badRequest("object_id must be a positive integer"))
		return
	}

	days, err := h.Sessions.ListPlannedByDate(c.Request.Context(), objectID)
	if err != nil {
		respondError(c, err)
		return
	}
	total := 0
	for _, d := range days {
		total += d.VisitsCount
	}
	c.JSON(http.StatusOK, gin.H{
		"status":         "success",
		"object_id":      objectID,
		"planned_visits": days,
		"total_visits":   total,
		"total_days":     len(days),
	})
}

// AutoCreateSessions triggers one provisioning run on demand.
func (h *Handler) AutoCreateSessions(c *gin.Context) {
	if h.Provisioner == nil {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "Provisioning is disabled"})
		return
	}
	rep, err := h.Provisioner.Run(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":            "success",
		"message":           "Sessions created for " + rep.TargetDate,
		"run_id":            rep.RunID,
		"target_date":       rep.TargetDate,
		"sessions_created":  rep.SessionsCreated,
		"sessions_failed":   rep.SessionsFailed,
		"objects_processed": rep.ObjectsProcessed,
		"objects_skipped":   rep.ObjectsSkipped,
		"duration":          rep.Duration.String(),
	})
}

func optionalInt(c *gin.Context, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, badRequest(key + " must be a non-negative integer")
	}
	return n, nil
}
