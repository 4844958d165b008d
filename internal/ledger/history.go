package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"site_tracker/internal/models"
)

var ErrInvalidHistory = errors.New("invalid history record")

// NewHistory is one geolocation ping to append.
type NewHistory struct {
	UserID       string
	ObjectID     int
	SubPolygonID *int
	Latitude     float64
	Longitude    float64
	At           time.Time // zero means now
}

// HistoryFilter narrows ListHistory. Zero values match everything.
type HistoryFilter struct {
	UserID       string
	ObjectID     int
	SubPolygonID int
}

// CreateHistory appends a geolocation ping.
func (l *Ledger) CreateHistory(ctx context.Context, n NewHistory) (*models.VisitHistoryRecord, error) {
	if n.UserID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidHistory)
	}
	at := n.At
	if at.IsZero() {
		at = l.now()
	}
	rec := models.VisitHistoryRecord{
		UserID:       n.UserID,
		ObjectID:     n.ObjectID,
		SubPolygonID: n.SubPolygonID,
		Date:         at.In(l.loc),
		Latitude:     n.Latitude,
		Longitude:    n.Longitude,
	}
	if err := l.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, l.fail("create history", err)
	}
	return &rec, nil
}

// ListHistory returns matching pings, newest first.
func (l *Ledger) ListHistory(ctx context.Context, f HistoryFilter) ([]models.VisitHistoryRecord, error) {
	q := l.db.WithContext(ctx).Model(&models.VisitHistoryRecord{})
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.ObjectID != 0 {
		q = q.Where("object_id = ?", f.ObjectID)
	}
	if f.SubPolygonID != 0 {
		q = q.Where("sub_polygon_id = ?", f.SubPolygonID)
	}
	var records []models.VisitHistoryRecord
	if err := q.Order("date desc").Order("id desc").Find(&records).Error; err != nil {
		return nil, l.fail("list history", err)
	}
	for i := range records {
		records[i].Date = records[i].Date.In(l.loc)
	}
	return records, nil
}
