package models

import (
	"time"
)

// VisitHistoryRecord is one geolocation ping sent by a worker from a site.
type VisitHistoryRecord struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       string    `gorm:"not null;index" json:"user_id"`
	ObjectID     int       `gorm:"not null;index" json:"object_id"`
	SubPolygonID *int      `gorm:"index" json:"sub_polygon_id"` // area id when the ping fell inside one
	Date         time.Time `gorm:"not null;index" json:"date"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
}

func (VisitHistoryRecord) TableName() string {
	return "session_history"
}
