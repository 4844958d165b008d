package models

import "time"

// VisitSession authorizes one user to act on a work object (or one of its
// areas) for the calendar day VisitDate falls on. Rows are append-only: several
// sessions for the same user and day are expected, one per planned area.
type VisitSession struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"not null;index" json:"user_id"`
	UserRole  UserRole  `gorm:"type:varchar(16);not null;default:'foreman'" json:"user_role"`
	ObjectID  int       `gorm:"not null;index" json:"object_id"`
	AreaID    *int      `json:"area_id"`
	AreaName  *string   `json:"area_name"`
	VisitDate time.Time `gorm:"not null;index" json:"visit_date"`
	CreatedAt time.Time `json:"created_at"`
}

func (VisitSession) TableName() string {
	return "visit_sessions"
}
