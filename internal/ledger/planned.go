package ledger

import (
	"context"
	"time"

	"site_tracker/internal/models"
)

// PlannedVisit is the summary of one session inside a PlannedDay.
type PlannedVisit struct {
	ID            uint            `json:"id"`
	UserID        string          `json:"user_id"`
	UserRole      models.UserRole `json:"user_role"`
	AreaID        *int            `json:"area_id"`
	AreaName      *string         `json:"area_name"`
	VisitTime     string          `json:"visit_time"`
	VisitDateTime time.Time       `json:"visit_datetime"`
}

// PlannedDay groups the sessions of one calendar date.
type PlannedDay struct {
	Date        string         `json:"date"`
	VisitsCount int            `json:"visits_count"`
	Visits      []PlannedVisit `json:"visits"`
}

// ListPlannedByDate groups every session of an object by calendar date,
// oldest date first.
func (l *Ledger) ListPlannedByDate(ctx context.Context, objectID int) ([]PlannedDay, error) {
	var sessions []models.VisitSession
	err := l.db.WithContext(ctx).
		Where("object_id = ?", objectID).
		Order("visit_date asc").
		Order("id asc").
		Find(&sessions).Error
	if err != nil {
		return nil, l.fail("list planned", err)
	}
	return groupByDate(sessions, l.loc), nil
}

func groupByDate(sessions []models.VisitSession, loc *time.Location) []PlannedDay {
	days := []PlannedDay{}
	index := map[string]int{}
	for _, s := range sessions {
		at := s.VisitDate.In(loc)
		key := at.Format(time.DateOnly)
		i, ok := index[key]
		if !ok {
			i = len(days)
			index[key] = i
			days = append(days, PlannedDay{Date: key})
		}
		days[i].Visits = append(days[i].Visits, PlannedVisit{
			ID:            s.ID,
			UserID:        s.UserID,
			UserRole:      s.UserRole,
			AreaID:        s.AreaID,
			AreaName:      s.AreaName,
			VisitTime:     at.Format(time.TimeOnly),
			VisitDateTime: at,
		})
		days[i].VisitsCount++
	}
	return days
}
