// Package ledger stores visit sessions and geolocation history.
//
// A session authorizes a user for the whole calendar day its visit date falls
// on. Days are computed in the ledger's location, which should be the server's
// local zone unless configured otherwise.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"site_tracker/internal/models"
)

// ErrUnavailable wraps every persistence failure.
var ErrUnavailable = errors.New("session ledger unavailable")

var ErrInvalidSession = errors.New("invalid session")

// Ledger is the GORM-backed session store.
type Ledger struct {
	db  *gorm.DB
	loc *time.Location
	now func() time.Time
}

type Option func(*Ledger)

// WithLocation sets the zone that defines calendar days.
func WithLocation(loc *time.Location) Option {
	return func(l *Ledger) {
		if loc != nil {
			l.loc = loc
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

func New(db *gorm.DB, opts ...Option) *Ledger {
	l := &Ledger{db: db, loc: time.Local, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Migrate creates or updates the ledger tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.VisitSession{}, &models.VisitHistoryRecord{}); err != nil {
		return fmt.Errorf("auto-migrate ledger: %w", err)
	}
	return nil
}

func (l *Ledger) Location() *time.Location { return l.loc }

// Now is the ledger clock in the ledger location.
func (l *Ledger) Now() time.Time { return l.now().In(l.loc) }

// DayWindow returns the half-open window [start, end) of the calendar day t
// falls on.
func (l *Ledger) DayWindow(t time.Time) (start, end time.Time) {
	t = t.In(l.loc)
	start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, l.loc)
	return start, start.AddDate(0, 0, 1)
}

// Today returns the start of the current day.
func (l *Ledger) Today() time.Time {
	start, _ := l.DayWindow(l.now())
	return start
}

// Tomorrow returns the start of the next day.
func (l *Ledger) Tomorrow() time.Time {
	_, end := l.DayWindow(l.now())
	return end
}

// HasSessionToday reports whether at least one session for userID is dated today.
func (l *Ledger) HasSessionToday(ctx context.Context, userID string) (bool, error) {
	start, end := l.DayWindow(l.now())
	var count int64
	err := l.db.WithContext(ctx).
		Model(&models.VisitSession{}).
		Where("user_id = ? AND visit_date >= ? AND visit_date < ?", userID, start, end).
		Count(&count).Error
	if err != nil {
		return false, l.fail("has session today", err)
	}
	return count > 0, nil
}

// GetTodaySession returns one of today's sessions for userID, or nil.
func (l *Ledger) GetTodaySession(ctx context.Context, userID string) (*models.VisitSession, error) {
	start, end := l.DayWindow(l.now())
	var sessions []models.VisitSession
	err := l.db.WithContext(ctx).
		Where("user_id = ? AND visit_date >= ? AND visit_date < ?", userID, start, end).
		Order("id asc").
		Limit(1).
		Find(&sessions).Error
	if err != nil {
		return nil, l.fail("get today session", err)
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	s := sessions[0]
	s.VisitDate = s.VisitDate.In(l.loc)
	return &s, nil
}

// NewSession is the input for CreateSession and CreateBatch.
type NewSession struct {
	UserID    string
	Role      models.UserRole
	ObjectID  int
	AreaID    *int
	AreaName  *string
	VisitDate time.Time // zero means now
}

func (n NewSession) validate() error {
	if n.UserID == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidSession)
	}
	if !n.Role.Valid() {
		return fmt.Errorf("%w: role %q", ErrInvalidSession, n.Role)
	}
	return nil
}

func (l *Ledger) record(n NewSession) models.VisitSession {
	visit := n.VisitDate
	if visit.IsZero() {
		visit = l.now()
	}
	return models.VisitSession{
		UserID:    n.UserID,
		UserRole:  n.Role,
		ObjectID:  n.ObjectID,
		AreaID:    n.AreaID,
		AreaName:  n.AreaName,
		VisitDate: visit.In(l.loc),
	}
}

// CreateSession inserts one session. Duplicates are accepted.
func (l *Ledger) CreateSession(ctx context.Context, n NewSession) (*models.VisitSession, error) {
	if err := n.validate(); err != nil {
		return nil, err
	}
	s := l.record(n)
	if err := l.db.WithContext(ctx).Create(&s).Error; err != nil {
		return nil, l.fail("create session", err)
	}
	return &s, nil
}

// RowError describes one rejected row of a batch.
type RowError struct {
	Index   int
	Session NewSession
	Err     error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d (user %s, object %d): %v", e.Index, e.Session.UserID, e.Session.ObjectID, e.Err)
}

// BatchResult is the outcome of CreateBatch.
type BatchResult struct {
	Created []models.VisitSession
	Failed  []RowError
}

// CreateBatch inserts all sessions in one transaction. Each row is written
// under its own savepoint, so a bad row is skipped without aborting the rest.
// The returned error is non-nil only when the transaction itself failed, in
// which case nothing was committed.
func (l *Ledger) CreateBatch(ctx context.Context, batch []NewSession) (BatchResult, error) {
	var res BatchResult
	if len(batch) == 0 {
		return res, nil
	}

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, n := range batch {
			if err := n.validate(); err != nil {
				res.Failed = append(res.Failed, RowError{Index: i, Session: n, Err: err})
				continue
			}
			sp := fmt.Sprintf("row_%d", i)
			if err := tx.SavePoint(sp).Error; err != nil {
				return err
			}
			s := l.record(n)
			if err := tx.Create(&s).Error; err != nil {
				if rbErr := tx.RollbackTo(sp).Error; rbErr != nil {
					return rbErr
				}
				res.Failed = append(res.Failed, RowError{Index: i, Session: n, Err: err})
				continue
			}
			res.Created = append(res.Created, s)
		}
		return nil
	})
	if err != nil {
		return BatchResult{}, l.fail("create batch", err)
	}
	return res, nil
}

// Filter narrows ListSessions. Zero values match everything.
type Filter struct {
	UserID   string
	ObjectID int
}

// ListSessions returns matching sessions, newest visit date first.
func (l *Ledger) ListSessions(ctx context.Context, f Filter) ([]models.VisitSession, error) {
	q := l.db.WithContext(ctx).Model(&models.VisitSession{})
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.ObjectID != 0 {
		q = q.Where("object_id = ?", f.ObjectID)
	}
	var sessions []models.VisitSession
	if err := q.Order("visit_date desc").Order("id desc").Find(&sessions).Error; err != nil {
		return nil, l.fail("list sessions", err)
	}
	for i := range sessions {
		sessions[i].VisitDate = sessions[i].VisitDate.In(l.loc)
	}
	return sessions, nil
}

func (l *Ledger) fail(op string, err error) error {
	fields := logrus.Fields{"op": op}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		fields["sqlstate"] = pgErr.Code
	}
	logrus.WithError(err).WithFields(fields).Error("ledger operation failed")
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}
