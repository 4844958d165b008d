package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"site_tracker/internal/ledger"
	"site_tracker/internal/models"
	"site_tracker/internal/testutil"
)

var noon = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func newLedger(t *testing.T, now time.Time) *ledger.Ledger {
	t.Helper()
	db := testutil.OpenSQLite(t)
	return ledger.New(db, ledger.WithLocation(time.UTC), ledger.WithClock(testutil.FixedClock(now)))
}

func create(t *testing.T, l *ledger.Ledger, userID string, objectID int, at time.Time) *models.VisitSession {
	t.Helper()
	s, err := l.CreateSession(context.Background(), ledger.NewSession{
		UserID:    userID,
		Role:      models.RoleForeman,
		ObjectID:  objectID,
		VisitDate: at,
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return s
}

func TestDayWindow(t *testing.T) {
	l := newLedger(t, noon)
	start, end := l.DayWindow(noon)
	if !start.Equal(time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", start)
	}
	if !end.Equal(time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("end = %v", end)
	}
	if !l.Tomorrow().Equal(end) || !l.Today().Equal(start) {
		t.Errorf("Today/Tomorrow = %v/%v", l.Today(), l.Tomorrow())
	}
}

func TestDayWindowUsesLedgerLocation(t *testing.T) {
	msk := time.FixedZone("MSK", 3*60*60)
	db := testutil.OpenSQLite(t)
	l := ledger.New(db, ledger.WithLocation(msk))

	// 22:30 UTC is already the next day in Moscow.
	start, _ := l.DayWindow(time.Date(2026, 10, 19, 22, 30, 0, 0, time.UTC))
	if start.Day() != 20 || start.Location() != msk {
		t.Errorf("start = %v", start)
	}
}

func TestHasSessionTodayBoundaries(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"start of today", time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), true},
		{"last second of today", time.Date(2026, 10, 19, 23, 59, 59, 0, time.UTC), true},
		{"start of tomorrow", time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC), false},
		{"last second of yesterday", time.Date(2026, 10, 18, 23, 59, 59, 0, time.UTC), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l := newLedger(t, noon)
			create(t, l, "u-1", 1, tc.at)

			got, err := l.HasSessionToday(ctx, "u-1")
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("HasSessionToday = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestHasSessionTodayOtherUser(t *testing.T) {
	l := newLedger(t, noon)
	create(t, l, "u-1", 1, noon)

	got, err := l.HasSessionToday(context.Background(), "u-2")
	if err != nil {
		t.Fatal(err)
	}
	if got {
		t.Error("session of another user must not count")
	}
}

func TestGetTodaySession(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, noon)

	if s, err := l.GetTodaySession(ctx, "u-1"); err != nil || s != nil {
		t.Fatalf("empty ledger: %v %v", s, err)
	}

	create(t, l, "u-1", 7, noon.AddDate(0, 0, -1))
	first := create(t, l, "u-1", 8, noon.Add(-time.Hour))
	create(t, l, "u-1", 9, noon.Add(time.Hour))

	s, err := l.GetTodaySession(ctx, "u-1")
	if err != nil {
		t.Fatal(err)
	}
	if s == nil || s.ID != first.ID || s.ObjectID != 8 {
		t.Errorf("GetTodaySession = %+v", s)
	}
}

func TestCreateSessionDefaultsAndDuplicates(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, noon)

	a, err := l.CreateSession(ctx, ledger.NewSession{UserID: "u-1", Role: models.RoleSSK, ObjectID: 3})
	if err != nil {
		t.Fatal(err)
	}
	if !a.VisitDate.Equal(noon) {
		t.Errorf("default visit date = %v, want now", a.VisitDate)
	}
	b, err := l.CreateSession(ctx, ledger.NewSession{UserID: "u-1", Role: models.RoleSSK, ObjectID: 3})
	if err != nil {
		t.Fatalf("duplicate must be accepted: %v", err)
	}
	if a.ID == b.ID {
		t.Error("duplicates must get distinct ids")
	}
}

func TestCreateSessionValidation(t *testing.T) {
	l := newLedger(t, noon)
	_, err := l.CreateSession(context.Background(), ledger.NewSession{Role: models.RoleForeman})
	if !errors.Is(err, ledger.ErrInvalidSession) {
		t.Errorf("missing user: %v", err)
	}
	_, err = l.CreateSession(context.Background(), ledger.NewSession{UserID: "u", Role: "admin"})
	if !errors.Is(err, ledger.ErrInvalidSession) {
		t.Errorf("bad role: %v", err)
	}
}

func TestCreateBatchSkipsBadRows(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, noon)
	tomorrow := l.Tomorrow()

	res, err := l.CreateBatch(ctx, []ledger.NewSession{
		{UserID: "f-1", Role: models.RoleForeman, ObjectID: 1, VisitDate: tomorrow},
		{UserID: "", Role: models.RoleForeman, ObjectID: 2, VisitDate: tomorrow},
		{UserID: "f-3", Role: models.RoleForeman, ObjectID: 3, VisitDate: tomorrow},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Created) != 2 || len(res.Failed) != 1 {
		t.Fatalf("created %d failed %d", len(res.Created), len(res.Failed))
	}
	if res.Failed[0].Index != 1 {
		t.Errorf("failed index = %d", res.Failed[0].Index)
	}

	all, err := l.ListSessions(ctx, ledger.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("committed %d rows, want 2", len(all))
	}
}

func TestCreateBatchEmpty(t *testing.T) {
	l := newLedger(t, noon)
	res, err := l.CreateBatch(context.Background(), nil)
	if err != nil || len(res.Created) != 0 {
		t.Errorf("empty batch: %+v %v", res, err)
	}
}

func TestListSessionsFilterAndOrder(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, noon)
	create(t, l, "u-1", 1, noon.AddDate(0, 0, -2))
	create(t, l, "u-1", 2, noon)
	create(t, l, "u-2", 1, noon.AddDate(0, 0, -1))

	all, err := l.ListSessions(ctx, ledger.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].VisitDate.After(all[i-1].VisitDate) {
			t.Errorf("not newest first at %d", i)
		}
	}

	byUser, _ := l.ListSessions(ctx, ledger.Filter{UserID: "u-1"})
	if len(byUser) != 2 {
		t.Errorf("by user = %d", len(byUser))
	}
	byObject, _ := l.ListSessions(ctx, ledger.Filter{ObjectID: 1})
	if len(byObject) != 2 {
		t.Errorf("by object = %d", len(byObject))
	}
	both, _ := l.ListSessions(ctx, ledger.Filter{UserID: "u-2", ObjectID: 1})
	if len(both) != 1 {
		t.Errorf("by user and object = %d", len(both))
	}
}

func TestListPlannedByDate(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, noon)
	d1 := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 10, 22, 9, 30, 0, 0, time.UTC)
	create(t, l, "f-1", 5, d2)
	create(t, l, "f-1", 5, d1)
	create(t, l, "f-2", 5, d1)
	create(t, l, "f-3", 6, d1)

	days, err := l.ListPlannedByDate(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 2 {
		t.Fatalf("days = %d", len(days))
	}
	if days[0].Date != "2026-10-20" || days[0].VisitsCount != 2 || len(days[0].Visits) != 2 {
		t.Errorf("first day = %+v", days[0])
	}
	if days[1].Date != "2026-10-22" || days[1].VisitsCount != 1 {
		t.Errorf("second day = %+v", days[1])
	}
	if days[1].Visits[0].VisitTime != "09:30:00" {
		t.Errorf("visit time = %q", days[1].Visits[0].VisitTime)
	}

	none, err := l.ListPlannedByDate(ctx, 99)
	if err != nil || len(none) != 0 {
		t.Errorf("unknown object: %v %v", none, err)
	}
}
