package controllers

import (
	"context"
	"time"

	"site_tracker/internal/gate"
	"site_tracker/internal/geofence"
	"site_tracker/internal/ledger"
	"site_tracker/internal/models"
	"site_tracker/internal/provisioning"
	"site_tracker/internal/upload"
)

type Authorizer interface {
	Authorize(ctx context.Context, email, password string) (gate.Decision, error)
}

type LocationChecker interface {
	Check(ctx context.Context, req geofence.Request) (geofence.Result, error)
}

type Uploader interface {
	Upload(ctx context.Context, req upload.Request) (upload.Result, error)
}

// SessionStore is the ledger surface exposed over HTTP.
type SessionStore interface {
	CreateSession(ctx context.Context, n ledger.NewSession) (*models.VisitSession, error)
	ListSessions(ctx context.Context, f ledger.Filter) ([]models.VisitSession, error)
	ListPlannedByDate(ctx context.Context, objectID int) ([]ledger.PlannedDay, error)
	CreateHistory(ctx context.Context, n ledger.NewHistory) (*models.VisitHistoryRecord, error)
	ListHistory(ctx context.Context, f ledger.HistoryFilter) ([]models.VisitHistoryRecord, error)
	Location() *time.Location
}

type Provisioner interface {
	Run(ctx context.Context) (provisioning.Report, error)
}

// Handler holds the dependencies of every endpoint. Fields are injected
// once at startup; Handler itself has no mutable state.
type Handler struct {
	Gate        Authorizer
	Location    LocationChecker
	Uploads     Uploader
	Sessions    SessionStore
	Provisioner Provisioner // nil disables the manual trigger
}
