// Package provisioning creates tomorrow's visit sessions from the objects
// directory. A run is linear: bootstrap the admin identity, enumerate
// active objects, expand them into sessions, commit, report.
//
// Runs are not idempotent: two runs for the same date insert the sessions
// twice. Job serializes runs so that only a deliberate second trigger can
// cause that.
package provisioning

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"site_tracker/internal/buildingapi"
	"site_tracker/internal/gate"
	"site_tracker/internal/ledger"
	"site_tracker/internal/models"
)

var (
	ErrAlreadyRunning = errors.New("provisioning run already in progress")
	ErrAdminBootstrap = errors.New("admin bootstrap failed")
)

type Authorizer interface {
	Authorize(ctx context.Context, email, password string) (gate.Decision, error)
}

type Directory interface {
	ListObjects(ctx context.Context, token string) ([]buildingapi.Object, error)
	GetObject(ctx context.Context, token string, id int) (buildingapi.ObjectDetail, error)
}

// Ledger is the subset of *ledger.Ledger a run writes to.
type Ledger interface {
	CreateSession(ctx context.Context, n ledger.NewSession) (*models.VisitSession, error)
	CreateBatch(ctx context.Context, batch []ledger.NewSession) (ledger.BatchResult, error)
	Tomorrow() time.Time
}

// Locker serializes runs across processes. TryLock returns
// ErrAlreadyRunning when another holder exists.
type Locker interface {
	TryLock(ctx context.Context) (unlock func(), err error)
}

type Config struct {
	AdminEmail    string
	AdminPassword string
	// AdminUserID is the ledger identity used for self-healing. Empty means
	// the id the identity provider reports for the admin.
	AdminUserID   string
	AdminObjectID int
}

// Report summarizes one run.
type Report struct {
	RunID            string        `json:"run_id"`
	TargetDate       string        `json:"target_date"`
	SessionsCreated  int           `json:"sessions_created"`
	SessionsFailed   int           `json:"sessions_failed"`
	ObjectsProcessed int           `json:"objects_processed"`
	ObjectsSkipped   int           `json:"objects_skipped"`
	Duration         time.Duration `json:"duration"`
}

type Job struct {
	auth   Authorizer
	dir    Directory
	ledger Ledger
	cfg    Config
	locker Locker
	mu     sync.Mutex
}

type Option func(*Job)

// WithLocker adds a cross-process lock on top of the in-process one.
func WithLocker(l Locker) Option {
	return func(j *Job) { j.locker = l }
}

func NewJob(auth Authorizer, dir Directory, l Ledger, cfg Config, opts ...Option) *Job {
	j := &Job{auth: auth, dir: dir, ledger: l, cfg: cfg}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Run executes one provisioning run. A concurrent call returns
// ErrAlreadyRunning without side effects.
func (j *Job) Run(ctx context.Context) (Report, error) {
	if !j.mu.TryLock() {
		return Report{}, ErrAlreadyRunning
	}
	defer j.mu.Unlock()

	if j.locker != nil {
		unlock, err := j.locker.TryLock(ctx)
		if err != nil {
			return Report{}, err
		}
		defer unlock()
	}

	start := time.Now()
	tomorrow := j.ledger.Tomorrow()
	rep := Report{RunID: uuid.NewString(), TargetDate: tomorrow.Format(time.DateOnly)}
	log := logrus.WithFields(logrus.Fields{"run_id": rep.RunID, "target_date": rep.TargetDate})
	log.Info("provisioning started")

	token, err := j.bootstrap(ctx, log)
	if err != nil {
		log.WithError(err).Error("provisioning aborted")
		return rep, err
	}

	plan, err := j.plan(ctx, token, tomorrow, &rep, log)
	if err != nil {
		log.WithError(err).Error("provisioning aborted")
		return rep, err
	}

	res, err := j.ledger.CreateBatch(ctx, plan)
	if err != nil {
		log.WithError(err).Error("provisioning commit failed")
		return rep, fmt.Errorf("commit sessions: %w", err)
	}
	for _, f := range res.Failed {
		log.WithError(f.Err).WithFields(logrus.Fields{
			"object_id": f.Session.ObjectID,
			"user_id":   f.Session.UserID,
		}).Warn("planned session skipped")
	}
	rep.SessionsCreated = len(res.Created)
	rep.SessionsFailed = len(res.Failed)
	rep.Duration = time.Since(start)

	log.WithFields(logrus.Fields{
		"sessions_created":  rep.SessionsCreated,
		"sessions_failed":   rep.SessionsFailed,
		"objects_processed": rep.ObjectsProcessed,
		"objects_skipped":   rep.ObjectsSkipped,
		"duration":          rep.Duration,
	}).Info("provisioning finished")
	return rep, nil
}

// bootstrap logs the admin in through the gate. The admin is subject to the
// same session rule as everyone, so a missing session is healed once.
func (j *Job) bootstrap(ctx context.Context, log *logrus.Entry) (string, error) {
	d, err := j.auth.Authorize(ctx, j.cfg.AdminEmail, j.cfg.AdminPassword)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAdminBootstrap, err)
	}
	if d.Granted {
		return d.Token, nil
	}
	if d.Reason != gate.ReasonNoSessionToday {
		return "", fmt.Errorf("%w: %s", ErrAdminBootstrap, d.Reason)
	}

	userID := j.cfg.AdminUserID
	if userID == "" {
		userID = d.UserID
	}
	log.WithField("user_id", userID).Warn("admin has no session today, creating one")
	if _, err := j.ledger.CreateSession(ctx, ledger.NewSession{
		UserID:   userID,
		Role:     models.RoleForeman,
		ObjectID: j.cfg.AdminObjectID,
	}); err != nil {
		return "", fmt.Errorf("%w: self-heal: %w", ErrAdminBootstrap, err)
	}

	d, err = j.auth.Authorize(ctx, j.cfg.AdminEmail, j.cfg.AdminPassword)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAdminBootstrap, err)
	}
	if !d.Granted {
		return "", fmt.Errorf("%w: still denied after self-heal: %s", ErrAdminBootstrap, d.Reason)
	}
	return d.Token, nil
}

// plan enumerates active objects and expands each into sessions. Transport
// failures abort; a rejected detail request skips that object.
func (j *Job) plan(ctx context.Context, token string, visit time.Time, rep *Report, log *logrus.Entry) ([]ledger.NewSession, error) {
	objects, err := j.dir.ListObjects(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}

	var plan []ledger.NewSession
	for _, obj := range objects {
		if !obj.Active() {
			continue
		}
		olog := log.WithField("object_id", obj.ID)
		if obj.Foreman == nil || obj.Foreman.ID == "" {
			olog.Info("object skipped: no foreman")
			rep.ObjectsSkipped++
			continue
		}

		detail, err := j.dir.GetObject(ctx, token, obj.ID)
		if err != nil {
			if !errors.Is(err, buildingapi.ErrRejected) {
				return nil, fmt.Errorf("get object %d: %w", obj.ID, err)
			}
			olog.WithError(err).Warn("object skipped: detail rejected")
			rep.ObjectsSkipped++
			continue
		}

		sessions := expand(obj.Foreman.ID.String(), obj.ID, detail.Areas, visit)
		olog.WithField("sessions", len(sessions)).Debug("object expanded")
		plan = append(plan, sessions...)
		rep.ObjectsProcessed++
	}
	return plan, nil
}

// expand plans one object-level session, or one per area when the object
// is subdivided.
func expand(foremanID string, objectID int, areas []buildingapi.Area, visit time.Time) []ledger.NewSession {
	base := ledger.NewSession{
		UserID:    foremanID,
		Role:      models.RoleForeman,
		ObjectID:  objectID,
		VisitDate: visit,
	}
	if len(areas) == 0 {
		return []ledger.NewSession{base}
	}
	out := make([]ledger.NewSession, 0, len(areas))
	for _, a := range areas {
		s := base
		id, name := a.ID, a.Name
		s.AreaID = &id
		s.AreaName = &name
		out = append(out, s)
	}
	return out
}
