// Package upload relays photo evidence to the storage service. The
// destination depends on the caller's role and today's visit session.
package upload

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"site_tracker/internal/buildingapi"
	"site_tracker/internal/models"
)

var (
	ErrInvalidRequest = errors.New("invalid upload request")
	ErrNoSessionToday = errors.New("no visit session today")
)

type Directory interface {
	CurrentUser(ctx context.Context, token string) (buildingapi.User, error)
}

type Storage interface {
	UploadForemanVisit(ctx context.Context, token, userID string, p buildingapi.UploadPayload) error
	UploadViolation(ctx context.Context, token, tag string, objectID int, p buildingapi.UploadPayload) error
}

// SessionFinder is the ledger view the relay needs.
type SessionFinder interface {
	GetTodaySession(ctx context.Context, userID string) (*models.VisitSession, error)
	Today() time.Time
}

type Relay struct {
	dir        Directory
	storage    Storage
	sessions   SessionFinder
	checkToken func(string) error
}

type Option func(*Relay)

// WithTokenCheck sets the pre-flight token validation.
func WithTokenCheck(fn func(string) error) Option {
	return func(r *Relay) {
		if fn != nil {
			r.checkToken = fn
		}
	}
}

func New(dir Directory, storage Storage, sessions SessionFinder, opts ...Option) *Relay {
	r := &Relay{
		dir:      dir,
		storage:  storage,
		sessions: sessions,
		checkToken: func(tok string) error {
			if strings.TrimSpace(tok) == "" {
				return errors.New("token is required")
			}
			return nil
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type Request struct {
	Token        string
	PhotosBase64 []string
	Date         string // YYYY-MM-DD, defaults to today
	ObjectID     int    // overrides today's session object for inspectors
	Tag          string // role override: foreman, ssk or iko
}

type Result struct {
	UserID   string
	Role     models.UserRole
	ObjectID int
	Photos   int
	Message  string
}

// Upload validates req, resolves the caller and today's session, then
// forwards the photos to the route the role table selects.
func (r *Relay) Upload(ctx context.Context, req Request) (Result, error) {
	payload, tagRole, err := r.validate(req)
	if err != nil {
		return Result{}, err
	}

	user, err := r.dir.CurrentUser(ctx, req.Token)
	if err != nil {
		return Result{}, fmt.Errorf("resolve caller: %w", err)
	}
	userID := user.ID.String()

	session, err := r.sessions.GetTodaySession(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	if session == nil {
		logrus.WithField("user_id", userID).Info("upload refused: no session today")
		return Result{}, ErrNoSessionToday
	}

	role, err := models.NormalizeExternalRole(user.Role)
	if err != nil {
		role = session.UserRole
	}
	// inspectors may file under either inspection tag; nobody else may switch
	if tagRole != "" && tagRole != role {
		if role.UploadRoute() != models.UploadViolation || tagRole.UploadRoute() != models.UploadViolation {
			return Result{}, fmt.Errorf("%w: tag %s is not allowed for role %s", ErrInvalidRequest, tagRole, role)
		}
		role = tagRole
	}
	if payload.Date == "" {
		payload.Date = r.sessions.Today().Format(time.DateOnly)
	}

	res := Result{UserID: userID, Role: role, Photos: len(payload.PhotosBase64)}
	switch role.UploadRoute() {
	case models.UploadViolation:
		objectID := req.ObjectID
		if objectID == 0 {
			objectID = session.ObjectID
		}
		if objectID <= 0 {
			return Result{}, fmt.Errorf("%w: object_id is required for %s uploads", ErrInvalidRequest, role)
		}
		if err := r.storage.UploadViolation(ctx, req.Token, role.StorageTag(), objectID, payload); err != nil {
			return Result{}, fmt.Errorf("upload violation: %w", err)
		}
		res.ObjectID = objectID
		res.Message = fmt.Sprintf("Photos uploaded for %s", role.DisplayName())
	default:
		if err := r.storage.UploadForemanVisit(ctx, req.Token, userID, payload); err != nil {
			return Result{}, fmt.Errorf("upload foreman visit: %w", err)
		}
		res.ObjectID = session.ObjectID
		res.Message = "Photos uploaded for foreman"
	}

	logrus.WithFields(logrus.Fields{
		"user_id":   userID,
		"role":      role,
		"object_id": res.ObjectID,
		"photos":    res.Photos,
	}).Info("photos relayed")
	return res, nil
}

// validate runs every check that needs no external call.
func (r *Relay) validate(req Request) (buildingapi.UploadPayload, models.UserRole, error) {
	var p buildingapi.UploadPayload
	if err := r.checkToken(req.Token); err != nil {
		return p, "", fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if len(req.PhotosBase64) == 0 {
		return p, "", fmt.Errorf("%w: at least one photo is required", ErrInvalidRequest)
	}
	for i, photo := range req.PhotosBase64 {
		data, err := decodePhoto(photo)
		if err != nil {
			return p, "", fmt.Errorf("%w: photo %d: %v", ErrInvalidRequest, i, err)
		}
		p.PhotosBase64 = append(p.PhotosBase64, data)
	}
	if req.Date != "" {
		if _, err := time.Parse(time.DateOnly, req.Date); err != nil {
			return p, "", fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidRequest)
		}
		p.Date = req.Date
	}
	if req.ObjectID < 0 {
		return p, "", fmt.Errorf("%w: object_id must be positive", ErrInvalidRequest)
	}
	var role models.UserRole
	if req.Tag != "" {
		var err error
		if role, err = models.ParseRole(req.Tag); err != nil {
			return p, "", fmt.Errorf("%w: tag %q", ErrInvalidRequest, req.Tag)
		}
	}
	return p, role, nil
}

// decodePhoto strips an optional data-URL prefix and checks the rest is
// standard base64. It returns the bare base64 text.
func decodePhoto(s string) (string, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		i := strings.Index(s, ";base64,")
		if i < 0 {
			return "", errors.New("data URL is not base64")
		}
		s = s[i+len(";base64,"):]
	}
	if s == "" {
		return "", errors.New("empty photo")
	}
	if _, err := base64.StdEncoding.DecodeString(s); err != nil {
		return "", errors.New("malformed base64")
	}
	return s, nil
}
