// Package geofence answers "is this user inside the object's boundary" for
// the location endpoint and logs every check to the history ledger.
package geofence

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"site_tracker/internal/buildingapi"
	"site_tracker/internal/geo"
	"site_tracker/internal/ledger"
	"site_tracker/internal/models"
)

var ErrInvalidRequest = errors.New("invalid location request")

// Directory is the part of the building API the service reads.
type Directory interface {
	GetObject(ctx context.Context, token string, id int) (buildingapi.ObjectDetail, error)
	CurrentUser(ctx context.Context, token string) (buildingapi.User, error)
}

type HistoryRecorder interface {
	CreateHistory(ctx context.Context, n ledger.NewHistory) (*models.VisitHistoryRecord, error)
}

type Service struct {
	dir     Directory
	history HistoryRecorder
	policy  geo.ContainmentPolicy
	axis    geo.AxisOrder
}

// New wires the service. A nil policy means ray casting.
func New(dir Directory, history HistoryRecorder, policy geo.ContainmentPolicy, axis geo.AxisOrder) *Service {
	if policy == nil {
		policy = geo.RayCasting{}
	}
	if axis == "" {
		axis = geo.AxisLonLat
	}
	return &Service{dir: dir, history: history, policy: policy, axis: axis}
}

func (s *Service) Policy() geo.ContainmentPolicy { return s.policy }

type Request struct {
	Token    string
	ObjectID int
	Point    geo.Point
}

// Result is the containment decision. SubPolygonID is set when the point
// lies inside one of the object's areas.
type Result struct {
	geo.Result
	SubPolygonID *int
}

// Check validates req, evaluates it against the object's main polygon and
// appends a history record. History failures never change the decision.
func (s *Service) Check(ctx context.Context, req Request) (Result, error) {
	if req.Token == "" {
		return Result{}, fmt.Errorf("%w: token is required", ErrInvalidRequest)
	}
	if req.ObjectID <= 0 {
		return Result{}, fmt.Errorf("%w: object_id is required", ErrInvalidRequest)
	}
	if err := req.Point.Validate(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	detail, err := s.dir.GetObject(ctx, req.Token, req.ObjectID)
	if err != nil {
		var se *buildingapi.StatusError
		if !errors.As(err, &se) || !se.ClientError() {
			return Result{}, fmt.Errorf("fetch object %d: %w", req.ObjectID, err)
		}
		// an unknown or forbidden object has no polygon for this caller
		logrus.WithError(err).WithField("object_id", req.ObjectID).Info("object polygon not available")
	}

	pg, err := geo.FromGeoJSON(detail.MainGeometry(), s.axis)
	if err != nil {
		logrus.WithError(err).WithField("object_id", req.ObjectID).Warn("main polygon unreadable")
		pg = nil
	}

	res := Result{Result: geo.Check(s.policy, pg, req.Point)}
	if res.Inside {
		res.SubPolygonID = s.matchArea(detail.Areas, req.Point)
	}

	logrus.WithFields(logrus.Fields{
		"object_id": req.ObjectID,
		"status":    res.Status,
		"policy":    s.policy.Name(),
	}).Info("location checked")

	s.record(ctx, req, res)
	return res, nil
}

// matchArea returns the id of the first area containing p. Areas are tested
// with ray casting regardless of the main policy.
func (s *Service) matchArea(areas []buildingapi.Area, p geo.Point) *int {
	for _, a := range areas {
		pg, err := geo.FromGeoJSON(a.Geometry, s.axis)
		if err != nil || !pg.Usable() {
			continue
		}
		if (geo.RayCasting{}).Contains(pg, p) {
			id := a.ID
			return &id
		}
	}
	return nil
}

func (s *Service) record(ctx context.Context, req Request, res Result) {
	if s.history == nil {
		return
	}
	user, err := s.dir.CurrentUser(ctx, req.Token)
	if err != nil {
		logrus.WithError(err).Warn("history skipped: caller not resolved")
		return
	}
	_, err = s.history.CreateHistory(ctx, ledger.NewHistory{
		UserID:       user.ID.String(),
		ObjectID:     req.ObjectID,
		SubPolygonID: res.SubPolygonID,
		Latitude:     req.Point.Lat,
		Longitude:    req.Point.Lon,
	})
	if err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Warn("history not recorded")
	}
}
