// Package app wires the services from a loaded configuration. Both the
// HTTP server and the one-shot provisioning command start from here.
package app

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"site_tracker/internal/buildingapi"
	"site_tracker/internal/config"
	"site_tracker/internal/controllers"
	"site_tracker/internal/gate"
	"site_tracker/internal/geo"
	"site_tracker/internal/geofence"
	"site_tracker/internal/ledger"
	"site_tracker/internal/logger"
	"site_tracker/internal/middleware"
	"site_tracker/internal/provisioning"
	"site_tracker/internal/upload"
)

type App struct {
	Config  config.Config
	DB      *gorm.DB
	Ledger  *ledger.Ledger
	API     *buildingapi.Client
	Gate    *gate.Gate
	Geo     *geofence.Service
	Uploads *upload.Relay
	Job     *provisioning.Job

	lock *provisioning.AdvisoryLock
}

// New connects to the database and builds every service. db may be nil, in
// which case the configured Postgres database is opened and migrated.
func New(cfg config.Config, db *gorm.DB) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	policy, err := geo.PolicyByName(cfg.Geofence.Policy, cfg.Geofence.RadiusKm)
	if err != nil {
		return nil, err
	}
	axis, err := geo.ParseAxisOrder(cfg.Geofence.AxisOrder)
	if err != nil {
		return nil, err
	}

	if db == nil {
		if db, err = config.InitDB(cfg.Database, logger.GormLogger(cfg.Database.Echo)); err != nil {
			return nil, err
		}
	}

	a := &App{Config: cfg, DB: db}
	a.Ledger = ledger.New(db, ledger.WithLocation(loc))
	a.API = buildingapi.New(buildingapi.NewHTTPClient(), buildingapi.Config{
		BaseURL:         cfg.API.BaseURL,
		StorageURL:      cfg.API.StorageURL,
		MetadataTimeout: cfg.API.Timeout,
		UploadTimeout:   cfg.API.UploadTimeout,
		DirectoryRPS:    cfg.API.DirectoryRPS,
	})
	a.Gate = gate.New(a.API, a.Ledger)
	a.Geo = geofence.New(a.API, a.Ledger, policy, axis)
	a.Uploads = upload.New(a.API, a.API, a.Ledger, upload.WithTokenCheck(middleware.ValidateToken))

	var opts []provisioning.Option
	if cfg.Provision.AdvisoryLock {
		if a.lock, err = provisioning.NewAdvisoryLock(cfg.Database.DSN(), provisioning.DefaultAdvisoryKey); err != nil {
			return nil, err
		}
		opts = append(opts, provisioning.WithLocker(a.lock))
	}
	a.Job = provisioning.NewJob(a.Gate, a.API, a.Ledger, provisioning.Config{
		AdminEmail:    cfg.Admin.Email,
		AdminPassword: cfg.Admin.Password,
		AdminUserID:   cfg.Admin.UserID,
		AdminObjectID: cfg.Admin.ObjectID,
	}, opts...)

	logrus.WithFields(logrus.Fields{
		"timezone":   loc.String(),
		"policy":     policy.Name(),
		"axis_order": axis,
		"provision":  cfg.Provision.Enabled,
	}).Info("services ready")
	return a, nil
}

// Handler exposes the services to the HTTP layer. The manual provisioning
// trigger is only mounted when provisioning is enabled.
func (a *App) Handler() *controllers.Handler {
	h := &controllers.Handler{
		Gate:     a.Gate,
		Location: a.Geo,
		Uploads:  a.Uploads,
		Sessions: a.Ledger,
	}
	if a.Config.Provision.Enabled {
		h.Provisioner = a.Job
	}
	return h
}

func (a *App) Close() error {
	var errs []error
	if a.lock != nil {
		errs = append(errs, a.lock.Close())
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		errs = append(errs, sqlDB.Close())
	}
	return errors.Join(errs...)
}
