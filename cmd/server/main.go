package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"site_tracker/internal/app"
	"site_tracker/internal/config"
	"site_tracker/internal/logger"
	"site_tracker/internal/middleware"
	"site_tracker/internal/provisioning"
	"site_tracker/internal/routes"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	// Initialize structured logging to file
	closer := logger.Setup(cfg.Log)
	defer closer.Close()

	if err := run(cfg); err != nil {
		logrus.WithError(err).Error("server exited")
		closer.Close()
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := routes.SetupRouter(a.Handler(), routes.Options{
		OperatorKeyHash: cfg.Provision.OperatorKeyHash,
		AccessLog:       true,
	})

	// Wrap with CORS
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           middleware.EnableCORS(cfg.AllowedOrigins)(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var sched *provisioning.Scheduler
	if cfg.Provision.Enabled {
		loc, _ := cfg.Location()
		sched, err = provisioning.NewScheduler(a.Job, provisioning.SchedulerConfig{
			Spec:         cfg.Provision.Schedule,
			Location:     loc,
			RunOnStartup: cfg.Provision.RunOnStartup,
			Timeout:      cfg.Provision.Timeout,
		})
		if err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logrus.WithField("addr", srv.Addr).Info("server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if sched != nil {
		sched.Start(ctx)
	}

	g.Go(func() error {
		<-ctx.Done()
		logrus.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(sctx)
		if sched != nil {
			sched.Stop()
		}
		return err
	})

	return g.Wait()
}
