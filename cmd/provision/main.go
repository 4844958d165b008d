// provision runs the daily session provisioning once and prints the run
// report as JSON. It uses the same configuration as the server, so it can
// back an external scheduler when the in-process one is disabled.
//
// With --hash-operator-key it instead prints the bcrypt hash to put in
// OPERATOR_KEY_HASH.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"

	"site_tracker/internal/app"
	"site_tracker/internal/config"
	"site_tracker/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile string
		timeout    time.Duration
		hashKey    string
	)
	flagSet := pflag.NewFlagSet("provision", pflag.ContinueOnError)
	flagSet.StringVarP(&configFile, "config", "c", "", "YAML config file (overrides CONFIG_FILE)")
	flagSet.DurationVar(&timeout, "timeout", 0, "abort the run after this long (default: PROVISION_TIMEOUT)")
	flagSet.StringVar(&hashKey, "hash-operator-key", "", "print the bcrypt hash of this operator key and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	if hashKey != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(hashKey), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		fmt.Println(string(hash))
		return nil
	}

	if configFile != "" {
		os.Setenv("CONFIG_FILE", configFile)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	defer logger.Setup(cfg.Log).Close()

	if timeout <= 0 {
		timeout = cfg.Provision.Timeout
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	a, err := app.New(cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := a.Job.Run(ctx)
	if err != nil {
		logrus.WithError(err).WithField("run_id", rep.RunID).Error("provisioning failed")
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
