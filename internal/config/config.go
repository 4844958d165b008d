// Package config loads service configuration. Sources, later wins:
// built-in defaults, an optional YAML file (CONFIG_FILE), a .env file,
// then the process environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"site_tracker/internal/geo"
)

type Config struct {
	HTTPAddr       string          `yaml:"http_addr"`
	AllowedOrigins []string        `yaml:"allowed_origins"`
	Timezone       string          `yaml:"timezone"`
	Database       DatabaseConfig  `yaml:"database"`
	Log            LogConfig       `yaml:"log"`
	API            APIConfig       `yaml:"api"`
	Geofence       GeofenceConfig  `yaml:"geofence"`
	Admin          AdminConfig     `yaml:"admin"`
	Provision      ProvisionConfig `yaml:"provision"`
}

type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Name            string        `yaml:"name"`
	SSLMode         string        `yaml:"sslmode"`
	Timezone        string        `yaml:"timezone"`
	Echo            bool          `yaml:"echo"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"` // empty disables the rotating file
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type APIConfig struct {
	BaseURL       string        `yaml:"base_url"`
	StorageURL    string        `yaml:"storage_url"`
	Timeout       time.Duration `yaml:"timeout"`
	UploadTimeout time.Duration `yaml:"upload_timeout"`
	DirectoryRPS  float64       `yaml:"directory_rps"`
}

type GeofenceConfig struct {
	Policy    string  `yaml:"policy"`
	RadiusKm  float64 `yaml:"radius_km"`
	AxisOrder string  `yaml:"axis_order"`
}

type AdminConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	UserID   string `yaml:"user_id"`
	ObjectID int    `yaml:"object_id"`
}

type ProvisionConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Schedule        string        `yaml:"schedule"`
	RunOnStartup    bool          `yaml:"run_on_startup"`
	Timeout         time.Duration `yaml:"timeout"`
	AdvisoryLock    bool          `yaml:"advisory_lock"`
	OperatorKeyHash string        `yaml:"operator_key_hash"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		HTTPAddr:       "0.0.0.0:8080",
		AllowedOrigins: []string{"*"},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            "5432",
			User:            "postgres",
			Password:        "password",
			Name:            "site_tracker",
			SSLMode:         "disable",
			Timezone:        "UTC",
			MaxOpenConns:    20,
			MaxIdleConns:    20,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Log: LogConfig{
			Level:      "info",
			File:       "./logs/app.log",
			MaxSizeMB:  10,
			MaxBackups: 7,
			MaxAgeDays: 7,
		},
		API: APIConfig{
			BaseURL:       "https://building-api.itc-hub.ru/api/v1",
			StorageURL:    "https://building-s3-api.itc-hub.ru",
			Timeout:       10 * time.Second,
			UploadTimeout: 30 * time.Second,
			DirectoryRPS:  10,
		},
		Geofence: GeofenceConfig{
			Policy:    geo.PolicyRayCasting,
			RadiusKm:  geo.DefaultRadiusKm,
			AxisOrder: string(geo.AxisLonLat),
		},
		Admin: AdminConfig{ObjectID: 1},
		Provision: ProvisionConfig{
			Enabled:      true,
			Schedule:     "0 0 * * *",
			RunOnStartup: true,
			Timeout:      10 * time.Minute,
		},
	}
}

// Load builds the configuration and validates it.
func Load() (Config, error) {
	cfg := Default()

	// .env first, so it can name the config file too
	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file found, relying on env vars")
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return cfg, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var errs []error
	e := envReader{errs: &errs}

	if port, ok := os.LookupEnv("PORT"); ok && port != "" {
		c.HTTPAddr = "0.0.0.0:" + port
	}
	c.HTTPAddr = getEnv("HTTP_ADDR", c.HTTPAddr)
	c.AllowedOrigins = e.listVar("ALLOWED_ORIGINS", c.AllowedOrigins)
	c.Timezone = getEnv("TIMEZONE", c.Timezone)

	db := &c.Database
	db.URL = getEnv("DATABASE_URL", db.URL)
	db.Host = getEnv("DB_HOST", db.Host)
	db.Port = getEnv("DB_PORT", db.Port)
	db.User = getEnv("DB_USER", db.User)
	db.Password = getEnv("DB_PASSWORD", db.Password)
	db.Name = getEnv("DB_NAME", db.Name)
	db.SSLMode = getEnv("DB_SSLMODE", db.SSLMode)
	db.Timezone = getEnv("DB_TIMEZONE", db.Timezone)
	db.Echo = e.boolVar("DATABASE_ECHO", db.Echo)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.File = getEnv("LOG_FILE", c.Log.File)
	c.Log.MaxSizeMB = e.intVar("LOG_MAX_SIZE_MB", c.Log.MaxSizeMB)
	c.Log.MaxBackups = e.intVar("LOG_MAX_BACKUPS", c.Log.MaxBackups)
	c.Log.MaxAgeDays = e.intVar("LOG_MAX_AGE_DAYS", c.Log.MaxAgeDays)

	c.API.BaseURL = getEnv("API_BASE_URL", c.API.BaseURL)
	c.API.StorageURL = getEnv("STORAGE_BASE_URL", c.API.StorageURL)
	c.API.Timeout = e.durationVar("API_TIMEOUT", c.API.Timeout)
	c.API.UploadTimeout = e.durationVar("UPLOAD_TIMEOUT", c.API.UploadTimeout)
	c.API.DirectoryRPS = e.floatVar("DIRECTORY_RPS", c.API.DirectoryRPS)

	c.Geofence.Policy = getEnv("GEOFENCE_POLICY", c.Geofence.Policy)
	c.Geofence.RadiusKm = e.floatVar("GEOFENCE_RADIUS_KM", c.Geofence.RadiusKm)
	c.Geofence.AxisOrder = getEnv("POLYGON_AXIS_ORDER", c.Geofence.AxisOrder)

	c.Admin.Email = getEnv("ADMIN_EMAIL", c.Admin.Email)
	c.Admin.Password = getEnv("ADMIN_PASSWORD", c.Admin.Password)
	c.Admin.UserID = getEnv("ADMIN_USER_ID", c.Admin.UserID)
	c.Admin.ObjectID = e.intVar("ADMIN_OBJECT_ID", c.Admin.ObjectID)

	p := &c.Provision
	p.Enabled = e.boolVar("PROVISION_ENABLED", p.Enabled)
	p.Schedule = getEnv("PROVISION_SCHEDULE", p.Schedule)
	p.RunOnStartup = e.boolVar("PROVISION_ON_STARTUP", p.RunOnStartup)
	p.Timeout = e.durationVar("PROVISION_TIMEOUT", p.Timeout)
	p.AdvisoryLock = e.boolVar("PROVISION_ADVISORY_LOCK", p.AdvisoryLock)
	p.OperatorKeyHash = getEnv("OPERATOR_KEY_HASH", p.OperatorKeyHash)

	return errors.Join(errs...)
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if _, err := geo.PolicyByName(c.Geofence.Policy, c.Geofence.RadiusKm); err != nil {
		errs = append(errs, fmt.Errorf("GEOFENCE_POLICY: %w", err))
	}
	if _, err := geo.ParseAxisOrder(c.Geofence.AxisOrder); err != nil {
		errs = append(errs, fmt.Errorf("POLYGON_AXIS_ORDER: %w", err))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE: %w", err))
	}
	for name, raw := range map[string]string{"API_BASE_URL": c.API.BaseURL, "STORAGE_BASE_URL": c.API.StorageURL} {
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s: %q is not an absolute URL", name, raw))
		}
	}
	if c.API.Timeout <= 0 || c.API.UploadTimeout <= 0 {
		errs = append(errs, errors.New("API_TIMEOUT and UPLOAD_TIMEOUT must be positive"))
	}
	if c.Provision.Enabled {
		if _, err := cron.ParseStandard(c.Provision.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("PROVISION_SCHEDULE: %w", err))
		}
		if c.Admin.Email == "" || c.Admin.Password == "" {
			errs = append(errs, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD are required when provisioning is enabled"))
		}
	}
	return errors.Join(errs...)
}

// Location is the zone that defines calendar days. Empty means time.Local.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// getEnv reads an environment variable or returns the provided default
func getEnv(key, defaultValue string) string {
	if v, exists := os.LookupEnv(key); exists {
		return v
	}
	return defaultValue
}

// envReader parses typed variables and collects parse errors.
type envReader struct{ errs *[]error }

func (e envReader) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e envReader) fail(key, v string, err error) {
	*e.errs = append(*e.errs, fmt.Errorf("%s=%q: %w", key, v, err))
}

func (e envReader) intVar(key string, def int) int {
	v, ok := e.lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return n
}

func (e envReader) floatVar(key string, def float64) float64 {
	v, ok := e.lookup(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return f
}

func (e envReader) boolVar(key string, def bool) bool {
	v, ok := e.lookup(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return b
}

// durationVar accepts Go durations ("30s") or plain seconds ("30").
func (e envReader) durationVar(key string, def time.Duration) time.Duration {
	v, ok := e.lookup(key)
	if !ok {
		return def
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return d
}

func (e envReader) listVar(key string, def []string) []string {
	v, ok := e.lookup(key)
	if !ok {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
