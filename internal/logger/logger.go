package logger

import (
	"io"
	"os"
	"time"

	"github.com/natefinch/lumberjack"
	logrus "github.com/sirupsen/logrus"
	gormlogger "gorm.io/gorm/logger"

	"site_tracker/internal/config"
)

// Setup initializes Logrus to write to stdout and, when a file is
// configured, a rotating log file.
func Setup(cfg config.LogConfig) io.Closer {
	var out io.Writer = os.Stdout
	var rotator *lumberjack.Logger
	if cfg.File != "" {
		rotator = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB, // megabytes
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays, // days
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, rotator)
	}

	logrus.SetOutput(out)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
		logrus.WithField("level", cfg.Level).Warn("unknown log level, using info")
	}
	logrus.SetLevel(level)

	if rotator == nil {
		return nopCloser{}
	}
	return rotator
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// GormLogger routes GORM output through Logrus. echo logs every statement;
// otherwise only slow queries and errors are logged.
func GormLogger(echo bool) gormlogger.Interface {
	level := gormlogger.Warn
	if echo {
		level = gormlogger.Info
	}
	return gormlogger.New(logrus.StandardLogger(), gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
