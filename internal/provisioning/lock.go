package provisioning

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// DefaultAdvisoryKey identifies provisioning runs in pg_locks.
const DefaultAdvisoryKey int64 = 0x5e55_1015

// AdvisoryLock is a Locker backed by a Postgres session-level advisory
// lock. The lock lives on one pooled connection, held until unlock.
type AdvisoryLock struct {
	db  *sql.DB
	key int64
}

// NewAdvisoryLock opens a small dedicated pool. dsn may be a URL or a
// key=value string.
func NewAdvisoryLock(dsn string, key int64) (*AdvisoryLock, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open advisory lock pool: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &AdvisoryLock{db: db, key: key}, nil
}

func (a *AdvisoryLock) TryLock(ctx context.Context) (func(), error) {
	conn, err := a.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("advisory lock connection: %w", err)
	}
	var ok bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", a.key).Scan(&ok); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("advisory lock: %w", err)
	}
	if !ok {
		_ = conn.Close()
		return nil, ErrAlreadyRunning
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", a.key); err != nil {
			logrus.WithError(err).Warn("advisory unlock failed")
		}
		_ = conn.Close()
	}, nil
}

func (a *AdvisoryLock) Close() error { return a.db.Close() }
