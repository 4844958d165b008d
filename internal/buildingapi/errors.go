package buildingapi

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrRejected means the service answered with a non-2xx status.
	ErrRejected = errors.New("external service rejected the request")
	// ErrTimeout means no answer arrived within the call deadline.
	ErrTimeout = errors.New("external service timed out")
	// ErrUnavailable covers connection failures and unreadable responses.
	ErrUnavailable = errors.New("external service unavailable")
)

// StatusError carries the status code of a rejected call.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrRejected }

// ClientError reports a 4xx status.
func (e *StatusError) ClientError() bool { return e.Code >= 400 && e.Code < 500 }

// classify maps a transport error from http.Client.Do.
func classify(op string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %s: %v", ErrTimeout, op, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}
