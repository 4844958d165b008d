// Package gate decides login admission: valid credentials at the identity
// provider AND a visit session dated today. Neither gate implies the other.
package gate

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"site_tracker/internal/buildingapi"
)

type Reason string

const (
	ReasonGranted            Reason = "granted"
	ReasonInvalidCredentials Reason = "invalid_credentials"
	ReasonNoSessionToday     Reason = "no_session_today"
)

// Message is the user-facing text for a reason.
func (r Reason) Message() string {
	switch r {
	case ReasonGranted:
		return "Login successful"
	case ReasonInvalidCredentials:
		return "Invalid credentials"
	case ReasonNoSessionToday:
		return "Access denied: no visit scheduled today"
	}
	return string(r)
}

// IdentityProvider verifies credentials.
type IdentityProvider interface {
	Login(ctx context.Context, email, password string) (buildingapi.LoginResult, error)
}

// SessionChecker is the ledger query the gate needs.
type SessionChecker interface {
	HasSessionToday(ctx context.Context, userID string) (bool, error)
}

// Decision is the outcome of Authorize. Token is set whenever the identity
// provider accepted the credentials, even if access is denied.
type Decision struct {
	Granted bool
	Token   string
	UserID  string
	Role    string
	Reason  Reason
}

type Gate struct {
	idp      IdentityProvider
	sessions SessionChecker
}

func New(idp IdentityProvider, sessions SessionChecker) *Gate {
	return &Gate{idp: idp, sessions: sessions}
}

// Authorize runs both gates. Errors are returned only for transport or
// ledger failures; a denial is a Decision.
func (g *Gate) Authorize(ctx context.Context, email, password string) (Decision, error) {
	res, err := g.idp.Login(ctx, email, password)
	if err != nil {
		var se *buildingapi.StatusError
		if errors.As(err, &se) && se.ClientError() {
			logrus.WithField("email", email).Info("login rejected by identity provider")
			return Decision{Reason: ReasonInvalidCredentials}, nil
		}
		return Decision{}, fmt.Errorf("identity check: %w", err)
	}

	ok, err := g.sessions.HasSessionToday(ctx, res.UserID)
	if err != nil {
		return Decision{}, fmt.Errorf("session check: %w", err)
	}

	d := Decision{Token: res.Token, UserID: res.UserID, Role: res.Role}
	if !ok {
		d.Reason = ReasonNoSessionToday
		logrus.WithField("user_id", res.UserID).Info("login denied: no session today")
		return d, nil
	}
	d.Granted = true
	d.Reason = ReasonGranted
	return d, nil
}
