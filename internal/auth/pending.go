package auth

import (
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/zhao0294/cst8919-assignment1/internal/utils"
)

// PendingAuthorization is the per-attempt transaction context created at
// login and consumed by the callback, whatever its outcome.
type PendingAuthorization struct {
	State        string
	Nonce        string
	CodeVerifier string
	RedirectURL  string
	ExpiresAt    time.Time
}

// NewPendingAuthorization creates fresh state, nonce and PKCE verifier values
// for one login attempt returning to redirectURL.
func NewPendingAuthorization(redirectURL string, ttl time.Duration) (PendingAuthorization, error) {
	state, err := utils.RandomString(32)
	if err != nil {
		return PendingAuthorization{}, fmt.Errorf("auth: generate state: %w", err)
	}
	nonce, err := utils.RandomString(32)
	if err != nil {
		return PendingAuthorization{}, fmt.Errorf("auth: generate nonce: %w", err)
	}
	return PendingAuthorization{
		State:        state,
		Nonce:        nonce,
		CodeVerifier: oauth2.GenerateVerifier(),
		RedirectURL:  redirectURL,
		ExpiresAt:    time.Now().Add(ttl),
	}, nil
}

func (p PendingAuthorization) IsZero() bool {
	return p.State == ""
}

func (p PendingAuthorization) IsExpired() bool {
	return !p.ExpiresAt.IsZero() && time.Now().After(p.ExpiresAt)
}

// AuthorizationResponse holds the query parameters the provider sends back
// to the callback endpoint.
type AuthorizationResponse struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}
