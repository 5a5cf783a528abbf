package provider

import (
	"context"

	"github.com/zhao0294/cst8919-assignment1/internal/auth"
)

// IdentityProvider defines the contract of the external OIDC provider.
// Implementations return identity facts only and must not perform session
// management.
type IdentityProvider interface {
	// AuthorizationRedirect returns the provider authorize URL for one login
	// attempt. It performs no I/O.
	AuthorizationRedirect(pending auth.PendingAuthorization) string

	// ExchangeCodeForIdentity exchanges the authorization code for tokens
	// and returns the identity from the userinfo endpoint. Every failure is
	// an *auth.Error.
	ExchangeCodeForIdentity(
		ctx context.Context,
		resp auth.AuthorizationResponse,
		pending auth.PendingAuthorization,
	) (*auth.Identity, error)

	// LogoutURL returns the provider logout endpoint redirecting back to returnTo.
	LogoutURL(returnTo string) string
}
