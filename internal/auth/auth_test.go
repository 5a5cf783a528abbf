package auth

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewError(TokenExchangeFailed, "token exchange failed", cause)

	assert.Equal(t, "token exchange failed: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, &Error{Kind: TokenExchangeFailed})
	assert.NotErrorIs(t, err, &Error{Kind: UserinfoFetchFailed})

	wrapped := fmt.Errorf("callback: %w", err)
	assert.Equal(t, TokenExchangeFailed, KindOf(wrapped))
	assert.Equal(t, ErrorKind(""), KindOf(cause))

	bare := NewError(MissingAuthorizationCode, "no authorization code received", nil)
	assert.Equal(t, "no authorization code received", bare.Error())
}

func TestErrorKind_Recoverable(t *testing.T) {
	for _, k := range []ErrorKind{MissingAuthorizationCode, InvalidAuthorizationState, TokenExchangeFailed, UserinfoFetchFailed} {
		assert.True(t, k.Recoverable(), k)
	}
	assert.False(t, SessionEstablishFailed.Recoverable())
	assert.False(t, ErrorKind("").Recoverable())
}

func TestNewPendingAuthorization(t *testing.T) {
	p, err := NewPendingAuthorization("http://localhost:8000/callback", time.Minute)
	require.NoError(t, err)

	assert.NotEmpty(t, p.State)
	assert.NotEmpty(t, p.Nonce)
	assert.NotEqual(t, p.State, p.Nonce)
	assert.GreaterOrEqual(t, len(p.CodeVerifier), 43)
	assert.Equal(t, "http://localhost:8000/callback", p.RedirectURL)
	assert.False(t, p.IsZero())
	assert.False(t, p.IsExpired())

	other, err := NewPendingAuthorization(p.RedirectURL, time.Minute)
	require.NoError(t, err)
	assert.NotEqual(t, p.State, other.State)
}

func TestPendingAuthorization_Expired(t *testing.T) {
	p := PendingAuthorization{State: "s", ExpiresAt: time.Now().Add(-time.Second)}
	assert.True(t, p.IsExpired())
	assert.True(t, PendingAuthorization{}.IsZero())
	assert.False(t, PendingAuthorization{}.IsExpired())
}

func TestState(t *testing.T) {
	assert.Equal(t, "anonymous", Anonymous.String())
	assert.Equal(t, "login_pending", LoginPending.String())
	assert.Equal(t, "authenticated", Authenticated.String())
	assert.Equal(t, "login_failed", LoginFailed.String())
	assert.Equal(t, "unknown", State(42).String())

	assert.Equal(t, Authenticated, StateOf(true))
	assert.Equal(t, Anonymous, StateOf(false))
}

func TestIdentity_Actor(t *testing.T) {
	id := Identity{SubjectID: "abc", Email: "a@b.com", DisplayName: "A", PictureURL: "u"}
	a := id.Actor()
	assert.Equal(t, "abc", a.SubjectID)
	assert.Equal(t, "a@b.com", a.Email)
	assert.Equal(t, "A", a.DisplayName)
}
