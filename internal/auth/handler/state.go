package handler

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/zhao0294/cst8919-assignment1/internal/auth"
	"github.com/zhao0294/cst8919-assignment1/internal/session"
)

const pendingCookieName = "__oauth_txn"

type pendingClaims struct {
	State        string `json:"state"`
	Nonce        string `json:"nonce"`
	CodeVerifier string `json:"code_verifier"`
	RedirectURL  string `json:"redirect_uri"`
	jwt.RegisteredClaims
}

// pendingCookie carries the login attempt between /login and /callback in a
// signed, short-lived cookie.
type pendingCookie struct {
	codec *session.Codec
	opts  session.CookieOptions
}

func (p pendingCookie) save(w http.ResponseWriter, pending auth.PendingAuthorization) error {
	token, err := p.codec.Sign(pendingClaims{
		State:        pending.State,
		Nonce:        pending.Nonce,
		CodeVerifier: pending.CodeVerifier,
		RedirectURL:  pending.RedirectURL,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(pending.ExpiresAt),
		},
	})
	if err != nil {
		return err
	}
	session.SetCookie(w, pendingCookieName, token, pending.ExpiresAt, p.opts)
	return nil
}

// load returns the zero value when the cookie is missing, forged or expired.
func (p pendingCookie) load(r *http.Request) auth.PendingAuthorization {
	cookie, err := r.Cookie(pendingCookieName)
	if err != nil || cookie.Value == "" {
		return auth.PendingAuthorization{}
	}

	var claims pendingClaims
	if err := p.codec.Verify(cookie.Value, &claims); err != nil {
		return auth.PendingAuthorization{}
	}

	return auth.PendingAuthorization{
		State:        claims.State,
		Nonce:        claims.Nonce,
		CodeVerifier: claims.CodeVerifier,
		RedirectURL:  claims.RedirectURL,
		ExpiresAt:    claims.ExpiresAt.Time,
	}
}

func (p pendingCookie) clear(w http.ResponseWriter) {
	session.ClearCookie(w, pendingCookieName, p.opts)
}
