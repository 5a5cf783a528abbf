package session

import (
	"net/http"
	"time"
)

// CookieName carries the signed session record.
const CookieName = "session"

// CookieOptions are shared by the session cookie and the short-lived login
// attempt cookie, so both follow the same Secure/SameSite policy.
type CookieOptions struct {
	Path     string
	HttpOnly bool
	Secure   bool
	SameSite http.SameSite
	Domain   string
}

// Cookies are always HttpOnly and site-wide. Lax is the strictest SameSite
// mode that still sends the login cookie on the provider's redirect back.
func (o CookieOptions) normalize() CookieOptions {
	if o.Path == "" {
		o.Path = "/"
	}
	o.HttpOnly = true
	if o.SameSite == 0 {
		o.SameSite = http.SameSiteLaxMode
	}
	return o
}

// SetCookie writes a signed token cookie that the browser drops at expiresAt,
// the same instant the token inside it stops verifying.
func SetCookie(w http.ResponseWriter, name, token string, expiresAt time.Time, opts CookieOptions) {
	opts = opts.normalize()

	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     opts.Path,
		Domain:   opts.Domain,
		Expires:  expiresAt,
		HttpOnly: opts.HttpOnly,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})
}

// ClearCookie expires the named cookie. Logout and every callback call it
// whether or not the browser sent one.
func ClearCookie(w http.ResponseWriter, name string, opts CookieOptions) {
	opts = opts.normalize()

	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     opts.Path,
		Domain:   opts.Domain,
		MaxAge:   -1,
		HttpOnly: opts.HttpOnly,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})
}
