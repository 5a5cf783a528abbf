package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/zhao0294/cst8919-assignment1/internal/auth"
)

type recordClaims struct {
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"name,omitempty"`
	PictureURL  string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// CookieStore keeps the session record in a signed cookie. Nothing is held
// server-side; validity is decided by the signature and the token expiry.
type CookieStore struct {
	codec *Codec
	ttl   time.Duration
	opts  CookieOptions
	now   func() time.Time
}

func NewCookieStore(codec *Codec, ttl time.Duration, opts CookieOptions) *CookieStore {
	return &CookieStore{
		codec: codec,
		ttl:   ttl,
		opts:  opts,
		now:   time.Now,
	}
}

func (s *CookieStore) Establish(w http.ResponseWriter, id auth.Identity) (Record, error) {
	if id.SubjectID == "" {
		return Record{}, errors.New("session: identity has no subject")
	}
	rec := FromIdentity(id)

	now := s.now()
	expiresAt := now.Add(s.ttl)
	token, err := s.codec.Sign(recordClaims{
		Email:       rec.Email,
		DisplayName: rec.DisplayName,
		PictureURL:  rec.PictureURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   rec.SubjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	if err != nil {
		return Record{}, err
	}

	SetCookie(w, CookieName, token, expiresAt, s.opts)
	return rec, nil
}

func (s *CookieStore) Current(r *http.Request) (Record, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return Record{}, false
	}

	var claims recordClaims
	if err := s.codec.Verify(cookie.Value, &claims); err != nil {
		return Record{}, false
	}
	if claims.Subject == "" {
		return Record{}, false
	}

	return Record{
		SubjectID:   claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.DisplayName,
		PictureURL:  claims.PictureURL,
	}, true
}

func (s *CookieStore) Clear(w http.ResponseWriter) {
	ClearCookie(w, CookieName, s.opts)
}
