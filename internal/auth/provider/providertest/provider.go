// Package providertest runs an in-process OIDC provider exposing the Auth0
// endpoint layout, for tests of the authorization code flow.
package providertest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const keyID = "providertest-key"

type grant struct {
	nonce       string
	challenge   string
	redirectURI string
}

// Provider is a fake OIDC provider. Zero-value knobs give a well-behaved
// provider; tests flip them to simulate failures.
type Provider struct {
	ClientID     string
	ClientSecret string

	mu sync.Mutex
	// userInfo is served verbatim from /userinfo; its "sub" is also the
	// id_token subject.
	userInfo   map[string]any
	omitID     bool
	failToken  bool
	failUser   bool
	nonceFixup string
	grants     map[string]grant
	tokens     map[string]bool
	nextCode   int
	tokenHits  int
	basicAuth  bool

	key    *rsa.PrivateKey
	server *httptest.Server
}

// Start launches the provider and stops it when the test ends.
func Start(t *testing.T) *Provider {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("providertest: generate key: %v", err)
	}

	p := &Provider{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		userInfo:     map[string]any{"sub": "auth0|u1", "email": "u1@x.com", "name": "u1@x.com"},
		grants:       map[string]grant{},
		tokens:       map[string]bool{},
		key:          key,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/authorize", p.authorize)
	mux.HandleFunc("/oauth/token", p.token)
	mux.HandleFunc("/userinfo", p.userinfo)
	mux.HandleFunc("/.well-known/jwks.json", p.jwks)
	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

// Issuer returns the issuer URL, with the trailing slash Auth0 uses.
func (p *Provider) Issuer() string { return p.server.URL + "/" }

func (p *Provider) URL() string { return p.server.URL }

func (p *Provider) SetUserInfo(claims map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userInfo = claims
}

// OmitIDTokens makes the token endpoint return access tokens only.
func (p *Provider) OmitIDTokens() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitID = true
}

// FailTokenExchange makes the token endpoint answer invalid_grant.
func (p *Provider) FailTokenExchange() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failToken = true
}

// FailUserInfo makes /userinfo answer 500.
func (p *Provider) FailUserInfo() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failUser = true
}

// SetIDTokenNonce forces the nonce written into issued id_tokens.
func (p *Provider) SetIDTokenNonce(nonce string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nonceFixup = nonce
}

// TokenRequests returns how many requests reached the token endpoint.
func (p *Provider) TokenRequests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tokenHits
}

// UsedBasicAuth reports whether the last token request sent the client
// credentials in the Authorization header rather than the form body.
func (p *Provider) UsedBasicAuth() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.basicAuth
}

// Authorize plays the browser: it follows authURL to the provider and returns
// the callback URL the provider redirects back to.
func (p *Provider) Authorize(t *testing.T, authURL string) *url.URL {
	t.Helper()

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
	resp, err := client.Get(authURL)
	if err != nil {
		t.Fatalf("providertest: authorize: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("providertest: authorize returned %d", resp.StatusCode)
	}
	loc, err := url.Parse(resp.Header.Get("Location"))
	if err != nil {
		t.Fatalf("providertest: bad callback location: %v", err)
	}
	return loc
}

func (p *Provider) authorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("client_id") != p.ClientID || q.Get("response_type") != "code" {
		http.Error(w, "unauthorized_client", http.StatusBadRequest)
		return
	}
	if q.Get("code_challenge_method") != "S256" || q.Get("code_challenge") == "" {
		http.Error(w, "pkce required", http.StatusBadRequest)
		return
	}
	redirectURI, err := url.Parse(q.Get("redirect_uri"))
	if err != nil || !redirectURI.IsAbs() {
		http.Error(w, "invalid redirect_uri", http.StatusBadRequest)
		return
	}

	p.mu.Lock()
	p.nextCode++
	code := "code-" + strconv.Itoa(p.nextCode)
	p.grants[code] = grant{
		nonce:       q.Get("nonce"),
		challenge:   q.Get("code_challenge"),
		redirectURI: redirectURI.String(),
	}
	p.mu.Unlock()

	back := redirectURI.Query()
	back.Set("code", code)
	back.Set("state", q.Get("state"))
	redirectURI.RawQuery = back.Encode()
	http.Redirect(w, r, redirectURI.String(), http.StatusFound)
}

func (p *Provider) token(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.tokenHits++
	_, _, p.basicAuth = r.BasicAuth()
	p.mu.Unlock()

	if err := r.ParseForm(); err != nil {
		writeTokenError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	id, secret, ok := r.BasicAuth()
	if !ok {
		id, secret = r.PostForm.Get("client_id"), r.PostForm.Get("client_secret")
	}
	if id != p.ClientID || secret != p.ClientSecret {
		writeTokenError(w, http.StatusUnauthorized, "invalid_client", "client authentication failed")
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failToken {
		writeTokenError(w, http.StatusForbidden, "invalid_grant", "Invalid authorization code")
		return
	}
	code := r.PostForm.Get("code")
	g, found := p.grants[code]
	if !found {
		writeTokenError(w, http.StatusForbidden, "invalid_grant", "unknown or used authorization code")
		return
	}
	delete(p.grants, code)

	if r.PostForm.Get("redirect_uri") != g.redirectURI {
		writeTokenError(w, http.StatusForbidden, "invalid_grant", "redirect_uri mismatch")
		return
	}
	sum := sha256.Sum256([]byte(r.PostForm.Get("code_verifier")))
	if base64.RawURLEncoding.EncodeToString(sum[:]) != g.challenge {
		writeTokenError(w, http.StatusForbidden, "invalid_grant", "code_verifier mismatch")
		return
	}

	accessToken := "access-" + code
	p.tokens[accessToken] = true

	out := map[string]any{
		"access_token": accessToken,
		"token_type":   "Bearer",
		"expires_in":   3600,
		"scope":        "openid profile email",
	}
	if !p.omitID {
		nonce := g.nonce
		if p.nonceFixup != "" {
			nonce = p.nonceFixup
		}
		idToken, err := p.signIDToken(nonce)
		if err != nil {
			writeTokenError(w, http.StatusInternalServerError, "server_error", err.Error())
			return
		}
		out["id_token"] = idToken
	}
	writeJSON(w, http.StatusOK, out)
}

func (p *Provider) signIDToken(nonce string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   p.Issuer(),
		"aud":   p.ClientID,
		"sub":   p.userInfo["sub"],
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
		"nonce": nonce,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = keyID
	return token.SignedString(p.key)
}

func (p *Provider) userinfo(w http.ResponseWriter, r *http.Request) {
	const prefix = "Bearer "
	authz := r.Header.Get("Authorization")

	p.mu.Lock()
	defer p.mu.Unlock()

	if len(authz) <= len(prefix) || !p.tokens[authz[len(prefix):]] {
		http.Error(w, "invalid_token", http.StatusUnauthorized)
		return
	}
	if p.failUser {
		http.Error(w, "userinfo unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, p.userInfo)
}

func (p *Provider) jwks(w http.ResponseWriter, _ *http.Request) {
	pub := p.key.PublicKey
	writeJSON(w, http.StatusOK, map[string]any{
		"keys": []map[string]any{{
			"kty": "RSA",
			"use": "sig",
			"alg": "RS256",
			"kid": keyID,
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	})
}

func writeTokenError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, map[string]string{
		"error":             code,
		"error_description": description,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
