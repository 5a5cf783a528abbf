package auth0

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/zhao0294/cst8919-assignment1/internal/auth"
	"github.com/zhao0294/cst8919-assignment1/internal/logger"
)

// Scopes requested on every authorization.
var Scopes = []string{oidc.ScopeOpenID, "profile", "email"}

// Config holds the tenant settings the client is built from.
type Config struct {
	// Issuer is the tenant issuer URL, e.g. https://tenant.eu.auth0.com/
	Issuer       string
	ClientID     string
	ClientSecret string
	// HTTPClient bounds every call to the provider; its Timeout applies to
	// the token exchange, the userinfo fetch and key set refreshes.
	HTTPClient *http.Client
}

// Client implements the OIDC authorization code flow against an Auth0
// tenant. It returns identity facts only; no session decisions are made here.
type Client struct {
	issuer      string
	clientID    string
	oauthConfig oauth2.Config
	provider    *oidc.Provider
	verifier    *oidc.IDTokenVerifier
	httpClient  *http.Client
}

// New builds the client from the tenant's well-known Auth0 endpoints. No
// discovery request is made, so construction never blocks on the network.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Issuer == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("auth0 config missing required fields")
	}
	if _, err := url.ParseRequestURI(cfg.Issuer); err != nil {
		return nil, fmt.Errorf("auth0 issuer is not a valid URL: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	base := strings.TrimSuffix(cfg.Issuer, "/")
	providerCfg := &oidc.ProviderConfig{
		IssuerURL:   cfg.Issuer,
		AuthURL:     base + "/authorize",
		TokenURL:    base + "/oauth/token",
		UserInfoURL: base + "/userinfo",
		JWKSURL:     base + "/.well-known/jwks.json",
		Algorithms:  []string{oidc.RS256},
	}
	oidcProvider := providerCfg.NewProvider(oidc.ClientContext(ctx, httpClient))

	// Auth0 applications default to client_secret_post. A fixed style also
	// stops oauth2 from retrying a rejected, single-use code with another one.
	endpoint := oidcProvider.Endpoint()
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	return &Client{
		issuer:   cfg.Issuer,
		clientID: cfg.ClientID,
		oauthConfig: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			Scopes:       Scopes,
		},
		provider:   oidcProvider,
		verifier:   oidcProvider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		httpClient: httpClient,
	}, nil
}

// AuthorizationRedirect builds the authorize URL with state, nonce and PKCE
// parameters taken from the pending attempt.
func (c *Client) AuthorizationRedirect(pending auth.PendingAuthorization) string {
	cfg := c.oauthConfig
	cfg.RedirectURL = pending.RedirectURL
	return cfg.AuthCodeURL(
		pending.State,
		oidc.Nonce(pending.Nonce),
		oauth2.S256ChallengeOption(pending.CodeVerifier),
	)
}

// ExchangeCodeForIdentity validates the callback against the pending attempt,
// exchanges the code and reads the userinfo endpoint.
func (c *Client) ExchangeCodeForIdentity(
	ctx context.Context,
	resp auth.AuthorizationResponse,
	pending auth.PendingAuthorization,
) (*auth.Identity, error) {

	if resp.Code == "" {
		msg := "no authorization code received"
		if resp.Error != "" {
			msg = fmt.Sprintf("%s (provider error %q: %s)", msg, resp.Error, resp.ErrorDescription)
		}
		return nil, auth.NewError(auth.MissingAuthorizationCode, msg, nil)
	}

	if err := checkState(resp, pending); err != nil {
		return nil, err
	}

	ctx = oidc.ClientContext(ctx, c.httpClient)

	cfg := c.oauthConfig
	cfg.RedirectURL = pending.RedirectURL
	token, err := cfg.Exchange(ctx, resp.Code, oauth2.VerifierOption(pending.CodeVerifier))
	if err != nil {
		logger.Error("auth0 token exchange failed", map[string]any{
			"error": err.Error(),
		})
		return nil, auth.NewError(auth.TokenExchangeFailed, "token exchange failed", describeExchangeError(err))
	}

	idSubject, err := c.verifyIDToken(ctx, token, pending.Nonce)
	if err != nil {
		return nil, err
	}

	info, err := c.provider.UserInfo(ctx, oauth2.StaticTokenSource(token))
	if err != nil {
		logger.Error("auth0 userinfo fetch failed", map[string]any{
			"error": err.Error(),
		})
		return nil, auth.NewError(auth.UserinfoFetchFailed, "userinfo fetch failed", err)
	}

	var claims struct {
		Subject string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := info.Claims(&claims); err != nil {
		return nil, auth.NewError(auth.UserinfoFetchFailed, "userinfo claims parse failed", err)
	}

	if claims.Subject == "" {
		return nil, auth.NewError(auth.UserinfoFetchFailed, "userinfo response missing sub claim", nil)
	}
	if idSubject != "" && idSubject != claims.Subject {
		return nil, auth.NewError(auth.UserinfoFetchFailed, "userinfo subject does not match id_token subject", nil)
	}

	logger.Info("auth0 oidc verified", map[string]any{
		"issuer":           c.issuer,
		"subject_present":  claims.Subject != "",
		"email_present":    claims.Email != "",
		"id_token_present": idSubject != "",
	})

	return &auth.Identity{
		SubjectID:   claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.Name,
		PictureURL:  claims.Picture,
	}, nil
}

// LogoutURL returns the tenant logout endpoint that redirects back to returnTo.
func (c *Client) LogoutURL(returnTo string) string {
	q := url.Values{}
	q.Set("client_id", c.clientID)
	q.Set("returnTo", returnTo)
	return strings.TrimSuffix(c.issuer, "/") + "/v2/logout?" + q.Encode()
}

// verifyIDToken checks the id_token when the provider returned one and
// yields its subject. Tokens without an id_token pass with an empty subject.
func (c *Client) verifyIDToken(ctx context.Context, token *oauth2.Token, nonce string) (string, error) {
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return "", nil
	}

	idToken, err := c.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		logger.Error("auth0 id_token verification failed", map[string]any{
			"error": err.Error(),
		})
		return "", auth.NewError(auth.TokenExchangeFailed, "id_token verification failed", err)
	}
	if subtle.ConstantTimeCompare([]byte(idToken.Nonce), []byte(nonce)) != 1 {
		return "", auth.NewError(auth.TokenExchangeFailed, "id_token nonce does not match login attempt", nil)
	}
	return idToken.Subject, nil
}

func checkState(resp auth.AuthorizationResponse, pending auth.PendingAuthorization) error {
	if pending.IsZero() {
		return auth.NewError(auth.InvalidAuthorizationState, "no pending login attempt for this browser", nil)
	}
	if pending.IsExpired() {
		return auth.NewError(auth.InvalidAuthorizationState, "login attempt expired", nil)
	}
	if resp.State == "" || subtle.ConstantTimeCompare([]byte(resp.State), []byte(pending.State)) != 1 {
		return auth.NewError(auth.InvalidAuthorizationState, "state mismatch", nil)
	}
	return nil
}

// describeExchangeError surfaces the RFC 6749 error code of a rejected exchange.
func describeExchangeError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.ErrorCode != "" {
		if re.ErrorDescription != "" {
			return fmt.Errorf("%s: %s: %w", re.ErrorCode, re.ErrorDescription, err)
		}
		return fmt.Errorf("%s: %w", re.ErrorCode, err)
	}
	return err
}
