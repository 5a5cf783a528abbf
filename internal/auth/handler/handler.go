package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zhao0294/cst8919-assignment1/internal/activity"
	"github.com/zhao0294/cst8919-assignment1/internal/auth"
	"github.com/zhao0294/cst8919-assignment1/internal/auth/provider"
	"github.com/zhao0294/cst8919-assignment1/internal/logger"
	"github.com/zhao0294/cst8919-assignment1/internal/middleware"
	"github.com/zhao0294/cst8919-assignment1/internal/session"
	"github.com/zhao0294/cst8919-assignment1/internal/web"
)

const (
	homePath      = "/"
	loginPath     = "/login"
	callbackPath  = "/callback"
	protectedPath = "/protected"
	logoutPath    = "/logout"

	defaultLoginAttemptTTL = 5 * time.Minute
)

type Options struct {
	// BaseURL is the externally visible origin, e.g. https://app.example.com.
	// Empty means derive it from the request.
	BaseURL string
	// Development sends logout straight home instead of through the provider.
	Development     bool
	LoginAttemptTTL time.Duration
	// CookieOptions applies to the pending login cookie.
	CookieOptions session.CookieOptions
}

// Handler drives the authentication session lifecycle: login, callback,
// protected access and logout. Every transition is audited before the
// response is produced.
type Handler struct {
	idp      provider.IdentityProvider
	sessions session.Store
	pending  pendingCookie
	activity *activity.Recorder
	opts     Options
}

func NewHandler(
	idp provider.IdentityProvider,
	sessions session.Store,
	codec *session.Codec,
	recorder *activity.Recorder,
	opts Options,
) *Handler {
	if opts.LoginAttemptTTL <= 0 {
		opts.LoginAttemptTTL = defaultLoginAttemptTTL
	}
	opts.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")

	return &Handler{
		idp:      idp,
		sessions: sessions,
		pending:  pendingCookie{codec: codec, opts: opts.CookieOptions},
		activity: recorder,
		opts:     opts,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes, authMiddleware *middleware.AuthMiddleware) {
	r.GET(homePath, h.home)
	r.GET(loginPath, h.login)
	r.GET(callbackPath, h.callback)
	r.GET(protectedPath, middleware.GinRequireAuth(authMiddleware, h.unauthorized), h.protected)
	r.GET(logoutPath, h.logout)
}

func (h *Handler) home(c *gin.Context) {
	rec, ok := h.sessions.Current(c.Request)

	page := web.Page{}
	var actor *activity.Actor
	if ok {
		page.User = viewUser(rec)
		actor = rec.Actor()
	}

	h.record(c, activity.HomePageAccess, actor, nil)
	c.HTML(http.StatusOK, web.HomeView, page)
}

func (h *Handler) login(c *gin.Context) {
	_, hasSession := h.sessions.Current(c.Request)
	h.record(c, activity.LoginInitiated, nil, nil)

	pending, err := auth.NewPendingAuthorization(h.externalURL(c, callbackPath), h.opts.LoginAttemptTTL)
	if err == nil {
		err = h.pending.save(c.Writer, pending)
	}
	if err != nil {
		logger.Error("login initiation failed", map[string]any{
			"error":      err,
			"request_id": middleware.GetRequestID(c),
		})
		c.String(http.StatusInternalServerError, "Login unavailable, please retry.")
		return
	}

	transition(c, auth.StateOf(hasSession), auth.LoginPending)
	c.Redirect(http.StatusFound, h.idp.AuthorizationRedirect(pending))
}

func (h *Handler) callback(c *gin.Context) {
	// The pending attempt is single-use whatever the outcome.
	pending := h.pending.load(c.Request)
	h.pending.clear(c.Writer)

	resp := auth.AuthorizationResponse{
		Code:             c.Query("code"),
		State:            c.Query("state"),
		Error:            c.Query("error"),
		ErrorDescription: c.Query("error_description"),
	}

	identity, err := h.idp.ExchangeCodeForIdentity(c.Request.Context(), resp, pending)
	if err != nil {
		h.loginFailed(c, err)
		return
	}

	if _, err := h.sessions.Establish(c.Writer, *identity); err != nil {
		h.loginFailed(c, auth.NewError(auth.SessionEstablishFailed, "could not establish session", err))
		return
	}

	h.record(c, activity.LoginSuccessful, identity.Actor(), activity.Details{
		"redirect_target": protectedPath,
	})
	transition(c, auth.LoginPending, auth.Authenticated)
	c.Redirect(http.StatusFound, protectedPath)
}

func (h *Handler) loginFailed(c *gin.Context, err error) {
	kind := auth.KindOf(err)

	h.record(c, activity.LoginFailed, nil, activity.Details{
		"error":        err.Error(),
		"error_kind":   string(kind),
		"callback_url": h.externalURL(c, c.Request.URL.RequestURI()),
	})
	logger.Error("oauth callback failed", map[string]any{
		"error":      err,
		"error_kind": string(kind),
		"request_id": middleware.GetRequestID(c),
	})
	transition(c, auth.LoginPending, auth.LoginFailed)

	if !kind.Recoverable() {
		c.String(http.StatusInternalServerError, "Login failed: could not establish session")
		return
	}
	c.String(http.StatusBadRequest, "Login failed: %s", err.Error())
}

func (h *Handler) protected(c *gin.Context) {
	rec, ok := middleware.SessionFromContext(c.Request.Context())
	if !ok {
		h.unauthorized(c)
		return
	}

	h.record(c, activity.ProtectedRouteAccess, rec.Actor(), activity.Details{
		"route": protectedPath,
	})
	c.HTML(http.StatusOK, web.ProtectedView, web.Page{User: viewUser(rec)})
}

// unauthorized handles /protected without a valid session. The requested
// path is not carried through login; sign-in always lands on /protected.
func (h *Handler) unauthorized(c *gin.Context) {
	h.record(c, activity.UnauthorizedAccessAttempt, nil, activity.Details{
		"target_route": c.Request.URL.Path,
		"reason":       "no_valid_session",
	})
	transition(c, auth.Anonymous, auth.Anonymous)
	c.Redirect(http.StatusFound, loginPath)
}

func (h *Handler) logout(c *gin.Context) {
	rec, ok := h.sessions.Current(c.Request)
	var actor *activity.Actor
	if ok {
		actor = rec.Actor()
	}

	h.record(c, activity.Logout, actor, nil)
	h.sessions.Clear(c.Writer)
	transition(c, auth.StateOf(ok), auth.Anonymous)

	if h.isLocal(c) {
		c.Redirect(http.StatusFound, homePath)
		return
	}
	c.Redirect(http.StatusFound, h.idp.LogoutURL(h.externalURL(c, homePath)))
}

func (h *Handler) record(c *gin.Context, t activity.Type, actor *activity.Actor, details activity.Details) {
	h.activity.Record(c.Request.Context(), activity.Request{
		ClientIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}, t, actor, details)
}

// isLocal reports whether logout should skip the provider round trip.
func (h *Handler) isLocal(c *gin.Context) bool {
	host := c.Request.Host
	return h.opts.Development || strings.Contains(host, "localhost") || strings.Contains(host, "3000")
}

// externalURL resolves path against the public origin of the app.
func (h *Handler) externalURL(c *gin.Context, path string) string {
	if h.opts.BaseURL != "" {
		return h.opts.BaseURL + path
	}

	scheme := "http"
	if c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host + path
}

func transition(c *gin.Context, from, to auth.State) {
	logger.Debug("auth state transition", map[string]any{
		"from":       from.String(),
		"to":         to.String(),
		"path":       c.Request.URL.Path,
		"request_id": middleware.GetRequestID(c),
	})
}

// viewUser shows the email as the name when the provider sent none.
func viewUser(rec session.Record) *web.User {
	name := rec.DisplayName
	if name == "" {
		name = rec.Email
	}
	return &web.User{
		SubjectID:   rec.SubjectID,
		Email:       rec.Email,
		DisplayName: name,
		PictureURL:  rec.PictureURL,
	}
}
