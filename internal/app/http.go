package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zhao0294/cst8919-assignment1/internal/activity"
	"github.com/zhao0294/cst8919-assignment1/internal/auth/handler"
	"github.com/zhao0294/cst8919-assignment1/internal/auth/provider/auth0"
	"github.com/zhao0294/cst8919-assignment1/internal/config"
	"github.com/zhao0294/cst8919-assignment1/internal/logger"
	"github.com/zhao0294/cst8919-assignment1/internal/middleware"
	"github.com/zhao0294/cst8919-assignment1/internal/session"
	"github.com/zhao0294/cst8919-assignment1/internal/web"
)

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {

	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	codec, err := session.NewCodec(cfg.SecretKey)
	if err != nil {
		_ = infra.Close()
		return nil, nil, err
	}
	cookieOpts := session.CookieOptions{Secure: cfg.SecureCookies()}
	sessionStore := session.NewCookieStore(codec, cfg.SessionTTL, cookieOpts)

	identityProvider, err := auth0.New(ctx, auth0.Config{
		Issuer:       cfg.Issuer(),
		ClientID:     cfg.Auth0ClientID,
		ClientSecret: cfg.Auth0ClientSecret,
		HTTPClient:   infra.ProviderHTTP,
	})
	if err != nil {
		_ = infra.Close()
		return nil, nil, err
	}

	recorder := activity.NewRecorder(activitySink(cfg, infra))

	authHandler := handler.NewHandler(
		identityProvider,
		sessionStore,
		codec,
		recorder,
		handler.Options{
			BaseURL:         cfg.BaseURL,
			Development:     cfg.IsDevelopment(),
			LoginAttemptTTL: cfg.LoginAttemptTTL,
			CookieOptions:   cookieOpts,
		},
	)

	// ----------------------------
	// Router
	// ----------------------------

	router := newRouter()
	authHandler.RegisterRoutes(router, middleware.NewAuthMiddleware(sessionStore))

	for _, route := range router.Routes() {
		logger.Debug("route registered", map[string]any{
			"method": route.Method,
			"path":   route.Path,
		})
	}

	return router, infra.Close, nil
}

// newRouter builds the engine with the ambient middleware, the views and
// the routes that need no session machinery.
func newRouter() *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.AccessLog(logger.L()),
		middleware.RecoveryMiddleware(logger.L()),
	)
	router.SetHTMLTemplate(web.Templates())

	router.GET("/health", health)

	return router
}

func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// activitySink always logs; the Redis stream is added when configured.
func activitySink(cfg config.Config, infra *Infra) activity.Sink {
	sinks := activity.MultiSink{activity.NewLogSink(logger.L())}
	if infra.Redis != nil {
		sinks = append(sinks, activity.NewStreamSink(infra.Redis, cfg.ActivityStream, cfg.ActivityStreamMaxLen))
	}
	return sinks
}
