package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zhao0294/cst8919-assignment1/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubReader struct {
	rec session.Record
	ok  bool
}

func (s stubReader) Current(*http.Request) (session.Record, bool) {
	return s.rec, s.ok
}

func TestRequireAuth_AttachesSession(t *testing.T) {
	want := session.Record{SubjectID: "auth0|u1", Email: "u1@x.com"}
	mw := NewAuthMiddleware(stubReader{rec: want, ok: true})

	var got session.Record
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ok bool
		got, ok = SessionFromContext(r.Context())
		require.True(t, ok)
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	mw.RequireAuth(next, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, want, got)
}

func TestRequireAuth_DefaultDenied(t *testing.T) {
	mw := NewAuthMiddleware(stubReader{})
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("next must not run without a session")
	})

	rec := httptest.NewRecorder()
	mw.RequireAuth(next, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGinRequireAuth(t *testing.T) {
	tests := []struct {
		name       string
		reader     stubReader
		wantStatus int
		wantBody   string
	}{
		{
			name:       "valid session reaches handler",
			reader:     stubReader{rec: session.Record{SubjectID: "abc"}, ok: true},
			wantStatus: http.StatusOK,
			wantBody:   "abc",
		},
		{
			name:       "missing session is denied",
			reader:     stubReader{},
			wantStatus: http.StatusFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			denied := func(c *gin.Context) { c.Redirect(http.StatusFound, "/login") }
			r.GET("/protected", GinRequireAuth(NewAuthMiddleware(tt.reader), denied), func(c *gin.Context) {
				rec, _ := SessionFromContext(c.Request.Context())
				c.String(http.StatusOK, rec.SubjectID)
			})

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			} else {
				assert.Equal(t, "/login", rec.Header().Get("Location"))
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := rec.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "upstream-id")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "upstream-id", rec.Header().Get(RequestIDHeader))
}

func TestRecoveryMiddleware(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	r := gin.New()
	r.Use(RequestID(), RecoveryMiddleware(zap.New(core)))
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
	entry := logs.All()[0]
	assert.Equal(t, "/boom", entry.ContextMap()["path"])
	assert.NotEmpty(t, entry.ContextMap()["request_id"])
}

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(AccessLog(zap.New(core)))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "/health", fields["path"])
	assert.EqualValues(t, http.StatusNoContent, fields["status"])
}
