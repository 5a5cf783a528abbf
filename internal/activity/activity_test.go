package activity

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zhao0294/cst8919-assignment1/internal/logger"
)

var fixedNow = time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

func newTestRecorder(sink Sink) *Recorder {
	r := NewRecorder(sink)
	r.now = func() time.Time { return fixedNow }
	return r
}

func TestRecorder_BuildsEvent(t *testing.T) {
	var got []Event
	r := newTestRecorder(SinkFunc(func(_ context.Context, e Event) error {
		got = append(got, e)
		return nil
	}))

	req := Request{ClientIP: "10.0.0.1", UserAgent: "curl/8"}
	r.Record(context.Background(), req, LoginSuccessful,
		&Actor{SubjectID: "auth0|u1", Email: "u1@x.com", DisplayName: "U One"},
		Details{"redirect_target": "/protected"})
	r.Record(context.Background(), req, LoginInitiated, nil, nil)

	require.Len(t, got, 2)
	assert.Equal(t, Event{
		Timestamp:   fixedNow,
		Type:        LoginSuccessful,
		ClientIP:    "10.0.0.1",
		UserAgent:   "curl/8",
		SubjectID:   "auth0|u1",
		Email:       "u1@x.com",
		DisplayName: "U One",
		Details:     Details{"redirect_target": "/protected"},
	}, got[0])

	assert.Equal(t, LoginInitiated, got[1].Type)
	assert.Empty(t, got[1].SubjectID)
	assert.NotNil(t, got[1].Details)
}

func TestRecorder_SinkFailureIsSwallowed(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	restore := logger.Use(zap.New(core))
	defer restore()

	r := newTestRecorder(SinkFunc(func(context.Context, Event) error {
		return errors.New("disk full")
	}))
	assert.NotPanics(t, func() {
		r.Record(context.Background(), Request{}, Logout, nil, nil)
	})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "activity emission failed", entry.Message)
	assert.Equal(t, "logout", entry.ContextMap()["activity_type"])
	assert.Equal(t, "disk full", entry.ContextMap()["error"])
}

func TestRecorder_SinkPanicIsContained(t *testing.T) {
	restore := logger.Use(zap.NewNop())
	defer restore()

	r := newTestRecorder(SinkFunc(func(context.Context, Event) error {
		panic("sink exploded")
	}))
	assert.NotPanics(t, func() {
		r.Record(context.Background(), Request{}, HomePageAccess, nil, nil)
	})
}

func TestRecorder_NilSink(t *testing.T) {
	r := NewRecorder(nil)
	assert.NotPanics(t, func() {
		r.Record(context.Background(), Request{}, HomePageAccess, nil, nil)
	})
}

func TestEvent_MarshalJSON(t *testing.T) {
	e := Event{
		Timestamp: time.Date(2024, 5, 1, 14, 30, 0, 0, time.FixedZone("CEST", 2*3600)),
		Type:      UnauthorizedAccessAttempt,
		ClientIP:  "127.0.0.1",
		UserAgent: "test",
	}
	raw, err := json.Marshal(e)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "2024-05-01T12:30:00Z", m["timestamp"])
	assert.Equal(t, "unauthorized_access_attempt", m["activity_type"])
	assert.Equal(t, map[string]any{}, m["details"])
	assert.NotContains(t, m, "subject_id")
}

func TestLogSink_Fields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s := NewLogSink(zap.New(core))

	err := s.Emit(context.Background(), Event{
		Timestamp: fixedNow,
		Type:      ProtectedRouteAccess,
		ClientIP:  "192.0.2.10",
		UserAgent: "Mozilla/5.0",
		SubjectID: "auth0|abc",
		Email:     "a@b.com",
		Details:   Details{"route": "/protected"},
	})
	require.NoError(t, err)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, LogMessage, entry.Message)
	ctx := entry.ContextMap()
	assert.Equal(t, "2024-05-01T12:30:00Z", ctx["timestamp"])
	assert.Equal(t, "protected_route_access", ctx["activity_type"])
	assert.Equal(t, "192.0.2.10", ctx["client_ip"])
	assert.Equal(t, "auth0|abc", ctx["subject_id"])
	assert.Equal(t, "a@b.com", ctx["email"])
	assert.Equal(t, map[string]any{"route": "/protected"}, ctx["details"])
}

func TestLogSink_AnonymousOmitsIdentity(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s := NewLogSink(zap.New(core))

	require.NoError(t, s.Emit(context.Background(), Event{Type: LoginInitiated, Details: Details{}}))
	ctx := logs.All()[0].ContextMap()
	assert.NotContains(t, ctx, "subject_id")
	assert.NotContains(t, ctx, "email")
}

type fakeStream struct {
	args []*goredis.XAddArgs
	err  error
}

func (f *fakeStream) XAdd(ctx context.Context, a *goredis.XAddArgs) *goredis.StringCmd {
	f.args = append(f.args, a)
	cmd := goredis.NewStringCmd(ctx, "xadd", a.Stream)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	cmd.SetVal("1714566600000-0")
	return cmd
}

func TestStreamSink_Emit(t *testing.T) {
	fs := &fakeStream{}
	s := NewStreamSink(fs, "user_activity", 500)

	err := s.Emit(context.Background(), Event{
		Timestamp: fixedNow,
		Type:      LoginFailed,
		ClientIP:  "127.0.0.1",
		Details:   Details{"error": "no authorization code received"},
	})
	require.NoError(t, err)

	require.Len(t, fs.args, 1)
	a := fs.args[0]
	assert.Equal(t, "user_activity", a.Stream)
	assert.Equal(t, int64(500), a.MaxLen)
	assert.True(t, a.Approx)

	values := a.Values.(map[string]any)
	assert.Equal(t, "login_failed", values["activity_type"])

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(values["event"].(string)), &doc))
	assert.Equal(t, "login_failed", doc["activity_type"])
	assert.Equal(t, map[string]any{"error": "no authorization code received"}, doc["details"])
}

func TestStreamSink_CancelledRequestStillWrites(t *testing.T) {
	fs := &fakeStream{}
	s := NewStreamSink(fs, "user_activity", 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var seenErr error
	s.client = streamFunc(func(c context.Context, a *goredis.XAddArgs) *goredis.StringCmd {
		seenErr = c.Err()
		return fs.XAdd(c, a)
	})
	require.NoError(t, s.Emit(ctx, Event{Type: Logout}))
	require.Len(t, fs.args, 1)
	assert.NoError(t, seenErr)
}

type streamFunc func(ctx context.Context, a *goredis.XAddArgs) *goredis.StringCmd

func (f streamFunc) XAdd(ctx context.Context, a *goredis.XAddArgs) *goredis.StringCmd {
	return f(ctx, a)
}

func TestStreamSink_Error(t *testing.T) {
	s := NewStreamSink(&fakeStream{err: errors.New("connection refused")}, "user_activity", 0)
	err := s.Emit(context.Background(), Event{Type: Logout})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestMultiSink(t *testing.T) {
	var calls int
	ok := SinkFunc(func(context.Context, Event) error { calls++; return nil })
	bad := SinkFunc(func(context.Context, Event) error { calls++; return errors.New("bad sink") })

	assert.NoError(t, MultiSink{ok, nil, ok}.Emit(context.Background(), Event{}))
	assert.Equal(t, 2, calls)

	calls = 0
	err := MultiSink{bad, ok, bad}.Emit(context.Background(), Event{})
	require.Error(t, err)
	assert.Equal(t, 3, calls, "a failing sink must not stop the others")
	assert.Contains(t, err.Error(), "2 errors occurred")
}
