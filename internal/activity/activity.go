package activity

import (
	"context"
	"encoding/json"
	"time"

	"github.com/zhao0294/cst8919-assignment1/internal/logger"
)

// Type enumerates the security-relevant actions that are audited.
type Type string

const (
	HomePageAccess            Type = "home_page_access"
	LoginInitiated            Type = "login_initiated"
	LoginSuccessful           Type = "login_successful"
	LoginFailed               Type = "login_failed"
	ProtectedRouteAccess      Type = "protected_route_access"
	UnauthorizedAccessAttempt Type = "unauthorized_access_attempt"
	Logout                    Type = "logout"
)

// Details carries free-form, per-event context.
type Details map[string]any

// Actor is the identity fragment attached to an event.
type Actor struct {
	SubjectID   string
	Email       string
	DisplayName string
}

// Request holds the caller attributes taken from the inbound HTTP request.
type Request struct {
	ClientIP  string
	UserAgent string
}

// Event is a single append-only audit record.
type Event struct {
	Timestamp   time.Time
	Type        Type
	ClientIP    string
	UserAgent   string
	SubjectID   string
	Email       string
	DisplayName string
	Details     Details
}

type eventJSON struct {
	Timestamp   string  `json:"timestamp"`
	Type        Type    `json:"activity_type"`
	ClientIP    string  `json:"client_ip"`
	UserAgent   string  `json:"user_agent"`
	SubjectID   string  `json:"subject_id,omitempty"`
	Email       string  `json:"email,omitempty"`
	DisplayName string  `json:"display_name,omitempty"`
	Details     Details `json:"details"`
}

// MarshalJSON renders the event with a UTC ISO-8601 timestamp and a
// non-null details object.
func (e Event) MarshalJSON() ([]byte, error) {
	details := e.Details
	if details == nil {
		details = Details{}
	}
	return json.Marshal(eventJSON{
		Timestamp:   e.Timestamp.UTC().Format(time.RFC3339Nano),
		Type:        e.Type,
		ClientIP:    e.ClientIP,
		UserAgent:   e.UserAgent,
		SubjectID:   e.SubjectID,
		Email:       e.Email,
		DisplayName: e.DisplayName,
		Details:     details,
	})
}

// Sink consumes activity events.
type Sink interface {
	Emit(ctx context.Context, e Event) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, e Event) error

func (f SinkFunc) Emit(ctx context.Context, e Event) error {
	if f == nil {
		return nil
	}
	return f(ctx, e)
}

// Recorder builds events and hands them to a sink. Emission is synchronous
// and best-effort: sink errors are logged, never returned.
type Recorder struct {
	sink Sink
	now  func() time.Time
}

func NewRecorder(sink Sink) *Recorder {
	if sink == nil {
		sink = SinkFunc(nil)
	}
	return &Recorder{sink: sink, now: time.Now}
}

// Record emits one event. actor may be nil for anonymous callers.
func (r *Recorder) Record(ctx context.Context, req Request, t Type, actor *Actor, details Details) {
	e := Event{
		Timestamp: r.now().UTC(),
		Type:      t,
		ClientIP:  req.ClientIP,
		UserAgent: req.UserAgent,
		Details:   details,
	}
	if e.Details == nil {
		e.Details = Details{}
	}
	if actor != nil {
		e.SubjectID = actor.SubjectID
		e.Email = actor.Email
		e.DisplayName = actor.DisplayName
	}

	defer func() {
		if p := recover(); p != nil {
			logger.Error("activity sink panicked", map[string]any{
				"activity_type": string(t),
				"panic":         p,
			})
		}
	}()
	if err := r.sink.Emit(ctx, e); err != nil {
		logger.Warn("activity emission failed", map[string]any{
			"activity_type": string(t),
			"error":         err,
		})
	}
}
