package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// LogMessage is the message every audit log line carries, so log
// pipelines can select activity records with a single match.
const LogMessage = "USER_ACTIVITY"

// LogSink writes events as structured zap entries.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(l *zap.Logger) *LogSink {
	return &LogSink{log: l}
}

func (s *LogSink) Emit(_ context.Context, e Event) error {
	fields := []zap.Field{
		zap.String("timestamp", e.Timestamp.UTC().Format(time.RFC3339Nano)),
		zap.String("activity_type", string(e.Type)),
		zap.String("client_ip", e.ClientIP),
		zap.String("user_agent", e.UserAgent),
	}
	if e.SubjectID != "" {
		fields = append(fields,
			zap.String("subject_id", e.SubjectID),
			zap.String("email", e.Email),
			zap.String("display_name", e.DisplayName),
		)
	}
	fields = append(fields, zap.Any("details", map[string]any(e.Details)))
	s.log.Info(LogMessage, fields...)
	return nil
}

// StreamAdder is the subset of the go-redis client used by StreamSink.
type StreamAdder interface {
	XAdd(ctx context.Context, a *goredis.XAddArgs) *goredis.StringCmd
}

// StreamSink appends events to a capped Redis stream, one JSON document per entry.
type StreamSink struct {
	client  StreamAdder
	stream  string
	maxLen  int64
	timeout time.Duration
}

func NewStreamSink(client StreamAdder, stream string, maxLen int64) *StreamSink {
	return &StreamSink{
		client:  client,
		stream:  stream,
		maxLen:  maxLen,
		timeout: 500 * time.Millisecond,
	}
}

func (s *StreamSink) Emit(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("activity: marshal event: %w", err)
	}

	// The request context may already be cancelled by the time a logout or
	// failure is recorded; the write still gets its own short budget.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	err = s.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{
			"activity_type": string(e.Type),
			"event":         string(payload),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("activity: xadd %s: %w", s.stream, err)
	}
	return nil
}

// MultiSink emits to every sink and reports all failures together.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, e Event) error {
	var result *multierror.Error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Emit(ctx, e); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
