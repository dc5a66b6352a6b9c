package progress

import (
	"context"
	"strings"

	"github.com/kaytu-io/kaytu-assessor/pkg/assessment/api"
	"go.uber.org/zap"
)

// Func adapts a function to a progress sink.
type Func func(ctx context.Context, event api.ProgressEvent)

func (f Func) Report(ctx context.Context, event api.ProgressEvent) {
	f(ctx, event)
}

// LoggingSink writes every event to the logger.
type LoggingSink struct {
	logger *zap.Logger
}

func NewLoggingSink(logger *zap.Logger) LoggingSink {
	return LoggingSink{logger: logger.Named("progress")}
}

func (s LoggingSink) Report(_ context.Context, event api.ProgressEvent) {
	fields := []zap.Field{
		zap.String("operation", event.Operation),
		zap.String("tenantID", event.TenantID),
		zap.String("stage", string(event.Stage)),
		zap.String("family", event.ControlFamily),
		zap.Int("completed", event.Completed),
		zap.Int("total", event.Total),
	}
	if event.EvidenceType != "" {
		fields = append(fields, zap.String("evidenceType", event.EvidenceType))
	}
	if event.Score != nil {
		fields = append(fields, zap.Float64("score", *event.Score))
	}
	if event.FindingCount != nil {
		fields = append(fields, zap.Int("findings", *event.FindingCount))
	}
	s.logger.Info(event.Message, fields...)
}

// Publisher is implemented by the job queue.
type Publisher interface {
	PublishJSON(subject string, v any) error
}

// NatsSink publishes events on <subject>.<operation>.<tenant>. Publish errors
// are logged and never reach the reporting operation.
type NatsSink struct {
	logger    *zap.Logger
	publisher Publisher
	subject   string
}

func NewNatsSink(logger *zap.Logger, publisher Publisher, subject string) *NatsSink {
	return &NatsSink{
		logger:    logger.Named("progress-nats"),
		publisher: publisher,
		subject:   strings.TrimSuffix(subject, "."),
	}
}

func (s *NatsSink) Subject(event api.ProgressEvent) string {
	return s.subject + "." + event.Operation + "." + token(event.TenantID)
}

func (s *NatsSink) Report(_ context.Context, event api.ProgressEvent) {
	subject := s.Subject(event)
	if err := s.publisher.PublishJSON(subject, event); err != nil {
		s.logger.Warn("failed to publish progress", zap.String("subject", subject), zap.Error(err))
	}
}

// token makes s safe as a single subject token.
func token(s string) string {
	return strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_").Replace(s)
}

// Multi fans an event out to every sink.
type Multi []interface {
	Report(ctx context.Context, event api.ProgressEvent)
}

func (m Multi) Report(ctx context.Context, event api.ProgressEvent) {
	for _, s := range m {
		if s != nil {
			s.Report(ctx, event)
		}
	}
}
