package assessment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kaytu-io/kaytu-assessor/pkg/assessment/api"
	"github.com/sony/sonyflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("assessment-engine")

// Dependencies are the collaborators of the engine. CategoryAssessor and
// Archiver are optional.
type Dependencies struct {
	Cache   *ResourceCache
	Catalog ControlCatalog
	Stig    StigValidator
	Store   Store

	DefaultScanner Scanner
	Scanners       map[string]Scanner

	DefaultCollector EvidenceCollector
	Collectors       map[string]EvidenceCollector

	CategoryAssessor CategoryAssessor
	Archiver         EvidenceArchiver
}

type Engine struct {
	logger *zap.Logger

	cache      *ResourceCache
	catalog    ControlCatalog
	stig       StigValidator
	store      Store
	scanners   *Registry[Scanner]
	collectors *Registry[EvidenceCollector]
	assessor   CategoryAssessor
	archiver   EvidenceArchiver

	serials *sonyflake.Sonyflake
	now     func() time.Time
	newID   func() string
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		e.newID = newID
	}
}

func New(logger *zap.Logger, deps Dependencies, opts ...Option) (*Engine, error) {
	switch {
	case deps.Cache == nil:
		return nil, errors.New("resource cache is required")
	case deps.Catalog == nil:
		return nil, errors.New("control catalog is required")
	case deps.Store == nil:
		return nil, errors.New("store is required")
	case deps.DefaultScanner == nil:
		return nil, errors.New("default scanner is required")
	case deps.DefaultCollector == nil:
		return nil, errors.New("default evidence collector is required")
	}

	logger = logger.Named("assessment")
	scanners, err := NewRegistry[Scanner](logger, "scanner", deps.DefaultScanner, deps.Scanners)
	if err != nil {
		return nil, err
	}
	collectors, err := NewRegistry[EvidenceCollector](logger, "collector", deps.DefaultCollector, deps.Collectors)
	if err != nil {
		return nil, err
	}

	serials := sonyflake.NewSonyflake(sonyflake.Settings{
		MachineID: func() (uint16, error) {
			return 1, nil
		},
	})
	if serials == nil {
		return nil, errors.New("failed to create serial generator")
	}

	e := &Engine{
		logger:     logger,
		cache:      deps.Cache,
		catalog:    deps.Catalog,
		stig:       deps.Stig,
		store:      deps.Store,
		scanners:   scanners,
		collectors: collectors,
		assessor:   deps.CategoryAssessor,
		archiver:   deps.Archiver,
		serials:    serials,
		now:        time.Now,
		newID: func() string {
			return uuid.New().String()
		},
	}
	if e.stig == nil {
		logger.Warn("no STIG validator configured, assessments will not include STIG findings")
		e.stig = NoopStigValidator{}
	}
	if e.assessor == nil {
		e.assessor = NewFindingsCategoryAssessor(deps.Store)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) Scanners() *Registry[Scanner] {
	return e.scanners
}

func (e *Engine) Collectors() *Registry[EvidenceCollector] {
	return e.collectors
}

func (e *Engine) report(ctx context.Context, sink ProgressSink, event api.ProgressEvent) {
	if sink == nil {
		return
	}
	sink.Report(ctx, event)
}

func (e *Engine) audit(ctx context.Context, tenantID string, action api.AuditAction, actor, details string) {
	entry := &api.AuditEntry{
		ID:        e.newID(),
		TenantID:  tenantID,
		Action:    action,
		Actor:     actor,
		Details:   details,
		Timestamp: e.now().UTC(),
	}
	if err := e.store.AppendAuditEntry(ctx, entry); err != nil {
		e.logger.Error("failed to append audit entry",
			zap.String("tenantID", tenantID),
			zap.String("action", string(action)),
			zap.Error(err),
		)
	}
}

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindInternal))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// NoopStigValidator is used when no STIG validator is configured.
type NoopStigValidator struct{}

func (NoopStigValidator) ValidateFamilyStigs(context.Context, string, string, string) ([]api.Finding, error) {
	return nil, nil
}
