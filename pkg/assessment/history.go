package assessment

import (
	"context"
	"fmt"
	"strings"

	"github.com/kaytu-io/kaytu-assessor/pkg/assessment/api"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 500
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}

// GetAssessmentHistory returns the most recent assessments of the tenant, newest first.
func (e *Engine) GetAssessmentHistory(ctx context.Context, tenantID string, limit int) ([]api.Assessment, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, ErrInvalidTenantID
	}
	ctx, span := startSpan(ctx, "GetAssessmentHistory")

	assessments, err := e.store.ListAssessments(ctx, tenantID, clampLimit(limit))
	if err != nil {
		err = fmt.Errorf("failed to list assessments: %w", err)
	}
	endSpan(span, err)
	return assessments, err
}

func (e *Engine) GetAuditLog(ctx context.Context, tenantID string, limit int) ([]api.AuditEntry, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, ErrInvalidTenantID
	}
	ctx, span := startSpan(ctx, "GetAuditLog")

	entries, err := e.store.ListAuditEntries(ctx, tenantID, clampLimit(limit))
	if err != nil {
		err = fmt.Errorf("failed to list audit entries: %w", err)
	}
	endSpan(span, err)
	return entries, err
}

// GetUnresolvedFindings returns the open findings of the tenant across all
// assessments.
func (e *Engine) GetUnresolvedFindings(ctx context.Context, tenantID string) ([]api.Finding, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, ErrInvalidTenantID
	}
	ctx, span := startSpan(ctx, "GetUnresolvedFindings")

	findings, err := e.store.ListUnresolvedFindings(ctx, tenantID)
	if err != nil {
		err = fmt.Errorf("failed to list unresolved findings: %w", err)
	}
	endSpan(span, err)
	return findings, err
}
