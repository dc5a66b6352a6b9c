package assessment

import (
	"context"
	"fmt"
	"strings"

	"github.com/kaytu-io/kaytu-assessor/pkg/assessment/api"
	"github.com/kaytu-io/kaytu-assessor/pkg/assessment/risk"
	"github.com/kaytu-io/kaytu-assessor/pkg/types"
	"go.uber.org/zap"
)

const assessmentOperation = "assessment"

// RunComprehensiveAssessment assesses every control family of the catalog for
// the tenant, optionally scoped to one resource group. On failure the partial
// assessment is returned together with the error.
func (e *Engine) RunComprehensiveAssessment(ctx context.Context, tenantID, resourceGroup string, sink ProgressSink) (*api.Assessment, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, ErrInvalidTenantID
	}
	resourceGroup = strings.TrimSpace(resourceGroup)

	ctx, span := startSpan(ctx, "RunComprehensiveAssessment")
	start := e.now().UTC()
	a := &api.Assessment{
		ID:                   e.newID(),
		TenantID:             tenantID,
		ResourceGroup:        resourceGroup,
		Status:               types.AssessmentStatusInProgress,
		StartTime:            start,
		ControlFamilyResults: make(map[string]*api.FamilyResult, len(types.ControlFamilies)),
	}
	logger := e.logger.With(
		zap.String("tenantID", tenantID),
		zap.String("assessmentID", a.ID),
		zap.String("resourceGroup", resourceGroup),
	)
	logger.Info("starting comprehensive assessment")
	e.audit(ctx, tenantID, api.AuditActionAssessmentStarted, "", fmt.Sprintf("assessment %s started", a.ID))

	err := e.runAssessment(ctx, a, sink)
	end := e.now().UTC()
	a.EndTime = &end
	if err != nil {
		a.Status = types.AssessmentStatusFailed
		a.Error = err.Error()
		AssessmentsCount.WithLabelValues("failed").Inc()
		AssessmentDuration.WithLabelValues("failed").Observe(end.Sub(start).Seconds())
		logger.Error("comprehensive assessment failed", zap.Error(err))
		e.audit(ctx, tenantID, api.AuditActionAssessmentFailed, "", fmt.Sprintf("assessment %s failed: %s", a.ID, err.Error()))
		endSpan(span, err)
		return a, err
	}
	a.Status = types.AssessmentStatusCompleted
	AssessmentsCount.WithLabelValues("completed").Inc()
	AssessmentDuration.WithLabelValues("completed").Observe(end.Sub(start).Seconds())

	if err := e.store.SaveAssessment(ctx, a); err != nil {
		logger.Error("failed to persist assessment", zap.Error(err))
	}
	e.reevaluateMonitoredControls(ctx, a)
	e.audit(ctx, tenantID, api.AuditActionAssessmentCompleted, "",
		fmt.Sprintf("assessment %s completed with score %.1f and %d findings", a.ID, a.OverallComplianceScore, a.TotalFindings))

	logger.Info("comprehensive assessment completed",
		zap.Float64("score", a.OverallComplianceScore),
		zap.Int("findings", a.TotalFindings),
	)
	endSpan(span, nil)
	return a, nil
}

func (e *Engine) runAssessment(ctx context.Context, a *api.Assessment, sink ProgressSink) error {
	if _, err := e.cache.Resources(ctx, a.TenantID); err != nil {
		return fmt.Errorf("failed to load tenant resources: %w", err)
	}

	total := len(types.ControlFamilies)
	for i, family := range types.ControlFamilies {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("assessment cancelled before control family %s: %w", family.Code, err)
		}

		e.report(ctx, sink, api.ProgressEvent{
			Operation:     assessmentOperation,
			TenantID:      a.TenantID,
			Stage:         api.ProgressStageStarted,
			ControlFamily: family.Code,
			Completed:     i,
			Total:         total,
			Message:       fmt.Sprintf("Assessing %s (%s)", family.Name, family.Code),
		})

		result, err := e.assessFamily(ctx, a, family)
		if err != nil {
			return fmt.Errorf("failed to assess control family %s: %w", family.Code, err)
		}
		a.ControlFamilyResults[family.Code] = result

		score, count := result.ComplianceScore, len(result.Findings)
		e.report(ctx, sink, api.ProgressEvent{
			Operation:     assessmentOperation,
			TenantID:      a.TenantID,
			Stage:         api.ProgressStageCompleted,
			ControlFamily: family.Code,
			Completed:     i + 1,
			Total:         total,
			Message:       fmt.Sprintf("Completed %s (%s)", family.Name, family.Code),
			Score:         &score,
			FindingCount:  &count,
		})
	}

	a.OverallComplianceScore = OverallScore(a.ControlFamilyResults)
	a.TotalFindings, a.SeverityResult = CountFindings(a.ControlFamilyResults)
	a.RiskProfile = risk.Profile(a.SeverityResult, a.Findings())
	a.ExecutiveSummary = ExecutiveSummary(a)
	return nil
}

func (e *Engine) assessFamily(ctx context.Context, a *api.Assessment, family types.ControlFamily) (*api.FamilyResult, error) {
	scanner := e.scanners.Resolve(family.Code)

	controls, err := e.catalog.GetControlsByFamily(ctx, family.Code)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch controls: %w", err)
	}

	findings := []api.Finding{}
	for _, control := range controls {
		var found []api.Finding
		if a.ResourceGroup == "" {
			found, err = scanner.ScanControl(ctx, a.TenantID, control)
		} else {
			found, err = scanner.ScanResourceGroupControl(ctx, a.TenantID, a.ResourceGroup, control)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to scan control %s: %w", control.ID, err)
		}
		findings = append(findings, e.normalizeFindings(found, family.Code, types.FindingSourceScanner)...)
	}

	stigFindings, err := e.stig.ValidateFamilyStigs(ctx, a.TenantID, a.ResourceGroup, family.Code)
	if err != nil {
		return nil, fmt.Errorf("failed to validate STIGs: %w", err)
	}
	findings = append(findings, e.normalizeFindings(stigFindings, family.Code, types.FindingSourceStig)...)

	return NewFamilyResult(family, controls, findings, e.now().UTC()), nil
}

// normalizeFindings fills the bookkeeping fields handlers may leave empty.
// Severity is kept as reported.
func (e *Engine) normalizeFindings(findings []api.Finding, family string, source types.FindingSource) []api.Finding {
	now := e.now().UTC()
	for i := range findings {
		f := &findings[i]
		if f.ID == "" {
			f.ID = e.newID()
		}
		if f.ControlFamily == "" {
			f.ControlFamily = family
		}
		if f.Source == "" {
			f.Source = source
		}
		if f.DetectedAt.IsZero() {
			f.DetectedAt = now
		}
		if f.Status == "" {
			f.Status = types.FindingStatusOpen
		}
	}
	return findings
}
