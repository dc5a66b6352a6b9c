package assessment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kaytu-io/kaytu-assessor/pkg/assessment/api"
	"github.com/kaytu-io/kaytu-assessor/pkg/types"
	"go.uber.org/zap"
)

const maxAlertsPerControl = 10

// AlertDueDate is the remediation deadline of an alert detected at detectedAt.
func AlertDueDate(severity types.FindingSeverity, detectedAt time.Time) time.Time {
	switch severity {
	case types.FindingSeverityCritical:
		return detectedAt.AddDate(0, 0, 7)
	case types.FindingSeverityHigh:
		return detectedAt.AddDate(0, 0, 30)
	case types.FindingSeverityMedium:
		return detectedAt.AddDate(0, 0, 90)
	default:
		return detectedAt.AddDate(0, 0, 180)
	}
}

func DriftPercentage(drifted, total int) float64 {
	return percentage(drifted, total)
}

func (e *Engine) GetContinuousComplianceStatus(ctx context.Context, tenantID string) (*api.ContinuousComplianceStatus, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, ErrInvalidTenantID
	}
	ctx, span := startSpan(ctx, "GetContinuousComplianceStatus")

	status, err := e.continuousStatus(ctx, tenantID)
	endSpan(span, err)
	return status, err
}

func (e *Engine) continuousStatus(ctx context.Context, tenantID string) (*api.ContinuousComplianceStatus, error) {
	controls, err := e.store.ListMonitoredControls(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list monitored controls: %w", err)
	}

	status := &api.ContinuousComplianceStatus{
		TenantID:        tenantID,
		Timestamp:       e.now().UTC(),
		ControlStatuses: make(map[string]api.ControlMonitoringStatus, len(controls)),
	}

	drifted := 0
	for _, c := range controls {
		alerts, err := e.store.ListRecentAlerts(ctx, tenantID, c.ControlID, maxAlertsPerControl)
		if err != nil {
			return nil, fmt.Errorf("failed to list alerts of control %s: %w", c.ControlID, err)
		}
		if len(alerts) > maxAlertsPerControl {
			alerts = alerts[:maxAlertsPerControl]
		}
		if alerts == nil {
			alerts = []api.Alert{}
		}

		status.ControlStatuses[c.ControlID] = api.ControlMonitoringStatus{
			ControlID:              c.ControlID,
			LastChecked:            c.LastChecked,
			Status:                 c.Status,
			DriftDetected:          c.DriftDetected,
			AutoRemediationEnabled: c.AutoRemediationEnabled,
			Alerts:                 alerts,
		}
		status.AlertCount += len(alerts)
		if c.DriftDetected {
			drifted++
		}
	}
	status.ComplianceDriftPct = DriftPercentage(drifted, len(controls))

	status.AutoRemediationCount, err = e.store.CountAutoRemediations(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count auto remediations: %w", err)
	}
	return status, nil
}

// EnableContinuousMonitoring registers controls for monitoring. The initial
// status comes from the latest completed assessment when there is one.
func (e *Engine) EnableContinuousMonitoring(ctx context.Context, tenantID string, controlIDs []string, autoRemediation bool) ([]api.MonitoredControl, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, ErrInvalidTenantID
	}
	ids := uniqueControlIDs(controlIDs)
	if len(ids) == 0 {
		return nil, ErrInvalidControls
	}
	ctx, span := startSpan(ctx, "EnableContinuousMonitoring")

	latest, err := e.store.GetLatestAssessment(ctx, tenantID)
	if err != nil {
		err = fmt.Errorf("failed to fetch latest assessment: %w", err)
		endSpan(span, err)
		return nil, err
	}
	var affected map[string]types.FindingSeverity
	if latest != nil {
		affected = affectedControls(latest.Findings())
	}

	now := e.now().UTC()
	controls := make([]api.MonitoredControl, 0, len(ids))
	for _, id := range ids {
		status := types.ControlStatusUnknown
		if latest != nil {
			status = types.ControlStatusCompliant
			if _, ok := affected[id]; ok {
				status = types.ControlStatusNonCompliant
			}
		}
		controls = append(controls, api.MonitoredControl{
			TenantID:               tenantID,
			ControlID:              id,
			Status:                 status,
			LastChecked:            now,
			AutoRemediationEnabled: autoRemediation,
		})
	}

	if err := e.store.UpsertMonitoredControls(ctx, controls); err != nil {
		err = fmt.Errorf("failed to register monitored controls: %w", err)
		endSpan(span, err)
		return nil, err
	}
	e.audit(ctx, tenantID, api.AuditActionMonitoringEnabled, "",
		fmt.Sprintf("continuous monitoring enabled for %s", strings.Join(ids, ", ")))
	endSpan(span, nil)
	return controls, nil
}

// reevaluateMonitoredControls flags monitored controls that were compliant and
// are affected by the new assessment. Failures are logged.
func (e *Engine) reevaluateMonitoredControls(ctx context.Context, a *api.Assessment) {
	logger := e.logger.With(zap.String("tenantID", a.TenantID), zap.String("assessmentID", a.ID))

	controls, err := e.store.ListMonitoredControls(ctx, a.TenantID)
	if err != nil {
		logger.Error("failed to list monitored controls", zap.Error(err))
		return
	}
	if len(controls) == 0 {
		return
	}

	affected := affectedControls(a.Findings())
	now := e.now().UTC()
	for _, c := range controls {
		severity, isAffected := affected[normalizeControlID(c.ControlID)]
		wasCompliant := c.Status == types.ControlStatusCompliant

		c.LastChecked = now
		if isAffected {
			c.Status = types.ControlStatusNonCompliant
		} else {
			c.Status = types.ControlStatusCompliant
			c.DriftDetected = false
		}

		if isAffected && wasCompliant {
			c.DriftDetected = true
			alert := &api.Alert{
				ID:         e.newID(),
				TenantID:   a.TenantID,
				ControlID:  c.ControlID,
				Severity:   severity,
				Message:    fmt.Sprintf("Control %s drifted from its compliant state in assessment %s", c.ControlID, a.ID),
				DetectedAt: now,
				DueDate:    AlertDueDate(severity, now),
			}
			if err := e.store.SaveAlert(ctx, alert); err != nil {
				logger.Error("failed to save drift alert", zap.String("controlID", c.ControlID), zap.Error(err))
			}
			if c.AutoRemediationEnabled {
				if err := e.store.RecordAutoRemediation(ctx, a.TenantID, c.ControlID, alert.ID); err != nil {
					logger.Error("failed to record auto remediation", zap.String("controlID", c.ControlID), zap.Error(err))
				}
			}
			e.audit(ctx, a.TenantID, api.AuditActionDriftDetected, "", alert.Message)
		}

		if err := e.store.UpdateMonitoredControl(ctx, c); err != nil {
			logger.Error("failed to update monitored control", zap.String("controlID", c.ControlID), zap.Error(err))
		}
	}
}

// affectedControls maps every affected control id to the highest severity of
// the findings affecting it.
func affectedControls(findings []api.Finding) map[string]types.FindingSeverity {
	affected := map[string]types.FindingSeverity{}
	for _, f := range findings {
		for _, id := range f.AffectedControls {
			id = normalizeControlID(id)
			if current, ok := affected[id]; !ok || f.Severity.Level() > current.Level() {
				affected[id] = f.Severity
			}
		}
	}
	return affected
}

func uniqueControlIDs(ids []string) []string {
	seen := map[string]bool{}
	var result []string
	for _, id := range ids {
		id = normalizeControlID(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, id)
	}
	return result
}
