package assessment

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kaytu-io/kaytu-assessor/pkg/assessment/api"
	"github.com/kaytu-io/kaytu-assessor/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriftPercentageWithoutControls(t *testing.T) {
	te := newTestEngine(t)

	status, err := te.GetContinuousComplianceStatus(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Zero(t, status.ComplianceDriftPct)
	assert.Empty(t, status.ControlStatuses)
	assert.Zero(t, status.AlertCount)
	assert.Zero(t, DriftPercentage(0, 0))
}

func TestAlertDueDate(t *testing.T) {
	detected := time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, detected.AddDate(0, 0, 7), AlertDueDate(types.FindingSeverityCritical, detected))
	assert.Equal(t, detected.AddDate(0, 0, 30), AlertDueDate(types.FindingSeverityHigh, detected))
	assert.Equal(t, detected.AddDate(0, 0, 90), AlertDueDate(types.FindingSeverityMedium, detected))
	assert.Equal(t, detected.AddDate(0, 0, 180), AlertDueDate(types.FindingSeverityLow, detected))
	assert.Equal(t, detected.AddDate(0, 0, 180), AlertDueDate("", detected))
}

func TestContinuousStatus(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()
	now := te.clock.Now()

	require.NoError(t, te.store.UpsertMonitoredControls(ctx, []api.MonitoredControl{
		{TenantID: "tenant-1", ControlID: "AC-1", Status: types.ControlStatusNonCompliant, DriftDetected: true, LastChecked: now},
		{TenantID: "tenant-1", ControlID: "AC-2", Status: types.ControlStatusCompliant, LastChecked: now},
		{TenantID: "tenant-1", ControlID: "AU-1", Status: types.ControlStatusCompliant, LastChecked: now},
		{TenantID: "tenant-1", ControlID: "AU-2", Status: types.ControlStatusCompliant, AutoRemediationEnabled: true, LastChecked: now},
		{TenantID: "tenant-2", ControlID: "AC-1", Status: types.ControlStatusCompliant, DriftDetected: true, LastChecked: now},
	}))
	for i := 0; i < 12; i++ {
		require.NoError(t, te.store.SaveAlert(ctx, &api.Alert{
			ID:        fmt.Sprintf("alert-%d", i),
			TenantID:  "tenant-1",
			ControlID: "AC-1",
			Severity:  types.FindingSeverityHigh,
		}))
	}
	require.NoError(t, te.store.RecordAutoRemediation(ctx, "tenant-1", "AU-2", "alert-0"))

	status, err := te.GetContinuousComplianceStatus(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Len(t, status.ControlStatuses, 4)
	assert.Equal(t, 25.0, status.ComplianceDriftPct)
	assert.Len(t, status.ControlStatuses["AC-1"].Alerts, maxAlertsPerControl)
	assert.Equal(t, "alert-11", status.ControlStatuses["AC-1"].Alerts[0].ID)
	assert.Equal(t, maxAlertsPerControl, status.AlertCount)
	assert.Equal(t, 1, status.AutoRemediationCount)
	assert.NotNil(t, status.ControlStatuses["AC-2"].Alerts)
}

func TestDriftDetectedAfterAssessment(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()

	_, err := te.RunComprehensiveAssessment(ctx, "tenant-1", "", nil)
	require.NoError(t, err)

	controls, err := te.EnableContinuousMonitoring(ctx, "tenant-1", []string{"ac-1", "AC-2", "ac-1", " "}, true)
	require.NoError(t, err)
	require.Len(t, controls, 2)
	assert.Equal(t, types.ControlStatusCompliant, controls[0].Status)

	te.scanner.findings["AC-1"] = []api.Finding{
		{Title: "a", Severity: types.FindingSeverityMedium, AffectedControls: []string{"AC-1"}},
		{Title: "b", Severity: types.FindingSeverityCritical, AffectedControls: []string{"ac-1"}},
	}
	te.clock.Advance(time.Hour)
	_, err = te.RunComprehensiveAssessment(ctx, "tenant-1", "", nil)
	require.NoError(t, err)

	status, err := te.GetContinuousComplianceStatus(ctx, "tenant-1")
	require.NoError(t, err)
	ac1 := status.ControlStatuses["AC-1"]
	assert.True(t, ac1.DriftDetected)
	assert.Equal(t, types.ControlStatusNonCompliant, ac1.Status)
	require.Len(t, ac1.Alerts, 1)
	assert.Equal(t, types.FindingSeverityCritical, ac1.Alerts[0].Severity)
	assert.Equal(t, ac1.Alerts[0].DetectedAt.AddDate(0, 0, 7), ac1.Alerts[0].DueDate)
	assert.False(t, status.ControlStatuses["AC-2"].DriftDetected)
	assert.Equal(t, 50.0, status.ComplianceDriftPct)
	assert.Equal(t, 1, status.AutoRemediationCount)

	// still failing, no new alert
	_, err = te.RunComprehensiveAssessment(ctx, "tenant-1", "", nil)
	require.NoError(t, err)
	status, err = te.GetContinuousComplianceStatus(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Len(t, status.ControlStatuses["AC-1"].Alerts, 1)

	// fixed, drift cleared
	delete(te.scanner.findings, "AC-1")
	_, err = te.RunComprehensiveAssessment(ctx, "tenant-1", "", nil)
	require.NoError(t, err)
	status, err = te.GetContinuousComplianceStatus(ctx, "tenant-1")
	require.NoError(t, err)
	assert.False(t, status.ControlStatuses["AC-1"].DriftDetected)
	assert.Zero(t, status.ComplianceDriftPct)
}

func TestEnableMonitoringWithoutAssessment(t *testing.T) {
	te := newTestEngine(t)

	controls, err := te.EnableContinuousMonitoring(context.Background(), "tenant-1", []string{"SC-7"}, false)
	require.NoError(t, err)
	require.Len(t, controls, 1)
	assert.Equal(t, types.ControlStatusUnknown, controls[0].Status)

	_, err = te.EnableContinuousMonitoring(context.Background(), "tenant-1", []string{" "}, false)
	assert.ErrorIs(t, err, ErrInvalidControls)
}
