package api

import (
	"time"

	"github.com/kaytu-io/kaytu-assessor/pkg/types"
)

type Alert struct {
	ID         string                `json:"id" example:"8e0f8e7a-1b1c-4e6f-b7e4-9c6af9d2b1c8"`
	TenantID   string                `json:"tenantId"`
	ControlID  string                `json:"controlId" example:"AC-2"`
	Severity   types.FindingSeverity `json:"severity" example:"high"`
	Message    string                `json:"message" example:"Control AC-2 drifted from its compliant state"`
	DetectedAt time.Time             `json:"detectedAt" example:"2020-01-01T00:00:00Z"`
	DueDate    time.Time             `json:"dueDate" example:"2020-01-31T00:00:00Z"`
	Resolved   bool                  `json:"resolved"`
}

// MonitoredControl is a control registered for continuous monitoring.
type MonitoredControl struct {
	TenantID               string              `json:"tenantId"`
	ControlID              string              `json:"controlId" example:"AC-2"`
	Status                 types.ControlStatus `json:"status" example:"Compliant"`
	LastChecked            time.Time           `json:"lastChecked" example:"2020-01-01T00:00:00Z"`
	DriftDetected          bool                `json:"driftDetected"`
	AutoRemediationEnabled bool                `json:"autoRemediationEnabled"`
}

type ControlMonitoringStatus struct {
	ControlID              string              `json:"controlId" example:"AC-2"`
	LastChecked            time.Time           `json:"lastChecked" example:"2020-01-01T00:00:00Z"`
	Status                 types.ControlStatus `json:"status" example:"Compliant"`
	DriftDetected          bool                `json:"driftDetected"`
	AutoRemediationEnabled bool                `json:"autoRemediationEnabled"`
	Alerts                 []Alert             `json:"alerts"`
}

type ContinuousComplianceStatus struct {
	TenantID             string                             `json:"tenantId"`
	Timestamp            time.Time                          `json:"timestamp" example:"2020-01-01T00:00:00Z"`
	ControlStatuses      map[string]ControlMonitoringStatus `json:"controlStatuses"`
	ComplianceDriftPct   float64                            `json:"complianceDriftPercentage" example:"12.5"`
	AlertCount           int                                `json:"alertCount" example:"3"`
	AutoRemediationCount int                                `json:"autoRemediationCount" example:"1"`
}
