package api

import (
	"time"
)

type AuditAction string

const (
	AuditActionAssessmentStarted   AuditAction = "AssessmentStarted"
	AuditActionAssessmentCompleted AuditAction = "AssessmentCompleted"
	AuditActionAssessmentFailed    AuditAction = "AssessmentFailed"
	AuditActionEvidenceCollected   AuditAction = "EvidenceCollected"
	AuditActionCertificateIssued   AuditAction = "CertificateIssued"
	AuditActionRiskAssessed        AuditAction = "RiskAssessed"
	AuditActionMonitoringEnabled   AuditAction = "MonitoringEnabled"
	AuditActionDriftDetected       AuditAction = "DriftDetected"
)

type AuditEntry struct {
	ID        string      `json:"id" example:"8e0f8e7a-1b1c-4e6f-b7e4-9c6af9d2b1c8"`
	TenantID  string      `json:"tenantId"`
	Action    AuditAction `json:"action" example:"AssessmentCompleted"`
	Actor     string      `json:"actor,omitempty" example:"auditor@example.com"`
	Details   string      `json:"details"`
	Timestamp time.Time   `json:"timestamp" example:"2020-01-01T00:00:00Z"`
}
