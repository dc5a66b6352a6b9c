package db

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

type Assessment struct {
	ID            string `gorm:"primaryKey"`
	TenantID      string `gorm:"index:idx_assessment_tenant_end"`
	ResourceGroup string
	Status        string `gorm:"index"`
	StartTime     time.Time
	EndTime       *time.Time `gorm:"index:idx_assessment_tenant_end"`

	OverallComplianceScore float64
	TotalControls          int
	PassedControls         int
	TotalFindings          int
	CriticalCount          int
	HighCount              int
	MediumCount            int
	LowCount               int
	InformationalCount     int
	RiskLevel              string
	RiskScore              float64

	Document  datatypes.JSON
	CreatedAt time.Time
}

// Finding tracks a finding across assessments by its fingerprint until it is
// no longer reported.
type Finding struct {
	ID               string `gorm:"primaryKey"`
	TenantID         string `gorm:"index:idx_finding_tenant_status"`
	Fingerprint      string `gorm:"index"`
	AssessmentID     string `gorm:"index"`
	LastAssessmentID string
	Title            string
	Description      string
	Severity         string
	AffectedControls pq.StringArray `gorm:"type:text[]"`
	ControlFamily    string
	ResourceID       string
	ResourceType     string
	ResourceName     string
	Recommendation   string
	Source           string
	StigID           string
	Status           string `gorm:"index:idx_finding_tenant_status"`
	DetectedAt       time.Time
	RemediatedAt     *time.Time `gorm:"index"`
}

type EvidencePackage struct {
	ID                string `gorm:"primaryKey"`
	TenantID          string `gorm:"index"`
	ControlFamily     string
	CollectedBy       string
	EvidenceCount     int
	CompletenessScore float64
	CollectedAt       time.Time
	Document          datatypes.JSON
}

type Certificate struct {
	ID               string `gorm:"primaryKey"`
	SerialNumber     uint64 `gorm:"uniqueIndex"`
	TenantID         string `gorm:"index"`
	AssessmentID     string
	IssuedAt         time.Time
	ExpiresAt        time.Time
	ComplianceScore  float64
	VerificationHash string
	Document         datatypes.JSON
}

type RiskAssessment struct {
	ID               string `gorm:"primaryKey"`
	TenantID         string `gorm:"index"`
	AssessedAt       time.Time
	OverallRiskScore float64
	RiskLevel        string
	Document         datatypes.JSON
}

type MonitoredControl struct {
	TenantID               string `gorm:"primaryKey"`
	ControlID              string `gorm:"primaryKey"`
	Status                 string
	LastChecked            time.Time
	DriftDetected          bool
	AutoRemediationEnabled bool
}

type Alert struct {
	ID         string `gorm:"primaryKey"`
	TenantID   string `gorm:"index:idx_alert_tenant_control"`
	ControlID  string `gorm:"index:idx_alert_tenant_control"`
	Severity   string
	Message    string
	DetectedAt time.Time `gorm:"index"`
	DueDate    time.Time
	Resolved   bool
}

type AutoRemediation struct {
	ID          uint   `gorm:"primaryKey"`
	TenantID    string `gorm:"index"`
	ControlID   string
	AlertID     string
	RequestedAt time.Time
}

type AuditEntry struct {
	ID        string `gorm:"primaryKey"`
	TenantID  string `gorm:"index:idx_audit_tenant_time"`
	Action    string
	Actor     string
	Details   string
	Timestamp time.Time `gorm:"index:idx_audit_tenant_time"`
}
