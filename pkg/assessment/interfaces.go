package assessment

import (
	"context"
	"time"

	"github.com/kaytu-io/kaytu-assessor/pkg/assessment/api"
)

type Inventory interface {
	ListResourceGroups(ctx context.Context, tenantID string) ([]api.Resource, error)
}

type ControlCatalog interface {
	GetControlsByFamily(ctx context.Context, family string) ([]api.Control, error)
}

// Scanner evaluates the controls of one control family.
type Scanner interface {
	ScanControl(ctx context.Context, tenantID string, control api.Control) ([]api.Finding, error)
	ScanResourceGroupControl(ctx context.Context, tenantID, resourceGroup string, control api.Control) ([]api.Finding, error)
}

// EvidenceCollector gathers evidence of one control family, one operation per
// evidence type.
type EvidenceCollector interface {
	CollectConfigurationEvidence(ctx context.Context, tenantID, family, collectedBy string) ([]api.Evidence, error)
	CollectLogEvidence(ctx context.Context, tenantID, family, collectedBy string) ([]api.Evidence, error)
	CollectMetricEvidence(ctx context.Context, tenantID, family, collectedBy string) ([]api.Evidence, error)
	CollectPolicyEvidence(ctx context.Context, tenantID, family, collectedBy string) ([]api.Evidence, error)
	CollectAccessControlEvidence(ctx context.Context, tenantID, family, collectedBy string) ([]api.Evidence, error)
}

// StigValidator returns STIG findings of a family. resourceGroup is empty for
// subscription wide validation.
type StigValidator interface {
	ValidateFamilyStigs(ctx context.Context, tenantID, resourceGroup, family string) ([]api.Finding, error)
}

// CategoryAssessor scores one risk category between 0 and 10.
type CategoryAssessor interface {
	AssessCategory(ctx context.Context, tenantID, category string) (api.CategoryRisk, error)
}

type EvidenceArchiver interface {
	Archive(ctx context.Context, pkg *api.EvidencePackage) error
}

type Store interface {
	SaveAssessment(ctx context.Context, assessment *api.Assessment) error
	GetLatestAssessment(ctx context.Context, tenantID string) (*api.Assessment, error)
	ListAssessments(ctx context.Context, tenantID string, limit int) ([]api.Assessment, error)
	ListUnresolvedFindings(ctx context.Context, tenantID string) ([]api.Finding, error)

	SaveEvidencePackage(ctx context.Context, pkg *api.EvidencePackage) error
	SaveCertificate(ctx context.Context, cert *api.ComplianceCertificate) error
	GetCertificate(ctx context.Context, id string) (*api.ComplianceCertificate, error)
	SaveRiskAssessment(ctx context.Context, ra *api.RiskAssessment) error

	GetComplianceScoreForDate(ctx context.Context, tenantID string, day time.Time) (float64, error)
	GetFailedControlsForDate(ctx context.Context, tenantID string, day time.Time) (int, error)
	GetPassedControlsForDate(ctx context.Context, tenantID string, day time.Time) (int, error)
	GetActiveFindingsForDate(ctx context.Context, tenantID string, day time.Time) (int, error)
	GetRemediatedFindingsForDate(ctx context.Context, tenantID string, day time.Time) (int, error)
	GetEventsForDate(ctx context.Context, tenantID string, day time.Time) ([]string, error)

	UpsertMonitoredControls(ctx context.Context, controls []api.MonitoredControl) error
	ListMonitoredControls(ctx context.Context, tenantID string) ([]api.MonitoredControl, error)
	UpdateMonitoredControl(ctx context.Context, control api.MonitoredControl) error
	SaveAlert(ctx context.Context, alert *api.Alert) error
	ListRecentAlerts(ctx context.Context, tenantID, controlID string, limit int) ([]api.Alert, error)
	RecordAutoRemediation(ctx context.Context, tenantID, controlID, alertID string) error
	CountAutoRemediations(ctx context.Context, tenantID string) (int, error)

	AppendAuditEntry(ctx context.Context, entry *api.AuditEntry) error
	ListAuditEntries(ctx context.Context, tenantID string, limit int) ([]api.AuditEntry, error)
}

// ProgressSink receives progress events synchronously. Implementations must not
// block the caller for long.
type ProgressSink interface {
	Report(ctx context.Context, event api.ProgressEvent)
}
