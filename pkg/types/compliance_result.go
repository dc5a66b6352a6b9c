package types

type AssessmentStatus string

const (
	AssessmentStatusInProgress AssessmentStatus = "InProgress"
	AssessmentStatusCompleted  AssessmentStatus = "Completed"
	AssessmentStatusFailed     AssessmentStatus = "Failed"
)

type ComplianceLevel string

const (
	ComplianceLevelCompliant ComplianceLevel = "Compliant"
	ComplianceLevelPartial   ComplianceLevel = "Partial"
)

type ControlStatus string

const (
	ControlStatusCompliant    ControlStatus = "Compliant"
	ControlStatusNonCompliant ControlStatus = "NonCompliant"
	ControlStatusUnknown      ControlStatus = "Unknown"
)

func (s ControlStatus) IsPassed() bool {
	return s == ControlStatusCompliant
}

type FindingStatus string

const (
	FindingStatusOpen       FindingStatus = "open"
	FindingStatusRemediated FindingStatus = "remediated"
)

type FindingSource string

const (
	FindingSourceScanner FindingSource = "scanner"
	FindingSourceStig    FindingSource = "stig"
)
