package types

type EvidenceType string

const (
	EvidenceTypeConfiguration EvidenceType = "Configuration"
	EvidenceTypeLogs          EvidenceType = "Logs"
	EvidenceTypeMetrics       EvidenceType = "Metrics"
	EvidenceTypePolicies      EvidenceType = "Policies"
	EvidenceTypeAccessControl EvidenceType = "AccessControl"
)

// EvidenceTypes is the fixed collection order for every collector.
var EvidenceTypes = []EvidenceType{
	EvidenceTypeConfiguration,
	EvidenceTypeLogs,
	EvidenceTypeMetrics,
	EvidenceTypePolicies,
	EvidenceTypeAccessControl,
}

func (t EvidenceType) String() string {
	return string(t)
}
