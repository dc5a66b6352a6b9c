package types

type RiskLevel string

const (
	RiskLevelCritical RiskLevel = "Critical"
	RiskLevelHigh     RiskLevel = "High"
	RiskLevelMedium   RiskLevel = "Medium"
	RiskLevelLow      RiskLevel = "Low"
	RiskLevelMinimal  RiskLevel = "Minimal"
)

func (l RiskLevel) String() string {
	return string(l)
}

// RiskCategories are the categories scored by the standalone risk assessment, in report order.
var RiskCategories = []string{
	"Data Protection",
	"Access Control",
	"Network Security",
	"Incident Response",
	"Business Continuity",
	"Compliance",
	"Third-Party Risk",
	"Configuration Management",
}
