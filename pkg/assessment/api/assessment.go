package api

import (
	"time"

	"github.com/kaytu-io/kaytu-assessor/pkg/types"
)

type FamilyResult struct {
	FamilyCode      string    `json:"familyCode" example:"AC"`
	FamilyName      string    `json:"familyName" example:"Access Control"`
	Findings        []Finding `json:"findings"`
	TotalControls   int       `json:"totalControls" example:"25"`
	PassedControls  int       `json:"passedControls" example:"20"`
	ComplianceScore float64   `json:"complianceScore" example:"80"`
	AssessedAt      time.Time `json:"assessedAt" example:"2020-01-01T00:00:00Z"`
}

type RiskProfile struct {
	RiskLevel types.RiskLevel `json:"riskLevel" example:"High"`
	RiskScore float64         `json:"riskScore" example:"42.5"`
	TopRisks  []string        `json:"topRisks"`
}

type Assessment struct {
	ID            string                 `json:"id" example:"8e0f8e7a-1b1c-4e6f-b7e4-9c6af9d2b1c8"`
	TenantID      string                 `json:"tenantId" example:"00000000-0000-0000-0000-000000000000"`
	ResourceGroup string                 `json:"resourceGroup,omitempty" example:"rg-1"`
	Status        types.AssessmentStatus `json:"status" example:"Completed"`
	StartTime     time.Time              `json:"startTime" example:"2020-01-01T00:00:00Z"`
	EndTime       *time.Time             `json:"endTime,omitempty" example:"2020-01-01T00:10:00Z"`

	ControlFamilyResults   map[string]*FamilyResult `json:"controlFamilyResults"`
	OverallComplianceScore float64                  `json:"overallComplianceScore" example:"87.5"`

	TotalFindings int `json:"totalFindings" example:"12"`
	types.SeverityResult

	ExecutiveSummary string      `json:"executiveSummary"`
	RiskProfile      RiskProfile `json:"riskProfile"`
	Error            string      `json:"error,omitempty"`
}

// Findings returns every finding of the assessment in catalog family order.
func (a *Assessment) Findings() []Finding {
	var findings []Finding
	for _, family := range types.ControlFamilies {
		if r, ok := a.ControlFamilyResults[family.Code]; ok {
			findings = append(findings, r.Findings...)
		}
	}
	for code, r := range a.ControlFamilyResults {
		if types.FamilyIndex(code) < 0 {
			findings = append(findings, r.Findings...)
		}
	}
	return findings
}
