package api

import (
	"time"

	"github.com/kaytu-io/kaytu-assessor/pkg/types"
)

type CategoryRisk struct {
	Category    string   `json:"category" example:"Access Control"`
	RiskScore   float64  `json:"riskScore" example:"6.5"`
	Description string   `json:"description,omitempty"`
	Families    []string `json:"families,omitempty" example:"AC,IA"`
}

type RiskAssessment struct {
	ID               string          `json:"id" example:"8e0f8e7a-1b1c-4e6f-b7e4-9c6af9d2b1c8"`
	TenantID         string          `json:"tenantId"`
	AssessedAt       time.Time       `json:"assessedAt" example:"2020-01-01T00:00:00Z"`
	Categories       []CategoryRisk  `json:"categories"`
	OverallRiskScore float64         `json:"overallRiskScore" example:"4.2"`
	RiskLevel        types.RiskLevel `json:"riskLevel" example:"Medium"`
	TopRisks         []CategoryRisk  `json:"topRisks"`
}
