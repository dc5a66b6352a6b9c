package api

import (
	"time"

	"github.com/kaytu-io/kaytu-assessor/pkg/types"
)

type Attestation struct {
	ControlFamily   string                `json:"controlFamily" example:"AC"`
	FamilyName      string                `json:"familyName" example:"Access Control"`
	ComplianceLevel types.ComplianceLevel `json:"complianceLevel" example:"Compliant"`
	ComplianceScore float64               `json:"complianceScore" example:"92.5"`
	Exceptions      []string              `json:"exceptions"`
}

type ComplianceCertificate struct {
	ID                string        `json:"id" example:"8e0f8e7a-1b1c-4e6f-b7e4-9c6af9d2b1c8"`
	SerialNumber      uint64        `json:"serialNumber" example:"465798631342440449"`
	TenantID          string        `json:"tenantId" example:"00000000-0000-0000-0000-000000000000"`
	AssessmentID      string        `json:"assessmentId" example:"8e0f8e7a-1b1c-4e6f-b7e4-9c6af9d2b1c8"`
	IssuedAt          time.Time     `json:"issuedAt" example:"2020-01-01T00:00:00Z"`
	ExpiresAt         time.Time     `json:"expiresAt" example:"2020-07-01T00:00:00Z"`
	ComplianceScore   float64       `json:"complianceScore" example:"86.4"`
	CertifiedFamilies []string      `json:"certifiedFamilies" example:"AC,AU"`
	Attestations      []Attestation `json:"attestations"`
	VerificationHash  string        `json:"verificationHash" example:"5f2b...c1"`
}
