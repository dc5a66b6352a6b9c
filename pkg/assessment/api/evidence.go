package api

import (
	"time"

	"github.com/kaytu-io/kaytu-assessor/pkg/types"
)

type Evidence struct {
	ID             string             `json:"id" example:"8e0f8e7a-1b1c-4e6f-b7e4-9c6af9d2b1c8"`
	EvidenceType   types.EvidenceType `json:"evidenceType" example:"Configuration"`
	ControlID      string             `json:"controlId" example:"AC-2"`
	ResourceID     string             `json:"resourceId" example:"/subscriptions/123/resourceGroups/rg-1"`
	CollectedAt    time.Time          `json:"collectedAt" example:"2020-01-01T00:00:00Z"`
	Data           map[string]any     `json:"data,omitempty"`
	Screenshot     string             `json:"screenshot,omitempty"`
	LogExcerpt     string             `json:"logExcerpt,omitempty"`
	ConfigSnapshot string             `json:"configSnapshot,omitempty"`
}

type EvidencePackage struct {
	ID                   string     `json:"id" example:"8e0f8e7a-1b1c-4e6f-b7e4-9c6af9d2b1c8"`
	TenantID             string     `json:"tenantId" example:"00000000-0000-0000-0000-000000000000"`
	ControlFamily        string     `json:"controlFamily" example:"AC"`
	CollectedBy          string     `json:"collectedBy" example:"auditor@example.com"`
	Collectors           []string   `json:"collectors" example:"AC"`
	CollectionStartTime  time.Time  `json:"collectionStartTime" example:"2020-01-01T00:00:00Z"`
	CollectionEndTime    *time.Time `json:"collectionEndTime,omitempty" example:"2020-01-01T00:01:00Z"`
	Evidence             []Evidence `json:"evidence"`
	CompletenessScore    float64    `json:"completenessScore" example:"80"`
	AttestationStatement string     `json:"attestationStatement"`
	Error                string     `json:"error,omitempty"`
}
