package api

import (
	"time"

	"github.com/kaytu-io/kaytu-assessor/pkg/types"
)

type Finding struct {
	ID               string                `json:"id" example:"8e0f8e7a-1b1c-4e6f-b7e4-9c6af9d2b1c8"`
	Title            string                `json:"title" example:"Storage account allows public blob access"`
	Description      string                `json:"description" example:"The storage account permits anonymous read access to blobs."`
	Severity         types.FindingSeverity `json:"severity" example:"high"`
	AffectedControls []string              `json:"affectedControls" example:"AC-3,SC-7"`
	ControlFamily    string                `json:"controlFamily" example:"AC"`
	ResourceID       string                `json:"resourceId" example:"/subscriptions/123/resourceGroups/rg-1/providers/Microsoft.Storage/storageAccounts/sa1"`
	ResourceType     string                `json:"resourceType" example:"Microsoft.Storage/storageAccounts"`
	ResourceName     string                `json:"resourceName" example:"sa1"`
	Recommendation   string                `json:"recommendation" example:"Disable public blob access on the storage account."`
	Source           types.FindingSource   `json:"source" example:"scanner"`
	StigID           string                `json:"stigId,omitempty" example:"V-251234"`
	Status           types.FindingStatus   `json:"status,omitempty" example:"open"`
	DetectedAt       time.Time             `json:"detectedAt" example:"2020-01-01T00:00:00Z"`
	RemediatedAt     *time.Time            `json:"remediatedAt,omitempty"`
}
