package api

import (
	"github.com/kaytu-io/kaytu-assessor/pkg/types"
)

type Control struct {
	ID          string                `json:"id" yaml:"id" example:"AC-2"`
	Family      string                `json:"family" yaml:"family" example:"AC"`
	Title       string                `json:"title" yaml:"title" example:"Account Management"`
	Description string                `json:"description" yaml:"description" example:"Manage system accounts, group memberships, privileges, workflow, notifications, deactivations, and authorizations."`
	Severity    types.FindingSeverity `json:"severity,omitempty" yaml:"severity" example:"high"`
}

type Resource struct {
	ID            string            `json:"id" example:"/subscriptions/123/resourceGroups/rg-1"`
	Name          string            `json:"name" example:"rg-1"`
	Type          string            `json:"type" example:"Microsoft.Resources/resourceGroups"`
	Location      string            `json:"location" example:"eastus"`
	ResourceGroup string            `json:"resourceGroup" example:"rg-1"`
	ManagedBy     string            `json:"managedBy,omitempty"`
	Tags          map[string]string `json:"tags,omitempty"`
}
