package azure

import (
	"context"
	"strings"

	"github.com/kaytu-io/kaytu-assessor/pkg/assessment/api"
	"github.com/kaytu-io/kaytu-assessor/pkg/types"
)

// StigRule is a resource group check reported under a STIG id. Rule.ControlID
// is the control the finding is attributed to.
type StigRule struct {
	StigID string
	Family string
	Rule   Rule
}

// StigValidator runs the STIG rules of a family against the tenant's resource
// groups.
type StigValidator struct {
	groups ResourceGroups
	rules  map[string][]StigRule
}

func NewStigValidator(groups ResourceGroups, rules ...StigRule) *StigValidator {
	v := &StigValidator{
		groups: groups,
		rules:  map[string][]StigRule{},
	}
	for _, r := range rules {
		family := types.NormalizeFamilyCode(r.Family)
		v.rules[family] = append(v.rules[family], r)
	}
	return v
}

func (v *StigValidator) ValidateFamilyStigs(ctx context.Context, tenantID, resourceGroup, family string) ([]api.Finding, error) {
	rules := v.rules[types.NormalizeFamilyCode(family)]
	if len(rules) == 0 {
		return nil, nil
	}

	groups, err := v.groups.ListResourceGroups(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	var findings []api.Finding
	for _, rg := range inScope(groups, resourceGroup) {
		for _, r := range rules {
			control := api.Control{ID: strings.ToUpper(r.Rule.ControlID), Family: types.NormalizeFamilyCode(r.Family)}
			f := r.Rule.Check(control, rg)
			if f == nil {
				continue
			}
			f.StigID = r.StigID
			findings = append(findings, *f)
		}
	}
	return findings, nil
}

// DefaultStigRules are the resource group STIG checks shipped with the service.
func DefaultStigRules() []StigRule {
	return []StigRule{
		{StigID: "AZRG-AC-000010", Family: "AC", Rule: RequiredTagsRule("AC-3", types.FindingSeverityMedium, "data-classification")},
		{StigID: "AZRG-AU-000010", Family: "AU", Rule: RequiredTagsRule("AU-11", types.FindingSeverityLow, "log-retention")},
		{StigID: "AZRG-CM-000010", Family: "CM", Rule: RequiredTagsRule("CM-6", types.FindingSeverityMedium, "baseline")},
		{StigID: "AZRG-CP-000010", Family: "CP", Rule: RequiredTagsRule("CP-9", types.FindingSeverityMedium, "backup-policy")},
	}
}
