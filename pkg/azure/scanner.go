package azure

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kaytu-io/kaytu-assessor/pkg/assessment/api"
	"github.com/kaytu-io/kaytu-assessor/pkg/types"
)

// ResourceGroups is satisfied by the assessment resource cache and by Inventory.
type ResourceGroups interface {
	ListResourceGroups(ctx context.Context, tenantID string) ([]api.Resource, error)
}

// Rule checks one resource group against a control. A nil finding means the
// group passes.
type Rule struct {
	ControlID string
	Check     func(control api.Control, rg api.Resource) *api.Finding
}

// Scanner evaluates resource groups against the rules registered for a
// control. Controls without rules produce no findings.
type Scanner struct {
	groups ResourceGroups
	rules  map[string][]Rule
}

func NewScanner(groups ResourceGroups, rules ...Rule) *Scanner {
	s := &Scanner{
		groups: groups,
		rules:  map[string][]Rule{},
	}
	for _, r := range rules {
		id := strings.ToUpper(r.ControlID)
		s.rules[id] = append(s.rules[id], r)
	}
	return s
}

func (s *Scanner) ScanControl(ctx context.Context, tenantID string, control api.Control) ([]api.Finding, error) {
	return s.scan(ctx, tenantID, "", control)
}

func (s *Scanner) ScanResourceGroupControl(ctx context.Context, tenantID, resourceGroup string, control api.Control) ([]api.Finding, error) {
	return s.scan(ctx, tenantID, resourceGroup, control)
}

func (s *Scanner) scan(ctx context.Context, tenantID, resourceGroup string, control api.Control) ([]api.Finding, error) {
	rules := s.rules[strings.ToUpper(control.ID)]
	if len(rules) == 0 {
		return nil, nil
	}

	groups, err := s.groups.ListResourceGroups(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	var findings []api.Finding
	for _, rg := range inScope(groups, resourceGroup) {
		for _, rule := range rules {
			if f := rule.Check(control, rg); f != nil {
				findings = append(findings, *f)
			}
		}
	}
	return findings, nil
}

// inScope keeps the group named resourceGroup, or every group when it is empty.
func inScope(groups []api.Resource, resourceGroup string) []api.Resource {
	if resourceGroup == "" {
		return groups
	}
	var scoped []api.Resource
	for _, rg := range groups {
		if strings.EqualFold(rg.Name, resourceGroup) {
			scoped = append(scoped, rg)
		}
	}
	return scoped
}

func groupFinding(control api.Control, rg api.Resource, severity types.FindingSeverity, title, description, recommendation string) *api.Finding {
	return &api.Finding{
		Title:            title,
		Description:      description,
		Severity:         severity,
		AffectedControls: []string{control.ID},
		ControlFamily:    control.Family,
		ResourceID:       rg.ID,
		ResourceType:     rg.Type,
		ResourceName:     rg.Name,
		Recommendation:   recommendation,
	}
}

// RequiredTagsRule reports resource groups missing any of the tags.
func RequiredTagsRule(controlID string, severity types.FindingSeverity, tags ...string) Rule {
	return Rule{
		ControlID: controlID,
		Check: func(control api.Control, rg api.Resource) *api.Finding {
			var missing []string
			for _, tag := range tags {
				if strings.TrimSpace(lookupTag(rg.Tags, tag)) == "" {
					missing = append(missing, tag)
				}
			}
			if len(missing) == 0 {
				return nil
			}
			return groupFinding(control, rg, severity,
				"Resource group is missing required tags",
				fmt.Sprintf("Resource group %s has no value for tags: %s.", rg.Name, strings.Join(missing, ", ")),
				fmt.Sprintf("Tag the resource group with %s.", strings.Join(missing, ", ")),
			)
		},
	}
}

// AllowedLocationsRule reports resource groups deployed outside the allowed
// regions.
func AllowedLocationsRule(controlID string, severity types.FindingSeverity, locations ...string) Rule {
	allowed := map[string]bool{}
	for _, l := range locations {
		allowed[strings.ToLower(l)] = true
	}
	names := make([]string, 0, len(allowed))
	for l := range allowed {
		names = append(names, l)
	}
	sort.Strings(names)

	return Rule{
		ControlID: controlID,
		Check: func(control api.Control, rg api.Resource) *api.Finding {
			if len(allowed) == 0 || allowed[strings.ToLower(rg.Location)] {
				return nil
			}
			return groupFinding(control, rg, severity,
				"Resource group deployed in an unapproved region",
				fmt.Sprintf("Resource group %s is located in %s.", rg.Name, rg.Location),
				fmt.Sprintf("Move the workload to one of: %s.", strings.Join(names, ", ")),
			)
		},
	}
}

// ExternallyManagedRule reports resource groups managed by another resource,
// whose configuration is outside the tenant's baseline.
func ExternallyManagedRule(controlID string, severity types.FindingSeverity) Rule {
	return Rule{
		ControlID: controlID,
		Check: func(control api.Control, rg api.Resource) *api.Finding {
			if rg.ManagedBy == "" {
				return nil
			}
			return groupFinding(control, rg, severity,
				"Resource group is managed by an external resource",
				fmt.Sprintf("Resource group %s is managed by %s.", rg.Name, rg.ManagedBy),
				"Document the managing resource in the configuration baseline.",
			)
		},
	}
}

func lookupTag(tags map[string]string, key string) string {
	if v, ok := tags[key]; ok {
		return v
	}
	for k, v := range tags {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// DefaultRules are the resource group checks shipped with the service.
func DefaultRules(allowedLocations []string) []Rule {
	rules := []Rule{
		RequiredTagsRule("CM-8", types.FindingSeverityMedium, "owner", "environment"),
		RequiredTagsRule("PM-5", types.FindingSeverityLow, "owner"),
		ExternallyManagedRule("CM-2", types.FindingSeverityLow),
	}
	if len(allowedLocations) > 0 {
		rules = append(rules, AllowedLocationsRule("SA-9", types.FindingSeverityHigh, allowedLocations...))
	}
	return rules
}
