package assessment

import (
	"fmt"
	"strings"
	"time"

	"github.com/kaytu-io/kaytu-assessor/pkg/assessment/api"
	"github.com/kaytu-io/kaytu-assessor/pkg/types"
)

func normalizeControlID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// NewFamilyResult scores a family. Only affected control ids that belong to
// the family's own controls reduce its passed count.
func NewFamilyResult(family types.ControlFamily, controls []api.Control, findings []api.Finding, assessedAt time.Time) *api.FamilyResult {
	familyControls := make(map[string]struct{}, len(controls))
	for _, c := range controls {
		familyControls[normalizeControlID(c.ID)] = struct{}{}
	}

	affected := map[string]struct{}{}
	for _, f := range findings {
		for _, id := range f.AffectedControls {
			id = normalizeControlID(id)
			if _, ok := familyControls[id]; ok {
				affected[id] = struct{}{}
			}
		}
	}

	total := len(controls)
	passed := total - len(affected)
	if passed < 0 {
		passed = 0
	}

	if findings == nil {
		findings = []api.Finding{}
	}
	return &api.FamilyResult{
		FamilyCode:      family.Code,
		FamilyName:      family.Name,
		Findings:        findings,
		TotalControls:   total,
		PassedControls:  passed,
		ComplianceScore: percentage(passed, total),
		AssessedAt:      assessedAt,
	}
}

// OverallScore weighs every family by its number of controls.
func OverallScore(results map[string]*api.FamilyResult) float64 {
	var passed, total int
	for _, r := range results {
		passed += r.PassedControls
		total += r.TotalControls
	}
	return percentage(passed, total)
}

// CountFindings returns the number of findings and their severity buckets.
func CountFindings(results map[string]*api.FamilyResult) (int, types.SeverityResult) {
	var total int
	var counts types.SeverityResult
	for _, r := range results {
		total += len(r.Findings)
		for _, f := range r.Findings {
			counts.IncreaseBySeverity(f.Severity)
		}
	}
	return total, counts
}

func ExecutiveSummary(a *api.Assessment) string {
	return fmt.Sprintf("Compliance assessment completed with an overall score of %.1f%%. "+
		"Found %d findings (%d critical, %d high, %d medium, %d low, %d informational). "+
		"Overall risk level: %s.",
		a.OverallComplianceScore, a.TotalFindings,
		a.CriticalCount, a.HighCount, a.MediumCount, a.LowCount, a.InformationalCount,
		a.RiskProfile.RiskLevel)
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
