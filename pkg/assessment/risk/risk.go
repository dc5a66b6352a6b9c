// Package risk converts findings and category scores into risk scores, levels
// and prioritized risk lists. Everything here is pure.
package risk

import (
	"fmt"
	"sort"

	"github.com/kaytu-io/kaytu-assessor/pkg/assessment/api"
	"github.com/kaytu-io/kaytu-assessor/pkg/types"
	"github.com/shopspring/decimal"
)

const (
	maxTopRisks = 5

	// categories scoring above this are reported as top risks
	topRiskThreshold = 7.0
)

// Weight is the per-finding risk weight of a severity.
func Weight(severity types.FindingSeverity) float64 {
	switch severity {
	case types.FindingSeverityCritical:
		return 10.0
	case types.FindingSeverityHigh:
		return 7.5
	case types.FindingSeverityMedium:
		return 5.0
	case types.FindingSeverityLow:
		return 2.5
	default:
		return 1.0
	}
}

// Score is the weighted finding sum of an assessment. Informational findings do
// not contribute.
func Score(counts types.SeverityResult) float64 {
	return 10*float64(counts.CriticalCount) +
		7.5*float64(counts.HighCount) +
		5*float64(counts.MediumCount) +
		2.5*float64(counts.LowCount)
}

func LevelFromCounts(counts types.SeverityResult) types.RiskLevel {
	switch {
	case counts.CriticalCount > 0:
		return types.RiskLevelCritical
	case counts.HighCount > 5:
		return types.RiskLevelHigh
	case counts.MediumCount > 10:
		return types.RiskLevelMedium
	default:
		return types.RiskLevelLow
	}
}

// LevelFromScore buckets a 0-10 category risk score. Boundaries are inclusive.
func LevelFromScore(score float64) types.RiskLevel {
	switch {
	case score >= 8:
		return types.RiskLevelCritical
	case score >= 6:
		return types.RiskLevelHigh
	case score >= 4:
		return types.RiskLevelMedium
	case score >= 2:
		return types.RiskLevelLow
	default:
		return types.RiskLevelMinimal
	}
}

// Profile builds the risk profile of an assessment from its severity counts and
// findings. Top risks are the highest weighted distinct finding titles.
func Profile(counts types.SeverityResult, findings []api.Finding) api.RiskProfile {
	return api.RiskProfile{
		RiskLevel: LevelFromCounts(counts),
		RiskScore: Score(counts),
		TopRisks:  TopFindingRisks(findings, maxTopRisks),
	}
}

func TopFindingRisks(findings []api.Finding, limit int) []string {
	sorted := make([]api.Finding, len(findings))
	copy(sorted, findings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return Weight(sorted[i].Severity) > Weight(sorted[j].Severity)
	})

	seen := map[string]bool{}
	risks := []string{}
	for _, f := range sorted {
		if len(risks) >= limit {
			break
		}
		if f.Severity.Level() < types.FindingSeverityMedium.Level() {
			break
		}
		if seen[f.Title] {
			continue
		}
		seen[f.Title] = true
		risks = append(risks, fmt.Sprintf("[%s] %s (%s)", f.Severity, f.Title, f.ControlFamily))
	}
	return risks
}

// Aggregate computes the standalone risk assessment outcome from per-category
// scores: the arithmetic mean, its level and the top risks.
func Aggregate(categories []api.CategoryRisk) (float64, types.RiskLevel, []api.CategoryRisk) {
	if len(categories) == 0 {
		return 0, LevelFromScore(0), []api.CategoryRisk{}
	}

	sum := decimal.Zero
	for _, c := range categories {
		sum = sum.Add(decimal.NewFromFloat(c.RiskScore))
	}
	// the level is taken from the exact mean, only the reported score is rounded
	mean := sum.Div(decimal.NewFromInt(int64(len(categories))))

	return mean.Round(2).InexactFloat64(), LevelFromScore(mean.InexactFloat64()), TopCategoryRisks(categories)
}

func TopCategoryRisks(categories []api.CategoryRisk) []api.CategoryRisk {
	top := []api.CategoryRisk{}
	for _, c := range categories {
		if c.RiskScore > topRiskThreshold {
			top = append(top, c)
		}
	}
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].RiskScore > top[j].RiskScore
	})
	if len(top) > maxTopRisks {
		top = top[:maxTopRisks]
	}
	return top
}

func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
