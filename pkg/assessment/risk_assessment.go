package assessment

import (
	"context"
	"fmt"
	"strings"

	"github.com/kaytu-io/kaytu-assessor/pkg/assessment/api"
	"github.com/kaytu-io/kaytu-assessor/pkg/assessment/risk"
	"github.com/kaytu-io/kaytu-assessor/pkg/types"
	"go.uber.org/zap"
)

// categoryFamilies maps risk categories to the control families that measure them.
var categoryFamilies = map[string][]string{
	"Data Protection":          {"SC", "MP"},
	"Access Control":           {"AC", "IA"},
	"Network Security":         {"SC"},
	"Incident Response":        {"IR"},
	"Business Continuity":      {"CP"},
	"Compliance":               {"CA", "PL"},
	"Third-Party Risk":         {"SA"},
	"Configuration Management": {"CM"},
}

// FindingsCategoryAssessor scores a category from the non-compliance of its
// families in the latest assessment. Categories without data score 0.
type FindingsCategoryAssessor struct {
	store Store
}

func NewFindingsCategoryAssessor(store Store) *FindingsCategoryAssessor {
	return &FindingsCategoryAssessor{store: store}
}

func (a *FindingsCategoryAssessor) AssessCategory(ctx context.Context, tenantID, category string) (api.CategoryRisk, error) {
	families := categoryFamilies[category]
	result := api.CategoryRisk{
		Category: category,
		Families: families,
	}

	latest, err := a.store.GetLatestAssessment(ctx, tenantID)
	if err != nil {
		return result, fmt.Errorf("failed to fetch latest assessment: %w", err)
	}
	if latest == nil {
		result.Description = "No completed assessment available"
		return result, nil
	}

	var passed, total int
	for _, code := range families {
		if r, ok := latest.ControlFamilyResults[code]; ok {
			passed += r.PassedControls
			total += r.TotalControls
		}
	}
	if total == 0 {
		result.Description = "No assessed controls in this category"
		return result, nil
	}

	compliance := percentage(passed, total)
	result.RiskScore = risk.Round(10*(1-compliance/100), 2)
	result.Description = fmt.Sprintf("%d of %d controls in %s are compliant (%.1f%%)",
		passed, total, strings.Join(families, ", "), compliance)
	return result, nil
}

// PerformRiskAssessment scores every risk category and aggregates the result.
func (e *Engine) PerformRiskAssessment(ctx context.Context, tenantID string) (*api.RiskAssessment, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, ErrInvalidTenantID
	}
	ctx, span := startSpan(ctx, "PerformRiskAssessment")

	categories := make([]api.CategoryRisk, 0, len(types.RiskCategories))
	for _, category := range types.RiskCategories {
		cr, err := e.assessor.AssessCategory(ctx, tenantID, category)
		if err != nil {
			err = fmt.Errorf("failed to assess risk category %s: %w", category, err)
			endSpan(span, err)
			return nil, err
		}
		cr.Category = category
		categories = append(categories, cr)
	}

	overall, level, top := risk.Aggregate(categories)
	ra := &api.RiskAssessment{
		ID:               e.newID(),
		TenantID:         tenantID,
		AssessedAt:       e.now().UTC(),
		Categories:       categories,
		OverallRiskScore: overall,
		RiskLevel:        level,
		TopRisks:         top,
	}

	if err := e.store.SaveRiskAssessment(ctx, ra); err != nil {
		e.logger.Error("failed to persist risk assessment", zap.String("tenantID", tenantID), zap.Error(err))
	}
	e.audit(ctx, tenantID, api.AuditActionRiskAssessed, "",
		fmt.Sprintf("risk assessment %s: overall %.2f (%s)", ra.ID, overall, level))
	endSpan(span, nil)
	return ra, nil
}
