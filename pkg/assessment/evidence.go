package assessment

import (
	"context"
	"fmt"
	"strings"

	"github.com/kaytu-io/kaytu-assessor/pkg/assessment/api"
	"github.com/kaytu-io/kaytu-assessor/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const evidenceOperation = "evidence"

type collectFunc func(EvidenceCollector, context.Context, string, string, string) ([]api.Evidence, error)

var collectByType = map[types.EvidenceType]collectFunc{
	types.EvidenceTypeConfiguration: EvidenceCollector.CollectConfigurationEvidence,
	types.EvidenceTypeLogs:          EvidenceCollector.CollectLogEvidence,
	types.EvidenceTypeMetrics:       EvidenceCollector.CollectMetricEvidence,
	types.EvidenceTypePolicies:      EvidenceCollector.CollectPolicyEvidence,
	types.EvidenceTypeAccessControl: EvidenceCollector.CollectAccessControlEvidence,
}

type selectedCollector struct {
	family    string
	collector EvidenceCollector
}

// CompletenessScore is the share of the family's expected evidence types that
// were collected, capped at 100.
func CompletenessScore(evidence []api.Evidence, family string) float64 {
	if len(evidence) == 0 {
		return 0
	}
	distinct := map[types.EvidenceType]struct{}{}
	for _, ev := range evidence {
		distinct[ev.EvidenceType] = struct{}{}
	}
	score := float64(len(distinct)) / float64(types.ExpectedEvidenceTypes(family)) * 100
	if score > 100 {
		score = 100
	}
	return decimal.NewFromFloat(score).Round(2).InexactFloat64()
}

func AttestationStatement(pkg *api.EvidencePackage) string {
	return fmt.Sprintf("Evidence package %s was collected on %s for control family %s by %s. "+
		"Completeness score: %.2f%%. The collected evidence represents the state of the tenant's resources at the time of collection.",
		pkg.ID, pkg.CollectionStartTime.Format("2006-01-02"), pkg.ControlFamily, pkg.CollectedBy, pkg.CompletenessScore)
}

// CollectComplianceEvidence collects every evidence type for one family, or
// for every registered family when family is All.
func (e *Engine) CollectComplianceEvidence(ctx context.Context, tenantID, family, collectedBy string, sink ProgressSink) (*api.EvidencePackage, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, ErrInvalidTenantID
	}
	if strings.TrimSpace(family) == "" {
		return nil, ErrInvalidFamily
	}
	ctx, span := startSpan(ctx, "CollectComplianceEvidence")

	selected := e.selectCollectors(family)
	pkg := &api.EvidencePackage{
		ID:                  e.newID(),
		TenantID:            tenantID,
		ControlFamily:       types.NormalizeFamilyCode(family),
		CollectedBy:         collectedBy,
		CollectionStartTime: e.now().UTC(),
		Evidence:            []api.Evidence{},
	}
	if types.IsAllFamilies(family) {
		pkg.ControlFamily = types.AllFamilies
	}
	for _, s := range selected {
		pkg.Collectors = append(pkg.Collectors, s.family)
	}

	logger := e.logger.With(
		zap.String("tenantID", tenantID),
		zap.String("packageID", pkg.ID),
		zap.String("family", pkg.ControlFamily),
	)
	logger.Info("collecting compliance evidence", zap.Strings("collectors", pkg.Collectors))

	if err := e.collectEvidence(ctx, pkg, selected, sink); err != nil {
		end := e.now().UTC()
		pkg.CollectionEndTime = &end
		pkg.Error = err.Error()
		EvidencePackagesCount.WithLabelValues("failed").Inc()
		logger.Error("evidence collection failed", zap.Error(err))
		endSpan(span, err)
		return pkg, err
	}

	end := e.now().UTC()
	pkg.CollectionEndTime = &end
	pkg.CompletenessScore = CompletenessScore(pkg.Evidence, pkg.ControlFamily)
	pkg.AttestationStatement = AttestationStatement(pkg)
	EvidencePackagesCount.WithLabelValues("completed").Inc()

	if err := e.store.SaveEvidencePackage(ctx, pkg); err != nil {
		logger.Error("failed to persist evidence package", zap.Error(err))
	}
	if e.archiver != nil {
		if err := e.archiver.Archive(ctx, pkg); err != nil {
			logger.Error("failed to archive evidence package", zap.Error(err))
		}
	}
	e.audit(ctx, tenantID, api.AuditActionEvidenceCollected, collectedBy,
		fmt.Sprintf("evidence package %s for %s with %d items, completeness %.2f", pkg.ID, pkg.ControlFamily, len(pkg.Evidence), pkg.CompletenessScore))

	logger.Info("compliance evidence collected",
		zap.Int("items", len(pkg.Evidence)),
		zap.Float64("completeness", pkg.CompletenessScore),
	)
	endSpan(span, nil)
	return pkg, nil
}

func (e *Engine) selectCollectors(family string) []selectedCollector {
	if types.IsAllFamilies(family) {
		var selected []selectedCollector
		for _, code := range e.collectors.Registered() {
			selected = append(selected, selectedCollector{family: code, collector: e.collectors.Resolve(code)})
		}
		return selected
	}

	code := types.NormalizeFamilyCode(family)
	if e.collectors.Has(code) {
		return []selectedCollector{{family: code, collector: e.collectors.Resolve(code)}}
	}
	// Resolve logs the fallback
	return []selectedCollector{{family: types.DefaultFamily, collector: e.collectors.Resolve(code)}}
}

func (e *Engine) collectEvidence(ctx context.Context, pkg *api.EvidencePackage, selected []selectedCollector, sink ProgressSink) error {
	total := len(selected) * len(types.EvidenceTypes)
	completed := 0

	for _, s := range selected {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("evidence collection cancelled before collector %s: %w", s.family, err)
		}

		family := s.family
		if family == types.DefaultFamily {
			family = pkg.ControlFamily
		}
		for _, evidenceType := range types.EvidenceTypes {
			e.report(ctx, sink, api.ProgressEvent{
				Operation:     evidenceOperation,
				TenantID:      pkg.TenantID,
				Stage:         api.ProgressStageStarted,
				ControlFamily: family,
				EvidenceType:  evidenceType.String(),
				Completed:     completed,
				Total:         total,
				Message:       fmt.Sprintf("Collecting %s evidence for %s", evidenceType, family),
			})

			items, err := collectByType[evidenceType](s.collector, ctx, pkg.TenantID, family, pkg.CollectedBy)
			if err != nil {
				return fmt.Errorf("failed to collect %s evidence for %s: %w", evidenceType, family, err)
			}
			pkg.Evidence = append(pkg.Evidence, e.normalizeEvidence(items, evidenceType)...)

			completed++
			e.report(ctx, sink, api.ProgressEvent{
				Operation:     evidenceOperation,
				TenantID:      pkg.TenantID,
				Stage:         api.ProgressStageCompleted,
				ControlFamily: family,
				EvidenceType:  evidenceType.String(),
				Completed:     completed,
				Total:         total,
				Message:       fmt.Sprintf("Collected %d %s evidence items for %s", len(items), evidenceType, family),
			})
		}
	}
	return nil
}

func (e *Engine) normalizeEvidence(items []api.Evidence, evidenceType types.EvidenceType) []api.Evidence {
	now := e.now().UTC()
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = e.newID()
		}
		if items[i].EvidenceType == "" {
			items[i].EvidenceType = evidenceType
		}
		if items[i].CollectedAt.IsZero() {
			items[i].CollectedAt = now
		}
	}
	return items
}
