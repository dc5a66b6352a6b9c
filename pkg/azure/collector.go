package azure

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kaytu-io/kaytu-assessor/pkg/assessment/api"
	"github.com/kaytu-io/kaytu-assessor/pkg/types"
	"go.uber.org/zap"
)

// Controls is satisfied by the control catalogs.
type Controls interface {
	GetControlsByFamily(ctx context.Context, family string) ([]api.Control, error)
}

// evidenceControls names the control an evidence type supports within a
// family. Other families attribute evidence to their first catalog control.
var evidenceControls = map[types.EvidenceType]map[string]string{
	types.EvidenceTypeConfiguration: {"AC": "AC-3", "CM": "CM-2", "SC": "SC-7", "SA": "SA-9"},
	types.EvidenceTypePolicies:      {"AC": "AC-3", "CM": "CM-6", "PM": "PM-5"},
	types.EvidenceTypeAccessControl: {"AC": "AC-6", "CM": "CM-8", "IA": "IA-2"},
}

// Collector gathers evidence from the resource group inventory. Log and
// metric evidence is not available from the inventory and is always empty.
type Collector struct {
	logger   *zap.Logger
	groups   ResourceGroups
	controls Controls
	now      func() time.Time
}

type CollectorOption func(*Collector)

func WithCollectorClock(now func() time.Time) CollectorOption {
	return func(c *Collector) {
		c.now = now
	}
}

func NewCollector(logger *zap.Logger, groups ResourceGroups, controls Controls, opts ...CollectorOption) *Collector {
	c := &Collector{
		logger:   logger.Named("azure-collector"),
		groups:   groups,
		controls: controls,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// controlID resolves the catalog control evidence of the type is attributed
// to. It is empty when the family has no controls.
func (c *Collector) controlID(ctx context.Context, family string, evidenceType types.EvidenceType) (string, error) {
	controls, err := c.controls.GetControlsByFamily(ctx, family)
	if err != nil {
		return "", fmt.Errorf("failed to get controls of family %s: %w", family, err)
	}
	if preferred, ok := evidenceControls[evidenceType][types.NormalizeFamilyCode(family)]; ok {
		for _, control := range controls {
			if strings.EqualFold(control.ID, preferred) {
				return control.ID, nil
			}
		}
	}
	if len(controls) == 0 {
		return "", nil
	}
	return controls[0].ID, nil
}

func (c *Collector) newEvidence(evidenceType types.EvidenceType, controlID string, rg api.Resource) api.Evidence {
	return api.Evidence{
		ID:           uuid.New().String(),
		EvidenceType: evidenceType,
		ControlID:    controlID,
		ResourceID:   rg.ID,
		CollectedAt:  c.now().UTC(),
	}
}

func (c *Collector) CollectConfigurationEvidence(ctx context.Context, tenantID, family, collectedBy string) ([]api.Evidence, error) {
	groups, err := c.groups.ListResourceGroups(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	controlID, err := c.controlID(ctx, family, types.EvidenceTypeConfiguration)
	if err != nil {
		return nil, err
	}

	evidence := make([]api.Evidence, 0, len(groups))
	for _, rg := range groups {
		snapshot, err := json.Marshal(rg)
		if err != nil {
			return nil, fmt.Errorf("failed to snapshot resource group %s: %w", rg.ID, err)
		}
		e := c.newEvidence(types.EvidenceTypeConfiguration, controlID, rg)
		e.ConfigSnapshot = string(snapshot)
		e.Data = map[string]any{
			"location":    rg.Location,
			"collectedBy": collectedBy,
		}
		evidence = append(evidence, e)
	}
	c.logger.Debug("collected configuration evidence",
		zap.String("tenantID", tenantID),
		zap.String("family", family),
		zap.Int("count", len(evidence)),
	)
	return evidence, nil
}

func (c *Collector) CollectLogEvidence(context.Context, string, string, string) ([]api.Evidence, error) {
	return nil, nil
}

func (c *Collector) CollectMetricEvidence(context.Context, string, string, string) ([]api.Evidence, error) {
	return nil, nil
}

// CollectPolicyEvidence records the governance tags of every resource group.
func (c *Collector) CollectPolicyEvidence(ctx context.Context, tenantID, family, collectedBy string) ([]api.Evidence, error) {
	groups, err := c.groups.ListResourceGroups(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	controlID, err := c.controlID(ctx, family, types.EvidenceTypePolicies)
	if err != nil {
		return nil, err
	}

	var evidence []api.Evidence
	for _, rg := range groups {
		if len(rg.Tags) == 0 {
			continue
		}
		tags := make(map[string]any, len(rg.Tags))
		for k, v := range rg.Tags {
			tags[k] = v
		}
		e := c.newEvidence(types.EvidenceTypePolicies, controlID, rg)
		e.Data = map[string]any{
			"tags":        tags,
			"collectedBy": collectedBy,
		}
		evidence = append(evidence, e)
	}
	return evidence, nil
}

// CollectAccessControlEvidence records which resource groups are delegated to
// a managing resource.
func (c *Collector) CollectAccessControlEvidence(ctx context.Context, tenantID, family, collectedBy string) ([]api.Evidence, error) {
	groups, err := c.groups.ListResourceGroups(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	controlID, err := c.controlID(ctx, family, types.EvidenceTypeAccessControl)
	if err != nil {
		return nil, err
	}

	var evidence []api.Evidence
	for _, rg := range groups {
		if rg.ManagedBy == "" {
			continue
		}
		e := c.newEvidence(types.EvidenceTypeAccessControl, controlID, rg)
		e.Data = map[string]any{
			"managedBy":   rg.ManagedBy,
			"collectedBy": collectedBy,
		}
		evidence = append(evidence, e)
	}
	return evidence, nil
}
