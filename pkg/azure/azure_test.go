package azure

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/subscription/armsubscription"
	"github.com/kaytu-io/kaytu-assessor/pkg/assessment/api"
	"github.com/kaytu-io/kaytu-assessor/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticGroups struct {
	groups []api.Resource
	err    error
}

func (s staticGroups) ListResourceGroups(context.Context, string) ([]api.Resource, error) {
	return s.groups, s.err
}

var testGroups = staticGroups{groups: []api.Resource{
	{
		ID:       "/subscriptions/sub-1/resourceGroups/rg-prod",
		Name:     "rg-prod",
		Type:     "Microsoft.Resources/resourceGroups",
		Location: "westeurope",
		Tags:     map[string]string{"Owner": "team-a", "environment": "prod"},
	},
	{
		ID:        "/subscriptions/sub-1/resourceGroups/rg-aks-nodes",
		Name:      "rg-aks-nodes",
		Type:      "Microsoft.Resources/resourceGroups",
		Location:  "eastus",
		ManagedBy: "/subscriptions/sub-1/resourceGroups/rg-prod/providers/Microsoft.ContainerService/managedClusters/aks",
	},
}}

func TestResourceFromGroup(t *testing.T) {
	r := ResourceFromGroup(&armresources.ResourceGroup{
		ID:       to.Ptr("/subscriptions/sub-1/resourceGroups/rg-1"),
		Name:     to.Ptr("rg-1"),
		Location: to.Ptr("eastus"),
		Tags:     map[string]*string{"owner": to.Ptr("team-a"), "empty": nil},
	})

	assert.Equal(t, "rg-1", r.Name)
	assert.Equal(t, "rg-1", r.ResourceGroup)
	assert.Equal(t, "eastus", r.Location)
	assert.Empty(t, r.ManagedBy)
	assert.Equal(t, map[string]string{"owner": "team-a", "empty": ""}, r.Tags)
}

func TestScannerRules(t *testing.T) {
	s := NewScanner(testGroups, DefaultRules([]string{"WestEurope"})...)
	ctx := context.Background()

	findings, err := s.ScanControl(ctx, "sub-1", api.Control{ID: "cm-8", Family: "CM"})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "rg-aks-nodes", findings[0].ResourceName)
	assert.Equal(t, types.FindingSeverityMedium, findings[0].Severity)
	assert.Equal(t, []string{"cm-8"}, findings[0].AffectedControls)
	assert.Contains(t, findings[0].Description, "owner, environment")

	findings, err = s.ScanControl(ctx, "sub-1", api.Control{ID: "SA-9", Family: "SA"})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, types.FindingSeverityHigh, findings[0].Severity)

	findings, err = s.ScanResourceGroupControl(ctx, "sub-1", "RG-PROD", api.Control{ID: "SA-9", Family: "SA"})
	require.NoError(t, err)
	assert.Empty(t, findings)

	findings, err = s.ScanControl(ctx, "sub-1", api.Control{ID: "AC-2", Family: "AC"})
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestScannerPropagatesInventoryErrors(t *testing.T) {
	s := NewScanner(staticGroups{err: errors.New("throttled")}, DefaultRules(nil)...)

	_, err := s.ScanControl(context.Background(), "sub-1", api.Control{ID: "CM-8"})
	assert.EqualError(t, err, "throttled")
}

type staticControls map[string][]api.Control

func (s staticControls) GetControlsByFamily(_ context.Context, family string) ([]api.Control, error) {
	return s[family], nil
}

var testControls = staticControls{
	"AC": {{ID: "AC-2", Family: "AC"}, {ID: "AC-3", Family: "AC"}, {ID: "AC-6", Family: "AC"}},
	"CM": {{ID: "CM-2", Family: "CM"}, {ID: "CM-6", Family: "CM"}, {ID: "CM-8", Family: "CM"}},
	"CP": {{ID: "CP-9", Family: "CP"}},
}

func TestCollector(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	c := NewCollector(zap.NewNop(), testGroups, testControls, WithCollectorClock(func() time.Time { return at }))
	ctx := context.Background()

	config, err := c.CollectConfigurationEvidence(ctx, "sub-1", "CM", "auditor")
	require.NoError(t, err)
	require.Len(t, config, 2)
	assert.Equal(t, types.EvidenceTypeConfiguration, config[0].EvidenceType)
	assert.Equal(t, at, config[0].CollectedAt)
	assert.Contains(t, config[0].ConfigSnapshot, `"name":"rg-prod"`)

	policies, err := c.CollectPolicyEvidence(ctx, "sub-1", "CM", "auditor")
	require.NoError(t, err)
	require.Len(t, policies, 1)
	assert.Equal(t, "/subscriptions/sub-1/resourceGroups/rg-prod", policies[0].ResourceID)

	access, err := c.CollectAccessControlEvidence(ctx, "sub-1", "AC", "auditor")
	require.NoError(t, err)
	require.Len(t, access, 1)
	assert.Equal(t, "auditor", access[0].Data["collectedBy"])

	logs, err := c.CollectLogEvidence(ctx, "sub-1", "AU", "auditor")
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestCollectorAttributesEvidenceToCatalogControls(t *testing.T) {
	c := NewCollector(zap.NewNop(), testGroups, testControls)
	ctx := context.Background()

	config, err := c.CollectConfigurationEvidence(ctx, "sub-1", "CM", "auditor")
	require.NoError(t, err)
	for _, e := range config {
		assert.Equal(t, "CM-2", e.ControlID)
	}

	policies, err := c.CollectPolicyEvidence(ctx, "sub-1", "AC", "auditor")
	require.NoError(t, err)
	require.Len(t, policies, 1)
	assert.Equal(t, "AC-3", policies[0].ControlID)

	access, err := c.CollectAccessControlEvidence(ctx, "sub-1", "AC", "auditor")
	require.NoError(t, err)
	require.Len(t, access, 1)
	assert.Equal(t, "AC-6", access[0].ControlID)

	// no preferred control for CP, first catalog control is used
	config, err = c.CollectConfigurationEvidence(ctx, "sub-1", "CP", "auditor")
	require.NoError(t, err)
	require.NotEmpty(t, config)
	assert.Equal(t, "CP-9", config[0].ControlID)

	// families outside the catalog have no owning control
	config, err = c.CollectConfigurationEvidence(ctx, "sub-1", "ZZ", "auditor")
	require.NoError(t, err)
	require.NotEmpty(t, config)
	assert.Empty(t, config[0].ControlID)
}

func TestSubscriptionFrom(t *testing.T) {
	s, ok := subscriptionFrom(&armsubscription.Subscription{
		SubscriptionID: to.Ptr("sub-1"),
		DisplayName:    to.Ptr("Production"),
		State:          to.Ptr(armsubscription.SubscriptionStateWarned),
	})
	require.True(t, ok)
	assert.Equal(t, Subscription{ID: "sub-1", Name: "Production", State: "Warned"}, s)

	_, ok = subscriptionFrom(&armsubscription.Subscription{
		SubscriptionID: to.Ptr("sub-2"),
		State:          to.Ptr(armsubscription.SubscriptionStateDisabled),
	})
	assert.False(t, ok)

	_, ok = subscriptionFrom(nil)
	assert.False(t, ok)
}

func TestStigValidator(t *testing.T) {
	v := NewStigValidator(testGroups, DefaultStigRules()...)
	ctx := context.Background()

	findings, err := v.ValidateFamilyStigs(ctx, "sub-1", "", "cp")
	require.NoError(t, err)
	require.Len(t, findings, 2)
	for _, f := range findings {
		assert.Equal(t, "AZRG-CP-000010", f.StigID)
		assert.Equal(t, []string{"CP-9"}, f.AffectedControls)
		assert.Equal(t, "CP", f.ControlFamily)
		assert.Contains(t, f.Description, "backup-policy")
	}

	findings, err = v.ValidateFamilyStigs(ctx, "sub-1", "rg-prod", "CP")
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "rg-prod", findings[0].ResourceName)

	findings, err = v.ValidateFamilyStigs(ctx, "sub-1", "", "PE")
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestStigValidatorPropagatesInventoryError(t *testing.T) {
	v := NewStigValidator(staticGroups{err: errors.New("throttled")}, DefaultStigRules()...)
	_, err := v.ValidateFamilyStigs(context.Background(), "sub-1", "", "AC")
	require.Error(t, err)

	// families without rules never reach the inventory
	_, err = v.ValidateFamilyStigs(context.Background(), "sub-1", "", "PE")
	require.NoError(t, err)
}
