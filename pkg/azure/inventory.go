package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/kaytu-io/kaytu-assessor/pkg/assessment/api"
	"go.uber.org/zap"
)

// Inventory lists the resource groups of a subscription. The tenant id of the
// assessment engine is the subscription id.
type Inventory struct {
	logger     *zap.Logger
	credential azcore.TokenCredential
}

func NewInventory(logger *zap.Logger, credential azcore.TokenCredential) *Inventory {
	return &Inventory{
		logger:     logger.Named("azure-inventory"),
		credential: credential,
	}
}

func (i *Inventory) ListResourceGroups(ctx context.Context, subscriptionID string) ([]api.Resource, error) {
	client, err := armresources.NewResourceGroupsClient(subscriptionID, i.credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource groups client: %w", err)
	}

	var resources []api.Resource
	pager := client.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list resource groups of %s: %w", subscriptionID, err)
		}
		for _, rg := range page.Value {
			if rg == nil {
				continue
			}
			resources = append(resources, ResourceFromGroup(rg))
		}
	}

	i.logger.Info("listed resource groups",
		zap.String("subscriptionID", subscriptionID),
		zap.Int("count", len(resources)),
	)
	return resources, nil
}

func ResourceFromGroup(rg *armresources.ResourceGroup) api.Resource {
	r := api.Resource{
		ID:        deref(rg.ID),
		Name:      deref(rg.Name),
		Type:      deref(rg.Type),
		Location:  deref(rg.Location),
		ManagedBy: deref(rg.ManagedBy),
	}
	r.ResourceGroup = r.Name
	if len(rg.Tags) > 0 {
		r.Tags = make(map[string]string, len(rg.Tags))
		for k, v := range rg.Tags {
			r.Tags[k] = deref(v)
		}
	}
	return r
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
