package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/subscription/armsubscription"
)

type Subscription struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	State string `json:"state"`
}

var assessableStates = map[armsubscription.SubscriptionState]bool{
	armsubscription.SubscriptionStateEnabled: true,
	armsubscription.SubscriptionStatePastDue: true,
	armsubscription.SubscriptionStateWarned:  true,
}

// ListSubscriptions returns the subscriptions the credential can assess.
// Deleted, disabled and expired subscriptions are skipped.
func ListSubscriptions(ctx context.Context, cred azcore.TokenCredential) ([]Subscription, error) {
	client, err := armsubscription.NewSubscriptionsClient(cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscriptions client: %w", err)
	}

	var subscriptions []Subscription
	pager := client.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list subscriptions: %w", err)
		}
		for _, sub := range page.Value {
			if s, ok := subscriptionFrom(sub); ok {
				subscriptions = append(subscriptions, s)
			}
		}
	}
	return subscriptions, nil
}

func subscriptionFrom(sub *armsubscription.Subscription) (Subscription, bool) {
	if sub == nil || sub.SubscriptionID == nil || sub.State == nil || !assessableStates[*sub.State] {
		return Subscription{}, false
	}
	return Subscription{
		ID:    *sub.SubscriptionID,
		Name:  deref(sub.DisplayName),
		State: string(*sub.State),
	}, true
}
