package providers

import (
	"context"

	"restomap.app/models"
)

// DirectoryProvider defines the interface for the external restaurant directory.
// One call fetches at most the provider's per-request identifier limit.
type DirectoryProvider interface {
	FetchByIDs(ctx context.Context, ids []string) ([]models.RestaurantListItem, error)
}

// RestaurantFetcher defines the interface for order-preserving batch retrieval
type RestaurantFetcher interface {
	Fetch(ctx context.Context, ids []string, opts FetchOptions) ([]models.RestaurantListItem, error)
}
