package service

import (
	"context"

	"restomap.app/models"
	"restomap.app/providers"
)

// HistoryServiceInterface defines the interface for search history operations
type HistoryServiceInterface interface {
	Create(stationIDs []string) (*models.SearchHistory, error)
}

// TokenServiceInterface defines the interface for favorite token operations
type TokenServiceInterface interface {
	IssueBatch(req *models.TokenBatchRequest) ([]models.TokenPair, error)
	Decode(token string) (*models.TokenDecodeResponse, error)
}

// FavoriteServiceInterface defines the interface for favorite operations
type FavoriteServiceInterface interface {
	AddByToken(token, requestedHotpepperID string) (*models.FavoriteResponse, error)
	AddBySearchHistory(searchHistoryID uint, hotpepperID string) (*models.FavoriteResponse, error)
	Remove(id uint) error
	Status(searchHistoryID uint, hotpepperID string) (*models.FavoriteStatusResponse, error)
	List(searchHistoryID uint) ([]models.FavoriteResponse, error)
}

// RestaurantServiceInterface defines the interface for restaurant detail retrieval
type RestaurantServiceInterface interface {
	Fetch(ctx context.Context, ids []string, opts providers.FetchOptions) ([]models.RestaurantListItem, error)
}

// SearchHistoryRepositoryInterface defines the interface for search history data operations
type SearchHistoryRepositoryInterface interface {
	FindByStationSet(stationIDs []string) (*models.SearchHistory, error)
	FindByID(id uint) (*models.SearchHistory, error)
	FindOrCreate(stationIDs []string) (*models.SearchHistory, error)
}

// FavoriteRepositoryInterface defines the interface for favorite data operations
type FavoriteRepositoryInterface interface {
	Create(searchHistoryID uint, hotpepperID string) (*models.Favorite, error)
	FindBySearchHistoryAndHotpepper(searchHistoryID uint, hotpepperID string) (*models.Favorite, error)
	ListBySearchHistory(searchHistoryID uint) ([]models.Favorite, error)
	DeleteByID(id uint) error
}

// CoordinateVerifier checks that a signature matches the exact coordinate
// triple it was issued for
type CoordinateVerifier interface {
	VerifyCoordinates(lat, lng float64, expiresAt int64, signature string) bool
}

// TokenCodec issues and decodes opaque favorite tokens
type TokenCodec interface {
	IssueFavoriteToken(searchHistoryID uint, restaurantID string) string
	DecodeFavoriteToken(token string) (uint, string, error)
}

// Ensure implementations satisfy interfaces
var _ HistoryServiceInterface = (*HistoryService)(nil)
var _ TokenServiceInterface = (*TokenService)(nil)
var _ FavoriteServiceInterface = (*FavoriteService)(nil)
var _ RestaurantServiceInterface = (*RestaurantService)(nil)
