package service

import (
	"context"
	"log"
	"time"

	stderrors "errors"

	"gorm.io/gorm"
	"restomap.app/errors"
	"restomap.app/models"
	"restomap.app/pkg/validation"
	"restomap.app/providers"
)

// HistoryService handles search history creation
type HistoryService struct {
	histories SearchHistoryRepositoryInterface
}

// NewHistoryService creates a new search history service
func NewHistoryService(histories SearchHistoryRepositoryInterface) *HistoryService {
	return &HistoryService{histories: histories}
}

// Create converts a station-id list into a durable search history. Repeated
// calls with the same station set (in any order) return the same history.
func (s *HistoryService) Create(stationIDs []string) (*models.SearchHistory, error) {
	log.Printf("[DEBUG] HistoryService.Create called with %d stations\n", len(stationIDs))

	normalized, ok := validation.NormalizeStationIDs(stationIDs)
	if !ok {
		return nil, errors.NewValidationError("station id list must be non-empty with usable ids")
	}

	history, err := s.histories.FindOrCreate(normalized)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to create search history", err)
	}
	return history, nil
}

// TokenService issues and decodes per-restaurant, per-search favorite tokens
type TokenService struct {
	codec     TokenCodec
	verifier  CoordinateVerifier
	histories SearchHistoryRepositoryInterface
	now       func() time.Time
}

// NewTokenService creates a new favorite token service
func NewTokenService(codec TokenCodec, verifier CoordinateVerifier, histories SearchHistoryRepositoryInterface) *TokenService {
	return &TokenService{
		codec:     codec,
		verifier:  verifier,
		histories: histories,
		now:       time.Now,
	}
}

// IssueBatch issues one token per restaurant identifier, all bound to the same
// search history and signed coordinates. The coordinate signature is validated
// here, as part of issuance.
func (s *TokenService) IssueBatch(req *models.TokenBatchRequest) ([]models.TokenPair, error) {
	log.Printf("[DEBUG] TokenService.IssueBatch: historyID=%d, restaurants=%d\n",
		req.SearchHistoryID, len(req.RestaurantIDs))

	if req.Exp <= s.now().Unix() {
		return nil, errors.NewExpiredError("signed coordinates have expired")
	}
	if !s.verifier.VerifyCoordinates(req.Lat, req.Lng, req.Exp, req.Sig) {
		return nil, errors.NewInvalidSignatureError("coordinate signature does not match")
	}

	history, err := s.histories.FindByID(req.SearchHistoryID)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to look up search history", err)
	}
	if history == nil {
		return nil, errors.NewNotFoundError("search history not found")
	}

	tokens := make([]models.TokenPair, 0, len(req.RestaurantIDs))
	for _, restaurantID := range req.RestaurantIDs {
		tokens = append(tokens, models.TokenPair{
			RestaurantID:  restaurantID,
			FavoriteToken: s.codec.IssueFavoriteToken(req.SearchHistoryID, restaurantID),
		})
	}
	return tokens, nil
}

// Decode resolves an opaque token to the binding it was issued with
func (s *TokenService) Decode(token string) (*models.TokenDecodeResponse, error) {
	if token == "" {
		return nil, errors.NewValidationError("token cannot be empty")
	}

	historyID, restaurantID, err := s.codec.DecodeFavoriteToken(token)
	if err != nil {
		return nil, err
	}

	return &models.TokenDecodeResponse{
		SearchHistoryID: historyID,
		RestaurantID:    restaurantID,
	}, nil
}

// FavoriteService handles saving and removing favorites through the three
// authorization paths
type FavoriteService struct {
	favorites FavoriteRepositoryInterface
	histories SearchHistoryRepositoryInterface
	codec     TokenCodec
}

// NewFavoriteService creates a new favorite service
func NewFavoriteService(
	favorites FavoriteRepositoryInterface,
	histories SearchHistoryRepositoryInterface,
	codec TokenCodec,
) *FavoriteService {
	return &FavoriteService{
		favorites: favorites,
		histories: histories,
		codec:     codec,
	}
}

// AddByToken saves a favorite through the token path. The token's own binding
// is authoritative: the favorite is created for the restaurant the token was
// issued for, and the response echoes that identifier so callers can detect a
// mismatch with what they asked for.
func (s *FavoriteService) AddByToken(token, requestedHotpepperID string) (*models.FavoriteResponse, error) {
	log.Printf("[DEBUG] FavoriteService.AddByToken: requested=%s\n", requestedHotpepperID)

	historyID, boundRestaurantID, err := s.codec.DecodeFavoriteToken(token)
	if err != nil {
		return nil, err
	}

	if requestedHotpepperID != "" && requestedHotpepperID != boundRestaurantID {
		log.Printf("[WARNING] Favorite token binding mismatch: requested=%s bound=%s\n",
			requestedHotpepperID, boundRestaurantID)
		return nil, errors.NewValidationError("favorite token was issued for a different restaurant")
	}

	return s.create(historyID, boundRestaurantID)
}

// AddBySearchHistory saves a favorite through the history path, used when only
// a search history id is available
func (s *FavoriteService) AddBySearchHistory(searchHistoryID uint, hotpepperID string) (*models.FavoriteResponse, error) {
	log.Printf("[DEBUG] FavoriteService.AddBySearchHistory: historyID=%d, hotpepperID=%s\n",
		searchHistoryID, hotpepperID)

	if !validation.IsValidRestaurantID(hotpepperID) {
		return nil, errors.NewValidationError("restaurant id is not usable")
	}

	history, err := s.histories.FindByID(searchHistoryID)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to look up search history", err)
	}
	if history == nil {
		return nil, errors.NewNotFoundError("search history not found")
	}

	return s.create(searchHistoryID, hotpepperID)
}

func (s *FavoriteService) create(searchHistoryID uint, hotpepperID string) (*models.FavoriteResponse, error) {
	existing, err := s.favorites.FindBySearchHistoryAndHotpepper(searchHistoryID, hotpepperID)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to check existing favorite", err)
	}
	if existing != nil {
		return &models.FavoriteResponse{ID: existing.ID, HotpepperID: existing.HotpepperID}, nil
	}

	favorite, err := s.favorites.Create(searchHistoryID, hotpepperID)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to create favorite", err)
	}
	return &models.FavoriteResponse{ID: favorite.ID, HotpepperID: favorite.HotpepperID}, nil
}

// Remove deletes a favorite by its server-assigned id
func (s *FavoriteService) Remove(id uint) error {
	log.Printf("[DEBUG] FavoriteService.Remove: id=%d\n", id)

	if err := s.favorites.DeleteByID(id); err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.NewNotFoundError("favorite not found")
		}
		return errors.NewDatabaseError("failed to delete favorite", err)
	}
	return nil
}

// List returns every favorite saved from one search context, in creation
// order. The favorites listing page feeds the ids into the batch retriever.
func (s *FavoriteService) List(searchHistoryID uint) ([]models.FavoriteResponse, error) {
	favorites, err := s.favorites.ListBySearchHistory(searchHistoryID)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list favorites", err)
	}

	responses := make([]models.FavoriteResponse, 0, len(favorites))
	for _, favorite := range favorites {
		responses = append(responses, models.FavoriteResponse{
			ID:          favorite.ID,
			HotpepperID: favorite.HotpepperID,
		})
	}
	return responses, nil
}

// Status reports whether a restaurant is favorited within one search context
func (s *FavoriteService) Status(searchHistoryID uint, hotpepperID string) (*models.FavoriteStatusResponse, error) {
	favorite, err := s.favorites.FindBySearchHistoryAndHotpepper(searchHistoryID, hotpepperID)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to check favorite status", err)
	}

	status := &models.FavoriteStatusResponse{}
	if favorite != nil {
		status.IsFavorite = true
		status.FavoriteID = &favorite.ID
	}
	return status, nil
}

// RestaurantService handles restaurant detail retrieval
type RestaurantService struct {
	retriever providers.RestaurantFetcher
}

// NewRestaurantService creates a new restaurant service backed by the batch retriever
func NewRestaurantService(retriever providers.RestaurantFetcher) *RestaurantService {
	return &RestaurantService{retriever: retriever}
}

// Fetch retrieves directory details for the given identifiers, preserving
// their order
func (s *RestaurantService) Fetch(ctx context.Context, ids []string, opts providers.FetchOptions) ([]models.RestaurantListItem, error) {
	log.Printf("[DEBUG] RestaurantService.Fetch called with %d ids\n", len(ids))
	return s.retriever.Fetch(ctx, ids, opts)
}
