// Package models defines data structures used throughout the application
package models

import (
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
)

// SearchHistory represents one persisted search: the set of origin stations a
// user searched from. Immutable once created; deduplicated by station set.
type SearchHistory struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	StationIDs string         `json:"station_ids" gorm:"not null"`
	StationKey string         `json:"-" gorm:"uniqueIndex;not null"`
	CreatedAt  time.Time      `json:"created_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}

// Stations returns the station identifiers in their original order.
func (h *SearchHistory) Stations() []string {
	if h.StationIDs == "" {
		return nil
	}
	return strings.Split(h.StationIDs, ",")
}

// StationSetKey normalizes a station-id list into an order-insensitive
// deduplication key.
func StationSetKey(stationIDs []string) string {
	sorted := make([]string, len(stationIDs))
	copy(sorted, stationIDs)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

// Favorite represents a saved restaurant, anchored to the search that produced it
type Favorite struct {
	ID              uint           `json:"id" gorm:"primaryKey"`
	SearchHistoryID uint           `json:"search_history_id" gorm:"index:idx_favorites_history_shop;not null"`
	HotpepperID     string         `json:"hotpepper_id" gorm:"index:idx_favorites_history_shop;not null"`
	CreatedAt       time.Time      `json:"created_at"`
	DeletedAt       gorm.DeletedAt `json:"-" gorm:"index"`
}

// SignedCoordinates is a midpoint produced by the trusted server-side
// computation, passed through the UI as opaque query data. The signature is
// valid only for the exact (latitude, longitude, expiresAt) triple.
type SignedCoordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Signature string  `json:"signature,omitempty"`
	ExpiresAt int64   `json:"expiresAt,omitempty"` // unix seconds, 0 when absent
}

// RestaurantListItem is the denormalized projection of a directory record.
// Never persisted - recomputed from the provider on every fetch.
type RestaurantListItem struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Station   string  `json:"station"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	GenreName string  `json:"genreName"`
	GenreCode string  `json:"genreCode"`
	ImageURL  string  `json:"imageUrl"`
	Close     string  `json:"close"`
}

// Credentials are the per-session authentication headers. All three must be
// present for a caller to count as authenticated.
type Credentials struct {
	AccessToken string
	Client      string
	UID         string
}

// Present reports whether the caller supplied a complete credential set
func (c Credentials) Present() bool {
	return c.AccessToken != "" && c.Client != "" && c.UID != ""
}

// MidpointValidateRequest carries signed coordinates for verification.
// Zero is a legitimate coordinate, so the floats carry no required rule;
// the signature check is what rejects fabricated points.
type MidpointValidateRequest struct {
	Latitude  float64 `form:"latitude" json:"latitude"`
	Longitude float64 `form:"longitude" json:"longitude"`
	Signature string  `form:"signature" json:"signature"`
	ExpiresAt int64   `form:"expiresAt" json:"expiresAt"`
}

// MidpointValidateResponse reports whether a signature matched its coordinates
type MidpointValidateResponse struct {
	Valid bool `json:"valid"`
}

// SearchHistoryRequest represents data required to create a search history
type SearchHistoryRequest struct {
	StationIDs []string `json:"station_ids" binding:"required,min=1,dive,station_id"`
}

// SearchHistoryResponse carries the server-assigned history id
type SearchHistoryResponse struct {
	ID uint `json:"id"`
}

// TokenBatchRequest binds a search history, its restaurants and the signed
// coordinates that produced them into one issuance request
type TokenBatchRequest struct {
	SearchHistoryID uint     `json:"search_history_id" binding:"required"`
	RestaurantIDs   []string `json:"restaurant_ids"`
	Lat             float64  `json:"lat"`
	Lng             float64  `json:"lng"`
	Sig             string   `json:"sig" binding:"required"`
	Exp             int64    `json:"exp" binding:"required"`
}

// TokenPair is one issued favorite token
type TokenPair struct {
	RestaurantID  string `json:"restaurant_id"`
	FavoriteToken string `json:"favorite_token"`
}

// TokenBatchResponse carries one token per requested restaurant
type TokenBatchResponse struct {
	Tokens []TokenPair `json:"tokens"`
}

// TokenDecodeRequest resolves an opaque favorite token
type TokenDecodeRequest struct {
	Token string `json:"token" binding:"required"`
}

// TokenDecodeResponse is the binding a favorite token carries
type TokenDecodeResponse struct {
	SearchHistoryID uint   `json:"search_history_id"`
	RestaurantID    string `json:"restaurant_id"`
}

// FavoritePayload is the inner favorite object of an add request
type FavoritePayload struct {
	FavoriteToken   string `json:"favorite_token"`
	SearchHistoryID uint   `json:"search_history_id"`
	HotpepperID     string `json:"hotpepper_id" binding:"required"`
}

// FavoriteRequest adds a favorite through the token path
type FavoriteRequest struct {
	Favorite FavoritePayload `json:"favorite" binding:"required"`
}

// FavoriteBySearchHistoryRequest adds a favorite through the history path
type FavoriteBySearchHistoryRequest struct {
	HotpepperID     string `json:"hotpepper_id" binding:"required"`
	SearchHistoryID uint   `json:"search_history_id" binding:"required"`
}

// FavoriteResponse echoes the restaurant the server actually matched
type FavoriteResponse struct {
	ID          uint   `json:"id"`
	HotpepperID string `json:"hotpepper_id"`
}

// FavoriteListResponse carries every favorite saved from one search, the
// input for the favorites listing page's detail fetch
type FavoriteListResponse struct {
	Favorites []FavoriteResponse `json:"favorites"`
}

// FavoriteStatusResponse is the initial-status probe result
type FavoriteStatusResponse struct {
	IsFavorite bool  `json:"isFavorite"`
	FavoriteID *uint `json:"favoriteId,omitempty"`
}

// RestaurantListResponse carries directory records for a list of identifiers
type RestaurantListResponse struct {
	Restaurants []RestaurantListItem `json:"restaurants"`
}

// ErrorResponse represents an error message structure for API responses
type ErrorResponse struct {
	Error string `json:"error"`
}
