package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"restomap.app/config"
	"restomap.app/errors"
	"restomap.app/models"
)

// MaxIDsPerRequest is the directory provider's hard per-request identifier limit
const MaxIDsPerRequest = 20

// Directory error codes as documented by the provider
const (
	directoryCodeServerError = 1000
	directoryCodeBadRequest  = 2000
	directoryCodeRateLimit   = 3000
)

// HotpepperProvider implements DirectoryProvider for the Hot Pepper gourmet API
type HotpepperProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewHotpepperProvider creates a new Hot Pepper directory provider
func NewHotpepperProvider(config *config.DirectoryConfig) *HotpepperProvider {
	return &HotpepperProvider{
		apiKey:  config.APIKey,
		baseURL: config.BaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type gourmetShop struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	StationName string  `json:"station_name"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Genre       struct {
		Name string `json:"name"`
		Code string `json:"code"`
	} `json:"genre"`
	Photo struct {
		PC struct {
			L string `json:"l"`
		} `json:"pc"`
	} `json:"photo"`
	Close string `json:"close"`
}

type gourmetError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type gourmetResponse struct {
	Results struct {
		Shop  []gourmetShop  `json:"shop"`
		Error []gourmetError `json:"error"`
	} `json:"results"`
}

// FetchByIDs retrieves directory records for at most MaxIDsPerRequest identifiers.
// The call is atomic: it returns every requested record that exists or fails as a whole.
func (p *HotpepperProvider) FetchByIDs(ctx context.Context, ids []string) ([]models.RestaurantListItem, error) {
	if len(ids) == 0 {
		return nil, errors.NewValidationError("restaurant id list cannot be empty")
	}
	if len(ids) > MaxIDsPerRequest {
		return nil, errors.NewValidationError(
			fmt.Sprintf("directory accepts at most %d ids per request, got %d", MaxIDsPerRequest, len(ids)))
	}

	query := url.Values{}
	query.Set("key", p.apiKey)
	query.Set("id", strings.Join(ids, ","))
	query.Set("count", strconv.Itoa(len(ids)))
	query.Set("format", "json")
	requestURL := fmt.Sprintf("%s/gourmet/v1/?%s", p.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, errors.NewRequestFailedError("failed to build directory request", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.NewNetworkError("failed to reach restaurant directory", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			// Ignore close error as it's not critical for the main operation
			_ = closeErr
		}
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errors.NewRateLimitError("restaurant directory rate limit reached", nil)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, errors.NewServerError(
			fmt.Sprintf("restaurant directory returned status code %d", resp.StatusCode), nil)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewRequestFailedError(
			fmt.Sprintf("restaurant directory returned status code %d", resp.StatusCode), nil)
	}

	var result gourmetResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.NewRequestFailedError("failed to decode directory response", err)
	}

	if len(result.Results.Error) > 0 {
		return nil, mapDirectoryError(result.Results.Error[0])
	}

	items := make([]models.RestaurantListItem, 0, len(result.Results.Shop))
	for _, shop := range result.Results.Shop {
		items = append(items, toListItem(shop))
	}
	return items, nil
}

// mapDirectoryError converts a documented directory error code to a normalized cause
func mapDirectoryError(dirErr gourmetError) error {
	switch dirErr.Code {
	case directoryCodeServerError:
		return errors.NewServerError("restaurant directory reported an internal error", nil)
	case directoryCodeBadRequest:
		return errors.NewRequestFailedError("restaurant directory rejected the request", nil)
	case directoryCodeRateLimit:
		return errors.NewRateLimitError("restaurant directory credential limit reached", nil)
	default:
		return errors.NewRequestFailedError(
			fmt.Sprintf("restaurant directory error code %d", dirErr.Code), nil)
	}
}

// toListItem is the pure transform from a raw directory record to the
// denormalized projection used everywhere downstream.
func toListItem(shop gourmetShop) models.RestaurantListItem {
	return models.RestaurantListItem{
		ID:        shop.ID,
		Name:      shop.Name,
		Station:   shop.StationName,
		Lat:       shop.Lat,
		Lng:       shop.Lng,
		GenreName: shop.Genre.Name,
		GenreCode: shop.Genre.Code,
		ImageURL:  shop.Photo.PC.L,
		Close:     shop.Close,
	}
}
