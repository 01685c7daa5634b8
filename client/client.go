// Package client is the typed HTTP client for the favorite-authorization
// backend. Every authenticated call checks credentials locally before any
// network traffic.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"restomap.app/errors"
	"restomap.app/models"
)

// Client talks JSON-over-HTTP to the backend, carrying the three per-session
// credential headers on authenticated calls
type Client struct {
	baseURL string
	creds   models.Credentials
	http    *http.Client
}

// New creates a backend client for one caller session. Credentials may be
// empty for an unauthenticated session; authenticated operations will then
// short-circuit without any network call.
func New(baseURL string, creds models.Credentials) *Client {
	return &Client{
		baseURL: baseURL,
		creds:   creds,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Authenticated reports whether this session carries a complete credential set
func (c *Client) Authenticated() bool {
	return c.creds.Present()
}

func (c *Client) requireAuth() error {
	if !c.creds.Present() {
		return errors.NewUnauthorizedError("caller has no session credentials")
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, errors.NewRequestFailedError("failed to encode request body", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, errors.NewRequestFailedError("failed to build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.creds.Present() {
		req.Header.Set("access-token", c.creds.AccessToken)
		req.Header.Set("client", c.creds.Client)
		req.Header.Set("uid", c.creds.UID)
	}
	return req, nil
}

// do executes a request and decodes a 2xx body into out. Non-2xx responses
// collapse to one normalized cause with a fixed message; the backend's own
// error text never propagates.
func (c *Client) do(req *http.Request, out interface{}, failure *errors.AppError) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.NewNetworkError("failed to reach backend", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			_ = closeErr
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return failure
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.NewRequestFailedError("failed to decode backend response", err)
	}
	return nil
}

// CreateSearchHistory converts a station-id list into a durable search
// history id. The backend deduplicates by station set, so retries are safe.
func (c *Client) CreateSearchHistory(ctx context.Context, stationIDs []string) (uint, error) {
	if err := c.requireAuth(); err != nil {
		return 0, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/search_histories",
		models.SearchHistoryRequest{StationIDs: stationIDs})
	if err != nil {
		return 0, err
	}

	var resp models.SearchHistoryResponse
	if err := c.do(req, &resp,
		errors.NewRequestFailedError("search history could not be created", nil)); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

// IssueFavoriteTokens requests one favorite token per restaurant, bound to a
// search history and the signed coordinates that produced it
func (c *Client) IssueFavoriteTokens(ctx context.Context, req *models.TokenBatchRequest) ([]models.TokenPair, error) {
	if err := c.requireAuth(); err != nil {
		return nil, err
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, "/api/favorite_tokens/batch", req)
	if err != nil {
		return nil, err
	}

	var resp models.TokenBatchResponse
	if err := c.do(httpReq, &resp,
		errors.NewRequestFailedError("favorite tokens could not be issued", nil)); err != nil {
		return nil, err
	}
	return resp.Tokens, nil
}

// DecodeToken resolves an opaque favorite token to its binding
func (c *Client) DecodeToken(ctx context.Context, token string) (*models.TokenDecodeResponse, error) {
	if err := c.requireAuth(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/favorite_tokens/decode",
		models.TokenDecodeRequest{Token: token})
	if err != nil {
		return nil, err
	}

	var resp models.TokenDecodeResponse
	if err := c.do(req, &resp,
		errors.NewRequestFailedError("favorite token could not be decoded", nil)); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AddFavorite saves a favorite through the token path. The response echoes
// the restaurant identifier the server actually matched; callers must compare
// it against the requested identifier.
func (c *Client) AddFavorite(ctx context.Context, favoriteToken, hotpepperID string) (*models.FavoriteResponse, error) {
	if err := c.requireAuth(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/favorites", models.FavoriteRequest{
		Favorite: models.FavoritePayload{FavoriteToken: favoriteToken, HotpepperID: hotpepperID},
	})
	if err != nil {
		return nil, err
	}

	var resp models.FavoriteResponse
	if err := c.do(req, &resp,
		errors.NewRequestFailedError("favorite could not be saved", nil)); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AddFavoriteBySearchHistory saves a favorite through the history path
func (c *Client) AddFavoriteBySearchHistory(ctx context.Context, searchHistoryID uint, hotpepperID string) (*models.FavoriteResponse, error) {
	if err := c.requireAuth(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/favorites/by_search_history",
		models.FavoriteBySearchHistoryRequest{HotpepperID: hotpepperID, SearchHistoryID: searchHistoryID})
	if err != nil {
		return nil, err
	}

	var resp models.FavoriteResponse
	if err := c.do(req, &resp,
		errors.NewRequestFailedError("favorite could not be saved", nil)); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RemoveFavorite deletes a favorite by its server-assigned id
func (c *Client) RemoveFavorite(ctx context.Context, favoriteID uint) error {
	if err := c.requireAuth(); err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodDelete,
		fmt.Sprintf("/api/favorites/%d", favoriteID), nil)
	if err != nil {
		return err
	}

	return c.do(req, nil, errors.NewRequestFailedError("favorite could not be removed", nil))
}

// ListFavorites returns every favorite saved from one search context. The
// favorites listing page feeds the returned ids into the restaurant fetch.
func (c *Client) ListFavorites(ctx context.Context, searchHistoryID uint) ([]models.FavoriteResponse, error) {
	if err := c.requireAuth(); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("search_history_id", strconv.FormatUint(uint64(searchHistoryID), 10))

	req, err := c.newRequest(ctx, http.MethodGet, "/api/favorites?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var resp models.FavoriteListResponse
	if err := c.do(req, &resp,
		errors.NewRequestFailedError("favorites could not be listed", nil)); err != nil {
		return nil, err
	}
	return resp.Favorites, nil
}

// FavoriteStatus probes whether a restaurant is already favorited within one
// search context
func (c *Client) FavoriteStatus(ctx context.Context, searchHistoryID uint, hotpepperID string) (*models.FavoriteStatusResponse, error) {
	if err := c.requireAuth(); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("search_history_id", strconv.FormatUint(uint64(searchHistoryID), 10))
	query.Set("hotpepper_id", hotpepperID)

	req, err := c.newRequest(ctx, http.MethodGet, "/api/favorites/status?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var resp models.FavoriteStatusResponse
	if err := c.do(req, &resp,
		errors.NewRequestFailedError("favorite status could not be checked", nil)); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ValidateMidpoint asks the backend whether a coordinate signature is
// genuine. Failure classification follows the verification contract: 400 is
// an invalid signature, other 4xx a failed request, 5xx a server error.
func (c *Client) ValidateMidpoint(ctx context.Context, coords models.SignedCoordinates) (bool, error) {
	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
	query.Set("longitude", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))
	query.Set("signature", coords.Signature)
	if coords.ExpiresAt != 0 {
		query.Set("expiresAt", strconv.FormatInt(coords.ExpiresAt, 10))
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/midpoint/validate?"+query.Encode(), nil)
	if err != nil {
		return false, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, errors.NewNetworkError("failed to reach backend", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			_ = closeErr
		}
	}()

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		return false, errors.NewInvalidSignatureError("coordinate signature rejected")
	case resp.StatusCode >= 500:
		return false, errors.NewServerError(
			fmt.Sprintf("verification endpoint returned status code %d", resp.StatusCode), nil)
	case resp.StatusCode >= 400:
		return false, errors.NewRequestFailedError(
			fmt.Sprintf("verification endpoint returned status code %d", resp.StatusCode), nil)
	}

	var body models.MidpointValidateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, errors.NewRequestFailedError("failed to decode verification response", err)
	}
	return body.Valid, nil
}
