package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"restomap.app/config"
	"restomap.app/errors"
	"restomap.app/metrics"
	"restomap.app/models"
	"restomap.app/providers/cache"
)

const (
	// MaxRevalidateWindow caps how long a positive verification may be
	// reused before the backend is consulted again
	MaxRevalidateWindow = 5 * time.Minute

	// DefaultRevalidateWindow applies when the coordinates carry no expiry
	DefaultRevalidateWindow = time.Minute
)

// MidpointValidator is the backend call the verifier wraps
type MidpointValidator interface {
	ValidateMidpoint(ctx context.Context, coords models.SignedCoordinates) (bool, error)
}

// VerifyResult is a successful coordinate verification
type VerifyResult struct {
	Latitude  float64
	Longitude float64

	// RevalidateIn is how long this result may be trusted before the
	// verification must run again
	RevalidateIn time.Duration
}

type cachedOutcome struct {
	Valid bool `json:"valid"`
}

// Verifier checks signed midpoint coordinates against the backend, caching
// deterministic outcomes so repeated page loads with the same query data do
// not hammer the verification endpoint
type Verifier struct {
	api        MidpointValidator
	cache      cache.GenericCacheInterface
	metrics    *metrics.CacheMetrics
	logger     *slog.Logger
	maxTTL     time.Duration
	defaultTTL time.Duration
	now        func() time.Time
}

// NewVerifier creates a verifier. The cache may be nil, which disables
// result reuse; a nil config falls back to the package defaults.
func NewVerifier(api MidpointValidator, resultCache cache.GenericCacheInterface, cacheMetrics *metrics.CacheMetrics, cfg *config.MidpointConfig) *Verifier {
	maxTTL := MaxRevalidateWindow
	defaultTTL := DefaultRevalidateWindow
	if cfg != nil {
		if cfg.MaxCacheTTL > 0 {
			maxTTL = cfg.MaxCacheTTL
		}
		if cfg.DefaultTTL > 0 {
			defaultTTL = cfg.DefaultTTL
		}
	}

	return &Verifier{
		api:        api,
		cache:      resultCache,
		metrics:    cacheMetrics,
		logger:     slog.Default().With(slog.String("component", "coordinate_verifier")),
		maxTTL:     maxTTL,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Verify checks one set of signed coordinates.
//
// Expired coordinates are rejected locally; no network call and no cache
// traffic happen for them. All other outcomes come from the cache or the
// backend: a positive result yields the coordinates with their revalidation
// window, a negative one yields a typed error. Only deterministic outcomes
// (valid, and deterministically invalid REQUEST_FAILED) are cached;
// transient failures are retried on the next call.
func (v *Verifier) Verify(ctx context.Context, coords models.SignedCoordinates) (*VerifyResult, error) {
	now := v.now()
	if coords.ExpiresAt != 0 && coords.ExpiresAt <= now.Unix() {
		return nil, errors.NewExpiredError("midpoint coordinates have expired")
	}

	window := v.revalidateWindow(coords.ExpiresAt, now)
	key := verificationCacheKey(coords)

	if outcome, ok := v.cachedOutcome(ctx, key); ok {
		if outcome.Valid {
			return &VerifyResult{Latitude: coords.Latitude, Longitude: coords.Longitude, RevalidateIn: window}, nil
		}
		return nil, errors.NewRequestFailedError("midpoint coordinates failed verification", nil)
	}

	valid, err := v.api.ValidateMidpoint(ctx, coords)
	if err != nil {
		v.logFailure(coords, err)
		return nil, err
	}

	if !valid {
		err := errors.NewRequestFailedError("midpoint coordinates failed verification", nil)
		v.logFailure(coords, err)
		v.storeOutcome(ctx, key, cachedOutcome{Valid: false}, window)
		return nil, err
	}

	v.storeOutcome(ctx, key, cachedOutcome{Valid: true}, window)
	return &VerifyResult{Latitude: coords.Latitude, Longitude: coords.Longitude, RevalidateIn: window}, nil
}

// revalidateWindow derives the cache lifetime from the signature expiry:
// never past the expiry, never past the configured cap
func (v *Verifier) revalidateWindow(expiresAt int64, now time.Time) time.Duration {
	if expiresAt == 0 {
		return v.defaultTTL
	}
	remaining := time.Unix(expiresAt, 0).Sub(now)
	if remaining > v.maxTTL {
		return v.maxTTL
	}
	return remaining
}

func (v *Verifier) cachedOutcome(ctx context.Context, key string) (cachedOutcome, bool) {
	if v.cache == nil {
		return cachedOutcome{}, false
	}

	data, found := v.cache.Get(ctx, key)
	if !found {
		if v.metrics != nil {
			v.metrics.RecordMiss()
		}
		return cachedOutcome{}, false
	}

	var outcome cachedOutcome
	if err := json.Unmarshal(data, &outcome); err != nil {
		if v.metrics != nil {
			v.metrics.RecordMiss()
		}
		return cachedOutcome{}, false
	}

	if v.metrics != nil {
		v.metrics.RecordHit()
	}
	return outcome, true
}

func (v *Verifier) storeOutcome(ctx context.Context, key string, outcome cachedOutcome, ttl time.Duration) {
	if v.cache == nil || ttl <= 0 {
		return
	}

	data, err := json.Marshal(outcome)
	if err != nil {
		return
	}
	v.cache.Set(ctx, key, data, ttl)
	if v.metrics != nil {
		v.metrics.RecordStore()
	}
}

func (v *Verifier) logFailure(coords models.SignedCoordinates, err error) {
	v.logger.Error("coordinate verification failed",
		slog.Float64("latitude", coords.Latitude),
		slog.Float64("longitude", coords.Longitude),
		slog.Bool("has_signature", coords.Signature != ""),
		slog.String("error_type", string(errors.TypeOf(err))),
		slog.Any("error", err),
	)
}

func verificationCacheKey(coords models.SignedCoordinates) string {
	return fmt.Sprintf("midpoint:verify:%.6f:%.6f:%s:%d",
		coords.Latitude, coords.Longitude, coords.Signature, coords.ExpiresAt)
}
