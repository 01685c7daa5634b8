// Package coordinator drives favorite-button state for restaurant cards. It
// owns the optimistic state transitions, the per-card in-flight guard, and
// the lazy resolution of the active search context, delegating all
// persistence to the backend client.
package coordinator

import (
	"context"
	"log/slog"
	"sync"

	"restomap.app/errors"
	"restomap.app/models"
)

// CardState is the lifecycle of one restaurant card's favorite button
type CardState string

const (
	// StateUnchecked means no authoritative answer has been obtained yet
	StateUnchecked CardState = "unchecked"
	// StateChecking means a status probe is in flight
	StateChecking CardState = "checking"
	// StateFavorited means the restaurant is saved in the current search context
	StateFavorited CardState = "favorited"
	// StateNotFavorited means the restaurant is not saved
	StateNotFavorited CardState = "not-favorited"
	// StatePendingAdd means an optimistic save is awaiting confirmation
	StatePendingAdd CardState = "pending-add"
	// StatePendingRemove means an optimistic removal is awaiting confirmation
	StatePendingRemove CardState = "pending-remove"
)

// Outcome summarizes how one toggle attempt ended
type Outcome string

const (
	// OutcomeSaved means the favorite was persisted
	OutcomeSaved Outcome = "saved"
	// OutcomeRemoved means the favorite was deleted
	OutcomeRemoved Outcome = "removed"
	// OutcomeLoginRequired means the caller has no session; nothing was sent
	OutcomeLoginRequired Outcome = "login-required"
	// OutcomeReturnToSearch means no search context exists to anchor the
	// favorite; the user must run a search first
	OutcomeReturnToSearch Outcome = "return-to-search"
	// OutcomeRejected means the backend matched a different restaurant than
	// the one clicked; the save was discarded as tampered
	OutcomeRejected Outcome = "rejected"
	// OutcomeFailed means a transient backend failure; state was rolled back
	OutcomeFailed Outcome = "failed"
	// OutcomeIgnored means another toggle for the same card was already in
	// flight
	OutcomeIgnored Outcome = "ignored"
)

// Backend is the slice of the HTTP client the coordinator needs
type Backend interface {
	Authenticated() bool
	CreateSearchHistory(ctx context.Context, stationIDs []string) (uint, error)
	AddFavorite(ctx context.Context, favoriteToken, hotpepperID string) (*models.FavoriteResponse, error)
	AddFavoriteBySearchHistory(ctx context.Context, searchHistoryID uint, hotpepperID string) (*models.FavoriteResponse, error)
	RemoveFavorite(ctx context.Context, favoriteID uint) error
	FavoriteStatus(ctx context.Context, searchHistoryID uint, hotpepperID string) (*models.FavoriteStatusResponse, error)
}

// Card tracks one restaurant's favorite button
type Card struct {
	hotpepperID   string
	favoriteToken string

	mu         sync.Mutex
	state      CardState
	favoriteID uint
	inFlight   bool
}

// HotpepperID returns the restaurant this card represents
func (c *Card) HotpepperID() string {
	return c.hotpepperID
}

// State returns the card's current button state
func (c *Card) State() CardState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// FavoriteID returns the persisted favorite id, or 0 when not favorited
func (c *Card) FavoriteID() uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.favoriteID
}

// beginToggle claims the in-flight guard and applies the optimistic flip.
// Returns the state to roll back to, or ok=false when another toggle holds
// the guard.
func (c *Card) beginToggle() (prior CardState, removing bool, favoriteID uint, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inFlight {
		return "", false, 0, false
	}
	c.inFlight = true
	prior = c.state

	if c.state == StateFavorited {
		c.state = StatePendingRemove
		return prior, true, c.favoriteID, true
	}
	c.state = StatePendingAdd
	return prior, false, 0, true
}

func (c *Card) settle(state CardState, favoriteID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
	c.favoriteID = favoriteID
	c.inFlight = false
}

func (c *Card) rollback(prior CardState, favoriteID uint) {
	c.settle(prior, favoriteID)
}

// pendingSearch is the station set of the active search, with its history id
// resolved at most once
type pendingSearch struct {
	stationIDs []string
	historyID  uint
	resolved   bool
}

// Coordinator mediates between restaurant cards and the backend for one
// caller session
type Coordinator struct {
	backend Backend
	logger  *slog.Logger

	mu     sync.Mutex
	search *pendingSearch
	cards  map[string]*Card
}

// New creates a coordinator over one backend session
func New(backend Backend) *Coordinator {
	return &Coordinator{
		backend: backend,
		logger:  slog.Default().With(slog.String("component", "favorite_coordinator")),
		cards:   make(map[string]*Card),
	}
}

// SetPendingSearch records the station set of the search the user just ran.
// The search history id is created lazily, on the first favorite that needs
// it, and reused for every favorite after that.
func (c *Coordinator) SetPendingSearch(stationIDs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, len(stationIDs))
	copy(ids, stationIDs)
	c.search = &pendingSearch{stationIDs: ids}
}

// SetSearchHistoryID installs an already-resolved search context, as when
// reopening a saved search
func (c *Coordinator) SetSearchHistoryID(id uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.search = &pendingSearch{historyID: id, resolved: true}
}

// ClearPendingSearch drops the active search context
func (c *Coordinator) ClearPendingSearch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.search = nil
}

// RegisterCard tracks a restaurant card. A non-empty favoriteToken routes
// saves through the token path; otherwise the history path is used. The
// card starts unchecked and needs a Refresh before its state is
// authoritative.
func (c *Coordinator) RegisterCard(hotpepperID, favoriteToken string) *Card {
	card := &Card{
		hotpepperID:   hotpepperID,
		favoriteToken: favoriteToken,
		state:         StateUnchecked,
	}
	c.mu.Lock()
	c.cards[hotpepperID] = card
	c.mu.Unlock()
	return card
}

// RegisterKnownCard tracks a card whose favorite state arrived with the
// page data. No status probe is needed for it.
func (c *Coordinator) RegisterKnownCard(hotpepperID, favoriteToken string, favoriteID uint) *Card {
	card := &Card{
		hotpepperID:   hotpepperID,
		favoriteToken: favoriteToken,
		state:         StateNotFavorited,
	}
	if favoriteID != 0 {
		card.state = StateFavorited
		card.favoriteID = favoriteID
	}
	c.mu.Lock()
	c.cards[hotpepperID] = card
	c.mu.Unlock()
	return card
}

// Card returns the tracked card for a restaurant, or nil
func (c *Coordinator) Card(hotpepperID string) *Card {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cards[hotpepperID]
}

// Refresh probes the backend for a card's authoritative favorite state.
// Anonymous sessions have no favorites, so the card settles to not-favorited
// without any network call. Cards already settled by RegisterKnownCard or a
// prior probe are left alone.
func (c *Coordinator) Refresh(ctx context.Context, card *Card) error {
	card.mu.Lock()
	if card.state != StateUnchecked || card.inFlight {
		card.mu.Unlock()
		return nil
	}
	if !c.backend.Authenticated() {
		card.state = StateNotFavorited
		card.mu.Unlock()
		return nil
	}
	card.state = StateChecking
	card.inFlight = true
	card.mu.Unlock()

	historyID, resolved := c.resolvedHistoryID()
	if !resolved {
		card.settle(StateNotFavorited, 0)
		return nil
	}

	status, err := c.backend.FavoriteStatus(ctx, historyID, card.hotpepperID)
	if err != nil {
		card.settle(StateUnchecked, 0)
		return err
	}

	if status.IsFavorite && status.FavoriteID != nil {
		card.settle(StateFavorited, *status.FavoriteID)
	} else {
		card.settle(StateNotFavorited, 0)
	}
	return nil
}

// Toggle handles one click on a card's favorite button. The button state
// flips immediately and is confirmed or rolled back when the backend
// answers. Overlapping clicks on the same card are ignored while a request
// is in flight.
func (c *Coordinator) Toggle(ctx context.Context, card *Card) (Outcome, error) {
	if !c.backend.Authenticated() {
		return OutcomeLoginRequired, errors.NewUnauthorizedError("favorites require a signed-in session")
	}

	prior, removing, favoriteID, ok := card.beginToggle()
	if !ok {
		return OutcomeIgnored, nil
	}

	if removing {
		return c.remove(ctx, card, prior, favoriteID)
	}
	return c.add(ctx, card, prior, favoriteID)
}

func (c *Coordinator) remove(ctx context.Context, card *Card, prior CardState, favoriteID uint) (Outcome, error) {
	if err := c.backend.RemoveFavorite(ctx, favoriteID); err != nil {
		// A favorite already gone on the server is the state we wanted
		if errors.IsNotFoundError(err) {
			card.settle(StateNotFavorited, 0)
			return OutcomeRemoved, nil
		}
		c.logger.Warn("favorite removal failed, reverting",
			slog.String("hotpepper_id", card.hotpepperID),
			slog.Any("error", err))
		card.rollback(prior, favoriteID)
		return OutcomeFailed, err
	}

	card.settle(StateNotFavorited, 0)
	return OutcomeRemoved, nil
}

func (c *Coordinator) add(ctx context.Context, card *Card, prior CardState, priorFavoriteID uint) (Outcome, error) {
	var resp *models.FavoriteResponse
	var err error

	if card.favoriteToken != "" {
		resp, err = c.backend.AddFavorite(ctx, card.favoriteToken, card.hotpepperID)
	} else {
		var historyID uint
		var outcome Outcome
		historyID, outcome, err = c.resolveHistory(ctx)
		if err != nil || outcome != "" {
			card.rollback(prior, priorFavoriteID)
			if outcome == "" {
				outcome = OutcomeFailed
			}
			return outcome, err
		}
		resp, err = c.backend.AddFavoriteBySearchHistory(ctx, historyID, card.hotpepperID)
	}

	if err != nil {
		c.logger.Warn("favorite save failed, reverting",
			slog.String("hotpepper_id", card.hotpepperID),
			slog.Any("error", err))
		card.rollback(prior, priorFavoriteID)
		return OutcomeFailed, err
	}

	// The server echoes the restaurant it actually bound the favorite to.
	// A mismatch means the click and the persisted record disagree; treat
	// the save as tampered and discard it.
	if resp.HotpepperID != card.hotpepperID {
		c.logger.Error("favorite bound to a different restaurant than clicked",
			slog.String("clicked", card.hotpepperID),
			slog.String("bound", resp.HotpepperID))
		card.rollback(prior, priorFavoriteID)
		return OutcomeRejected, errors.NewValidationError("favorite was bound to a different restaurant")
	}

	card.settle(StateFavorited, resp.ID)
	return OutcomeSaved, nil
}

// resolveHistory returns the id of the active search history, creating it on
// first use. A non-empty Outcome means the add must stop with that outcome.
func (c *Coordinator) resolveHistory(ctx context.Context) (uint, Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.search == nil {
		return 0, OutcomeReturnToSearch, nil
	}
	if c.search.resolved {
		return c.search.historyID, "", nil
	}

	id, err := c.backend.CreateSearchHistory(ctx, c.search.stationIDs)
	if err != nil {
		return 0, "", err
	}
	c.search.historyID = id
	c.search.resolved = true
	return id, "", nil
}

func (c *Coordinator) resolvedHistoryID() (uint, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.search != nil && c.search.resolved {
		return c.search.historyID, true
	}
	return 0, false
}
