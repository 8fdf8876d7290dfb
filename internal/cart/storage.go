package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ErrNotFound is returned by a Storage when the key holds no value.
var ErrNotFound = errors.New("cart storage: key not found")

// Storage is the durable key-value port the cart persists through.
type Storage interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}

const (
	// DefaultKey is the storage key holding the cart snapshot.
	DefaultKey = "storefront_cart"

	// DefaultRetention is how long an unmodified cart is kept.
	DefaultRetention = 7 * 24 * time.Hour

	timestampSuffix = "_timestamp"
)

// TimestampKey returns the sibling key holding the last-mutation time used for expiry.
func TimestampKey(key string) string {
	return key + timestampSuffix
}

// snapshot is the persisted form of the cart.
type snapshot struct {
	Items       []LineItem `json:"items"`
	LastUpdated time.Time  `json:"lastUpdated"`
}

func encodeSnapshot(s State) ([]byte, error) {
	items := s.Items
	if items == nil {
		items = []LineItem{}
	}
	return json.Marshal(snapshot{Items: items, LastUpdated: s.LastUpdated.UTC()})
}

// writeState persists s under key. An empty cart removes both keys.
func writeState(ctx context.Context, storage Storage, key string, s State) error {
	if s.IsEmpty() {
		if err := storage.Remove(ctx, key); err != nil {
			return fmt.Errorf("failed to remove cart: %w", err)
		}
		if err := storage.Remove(ctx, TimestampKey(key)); err != nil {
			return fmt.Errorf("failed to remove cart timestamp: %w", err)
		}
		return nil
	}

	data, err := encodeSnapshot(s)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	if err := storage.Set(ctx, key, data); err != nil {
		return fmt.Errorf("failed to write cart: %w", err)
	}
	ts := []byte(s.LastUpdated.UTC().Format(time.RFC3339Nano))
	if err := storage.Set(ctx, TimestampKey(key), ts); err != nil {
		return fmt.Errorf("failed to write cart timestamp: %w", err)
	}
	return nil
}

// loadState rehydrates the cart stored under key. It never fails: missing, unreadable,
// corrupted or expired data all yield an empty cart, and corrupted or expired data is
// removed from storage.
func loadState(ctx context.Context, storage Storage, key string, retention time.Duration, limits Limits, now time.Time, logger zerolog.Logger) State {
	empty := derive(nil, now)

	data, err := storage.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return empty
	}
	if err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("failed to read persisted cart, starting empty")
		return empty
	}

	discard := func(reason string) State {
		logger.Info().Str("key", key).Str("reason", reason).Msg("discarding persisted cart")
		if err := storage.Remove(ctx, key); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("failed to remove persisted cart")
		}
		if err := storage.Remove(ctx, TimestampKey(key)); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("failed to remove persisted cart timestamp")
		}
		return empty
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return discard("corrupted")
	}

	updated := snap.LastUpdated
	raw, err := storage.Get(ctx, TimestampKey(key))
	switch {
	case err == nil:
		ts, parseErr := time.Parse(time.RFC3339Nano, string(raw))
		if parseErr != nil {
			return discard("corrupted timestamp")
		}
		updated = ts
	case !errors.Is(err, ErrNotFound):
		logger.Warn().Err(err).Str("key", key).Msg("failed to read cart timestamp, using snapshot time")
	}

	if updated.IsZero() {
		return discard("missing timestamp")
	}
	if retention > 0 && now.Sub(updated) > retention {
		return discard("expired")
	}

	items := make([]LineItem, 0, len(snap.Items))
	seen := make(map[string]bool, len(snap.Items))
	for _, item := range snap.Items {
		if seen[item.ID] || (limits.MaxItems > 0 && len(items) >= limits.MaxItems) {
			continue
		}
		if err := validateLine(item, limits); err != nil {
			logger.Debug().Err(err).Str("line_id", item.ID).Msg("dropping invalid persisted cart line")
			continue
		}
		seen[item.ID] = true
		items = append(items, item)
	}

	logger.Debug().Str("key", key).Int("lines", len(items)).Msg("cart rehydrated")

	return derive(items, updated)
}
