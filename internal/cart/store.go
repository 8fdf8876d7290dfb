package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// Listener receives an Event after every committed mutation. Listeners run synchronously
// on the mutating goroutine; they may read the store but must not mutate it.
type Listener func(Event)

// Store holds one session's cart. It is constructed once and passed to whatever needs the
// cart; every mutation goes through the pure Reduce function, then the new state is
// persisted asynchronously and announced to subscribers.
type Store struct {
	limits Limits
	now    func() time.Time
	logger zerolog.Logger

	// dispatchMu serializes mutations together with their notifications.
	dispatchMu sync.Mutex

	mu    sync.RWMutex
	state State

	listenersMu sync.Mutex
	listeners   []subscription
	nextID      int

	persister *persister
}

type subscription struct {
	id int
	fn Listener
}

type options struct {
	key          string
	retention    time.Duration
	limits       Limits
	now          func() time.Time
	logger       zerolog.Logger
	writeTimeout time.Duration
}

// Option configures a Store.
type Option func(*options)

// WithKey sets the storage key of the cart snapshot.
func WithKey(key string) Option {
	return func(o *options) { o.key = key }
}

// WithRetention sets how long an unmodified persisted cart stays valid.
func WithRetention(d time.Duration) Option {
	return func(o *options) { o.retention = d }
}

// WithLimits sets the cart size limits.
func WithLimits(l Limits) Option {
	return func(o *options) { o.limits = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithWriteTimeout bounds each storage write.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) { o.writeTimeout = d }
}

// New creates a store and rehydrates it from storage. Rehydration never fails; see loadState.
func New(ctx context.Context, storage Storage, opts ...Option) *Store {
	o := options{
		key:          DefaultKey,
		retention:    DefaultRetention,
		limits:       DefaultLimits(),
		now:          time.Now,
		logger:       zerolog.Nop(),
		writeTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger.With().Str("component", "cart-store").Logger()

	s := &Store{
		limits:    o.limits,
		now:       o.now,
		logger:    logger,
		persister: newPersister(storage, o.key, o.writeTimeout, logger),
	}
	s.state = loadState(ctx, storage, o.key, o.retention, o.limits, o.now(), logger)

	logger.Debug().
		Int("lines", len(s.state.Items)).
		Int("total_items", s.state.TotalItems).
		Msg("cart store initialised")

	return s
}

// State returns a copy of the current cart.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Limits returns the limits the store enforces.
func (s *Store) Limits() Limits {
	return s.limits
}

// Subscribe registers l and returns a function that unregisters it.
func (s *Store) Subscribe(l Listener) func() {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, subscription{id: id, fn: l})
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()
		for i, sub := range s.listeners {
			if sub.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// Dispatch applies a to the cart. On error the cart is left unchanged and nothing is
// persisted or announced.
func (s *Store) Dispatch(a Action) (Event, error) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	next, ev, err := Reduce(s.state, a, s.limits, s.now())
	if err != nil {
		s.mu.Unlock()
		s.logger.Debug().
			Err(err).
			Str("action", string(a.Type)).
			Str("code", model.ErrorCode(err)).
			Msg("cart mutation rejected")
		return Event{}, err
	}
	s.state = next
	s.mu.Unlock()

	s.persister.enqueue(next)
	s.notify(ev)

	return ev, nil
}

// AddItem adds in to the cart, merging with an existing line for the same product and
// options. It returns the resulting line.
func (s *Store) AddItem(in ItemInput) (LineItem, error) {
	ev, err := s.Dispatch(AddItem(in))
	if err != nil {
		return LineItem{}, err
	}
	return *ev.Item, nil
}

// RemoveItem removes the line with the given id.
func (s *Store) RemoveItem(id string) error {
	_, err := s.Dispatch(RemoveItem(id))
	return err
}

// UpdateQuantity sets a line's quantity. A quantity below 1 removes the line.
func (s *Store) UpdateQuantity(id string, qty int) error {
	_, err := s.Dispatch(UpdateQuantity(id, qty))
	return err
}

// Clear empties the cart.
func (s *Store) Clear() error {
	_, err := s.Dispatch(Clear())
	return err
}

// GetItem returns the line for productID with the given options.
func (s *Store) GetItem(productID string, opts Options) (LineItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.state.Find(LineID(productID, opts))
	if idx < 0 {
		return LineItem{}, false
	}
	item := s.state.Items[idx]
	item.Options = item.Options.clone()
	return item, true
}

// IsInCart reports whether productID with the given options is in the cart.
func (s *Store) IsInCart(productID string, opts Options) bool {
	_, ok := s.GetItem(productID, opts)
	return ok
}

// ProductQuantity returns the quantity of productID across all of its option variants.
func (s *Store) ProductQuantity(productID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	qty := 0
	for _, item := range s.state.Items {
		if item.ProductID == productID {
			qty += item.Quantity
		}
	}
	return qty
}

// Flush waits for pending writes and reports a STORAGE_ERROR if the newest write failed.
func (s *Store) Flush(ctx context.Context) error {
	if err := s.persister.flush(ctx); err != nil {
		return storageError(err)
	}
	return nil
}

// Close flushes pending writes and stops the persistence goroutine.
func (s *Store) Close(ctx context.Context) error {
	if err := s.persister.close(ctx); err != nil {
		return storageError(err)
	}
	return nil
}

func (s *Store) notify(ev Event) {
	s.listenersMu.Lock()
	listeners := make([]Listener, len(s.listeners))
	for i, sub := range s.listeners {
		listeners[i] = sub.fn
	}
	s.listenersMu.Unlock()

	for _, l := range listeners {
		l(ev)
	}
}

func storageError(err error) error {
	return fmt.Errorf("%w: %v", model.ErrStorage, err)
}
