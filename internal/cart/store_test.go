package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// failingStorage reads as empty and fails every write.
type failingStorage struct{}

func (failingStorage) Get(context.Context, string) ([]byte, error) { return nil, ErrNotFound }
func (failingStorage) Set(context.Context, string, []byte) error {
	return errors.New("disk full")
}
func (failingStorage) Remove(context.Context, string) error { return errors.New("disk full") }

func newTestStore(t *testing.T, storage Storage, clock *fakeClock, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithClock(clock.Now), WithLogger(zerolog.Nop())}, opts...)
	s := New(context.Background(), storage, opts...)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestStore_AddAndQuery(t *testing.T) {
	clock := &fakeClock{now: testNow}
	s := newTestStore(t, NewMemoryStorage(), clock)

	blue := tee(1)
	blue.Options = Options{"colour": "blue"}
	red := tee(2)
	red.Options = Options{"colour": "red"}

	line, err := s.AddItem(blue)
	require.NoError(t, err)
	assert.Equal(t, "tee|colour=blue", line.ID)
	_, err = s.AddItem(red)
	require.NoError(t, err)

	got, ok := s.GetItem("tee", Options{"colour": "red"})
	require.True(t, ok)
	assert.Equal(t, 2, got.Quantity)
	assert.True(t, s.IsInCart("tee", Options{"colour": "blue"}))
	assert.False(t, s.IsInCart("tee", nil))
	assert.Equal(t, 3, s.ProductQuantity("tee"))
	assert.Equal(t, 0, s.ProductQuantity("mug"))

	state := s.State()
	assert.Equal(t, 3, state.TotalItems)
	assert.True(t, state.TotalPrice.Equal(mustDec("59.97")))
}

func TestStore_StateIsACopy(t *testing.T) {
	s := newTestStore(t, NewMemoryStorage(), &fakeClock{now: testNow})
	_, err := s.AddItem(tee(1))
	require.NoError(t, err)

	state := s.State()
	state.Items[0].Quantity = 99

	assert.Equal(t, 1, s.State().Items[0].Quantity)
}

func TestStore_Listeners(t *testing.T) {
	s := newTestStore(t, NewMemoryStorage(), &fakeClock{now: testNow})

	var events []Event
	unsubscribe := s.Subscribe(func(ev Event) {
		events = append(events, ev)
	})

	_, err := s.AddItem(tee(1))
	require.NoError(t, err)
	require.NoError(t, s.UpdateQuantity("tee", 2))

	_, err = s.AddItem(tee(10))
	require.Error(t, err, "rejected mutations must not notify")

	require.NoError(t, s.RemoveItem("tee"))
	require.NoError(t, s.Clear())

	require.Len(t, events, 4)
	assert.Equal(t, EventAdded, events[0].Type)
	assert.Equal(t, EventUpdated, events[1].Type)
	assert.Equal(t, 2, events[1].State.TotalItems)
	assert.Equal(t, EventRemoved, events[2].Type)
	assert.Equal(t, EventCleared, events[3].Type)

	unsubscribe()
	_, err = s.AddItem(tee(1))
	require.NoError(t, err)
	assert.Len(t, events, 4)
}

func TestStore_ListenerCanReadStore(t *testing.T) {
	s := newTestStore(t, NewMemoryStorage(), &fakeClock{now: testNow})

	var seen int
	s.Subscribe(func(ev Event) {
		seen = s.State().TotalItems
	})

	_, err := s.AddItem(tee(3))
	require.NoError(t, err)
	assert.Equal(t, 3, seen)
}

func TestStore_PersistenceRoundTrip(t *testing.T) {
	storage := NewMemoryStorage()
	clock := &fakeClock{now: testNow}

	first := New(context.Background(), storage, WithClock(clock.Now))
	in := tee(2)
	in.Image = "https://cdn.example.com/tee.png"
	in.Options = Options{"size": "L"}
	_, err := first.AddItem(in)
	require.NoError(t, err)
	_, err = first.AddItem(ItemInput{ProductID: "mug", Name: "Mug", Price: mustDec("5.50"), Quantity: 1, MaxStock: 3})
	require.NoError(t, err)
	require.NoError(t, first.Close(context.Background()))

	clock.Advance(24 * time.Hour)
	second := newTestStore(t, storage, clock)

	want := first.State()
	got := second.State()
	require.Len(t, got.Items, len(want.Items))
	for i := range want.Items {
		assert.Equal(t, want.Items[i].ID, got.Items[i].ID)
		assert.Equal(t, want.Items[i].Quantity, got.Items[i].Quantity)
		assert.Equal(t, want.Items[i].MaxStock, got.Items[i].MaxStock)
		assert.Equal(t, want.Items[i].Image, got.Items[i].Image)
		assert.Equal(t, want.Items[i].Options, got.Items[i].Options)
		assert.True(t, want.Items[i].Price.Equal(got.Items[i].Price))
		assert.True(t, want.Items[i].AddedAt.Equal(got.Items[i].AddedAt))
	}
	assert.Equal(t, want.TotalItems, got.TotalItems)
	assert.True(t, want.TotalPrice.Equal(got.TotalPrice))
	assert.True(t, want.LastUpdated.Equal(got.LastUpdated))
}

func TestStore_ExpiredCartIsDiscarded(t *testing.T) {
	storage := NewMemoryStorage()
	clock := &fakeClock{now: testNow}

	first := New(context.Background(), storage, WithClock(clock.Now))
	_, err := first.AddItem(tee(1))
	require.NoError(t, err)
	require.NoError(t, first.Close(context.Background()))

	clock.Advance(DefaultRetention + time.Minute)
	second := newTestStore(t, storage, clock)

	assert.True(t, second.State().IsEmpty())
	_, err = storage.Get(context.Background(), DefaultKey)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = storage.Get(context.Background(), TimestampKey(DefaultKey))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_CorruptedDataIsDiscarded(t *testing.T) {
	tests := []struct {
		name      string
		snapshot  string
		timestamp string
	}{
		{name: "invalid json", snapshot: "{not json", timestamp: testNow.Format(time.RFC3339)},
		{name: "invalid timestamp", snapshot: `{"items":[],"lastUpdated":"2026-03-14T09:30:00Z"}`, timestamp: "yesterday"},
		{name: "no timestamp anywhere", snapshot: `{"items":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			storage := NewMemoryStorage()
			require.NoError(t, storage.Set(ctx, DefaultKey, []byte(tt.snapshot)))
			if tt.timestamp != "" {
				require.NoError(t, storage.Set(ctx, TimestampKey(DefaultKey), []byte(tt.timestamp)))
			}

			s := newTestStore(t, storage, &fakeClock{now: testNow})

			assert.True(t, s.State().IsEmpty())
			_, err := storage.Get(ctx, DefaultKey)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_InvalidPersistedLinesAreDropped(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	data := `{"items":[
		{"id":"tee","productId":"tee","name":"T-Shirt","price":"19.99","quantity":2,"maxStock":5},
		{"id":"tee","productId":"tee","name":"T-Shirt","price":"19.99","quantity":1,"maxStock":5},
		{"id":"ghost","productId":"ghost","name":"","price":"1","quantity":1,"maxStock":5},
		{"id":"wrong","productId":"mug","name":"Mug","price":"5","quantity":1,"maxStock":5},
		{"id":"greedy","productId":"greedy","name":"Greedy","price":"1","quantity":9,"maxStock":5}
	],"lastUpdated":"2026-03-14T09:00:00Z"}`
	require.NoError(t, storage.Set(ctx, DefaultKey, []byte(data)))
	require.NoError(t, storage.Set(ctx, TimestampKey(DefaultKey), []byte("2026-03-14T09:00:00Z")))

	s := newTestStore(t, storage, &fakeClock{now: testNow})

	state := s.State()
	require.Len(t, state.Items, 1)
	assert.Equal(t, "tee", state.Items[0].ID)
	assert.Equal(t, 2, state.TotalItems)
	assert.True(t, state.TotalPrice.Equal(mustDec("39.98")), "totals are re-derived, not trusted")
}

func TestStore_ClearRemovesPersistedCart(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	s := newTestStore(t, storage, &fakeClock{now: testNow})

	_, err := s.AddItem(tee(1))
	require.NoError(t, err)
	require.NoError(t, s.Flush(ctx))
	_, err = storage.Get(ctx, DefaultKey)
	require.NoError(t, err)

	require.NoError(t, s.Clear())
	require.NoError(t, s.Flush(ctx))

	_, err = storage.Get(ctx, DefaultKey)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = storage.Get(ctx, TimestampKey(DefaultKey))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_FlushReportsStorageError(t *testing.T) {
	s := newTestStore(t, failingStorage{}, &fakeClock{now: testNow})

	_, err := s.AddItem(tee(1))
	require.NoError(t, err, "the in-memory mutation succeeds regardless of storage")
	assert.Equal(t, 1, s.State().TotalItems)

	err = s.Flush(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrStorage)
	assert.Equal(t, model.ErrCodeStorageError, model.ErrorCode(err))
	assert.Contains(t, err.Error(), "disk full")
}

func TestStore_CustomKeyAndLimits(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	s := newTestStore(t, storage, &fakeClock{now: testNow},
		WithKey("alice_cart"),
		WithLimits(Limits{MaxItems: 1, MaxQuantityPerItem: 2}),
		WithRetention(time.Hour),
		WithWriteTimeout(time.Second),
	)

	assert.Equal(t, Limits{MaxItems: 1, MaxQuantityPerItem: 2}, s.Limits())
	_, err := s.AddItem(tee(3))
	assert.Equal(t, model.ErrCodeInvalidQuantity, model.ErrorCode(err))
	_, err = s.AddItem(tee(2))
	require.NoError(t, err)
	_, err = s.AddItem(ItemInput{ProductID: "mug", Name: "Mug", Price: mustDec("1"), Quantity: 1, MaxStock: 1})
	assert.ErrorIs(t, err, model.ErrCartFull)

	require.NoError(t, s.Flush(ctx))
	_, err = storage.Get(ctx, "alice_cart")
	assert.NoError(t, err)
}

func TestStore_ConcurrentMutations(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	s := newTestStore(t, storage, &fakeClock{now: testNow}, WithLimits(Limits{MaxItems: 50, MaxQuantityPerItem: 100}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AddItem(ItemInput{ProductID: "pen", Name: "Pen", Price: mustDec("1"), Quantity: 1, MaxStock: 100})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, s.ProductQuantity("pen"))
	require.NoError(t, s.Flush(ctx))

	reloaded := newTestStore(t, storage, &fakeClock{now: testNow})
	assert.Equal(t, 20, reloaded.ProductQuantity("pen"), "the newest snapshot wins")
}
