package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"homecook-market/market-svc/internal/auth"
	"homecook-market/market-svc/internal/domain"
	"homecook-market/market-svc/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("store unavailable")

func newTestStore(t *testing.T) *storage.RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return storage.NewRedisStore(client)
}

type fakeRegistrar struct {
	id    string
	err   error
	calls int
}

func (f *fakeRegistrar) Register(_ context.Context, _ auth.Registration) (string, error) {
	f.calls++
	return f.id, f.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.OrderEvent
	err    error
}

func (p *recordingPublisher) PublishOrderEvent(_ context.Context, event domain.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

type fakeQR struct{}

func (fakeQR) Generate(orderID string) ([]byte, error) {
	return []byte("png:" + orderID), nil
}

// flakyStore fails guarded increments while failIncr is positive, and every
// AddToIndex on keys with failIndexPrefix. While lostReplies is positive a
// guarded increment is applied but still reports an error.
type flakyStore struct {
	KVStore
	mu              sync.Mutex
	failIncr        int
	lostReplies     int
	failIndexPrefix string
}

func (f *flakyStore) IncrCounterOnce(ctx context.Context, markerKey, marker, key, field string, delta int64) (bool, error) {
	f.mu.Lock()
	if f.failIncr > 0 {
		f.failIncr--
		f.mu.Unlock()
		return false, errStoreDown
	}
	lost := f.lostReplies > 0
	if lost {
		f.lostReplies--
	}
	f.mu.Unlock()

	applied, err := f.KVStore.IncrCounterOnce(ctx, markerKey, marker, key, field, delta)
	if lost && err == nil {
		return false, errStoreDown
	}
	return applied, err
}

func (f *flakyStore) AddToIndex(ctx context.Context, key string, members ...string) (int64, error) {
	if f.failIndexPrefix != "" && strings.HasPrefix(key, f.failIndexPrefix) {
		return 0, errStoreDown
	}
	return f.KVStore.AddToIndex(ctx, key, members...)
}

func fixedClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
}

var (
	testEpoch  = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	testPolicy = RetryPolicy{MaxRetries: 2, Backoff: time.Millisecond}
)

type marketFixture struct {
	store     KVStore
	accounts  *AccountService
	recipes   *RecipeService
	orders    *OrderService
	publisher *recordingPublisher
}

func newMarketFixture(t *testing.T, store KVStore) *marketFixture {
	t.Helper()
	clock := fixedClock(testEpoch)
	publisher := &recordingPublisher{}

	accounts := NewAccountService(store, &fakeRegistrar{})
	accounts.now = clock
	recipes := NewRecipeService(store)
	recipes.now = clock
	orders := NewOrderService(store, publisher, fakeQR{}, testPolicy)
	orders.now = clock

	return &marketFixture{
		store:     store,
		accounts:  accounts,
		recipes:   recipes,
		orders:    orders,
		publisher: publisher,
	}
}

func (f *marketFixture) account(t *testing.T, id, name string, role domain.Role) domain.Identity {
	t.Helper()
	_, err := f.accounts.CreateAccount(context.Background(), NewAccount{
		Identity: id,
		Email:    id + "@example.com",
		Name:     name,
		Role:     role,
	})
	require.NoError(t, err)
	return domain.Identity{ID: id, Email: id + "@example.com", Name: name, Role: role}
}

func (f *marketFixture) recipe(t *testing.T, cook domain.Identity, title, price string) *domain.Recipe {
	t.Helper()
	recipe, err := f.recipes.CreateRecipe(context.Background(), cook, RecipeInput{
		Title:    title,
		Price:    mustDecimal(t, price),
		Category: "Arabic",
		PrepTime: 30,
		Servings: 2,
	})
	require.NoError(t, err)
	return recipe
}
