package service

import (
	"context"

	"homecook-market/market-svc/internal/domain"
	"homecook-market/market-svc/internal/storage"
)

// KVStore is the persistence contract. Besides get/set/prefix-scan it exposes
// the atomic primitives both backends provide natively; nothing here spans
// more than one key.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetIfAbsent(ctx context.Context, key string, value []byte) (bool, error)
	Delete(ctx context.Context, key string) error
	CompareAndSwap(ctx context.Context, key string, old, value []byte) (bool, error)
	GetByPrefix(ctx context.Context, prefix string) ([][]byte, error)
	AddToIndex(ctx context.Context, key string, members ...string) (int64, error)
	RemoveFromIndex(ctx context.Context, key string, members ...string) error
	IndexMembers(ctx context.Context, key string) ([]string, error)
	IncrCounter(ctx context.Context, key, field string, delta int64) (int64, error)
	// IncrCounterOnce adds marker to the set at markerKey and increments the
	// field atomically. It reports false, changing nothing, if the marker
	// was already present.
	IncrCounterOnce(ctx context.Context, markerKey, marker, key, field string, delta int64) (bool, error)
	Counters(ctx context.Context, key string) (map[string]int64, error)
}

type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event domain.OrderEvent) error
}

type AccountServiceInterface interface {
	Signup(ctx context.Context, input SignupInput) (*domain.Account, error)
	CreateAccount(ctx context.Context, input NewAccount) (*domain.Account, error)
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	UpdateProfile(ctx context.Context, caller domain.Identity, update ProfileUpdate) (*domain.Account, error)
	FeaturedCooks(ctx context.Context, limit int) ([]domain.Account, error)
	CookStats(ctx context.Context, cookID string) (*domain.CookStats, error)
}

type RecipeServiceInterface interface {
	ListRecipes(ctx context.Context, filter RecipeFilter) ([]domain.Recipe, error)
	CreateRecipe(ctx context.Context, caller domain.Identity, input RecipeInput) (*domain.Recipe, error)
	GetRecipe(ctx context.Context, id string) (*domain.Recipe, error)
	UpdateRecipe(ctx context.Context, caller domain.Identity, id string, patch RecipePatch) (*domain.Recipe, error)
	ListRecipesByCook(ctx context.Context, cookID string) ([]domain.Recipe, error)
}

type OrderServiceInterface interface {
	CreateOrder(ctx context.Context, caller domain.Identity, input OrderInput) (*domain.Order, error)
	ListOrders(ctx context.Context, caller domain.Identity) ([]domain.Order, error)
	GetOrder(ctx context.Context, caller domain.Identity, id string) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, caller domain.Identity, id string, status domain.OrderStatus) (*domain.Order, error)
	OrderQRCode(ctx context.Context, caller domain.Identity, id string) ([]byte, error)
	OrderTimeline(ctx context.Context, caller domain.Identity, id string) ([]domain.TimelineEntry, error)
}

var (
	_ KVStore        = (*storage.RedisStore)(nil)
	_ KVStore        = (*storage.PostgresStore)(nil)
	_ EventPublisher = (*storage.KafkaPublisher)(nil)

	_ AccountServiceInterface = (*AccountService)(nil)
	_ RecipeServiceInterface  = (*RecipeService)(nil)
	_ OrderServiceInterface   = (*OrderService)(nil)
)
