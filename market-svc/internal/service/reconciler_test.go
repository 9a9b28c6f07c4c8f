package service

import (
	"context"
	"testing"

	"homecook-market/market-svc/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconciler_RestoresDeletedIndicesWithoutDoubleCounting(t *testing.T) {
	f := newMarketFixture(t, newTestStore(t))
	ctx := context.Background()
	cook := f.account(t, "c1", "Um Ali", domain.RoleCook)
	customer := f.account(t, "u1", "Layla", domain.RoleCustomer)
	kebab := f.recipe(t, cook, "Kebab", "5")

	order, err := f.orders.CreateOrder(ctx, customer, OrderInput{
		Items:           []OrderItemInput{{RecipeID: kebab.ID, Quantity: 3}},
		DeliveryAddress: "Home",
	})
	require.NoError(t, err)

	require.NoError(t, f.store.Delete(ctx, cookRecipesKey(cook.ID)))
	require.NoError(t, f.store.RemoveFromIndex(ctx, customerOrdersKey(customer.ID), order.ID))

	reconciler := NewReconciler(f.store)
	report, err := reconciler.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Recipes)
	assert.Equal(t, 1, report.Orders)
	assert.Equal(t, 2, report.IndexEntries)
	assert.Equal(t, 0, report.Counters)

	members, err := f.store.IndexMembers(ctx, cookRecipesKey(cook.ID))
	require.NoError(t, err)
	assert.Equal(t, []string{kebab.ID}, members)

	orders, err := f.orders.ListOrders(ctx, customer)
	require.NoError(t, err)
	require.Len(t, orders, 1)

	got, err := f.recipes.GetRecipe(ctx, kebab.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.TotalOrders)

	stats, err := f.accounts.CookStats(ctx, cook.ID)
	require.NoError(t, err)
	assert.Equal(t, "15.00", stats.TotalSales.StringFixed(2))

	again, err := reconciler.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, again.IndexEntries)
	assert.Equal(t, 0, again.Counters)
}

func TestReconciler_AppliesMissingCounters(t *testing.T) {
	store := newTestStore(t)
	f := newMarketFixture(t, store)
	ctx := context.Background()
	cook := f.account(t, "c1", "Um Ali", domain.RoleCook)
	kebab := f.recipe(t, cook, "Kebab", "4.50")

	// An order written without any fan-out, as after a crash mid-request.
	order := domain.Order{
		ID:         "order_1_abc",
		CustomerID: "u1",
		Items:      []domain.LineItem{{RecipeID: kebab.ID, Quantity: 2, Title: "Kebab", UnitPrice: kebab.Price}},
		Total:      mustDecimal(t, "10"),
		Status:     domain.StatusPending,
		CreatedAt:  testEpoch,
	}
	require.NoError(t, saveRecord(ctx, store, orderKey(order.ID), order))

	report, err := NewReconciler(store).Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.IndexEntries)
	assert.Equal(t, 3, report.Counters)

	stats, err := f.accounts.CookStats(ctx, cook.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalOrders)
	assert.Equal(t, "9.00", stats.TotalSales.StringFixed(2))
}
