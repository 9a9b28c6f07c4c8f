package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeeder_Seed(t *testing.T) {
	f := newMarketFixture(t, newTestStore(t))
	ctx := context.Background()
	seeder := NewSeeder(f.accounts, f.recipes)

	report, err := seeder.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1+len(demoCooks), report.Accounts)
	assert.Equal(t, len(demoCooks), report.Recipes)

	recipes, err := f.recipes.ListRecipes(ctx, RecipeFilter{Category: "Lebanese"})
	require.NoError(t, err)
	require.Len(t, recipes, 1)
	assert.Equal(t, "Abu Mohamed", recipes[0].CookName)

	umAli, err := f.accounts.GetAccount(ctx, "demo-cook-um-ali")
	require.NoError(t, err)
	assert.Equal(t, []string{"Arabic", "Traditional"}, umAli.Profile.Specialties)

	again, err := seeder.Seed(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Accounts)
	assert.Zero(t, again.Recipes)

	all, err := f.recipes.ListRecipes(ctx, RecipeFilter{})
	require.NoError(t, err)
	assert.Len(t, all, len(demoCooks))
}
