package mocks

import (
	"context"

	"homecook-market/market-svc/internal/domain"
	"homecook-market/market-svc/internal/service"

	"github.com/stretchr/testify/mock"
)

// RecipeService is a mock type for the RecipeServiceInterface type
type RecipeService struct {
	mock.Mock
}

func (_m *RecipeService) ListRecipes(ctx context.Context, filter service.RecipeFilter) ([]domain.Recipe, error) {
	ret := _m.Called(ctx, filter)

	var r0 []domain.Recipe
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]domain.Recipe)
	}
	return r0, ret.Error(1)
}

func (_m *RecipeService) CreateRecipe(ctx context.Context, caller domain.Identity, input service.RecipeInput) (*domain.Recipe, error) {
	ret := _m.Called(ctx, caller, input)

	var r0 *domain.Recipe
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*domain.Recipe)
	}
	return r0, ret.Error(1)
}

func (_m *RecipeService) GetRecipe(ctx context.Context, id string) (*domain.Recipe, error) {
	ret := _m.Called(ctx, id)

	var r0 *domain.Recipe
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*domain.Recipe)
	}
	return r0, ret.Error(1)
}

func (_m *RecipeService) UpdateRecipe(ctx context.Context, caller domain.Identity, id string, patch service.RecipePatch) (*domain.Recipe, error) {
	ret := _m.Called(ctx, caller, id, patch)

	var r0 *domain.Recipe
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*domain.Recipe)
	}
	return r0, ret.Error(1)
}

func (_m *RecipeService) ListRecipesByCook(ctx context.Context, cookID string) ([]domain.Recipe, error) {
	ret := _m.Called(ctx, cookID)

	var r0 []domain.Recipe
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]domain.Recipe)
	}
	return r0, ret.Error(1)
}

// NewRecipeService creates a new instance of RecipeService. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewRecipeService(t interface {
	mock.TestingT
	Cleanup(func())
}) *RecipeService {
	m := &RecipeService{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
