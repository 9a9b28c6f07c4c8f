package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"homecook-market/market-svc/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const (
	initialRecipeRating = 5.0
	allCategories       = "All"
	anonymousCook       = "Anonymous Cook"
)

type RecipeFilter struct {
	Category string
	Search   string
}

type RecipeInput struct {
	Title        string
	Description  string
	Price        decimal.Decimal
	Category     string
	PrepTime     int
	Servings     int
	Ingredients  []string
	Instructions []string
	Image        string
}

// RecipePatch holds optional edits; nil fields are left unchanged.
type RecipePatch struct {
	Title        *string
	Description  *string
	Price        *decimal.Decimal
	Category     *string
	PrepTime     *int
	Servings     *int
	Ingredients  []string
	Instructions []string
	Image        *string
	Available    *bool
}

type RecipeService struct {
	store KVStore
	now   func() time.Time
}

func NewRecipeService(store KVStore) *RecipeService {
	return &RecipeService{store: store, now: time.Now}
}

func (s *RecipeService) ListRecipes(ctx context.Context, filter RecipeFilter) ([]domain.Recipe, error) {
	recipes, err := s.allRecipes(ctx)
	if err != nil {
		return nil, err
	}

	category := strings.TrimSpace(filter.Category)
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	matched := recipes[:0]
	for _, r := range recipes {
		if category != "" && category != allCategories && r.Category != category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(r.Title), search) &&
			!strings.Contains(strings.ToLower(r.Description), search) &&
			!strings.Contains(strings.ToLower(r.CookName), search) {
			continue
		}
		matched = append(matched, r)
	}
	return matched, nil
}

func (s *RecipeService) CreateRecipe(ctx context.Context, caller domain.Identity, input RecipeInput) (*domain.Recipe, error) {
	if caller.Role != domain.RoleCook {
		return nil, fmt.Errorf("%w: only cooks can create recipes", ErrForbidden)
	}
	if err := validateRecipe(input.Title, input.Price, input.PrepTime, input.Servings); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	recipe := domain.Recipe{
		ID:           "recipe_" + uuid.NewString(),
		CookID:       caller.ID,
		CookName:     s.cookName(ctx, caller),
		Title:        strings.TrimSpace(input.Title),
		Description:  input.Description,
		Price:        input.Price,
		Category:     input.Category,
		PrepTime:     input.PrepTime,
		Servings:     input.Servings,
		Ingredients:  nonNil(input.Ingredients),
		Instructions: nonNil(input.Instructions),
		Image:        input.Image,
		Available:    true,
		Rating:       initialRecipeRating,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := saveRecord(ctx, s.store, recipeKey(recipe.ID), recipe); err != nil {
		return nil, err
	}

	// Listings scan primary records, so a missed index entry only waits for
	// the reconciler.
	if _, err := s.store.AddToIndex(ctx, cookRecipesKey(caller.ID), recipe.ID); err != nil {
		log.WithFields(log.Fields{"recipe": recipe.ID, "cook": caller.ID}).
			Warnf("recipe saved but cook index update failed: %v", err)
	}

	log.WithFields(log.Fields{"recipe": recipe.ID, "cook": caller.ID}).Info("recipe created")
	return &recipe, nil
}

func (s *RecipeService) GetRecipe(ctx context.Context, id string) (*domain.Recipe, error) {
	var recipe domain.Recipe
	if err := loadRecord(ctx, s.store, recipeKey(id), &recipe); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: recipe %s", ErrNotFound, id)
		}
		return nil, err
	}

	counters, err := s.store.Counters(ctx, recipeOrdersKey)
	if err != nil {
		return nil, fmt.Errorf("recipe counters: %w", err)
	}
	hydrateTotalOrders(&recipe, counters)
	return &recipe, nil
}

func (s *RecipeService) UpdateRecipe(ctx context.Context, caller domain.Identity, id string, patch RecipePatch) (*domain.Recipe, error) {
	if caller.Role != domain.RoleCook {
		return nil, fmt.Errorf("%w: only cooks can edit recipes", ErrForbidden)
	}

	recipe, err := mutateRecord(ctx, s.store, recipeKey(id), func(r *domain.Recipe) error {
		if r.CookID != caller.ID {
			return fmt.Errorf("%w: recipe %s belongs to another cook", ErrForbidden, id)
		}
		applyRecipePatch(r, patch)
		if err := validateRecipe(r.Title, r.Price, r.PrepTime, r.Servings); err != nil {
			return err
		}
		r.UpdatedAt = s.now().UTC()
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: recipe %s", ErrNotFound, id)
	}
	return recipe, err
}

func (s *RecipeService) ListRecipesByCook(ctx context.Context, cookID string) ([]domain.Recipe, error) {
	recipes, err := s.allRecipes(ctx)
	if err != nil {
		return nil, err
	}

	owned := recipes[:0]
	for _, r := range recipes {
		if r.CookID == cookID {
			owned = append(owned, r)
		}
	}
	return owned, nil
}

// allRecipes returns every recipe, newest first, with order counters
// hydrated.
func (s *RecipeService) allRecipes(ctx context.Context) ([]domain.Recipe, error) {
	recipes, err := scanRecords[domain.Recipe](ctx, s.store, recipePrefix)
	if err != nil {
		return nil, err
	}
	counters, err := s.store.Counters(ctx, recipeOrdersKey)
	if err != nil {
		return nil, fmt.Errorf("recipe counters: %w", err)
	}
	for i := range recipes {
		hydrateTotalOrders(&recipes[i], counters)
	}

	sort.SliceStable(recipes, func(i, j int) bool {
		return recipes[i].CreatedAt.After(recipes[j].CreatedAt)
	})
	return recipes, nil
}

func (s *RecipeService) cookName(ctx context.Context, caller domain.Identity) string {
	var account domain.Account
	if err := loadRecord(ctx, s.store, userKey(caller.ID), &account); err == nil && account.Name != "" {
		return account.Name
	}
	if caller.Name != "" {
		return caller.Name
	}
	return anonymousCook
}

func hydrateTotalOrders(recipe *domain.Recipe, counters map[string]int64) {
	if n := counters[recipe.ID]; n > recipe.TotalOrders {
		recipe.TotalOrders = n
	}
}

func validateRecipe(title string, price decimal.Decimal, prepTime, servings int) error {
	switch {
	case strings.TrimSpace(title) == "":
		return validationError("title is required")
	case price.IsNegative():
		return validationError("price cannot be negative")
	case prepTime <= 0:
		return validationError("prepTime must be positive")
	case servings <= 0:
		return validationError("servings must be positive")
	}
	return nil
}

func applyRecipePatch(r *domain.Recipe, patch RecipePatch) {
	if patch.Title != nil {
		r.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		r.Description = *patch.Description
	}
	if patch.Price != nil {
		r.Price = *patch.Price
	}
	if patch.Category != nil {
		r.Category = *patch.Category
	}
	if patch.PrepTime != nil {
		r.PrepTime = *patch.PrepTime
	}
	if patch.Servings != nil {
		r.Servings = *patch.Servings
	}
	if patch.Ingredients != nil {
		r.Ingredients = patch.Ingredients
	}
	if patch.Instructions != nil {
		r.Instructions = patch.Instructions
	}
	if patch.Image != nil {
		r.Image = *patch.Image
	}
	if patch.Available != nil {
		r.Available = *patch.Available
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
