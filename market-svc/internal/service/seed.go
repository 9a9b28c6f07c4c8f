package service

import (
	"context"
	"errors"

	"homecook-market/market-svc/internal/domain"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type demoCook struct {
	account     NewAccount
	avatar      string
	specialties []string
	recipes     []RecipeInput
}

var demoCustomer = NewAccount{
	Identity: "demo-customer",
	Email:    "customer@demo.homecook",
	Name:     "Demo Customer",
	Role:     domain.RoleCustomer,
}

var demoCooks = []demoCook{
	{
		account:     NewAccount{Identity: "demo-cook-um-ali", Email: "um.ali@demo.homecook", Name: "Um Ali", Role: domain.RoleCook},
		avatar:      "https://images.unsplash.com/photo-1607631568010-a87245c0daf8?w=200",
		specialties: []string{"Arabic", "Traditional"},
		recipes: []RecipeInput{{
			Title:       "Grilled Kebab",
			Description: "Fresh grilled kebab with authentic Arabic spices and herbs",
			Price:       decimal.NewFromInt(5),
			Category:    "Arabic",
			PrepTime:    30,
			Servings:    4,
			Ingredients: []string{"Minced lamb", "Onion", "Parsley", "Seven spices"},
			Image:       "https://images.unsplash.com/photo-1544025162-d76694265947?w=400",
		}},
	},
	{
		account:     NewAccount{Identity: "demo-cook-abu-mohamed", Email: "abu.mohamed@demo.homecook", Name: "Abu Mohamed", Role: domain.RoleCook},
		avatar:      "https://images.unsplash.com/photo-1622253692010-333f2da6031d?w=200",
		specialties: []string{"Lebanese", "Grilled"},
		recipes: []RecipeInput{{
			Title:       "Grilled Chicken",
			Description: "Tender grilled chicken with Mediterranean herbs",
			Price:       decimal.NewFromInt(6),
			Category:    "Lebanese",
			PrepTime:    25,
			Servings:    3,
			Ingredients: []string{"Chicken thighs", "Garlic", "Lemon", "Olive oil"},
			Image:       "https://images.unsplash.com/photo-1532550907401-a500c9a57435?w=400",
		}},
	},
	{
		account:     NewAccount{Identity: "demo-cook-sarah-ahmed", Email: "sarah.ahmed@demo.homecook", Name: "Sarah Ahmed", Role: domain.RoleCook},
		avatar:      "https://images.unsplash.com/photo-1494790108755-2616b612b786?w=200",
		specialties: []string{"Seafood", "Mediterranean"},
		recipes: []RecipeInput{{
			Title:       "Grilled Fish",
			Description: "Fresh fish grilled with lemon and Mediterranean spices",
			Price:       decimal.NewFromInt(8),
			Category:    "Mediterranean",
			PrepTime:    20,
			Servings:    2,
			Ingredients: []string{"Sea bream", "Lemon", "Cumin", "Coriander"},
			Image:       "https://images.unsplash.com/photo-1519708227418-c8fd9a32b7a2?w=400",
		}},
	},
}

type SeedReport struct {
	Accounts int `json:"accounts"`
	Recipes  int `json:"recipes"`
}

// Seeder writes demo accounts and recipes through the directory and the
// catalog. Running it twice adds nothing.
type Seeder struct {
	accounts *AccountService
	recipes  *RecipeService
}

func NewSeeder(accounts *AccountService, recipes *RecipeService) *Seeder {
	return &Seeder{accounts: accounts, recipes: recipes}
}

func (s *Seeder) Seed(ctx context.Context) (SeedReport, error) {
	var report SeedReport

	created, err := s.ensureAccount(ctx, demoCustomer)
	if err != nil {
		return report, err
	}
	if created {
		report.Accounts++
	}

	for _, cook := range demoCooks {
		created, err := s.ensureAccount(ctx, cook.account)
		if err != nil {
			return report, err
		}
		if created {
			report.Accounts++
			avatar := cook.avatar
			caller := domain.Identity{ID: cook.account.Identity, Name: cook.account.Name, Role: domain.RoleCook}
			if _, err := s.accounts.UpdateProfile(ctx, caller, ProfileUpdate{Avatar: &avatar, Specialties: cook.specialties}); err != nil {
				return report, err
			}
		}

		existing, err := s.recipes.ListRecipesByCook(ctx, cook.account.Identity)
		if err != nil {
			return report, err
		}
		if len(existing) > 0 {
			continue
		}

		caller := domain.Identity{ID: cook.account.Identity, Name: cook.account.Name, Role: domain.RoleCook}
		for _, input := range cook.recipes {
			if _, err := s.recipes.CreateRecipe(ctx, caller, input); err != nil {
				return report, err
			}
			report.Recipes++
		}
	}

	log.WithFields(log.Fields{"accounts": report.Accounts, "recipes": report.Recipes}).Info("demo data seeded")
	return report, nil
}

func (s *Seeder) ensureAccount(ctx context.Context, account NewAccount) (bool, error) {
	_, err := s.accounts.CreateAccount(ctx, account)
	if errors.Is(err, ErrConflict) {
		return false, nil
	}
	return err == nil, err
}
