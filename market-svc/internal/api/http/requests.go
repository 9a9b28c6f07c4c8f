package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"homecook-market/market-svc/internal/domain"
	"homecook-market/market-svc/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

// flexInt accepts both 30 and "30"; form inputs post numbers as strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("not a whole number: %q", s)
		}
		*f = flexInt(n)
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

type signupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required"`
	UserType string `json:"userType" validate:"required,oneof=customer cook"`
}

func (req signupRequest) toInput() service.SignupInput {
	return service.SignupInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     domain.Role(req.UserType),
	}
}

type profileRequest struct {
	Name        *string  `json:"name" validate:"omitempty,min=1"`
	Phone       *string  `json:"phone"`
	Address     *string  `json:"address"`
	Avatar      *string  `json:"avatar" validate:"omitempty,url"`
	Specialties []string `json:"specialties" validate:"omitempty,dive,required"`
}

func (req profileRequest) toUpdate() service.ProfileUpdate {
	return service.ProfileUpdate{
		Name:        req.Name,
		Phone:       req.Phone,
		Address:     req.Address,
		Avatar:      req.Avatar,
		Specialties: req.Specialties,
	}
}

type recipeRequest struct {
	Title        string          `json:"title" validate:"required"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Category     string          `json:"category"`
	Cuisine      string          `json:"cuisine"`
	PrepTime     flexInt         `json:"prepTime" validate:"gt=0"`
	Servings     flexInt         `json:"servings" validate:"gt=0"`
	Ingredients  []string        `json:"ingredients"`
	Instructions []string        `json:"instructions"`
	Image        string          `json:"image"`
}

func (req recipeRequest) toInput() (service.RecipeInput, error) {
	if req.Price.IsNegative() {
		return service.RecipeInput{}, fmt.Errorf("price cannot be negative")
	}
	category := req.Category
	if category == "" {
		category = req.Cuisine
	}
	return service.RecipeInput{
		Title:        req.Title,
		Description:  req.Description,
		Price:        req.Price,
		Category:     category,
		PrepTime:     int(req.PrepTime),
		Servings:     int(req.Servings),
		Ingredients:  req.Ingredients,
		Instructions: req.Instructions,
		Image:        req.Image,
	}, nil
}

type recipePatchRequest struct {
	Title        *string          `json:"title" validate:"omitempty,min=1"`
	Description  *string          `json:"description"`
	Price        *decimal.Decimal `json:"price"`
	Category     *string          `json:"category"`
	Cuisine      *string          `json:"cuisine"`
	PrepTime     *flexInt         `json:"prepTime" validate:"omitempty,gt=0"`
	Servings     *flexInt         `json:"servings" validate:"omitempty,gt=0"`
	Ingredients  []string         `json:"ingredients"`
	Instructions []string         `json:"instructions"`
	Image        *string          `json:"image"`
	Available    *bool            `json:"available"`
}

func (req recipePatchRequest) toPatch() (service.RecipePatch, error) {
	if req.Price != nil && req.Price.IsNegative() {
		return service.RecipePatch{}, fmt.Errorf("price cannot be negative")
	}
	patch := service.RecipePatch{
		Title:        req.Title,
		Description:  req.Description,
		Price:        req.Price,
		Category:     req.Category,
		Ingredients:  req.Ingredients,
		Instructions: req.Instructions,
		Image:        req.Image,
		Available:    req.Available,
	}
	if patch.Category == nil {
		patch.Category = req.Cuisine
	}
	if req.PrepTime != nil {
		n := int(*req.PrepTime)
		patch.PrepTime = &n
	}
	if req.Servings != nil {
		n := int(*req.Servings)
		patch.Servings = &n
	}
	return patch, nil
}

type orderItemRequest struct {
	RecipeID string  `json:"recipeId" validate:"required"`
	Quantity flexInt `json:"quantity" validate:"gt=0"`
}

type orderRequest struct {
	Items           []orderItemRequest `json:"items" validate:"required,min=1,dive"`
	DeliveryAddress string             `json:"deliveryAddress" validate:"required"`
}

func (req orderRequest) toInput() service.OrderInput {
	items := make([]service.OrderItemInput, len(req.Items))
	for i, item := range req.Items {
		items[i] = service.OrderItemInput{RecipeID: item.RecipeID, Quantity: int(item.Quantity)}
	}
	return service.OrderInput{Items: items, DeliveryAddress: req.DeliveryAddress}
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

// validationMessage flattens validator errors into one readable line.
func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
