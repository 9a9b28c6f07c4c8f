package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

type Role string

const (
	RoleCustomer Role = "customer"
	RoleCook     Role = "cook"
)

func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleCook
}

// Identity is what the identity verifier vouches for on each request.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"userType"`
}

type Profile struct {
	Phone       string   `json:"phone"`
	Address     string   `json:"address"`
	Avatar      string   `json:"avatar"`
	Rating      *float64 `json:"rating"`
	Specialties []string `json:"specialties"`
	TotalOrders *int64   `json:"totalOrders,omitempty"`
}

type Account struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"userType"`
	Profile   Profile   `json:"profile"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Recipe struct {
	ID           string          `json:"id"`
	CookID       string          `json:"cookId"`
	CookName     string          `json:"cookName"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Category     string          `json:"category"`
	PrepTime     int             `json:"prepTime"`
	Servings     int             `json:"servings"`
	Ingredients  []string        `json:"ingredients"`
	Instructions []string        `json:"instructions"`
	Image        string          `json:"image"`
	Available    bool            `json:"available"`
	Rating       float64         `json:"rating"`
	TotalOrders  int64           `json:"totalOrders"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type LineItem struct {
	RecipeID  string          `json:"recipeId"`
	Quantity  int             `json:"quantity"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Subtotal is the snapshot price times quantity.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

type Order struct {
	ID                string          `json:"id"`
	CustomerID        string          `json:"customerId"`
	CustomerName      string          `json:"customerName"`
	Items             []LineItem      `json:"items"`
	Total             decimal.Decimal `json:"total"`
	DeliveryAddress   string          `json:"deliveryAddress"`
	Status            OrderStatus     `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	EstimatedDelivery time.Time       `json:"estimatedDelivery"`
}

type CookStats struct {
	CookID      string          `json:"cookId"`
	TotalOrders int64           `json:"totalOrders"`
	TotalSales  decimal.Decimal `json:"totalSales"`
	ReviewCount int64           `json:"reviewCount"`
	Rating      float64         `json:"rating"`
}
