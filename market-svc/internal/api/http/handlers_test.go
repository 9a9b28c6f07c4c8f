package httpapi_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	httpapi "homecook-market/market-svc/internal/api/http"
	"homecook-market/market-svc/internal/auth"
	"homecook-market/market-svc/internal/domain"
	"homecook-market/market-svc/internal/mocks"
	"homecook-market/market-svc/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	cook     = domain.Identity{ID: "c1", Email: "cook@example.com", Name: "Um Ali", Role: domain.RoleCook}
	customer = domain.Identity{ID: "u1", Email: "eater@example.com", Name: "Layla", Role: domain.RoleCustomer}
)

type testServer struct {
	accounts *mocks.AccountService
	recipes  *mocks.RecipeService
	orders   *mocks.OrderService
	verifier *mocks.Verifier
	router   http.Handler
}

func newTestServer(t *testing.T, limiter *httpapi.RateLimiter) *testServer {
	s := &testServer{
		accounts: mocks.NewAccountService(t),
		recipes:  mocks.NewRecipeService(t),
		orders:   mocks.NewOrderService(t),
		verifier: mocks.NewVerifier(t),
	}
	handler := httpapi.NewHandler(s.accounts, s.recipes, s.orders, s.verifier, limiter)
	s.router = httpapi.NewRouter(handler)
	return s
}

func (s *testServer) as(identity domain.Identity) string {
	token := "token-" + identity.ID
	s.verifier.On("Verify", mock.Anything, token).Return(identity, nil).Maybe()
	return token
}

func (s *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do("GET", "/health", "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeBody(t, w)["status"])
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t, nil)
	s.verifier.On("Verify", mock.Anything, "").Return(domain.Identity{}, auth.ErrMissingToken).Once()
	s.verifier.On("Verify", mock.Anything, "garbage").Return(domain.Identity{}, auth.ErrInvalidToken).Once()

	w := s.do("GET", "/orders", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do("GET", "/orders", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Unauthorized", decodeBody(t, w)["error"])
}

func TestSignupHandler(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		prepareMocks func(*testServer)
		wantCode     int
	}{
		{
			name: "valid request",
			body: `{"email":"cook@example.com","password":"secret1","name":"Um Ali","userType":"cook"}`,
			prepareMocks: func(s *testServer) {
				s.accounts.On("Signup", mock.Anything, service.SignupInput{
					Email: "cook@example.com", Password: "secret1", Name: "Um Ali", Role: domain.RoleCook,
				}).Return(&domain.Account{ID: "c1", Email: "cook@example.com", Role: domain.RoleCook}, nil).Once()
			},
			wantCode: http.StatusOK,
		},
		{
			name:         "invalid JSON",
			body:         `{invalid}`,
			prepareMocks: func(s *testServer) {},
			wantCode:     http.StatusBadRequest,
		},
		{
			name:         "bad user type",
			body:         `{"email":"a@example.com","password":"secret1","name":"A","userType":"admin"}`,
			prepareMocks: func(s *testServer) {},
			wantCode:     http.StatusBadRequest,
		},
		{
			name:         "short password",
			body:         `{"email":"a@example.com","password":"123","name":"A","userType":"customer"}`,
			prepareMocks: func(s *testServer) {},
			wantCode:     http.StatusBadRequest,
		},
		{
			name: "duplicate email",
			body: `{"email":"a@example.com","password":"secret1","name":"A","userType":"customer"}`,
			prepareMocks: func(s *testServer) {
				s.accounts.On("Signup", mock.Anything, mock.Anything).
					Return(nil, fmt.Errorf("%w: email already registered", service.ErrConflict)).Once()
			},
			wantCode: http.StatusConflict,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			s := newTestServer(t, nil)
			testCase.prepareMocks(s)

			w := s.do("POST", "/signup", "", testCase.body)

			assert.Equal(t, testCase.wantCode, w.Code)
			if testCase.wantCode == http.StatusOK {
				body := decodeBody(t, w)
				assert.Equal(t, true, body["success"])
				assert.NotNil(t, body["user"])
			}
		})
	}
}

func TestSignupHandler_RateLimited(t *testing.T) {
	s := newTestServer(t, httpapi.NewRateLimiter(1, 1))
	s.accounts.On("Signup", mock.Anything, mock.Anything).
		Return(&domain.Account{ID: "u1"}, nil).Once()
	body := `{"email":"a@example.com","password":"secret1","name":"A","userType":"customer"}`

	first := s.do("POST", "/signup", "", body)
	second := s.do("POST", "/signup", "", body)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestSignupHandler_RateLimitKey(t *testing.T) {
	tests := []struct {
		name           string
		trustForwarded bool
		secondCode     int
	}{
		{name: "forwarded header ignored", trustForwarded: false, secondCode: http.StatusTooManyRequests},
		{name: "forwarded header trusted", trustForwarded: true, secondCode: http.StatusOK},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			limiter := httpapi.NewRateLimiter(1, 1)
			limiter.TrustForwarded = testCase.trustForwarded
			s := newTestServer(t, limiter)
			s.accounts.On("Signup", mock.Anything, mock.Anything).
				Return(&domain.Account{ID: "u1"}, nil).Maybe()
			body := `{"email":"a@example.com","password":"secret1","name":"A","userType":"customer"}`

			codes := make([]int, 0, 2)
			for _, forwarded := range []string{"198.51.100.1", "198.51.100.2"} {
				req := httptest.NewRequest("POST", "/signup", bytes.NewBufferString(body))
				req.Header.Set("Content-Type", "application/json")
				req.Header.Set("X-Forwarded-For", forwarded)
				w := httptest.NewRecorder()
				s.router.ServeHTTP(w, req)
				codes = append(codes, w.Code)
			}

			assert.Equal(t, []int{http.StatusOK, testCase.secondCode}, codes)
		})
	}
}

func TestCreateRecipeHandler(t *testing.T) {
	tests := []struct {
		name         string
		caller       domain.Identity
		body         string
		prepareMocks func(*testServer)
		wantCode     int
	}{
		{
			name:   "string numbers and cuisine alias",
			caller: cook,
			body:   `{"title":"Kebab","price":5.5,"cuisine":"Arabic","prepTime":"30","servings":"4"}`,
			prepareMocks: func(s *testServer) {
				s.recipes.On("CreateRecipe", mock.Anything, cook, mock.MatchedBy(func(in service.RecipeInput) bool {
					return in.Category == "Arabic" && in.PrepTime == 30 && in.Servings == 4 && in.Price.Equal(decimal.RequireFromString("5.5"))
				})).Return(&domain.Recipe{ID: "recipe_1", Title: "Kebab"}, nil).Once()
			},
			wantCode: http.StatusOK,
		},
		{
			name:         "customer forbidden",
			caller:       customer,
			body:         `{"title":"Kebab","price":5,"prepTime":30,"servings":4}`,
			prepareMocks: func(s *testServer) {},
			wantCode:     http.StatusForbidden,
		},
		{
			name:         "negative price",
			caller:       cook,
			body:         `{"title":"Kebab","price":-1,"prepTime":30,"servings":4}`,
			prepareMocks: func(s *testServer) {},
			wantCode:     http.StatusBadRequest,
		},
		{
			name:         "missing title",
			caller:       cook,
			body:         `{"price":5,"prepTime":30,"servings":4}`,
			prepareMocks: func(s *testServer) {},
			wantCode:     http.StatusBadRequest,
		},
		{
			name:         "non-numeric prep time",
			caller:       cook,
			body:         `{"title":"Kebab","price":5,"prepTime":"soon","servings":4}`,
			prepareMocks: func(s *testServer) {},
			wantCode:     http.StatusBadRequest,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			s := newTestServer(t, nil)
			token := s.as(testCase.caller)
			testCase.prepareMocks(s)

			w := s.do("POST", "/recipes", token, testCase.body)

			assert.Equal(t, testCase.wantCode, w.Code)
		})
	}
}

func TestListRecipesHandler(t *testing.T) {
	s := newTestServer(t, nil)
	s.recipes.On("ListRecipes", mock.Anything, service.RecipeFilter{Category: "Arabic", Search: "keb"}).
		Return([]domain.Recipe{{ID: "recipe_1", Price: decimal.NewFromInt(5)}}, nil).Once()

	w := s.do("GET", "/recipes?category=Arabic&search=keb", "", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"price":5`)
}

func TestRecipeRoutes(t *testing.T) {
	s := newTestServer(t, nil)
	s.recipes.On("ListRecipesByCook", mock.Anything, "c1").Return([]domain.Recipe{{ID: "recipe_1"}}, nil).Once()
	s.recipes.On("GetRecipe", mock.Anything, "recipe_missing").
		Return(nil, fmt.Errorf("%w: recipe recipe_missing", service.ErrNotFound)).Once()

	w := s.do("GET", "/recipes/cook/c1", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do("GET", "/recipes/recipe_missing", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateRecipeHandler(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.as(cook)
	s.recipes.On("UpdateRecipe", mock.Anything, cook, "recipe_1", mock.MatchedBy(func(p service.RecipePatch) bool {
		return p.Available != nil && !*p.Available && p.Title == nil
	})).Return(nil, fmt.Errorf("%w: recipe recipe_1 belongs to another cook", service.ErrForbidden)).Once()

	w := s.do("PUT", "/recipes/recipe_1", token, `{"available":false}`)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateOrderHandler(t *testing.T) {
	order := &domain.Order{ID: "order_1", Total: decimal.RequireFromString("11"), Status: domain.StatusPending}

	tests := []struct {
		name         string
		body         string
		prepareMocks func(*testServer)
		wantCode     int
	}{
		{
			name: "valid request",
			body: `{"items":[{"recipeId":"recipe_1","quantity":2}],"deliveryAddress":"Home"}`,
			prepareMocks: func(s *testServer) {
				s.orders.On("CreateOrder", mock.Anything, customer, service.OrderInput{
					Items:           []service.OrderItemInput{{RecipeID: "recipe_1", Quantity: 2}},
					DeliveryAddress: "Home",
				}).Return(order, nil).Once()
			},
			wantCode: http.StatusOK,
		},
		{
			name:         "empty items",
			body:         `{"items":[],"deliveryAddress":"Home"}`,
			prepareMocks: func(s *testServer) {},
			wantCode:     http.StatusBadRequest,
		},
		{
			name:         "zero quantity",
			body:         `{"items":[{"recipeId":"recipe_1","quantity":0}],"deliveryAddress":"Home"}`,
			prepareMocks: func(s *testServer) {},
			wantCode:     http.StatusBadRequest,
		},
		{
			name: "no recipe resolves",
			body: `{"items":[{"recipeId":"gone","quantity":1}],"deliveryAddress":"Home"}`,
			prepareMocks: func(s *testServer) {
				s.orders.On("CreateOrder", mock.Anything, customer, mock.Anything).
					Return(nil, fmt.Errorf("%w: none of the ordered recipes exist", service.ErrValidation)).Once()
			},
			wantCode: http.StatusBadRequest,
		},
		{
			name: "partial fan-out",
			body: `{"items":[{"recipeId":"recipe_1","quantity":1}],"deliveryAddress":"Home"}`,
			prepareMocks: func(s *testServer) {
				s.orders.On("CreateOrder", mock.Anything, customer, mock.Anything).
					Return(order, &service.PartialFanoutError{OrderID: "order_1", Err: errors.New("redis down")}).Once()
			},
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			s := newTestServer(t, nil)
			token := s.as(customer)
			testCase.prepareMocks(s)

			w := s.do("POST", "/orders", token, testCase.body)

			assert.Equal(t, testCase.wantCode, w.Code)
			if testCase.name == "partial fan-out" {
				assert.Equal(t, "order_1", decodeBody(t, w)["orderId"])
			}
		})
	}
}

func TestUpdateOrderStatusHandler(t *testing.T) {
	tests := []struct {
		name         string
		caller       domain.Identity
		body         string
		serviceErr   error
		callsService bool
		wantCode     int
	}{
		{name: "accepted", caller: cook, body: `{"status":"accepted"}`, callsService: true, wantCode: http.StatusOK},
		{name: "customer", caller: customer, body: `{"status":"accepted"}`, wantCode: http.StatusForbidden},
		{name: "missing status", caller: cook, body: `{}`, wantCode: http.StatusBadRequest},
		{name: "illegal transition", caller: cook, body: `{"status":"accepted"}`, serviceErr: service.ErrInvalidTransition, callsService: true, wantCode: http.StatusConflict},
		{name: "not involved", caller: cook, body: `{"status":"accepted"}`, serviceErr: service.ErrForbidden, callsService: true, wantCode: http.StatusForbidden},
		{name: "missing order", caller: cook, body: `{"status":"accepted"}`, serviceErr: service.ErrNotFound, callsService: true, wantCode: http.StatusNotFound},
		{name: "store failure", caller: cook, body: `{"status":"accepted"}`, serviceErr: errors.New("boom"), callsService: true, wantCode: http.StatusInternalServerError},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			s := newTestServer(t, nil)
			token := s.as(testCase.caller)
			if testCase.callsService {
				var order *domain.Order
				if testCase.serviceErr == nil {
					order = &domain.Order{ID: "order_1", Status: domain.StatusAccepted}
				}
				s.orders.On("UpdateOrderStatus", mock.Anything, testCase.caller, "order_1", domain.StatusAccepted).
					Return(order, testCase.serviceErr).Once()
			}

			w := s.do("PUT", "/orders/order_1/status", token, testCase.body)

			assert.Equal(t, testCase.wantCode, w.Code)
			if testCase.wantCode == http.StatusInternalServerError {
				assert.Equal(t, "Internal server error", decodeBody(t, w)["error"])
			}
		})
	}
}

func TestOrderReadHandlers(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.as(customer)
	s.orders.On("ListOrders", mock.Anything, customer).Return([]domain.Order{{ID: "order_2"}, {ID: "order_1"}}, nil).Once()
	s.orders.On("GetOrder", mock.Anything, customer, "order_9").Return(nil, service.ErrForbidden).Once()
	s.orders.On("OrderQRCode", mock.Anything, customer, "order_1").Return([]byte{0x89, 'P', 'N', 'G'}, nil).Once()

	w := s.do("GET", "/orders", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	var orders []domain.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &orders))
	assert.Equal(t, "order_2", orders[0].ID)

	w = s.do("GET", "/orders/order_9", token, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do("GET", "/orders/order_1/qrcode", token, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
}

func TestOrderTimelineHandler(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.as(customer)
	s.orders.On("OrderTimeline", mock.Anything, customer, "order_1").Return([]domain.TimelineEntry{
		{Type: domain.EventOrderCreated, Status: domain.StatusPending},
		{Type: domain.EventOrderStatusChanged, Status: domain.StatusAccepted, Previous: domain.StatusPending, ChangedBy: "c1"},
	}, nil).Once()
	s.orders.On("OrderTimeline", mock.Anything, customer, "order_missing").Return(nil, service.ErrNotFound).Once()

	w := s.do("GET", "/orders/order_1/timeline", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	var timeline []domain.TimelineEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &timeline))
	require.Len(t, timeline, 2)
	assert.Equal(t, domain.StatusAccepted, timeline[1].Status)

	w = s.do("GET", "/orders/order_missing/timeline", token, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProfileHandlers(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.as(cook)
	s.accounts.On("GetAccount", mock.Anything, "u1").Return(&domain.Account{ID: "u1", Name: "Layla"}, nil).Once()
	s.accounts.On("GetAccount", mock.Anything, "ghost").Return(nil, service.ErrNotFound).Once()
	s.accounts.On("UpdateProfile", mock.Anything, cook, mock.MatchedBy(func(u service.ProfileUpdate) bool {
		return u.Phone != nil && *u.Phone == "123" && len(u.Specialties) == 1
	})).Return(&domain.Account{ID: "c1"}, nil).Once()
	s.accounts.On("CookStats", mock.Anything, "c1").Return(&domain.CookStats{CookID: "c1", TotalOrders: 3}, nil).Once()
	s.accounts.On("FeaturedCooks", mock.Anything, service.DefaultFeaturedMax).Return([]domain.Account{{ID: "c1"}}, nil).Once()

	w := s.do("GET", "/profile/u1", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotNil(t, decodeBody(t, w)["user"])

	w = s.do("GET", "/profile/ghost", token, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do("PUT", "/profile", token, `{"phone":"123","specialties":["Arabic"]}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do("GET", "/cooks/c1/stats", token, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do("GET", "/featured-cooks", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	s.do("GET", "/health", "", "")
	w := s.do("GET", "/metrics", "", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "market_http_request_duration_seconds")
}
