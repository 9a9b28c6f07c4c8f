package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"homecook-market/market-svc/internal/auth"
	"homecook-market/market-svc/internal/domain"
	"homecook-market/market-svc/internal/service"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	Accounts      service.AccountServiceInterface
	Recipes       service.RecipeServiceInterface
	Orders        service.OrderServiceInterface
	Verifier      auth.Verifier
	SignupLimiter *RateLimiter
}

func NewHandler(
	accounts service.AccountServiceInterface,
	recipes service.RecipeServiceInterface,
	orders service.OrderServiceInterface,
	verifier auth.Verifier,
	signupLimiter *RateLimiter,
) *Handler {
	return &Handler{
		Accounts:      accounts,
		Recipes:       recipes,
		Orders:        orders,
		Verifier:      verifier,
		SignupLimiter: signupLimiter,
	}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.healthCheck).Methods("GET")

	signup := h.signup
	if h.SignupLimiter != nil {
		signup = h.SignupLimiter.Wrap(signup)
	}
	r.HandleFunc("/signup", signup).Methods("POST")

	r.HandleFunc("/profile/{userId}", h.authed(h.getProfile)).Methods("GET")
	r.HandleFunc("/profile", h.authed(h.updateProfile)).Methods("PUT")
	r.HandleFunc("/featured-cooks", h.featuredCooks).Methods("GET")
	r.HandleFunc("/cooks/{cookId}/stats", h.authed(h.cookStats)).Methods("GET")

	r.HandleFunc("/recipes", h.listRecipes).Methods("GET")
	r.HandleFunc("/recipes", h.authed(h.createRecipe)).Methods("POST")
	r.HandleFunc("/recipes/cook/{cookId}", h.listCookRecipes).Methods("GET")
	r.HandleFunc("/recipes/{recipeId}", h.getRecipe).Methods("GET")
	r.HandleFunc("/recipes/{recipeId}", h.authed(h.updateRecipe)).Methods("PUT")

	r.HandleFunc("/orders", h.authed(h.createOrder)).Methods("POST")
	r.HandleFunc("/orders", h.authed(h.listOrders)).Methods("GET")
	r.HandleFunc("/orders/{orderId}", h.authed(h.getOrder)).Methods("GET")
	r.HandleFunc("/orders/{orderId}/qrcode", h.authed(h.getOrderQRCode)).Methods("GET")
	r.HandleFunc("/orders/{orderId}/timeline", h.authed(h.getOrderTimeline)).Methods("GET")
	r.HandleFunc("/orders/{orderId}/status", h.authed(h.updateOrderStatus)).Methods("PUT")
}

func (h *Handler) authed(next http.HandlerFunc) http.HandlerFunc {
	return RequireAuth(h.Verifier, next)
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"service":   "market-svc",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	account, err := h.Accounts.Signup(r.Context(), req.toInput())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Account created successfully",
		"user":    account,
	})
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	account, err := h.Accounts.GetAccount(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"user": account})
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFrom(r.Context())
	var req profileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	account, err := h.Accounts.UpdateProfile(r.Context(), caller, req.toUpdate())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "user": account})
}

func (h *Handler) featuredCooks(w http.ResponseWriter, r *http.Request) {
	cooks, err := h.Accounts.FeaturedCooks(r.Context(), service.DefaultFeaturedMax)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cooks)
}

func (h *Handler) cookStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Accounts.CookStats(r.Context(), mux.Vars(r)["cookId"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *Handler) listRecipes(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	recipes, err := h.Recipes.ListRecipes(r.Context(), service.RecipeFilter{
		Category: query.Get("category"),
		Search:   query.Get("search"),
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, recipes)
}

func (h *Handler) createRecipe(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFrom(r.Context())
	if caller.Role != domain.RoleCook {
		respondError(w, http.StatusForbidden, "Only cooks can create recipes")
		return
	}

	var req recipeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	recipe, err := h.Recipes.CreateRecipe(r.Context(), caller, input)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "recipe": recipe})
}

func (h *Handler) getRecipe(w http.ResponseWriter, r *http.Request) {
	recipe, err := h.Recipes.GetRecipe(r.Context(), mux.Vars(r)["recipeId"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, recipe)
}

func (h *Handler) updateRecipe(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFrom(r.Context())
	var req recipePatchRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	recipe, err := h.Recipes.UpdateRecipe(r.Context(), caller, mux.Vars(r)["recipeId"], patch)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "recipe": recipe})
}

func (h *Handler) listCookRecipes(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.Recipes.ListRecipesByCook(r.Context(), mux.Vars(r)["cookId"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, recipes)
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFrom(r.Context())
	var req orderRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	order, err := h.Orders.CreateOrder(r.Context(), caller, req.toInput())
	if err != nil {
		var partial *service.PartialFanoutError
		if errors.As(err, &partial) {
			log.WithField("order", partial.OrderID).Errorf("order created with incomplete fan-out: %v", partial.Err)
			respondJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"error":   "Order was saved but could not be fully indexed",
				"orderId": partial.OrderID,
			})
			return
		}
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "order": order})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFrom(r.Context())
	orders, err := h.Orders.ListOrders(r.Context(), caller)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFrom(r.Context())
	order, err := h.Orders.GetOrder(r.Context(), caller, mux.Vars(r)["orderId"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *Handler) getOrderQRCode(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFrom(r.Context())
	png, err := h.Orders.OrderQRCode(r.Context(), caller, mux.Vars(r)["orderId"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

func (h *Handler) getOrderTimeline(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFrom(r.Context())
	timeline, err := h.Orders.OrderTimeline(r.Context(), caller, mux.Vars(r)["orderId"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, timeline)
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFrom(r.Context())
	if caller.Role != domain.RoleCook {
		respondError(w, http.StatusForbidden, "Only cooks can update order status")
		return
	}

	var req statusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	order, err := h.Orders.UpdateOrderStatus(r.Context(), caller, mux.Vars(r)["orderId"], domain.OrderStatus(req.Status))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "order": order})
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		respondError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.WithFields(log.Fields{"method": r.Method, "path": r.URL.Path}).Errorf("request failed: %v", err)
		respondError(w, status, "Internal server error")
		return
	}
	respondError(w, status, err.Error())
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Errorf("error encoding JSON response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
