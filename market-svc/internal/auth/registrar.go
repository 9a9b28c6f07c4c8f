package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"homecook-market/market-svc/internal/domain"
)

var (
	ErrAlreadyRegistered = errors.New("identity already registered")
	ErrRejected          = errors.New("identity provider rejected registration")
)

type Registration struct {
	Email    string
	Password string
	Name     string
	Role     domain.Role
}

type Registrar interface {
	Register(ctx context.Context, reg Registration) (string, error)
}

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ProviderRegistrar creates users through the hosted identity provider's
// admin API, pre-confirming the email address.
type ProviderRegistrar struct {
	baseURL    string
	serviceKey string
	client     HTTPClient
}

func NewProviderRegistrar(baseURL, serviceKey string, client HTTPClient) *ProviderRegistrar {
	return &ProviderRegistrar{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		client:     client,
	}
}

type adminCreateUserRequest struct {
	Email        string       `json:"email"`
	Password     string       `json:"password"`
	EmailConfirm bool         `json:"email_confirm"`
	UserMetadata UserMetadata `json:"user_metadata"`
}

type adminErrorResponse struct {
	Msg     string `json:"msg"`
	Message string `json:"message"`
	Error   string `json:"error_description"`
}

func (r *ProviderRegistrar) Register(ctx context.Context, reg Registration) (string, error) {
	body, err := json.Marshal(adminCreateUserRequest{
		Email:        reg.Email,
		Password:     reg.Password,
		EmailConfirm: true,
		UserMetadata: UserMetadata{Name: reg.Name, UserType: string(reg.Role)},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/auth/v1/admin/users", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", r.serviceKey)
	req.Header.Set("Authorization", "Bearer "+r.serviceKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("identity provider request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read identity provider response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var apiErr adminErrorResponse
		_ = json.Unmarshal(payload, &apiErr)
		msg := firstNonEmpty(apiErr.Msg, apiErr.Message, apiErr.Error, resp.Status)
		if strings.Contains(msg, "already been registered") || strings.Contains(msg, "already registered") {
			return "", ErrAlreadyRegistered
		}
		if resp.StatusCode < 500 {
			return "", fmt.Errorf("%w: %s", ErrRejected, msg)
		}
		return "", fmt.Errorf("identity provider error: %s", msg)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(payload, &created); err != nil {
		return "", fmt.Errorf("decode identity provider response: %w", err)
	}
	if created.ID == "" {
		return "", errors.New("identity provider returned no user id")
	}
	return created.ID, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
