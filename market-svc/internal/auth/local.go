package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var ErrBadCredentials = errors.New("invalid email or password")

type CredentialStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetIfAbsent(ctx context.Context, key string, value []byte) (bool, error)
}

type credential struct {
	ID           string `json:"id"`
	PasswordHash string `json:"password_hash"`
}

// LocalRegistrar stands in for the hosted identity provider in development
// and tests. Password hashes live next to the marketplace data.
type LocalRegistrar struct {
	store CredentialStore
	cost  int
}

func NewLocalRegistrar(store CredentialStore) *LocalRegistrar {
	return &LocalRegistrar{store: store, cost: bcrypt.DefaultCost}
}

func credentialKey(email string) string {
	return "credential:" + strings.ToLower(strings.TrimSpace(email))
}

func (r *LocalRegistrar) Register(ctx context.Context, reg Registration) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), r.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	cred := credential{ID: uuid.NewString(), PasswordHash: string(hash)}
	payload, err := json.Marshal(cred)
	if err != nil {
		return "", err
	}

	ok, err := r.store.SetIfAbsent(ctx, credentialKey(reg.Email), payload)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrAlreadyRegistered
	}
	return cred.ID, nil
}

// Authenticate returns the identity id for a matching email and password.
func (r *LocalRegistrar) Authenticate(ctx context.Context, email, password string) (string, error) {
	raw, err := r.store.Get(ctx, credentialKey(email))
	if err != nil {
		return "", ErrBadCredentials
	}

	var cred credential
	if err := json.Unmarshal(raw, &cred); err != nil {
		return "", fmt.Errorf("decode credential: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) != nil {
		return "", ErrBadCredentials
	}
	return cred.ID, nil
}
