package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"homecook-market/market-svc/internal/auth"
	"homecook-market/market-svc/internal/domain"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const (
	initialCookRating  = 5.0
	minPasswordLength  = 6
	DefaultFeaturedMax = 6
)

type SignupInput struct {
	Email    string
	Password string
	Name     string
	Role     domain.Role
}

// NewAccount describes an account for an identity that already exists at
// the identity provider.
type NewAccount struct {
	Identity string
	Email    string
	Name     string
	Role     domain.Role
}

// ProfileUpdate holds optional edits; nil fields are left unchanged.
type ProfileUpdate struct {
	Name        *string
	Phone       *string
	Address     *string
	Avatar      *string
	Specialties []string
}

type emailClaim struct {
	Email     string    `json:"email"`
	AccountID string    `json:"account_id,omitempty"`
	ClaimedAt time.Time `json:"claimed_at"`
}

type AccountService struct {
	store     KVStore
	registrar auth.Registrar
	now       func() time.Time
}

func NewAccountService(store KVStore, registrar auth.Registrar) *AccountService {
	return &AccountService{
		store:     store,
		registrar: registrar,
		now:       time.Now,
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AccountService) Signup(ctx context.Context, input SignupInput) (*domain.Account, error) {
	email := NormalizeEmail(input.Email)
	name := strings.TrimSpace(input.Name)
	switch {
	case email == "" || !strings.Contains(email, "@"):
		return nil, validationError("a valid email is required")
	case len(input.Password) < minPasswordLength:
		return nil, validationError("password must be at least %d characters", minPasswordLength)
	case name == "":
		return nil, validationError("name is required")
	case !input.Role.Valid():
		return nil, validationError("userType must be customer or cook")
	}

	if err := s.claimEmail(ctx, email); err != nil {
		return nil, err
	}

	identity, err := s.registrar.Register(ctx, auth.Registration{
		Email:    email,
		Password: input.Password,
		Name:     name,
		Role:     input.Role,
	})
	if err != nil {
		s.releaseEmail(ctx, email)
		switch {
		case errors.Is(err, auth.ErrAlreadyRegistered):
			return nil, fmt.Errorf("%w: email already registered", ErrConflict)
		case errors.Is(err, auth.ErrRejected):
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return nil, fmt.Errorf("register identity: %w", err)
	}

	// The identity exists upstream from here on, so the claim is kept.
	account, err := s.writeAccount(ctx, identity, email, name, input.Role)
	if err != nil {
		log.WithFields(log.Fields{"identity": identity, "email": email}).
			Errorf("identity registered but account write failed: %v", err)
		return nil, err
	}
	return account, nil
}

func (s *AccountService) CreateAccount(ctx context.Context, input NewAccount) (*domain.Account, error) {
	email := NormalizeEmail(input.Email)
	if input.Identity == "" || email == "" {
		return nil, validationError("identity and email are required")
	}
	if !input.Role.Valid() {
		return nil, validationError("userType must be customer or cook")
	}

	if err := s.claimEmail(ctx, email); err != nil {
		return nil, err
	}
	account, err := s.writeAccount(ctx, input.Identity, email, strings.TrimSpace(input.Name), input.Role)
	if err != nil {
		s.releaseEmail(ctx, email)
		return nil, err
	}
	return account, nil
}

func (s *AccountService) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	var account domain.Account
	if err := loadRecord(ctx, s.store, userKey(id), &account); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, id)
		}
		return nil, err
	}
	return &account, nil
}

func (s *AccountService) UpdateProfile(ctx context.Context, caller domain.Identity, update ProfileUpdate) (*domain.Account, error) {
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		return nil, validationError("name cannot be empty")
	}

	account, err := mutateRecord(ctx, s.store, userKey(caller.ID), func(a *domain.Account) error {
		if update.Name != nil {
			a.Name = strings.TrimSpace(*update.Name)
		}
		if update.Phone != nil {
			a.Profile.Phone = *update.Phone
		}
		if update.Address != nil {
			a.Profile.Address = *update.Address
		}
		if update.Avatar != nil {
			a.Profile.Avatar = *update.Avatar
		}
		if update.Specialties != nil {
			if a.Role != domain.RoleCook {
				return validationError("only cooks have specialties")
			}
			a.Profile.Specialties = dedupe(update.Specialties)
		}
		a.UpdatedAt = s.now().UTC()
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, caller.ID)
	}
	return account, err
}

// FeaturedCooks ranks cooks by rating*0.7 + totalOrders*0.3.
func (s *AccountService) FeaturedCooks(ctx context.Context, limit int) ([]domain.Account, error) {
	if limit <= 0 {
		limit = DefaultFeaturedMax
	}

	accounts, err := scanRecords[domain.Account](ctx, s.store, userPrefix)
	if err != nil {
		return nil, err
	}

	type ranked struct {
		account domain.Account
		score   float64
	}
	cooks := make([]ranked, 0, len(accounts))
	for _, account := range accounts {
		if account.Role != domain.RoleCook {
			continue
		}
		counters, err := s.store.Counters(ctx, cookStatsKey(account.ID))
		if err != nil {
			return nil, fmt.Errorf("cook stats %s: %w", account.ID, err)
		}
		totalOrders := counters[statTotalOrders]
		account.Profile.TotalOrders = &totalOrders

		rating := 0.0
		if account.Profile.Rating != nil {
			rating = *account.Profile.Rating
		}
		cooks = append(cooks, ranked{
			account: account,
			score:   rating*0.7 + float64(totalOrders)*0.3,
		})
	}

	sort.SliceStable(cooks, func(i, j int) bool {
		return cooks[i].score > cooks[j].score
	})
	if len(cooks) > limit {
		cooks = cooks[:limit]
	}

	featured := make([]domain.Account, len(cooks))
	for i, c := range cooks {
		featured[i] = c.account
	}
	return featured, nil
}

func (s *AccountService) CookStats(ctx context.Context, cookID string) (*domain.CookStats, error) {
	account, err := s.GetAccount(ctx, cookID)
	if err != nil {
		return nil, err
	}
	if account.Role != domain.RoleCook {
		return nil, fmt.Errorf("%w: %s is not a cook", ErrNotFound, cookID)
	}

	counters, err := s.store.Counters(ctx, cookStatsKey(cookID))
	if err != nil {
		return nil, fmt.Errorf("cook stats %s: %w", cookID, err)
	}

	stats := &domain.CookStats{
		CookID:      cookID,
		TotalOrders: counters[statTotalOrders],
		TotalSales:  decimal.New(counters[statTotalSales], -2),
		ReviewCount: counters[statReviewCount],
	}
	if account.Profile.Rating != nil {
		stats.Rating = *account.Profile.Rating
	}
	return stats, nil
}

// claimEmail rejects addresses already used by a stored account, then takes
// the atomic email claim so two concurrent signups cannot both pass.
func (s *AccountService) claimEmail(ctx context.Context, email string) error {
	accounts, err := scanRecords[domain.Account](ctx, s.store, userPrefix)
	if err != nil {
		return err
	}
	for _, account := range accounts {
		if NormalizeEmail(account.Email) == email {
			return fmt.Errorf("%w: email already registered", ErrConflict)
		}
	}

	payload, err := json.Marshal(emailClaim{Email: email, ClaimedAt: s.now().UTC()})
	if err != nil {
		return err
	}
	claimed, err := s.store.SetIfAbsent(ctx, emailKey(email), payload)
	if err != nil {
		return fmt.Errorf("claim email: %w", err)
	}
	if !claimed {
		return fmt.Errorf("%w: email already registered", ErrConflict)
	}
	return nil
}

func (s *AccountService) releaseEmail(ctx context.Context, email string) {
	if err := s.store.Delete(ctx, emailKey(email)); err != nil {
		log.WithField("email", email).Warnf("failed to release email claim: %v", err)
	}
}

func (s *AccountService) writeAccount(ctx context.Context, id, email, name string, role domain.Role) (*domain.Account, error) {
	now := s.now().UTC()
	account := domain.Account{
		ID:        id,
		Email:     email,
		Name:      name,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if role == domain.RoleCook {
		rating := initialCookRating
		account.Profile.Rating = &rating
		account.Profile.Specialties = []string{}
	}

	if err := saveRecord(ctx, s.store, userKey(id), account); err != nil {
		return nil, err
	}

	// Record the owner on the claim; an empty AccountID marks an abandoned signup.
	if payload, err := json.Marshal(emailClaim{Email: email, AccountID: id, ClaimedAt: now}); err == nil {
		if err := s.store.Set(ctx, emailKey(email), payload); err != nil {
			log.WithField("email", email).Warnf("failed to finalize email claim: %v", err)
		}
	}

	if role == domain.RoleCook {
		for _, field := range []string{statTotalOrders, statTotalSales, statReviewCount} {
			if _, err := s.store.IncrCounter(ctx, cookStatsKey(id), field, 0); err != nil {
				return nil, fmt.Errorf("init cook stats: %w", err)
			}
		}
	}

	log.WithFields(log.Fields{"identity": id, "role": role}).Info("account created")
	return &account, nil
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
