package main

import (
	"context"
	"fmt"
	"net/http"

	"homecook-market/config"
	"homecook-market/market-svc/internal/auth"
	"homecook-market/market-svc/internal/service"
	"homecook-market/market-svc/internal/storage"

	log "github.com/sirupsen/logrus"
)

// app holds the wired services shared by every command.
type app struct {
	cfg        *config.Config
	store      service.KVStore
	registrar  auth.Registrar
	local      *auth.LocalRegistrar
	publisher  *storage.KafkaPublisher
	accounts   *service.AccountService
	recipes    *service.RecipeService
	orders     *service.OrderService
	reconciler *service.Reconciler
	closers    []func() error
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	config.ConfigureLogging(cfg)

	a := &app{cfg: cfg}
	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	if cfg.Auth.IdentityURL != "" {
		a.registrar = auth.NewProviderRegistrar(cfg.Auth.IdentityURL, cfg.Auth.IdentityServiceKey, &http.Client{Timeout: cfg.Server.WriteTimeout})
	} else {
		log.Info("IDENTITY_URL not set, registering identities locally")
		a.local = auth.NewLocalRegistrar(a.store)
		a.registrar = a.local
	}

	// A nil *KafkaPublisher must not reach the ledger as a non-nil interface.
	var publisher service.EventPublisher
	if cfg.Kafka.Broker != "" {
		a.publisher = storage.NewKafkaPublisher(config.NewKafkaWriter(cfg.Kafka.Broker, cfg.Kafka.Topic))
		a.closers = append(a.closers, a.publisher.Close)
		publisher = a.publisher
	}

	qr := service.DefaultQRGenerator{BaseURL: cfg.PublicBaseURL}
	retry := service.RetryPolicy{MaxRetries: cfg.Ledger.FanoutRetries, Backoff: cfg.Ledger.FanoutBackoff}

	a.accounts = service.NewAccountService(a.store, a.registrar)
	a.recipes = service.NewRecipeService(a.store)
	a.orders = service.NewOrderService(a.store, publisher, qr, retry)
	a.reconciler = service.NewReconciler(a.store)
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	switch a.cfg.Store.Driver {
	case config.DriverPostgres:
		db := config.MustInitPostgres(a.cfg.Store.PostgresDSN)
		store := storage.NewPostgresStore(db)
		if err := store.Migrate(ctx); err != nil {
			db.Close()
			return fmt.Errorf("migrate kv_store: %w", err)
		}
		a.store = store
		a.closers = append(a.closers, db.Close)
	default:
		client := config.MustInitRedis(a.cfg.Store.RedisAddr)
		a.store = storage.NewRedisStore(client)
		a.closers = append(a.closers, client.Close)
	}
	log.WithField("driver", a.cfg.Store.Driver).Info("store connected")
	return nil
}

func (a *app) newSeeder() *service.Seeder {
	return service.NewSeeder(a.accounts, a.recipes)
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warnf("close: %v", err)
		}
	}
}
