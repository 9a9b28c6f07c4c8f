package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"homecook-market/config"
	httpapi "homecook-market/market-svc/internal/api/http"
	"homecook-market/market-svc/internal/auth"
	"homecook-market/market-svc/internal/domain"
	"homecook-market/market-svc/internal/events"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// market-svc serve
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if a.cfg.SeedDemo && !a.cfg.IsProduction() {
			if _, err := a.newSeeder().Seed(ctx); err != nil {
				return fmt.Errorf("seed demo data: %w", err)
			}
		}

		if a.cfg.ReindexSchedule != "" {
			scheduler := cron.New()
			if _, err := scheduler.AddFunc(a.cfg.ReindexSchedule, func() {
				if _, err := a.reconciler.Rebuild(ctx); err != nil {
					log.Errorf("scheduled reindex failed: %v", err)
				}
			}); err != nil {
				return fmt.Errorf("invalid REINDEX_SCHEDULE: %w", err)
			}
			scheduler.Start()
			defer scheduler.Stop()
			log.WithField("schedule", a.cfg.ReindexSchedule).Info("reindex scheduled")
		}

		limiter := httpapi.NewRateLimiter(a.cfg.SignupRatePerMin, a.cfg.SignupRatePerMin)
		limiter.TrustForwarded = a.cfg.Server.TrustProxyHeaders
		go func() {
			ticker := time.NewTicker(10 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					limiter.Cleanup(30 * time.Minute)
				case <-ctx.Done():
					return
				}
			}
		}()

		handler := httpapi.NewHandler(a.accounts, a.recipes, a.orders, auth.NewJWTVerifier(a.cfg.Auth.JWTSecret), limiter)
		server := &http.Server{
			Addr:         ":" + a.cfg.Server.Port,
			Handler:      httpapi.NewRouter(handler),
			ReadTimeout:  a.cfg.Server.ReadTimeout,
			WriteTimeout: a.cfg.Server.WriteTimeout,
		}
		return httpapi.StartServer(ctx, server)
	},
}

// market-svc seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write demo cooks, a demo customer and recipes",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if a.cfg.IsProduction() {
			return errors.New("refusing to seed demo data in production")
		}
		report, err := a.newSeeder().Seed(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd, report)
	},
}

// market-svc reindex
var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild order and recipe indices and counters from primary records",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.reconciler.Rebuild(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd, report)
	},
}

// market-svc consume
var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Project order events from the broker into order timelines",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if a.cfg.Kafka.Broker == "" {
			return errors.New("KAFKA_BROKER is required to consume order events")
		}
		reader := config.NewKafkaReader(a.cfg.Kafka.Broker, a.cfg.Kafka.Topic, a.cfg.Kafka.GroupID)
		defer reader.Close()

		log.WithFields(log.Fields{
			"topic": a.cfg.Kafka.Topic,
			"group": a.cfg.Kafka.GroupID,
		}).Info("consuming order events")
		return events.NewConsumer(reader, a.orders).Start(ctx)
	},
}

var (
	tokenUser     string
	tokenEmail    string
	tokenPassword string
	tokenTTL      time.Duration
)

// market-svc token
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a development bearer token for an existing account",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if a.cfg.IsProduction() {
			return errors.New("token minting is disabled in production")
		}

		userID := tokenUser
		if tokenEmail != "" {
			if a.local == nil {
				return errors.New("--email needs the local registrar; unset IDENTITY_URL")
			}
			userID, err = a.local.Authenticate(cmd.Context(), tokenEmail, tokenPassword)
			if err != nil {
				return err
			}
		}
		if userID == "" {
			return errors.New("pass --user or --email/--password")
		}

		account, err := a.accounts.GetAccount(cmd.Context(), userID)
		if err != nil {
			return err
		}
		token, err := auth.IssueToken(a.cfg.Auth.JWTSecret, domain.Identity{
			ID:    account.ID,
			Email: account.Email,
			Name:  account.Name,
			Role:  account.Role,
		}, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "account id")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "email registered with the local registrar")
	tokenCmd.Flags().StringVar(&tokenPassword, "password", "", "password for --email")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
