package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"homecook-market/market-svc/internal/metrics"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
)

func NewRouter(handler *Handler) http.Handler {
	r := mux.NewRouter()
	r.Use(metrics.Middleware)
	r.Handle("/metrics", metrics.Handler()).Methods("GET")
	handler.RegisterRoutes(r)

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         600,
	}).Handler(r)
}

// StartServer serves until ctx is cancelled, then drains in-flight requests.
func StartServer(ctx context.Context, server *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).Info("market service listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("shutting down market service")
	return server.Shutdown(shutdownCtx)
}
