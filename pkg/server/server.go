package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	handlers "github.com/de-tools/guest-lifecycle/pkg/handlers/guests"
	"github.com/de-tools/guest-lifecycle/pkg/store/sqlite/runs"

	guestsmiddleware "github.com/de-tools/guest-lifecycle/pkg/server/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

const defaultShutdownTimeout = 10 * time.Second

type WebAPI struct {
	router          *chi.Mux
	logger          *zerolog.Logger
	server          *http.Server
	shutdownTimeout time.Duration
}

type Dependencies struct {
	Runner handlers.Runner
	Runs   runs.Store
}

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	// RequestTimeout bounds a single classification request. Zero means no
	// limit beyond the directory client's own.
	RequestTimeout time.Duration
	Dependencies   Dependencies
}

func NewWebAPI(logger zerolog.Logger, config Config) *WebAPI {
	guestsHandler := handlers.NewHandler(config.Dependencies.Runner, config.Dependencies.Runs)

	router := chi.NewRouter()

	router.Use(guestsmiddleware.Logger(&logger))
	router.Use(middleware.Recoverer)
	if config.RequestTimeout > 0 {
		router.Use(middleware.Timeout(config.RequestTimeout))
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/guests/{kind}", guestsHandler.Classify)
		r.Get("/runs", guestsHandler.ListRuns)
		r.Get("/runs/{id}", guestsHandler.GetRun)
	})

	shutdownTimeout := config.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}

	return &WebAPI{
		router: router,
		logger: &logger,
		server: &http.Server{
			Addr:              config.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		shutdownTimeout: shutdownTimeout,
	}
}

func (w *WebAPI) Handler() http.Handler {
	return w.router
}

// Start serves until the listener fails, ctx is cancelled or the process
// receives an interrupt.
func (w *WebAPI) Start(ctx context.Context) error {
	serverErrors := make(chan error, 1)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		w.logger.Info().Msg("context cancelled, shutting down")
	case <-shutdown:
		w.logger.Info().Msg("shutdown initiated")
	}

	// Give outstanding requests a deadline for completion.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
	defer cancel()

	if err := w.server.Shutdown(shutdownCtx); err != nil {
		w.logger.Error().Err(err).Msg("graceful shutdown failed")
		return w.server.Close()
	}
	return nil
}
