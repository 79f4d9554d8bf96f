package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"reddot-watch/issuefeed/internal/auth"
	"reddot-watch/issuefeed/internal/metrics"
	"reddot-watch/issuefeed/internal/server/api"
	"reddot-watch/issuefeed/internal/server/storage"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Repo       storage.FeedRecordRepository
	Normalizer api.RecordNormalizer
	Metrics    *metrics.Metrics
	// Pinger is optional; without it /health only reports liveness.
	Pinger Pinger
	// Tokens enables GET /api/events. Nil leaves the route unmounted.
	Tokens auth.TokenVerifier

	WebhookSecret string
	MaxBodyBytes  int64
}

// NewHandler builds the routed, logged and panic-safe HTTP handler.
func NewHandler(deps Deps, logger zerolog.Logger) http.Handler {
	webhookHandler := api.NewWebhookHandler(deps.WebhookSecret, deps.Normalizer, deps.Repo, deps.Metrics, deps.MaxBodyBytes)
	feedHandler := api.NewFeedHandler(deps.Repo, deps.Metrics)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook", webhookHandler.HandleWebhook)
	mux.HandleFunc("GET /api/feed", feedHandler.GetFeed)
	mux.HandleFunc("GET /api/feed.csv", feedHandler.ExportCSV)
	mux.HandleFunc("GET /api/stats", feedHandler.GetStats)
	mux.HandleFunc("GET /health", healthCheckHandler(deps.Pinger))
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics.Handler())
	}

	if deps.Tokens != nil {
		mux.Handle("GET /api/events", auth.Middleware(deps.Tokens)(http.HandlerFunc(feedHandler.GetFeed)))
		logger.Info().Msg("Bearer authentication enabled for /api/events")
	} else {
		logger.Info().Msg("No token secret configured, /api/events disabled")
	}

	if deps.WebhookSecret == "" {
		logger.Warn().Msg("No webhook secret configured, deliveries will not be verified")
	}

	// Set up middleware chain for logging and request tracking
	h := recoverHandler(mux)
	h = hlog.NewHandler(logger)(h)
	h = hlog.MethodHandler("method")(h)
	h = hlog.URLHandler("url")(h)
	h = hlog.RemoteAddrHandler("remote_addr")(h)
	h = hlog.UserAgentHandler("user_agent")(h)
	h = hlog.RequestIDHandler("req_id", "Request-Id")(h)
	h = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		idReq, _ := hlog.IDFromRequest(r)

		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Str("req_id", idReq.String()).
			Msg("HTTP Request")
	})(h)

	return h
}

// RunServer starts the HTTP server with graceful shutdown support.
// It blocks until SIGINT/SIGTERM or until the listener fails.
func RunServer(listenAddr string, handler http.Handler, logger zerolog.Logger) error {
	httpServer := &http.Server{
		Addr:              listenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("address", listenAddr).Msg("API Server starting")
		err := httpServer.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErr:
		return err

	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("HTTP server shutdown error")
			if err := httpServer.Close(); err != nil {
				logger.Error().Err(err).Msg("HTTP server force close error")
			}
		} else {
			logger.Info().Msg("HTTP server shutdown complete.")
		}
		if err := <-serverErr; err != nil {
			logger.Error().Err(err).Msg("ListenAndServe error during shutdown")
		}
	}

	logger.Info().Msg("Server exiting.")
	return nil
}

// recoverHandler turns a handler panic into a 500 JSON response.
func recoverHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			hlog.FromRequest(r).Error().Interface("panic", rec).Msg("Recovered from handler panic")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(api.ErrorResponse{Error: "Internal server error"})
		}()
		next.ServeHTTP(w, r)
	})
}

// healthCheckHandler responds 200 OK while the store is reachable and 503
// otherwise. This endpoint is used by monitoring systems.
func healthCheckHandler(pinger Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := hlog.FromRequest(r)
		log.Debug().Msg("Health check request received")

		if pinger != nil {
			if err := pinger.PingContext(r.Context()); err != nil {
				log.Error().Err(err).Msg("Health check failed to reach database")
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}
		}

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		n, err := w.Write([]byte("OK"))
		if err != nil {
			log.Error().Err(err).Msg("Error writing health check response")
		} else {
			log.Debug().Int("bytes_written", n).Msg("Health check response sent")
		}
	}
}
