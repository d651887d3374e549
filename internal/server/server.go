package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizbot/internal/config"
	"github.com/gokatarajesh/quizbot/internal/logging"
	"github.com/gokatarajesh/quizbot/internal/question"
	httperrors "github.com/gokatarajesh/quizbot/pkg/http/errors"
	"github.com/gokatarajesh/quizbot/pkg/http/ws"
)

// NewHTTPServer wires health, metrics, the bank catalog and the WebSocket
// endpoint. redis and wsHandler may be nil.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, redis *redis.Client, catalog question.Lister, wsHandler http.HandlerFunc) *http.Server {
	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: NewMux(logger, redis, catalog, wsHandler),
	}
}

// NewMux builds the route table.
func NewMux(logger zerolog.Logger, redis *redis.Client, catalog question.Lister, wsHandler http.HandlerFunc) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/v1/ping", func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.IntoContext(r.Context(), logger)
		if err := pingDependencies(ctx, redis); err != nil {
			l := logging.FromContext(ctx)
			l.Error().Err(err).Msg("dependency ping failed")
			http.Error(w, "upstream error", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	mux.HandleFunc("/v1/banks", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			httperrors.RespondMethodNotAllowed(w)
			return
		}
		banks, err := question.Catalog(r.Context(), catalog)
		if err != nil {
			logger.Error().Err(err).Msg("list banks failed")
			httperrors.RespondInternalError(w, "Could not list banks")
			return
		}
		out := ws.BanksPayload{Banks: make([]ws.Bank, 0, len(banks))}
		for _, b := range banks {
			out.Banks = append(out.Banks, ws.Bank{Subject: b.Subject, Topic: b.Topic})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	})

	if wsHandler != nil {
		mux.HandleFunc("/ws", wsHandler)
	} else {
		mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
			httperrors.RespondError(w, http.StatusNotImplemented, httperrors.ErrCodeInvalidRequest, "WebSocket transport is disabled")
		})
	}

	return mux
}

func pingDependencies(ctx context.Context, redis *redis.Client) error {
	if redis == nil {
		return nil
	}
	return redis.Ping(ctx).Err()
}
