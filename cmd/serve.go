package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/qanoon-labs/qanoon-cli/internal/pipeline"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initQueryEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		// The search collection must exist before the first query lands.
		if err := env.Search.EnsureCollection(ctx, cfg.Qdrant.Collection, cfg.Qdrant.VectorSize); err != nil {
			return eris.Wrap(err, "ensure search collection")
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(env),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newRouter(env *queryEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/ask", handleAsk(env))
	r.Get("/api/documents", handleDocuments(env))
	r.Get("/api/stats", handleStats(env))

	return r
}

func handleAsk(env *queryEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query string `json:"query"`
			TopK  int    `json:"top_k"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := env.Pipeline.Ask(r.Context(), req.Query, req.TopK)
		if err != nil {
			var verr *pipeline.ValidationError
			if errors.As(err, &verr) {
				writeError(w, http.StatusBadRequest, verr.Error())
				return
			}
			var uerr *pipeline.UpstreamError
			if errors.As(err, &uerr) {
				zap.L().Error("query failed", zap.String("step", uerr.Step), zap.Error(err))
				writeError(w, http.StatusBadGateway, fmt.Sprintf("%s step failed", uerr.Step))
				return
			}
			zap.L().Error("query failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		logAnsweredQuery(r.Context(), env.QueryLog, result.Query, result.Answer, len(result.Sources), result.Metadata)
		writeJSON(w, http.StatusOK, result)
	}
}

func handleDocuments(env *queryEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groups, err := env.Registry.ListGrouped()
		if err != nil {
			zap.L().Error("list documents", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"total":     len(groups),
			"documents": groups,
		})
	}
}

func handleStats(env *queryEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := env.Registry.Stats()
		if err != nil {
			zap.L().Error("registry stats", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		queries, err := env.QueryLog.Count(r.Context())
		if err != nil {
			zap.L().Error("query log count", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"registry":         stats,
			"queries_answered": queries,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
