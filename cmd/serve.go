package main

import (
	"context"
	"encoding/json"
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

	"github.com/terrafield/crewsheet-cli/internal/model"
	"github.com/terrafield/crewsheet-cli/internal/pipeline"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for extraction and feedback",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(env),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// newRouter builds the chi router with all API routes.
func newRouter(env *appEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/extract", handleExtract(env))
	r.Post("/api/feedback", handleFeedback(env))
	r.Get("/api/sheets/{id}", handleGetSheet(env))

	return r
}

func handleExtract(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID     string `json:"user_id"`
			ImagePath  string `json:"image_path"`
			TemplateID string `json:"template_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if req.ImagePath == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "image_path is required"})
			return
		}

		out, err := env.Service.ProcessSheet(r.Context(), req.UserID, req.ImagePath, pipeline.Options{
			TemplateID:    req.TemplateID,
			MinConfidence: cfg.Extraction.MinConfidence,
		})
		if err != nil {
			zap.L().Error("extract request failed", zap.String("image", req.ImagePath), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "extraction failed"})
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleFeedback(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var edit model.UserEdit
		if err := json.NewDecoder(r.Body).Decode(&edit); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if edit.SheetID == "" || edit.FieldName == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "sheet_id and field_name are required"})
			return
		}

		res, err := env.Service.ProcessFeedback(r.Context(), &edit)
		if err != nil {
			zap.L().Error("feedback request failed", zap.String("sheet_id", edit.SheetID), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "feedback processing failed"})
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleGetSheet(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sheet, err := env.Store.GetSheet(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "sheet not found"})
			return
		}
		writeJSON(w, http.StatusOK, sheet)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
