package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/CdubVentures/specdesk/internal/cascade"
	"github.com/CdubVentures/specdesk/internal/model"
	"github.com/CdubVentures/specdesk/internal/resolver"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the review/cascade HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		r := buildRouter(env)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func buildRouter(e *env) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/review/accept", e.handleAccept)
	r.Post("/review/confirm", e.handleConfirm)
	r.Get("/review/pending", e.handlePending)
	r.Post("/cascade/component", e.handleCascadeComponent)
	r.Post("/cascade/enum", e.handleCascadeEnum)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type acceptRequest struct {
	Target    model.ReviewTarget `json:"target"`
	Selection *model.Selection   `json:"selection,omitempty"`
	Actor     string             `json:"actor,omitempty"`
}

func (e *env) handleAccept(w http.ResponseWriter, req *http.Request) {
	var body acceptRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, eris.Wrap(err, "invalid request body"))
		return
	}
	row, err := e.review.ApplySharedLane(req.Context(), body.Target, model.ActionAccept, body.Selection, model.LaneNotRun, actorOr(body.Actor))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

type confirmRequest struct {
	Target model.ReviewTarget `json:"target"`
	Status model.LaneStatus   `json:"status,omitempty"`
	Actor  string             `json:"actor,omitempty"`
}

func (e *env) handleConfirm(w http.ResponseWriter, req *http.Request) {
	var body confirmRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, eris.Wrap(err, "invalid request body"))
		return
	}
	row, err := e.review.ApplySharedLane(req.Context(), body.Target, model.ActionConfirm, nil, body.Status, actorOr(body.Actor))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (e *env) handlePending(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	var target model.ReviewTarget
	switch q.Get("kind") {
	case "component":
		target = model.NewComponentTarget(q.Get("category"), q.Get("component_type"), q.Get("name"), q.Get("maker"), q.Get("property"))
	case "enum":
		target = model.NewEnumTarget(q.Get("category"), q.Get("field"), q.Get("value"))
	default:
		target = model.NewGridTarget(q.Get("category"), q.Get("product"), q.Get("field"), q.Get("slot"))
	}
	if err := target.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	opts := resolver.SharedOptions()
	if q.Get("scope") == "primary" {
		opts = resolver.PrimaryOptions()
	}
	ids, err := e.resolver.PendingCandidateIDs(req.Context(), target, opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"target": target.IdentityTuple(), "pending": ids})
}

func (e *env) handleCascadeComponent(w http.ResponseWriter, req *http.Request) {
	var in cascade.Input
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, eris.Wrap(err, "invalid request body"))
		return
	}
	rep, err := e.cascade.ComponentChange(req.Context(), in)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (e *env) handleCascadeEnum(w http.ResponseWriter, req *http.Request) {
	var in cascade.EnumInput
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, eris.Wrap(err, "invalid request body"))
		return
	}

	// Same-value rename short-circuits before the engine runs.
	if in.Action == cascade.EnumRename && model.EqualFoldTrim(in.Value, in.NewValue) {
		writeJSON(w, http.StatusOK, map[string]any{"changed": false})
		return
	}

	rep, err := e.cascade.EnumChange(req.Context(), in)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"changed": true, "report": rep})
}

func actorOr(actor string) string {
	if actor == "" {
		return "api"
	}
	return actor
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
