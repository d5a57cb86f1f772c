package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/vk/flowgrid/internal/engine"
	"github.com/vk/flowgrid/internal/trigger"
)

// submitRequest is the POST /runs body. An empty body submits the
// app-configured event.
type submitRequest struct {
	Event struct {
		Type   string `json:"type"`
		Action string `json:"action"`
	} `json:"event"`
}

// controlMux builds the control API routes.
func (a *App) controlMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", a.handleHealth)
	mux.HandleFunc("POST /runs", a.handleSubmit)
	mux.HandleFunc("GET /runs/{id}", a.handleStatus)
	mux.HandleFunc("POST /runs/{id}/cancel", a.handleCancel)
	mux.HandleFunc("DELETE /runs/{id}", a.handleDiscard)
	return mux
}

// startControlServer runs the control API in the background.
func (a *App) startControlServer(ctx context.Context) {
	a.logger.Debug("Configuring control API server.")
	a.httpServer = &http.Server{
		Addr:    a.config.ListenAddr,
		Handler: a.controlMux(),
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		a.logger.Info("🩺 Control API server starting", "address", a.config.ListenAddr)
		// ListenAndServe returns ErrServerClosed on graceful shutdown; only
		// other errors are worth reporting.
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Control API server failed unexpectedly", "error", err)
		}
	}()
}

// closeControlServer shuts the control API down gracefully.
func (a *App) closeControlServer() {
	if a.httpServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a.logger.Info("🩺 Shutting down control API server...")
	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("Control API server shutdown failed", "error", err)
	}
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (a *App) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ev := trigger.Event{Type: a.config.EventType, Action: a.config.EventAction}
	if r.ContentLength != 0 {
		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			a.writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
			return
		}
		if req.Event.Type != "" {
			ev = trigger.Event{Type: req.Event.Type, Action: req.Event.Action}
		}
	}

	id, err := a.engine.Submit(r.Context(), a.model, ev)
	if errors.Is(err, engine.ErrEventIgnored) {
		a.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	a.writeJSON(w, http.StatusAccepted, map[string]string{"run_id": id})
}

func (a *App) handleStatus(w http.ResponseWriter, r *http.Request) {
	report, err := a.engine.Status(r.Context(), r.PathValue("id"))
	if errors.Is(err, engine.ErrRunNotFound) {
		a.writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	a.writeJSON(w, http.StatusOK, report)
}

func (a *App) handleCancel(w http.ResponseWriter, r *http.Request) {
	err := a.engine.Cancel(r.PathValue("id"))
	if errors.Is(err, engine.ErrRunNotFound) {
		a.writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (a *App) handleDiscard(w http.ResponseWriter, r *http.Request) {
	err := a.engine.Discard(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, engine.ErrRunNotFound):
		a.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, engine.ErrRunActive):
		a.writeError(w, http.StatusConflict, err)
	case err != nil:
		a.writeError(w, http.StatusInternalServerError, err)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (a *App) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.logger.Error("Failed to encode response", "error", err)
	}
}

func (a *App) writeError(w http.ResponseWriter, status int, err error) {
	a.writeJSON(w, status, map[string]string{"error": err.Error()})
}
