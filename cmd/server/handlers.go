package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Tangerg/lynx/sse"

	ragengine "github.com/itsimonfredlingjack/svenskrag"
	"github.com/itsimonfredlingjack/svenskrag/internal/ragtypes"
)

type handler struct {
	engine ragengine.Engine
}

func newHandler(e ragengine.Engine) *handler {
	return &handler{engine: e}
}

// POST /query streams a ragtypes.StreamEvent union over SSE: one "phase"
// event per stage boundary, an optional "decontextualized" event, one
// "metadata" event ahead of the first "token", zero or more "token"
// events, an optional "corrections" event, and exactly one terminal
// "done" or "error" event.
func (h *handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	var req ragtypes.QueryEnvelope
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Request-Id", requestIDFromRequest(r))
	w.WriteHeader(http.StatusOK)

	events := make(chan *sse.Message, 16)
	go func() {
		defer close(events)
		h.engine.Query(ctx, req, func(ev ragtypes.StreamEvent) {
			data, err := json.Marshal(ev)
			if err != nil {
				slog.Error("marshaling stream event", "error", err)
				return
			}
			select {
			case events <- &sse.Message{Event: string(ev.Type), Data: data}:
			case <-ctx.Done():
			}
		})
	}()

	if err := sse.WithSSE(ctx, w, events); err != nil {
		slog.Warn("sse stream ended", "error", err, "request_id", requestIDFromRequest(r))
	}
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// GET /stats returns the running request aggregate for admin/observability.
func (h *handler) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Stats())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf("%s", msg)})
}
