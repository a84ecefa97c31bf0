package delegate

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hamed0406/statusledger/internal/domain"
	"github.com/hamed0406/statusledger/internal/probe"
)

// Handler is the receiving side of HTTPDelegate.
type Handler struct {
	Location string
	Checker  probe.Checker
	Logger   *zap.Logger
}

func NewHandler(location string, chk probe.Checker, log *zap.Logger) *Handler {
	return &Handler{Location: location, Checker: chk, Logger: log}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/check", h.handleCheck)
	return r
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	var t domain.Target
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil || t.Endpoint == "" {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), t.EffectiveTimeout())
	defer cancel()
	out := h.Checker.Check(ctx, t)

	h.Logger.Info("remote_check",
		zap.String("target_id", string(t.ID)),
		zap.Bool("up", out.Up),
		zap.Float64("latency_ms", out.LatencyMS),
	)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(Response{Location: h.Location, Status: out})
}
