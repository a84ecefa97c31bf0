package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/statusledger/internal/config"
	"github.com/hamed0406/statusledger/internal/domain"
	apimw "github.com/hamed0406/statusledger/internal/httpapi/middleware"
	"github.com/hamed0406/statusledger/internal/repo"
)

// Server exposes the stored snapshot read-only.
type Server struct {
	Logger  *zap.Logger
	Store   repo.SnapshotStore
	Key     string
	Targets []domain.Target
	Page    config.PageConfig
	Now     func() time.Time
}

func NewServer(l *zap.Logger, store repo.SnapshotStore, key string, targets []domain.Target, page config.PageConfig) *Server {
	if key == "" {
		key = repo.DefaultKey
	}
	return &Server{Logger: l, Store: store, Key: key, Targets: targets, Page: page, Now: time.Now}
}

// RouterOptions configures access control.
type RouterOptions struct {
	Keys        apimw.Keys
	BasicAuth   string // "user:pass", empty disables
	PublicRPM   int
	PublicBurst int
}

func (s *Server) Router(opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(cors.AllowAll().Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(apimw.RateLimit(opts.PublicRPM, opts.PublicBurst))
		r.Use(apimw.BasicAuth(opts.BasicAuth))
		r.Use(apimw.RequireAny(opts.Keys))

		r.Get("/status", s.handleStatus)
		r.Get("/targets", s.handleListTargets)

		r.With(apimw.RequireAdmin(opts.Keys)).Get("/admin/snapshot", s.handleSnapshot)
	})

	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Store.Get(r.Context(), s.Key)
	if err != nil {
		s.Logger.Warn("status_load_error", zap.Error(err))
		http.Error(w, "state unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, buildStatus(s.Page, s.Targets, snap, s.Now().Unix()))
}

func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	out := make([]targetInfo, 0, len(s.Targets))
	for _, t := range s.Targets {
		out = append(out, publicTarget(t))
	}
	writeJSON(w, out)
}

// handleSnapshot returns the raw stored document, sentinels included.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Store.Get(r.Context(), s.Key)
	if err != nil {
		s.Logger.Warn("snapshot_load_error", zap.Error(err))
		http.Error(w, "state unavailable", http.StatusServiceUnavailable)
		return
	}
	if snap == nil {
		http.Error(w, "no state yet", http.StatusNotFound)
		return
	}
	writeJSON(w, snap)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
