package httpapi

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/pingmonitor/internal/domain"
	apimw "github.com/hamed0406/pingmonitor/internal/httpapi/middleware"
	"github.com/hamed0406/pingmonitor/internal/metrics"
	"github.com/hamed0406/pingmonitor/internal/repo"
	"github.com/hamed0406/pingmonitor/internal/session"
)

// Starter begins monitoring sessions.
type Starter interface {
	Start(req domain.ProbeRequest, subs []session.Subscriber) (*session.Session, error)
}

// Hub serves the realtime endpoint and lists its live connections.
type Hub interface {
	http.Handler
	Snapshot() []session.Subscriber
}

type Options struct {
	Bounds         domain.Bounds
	Metrics        *metrics.Metrics
	StaticDir      string
	AllowedOrigins []string
}

type Server struct {
	Logger  *zap.Logger
	Engine  Starter
	Hub     Hub
	Results repo.ResultStore
	opts    Options
}

func NewServer(l *zap.Logger, e Starter, h Hub, rs repo.ResultStore, opts Options) *Server {
	if opts.Bounds == (domain.Bounds{}) {
		opts.Bounds = domain.DefaultBounds()
	}
	return &Server{Logger: l, Engine: e, Hub: h, Results: rs, opts: opts}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(apimw.Recoverer(s.Logger))
	r.Use(s.corsHandler())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", s.opts.Metrics.Handler())
	r.Handle("/ws", s.Hub)

	r.Route("/probe", func(r chi.Router) {
		r.Use(apimw.RequestLogger(s.Logger))
		r.Post("/start", s.handleStart)
		r.Get("/history", s.handleHistory)
		r.Get("/history/stats", s.handleHistoryStats)
	})

	if s.opts.StaticDir != "" {
		if fi, err := os.Stat(s.opts.StaticDir); err == nil && fi.IsDir() {
			r.Handle("/*", http.FileServer(http.Dir(s.opts.StaticDir)))
		} else {
			s.Logger.Warn("static_dir_unavailable", zap.String("dir", s.opts.StaticDir), zap.Error(err))
		}
	}
	return r
}

func (s *Server) corsHandler() func(http.Handler) http.Handler {
	if len(s.opts.AllowedOrigins) == 0 {
		return cors.AllowAll().Handler
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	})
}
