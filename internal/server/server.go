// Package server exposes an Engine over HTML forms and a small JSON API.
package server

import (
	"context"
	"errors"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"starling/internal/config"
	"starling/internal/engine"
	"starling/internal/logging"
	"starling/internal/metrics"
)

// Server owns the router and the HTTP listener.
type Server struct {
	eng      *engine.Engine
	cfg      config.ServerConfig
	pages    *pages
	validate *validator.Validate
	limiter  *ipLimiter
	proxies  []netip.Prefix
}

func New(eng *engine.Engine, cfg config.ServerConfig) (*Server, error) {
	p, err := loadPages()
	if err != nil {
		return nil, err
	}
	proxies, err := config.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}
	return &Server{
		eng:      eng,
		cfg:      cfg,
		pages:    p,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		limiter:  newIPLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.IdleTTL),
		proxies:  proxies,
	}, nil
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(trustedRealIP(s.proxies))
	r.Use(accessLog)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", s.health)
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.limiter.middleware)

		// HTML forms
		r.Get("/", s.page("index.html"))
		r.Get("/new_user_recommend", s.page("new_user_recommend_form.html"))
		r.Get("/similar_user_recommend", s.page("similar_user_recommend_form.html"))
		r.Get("/article_user_recommend", s.page("article_recommend_form.html"))
		r.Post("/recommend", s.popularForm)
		r.Post("/similar_recommend", s.similarForm)
		r.Post("/post_recommend", s.articleForm)

		// JSON API
		r.Post("/new_user_recommend_api", s.popularAPI)
		r.Post("/similar_user_recommend_api", s.similarAPI)
		r.Post("/article_recommend_api", s.articleAPI)
		r.Get("/stats", s.stats)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	errc := make(chan error, 1)
	go func() {
		logging.Info("http_listen", map[string]any{"addr": s.cfg.Addr})
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logging.Info("http_stopped", nil)
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"built_at": s.eng.BuiltAt().Format(time.RFC3339),
	})
}
