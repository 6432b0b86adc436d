// Package server exposes one-tap playback over a small HTTP API so a remote,
// a phone shortcut or a home-automation hub can press a tile.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/tessro/onetap/internal/core"
	apperr "github.com/tessro/onetap/internal/errors"
	"github.com/tessro/onetap/internal/library"
	xlog "github.com/tessro/onetap/internal/log"
	"github.com/tessro/onetap/internal/playback"
)

// PlayRateLimit bounds play requests per client per minute.
const PlayRateLimit = 30

// PlayFunc starts playback of a show.
type PlayFunc func(ctx context.Context, showID string) (core.Outcome, error)

// CheckFunc reports whether a dependency is reachable.
type CheckFunc func(ctx context.Context) error

// StopFunc stops whatever is playing.
type StopFunc func(ctx context.Context) error

// healthTimeout bounds the transport check behind /healthz.
const healthTimeout = 2 * time.Second

// Option configures a Server.
type Option func(*Server)

// WithPlayFunc routes play requests through fn instead of the launcher, e.g.
// through an auto-advance controller.
func WithPlayFunc(fn PlayFunc) Option {
	return func(s *Server) { s.play = fn }
}

// WithTransportCheck adds the playback host to /healthz.
func WithTransportCheck(fn CheckFunc) Option {
	return func(s *Server) { s.ping = fn }
}

// WithStopFunc enables POST /api/stop.
func WithStopFunc(fn StopFunc) Option {
	return func(s *Server) { s.stop = fn }
}

// Server serves the control API.
type Server struct {
	launcher *playback.Launcher
	store    core.HistoryStore
	play     PlayFunc
	ping     CheckFunc
	stop     StopFunc
	logger   zerolog.Logger
	router   chi.Router
}

// New creates a server backed by launcher. store is used for history
// inspection and purging.
func New(launcher *playback.Launcher, store core.HistoryStore, opts ...Option) *Server {
	s := &Server{
		launcher: launcher,
		store:    store,
		play:     launcher.Play,
		logger:   xlog.WithComponent("server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/tiles", s.handleTiles)
		r.Post("/stop", s.handleStop)
		r.With(rateLimit(PlayRateLimit, time.Minute)).Post("/tiles/{showID}/play", s.handlePlay)
		r.Get("/tiles/{showID}/candidates", s.handleCandidates)
		r.Get("/history/{showID}", s.handleHistory)
		r.Delete("/history/{showID}", s.handlePurge)
	})
	return r
}

func rateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate_limit_exceeded"})
		}),
	)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}

type errorBody struct {
	Error      string `json:"error"`
	Suggestion string `json:"suggestion,omitempty"`
}

type tileBody struct {
	ShowID   string  `json:"show_id"`
	Label    string  `json:"label"`
	Mode     string  `json:"mode"`
	Weight   float64 `json:"weight"`
	Episodes int     `json:"episodes"`
	Error    string  `json:"error,omitempty"`
}

type healthBody struct {
	Status    string `json:"status"`
	Transport string `json:"transport,omitempty"`
	Error     string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorBody{Error: err.Error(), Suggestion: apperr.GetSuggestion(err)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrShowNotFound):
		return http.StatusNotFound
	case apperr.IsConfiguration(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrPlaybackExhausted):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// handleHealth answers 200 while the server runs. An unreachable playback
// host degrades the status but does not fail the check; the TV may simply
// be off.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := healthBody{Status: "ok"}
	if s.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := s.ping(ctx); err != nil {
			body.Status = "degraded"
			body.Transport = "unreachable"
			body.Error = err.Error()
		} else {
			body.Transport = "ok"
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleTiles(w http.ResponseWriter, r *http.Request) {
	settings := s.launcher.Settings()
	res, err := library.ListAll(r.Context(), s.launcher.Lister(), settings.Shows)
	if err != nil {
		writeError(w, err)
		return
	}
	if res.HasErrors() {
		s.logger.Warn().Int("tiles", len(res.Errors)).Msg("some tiles cannot play")
	}

	tiles := make([]tileBody, 0, len(res.Data))
	for _, se := range res.Data {
		sh := se.Show
		tb := tileBody{
			ShowID:   sh.ID,
			Label:    sh.DisplayLabel(),
			Mode:     string(sh.EffectiveMode(settings.Mode)),
			Weight:   sh.EffectiveWeight(),
			Episodes: len(se.Episodes),
		}
		if se.Err != nil {
			tb.Error = se.Err.Error()
		}
		tiles = append(tiles, tb)
	}
	writeJSON(w, http.StatusOK, tiles)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if s.stop == nil {
		writeJSON(w, http.StatusNotImplemented, errorBody{Error: "stop is not supported"})
		return
	}
	if err := s.stop(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	showID := chi.URLParam(r, "showID")
	ctx := xlog.ContextWithSessionID(r.Context(), middleware.GetReqID(r.Context()))

	out, err := s.play(ctx, showID)
	if err != nil {
		status := statusFor(err)
		if out.Attempts > 0 {
			writeJSON(w, status, struct {
				errorBody
				Outcome core.Outcome `json:"outcome"`
			}{errorBody{Error: err.Error(), Suggestion: apperr.GetSuggestion(err)}, out})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCandidates(w http.ResponseWriter, r *http.Request) {
	cands, err := s.launcher.Candidates(r.Context(), chi.URLParam(r, "showID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cands)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	showID := chi.URLParam(r, "showID")
	if _, err := s.launcher.Settings().Show(showID); err != nil {
		writeError(w, err)
		return
	}
	entries, err := s.store.Entries(r.Context(), showID)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []core.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	showID := chi.URLParam(r, "showID")
	if _, err := s.launcher.Settings().Show(showID); err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.Purge(r.Context(), showID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("control server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}
