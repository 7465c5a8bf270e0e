// Package server exposes the services over a JSON HTTP API.
package server

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"moonjin/internal/auth"
	"moonjin/internal/metrics"
	"moonjin/internal/newsletter"
	"moonjin/internal/post"
	"moonjin/internal/series"
	"moonjin/internal/subscribe"
	"moonjin/internal/writer"
)

// Pinger is the database handle used by /health.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Config struct {
	SecureCookies  bool
	RateLimitRPS   float64
	RateLimitBurst int
}

type Server struct {
	Auth          *auth.Service
	Tokens        *auth.TokenIssuer
	Posts         *post.Service
	Series        *series.Service
	Writers       *writer.Service
	Subscriptions *subscribe.Service
	Newsletters   *newsletter.Service
	DB            Pinger

	Log     logrus.FieldLogger
	Limiter *RateLimiter

	secureCookies bool
	validate      *validator.Validate
	router        http.Handler
}

func New(s *Server, cfg Config) *Server {
	s.secureCookies = cfg.SecureCookies
	s.validate = validator.New()
	if s.Limiter == nil {
		s.Limiter = NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, s.Log)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.requestLogger, metrics.Middleware)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, errRouteNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, errMethodNotAllowed)
	})

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	a := r.PathPrefix("/auth").Subrouter()
	a.HandleFunc("/signup/local", s.handleLocalSignup).Methods(http.MethodPost)
	a.Handle("/login/local", s.Limiter.Handler(http.HandlerFunc(s.handleLocalLogin))).Methods(http.MethodPost)
	a.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost)
	a.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)

	u := r.PathPrefix("/user").Subrouter()
	u.HandleFunc("", s.requireAuth(s.handleGetUser)).Methods(http.MethodGet)
	u.HandleFunc("/password", s.requireAuth(s.handlePasswordChange)).Methods(http.MethodPatch)
	u.HandleFunc("/newsletter", s.requireAuth(s.handleReceivedNewsletters)).Methods(http.MethodGet)
	u.HandleFunc("/subscribe", s.requireAuth(s.handleFollowing)).Methods(http.MethodGet)

	// fixed segments before {id}
	p := r.PathPrefix("/post").Subrouter()
	p.HandleFunc("", s.requireWriter(s.handleCreatePost)).Methods(http.MethodPost)
	p.HandleFunc("/writing", s.requireWriter(s.handleWritingPosts)).Methods(http.MethodGet)
	p.HandleFunc("/content", s.requireWriter(s.handleUpdatePostContent)).Methods(http.MethodPatch)
	p.HandleFunc("/{id:[0-9]+}", s.requireWriter(s.handleUpdatePost)).Methods(http.MethodPatch)
	p.HandleFunc("/{id:[0-9]+}", s.requireWriter(s.handleDeletePost)).Methods(http.MethodDelete)
	p.HandleFunc("/{id:[0-9]+}", s.requireAuth(s.handleGetPost)).Methods(http.MethodGet)
	p.HandleFunc("/{id:[0-9]+}/metadata", s.requireAuth(s.handleGetPostMetadata)).Methods(http.MethodGet)
	p.HandleFunc("/{id:[0-9]+}/newsletter", s.requireWriter(s.handleSendNewsletter)).Methods(http.MethodPost)

	n := r.PathPrefix("/newsletter").Subrouter()
	n.HandleFunc("/sent", s.requireWriter(s.handleSentNewsletters)).Methods(http.MethodGet)
	n.HandleFunc("/{id:[0-9]+}/summary", s.handleNewsletterSummary).Methods(http.MethodGet)

	sr := r.PathPrefix("/series").Subrouter()
	sr.HandleFunc("", s.requireWriter(s.handleCreateSeries)).Methods(http.MethodPost)
	sr.HandleFunc("/me", s.requireWriter(s.handleMySeries)).Methods(http.MethodGet)
	sr.HandleFunc("/{id:[0-9]+}", s.requireWriter(s.handleUpdateSeries)).Methods(http.MethodPatch)

	wr := r.PathPrefix("/writer/{moonjinId}").Subrouter()
	wr.HandleFunc("/info/public", s.handleWriterProfile).Methods(http.MethodGet)
	wr.Handle("/subscribe/external", s.Limiter.Handler(http.HandlerFunc(s.handleExternalSubscribe))).Methods(http.MethodPost)
	wr.HandleFunc("/follow", s.requireAuth(s.handleFollow)).Methods(http.MethodPost)
	wr.HandleFunc("/follow", s.requireAuth(s.handleUnfollow)).Methods(http.MethodDelete)
	wr.HandleFunc("/newsletter", s.handleWriterNewsletters).Methods(http.MethodGet)
	wr.HandleFunc("/series", s.handleWriterSeries).Methods(http.MethodGet)
	wr.HandleFunc("/series/{seriesId:[0-9]+}", s.handleWriterSeriesDetail).Methods(http.MethodGet)
	wr.HandleFunc("/series/{seriesId:[0-9]+}/newsletter", s.handleSeriesNewsletters).Methods(http.MethodGet)

	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()
	if err := s.DB.PingContext(ctx); err != nil {
		s.Log.WithError(err).Error("health: database ping failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
