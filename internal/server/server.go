// Package server exposes the design engine over HTTP.
package server

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"
)

// Defaults for Config
const (
	DefaultAddr      = ":8080"
	DefaultRateLimit = 5 // requests per second per client
	DefaultRateBurst = 10
	MaxBodyBytes     = 10 << 20
)

// Config configures the handler.
type Config struct {
	RateLimit rate.Limit
	RateBurst int
	Logger    *log.Logger
}

// Server holds the router and its per-client limiter. Design runs share
// nothing; the limiter is the only mutable state.
type Server struct {
	router  *mux.Router
	limiter *IPRateLimiter
	log     *log.Logger
}

// New builds the API handler.
func New(cfg Config) *Server {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = DefaultRateBurst
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "gosewer ", log.LstdFlags)
	}

	s := &Server{
		router:  mux.NewRouter(),
		limiter: NewIPRateLimiter(cfg.RateLimit, cfg.RateBurst),
		log:     cfg.Logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(requestID, s.logRequests)

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.limiter.LimitMiddleware)

	api.HandleFunc("/health", s.health).Methods("GET")
	api.HandleFunc("/design", s.design).Methods("POST")
	api.HandleFunc("/design/pdf", s.designPDF).Methods("POST")
	api.HandleFunc("/design/xlsx", s.designXLSX).Methods("POST")
	api.HandleFunc("/design/profile", s.designProfile).Methods("POST")
	api.HandleFunc("/pipe/evaluate", s.evaluatePipe).Methods("POST")
	api.HandleFunc("/pipe/size", s.sizePipe).Methods("POST")
	api.HandleFunc("/slope/convert", s.convertSlope).Methods("POST")
	api.HandleFunc("/standards/{sewer}", s.criteria).Methods("GET")
}

// ServeHTTP applies CORS around the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
	w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.router.ServeHTTP(w, r)
}
