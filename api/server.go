package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/wboard/connector"
	"github.com/wboard/connector/middleware"
	"github.com/wboard/connector/session"
)

// Prefix is the board route namespace.
const Prefix = "/wboard/v1"

// Options configures a Server.
type Options struct {
	Engine   *connector.Engine
	Sessions *session.Manager
	// Collector defaults to BasicCollector.
	Collector StatusCollector
	Logger    logrus.FieldLogger
	// Metrics, when set, is mounted at /metrics without signature checks.
	Metrics      http.Handler
	MaxBodyBytes int64
}

// Server routes board and browser requests to the engine.
type Server struct {
	router    *mux.Router
	engine    *connector.Engine
	sessions  *session.Manager
	collector StatusCollector
	logger    logrus.FieldLogger
}

// NewServer wires the routes. Engine and Sessions are required.
func NewServer(opts Options) (*Server, error) {
	if opts.Engine == nil {
		return nil, errors.New("api: engine is required")
	}
	if opts.Sessions == nil {
		return nil, errors.New("api: session manager is required")
	}

	s := &Server{
		router:    mux.NewRouter(),
		engine:    opts.Engine,
		sessions:  opts.Sessions,
		collector: opts.Collector,
		logger:    opts.Logger,
	}
	if s.collector == nil {
		s.collector = BasicCollector{Engine: opts.Engine}
	}
	if s.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		s.logger = l
	}

	var guardOpts []middleware.GuardOption
	if opts.MaxBodyBytes > 0 {
		guardOpts = append(guardOpts, middleware.WithMaxBodyBytes(opts.MaxBodyBytes))
	}
	s.setupRoutes(middleware.RequireSignedRequest(opts.Engine, guardOpts...), opts.Metrics)
	return s, nil
}

func (s *Server) setupRoutes(signed func(http.Handler) http.Handler, metrics http.Handler) {
	v1 := s.router.PathPrefix(Prefix).Subrouter()

	// Board routes
	v1.Handle("/status", signed(http.HandlerFunc(s.getStatus))).Methods(http.MethodGet)
	v1.Handle("/autologin", signed(http.HandlerFunc(s.createAutologin))).Methods(http.MethodPost)
	v1.Handle("/regenerate-key", signed(http.HandlerFunc(s.regenerateKey))).Methods(http.MethodPost)

	// Browser routes
	requireSession := middleware.RequireSession(s.sessions)
	v1.Handle("/session", requireSession(http.HandlerFunc(s.getSession))).Methods(http.MethodGet)
	v1.Handle("/session", requireSession(http.HandlerFunc(s.deleteSession))).Methods(http.MethodDelete)

	s.router.HandleFunc("/", s.redeemAutologin).
		Queries(connector.TokenParam, "{token}").
		Methods(http.MethodGet)

	if metrics != nil {
		s.router.Handle("/metrics", metrics).Methods(http.MethodGet)
	}
}

// ServeHTTP implements http.Handler without access logging.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the router wrapped with request ids, access logging and
// panic recovery.
func (s *Server) Handler() http.Handler {
	return middleware.RequestID(withAccessLog(s.logger, s.router))
}
