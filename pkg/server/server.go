// Package server provides the http api of the analyzer.
package server

import (
	"net/http"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"connectrpc.com/otelconnect"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mpapenbr/datalog-analyzer-go/log"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/service"
)

const (
	DefaultMaxUploadSize = 32 << 20
	HeaderRequestID      = "X-Request-Id"
	HeaderClientVersion  = "X-Client-Version"
)

type Option func(*Server)

func WithMaxUploadSize(n int64) Option {
	return func(s *Server) {
		s.maxUpload = n
	}
}

// WithHealthCheck adds a named dependency to the health service.
func WithHealthCheck(name string, check CheckFunc) Option {
	return func(s *Server) {
		s.health.add(name, check)
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

type Server struct {
	svc       *service.Service
	maxUpload int64
	health    *healthChecker
	log       *log.Logger
}

func New(svc *service.Service, opts ...Option) *Server {
	ret := &Server{
		svc:       svc,
		maxUpload: DefaultMaxUploadSize,
		health:    newHealthChecker(),
		log:       log.Default().Named("http"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Handler returns the complete http handler including middleware.
// HTTP/2 without TLS is supported for the health service.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerAPI(mux)
	s.registerHealth(mux)
	var h http.Handler = mux
	h = s.clientVersion(h)
	h = s.requestID(h)
	return h2c.NewHandler(newCORS().Handler(h), &http2.Server{})
}

func (s *Server) registerAPI(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/analyze", s.handleAnalyze)
	mux.HandleFunc("POST /api/v1/dyno", s.handleDyno)
	mux.HandleFunc("POST /api/v1/overlay", s.handleOverlay)
	mux.HandleFunc("POST /api/v1/runs", s.handleSaveRun)
	mux.HandleFunc("GET /api/v1/runs", s.handleListRuns)
	mux.HandleFunc("GET /api/v1/runs/{id}", s.handleGetRun)
	mux.HandleFunc("DELETE /api/v1/runs/{id}", s.handleDeleteRun)
	mux.HandleFunc("GET /api/v1/leaderboard/{band}", s.handleLeaderboard)
}

func (s *Server) registerHealth(mux *http.ServeMux) {
	opts := []connect.HandlerOption{}
	if otelInterceptor, err := otelconnect.NewInterceptor(); err == nil {
		opts = append(opts, connect.WithInterceptors(otelInterceptor))
	} else {
		s.log.Warn("could not create otel interceptor", log.ErrorField(err))
	}
	path, handler := grpchealth.NewHandler(s.health, opts...)
	mux.Handle(path, handler)
}

func newCORS() *cors.Cors {
	return cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodDelete,
		},
		AllowOriginFunc: func(origin string) bool {
			// Allow all origins, which effectively disables CORS.
			return true
		},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{
			// Content-Type is in the default safelist.
			"Accept",
			"Accept-Encoding",
			"Accept-Post",
			"Connect-Accept-Encoding",
			"Connect-Content-Encoding",
			"Content-Encoding",
			"Grpc-Accept-Encoding",
			"Grpc-Encoding",
			"Grpc-Message",
			"Grpc-Status",
			"Grpc-Status-Details-Bin",
			HeaderRequestID,
		},
	})
}
