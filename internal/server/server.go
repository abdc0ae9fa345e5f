// internal/server/server.go
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"api-insights/internal/common/config"
	"api-insights/internal/common/database"
	"api-insights/internal/common/logger"
	"api-insights/internal/models"
)

// Answerer runs one question through the answering pipeline.
type Answerer interface {
	Answer(ctx context.Context, userQuery string) (*models.FinalAnswer, error)
}

// Server exposes the question-answering pipeline over HTTP.
type Server struct {
	httpServer   *http.Server
	orchestrator Answerer
	es           *elasticsearch.Client
	postgres     *database.PostgresClient
	redis        *database.RedisClient
	logger       logger.Logger

	requestTimeout time.Duration
}

// Dependencies carries everything the HTTP surface needs. Postgres and
// Redis are optional; health reporting degrades accordingly.
type Dependencies struct {
	Orchestrator  Answerer
	Elasticsearch *elasticsearch.Client
	Postgres      *database.PostgresClient
	Redis         *database.RedisClient
	Logger        logger.Logger
}

func New(cfg config.ServerConfig, deps Dependencies) *Server {
	s := &Server{
		orchestrator: deps.Orchestrator,
		es:           deps.Elasticsearch,
		postgres:     deps.Postgres,
		redis:        deps.Redis,
		logger:       deps.Logger.WithFields(map[string]interface{}{"component": "server"}),

		requestTimeout: time.Duration(cfg.RequestTimeout) * time.Millisecond,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.routes(),
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Millisecond,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/query", s.handleQuery)
	mux.HandleFunc("/tables", s.handleTables)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Handler exposes the route table, mainly for tests that mount the
// server inside httptest.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start blocks serving requests until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", map[string]interface{}{"addr": s.httpServer.Addr})
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
