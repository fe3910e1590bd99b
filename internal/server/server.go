package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"scangofer/internal/config"
	"scangofer/internal/deposits"
	"scangofer/internal/feed"
	"scangofer/internal/scanner"
)

// Server represents the HTTP gateway
type Server struct {
	cfg        *config.Config
	client     *scanner.Client
	deposits   *deposits.Service
	hub        *feed.Hub
	watcher    *feed.Watcher
	registry   *prometheus.Registry
	handler    http.Handler
	httpServer *http.Server
	listener   net.Listener
	logger     zerolog.Logger
}

// New creates a new Server
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	client, err := scanner.NewFromConfig(cfg, scanner.NewMetrics(registry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create scanner client: %w", err)
	}

	catalog, err := deposits.LoadCatalog(cfg.PlansFile)
	if err != nil {
		client.Close()
		return nil, err
	}
	logger.Info().
		Int("plans", len(catalog.Plans)).
		Str("file", cfg.PlansFile).
		Msg("plan catalog loaded")

	tokens := client.Tokens()
	depositService := deposits.NewService(client, catalog, deposits.ServiceConfig{
		SystemAddress: cfg.Addresses.System,
		AccessAddress: cfg.Addresses.Access,
		PLEX:          tokens.PLEX,
		USDT:          tokens.USDT,
	}, logger)

	s := &Server{
		cfg:      cfg,
		client:   client,
		deposits: depositService,
		registry: registry,
		logger:   logger,
	}

	if cfg.IsFeedEnabled() {
		s.hub = feed.NewHub(cfg.Feed.MaxAddressesPerClient, logger)
		s.watcher, err = feed.NewWatcher(s.hub, client, tokens, cfg.Feed.Schedule, logger)
		if err != nil {
			client.Close()
			return nil, err
		}
		logger.Info().
			Str("schedule", cfg.Feed.Schedule).
			Int("maxAddressesPerClient", cfg.Feed.MaxAddressesPerClient).
			Msg("balance feed enabled")
	} else {
		logger.Info().Msg("balance feed disabled")
	}

	s.handler = s.routes()
	return s, nil
}

func (s *Server) routes() http.Handler {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	NewHandler(s.client, s.deposits, s.logger).Register(api)

	router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	if s.hub != nil {
		router.Handle("/ws", feed.NewHandler(s.hub, s.logger))
	}

	origins := s.cfg.CORS
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept", "Origin", "X-Requested-With"},
	}).Handler(router)
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Client returns the scanner client
func (s *Server) Client() *scanner.Client {
	return s.client
}

// Start binds the listen address and starts serving
func (s *Server) Start() error {
	if err := s.client.Init(); err != nil {
		// explorer endpoints answer 503 until a key is configured
		s.logger.Warn().Err(err).Msg("scanner client not initialized")
	}

	addr := s.cfg.Addr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = ln

	s.httpServer = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		s.logger.Info().
			Str("addr", ln.Addr().String()).
			Msg("starting HTTP server")
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	if s.watcher != nil {
		s.watcher.Start()
	}

	s.logger.Info().
		Str("api", fmt.Sprintf("http://%s/api", ln.Addr())).
		Str("metrics", fmt.Sprintf("http://%s/metrics", ln.Addr())).
		Bool("feed", s.hub != nil).
		Msg("endpoint available")
	return nil
}

// Addr returns the bound address, or nil before Start
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("shutting down server...")

	if s.watcher != nil {
		s.watcher.Stop(ctx)
	}

	// hijacked websocket connections are not closed by Shutdown
	if s.hub != nil {
		s.hub.CloseAll()
	}

	var httpErr error
	if s.httpServer != nil {
		httpErr = s.httpServer.Shutdown(ctx)
	}

	s.client.Close()

	if httpErr != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", httpErr)
	}

	s.logger.Info().
		Interface("stats", s.client.Stats()).
		Msg("server stopped")
	return nil
}
