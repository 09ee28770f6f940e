package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/controlhub-core/internal/audit"
	"github.com/nerrad567/controlhub-core/internal/controller"
	"github.com/nerrad567/controlhub-core/internal/infrastructure/config"
	"github.com/nerrad567/controlhub-core/internal/infrastructure/logging"
	"github.com/nerrad567/controlhub-core/internal/layout"
	"github.com/nerrad567/controlhub-core/internal/rulegroup"
)

// gracefulShutdownTimeout bounds how long Close waits for in-flight requests.
const gracefulShutdownTimeout = 10 * time.Second

// WebSocket settings used when the config leaves them unset, in seconds
// and bytes.
const (
	defaultWSPath         = "/ws"
	defaultPingInterval   = 30
	defaultPongTimeout    = 10
	defaultMaxMessageSize = 8192
)

// HealthChecker is implemented by infrastructure clients reported on /health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// AuditLog reads the edit history.
type AuditLog interface {
	List(ctx context.Context, f audit.Filter) (*audit.ListResult, error)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	Logger      *logging.Logger
	Controllers *controller.Registry
	RuleGroups  *rulegroup.Service
	Dashboards  *layout.Service
	Audit       AuditLog                 // optional
	Health      map[string]HealthChecker // optional, e.g. "database", "mqtt"
	ExternalHub *Hub                     // if set, used instead of an internal hub
	Version     string
}

// Server is the HTTP API server.
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	logger      *logging.Logger
	controllers *controller.Registry
	rulegroups  *rulegroup.Service
	dashboards  *layout.Service
	audit       AuditLog
	health      map[string]HealthChecker
	version     string
	server      *http.Server
	hub         *Hub
	externalHub bool
	cancel      context.CancelFunc
}

// New creates a server. It does not listen until Start.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Controllers == nil {
		return nil, fmt.Errorf("controller registry is required")
	}
	if deps.RuleGroups == nil {
		return nil, fmt.Errorf("rule group service is required")
	}
	if deps.Dashboards == nil {
		return nil, fmt.Errorf("dashboard service is required")
	}

	if deps.WS.Path == "" {
		deps.WS.Path = defaultWSPath
	}
	if deps.WS.PingInterval <= 0 {
		deps.WS.PingInterval = defaultPingInterval
	}
	if deps.WS.PongTimeout <= 0 {
		deps.WS.PongTimeout = defaultPongTimeout
	}
	if deps.WS.MaxMessageSize <= 0 {
		deps.WS.MaxMessageSize = defaultMaxMessageSize
	}

	s := &Server{
		cfg:         deps.Config,
		wsCfg:       deps.WS,
		logger:      deps.Logger,
		controllers: deps.Controllers,
		rulegroups:  deps.RuleGroups,
		dashboards:  deps.Dashboards,
		audit:       deps.Audit,
		health:      deps.Health,
		version:     deps.Version,
	}
	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
		s.externalHub = true
	}
	return s, nil
}

// Hub returns the WebSocket hub, creating it on first use so services can
// be wired to it before Start.
func (s *Server) Hub() *Hub {
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	return s.hub
}

// Handler returns the router without starting a listener.
func (s *Server) Handler() http.Handler {
	s.Hub()
	return s.buildRouter()
}

// Start launches the HTTP listener in the background.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	hub := s.Hub()
	if !s.externalHub {
		go hub.Run(srvCtx)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS", "address", s.server.Addr)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return nil
}

// Close shuts the server down, waiting up to ten seconds for in-flight
// requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck reports whether the server has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("api health check: %w", err)
	}
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
