package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/zencontrol/zengateway/internal/bridges/zen"
	"github.com/zencontrol/zengateway/internal/controller"
	"github.com/zencontrol/zengateway/internal/device"
	"github.com/zencontrol/zengateway/internal/discovery"
	"github.com/zencontrol/zengateway/internal/infrastructure/config"
	"github.com/zencontrol/zengateway/internal/infrastructure/logging"
	"github.com/zencontrol/zengateway/internal/scene"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// DeviceDirectory is the slice of the device registry the API reads from.
type DeviceDirectory interface {
	GetDevice(ctx context.Context, id string) (*device.Device, error)
	ListDevices(ctx context.Context) ([]device.Device, error)
	ListByController(ctx context.Context, controllerID string) ([]device.Device, error)
	SetDeviceState(ctx context.Context, id string, patch device.State) (bool, error)
}

// ControllerDirectory exposes the controller registry to the API.
type ControllerDirectory interface {
	List() []controller.Controller
	Get(uid string) (controller.Controller, error)
}

// Commander executes device commands through the ZenControl bridge.
type Commander interface {
	Execute(ctx context.Context, deviceID, command string, params map[string]any) error
	Ping(ctx context.Context, uid string) error
	Stats() zen.BridgeStats
}

// SceneActivator runs stored scenes.
type SceneActivator interface {
	Activate(ctx context.Context, sceneID string) error
	Stats() scene.EngineStats
}

// DiscoveryService triggers and reports on device discovery runs.
type DiscoveryService interface {
	Trigger(force bool) error
	Status() discovery.Status
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	Security    config.SecurityConfig
	Logger      *logging.Logger
	Devices     DeviceDirectory
	Controllers ControllerDirectory
	Bridge      Commander
	SceneRepo   scene.Repository
	SceneEngine SceneActivator
	Discovery   DiscoveryService
	ExternalHub *Hub // If set, the server uses this hub instead of creating its own
	Version     string
}

// Server is the gateway's HTTP API server.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	secCfg      config.SecurityConfig
	logger      *logging.Logger
	devices     DeviceDirectory
	controllers ControllerDirectory
	bridge      Commander
	sceneRepo   scene.Repository
	sceneEngine SceneActivator
	discovery   DiscoveryService
	version     string
	startedAt   time.Time
	server      *http.Server
	hub         *Hub
	tickets     *ticketStore
	externalHub bool               // true if hub was injected externally
	cancel      context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Devices == nil {
		return nil, fmt.Errorf("device directory is required")
	}
	if deps.Controllers == nil {
		return nil, fmt.Errorf("controller directory is required")
	}
	if deps.Bridge == nil {
		return nil, fmt.Errorf("bridge is required")
	}
	if deps.SceneRepo == nil {
		return nil, fmt.Errorf("scene repository is required")
	}
	if deps.SceneEngine == nil {
		return nil, fmt.Errorf("scene engine is required")
	}
	if deps.Discovery == nil {
		return nil, fmt.Errorf("discovery service is required")
	}
	if deps.Security.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}

	s := &Server{
		cfg:         deps.Config,
		wsCfg:       deps.WS,
		secCfg:      deps.Security,
		logger:      deps.Logger,
		devices:     deps.Devices,
		controllers: deps.Controllers,
		bridge:      deps.Bridge,
		sceneRepo:   deps.SceneRepo,
		sceneEngine: deps.SceneEngine,
		discovery:   deps.Discovery,
		version:     deps.Version,
		tickets:     newTicketStore(),
	}

	// Use externally-provided hub if available (needed when the bridge also
	// requires the hub for WebSocket broadcasting).
	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
		s.externalHub = true
	}

	return s, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, and launches the HTTP
// listener in a background goroutine. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	s.startedAt = time.Now()

	// Create WebSocket hub (unless one was injected externally)
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
		go s.hub.Run(srvCtx)
	}

	// Start periodic ticket cleanup to prevent memory leaks
	go s.cleanTicketsLoop(srvCtx)

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	// Start listening in background
	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
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

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (hub, ticket cleanup)
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

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
