package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zencontrol/zengateway/internal/bridges/zen"
	"github.com/zencontrol/zengateway/internal/controller"
	"github.com/zencontrol/zengateway/internal/device"
	"github.com/zencontrol/zengateway/internal/infrastructure/mqtt"
)

// Discovery timing constants.
const (
	// DefaultTimeout is the announcement collection window.
	DefaultTimeout = 30 * time.Second

	// MinTimeout and MaxTimeout clamp the configured window.
	MinTimeout = 5 * time.Second
	MaxTimeout = 300 * time.Second

	// defaultRetryInterval is the backoff between inventory query retries.
	defaultRetryInterval = 5 * time.Second

	// queryAttempts is how many times a controller inventory query is
	// tried before the controller is skipped for this run.
	queryAttempts = 3
)

// ErrInProgress is returned when a discovery run is already underway.
// Concurrent start requests coalesce into the running one.
var ErrInProgress = errors.New("discovery: already in progress")

// Querier sends discovery traffic to controllers.
// This is satisfied by *zen.Bridge.
type Querier interface {
	// Solicit broadcasts a discovery solicitation.
	Solicit() error

	// QueryDevices requests a ready controller's device inventory.
	QueryDevices(ctx context.Context, uid string) ([]zen.InventoryDevice, error)
}

// ControllerSource lists the controllers eligible for inventory queries.
// This is satisfied by *controller.Registry.
type ControllerSource interface {
	ReadyControllers() []controller.Controller
}

// DeviceRegistrar persists discovered devices.
// This is satisfied by *device.Registry.
type DeviceRegistrar interface {
	GetDevice(ctx context.Context, id string) (*device.Device, error)
	CreateDevice(ctx context.Context, d *device.Device) error
	UpdateDevice(ctx context.Context, d *device.Device) error
	DeleteAll(ctx context.Context) error
}

// Publisher sends MQTT messages. Optional.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Broadcaster pushes real-time updates to WebSocket subscribers. Optional.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Status describes the current or most recent discovery run.
type Status struct {
	InProgress         bool       `json:"in_progress"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	ControllersQueried int        `json:"controllers_queried"`
	ControllersFailed  int        `json:"controllers_failed"`
	DevicesRegistered  int        `json:"devices_registered"`
	LastError          string     `json:"last_error,omitempty"`
}

// Manager runs device discovery: it solicits controller announcements,
// waits out the collection window, then queries each ready controller
// for its device inventory and registers the results.
//
// Only one run may be active at a time; Trigger and Run return
// ErrInProgress while a run is underway.
type Manager struct {
	querier     Querier
	controllers ControllerSource
	devices     DeviceRegistrar
	mqtt        Publisher
	ws          Broadcaster

	timeout       time.Duration
	retryInterval time.Duration
	topics        mqtt.Topics

	inProgress bool
	status     Status
	statusMu   sync.Mutex

	ctx       context.Context
	ctxCancel context.CancelFunc
	wg        sync.WaitGroup

	logger   Logger
	loggerMu sync.RWMutex
}

// ManagerOptions holds configuration for creating a discovery manager.
type ManagerOptions struct {
	// Querier sends the discovery traffic. Required.
	Querier Querier

	// Controllers lists ready controllers. Required.
	Controllers ControllerSource

	// Devices persists discovered inventory. Required.
	Devices DeviceRegistrar

	// MQTT is optional completion event fan-out.
	MQTT Publisher

	// WS is optional WebSocket fan-out.
	WS Broadcaster

	// Timeout is the announcement collection window.
	// Clamped to [5s, 300s]; zero means the 30s default.
	Timeout time.Duration

	// RetryInterval is the backoff between inventory query retries.
	// Zero means the 5s default.
	RetryInterval time.Duration

	// Logger is optional structured logger.
	Logger Logger
}

// NewManager creates a discovery manager.
func NewManager(opts ManagerOptions) (*Manager, error) {
	if opts.Querier == nil {
		return nil, fmt.Errorf("discovery: querier is required")
	}
	if opts.Controllers == nil {
		return nil, fmt.Errorf("discovery: controller source is required")
	}
	if opts.Devices == nil {
		return nil, fmt.Errorf("discovery: device registrar is required")
	}

	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Timeout < MinTimeout {
		opts.Timeout = MinTimeout
	}
	if opts.Timeout > MaxTimeout {
		opts.Timeout = MaxTimeout
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = defaultRetryInterval
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		querier:       opts.Querier,
		controllers:   opts.Controllers,
		devices:       opts.Devices,
		mqtt:          opts.MQTT,
		ws:            opts.WS,
		timeout:       opts.Timeout,
		retryInterval: opts.RetryInterval,
		ctx:           ctx,
		ctxCancel:     cancel,
		logger:        opts.Logger,
	}, nil
}

// Trigger starts a discovery run in the background.
// Returns ErrInProgress if one is already underway. When force is true
// the device registry is cleared before re-registering inventories.
func (m *Manager) Trigger(force bool) error {
	if !m.begin() {
		return ErrInProgress
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(m.ctx, force)
	}()
	return nil
}

// Run executes a discovery run synchronously.
// Returns ErrInProgress if one is already underway.
func (m *Manager) Run(ctx context.Context, force bool) error {
	if !m.begin() {
		return ErrInProgress
	}
	m.run(ctx, force)
	return nil
}

// Status returns a snapshot of the current or most recent run.
func (m *Manager) Status() Status {
	m.statusMu.Lock()
	defer m.statusMu.Unlock()
	return m.status
}

// Stop cancels any background run and waits for it to finish.
func (m *Manager) Stop() {
	m.ctxCancel()
	m.wg.Wait()
}

// begin claims the in-progress guard. Returns false if a run is active.
func (m *Manager) begin() bool {
	m.statusMu.Lock()
	defer m.statusMu.Unlock()
	if m.inProgress {
		return false
	}
	m.inProgress = true
	now := time.Now().UTC()
	m.status = Status{InProgress: true, StartedAt: &now}
	return true
}

// run executes the discovery workflow. The guard is already held.
func (m *Manager) run(ctx context.Context, force bool) {
	started := time.Now()
	m.logInfo("discovery started", "force", force, "window", m.timeout.String())

	var runErr error

	if force {
		if err := m.devices.DeleteAll(ctx); err != nil {
			runErr = fmt.Errorf("clearing devices: %w", err)
			m.logError("failed to clear device registry", err)
		}
	}

	if runErr == nil {
		if err := m.querier.Solicit(); err != nil {
			// Controllers that already announced themselves can still be
			// queried, so a failed solicitation does not abort the run.
			m.logWarn("discovery solicitation failed", "error", err.Error())
		}

		select {
		case <-ctx.Done():
			runErr = ctx.Err()
		case <-time.After(m.timeout):
		}
	}

	queried, failed, registered := 0, 0, 0
	if runErr == nil {
		for _, ctrl := range m.controllers.ReadyControllers() {
			if !ctrl.DiscoveryEnabled {
				m.logDebug("controller excluded from discovery", "uid", ctrl.UID)
				continue
			}

			inventory, err := m.queryWithRetry(ctx, ctrl.UID)
			if err != nil {
				failed++
				m.logWarn("inventory query failed", "uid", ctrl.UID, "error", err.Error())
				continue
			}
			queried++

			registered += m.register(ctx, ctrl.UID, inventory)
		}
	}

	m.finish(queried, failed, registered, runErr)

	event := map[string]any{
		"status":              "complete",
		"controllers_queried": queried,
		"controllers_failed":  failed,
		"devices_registered":  registered,
		"duration_seconds":    int(time.Since(started).Seconds()),
		"timestamp":           time.Now().UTC().Format(time.RFC3339),
	}
	if runErr != nil {
		event["status"] = "failed"
		event["error"] = runErr.Error()
	}
	m.publishJSON(m.topics.Discovery(), event)
	if m.ws != nil {
		m.ws.Broadcast("discovery", event)
	}

	m.logInfo("discovery finished",
		"controllers_queried", queried,
		"controllers_failed", failed,
		"devices_registered", registered)
}

// queryWithRetry queries one controller's inventory, retrying with a
// fixed backoff.
func (m *Manager) queryWithRetry(ctx context.Context, uid string) ([]zen.InventoryDevice, error) {
	var lastErr error
	for attempt := 1; attempt <= queryAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(m.retryInterval):
			}
			m.logDebug("retrying inventory query", "uid", uid, "attempt", attempt)
		}

		inventory, err := m.querier.QueryDevices(ctx, uid)
		if err == nil {
			return inventory, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// register persists one controller's inventory. Existing devices keep
// their state; name, type, and config are refreshed from the inventory.
func (m *Manager) register(ctx context.Context, uid string, inventory []zen.InventoryDevice) int {
	registered := 0
	for _, item := range inventory {
		name := item.Name
		if name == "" {
			name = item.ID
		}
		d := &device.Device{
			ID:           item.ID,
			Name:         name,
			ControllerID: uid,
			Type:         device.DeviceType(item.Type),
			Config:       device.Config(item.Config),
		}

		existing, err := m.devices.GetDevice(ctx, item.ID)
		switch {
		case err == nil:
			d.State = existing.State
			d.StateUpdatedAt = existing.StateUpdatedAt
			d.Capabilities = existing.Capabilities
			d.CreatedAt = existing.CreatedAt
			if err := m.devices.UpdateDevice(ctx, d); err != nil {
				m.logWarn("device update failed", "device_id", item.ID, "error", err.Error())
				continue
			}
		case errors.Is(err, device.ErrDeviceNotFound):
			if err := m.devices.CreateDevice(ctx, d); err != nil {
				m.logWarn("device registration failed", "device_id", item.ID, "error", err.Error())
				continue
			}
		default:
			m.logWarn("device lookup failed", "device_id", item.ID, "error", err.Error())
			continue
		}
		registered++
	}
	return registered
}

// finish releases the guard and records the run's outcome.
func (m *Manager) finish(queried, failed, registered int, runErr error) {
	m.statusMu.Lock()
	defer m.statusMu.Unlock()

	now := time.Now().UTC()
	m.inProgress = false
	m.status.InProgress = false
	m.status.CompletedAt = &now
	m.status.ControllersQueried = queried
	m.status.ControllersFailed = failed
	m.status.DevicesRegistered = registered
	if runErr != nil {
		m.status.LastError = runErr.Error()
	}
}

func (m *Manager) publishJSON(topic string, payload any) {
	if m.mqtt == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		m.logError("marshalling discovery event", err)
		return
	}
	if err := m.mqtt.Publish(topic, data, 1, false); err != nil {
		m.logError("publishing discovery event", err)
	}
}

// SetLogger sets the logger for this manager.
func (m *Manager) SetLogger(logger Logger) {
	m.loggerMu.Lock()
	defer m.loggerMu.Unlock()
	m.logger = logger
}

func (m *Manager) logDebug(msg string, keysAndValues ...any) {
	m.loggerMu.RLock()
	defer m.loggerMu.RUnlock()
	if m.logger != nil {
		m.logger.Debug(msg, keysAndValues...)
	}
}

func (m *Manager) logInfo(msg string, keysAndValues ...any) {
	m.loggerMu.RLock()
	defer m.loggerMu.RUnlock()
	if m.logger != nil {
		m.logger.Info(msg, keysAndValues...)
	}
}

func (m *Manager) logWarn(msg string, keysAndValues ...any) {
	m.loggerMu.RLock()
	defer m.loggerMu.RUnlock()
	if m.logger != nil {
		m.logger.Warn(msg, keysAndValues...)
	}
}

func (m *Manager) logError(msg string, err error) {
	m.loggerMu.RLock()
	defer m.loggerMu.RUnlock()
	if m.logger != nil {
		m.logger.Error(msg, "error", err.Error())
	}
}
