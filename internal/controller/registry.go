package controller

import (
	"errors"
	"sync"
	"time"
)

// ErrControllerNotFound is returned when a controller uid does not exist.
var ErrControllerNotFound = errors.New("controller: not found")

// Controller represents a ZenControl appliance bridging the DALI network.
type Controller struct {
	// UID is the controller's unique identifier (e.g. "zc-001").
	UID string `json:"uid"`

	// IP is the controller's current unicast address.
	IP string `json:"ip"`

	// Name is a friendly label. Defaults to the UID when unset.
	Name string `json:"name"`

	// Ready is true once the controller has announced startup_complete
	// (or resumed heartbeating after a restart).
	Ready bool `json:"ready"`

	// Configured is true for controllers seeded from the config file.
	// Configured controllers are exempt from stale eviction.
	Configured bool `json:"configured"`

	// DiscoveryEnabled gates whether discovery queries this controller.
	DiscoveryEnabled bool `json:"discovery_enabled"`

	// LastSeen is the time of the last status event from this controller.
	LastSeen time.Time `json:"last_seen"`
}

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry tracks the controllers announced on the multicast group.
//
// All public methods are thread-safe. Methods return copies; the registry's
// internal state can only change through its mutating methods.
type Registry struct {
	mu          sync.RWMutex
	controllers map[string]*Controller
	logger      Logger
	now         func() time.Time // injectable for tests
}

// NewRegistry creates an empty controller registry.
func NewRegistry() *Registry {
	return &Registry{
		controllers: make(map[string]*Controller),
		logger:      noopLogger{},
		now:         time.Now,
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.mu.Lock()
	r.logger = logger
	r.mu.Unlock()
}

// Seed registers a statically configured controller. Seeded controllers
// start not-ready (they become ready when they announce themselves) and
// are never evicted by the watchdog.
func (r *Registry) Seed(uid, ip, name string, discoveryEnabled bool) Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		name = uid
	}

	c := &Controller{
		UID:              uid,
		IP:               ip,
		Name:             name,
		Configured:       true,
		DiscoveryEnabled: discoveryEnabled,
		LastSeen:         r.now(),
	}
	r.controllers[uid] = c

	r.logger.Info("configured controller added",
		"uid", uid, "ip", ip, "discovery_enabled", discoveryEnabled)
	return *c
}

// AddOrUpdate registers a controller sighting. New controllers are logged
// as discovered; a changed IP on a known controller is logged and updated.
// Returns a copy of the stored controller.
func (r *Registry) AddOrUpdate(uid, ip string) Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.controllers[uid]
	if !ok {
		c = &Controller{
			UID:              uid,
			IP:               ip,
			Name:             uid,
			DiscoveryEnabled: true,
			LastSeen:         r.now(),
		}
		r.controllers[uid] = c
		r.logger.Info("discovered controller", "uid", uid, "ip", ip)
		return *c
	}

	if c.IP != ip {
		r.logger.Info("controller IP changed",
			"uid", uid, "old_ip", c.IP, "new_ip", ip)
		c.IP = ip
	}
	c.LastSeen = r.now()
	return *c
}

// Heartbeat refreshes a controller's last-seen timestamp and marks it
// ready. A controller that reboots without us seeing startup_complete
// would otherwise stay "not ready" forever while heartbeating happily.
func (r *Registry) Heartbeat(uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.controllers[uid]
	if !ok {
		return ErrControllerNotFound
	}

	c.LastSeen = r.now()
	if !c.Ready {
		c.Ready = true
		r.logger.Info("controller ready via heartbeat", "uid", uid, "ip", c.IP)
	}
	return nil
}

// MarkReady marks a controller as ready after startup_complete.
func (r *Registry) MarkReady(uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.controllers[uid]
	if !ok {
		return ErrControllerNotFound
	}

	c.LastSeen = r.now()
	if !c.Ready {
		c.Ready = true
		r.logger.Info("controller ready", "uid", uid, "ip", c.IP)
	}
	return nil
}

// MarkOffline clears a controller's ready flag after a shutdown event.
func (r *Registry) MarkOffline(uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.controllers[uid]
	if !ok {
		return ErrControllerNotFound
	}

	if c.Ready {
		c.Ready = false
		r.logger.Warn("controller shutting down", "uid", uid, "ip", c.IP)
	}
	return nil
}

// Get returns a copy of the controller with the given uid.
func (r *Registry) Get(uid string) (Controller, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.controllers[uid]
	if !ok {
		return Controller{}, ErrControllerNotFound
	}
	return *c, nil
}

// List returns copies of all known controllers.
func (r *Registry) List() []Controller {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Controller, 0, len(r.controllers))
	for _, c := range r.controllers {
		list = append(list, *c)
	}
	return list
}

// ReadyControllers returns copies of all controllers marked ready.
func (r *Registry) ReadyControllers() []Controller {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ready []Controller
	for _, c := range r.controllers {
		if c.Ready {
			ready = append(ready, *c)
		}
	}
	return ready
}

// Count returns the number of known controllers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.controllers)
}

// EvictStale removes controllers not seen within the timeout and returns
// the evicted ones. Configured controllers are never evicted; a stale
// configured controller is marked not-ready instead so command routing
// stops targeting it.
func (r *Registry) EvictStale(timeout time.Duration) []Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-timeout)

	var evicted []Controller
	for uid, c := range r.controllers {
		if !c.LastSeen.Before(cutoff) {
			continue
		}
		if c.Configured {
			if c.Ready {
				c.Ready = false
				r.logger.Warn("configured controller stale, marking offline",
					"uid", uid, "ip", c.IP, "last_seen", c.LastSeen)
			}
			continue
		}
		r.logger.Warn("removing stale controller",
			"uid", uid, "ip", c.IP, "last_seen", c.LastSeen)
		evicted = append(evicted, *c)
		delete(r.controllers, uid)
	}
	return evicted
}
