package device

import (
	"context"
	"fmt"
	"sync"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
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

// Registry provides device management with caching and thread safety.
// It wraps a Repository and adds an in-memory cache for fast lookups,
// which matters on the event path where every multicast datagram needs
// a device lookup.
//
// The cache is populated on startup via RefreshCache() and kept in sync
// by cache-invalidating CRUD operations.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]*Device // Cached devices by ID
	cacheMu sync.RWMutex       // Protects cache
	logger  Logger
}

// NewRegistry creates a new device registry.
// The repository is used for persistence; the registry adds caching.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*Device),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all devices from the repository into the cache.
// This should be called on application startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	devices, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	// Clear and rebuild cache with deep copies
	r.cache = make(map[string]*Device, len(devices))
	for i := range devices {
		d := devices[i]
		r.cache[d.ID] = d.DeepCopy()
	}

	r.logger.Info("device cache refreshed", "count", len(devices))
	return nil
}

// GetDevice retrieves a device by ID.
// Returns ErrDeviceNotFound if the device does not exist.
// The returned device is a deep copy; callers can safely modify it.
func (r *Registry) GetDevice(ctx context.Context, id string) (*Device, error) {
	// Try cache first
	r.cacheMu.RLock()
	cached, ok := r.cache[id]
	r.cacheMu.RUnlock()

	if ok {
		// Return a deep copy to prevent external mutation of cache
		return cached.DeepCopy(), nil
	}

	// Fall back to repository (might be a new device not yet cached)
	device, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Cache for future lookups (store a deep copy)
	r.cacheMu.Lock()
	r.cache[id] = device.DeepCopy()
	r.cacheMu.Unlock()

	return device, nil
}

// ListDevices retrieves all devices.
// The returned devices are deep copies; callers can safely modify them.
func (r *Registry) ListDevices(ctx context.Context) ([]Device, error) {
	r.cacheMu.RLock()
	if len(r.cache) > 0 {
		devices := make([]Device, 0, len(r.cache))
		for _, d := range r.cache {
			devices = append(devices, *d.DeepCopy())
		}
		r.cacheMu.RUnlock()
		return devices, nil
	}
	r.cacheMu.RUnlock()

	return r.repo.List(ctx)
}

// ListByController retrieves all devices owned by a controller.
func (r *Registry) ListByController(ctx context.Context, controllerID string) ([]Device, error) {
	r.cacheMu.RLock()
	if len(r.cache) > 0 {
		var devices []Device
		for _, d := range r.cache {
			if d.ControllerID == controllerID {
				devices = append(devices, *d.DeepCopy())
			}
		}
		r.cacheMu.RUnlock()
		return devices, nil
	}
	r.cacheMu.RUnlock()

	return r.repo.ListByController(ctx, controllerID)
}

// CreateDevice validates and persists a new device, then caches it.
// Returns ErrDeviceExists if the ID is already taken.
func (r *Registry) CreateDevice(ctx context.Context, d *Device) error {
	if err := Validate(d); err != nil {
		return err
	}

	if len(d.Capabilities) == 0 {
		d.Capabilities = DefaultCapabilities(d.Type)
	}

	if err := r.repo.Create(ctx, d); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[d.ID] = d.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Debug("device created", "id", d.ID, "type", d.Type, "controller", d.ControllerID)
	return nil
}

// UpdateDevice validates and persists changes to an existing device.
func (r *Registry) UpdateDevice(ctx context.Context, d *Device) error {
	if err := Validate(d); err != nil {
		return err
	}

	if err := r.repo.Update(ctx, d); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[d.ID] = d.DeepCopy()
	r.cacheMu.Unlock()

	return nil
}

// DeleteDevice removes a device and invalidates its cache entry.
func (r *Registry) DeleteDevice(ctx context.Context, id string) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.cache, id)
	r.cacheMu.Unlock()

	r.logger.Debug("device deleted", "id", id)
	return nil
}

// DeleteAll removes every device and clears the cache.
// Used by user-initiated discovery before re-registering inventories.
func (r *Registry) DeleteAll(ctx context.Context) error {
	if err := r.repo.DeleteAll(ctx); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache = make(map[string]*Device)
	r.cacheMu.Unlock()

	r.logger.Info("all devices cleared")
	return nil
}

// SetDeviceState merges a state patch into the device's state with change
// detection: if no key actually changes, neither the cache nor the
// repository is touched and false is returned.
func (r *Registry) SetDeviceState(ctx context.Context, id string, patch State) (bool, error) {
	r.cacheMu.Lock()
	cached, ok := r.cache[id]
	if ok {
		changed := false
		for key, value := range patch {
			if !valuesEqual(cached.State[key], value) {
				changed = true
				break
			}
		}
		if !changed {
			r.cacheMu.Unlock()
			return false, nil
		}
		cached.ApplyLightState(patch)
	}
	r.cacheMu.Unlock()

	if err := r.repo.UpdateState(ctx, id, patch); err != nil {
		return false, err
	}

	if !ok {
		// Not cached; pull the fresh row in for future lookups.
		if device, err := r.repo.GetByID(ctx, id); err == nil {
			r.cacheMu.Lock()
			r.cache[id] = device.DeepCopy()
			r.cacheMu.Unlock()
		}
	}

	return true, nil
}

// Count returns the number of cached devices.
func (r *Registry) Count() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}
