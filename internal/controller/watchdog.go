package controller

import (
	"context"
	"time"
)

// Watchdog default intervals. Overridable via config.
const (
	// DefaultCheckInterval is how often the watchdog inspects controllers.
	DefaultCheckInterval = 60 * time.Second

	// DefaultStaleTimeout is how long a controller may stay silent before
	// it is considered stale.
	DefaultStaleTimeout = 120 * time.Second
)

// EvictionHandler is notified for each controller the watchdog evicts.
type EvictionHandler func(Controller)

// Watchdog periodically evicts stale controllers from a registry and
// logs per-controller status.
type Watchdog struct {
	registry     *Registry
	interval     time.Duration
	staleTimeout time.Duration
	logger       Logger
	onEvict      EvictionHandler
}

// WatchdogOptions configures a Watchdog.
type WatchdogOptions struct {
	// Registry is the controller registry to guard. Required.
	Registry *Registry

	// CheckInterval between sweeps. Default: DefaultCheckInterval.
	CheckInterval time.Duration

	// StaleTimeout before a silent controller is evicted.
	// Default: DefaultStaleTimeout.
	StaleTimeout time.Duration

	// Logger is optional.
	Logger Logger

	// OnEvict is called for each evicted controller. Optional.
	OnEvict EvictionHandler
}

// NewWatchdog creates a watchdog. Call Run to start sweeping.
func NewWatchdog(opts WatchdogOptions) *Watchdog {
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = DefaultCheckInterval
	}
	if opts.StaleTimeout <= 0 {
		opts.StaleTimeout = DefaultStaleTimeout
	}

	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &Watchdog{
		registry:     opts.Registry,
		interval:     opts.CheckInterval,
		staleTimeout: opts.StaleTimeout,
		logger:       logger,
		onEvict:      opts.OnEvict,
	}
}

// Run sweeps the registry until the context is cancelled.
// Blocks; run it in its own goroutine.
func (w *Watchdog) Run(ctx context.Context) {
	w.logger.Info("controller watchdog started",
		"check_interval", w.interval.String(),
		"stale_timeout", w.staleTimeout.String())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("controller watchdog stopped")
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

// sweep evicts stale controllers and logs the status of the rest.
func (w *Watchdog) sweep() {
	evicted := w.registry.EvictStale(w.staleTimeout)
	for _, c := range evicted {
		if w.onEvict != nil {
			w.onEvict(c)
		}
	}

	for _, c := range w.registry.List() {
		status := "offline"
		if c.Ready {
			status = "ready"
		}
		w.logger.Debug("controller status",
			"uid", c.UID,
			"ip", c.IP,
			"status", status,
			"last_seen", c.LastSeen.Format(time.RFC3339))
	}
}
