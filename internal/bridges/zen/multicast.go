package zen

import (
	"fmt"
	"hash/fnv"
	"net"
	"sync"
	"sync/atomic"
)

// Multicast listener sizes.
const (
	// shardQueueSize bounds each dispatch shard's queue.
	shardQueueSize = 64

	// eventShardCount is the number of dispatch shards. Events are
	// sharded by device identity (controller identity for status
	// events) so each device's events dispatch strictly in arrival
	// order while unrelated devices dispatch concurrently.
	eventShardCount = 4
)

// ListenerConfig holds multicast listener configuration.
type ListenerConfig struct {
	// Group is the multicast group address (e.g. "239.255.90.67").
	Group string

	// Port is the multicast port.
	Port int

	// Interface optionally names the network interface to join on.
	// Empty means the system default.
	Interface string
}

// ListenerStats holds operational statistics.
type ListenerStats struct {
	EventsRx      uint64
	EventsDropped uint64 // Dropped due to full queue
	ParseErrors   uint64
	Running       bool
}

// EventHandler receives decoded multicast events.
type EventHandler func(Event)

// Listener joins the ZenControl multicast group and fans decoded events
// out to registered handlers.
//
// Handlers run on a bounded worker pool sharded by device identity, so
// events for one device are always delivered in arrival order. A
// panicking handler is recovered and logged, never killing the
// listener. Malformed datagrams are logged at warn and dropped.
type Listener struct {
	cfg  ListenerConfig
	conn *net.UDPConn

	handlers   []EventHandler
	handlersMu sync.RWMutex

	shards []chan Event

	done *closeOnce
	wg   sync.WaitGroup

	logger   Logger
	loggerMu sync.RWMutex

	eventsRx      atomic.Uint64
	eventsDropped atomic.Uint64
	parseErrors   atomic.Uint64
}

// StartListener joins the multicast group and starts receiving events.
func StartListener(cfg ListenerConfig) (*Listener, error) {
	group := net.ParseIP(cfg.Group)
	if group == nil || !group.IsMulticast() {
		return nil, fmt.Errorf("zen: %q is not a multicast group address", cfg.Group)
	}

	var iface *net.Interface
	if cfg.Interface != "" {
		found, err := net.InterfaceByName(cfg.Interface)
		if err != nil {
			return nil, fmt.Errorf("zen: interface %q: %w", cfg.Interface, err)
		}
		iface = found
	}

	conn, err := net.ListenMulticastUDP("udp4", iface, &net.UDPAddr{IP: group, Port: cfg.Port})
	if err != nil {
		return nil, fmt.Errorf("zen: joining %s:%d: %w", cfg.Group, cfg.Port, err)
	}

	l := &Listener{
		cfg:    cfg,
		conn:   conn,
		shards: make([]chan Event, eventShardCount),
		done:   newCloseOnce(),
	}

	for i := range l.shards {
		l.shards[i] = make(chan Event, shardQueueSize)
		l.wg.Add(1)
		go l.worker(l.shards[i])
	}

	l.wg.Add(1)
	go l.receiveLoop()

	return l, nil
}

// SetLogger sets the logger for this listener.
func (l *Listener) SetLogger(logger Logger) {
	l.loggerMu.Lock()
	l.logger = logger
	l.loggerMu.Unlock()
}

// AddHandler registers a handler for decoded events.
// Handlers added after Start receive only subsequent events.
func (l *Listener) AddHandler(handler EventHandler) {
	l.handlersMu.Lock()
	l.handlers = append(l.handlers, handler)
	l.handlersMu.Unlock()
}

// receiveLoop reads multicast datagrams and queues decoded events.
func (l *Listener) receiveLoop() {
	defer l.wg.Done()

	buf := make([]byte, datagramBufferSize)
	for {
		n, addr, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-l.done.Done():
				return // Clean shutdown
			default:
			}
			l.logError("multicast read failed", err)
			continue
		}

		event, err := ParseEvent(buf[:n])
		if err != nil {
			l.parseErrors.Add(1)
			l.logWarn("malformed multicast event dropped",
				"from", addr.String(), "error", err.Error())
			continue
		}

		l.eventsRx.Add(1)

		// Non-blocking queue with drop on overflow to protect the
		// receive loop from slow handlers.
		select {
		case l.shards[shardFor(event)] <- event:
		default:
			l.eventsDropped.Add(1)
			l.logWarn("event queue full, dropping event", "type", event.Type)
		}
	}
}

// shardFor maps an event to its dispatch shard. Device events shard by
// device ID, controller status events by controller ID, keeping each
// source's events on a single worker.
func shardFor(event Event) int {
	key := event.DeviceID
	if key == "" {
		key = event.ControllerID
	}
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % eventShardCount)
}

// worker dispatches one shard's queued events to handlers.
func (l *Listener) worker(shard <-chan Event) {
	defer l.wg.Done()

	for {
		select {
		case <-l.done.Done():
			return
		case event := <-shard:
			l.dispatch(event)
		}
	}
}

// dispatch delivers one event to every handler, recovering panics.
func (l *Listener) dispatch(event Event) {
	l.handlersMu.RLock()
	handlers := make([]EventHandler, len(l.handlers))
	copy(handlers, l.handlers)
	l.handlersMu.RUnlock()

	for _, handler := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					l.logError("event handler panic", fmt.Errorf("%v", r))
				}
			}()
			handler(event)
		}()
	}
}

// IsRunning returns true until Close is called.
func (l *Listener) IsRunning() bool {
	select {
	case <-l.done.Done():
		return false
	default:
		return true
	}
}

// Stats returns current operational statistics.
func (l *Listener) Stats() ListenerStats {
	return ListenerStats{
		EventsRx:      l.eventsRx.Load(),
		EventsDropped: l.eventsDropped.Load(),
		ParseErrors:   l.parseErrors.Load(),
		Running:       l.IsRunning(),
	}
}

// Close leaves the multicast group and stops all workers.
// Safe to call multiple times.
func (l *Listener) Close() error {
	l.done.Close()

	err := l.conn.Close()
	l.wg.Wait()

	l.logInfo("multicast listener closed", "group", l.cfg.Group, "port", l.cfg.Port)
	return err
}

// logInfo logs an info message if logger is set.
func (l *Listener) logInfo(msg string, keysAndValues ...any) {
	l.loggerMu.RLock()
	logger := l.logger
	l.loggerMu.RUnlock()

	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

// logWarn logs a warning message if logger is set.
func (l *Listener) logWarn(msg string, keysAndValues ...any) {
	l.loggerMu.RLock()
	logger := l.logger
	l.loggerMu.RUnlock()

	if logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is set.
func (l *Listener) logError(msg string, err error) {
	l.loggerMu.RLock()
	logger := l.logger
	l.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}
