package zen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// closeOnce wraps a channel with sync.Once to prevent double-close panics.
type closeOnce struct {
	ch   chan struct{}
	once sync.Once
}

func newCloseOnce() *closeOnce {
	return &closeOnce{ch: make(chan struct{})}
}

func (c *closeOnce) Close() {
	c.once.Do(func() { close(c.ch) })
}

func (c *closeOnce) Done() <-chan struct{} {
	return c.ch
}

// Default timeouts and sizes for controller communication.
const (
	// defaultCommandTimeout is the wait for a controller response.
	defaultCommandTimeout = 2 * time.Second

	// minCommandTimeout and maxCommandTimeout clamp configured values.
	minCommandTimeout = 500 * time.Millisecond
	maxCommandTimeout = 10 * time.Second

	// defaultRetries is the number of resends after the first timeout.
	defaultRetries = 1

	// retryBackoff is the fixed delay before a resend.
	retryBackoff = 250 * time.Millisecond

	// datagramBufferSize is the read buffer for response datagrams.
	// Inventory responses are the largest payloads we expect.
	datagramBufferSize = 8192
)

// ClientConfig holds UDP command client configuration.
type ClientConfig struct {
	// ListenPort is the local bind port. Controllers also listen for
	// commands on this port.
	ListenPort int

	// Timeout is the per-command response wait. Default 2s, clamped
	// to 0.5s-10s.
	Timeout time.Duration

	// Retries is the number of resends after a timeout. Default 1.
	Retries int
}

// ClientStats holds operational statistics.
type ClientStats struct {
	CommandsTx    uint64
	ResponsesRx   uint64
	Timeouts      uint64
	FramesDropped uint64 // Malformed or unexpected datagrams
	Running       bool
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Sender is the command-sending interface of the UDP client.
// This allows mocking the client in tests.
type Sender interface {
	SendCommand(ctx context.Context, controllerIP string, cmd Command) (*Response, error)
	Broadcast(cmd Command) error
	IsRunning() bool
	Stats() ClientStats
	Close() error
}

// Ensure UDPClient implements Sender.
var _ Sender = (*UDPClient)(nil)

// UDPClient sends sequence-tracked commands to ZenControl controllers.
//
// Each command frame carries a 2-byte big-endian sequence number; the
// controller echoes it in the response. The client keeps a pending map
// keyed by sequence and delivers each response to the waiting caller's
// channel. Responses with an unknown sequence are logged and dropped.
//
// Thread Safety: all methods are safe for concurrent use.
type UDPClient struct {
	cfg  ClientConfig
	conn *net.UDPConn

	seq     sequenceCounter
	pending map[uint16]chan []byte
	mu      sync.Mutex // Protects pending

	// Shutdown coordination
	done *closeOnce
	wg   sync.WaitGroup

	// Logger (optional)
	logger   Logger
	loggerMu sync.RWMutex

	// Statistics (atomic for performance)
	commandsTx    atomic.Uint64
	responsesRx   atomic.Uint64
	timeouts      atomic.Uint64
	framesDropped atomic.Uint64
}

// StartClient binds the UDP socket and starts the receive loop.
func StartClient(cfg ClientConfig) (*UDPClient, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultCommandTimeout
	}
	if cfg.Timeout < minCommandTimeout {
		cfg.Timeout = minCommandTimeout
	}
	if cfg.Timeout > maxCommandTimeout {
		cfg.Timeout = maxCommandTimeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = defaultRetries
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: cfg.ListenPort})
	if err != nil {
		return nil, fmt.Errorf("zen: binding udp port %d: %w", cfg.ListenPort, err)
	}

	client := &UDPClient{
		cfg:     cfg,
		conn:    conn,
		pending: make(map[uint16]chan []byte),
		done:    newCloseOnce(),
	}

	client.wg.Add(1)
	go client.receiveLoop()

	return client, nil
}

// SetLogger sets the logger for this client.
func (c *UDPClient) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// receiveLoop reads response datagrams and routes them to waiters.
func (c *UDPClient) receiveLoop() {
	defer c.wg.Done()

	buf := make([]byte, datagramBufferSize)
	for {
		n, addr, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-c.done.Done():
				return // Clean shutdown
			default:
			}
			c.logError("udp read failed", err)
			continue
		}

		seq, payload, err := DecodeFrame(buf[:n])
		if err != nil {
			c.framesDropped.Add(1)
			c.logWarn("malformed datagram dropped", "from", addr.String(), "size", n)
			continue
		}

		// Copy the payload out of the shared read buffer before handing
		// it to the waiting goroutine.
		body := make([]byte, len(payload))
		copy(body, payload)

		c.mu.Lock()
		ch, ok := c.pending[seq]
		if ok {
			delete(c.pending, seq)
		}
		c.mu.Unlock()

		if !ok {
			c.framesDropped.Add(1)
			c.logWarn("response for unknown sequence dropped",
				"seq", seq, "from", addr.String())
			continue
		}

		c.responsesRx.Add(1)
		ch <- body
	}
}

// SendCommand marshals a command, sends it to the controller, and waits
// for the matching response. Timed-out sends are retried per the
// configured retry count with a fixed backoff.
func (c *UDPClient) SendCommand(ctx context.Context, controllerIP string, cmd Command) (*Response, error) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("zen: encoding command: %w", err)
	}

	addr := &net.UDPAddr{IP: net.ParseIP(controllerIP), Port: c.cfg.ListenPort}
	if addr.IP == nil {
		return nil, fmt.Errorf("zen: invalid controller address %q", controllerIP)
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("zen: %w", ctx.Err())
			case <-c.done.Done():
				return nil, ErrClosed
			case <-time.After(retryBackoff):
			}
			c.logDebug("retrying command",
				"command", cmd.Command, "controller", controllerIP, "attempt", attempt)
		}

		body, err := c.exchange(ctx, addr, payload)
		if err == nil {
			return ParseResponse(body)
		}
		lastErr = err

		// Only timeouts warrant a resend
		if !isTimeout(err) {
			return nil, err
		}
	}

	return nil, lastErr
}

// exchange performs one request/response round trip.
func (c *UDPClient) exchange(ctx context.Context, addr *net.UDPAddr, payload []byte) ([]byte, error) {
	select {
	case <-c.done.Done():
		return nil, ErrClosed
	default:
	}

	seq := c.seq.Next()
	ch := make(chan []byte, 1)

	c.mu.Lock()
	c.pending[seq] = ch
	c.mu.Unlock()

	// Always clear the pending entry; the receive loop may have already
	// removed it when delivering the response.
	defer func() {
		c.mu.Lock()
		delete(c.pending, seq)
		c.mu.Unlock()
	}()

	frame := EncodeFrame(seq, payload)
	if _, err := c.conn.WriteToUDP(frame, addr); err != nil {
		return nil, fmt.Errorf("zen: sending to %s: %w", addr, err)
	}
	c.commandsTx.Add(1)
	c.logDebug("command sent", "controller", addr.IP.String(), "seq", seq)

	timer := time.NewTimer(c.cfg.Timeout)
	defer timer.Stop()

	select {
	case body := <-ch:
		return body, nil
	case <-timer.C:
		c.timeouts.Add(1)
		c.logWarn("command timeout", "controller", addr.IP.String(), "seq", seq)
		return nil, fmt.Errorf("%w: seq %d to %s", ErrTimeout, seq, addr.IP)
	case <-ctx.Done():
		return nil, fmt.Errorf("zen: %w", ctx.Err())
	case <-c.done.Done():
		return nil, ErrClosed
	}
}

// Broadcast sends a command to the local broadcast address without
// waiting for a response. Used for discovery solicitations, which
// controllers answer on the multicast group instead.
func (c *UDPClient) Broadcast(cmd Command) error {
	select {
	case <-c.done.Done():
		return ErrClosed
	default:
	}

	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("zen: encoding broadcast: %w", err)
	}

	addr := &net.UDPAddr{IP: net.IPv4bcast, Port: c.cfg.ListenPort}
	frame := EncodeFrame(c.seq.Next(), payload)
	if _, err := c.conn.WriteToUDP(frame, addr); err != nil {
		return fmt.Errorf("zen: broadcasting: %w", err)
	}

	c.commandsTx.Add(1)
	c.logDebug("broadcast sent", "command", cmd.Command)
	return nil
}

// IsRunning returns true until Close is called.
func (c *UDPClient) IsRunning() bool {
	select {
	case <-c.done.Done():
		return false
	default:
		return true
	}
}

// Stats returns current operational statistics.
func (c *UDPClient) Stats() ClientStats {
	return ClientStats{
		CommandsTx:    c.commandsTx.Load(),
		ResponsesRx:   c.responsesRx.Load(),
		Timeouts:      c.timeouts.Load(),
		FramesDropped: c.framesDropped.Load(),
		Running:       c.IsRunning(),
	}
}

// Close stops the receive loop and releases the socket.
// Safe to call multiple times.
func (c *UDPClient) Close() error {
	c.done.Close()

	// Closing the socket unblocks the receive loop's read
	err := c.conn.Close()
	c.wg.Wait()

	// Fail any waiters still pending
	c.mu.Lock()
	for seq, ch := range c.pending {
		close(ch)
		delete(c.pending, seq)
	}
	c.mu.Unlock()

	c.logInfo("udp client closed")
	return err
}

// isTimeout reports whether the error is a command timeout.
func isTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// logDebug logs a debug message if logger is set.
func (c *UDPClient) logDebug(msg string, keysAndValues ...any) {
	c.loggerMu.RLock()
	logger := c.logger
	c.loggerMu.RUnlock()

	if logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if logger is set.
func (c *UDPClient) logInfo(msg string, keysAndValues ...any) {
	c.loggerMu.RLock()
	logger := c.logger
	c.loggerMu.RUnlock()

	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

// logWarn logs a warning message if logger is set.
func (c *UDPClient) logWarn(msg string, keysAndValues ...any) {
	c.loggerMu.RLock()
	logger := c.logger
	c.loggerMu.RUnlock()

	if logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is set.
func (c *UDPClient) logError(msg string, err error) {
	c.loggerMu.RLock()
	logger := c.logger
	c.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}
