package mixer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
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

// Default timeouts and sizes for console communication.
const (
	// defaultRequestTimeout is the maximum time to wait for a reply.
	defaultRequestTimeout = 5 * time.Second

	// defaultRemoteInterval is the renewal period for the console's
	// unsolicited-update subscription. The console expires the
	// subscription after ten seconds of silence.
	defaultRemoteInterval = 9 * time.Second

	// defaultWriteTimeout is the deadline applied to socket writes.
	defaultWriteTimeout = 5 * time.Second

	// readPollInterval is the read deadline used by the receive loop so it
	// can observe shutdown between datagrams.
	readPollInterval = 1 * time.Second

	// maxDatagramSize is the receive buffer size. UDP payloads cannot
	// exceed this.
	maxDatagramSize = 65507

	// callbackQueueSize is the buffer size for the callback event queue.
	callbackQueueSize = 100

	// callbackWorkerCount is the number of concurrent callback workers.
	callbackWorkerCount = 4
)

// Well-known console addresses.
const (
	// infoAddress queries the console's identity.
	infoAddress = "/info"

	// statusAddress queries the console's liveness.
	statusAddress = "/status"

	// remoteUpdateAddress subscribes to unsolicited parameter updates.
	remoteUpdateAddress = "/xremote"
)

// ConnectionState describes the transport's lifecycle state.
type ConnectionState string

// Transport lifecycle states.
const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
)

// ConnectionConfig holds per-connection settings for a console.
type ConnectionConfig struct {
	// Host is the console's IP address or hostname.
	Host string

	// Port is the console's OSC port. Zero selects the device profile's
	// default (10023 full-size, 10024 rack).
	Port int

	// DeviceType selects the device profile ("x32", "xr18", ...).
	// Case-insensitive; aliases like "m32" are accepted.
	DeviceType string

	// RequestTimeout is the maximum time to wait for a reply.
	// Default: 5 seconds.
	RequestTimeout time.Duration

	// RemoteUpdates enables the unsolicited-update subscription. While
	// connected the transport renews it every RemoteInterval.
	RemoteUpdates bool

	// RemoteInterval is the subscription renewal period.
	// Default: 9 seconds.
	RemoteInterval time.Duration
}

// TransportStats holds operational statistics.
type TransportStats struct {
	MessagesTx       uint64
	MessagesRx       uint64
	RepliesMatched   uint64
	RequestsTimedOut uint64
	MessagesDropped  uint64 // Messages dropped due to full callback queue
	ErrorsTotal      uint64
	LastActivity     time.Time
	Connected        bool
	State            ConnectionState
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Console is the transport surface consumed by the parameter client, the
// bridge, and the API. It allows mocking the console in tests.
type Console interface {
	Connect(ctx context.Context, cfg ConnectionConfig) error
	Disconnect() error
	Send(address string, args ...any) error
	Request(ctx context.Context, address string, args ...any) ([]Argument, error)
	GetParameter(ctx context.Context, address string) (Argument, error)
	SetParameter(address string, value any) error
	GetInfo(ctx context.Context) (ConsoleInfo, error)
	GetStatus(ctx context.Context) (ConsoleStatus, error)
	State() ConnectionState
	IsConnected() bool
	Profile() (*DeviceProfile, error)
	Stats() TransportStats
	SetOnMessage(callback func(Message))
	SetOnError(callback func(error))
	SetOnStateChange(callback func(ConnectionState))
	Close() error
}

// Ensure Transport implements Console.
var _ Console = (*Transport)(nil)

// callbackEvent is one unit of work for the callback workers: exactly one
// of message, err, or state is set.
type callbackEvent struct {
	message *Message
	err     error
	state   ConnectionState
}

// Transport is a UDP client for a mixing console's OSC service.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Callbacks run on a bounded worker pool, never on the caller's
//     goroutine. Panics in callbacks are recovered and logged.
//
// Lifecycle:
//   - NewTransport starts the callback workers; Close stops them.
//   - Connect/Disconnect may cycle any number of times on one Transport.
//   - There is no automatic reconnection: when the console goes silent the
//     transport stays up and requests time out until the caller reconnects.
type Transport struct {
	// Connection state
	connMu  sync.RWMutex
	conn    net.Conn
	state   ConnectionState
	cfg     ConnectionConfig
	profile *DeviceProfile

	// Pending request correlation, keyed by wire address. One outstanding
	// request per address; channels are buffered so the receive loop never
	// blocks on resolution.
	pendingMu sync.Mutex
	pending   map[string]chan []Argument

	// Callbacks
	callbackMu    sync.RWMutex
	onMessage     func(Message)
	onError       func(error)
	onStateChange func(ConnectionState)

	// Callback worker pool (transport lifetime, survives reconnects)
	callbackQueue chan callbackEvent
	done          *closeOnce
	workerWG      sync.WaitGroup

	// Per-connection shutdown coordination
	connDone *closeOnce
	connWG   sync.WaitGroup

	// Logger (optional)
	logger   Logger
	loggerMu sync.RWMutex

	// Statistics (atomic for performance)
	messagesTx       atomic.Uint64
	messagesRx       atomic.Uint64
	repliesMatched   atomic.Uint64
	requestsTimedOut atomic.Uint64
	messagesDropped  atomic.Uint64
	errorsTotal      atomic.Uint64
	lastActivity     atomic.Int64 // Unix timestamp
}

// NewTransport creates a disconnected Transport and starts its callback
// workers. Call Close to release them.
func NewTransport() *Transport {
	t := &Transport{
		state:         StateDisconnected,
		pending:       make(map[string]chan []Argument),
		callbackQueue: make(chan callbackEvent, callbackQueueSize),
		done:          newCloseOnce(),
	}

	for range callbackWorkerCount {
		t.workerWG.Add(1)
		go t.callbackWorker()
	}

	return t
}

// Connect opens a UDP socket to the console and starts the receive loop.
//
// The device profile is resolved before any I/O, so an unknown device type
// fails without touching the network. UDP carries no handshake: Connect
// succeeding means the socket is open, not that the console is reachable.
// Use GetStatus or GetInfo to verify liveness.
//
// Parameters:
//   - ctx: Context for cancellation (covers address resolution)
//   - cfg: Connection configuration
//
// Returns:
//   - error: ErrAlreadyConnected, ErrUnknownDeviceType, or
//     ErrConnectionFailed
func (t *Transport) Connect(ctx context.Context, cfg ConnectionConfig) error {
	profile, err := GetProfile(cfg.DeviceType)
	if err != nil {
		return err
	}

	// Apply defaults
	if cfg.Port == 0 {
		cfg.Port = profile.DefaultPort
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.RemoteInterval == 0 {
		cfg.RemoteInterval = defaultRemoteInterval
	}

	t.connMu.Lock()
	if t.state != StateDisconnected {
		state := t.state
		t.connMu.Unlock()
		return fmt.Errorf("%w: transport is %s", ErrAlreadyConnected, state)
	}
	t.state = StateConnecting
	t.connMu.Unlock()
	t.emitStateChange(StateConnecting)

	target := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "udp", target)
	if err != nil {
		t.connMu.Lock()
		t.state = StateDisconnected
		t.connMu.Unlock()
		t.emitStateChange(StateDisconnected)
		return fmt.Errorf("%w: dial %s: %w", ErrConnectionFailed, target, err)
	}

	connDone := newCloseOnce()

	t.connMu.Lock()
	t.conn = conn
	t.cfg = cfg
	t.profile = profile
	t.connDone = connDone
	t.state = StateConnected
	t.connMu.Unlock()

	t.connWG.Add(1)
	go t.receiveLoop(conn, connDone)

	if cfg.RemoteUpdates {
		t.connWG.Add(1)
		go t.remoteLoop(connDone, cfg.RemoteInterval)
	}

	t.emitStateChange(StateConnected)
	t.logInfo("connected to console",
		"host", cfg.Host, "port", cfg.Port, "device_type", string(profile.Type))

	return nil
}

// Disconnect closes the socket and stops the per-connection goroutines.
//
// Every outstanding request is rejected with ErrConnectionClosed. Calling
// Disconnect while already disconnected is a no-op.
//
// Returns:
//   - error: nil (closing is best-effort)
func (t *Transport) Disconnect() error {
	t.connMu.Lock()
	if t.state == StateDisconnected {
		t.connMu.Unlock()
		return nil
	}
	conn := t.conn
	connDone := t.connDone
	t.conn = nil
	t.connDone = nil
	t.profile = nil
	t.state = StateDisconnected
	t.connMu.Unlock()

	if connDone != nil {
		connDone.Close()
	}
	if conn != nil {
		conn.Close()
	}
	t.connWG.Wait()

	t.failPending()
	t.emitStateChange(StateDisconnected)
	t.logInfo("disconnected from console")

	return nil
}

// Close disconnects and stops the callback workers. The Transport cannot be
// reused afterwards. Safe to call multiple times.
func (t *Transport) Close() error {
	_ = t.Disconnect()

	t.done.Close()
	t.workerWG.Wait()

	return nil
}

// Send encodes and writes a message without expecting a reply.
//
// Parameters:
//   - address: Wire address (e.g., "/ch/01/mix/fader")
//   - args: Argument values (tags inferred; see NewArgument)
//
// Returns:
//   - error: ErrNotConnected, ErrProtocolParse, or ErrSendFailed
func (t *Transport) Send(address string, args ...any) error {
	t.connMu.RLock()
	conn := t.conn
	connected := t.state == StateConnected
	t.connMu.RUnlock()

	if !connected || conn == nil {
		return ErrNotConnected
	}

	msg, err := NewMessage(address, args...)
	if err != nil {
		return err
	}

	data, err := msg.Encode()
	if err != nil {
		return err
	}

	if err := conn.SetWriteDeadline(time.Now().Add(defaultWriteTimeout)); err != nil {
		return fmt.Errorf("%w: set deadline: %w", ErrSendFailed, err)
	}

	if _, err := conn.Write(data); err != nil {
		t.errorsTotal.Add(1)
		return fmt.Errorf("%w: write %s: %w", ErrSendFailed, address, err)
	}

	t.messagesTx.Add(1)
	t.lastActivity.Store(time.Now().Unix())

	return nil
}

// Request sends a message and waits for the reply addressed back to the
// same wire address.
//
// At most one request per address may be outstanding; a second concurrent
// request to the same address fails immediately with ErrRequestPending.
// Requests to distinct addresses proceed in parallel.
//
// Parameters:
//   - ctx: Context for cancellation
//   - address: Wire address to query
//   - args: Optional argument values
//
// Returns:
//   - []Argument: The reply's argument list (may be empty)
//   - error: ErrRequestPending, ErrNotConnected, ErrTimeout,
//     ErrConnectionClosed, or the context's error
func (t *Transport) Request(ctx context.Context, address string, args ...any) ([]Argument, error) {
	t.connMu.RLock()
	timeout := t.cfg.RequestTimeout
	t.connMu.RUnlock()
	if timeout == 0 {
		timeout = defaultRequestTimeout
	}

	reply := make(chan []Argument, 1)

	t.pendingMu.Lock()
	if _, exists := t.pending[address]; exists {
		t.pendingMu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrRequestPending, address)
	}
	t.pending[address] = reply
	t.pendingMu.Unlock()

	if err := t.Send(address, args...); err != nil {
		t.removePending(address)
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case replyArgs, ok := <-reply:
		if !ok {
			return nil, fmt.Errorf("%w: request for %s aborted", ErrConnectionClosed, address)
		}
		return replyArgs, nil

	case <-timer.C:
		t.removePending(address)
		t.requestsTimedOut.Add(1)
		return nil, fmt.Errorf("%w: no reply for %s within %s", ErrTimeout, address, timeout)

	case <-ctx.Done():
		t.removePending(address)
		return nil, fmt.Errorf("request for %s: %w", address, ctx.Err())
	}
}

// GetParameter queries a single parameter value.
//
// Parameters:
//   - ctx: Context for cancellation
//   - address: Parameter address (e.g., "/ch/01/mix/fader")
//
// Returns:
//   - Argument: The reply's first argument
//   - error: ErrNoValueReturned for an empty reply, else as Request
func (t *Transport) GetParameter(ctx context.Context, address string) (Argument, error) {
	args, err := t.Request(ctx, address)
	if err != nil {
		return Argument{}, err
	}
	if len(args) == 0 {
		return Argument{}, fmt.Errorf("%w: %s", ErrNoValueReturned, address)
	}
	return args[0], nil
}

// SetParameter writes a single parameter value, fire-and-forget. The wire
// tag is inferred from the value's Go kind (see NewArgument).
//
// Parameters:
//   - address: Parameter address
//   - value: New value (int, float, string, bool, or []byte)
//
// Returns:
//   - error: As Send
func (t *Transport) SetParameter(address string, value any) error {
	return t.Send(address, value)
}

// GetInfo queries the console's identity.
//
// Returns:
//   - ConsoleInfo: Server version, server name, model, firmware version
//   - error: ErrProtocolParse on layout mismatch, else as Request
func (t *Transport) GetInfo(ctx context.Context) (ConsoleInfo, error) {
	args, err := t.Request(ctx, infoAddress)
	if err != nil {
		return ConsoleInfo{}, err
	}
	return parseInfoArgs(args)
}

// GetStatus queries the console's liveness.
//
// Returns:
//   - ConsoleStatus: State, IP address, server name
//   - error: ErrProtocolParse on layout mismatch, else as Request
func (t *Transport) GetStatus(ctx context.Context) (ConsoleStatus, error) {
	args, err := t.Request(ctx, statusAddress)
	if err != nil {
		return ConsoleStatus{}, err
	}
	return parseStatusArgs(args)
}

// State returns the transport's lifecycle state.
func (t *Transport) State() ConnectionState {
	t.connMu.RLock()
	defer t.connMu.RUnlock()
	return t.state
}

// IsConnected returns true if connected to a console.
func (t *Transport) IsConnected() bool {
	return t.State() == StateConnected
}

// Profile returns the connected console's device profile.
//
// Returns:
//   - *DeviceProfile: Active profile
//   - error: ErrNotConnected when disconnected
func (t *Transport) Profile() (*DeviceProfile, error) {
	t.connMu.RLock()
	defer t.connMu.RUnlock()
	if t.state != StateConnected || t.profile == nil {
		return nil, ErrNotConnected
	}
	return t.profile, nil
}

// Stats returns current operational statistics.
func (t *Transport) Stats() TransportStats {
	return TransportStats{
		MessagesTx:       t.messagesTx.Load(),
		MessagesRx:       t.messagesRx.Load(),
		RepliesMatched:   t.repliesMatched.Load(),
		RequestsTimedOut: t.requestsTimedOut.Load(),
		MessagesDropped:  t.messagesDropped.Load(),
		ErrorsTotal:      t.errorsTotal.Load(),
		LastActivity:     time.Unix(t.lastActivity.Load(), 0),
		Connected:        t.IsConnected(),
		State:            t.State(),
	}
}

// SetOnMessage sets the callback for unsolicited messages (datagrams that
// match no pending request, e.g. remote-update notifications).
//
// The callback runs on the worker pool. Panics are recovered and logged.
func (t *Transport) SetOnMessage(callback func(Message)) {
	t.callbackMu.Lock()
	t.onMessage = callback
	t.callbackMu.Unlock()
}

// SetOnError sets the callback for socket and parse errors. Errors never
// terminate the transport; they are counted and reported here.
func (t *Transport) SetOnError(callback func(error)) {
	t.callbackMu.Lock()
	t.onError = callback
	t.callbackMu.Unlock()
}

// SetOnStateChange sets the callback for lifecycle transitions.
func (t *Transport) SetOnStateChange(callback func(ConnectionState)) {
	t.callbackMu.Lock()
	t.onStateChange = callback
	t.callbackMu.Unlock()
}

// SetLogger sets the logger for this transport.
func (t *Transport) SetLogger(logger Logger) {
	t.loggerMu.Lock()
	t.logger = logger
	t.loggerMu.Unlock()
}

// receiveLoop reads datagrams until the connection is torn down. Read
// errors are reported and counted; only socket closure ends the loop.
func (t *Transport) receiveLoop(conn net.Conn, connDone *closeOnce) {
	defer t.connWG.Done()

	buf := make([]byte, maxDatagramSize)

	for {
		select {
		case <-connDone.Done():
			return
		default:
		}

		if err := conn.SetReadDeadline(time.Now().Add(readPollInterval)); err != nil {
			t.logError("set read deadline failed", err)
			return
		}

		n, err := conn.Read(buf)
		if err != nil {
			if t.isConnClosed(connDone) || errors.Is(err, net.ErrClosed) {
				return
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue // Deadline poll, not a fault
			}
			t.errorsTotal.Add(1)
			t.emitError(fmt.Errorf("read: %w", err))
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		t.handleDatagram(data)
	}
}

// handleDatagram parses one datagram and routes it: pending-request
// resolution first, unsolicited callback otherwise.
func (t *Transport) handleDatagram(data []byte) {
	msg, err := ParseMessage(data)
	if err != nil {
		t.errorsTotal.Add(1)
		t.emitError(err)
		return
	}

	t.messagesRx.Add(1)
	t.lastActivity.Store(time.Now().Unix())

	if t.resolvePending(msg) {
		t.repliesMatched.Add(1)
		return
	}

	t.emitMessage(msg)
}

// resolvePending delivers a reply to the request waiting on its address.
// Returns false if no request was pending.
func (t *Transport) resolvePending(msg Message) bool {
	t.pendingMu.Lock()
	reply, ok := t.pending[msg.Address]
	if ok {
		delete(t.pending, msg.Address)
	}
	t.pendingMu.Unlock()

	if !ok {
		return false
	}

	reply <- msg.Arguments // Buffered; never blocks
	return true
}

// removePending drops a pending entry after timeout, cancellation, or a
// failed send.
func (t *Transport) removePending(address string) {
	t.pendingMu.Lock()
	delete(t.pending, address)
	t.pendingMu.Unlock()
}

// failPending rejects every outstanding request. Closing the reply channel
// signals ErrConnectionClosed to the waiter.
func (t *Transport) failPending() {
	t.pendingMu.Lock()
	for address, reply := range t.pending {
		delete(t.pending, address)
		close(reply)
	}
	t.pendingMu.Unlock()
}

// remoteLoop renews the console's unsolicited-update subscription while
// connected. The console drops the subscription after ten seconds, so the
// renewal period must stay below that.
func (t *Transport) remoteLoop(connDone *closeOnce, interval time.Duration) {
	defer t.connWG.Done()

	t.renewRemoteUpdates()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-connDone.Done():
			return
		case <-ticker.C:
			t.renewRemoteUpdates()
		}
	}
}

// renewRemoteUpdates sends one subscription renewal.
func (t *Transport) renewRemoteUpdates() {
	if err := t.Send(remoteUpdateAddress); err != nil && !errors.Is(err, ErrNotConnected) {
		t.logError("remote update renewal failed", err)
	}
}

// isConnClosed returns true if the current connection has been torn down.
func (t *Transport) isConnClosed(connDone *closeOnce) bool {
	select {
	case <-connDone.Done():
		return true
	default:
		return false
	}
}

// callbackWorker processes callback events from the queue.
// Runs in a bounded worker pool to prevent goroutine explosion.
func (t *Transport) callbackWorker() {
	defer t.workerWG.Done()

	for {
		select {
		case <-t.done.Done():
			t.drainCallbackQueue()
			return
		case ev := <-t.callbackQueue:
			t.deliver(ev)
		}
	}
}

// deliver invokes the callback matching the event, recovering panics.
func (t *Transport) deliver(ev callbackEvent) {
	defer func() {
		if r := recover(); r != nil {
			t.logError("callback panic", fmt.Errorf("%v", r))
		}
	}()

	switch {
	case ev.message != nil:
		t.callbackMu.RLock()
		callback := t.onMessage
		t.callbackMu.RUnlock()
		if callback != nil {
			callback(*ev.message)
		}

	case ev.err != nil:
		t.callbackMu.RLock()
		callback := t.onError
		t.callbackMu.RUnlock()
		if callback != nil {
			callback(ev.err)
		}

	case ev.state != "":
		t.callbackMu.RLock()
		callback := t.onStateChange
		t.callbackMu.RUnlock()
		if callback != nil {
			callback(ev.state)
		}
	}
}

// emitMessage queues an unsolicited message for the callback workers
// (non-blocking with drop on overflow).
func (t *Transport) emitMessage(msg Message) {
	t.callbackMu.RLock()
	hasCallback := t.onMessage != nil
	t.callbackMu.RUnlock()
	if !hasCallback {
		return
	}

	select {
	case t.callbackQueue <- callbackEvent{message: &msg}:
	default:
		// Queue full, drop message to prevent memory exhaustion
		t.messagesDropped.Add(1)
		t.errorsTotal.Add(1)
		t.logError("callback queue full, dropping message", nil)
	}
}

// emitError queues an error for the callback workers.
func (t *Transport) emitError(err error) {
	t.callbackMu.RLock()
	hasCallback := t.onError != nil
	t.callbackMu.RUnlock()
	if !hasCallback {
		return
	}

	select {
	case t.callbackQueue <- callbackEvent{err: err}:
	default:
		t.messagesDropped.Add(1)
	}
}

// emitStateChange queues a lifecycle transition for the callback workers.
func (t *Transport) emitStateChange(state ConnectionState) {
	t.callbackMu.RLock()
	hasCallback := t.onStateChange != nil
	t.callbackMu.RUnlock()
	if !hasCallback {
		return
	}

	select {
	case t.callbackQueue <- callbackEvent{state: state}:
	default:
		t.messagesDropped.Add(1)
		t.logError("callback queue full, dropping state change", nil)
	}
}

// drainCallbackQueue removes and discards any remaining items from the
// callback queue. Called during shutdown to prevent goroutines from
// blocking on send.
func (t *Transport) drainCallbackQueue() {
	for {
		select {
		case <-t.callbackQueue:
			// Discard item
		default:
			return // Queue is empty
		}
	}
}

// logInfo logs an info message if logger is set.
func (t *Transport) logInfo(msg string, keysAndValues ...any) {
	t.loggerMu.RLock()
	logger := t.logger
	t.loggerMu.RUnlock()

	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is set.
func (t *Transport) logError(msg string, err error) {
	t.loggerMu.RLock()
	logger := t.logger
	t.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}
