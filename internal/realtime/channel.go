package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"go-recruitment-intake/internal/domain"
	"go-recruitment-intake/pkg/logger"
	"go-recruitment-intake/pkg/metrics"

	"github.com/cenkalti/backoff/v4"
	"github.com/fasthttp/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

type Config struct {
	URL              string
	Token            string
	HandshakeTimeout time.Duration
	InitialBackoff   time.Duration
	MaxBackoff       time.Duration
	PingPeriod       time.Duration
	PongWait         time.Duration
}

// Channel is the process-wide connection to the realtime server's admin
// room. Every new-cv-upload push is inserted into the sink and handed to
// subscribers.
type Channel struct {
	cfg    Config
	sink   domain.NotificationSink
	dialer *websocket.Dialer
	logger *slog.Logger
	now    func() time.Time

	lifecycle sync.Mutex // serializes Connect and Close

	mu     sync.Mutex
	state  State
	joined bool
	cancel context.CancelFunc
	done   chan struct{}

	listenersMu  sync.RWMutex
	listeners    map[int]func(domain.Notification)
	nextListener int
}

func NewChannel(cfg Config, sink domain.NotificationSink, log *slog.Logger) *Channel {
	if log == nil {
		log = logger.Log
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = writeWait
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = pongWait
	}
	if cfg.PingPeriod <= 0 || cfg.PingPeriod >= cfg.PongWait {
		cfg.PingPeriod = (cfg.PongWait * 9) / 10
	}

	return &Channel{
		cfg:  cfg,
		sink: sink,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		logger:    log.With("component", "realtime"),
		now:       time.Now,
		state:     StateDisconnected,
		listeners: make(map[int]func(domain.Notification)),
	}
}

// Connect starts the connection loop. While a loop is already running it is
// a no-op and returns false. Dial failures are retried with exponential
// backoff until Close or until ctx is done. A loop that ended because its
// ctx was done does not count as running.
func (c *Channel) Connect(ctx context.Context) bool {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		select {
		case <-c.done:
			c.cancel()
			c.cancel = nil
			c.done = nil
		default:
			return false
		}
	}

	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.state = StateConnecting
	go c.run(loopCtx, c.done)
	return true
}

// Close stops the loop, closes the transport and drops every subscriber.
// A later Connect starts from scratch.
func (c *Channel) Close() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()
	if cancel == nil {
		return
	}

	cancel()
	<-done

	c.mu.Lock()
	c.cancel = nil
	c.done = nil
	c.state = StateDisconnected
	c.mu.Unlock()

	c.listenersMu.Lock()
	c.listeners = make(map[int]func(domain.Notification))
	c.listenersMu.Unlock()
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn for every notification received from the server,
// duplicates included.
func (c *Channel) Subscribe(fn func(domain.Notification)) func() {
	c.listenersMu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	c.listenersMu.Unlock()

	return func() {
		c.listenersMu.Lock()
		delete(c.listeners, id)
		c.listenersMu.Unlock()
	}
}

func (c *Channel) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialBackoff
	bo.MaxInterval = c.cfg.MaxBackoff
	bo.MaxElapsedTime = 0 // never give up
	bo.Reset()

	for {
		conn, err := c.dial(ctx)
		if err == nil {
			bo.Reset()
			c.serve(ctx, conn)
		} else if ctx.Err() == nil {
			c.logger.Warn("Realtime connect failed", "url", c.cfg.URL, "error", err)
		}

		if ctx.Err() != nil {
			c.setState(StateDisconnected)
			return
		}

		c.setState(StateConnecting)
		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			wait = c.cfg.MaxBackoff
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.setState(StateDisconnected)
			return
		case <-timer.C:
		}
	}
}

func (c *Channel) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if c.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	conn, resp, err := c.dialer.DialContext(ctx, c.cfg.URL, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		metrics.RealtimeDialsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.RealtimeDialsTotal.WithLabelValues("success").Inc()
	return conn, nil
}

// serve owns conn until it fails or ctx is cancelled. The join guard is set
// after the join frame is written and cleared when the connection ends.
func (c *Channel) serve(ctx context.Context, conn *websocket.Conn) {
	c.setState(StateConnected)
	metrics.RealtimeConnected.Set(1)
	c.logger.Info("Realtime connected", "url", c.cfg.URL)

	defer func() {
		c.mu.Lock()
		c.joined = false
		c.mu.Unlock()
		conn.Close()
		metrics.RealtimeConnected.Set(0)
	}()

	stopOnCancel := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		conn.Close()
	})
	defer stopOnCancel()

	if err := c.join(conn); err != nil {
		c.logger.Warn("Realtime join failed", "error", err)
		return
	}

	stopPing := make(chan struct{})
	defer close(stopPing)
	go c.ping(conn, stopPing)

	c.readLoop(ctx, conn)
}

func (c *Channel) join(conn *websocket.Conn) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.joined {
		return nil
	}

	frame, err := EncodeFrame(EventJoinAdmin, nil)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return err
	}
	c.joined = true
	return nil
}

func (c *Channel) ping(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.logger.Debug("Realtime ping failed", "error", err)
				return
			}
		}
	}
}

func (c *Channel) readLoop(ctx context.Context, conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("Realtime connection lost", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		c.handle(data)
	}
}

func (c *Channel) handle(data []byte) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		c.logger.Warn("Realtime frame is not JSON", "error", err)
		return
	}
	metrics.RealtimeEventsTotal.WithLabelValues(frame.Event).Inc()

	if frame.Event != EventNewCVUpload {
		c.logger.Debug("Realtime event ignored", "event", frame.Event)
		return
	}

	n, err := DecodeNotification(frame, c.now())
	if err != nil {
		c.logger.Warn("Realtime notification dropped", "error", err)
		return
	}

	result := "duplicate"
	if c.sink.Insert(n) {
		result = "accepted"
	}
	metrics.NotificationsTotal.WithLabelValues("realtime", result).Inc()

	c.listenersMu.RLock()
	listeners := make([]func(domain.Notification), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.listenersMu.RUnlock()

	for _, fn := range listeners {
		fn(n)
	}
}

func (c *Channel) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}
