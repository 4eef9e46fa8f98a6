// Package push owns the live channel to the Socialite backend. The socket is
// an explicitly owned object with a connect/disconnect lifecycle and a typed
// reconnect policy; nothing here is global.
package push

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	pkgerrors "github.com/pkg/errors"
	"github.com/socialitehq/socialite/config"
	"github.com/socialitehq/socialite/models"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second
)

// ReconnectPolicy bounds how the socket comes back after an unexpected
// disconnect: a fixed short delay between attempts and a bounded attempt
// count. A connection attempt that does not open within HandshakeTimeout is
// abandoned and counts as a failed attempt.
type ReconnectPolicy struct {
	MaxAttempts      int
	Delay            time.Duration
	HandshakeTimeout time.Duration
}

// Handler consumes the payload of one event type.
type Handler func(payload json.RawMessage)

// Socket is the owned push-channel connection.
type Socket struct {
	url       string
	token     string
	policy    ReconnectPolicy
	heartbeat time.Duration

	mu       sync.Mutex
	conn     *websocket.Conn
	handlers map[string][]Handler
	closed   bool
	gen      chan struct{}

	// lifecycle hooks, optional
	OnOpen  func()
	OnClose func(err error)
}

func NewSocket(conf *config.Config) *Socket {
	return &Socket{
		url:   conf.SocketUrl,
		token: conf.AccessToken,
		policy: ReconnectPolicy{
			MaxAttempts:      conf.SocketMaxRetries,
			Delay:            conf.SocketRetryDelay,
			HandshakeTimeout: conf.SocketHandshakeTimeout,
		},
		heartbeat: conf.HeartbeatInterval,
		handlers:  make(map[string][]Handler),
	}
}

// Handle registers a handler for an event type. Handlers run on the read
// loop goroutine, one event at a time.
func (s *Socket) Handle(eventType string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[eventType] = append(s.handlers[eventType], h)
}

// Connect dials the push channel and starts the read and heartbeat loops.
func (s *Socket) Connect(ctx context.Context) error {
	s.mu.Lock()
	s.closed = false
	s.mu.Unlock()
	return s.dial(ctx)
}

func (s *Socket) dial(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: s.policy.HandshakeTimeout}
	header := http.Header{}
	if s.token != "" {
		header.Set("Authorization", "Bearer "+s.token)
	}
	conn, res, err := dialer.DialContext(ctx, s.url, header)
	if err != nil {
		if res != nil {
			res.Body.Close()
		}
		return pkgerrors.Wrap(err, "dial push channel")
	}

	gen := make(chan struct{})
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return pkgerrors.New("socket is disconnected")
	}
	s.conn = conn
	s.gen = gen
	s.mu.Unlock()

	go s.readLoop(conn, gen)
	go s.heartbeatLoop(gen)

	if s.OnOpen != nil {
		s.OnOpen()
	}
	return nil
}

func (s *Socket) readLoop(conn *websocket.Conn, gen chan struct{}) {
	defer close(gen)
	for {
		var event models.Event
		if err := conn.ReadJSON(&event); err != nil {
			conn.Close()
			if s.isClosed() {
				return
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("push: read error: %v", err)
			}
			if s.OnClose != nil {
				s.OnClose(err)
			}
			go s.reconnect()
			return
		}
		s.dispatch(event)
	}
}

func (s *Socket) dispatch(event models.Event) {
	s.mu.Lock()
	handlers := make([]Handler, len(s.handlers[event.Type]))
	copy(handlers, s.handlers[event.Type])
	s.mu.Unlock()
	for _, h := range handlers {
		h(event.Payload)
	}
}

func (s *Socket) heartbeatLoop(gen chan struct{}) {
	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-gen:
			return
		case <-ticker.C:
			if err := s.Emit(models.Event{Type: models.EventPing}); err != nil {
				return
			}
		}
	}
}

func (s *Socket) reconnect() {
	for attempt := 1; attempt <= s.policy.MaxAttempts; attempt++ {
		time.Sleep(s.policy.Delay)
		if s.isClosed() {
			return
		}
		if err := s.dial(context.Background()); err != nil {
			log.Printf("push: reconnect attempt %d/%d failed: %v", attempt, s.policy.MaxAttempts, err)
			continue
		}
		log.Printf("push: reconnected after %d attempt(s)", attempt)
		return
	}
	log.Printf("push: giving up after %d reconnect attempts", s.policy.MaxAttempts)
}

// Emit writes one event to the wire. Writes are serialized; gorilla allows a
// single concurrent writer.
func (s *Socket) Emit(event models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil || s.closed {
		return pkgerrors.New("socket is not connected")
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(event); err != nil {
		return pkgerrors.Wrap(err, "write event")
	}
	return nil
}

// Disconnect closes the connection for good; no reconnect follows.
func (s *Socket) Disconnect() {
	s.mu.Lock()
	s.closed = true
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn != nil {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}
}

func (s *Socket) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Connected reports whether a live connection is currently held.
func (s *Socket) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil && !s.closed
}
