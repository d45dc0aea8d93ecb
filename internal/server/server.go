// Package server relays editor intents and session notifications over a
// WebSocket endpoint.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/phobologic/classgraph/internal/errors"
	"github.com/phobologic/classgraph/internal/session"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 54 * time.Second

	maxMessageSize = 1024 * 1024

	sendBuffer = 64
)

// Intents is what the server feeds inbound messages to.
type Intents interface {
	Handle(ctx context.Context, in session.Intent) error
}

// Server is the WebSocket relay.
type Server struct {
	intents        Intents
	logger         *zap.SugaredLogger
	allowedOrigins []string
	intentRate     rate.Limit
	intentBurst    int
	upgrader       websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Server) { s.logger = l }
}

// WithAllowedOrigins sets the Origin prefixes accepted for upgrades.
// Requests without an Origin header are always accepted.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) { s.allowedOrigins = origins }
}

// WithIntentRate paces each client to perSecond intents per second with
// the given burst. Intents over the limit wait their turn; none are dropped.
// A non-positive rate disables pacing.
func WithIntentRate(perSecond float64, burst int) Option {
	return func(s *Server) {
		s.intentRate = rate.Limit(perSecond)
		s.intentBurst = max(burst, 1)
	}
}

// New returns a relay feeding intents.
func New(intents Intents, opts ...Option) *Server {
	s := &Server{
		intents:        intents,
		logger:         zap.NewNop().Sugar(),
		allowedOrigins: []string{"http://localhost", "https://localhost", "http://127.0.0.1"},
		intentRate:     rate.Inf,
		intentBurst:    1,
		clients:        make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  2048,
		WriteBufferSize: 2048,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Handler returns the HTTP routes: /ws for editors and /healthz.
func (s *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		s.serveWS(ctx, w, r)
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

// Broadcast sends every notification to every connected client until
// notes is closed or ctx is done.
func (s *Server) Broadcast(ctx context.Context, notes <-chan session.Notification) {
	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			return
		case n, ok := <-notes:
			if !ok {
				s.closeAll()
				return
			}
			s.broadcast(n)
		}
	}
}

// Clients returns how many editors are connected.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) broadcast(n session.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- n:
		default:
			// A client that cannot keep up is dropped rather than
			// stalling everyone else.
			s.logger.Warnw("Dropping slow client", "client_id", c.id)
			s.removeLocked(c)
		}
	}
}

// reply sends n to c alone. It is dropped if c is gone or its buffer is full.
func (s *Server) reply(c *client, n session.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; !ok {
		return
	}
	select {
	case c.send <- n:
	default:
		s.logger.Warnw("Dropping reply to slow client", "client_id", c.id)
	}
}

func (s *Server) serveWS(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("WebSocket upgrade failed", "error", err)
		return
	}
	c := &client{
		server: s,
		conn:   conn,
		send:   make(chan session.Notification, sendBuffer),
		id:     uuid.NewString(),
		pace:   rate.NewLimiter(s.limit(), s.intentBurst),
	}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.logger.Infow("Editor connected", "client_id", c.id, "remote", r.RemoteAddr)

	go c.writePump()
	c.readPump(ctx)
}

func (s *Server) limit() rate.Limit {
	if s.intentRate <= 0 {
		return rate.Inf
	}
	return s.intentRate
}

func (s *Server) remove(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(c)
}

func (s *Server) removeLocked(c *client) {
	if _, ok := s.clients[c]; !ok {
		return
	}
	delete(s.clients, c)
	close(c.send)
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		s.removeLocked(c)
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.allowedOrigins {
		if allowed == "*" || strings.HasPrefix(origin, allowed) {
			return true
		}
	}
	s.logger.Warnw("Rejected WebSocket origin", "origin", origin)
	return false
}

type client struct {
	server *Server
	conn   *websocket.Conn
	send   chan session.Notification
	id     string
	pace   *rate.Limiter
}

// readPump feeds inbound intents to the session in arrival order.
func (c *client) readPump(ctx context.Context) {
	defer func() {
		c.server.remove(c)
		c.conn.Close()
		c.server.logger.Infow("Editor disconnected", "client_id", c.id)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNoStatusReceived,
			) {
				c.server.logger.Warnw("WebSocket read error", "client_id", c.id, "error", err)
			}
			return
		}

		var in session.Intent
		if err := json.Unmarshal(data, &in); err != nil {
			c.server.logger.Warnw("JSON unmarshal error", "client_id", c.id, "error", err)
			err = errors.Wrap(errors.Mark(err, errors.ErrInvalidRequest), "decode intent")
			c.server.reply(c, session.Notification{
				Type:    session.NotifyError,
				Kind:    errors.Kind(err),
				Message: err.Error(),
			})
			continue
		}
		if err := c.pace.Wait(ctx); err != nil {
			return
		}
		// Failures come back to the editor as error notifications.
		_ = c.server.intents.Handle(ctx, in)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case n, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(n); err != nil {
				c.server.logger.Debugw("Write error", "client_id", c.id, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
