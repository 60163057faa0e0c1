package api

import (
	"encoding/json"
	"errors"
	"sync"
	"syscall"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/adcs-fsw/rwnullspace/pkg/effector"
	customlog "github.com/adcs-fsw/rwnullspace/pkg/log"
	"github.com/adcs-fsw/rwnullspace/pkg/messaging"
)

// clientBuffer is the number of messages queued per websocket client before drops
const clientBuffer = 16

// OutputStream fans out writes on the corrected command channel to websocket clients.
type OutputStream struct {
	channel string
	logger  customlog.Logger
	remove  func()

	mu      sync.Mutex
	clients map[chan []byte]struct{}
}

// NewOutputStream attaches a listener to the given bus channel.
func NewOutputStream(bus *messaging.Bus, channel string, logger customlog.Logger) (*OutputStream, error) {
	s := &OutputStream{
		channel: channel,
		logger:  logger,
		clients: make(map[chan []byte]struct{}),
	}

	remove, err := bus.AddListener(channel, s.broadcast)
	if err != nil {
		return nil, err
	}
	s.remove = remove
	return s, nil
}

// RegisterOutputRoutes mounts the websocket endpoint at /ws/output.
func RegisterOutputRoutes(app *fiber.App, stream *OutputStream) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/output", websocket.New(stream.Handle))
}

// broadcast runs inside the producer's Step and must not block.
func (s *OutputStream) broadcast(name string, hdr messaging.Header, payload interface{}) {
	req, ok := payload.(effector.Request)
	if !ok {
		return
	}

	data, err := json.Marshal(OutputMessage{
		Channel:    name,
		WriteClock: hdr.WriteClock,
		WriteCount: hdr.WriteCount,
		Values:     req.EffectorRequest.Slice(),
	})
	if err != nil {
		s.logger.Warnf("Failed to encode output message: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.clients {
		select {
		case ch <- data:
		default:
			// slow client
		}
	}
}

func (s *OutputStream) subscribe() (chan []byte, func()) {
	ch := make(chan []byte, clientBuffer)

	s.mu.Lock()
	s.clients[ch] = struct{}{}
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.clients[ch]; ok {
			delete(s.clients, ch)
			close(ch)
		}
	}
}

// Handle streams output messages to one websocket client until it disconnects.
func (s *OutputStream) Handle(conn *websocket.Conn) {
	s.logger.Infof("Output WebSocket connected: %s", conn.RemoteAddr())
	ch, unsubscribe := s.subscribe()
	defer unsubscribe()

	// Clients only listen; reading detects the close
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) &&
					!errors.Is(err, syscall.EPIPE) && !errors.Is(err, syscall.ECONNRESET) {
					s.logger.Warnf("Output WS read error: %v", err)
				}
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			s.logger.Infof("Output WebSocket disconnected: %s", conn.RemoteAddr())
			return
		case data, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Infof("Output WS write failed: %v", err)
				return
			}
		}
	}
}

// Close detaches the bus listener and disconnects all clients.
func (s *OutputStream) Close() {
	if s.remove != nil {
		s.remove()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.clients {
		delete(s.clients, ch)
		close(ch)
	}
}

// Clients returns the number of connected clients
func (s *OutputStream) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}
