package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"freight-tracker/internal/mylogger"
	websocketdto "freight-tracker/internal/tracker/core/domain/websocket_dto"
	"freight-tracker/internal/tracker/core/myerrors"
	"freight-tracker/internal/tracker/core/ports/driven"
)

const authEventType = "auth"

// Client holds the single realtime connection of the process. Connect on an
// open client reuses the connection; Close invalidates it for every consumer
// until the next Connect.
type Client struct {
	url      string
	clientID string
	log      mylogger.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	handlers map[string]map[int]driven.EventHandler
	nextID   int
	done     chan struct{}
}

func New(url string, log mylogger.Logger) *Client {
	return &Client{
		url:      url,
		clientID: uuid.NewString(),
		log:      log,
		handlers: make(map[string]map[int]driven.EventHandler),
	}
}

func (c *Client) Connect(ctx context.Context, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("connecting to websocket: %w", err)
	}

	authData, err := json.Marshal(websocketdto.AuthData{Token: token, ClientID: c.clientID})
	if err != nil {
		conn.Close()
		return fmt.Errorf("marshaling auth message: %w", err)
	}
	auth := websocketdto.Event{Type: authEventType, Data: authData}
	if err := conn.WriteJSON(auth); err != nil {
		conn.Close()
		return fmt.Errorf("sending auth message: %w", err)
	}

	c.conn = conn
	c.done = make(chan struct{})
	go c.readLoop(conn, c.done)

	c.log.Action("realtime_connected").Info("connected to realtime channel", "url", c.url)
	return nil
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	close(c.done)
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) Emit(eventType string, data any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("emit %q: %w", eventType, myerrors.ErrRealtimeUnavailable)
	}

	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshaling event data: %w", err)
		}
		raw = b
	}

	// gorilla allows one concurrent writer only
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("emit %q: %w", eventType, myerrors.ErrRealtimeUnavailable)
	}
	if err := c.conn.WriteJSON(websocketdto.Event{Type: eventType, Data: raw}); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	return nil
}

func (c *Client) On(eventType string, h driven.EventHandler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handlers[eventType] == nil {
		c.handlers[eventType] = make(map[int]driven.EventHandler)
	}
	id := c.nextID
	c.nextID++
	c.handlers[eventType][id] = h

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.handlers[eventType], id)
	}
}

func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	log := c.log.Action("realtime_read")
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-done:
				// closed on purpose
			default:
				log.Warn("realtime connection dropped", "reason", err.Error())
			}
			return
		}

		var event websocketdto.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			log.Warn("discarding malformed event", "reason", err.Error())
			continue
		}

		c.mu.Lock()
		hs := make([]driven.EventHandler, 0, len(c.handlers[event.Type]))
		for _, h := range c.handlers[event.Type] {
			hs = append(hs, h)
		}
		c.mu.Unlock()

		for _, h := range hs {
			h(event)
		}
	}
}
