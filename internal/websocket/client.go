package websocket

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10 // 64 KB
	sendBufferSize = 256
)

// Dispatcher handles the inbound events of one connection.
type Dispatcher interface {
	// Dispatch handles one frame and returns the ack body, or nil when the
	// event expects no ack.
	Dispatch(ctx context.Context, c *Client, msg *IncomingMessage) any
	// Disconnected runs once after the connection has left the hub.
	Disconnected(ctx context.Context, sess Session)
}

type Client struct {
	ID       string
	UserID   string
	Username string
	Conn     *websocket.Conn
	Send     chan []byte

	limiter   *rate.Limiter
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	lastSeen  atomic.Int64
}

// NewClient wraps an upgraded connection. conn may be nil for a client that
// is only ever written to.
func NewClient(conn *websocket.Conn, userID, username string, limiter *rate.Limiter) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		ID:       uuid.New().String(),
		UserID:   userID,
		Username: username,
		Conn:     conn,
		Send:     make(chan []byte, sendBufferSize),
		limiter:  limiter,
		ctx:      ctx,
		cancel:   cancel,
	}
	c.touch()
	return c
}

// Start runs the pumps. The read pump owns the client's lifetime.
func (c *Client) Start(h *Hub, d Dispatcher) {
	go c.writePump()
	go c.readPump(h, d)
}

func (c *Client) IsClientActive() bool {
	return c.ctx.Err() == nil
}

func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

func (c *Client) GetLastSeen() time.Time {
	return time.Unix(0, c.lastSeen.Load())
}

func (c *Client) touch() {
	c.lastSeen.Store(time.Now().UnixNano())
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		if c.Conn != nil {
			_ = c.Conn.Close()
		}
	})
}

// writePump: take data from c.Send and send to socket + ping
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case msg := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}

			if _, err := w.Write(msg); err != nil {
				_ = w.Close()
				return
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			_ = c.Conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}

// readPump processes the connection's events one at a time, in the order
// they arrive.
func (c *Client) readPump(h *Hub, d Dispatcher) {
	defer func() {
		c.Close()
		if sess, ok := h.Disconnect(c); ok {
			d.Disconnected(context.Background(), sess)
		}
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.touch()
		_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("clientID", c.ID).Msg("ws: unexpected close")
			}
			return
		}
		c.touch()

		var msg IncomingMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			h.ToConnection(c.ID, EventError, Reject("invalid payload"))
			continue
		}

		if c.limiter != nil && !c.limiter.Allow() {
			if msg.ID != "" {
				h.Ack(c.ID, msg.ID, Reject("rate limited"))
			}
			continue
		}

		if ack := d.Dispatch(c.ctx, c, &msg); ack != nil && msg.ID != "" {
			h.Ack(c.ID, msg.ID, ack)
		}
	}
}
