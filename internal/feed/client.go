package feed

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBufferSize = 64
)

// Client is a websocket connection subscribed to balance updates
type Client struct {
	id     string
	conn   *websocket.Conn
	hub    *Hub
	logger zerolog.Logger

	sendChan  chan []byte
	closeChan chan struct{}
	closeOnce sync.Once
}

// NewClient creates a new Client
func NewClient(conn *websocket.Conn, hub *Hub, logger zerolog.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		id:        id,
		conn:      conn,
		hub:       hub,
		logger:    logger.With().Str("clientID", id).Logger(),
		sendChan:  make(chan []byte, sendBufferSize),
		closeChan: make(chan struct{}),
	}
}

// ID implements Subscriber
func (c *Client) ID() string {
	return c.id
}

// Send implements Subscriber
func (c *Client) Send(data []byte) bool {
	select {
	case <-c.closeChan:
		return false
	default:
	}

	select {
	case c.sendChan <- data:
		return true
	default:
		return false
	}
}

// Run starts the client read and write loops and blocks until the connection closes
func (c *Client) Run(ctx context.Context) {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.writePump(ctx)
	c.readPump()
}

func (c *Client) readPump() {
	defer c.Close()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug().Err(err).Msg("read error")
			}
			return
		}
		c.handleMessage(data)
	}
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closeChan:
			return
		case data := <-c.sendChan:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug().Err(err).Msg("write error")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.reply(ServerMessage{Type: TypeError, Message: "invalid message"})
		return
	}

	switch msg.Action {
	case ActionSubscribe:
		if err := c.hub.Subscribe(c, msg.Address); err != nil {
			c.reply(ServerMessage{Type: TypeError, Action: msg.Action, Address: msg.Address, Message: err.Error()})
			return
		}
		c.reply(ServerMessage{Type: TypeAck, Action: msg.Action, Address: msg.Address})
	case ActionUnsubscribe:
		if !c.hub.Unsubscribe(c.id, msg.Address) {
			c.reply(ServerMessage{Type: TypeError, Action: msg.Action, Address: msg.Address, Message: "not subscribed"})
			return
		}
		c.reply(ServerMessage{Type: TypeAck, Action: msg.Action, Address: msg.Address})
	default:
		c.reply(ServerMessage{Type: TypeError, Action: msg.Action, Message: "unknown action"})
	}
}

func (c *Client) reply(msg ServerMessage) {
	if !c.Send(marshalMessage(msg)) {
		c.logger.Warn().Msg("send channel full, dropping message")
	}
}

// Close closes the connection and drops the client's subscriptions
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closeChan)
		c.hub.Remove(c.id)
		c.conn.Close()
		c.logger.Debug().Msg("client closed")
	})
}
