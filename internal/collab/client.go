package collab

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/coder/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 16 << 20 // element.add may carry a data URI image
)

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	// state holds at most one unsent state message; newer ones replace it.
	state       chan []byte
	UserID      string
	DisplayName string
	DesignID    string
	ClientID    string
}

func NewClient(hub *Hub, conn *websocket.Conn, userID, displayName, designID, clientID string) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, 256),
		state:       make(chan []byte, 1),
		UserID:      userID,
		DisplayName: displayName,
		DesignID:    designID,
		ClientID:    clientID,
	}
}

func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxMsgSize)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway {
				return
			}
			slog.Debug("read error", "error", err, "user", c.UserID)
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("invalid message", "error", err, "user", c.UserID)
			continue
		}

		msg.UserID = c.UserID
		msg.ClientID = c.ClientID
		msg.DesignID = c.DesignID

		c.hub.submit(c, &msg)
	}
}

func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	write := func(message []byte) bool {
		writeCtx, cancel := context.WithTimeout(ctx, writeWait)
		err := c.conn.Write(writeCtx, websocket.MessageText, message)
		cancel()
		if err != nil {
			slog.Debug("write error", "error", err, "user", c.UserID)
			return false
		}
		return true
	}

	for {
		// Queued messages go out before any state that was broadcast after them.
		select {
		case message, ok := <-c.send:
			if !ok || !write(message) {
				return
			}
			continue
		default:
		}

		select {
		case message, ok := <-c.send:
			if !ok || !write(message) {
				return
			}

		case message := <-c.state:
			if !write(message) {
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// SendState offers an encoded state message, discarding any state the write
// pump has not sent yet. Only the hub goroutine calls it.
func (c *Client) SendState(data []byte) {
	for {
		select {
		case c.state <- data:
			return
		default:
			select {
			case <-c.state:
			default:
			}
		}
	}
}

// Send queues msg for the write pump. It never blocks; a full buffer drops
// the message.
func (c *Client) Send(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal message", "error", err)
		return
	}

	select {
	case c.send <- data:
	default:
		slog.Warn("client send buffer full, dropping message", "user", c.UserID)
	}
}
