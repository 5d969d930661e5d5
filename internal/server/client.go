package server

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 1024
)

type connState int

const (
	stateConnecting connState = iota
	stateAuthenticated
	stateClosed
)

// Client owns one websocket connection. It starts unauthenticated; the only
// inbound frame that does anything in that state is auth. Once authenticated
// it mostly relays payloads pushed through its fanout subscription.
type Client struct {
	id      string
	conn    *websocket.Conn
	gateway *Gateway
	log     *log.Logger
	send    chan []byte
	stop    chan struct{}

	mu       sync.Mutex
	state    connState
	userId   string
	userName string
	reg      *Registration
}

func NewClient(conn *websocket.Conn, gw *Gateway, l *log.Logger) *Client {
	return &Client{
		id:      uuid.NewString(),
		conn:    conn,
		gateway: gw,
		log:     l,
		send:    make(chan []byte, 256),
		stop:    make(chan struct{}),
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if !ok {
				return
			}

			if !c.writeMessage(websocket.TextMessage, payload) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.writeMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.gateway.Disconnect(c)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		if !c.handleFrame(raw) {
			break
		}
	}
}

// handleFrame processes one inbound frame. It returns false when the
// connection should be closed, which only happens in strict-frames mode;
// by default protocol violations are dropped to tolerate newer clients.
func (c *Client) handleFrame(raw []byte) bool {
	var frame ClientFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.log.Println("discarding malformed frame:", err)
		return !c.gateway.strictFrames
	}

	switch frame.Type {
	case FrameAuth:
		if c.State() == stateAuthenticated {
			return true
		}

		if err := c.gateway.Authenticate(context.Background(), c, frame.UserId, frame.UserName); err != nil {
			c.log.Printf("auth failed for %q: %v", frame.UserId, err)
			return !c.gateway.strictFrames
		}

		c.queuePayload(encodeAuthSuccess(frame.UserId))
		return true
	default:
		return !c.gateway.strictFrames
	}
}

// queuePayload hands payload to the write pump without blocking. Payloads for
// a closed or saturated client are dropped; durable delivery is the store's
// responsibility, not the socket's.
func (c *Client) queuePayload(payload []byte) bool {
	select {
	case <-c.stop:
		return false
	default:
	}

	select {
	case c.send <- payload:
		return true
	default:
		c.log.Printf("client %s send queue full, dropping payload", c.id)
		return false
	}
}

func (c *Client) writeMessage(msgType int, payload []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, payload); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) State() connState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setAuthenticated(userId, userName string, reg *Registration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = stateAuthenticated
	c.userId = userId
	c.userName = userName
	c.reg = reg
}

// close transitions the client to its terminal state and returns the identity
// and registration bound at authentication time, if any.
func (c *Client) close() (string, *Registration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == stateClosed {
		return "", nil
	}

	userId, reg := c.userId, c.reg
	c.state = stateClosed
	c.reg = nil

	return userId, reg
}

func (c *Client) stopClient() {
	select {
	case <-c.stop:
	default:
		close(c.stop)
	}
}
