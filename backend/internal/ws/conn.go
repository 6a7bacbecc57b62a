package ws

import (
	"context"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"fuzz-adapter/backend/internal/session"
)

type Conn struct {
	ws  *websocket.Conn
	hub *Hub
	svc session.Service

	send      chan ServerMessage
	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
}

func NewConn(ws *websocket.Conn, hub *Hub, svc session.Service) *Conn {
	return &Conn{ws: ws, hub: hub, svc: svc, send: make(chan ServerMessage, 32)}
}

// SendMessage_Enqueue 队列满了直接丢弃，慢观察者不能拖住浏览器
func (c *Conn) SendMessage_Enqueue(msg ServerMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Conn) close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
	})
}

func (c *Conn) readLoop(ctx context.Context) {
	defer c.close()
	for {
		var clientMessage ClientMessage
		if err := c.ws.ReadJSON(&clientMessage); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("read json error (session=%s): %v", c.hub.sessionID, err)
			}
			return
		}
		switch clientMessage.Type {
		case "heartbeat":
			c.SendMessage_Enqueue(ServerMessage{Type: "feedback", Content: "Heartbeat received"})

		case "state":
			snap := c.svc.Snapshot(ctx)
			c.SendMessage_Enqueue(ServerMessage{Type: "state", SessionID: snap.SessionID, Revision: snap.Revision, State: &snap})

		case "catchUp":
			ops, err := c.svc.OpsSince(ctx, clientMessage.LastKnownRevision, clientMessage.Limit)
			if err != nil {
				c.SendMessage_Enqueue(ServerMessage{Type: "error", Content: err.Error()})
				continue
			}
			c.SendMessage_Enqueue(ServerMessage{Type: "catchUp", SessionID: c.hub.sessionID, Ops: ops})

		default:
			// 忽略未知类型，或回一条提示
			c.SendMessage_Enqueue(ServerMessage{Type: "ignored", Content: "Unknown message type"})
		}
	}
}

func (c *Conn) writeLoop() {
	// 持续消费通道中的ServerMessage
	for msg := range c.send {
		if err := c.ws.WriteJSON(msg); err != nil {
			log.Printf("write json error (session=%s): %v", c.hub.sessionID, err)
		}
	}
}
