package ws

import (
	"sync"

	"fuzz-adapter/backend/internal/session"
)

// Hub 把每次成功的 apply 推给所有观察者
type Hub struct {
	sessionID string
	mu        sync.RWMutex
	// 一个观察者可以开多个连接，广播要逐连接发
	conns map[*Conn]struct{}
}

func NewHub(sessionID string) *Hub {
	return &Hub{sessionID: sessionID, conns: make(map[*Conn]struct{})}
}

var _ session.Broadcaster = (*Hub)(nil)

func (h *Hub) Join(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = struct{}{}
}

func (h *Hub) Leave(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c)
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) BroadcastApplied(op session.AppliedDelta) {
	msg := ServerMessage{Type: "applied", SessionID: h.sessionID, Revision: op.Revision, Applied: &op}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns {
		c.SendMessage_Enqueue(msg)
	}
}
