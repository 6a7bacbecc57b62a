package ws

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"fuzz-adapter/backend/internal/session"
)

// 全局的WebSocket upgrader（允许本地开发环境的来源）
var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || origin == "null" { // 一些环境可能不发送 Origin，或为 "null"
		return true
	}
	allowedPrefixes := []string{
		"http://localhost",
		"http://127.0.0.1",
		"https://localhost",
		"https://127.0.0.1",
	}
	for _, p := range allowedPrefixes {
		if strings.HasPrefix(origin, p) {
			return true
		}
	}
	return false
}}

type Manager struct {
	h   *Hub
	svc session.Service
}

func NewManager(h *Hub, svc session.Service) *Manager {
	return &Manager{h: h, svc: svc}
}

func (m *Manager) WebSocketConnect(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v (origin=%s)", err, c.Request.Header.Get("Origin"))
		return
	}
	defer conn.Close()

	wsConn := NewConn(conn, m.h, m.svc)
	m.h.Join(wsConn)
	defer m.h.Leave(wsConn)

	// 先启动写循环，确保后续写入 send 通道的消息可以被及时发送
	done := make(chan struct{})
	go func() {
		wsConn.writeLoop()
		close(done)
	}()
	snap := m.svc.Snapshot(c.Request.Context())
	wsConn.SendMessage_Enqueue(ServerMessage{Type: "welcome", SessionID: snap.SessionID, Revision: snap.Revision, State: &snap})

	// 最后再进入读循环（阻塞至连接关闭）
	wsConn.readLoop(c.Request.Context())
	<-done
}
