package ws

import "fuzz-adapter/backend/internal/session"

type ClientMessage struct {
	Type string `json:"type"`
	// catchUp 时从这个版本之后补发
	LastKnownRevision uint64 `json:"lastKnownRevision"`
	Limit             int    `json:"limit,omitempty"`
}

type ServerMessage struct {
	Type      string                 `json:"type"`
	SessionID string                 `json:"sessionId,omitempty"`
	Revision  uint64                 `json:"revision,omitempty"`
	Applied   *session.AppliedDelta  `json:"applied,omitempty"`
	Ops       []session.AppliedDelta `json:"ops,omitempty"`
	State     *session.Snapshot      `json:"state,omitempty"`
	Content   string                 `json:"content,omitempty"`
}
