package session

import (
	"time"

	"fuzz-adapter/backend/internal/ot/delta"
)

// DeltaAppliedEvent 每成功驱动一次编辑器就发一条，key 为 sessionId
type DeltaAppliedEvent struct {
	EventType   string      `json:"eventType"` // 固定 "DELTA_APPLIED"
	SessionID   string      `json:"sessionId"`
	OperationID string      `json:"operationId"`
	Revision    uint64      `json:"revision"`
	Source      string      `json:"source"` // "http" / "replay"
	Delta       delta.Delta `json:"delta"`
	CursorPos   int         `json:"cursorPos"`
	DocLength   int         `json:"docLength"`
	AppliedAt   time.Time   `json:"appliedAt"`
}

// DocOpEvent 是协作服务发布到 doc-ops 的事件，回放时消费
type DocOpEvent struct {
	EventType    string        `json:"eventType"` // 固定 "OP_APPLIED"
	DocID        string        `json:"docId"`
	OperationID  string        `json:"operationId"`
	Revision     uint64        `json:"revision"`
	AuthorID     uint64        `json:"authorId"`
	ClientID     string        `json:"clientId"`
	ClientSeq    uint64        `json:"clientSeq"`
	BaseRevision uint64        `json:"baseRevision"`
	Ops          delta.KindOps `json:"ops"`
	AppliedAt    time.Time     `json:"appliedAt"`
}
