package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"fuzz-adapter/backend/internal/adapter"
	"fuzz-adapter/backend/internal/ot/delta"
)

// 会话服务接口：HTTP 和回放消费者都通过它驱动同一个浏览器会话
type Service interface {
	Apply(ctx context.Context, source string, d delta.Delta) (AppliedDelta, error)

	Snapshot(ctx context.Context) Snapshot

	// 可选：用于观察者追平
	OpsSince(ctx context.Context, fromRevision uint64, limit int) ([]AppliedDelta, error)
}

// Applier 是 *adapter.Adapter 的最小接口
type Applier interface {
	Apply(ctx context.Context, d delta.Delta) error
	State() adapter.DocumentState
}

// 状态镜像接口，实现在 cache 中
type StateCache interface {
	SetState(ctx context.Context, sessionID string, jsonData []byte, ttl time.Duration) error
}

// 运行日志接口，实现在 store 中
type Journal interface {
	SaveApplication(ctx context.Context, sessionID string, rev uint64, operationID string, source string, ops []byte, cursorPos, docLength int) error
}

type EventSink interface {
	Enqueue(ctx context.Context, evt DeltaAppliedEvent) error
}

// 观察者广播，实现在 ws 中
type Broadcaster interface {
	BroadcastApplied(op AppliedDelta)
}

type AppliedDelta struct {
	OperationID string      `json:"operationId"` // 本次操作的唯一ID（用于追踪）
	Revision    uint64      `json:"revision"`
	Source      string      `json:"source"`
	Delta       delta.Delta `json:"delta"`
	CursorPos   int         `json:"cursorPos"`
	DocLength   int         `json:"docLength"`
	AppliedAt   time.Time   `json:"appliedAt"`
}

type Snapshot struct {
	SessionID string `json:"sessionId"`
	Revision  uint64 `json:"revision"`
	CursorPos int    `json:"cursorPos"`
	DocLength int    `json:"docLength"`
	Broken    bool   `json:"broken"`
	Error     string `json:"error,omitempty"`
}

var (
	ErrSessionBroken = errors.New("SESSION_BROKEN")
	ErrBusy          = errors.New("SESSION_BUSY")
)

const (
	SourceHTTP   = "http"
	SourceReplay = "replay"
)

type Options struct {
	SessionID string
	RingCap   int
	// 排队等浏览器的最长时间
	AcquireTimeout time.Duration
	StateTTL       time.Duration

	Cache       StateCache
	Journal     Journal
	Events      EventSink
	Broadcaster Broadcaster
}

// 内存实现：持有唯一的 Adapter 和最近的操作
type InMemoryService struct {
	mu       sync.RWMutex
	revision uint64
	opsRing  []AppliedDelta
	state    adapter.DocumentState
	broken   error

	// 浏览器一次只能被一个调用方驱动
	sem     *SemaphoreControl
	applier Applier
	opt     Options
}

func NewInMemoryService(applier Applier, opt Options) *InMemoryService {
	if opt.RingCap <= 0 {
		opt.RingCap = 1024 // 近期操作环形缓冲容量，可按需调整
	}
	if opt.AcquireTimeout <= 0 {
		opt.AcquireTimeout = 30 * time.Second
	}
	if opt.SessionID == "" {
		opt.SessionID = "default"
	}
	return &InMemoryService{
		opsRing: make([]AppliedDelta, 0, opt.RingCap),
		state:   applier.State(),
		sem:     NewSemaphoreControl(1),
		applier: applier,
		opt:     opt,
	}
}

var _ Service = (*InMemoryService)(nil)

func (s *InMemoryService) Apply(ctx context.Context, source string, d delta.Delta) (AppliedDelta, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, s.opt.AcquireTimeout)
	defer cancel()
	if err := s.sem.Acquire(acquireCtx); err != nil {
		// 调用方自己放弃了，和排队超时区分开
		if ctx.Err() != nil {
			return AppliedDelta{}, ctx.Err()
		}
		return AppliedDelta{}, ErrBusy
	}
	defer s.sem.Release()

	s.mu.RLock()
	broken := s.broken
	s.mu.RUnlock()
	if broken != nil {
		return AppliedDelta{}, fmt.Errorf("%w: %v", ErrSessionBroken, broken)
	}

	err := s.applier.Apply(ctx, d)
	st := s.applier.State()
	if err != nil {
		s.mu.Lock()
		s.state = st
		// 越界和未知格式在任何 UI 动作之前就被拒绝，会话仍可用
		if errors.Is(err, adapter.ErrDriverFailure) {
			s.broken = err
			log.Printf("session %s broken at rev=%d: %v", s.opt.SessionID, s.revision, err)
		}
		s.mu.Unlock()
		return AppliedDelta{}, err
	}

	s.mu.Lock()
	s.state = st
	s.revision++
	applied := AppliedDelta{
		OperationID: fmt.Sprintf("o-%d", time.Now().UnixNano()),
		Revision:    s.revision,
		Source:      source,
		Delta:       d,
		CursorPos:   st.CursorPos,
		DocLength:   st.DocLength,
		AppliedAt:   time.Now(),
	}
	// 保存到环形缓冲（如果达到容量则丢弃最老的一条）
	if len(s.opsRing) == cap(s.opsRing) {
		copy(s.opsRing[0:], s.opsRing[1:])
		s.opsRing = s.opsRing[:len(s.opsRing)-1]
	}
	s.opsRing = append(s.opsRing, applied)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(ctx, applied, snap)
	return applied, nil
}

// publish 把结果同步到旁路：失败只记日志，不影响主流程
func (s *InMemoryService) publish(ctx context.Context, applied AppliedDelta, snap Snapshot) {
	if s.opt.Cache != nil {
		b, err := json.Marshal(snap)
		if err == nil {
			err = s.opt.Cache.SetState(ctx, s.opt.SessionID, b, s.opt.StateTTL)
		}
		if err != nil {
			log.Printf("cache state failed session=%s rev=%d: %v", s.opt.SessionID, applied.Revision, err)
		}
	}
	if s.opt.Journal != nil {
		ops, err := json.Marshal(applied.Delta)
		if err == nil {
			err = s.opt.Journal.SaveApplication(ctx, s.opt.SessionID, applied.Revision, applied.OperationID,
				applied.Source, ops, applied.CursorPos, applied.DocLength)
		}
		if err != nil {
			log.Printf("journal failed session=%s rev=%d: %v", s.opt.SessionID, applied.Revision, err)
		}
	}
	if s.opt.Events != nil {
		evt := DeltaAppliedEvent{
			EventType:   "DELTA_APPLIED",
			SessionID:   s.opt.SessionID,
			OperationID: applied.OperationID,
			Revision:    applied.Revision,
			Source:      applied.Source,
			Delta:       applied.Delta,
			CursorPos:   applied.CursorPos,
			DocLength:   applied.DocLength,
			AppliedAt:   applied.AppliedAt,
		}
		if err := s.opt.Events.Enqueue(ctx, evt); err != nil {
			log.Printf("enqueue event failed session=%s rev=%d: %v", s.opt.SessionID, applied.Revision, err)
		}
	}
	if s.opt.Broadcaster != nil {
		s.opt.Broadcaster.BroadcastApplied(applied)
	}
}

func (s *InMemoryService) Snapshot(ctx context.Context) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *InMemoryService) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID: s.opt.SessionID,
		Revision:  s.revision,
		CursorPos: s.state.CursorPos,
		DocLength: s.state.DocLength,
		Broken:    s.broken != nil,
	}
	if s.broken != nil {
		snap.Error = s.broken.Error()
	}
	return snap
}

// 返回 fromRevision 之后的已应用 delta
func (s *InMemoryService) OpsSince(ctx context.Context, fromRevision uint64, limit int) ([]AppliedDelta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []AppliedDelta
	for _, op := range s.opsRing {
		if op.Revision > fromRevision {
			out = append(out, op)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}
