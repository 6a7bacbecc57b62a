package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fuzz-adapter/backend/internal/adapter"
	"fuzz-adapter/backend/internal/cache"
	"fuzz-adapter/backend/internal/ot/delta"
	"fuzz-adapter/backend/internal/session"
	"fuzz-adapter/backend/internal/store"
)

// StateReader 读取 Redis 里的状态镜像
type StateReader interface {
	GetState(ctx context.Context, sessionID string) ([]byte, error)
	GetSessions(ctx context.Context) ([]string, error)
}

// JournalReader 读取 MySQL 里的运行日志，环形缓冲追不上时兜底
type JournalReader interface {
	ListApplications(ctx context.Context, sessionID string, fromRevision uint64, limit int) ([]store.Application, error)
}

type FuzzHandler struct {
	svc       session.Service
	sessionID string
	// 以下都可以为 nil
	states  StateReader
	journal JournalReader
}

func NewFuzzHandler(svc session.Service, sessionID string, states StateReader, journal JournalReader) *FuzzHandler {
	return &FuzzHandler{svc: svc, sessionID: sessionID, states: states, journal: journal}
}

// POST /fuzz/apply
func (h *FuzzHandler) Apply(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": err.Error()})
		return
	}
	d, err := delta.Parse(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_DELTA", "message": err.Error()})
		return
	}

	applied, err := h.svc.Apply(c.Request.Context(), session.SourceHTTP, d)
	if err != nil {
		status, code := statusOf(err)
		c.JSON(status, gin.H{"code": code, "message": err.Error(), "state": h.svc.Snapshot(c.Request.Context())})
		return
	}
	c.JSON(http.StatusOK, applied)
}

func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, adapter.ErrOutOfBounds):
		return http.StatusUnprocessableEntity, "OUT_OF_BOUNDS"
	case errors.Is(err, adapter.ErrUnknownFormat):
		return http.StatusUnprocessableEntity, "UNKNOWN_FORMAT"
	case errors.Is(err, session.ErrBusy):
		return http.StatusServiceUnavailable, "SESSION_BUSY"
	case errors.Is(err, session.ErrSessionBroken):
		return http.StatusConflict, "SESSION_BROKEN"
	case errors.Is(err, adapter.ErrDriverFailure):
		return http.StatusBadGateway, "DRIVER_FAILURE"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

// GET /fuzz/state?source=cache
func (h *FuzzHandler) State(c *gin.Context) {
	if c.Query("source") != "cache" {
		c.JSON(http.StatusOK, h.svc.Snapshot(c.Request.Context()))
		return
	}
	if h.states == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"code": "CACHE_DISABLED", "message": "state cache not configured"})
		return
	}
	sessionID := c.DefaultQuery("sessionId", h.sessionID)
	b, err := h.states.GetState(c.Request.Context(), sessionID)
	if errors.Is(err, cache.ErrStateNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"code": "NOT_FOUND", "message": "no cached state for " + sessionID})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"code": "CACHE_ERROR", "message": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", b)
}

// GET /fuzz/ops?since=&limit=
func (h *FuzzHandler) Ops(c *gin.Context) {
	since, err := strconv.ParseUint(c.DefaultQuery("since", "0"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": "invalid since"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": "invalid limit"})
		return
	}
	ctx := c.Request.Context()
	ops, err := h.svc.OpsSince(ctx, since, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": err.Error()})
		return
	}
	source := "memory"
	// since+1 已经被挤出环形缓冲，改从运行日志读
	if h.journal != nil && h.svc.Snapshot(ctx).Revision > since && (len(ops) == 0 || ops[0].Revision > since+1) {
		ops, err = h.opsFromJournal(ctx, since, limit)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"code": "JOURNAL_ERROR", "message": err.Error()})
			return
		}
		source = "journal"
	}
	if ops == nil {
		ops = []session.AppliedDelta{}
	}
	c.JSON(http.StatusOK, gin.H{"ops": ops, "source": source})
}

func (h *FuzzHandler) opsFromJournal(ctx context.Context, since uint64, limit int) ([]session.AppliedDelta, error) {
	rows, err := h.journal.ListApplications(ctx, h.sessionID, since, limit)
	if err != nil {
		return nil, err
	}
	ops := make([]session.AppliedDelta, 0, len(rows))
	for _, row := range rows {
		d, err := delta.Parse(row.Ops)
		if err != nil {
			return nil, fmt.Errorf("journal rev %d: %w", row.Revision, err)
		}
		ops = append(ops, session.AppliedDelta{
			OperationID: row.OperationID,
			Revision:    row.Revision,
			Source:      row.Source,
			Delta:       d,
			CursorPos:   row.CursorPos,
			DocLength:   row.DocLength,
			AppliedAt:   row.CreatedAt,
		})
	}
	return ops, nil
}

// GET /fuzz/sessions 列出 Redis 里仍有状态快照的会话
func (h *FuzzHandler) Sessions(c *gin.Context) {
	if h.states == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"code": "CACHE_DISABLED", "message": "state cache not configured"})
		return
	}
	ids, err := h.states.GetSessions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"code": "CACHE_ERROR", "message": err.Error()})
		return
	}
	if ids == nil {
		ids = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": ids, "current": h.sessionID})
}

// GET /fuzz/healthz
func (h *FuzzHandler) Healthz(c *gin.Context) {
	snap := h.svc.Snapshot(c.Request.Context())
	if snap.Broken {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "broken", "error": snap.Error})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok", "revision": snap.Revision})
}
