package session

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/IBM/sarama"

	"fuzz-adapter/backend/internal/adapter"
	"fuzz-adapter/backend/internal/ot/delta"
)

// ReplayHandler 消费协作服务的 doc-ops，把别人的真实编辑回放到浏览器里
type ReplayHandler struct {
	svc Service
	// 为空时回放所有文档
	docID string
}

func NewReplayHandler(svc Service, docID string) *ReplayHandler {
	return &ReplayHandler{svc: svc, docID: docID}
}

var _ sarama.ConsumerGroupHandler = (*ReplayHandler)(nil)

func (h *ReplayHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *ReplayHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *ReplayHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			// 只有确定不会再成功的消息才提交 offset；
			// 浏览器没拿到、会话坏了或被取消时直接返回，rebalance 或重启后重新投递
			if err := h.handle(sess.Context(), msg); err != nil && !rejected(err) {
				return err
			}
			sess.MarkMessage(msg, "")
		case <-sess.Context().Done():
			return nil
		}
	}
}

func (h *ReplayHandler) handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var evt DocOpEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		log.Printf("replay: bad event offset=%d: %v", msg.Offset, err)
		return nil
	}
	if evt.EventType != "OP_APPLIED" {
		return nil
	}
	if h.docID != "" && evt.DocID != h.docID {
		return nil
	}
	d := delta.FromKindOps(evt.Ops)
	if _, err := h.svc.Apply(ctx, SourceReplay, d); err != nil {
		log.Printf("replay: doc=%s rev=%d op=%s: %v", evt.DocID, evt.Revision, evt.OperationID, err)
		return err
	}
	return nil
}

// rejected 表示 delta 在任何 UI 动作之前就被拒绝，重放多少次结果都一样
func rejected(err error) bool {
	return errors.Is(err, adapter.ErrOutOfBounds) || errors.Is(err, adapter.ErrUnknownFormat)
}

// RunReplay 阻塞消费直到 ctx 取消；rebalance 后需要重新 Consume
func RunReplay(ctx context.Context, group sarama.ConsumerGroup, topics []string, h *ReplayHandler) error {
	for {
		if err := group.Consume(ctx, topics, h); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		if h.svc.Snapshot(ctx).Broken {
			return ErrSessionBroken
		}
	}
}
