package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"fuzz-adapter/backend/internal/adapter"
	"fuzz-adapter/backend/internal/driver"
	"fuzz-adapter/backend/internal/editorsim"
	"fuzz-adapter/backend/internal/ot/delta"
)

type recordingService struct {
	Service
	sources []string
	deltas  []delta.Delta
	err     error
}

func (r *recordingService) Apply(ctx context.Context, source string, d delta.Delta) (AppliedDelta, error) {
	r.sources = append(r.sources, source)
	r.deltas = append(r.deltas, d)
	return AppliedDelta{}, r.err
}

func message(t *testing.T, evt DocOpEvent) *sarama.ConsumerMessage {
	t.Helper()
	b, err := json.Marshal(evt)
	require.NoError(t, err)
	return &sarama.ConsumerMessage{Topic: "doc-ops", Value: b}
}

func TestReplayHandler_ConvertsDocOps(t *testing.T) {
	svc := &recordingService{}
	h := NewReplayHandler(svc, "doc-1")

	evt := DocOpEvent{
		EventType: "OP_APPLIED",
		DocID:     "doc-1",
		Ops: delta.KindOps{
			{Kind: delta.KindRetain, Count: 2},
			{Kind: delta.KindInsert, Text: "xy"},
		},
	}
	require.NoError(t, h.handle(context.Background(), message(t, evt)))

	want := []delta.Delta{{Ops: []delta.Op{{Start: 0, End: 2}, {Value: "xy"}}}}
	if diff := cmp.Diff(want, svc.deltas); diff != "" {
		t.Fatalf("replayed delta mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, []string{SourceReplay}, svc.sources)
}

func TestReplayHandler_SkipsForeignAndMalformed(t *testing.T) {
	svc := &recordingService{}
	h := NewReplayHandler(svc, "doc-1")
	ctx := context.Background()

	require.NoError(t, h.handle(ctx, message(t, DocOpEvent{EventType: "OP_APPLIED", DocID: "doc-2"})))
	require.NoError(t, h.handle(ctx, message(t, DocOpEvent{EventType: "SNAPSHOT", DocID: "doc-1"})))
	require.NoError(t, h.handle(ctx, &sarama.ConsumerMessage{Value: []byte("{not json")}))
	require.Empty(t, svc.deltas)
}

func TestReplayHandler_PropagatesBrokenSession(t *testing.T) {
	svc := &recordingService{err: ErrSessionBroken}
	h := NewReplayHandler(svc, "")

	err := h.handle(context.Background(), message(t, DocOpEvent{EventType: "OP_APPLIED", DocID: "any"}))
	require.ErrorIs(t, err, ErrSessionBroken)
}

// fakeGroupSession 只记录提交过的 offset
type fakeGroupSession struct {
	sarama.ConsumerGroupSession
	ctx    context.Context
	marked []int64
}

func (s *fakeGroupSession) Context() context.Context { return s.ctx }

func (s *fakeGroupSession) MarkMessage(msg *sarama.ConsumerMessage, metadata string) {
	s.marked = append(s.marked, msg.Offset)
}

type fakeClaim struct {
	sarama.ConsumerGroupClaim
	msgs chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.msgs }

func newClaim(t *testing.T, first int64, texts ...string) *fakeClaim {
	t.Helper()
	c := &fakeClaim{msgs: make(chan *sarama.ConsumerMessage, len(texts))}
	for i, text := range texts {
		var ops delta.KindOps
		if text == "" {
			// 删除超出文档长度，会在任何按键之前被拒绝
			ops = delta.KindOps{{Kind: delta.KindDelete, Count: 5}}
		} else {
			ops = delta.KindOps{{Kind: delta.KindInsert, Text: text}}
		}
		msg := message(t, DocOpEvent{EventType: "OP_APPLIED", DocID: "doc-1", Ops: ops})
		msg.Offset = first + int64(i)
		c.msgs <- msg
	}
	close(c.msgs)
	return c
}

func TestConsumeClaim_BreakingMessageIsNotMarked(t *testing.T) {
	svc, ed := newTestService(t, Options{})
	ed.Fail = func(c editorsim.Call) error {
		if c.Method == "SendKeys" && len(c.Keys) > 0 && c.Keys[0] == driver.Text("boom") {
			return errors.New("tab crashed")
		}
		return nil
	}
	sess := &fakeGroupSession{ctx: context.Background()}

	err := NewReplayHandler(svc, "").ConsumeClaim(sess, newClaim(t, 10, "ok", "boom", "later"))
	require.ErrorIs(t, err, adapter.ErrDriverFailure)
	require.Equal(t, []int64{10}, sess.marked)
	require.True(t, svc.Snapshot(context.Background()).Broken)
}

func TestConsumeClaim_StopsOnBrokenSession(t *testing.T) {
	svc := &recordingService{err: ErrSessionBroken}
	sess := &fakeGroupSession{ctx: context.Background()}

	err := NewReplayHandler(svc, "").ConsumeClaim(sess, newClaim(t, 3, "a", "b"))
	require.ErrorIs(t, err, ErrSessionBroken)
	require.Empty(t, sess.marked)
}

func TestConsumeClaim_RejectedDeltasAreSkipped(t *testing.T) {
	svc, ed := newTestService(t, Options{})
	sess := &fakeGroupSession{ctx: context.Background()}

	err := NewReplayHandler(svc, "").ConsumeClaim(sess, newClaim(t, 20, "", "ok"))
	require.NoError(t, err)
	require.Equal(t, []int64{20, 21}, sess.marked)
	require.Equal(t, "ok\n", ed.String())
}

func TestConsumeClaim_BusyBrowserIsNotMarked(t *testing.T) {
	svc, ed := newTestService(t, Options{AcquireTimeout: 10 * time.Millisecond})
	require.NoError(t, svc.sem.Acquire(context.Background()))
	defer svc.sem.Release()
	sess := &fakeGroupSession{ctx: context.Background()}

	err := NewReplayHandler(svc, "").ConsumeClaim(sess, newClaim(t, 30, "x"))
	require.ErrorIs(t, err, ErrBusy)
	require.Empty(t, sess.marked)
	require.Equal(t, "\n", ed.String())
}

func TestHandle_CancelledWhileWaiting(t *testing.T) {
	svc, ed := newTestService(t, Options{})
	require.NoError(t, svc.sem.Acquire(context.Background()))
	defer svc.sem.Release()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	msg := message(t, DocOpEvent{EventType: "OP_APPLIED", Ops: delta.KindOps{{Kind: delta.KindInsert, Text: "x"}}})
	err := NewReplayHandler(svc, "").handle(ctx, msg)
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, rejected(err))
	require.Equal(t, "\n", ed.String())
}
