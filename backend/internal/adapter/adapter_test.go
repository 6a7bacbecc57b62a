package adapter

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuzz-adapter/backend/internal/driver"
	"fuzz-adapter/backend/internal/editorsim"
	"fuzz-adapter/backend/internal/ot/delta"
)

func TestApply_InsertEndToEnd(t *testing.T) {
	ed := editorsim.New()
	a := newTestAdapter(t, ed, "chrome", Options{})
	require.Equal(t, DocumentState{CursorPos: 0, DocLength: 1}, a.State())

	d, err := delta.Parse([]byte(`{"ops":[{"value":"hi"}]}`))
	require.NoError(t, err)
	require.NoError(t, a.Apply(context.Background(), d))

	assert.Equal(t, DocumentState{CursorPos: 2, DocLength: 3}, a.State())
	assert.Equal(t, 2, jumpChords(ed), "navigate before typing and before stripping")
	assert.Contains(t, ed.CallsOf("SendKeys"), editorsim.Call{Method: "SendKeys", Keys: []driver.Key{driver.Text("hi")}})
	assert.Equal(t, "hi\n", ed.String())
	requireInSync(t, a, ed)
}

func TestApply_SingleMutationDispatch(t *testing.T) {
	ed := editorsim.New()
	a := newTestAdapter(t, ed, "chrome", Options{Chooser: chooseToolbar})
	withContent(a, ed, "0123456789\n")

	d := delta.Delta{Ops: []delta.Op{
		{Start: 0, End: 5},
		{Start: 5, End: 8, Attributes: map[string]any{"bold": true}},
		{Value: "x"},
	}}
	require.NoError(t, a.Apply(context.Background(), d))

	assert.Equal(t, "0123456789\n", ed.String(), "trailing insert must be ignored")
	assert.Equal(t, 11, a.State().DocLength)
	assert.Equal(t, 8, a.State().CursorPos)
	assert.Equal(t, []editorsim.Call{{Method: "Click", Selector: "#editor-toolbar > .bold"}}, ed.CallsOf("Click"))
	requireInSync(t, a, ed)
}

func TestApply_DeleteFromGap(t *testing.T) {
	ed := editorsim.New()
	a := newTestAdapter(t, ed, "chrome", Options{})
	withContent(a, ed, "abcdef\n")

	d := delta.Delta{Ops: []delta.Op{{Start: 0, End: 2}, {Start: 4, End: 7}}}
	require.NoError(t, a.Apply(context.Background(), d))

	assert.Equal(t, "abef\n", ed.String())
	assert.Equal(t, DocumentState{CursorPos: 2, DocLength: 5}, a.State())
	requireInSync(t, a, ed)
}

func TestApply_NoMutationIsNoop(t *testing.T) {
	ed := editorsim.New()
	a := newTestAdapter(t, ed, "chrome", Options{})
	withContent(a, ed, "abc\n")

	d := delta.Delta{Ops: []delta.Op{{Start: 0, End: 2}, {Start: 2, End: 4}}}
	require.NoError(t, a.Apply(context.Background(), d))
	require.NoError(t, a.Apply(context.Background(), delta.Delta{}))

	assert.Empty(t, ed.Calls)
	assert.Equal(t, DocumentState{CursorPos: 0, DocLength: 4}, a.State())
}

func TestApply_FromKindOps(t *testing.T) {
	ed := editorsim.New()
	a := newTestAdapter(t, ed, "chrome", Options{})
	withContent(a, ed, "Hello world\n")

	d := delta.FromKindOps(delta.KindOps{
		{Kind: delta.KindRetain, Count: 5},
		{Kind: delta.KindInsert, Text: " collaborative"},
	})
	require.NoError(t, a.Apply(context.Background(), d))
	assert.Equal(t, "Hello collaborative world\n", ed.String())
	requireInSync(t, a, ed)

	d = delta.FromKindOps(delta.KindOps{
		{Kind: delta.KindRetain, Count: 5},
		{Kind: delta.KindDelete, Count: 14},
	})
	require.NoError(t, a.Apply(context.Background(), d))
	assert.Equal(t, "Hello world\n", ed.String())
	requireInSync(t, a, ed)
}

func TestApply_InsertDeleteRoundTrip(t *testing.T) {
	ctx := context.Background()
	ed := editorsim.New()
	a := newTestAdapter(t, ed, "chrome", Options{})
	withContent(a, ed, "abc\n")

	require.NoError(t, a.injector.nav.moveTo(ctx, 2))
	before := a.State()

	text := "xy z\nw"
	require.NoError(t, a.Apply(ctx, delta.Delta{Ops: []delta.Op{{Start: 0, End: 2}, {Value: text}}}))
	assert.Equal(t, before.DocLength+6, a.State().DocLength)

	require.NoError(t, a.Apply(ctx, delta.Delta{Ops: []delta.Op{{Start: 0, End: 2}, {Start: 8, End: 10}}}))
	assert.Equal(t, before, a.State())
	assert.Equal(t, "abc\n", ed.String())
	requireInSync(t, a, ed)
}

func TestApply_OutOfBoundsPropagates(t *testing.T) {
	ed := editorsim.New()
	a := newTestAdapter(t, ed, "chrome", Options{})

	err := a.Apply(context.Background(), delta.Delta{Ops: []delta.Op{{Start: 0, End: 3}, {Value: "x"}}})
	assert.ErrorIs(t, err, ErrOutOfBounds)
	assert.Empty(t, ed.Calls)
	assert.Equal(t, DocumentState{CursorPos: 0, DocLength: 1}, a.State())
}

func TestApply_DriverFailurePropagates(t *testing.T) {
	ed := editorsim.New()
	a := newTestAdapter(t, ed, "chrome", Options{})
	boom := errors.New("stale element")
	ed.Fail = func(c editorsim.Call) error {
		if c.Method == "SendKeys" {
			return boom
		}
		return nil
	}

	err := a.Apply(context.Background(), delta.Delta{Ops: []delta.Op{{Value: "x"}}})
	assert.ErrorIs(t, err, ErrDriverFailure)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, DocumentState{CursorPos: 0, DocLength: 1}, a.State())
}

// 随机 delta 序列下模型必须始终和模拟编辑器一致
func TestApply_RandomDeltasStayInSync(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))
	ed := editorsim.New()
	ed.ActiveFormats = []string{"bold"}
	a := newTestAdapter(t, ed, "chrome", Options{Chooser: rng})

	words := []string{"a", "bc", "d e", "f\ng", "\n", " ", "协作"}
	attrs := []map[string]any{
		{"bold": true},
		{"italic": true, "size": "huge"},
		{"link": "https://example.com"},
		{"color": "red", "underline": true},
	}

	for i := 0; i < 200; i++ {
		length := a.State().DocLength
		index := 0
		if length > 0 {
			index = rng.Intn(length)
		}
		var d delta.Delta
		switch rng.Intn(3) {
		case 0:
			d.Ops = []delta.Op{{Start: 0, End: index}, {Value: words[rng.Intn(len(words))]}}
		case 1:
			if length < 2 {
				continue
			}
			n := 1 + rng.Intn(length-index)
			d.Ops = []delta.Op{{Start: 0, End: index}, {Start: index + n, End: length}}
		case 2:
			n := rng.Intn(length - index + 1)
			d.Ops = []delta.Op{{Start: 0, End: index}, {Start: index, End: index + n, Attributes: attrs[rng.Intn(len(attrs))]}}
		}
		require.NoError(t, a.Apply(ctx, d), "step %d: %+v", i, d)
		requireInSync(t, a, ed)
	}
}
