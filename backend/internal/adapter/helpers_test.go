package adapter

import (
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/require"

	"fuzz-adapter/backend/internal/driver"
	"fuzz-adapter/backend/internal/editorsim"
	"fuzz-adapter/backend/internal/platform"
)

// constChooser 总是返回同一个下标，用来固定快捷键/工具栏的选择
type constChooser int

func (c constChooser) Intn(n int) int { return int(c) % n }

const (
	chooseShortcut constChooser = 0
	chooseToolbar  constChooser = 1
)

func newTestAdapter(t *testing.T, ed *editorsim.Editor, browser string, opt Options) *Adapter {
	t.Helper()
	profile, err := platform.Detect("linux", browser)
	require.NoError(t, err)
	if opt.Logger == nil {
		opt.Logger = discardLogger()
	}
	return New(ed, ed, profile, opt)
}

func discardLogger() *log.Logger { return log.New(io.Discard, "", 0) }

// withContent 让模拟编辑器和模型都从给定内容开始，光标在开头
func withContent(a *Adapter, ed *editorsim.Editor, content string) {
	ed.Text = editorsim.NewPieceTable(content)
	ed.Caret, ed.Anchor = 0, 0
	a.state.DocLength = ed.Len()
	a.state.CursorPos = 0
}

func jumpChords(ed *editorsim.Editor) int {
	n := 0
	for _, c := range ed.CallsOf("Chord") {
		if c.Mod == driver.ModifierCtrl && len(c.Keys) == 1 && c.Keys[0] == driver.Home {
			n++
		}
	}
	return n
}

func requireInSync(t *testing.T, a *Adapter, ed *editorsim.Editor) {
	t.Helper()
	require.Equal(t, ed.Len(), a.State().DocLength, "doc length diverged, editor has %q", ed.String())
	require.Equal(t, ed.Caret, a.State().CursorPos, "cursor diverged, editor has %q", ed.String())
	require.True(t, ed.InFrame, "adapter left the editor frame")
}
