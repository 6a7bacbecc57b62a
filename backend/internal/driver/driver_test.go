package driver

import (
	"testing"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp/kb"
	"github.com/stretchr/testify/assert"
)

func TestEncodeKeys(t *testing.T) {
	got := encodeKeys([]Key{Text("ab"), Space, Text("cd"), Enter, ArrowLeft})
	assert.Equal(t, "ab cd"+kb.Enter+kb.ArrowLeft, got)
}

func TestRepeat(t *testing.T) {
	assert.Equal(t, []Key{ArrowRight, ArrowRight, ArrowRight}, Repeat(ArrowRight, 3))
	assert.Empty(t, Repeat(ArrowRight, 0))
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "<Home>", Home.String())
	assert.Equal(t, "hi", Text("hi").String())
}

func TestCdpModifier(t *testing.T) {
	assert.Equal(t, input.ModifierShift, cdpModifier(ModifierShift))
	assert.Equal(t, input.ModifierCtrl, cdpModifier(ModifierCtrl))
	assert.Equal(t, input.ModifierMeta, cdpModifier(ModifierMeta))
}

func TestJSString(t *testing.T) {
	assert.Equal(t, `"#editor-toolbar > .bold"`, jsString("#editor-toolbar > .bold"))
	assert.Equal(t, `"it's \"quoted\""`, jsString(`it's "quoted"`))
}
