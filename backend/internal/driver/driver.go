package driver

import "context"

// Key 是一次按键：Name 非空时为命名键，否则 Text 为字面文本
type Key struct {
	Name string
	Text string
}

func (k Key) String() string {
	if k.Name != "" {
		return "<" + k.Name + ">"
	}
	return k.Text
}

func Text(s string) Key { return Key{Text: s} }

var (
	ArrowLeft  = Key{Name: "ArrowLeft"}
	ArrowRight = Key{Name: "ArrowRight"}
	ArrowUp    = Key{Name: "ArrowUp"}
	ArrowDown  = Key{Name: "ArrowDown"}
	Home       = Key{Name: "Home"}
	Delete     = Key{Name: "Delete"}
	Enter      = Key{Name: "Enter"}
	Space      = Key{Name: "Space"}
)

// Repeat 返回 n 个相同按键
func Repeat(k Key, n int) []Key {
	keys := make([]Key, n)
	for i := range keys {
		keys[i] = k
	}
	return keys
}

type Modifier int

const (
	ModifierShift Modifier = iota + 1
	ModifierCtrl
	ModifierMeta
)

func (m Modifier) String() string {
	switch m {
	case ModifierShift:
		return "shift"
	case ModifierCtrl:
		return "ctrl"
	case ModifierMeta:
		return "meta"
	}
	return "none"
}

// Driver 是浏览器自动化层提供给适配器的能力。
// 所有调用都是同步的：返回时动作已完成。
type Driver interface {
	// 按住 mod 依次发送 keys，结束后松开 mod
	Chord(ctx context.Context, mod Modifier, keys ...Key) error
	// 回到宿主页面（编辑器所在 iframe 之外）
	SwitchToHost(ctx context.Context) error
	// 进入编辑器 iframe
	SwitchToFrame(ctx context.Context) error
	// 在当前上下文执行脚本，结果解码到 out
	Eval(ctx context.Context, script string, out any) error
	Click(ctx context.Context, selector string) error
	SelectByValue(ctx context.Context, selector, value string) error
}

// Target 是编辑器里接收输入的元素
type Target interface {
	SendKeys(ctx context.Context, keys ...Key) error
	// 把焦点还给编辑器（不产生输入）
	Focus(ctx context.Context) error
}
