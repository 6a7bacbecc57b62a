package editorsim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"fuzz-adapter/backend/internal/driver"
)

var ErrWrongContext = errors.New("action issued in wrong frame context")

// Call 记录一次驱动调用
type Call struct {
	Method   string
	Mod      driver.Modifier
	Keys     []driver.Key
	Selector string
	Value    string
}

// Editor 是一个内存里的 contenteditable 模拟：文本保存在 PieceTable 中，
// 按键会像真实编辑器那样移动光标、扩展选区、插入和删除。
// 它同时实现 driver.Driver 和 driver.Target，并记录每次调用。
type Editor struct {
	Text   *PieceTable
	Caret  int
	Anchor int

	// 进入 iframe 后按键才会到达编辑器；工具栏和脚本只能在宿主页面使用
	InFrame bool

	// 宿主页面 "当前激活格式" 脚本返回的内容
	ActiveFormats []string
	// 模拟 Firefox：空文档开头输入后多出一个换行
	TrailingNewlineQuirk bool
	// 返回非 nil 时该调用失败且不产生效果
	Fail func(Call) error

	Calls []Call
}

var (
	_ driver.Driver = (*Editor)(nil)
	_ driver.Target = (*Editor)(nil)
)

// New 返回一个刚初始化的编辑器：只有占位换行，光标在开头，处于 iframe 内
func New() *Editor {
	return &Editor{Text: NewPieceTable("\n"), InFrame: true}
}

func (e *Editor) String() string { return e.Text.String() }

func (e *Editor) Len() int { return e.Text.Len() }

func (e *Editor) selection() (int, int) {
	return min(e.Caret, e.Anchor), max(e.Caret, e.Anchor)
}

func (e *Editor) record(c Call) error {
	e.Calls = append(e.Calls, c)
	if e.Fail != nil {
		return e.Fail(c)
	}
	return nil
}

func (e *Editor) requireFrame(method string) error {
	if !e.InFrame {
		return fmt.Errorf("%s: %w", method, ErrWrongContext)
	}
	return nil
}

func (e *Editor) requireHost(method string) error {
	if e.InFrame {
		return fmt.Errorf("%s: %w", method, ErrWrongContext)
	}
	return nil
}

func (e *Editor) Chord(ctx context.Context, mod driver.Modifier, keys ...driver.Key) error {
	if err := e.record(Call{Method: "Chord", Mod: mod, Keys: keys}); err != nil {
		return err
	}
	if err := e.requireFrame("Chord"); err != nil {
		return err
	}
	for _, k := range keys {
		e.press(mod, k)
	}
	return nil
}

func (e *Editor) SendKeys(ctx context.Context, keys ...driver.Key) error {
	if err := e.record(Call{Method: "SendKeys", Keys: keys}); err != nil {
		return err
	}
	if err := e.requireFrame("SendKeys"); err != nil {
		return err
	}
	for _, k := range keys {
		e.press(0, k)
	}
	return nil
}

func (e *Editor) Focus(ctx context.Context) error {
	if err := e.record(Call{Method: "Focus"}); err != nil {
		return err
	}
	return e.requireFrame("Focus")
}

func (e *Editor) SwitchToHost(ctx context.Context) error {
	if err := e.record(Call{Method: "SwitchToHost"}); err != nil {
		return err
	}
	e.InFrame = false
	return nil
}

func (e *Editor) SwitchToFrame(ctx context.Context) error {
	if err := e.record(Call{Method: "SwitchToFrame"}); err != nil {
		return err
	}
	e.InFrame = true
	return nil
}

func (e *Editor) Eval(ctx context.Context, script string, out any) error {
	if err := e.record(Call{Method: "Eval", Value: script}); err != nil {
		return err
	}
	if err := e.requireHost("Eval"); err != nil {
		return err
	}
	b, err := json.Marshal(e.ActiveFormats)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func (e *Editor) Click(ctx context.Context, selector string) error {
	if err := e.record(Call{Method: "Click", Selector: selector}); err != nil {
		return err
	}
	return e.requireHost("Click")
}

func (e *Editor) SelectByValue(ctx context.Context, selector, value string) error {
	if err := e.record(Call{Method: "SelectByValue", Selector: selector, Value: value}); err != nil {
		return err
	}
	return e.requireHost("SelectByValue")
}

func (e *Editor) press(mod driver.Modifier, k driver.Key) {
	switch k {
	case driver.ArrowLeft:
		e.horizontal(mod, -1)
	case driver.ArrowRight:
		e.horizontal(mod, 1)
	case driver.Home, driver.ArrowUp:
		// 带命令修饰键时跳到文档开头；模拟器不区分行，裸键也按开头处理
		e.Caret, e.Anchor = 0, 0
	case driver.ArrowDown:
		e.Caret = e.lineEnd(e.Caret)
		e.Anchor = e.Caret
	case driver.Delete:
		e.deleteForward()
	case driver.Enter:
		e.typeText("\n")
	case driver.Space:
		e.typeText(" ")
	default:
		if k.Name != "" {
			return
		}
		if mod == driver.ModifierCtrl || mod == driver.ModifierMeta {
			// 格式快捷键，不改变文本
			return
		}
		e.typeText(k.Text)
	}
}

func (e *Editor) horizontal(mod driver.Modifier, dir int) {
	start, end := e.selection()
	if mod != driver.ModifierShift && start != end {
		// 有选区时方向键只收拢选区
		if dir < 0 {
			e.Caret = start
		} else {
			e.Caret = end
		}
		e.Anchor = e.Caret
		return
	}
	e.Caret = min(max(e.Caret+dir, 0), e.Len())
	if mod != driver.ModifierShift {
		e.Anchor = e.Caret
	}
}

func (e *Editor) lineEnd(pos int) int {
	rest := []rune(e.Text.String())[pos:]
	if i := strings.IndexRune(string(rest), '\n'); i >= 0 {
		return pos + utf8.RuneCountInString(string(rest)[:i])
	}
	return e.Len()
}

func (e *Editor) deleteForward() {
	start, end := e.selection()
	if start == end {
		if start >= e.Len() {
			return
		}
		end = start + 1
	}
	e.Text.Delete(start, end-start)
	e.Caret, e.Anchor = start, start
}

func (e *Editor) typeText(s string) {
	if start, end := e.selection(); start != end {
		e.Text.Delete(start, end-start)
		e.Caret, e.Anchor = start, start
	}
	quirk := e.TrailingNewlineQuirk && e.Caret == 0 && e.Len() == 0
	e.Text.Insert(e.Caret, s)
	e.Caret += utf8.RuneCountInString(s)
	e.Anchor = e.Caret
	if quirk {
		e.Text.Insert(e.Len(), "\n")
	}
}

// Typed 返回所有非修饰按键中的字面文本和命名键，便于断言输入序列
func (e *Editor) Typed() []driver.Key {
	var keys []driver.Key
	for _, c := range e.Calls {
		if c.Method == "SendKeys" {
			keys = append(keys, c.Keys...)
		}
	}
	return keys
}

// CallsOf 返回指定方法的调用
func (e *Editor) CallsOf(method string) []Call {
	var out []Call
	for _, c := range e.Calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (e *Editor) ResetCalls() { e.Calls = nil }
