package adapter

import (
	"context"
	"log"
	"math/rand"
	"time"

	"fuzz-adapter/backend/internal/driver"
	"fuzz-adapter/backend/internal/ot/delta"
	"fuzz-adapter/backend/internal/platform"
)

const (
	DefaultToolbarSelector     = "#editor-toolbar"
	DefaultActiveFormatsScript = "window.Fuzzer.getActiveFormats()"
)

// DefaultBaselines 是新输入文字应有的下拉框取值
var DefaultBaselines = []Baseline{
	{Control: "size", Value: "normal"},
	{Control: "family", Value: "san-serif"},
	{Control: "color", Value: "black"},
	{Control: "background", Value: "white"},
}

type Options struct {
	ToolbarSelector     string
	ActiveFormatsScript string
	// nil 表示使用 DefaultBaselines；空切片表示不恢复下拉框
	Baselines []Baseline
	// 开关样式走快捷键/工具栏的权重，都为 0 时按 1:1
	ShortcutWeight int
	ToolbarWeight  int
	Chooser        Chooser
	Logger         *log.Logger
}

// Adapter 把 delta 翻译成对编辑器的键盘/工具栏操作。
// 不是并发安全的：一个 Adapter 对应一个浏览器会话、一个调用方。
type Adapter struct {
	state *DocumentState

	injector  *injector
	deleter   *deleter
	formatter *formatter
}

func New(drv driver.Driver, target driver.Target, profile platform.Profile, opt Options) *Adapter {
	if opt.ToolbarSelector == "" {
		opt.ToolbarSelector = DefaultToolbarSelector
	}
	if opt.ActiveFormatsScript == "" {
		opt.ActiveFormatsScript = DefaultActiveFormatsScript
	}
	if opt.Baselines == nil {
		opt.Baselines = DefaultBaselines
	}
	if opt.ShortcutWeight <= 0 && opt.ToolbarWeight <= 0 {
		opt.ShortcutWeight, opt.ToolbarWeight = 1, 1
	}
	if opt.Logger == nil {
		opt.Logger = log.Default()
	}
	// 需要重放时由调用方注入固定种子
	if opt.Chooser == nil {
		opt.Chooser = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	state := NewDocumentState()
	nav := &navigator{drv: drv, target: target, profile: profile, state: state}
	sel := &extender{drv: drv, target: target, state: state}
	host := &hostPage{
		drv:                 drv,
		toolbarSelector:     opt.ToolbarSelector,
		activeFormatsScript: opt.ActiveFormatsScript,
		baselines:           opt.Baselines,
	}
	return &Adapter{
		state: state,
		injector: &injector{
			target: target, profile: profile, state: state,
			nav: nav, sel: sel, host: host, logger: opt.Logger,
		},
		deleter: &deleter{target: target, state: state, nav: nav, sel: sel, logger: opt.Logger},
		formatter: &formatter{
			drv: drv, target: target, profile: profile,
			nav: nav, sel: sel, host: host,
			chooser: opt.Chooser,
			toggle: []weighted[formatPath]{
				{value: pathShortcut, weight: opt.ShortcutWeight},
				{value: pathToolbar, weight: opt.ToolbarWeight},
			},
			logger: opt.Logger,
		},
	}
}

// State 返回当前模型的副本
func (a *Adapter) State() DocumentState {
	return *a.state
}

// Apply 只执行 delta 中第一个会修改文档的操作，之后的操作全部忽略。
// 调用方需保证每个 delta 只包含一个修改。
func (a *Adapter) Apply(ctx context.Context, d delta.Delta) error {
	index := 0
	for _, op := range d.Ops {
		switch {
		case op.IsInsert():
			return a.injector.insert(ctx, index, op.Value)
		case op.Start > index:
			return a.deleter.delete(ctx, index, op.Start-index)
		case len(op.Attributes) > 0:
			return a.formatter.format(ctx, index, op.End-op.Start, op.Attributes)
		default:
			index += op.End - op.Start
		}
	}
	return nil
}
