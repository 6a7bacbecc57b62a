package driver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

var ErrFrameNotFound = errors.New("editor frame not found")

type ChromeOptions struct {
	URL            string
	Headless       bool
	FrameSelector  string        // 编辑器 iframe，例如 "iframe"
	EditorSelector string        // iframe 内接收输入的元素，例如 "body"
	ActionTimeout  time.Duration // 单个动作的超时，0 表示不限制
}

// Chrome 基于 chromedp 实现 Driver 和 Target。
// chromedp 没有 "切换 frame" 的概念，这里记录当前上下文，
// 在 frame 内的查询统一加上 FromNode(frame)。
type Chrome struct {
	ctx    context.Context
	cancel context.CancelFunc
	opt    ChromeOptions

	mu      sync.Mutex
	inFrame bool
	frame   *cdp.Node
}

// 确保 Chrome 同时实现了 Driver 和 Target
var (
	_ Driver = (*Chrome)(nil)
	_ Target = (*Chrome)(nil)
)

// OpenChrome 启动浏览器、打开编辑器页面并进入编辑器 iframe
func OpenChrome(parent context.Context, opt ChromeOptions) (*Chrome, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Flag("headless", opt.Headless))
	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, allocOpts...)
	ctx, ctxCancel := chromedp.NewContext(allocCtx)

	c := &Chrome{
		ctx: ctx,
		cancel: func() {
			ctxCancel()
			allocCancel()
		},
		opt: opt,
	}
	if err := chromedp.Run(ctx,
		chromedp.Navigate(opt.URL),
		chromedp.WaitReady(opt.FrameSelector, chromedp.ByQuery),
	); err != nil {
		c.Close()
		return nil, fmt.Errorf("open %s: %w", opt.URL, err)
	}
	if err := c.SwitchToFrame(parent); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.Focus(parent); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Chrome) Close() {
	if c.cancel != nil {
		c.cancel()
	}
}

// run 在浏览器上下文里执行动作；调用方 ctx 取消时一并取消
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(c.ctx)
	defer cancel()
	if c.opt.ActionTimeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, c.opt.ActionTimeout)
		defer cancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (c *Chrome) scope() []chromedp.QueryOption {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFrame && c.frame != nil {
		return []chromedp.QueryOption{chromedp.ByQuery, chromedp.FromNode(c.frame)}
	}
	return []chromedp.QueryOption{chromedp.ByQuery}
}

// documentExpr 返回当前上下文对应 document 的 JS 表达式
func (c *Chrome) documentExpr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFrame {
		return fmt.Sprintf("document.querySelector(%s).contentDocument", jsString(c.opt.FrameSelector))
	}
	return "document"
}

func (c *Chrome) Chord(ctx context.Context, mod Modifier, keys ...Key) error {
	return c.run(ctx, chromedp.KeyEvent(encodeKeys(keys), chromedp.KeyModifiers(cdpModifier(mod))))
}

func (c *Chrome) SwitchToHost(ctx context.Context) error {
	c.mu.Lock()
	c.inFrame = false
	c.mu.Unlock()
	return nil
}

func (c *Chrome) SwitchToFrame(ctx context.Context) error {
	var nodes []*cdp.Node
	if err := c.run(ctx, chromedp.Nodes(c.opt.FrameSelector, &nodes, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("find frame %s: %w", c.opt.FrameSelector, err)
	}
	if len(nodes) == 0 {
		return ErrFrameNotFound
	}
	c.mu.Lock()
	c.frame = nodes[0]
	c.inFrame = true
	c.mu.Unlock()
	return nil
}

func (c *Chrome) Eval(ctx context.Context, script string, out any) error {
	expr := script
	c.mu.Lock()
	inFrame := c.inFrame
	c.mu.Unlock()
	if inFrame {
		expr = fmt.Sprintf("document.querySelector(%s).contentWindow.eval(%s)",
			jsString(c.opt.FrameSelector), jsString(script))
	}
	if out == nil {
		var discard any
		out = &discard
	}
	return c.run(ctx, chromedp.Evaluate(expr, out))
}

func (c *Chrome) Click(ctx context.Context, selector string) error {
	return c.run(ctx, chromedp.Click(selector, c.scope()...))
}

func (c *Chrome) SelectByValue(ctx context.Context, selector, value string) error {
	script := fmt.Sprintf(`(function() {
	const el = %s.querySelector(%s);
	if (!el) { return false; }
	el.value = %s;
	el.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
})()`, c.documentExpr(), jsString(selector), jsString(value))
	var ok bool
	if err := c.run(ctx, chromedp.Evaluate(script, &ok)); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("dropdown %s not found", selector)
	}
	return nil
}

// SendKeys 发送到 iframe 内的编辑器元素，与当前上下文无关
func (c *Chrome) SendKeys(ctx context.Context, keys ...Key) error {
	return c.run(ctx, chromedp.SendKeys(c.opt.EditorSelector, encodeKeys(keys), c.editorScope()...))
}

func (c *Chrome) Focus(ctx context.Context) error {
	return c.run(ctx, chromedp.Focus(c.opt.EditorSelector, c.editorScope()...))
}

func (c *Chrome) editorScope() []chromedp.QueryOption {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frame != nil {
		return []chromedp.QueryOption{chromedp.ByQuery, chromedp.FromNode(c.frame)}
	}
	return []chromedp.QueryOption{chromedp.ByQuery}
}

func cdpModifier(m Modifier) input.Modifier {
	switch m {
	case ModifierShift:
		return input.ModifierShift
	case ModifierCtrl:
		return input.ModifierCtrl
	case ModifierMeta:
		return input.ModifierMeta
	}
	return input.ModifierNone
}

var namedKeys = map[string]string{
	ArrowLeft.Name:  kb.ArrowLeft,
	ArrowRight.Name: kb.ArrowRight,
	ArrowUp.Name:    kb.ArrowUp,
	ArrowDown.Name:  kb.ArrowDown,
	Home.Name:       kb.Home,
	Delete.Name:     kb.Delete,
	Enter.Name:      kb.Enter,
	Space.Name:      " ",
}

// encodeKeys 把按键序列编码成 chromedp 的字符串形式（命名键使用 kb 里的码点）
func encodeKeys(keys []Key) string {
	var b strings.Builder
	for _, k := range keys {
		if k.Name == "" {
			b.WriteString(k.Text)
			continue
		}
		b.WriteString(namedKeys[k.Name])
	}
	return b.String()
}

// jsString 生成 JS 字符串字面量；关闭 HTML 转义，保留选择器里的 '>'
func jsString(s string) string {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(b.String(), "\n")
}
