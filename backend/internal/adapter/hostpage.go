package adapter

import (
	"context"
	"errors"

	"fuzz-adapter/backend/internal/driver"
)

// Baseline 是清除格式后某个下拉框应恢复的值
type Baseline struct {
	Control string
	Value   string
}

// hostPage 负责工具栏、下拉框和 "当前激活格式" 查询，
// 这些都在编辑器 iframe 之外，需要先切回宿主页面。
type hostPage struct {
	drv                 driver.Driver
	toolbarSelector     string
	activeFormatsScript string
	baselines           []Baseline
}

// do 在宿主页面执行 fn，结束后无论成功与否都切回编辑器 iframe
func (h *hostPage) do(ctx context.Context, action string, fn func() error) (err error) {
	if err := h.drv.SwitchToHost(ctx); err != nil {
		return driverErr("switch to host page", err)
	}
	defer func() {
		if ferr := h.drv.SwitchToFrame(ctx); ferr != nil {
			err = errors.Join(err, driverErr("switch to editor frame", ferr))
		}
	}()
	if err := fn(); err != nil {
		return driverErr(action, err)
	}
	return nil
}

func (h *hostPage) control(class string) string {
	return h.toolbarSelector + " > ." + class
}

func (h *hostPage) clickToolbar(ctx context.Context, class string) error {
	return h.do(ctx, "click toolbar "+class, func() error {
		return h.drv.Click(ctx, h.control(class))
	})
}

func (h *hostPage) selectDropdown(ctx context.Context, class, value string) error {
	return h.do(ctx, "select "+class+"="+value, func() error {
		return h.drv.SelectByValue(ctx, h.control(class), value)
	})
}

func (h *hostPage) queryActiveFormats(ctx context.Context) ([]string, error) {
	var formats []string
	err := h.do(ctx, "query active formats", func() error {
		return h.drv.Eval(ctx, h.activeFormatsScript, &formats)
	})
	return formats, err
}

// removeActiveFormatting 关掉选区上所有激活的开关样式，再把下拉框恢复到基线值
func (h *hostPage) removeActiveFormatting(ctx context.Context) error {
	formats, err := h.queryActiveFormats(ctx)
	if err != nil {
		return err
	}
	for _, f := range formats {
		if err := h.clickToolbar(ctx, f); err != nil {
			return err
		}
	}
	for _, b := range h.baselines {
		if err := h.selectDropdown(ctx, b.Control, b.Value); err != nil {
			return err
		}
	}
	return nil
}
