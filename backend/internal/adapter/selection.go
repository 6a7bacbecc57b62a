package adapter

import (
	"context"
	"fmt"

	"fuzz-adapter/backend/internal/driver"
)

// extender 从当前光标向右扩展选区；锚点不记录，只跟踪活动端
type extender struct {
	drv    driver.Driver
	target driver.Target
	state  *DocumentState
}

func (e *extender) extend(ctx context.Context, length int) error {
	if length < 0 || e.state.CursorPos+length > e.state.DocLength {
		return fmt.Errorf("%w: select %d from %d for doc length %d",
			ErrOutOfBounds, length, e.state.CursorPos, e.state.DocLength)
	}
	if length == 0 {
		return nil
	}
	if err := e.drv.Chord(ctx, driver.ModifierShift, driver.Repeat(driver.ArrowRight, length)...); err != nil {
		return driverErr("extend selection", err)
	}
	e.state.CursorPos += length
	return nil
}

// collapse 把长度为 length 的选区收拢到活动端。
// 有选区时按一次右方向键只会收拢、不会移动，所以 CursorPos 不变。
func (e *extender) collapse(ctx context.Context, length int) error {
	if length == 0 {
		return nil
	}
	if err := e.target.Focus(ctx); err != nil {
		return driverErr("focus editor", err)
	}
	if err := e.target.SendKeys(ctx, driver.ArrowRight); err != nil {
		return driverErr("clear selection", err)
	}
	return nil
}
