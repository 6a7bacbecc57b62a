package adapter

import (
	"context"
	"fmt"

	"fuzz-adapter/backend/internal/driver"
	"fuzz-adapter/backend/internal/platform"
)

// navigator 只靠计数移动光标，从不向 UI 查询真实位置
type navigator struct {
	drv     driver.Driver
	target  driver.Target
	profile platform.Profile
	state   *DocumentState
}

func (n *navigator) moveTo(ctx context.Context, index int) error {
	if index < 0 || index > n.state.DocLength {
		return fmt.Errorf("%w: index %d for doc length %d", ErrOutOfBounds, index, n.state.DocLength)
	}
	distance := n.state.CursorPos - index
	if distance < 0 {
		distance = -distance
	}

	var err error
	switch {
	case index == 0:
		// 回到开头最常见（清除选区也靠它），一个快捷键代替 distance 次方向键
		err = n.drv.Chord(ctx, n.profile.CmdModifier, n.profile.JumpKey)
	case n.state.CursorPos > index:
		err = n.target.SendKeys(ctx, driver.Repeat(driver.ArrowLeft, distance)...)
	case distance > 0:
		err = n.target.SendKeys(ctx, driver.Repeat(driver.ArrowRight, distance)...)
	}
	if err != nil {
		return driverErr("move cursor", err)
	}
	n.state.CursorPos = index
	return nil
}
