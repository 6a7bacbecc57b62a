package platform

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"fuzz-adapter/backend/internal/driver"
)

var ErrUnsupportedOS = errors.New("unsupported os")

type OS string

const (
	Windows OS = "windows"
	Linux   OS = "linux"
	MacOS   OS = "darwin"
)

// Profile 在启动时计算一次，之后只读
type Profile struct {
	OS      OS
	Browser string
	// 快捷键使用的命令修饰键：Windows/Linux 为 Ctrl，macOS 为 Cmd
	CmdModifier driver.Modifier
	// 跳到文档开头：CmdModifier + JumpKey
	JumpKey driver.Key
	// Firefox 在空文档开头输入时会多出一个换行
	TrailingNewlineOnEmptyInsert bool
}

// Detect 根据操作系统和浏览器名生成 Profile。goos 为空时使用 runtime.GOOS。
func Detect(goos, browser string) (Profile, error) {
	if goos == "" {
		goos = runtime.GOOS
	}
	p := Profile{
		Browser:                      strings.ToLower(browser),
		TrailingNewlineOnEmptyInsert: strings.EqualFold(browser, "firefox"),
	}
	switch OS(strings.ToLower(goos)) {
	case Windows:
		p.OS, p.CmdModifier, p.JumpKey = Windows, driver.ModifierCtrl, driver.Home
	case Linux:
		p.OS, p.CmdModifier, p.JumpKey = Linux, driver.ModifierCtrl, driver.Home
	case MacOS, "macos", "macosx":
		p.OS, p.CmdModifier, p.JumpKey = MacOS, driver.ModifierMeta, driver.ArrowUp
	default:
		return Profile{}, fmt.Errorf("%w: %q", ErrUnsupportedOS, goos)
	}
	return p, nil
}
