package adapter

import (
	"context"
	"fmt"
	"log"
	"sort"

	"fuzz-adapter/backend/internal/driver"
	"fuzz-adapter/backend/internal/platform"
)

type formatPath int

const (
	pathShortcut formatPath = iota
	pathToolbar
	pathDropdown
)

type formatCategory int

const (
	categoryToggle      formatCategory = iota // 快捷键或工具栏二选一
	categoryToolbarOnly                       // 只能点工具栏
	categoryValue                             // 下拉框选值
)

var formatCategories = map[string]formatCategory{
	"bold":          categoryToggle,
	"italic":        categoryToggle,
	"underline":     categoryToggle,
	"link":          categoryToolbarOnly,
	"strike":        categoryToolbarOnly,
	"strikethrough": categoryToolbarOnly,
	"family":        categoryValue,
	"size":          categoryValue,
	"background":    categoryValue,
	"color":         categoryValue,
}

// 工具栏控件的 class 与属性名不一致的情况
var controlClass = map[string]string{
	"strikethrough": "strike",
}

func classFor(name string) string {
	if c, ok := controlClass[name]; ok {
		return c
	}
	return name
}

type formatter struct {
	drv     driver.Driver
	target  driver.Target
	profile platform.Profile
	nav     *navigator
	sel     *extender
	host    *hostPage
	chooser Chooser
	toggle  []weighted[formatPath]
	logger  *log.Logger
}

func (f *formatter) format(ctx context.Context, index, length int, attrs map[string]any) error {
	// 先校验所有属性名，未知属性不产生任何 UI 动作
	names := make([]string, 0, len(attrs))
	for name, value := range attrs {
		if _, ok := formatCategories[name]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownFormat, name)
		}
		// null 没有可点的控件或可选的值，跳过
		if value == nil {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil
	}
	// map 无序，排序后同一个随机种子可以重放
	sort.Strings(names)

	f.logger.Printf("formatting %d starting at %d with %v", length, index, attrs)
	if err := f.nav.moveTo(ctx, index); err != nil {
		return err
	}
	if err := f.sel.extend(ctx, length); err != nil {
		return err
	}
	for _, name := range names {
		if err := f.applyOne(ctx, name, attrs[name]); err != nil {
			return err
		}
		// 点过工具栏后焦点不在编辑器上，不还回去后续按键会丢
		if err := f.target.Focus(ctx); err != nil {
			return driverErr("focus editor", err)
		}
	}
	return f.sel.collapse(ctx, length)
}

func (f *formatter) applyOne(ctx context.Context, name string, value any) error {
	path := pathToolbar
	switch formatCategories[name] {
	case categoryToggle:
		path = pick(f.chooser, f.toggle)
	case categoryValue:
		path = pathDropdown
	}

	switch path {
	case pathShortcut:
		if err := f.drv.Chord(ctx, f.profile.CmdModifier, driver.Text(name[:1])); err != nil {
			return driverErr("shortcut "+name, err)
		}
		return nil
	case pathDropdown:
		return f.host.selectDropdown(ctx, classFor(name), fmt.Sprint(value))
	default:
		return f.host.clickToolbar(ctx, classFor(name))
	}
}
