package adapter

import (
	"context"
	"log"
	"strings"
	"unicode/utf8"

	"fuzz-adapter/backend/internal/driver"
	"fuzz-adapter/backend/internal/platform"
)

type injector struct {
	target  driver.Target
	profile platform.Profile
	state   *DocumentState
	nav     *navigator
	sel     *extender
	host    *hostPage
	logger  *log.Logger
}

func (in *injector) insert(ctx context.Context, index int, text string) error {
	in.logger.Printf("inserting %q at %d", text, index)
	if err := in.nav.moveTo(ctx, index); err != nil {
		return err
	}
	if err := in.typeText(ctx, text); err != nil {
		return err
	}
	// 编辑器会把相邻文字的格式延续到新输入的文字上，这里统一清掉
	return in.stripFormatting(ctx, index, text)
}

func (in *injector) typeText(ctx context.Context, text string) error {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	quirk := in.profile.TrailingNewlineOnEmptyInsert && in.state.CursorPos == 0 && in.state.DocLength == 0
	if err := in.target.SendKeys(ctx, tokenKeys(tokens)...); err != nil {
		return driverErr("type text", err)
	}
	if quirk {
		// Firefox 在空文档开头输入后会追加一个换行：移过去再删掉
		if err := in.target.SendKeys(ctx, driver.ArrowDown, driver.Delete); err != nil {
			return driverErr("remove trailing newline", err)
		}
	}
	n := tokensLen(tokens)
	in.state.CursorPos += n
	in.state.DocLength += n
	return nil
}

// stripFormatting 逐行选中刚输入的文字并去掉激活的格式，结束时光标停在插入内容末尾
func (in *injector) stripFormatting(ctx context.Context, index int, text string) error {
	if err := in.nav.moveTo(ctx, index); err != nil {
		return err
	}
	pos := index
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		n := utf8.RuneCountInString(line)
		if n > 0 {
			if err := in.sel.extend(ctx, n); err != nil {
				return err
			}
			if err := in.host.removeActiveFormatting(ctx); err != nil {
				return err
			}
			if err := in.sel.collapse(ctx, n); err != nil {
				return err
			}
		}
		pos += n
		if i < len(lines)-1 {
			// 跳过换行
			pos++
			if err := in.nav.moveTo(ctx, pos); err != nil {
				return err
			}
		}
	}
	return nil
}
