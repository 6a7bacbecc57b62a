package adapter

import (
	"strings"
	"unicode/utf8"

	"fuzz-adapter/backend/internal/driver"
)

type TokenKind int

const (
	TokenText TokenKind = iota
	TokenSpace
	TokenNewline
)

// Token 是一次字面输入：一段普通字符，或单独的空格/换行
type Token struct {
	Kind TokenKind
	Text string
}

var (
	SpaceToken   = Token{Kind: TokenSpace}
	NewlineToken = Token{Kind: TokenNewline}
)

func TextToken(s string) Token { return Token{Kind: TokenText, Text: s} }

func (t Token) Len() int {
	if t.Kind == TokenText {
		return utf8.RuneCountInString(t.Text)
	}
	return 1
}

func (t Token) String() string {
	switch t.Kind {
	case TokenSpace:
		return "SPACE"
	case TokenNewline:
		return "NEWLINE"
	}
	return t.Text
}

// Key 把 token 转成要发送的按键；空格和换行必须是独立的按键事件
func (t Token) Key() driver.Key {
	switch t.Kind {
	case TokenSpace:
		return driver.Space
	case TokenNewline:
		return driver.Enter
	}
	return driver.Text(t.Text)
}

// Tokenize 把文本拆成普通字符段、空格和换行
func Tokenize(text string) []Token {
	var tokens []Token
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, TextToken(cur.String()))
			cur.Reset()
		}
	}
	for _, r := range text {
		switch r {
		case '\n':
			flush()
			tokens = append(tokens, NewlineToken)
		case ' ':
			flush()
			tokens = append(tokens, SpaceToken)
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

func tokensLen(tokens []Token) int {
	n := 0
	for _, t := range tokens {
		n += t.Len()
	}
	return n
}

func tokenKeys(tokens []Token) []driver.Key {
	keys := make([]driver.Key, len(tokens))
	for i, t := range tokens {
		keys[i] = t.Key()
	}
	return keys
}
