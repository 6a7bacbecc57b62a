package delta

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// Op 是编辑器格式的单个操作，区间 [Start, End) 指向旧文档
// {"value":"hi"} / {"start":0,"end":5} / {"start":5,"end":8,"attributes":{"bold":true}}
type Op struct {
	Value      string         `json:"value,omitempty"`      // insert 的文本
	Start      int            `json:"start"`                // retain 起点
	End        int            `json:"end"`                  // retain 终点（不含）
	Attributes map[string]any `json:"attributes,omitempty"` // 样式属性（粗体/颜色等）
}

// IsInsert 判断是否携带待插入的文本
func (op Op) IsInsert() bool { return op.Value != "" }

// IsFormat 判断是否是带样式的 retain
func (op Op) IsFormat() bool { return !op.IsInsert() && len(op.Attributes) > 0 }

// Len 返回 retain 覆盖的长度；insert 返回文本的字符数
func (op Op) Len() int {
	if op.IsInsert() {
		return utf8.RuneCountInString(op.Value)
	}
	return op.End - op.Start
}

// "ops":[{"start":0,"end":5},{"value":"Hello"}]
type Delta struct {
	Ops []Op `json:"ops"`
}

func Parse(b []byte) (Delta, error) {
	var d Delta
	if err := json.Unmarshal(b, &d); err != nil {
		return Delta{}, fmt.Errorf("parse delta: %w", err)
	}
	for i, op := range d.Ops {
		if !op.IsInsert() && op.End < op.Start {
			return Delta{}, fmt.Errorf("parse delta: op %d has end %d before start %d", i, op.End, op.Start)
		}
	}
	return d, nil
}
