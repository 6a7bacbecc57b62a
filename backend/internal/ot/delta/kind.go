package delta

// 协作服务（doc-ops topic）里使用的 retain/insert/delete 计数格式
type Kind string

const (
	KindRetain Kind = "retain"
	KindInsert Kind = "insert"
	KindDelete Kind = "delete"
)

type KindOp struct {
	Kind  Kind           `json:"kind"`            // "retain" / "insert" / "delete"
	Count int            `json:"count,omitempty"` // retain/delete 的长度
	Text  string         `json:"text,omitempty"`  // insert 的文本
	Attrs map[string]any `json:"attrs,omitempty"` // 样式属性（粗体/颜色等）
}

type KindOps []KindOp

// FromKindOps 把计数格式转换成编辑器的 start/end 格式。
// src 是旧文档里的偏移：retain 前进 src 并产生区间，delete 只前进 src，
// 于是删除表现为下一个区间的 start 跳跃。
func FromKindOps(ops KindOps) Delta {
	d := Delta{Ops: make([]Op, 0, len(ops)+1)}
	src := 0
	pendingGap := false
	for _, op := range ops {
		switch op.Kind {
		case KindRetain:
			d.Ops = append(d.Ops, Op{Start: src, End: src + op.Count, Attributes: op.Attrs})
			src += op.Count
			pendingGap = false
		case KindInsert:
			if op.Text == "" {
				continue
			}
			d.Ops = append(d.Ops, Op{Value: op.Text})
		case KindDelete:
			src += op.Count
			pendingGap = op.Count > 0 || pendingGap
		}
	}
	// 末尾的 delete 没有后续区间，补一个零长度 retain 让缺口可见
	if pendingGap {
		d.Ops = append(d.Ops, Op{Start: src, End: src})
	}
	return d
}
