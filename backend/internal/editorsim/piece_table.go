package editorsim

import (
	"strings"

	"fuzz-adapter/backend/internal/ot/delta"
)

type bufferKind int

const (
	//iota：在 const (...) 里从 0 开始自动递增，这里就是：bufOriginal = 0, bufAdd = 1
	bufOriginal bufferKind = iota
	bufAdd
)

type piece struct {
	buf    bufferKind
	offset int
	length int
}

// PieceTable 保存模拟编辑器的文本内容
type PieceTable struct {
	original []rune
	add      []rune
	pieces   []piece
}

func NewPieceTable(initial string) *PieceTable {
	r := []rune(initial)
	return &PieceTable{
		original: r,
		pieces:   []piece{{buf: bufOriginal, offset: 0, length: len(r)}},
	}
}

func (pt *PieceTable) Len() int {
	n := 0
	for _, p := range pt.pieces {
		n += p.length
	}
	return n
}

func (pt *PieceTable) String() string {
	var b strings.Builder
	for _, p := range pt.pieces {
		switch p.buf {
		case bufOriginal:
			b.WriteString(string(pt.original[p.offset : p.offset+p.length]))
		case bufAdd:
			b.WriteString(string(pt.add[p.offset : p.offset+p.length]))
		}
	}
	return b.String()
}

func (pt *PieceTable) Insert(pos int, text string) {
	pt.Apply(delta.KindOps{{Kind: delta.KindRetain, Count: pos}, {Kind: delta.KindInsert, Text: text}})
}

func (pt *PieceTable) Delete(pos, n int) {
	pt.Apply(delta.KindOps{{Kind: delta.KindRetain, Count: pos}, {Kind: delta.KindDelete, Count: n}})
}

func (pt *PieceTable) Apply(ops delta.KindOps) {
	pos := 0
	//retain: 沿 piece 列表向前走，对应“移动 pos”；
	//insert: 在当前 pos 拆分 piece 并插入；
	//delete: 在当前 pos 裁剪/移除 piece。
	for _, op := range ops {
		switch op.Kind {
		case delta.KindRetain:
			pos += op.Count
		case delta.KindInsert:
			pos += pt.insertAt(pos, []rune(op.Text))
		case delta.KindDelete:
			pt.deleteAt(pos, op.Count)
		}
	}
}

func (pt *PieceTable) insertAt(pos int, text []rune) int {
	start := len(pt.add)
	pt.add = append(pt.add, text...)
	newPiece := piece{buf: bufAdd, offset: start, length: len(text)}

	idx, offset := pt.locate(pos)
	if idx >= len(pt.pieces) {
		pt.pieces = append(pt.pieces, newPiece)
		return len(text)
	}
	cur := pt.pieces[idx]
	left := piece{buf: cur.buf, offset: cur.offset, length: offset}
	right := piece{buf: cur.buf, offset: cur.offset + offset, length: cur.length - offset}

	newPieces := make([]piece, 0, len(pt.pieces)+2)
	newPieces = append(newPieces, pt.pieces[:idx]...)
	if left.length > 0 {
		newPieces = append(newPieces, left)
	}
	newPieces = append(newPieces, newPiece)
	if right.length > 0 {
		newPieces = append(newPieces, right)
	}
	newPieces = append(newPieces, pt.pieces[idx+1:]...)
	pt.pieces = newPieces
	return len(text)
}

func (pt *PieceTable) deleteAt(pos, count int) {
	remain := count
	idx, offset := pt.locate(pos)
	for remain > 0 && idx < len(pt.pieces) {
		cur := pt.pieces[idx]
		// 这个 piece 里还剩多少可删
		can := cur.length - offset
		if can <= 0 {
			idx++
			offset = 0
			continue
		}
		take := min(remain, can)

		leftLen := offset
		rightLen := cur.length - offset - take
		repl := make([]piece, 0, 2)
		if leftLen > 0 {
			repl = append(repl, piece{buf: cur.buf, offset: cur.offset, length: leftLen})
		}
		if rightLen > 0 {
			repl = append(repl, piece{buf: cur.buf, offset: cur.offset + offset + take, length: rightLen})
		}
		newPieces := make([]piece, 0, len(pt.pieces)+1)
		newPieces = append(newPieces, pt.pieces[:idx]...)
		newPieces = append(newPieces, repl...)
		newPieces = append(newPieces, pt.pieces[idx+1:]...)
		pt.pieces = newPieces

		// 右半段有剩余时 remain 已经归零；否则下一轮从替换段之后的 piece 开头删
		idx += len(repl)
		offset = 0
		remain -= take
	}
}

// 根据逻辑位置 pos，找到对应的 piece 下标 idx 和在该 piece 内的偏移 offset
func (pt *PieceTable) locate(pos int) (idx int, offset int) {
	cur := 0
	for i, p := range pt.pieces {
		if pos < cur+p.length {
			return i, pos - cur
		}
		cur += p.length
	}
	return len(pt.pieces), 0
}
