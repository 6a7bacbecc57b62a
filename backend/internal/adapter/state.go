package adapter

// DocumentState 是光标位置和文档长度的唯一来源。
// UI 没有可查询的光标/长度接口，所有改变光标或内容的组件都必须同步更新它。
type DocumentState struct {
	CursorPos int `json:"cursorPos"`
	DocLength int `json:"docLength"`
}

// 新文档里编辑器会放一个占位换行，所以长度从 1 开始
func NewDocumentState() *DocumentState {
	return &DocumentState{DocLength: 1}
}
