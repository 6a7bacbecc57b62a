package cache

import "fmt"

// 键语义：
// - stateKey(sessionID):  会话最新 DocumentState 快照（String<JSON>，带 TTL）
// - sessionsKey():        会话索引集合（Set<sessionID>）

const (
	keyStateFmt    = "fuzz:state:{session:%s}"
	keySessionsSet = "fuzz:sessions"
)

func stateKey(sessionID string) string { return fmt.Sprintf(keyStateFmt, sessionID) }
func sessionsKey() string              { return keySessionsSet }
