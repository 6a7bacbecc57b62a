package cache

import (
	"context"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
)

var ErrStateNotFound = errors.New("STATE_NOT_FOUND")

type StateCache interface {
	SetState(ctx context.Context, sessionID string, jsonData []byte, ttl time.Duration) error
	GetState(ctx context.Context, sessionID string) ([]byte, error)
	GetSessions(ctx context.Context) ([]string, error)
}

// 具体实现：基于 redis 的 StateCache
type redisState struct {
	rdb *redis.Client
}

func NewRedisState(rdb *redis.Client) StateCache {
	return &redisState{rdb: rdb}
}

func (p *redisState) SetState(ctx context.Context, sessionID string, jsonData []byte, ttl time.Duration) error {
	tx := p.rdb.TxPipeline()
	tx.Set(ctx, stateKey(sessionID), jsonData, ttl)
	tx.SAdd(ctx, sessionsKey(), sessionID)
	_, err := tx.Exec(ctx)
	return err
}

func (p *redisState) GetState(ctx context.Context, sessionID string) ([]byte, error) {
	b, err := p.rdb.Get(ctx, stateKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GetSessions 返回仍有快照的会话，顺手清掉过期的索引
func (p *redisState) GetSessions(ctx context.Context) ([]string, error) {
	ids, err := p.rdb.SMembers(ctx, sessionsKey()).Result()
	if err != nil {
		return nil, err
	}
	alive := make([]string, 0, len(ids))
	for _, id := range ids {
		n, err := p.rdb.Exists(ctx, stateKey(id)).Result()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			p.rdb.SRem(ctx, sessionsKey(), id)
			continue
		}
		alive = append(alive, id)
	}
	return alive, nil
}
