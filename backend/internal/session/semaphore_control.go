package session

import (
	"context"
	"errors"
)

var ErrAcquireTimeout = errors.New("Acquire Reach time limit")

type SemaphoreControl struct {
	ch chan struct{}
}

// NewSemaphoreControl 创建容量为 n 的信号量；n=1 时就是一把带超时的互斥锁
func NewSemaphoreControl(n int) *SemaphoreControl {
	if n <= 0 {
		n = 1
	}
	return &SemaphoreControl{ch: make(chan struct{}, n)}
}

func (s *SemaphoreControl) Acquire(ctx context.Context) error {
	select {
	case s.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ErrAcquireTimeout
	}
}

func (s *SemaphoreControl) Release() error {
	select {
	case <-s.ch:
		return nil
	default:
		return errors.New("Release Failed, semaphore is not acquired")
	}
}
