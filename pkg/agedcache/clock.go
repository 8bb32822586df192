package agedcache

import (
	"sync"
	"time"
)

// Clock 用于可测试的时间来源。
type Clock interface {
	Now() time.Time
}

// realClock 使用 time.Now。
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// NewRealClock 返回默认时钟实现。
func NewRealClock() Clock { return realClock{} }

// ManualClock 只在 Set/Advance 时前进，用于测试与场景回放。
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock 创建起始于 start 的手动时钟。
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set 将时钟拨到 t，允许回拨。
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Advance 将时钟前进 d。
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func nowMillis(c Clock) int64 {
	return c.Now().UnixMilli()
}
