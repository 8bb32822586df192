package agedcache

import (
	"log/slog"
	"time"

	"github.com/aegis-sign/agedcache/pkg/apierrors"
	"github.com/aegis-sign/agedcache/pkg/validator"
)

const defaultName = "default"

// Config 用于初始化 Cache。
type Config struct {
	// Name 作为指标的 cache 标签。
	Name    string
	Clock   Clock
	Metrics *Metrics
	Logger  *slog.Logger
}

// Cache 是按插入顺序保存条目的限时缓存，每个条目在 Put 时确定过期时间。
//
// 过期条目在每次操作开始时惰性清理，没有后台协程。Cache 不做内部加锁，
// 跨 goroutine 使用时由调用方串行化访问。
type Cache[K comparable, V any] struct {
	name    string
	clock   Clock
	metrics *Metrics
	logger  *slog.Logger

	entries []entry[K, V]
}

// New 根据配置创建 Cache。
func New[K comparable, V any](cfg Config) *Cache[K, V] {
	if cfg.Name == "" {
		cfg.Name = defaultName
	}
	if cfg.Clock == nil {
		cfg.Clock = NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Cache[K, V]{
		name:    cfg.Name,
		clock:   cfg.Clock,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
	}
}

// Put 写入或替换 key 的绑定，过期时间为当前时间加 retention（按毫秒截断）。
// 同一 key 的旧条目无论是否过期都会被丢弃。retention 为负时返回
// INVALID_ARGUMENT，缓存保持不变。
func (c *Cache[K, V]) Put(key K, value V, retention time.Duration) error {
	if err := validator.ValidateRetention(retention); err != nil {
		c.metrics.incRejected(c.name)
		c.logger.Warn("aged cache rejected put",
			slog.String("cache", c.name),
			slog.Any("key", key),
			slog.Duration("retention", retention))
		return apierrors.Wrap(apierrors.CodeInvalidArgument, "put rejected", err)
	}
	now := nowMillis(c.clock)
	c.purgeExpired(now)
	if removed := c.removeKey(key); removed > 0 {
		c.metrics.incReplacement(c.name)
		c.logger.Debug("aged cache replaced entry",
			slog.String("cache", c.name),
			slog.Any("key", key))
	}
	c.entries = append(c.entries, newEntry(key, value, now, retention.Milliseconds()))
	c.metrics.incPut(c.name)
	c.metrics.setEntries(c.name, len(c.entries))
	return nil
}

// Get 返回 key 当前有效的值，不存在或已过期时 ok 为 false。
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.purgeExpired(nowMillis(c.clock))
	for _, e := range c.entries {
		if e.key == key {
			c.metrics.incHit(c.name)
			return e.value, true
		}
	}
	c.metrics.incMiss(c.name)
	var zero V
	return zero, false
}

// Remove 删除 key 的全部条目，不论是否已过期；key 不存在时为空操作。
func (c *Cache[K, V]) Remove(key K) {
	removed := c.removeKey(key)
	if removed == 0 {
		return
	}
	c.metrics.addRemovals(c.name, removed)
	c.metrics.setEntries(c.name, len(c.entries))
}

// Size 清理过期条目后返回剩余条目数。
func (c *Cache[K, V]) Size() int {
	c.purgeExpired(nowMillis(c.clock))
	return len(c.entries)
}

// IsEmpty 清理过期条目后判断缓存是否为空。
func (c *Cache[K, V]) IsEmpty() bool {
	c.purgeExpired(nowMillis(c.clock))
	return len(c.entries) == 0
}

// purgeExpired 全量扫描并原地压缩，不同条目的保留时长不同，
// 所以过期条目不一定位于队首。
func (c *Cache[K, V]) purgeExpired(now int64) int {
	kept := c.entries[:0]
	for _, e := range c.entries {
		if !e.expired(now) {
			kept = append(kept, e)
		}
	}
	purged := len(c.entries) - len(kept)
	if purged == 0 {
		return 0
	}
	clearTail(c.entries, len(kept))
	c.entries = kept
	c.metrics.addExpirations(c.name, purged)
	c.metrics.setEntries(c.name, len(c.entries))
	c.logger.Debug("aged cache purged expired entries",
		slog.String("cache", c.name),
		slog.Int("purged", purged),
		slog.Int("remaining", len(c.entries)))
	return purged
}

func (c *Cache[K, V]) removeKey(key K) int {
	kept := c.entries[:0]
	for _, e := range c.entries {
		if e.key != key {
			kept = append(kept, e)
		}
	}
	removed := len(c.entries) - len(kept)
	if removed > 0 {
		clearTail(c.entries, len(kept))
		c.entries = kept
	}
	return removed
}

// clearTail 清零被压缩掉的尾部，避免底层数组继续引用旧值。
func clearTail[K comparable, V any](entries []entry[K, V], from int) {
	var zero entry[K, V]
	for i := from; i < len(entries); i++ {
		entries[i] = zero
	}
}
