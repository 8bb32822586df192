package agedcache

// entry 是一条缓存绑定，expiresAt 为毫秒级绝对时间，创建后不再修改。
type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt int64
}

func newEntry[K comparable, V any](key K, value V, now, retentionMillis int64) entry[K, V] {
	return entry[K, V]{key: key, value: value, expiresAt: now + retentionMillis}
}

// expired 采用严格比较：now 等于 expiresAt 时仍然有效。
func (e entry[K, V]) expired(now int64) bool {
	return now > e.expiresAt
}
