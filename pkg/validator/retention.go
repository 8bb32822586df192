package validator

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrNegativeRetention 表示保留时长为负，缓存与配置校验共用该错误。
var ErrNegativeRetention = errors.New("retention must not be negative")

// ParseRetention 解析保留时长：纯整数按毫秒处理，否则按 Go duration 解析（如 "1.5s"）。
func ParseRetention(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("retention is empty")
	}
	var d time.Duration
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		d = time.Duration(ms) * time.Millisecond
	} else {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return 0, fmt.Errorf("invalid retention %q: %w", raw, err)
		}
		d = parsed
	}
	if err := ValidateRetention(d); err != nil {
		return 0, err
	}
	return d, nil
}

// ValidateRetention 确保保留时长非负。
func ValidateRetention(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("%w: %s", ErrNegativeRetention, d)
	}
	return nil
}
