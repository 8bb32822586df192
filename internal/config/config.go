package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/aegis-sign/agedcache/pkg/apierrors"
	"github.com/aegis-sign/agedcache/pkg/validator"
)

// Config 控制 agedcache 命令行的全局行为。
type Config struct {
	LogLevel     slog.Level
	ScenarioPath string
	CacheName    string

	// DefaultRetention 用于未显式给出 retention 的 put 步骤。
	DefaultRetention time.Duration
}

// DefaultConfig 返回默认配置。
func DefaultConfig() Config {
	return Config{
		LogLevel:         slog.LevelInfo,
		CacheName:        "scenario",
		DefaultRetention: time.Minute,
	}
}

// LoadConfigFromEnv 解析环境变量，非法值回退为默认值。
func LoadConfigFromEnv() Config {
	cfg := DefaultConfig()
	if level, ok := readLevel("AGEDCACHE_LOG_LEVEL"); ok {
		cfg.LogLevel = level
	}
	if path := strings.TrimSpace(os.Getenv("AGEDCACHE_SCENARIO")); path != "" {
		cfg.ScenarioPath = path
	}
	if name := strings.TrimSpace(os.Getenv("AGEDCACHE_NAME")); name != "" {
		cfg.CacheName = name
	}
	if d, ok := readRetention("AGEDCACHE_DEFAULT_RETENTION"); ok {
		cfg.DefaultRetention = d
	}
	return cfg
}

// Validate 检查配置是否可用。
func (c Config) Validate() error {
	if strings.TrimSpace(c.CacheName) == "" {
		return apierrors.New(apierrors.CodeInvalidConfig, "cache name is required")
	}
	if err := validator.ValidateRetention(c.DefaultRetention); err != nil {
		return apierrors.Wrap(apierrors.CodeInvalidConfig, "invalid default retention", err)
	}
	return nil
}

func readLevel(key string) (slog.Level, bool) {
	value := os.Getenv(key)
	if value == "" {
		return 0, false
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return 0, false
	}
	return level, true
}

func readRetention(key string) (time.Duration, bool) {
	value := os.Getenv(key)
	if value == "" {
		return 0, false
	}
	d, err := validator.ParseRetention(value)
	if err != nil {
		return 0, false
	}
	return d, true
}
