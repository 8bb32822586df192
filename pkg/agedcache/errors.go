package agedcache

import "github.com/aegis-sign/agedcache/pkg/validator"

var (
	// ErrNegativeRetention 表示 Put 收到负的保留时长，与 validator 共用同一错误值。
	ErrNegativeRetention = validator.ErrNegativeRetention
)
