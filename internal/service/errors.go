package service

import "errors"

// 服务层哨兵错误（handler 用 errors.Is 映射到 HTTP 状态码）
var (
	// ErrValidation 必填标识缺失或非法（site/device/switchboard、非法枚举等）
	ErrValidation = errors.New("validation failed")

	// ErrPointNotFound 引用的点位不存在
	ErrPointNotFound = errors.New("point not found")

	// ErrInvalidParent parent_id 自引用、跨租户或指向不存在的设备
	ErrInvalidParent = errors.New("invalid parent reference")

	// ErrParentCycle parent 更新会在层级中引入环
	ErrParentCycle = errors.New("parent link would create a cycle")

	// ErrAssistUnavailable AI 辅助服务不可用（核心计算不受影响）
	ErrAssistUnavailable = errors.New("assist service unavailable")
)
