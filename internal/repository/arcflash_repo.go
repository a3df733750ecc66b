package repository

import (
	"context"

	"electrohub-protection/internal/domain"
)

// ArcFlashRepository 弧闪参数与检查结果的持久化接口
// 两张表都以 (device_id, switchboard_id, site) 为键，upsert 后写覆盖
type ArcFlashRepository interface {
	// 参数（不存在时返回 sql.ErrNoRows，由调用方用缺省值兜底）
	GetParameters(ctx context.Context, site, switchboardID, deviceID string) (*domain.ArcFlashParameters, error)
	UpsertParameters(ctx context.Context, params *domain.ArcFlashParameters) error

	// 检查结果
	GetCheck(ctx context.Context, site, switchboardID, deviceID string) (*domain.ArcFlashCheck, error)
	UpsertCheck(ctx context.Context, check *domain.ArcFlashCheck) error

	// 参数/层级变更后，把受影响设备的检查结果标记为过期（incomplete）
	MarkChecksIncomplete(ctx context.Context, site string, deviceIDs []string) error

	// 清空租户数据（/reset，幂等）
	DeleteAllForSite(ctx context.Context, site string) error
}
