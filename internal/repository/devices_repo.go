package repository

import (
	"context"
	"database/sql"

	"electrohub-protection/internal/domain"
)

// DevicesRepository 设备/配电柜读取接口
// 设备的增删由设备管理子系统负责，本引擎只读；例外：参数更新/autofill 可以回写
// 整定值和上游链接（parent_id）
type DevicesRepository interface {
	// 查询
	GetDevice(ctx context.Context, site, deviceID string) (*domain.Device, error)
	GetSwitchboard(ctx context.Context, site, switchboardID string) (*domain.Switchboard, error)
	ListDevices(ctx context.Context, site string) ([]*domain.Device, error)
	ListPoints(ctx context.Context, site string, filters PointFilters, page, size int) ([]*PointRow, int, error)

	// 故障电流记录（按配电柜）
	GetFaultLevel(ctx context.Context, site, switchboardID string) (*domain.FaultLevel, error)

	// 回写（仅整定值与上游链接）
	UpdateDeviceSettings(ctx context.Context, site, deviceID string, settings domain.ProtectionSettings) error
	UpdateDeviceParent(ctx context.Context, site, deviceID string, parentID sql.NullString) error
}

// PointFilters 点位列表过滤器
type PointFilters struct {
	Query         string // 设备名模糊搜索
	SwitchboardID string
	Building      string
	Floor         string
	Sort          string // name | switchboard | energy | ppe | checked_at
	Dir           string // asc | desc
}

// PointRow 点位列表行：设备 + 所属配电柜 + 当前参数 + 最近一次检查结果
// 参数/检查可能尚不存在（LEFT JOIN）
type PointRow struct {
	Device           domain.Device
	SwitchboardName  string
	BuildingCode     sql.NullString
	Floor            sql.NullString
	Params           *domain.ArcFlashParameters
	Check            *domain.ArcFlashCheck
}

// ToJSON 转换为JSON格式（/points 列表行）
func (r *PointRow) ToJSON() map[string]any {
	m := r.Device.ToJSON()
	m["switchboard_name"] = r.SwitchboardName
	if r.BuildingCode.Valid {
		m["building"] = r.BuildingCode.String
	}
	if r.Floor.Valid {
		m["floor"] = r.Floor.String
	}
	if r.Params != nil {
		m["parameters"] = r.Params.ToJSON()
	}
	if r.Check != nil {
		m["check"] = r.Check.ToJSON()
	}
	return m
}
