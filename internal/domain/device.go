package domain

import (
	"database/sql"
)

// Device 保护设备领域模型（对应 devices 表）
// 一个设备隶属于某个配电柜（switchboard）和站点（site，即租户）
// parent_id 指向上游保护设备（选择性链），必须构成森林（无环、无自引用）
type Device struct {
	// 主键和租户
	DeviceID      string `db:"device_id"`
	SwitchboardID string `db:"switchboard_id"` // NOT NULL
	Site          string `db:"site"`           // NOT NULL

	// 标识
	Name string `db:"name"` // NOT NULL

	// 电气额定值
	RatedCurrentA float64         `db:"rated_current_a"` // 额定电流（A）
	BreakingKA    sql.NullFloat64 `db:"breaking_ka"`     // 分断能力（kA），nullable
	VoltageV      sql.NullFloat64 `db:"voltage_v"`       // 额定电压（V），nullable

	// 层级关系
	IsMainIncoming bool           `db:"is_main_incoming"` // 进线主开关（层级顶端，无上游）
	ParentID       sql.NullString `db:"parent_id"`        // 上游设备，nullable

	// 保护整定值（可能部分缺失）
	Settings ProtectionSettings
}

// HasSettings 是否存在任一整定值字段
func (d *Device) HasSettings() bool {
	s := d.Settings
	return s.Ir.Valid || s.Tr.Valid || s.Isd.Valid || s.Tsd.Valid || s.Ii.Valid
}

// ToJSON 转换为JSON格式（用于HTTP响应）
func (d *Device) ToJSON() map[string]any {
	m := map[string]any{
		"device_id":        d.DeviceID,
		"switchboard_id":   d.SwitchboardID,
		"site":             d.Site,
		"name":             d.Name,
		"rated_current_a":  d.RatedCurrentA,
		"is_main_incoming": d.IsMainIncoming,
	}
	if d.BreakingKA.Valid {
		m["breaking_ka"] = d.BreakingKA.Float64
	}
	if d.VoltageV.Valid {
		m["voltage_v"] = d.VoltageV.Float64
	}
	if d.ParentID.Valid {
		m["parent_id"] = d.ParentID.String
	} else {
		m["parent_id"] = nil
	}
	if d.HasSettings() {
		m["settings"] = d.Settings.ToJSON()
	}
	return m
}

// Switchboard 配电柜领域模型（对应 switchboards 表）
type Switchboard struct {
	SwitchboardID string          `db:"switchboard_id"`
	Site          string          `db:"site"`
	Name          string          `db:"name"`
	BuildingCode  sql.NullString  `db:"building_code"`
	Floor         sql.NullString  `db:"floor"`
	VoltageV      sql.NullFloat64 `db:"voltage_v"` // 母线电压（V），nullable
}

// FaultLevel 短路电流记录（对应 fault_levels 表）
// 按配电柜存储，是故障电流的最高优先级来源
type FaultLevel struct {
	SwitchboardID string  `db:"switchboard_id"`
	Site          string  `db:"site"`
	FaultKA       float64 `db:"fault_ka"` // 螺栓短路电流（kA）
}
