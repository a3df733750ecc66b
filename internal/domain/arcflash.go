package domain

import (
	"database/sql"
	"time"
)

// 箱体类型（影响电弧能量集中程度）
const (
	EnclosureVCB  = "VCB"  // 垂直导体、金属箱体（默认）
	EnclosureVCBB = "VCBB" // 垂直导体、绝缘隔板箱体
	EnclosureHCB  = "HCB"  // 水平导体、金属箱体
	EnclosureHOA  = "HOA"  // 水平导体、敞开空气
	EnclosureVOA  = "VOA"  // 垂直导体、敞开空气
)

// IsValidEnclosure 校验箱体类型枚举
func IsValidEnclosure(v string) bool {
	switch v {
	case EnclosureVCB, EnclosureVCBB, EnclosureHCB, EnclosureHOA, EnclosureVOA:
		return true
	}
	return false
}

// 弧闪参数缺省值
const (
	DefaultWorkingDistanceMM = 455.0
	DefaultElectrodeGapMM    = 32.0
	DefaultArcingTimeS       = 0.2 // 上游脱扣时间可算出时会覆盖
)

// ArcFlashParameters 弧闪计算参数（对应 arc_flash_parameters 表）
// 每个 (device, switchboard, site) 最多一条有效记录，仅通过参数更新操作修改
type ArcFlashParameters struct {
	DeviceID      string `db:"device_id"`
	SwitchboardID string `db:"switchboard_id"`
	Site          string `db:"site"`

	WorkingDistanceMM float64         `db:"working_distance_mm"` // 工作距离（mm）
	EnclosureType     string          `db:"enclosure_type"`
	ElectrodeGapMM    float64         `db:"electrode_gap_mm"` // 电极间隙（mm）
	ArcingTimeS       float64         `db:"arcing_time_s"`    // 燃弧时间兜底值（s）
	FaultCurrentKA    sql.NullFloat64 `db:"fault_current_ka"` // 故障电流兜底值（kA）

	UpdatedAt time.Time `db:"updated_at"`
}

// NewDefaultParameters 按缺省值构造弧闪参数
func NewDefaultParameters(site, switchboardID, deviceID string) *ArcFlashParameters {
	return &ArcFlashParameters{
		DeviceID:          deviceID,
		SwitchboardID:     switchboardID,
		Site:              site,
		WorkingDistanceMM: DefaultWorkingDistanceMM,
		EnclosureType:     EnclosureVCB,
		ElectrodeGapMM:    DefaultElectrodeGapMM,
		ArcingTimeS:       DefaultArcingTimeS,
	}
}

// ToJSON 转换为JSON格式
func (p *ArcFlashParameters) ToJSON() map[string]any {
	m := map[string]any{
		"device_id":           p.DeviceID,
		"switchboard_id":      p.SwitchboardID,
		"site":                p.Site,
		"working_distance_mm": p.WorkingDistanceMM,
		"enclosure_type":      p.EnclosureType,
		"electrode_gap_mm":    p.ElectrodeGapMM,
		"arcing_time_s":       p.ArcingTimeS,
	}
	if p.FaultCurrentKA.Valid {
		m["fault_current_ka"] = p.FaultCurrentKA.Float64
	}
	return m
}

// 检查结果状态
const (
	CheckStatusSafe       = "safe"
	CheckStatusAtRisk     = "at-risk"
	CheckStatusIncomplete = "incomplete"
)

// ArcFlashCheck 弧闪检查结果（对应 arc_flash_checks 表）
// 按 (device, switchboard, site) upsert，后写覆盖
// 不变式：status=incomplete 当且仅当电压或故障电流缺失，此时能量=0、PPE=0
type ArcFlashCheck struct {
	DeviceID      string `db:"device_id"`
	SwitchboardID string `db:"switchboard_id"`
	Site          string `db:"site"`

	IncidentEnergyCal float64        `db:"incident_energy_cal"` // 入射能量（cal/cm²）
	PPECategory       int            `db:"ppe_category"`        // 0-4
	Status            string         `db:"status"`              // safe | at-risk | incomplete
	Details           sql.NullString `db:"details"`

	CheckedAt time.Time `db:"checked_at"`
}

// ToJSON 转换为JSON格式
func (c *ArcFlashCheck) ToJSON() map[string]any {
	m := map[string]any{
		"device_id":           c.DeviceID,
		"switchboard_id":      c.SwitchboardID,
		"site":                c.Site,
		"incident_energy_cal": c.IncidentEnergyCal,
		"ppe_category":        c.PPECategory,
		"status":              c.Status,
		"checked_at":          c.CheckedAt,
	}
	if c.Details.Valid {
		m["details"] = c.Details.String
	}
	return m
}
