package domain

import (
	"database/sql"
)

// 整定值缺省（字段缺失时在边界处补齐，不在DB里落默认值）
const (
	DefaultIr  = 1.0  // 长延时脱扣倍数（×额定电流）
	DefaultTr  = 10.0 // 长延时时间（s）
	DefaultIsd = 6.0  // 短延时脱扣倍数
	DefaultTsd = 0.1  // 短延时时间（s）
	DefaultIi  = 10.0 // 瞬时脱扣倍数
)

// ProtectionSettings 保护整定值（时间-电流特性参数）
// 所有字段可选；缺失时使用上面的缺省值
type ProtectionSettings struct {
	Ir  sql.NullFloat64 `db:"settings_ir"`  // 长延时脱扣倍数
	Tr  sql.NullFloat64 `db:"settings_tr"`  // 长延时时间（s）
	Isd sql.NullFloat64 `db:"settings_isd"` // 短延时脱扣倍数
	Tsd sql.NullFloat64 `db:"settings_tsd"` // 短延时时间（s）
	Ii  sql.NullFloat64 `db:"settings_ii"`  // 瞬时脱扣倍数
}

// EffectiveSettings 补齐缺省后的整定值（脱扣时间计算的输入）
type EffectiveSettings struct {
	Ir  float64
	Tr  float64
	Isd float64
	Tsd float64
	Ii  float64
}

// Effective 应用缺省值，返回完整整定值
func (s ProtectionSettings) Effective() EffectiveSettings {
	e := EffectiveSettings{
		Ir:  DefaultIr,
		Tr:  DefaultTr,
		Isd: DefaultIsd,
		Tsd: DefaultTsd,
		Ii:  DefaultIi,
	}
	if s.Ir.Valid {
		e.Ir = s.Ir.Float64
	}
	if s.Tr.Valid {
		e.Tr = s.Tr.Float64
	}
	if s.Isd.Valid {
		e.Isd = s.Isd.Float64
	}
	if s.Tsd.Valid {
		e.Tsd = s.Tsd.Float64
	}
	if s.Ii.Valid {
		e.Ii = s.Ii.Float64
	}
	return e
}

// ToJSON 转换为JSON格式（仅输出存在的字段）
func (s ProtectionSettings) ToJSON() map[string]any {
	m := map[string]any{}
	if s.Ir.Valid {
		m["ir"] = s.Ir.Float64
	}
	if s.Tr.Valid {
		m["tr"] = s.Tr.Float64
	}
	if s.Isd.Valid {
		m["isd"] = s.Isd.Float64
	}
	if s.Tsd.Valid {
		m["tsd"] = s.Tsd.Float64
	}
	if s.Ii.Valid {
		m["ii"] = s.Ii.Float64
	}
	return m
}
