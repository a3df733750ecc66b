package protection

import (
	"math"

	"electrohub-protection/internal/domain"
)

// 经验模型固定常数（简化 IEEE-1584 风格；数值不可调整）
const (
	minArcingTimeS    = 0.01
	minWorkDistanceMM = 100.0
	minIncidentEnergy = 0.1    // cal/cm² 下限
	mmPerInch         = 25.4   // 模型以英寸定义间隙/距离项
	calFactor         = 4.184  // J→cal 换算因子，模型的一部分
	refDistanceMM     = 610.0  // 距离归一化基准
	k1VCB             = -0.097 // VCB 箱体常数
	k1Other           = -0.555 // 其余箱体常数
	hazardThreshold   = 1.2    // 危险区下界（cal/cm²）
)

// ArcFlashResult 弧闪计算结果
type ArcFlashResult struct {
	IncidentEnergyCal float64   // 入射能量（cal/cm²），2位小数
	PPECategory       int       // 0-4
	RiskZone          *RiskZone // E>1.2 时的危险区间，否则 nil
}

// RiskZone 危险能量区间 [1.2, E]
type RiskZone struct {
	FromCal float64 `json:"from"`
	ToCal   float64 `json:"to"`
}

// ArcingCurrentKA 由螺栓短路电流推算燃弧电流（kA）
// log10(Ia) = 0.00402 + 0.983 × log10(Ibf)
func ArcingCurrentKA(boltedFaultKA float64) float64 {
	return math.Pow(10, 0.00402+0.983*math.Log10(boltedFaultKA))
}

// ComputeArcFlash 计算入射能量、PPE等级与危险区
// 输入先做归一化：燃弧时间下限 0.01s，工作距离下限 100mm
func ComputeArcFlash(voltageV, boltedFaultKA, arcingTimeS, workingDistanceMM float64, enclosureType string, electrodeGapMM float64) ArcFlashResult {
	if arcingTimeS < minArcingTimeS {
		arcingTimeS = minArcingTimeS
	}
	if workingDistanceMM < minWorkDistanceMM {
		workingDistanceMM = minWorkDistanceMM
	}

	logIa := math.Log10(ArcingCurrentKA(boltedFaultKA))
	energy := incidentEnergyAt(logIa, arcingTimeS, workingDistanceMM, enclosureType, electrodeGapMM)

	res := ArcFlashResult{
		IncidentEnergyCal: energy,
		PPECategory:       PPECategoryFor(energy),
	}
	if energy > hazardThreshold {
		res.RiskZone = &RiskZone{FromCal: hazardThreshold, ToCal: energy}
	}
	return res
}

// incidentEnergyAt 单点入射能量（cal/cm²，含 0.1 下限与 2 位小数舍入）
// log10(E) = 1.081×log10(Ia) + 0.0011×gapIn + 1.9593×log10(t) + k1 + 1.0
// E = 10^log10(E) × 4.184 × (610/D)²
func incidentEnergyAt(logIa, arcingTimeS, distanceMM float64, enclosureType string, electrodeGapMM float64) float64 {
	k1 := k1Other
	if enclosureType == domain.EnclosureVCB {
		k1 = k1VCB
	}
	gapIn := electrodeGapMM / mmPerInch

	logE := 1.081*logIa + 0.0011*gapIn + 1.9593*math.Log10(arcingTimeS) + k1 + 1.0
	e := math.Pow(10, logE) * calFactor * math.Pow(refDistanceMM/distanceMM, 2)
	if e < minIncidentEnergy {
		e = minIncidentEnergy
	}
	return math.Round(e*100) / 100
}

// PPECategoryFor 入射能量到 PPE 等级（0-4）的单调映射
// 上边界含等于（40/25/8），1.2 为严格大于
func PPECategoryFor(energyCal float64) int {
	switch {
	case energyCal >= 40:
		return 4
	case energyCal >= 25:
		return 3
	case energyCal >= 8:
		return 2
	case energyCal > hazardThreshold:
		return 1
	default:
		return 0
	}
}
