package protection

import (
	"math"
)

// 距离扫描范围：100mm 到 1000mm，步长 50mm（19 个点）
const (
	curveStartMM = 100.0
	curveEndMM   = 1000.0
	curveStepMM  = 50.0
)

// CurvePoint 距离-能量曲线上的一个点
type CurvePoint struct {
	DistanceMM        float64 `json:"distance"`
	IncidentEnergyCal float64 `json:"energy"`
}

// GenerateCurve 生成入射能量-距离曲线（可视化用）
// 燃弧电流与距离无关，只算一次；每点能量用与 ComputeArcFlash 相同的公式并保留 0.1 下限
// 序列有限、可重复生成；能量随距离单调不增（触底 0.1 处变平）
func GenerateCurve(boltedFaultKA, arcingTimeS float64, enclosureType string, electrodeGapMM float64) []CurvePoint {
	if arcingTimeS < minArcingTimeS {
		arcingTimeS = minArcingTimeS
	}

	logIa := math.Log10(ArcingCurrentKA(boltedFaultKA))

	points := make([]CurvePoint, 0, int((curveEndMM-curveStartMM)/curveStepMM)+1)
	for d := curveStartMM; d <= curveEndMM; d += curveStepMM {
		points = append(points, CurvePoint{
			DistanceMM:        d,
			IncidentEnergyCal: incidentEnergyAt(logIa, arcingTimeS, d, enclosureType, electrodeGapMM),
		})
	}
	return points
}
