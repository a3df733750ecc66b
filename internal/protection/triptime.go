// Package protection 纯计算：脱扣时间、弧闪能量、距离-能量曲线
// 本包不做任何 I/O，不依赖 repository/service，输入相同输出必然相同
package protection

import (
	"math"

	"electrohub-protection/internal/domain"
)

// InstantaneousClearTimeS 瞬时段固定分断时间（s）
const InstantaneousClearTimeS = 0.01

// pickupEpsilon 反时限分母保护：ratio² 与 1 的差不超过该值视为不脱扣
// （故障电流刚好等于或无限接近整定点时，反时限公式分母趋零，
// 算出的时间大到没有物理意义，不能作为燃弧时间向下游传播）
const pickupEpsilon = 1e-6

// TripTime 计算上游保护设备对给定故障电流的分断时间（s）
// 返回 math.Inf(1) 表示该故障水平下设备不脱扣
// 分段策略（base = ir × 额定电流）：
//   - faultA > ii×base  → 瞬时段，0.01s
//   - faultA > isd×base → 短延时段，tsd（定时限）
//   - faultA > base     → 长延时段，tr / ((faultA/base)² − 1)（反时限热曲线）
//   - 其余              → 不脱扣
func TripTime(settings domain.ProtectionSettings, ratedCurrentA, faultCurrentA float64) float64 {
	s := settings.Effective()

	base := s.Ir * ratedCurrentA
	if base <= 0 || faultCurrentA <= 0 {
		return math.Inf(1)
	}

	switch {
	case faultCurrentA > s.Ii*base:
		return InstantaneousClearTimeS
	case faultCurrentA > s.Isd*base:
		return s.Tsd
	case faultCurrentA > base:
		ratio := faultCurrentA / base
		denom := ratio*ratio - 1
		if denom <= pickupEpsilon {
			return math.Inf(1)
		}
		return s.Tr / denom
	default:
		return math.Inf(1)
	}
}

// NeverTrips 是否为“不脱扣”结果
func NeverTrips(seconds float64) bool {
	return math.IsInf(seconds, 1)
}
