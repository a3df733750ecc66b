package protection

import (
	"database/sql"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"electrohub-protection/internal/domain"
)

func nf(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}

func TestTripTime_PiecewiseBoundaries(t *testing.T) {
	// ir=1, isd=6, ii=10, tr=10, tsd=0.1，额定 100A → base=100A
	settings := domain.ProtectionSettings{
		Ir:  nf(1),
		Tr:  nf(10),
		Isd: nf(6),
		Tsd: nf(0.1),
		Ii:  nf(10),
	}

	tests := []struct {
		name   string
		faultA float64
		want   float64
	}{
		{"瞬时段", 1001, 0.01},
		{"短延时段", 601, 0.1},
		{"长延时反时限", 150, 10.0 / ((150.0/100.0)*(150.0/100.0) - 1)}, // = 8.0s
		{"等于整定点不脱扣", 100, math.Inf(1)},
		{"低于整定点不脱扣", 50, math.Inf(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TripTime(settings, 100, tt.faultA)
			if math.IsInf(tt.want, 1) {
				assert.True(t, NeverTrips(got))
			} else {
				assert.InDelta(t, tt.want, got, 1e-12)
			}
		})
	}
}

func TestTripTime_NearPickupGuard(t *testing.T) {
	// 故障电流无限接近整定点时分母趋零，必须返回不脱扣而不是爆炸值
	got := TripTime(domain.ProtectionSettings{}, 100, 100.0000001)
	assert.True(t, NeverTrips(got))

	// ratio²−1 刚落在保护带内（≈2e-7）同样视为不脱扣
	got = TripTime(domain.ProtectionSettings{}, 100, 100.00001)
	assert.True(t, NeverTrips(got))

	// 明确越过整定点的故障仍按反时限曲线出有限值
	got = TripTime(domain.ProtectionSettings{}, 100, 100.2)
	assert.False(t, NeverTrips(got))
	assert.InDelta(t, 10/(1.002*1.002-1), got, 1e-9)
}

func TestTripTime_DefaultsApplied(t *testing.T) {
	// 整定值全缺失 → ir=1, tr=10, isd=6, tsd=0.1, ii=10
	empty := domain.ProtectionSettings{}

	assert.Equal(t, 0.01, TripTime(empty, 100, 1001)) // > ii×base
	assert.Equal(t, 0.1, TripTime(empty, 100, 601))   // > isd×base
	assert.InDelta(t, 8.0, TripTime(empty, 100, 150), 1e-12)
}

func TestTripTime_CustomPickup(t *testing.T) {
	// ir=0.8 → base=80A：100A 落入长延时段
	settings := domain.ProtectionSettings{Ir: nf(0.8), Tr: nf(5)}
	got := TripTime(settings, 100, 100)
	require.False(t, NeverTrips(got))
	ratio := 100.0 / 80.0
	assert.InDelta(t, 5.0/(ratio*ratio-1), got, 1e-12)
}

func TestTripTime_InvalidInputsNeverTrip(t *testing.T) {
	assert.True(t, NeverTrips(TripTime(domain.ProtectionSettings{}, 0, 500)))
	assert.True(t, NeverTrips(TripTime(domain.ProtectionSettings{}, 100, 0)))
}

func TestTripTime_Deterministic(t *testing.T) {
	settings := domain.ProtectionSettings{Ir: nf(1), Tr: nf(10)}
	first := TripTime(settings, 250, 700)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, TripTime(settings, 250, 700))
	}
}
