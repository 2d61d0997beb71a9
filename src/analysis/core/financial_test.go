package core

import (
	"math"
	"testing"

	"oi-signal-engine/src/models"

	"github.com/stretchr/testify/assert"
)

func ptr(v float64) *float64 { return &v }

func TestCalculateChangePercent(t *testing.T) {
	assert.InDelta(t, 24.0, CalculateChangePercent(6200, 5000), 1e-9)
	assert.Equal(t, -50.0, CalculateChangePercent(1000, 2000))

	for _, current := range []int64{0, 1, -5, 1_000_000} {
		assert.Equal(t, 0.0, CalculateChangePercent(current, 0))
	}
}

func TestEstimateImpliedVolatility(t *testing.T) {
	cases := []struct {
		name   string
		price  float64
		strike *float64
		opt    string
		want   float64
	}{
		{"call itm", 105, ptr(100), models.OptionTypeCall, 5.0},
		{"call deep itm capped", 500, ptr(100), models.OptionTypeCall, 100.0},
		{"call otm", 80, ptr(100), models.OptionTypeCall, 10.0},
		{"call otm floor", 99, ptr(100), models.OptionTypeCall, 5.0},
		{"call at the money", 100, ptr(100), models.OptionTypeCall, 5.0},
		{"put itm", 4950, ptr(5000), models.OptionTypePut, 1.0},
		{"put deep itm", 3000, ptr(5000), models.OptionTypePut, 40.0},
		{"put otm", 6000, ptr(5000), models.OptionTypePut, 10.0},
		{"future", 123, nil, models.OptionTypeFuture, 15.0},
		{"nil strike uses price", 250, nil, models.OptionTypeCall, 5.0},
		{"zero strike uses price", 250, ptr(0), models.OptionTypePut, 5.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, EstimateImpliedVolatility(tc.price, tc.strike, tc.opt), 1e-9)
		})
	}
}

func TestEstimateImpliedVolatilityAlwaysClamped(t *testing.T) {
	prices := []float64{0, 0.01, 1, 100, 5000, 1e9, -10, math.NaN(), math.Inf(1)}
	strikes := []*float64{nil, ptr(0), ptr(0.0001), ptr(1), ptr(100), ptr(1e9), ptr(-50)}
	types := []string{models.OptionTypeCall, models.OptionTypePut, models.OptionTypeFuture}

	for _, p := range prices {
		for _, k := range strikes {
			for _, typ := range types {
				iv := EstimateImpliedVolatility(p, k, typ)
				assert.False(t, math.IsNaN(iv), "NaN for price=%v strike=%v %s", p, k, typ)
				assert.GreaterOrEqual(t, iv, MinIV)
				assert.LessOrEqual(t, iv, MaxIV)
			}
		}
	}

	assert.Equal(t, FutureIV, EstimateImpliedVolatility(0, ptr(0), models.OptionTypeCall))
	assert.Equal(t, FutureIV, EstimateImpliedVolatility(0, nil, models.OptionTypePut))
}

func TestClampIV(t *testing.T) {
	assert.Equal(t, 0.0, ClampIV(-3))
	assert.Equal(t, 200.0, ClampIV(250))
	assert.Equal(t, 42.0, ClampIV(42))
	assert.Equal(t, 0.0, ClampIV(math.NaN()))
}

func TestSignalStrengthBoundaries(t *testing.T) {
	th := DefaultThresholds
	cases := []struct {
		name   string
		pct    float64
		iv     float64
		change int64
		want   string
	}{
		{"all strong clauses exactly", 20.0, 15.0, 1000, models.StrengthStrong},
		{"negative move strong", -20.0, 15.0, -1000, models.StrengthStrong},
		{"pct just below strong", 19.999, 15.0, 5000, models.StrengthMedium},
		{"change just below strong", 25.0, 40.0, 999, models.StrengthMedium},
		{"negative change just below", -25.0, 40.0, -999, models.StrengthMedium},
		{"iv just below", 25.0, 14.999, 5000, models.StrengthWeak},
		{"medium exactly", 10.0, 15.0, 10, models.StrengthMedium},
		{"below medium", 9.999, 100.0, 5000, models.StrengthWeak},
		{"zero move", 0, 100.0, 0, models.StrengthWeak},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SignalStrength(tc.pct, tc.iv, tc.change, th))
		})
	}
}

func TestStrongImpliesAllClauses(t *testing.T) {
	th := DefaultThresholds
	for _, pct := range []float64{-30, -20, -19.99, 0, 10, 19.99, 20, 30} {
		for _, iv := range []float64{0, 14.99, 15, 40} {
			for _, change := range []int64{-2000, -1000, -999, 0, 999, 1000, 2000} {
				if SignalStrength(pct, iv, change, th) != models.StrengthStrong {
					continue
				}
				assert.GreaterOrEqual(t, math.Abs(pct), 20.0)
				assert.GreaterOrEqual(t, iv, 15.0)
				assert.GreaterOrEqual(t, abs64(change), int64(1000))
			}
		}
	}
}

func TestSignalType(t *testing.T) {
	assert.Equal(t, models.SignalBullish, SignalType(models.OptionTypeCall, 1))
	assert.Equal(t, models.SignalBearish, SignalType(models.OptionTypeCall, 0))
	assert.Equal(t, models.SignalBearish, SignalType(models.OptionTypeCall, -1))

	assert.Equal(t, models.SignalBearish, SignalType(models.OptionTypePut, 1))
	assert.Equal(t, models.SignalBullish, SignalType(models.OptionTypePut, 0))
	assert.Equal(t, models.SignalBullish, SignalType(models.OptionTypePut, -1))

	assert.Equal(t, models.SignalBullish, SignalType(models.OptionTypeFuture, 500))
	assert.Equal(t, models.SignalBearish, SignalType(models.OptionTypeFuture, -500))
}

func TestStatistics(t *testing.T) {
	assert.Equal(t, 0.0, CalculateMean(nil))
	assert.Equal(t, 20.0, CalculateMean([]float64{10, 20, 30}))
	assert.Equal(t, 0.0, CalculateMax(nil))
	assert.Equal(t, 30.0, CalculateMax([]float64{10, 30, 20}))
	assert.Equal(t, 2, CountAbove([]float64{15, 15.1, 40}, 15))
	assert.Equal(t, 0.0, SafeRatio(500, 0))
	assert.Equal(t, 0.5, SafeRatio(-500, 1000))
}
