// Package risk owns position sizing and the account safety monitor.
package risk

import (
	"math"

	"github.com/rs/zerolog"
)

// StopLevels carries the volatility-trailed stop, target and the
// resulting reward/risk ratio for an entry.
type StopLevels struct {
	Stop   float64 `json:"stop"`
	Target float64 `json:"target"`
	RR     float64 `json:"rr"`
}

// Sizer computes volatility-scaled position sizes and stop levels.
type Sizer struct {
	atrPeriod int
	volMult   float64
	logger    zerolog.Logger
}

// NewSizer creates a sizer. atrPeriod bounds the volatility lookback;
// volMult scales the stop distance.
func NewSizer(atrPeriod int, volMult float64) *Sizer {
	if atrPeriod < 2 {
		atrPeriod = 14
	}
	if volMult <= 0 {
		volMult = 3.0
	}
	return &Sizer{
		atrPeriod: atrPeriod,
		volMult:   volMult,
		logger:    zerolog.Nop(),
	}
}

// WithLogger sets the sizer's logger.
func (s *Sizer) WithLogger(logger zerolog.Logger) *Sizer {
	s.logger = logger
	return s
}

// Volatility is the population standard deviation of first differences
// over the last atrPeriod prices. Under two prices reads 0.
func (s *Sizer) Volatility(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}

	window := prices
	if len(window) > s.atrPeriod {
		window = window[len(window)-s.atrPeriod:]
	}
	if len(window) < 2 {
		return 0
	}

	diffs := make([]float64, 0, len(window)-1)
	for i := 1; i < len(window); i++ {
		diffs = append(diffs, window[i]-window[i-1])
	}

	var mean float64
	for _, d := range diffs {
		mean += d
	}
	mean /= float64(len(diffs))

	var variance float64
	for _, d := range diffs {
		variance += (d - mean) * (d - mean)
	}
	variance /= float64(len(diffs))

	return math.Sqrt(variance)
}

// PositionSize converts account equity into a unit quantity:
// equity * riskPerTrade worth of exposure at the current price,
// scaled up by confidence (floored at 0.1) and down by volatility
// (a zero-volatility read divides by 1). Rounded to 6 decimals.
// Zero or unknown equity sizes to 0.
func (s *Sizer) PositionSize(equity, riskPerTrade, price, confidence float64, prices []float64) float64 {
	if equity <= 0 || riskPerTrade <= 0 || price <= 0 {
		return 0
	}

	base := round6(equity * riskPerTrade / price)

	vol := s.Volatility(prices)
	if vol == 0 {
		vol = 1.0
	}

	size := base * math.Max(confidence, 0.1) / vol

	s.logger.Debug().
		Float64("equity", equity).
		Float64("price", price).
		Float64("confidence", confidence).
		Float64("volatility", vol).
		Float64("size", size).
		Msg("Sized position")

	return round6(size)
}

// StopLevels derives a volatility-trailed stop and target for an
// entry. Buys trail the stop below and place the target minRR trails
// above; sells mirror, with the target floored at zero. RR divides by
// at least 1e-6 so a flat market cannot blow it up.
func (s *Sizer) StopLevels(entry float64, side string, prices []float64, minRR float64) StopLevels {
	trail := s.Volatility(prices) * s.volMult

	var stop, target float64
	if side == "buy" {
		stop = math.Max(entry-trail, 0)
		target = entry + trail*minRR
	} else {
		stop = entry + trail
		target = math.Max(entry-trail*minRR, 0)
	}

	rr := math.Abs(target-entry) / math.Max(math.Abs(entry-stop), 1e-6)

	return StopLevels{
		Stop:   round4(stop),
		Target: round4(target),
		RR:     rr,
	}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
