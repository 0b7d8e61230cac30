package strength

import (
	"fmt"

	"github.com/guregu/null/v6"

	"truthline/pkg/model"
)

// Signal is a coarse reading of one benchmark result
type Signal string

const (
	SignalStrong  Signal = "strong"
	SignalBullish Signal = "bullish"
	SignalWeak    Signal = "weak"
	SignalBearish Signal = "bearish"
	SignalNeutral Signal = "neutral"
)

const signalThreshold = 0.05

// Classify reads a benchmark result. Errors and a missing return are neutral.
func Classify(r model.BenchmarkResult) Signal {
	if r.Error.Valid || !r.RSReturn.Valid {
		return SignalNeutral
	}

	ret := r.RSReturn.Float64
	above := r.RSVsMA.Valid && r.RSVsMA.String == RSAbove
	below := r.RSVsMA.Valid && r.RSVsMA.String == RSBelow

	switch {
	case ret > signalThreshold && above:
		return SignalStrong
	case ret > 0 || above:
		return SignalBullish
	case ret < -signalThreshold && below:
		return SignalWeak
	case ret < 0:
		return SignalBearish
	default:
		return SignalNeutral
	}
}

// FormatReturn renders a return as a signed percentage, or an em dash when null
func FormatReturn(v null.Float) string {
	if !v.Valid {
		return "—"
	}
	if v.Float64 >= 0 {
		return fmt.Sprintf("+%.1f%%", v.Float64*100)
	}
	return fmt.Sprintf("%.1f%%", v.Float64*100)
}

// FormatLevel renders a ratio with three decimals, or an em dash when null
func FormatLevel(v null.Float) string {
	if !v.Valid {
		return "—"
	}
	return fmt.Sprintf("%.3f", v.Float64)
}
