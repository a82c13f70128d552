package mixer

import (
	"fmt"
	"strconv"
	"strings"
)

// Fader curve breakpoints.
//
// The console maps decibels to linear fader position through a five-segment
// piecewise-linear curve. Both tables must stay in lockstep: segment i runs
// from (faderCurveDB[i], faderCurveLinear[i]) to (faderCurveDB[i+1],
// faderCurveLinear[i+1]).
var (
	faderCurveDB     = [...]float64{-90, -60, -30, -10, 0, 10}
	faderCurveLinear = [...]float64{0, 0.025, 0.137, 0.397, 0.75, 1.0}
)

// Fader curve limits.
const (
	// FaderFloorDB is the decibel value representing -infinity (fader fully down).
	FaderFloorDB = -90.0

	// FaderCeilingDB is the maximum boost the fader can apply.
	FaderCeilingDB = 10.0

	// UnityGainFader is the linear fader position for 0 dB.
	UnityGainFader = 0.75
)

// DBToFader converts a decibel level to a linear fader position (0.0-1.0).
//
// Values at or below -90 dB clamp to 0.0 (fader fully down, -infinity);
// values at or above +10 dB clamp to 1.0. Unity gain (0 dB) maps to 0.75.
//
// Parameters:
//   - db: Level in decibels
//
// Returns:
//   - float64: Linear fader position in [0.0, 1.0]
func DBToFader(db float64) float64 {
	if db <= FaderFloorDB {
		return 0.0
	}
	if db >= FaderCeilingDB {
		return 1.0
	}

	for i := 0; i < len(faderCurveDB)-1; i++ {
		lo, hi := faderCurveDB[i], faderCurveDB[i+1]
		if db <= hi {
			ratio := (db - lo) / (hi - lo)
			return faderCurveLinear[i] + ratio*(faderCurveLinear[i+1]-faderCurveLinear[i])
		}
	}
	return 1.0
}

// FaderToDB converts a linear fader position (0.0-1.0) to decibels.
//
// It is the exact algebraic inverse of DBToFader within each curve segment.
// Positions at or below 0.0 return -90 dB; positions at or above 1.0 return
// +10 dB.
//
// Parameters:
//   - fader: Linear fader position
//
// Returns:
//   - float64: Level in decibels in [-90, +10]
func FaderToDB(fader float64) float64 {
	if fader <= 0.0 {
		return FaderFloorDB
	}
	if fader >= 1.0 {
		return FaderCeilingDB
	}

	for i := 0; i < len(faderCurveLinear)-1; i++ {
		lo, hi := faderCurveLinear[i], faderCurveLinear[i+1]
		if fader <= hi {
			ratio := (fader - lo) / (hi - lo)
			return faderCurveDB[i] + ratio*(faderCurveDB[i+1]-faderCurveDB[i])
		}
	}
	return FaderCeilingDB
}

// FormatDB renders a decibel level for display. Levels at the curve floor
// render as "-oo" following console convention.
func FormatDB(db float64) string {
	if db <= FaderFloorDB {
		return "-oo"
	}
	return fmt.Sprintf("%+.1f", db)
}

// Pan conversion constants.
const (
	panPercentMin = -100.0
	panPercentMax = 100.0
	panCenter     = 0.5

	// panPercentDivisor converts an L/R amount (0-100) to a pan offset.
	panPercentDivisor = 200.0
)

// PercentToPan converts a pan percentage (-100 hard left, 0 center,
// +100 hard right) to a linear pan value (0.0-1.0). Input is clamped to
// [-100, +100].
func PercentToPan(percent float64) float64 {
	if percent < panPercentMin {
		percent = panPercentMin
	}
	if percent > panPercentMax {
		percent = panPercentMax
	}
	return (percent + panPercentMax) / panPercentDivisor
}

// PanToPercent converts a linear pan value (0.0-1.0) back to a percentage.
// It is the exact inverse of PercentToPan over the clamped domain.
func PanToPercent(pan float64) float64 {
	if pan < 0 {
		pan = 0
	}
	if pan > 1 {
		pan = 1
	}
	return pan*panPercentDivisor - panPercentMax
}

// LRToPan parses letter pan notation into a linear pan value.
//
// Accepted forms (case-insensitive): "C" or "CENTER" for center, or
// "L<amount>"/"R<amount>" with amount 0-100 (e.g., "L50" is half left,
// "R100" is hard right).
//
// Parameters:
//   - notation: Pan notation string
//
// Returns:
//   - float64: Linear pan value in [0.0, 1.0]
//   - bool: false when the notation is unparseable or out of range
func LRToPan(notation string) (float64, bool) {
	s := strings.ToUpper(strings.TrimSpace(notation))
	if s == "C" || s == "CENTER" {
		return panCenter, true
	}
	if len(s) < 2 {
		return 0, false
	}

	side := s[0]
	if side != 'L' && side != 'R' {
		return 0, false
	}

	amount, err := strconv.Atoi(s[1:])
	if err != nil || amount < 0 || amount > 100 {
		return 0, false
	}

	offset := float64(amount) / panPercentDivisor
	if side == 'L' {
		return panCenter - offset, true
	}
	return panCenter + offset, true
}

// ParsePan interprets a loosely-typed pan value.
//
// Numbers in [-100, +100] are treated as percentages. Strings are tried
// first as letter notation (LRToPan), then as a numeric percentage.
// Everything else is rejected.
//
// Returns the linear pan value and false when the input is invalid.
func ParsePan(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return parsePanNumber(v)
	case float32:
		return parsePanNumber(float64(v))
	case int:
		return parsePanNumber(float64(v))
	case int64:
		return parsePanNumber(float64(v))
	case string:
		if pan, ok := LRToPan(v); ok {
			return pan, true
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return parsePanNumber(n)
	default:
		return 0, false
	}
}

// parsePanNumber applies the numeric interpretation rule for ParsePan.
func parsePanNumber(n float64) (float64, bool) {
	if n >= panPercentMin && n <= panPercentMax {
		return PercentToPan(n), true
	}
	return 0, false
}

// colorBaseNames lists the eight base hues in wire-code order; codes 8-15
// are the same hues inverted.
var colorBaseNames = [...]string{
	"off", "red", "green", "yellow", "blue", "magenta", "cyan", "white",
}

// Color code range.
const (
	colorCodeMax = 15

	// colorInvertedOffset separates a base hue from its inverted variant.
	colorInvertedOffset = 8
)

// ColorValue resolves a channel color name to its wire code (0-15).
//
// Lookup is case-insensitive; "-", "_", and spaces are ignored, so
// "red_inverted", "Red-Inverted", and "red inverted" are equivalent.
// Numeric strings "0" through "15" pass through unchanged.
//
// Returns the code and false when the name is unknown.
func ColorValue(name string) (int, bool) {
	s := strings.TrimSpace(name)
	if s == "" {
		return 0, false
	}

	if code, err := strconv.Atoi(s); err == nil {
		if code < 0 || code > colorCodeMax {
			return 0, false
		}
		return code, true
	}

	normalized := normalizeColorName(s)
	for i, base := range colorBaseNames {
		if normalized == base {
			return i, true
		}
		if normalized == base+"inverted" {
			return i + colorInvertedOffset, true
		}
	}
	return 0, false
}

// ColorName returns the canonical name for a color code (0-15).
// Inverted variants (8-15) use the "<hue>_inverted" form.
func ColorName(code int) (string, bool) {
	if code < 0 || code > colorCodeMax {
		return "", false
	}
	if code < colorInvertedOffset {
		return colorBaseNames[code], true
	}
	return colorBaseNames[code-colorInvertedOffset] + "_inverted", true
}

// normalizeColorName lowercases a color name and strips separators.
func normalizeColorName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch r {
		case '-', '_', ' ':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
