package layout

import (
	"math"
	"strconv"
)

// ChartDimensions applies width/height clamp rules used for single charts.
// Zero or negative inputs select the default 1000x600 figure.
func ChartDimensions(rawW, rawH int) (int, int) {
	w := rawW
	if w <= 0 {
		w = 1000
	}
	if w < 400 {
		w = 400
	}
	h := rawH
	if h <= 0 {
		h = int(float32(w) * 0.6)
	}
	if h < 280 {
		h = 280
	}
	if h > 1200 {
		h = 1200
	}
	return w, h
}

// PanelDimensions derives the size of one grid panel from the full grid size.
// Rules: an even split of the grid, but never smaller than 160x140 so value labels stay legible.
func PanelDimensions(gridW, gridH, rows, cols int) (int, int) {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	w := gridW / cols
	h := gridH / rows
	if w < 160 {
		w = 160
	}
	if h < 140 {
		h = 140
	}
	return w, h
}

// BottomPadding estimates the pixels needed below the x axis for category labels
// of at most maxLines lines and maxChars characters, optionally rotated.
func BottomPadding(maxLines, maxChars int, fontSize, rotationDeg float64) int {
	if maxLines < 1 {
		maxLines = 1
	}
	lineH := fontSize * 1.4
	textH := float64(maxLines) * lineH
	if rotationDeg == 0 {
		return int(math.Ceil(textH)) + 24
	}
	// rotated block: projection of its width plus its height
	textW := float64(maxChars) * fontSize * 0.6
	rad := math.Abs(rotationDeg) * math.Pi / 180
	return int(math.Ceil(textW*math.Sin(rad)+textH*math.Cos(rad))) + 24
}

// pow10Floor returns 10^floor(log10(x)) safeguarding tiny values.
func pow10Floor(x float64) float64 {
	if x <= 0 {
		return 1
	}
	return math.Pow(10, math.Floor(math.Log10(x)))
}

// round6 rounds to 6 decimal places to stabilize test comparisons / labels prep.
func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }

// tickStep picks the 1, 2, 2.5 or 5 multiple of a power of ten that splits
// [0, top] into the tick count closest to n.
func tickStep(top float64, n int) float64 {
	mag := pow10Floor(top / float64(n-1))
	best, bestDiff := mag, math.MaxFloat64
	for _, c := range []float64{1, 2, 2.5, 5, 10} {
		step := c * mag
		count := math.Floor(top/step+1e-9) + 1
		if d := math.Abs(count - float64(n)); d < bestDiff {
			best, bestDiff = step, d
		}
	}
	return best
}

// ZeroAnchoredTicks returns about n ticks from 0 up to top. The last value is
// always top itself, so the tick span equals [0, top] even when top is off the step grid.
func ZeroAnchoredTicks(top float64, n int) []float64 {
	if top <= 0 || math.IsNaN(top) || math.IsInf(top, 0) {
		return []float64{0, 1}
	}
	if n < 2 {
		n = 2
	}
	step := tickStep(top, n)
	var out []float64
	for i := 0; ; i++ {
		v := round6(float64(i) * step)
		if v > top+1e-9 {
			break
		}
		out = append(out, v)
	}
	if last := out[len(out)-1]; math.Abs(last-top) > 1e-9 {
		out = append(out, round6(top))
	}
	return out
}

// IsNiceTick reports whether v lies on the step grid of ticks (used to hide the label of a trailing bound tick).
func IsNiceTick(ticks []float64, v float64) bool {
	if len(ticks) < 2 {
		return true
	}
	step := ticks[1] - ticks[0]
	if step <= 0 {
		return true
	}
	q := v / step
	return math.Abs(q-math.Round(q)) < 1e-6
}

// FormatNumericTick provides a compact axis label.
func FormatNumericTick(v float64) string {
	av := math.Abs(v)
	switch {
	case av == 0:
		return "0"
	case av >= 100:
		return strconv.FormatInt(int64(math.Round(v)), 10)
	case av >= 10:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', 1, 64)
	case av >= 1:
		return strconv.FormatFloat(v, 'f', 2, 64)
	case av >= 0.01:
		return strconv.FormatFloat(v, 'f', 3, 64)
	default:
		return strconv.FormatFloat(v, 'f', 4, 64)
	}
}
