package figures

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"image"
	"image/png"
	"io"
	"math"
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/adamzweiger/Fewshot-TTT/src/figures/layout"
)

// ErrNoBars is returned when a chart has nothing to draw.
var ErrNoBars = errors.New("bar chart has no bars")

// Format is an output image encoding.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// ParseFormat accepts "png" or "svg" (any case).
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatPNG:
		return FormatPNG, nil
	case FormatSVG:
		return FormatSVG, nil
	}
	return "", fmt.Errorf("unsupported image format %q (want png or svg)", s)
}

// Ext is the file extension without the dot.
func (f Format) Ext() string { return string(f) }

func (f Format) provider() chart.RendererProvider {
	if f == FormatSVG {
		return chart.SVG
	}
	return chart.PNG
}

// Bar is one rectangle of a chart, centred at Position on the x axis.
type Bar struct {
	Position float64
	Value    float64
	Color    string
	Edge     string // outline colour, empty for none
	Hatch    bool
}

// Category is a label written under the x axis at Position.
type Category struct {
	Position float64
	Label    string
}

// Region labels a span of the x axis. Without Y the label sits above the plot area.
type Region struct {
	Center float64  `yaml:"center"`
	Label  string   `yaml:"label"`
	Y      *float64 `yaml:"y"`
}

// ReferenceLine is a dashed horizontal line at Value spanning [From, To].
type ReferenceLine struct {
	Value float64 `yaml:"value"`
	From  float64 `yaml:"from"`
	To    float64 `yaml:"to"`
}

// LegendEntry is one swatch of the legend.
type LegendEntry struct {
	Label string
	Color string
}

// BarChart is a static bar chart with value annotations.
type BarChart struct {
	Title          string
	TitleWidth     int // wrap width for Title (at most two lines), 0 keeps one line
	YLabel         string
	Bars           []Bar
	Categories     []Category
	YMax           float64
	BarWidth       float64
	Separators     []float64
	SeparatorColor string
	Regions        []Region
	ReferenceLines []ReferenceLine
	Decimals       int
	Suffix         string
	LabelWidth     int
	LabelRotation  float64
	FontSize       float64
	Legend         []LegendEntry
	Width, Height  int

	// escape is applied to every drawn string; set per output format.
	escape func(string) string
	// exactSize skips the single-chart size clamps (grid panels).
	exactSize bool
	// titleRows reserves room for at least this many title lines.
	titleRows int
}

// YLimit is the y-axis upper bound: the larger of floor and the tallest value
// scaled by (1 + margin).
func YLimit(values []float64, floor, margin float64) float64 {
	top := floor
	for _, v := range values {
		if m := v * (1 + margin); m > top {
			top = m
		}
	}
	return top
}

// BarCount is the number of bars drawn.
func (c BarChart) BarCount() int { return len(c.Bars) }

// Annotations returns the text drawn above each bar, in bar order.
func (c BarChart) Annotations() []string {
	out := make([]string, len(c.Bars))
	for i, b := range c.Bars {
		out[i] = FormatValue(b.Value, c.Decimals, c.Suffix)
	}
	return out
}

// Validate reports ErrNoBars and malformed colours.
func (c BarChart) Validate() error {
	if len(c.Bars) == 0 {
		return ErrNoBars
	}
	for i, b := range c.Bars {
		if !validColor(b.Color) {
			return fmt.Errorf("bar %d: colour %q is not #RRGGBB", i, b.Color)
		}
		if b.Edge != "" && !validColor(b.Edge) {
			return fmt.Errorf("bar %d: edge colour %q is not #RRGGBB", i, b.Edge)
		}
		if math.IsNaN(b.Value) || math.IsInf(b.Value, 0) {
			return fmt.Errorf("bar %d: value %v is not finite", i, b.Value)
		}
	}
	if c.SeparatorColor != "" && !validColor(c.SeparatorColor) {
		return fmt.Errorf("separator colour %q is not #RRGGBB", c.SeparatorColor)
	}
	for _, e := range c.Legend {
		if !validColor(e.Color) {
			return fmt.Errorf("legend %q: colour %q is not #RRGGBB", e.Label, e.Color)
		}
	}
	return nil
}

// Render draws the chart to w in the given format.
func (c BarChart) Render(w io.Writer, format Format) error {
	if err := c.Validate(); err != nil {
		return err
	}
	c.escape = func(s string) string { return s }
	if format == FormatSVG {
		c.escape = html.EscapeString
	}
	ch := c.build()
	if err := ch.Render(format.provider(), w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

// Image renders the chart as PNG and decodes it, for composition into grids.
func (c BarChart) Image() (image.Image, error) {
	var buf bytes.Buffer
	if err := c.Render(&buf, FormatPNG); err != nil {
		return nil, err
	}
	img, err := png.Decode(&buf)
	if err != nil {
		return nil, fmt.Errorf("decode chart png: %w", err)
	}
	return img, nil
}

// pixels converts a point size to pixels at the chart DPI.
func pixels(pt float64) float64 { return pt * chart.DefaultDPI / 72 }

func (c BarChart) fontSize() float64 {
	if c.FontSize <= 0 {
		return DefaultFontSize
	}
	return c.FontSize
}

func (c BarChart) barWidth() float64 {
	if c.BarWidth <= 0 {
		return DefaultBarWidth
	}
	return c.BarWidth
}

// xBounds spans every bar plus half a slot of air, and any decoration outside that.
func (c BarChart) xBounds() (float64, float64) {
	lo, hi := math.MaxFloat64, -math.MaxFloat64
	for _, b := range c.Bars {
		lo = math.Min(lo, b.Position)
		hi = math.Max(hi, b.Position)
	}
	pad := math.Max(c.barWidth()/2+0.2, 0.5)
	lo, hi = lo-pad, hi+pad
	for _, s := range c.Separators {
		lo, hi = math.Min(lo, s), math.Max(hi, s)
	}
	for _, r := range c.ReferenceLines {
		lo, hi = math.Min(lo, r.From), math.Max(hi, r.To)
	}
	return lo, hi
}

func (c BarChart) yMax() float64 {
	if c.YMax > 0 {
		return c.YMax
	}
	vals := make([]float64, len(c.Bars))
	for i, b := range c.Bars {
		vals[i] = b.Value
	}
	return YLimit(vals, DefaultYFloor, 0)
}

func (c BarChart) categoryLines() ([][]string, int, int) {
	lines := make([][]string, len(c.Categories))
	maxLines, maxChars := 0, 0
	for i, cat := range c.Categories {
		lines[i] = WrapLabel(cat.Label, c.LabelWidth, MaxLabelLines)
		if len(lines[i]) > maxLines {
			maxLines = len(lines[i])
		}
		for _, l := range lines[i] {
			if n := len([]rune(l)); n > maxChars {
				maxChars = n
			}
		}
	}
	return lines, maxLines, maxChars
}

func (c BarChart) padding(maxLines, maxChars int) chart.Box {
	fs := pixels(c.fontSize())
	top := int(fs) + 12
	if n := max(len(c.titleLines()), c.titleRows); n > 0 {
		top += int(float64(n)*pixels(c.fontSize()+2)*1.3) + 6
	}
	for _, r := range c.Regions {
		if r.Y == nil {
			top += int(pixels(c.fontSize()+2) * 1.4)
			break
		}
	}
	left := int(math.Ceil(float64(len(layout.FormatNumericTick(c.yMax())))*fs*0.62)) + 18
	if c.YLabel != "" {
		left += int(pixels(c.fontSize()+2)*1.3) + 8
	}
	bottom := 12
	if maxLines > 0 {
		bottom = layout.BottomPadding(maxLines, maxChars, fs, c.LabelRotation)
	}
	return chart.Box{Top: top, Left: left, Right: 16, Bottom: bottom}
}

func (c BarChart) build() chart.Chart {
	lines, maxLines, maxChars := c.categoryLines()
	lo, hi := c.xBounds()
	ymax := c.yMax()
	w, h := c.Width, c.Height
	if !c.exactSize {
		w, h = layout.ChartDimensions(c.Width, c.Height)
	}
	ch := chart.Chart{
		Width:      w,
		Height:     h,
		Background: chart.Style{Padding: c.padding(maxLines, maxChars)},
		XAxis:      chart.XAxis{Style: chart.Hidden(), Range: &chart.ContinuousRange{Min: lo, Max: hi}},
		YAxis:      chart.YAxis{Style: chart.Hidden(), Range: &chart.ContinuousRange{Min: 0, Max: ymax}},
		Series:     []chart.Series{barSeries{bc: c}},
	}
	ch.Elements = []chart.Renderable{
		c.drawTitle(),
		c.drawAxes(lo, hi, ymax),
		c.drawCategories(lines, lo, hi),
		c.drawRegions(lo, hi, ymax),
	}
	if len(c.Legend) > 0 {
		ch.Elements = append(ch.Elements, c.drawLegend())
	}
	return ch
}

func (c BarChart) esc(s string) string {
	if c.escape == nil {
		return s
	}
	return c.escape(s)
}

func hexColor(s string, fallback drawing.Color) drawing.Color {
	if !validColor(s) {
		return fallback
	}
	return drawing.ColorFromHex(s)
}

// scale maps data coordinates into the canvas box.
type scale struct {
	box           chart.Box
	lo, hi, ymax  float64
	width, height float64
}

func newScale(box chart.Box, lo, hi, ymax float64) scale {
	return scale{box: box, lo: lo, hi: hi, ymax: ymax, width: float64(box.Width()), height: float64(box.Height())}
}

func (s scale) x(v float64) int {
	return s.box.Left + int(math.Round((v-s.lo)/(s.hi-s.lo)*s.width))
}

func (s scale) y(v float64) int {
	return s.box.Bottom - int(math.Round(v/s.ymax*s.height))
}

func (s scale) dx(d float64) int { return int(math.Round(d / (s.hi - s.lo) * s.width)) }

// barSeries draws everything that lives inside the plot area.
type barSeries struct {
	bc BarChart
}

func (bs barSeries) GetName() string           { return "bars" }
func (bs barSeries) GetYAxis() chart.YAxisType { return chart.YAxisPrimary }
func (bs barSeries) GetStyle() chart.Style     { return chart.Shown() }
func (bs barSeries) Validate() error           { return bs.bc.Validate() }

func (bs barSeries) Render(r chart.Renderer, box chart.Box, xrange, yrange chart.Range, defaults chart.Style) {
	c := bs.bc
	sc := newScale(box, xrange.GetMin(), xrange.GetMax(), yrange.GetMax())
	half := sc.dx(c.barWidth()) / 2
	if half < 1 {
		half = 1
	}

	for _, b := range c.Bars {
		cx := sc.x(b.Position)
		rect := chart.Box{Left: cx - half, Right: cx + half, Top: sc.y(clamp(b.Value, 0, sc.ymax)), Bottom: box.Bottom}
		r.ResetStyle()
		r.SetFillColor(hexColor(b.Color, drawing.ColorBlack))
		if b.Edge != "" {
			r.SetStrokeColor(hexColor(b.Edge, drawing.ColorBlack))
			r.SetStrokeWidth(1)
		} else {
			r.SetStrokeColor(drawing.ColorTransparent)
			r.SetStrokeWidth(0)
		}
		rectPath(r, rect)
		if b.Edge != "" {
			r.FillStroke()
		} else {
			r.Fill()
		}
		if b.Hatch {
			hatch(r, rect, hexColor(b.Edge, drawing.ColorBlack).WithAlpha(128))
		}
	}

	for _, s := range c.Separators {
		r.ResetStyle()
		r.SetStrokeColor(hexColor(c.SeparatorColor, drawing.ColorBlack))
		r.SetStrokeWidth(1.5)
		r.SetStrokeDashArray([]float64{5, 5})
		r.MoveTo(sc.x(s), box.Top)
		r.LineTo(sc.x(s), box.Bottom)
		r.Stroke()
	}

	for _, ref := range c.ReferenceLines {
		r.ResetStyle()
		r.SetStrokeColor(drawing.ColorBlack)
		r.SetStrokeWidth(1)
		r.SetStrokeDashArray([]float64{5, 5})
		r.MoveTo(sc.x(ref.From), sc.y(ref.Value))
		r.LineTo(sc.x(ref.To), sc.y(ref.Value))
		r.Stroke()
	}

	// annotations last so separators never cross the numbers
	r.ResetStyle()
	r.SetFont(defaults.Font)
	r.SetFontSize(c.fontSize())
	r.SetFontColor(drawing.ColorBlack)
	for i, text := range c.Annotations() {
		b := c.Bars[i]
		text = c.esc(text)
		tb := r.MeasureText(text)
		r.Text(text, sc.x(b.Position)-tb.Width()/2, sc.y(clamp(b.Value, 0, sc.ymax))-4)
	}
}

func clamp(v, lo, hi float64) float64 { return math.Max(lo, math.Min(hi, v)) }

func rectPath(r chart.Renderer, b chart.Box) {
	r.MoveTo(b.Left, b.Top)
	r.LineTo(b.Right, b.Top)
	r.LineTo(b.Right, b.Bottom)
	r.LineTo(b.Left, b.Bottom)
	r.LineTo(b.Left, b.Top)
	r.Close()
}

// hatch strokes "/" diagonals clipped to b.
func hatch(r chart.Renderer, b chart.Box, col drawing.Color) {
	const spacing = 8
	r.ResetStyle()
	r.SetStrokeColor(col)
	r.SetStrokeWidth(1)
	for k := b.Left + b.Top + spacing; k < b.Right+b.Bottom; k += spacing {
		x0 := max(b.Left, k-b.Bottom)
		x1 := min(b.Right, k-b.Top)
		if x0 >= x1 {
			continue
		}
		r.MoveTo(x0, k-x0)
		r.LineTo(x1, k-x1)
		r.Stroke()
	}
}

func (c BarChart) titleLines() []string {
	if strings.TrimSpace(c.Title) == "" {
		return nil
	}
	return WrapLabel(c.Title, c.TitleWidth, MaxLabelLines)
}

// drawTitle centres the (possibly wrapped) title across the whole image.
func (c BarChart) drawTitle() chart.Renderable {
	return func(r chart.Renderer, box chart.Box, defaults chart.Style) {
		lines := c.titleLines()
		if len(lines) == 0 {
			return
		}
		r.ResetStyle()
		r.SetFont(defaults.Font)
		r.SetFontSize(c.fontSize() + 2)
		r.SetFontColor(drawing.ColorBlack)
		lineH := pixels(c.fontSize()+2) * 1.3
		mid := (box.Left + box.Right) / 2
		for i, l := range lines {
			l = c.esc(l)
			tb := r.MeasureText(l)
			r.Text(l, mid-tb.Width()/2, 6+int(float64(i+1)*lineH))
		}
	}
}

// drawAxes draws the left and bottom spines, y ticks and the rotated y-axis title.
func (c BarChart) drawAxes(lo, hi, ymax float64) chart.Renderable {
	return func(r chart.Renderer, box chart.Box, defaults chart.Style) {
		sc := newScale(box, lo, hi, ymax)
		r.ResetStyle()
		r.SetStrokeColor(drawing.ColorBlack)
		r.SetStrokeWidth(1)
		r.MoveTo(box.Left, box.Top)
		r.LineTo(box.Left, box.Bottom)
		r.LineTo(box.Right, box.Bottom)
		r.Stroke()

		ticks := layout.ZeroAnchoredTicks(ymax, 6)
		r.SetFont(defaults.Font)
		r.SetFontSize(c.fontSize())
		r.SetFontColor(drawing.ColorBlack)
		labelRight := box.Left
		for i, t := range ticks {
			y := sc.y(t)
			r.SetStrokeColor(drawing.ColorBlack)
			r.MoveTo(box.Left-5, y)
			r.LineTo(box.Left, y)
			r.Stroke()
			if i == len(ticks)-1 && !layout.IsNiceTick(ticks, t) {
				continue
			}
			label := layout.FormatNumericTick(t)
			tb := r.MeasureText(label)
			x := box.Left - 8 - tb.Width()
			if x < labelRight {
				labelRight = x
			}
			r.Text(label, x, y+tb.Height()/2)
		}

		if c.YLabel == "" {
			return
		}
		text := c.esc(c.YLabel)
		r.SetFontSize(c.fontSize() + 2)
		tb := r.MeasureText(text)
		x := labelRight - 8
		y := box.Top + box.Height()/2 + tb.Width()/2
		r.SetTextRotation(chart.DegreesToRadians(-90))
		r.Text(text, x, y)
		r.ClearTextRotation()
	}
}

// drawCategories writes the wrapped category labels under the x axis.
func (c BarChart) drawCategories(lines [][]string, lo, hi float64) chart.Renderable {
	return func(r chart.Renderer, box chart.Box, defaults chart.Style) {
		sc := newScale(box, lo, hi, 1)
		r.ResetStyle()
		r.SetFont(defaults.Font)
		r.SetFontSize(c.fontSize())
		r.SetFontColor(drawing.ColorBlack)
		lineH := pixels(c.fontSize()) * 1.3
		theta := chart.DegreesToRadians(c.LabelRotation)
		for i, cat := range c.Categories {
			ax, ay := float64(sc.x(cat.Position)), float64(box.Bottom+8)
			for j, line := range lines[i] {
				line = c.esc(line)
				tb := r.MeasureText(line)
				if c.LabelRotation == 0 {
					r.Text(line, int(ax)-tb.Width()/2, int(ay+float64(j+1)*lineH))
					continue
				}
				// right end of the line sits on the anchor, the text rises to the right
				off := float64(j+1) * lineH * 0.8
				nx, ny := ax+off*math.Sin(theta), ay+off*math.Cos(theta)
				sx := nx - float64(tb.Width())*math.Cos(theta)
				sy := ny + float64(tb.Width())*math.Sin(theta)
				r.SetTextRotation(-theta)
				r.Text(line, int(sx), int(sy))
				r.ClearTextRotation()
				r.SetFont(defaults.Font)
				r.SetFontSize(c.fontSize())
				r.SetFontColor(drawing.ColorBlack)
			}
		}
	}
}

// drawRegions centres region labels over their span.
func (c BarChart) drawRegions(lo, hi, ymax float64) chart.Renderable {
	return func(r chart.Renderer, box chart.Box, defaults chart.Style) {
		if len(c.Regions) == 0 {
			return
		}
		sc := newScale(box, lo, hi, ymax)
		r.ResetStyle()
		r.SetFont(defaults.Font)
		r.SetFontSize(c.fontSize() + 2)
		r.SetFontColor(drawing.ColorBlack)
		for _, reg := range c.Regions {
			text := c.esc(reg.Label)
			tb := r.MeasureText(text)
			y := box.Top - 8
			if reg.Y != nil {
				y = sc.y(*reg.Y)
			}
			r.Text(text, sc.x(reg.Center)-tb.Width()/2, y)
		}
	}
}

// drawLegend places colour swatches in the upper-left corner of the plot, unframed.
func (c BarChart) drawLegend() chart.Renderable {
	return func(r chart.Renderer, box chart.Box, defaults chart.Style) {
		fs := c.fontSize()
		sw := int(pixels(fs))
		x := box.Left + 12
		y := box.Top + 8
		for _, e := range c.Legend {
			r.ResetStyle()
			r.SetFillColor(hexColor(e.Color, drawing.ColorBlack))
			r.SetStrokeColor(drawing.ColorTransparent)
			rectPath(r, chart.Box{Left: x, Top: y, Right: x + sw*2, Bottom: y + sw})
			r.Fill()

			r.SetFont(defaults.Font)
			r.SetFontSize(fs)
			r.SetFontColor(drawing.ColorBlack)
			r.Text(c.esc(e.Label), x+sw*2+8, y+sw)
			y += int(float64(sw) * 1.6)
		}
	}
}
