package figures

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"strings"

	"github.com/golang/freetype/truetype"
	"github.com/wcharczuk/go-chart/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/adamzweiger/Fewshot-TTT/src/figures/layout"
)

// ErrGridOverflow is returned when a grid has more panels than cells.
var ErrGridOverflow = errors.New("too many panels for grid")

// Grid lays out bar-chart panels row by row with a shared, vertical y caption.
// Cells without a panel stay blank.
type Grid struct {
	Title         string
	YLabel        string
	Rows, Cols    int
	Width, Height int
	Panels        []BarChart
}

// captionSize is the point size of the grid title and y caption. It grows with
// the grid so captions stay readable on big grids.
func (g Grid) captionSize() float64 {
	return math.Max(12, 12*float64(g.Height)/600)
}

// panels sizes every panel to one cell and reserves the same title height in
// all of them, so plot areas of a row start at the same y.
func (g Grid) panels(pw, ph int) []BarChart {
	rows := 0
	for _, p := range g.Panels {
		rows = max(rows, len(p.titleLines()))
	}
	out := make([]BarChart, len(g.Panels))
	for i, p := range g.Panels {
		p.Width, p.Height, p.exactSize, p.titleRows = pw, ph, true, rows
		out[i] = p
	}
	return out
}

// Image renders every panel and composes them onto one canvas.
func (g Grid) Image() (*image.RGBA, error) {
	if g.Rows < 1 || g.Cols < 1 {
		return nil, fmt.Errorf("grid %dx%d: %w", g.Rows, g.Cols, ErrInvalidConfig)
	}
	if len(g.Panels) > g.Rows*g.Cols {
		return nil, fmt.Errorf("%d panels in %dx%d: %w", len(g.Panels), g.Rows, g.Cols, ErrGridOverflow)
	}
	size := g.captionSize()
	var yCap, title *image.RGBA
	left, top := 0, 0
	if strings.TrimSpace(g.YLabel) != "" {
		img, err := textImage(g.YLabel, size)
		if err != nil {
			return nil, err
		}
		yCap = rotateCCW(img)
		left = yCap.Bounds().Dx() + 16
	}
	if strings.TrimSpace(g.Title) != "" {
		img, err := textImage(g.Title, size)
		if err != nil {
			return nil, err
		}
		title = img
		top = title.Bounds().Dy() + 16
	}

	pw, ph := layout.PanelDimensions(g.Width-left, g.Height-top, g.Rows, g.Cols)
	canvas := image.NewRGBA(image.Rect(0, 0, left+pw*g.Cols, top+ph*g.Rows))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	for i, p := range g.panels(pw, ph) {
		img, err := p.Image()
		if err != nil {
			return nil, fmt.Errorf("panel %d (%s): %w", i, p.Title, err)
		}
		row, col := i/g.Cols, i%g.Cols
		at := image.Pt(left+col*pw, top+row*ph)
		draw.Draw(canvas, image.Rectangle{Min: at, Max: at.Add(img.Bounds().Size())}, img, img.Bounds().Min, draw.Src)
	}

	if yCap != nil {
		b := yCap.Bounds()
		y := top + (canvas.Bounds().Dy()-top-b.Dy())/2
		draw.Draw(canvas, b.Add(image.Pt(6, y)), yCap, b.Min, draw.Over)
	}
	if title != nil {
		b := title.Bounds()
		x := left + (canvas.Bounds().Dx()-left-b.Dx())/2
		draw.Draw(canvas, b.Add(image.Pt(x, 8)), title, b.Min, draw.Over)
	}
	return canvas, nil
}

// Render writes the grid as PNG.
func (g Grid) Render(w io.Writer) error {
	img, err := g.Image()
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("png encode grid: %w", err)
	}
	return nil
}

// textImage draws text in black on a transparent image with the chart font.
func textImage(text string, size float64) (*image.RGBA, error) {
	f, err := chart.GetDefaultFont()
	if err != nil {
		return nil, fmt.Errorf("load caption font: %w", err)
	}
	face := truetype.NewFace(f, &truetype.Options{Size: size, DPI: chart.DefaultDPI, Hinting: font.HintingFull})
	defer face.Close()

	m := face.Metrics()
	dr := &font.Drawer{Face: face, Src: image.NewUniform(color.Black)}
	w := dr.MeasureString(text).Ceil()
	img := image.NewRGBA(image.Rect(0, 0, w, (m.Ascent + m.Descent).Ceil()))
	dr.Dst = img
	dr.Dot = fixed.Point26_6{X: 0, Y: m.Ascent}
	dr.DrawString(text)
	return img, nil
}

// rotateCCW turns src a quarter turn counter-clockwise, so text reads bottom to top.
func rotateCCW(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dy(), b.Dx()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.Set(y, b.Dx()-1-x, src.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}
