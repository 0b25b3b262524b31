package figures

import (
	"bytes"
	"fmt"

	"github.com/adamzweiger/Fewshot-TTT/src/logging"
	"github.com/adamzweiger/Fewshot-TTT/src/results"
)

// Plot is a built figure held in memory: exactly one of Chart or Grid is set.
type Plot struct {
	Name  string
	Chart *BarChart
	Grid  *Grid
}

// Encode renders the plot. Grids are always PNG; the returned format is the one used.
func (p Plot) Encode(format Format) ([]byte, Format, error) {
	var buf bytes.Buffer
	switch {
	case p.Grid != nil:
		if err := p.Grid.Render(&buf); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), FormatPNG, nil
	case p.Chart != nil:
		if err := p.Chart.Render(&buf, format); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), format, nil
	}
	return nil, "", fmt.Errorf("plot %s: %w", p.Name, ErrNoBars)
}

// Build turns one figure definition into a chart (or grid of charts) over res.
func Build(fig Figure, methods []MethodConfig, res *results.File) (Plot, error) {
	var (
		p   = Plot{Name: fig.Name}
		err error
	)
	switch fig.Kind {
	case KindOverall:
		p.Chart, err = buildOverall(fig, methods, res)
	case KindTaskGroups:
		p.Chart, err = buildTaskGroups(fig, methods, res)
	case KindTaskGrid:
		p.Grid, err = buildTaskGrid(fig, methods, res)
	case KindStatic:
		p.Chart, err = buildStatic(fig)
	default:
		err = invalid("figure %s: unknown kind %q", fig.Name, fig.Kind)
	}
	if err != nil {
		return Plot{}, fmt.Errorf("figure %s: %w", fig.Name, err)
	}
	return p, nil
}

// baseChart copies the presentation settings of fig.
func baseChart(fig Figure) BarChart {
	return BarChart{
		Title:          fig.Title,
		TitleWidth:     fig.TitleWidth,
		YLabel:         fig.YLabel,
		BarWidth:       fig.BarWidth,
		Separators:     fig.Separators,
		SeparatorColor: fig.SeparatorColor,
		Regions:        fig.Regions,
		ReferenceLines: fig.ReferenceLines,
		Decimals:       fig.Precision(),
		Suffix:         fig.Suffix,
		LabelWidth:     fig.LabelWidth,
		LabelRotation:  fig.LabelRotation,
		FontSize:       fig.FontSize,
		Width:          fig.Width,
		Height:         fig.Height,
	}
}

// methodBars places one bar per method at its configured position.
func methodBars(methods []MethodConfig, score func(MethodConfig) (float64, error)) ([]Bar, []Category, []float64, error) {
	bars := make([]Bar, 0, len(methods))
	cats := make([]Category, 0, len(methods))
	vals := make([]float64, 0, len(methods))
	for _, m := range methods {
		v, err := score(m)
		if err != nil {
			return nil, nil, nil, err
		}
		bars = append(bars, Bar{Position: m.Position, Value: v, Color: m.Color})
		cats = append(cats, Category{Position: m.Position, Label: m.Label})
		vals = append(vals, v)
	}
	return bars, cats, vals, nil
}

func buildOverall(fig Figure, methods []MethodConfig, res *results.File) (*BarChart, error) {
	bars, cats, vals, err := methodBars(methods, func(m MethodConfig) (float64, error) {
		return res.Average(m.Key)
	})
	if err != nil {
		return nil, err
	}
	c := baseChart(fig)
	c.Bars, c.Categories = bars, cats
	c.YMax = YLimit(vals, fig.Floor(), fig.YMargin)
	logging.Debugf("figure %s: %d method averages, ylim %.2f", fig.Name, len(bars), c.YMax)
	return &c, nil
}

func buildTaskGroups(fig Figure, methods []MethodConfig, res *results.File) (*BarChart, error) {
	tasks, err := res.Select(fig.Tasks)
	if err != nil {
		return nil, err
	}
	c := baseChart(fig)
	var vals []float64
	groupCenter := fig.BarWidth * float64(len(methods)-1) / 2
	for i, t := range tasks {
		for j, m := range methods {
			v, err := t.Score(m.Key)
			if err != nil {
				return nil, err
			}
			c.Bars = append(c.Bars, Bar{Position: float64(i) + float64(j)*fig.BarWidth, Value: v, Color: m.Color})
			vals = append(vals, v)
		}
		c.Categories = append(c.Categories, Category{Position: float64(i) + groupCenter, Label: FormatTaskName(t.Task)})
	}
	if fig.Legend {
		for _, m := range methods {
			c.Legend = append(c.Legend, LegendEntry{Label: m.Label, Color: m.Color})
		}
	}
	c.YMax = YLimit(vals, fig.Floor(), fig.YMargin)
	logging.Debugf("figure %s: %d tasks x %d methods, ylim %.2f", fig.Name, len(tasks), len(methods), c.YMax)
	return &c, nil
}

func buildTaskGrid(fig Figure, methods []MethodConfig, res *results.File) (*Grid, error) {
	tasks := res.PerTask
	if fig.SortTasks {
		tasks = res.SortedByName()
	}
	if len(tasks) > fig.Rows*fig.Cols {
		return nil, fmt.Errorf("%d tasks do not fit a %dx%d grid: %w", len(tasks), fig.Rows, fig.Cols, ErrGridOverflow)
	}
	g := &Grid{Title: fig.Title, YLabel: fig.YLabel, Rows: fig.Rows, Cols: fig.Cols, Width: fig.Width, Height: fig.Height}
	var all []float64
	for _, t := range tasks {
		bars, cats, vals, err := methodBars(methods, func(m MethodConfig) (float64, error) {
			return t.Score(m.Key)
		})
		if err != nil {
			return nil, err
		}
		c := baseChart(fig)
		c.Title = FormatTaskName(t.Task)
		c.YLabel = ""
		c.Regions = nil
		c.Bars, c.Categories = bars, cats
		c.YMax = YLimit(vals, fig.Floor(), fig.YMargin)
		g.Panels = append(g.Panels, c)
		all = append(all, vals...)
	}
	if fig.SharedY {
		top := YLimit(all, fig.Floor(), fig.YMargin)
		for i := range g.Panels {
			g.Panels[i].YMax = top
		}
	}
	logging.Debugf("figure %s: %d panels in %dx%d grid", fig.Name, len(g.Panels), fig.Rows, fig.Cols)
	return g, nil
}

func buildStatic(fig Figure) (*BarChart, error) {
	c := baseChart(fig)
	vals := make([]float64, 0, len(fig.Bars))
	for i, b := range fig.Bars {
		c.Bars = append(c.Bars, Bar{Position: float64(i), Value: b.Value, Color: b.Color, Edge: b.Edge, Hatch: b.Hatch})
		c.Categories = append(c.Categories, Category{Position: float64(i), Label: b.Label})
		vals = append(vals, b.Value)
	}
	c.YMax = YLimit(vals, fig.Floor(), fig.YMargin)
	return &c, nil
}
