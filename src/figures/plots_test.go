package figures

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamzweiger/Fewshot-TTT/src/results"
)

const plotsJSON = `{
  "per_task_results": [
    {"task": "ruin_names", "ZSL": 20.5, "ICL": 44.0, "TTT": 61.2},
    {"task": "dyck_languages", "ZSL": 1.2, "ICL": 15.4, "TTT": 96.0},
    {"task": "hyperbaton", "ZSL": 55.0, "ICL": 70.1, "TTT": 80.3}
  ],
  "aggregated_statistics": {
    "ZSL": {"average": 25.6},
    "ICL": {"average": 42.3},
    "TTT": {"average": 79.2}
  }
}`

var plotMethods = []MethodConfig{
	{Position: 0, Label: "Zero-Shot", Key: "ZSL", Color: "#EFECCA"},
	{Position: 1, Label: "ICL", Key: "ICL", Color: "#598392"},
	{Position: 2, Label: "TTT", Key: "TTT", Color: "#01161e"},
}

func loadPlotResults(t *testing.T) *results.File {
	t.Helper()
	f, err := results.Parse([]byte(plotsJSON))
	require.NoError(t, err)
	return f
}

func figure(kind string) Figure {
	return Figure{Name: "fig", Kind: kind, YLabel: "Accuracy (%)", BarWidth: DefaultBarWidth, FontSize: 10, TitleWidth: 20, SeparatorColor: "#000000"}
}

func TestBuildOverall(t *testing.T) {
	res := loadPlotResults(t)

	t.Run("single ICL method", func(t *testing.T) {
		p, err := Build(figure(KindOverall), plotMethods[1:2], res)
		require.NoError(t, err)
		require.NotNil(t, p.Chart)
		require.Equal(t, 1, p.Chart.BarCount())
		assert.Equal(t, 42.3, p.Chart.Bars[0].Value)
		assert.Equal(t, []string{"42.3"}, p.Chart.Annotations())
		assert.Equal(t, 100.0, p.Chart.YMax)
	})

	t.Run("one bar per method", func(t *testing.T) {
		p, err := Build(figure(KindOverall), plotMethods, res)
		require.NoError(t, err)
		assert.Equal(t, len(plotMethods), p.Chart.BarCount())
		for i, m := range plotMethods {
			assert.Equal(t, m.Position, p.Chart.Bars[i].Position)
			assert.Equal(t, m.Label, p.Chart.Categories[i].Label)
		}
	})

	t.Run("missing method key", func(t *testing.T) {
		methods := append([]MethodConfig{}, plotMethods...)
		methods[2].Key = "SHARED_TTT"
		_, err := Build(figure(KindOverall), methods, res)
		assert.ErrorIs(t, err, results.ErrMissingField)
	})
}

func TestBuildTaskGroups(t *testing.T) {
	res := loadPlotResults(t)
	fig := figure(KindTaskGroups)
	fig.BarWidth = 0.25
	fig.YMargin = 0.15
	fig.Legend = true
	fig.Tasks = []string{"dyck_languages", "ruin_names"}

	p, err := Build(fig, plotMethods, res)
	require.NoError(t, err)
	c := p.Chart
	require.Equal(t, 6, c.BarCount())
	assert.InDelta(t, 1.25, c.Bars[4].Position, 1e-9, "task 1, method 1")
	assert.Equal(t, 44.0, c.Bars[4].Value)
	assert.Equal(t, "Dyck Languages", c.Categories[0].Label)
	assert.InDelta(t, 0.25, c.Categories[0].Position, 1e-9)
	assert.Len(t, c.Legend, 3)
	assert.InDelta(t, 96.0*1.15, c.YMax, 1e-9)

	fig.Tasks = append(fig.Tasks, "navigate")
	_, err = Build(fig, plotMethods, res)
	assert.ErrorIs(t, err, results.ErrMissingField)
}

func TestBuildTaskGrid(t *testing.T) {
	res := loadPlotResults(t)
	fig := figure(KindTaskGrid)
	fig.Rows, fig.Cols = 1, 3
	fig.Width, fig.Height = 900, 300
	fig.SortTasks = true
	fig.Separators = []float64{1.5}
	fig.Regions = []Region{{Center: 0.5, Label: "left"}}

	t.Run("sorted panels share y", func(t *testing.T) {
		fig := fig
		fig.SharedY = true
		fig.YMargin = 0.07
		p, err := Build(fig, plotMethods, res)
		require.NoError(t, err)
		require.NotNil(t, p.Grid)
		require.Len(t, p.Grid.Panels, 3)
		assert.Equal(t, "Dyck Languages", p.Grid.Panels[0].Title)
		assert.Equal(t, "Ruin Names", p.Grid.Panels[2].Title)
		for _, pn := range p.Grid.Panels {
			assert.InDelta(t, 96.0*1.07, pn.YMax, 1e-9)
			assert.Equal(t, len(plotMethods), pn.BarCount())
			assert.Empty(t, pn.Regions, "region labels belong to the summary chart only")
			assert.Equal(t, []float64{1.5}, pn.Separators)
		}
	})

	t.Run("per-panel y", func(t *testing.T) {
		p, err := Build(fig, plotMethods, res)
		require.NoError(t, err)
		assert.Equal(t, 100.0, p.Grid.Panels[2].YMax)
	})

	t.Run("encodes as png whatever the format", func(t *testing.T) {
		p, err := Build(fig, plotMethods, res)
		require.NoError(t, err)
		data, format, err := p.Encode(FormatSVG)
		require.NoError(t, err)
		assert.Equal(t, FormatPNG, format)
		_, err = png.DecodeConfig(bytes.NewReader(data))
		require.NoError(t, err)
	})

	t.Run("panel titles wrap to at most two lines", func(t *testing.T) {
		long, err := results.Parse([]byte(`{
  "per_task_results": [
    {"task": "tracking_shuffled_objects_seven_objects", "ZSL": 10, "ICL": 20, "TTT": 30},
    {"task": "logical_deduction_three_objects", "ZSL": 40, "ICL": 50, "TTT": 60}
  ],
  "aggregated_statistics": {}
}`))
		require.NoError(t, err)
		fig := fig
		fig.Cols = 2
		p, err := Build(fig, plotMethods, long)
		require.NoError(t, err)
		for _, pn := range p.Grid.Panels {
			assert.LessOrEqual(t, len(pn.titleLines()), MaxLabelLines, pn.Title)
		}
		assert.Equal(t, []string{"Tracking Shuffled", "Objects Seven"}, p.Grid.Panels[1].titleLines())
	})

	t.Run("too many tasks", func(t *testing.T) {
		fig := fig
		fig.Cols = 2
		_, err := Build(fig, plotMethods, res)
		assert.ErrorIs(t, err, ErrGridOverflow)
	})
}

func TestBuildStaticFromDefaults(t *testing.T) {
	cfg, err := DefaultConfig()
	require.NoError(t, err)
	set, err := cfg.Set("arc-bbh")
	require.NoError(t, err)
	require.Len(t, set.Figures, 1)

	p, err := Build(set.Figures[0], set.Methods, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"17.5%", "45.0%", "50.5%", "57.8%"}, p.Chart.Annotations())
	assert.Equal(t, []float64{1.5}, p.Chart.Separators)
	assert.True(t, p.Chart.Bars[1].Hatch)
	assert.False(t, p.Chart.Bars[2].Hatch)
	assert.Equal(t, 70.0, p.Chart.YMax)

	data, format, err := p.Encode(FormatPNG)
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, format)
	assert.NotEmpty(t, data)
}

func TestBuildUnknownKind(t *testing.T) {
	_, err := Build(Figure{Name: "x", Kind: "pie"}, plotMethods, loadPlotResults(t))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
