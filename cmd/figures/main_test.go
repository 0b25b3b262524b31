package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamzweiger/Fewshot-TTT/src/figures"
	"github.com/adamzweiger/Fewshot-TTT/src/results"
)

// writeResults writes a results file covering every method key and task the
// built-in configuration refers to.
func writeResults(t *testing.T) string {
	t.Helper()
	cfg, err := figures.DefaultConfig()
	require.NoError(t, err)

	keys := map[string]bool{}
	for _, s := range cfg.Sets {
		for _, m := range s.Methods {
			keys[m.Key] = true
		}
	}
	tasks := []string{"dyck_languages", "ruin_names", "movie_recommendation", "hyperbaton", "boolean_expressions", "navigate"}

	var perTask []map[string]any
	agg := map[string]map[string]float64{}
	i := 0
	for k := range keys {
		agg[k] = map[string]float64{"average": 30 + float64(i)}
		i++
	}
	for ti, name := range tasks {
		rec := map[string]any{"task": name}
		for k := range keys {
			rec[k] = 10 + float64(ti*7)
		}
		perTask = append(perTask, rec)
	}
	data, err := json.Marshal(map[string]any{"per_task_results": perTask, "aggregated_statistics": agg})
	require.NoError(t, err)
	p := filepath.Join(t.TempDir(), "allResults.json")
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestNoArgsRendersEverySet(t *testing.T) {
	out := t.TempDir()
	_, err := runCLI(t, "--results", writeResults(t), "--out", out, "--log-level", "warn")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"ARC_BBH.png",
		"BBH_all_ablations.png",
		"BBH_all_main.png",
		"BBH_overall_ablations.png",
		"BBH_overall_main.png",
		"BBH_tasks_main.png",
	}, listFiles(t, out))
}

func TestRenderSelectedSetsAsSVG(t *testing.T) {
	out := t.TempDir()
	_, err := runCLI(t, "render", "main", "--results", writeResults(t), "--out", out, "--format", "svg", "--log-level", "error")
	require.NoError(t, err)
	assert.Equal(t, []string{"BBH_all_main.png", "BBH_overall_main.svg", "BBH_tasks_main.svg"}, listFiles(t, out))
}

func TestRenderErrors(t *testing.T) {
	t.Run("missing results file", func(t *testing.T) {
		out := t.TempDir()
		_, err := runCLI(t, "render", "main", "--results", filepath.Join(t.TempDir(), "absent.json"), "--out", out)
		require.Error(t, err)
		assert.True(t, errors.Is(err, fs.ErrNotExist))
		assert.Equal(t, ExitError, exitCode(err))
		assert.Empty(t, listFiles(t, out))
	})

	t.Run("missing method key", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "partial.json")
		require.NoError(t, os.WriteFile(p, []byte(`{"per_task_results": [], "aggregated_statistics": {"ZSL_accuracy": {"average": 1}}}`), 0o644))
		_, err := runCLI(t, "render", "main", "--results", p, "--out", t.TempDir())
		assert.ErrorIs(t, err, results.ErrMissingField)
	})

	t.Run("unknown set", func(t *testing.T) {
		_, err := runCLI(t, "render", "appendix")
		assert.ErrorIs(t, err, figures.ErrInvalidConfig)
	})

	t.Run("bad format flag", func(t *testing.T) {
		_, err := runCLI(t, "render", "arc-bbh", "--format", "pdf")
		assert.Error(t, err)
	})

	t.Run("bad log level", func(t *testing.T) {
		_, err := runCLI(t, "list", "--log-level", "chatty")
		assert.ErrorContains(t, err, "unknown log level")
	})
}

func TestStaticSetWithoutResults(t *testing.T) {
	out := t.TempDir()
	_, err := runCLI(t, "render", "arc-bbh", "--results", filepath.Join(t.TempDir(), "absent.json"), "--out", out)
	require.NoError(t, err)
	assert.Equal(t, []string{"ARC_BBH.png"}, listFiles(t, out))
}

func TestList(t *testing.T) {
	out, err := runCLI(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "main\n")
	assert.Contains(t, out, "ablations\n")
	assert.Contains(t, out, "arc-bbh\n")
	assert.Contains(t, out, "No Example Permutations")
	assert.Contains(t, out, "BBH_all_ablations")
}

func TestCustomConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "figures.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
output_dir: `+filepath.Join(dir, "plots")+`
sets:
  - name: icl
    methods:
      - {position: 0, label: ICL, key: FSL_10_accuracy, color: "#598392"}
    figures:
      - {name: icl_overall, kind: overall, ylabel: Accuracy (%)}
`), 0o644))
	_, err := runCLI(t, "--config", cfgPath, "--results", writeResults(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"icl_overall.png"}, listFiles(t, filepath.Join(dir, "plots")))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, exitCode(nil))
	assert.Equal(t, ExitError, exitCode(errors.New("boom")))
}
