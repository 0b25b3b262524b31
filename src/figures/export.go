package figures

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adamzweiger/Fewshot-TTT/src/logging"
	"github.com/adamzweiger/Fewshot-TTT/src/results"
)

// NeedsResults reports whether any figure of the set reads the results file.
func (s FigureSet) NeedsResults() bool {
	for _, f := range s.Figures {
		if f.Kind != KindStatic {
			return true
		}
	}
	return false
}

type encodedPlot struct {
	name   string
	data   []byte
	format Format
}

// RenderSet builds and encodes every figure of set in memory, then writes them as
// <outDir>/<name>.<ext>. A failing figure leaves no file of the set behind.
// It returns the written paths in figure order.
func RenderSet(set FigureSet, res *results.File, outDir string, format Format) ([]string, error) {
	defer logging.TimeTrack(time.Now(), "figure set "+set.Name)
	if set.NeedsResults() && res == nil {
		return nil, fmt.Errorf("figure set %s: no results loaded", set.Name)
	}

	plots := make([]encodedPlot, 0, len(set.Figures))
	for _, fig := range set.Figures {
		p, err := Build(fig, set.Methods, res)
		if err != nil {
			return nil, fmt.Errorf("figure set %s: %w", set.Name, err)
		}
		data, used, err := p.Encode(format)
		if err != nil {
			return nil, fmt.Errorf("figure set %s: encode %s: %w", set.Name, fig.Name, err)
		}
		plots = append(plots, encodedPlot{name: fig.Name, data: data, format: used})
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create out dir: %w", err)
	}
	paths := make([]string, 0, len(plots))
	for _, p := range plots {
		outPath := filepath.Join(outDir, p.name+"."+p.format.Ext())
		if err := os.WriteFile(outPath, p.data, 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", outPath, err)
		}
		logging.Infof("Saved %s -> %s", p.name, outPath)
		paths = append(paths, outPath)
	}
	return paths, nil
}

// Run renders the named sets of cfg (all sets when names is empty). The results
// file is read once, and only if some selected set needs it.
func Run(cfg *Config, names []string) ([]string, error) {
	format, err := ParseFormat(cfg.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if len(names) == 0 {
		names = cfg.SetNames()
	}
	sets := make([]*FigureSet, 0, len(names))
	needs := false
	for _, n := range names {
		s, err := cfg.Set(n)
		if err != nil {
			return nil, err
		}
		sets = append(sets, s)
		needs = needs || s.NeedsResults()
	}

	var res *results.File
	if needs {
		res, err = results.Load(cfg.Results)
		if err != nil {
			return nil, err
		}
		logging.Debugf("loaded %d task records and %d aggregated methods from %s", len(res.PerTask), len(res.Aggregated), cfg.Results)
	}

	var written []string
	for _, s := range sets {
		paths, err := RenderSet(*s, res, cfg.OutputDir, format)
		written = append(written, paths...)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}
