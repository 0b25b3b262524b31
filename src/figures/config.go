package figures

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid figure configuration")

//go:embed defaults.yaml
var defaultsYAML []byte

// Figure kinds.
const (
	KindOverall    = "overall"
	KindTaskGroups = "task_groups"
	KindTaskGrid   = "task_grid"
	KindStatic     = "static"
)

// Defaults applied to unset figure fields.
const (
	DefaultYFloor     = 100.0
	DefaultDecimals   = 1
	DefaultBarWidth   = 0.6
	DefaultFontSize   = 12.0
	DefaultTitleWidth = 20
)

// Config is the whole rendering job: where results come from, where images go and
// which figure sets to draw.
type Config struct {
	Results   string      `yaml:"results"`
	OutputDir string      `yaml:"output_dir"`
	Format    string      `yaml:"format"`
	Sets      []FigureSet `yaml:"sets"`
}

// FigureSet groups figures that share one list of methods.
type FigureSet struct {
	Name    string         `yaml:"name"`
	Methods []MethodConfig `yaml:"methods"`
	Figures []Figure       `yaml:"figures"`
}

// MethodConfig says how one method's score is extracted and drawn.
type MethodConfig struct {
	Position float64 `yaml:"position"`
	Label    string  `yaml:"label"`
	Key      string  `yaml:"key"`
	Color    string  `yaml:"color"`
}

// StaticBar is a literal bar of a static figure.
type StaticBar struct {
	Label string  `yaml:"label"`
	Value float64 `yaml:"value"`
	Color string  `yaml:"color"`
	Edge  string  `yaml:"edge"`
	Hatch bool    `yaml:"hatch"`
}

// Figure describes one output image.
type Figure struct {
	Name           string          `yaml:"name"`
	Kind           string          `yaml:"kind"`
	Title          string          `yaml:"title"`
	YLabel         string          `yaml:"ylabel"`
	YFloor         *float64        `yaml:"y_floor"`
	YMargin        float64         `yaml:"y_margin"`
	Decimals       *int            `yaml:"decimals"`
	Suffix         string          `yaml:"suffix"`
	LabelWidth     int             `yaml:"label_width"`
	LabelRotation  float64         `yaml:"label_rotation"`
	TitleWidth     int             `yaml:"title_width"`
	FontSize       float64         `yaml:"font_size"`
	BarWidth       float64         `yaml:"bar_width"`
	Legend         bool            `yaml:"legend"`
	Separators     []float64       `yaml:"separators"`
	SeparatorColor string          `yaml:"separator_color"`
	Regions        []Region        `yaml:"regions"`
	ReferenceLines []ReferenceLine `yaml:"reference_lines"`
	Tasks          []string        `yaml:"tasks"`
	SortTasks      bool            `yaml:"sort_tasks"`
	SharedY        bool            `yaml:"shared_y"`
	Rows           int             `yaml:"rows"`
	Cols           int             `yaml:"cols"`
	Bars           []StaticBar     `yaml:"bars"`
	Width          int             `yaml:"width"`
	Height         int             `yaml:"height"`
}

// Floor returns the configured y floor or DefaultYFloor.
func (f Figure) Floor() float64 {
	if f.YFloor == nil {
		return DefaultYFloor
	}
	return *f.YFloor
}

// Precision returns the configured annotation decimals or DefaultDecimals.
func (f Figure) Precision() int {
	if f.Decimals == nil {
		return DefaultDecimals
	}
	return *f.Decimals
}

// DefaultConfig returns the embedded configuration.
func DefaultConfig() (*Config, error) {
	cfg, err := ParseConfig(defaultsYAML)
	if err != nil {
		return nil, fmt.Errorf("embedded defaults: %w", err)
	}
	return cfg, nil
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes and validates YAML, filling unset fields with defaults.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Format == "" {
		c.Format = string(FormatPNG)
	}
	for si := range c.Sets {
		for fi := range c.Sets[si].Figures {
			f := &c.Sets[si].Figures[fi]
			if f.BarWidth <= 0 {
				f.BarWidth = DefaultBarWidth
			}
			if f.FontSize <= 0 {
				f.FontSize = DefaultFontSize
			}
			if f.TitleWidth == 0 {
				f.TitleWidth = DefaultTitleWidth
			}
			if f.SeparatorColor == "" {
				f.SeparatorColor = "#000000"
			}
		}
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate checks kinds, colours, grid sizes and name uniqueness.
func (c *Config) Validate() error {
	if _, err := ParseFormat(c.Format); err != nil {
		return invalid("%v", err)
	}
	setNames := map[string]bool{}
	for _, s := range c.Sets {
		if strings.TrimSpace(s.Name) == "" {
			return invalid("figure set without a name")
		}
		if setNames[s.Name] {
			return invalid("duplicate figure set %q", s.Name)
		}
		setNames[s.Name] = true
		for _, m := range s.Methods {
			if m.Key == "" {
				return invalid("set %s: method %q has no result key", s.Name, m.Label)
			}
			if !validColor(m.Color) {
				return invalid("set %s: method %q colour %q is not #RRGGBB", s.Name, m.Label, m.Color)
			}
		}
		figNames := map[string]bool{}
		for _, f := range s.Figures {
			if f.Name == "" {
				return invalid("set %s: figure without a name", s.Name)
			}
			if figNames[f.Name] {
				return invalid("set %s: duplicate figure %q", s.Name, f.Name)
			}
			figNames[f.Name] = true
			if err := f.validate(len(s.Methods)); err != nil {
				return invalid("set %s, figure %s: %v", s.Name, f.Name, err)
			}
		}
	}
	return nil
}

func (f Figure) validate(methods int) error {
	switch f.Kind {
	case KindOverall, KindTaskGroups:
		if methods == 0 {
			return fmt.Errorf("kind %s needs methods", f.Kind)
		}
	case KindTaskGrid:
		if methods == 0 {
			return fmt.Errorf("kind %s needs methods", f.Kind)
		}
		if f.Rows < 1 || f.Cols < 1 {
			return fmt.Errorf("grid %dx%d must have at least one row and column", f.Rows, f.Cols)
		}
	case KindStatic:
		if len(f.Bars) == 0 {
			return errors.New("static figure needs bars")
		}
		for _, b := range f.Bars {
			if !validColor(b.Color) || (b.Edge != "" && !validColor(b.Edge)) {
				return fmt.Errorf("bar %q: colours must be #RRGGBB", b.Label)
			}
		}
	default:
		return fmt.Errorf("unknown kind %q", f.Kind)
	}
	if f.Kind == KindTaskGroups && len(f.Tasks) == 0 {
		return errors.New("task_groups needs tasks")
	}
	if f.YMargin < 0 {
		return fmt.Errorf("negative y_margin %v", f.YMargin)
	}
	if f.Decimals != nil && *f.Decimals < 0 {
		return fmt.Errorf("negative decimals %d", *f.Decimals)
	}
	if !validColor(f.SeparatorColor) {
		return fmt.Errorf("separator colour %q is not #RRGGBB", f.SeparatorColor)
	}
	for _, r := range f.ReferenceLines {
		if r.To < r.From {
			return fmt.Errorf("reference line %v spans backwards", r.Value)
		}
	}
	return nil
}

// validColor accepts #RRGGBB only; the drawing package panics on other lengths.
func validColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, r := range s[1:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// Set returns the named figure set.
func (c *Config) Set(name string) (*FigureSet, error) {
	for i := range c.Sets {
		if c.Sets[i].Name == name {
			return &c.Sets[i], nil
		}
	}
	return nil, invalid("unknown figure set %q", name)
}

// SetNames lists the figure sets in configuration order.
func (c *Config) SetNames() []string {
	out := make([]string, 0, len(c.Sets))
	for _, s := range c.Sets {
		out = append(out, s.Name)
	}
	return out
}
