// Package config holds the terminal settings: built-in defaults, an optional
// YAML file and command line flags, applied in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"

	"inkterm/ink/color"
	"inkterm/ink/render"
	"inkterm/internal/logging"
)

// Backends selectable with general.backend.
var Backends = []string{"window", "headless", "fbdev", "tcell"}

type Config struct {
	General General `yaml:"general"`
	Display Display `yaml:"display"`
	Font    Font    `yaml:"font"`
	Colors  Colors  `yaml:"colors"`
}

type General struct {
	Backend     string `yaml:"backend"`
	Orientation int    `yaml:"orientation"`
	Shell       string `yaml:"shell"`
	// Encoding of the child output, empty for UTF-8.
	Encoding string `yaml:"encoding"`
	LogLevel string `yaml:"log_level"`
}

type Display struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	Hz     int `yaml:"hz"`
	// EmulateEPaper shows update modes the way a panel would.
	EmulateEPaper bool   `yaml:"emulate_epaper"`
	FBDev         string `yaml:"fbdev"`
}

type Font struct {
	// Path of a TrueType/OpenType file; empty selects Go Mono.
	Path   string  `yaml:"path"`
	Size   float64 `yaml:"size"` // points
	DPI    int     `yaml:"dpi"`
	Bitmap bool    `yaml:"bitmap"`
}

// SizeUnits returns the font size in 1/64 pt.
func (f Font) SizeUnits() int { return int(math.Round(f.Size * 64)) }

type Colors struct {
	UseBrightOnBold bool    `yaml:"use_bright_on_bold"`
	DefaultFG       Color   `yaml:"default_fg"`
	DefaultBG       Color   `yaml:"default_bg"`
	Palette         []Color `yaml:"palette"`
}

// Render returns the renderer colours. Palette entries given in the
// configuration replace the head of the default palette.
func (c Colors) Render() render.Colors {
	p := color.DefaultPalette()
	for i, e := range c.Palette {
		p.Set(i, color.RGBA(e))
	}
	return render.Colors{
		UseBrightOnBold: c.UseBrightOnBold,
		DefaultFG:       color.RGBA(c.DefaultFG),
		DefaultBG:       color.RGBA(c.DefaultBG),
		Palette:         p,
	}
}

// Color is an opaque colour, written as "#rrggbb" or as a 0xRRGGBB integer.
type Color color.RGBA

func (c *Color) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: colour must be a scalar", n.Line)
	}
	if n.Tag == "!!int" {
		var v uint32
		if err := n.Decode(&v); err != nil {
			return fmt.Errorf("line %d: colour: %w", n.Line, err)
		}
		*c = Color(color.Hex(v))
		return nil
	}
	v, err := ParseColor(n.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*c = v
	return nil
}

func (c Color) MarshalYAML() (any, error) { return c.String(), nil }

func (c Color) String() string { return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B) }

// ParseColor parses "#rgb" or "#rrggbb", with or without the leading '#'.
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	cf, err := colorful.Hex(s)
	if err != nil {
		return Color{}, fmt.Errorf("invalid colour %q", s)
	}
	r, g, b := cf.RGB255()
	return Color{R: r, G: g, B: b, A: 0xFF}, nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		General: General{
			Backend:  "window",
			LogLevel: "info",
		},
		Display: Display{
			Width:  800,
			Height: 600,
			Hz:     60,
			FBDev:  "/dev/fb0",
		},
		Font: Font{Size: 10, DPI: 96},
		Colors: Colors{
			DefaultFG: Color{R: 170, G: 170, B: 170, A: 0xFF},
			DefaultBG: Color(color.Black),
		},
	}
}

// Load reads the YAML file at path over the defaults. A missing file only
// logs a warning.
func Load(path string) (Config, error) {
	cfg := Default()
	path = expandPath(path)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logging.Logger().Warn("config: file not found", "path", path)
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	logging.Logger().Info("config: loaded", "path", path)
	return cfg, nil
}

// Validate checks ranges and normalizes the orientation into 0-3.
func (c *Config) Validate() error {
	c.General.Orientation = ((c.General.Orientation % 4) + 4) % 4
	if !slices.Contains(Backends, c.General.Backend) {
		return fmt.Errorf("unknown backend %q (want one of %s)", c.General.Backend, strings.Join(Backends, ", "))
	}
	if c.Font.Size <= 0 {
		return fmt.Errorf("invalid font size: %g", c.Font.Size)
	}
	if c.Font.DPI <= 0 {
		return fmt.Errorf("invalid dpi: %d", c.Font.DPI)
	}
	if c.Display.Hz <= 0 {
		return fmt.Errorf("invalid hz: %d", c.Display.Hz)
	}
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		return fmt.Errorf("invalid size: %dx%d", c.Display.Width, c.Display.Height)
	}
	if len(c.Colors.Palette) > color.MaxPaletteSize {
		return fmt.Errorf("palette has %d entries, at most %d allowed", len(c.Colors.Palette), color.MaxPaletteSize)
	}
	return nil
}

// expandPath resolves a leading ~ and environment variables.
func expandPath(p string) string {
	p = os.ExpandEnv(p)
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[1:])
		}
	}
	return p
}
