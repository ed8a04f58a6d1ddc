package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// RegisterFlags defines the configuration flags on fs. Their defaults are
// those of Default; only flags set explicitly override the config file.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.StringP("config", "c", "", "Path to a YAML configuration file")
	fs.StringP("backend", "b", d.General.Backend, "Display backend: "+strings.Join(Backends, ", "))
	fs.IntP("orientation", "o", d.General.Orientation, "Rotation in quarter turns counter clockwise (0-3)")
	fs.String("shell", d.General.Shell, "Command to run (default $SHELL)")
	fs.String("encoding", d.General.Encoding, "Character set of the child output, e.g. iso8859-1 (default UTF-8)")
	fs.String("log-level", d.General.LogLevel, "Log level: debug, info, warn, error")

	fs.Int("width", d.Display.Width, "Window or headless surface width in pixels")
	fs.Int("height", d.Display.Height, "Window or headless surface height in pixels")
	fs.Int("hz", d.Display.Hz, "Frame rate")
	fs.Bool("emulate-epaper", d.Display.EmulateEPaper, "Show update modes the way an e-paper panel would")
	fs.String("fbdev", d.Display.FBDev, "Framebuffer device for the fbdev backend")

	fs.String("font", d.Font.Path, "TrueType/OpenType font file (default built-in Go Mono)")
	fs.Float64("font-size", d.Font.Size, "Font size in points")
	fs.Int("dpi", d.Font.DPI, "Display resolution in dots per inch")
	fs.Bool("bitmap-font", d.Font.Bitmap, "Use the built-in bitmap font")

	fs.Bool("bright-on-bold", d.Colors.UseBrightOnBold, "Show bold text in bright colours")
	fs.String("fg", d.Colors.DefaultFG.String(), "Default foreground colour")
	fs.String("bg", d.Colors.DefaultBG.String(), "Default background colour")
}

// FromFlags loads the file named by --config, if any, and applies the flags
// that were set on the command line.
func FromFlags(fs *pflag.FlagSet) (Config, error) {
	cfg := Default()
	if path, _ := fs.GetString("config"); path != "" {
		var err error
		if cfg, err = Load(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.applyFlags(fs); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyFlags(fs *pflag.FlagSet) error {
	var err error
	str := func(name string, dst *string) {
		if err == nil && fs.Changed(name) {
			*dst, err = fs.GetString(name)
		}
	}
	num := func(name string, dst *int) {
		if err == nil && fs.Changed(name) {
			*dst, err = fs.GetInt(name)
		}
	}
	flag := func(name string, dst *bool) {
		if err == nil && fs.Changed(name) {
			*dst, err = fs.GetBool(name)
		}
	}
	col := func(name string, dst *Color) {
		if err == nil && fs.Changed(name) {
			var s string
			if s, err = fs.GetString(name); err == nil {
				*dst, err = ParseColor(s)
			}
		}
	}

	str("backend", &c.General.Backend)
	num("orientation", &c.General.Orientation)
	str("shell", &c.General.Shell)
	str("encoding", &c.General.Encoding)
	str("log-level", &c.General.LogLevel)
	num("width", &c.Display.Width)
	num("height", &c.Display.Height)
	num("hz", &c.Display.Hz)
	flag("emulate-epaper", &c.Display.EmulateEPaper)
	str("fbdev", &c.Display.FBDev)
	str("font", &c.Font.Path)
	if err == nil && fs.Changed("font-size") {
		c.Font.Size, err = fs.GetFloat64("font-size")
	}
	num("dpi", &c.Font.DPI)
	flag("bitmap-font", &c.Font.Bitmap)
	flag("bright-on-bold", &c.Colors.UseBrightOnBold)
	col("fg", &c.Colors.DefaultFG)
	col("bg", &c.Colors.DefaultBG)
	return err
}
