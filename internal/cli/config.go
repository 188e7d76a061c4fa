package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ngmaloney/marine-fieldmap/internal/colorscale"
	"github.com/ngmaloney/marine-fieldmap/internal/gridstore"
	"github.com/ngmaloney/marine-fieldmap/internal/legend"
	"github.com/ngmaloney/marine-fieldmap/internal/render"
	"github.com/ngmaloney/marine-fieldmap/internal/ui"
)

// Log is the logger every command hands to the packages it drives
var Log = logrus.New()

// setLogging applies log-level and log-file. The viewer owns the terminal, so
// it discards log output unless a file is given.
func setLogging(cmd *cobra.Command) error {
	level, err := logrus.ParseLevel(Cfg.GetString("log-level"))
	if err != nil {
		return err
	}
	Log.SetLevel(level)
	Log.SetOutput(cmd.ErrOrStderr())

	if path := Cfg.GetString("log-file"); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		Log.SetOutput(f)
	} else if cmd == viewCmd {
		Log.SetOutput(io.Discard)
	}
	return nil
}

func repository() *gridstore.Repository {
	r := gridstore.NewRepository(Cfg.GetString("db"))
	r.Log = Log
	return r
}

// renderOptions reads the drawing settings; the color is left to colorFunc
func renderOptions(cfg *viper.Viper) (render.Options, error) {
	opts := render.DefaultOptions()

	mode, err := render.ParseMode(cfg.GetString("mode"))
	if err != nil {
		return opts, err
	}
	orientation, err := render.ParseOrientation(cfg.GetString("orientation"))
	if err != nil {
		return opts, err
	}
	opts.Mode = mode
	opts.Orientation = orientation
	opts.Interpolate = cfg.GetBool("interpolate")
	opts.GlyphSize = cfg.GetFloat64("glyph-size")
	opts.SampleStep = cfg.GetInt("sample-step")
	if opts.SampleStep == 0 {
		// resolved per viewport by the caller
		return opts, nil
	}
	return opts, opts.Validate()
}

// colorFunc builds the value to color mapping for a field range
func colorFunc(cfg *viper.Viper, mode render.Mode, min, max float64) (colorscale.Func, error) {
	if s := cfg.GetString("glyph-color"); s != "" && mode == render.ModeVector {
		c, err := colorscale.Parse(s)
		if err != nil {
			return nil, err
		}
		return colorscale.Uniform(c), nil
	}
	return colorscale.Named(cfg.GetString("color"), min, max)
}

// legendOptions reads the color bar settings; storedUnits is the preset saved
// with the grid, used when units is not set
func legendOptions(cfg *viper.Viper, title, storedUnits string, min, max float64) (legend.Options, error) {
	opts := legend.DefaultOptions()
	opts.Title = title
	if t := cfg.GetString("title"); t != "" {
		opts.Title = t
	}
	opts.Steps = cfg.GetInt("steps")
	opts.Decimals = cfg.GetInt("decimals")

	units := cfg.GetString("units")
	if units == "" {
		units = storedUnits
	}
	opts.Units = legend.NamedUnits(units, opts.Decimals)

	anchor, err := legend.ParseAnchor(cfg.GetString("label-position"))
	if err != nil {
		return opts, err
	}
	opts.LabelPosition = anchor

	opts.Labels = []float64{min, max}
	if raw := cfg.GetStringSlice("labels"); len(raw) > 0 {
		opts.Labels = opts.Labels[:0]
		for _, s := range raw {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return opts, fmt.Errorf("parsing legend label %q: %w", s, err)
			}
			opts.Labels = append(opts.Labels, v)
		}
	}
	return opts, opts.Validate()
}

// uiConfig reads the viewer settings
func uiConfig(cfg *viper.Viper) (ui.Config, error) {
	c := ui.DefaultConfig()
	opts, err := renderOptions(cfg)
	if err != nil {
		return c, err
	}
	opts.GlyphSize = c.Render.GlyphSize
	if opts.SampleStep == 0 {
		opts.SampleStep = 2
	}
	c.Render = opts
	c.ColorRamp = cfg.GetString("color")
	if s := cfg.GetString("glyph-color"); s != "" {
		gc, err := colorscale.Parse(s)
		if err != nil {
			return c, err
		}
		c.GlyphColor = &gc
	}
	c.Units = cfg.GetString("units")
	c.Decimals = cfg.GetInt("decimals")
	c.Zones = cfg.GetBool("zones")
	c.Log = Log
	return c, nil
}
