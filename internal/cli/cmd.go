// Package cli holds the fieldmap command tree and its configuration.
package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version is the fieldmap release
const Version = "0.3.0"

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(importCmd)
	Root.AddCommand(listCmd)
	Root.AddCommand(deleteCmd)
	Root.AddCommand(infoCmd)
	Root.AddCommand(probeCmd)
	Root.AddCommand(renderCmd)
	Root.AddCommand(legendCmd)
	Root.AddCommand(viewCmd)
	Root.AddCommand(zonesCmd)
	zonesCmd.AddCommand(zonesImportCmd)

	drawing := []*pflag.FlagSet{renderCmd.Flags(), viewCmd.Flags(), probeCmd.Flags()}
	legends := []*pflag.FlagSet{legendCmd.Flags(), viewCmd.Flags(), probeCmd.Flags(), importCmd.Flags()}

	// Options are the configuration options available to fieldmap.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "db",
			usage: `
              db is the SQLite database holding grids, legend state
              and marine zone outlines.`,
			defaultVal: "data/fieldmap.db",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "log-level",
			usage: `
              log-level is the minimum level logged: debug, info, warn
              or error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "log-file",
			usage: `
              log-file receives log output instead of standard error.
              The viewer only logs when it is set.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "mode",
			usage: `
              mode selects how the field is drawn: "colormap" paints
              every pixel, "vector" draws an arrow per grid cell.`,
			shorthand:  "m",
			defaultVal: "colormap",
			flagsets:   drawing,
		},
		{
			name: "color",
			usage: `
              color is the color ramp over the field range, one of
              grayscale, smooth-blue-red, smooth-green-purple,
              black-body, extended-black-body, kindlmann or
              extended-kindlmann.`,
			shorthand:  "c",
			defaultVal: "grayscale",
			flagsets:   append(drawing, legendCmd.Flags()),
		},
		{
			name: "glyph-color",
			usage: `
              glyph-color draws every arrow in one color (e.g. "#000000").
              Empty colors arrows with the ramp.`,
			defaultVal: "",
			flagsets:   drawing,
		},
		{
			name: "interpolate",
			usage: `
              interpolate selects bilinear interpolation between cell
              centers instead of the value of the cell under each pixel.`,
			shorthand:  "i",
			defaultVal: false,
			flagsets:   drawing,
		},
		{
			name: "glyph-size",
			usage: `
              glyph-size is the arrow length in pixels.`,
			defaultVal: 20.0,
			flagsets:   []*pflag.FlagSet{renderCmd.Flags()},
		},
		{
			name: "orientation",
			usage: `
              orientation of the arrows: "from" points where the flow
              comes from, "towards" where it goes.`,
			defaultVal: "from",
			flagsets:   drawing,
		},
		{
			name: "sample-step",
			usage: `
              sample-step is the raster sampling stride: 1 for full
              resolution, 2 for one lookup per 2x2 pixel block, 0 to
              pick from the zoom level.`,
			defaultVal: 2,
			flagsets:   drawing,
		},
		{
			name: "width",
			usage: `
              width of the output image in pixels.`,
			defaultVal: 800,
			flagsets:   []*pflag.FlagSet{renderCmd.Flags()},
		},
		{
			name: "height",
			usage: `
              height of the output image in pixels.`,
			defaultVal: 600,
			flagsets:   []*pflag.FlagSet{renderCmd.Flags()},
		},
		{
			name: "zoom",
			usage: `
              zoom is the web map zoom level of the output. A negative
              zoom fits the whole grid.`,
			defaultVal: -1.0,
			flagsets:   []*pflag.FlagSet{renderCmd.Flags()},
		},
		{
			name: "center-lon",
			usage: `
              center-lon is the longitude at the image center when zoom
              is set.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{renderCmd.Flags()},
		},
		{
			name: "center-lat",
			usage: `
              center-lat is the latitude at the image center when zoom
              is set.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{renderCmd.Flags()},
		},
		{
			name: "zones",
			usage: `
              zones draws NOAA marine zone outlines over the field and
              names the zone under probed points.`,
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{renderCmd.Flags(), viewCmd.Flags(), probeCmd.Flags()},
		},
		{
			name: "units",
			usage: `
              units is the legend unit preset: speed, direction,
              temperature, or any other label for unconverted values.
              On import it is stored with the grid.`,
			shorthand:  "u",
			defaultVal: "",
			flagsets:   legends,
		},
		{
			name: "decimals",
			usage: `
              decimals is the precision of values without a unit preset.`,
			defaultVal: 2,
			flagsets:   []*pflag.FlagSet{legendCmd.Flags(), viewCmd.Flags(), probeCmd.Flags()},
		},
		{
			name: "steps",
			usage: `
              steps is the number of color buckets in the legend.`,
			defaultVal: 100,
			flagsets:   []*pflag.FlagSet{legendCmd.Flags()},
		},
		{
			name: "title",
			usage: `
              title of the legend. Empty uses the grid name.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{legendCmd.Flags()},
		},
		{
			name: "labels",
			usage: `
              labels are the values marked under the legend bar.
              Empty marks the minimum and the maximum.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{legendCmd.Flags()},
		},
		{
			name: "label-position",
			usage: `
              label-position anchors the legend labels: start, middle
              or end.`,
			defaultVal: "middle",
			flagsets:   []*pflag.FlagSet{legendCmd.Flags()},
		},
		{
			name: "next-unit",
			usage: `
              next-unit switches the legend to the following unit
              before drawing, and remembers it.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{legendCmd.Flags()},
		},
		{
			name: "output",
			usage: `
              output is the PNG file written. Empty uses the grid name.`,
			shorthand:  "o",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{renderCmd.Flags(), legendCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("FIELDMAP")
	Cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("fieldmap: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "fieldmap",
	Short: "Draw gridded marine fields as colormaps and arrows.",
	Long: `fieldmap imports regular lon/lat grids (ESRI ASCII rasters or JSON),
stores them in a local database and draws them: as a color-mapped raster or
as arrows for vector fields, with a color bar legend whose units can be cycled.
Use the subcommands specified below to access the functionality.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'FIELDMAP_var' where 'var' is
the name of the variable to be set, with dashes replaced by underscores.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := setConfig(); err != nil {
			return err
		}
		return setLogging(cmd)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of fieldmap.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "fieldmap v%s\n", Version)
	},
	DisableAutoGenTag: true,
}

// printJSON writes v indented for scripting
func printJSON(cmd *cobra.Command, v interface{}) error {
	b := bytes.NewBuffer(nil)
	e := json.NewEncoder(b)
	e.SetIndent("", "  ")
	if err := e.Encode(v); err != nil {
		return err
	}
	_, err := cmd.OutOrStdout().Write(b.Bytes())
	return err
}
