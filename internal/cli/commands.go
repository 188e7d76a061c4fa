package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ctessum/geom"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/ngmaloney/marine-fieldmap/internal/field"
	"github.com/ngmaloney/marine-fieldmap/internal/gridio"
	"github.com/ngmaloney/marine-fieldmap/internal/legend"
	"github.com/ngmaloney/marine-fieldmap/internal/models"
	"github.com/ngmaloney/marine-fieldmap/internal/render"
	"github.com/ngmaloney/marine-fieldmap/internal/ui"
	"github.com/ngmaloney/marine-fieldmap/internal/viewport"
	"github.com/ngmaloney/marine-fieldmap/internal/zones"
)

const (
	// fullResZoom is the zoom from which auto sampling switches to every pixel
	fullResZoom = 10.0
	// nearbyMiles bounds the zone search for probes outside every outline
	nearbyMiles = 25.0
)

var importCmd = &cobra.Command{
	Use:   "import NAME FILE [VFILE]",
	Short: "Import a grid",
	Long: `import reads a grid and stores it under NAME, replacing any grid of that
name. One ESRI ASCII file (.asc, .txt) makes a scalar grid; two make a vector
grid from the u (eastward) and v (northward) components. A .json file holds
either kind.`,
	Args:              cobra.RangeArgs(2, 3),
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := gridio.Open(args[1:]...)
		if err != nil {
			return err
		}

		r := repository()
		units := Cfg.GetString("units")
		var info *models.GridInfo
		switch g := f.(type) {
		case *field.ScalarGrid:
			info, err = r.SaveScalar(args[0], units, g)
		case *field.VectorGrid:
			info, err = r.SaveVector(args[0], units, g)
		default:
			err = fmt.Errorf("unsupported grid type %T", f)
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "imported %s: %s, %dx%d, %s cells\n",
			info.Name, info.Kind, info.NCols, info.NRows, humanize.Comma(int64(info.NumCells())))
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:               "list",
	Short:             "List stored grids",
	Args:              cobra.NoArgs,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		grids, err := repository().List()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(grids) == 0 {
			fmt.Fprintln(out, "no grids stored")
			return nil
		}
		for _, g := range grids {
			fmt.Fprintf(out, "%-20s %-7s %-12s %10s cells  %s\n",
				g.Name, g.Kind, g.Units, humanize.Comma(int64(g.NumCells())), humanize.Time(g.CreatedAt))
		}
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:               "delete NAME",
	Short:             "Delete a stored grid",
	Args:              cobra.ExactArgs(1),
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := repository().Delete(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:               "info NAME",
	Short:             "Describe a stored grid as JSON",
	Args:              cobra.ExactArgs(1),
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := repository().Info(args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, info)
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe NAME LON LAT",
	Short: "Print the field value at a point",
	Long: `probe prints the value of a stored grid at a point, in the active legend
unit, and the marine zone containing it. Put negative coordinates after "--",
e.g. "fieldmap probe currents -- -70.5 42.1".`,
	Args:              cobra.ExactArgs(3),
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		lon, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("parsing longitude: %w", err)
		}
		lat, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("parsing latitude: %w", err)
		}

		r := repository()
		f, info, err := r.Load(args[0])
		if err != nil {
			return err
		}
		lo, hi, _ := f.Range()
		opts, err := legendOptions(Cfg, info.Name, info.Units, lo, hi)
		if err != nil {
			return err
		}
		cb, err := legend.New(info.Name, nil, lo, hi, opts, r)
		if err != nil {
			return err
		}
		cb.Log = Log
		if _, err := cb.Show(); err != nil {
			return err
		}

		lookup := f.NearestValueAt
		if Cfg.GetBool("interpolate") {
			lookup = f.ValueAt
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%.4f %.4f: ", lon, lat)
		switch v, ok := lookup(lon, lat); {
		case !f.Contains(lon, lat):
			fmt.Fprint(out, "outside grid")
		case !ok:
			fmt.Fprint(out, "no data")
		default:
			fmt.Fprint(out, cb.Format(v.Magnitude()))
			if u := cb.Unit(); u.Label != "" {
				fmt.Fprint(out, " ", u.Label)
			}
			if _, isVector := v.(field.Vector); isVector {
				fmt.Fprintf(out, " from %03.0f°", v.Direction())
			}
		}
		fmt.Fprintln(out)

		if !Cfg.GetBool("zones") {
			return nil
		}
		z, err := zoneAt(r.DBPath(), lon, lat)
		if err != nil {
			return err
		}
		if z != nil {
			fmt.Fprintf(out, "zone %s %s\n", z.Code, z.Name)
		}
		return nil
	},
}

// zoneAt returns the zone containing the point, or the closest zone center
// within nearbyMiles
func zoneAt(dbPath string, lon, lat float64) (*zones.Zone, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	z, err := zones.At(db, lon, lat)
	if err != nil || z != nil {
		return z, err
	}
	near, err := zones.Nearby(db, lat, lon, nearbyMiles)
	if err != nil || len(near) == 0 {
		return nil, err
	}
	return &near[0], nil
}

var renderCmd = &cobra.Command{
	Use:   "render NAME",
	Short: "Draw a stored grid to a PNG image",
	Long: `render draws a stored grid as a color-mapped raster or as arrows, with
marine zone outlines on top, and writes it as a PNG (NAME.png unless --output
is set).`,
	Args:              cobra.ExactArgs(1),
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		r := repository()
		f, info, err := r.Load(args[0])
		if err != nil {
			return err
		}

		vp, err := renderViewport(info)
		if err != nil {
			return err
		}

		opts, err := renderOptions(Cfg)
		if err != nil {
			return err
		}
		if opts.SampleStep == 0 {
			opts.SampleStep = render.StepForZoom(vp.Zoom(), fullResZoom)
		}
		lo, hi, ok := f.Range()
		if !ok {
			lo, hi = 0, 1
		}
		if opts.Color, err = colorFunc(Cfg, opts.Mode, lo, hi); err != nil {
			return err
		}

		layer, err := render.NewLayer(info.Name, f, opts)
		if err != nil {
			return err
		}
		layer.Log = Log
		frame, err := layer.Draw(vp)
		if err != nil {
			return err
		}

		var overlays []render.Polyline
		if Cfg.GetBool("zones") {
			if overlays, err = zoneOverlay(r.DBPath(), vp); err != nil {
				return err
			}
		}

		path := Cfg.GetString("output")
		if path == "" {
			path = info.Name + ".png"
		}
		if err := writeFile(path, func(w *os.File) error {
			return render.WritePNG(w, frame, overlays)
		}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

// renderViewport fits the grid unless a zoom is given
func renderViewport(info *models.GridInfo) (*viewport.Mercator, error) {
	width, height := Cfg.GetInt("width"), Cfg.GetInt("height")
	if zoom := Cfg.GetFloat64("zoom"); zoom >= 0 {
		center := geom.Point{X: Cfg.GetFloat64("center-lon"), Y: Cfg.GetFloat64("center-lat")}
		return viewport.NewMercator(center, zoom, width, height)
	}
	west, south, east, north := info.Bounds()
	b := &geom.Bounds{Min: geom.Point{X: west, Y: south}, Max: geom.Point{X: east, Y: north}}
	return viewport.Fit(b, width, height)
}

func zoneOverlay(dbPath string, vp viewport.Viewport) ([]render.Polyline, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	zs, err := zones.InBounds(db, vp.Bounds())
	if err != nil {
		return nil, err
	}
	Log.WithField("zones", len(zs)).Debug("drawing zone outlines")
	return render.Overlay(vp, zones.Rings(zs), color.Black), nil
}

var legendCmd = &cobra.Command{
	Use:   "legend NAME",
	Short: "Draw the color bar of a stored grid to a PNG image",
	Long: `legend draws the color bar of a stored grid in its active unit and writes
it as a PNG (NAME-legend.png unless --output is set). With --next-unit the
legend first moves to the following unit and remembers it for later runs.`,
	Args:              cobra.ExactArgs(1),
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		r := repository()
		f, info, err := r.Load(args[0])
		if err != nil {
			return err
		}
		lo, hi, ok := f.Range()
		if !ok {
			lo, hi = 0, 1
		}
		ramp, err := colorFunc(Cfg, render.ModeColormap, lo, hi)
		if err != nil {
			return err
		}
		opts, err := legendOptions(Cfg, info.Name, info.Units, lo, hi)
		if err != nil {
			return err
		}
		cb, err := legend.New(info.Name, ramp, lo, hi, opts, r)
		if err != nil {
			return err
		}
		cb.Log = Log

		view, err := cb.Show()
		if err != nil {
			return err
		}
		if Cfg.GetBool("next-unit") {
			if view, err = cb.Next(); err != nil {
				return err
			}
		}

		path := Cfg.GetString("output")
		if path == "" {
			path = info.Name + "-legend.png"
		}
		if err := writeFile(path, func(w *os.File) error {
			return legend.WritePNG(w, view)
		}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s)\n", path, view.Title)
		return nil
	},
}

func writeFile(path string, write func(*os.File) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	w, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(w); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

var viewCmd = &cobra.Command{
	Use:   "view [NAME]",
	Short: "Browse stored grids in the terminal",
	Long: `view opens the terminal viewer on the grid list, or straight on NAME.
Arrows pan, +/- zoom, m switches between colormap and arrows, i toggles
interpolation, p the sample step and u the legend unit.`,
	Args:              cobra.MaximumNArgs(1),
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := uiConfig(Cfg)
		if err != nil {
			return err
		}
		m := ui.NewModel(repository(), cfg)
		if len(args) == 1 {
			m = m.WithGrid(args[0])
		}
		p := tea.NewProgram(m, tea.WithAltScreen())
		_, err = p.Run()
		return err
	},
}

var zonesCmd = &cobra.Command{
	Use:   "zones NAME",
	Short: "List the marine zones over a stored grid",
	Long: `zones lists the NOAA marine zones whose outline overlaps a stored grid.
Use "zones import" to load the outlines first.`,
	Args:              cobra.ExactArgs(1),
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		r := repository()
		info, err := r.Info(args[0])
		if err != nil {
			return err
		}

		db, err := sql.Open("sqlite", r.DBPath())
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		ok, err := zones.HasTable(db)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New(`no marine zones imported, run "fieldmap zones import"`)
		}
		west, south, east, north := info.Bounds()
		zs, err := zones.InBounds(db, &geom.Bounds{
			Min: geom.Point{X: west, Y: south},
			Max: geom.Point{X: east, Y: north},
		})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, z := range zs {
			fmt.Fprintf(out, "%-8s %s\n", z.Code, z.Name)
		}
		return nil
	},
}

var zonesImportCmd = &cobra.Command{
	Use:   "import [SHAPEFILE]",
	Short: "Load NOAA marine zone outlines",
	Long: `import loads marine zone outlines from a NOAA marine zone shapefile. Without
a file it downloads the current NOAA release, unless zones are already loaded.`,
	Args:              cobra.MaximumNArgs(1),
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath := Cfg.GetString("db")
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
		im := zones.NewImporter()
		im.Log = Log
		if len(args) == 0 {
			return im.Provision(context.Background(), dbPath)
		}
		n, err := im.Import(args[0], dbPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d marine zones\n", n)
		return nil
	},
}
