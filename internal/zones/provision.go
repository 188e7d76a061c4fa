package zones

import (
	"archive/zip"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// MarineZonesURL is the NOAA coastal and offshore marine zones release
const MarineZonesURL = "https://www.weather.gov/source/gis/Shapefiles/WSOM/mz18mr25.zip"

// shapefile components kept when unpacking a release
var shapefileParts = map[string]bool{".shp": true, ".shx": true, ".dbf": true, ".prj": true, ".cpg": true}

// Importer loads marine zone shapefiles into the marine_zones table
type Importer struct {
	Log    logrus.FieldLogger
	Client *http.Client
	URL    string
}

// NewImporter returns an importer for the NOAA marine zones shapefile
func NewImporter() *Importer {
	return &Importer{
		Log:    logrus.StandardLogger(),
		Client: http.DefaultClient,
		URL:    MarineZonesURL,
	}
}

// NeedsImport reports whether the database has no marine_zones table yet
func NeedsImport(dbPath string) (bool, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return false, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	ok, err := HasTable(db)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// Provision downloads the NOAA shapefile and imports it unless the table exists.
// The archive and its contents live in a scratch directory next to the
// database and are removed afterwards.
func (im *Importer) Provision(ctx context.Context, dbPath string) error {
	needed, err := NeedsImport(dbPath)
	if err != nil || !needed {
		return err
	}

	dataDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	scratch, err := os.MkdirTemp(dataDir, "marine-zones-")
	if err != nil {
		return fmt.Errorf("creating scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	im.Log.WithField("url", im.URL).Info("downloading NOAA marine zones")
	shpPath, err := im.fetch(ctx, scratch)
	if err != nil {
		return fmt.Errorf("provisioning marine zones: %w", err)
	}

	_, err = im.Import(shpPath, dbPath)
	return err
}

// fetch downloads the release into dir, unpacks its shapefile components there
// and returns the path of the .shp
func (im *Importer) fetch(ctx context.Context, dir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, im.URL, nil)
	if err != nil {
		return "", err
	}
	resp, err := im.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GET %s: %s", im.URL, resp.Status)
	}

	archive, err := os.CreateTemp(dir, "*.zip")
	if err != nil {
		return "", err
	}
	defer archive.Close()
	size, err := io.Copy(archive, resp.Body)
	if err != nil {
		return "", fmt.Errorf("saving archive: %w", err)
	}

	zr, err := zip.NewReader(archive, size)
	if err != nil {
		return "", fmt.Errorf("reading archive: %w", err)
	}
	var shpPath string
	for _, f := range zr.File {
		name := filepath.Base(f.Name)
		ext := strings.ToLower(filepath.Ext(name))
		if f.FileInfo().IsDir() || !shapefileParts[ext] {
			continue
		}
		path := filepath.Join(dir, name)
		if err := extract(f, path); err != nil {
			return "", fmt.Errorf("extracting %s: %w", f.Name, err)
		}
		if ext == ".shp" {
			shpPath = path
		}
	}
	if shpPath == "" {
		return "", fmt.Errorf("no .shp file in %s", im.URL)
	}
	im.Log.WithFields(logrus.Fields{
		"bytes":     size,
		"shapefile": filepath.Base(shpPath),
	}).Debug("unpacked marine zones")
	return shpPath, nil
}

// extract copies one archive member to path. Member names are flattened by
// the caller, so path always stays inside the scratch directory.
func extract(f *zip.File, path string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Import creates the marine_zones table from a NOAA marine zone shapefile and
// returns the number of zones stored. Attribute columns follow the NOAA layout:
// 0 ID, 3 NAME, 4 LON, 5 LAT.
func (im *Importer) Import(shapefilePath, dbPath string) (int, error) {
	shape, err := shp.Open(shapefilePath)
	if err != nil {
		return 0, fmt.Errorf("opening shapefile: %w", err)
	}
	defer shape.Close()

	// Don't remove the database: it holds the grids too
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return 0, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	_, err = db.Exec(`
		DROP TABLE IF EXISTS marine_zones;
		CREATE TABLE marine_zones (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			zone_code TEXT NOT NULL,
			zone_name TEXT,
			geometry TEXT NOT NULL,
			bbox_min_lat REAL NOT NULL,
			bbox_max_lat REAL NOT NULL,
			bbox_min_lon REAL NOT NULL,
			bbox_max_lon REAL NOT NULL,
			center_lat REAL NOT NULL,
			center_lon REAL NOT NULL
		);

		CREATE INDEX idx_zones_bbox ON marine_zones(
			bbox_min_lat, bbox_max_lat, bbox_min_lon, bbox_max_lon
		);

		CREATE INDEX idx_zones_code ON marine_zones(zone_code);
		CREATE INDEX idx_zones_center ON marine_zones(center_lat, center_lon);
	`)
	if err != nil {
		return 0, fmt.Errorf("creating table: %w", err)
	}

	count := 0
	for shape.Next() {
		n, p := shape.Shape()

		zoneCode := attribute(shape, n, 0)
		zoneName := attribute(shape, n, 3)
		centerLon, _ := strconv.ParseFloat(attribute(shape, n, 4), 64)
		centerLat, _ := strconv.ParseFloat(attribute(shape, n, 5), 64)

		polygon, ok := p.(*shp.Polygon)
		if !ok {
			continue
		}
		bbox := polygon.BBox()

		geometryJSON, err := json.Marshal(largestPart(polygon))
		if err != nil {
			im.Log.WithError(err).WithField("zone", zoneCode).Warn("skipping zone geometry")
			continue
		}

		_, err = db.Exec(`
			INSERT INTO marine_zones (
				zone_code, zone_name, geometry,
				bbox_min_lat, bbox_max_lat, bbox_min_lon, bbox_max_lon,
				center_lat, center_lon
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, zoneCode, zoneName, string(geometryJSON),
			bbox.MinY, bbox.MaxY, bbox.MinX, bbox.MaxX,
			centerLat, centerLon)
		if err != nil {
			im.Log.WithError(err).WithField("zone", zoneCode).Warn("skipping zone")
			continue
		}

		count++
		if count%100 == 0 {
			im.Log.WithField("zones", count).Debug("importing marine zones")
		}
	}

	im.Log.WithField("zones", count).Info("imported marine zones")
	return count, nil
}

// attribute reads a DBF value without its padding
func attribute(shape *shp.Reader, row, field int) string {
	return strings.Trim(shape.ReadAttribute(row, field), "\x00 ")
}

// largestPart returns the part with the most points, the outer boundary for
// the NOAA zones
func largestPart(polygon *shp.Polygon) [][]float64 {
	largest, largestSize := 0, 0
	for k := range polygon.Parts {
		start, end := partRange(polygon, k)
		if end-start > largestSize {
			largest, largestSize = k, end-start
		}
	}

	start, end := partRange(polygon, largest)
	coords := make([][]float64, 0, end-start)
	for _, pt := range polygon.Points[start:end] {
		coords = append(coords, []float64{pt.X, pt.Y})
	}
	return coords
}

func partRange(polygon *shp.Polygon, k int) (start, end int) {
	if len(polygon.Parts) == 0 {
		return 0, len(polygon.Points)
	}
	start = int(polygon.Parts[k])
	end = len(polygon.Points)
	if k+1 < len(polygon.Parts) {
		end = int(polygon.Parts[k+1])
	}
	return start, end
}
