// Package zones stores NOAA marine zone outlines for drawing over a field and
// for naming the zone under a probed point.
package zones

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/ctessum/geom"
	_ "modernc.org/sqlite"
)

// ErrZoneNotFound is returned by ByCode for an unknown zone code
var ErrZoneNotFound = errors.New("zone not found")

// Zone is a marine zone outline
type Zone struct {
	Code     string
	Name     string
	Ring     []geom.Point // lon/lat, largest part of the zone polygon
	Bounds   *geom.Bounds
	Center   geom.Point
	Distance float64 // miles, set by Nearby
}

// Contains reports whether the point lies inside the zone outline
func (z Zone) Contains(lon, lat float64) bool {
	if len(z.Ring) < 3 {
		return false
	}
	p := geom.Point{X: lon, Y: lat}
	if z.Bounds != nil && !z.Bounds.Overlaps(geom.NewBoundsPoint(p)) {
		return false
	}
	return p.Within(geom.Polygon{z.Ring}) != geom.Outside
}

// HaversineDistance calculates distance in miles between two lat/lon points
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusMiles = 3959.0

	// Convert to radians
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMiles * c
}

// HasTable reports whether the marine_zones table exists
func HasTable(db *sql.DB) (bool, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='marine_zones'").Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking for marine_zones table: %w", err)
	}
	return count > 0, nil
}

const zoneColumns = `zone_code, zone_name, geometry,
	bbox_min_lat, bbox_max_lat, bbox_min_lon, bbox_max_lon,
	center_lat, center_lon`

// InBounds returns the zones whose bounding box overlaps b
func InBounds(db *sql.DB, b *geom.Bounds) ([]Zone, error) {
	ok, err := HasTable(db)
	if err != nil || !ok {
		return nil, err
	}

	rows, err := db.Query(`SELECT `+zoneColumns+`
		FROM marine_zones
		WHERE bbox_max_lat >= ? AND bbox_min_lat <= ?
		  AND bbox_max_lon >= ? AND bbox_min_lon <= ?
		ORDER BY zone_code`,
		b.Min.Y, b.Max.Y, b.Min.X, b.Max.X)
	if err != nil {
		return nil, fmt.Errorf("querying zones: %w", err)
	}
	defer rows.Close()

	var zones []Zone
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, err
		}
		zones = append(zones, *z)
	}
	return zones, rows.Err()
}

// Nearby finds marine zones whose center is within maxDistanceMiles, closest first
func Nearby(db *sql.DB, lat, lon float64, maxDistanceMiles float64) ([]Zone, error) {
	ok, err := HasTable(db)
	if err != nil || !ok {
		return nil, err
	}

	// Rough bounding box filter before computing distances
	latDelta := maxDistanceMiles / 69.0 * 1.5 // Add 50% margin
	lonDelta := maxDistanceMiles / 55.0 * 1.5 // Longitude degrees are smaller at higher latitudes

	rows, err := db.Query(`SELECT `+zoneColumns+`
		FROM marine_zones
		WHERE center_lat BETWEEN ? AND ?
		  AND center_lon BETWEEN ? AND ?`,
		lat-latDelta, lat+latDelta,
		lon-lonDelta, lon+lonDelta)
	if err != nil {
		return nil, fmt.Errorf("querying zones: %w", err)
	}
	defer rows.Close()

	var zones []Zone
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			continue
		}
		z.Distance = HaversineDistance(lat, lon, z.Center.Y, z.Center.X)
		if z.Distance <= maxDistanceMiles {
			zones = append(zones, *z)
		}
	}

	// Sort by distance (closest first)
	sort.Slice(zones, func(i, j int) bool {
		return zones[i].Distance < zones[j].Distance
	})

	return zones, nil
}

// At returns the zone containing lon/lat, preferring the closest center when
// outlines overlap
func At(db *sql.DB, lon, lat float64) (*Zone, error) {
	b := geom.NewBoundsPoint(geom.Point{X: lon, Y: lat})
	candidates, err := InBounds(db, b)
	if err != nil {
		return nil, err
	}
	var best *Zone
	for i := range candidates {
		z := &candidates[i]
		if !z.Contains(lon, lat) {
			continue
		}
		z.Distance = HaversineDistance(lat, lon, z.Center.Y, z.Center.X)
		if best == nil || z.Distance < best.Distance {
			best = z
		}
	}
	return best, nil
}

// ByCode retrieves a single marine zone
func ByCode(db *sql.DB, zoneCode string) (*Zone, error) {
	row := db.QueryRow(`SELECT `+zoneColumns+` FROM marine_zones WHERE zone_code = ?`, zoneCode)
	z, err := scanZone(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrZoneNotFound, zoneCode)
	}
	if err != nil {
		return nil, fmt.Errorf("querying zone by code: %w", err)
	}
	return z, nil
}

// Rings returns the outline of every zone
func Rings(zones []Zone) [][]geom.Point {
	rings := make([][]geom.Point, 0, len(zones))
	for _, z := range zones {
		rings = append(rings, z.Ring)
	}
	return rings
}

type scanner interface {
	Scan(dest ...any) error
}

func scanZone(s scanner) (*Zone, error) {
	var (
		z                              Zone
		name                           sql.NullString
		geometry                       string
		minLat, maxLat, minLon, maxLon float64
		centerLat, centerLon           float64
	)
	err := s.Scan(&z.Code, &name, &geometry, &minLat, &maxLat, &minLon, &maxLon, &centerLat, &centerLon)
	if err != nil {
		return nil, err
	}
	z.Name = name.String
	z.Bounds = &geom.Bounds{
		Min: geom.Point{X: minLon, Y: minLat},
		Max: geom.Point{X: maxLon, Y: maxLat},
	}
	z.Center = geom.Point{X: centerLon, Y: centerLat}

	var coords [][]float64
	if err := json.Unmarshal([]byte(geometry), &coords); err != nil {
		return nil, fmt.Errorf("decoding geometry of %s: %w", z.Code, err)
	}
	z.Ring = make([]geom.Point, 0, len(coords))
	for _, c := range coords {
		if len(c) >= 2 {
			z.Ring = append(z.Ring, geom.Point{X: c[0], Y: c[1]})
		}
	}
	return &z, nil
}
