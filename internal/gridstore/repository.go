// Package gridstore persists grids and legend state in the shared SQLite database.
package gridstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/ngmaloney/marine-fieldmap/internal/database"
	"github.com/ngmaloney/marine-fieldmap/internal/field"
	"github.com/ngmaloney/marine-fieldmap/internal/models"
)

// ErrNotFound is returned when no grid has the requested name
var ErrNotFound = errors.New("grid not found")

// Repository handles persistence for imported grids. It also implements
// legend.StateStore.
type Repository struct {
	Log    logrus.FieldLogger
	dbPath string
}

// NewRepository creates a repository over the database at dbPath; an empty
// path uses database.DBPath()
func NewRepository(dbPath string) *Repository {
	if dbPath == "" {
		dbPath = database.DBPath()
	}
	return &Repository{Log: logrus.StandardLogger(), dbPath: dbPath}
}

// DBPath returns the database file the repository writes to
func (r *Repository) DBPath() string {
	return r.dbPath
}

func (r *Repository) open() (*sql.DB, error) {
	// Ensure schema exists (safe to call multiple times)
	if err := database.EnsureSchema(r.dbPath); err != nil {
		return nil, err
	}
	return database.Open(r.dbPath)
}

// SaveScalar stores a scalar grid under name, replacing any grid of that name
func (r *Repository) SaveScalar(name, units string, g *field.ScalarGrid) (*models.GridInfo, error) {
	return r.save(name, units, field.KindScalar, g, g.Descriptor(), g.Values(), nil)
}

// SaveVector stores a vector grid under name, replacing any grid of that name
func (r *Repository) SaveVector(name, units string, g *field.VectorGrid) (*models.GridInfo, error) {
	u, v := g.Components()
	return r.save(name, units, field.KindVector, g, g.Descriptor(), u, v)
}

func (r *Repository) save(name, units string, kind field.Kind, f field.Field, d field.Descriptor, u, v []float64) (*models.GridInfo, error) {
	db, err := r.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	uJSON, err := encodeValues(u)
	if err != nil {
		return nil, err
	}
	var vJSON sql.NullString
	if v != nil {
		s, err := encodeValues(v)
		if err != nil {
			return nil, err
		}
		vJSON = sql.NullString{String: s, Valid: true}
	}

	info := &models.GridInfo{
		Name:      name,
		Kind:      string(kind),
		Units:     units,
		NCols:     d.NCols,
		NRows:     d.NRows,
		XLLCorner: d.XLLCorner,
		YLLCorner: d.YLLCorner,
		CellSize:  d.CellSize,
		CreatedAt: time.Now(),
	}
	var vmin, vmax sql.NullFloat64
	if lo, hi, ok := f.Range(); ok {
		info.Min, info.Max = &lo, &hi
		vmin = sql.NullFloat64{Float64: lo, Valid: true}
		vmax = sql.NullFloat64{Float64: hi, Valid: true}
	}

	query := `
		INSERT INTO grids (name, kind, units, ncols, nrows, xllcorner, yllcorner, cellsize, value_min, value_max, u_values, v_values, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			kind = excluded.kind,
			units = excluded.units,
			ncols = excluded.ncols,
			nrows = excluded.nrows,
			xllcorner = excluded.xllcorner,
			yllcorner = excluded.yllcorner,
			cellsize = excluded.cellsize,
			value_min = excluded.value_min,
			value_max = excluded.value_max,
			u_values = excluded.u_values,
			v_values = excluded.v_values,
			created_at = excluded.created_at
	`
	_, err = db.Exec(query,
		info.Name,
		info.Kind,
		info.Units,
		info.NCols,
		info.NRows,
		info.XLLCorner,
		info.YLLCorner,
		info.CellSize,
		vmin,
		vmax,
		uJSON,
		vJSON,
		info.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("saving grid %s: %w", name, err)
	}

	// LastInsertId is not reliable after an upsert
	if err := db.QueryRow("SELECT id FROM grids WHERE name = ?", name).Scan(&info.ID); err != nil {
		return nil, fmt.Errorf("getting grid id: %w", err)
	}

	r.Log.WithFields(logrus.Fields{"grid": name, "kind": kind, "cells": info.NumCells()}).Info("saved grid")
	return info, nil
}

// List retrieves all stored grids without their values
func (r *Repository) List() ([]models.GridInfo, error) {
	db, err := r.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(`SELECT id, name, kind, units, ncols, nrows, xllcorner, yllcorner, cellsize, value_min, value_max, created_at
		FROM grids ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying grids: %w", err)
	}
	defer rows.Close()

	var grids []models.GridInfo
	for rows.Next() {
		g, err := scanInfo(rows)
		if err != nil {
			return nil, err
		}
		grids = append(grids, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading grids: %w", err)
	}

	return grids, nil
}

// Info returns the description of one grid
func (r *Repository) Info(name string) (*models.GridInfo, error) {
	db, err := r.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	row := db.QueryRow(`SELECT id, name, kind, units, ncols, nrows, xllcorner, yllcorner, cellsize, value_min, value_max, created_at
		FROM grids WHERE name = ?`, name)
	g, err := scanInfo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return g, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInfo(s scanner) (*models.GridInfo, error) {
	var g models.GridInfo
	var units sql.NullString // Handle potential nulls
	var vmin, vmax sql.NullFloat64
	err := s.Scan(&g.ID, &g.Name, &g.Kind, &units, &g.NCols, &g.NRows,
		&g.XLLCorner, &g.YLLCorner, &g.CellSize, &vmin, &vmax, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning grid: %w", err)
	}
	g.Units = units.String
	if vmin.Valid && vmax.Valid {
		g.Min, g.Max = &vmin.Float64, &vmax.Float64
	}
	return &g, nil
}

// Load rebuilds the named grid
func (r *Repository) Load(name string) (field.Field, *models.GridInfo, error) {
	db, err := r.open()
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()

	var (
		info       models.GridInfo
		units      sql.NullString
		uJSON      string
		vJSON      sql.NullString
		vmin, vmax sql.NullFloat64
	)
	err = db.QueryRow(`SELECT id, name, kind, units, ncols, nrows, xllcorner, yllcorner, cellsize, value_min, value_max, u_values, v_values, created_at
		FROM grids WHERE name = ?`, name).Scan(
		&info.ID, &info.Name, &info.Kind, &units, &info.NCols, &info.NRows,
		&info.XLLCorner, &info.YLLCorner, &info.CellSize, &vmin, &vmax, &uJSON, &vJSON, &info.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading grid %s: %w", name, err)
	}
	info.Units = units.String
	if vmin.Valid && vmax.Valid {
		info.Min, info.Max = &vmin.Float64, &vmax.Float64
	}

	d := field.Descriptor{
		NCols:     info.NCols,
		NRows:     info.NRows,
		XLLCorner: info.XLLCorner,
		YLLCorner: info.YLLCorner,
		CellSize:  info.CellSize,
	}
	u, err := decodeValues(uJSON)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding grid %s: %w", name, err)
	}

	switch field.Kind(info.Kind) {
	case field.KindScalar:
		g, err := field.NewScalarGrid(d, u)
		if err != nil {
			return nil, nil, fmt.Errorf("rebuilding grid %s: %w", name, err)
		}
		return g, &info, nil
	case field.KindVector:
		if !vJSON.Valid {
			return nil, nil, fmt.Errorf("rebuilding grid %s: vector grid without v values", name)
		}
		v, err := decodeValues(vJSON.String)
		if err != nil {
			return nil, nil, fmt.Errorf("decoding grid %s: %w", name, err)
		}
		g, err := field.NewVectorGrid(d, u, v)
		if err != nil {
			return nil, nil, fmt.Errorf("rebuilding grid %s: %w", name, err)
		}
		return g, &info, nil
	}
	return nil, nil, fmt.Errorf("rebuilding grid %s: unknown kind %q", name, info.Kind)
}

// Delete removes a grid by name
func (r *Repository) Delete(name string) error {
	db, err := r.open()
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := db.Exec("DELETE FROM grids WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting grid: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	return nil
}

// LoadUnitIndex returns the persisted legend unit for key
func (r *Repository) LoadUnitIndex(key string) (int, bool, error) {
	db, err := r.open()
	if err != nil {
		return 0, false, err
	}
	defer db.Close()

	var idx int
	err = db.QueryRow("SELECT unit_index FROM legend_state WHERE legend_key = ?", key).Scan(&idx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("querying legend state: %w", err)
	}
	return idx, true, nil
}

// SaveUnitIndex persists the legend unit for key
func (r *Repository) SaveUnitIndex(key string, idx int) error {
	db, err := r.open()
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.Exec(`
		INSERT INTO legend_state (legend_key, unit_index, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(legend_key) DO UPDATE SET
			unit_index = excluded.unit_index,
			updated_at = excluded.updated_at
	`, key, idx, time.Now())
	if err != nil {
		return fmt.Errorf("saving legend state: %w", err)
	}
	return nil
}

// encodeValues writes values as a JSON array with null for no-data
func encodeValues(values []float64) (string, error) {
	out := make([]*float64, len(values))
	for k := range values {
		if !math.IsNaN(values[k]) {
			out[k] = &values[k]
		}
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encoding values: %w", err)
	}
	return string(b), nil
}

func decodeValues(s string) ([]float64, error) {
	var in []*float64
	if err := json.Unmarshal([]byte(s), &in); err != nil {
		return nil, err
	}
	out := make([]float64, len(in))
	for k, p := range in {
		if p == nil {
			out[k] = math.NaN()
			continue
		}
		out[k] = *p
	}
	return out, nil
}
