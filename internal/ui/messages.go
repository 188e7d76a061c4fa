package ui

import (
	"database/sql"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ctessum/geom"

	"github.com/ngmaloney/marine-fieldmap/internal/field"
	"github.com/ngmaloney/marine-fieldmap/internal/gridstore"
	"github.com/ngmaloney/marine-fieldmap/internal/models"
	"github.com/ngmaloney/marine-fieldmap/internal/zones"
)

// Message types for async operations

// gridsFetchedMsg is sent when the stored grid list has been read
type gridsFetchedMsg struct {
	grids []models.GridInfo
	err   error
}

// gridLoadedMsg is sent when a grid has been rebuilt from the store
type gridLoadedMsg struct {
	field field.Field
	info  *models.GridInfo
	err   error
}

// zonesLoadedMsg is sent with the marine zones overlapping a grid
type zonesLoadedMsg struct {
	grid  string
	zones []zones.Zone
	err   error
}

// errMsg is a message type for errors
type errMsg struct {
	err error
}

// fetchGrids lists the stored grids in the background
func fetchGrids(r *gridstore.Repository) tea.Cmd {
	return func() tea.Msg {
		grids, err := r.List()
		return gridsFetchedMsg{grids: grids, err: err}
	}
}

// loadGrid rebuilds a stored grid in the background
func loadGrid(r *gridstore.Repository, name string) tea.Cmd {
	return func() tea.Msg {
		f, info, err := r.Load(name)
		return gridLoadedMsg{field: f, info: info, err: err}
	}
}

// loadZones reads the marine zone outlines covering the grid extent
func loadZones(dbPath, grid string, b *geom.Bounds) tea.Cmd {
	return func() tea.Msg {
		db, err := sql.Open("sqlite", dbPath)
		if err != nil {
			return zonesLoadedMsg{grid: grid, err: err}
		}
		defer db.Close()

		zs, err := zones.InBounds(db, b)
		return zonesLoadedMsg{grid: grid, zones: zs, err: err}
	}
}
