package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/dustin/go-humanize"

	"github.com/ngmaloney/marine-fieldmap/internal/models"
)

// gridItem wraps a stored grid for use in a list
type gridItem struct {
	info models.GridInfo
}

// FilterValue implements list.Item
func (g gridItem) FilterValue() string {
	return g.info.Name
}

// Title implements list.DefaultItem
func (g gridItem) Title() string {
	return g.info.Name
}

// Description implements list.DefaultItem
func (g gridItem) Description() string {
	desc := fmt.Sprintf("%s %dx%d • %s cells", g.info.Kind, g.info.NCols, g.info.NRows, humanize.Comma(int64(g.info.NumCells())))
	if g.info.Min != nil && g.info.Max != nil {
		desc += fmt.Sprintf(" • %.4g to %.4g", *g.info.Min, *g.info.Max)
	}
	if g.info.Units != "" {
		desc += " " + g.info.Units
	}
	if !g.info.CreatedAt.IsZero() {
		desc += " • " + humanize.Time(g.info.CreatedAt)
	}
	return desc
}

// createGridList creates a list.Model from stored grids
func createGridList(grids []models.GridInfo, width, height int) list.Model {
	items := make([]list.Item, len(grids))
	for i, g := range grids {
		items[i] = gridItem{info: g}
	}

	l := list.New(items, list.NewDefaultDelegate(), width, height)
	l.Title = "Select a Grid"
	l.SetShowHelp(true)
	l.SetFilteringEnabled(true)

	return l
}
