package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/ngmaloney/marine-fieldmap/internal/field"
	"github.com/ngmaloney/marine-fieldmap/internal/gridstore"
	"github.com/ngmaloney/marine-fieldmap/internal/ui"
)

// Gulf of Maine, 0.05° cells
var desc = field.Descriptor{NCols: 80, NRows: 60, XLLCorner: -71, YLLCorner: 41.5, CellSize: 0.05}

// This demo shows the viewer on a synthetic eddy and sea temperature grid
func main() {
	dir, err := os.MkdirTemp("", "fieldmap-demo")
	if err != nil {
		fmt.Printf("Error creating demo database: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(dir)

	repo := gridstore.NewRepository(filepath.Join(dir, "fieldmap.db"))
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	repo.Log = logger

	if err := seed(repo); err != nil {
		fmt.Printf("Error creating demo grids: %v\n", err)
		os.Exit(1)
	}

	cfg := ui.DefaultConfig()
	cfg.ColorRamp = "extended-kindlmann"
	cfg.Zones = false
	cfg.Log = logger

	m := ui.NewModel(repo, cfg).WithGrid("eddy")
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running demo: %v\n", err)
		os.Exit(1)
	}
}

func seed(repo *gridstore.Repository) error {
	n := desc.NCols * desc.NRows
	u := make([]float64, n)
	v := make([]float64, n)
	sst := make([]float64, n)

	cx, cy := float64(desc.NCols)/2, float64(desc.NRows)/2
	for j := 0; j < desc.NRows; j++ {
		for i := 0; i < desc.NCols; i++ {
			k := j*desc.NCols + i
			dx, dy := float64(i)-cx, cy-float64(j)
			r := math.Hypot(dx, dy)
			// counter-clockwise eddy, fastest ten cells out
			speed := 1.5 * r / 10 * math.Exp(1-r/10)
			if r == 0 {
				u[k], v[k] = 0, 0
			} else {
				u[k], v[k] = -speed*dy/r, speed*dx/r
			}
			sst[k] = 8 + 6*float64(j)/float64(desc.NRows) + 2*math.Exp(-r*r/200)
			// a patch of land
			if i < 6 && j > desc.NRows-12 {
				u[k], v[k], sst[k] = math.NaN(), math.NaN(), math.NaN()
			}
		}
	}

	eddy, err := field.NewVectorGrid(desc, u, v)
	if err != nil {
		return err
	}
	if _, err := repo.SaveVector("eddy", "speed", eddy); err != nil {
		return err
	}
	temps, err := field.NewScalarGrid(desc, sst)
	if err != nil {
		return err
	}
	_, err = repo.SaveScalar("sea-temperature", "temperature", temps)
	return err
}
