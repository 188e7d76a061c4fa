package models

import "testing"

func TestGridInfo_Bounds(t *testing.T) {
	tests := []struct {
		name                     string
		info                     GridInfo
		west, south, east, north float64
		cells                    int
	}{
		{
			name:  "gulf of maine",
			info:  GridInfo{NCols: 40, NRows: 20, XLLCorner: -71, YLLCorner: 42, CellSize: 0.1},
			west:  -71,
			south: 42,
			east:  -67,
			north: 44,
			cells: 800,
		},
		{
			name:  "single cell",
			info:  GridInfo{NCols: 1, NRows: 1, XLLCorner: 0, YLLCorner: 0, CellSize: 10},
			east:  10,
			north: 10,
			cells: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, s, e, n := tt.info.Bounds()
			if w != tt.west || s != tt.south || abs(e-tt.east) > 1e-9 || abs(n-tt.north) > 1e-9 {
				t.Errorf("Bounds() = (%v, %v, %v, %v), want (%v, %v, %v, %v)",
					w, s, e, n, tt.west, tt.south, tt.east, tt.north)
			}
			if got := tt.info.NumCells(); got != tt.cells {
				t.Errorf("NumCells() = %d, want %d", got, tt.cells)
			}
		})
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
