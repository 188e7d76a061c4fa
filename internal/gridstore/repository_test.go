package gridstore

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/ngmaloney/marine-fieldmap/internal/field"
	"github.com/ngmaloney/marine-fieldmap/internal/legend"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	r := NewRepository(filepath.Join(t.TempDir(), "test.db"))
	logger, _ := test.NewNullLogger()
	r.Log = logger
	return r
}

var desc = field.Descriptor{NCols: 2, NRows: 2, XLLCorner: -71, YLLCorner: 42, CellSize: 0.5}

func TestRepository_ScalarRoundTrip(t *testing.T) {
	r := newTestRepository(t)

	g, err := field.NewScalarGrid(desc, []float64{1, math.NaN(), 3, 4})
	if err != nil {
		t.Fatalf("NewScalarGrid() error = %v", err)
	}
	info, err := r.SaveScalar("sst", "temperature", g)
	if err != nil {
		t.Fatalf("SaveScalar() error = %v", err)
	}
	if info.ID == 0 || *info.Min != 1 || *info.Max != 4 {
		t.Errorf("SaveScalar() info = %+v", info)
	}

	loaded, got, err := r.Load("sst")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Units != "temperature" || got.Kind != "scalar" {
		t.Errorf("Load() info = %+v", got)
	}
	if loaded.Kind() != field.KindScalar {
		t.Fatalf("Load() kind = %v, want scalar", loaded.Kind())
	}
	if _, ok := loaded.ValueAtIndexes(1, 0); ok {
		t.Error("no-data cell came back with a value")
	}
	if v, ok := loaded.ValueAtIndexes(0, 1); !ok || v.Magnitude() != 3 {
		t.Errorf("ValueAtIndexes(0, 1) = %v, %v, want 3", v, ok)
	}
}

func TestRepository_VectorRoundTrip(t *testing.T) {
	r := newTestRepository(t)

	g, err := field.NewVectorGrid(desc, []float64{1, 0, -1, 0}, []float64{0, 1, 0, -1})
	if err != nil {
		t.Fatalf("NewVectorGrid() error = %v", err)
	}
	if _, err := r.SaveVector("currents", "speed", g); err != nil {
		t.Fatalf("SaveVector() error = %v", err)
	}

	loaded, _, err := r.Load("currents")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	vg, ok := loaded.(*field.VectorGrid)
	if !ok {
		t.Fatalf("Load() = %T, want *field.VectorGrid", loaded)
	}
	if v, _ := vg.ValueAtIndexes(1, 0); v.(field.Vector) != (field.Vector{U: 0, V: 1}) {
		t.Errorf("cell (1, 0) = %v, want (0, 1)", v)
	}
}

func TestRepository_ListReplaceDelete(t *testing.T) {
	r := newTestRepository(t)

	a, _ := field.NewScalarGrid(desc, []float64{1, 2, 3, 4})
	b, _ := field.NewScalarGrid(desc, []float64{5, 6, 7, 8})
	for _, name := range []string{"waves", "air"} {
		if _, err := r.SaveScalar(name, "", a); err != nil {
			t.Fatalf("SaveScalar(%s) error = %v", name, err)
		}
	}
	// same name replaces
	if _, err := r.SaveScalar("waves", "", b); err != nil {
		t.Fatalf("SaveScalar(waves) error = %v", err)
	}

	grids, err := r.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(grids) != 2 || grids[0].Name != "air" || grids[1].Name != "waves" {
		t.Fatalf("List() = %+v, want air and waves", grids)
	}
	if *grids[1].Max != 8 {
		t.Errorf("replaced grid max = %v, want 8", *grids[1].Max)
	}

	if err := r.Delete("air"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := r.Delete("air"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
	if _, _, err := r.Load("air"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() of a deleted grid error = %v, want ErrNotFound", err)
	}
	if _, err := r.Info("air"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Info() of a deleted grid error = %v, want ErrNotFound", err)
	}
}

func TestRepository_LegendState(t *testing.T) {
	r := newTestRepository(t)

	if _, ok, err := r.LoadUnitIndex("currents"); err != nil || ok {
		t.Fatalf("LoadUnitIndex() on an empty store = %v, %v", ok, err)
	}

	opts := legend.DefaultOptions()
	opts.Units = legend.SpeedUnits()
	cb, err := legend.New("currents", nil, 0, 2, opts, r)
	if err != nil {
		t.Fatalf("legend.New() error = %v", err)
	}
	if _, err := cb.Show(); err != nil {
		t.Fatalf("Show() error = %v", err)
	}
	if _, err := cb.Next(); err != nil {
		t.Fatalf("Next() error = %v", err)
	}

	idx, ok, err := r.LoadUnitIndex("currents")
	if err != nil || !ok || idx != 1 {
		t.Errorf("LoadUnitIndex() = %d, %v, %v, want 1", idx, ok, err)
	}

	reopened, err := legend.New("currents", nil, 0, 2, opts, NewRepository(r.DBPath()))
	if err != nil {
		t.Fatalf("legend.New() error = %v", err)
	}
	if _, err := reopened.Show(); err != nil {
		t.Fatalf("Show() error = %v", err)
	}
	if reopened.Unit().Label != "km/h" {
		t.Errorf("reopened legend unit = %q, want km/h", reopened.Unit().Label)
	}
}

func TestEncodeValues(t *testing.T) {
	s, err := encodeValues([]float64{1.5, math.NaN(), -2})
	if err != nil {
		t.Fatalf("encodeValues() error = %v", err)
	}
	if s != "[1.5,null,-2]" {
		t.Errorf("encodeValues() = %s", s)
	}
	if _, err := encodeValues([]float64{math.Inf(1)}); err == nil {
		t.Error("encodeValues(+Inf) should fail")
	}
}
