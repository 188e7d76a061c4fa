package ui

import (
	"fmt"
	"image/color"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ctessum/geom"
	"github.com/golang/groupcache/lru"
	"github.com/sirupsen/logrus"

	"github.com/ngmaloney/marine-fieldmap/internal/colorscale"
	"github.com/ngmaloney/marine-fieldmap/internal/field"
	"github.com/ngmaloney/marine-fieldmap/internal/gridstore"
	"github.com/ngmaloney/marine-fieldmap/internal/legend"
	"github.com/ngmaloney/marine-fieldmap/internal/models"
	"github.com/ngmaloney/marine-fieldmap/internal/render"
	"github.com/ngmaloney/marine-fieldmap/internal/viewport"
	"github.com/ngmaloney/marine-fieldmap/internal/zones"
)

// AppState represents the current state of the application
type AppState int

const (
	StateGridList AppState = iota // Pick a stored grid
	StateLoading                  // Rebuilding the selected grid
	StateDisplay                  // Drawing the grid
	StateError                    // Error state
)

const (
	// header line, canvas border, legend (title, strip, labels), readout and help
	chromeLines    = 1 + 2 + 3 + 1 + 3
	frameCacheSize = 32
	panFraction    = 0.25
	zoomStep       = 0.5
)

// Config holds the viewer settings
type Config struct {
	Render     render.Options
	ColorRamp  string            // colorscale.Named ramp
	GlyphColor *colorscale.Color // nil colors arrows with the ramp
	Units      string            // legend unit preset, empty for the grid's own
	Decimals   int
	Zones      bool // draw marine zone outlines
	Log        logrus.FieldLogger
}

// DefaultConfig returns the viewer defaults; arrows are sized for terminal cells
func DefaultConfig() Config {
	opts := render.DefaultOptions()
	opts.GlyphSize = 3
	return Config{
		Render:   opts,
		Decimals: 2,
		Zones:    true,
	}
}

// frameKey identifies a cached render pass
type frameKey struct {
	grid        string
	mode        render.Mode
	interpolate bool
	step        int
	lon, lat    float64
	zoom        float64
	w, h        int
}

// Model represents the application's state
type Model struct {
	state  AppState
	width  int
	height int
	err    error

	cfg  Config
	repo *gridstore.Repository
	keys keyMap
	help help.Model

	// Grid selection
	grids    []models.GridInfo
	gridList list.Model
	pending  string // grid to open on Init

	// Loading
	spinner spinner.Model
	loading string

	// Display
	info     *models.GridInfo
	field    field.Field
	opts     render.Options
	ramp     colorscale.Func
	layer    *render.Layer
	vp       *viewport.Mercator
	colorbar *legend.ColorBar
	zones    []zones.Zone
	frame    *render.Frame
	cache    *lru.Cache
}

// NewModel creates a viewer over the grids in repo
func NewModel(repo *gridstore.Repository, cfg Config) Model {
	if cfg.Log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		cfg.Log = l
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return Model{
		state:    StateGridList,
		cfg:      cfg,
		repo:     repo,
		keys:     defaultKeyMap(),
		help:     help.New(),
		gridList: createGridList(nil, 0, 0),
		spinner:  s,
		opts:     cfg.Render,
		cache:    lru.New(frameCacheSize),
	}
}

// WithGrid opens the named grid as soon as the program starts
func (m Model) WithGrid(name string) Model {
	m.pending = name
	m.state = StateLoading
	m.loading = name
	return m
}

// Init starts reading the grid list, or the grid given to WithGrid
func (m Model) Init() tea.Cmd {
	if m.repo == nil {
		return nil
	}
	if m.pending != "" {
		return tea.Batch(m.spinner.Tick, loadGrid(m.repo, m.pending))
	}
	return fetchGrids(m.repo)
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	// Handle window size
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.gridList.SetSize(msg.Width-4, msg.Height-6)
		if m.field != nil {
			if err := m.resize(); err != nil {
				return m.fail(err)
			}
		}
		return m, nil
	}

	// Handle custom messages
	switch msg := msg.(type) {
	case errMsg:
		return m.fail(msg.err)

	case gridsFetchedMsg:
		if msg.err != nil {
			return m.fail(fmt.Errorf("listing grids: %w", msg.err))
		}
		m.grids = msg.grids
		m.gridList = createGridList(msg.grids, m.width-4, m.height-6)
		return m, nil

	case gridLoadedMsg:
		if msg.err != nil {
			return m.fail(fmt.Errorf("loading grid %s: %w", m.loading, msg.err))
		}
		m.pending = ""
		if err := m.open(msg.field, msg.info); err != nil {
			return m.fail(err)
		}
		m.state = StateDisplay
		if m.cfg.Zones && m.repo != nil {
			return m, loadZones(m.repo.DBPath(), msg.info.Name, gridBounds(msg.info))
		}
		return m, nil

	case zonesLoadedMsg:
		if msg.err != nil {
			// Outlines are optional
			m.cfg.Log.WithError(msg.err).Warn("loading marine zones")
			return m, nil
		}
		if m.info != nil && msg.grid == m.info.Name {
			m.zones = msg.zones
		}
		return m, nil

	case spinner.TickMsg:
		if m.state != StateLoading {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	// Handle keyboard input
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		switch m.state {
		case StateGridList:
			return m.handleGridList(keyMsg)

		case StateDisplay:
			return m.handleDisplay(keyMsg)

		case StateLoading:
			if keyMsg.String() == "q" {
				return m, tea.Quit
			}
			return m, nil

		case StateError:
			if keyMsg.String() == "q" {
				return m, tea.Quit
			}
			// Any other key returns to the grid list
			return m.backToList()
		}
	}

	if m.state == StateGridList {
		m.gridList, cmd = m.gridList.Update(msg)
	}
	return m, cmd
}

func (m Model) fail(err error) (tea.Model, tea.Cmd) {
	m.err = err
	m.state = StateError
	return m, nil
}

func (m Model) backToList() (tea.Model, tea.Cmd) {
	m.state = StateGridList
	m.err = nil
	m.field, m.info, m.layer, m.colorbar, m.frame, m.vp = nil, nil, nil, nil, nil, nil
	m.zones = nil
	if m.repo == nil {
		return m, nil
	}
	return m, fetchGrids(m.repo)
}

// handleGridList handles keyboard input in grid list state
func (m Model) handleGridList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	// Let the filter prompt have every key while it is open
	if m.gridList.FilterState() != list.Filtering {
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "enter":
			if item, ok := m.gridList.SelectedItem().(gridItem); ok && m.repo != nil {
				m.state = StateLoading
				m.loading = item.info.Name
				return m, tea.Batch(m.spinner.Tick, loadGrid(m.repo, item.info.Name))
			}
			return m, nil
		}
	}

	m.gridList, cmd = m.gridList.Update(msg)
	return m, cmd
}

// handleDisplay handles keyboard input in display state
func (m Model) handleDisplay(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var err error
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Back):
		return m.backToList()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.Up):
		err = m.pan(0, -1)
	case key.Matches(msg, m.keys.Down):
		err = m.pan(0, 1)
	case key.Matches(msg, m.keys.Left):
		err = m.pan(-1, 0)
	case key.Matches(msg, m.keys.Right):
		err = m.pan(1, 0)
	case key.Matches(msg, m.keys.ZoomIn):
		err = m.zoom(zoomStep)
	case key.Matches(msg, m.keys.ZoomOut):
		err = m.zoom(-zoomStep)
	case key.Matches(msg, m.keys.Mode):
		if m.opts.Mode == render.ModeColormap {
			m.opts.Mode = render.ModeVector
		} else {
			m.opts.Mode = render.ModeColormap
		}
		err = m.relayer()
	case key.Matches(msg, m.keys.Interpolate):
		m.opts.Interpolate = !m.opts.Interpolate
		err = m.relayer()
	case key.Matches(msg, m.keys.Step):
		m.opts.SampleStep = 3 - m.opts.SampleStep
		err = m.relayer()
	case key.Matches(msg, m.keys.Unit):
		_, err = m.colorbar.Next()
	default:
		return m, nil
	}
	if err != nil {
		return m.fail(err)
	}
	return m, nil
}

// open builds the layer, legend and viewport for a freshly loaded grid
func (m *Model) open(f field.Field, info *models.GridInfo) error {
	lo, hi, ok := f.Range()
	if !ok {
		lo, hi = 0, 1
	}
	ramp, err := colorscale.Named(m.cfg.ColorRamp, lo, hi)
	if err != nil {
		return err
	}

	lopts := legend.DefaultOptions()
	lopts.Title = info.Name
	lopts.Decimals = m.cfg.Decimals
	units := m.cfg.Units
	if units == "" {
		units = info.Units
	}
	lopts.Units = legend.NamedUnits(units, m.cfg.Decimals)
	lopts.Labels = []float64{lo, hi}

	var store legend.StateStore
	if m.repo != nil {
		store = m.repo
	}
	cb, err := legend.New(info.Name, ramp, lo, hi, lopts, store)
	if err != nil {
		return err
	}
	cb.Log = m.cfg.Log
	if _, err := cb.Show(); err != nil {
		return err
	}

	m.field, m.info, m.ramp, m.colorbar = f, info, ramp, cb
	m.zones = nil
	m.vp = nil
	m.cache.Clear()
	if err := m.relayer(); err != nil {
		return err
	}
	return m.resize()
}

// relayer rebuilds the render layer after an option change
func (m *Model) relayer() error {
	opts := m.opts
	opts.Color = m.ramp
	if opts.Mode == render.ModeVector && m.cfg.GlyphColor != nil {
		opts.Color = colorscale.Uniform(*m.cfg.GlyphColor)
	}
	layer, err := render.NewLayer(m.info.Name, m.field, opts)
	if err != nil {
		return err
	}
	layer.Log = m.cfg.Log
	m.layer = layer
	return m.redraw()
}

func (m Model) canvasSize() (cols, rows int) {
	cols = m.width - 2
	rows = m.height - chromeLines
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	return cols, rows
}

// resize fits the grid on first display and keeps center and zoom afterwards
func (m *Model) resize() error {
	if m.width == 0 || m.height == 0 {
		return nil
	}
	cols, rows := m.canvasSize()
	var err error
	if m.vp == nil {
		m.vp, err = viewport.Fit(gridBounds(m.info), cols, 2*rows)
	} else {
		m.vp, err = m.vp.Resize(cols, 2*rows)
	}
	if err != nil {
		return err
	}
	return m.redraw()
}

func (m *Model) pan(dx, dy float64) error {
	if m.vp == nil {
		return nil
	}
	w, h := m.vp.Size()
	vp, err := m.vp.Pan(dx*panFraction*float64(w), dy*panFraction*float64(h))
	if err != nil {
		return err
	}
	m.vp = vp
	return m.redraw()
}

func (m *Model) zoom(delta float64) error {
	if m.vp == nil {
		return nil
	}
	vp, err := m.vp.ZoomBy(delta)
	if err != nil {
		return err
	}
	m.vp = vp
	return m.redraw()
}

// redraw renders the current viewport, reusing a cached frame when the same
// view was drawn before
func (m *Model) redraw() error {
	if m.vp == nil || m.layer == nil {
		return nil
	}
	w, h := m.vp.Size()
	c := m.vp.Center()
	k := frameKey{
		grid:        m.info.Name,
		mode:        m.opts.Mode,
		interpolate: m.opts.Interpolate,
		step:        m.opts.SampleStep,
		lon:         c.X,
		lat:         c.Y,
		zoom:        m.vp.Zoom(),
		w:           w,
		h:           h,
	}
	if v, ok := m.cache.Get(k); ok {
		m.frame = v.(*render.Frame)
		return nil
	}
	frame, err := m.layer.Draw(m.vp)
	if err != nil {
		return err
	}
	m.cache.Add(k, frame)
	m.frame = frame
	return nil
}

func gridBounds(info *models.GridInfo) *geom.Bounds {
	west, south, east, north := info.Bounds()
	return &geom.Bounds{
		Min: geom.Point{X: west, Y: south},
		Max: geom.Point{X: east, Y: north},
	}
}

// View renders the UI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	switch m.state {
	case StateGridList:
		return m.viewGridList()
	case StateLoading:
		return m.viewLoading()
	case StateDisplay:
		return m.viewDisplay()
	case StateError:
		return m.viewError()
	}

	return ""
}

// viewGridList renders the stored grid selection list
func (m Model) viewGridList() string {
	title := titleStyle.Render("≋ Field Map")

	var sections []string
	sections = append(sections, title)
	if len(m.grids) == 0 {
		sections = append(sections,
			mutedStyle.Render("No grids stored yet."),
			"",
			"Import one with: fieldmap import <name> <grid.asc> [v.asc]",
			helpStyle.Render("Q: Quit"),
		)
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	sections = append(sections,
		mutedStyle.Render(fmt.Sprintf("%d stored grids", len(m.grids))),
		"",
		m.gridList.View(),
	)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// viewLoading renders the loading view
func (m Model) viewLoading() string {
	return fmt.Sprintf("%s Loading grid %s...", m.spinner.View(), m.loading)
}

// viewError renders the error view
func (m Model) viewError() string {
	title := errorStyle.Render("✗ Error")

	errorMsg := "An unknown error occurred"
	if m.err != nil {
		errorMsg = m.err.Error()
	}

	help := helpStyle.Render("Press any key to return to the grid list • Q: Quit")

	return lipgloss.JoinVertical(lipgloss.Left, title, "", errorMsg, "", help)
}

// viewDisplay renders the field, its legend and the probe readout
func (m Model) viewDisplay() string {
	if m.info == nil || m.frame == nil {
		return "No grid selected"
	}

	header := titleStyle.Render("≋ "+m.info.Name) + " " + mutedStyle.Render(m.status())

	cols, rows := m.canvasSize()
	cv := newCanvas(cols, rows)
	switch m.frame.Mode {
	case render.ModeColormap:
		cv.drawImage(m.frame.Image)
	case render.ModeVector:
		cv.drawGlyphs(m.frame.Glyphs)
	}
	if len(m.zones) > 0 {
		cv.drawPolylines(render.Overlay(m.vp, zones.Rings(m.zones), color.White))
	}
	cv.mark(cols/2, rows/2, '+', crosshairStyle)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		canvasStyle.Render(cv.String()),
		m.viewLegend(cols),
		m.viewProbe(),
		helpStyle.Render(m.help.View(m.keys)),
	)
}

func (m Model) status() string {
	parts := []string{m.info.Kind, m.opts.Mode.String()}
	if m.opts.Interpolate {
		parts = append(parts, "bilinear")
	} else {
		parts = append(parts, "nearest")
	}
	parts = append(parts, fmt.Sprintf("step %d", m.opts.SampleStep))
	if m.vp != nil {
		parts = append(parts, fmt.Sprintf("zoom %.1f", m.vp.Zoom()))
	}
	return strings.Join(parts, " • ")
}

// viewLegend draws the color bar as a strip of colored blocks
func (m Model) viewLegend(cols int) string {
	v := m.colorbar.Render()
	if len(v.Buckets) == 0 {
		return ""
	}

	var strip strings.Builder
	for c := 0; c < cols; c++ {
		b := v.Buckets[c*len(v.Buckets)/cols]
		strip.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(b.Color.Hex())).Render("█"))
	}

	var labels string
	if len(v.Ticks) == 2 {
		lo, hi := v.Ticks[0].Text, v.Ticks[1].Text
		gap := cols - lipgloss.Width(lo) - lipgloss.Width(hi)
		if gap < 1 {
			gap = 1
		}
		labels = lo + strings.Repeat(" ", gap) + hi
	}

	return lipgloss.JoinVertical(lipgloss.Left, labelStyle.Render(v.Title), strip.String(), mutedStyle.Render(labels))
}

// viewProbe describes the value under the crosshair
func (m Model) viewProbe() string {
	w, h := m.vp.Size()
	lon, lat, v, ok := m.layer.Probe(m.vp, float64(w)/2, float64(h)/2)

	line := labelStyle.Render(formatLonLat(lon, lat)) + "  "
	if ok {
		u := m.colorbar.Unit()
		text := m.colorbar.Format(v.Magnitude())
		if u.Label != "" {
			text += " " + u.Label
		}
		if _, isVector := v.(field.Vector); isVector {
			text += fmt.Sprintf(" from %03.0f°", v.Direction())
		}
		line += valueStyle.Render(text)
	} else {
		line += mutedStyle.Render("no data")
	}

	for _, z := range m.zones {
		if z.Contains(lon, lat) {
			line += "  " + mutedStyle.Render(z.Code+" "+z.Name)
			break
		}
	}
	return line
}

func formatLonLat(lon, lat float64) string {
	ns, ew := "N", "E"
	if lat < 0 {
		ns, lat = "S", -lat
	}
	if lon < 0 {
		ew, lon = "W", -lon
	}
	return fmt.Sprintf("%.4f°%s %.4f°%s", lat, ns, lon, ew)
}
