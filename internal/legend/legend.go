// Package legend builds a colorbar for a color function over a value range,
// with tick labels shown in a unit the user can cycle through.
package legend

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ngmaloney/marine-fieldmap/internal/colorscale"
)

var (
	ErrInvalidSteps = errors.New("legend steps must be positive")
	ErrInvalidSize  = errors.New("legend width and height must be positive")
)

// Anchor is the horizontal alignment of tick labels
type Anchor string

const (
	AnchorStart  Anchor = "start"
	AnchorMiddle Anchor = "middle"
	AnchorEnd    Anchor = "end"
)

// ParseAnchor reads start, middle or end
func ParseAnchor(s string) (Anchor, error) {
	switch a := Anchor(strings.ToLower(s)); a {
	case AnchorStart, AnchorMiddle, AnchorEnd:
		return a, nil
	case "":
		return AnchorMiddle, nil
	}
	return "", fmt.Errorf("unknown label position %q", s)
}

// Options configures a ColorBar
type Options struct {
	Width, Height int // the bar itself, pixels
	Margin        int
	Steps         int
	Decimals      int // precision when there are no units

	Units  []Unit
	Title  string
	Labels []float64 // tick values; empty for no ticks

	LabelFontSize float64
	LabelPosition Anchor
	Background    colorscale.Color
	TextColor     colorscale.Color

	// Index is the unit shown when nothing was persisted for the key
	Index int
}

// DefaultOptions returns a 300x15 bar with 100 steps
func DefaultOptions() Options {
	return Options{
		Width:         300,
		Height:        15,
		Margin:        15,
		Steps:         100,
		Decimals:      2,
		Title:         "Legend",
		LabelFontSize: 10,
		LabelPosition: AnchorMiddle,
		Background:    colorscale.White,
		TextColor:     colorscale.Black,
	}
}

// Validate checks the sizes and step count
func (o Options) Validate() error {
	if o.Steps <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidSteps, o.Steps)
	}
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("%w: got %dx%d", ErrInvalidSize, o.Width, o.Height)
	}
	return nil
}

// Bucket is one colored slice of the bar
type Bucket struct {
	Value float64
	Color colorscale.Color

	X, Y, Width, Height float64
	Tooltip             string
}

// ColorBuckets splits [min, max] into steps equal intervals and returns the
// steps+1 boundary values, max included, with their colors
func ColorBuckets(min, max float64, steps int, fn colorscale.Func) []Bucket {
	if steps <= 0 {
		return nil
	}
	delta := (max - min) / float64(steps)
	buckets := make([]Bucket, steps+1)
	for i := range buckets {
		v := min + float64(i)*delta
		if i == steps {
			v = max
		}
		buckets[i] = Bucket{Value: v, Color: fn(v)}
	}
	return buckets
}

// LabelPositions maps each label linearly from [min, max] onto [0, width].
// An empty domain puts every label in the middle.
func LabelPositions(labels []float64, min, max, width float64) []float64 {
	pos := make([]float64, len(labels))
	for k, v := range labels {
		if max == min {
			pos[k] = width / 2
			continue
		}
		pos[k] = (v - min) / (max - min) * width
	}
	return pos
}

// Tick is a label under the bar
type Tick struct {
	Value  float64
	X, Y   float64
	Anchor Anchor
	Text   string
}

// Swatch is a label with its color, for compact vertical legends
type Swatch struct {
	Text  string
	Color colorscale.Color
}

// View is everything needed to draw the legend, in pixels from the top-left
// corner of the control
type View struct {
	Title    string
	Unit     Unit
	Buckets  []Bucket
	Ticks    []Tick
	Swatches []Swatch

	Width, Height float64
	FontSize      float64
	Background    colorscale.Color
	TextColor     colorscale.Color
}

// State is the lifecycle of a ColorBar
type State int

const (
	StateHidden State = iota
	StateShown
)

// StateStore persists the active unit index per legend key
type StateStore interface {
	LoadUnitIndex(key string) (idx int, ok bool, err error)
	SaveUnitIndex(key string, idx int) error
}

// MemoryStore is an in-process StateStore
type MemoryStore struct {
	mu      sync.Mutex
	indexes map[string]int
}

// NewMemoryStore returns an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{indexes: make(map[string]int)}
}

// LoadUnitIndex returns the saved index for key
func (s *MemoryStore) LoadUnitIndex(key string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.indexes[key]
	return idx, ok, nil
}

// SaveUnitIndex stores idx for key
func (s *MemoryStore) SaveUnitIndex(key string, idx int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexes[key] = idx
	return nil
}

// ColorBar is a legend bound to a key. Two ColorBars built with the same key
// and store share the active unit.
type ColorBar struct {
	Log logrus.FieldLogger

	key      string
	color    colorscale.Func
	min, max float64
	opts     Options
	store    StateStore

	state    State
	index    int
	view     View
	onChange func(Unit)
}

// New returns a hidden ColorBar; a nil store keeps the unit in memory only
func New(key string, fn colorscale.Func, min, max float64, opts Options, store StateStore) (*ColorBar, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if fn == nil {
		fn = colorscale.Grayscale(min, max)
	}
	if store == nil {
		store = NewMemoryStore()
	}
	return &ColorBar{
		Log:   logrus.StandardLogger(),
		key:   key,
		color: fn,
		min:   min,
		max:   max,
		opts:  opts,
		store: store,
	}, nil
}

// Key returns the identity the unit index is persisted under
func (cb *ColorBar) Key() string {
	return cb.key
}

// State returns whether the legend has been shown
func (cb *ColorBar) State() State {
	return cb.state
}

// OnChange registers a callback fired after Next switches the unit
func (cb *ColorBar) OnChange(fn func(Unit)) {
	cb.onChange = fn
}

// Show restores the persisted unit and renders the legend
func (cb *ColorBar) Show() (View, error) {
	idx, ok, err := cb.store.LoadUnitIndex(cb.key)
	if err != nil {
		return View{}, fmt.Errorf("loading unit index for %s: %w", cb.key, err)
	}
	if !ok {
		idx = cb.opts.Index
	}
	cb.index = cb.wrap(idx)
	cb.state = StateShown
	cb.view = cb.Render()
	return cb.view, nil
}

// Next switches to the following unit, persists it and re-renders. With no
// units it only returns the current view.
func (cb *ColorBar) Next() (View, error) {
	if cb.state == StateHidden {
		if _, err := cb.Show(); err != nil {
			return View{}, err
		}
	}
	n := len(cb.opts.Units)
	if n == 0 {
		return cb.view, nil
	}
	next := (cb.index + 1) % n
	if err := cb.store.SaveUnitIndex(cb.key, next); err != nil {
		return View{}, fmt.Errorf("saving unit index for %s: %w", cb.key, err)
	}
	cb.index = next
	cb.view = cb.Render()
	cb.Log.WithFields(logrus.Fields{"legend": cb.key, "unit": cb.Unit().Label}).Debug("legend unit changed")
	if cb.onChange != nil {
		cb.onChange(cb.Unit())
	}
	return cb.view, nil
}

// SetColor replaces the color function and range, re-rendering a shown legend
func (cb *ColorBar) SetColor(fn colorscale.Func, min, max float64) {
	cb.color, cb.min, cb.max = fn, min, max
	if cb.state == StateShown {
		cb.view = cb.Render()
	}
}

// UnitIndex returns the active unit index
func (cb *ColorBar) UnitIndex() int {
	return cb.index
}

// Unit returns the active unit, or an unconverted one when there are none
func (cb *ColorBar) Unit() Unit {
	if len(cb.opts.Units) == 0 {
		return Identity("", cb.opts.Decimals)
	}
	return cb.opts.Units[cb.index]
}

// Format shows v in the active unit
func (cb *ColorBar) Format(v float64) string {
	return cb.Unit().Format(v)
}

// Title is the configured title followed by the unit label
func (cb *ColorBar) Title() string {
	if lb := cb.Unit().Label; lb != "" {
		return cb.opts.Title + " (" + lb + ")"
	}
	return cb.opts.Title
}

// Render lays out the title, the bar and the ticks in the active unit
func (cb *ColorBar) Render() View {
	o := cb.opts
	u := cb.Unit()
	margin := float64(o.Margin)
	titleSpace := o.LabelFontSize + 5
	labelSpace := 0.0
	if len(o.Labels) > 0 {
		labelSpace = margin
	}

	v := View{
		Title:      cb.Title(),
		Unit:       u,
		Width:      float64(o.Width) + 2*margin,
		Height:     titleSpace + float64(o.Height) + labelSpace,
		FontSize:   o.LabelFontSize,
		Background: o.Background,
		TextColor:  o.TextColor,
	}

	v.Buckets = ColorBuckets(cb.min, cb.max, o.Steps, cb.color)
	w := float64(o.Width) / float64(len(v.Buckets))
	for i := range v.Buckets {
		b := &v.Buckets[i]
		b.X = float64(i)*w + margin
		b.Y = titleSpace
		b.Width = w
		b.Height = float64(o.Height)
		b.Tooltip = u.Format(b.Value) + " " + u.Label
	}

	anchor := o.LabelPosition
	if anchor == "" {
		anchor = AnchorMiddle
	}
	for k, x := range LabelPositions(o.Labels, cb.min, cb.max, float64(o.Width)) {
		text := u.Format(o.Labels[k])
		v.Ticks = append(v.Ticks, Tick{
			Value:  o.Labels[k],
			X:      x + margin,
			Y:      titleSpace + float64(o.Height) + margin,
			Anchor: anchor,
			Text:   text,
		})
		v.Swatches = append(v.Swatches, Swatch{Text: text, Color: cb.color(o.Labels[k])})
	}
	return v
}

func (cb *ColorBar) wrap(idx int) int {
	n := len(cb.opts.Units)
	if n == 0 {
		return 0
	}
	idx %= n
	if idx < 0 {
		idx += n
	}
	return idx
}
