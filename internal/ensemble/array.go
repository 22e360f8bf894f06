package ensemble

import (
	"fmt"
	"slices"
)

// Selection pins dimensions, by name, to a single coordinate label.
type Selection map[string]Label

// Array is a labeled N-dimensional float64 array stored row-major.
// Unlike State it places no requirement on its dimensions; it is the
// result type of statistics and selections.
type Array struct {
	dims    []Dimension
	index   []map[string]int
	shape   []int
	strides []int
	values  []float64
}

// NewArray validates dims against values and returns an Array holding a
// copy of values.
func NewArray(values []float64, dims []Dimension) (*Array, error) {
	return wrap(slices.Clone(values), dims)
}

// wrap builds an Array that adopts values without copying.
func wrap(values []float64, dims []Dimension) (*Array, error) {
	a := &Array{
		dims:    make([]Dimension, len(dims)),
		index:   make([]map[string]int, len(dims)),
		shape:   make([]int, len(dims)),
		strides: make([]int, len(dims)),
		values:  values,
	}
	seen := make(map[string]bool, len(dims))
	for i, d := range dims {
		if seen[d.Name] {
			return nil, fmt.Errorf("%w: duplicate dimension %q", ErrInvalidLayout, d.Name)
		}
		seen[d.Name] = true

		idx, err := d.index()
		if err != nil {
			return nil, err
		}
		a.dims[i] = d.clone()
		a.index[i] = idx
		a.shape[i] = d.Len()
	}

	size := 1
	for i := len(a.shape) - 1; i >= 0; i-- {
		a.strides[i] = size
		size *= a.shape[i]
	}
	if size != len(values) {
		return nil, fmt.Errorf("%w: labels describe %d elements, got %d values (shape %v)",
			ErrShapeMismatch, size, len(values), a.shape)
	}
	return a, nil
}

// Dims returns a copy of the dimensions in positional order.
func (a *Array) Dims() []Dimension {
	out := make([]Dimension, len(a.dims))
	for i, d := range a.dims {
		out[i] = d.clone()
	}
	return out
}

// Shape returns the extent of every dimension.
func (a *Array) Shape() []int { return slices.Clone(a.shape) }

// Size returns the total element count.
func (a *Array) Size() int { return len(a.values) }

// Values returns a row-major copy of the data.
func (a *Array) Values() []float64 { return slices.Clone(a.values) }

// Axis returns the position of the named dimension, or -1.
func (a *Array) Axis(name string) int {
	for i, d := range a.dims {
		if d.Name == name {
			return i
		}
	}
	return -1
}

// Coords returns the labels of the named dimension, or nil.
func (a *Array) Coords(name string) []Label {
	ax := a.Axis(name)
	if ax < 0 {
		return nil
	}
	return slices.Clone(a.dims[ax].Labels)
}

// resolve maps a selection to a per-axis position, -1 for free axes.
func (a *Array) resolve(sel Selection) ([]int, error) {
	for name := range sel {
		if a.Axis(name) < 0 {
			return nil, fmt.Errorf("%w: no dimension %q", ErrCoordinateNotFound, name)
		}
	}
	fixed := make([]int, len(a.dims))
	for ax, d := range a.dims {
		label, ok := sel[d.Name]
		if !ok {
			fixed[ax] = -1
			continue
		}
		key, err := labelKey(label)
		if err != nil {
			return nil, fmt.Errorf("%w: dimension %q: %v", ErrCoordinateNotFound, d.Name, err)
		}
		pos, ok := a.index[ax][key]
		if !ok {
			return nil, fmt.Errorf("%w: dimension %q has no label %v", ErrCoordinateNotFound, d.Name, label)
		}
		fixed[ax] = pos
	}
	return fixed, nil
}

// Sel returns a new Array with every selected dimension reduced to the
// chosen label and dropped. Unselected dimensions are kept in order.
func (a *Array) Sel(sel Selection) (*Array, error) {
	fixed, err := a.resolve(sel)
	if err != nil {
		return nil, err
	}

	base := 0
	var free []int
	var dims []Dimension
	for ax, pos := range fixed {
		if pos < 0 {
			free = append(free, ax)
			dims = append(dims, a.dims[ax])
			continue
		}
		base += pos * a.strides[ax]
	}

	n := 1
	for _, ax := range free {
		n *= a.shape[ax]
	}
	out := make([]float64, n)
	counter := make([]int, len(free))
	for i := range out {
		off := base
		for j, ax := range free {
			off += counter[j] * a.strides[ax]
		}
		out[i] = a.values[off]

		for j := len(counter) - 1; j >= 0; j-- {
			counter[j]++
			if counter[j] < a.shape[free[j]] {
				break
			}
			counter[j] = 0
		}
	}
	return wrap(out, dims)
}

// offset returns the flat position of a selection that pins every
// dimension.
func (a *Array) offset(sel Selection) (int, error) {
	fixed, err := a.resolve(sel)
	if err != nil {
		return 0, err
	}
	off := 0
	for ax, pos := range fixed {
		if pos < 0 {
			return 0, fmt.Errorf("%w: dimension %q not selected", ErrCoordinateNotFound, a.dims[ax].Name)
		}
		off += pos * a.strides[ax]
	}
	return off, nil
}

// At returns the single value addressed by a selection that pins every
// dimension.
func (a *Array) At(sel Selection) (float64, error) {
	off, err := a.offset(sel)
	if err != nil {
		return 0, err
	}
	return a.values[off], nil
}
