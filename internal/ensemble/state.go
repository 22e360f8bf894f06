package ensemble

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// State is an ensemble of forecast states held as a labeled array whose
// last dimension is MemberDim. The shape is fixed at construction; the
// content can be replaced with UpdateFromMatrix.
//
// A State is not safe for concurrent use when UpdateFromMatrix may run
// alongside reads.
type State struct {
	arr    *Array
	nmems  int
	nstate int
}

// NewState wraps a row-major copy of values with the given dimensions.
// len(dims) must equal len(shape), a dimension named MemberDim must be
// present and last, and every dimension's label count must equal its
// extent in shape.
func NewState(values []float64, shape []int, dims []Dimension) (*State, error) {
	if len(dims) != len(shape) {
		return nil, fmt.Errorf("%w: %d dimensions for rank %d array", ErrShapeMismatch, len(dims), len(shape))
	}
	if err := checkLayout(dims); err != nil {
		return nil, err
	}
	for i, d := range dims {
		if d.Len() != shape[i] {
			return nil, fmt.Errorf("%w: dimension %q has %d labels, extent %d",
				ErrShapeMismatch, d.Name, d.Len(), shape[i])
		}
	}
	return newState(slices.Clone(values), dims)
}

func checkLayout(dims []Dimension) error {
	names := make([]string, len(dims))
	for i, d := range dims {
		names[i] = d.Name
	}
	if !slices.Contains(names, MemberDim) {
		return fmt.Errorf("%w: no %q dimension in %v", ErrInvalidLayout, MemberDim, names)
	}
	if names[len(names)-1] != MemberDim {
		return fmt.Errorf("%w: dimension %q is not the last dimension in %v", ErrInvalidLayout, MemberDim, names)
	}
	for _, d := range dims {
		if d.Len() == 0 {
			return fmt.Errorf("%w: dimension %q is empty", ErrInvalidLayout, d.Name)
		}
	}
	return nil
}

func newState(values []float64, dims []Dimension) (*State, error) {
	arr, err := wrap(values, dims)
	if err != nil {
		return nil, err
	}
	nmems := arr.shape[len(arr.shape)-1]
	nstate, err := stateSize(arr.Size(), nmems)
	if err != nil {
		return nil, err
	}
	return &State{arr: arr, nmems: nmems, nstate: nstate}, nil
}

func stateSize(total, nmems int) (int, error) {
	if nmems <= 0 {
		return 0, fmt.Errorf("%w: %d members", ErrInvalidLayout, nmems)
	}
	if total%nmems != 0 {
		return 0, fmt.Errorf("%w: %d elements over %d members", ErrNonIntegerState, total, nmems)
	}
	return total / nmems, nil
}

// ToMatrix returns the state as an NumState x NumMems matrix, flattening
// every non-member dimension row-major. The matrix does not share storage
// with the State.
func (s *State) ToMatrix() *mat.Dense {
	return mat.NewDense(s.nstate, s.nmems, slices.Clone(s.arr.values))
}

// UpdateFromMatrix replaces the state content with m, reshaped row-major
// to the full shape. The element count of m must equal the State's; on
// mismatch the State is left untouched.
func (s *State) UpdateFromMatrix(m mat.Matrix) error {
	r, c := m.Dims()
	if r*c != len(s.arr.values) {
		return fmt.Errorf("%w: got %dx%d (%d elements), state %v holds %d",
			ErrShapeMismatch, r, c, r*c, s.arr.shape, len(s.arr.values))
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			s.arr.values[i*c+j] = m.At(i, j)
		}
	}
	return nil
}

// Shape returns the full shape, member dimension last.
func (s *State) Shape() []int { return s.arr.Shape() }

// Dims returns the dimensions in positional order.
func (s *State) Dims() []Dimension { return s.arr.Dims() }

// NumMems returns the number of ensemble members.
func (s *State) NumMems() int { return s.nmems }

// NumState returns the length of the flattened non-member state vector.
func (s *State) NumState() int { return s.nstate }

// Array returns a copy of the state as a labeled array.
func (s *State) Array() *Array {
	arr, _ := NewArray(s.arr.values, s.arr.dims)
	return arr
}

// Sel selects labels directly on the labeled state.
func (s *State) Sel(sel Selection) (*Array, error) {
	return s.arr.Sel(sel)
}

// Locate returns the state-vector row addressed by sel, which must pin
// every non-member dimension and leave the member dimension free.
func (s *State) Locate(sel Selection) (int, error) {
	if _, ok := sel[MemberDim]; ok {
		return 0, fmt.Errorf("%w: selection pins dimension %q", ErrCoordinateNotFound, MemberDim)
	}
	fixed, err := s.arr.resolve(sel)
	if err != nil {
		return 0, err
	}
	off := 0
	for ax, pos := range fixed[:len(fixed)-1] {
		if pos < 0 {
			return 0, fmt.Errorf("%w: dimension %q not selected", ErrCoordinateNotFound, s.arr.dims[ax].Name)
		}
		off += pos * s.arr.strides[ax]
	}
	return off / s.nmems, nil
}

// Member returns a copy of the member values of one state-vector row.
// It panics if row is out of range.
func (s *State) Member(row int) []float64 {
	return slices.Clone(s.row(row))
}

func (s *State) row(i int) []float64 {
	return s.arr.values[i*s.nmems : (i+1)*s.nmems]
}

// EnsembleMean returns the mean over the member dimension as a new
// array without that dimension.
func (s *State) EnsembleMean() *Array {
	out := make([]float64, s.nstate)
	for i := range out {
		out[i] = stat.Mean(s.row(i), nil)
	}
	arr, _ := wrap(out, s.arr.dims[:len(s.arr.dims)-1])
	return arr
}

// EnsemblePerts returns the deviation of every member from the ensemble
// mean. The member dimension is kept.
func (s *State) EnsemblePerts() *Array {
	out := slices.Clone(s.arr.values)
	for i := 0; i < s.nstate; i++ {
		row := out[i*s.nmems : (i+1)*s.nmems]
		floats.AddConst(-stat.Mean(row, nil), row)
	}
	arr, _ := wrap(out, s.arr.dims)
	return arr
}

// Dataset returns a snapshot of the state in its persisted form.
func (s *State) Dataset() *Dataset {
	return &Dataset{Dims: s.arr.Dims(), Values: s.arr.Values()}
}
