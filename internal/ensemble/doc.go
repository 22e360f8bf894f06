// Package ensemble holds ensemble forecast states as labeled arrays.
//
// # Layout
//
// A [State] is an N-dimensional float64 array stored row-major, with one
// named [Dimension] per axis. Dimension positions are the slice order the
// caller supplies. The ensemble member dimension, [MemberDim], must exist
// and must be the last axis, which lets the state flatten into an
// Nstate x Nmems matrix by plain reshaping:
//
//	var=2, time=3, location=1, mem=5  →  6 x 5
//
// Row r of that matrix is the r-th row-major position over the non-member
// dimensions; [State.ToMatrix] and [State.UpdateFromMatrix] use the same
// order, so a round trip is the identity.
//
// # Coordinate matching
//
// Labels are strings, signed integers or time.Time. Matching is exact on
// value: times match by instant regardless of zone, integers by value
// regardless of width. Strings are case-sensitive; callers that want
// case-insensitive matching normalize before selecting.
//
// # Errors
//
// Construction fails with [ErrInvalidLayout] when the member dimension is
// missing or misplaced and with [ErrShapeMismatch] when label counts and
// data disagree. Selections that name unknown dimensions or labels fail
// with [ErrCoordinateNotFound]; nothing is ever defaulted to zero.
package ensemble
