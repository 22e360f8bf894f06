package ensemble

import "errors"

var (
	// ErrInvalidLayout is returned when the member dimension is missing,
	// empty, or not the last dimension of the array.
	ErrInvalidLayout = errors.New("invalid layout")

	// ErrShapeMismatch is returned when element counts or extents disagree.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrNonIntegerState is returned when the total element count is not an
	// exact multiple of the member count.
	ErrNonIntegerState = errors.New("non-integer state size")

	// ErrCoordinateNotFound is returned when a selection names a dimension
	// or label that the array does not have.
	ErrCoordinateNotFound = errors.New("coordinate not found")

	// ErrInvalidLabel is returned for unsupported or duplicate labels.
	ErrInvalidLabel = errors.New("invalid label")
)
