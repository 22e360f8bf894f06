package ensemble

import (
	"encoding/json"
	"fmt"
	"io"
)

// Dataset is the persisted form of a labeled array: positional dimensions
// and row-major values. Shape is implied by the label counts.
type Dataset struct {
	Dims   []Dimension `json:"dims"`
	Values []float64   `json:"values"`
}

// FromDataset adopts ds as a State. The values slice is used in place,
// so later changes through the State are visible in ds.Values.
func FromDataset(ds *Dataset) (*State, error) {
	if ds == nil {
		return nil, fmt.Errorf("%w: nil dataset", ErrInvalidLayout)
	}
	if err := checkLayout(ds.Dims); err != nil {
		return nil, err
	}
	return newState(ds.Values, ds.Dims)
}

// ReadDataset decodes a JSON dataset.
func ReadDataset(r io.Reader) (*Dataset, error) {
	var ds Dataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	return &ds, nil
}

// Write encodes the dataset as JSON.
func (ds *Dataset) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ds); err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}
	return nil
}
