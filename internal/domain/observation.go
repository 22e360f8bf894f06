package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/storm-ensemble-da/internal/ensemble"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Coordinate names an observation is matched against.
const (
	DimVar      = "var"
	DimTime     = "time"
	DimLocation = "location"
)

// Observation is a single scalar observation and, once assimilated, the
// ensemble's prior and posterior estimate of it. Unset numeric fields are
// nil.
type Observation struct {
	ID       string    `json:"id"`
	Value    *float64  `json:"value,omitempty"`
	ObType   string    `json:"obtype"`
	Time     time.Time `json:"time"`
	Error    *float64  `json:"error,omitempty"` // variance
	Location string    `json:"location"`

	PriorMean *float64 `json:"prior_mean,omitempty"`
	PostMean  *float64 `json:"post_mean,omitempty"`
	PriorVar  *float64 `json:"prior_var,omitempty"`
	PostVar   *float64 `json:"post_var,omitempty"`

	ProcessedAt time.Time `json:"processed_at"`
}

// selection addresses the observation in a state. Locations are station
// identifiers and match case-insensitively: the observation's location is
// uppercased and state location labels are expected in uppercase.
func (o Observation) selection() ensemble.Selection {
	return ensemble.Selection{
		DimLocation: strings.ToUpper(strings.TrimSpace(o.Location)),
		DimTime:     o.Time,
		DimVar:      o.ObType,
	}
}

func (o Observation) describe() string {
	return fmt.Sprintf("%s at %s %s", o.ObType, strings.ToUpper(o.Location), o.Time.UTC().Format(time.RFC3339))
}

// H returns the forward operator row for this observation: a vector of
// length state.NumState() that is zero except for a 1.0 at the row of
// (location, time, var). H · state.ToMatrix() equals HXb(state).
func (o Observation) H(state *ensemble.State) (*mat.VecDense, error) {
	row, err := state.Locate(o.selection())
	if err != nil {
		return nil, fmt.Errorf("forward operator for %s: %w", o.describe(), err)
	}
	h := mat.NewVecDense(state.NumState(), nil)
	h.SetVec(row, 1)
	return h, nil
}

// HXb returns the ensemble estimate of the observation, one value per
// member, by selecting (location, time, var) directly on the state.
func (o Observation) HXb(state *ensemble.State) ([]float64, error) {
	sub, err := state.Sel(o.selection())
	if err != nil {
		return nil, fmt.Errorf("ensemble estimate for %s: %w", o.describe(), err)
	}
	if dims := sub.Dims(); len(dims) != 1 {
		names := make([]string, 0, len(dims))
		for _, d := range dims {
			if d.Name != ensemble.MemberDim {
				names = append(names, d.Name)
			}
		}
		return nil, fmt.Errorf("ensemble estimate for %s: %w: dimensions %v not selected",
			o.describe(), ensemble.ErrCoordinateNotFound, names)
	}
	return sub.Values(), nil
}

// SetPrior records the mean and sample variance of the ensemble estimate.
// A single-member estimate has zero variance.
func (o *Observation) SetPrior(hxb []float64) {
	if len(hxb) == 0 {
		return
	}
	mean := stat.Mean(hxb, nil)
	variance := 0.0
	if len(hxb) > 1 {
		_, variance = stat.MeanVariance(hxb, nil)
	}
	o.PriorMean = &mean
	o.PriorVar = &variance
}

// AttachPrior computes the ensemble prior of ob against state and stamps
// the processing time.
func AttachPrior(ob Observation, state *ensemble.State) (Observation, error) {
	hxb, err := ob.HXb(state)
	if err != nil {
		return ob, err
	}
	ob.SetPrior(hxb)
	ob.ProcessedAt = clock.Now()
	return ob, nil
}
