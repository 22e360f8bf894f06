// Package forecast assembles ensemble states from per-member station
// forecasts.
package forecast

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/storm-ensemble-da/internal/domain"
	"github.com/couchcryptid/storm-ensemble-da/internal/ensemble"
)

// MeanMember is the member ID of the precomputed ensemble mean that SREF
// output ships alongside the real members. It is not a realization and is
// left out of states.
const MeanMember = "srefmean"

// ErrMissingProfile is returned when a member lacks a profile or a field
// the state needs.
var ErrMissingProfile = errors.New("missing profile data")

// accumulated variables are undefined at the first output time and are
// set to zero there.
var accumulated = map[string]bool{
	"precip":  true,
	"cldfrac": true,
}

// BuildState lays member forecasts for one station out as a state with
// dimensions var, time, location and mem. Members are ordered by ID and
// labeled 1..N.
func BuildState(members map[string]domain.Forecast, vars []string, times []time.Time, location string) (*ensemble.State, error) {
	ids := memberIDs(members)
	if len(ids) == 0 {
		return nil, errors.New("build state: no ensemble members")
	}
	if len(vars) == 0 || len(times) == 0 {
		return nil, errors.New("build state: no variables or times")
	}

	nvars, ntimes, nmems := len(vars), len(times), len(ids)
	values := make([]float64, nvars*ntimes*nmems)
	for v, name := range vars {
		for m, id := range ids {
			for ti, t := range times {
				val, err := memberValue(members[id], name, t, ti == 0)
				if err != nil {
					return nil, fmt.Errorf("build state: member %s: %w", id, err)
				}
				// One location, so the location axis contributes no stride.
				values[(v*ntimes+ti)*nmems+m] = val
			}
		}
	}

	dims := []ensemble.Dimension{
		{Name: domain.DimVar, Labels: labels(vars)},
		{Name: domain.DimTime, Labels: labels(times)},
		{Name: domain.DimLocation, Labels: []ensemble.Label{strings.ToUpper(location)}},
		{Name: ensemble.MemberDim, Labels: memberLabels(nmems)},
	}
	state, err := ensemble.NewState(values, []int{nvars, ntimes, 1, nmems}, dims)
	if err != nil {
		return nil, fmt.Errorf("build state: %w", err)
	}
	return state, nil
}

func memberValue(f domain.Forecast, name string, t time.Time, first bool) (float64, error) {
	p, ok := f.At(t)
	if !ok {
		return 0, fmt.Errorf("%w: no profile valid at %s", ErrMissingProfile, t.UTC().Format(time.RFC3339))
	}
	v, err := p.Variable(name)
	if err != nil {
		return 0, err
	}
	if first && accumulated[name] {
		return 0, nil
	}
	if v == nil {
		return 0, fmt.Errorf("%w: %s unset at %s", ErrMissingProfile, name, t.UTC().Format(time.RFC3339))
	}
	return *v, nil
}

// CommonTimes returns the valid times present in every member, ascending.
func CommonTimes(members map[string]domain.Forecast) []time.Time {
	ids := memberIDs(members)
	if len(ids) == 0 {
		return nil
	}
	var common []time.Time
	for _, t := range members[ids[0]].ValidTimes() {
		shared := true
		for _, id := range ids[1:] {
			if _, ok := members[id].At(t); !ok {
				shared = false
				break
			}
		}
		if shared {
			common = append(common, t)
		}
	}
	return common
}

func memberIDs(members map[string]domain.Forecast) []string {
	ids := slices.Sorted(maps.Keys(members))
	return slices.DeleteFunc(ids, func(id string) bool { return id == MeanMember })
}

func labels[T any](in []T) []ensemble.Label {
	out := make([]ensemble.Label, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func memberLabels(n int) []ensemble.Label {
	out := make([]ensemble.Label, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}
