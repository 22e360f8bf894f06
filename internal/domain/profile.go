package domain

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"
)

// ErrUnknownVariable is returned for a state variable name with no
// matching profile field.
var ErrUnknownVariable = errors.New("unknown state variable")

// Profile holds one station's forecast at one valid time. Fields the
// source did not provide are nil.
type Profile struct {
	Model     string    `json:"model,omitempty"`
	StationID string    `json:"stid,omitempty"`
	ValidTime time.Time `json:"valid_time"`
	FcstHour  *int      `json:"fcst_hour,omitempty"`

	Pres *float64 `json:"pres,omitempty"` // hPa
	Alt  *float64 `json:"alt,omitempty"`
	Elev *float64 `json:"elev,omitempty"` // station elevation, m
	Tmpc *float64 `json:"tmpc,omitempty"` // 2 m temperature, °C
	Tmwc *float64 `json:"tmwc,omitempty"`
	Dwpc *float64 `json:"dwpc,omitempty"` // 2 m dewpoint, °C
	Thte *float64 `json:"thte,omitempty"`
	Drct *float64 `json:"drct,omitempty"`
	Sknt *float64 `json:"sknt,omitempty"` // wind speed
	Uwnd *float64 `json:"uwnd,omitempty"`
	Vwnd *float64 `json:"vwnd,omitempty"`
	Omeg *float64 `json:"omeg,omitempty"`
	Cfrl *float64 `json:"cfrl,omitempty"` // cloud fraction
	Hght *float64 `json:"hght,omitempty"`
	P01m *float64 `json:"p01m,omitempty"` // precipitation over the last output interval
	P03m *float64 `json:"p03m,omitempty"`
	MaxT *float64 `json:"maxt,omitempty"`
	MinT *float64 `json:"mint,omitempty"`
}

// Variable returns the profile field behind a state variable name. The
// result is nil when the field is unset.
func (p Profile) Variable(name string) (*float64, error) {
	switch name {
	case "temp":
		return p.Tmpc, nil
	case "dewp":
		return p.Dwpc, nil
	case "uwnd":
		return p.Uwnd, nil
	case "vwnd":
		return p.Vwnd, nil
	case "psfc":
		return p.Pres, nil
	case "wspd":
		return p.Sknt, nil
	case "precip":
		return p.P01m, nil
	case "cldfrac":
		return p.Cfrl, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariable, name)
	}
}

// DeriveWindSpeed fills Sknt from the wind components when it is unset.
func (p *Profile) DeriveWindSpeed() {
	if p.Sknt != nil || p.Uwnd == nil || p.Vwnd == nil {
		return
	}
	s := math.Hypot(*p.Uwnd, *p.Vwnd)
	p.Sknt = &s
}

// Forecast is one ensemble member's profiles at a station, keyed by
// valid time in UTC.
type Forecast map[time.Time]Profile

// Add stores p under its valid time, replacing any earlier profile.
func (f Forecast) Add(p Profile) {
	f[p.ValidTime.UTC()] = p
}

// At returns the profile valid at t.
func (f Forecast) At(t time.Time) (Profile, bool) {
	p, ok := f[t.UTC()]
	return p, ok
}

// ValidTimes returns the forecast's valid times in ascending order.
func (f Forecast) ValidTimes() []time.Time {
	times := make([]time.Time, 0, len(f))
	for t := range f {
		times = append(times, t)
	}
	slices.SortFunc(times, func(a, b time.Time) int { return a.Compare(b) })
	return times
}
