package domain

import (
	"testing"
	"time"

	"github.com/couchcryptid/storm-ensemble-da/internal/ensemble"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

var testInit = time.Date(2024, time.April, 26, 0, 0, 0, 0, time.UTC)

func ptr(v float64) *float64 { return &v }

// newTestState builds var=2, time=3, location=2, mem=4.
func newTestState(t *testing.T) *ensemble.State {
	t.Helper()
	dims := []ensemble.Dimension{
		{Name: DimVar, Labels: []ensemble.Label{"temp", "dewp"}},
		{Name: DimTime, Labels: []ensemble.Label{testInit, testInit.Add(3 * time.Hour), testInit.Add(6 * time.Hour)}},
		{Name: DimLocation, Labels: []ensemble.Label{"KLGB", "KLAX"}},
		{Name: ensemble.MemberDim, Labels: []ensemble.Label{1, 2, 3, 4}},
	}
	values := make([]float64, 2*3*2*4)
	for i := range values {
		values[i] = 10 + float64(i)*0.25 + float64(i%4)*0.7
	}
	s, err := ensemble.NewState(values, []int{2, 3, 2, 4}, dims)
	require.NoError(t, err)
	return s
}

func TestObservation_H(t *testing.T) {
	s := newTestState(t)
	ob := Observation{ObType: "temp", Time: testInit.Add(3 * time.Hour), Location: "KLAX"}

	h, err := ob.H(s)
	require.NoError(t, err)
	require.Equal(t, s.NumState(), h.Len())

	ones, zeros := 0, 0
	for i := 0; i < h.Len(); i++ {
		switch h.AtVec(i) {
		case 1:
			ones++
			assert.Equal(t, 3, i, "temp, second time, second location")
		case 0:
			zeros++
		default:
			t.Fatalf("unexpected entry %v at %d", h.AtVec(i), i)
		}
	}
	assert.Equal(t, 1, ones)
	assert.Equal(t, s.NumState()-1, zeros)
}

func TestObservation_HMatchesHXb(t *testing.T) {
	s := newTestState(t)
	x := s.ToMatrix()

	for _, obtype := range []string{"temp", "dewp"} {
		for _, hours := range []int{0, 3, 6} {
			for _, loc := range []string{"KLGB", "klax", " Klgb "} {
				ob := Observation{ObType: obtype, Time: testInit.Add(time.Duration(hours) * time.Hour), Location: loc}

				h, err := ob.H(s)
				require.NoError(t, err)
				hxb, err := ob.HXb(s)
				require.NoError(t, err)

				var viaH mat.VecDense
				viaH.MulVec(x.T(), h)

				require.Len(t, hxb, s.NumMems())
				for j := range hxb {
					assert.InDelta(t, viaH.AtVec(j), hxb[j], 1e-12, "%s %dh %s member %d", obtype, hours, loc, j)
				}
			}
		}
	}
}

func TestObservation_LocationCaseInsensitive(t *testing.T) {
	s := newTestState(t)
	upper := Observation{ObType: "dewp", Time: testInit, Location: "KLGB"}
	lower := Observation{ObType: "dewp", Time: testInit, Location: "klgb"}

	a, err := upper.HXb(s)
	require.NoError(t, err)
	b, err := lower.HXb(s)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestObservation_TimeInOtherZone(t *testing.T) {
	s := newTestState(t)
	pacific := time.FixedZone("PDT", -7*3600)
	ob := Observation{ObType: "temp", Time: testInit.Add(6 * time.Hour).In(pacific), Location: "KLGB"}

	h, err := ob.H(s)
	require.NoError(t, err)
	assert.Equal(t, 1.0, h.AtVec(4))
}

func TestObservation_CoordinateNotFound(t *testing.T) {
	s := newTestState(t)

	tests := []struct {
		name string
		ob   Observation
		msg  string
	}{
		{"unknown var", Observation{ObType: "wspd", Time: testInit, Location: "KLGB"}, "no label wspd"},
		{"unknown time", Observation{ObType: "temp", Time: testInit.Add(time.Hour), Location: "KLGB"}, `dimension "time"`},
		{"unknown location", Observation{ObType: "temp", Time: testInit, Location: "KSFO"}, "no label KSFO"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := tt.ob.H(s)
			require.ErrorIs(t, err, ensemble.ErrCoordinateNotFound)
			assert.Contains(t, err.Error(), tt.msg)
			assert.Nil(t, h)

			hxb, err := tt.ob.HXb(s)
			require.ErrorIs(t, err, ensemble.ErrCoordinateNotFound)
			assert.Contains(t, err.Error(), tt.msg)
			assert.Nil(t, hxb)
		})
	}
}

func TestObservation_ExtraStateDimension(t *testing.T) {
	dims := []ensemble.Dimension{
		{Name: DimVar, Labels: []ensemble.Label{"temp"}},
		{Name: DimTime, Labels: []ensemble.Label{testInit}},
		{Name: DimLocation, Labels: []ensemble.Label{"KLGB"}},
		{Name: "level", Labels: []ensemble.Label{"sfc", "850"}},
		{Name: ensemble.MemberDim, Labels: []ensemble.Label{1, 2}},
	}
	s, err := ensemble.NewState([]float64{1, 2, 3, 4}, []int{1, 1, 1, 2, 2}, dims)
	require.NoError(t, err)

	ob := Observation{ObType: "temp", Time: testInit, Location: "KLGB"}

	_, err = ob.H(s)
	require.ErrorIs(t, err, ensemble.ErrCoordinateNotFound)

	_, err = ob.HXb(s)
	require.ErrorIs(t, err, ensemble.ErrCoordinateNotFound)
	assert.Contains(t, err.Error(), "[level]")
}

func TestObservation_SetPrior(t *testing.T) {
	tests := []struct {
		name     string
		hxb      []float64
		wantMean float64
		wantVar  float64
	}{
		{"ensemble", []float64{1, 2, 3, 4}, 2.5, 5.0 / 3.0},
		{"identical members", []float64{7, 7, 7}, 7, 0},
		{"single member", []float64{3}, 3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ob Observation
			ob.SetPrior(tt.hxb)
			require.NotNil(t, ob.PriorMean)
			require.NotNil(t, ob.PriorVar)
			assert.InDelta(t, tt.wantMean, *ob.PriorMean, 1e-12)
			assert.InDelta(t, tt.wantVar, *ob.PriorVar, 1e-12)
			assert.Nil(t, ob.PostMean)
			assert.Nil(t, ob.PostVar)
		})
	}

	var empty Observation
	empty.SetPrior(nil)
	assert.Nil(t, empty.PriorMean)
}

func TestAttachPrior(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2024, time.April, 26, 7, 0, 0, 0, time.UTC))
	SetClock(fakeClock)
	t.Cleanup(func() { SetClock(nil) })

	s := newTestState(t)
	ob := Observation{ID: "temp-1", ObType: "temp", Time: testInit, Location: "klgb", Value: ptr(10.5)}

	got, err := AttachPrior(ob, s)
	require.NoError(t, err)

	hxb, err := ob.HXb(s)
	require.NoError(t, err)
	var sum float64
	for _, v := range hxb {
		sum += v
	}
	require.NotNil(t, got.PriorMean)
	assert.InDelta(t, sum/float64(len(hxb)), *got.PriorMean, 1e-12)
	assert.Equal(t, fakeClock.Now(), got.ProcessedAt)
	assert.Equal(t, 10.5, *got.Value)
	assert.Nil(t, ob.PriorMean, "input observation is not modified")

	_, err = AttachPrior(Observation{ObType: "temp", Time: testInit, Location: "KSFO"}, s)
	require.ErrorIs(t, err, ensemble.ErrCoordinateNotFound)
}
