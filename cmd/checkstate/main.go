// Command checkstate verifies the structural invariants of an ensemble
// state dataset before it is deployed to the assimilation service: the
// member dimension layout, matrix round trip, mean and perturbation
// decomposition, and forward operator agreement with direct lookup.
//
// Usage:
//
//	go run ./cmd/checkstate -state data/ensemble_state.json
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"slices"
	"time"

	"github.com/couchcryptid/storm-ensemble-da/internal/domain"
	"github.com/couchcryptid/storm-ensemble-da/internal/ensemble"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// maxErrors caps the errors collected per phase.
const maxErrors = 20

func main() {
	statePath := flag.String("state", "data/ensemble_state.json", "path to ensemble state dataset")
	tol := flag.Float64("tol", 1e-9, "absolute tolerance for numeric comparisons")
	flag.Parse()

	if code := run(*statePath, *tol); code != 0 {
		os.Exit(code)
	}
}

func run(statePath string, tol float64) int {
	fmt.Println("=== Ensemble State Validation ===")
	fmt.Println()

	f, err := os.Open(statePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: open state: %v\n", err)
		return 1
	}
	ds, err := ensemble.ReadDataset(f)
	f.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read state: %v\n", err)
		return 1
	}
	state, err := ensemble.FromDataset(ds)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load state: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateLayout(state),
		validateRoundTrip(state, tol),
		validateDecomposition(state, tol),
		validateForwardOperator(state, tol),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("State: shape %v, %d members, state size %d\n", state.Shape(), state.NumMems(), state.NumState())

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Layout ──

func validateLayout(state *ensemble.State) *phase {
	p := &phase{name: "Phase 1: Layout (mem last, sizes)"}

	dims := state.Dims()
	shape := state.Shape()
	if last := dims[len(dims)-1].Name; last != ensemble.MemberDim {
		p.errorf("last dimension is %q, want %q", last, ensemble.MemberDim)
	}
	if shape[len(shape)-1] != state.NumMems() {
		p.errorf("last extent %d != NumMems %d", shape[len(shape)-1], state.NumMems())
	}
	total := 1
	for i, d := range dims {
		total *= shape[i]
		if d.Len() != shape[i] {
			p.errorf("dimension %q has %d labels, extent %d", d.Name, d.Len(), shape[i])
		}
	}
	if state.NumMems()*state.NumState() != total {
		p.errorf("NumMems*NumState = %d, total size %d", state.NumMems()*state.NumState(), total)
	}
	return p
}

// ── Phase 2: Round trip ──

func validateRoundTrip(state *ensemble.State, tol float64) *phase {
	p := &phase{name: "Phase 2: Matrix round trip"}

	before := state.Array().Values()
	x := state.ToMatrix()
	if r, c := x.Dims(); r != state.NumState() || c != state.NumMems() {
		p.errorf("matrix is %dx%d, want %dx%d", r, c, state.NumState(), state.NumMems())
		return p
	}

	probe, err := ensemble.FromDataset(state.Dataset())
	if err != nil {
		p.errorf("copy state: %v", err)
		return p
	}
	if err := probe.UpdateFromMatrix(x); err != nil {
		p.errorf("update from own matrix: %v", err)
		return p
	}
	if !floats.EqualApprox(before, probe.Array().Values(), tol) {
		p.errorf("values changed after ToMatrix/UpdateFromMatrix")
	}
	if !slices.Equal(state.Shape(), probe.Shape()) {
		p.errorf("shape changed: %v -> %v", state.Shape(), probe.Shape())
	}

	wrong := mat.NewDense(1, state.NumState()*state.NumMems()+1, nil)
	if err := probe.UpdateFromMatrix(wrong); err == nil {
		p.errorf("oversized matrix was accepted")
	}
	return p
}

// ── Phase 3: Mean and perturbations ──

func validateDecomposition(state *ensemble.State, tol float64) *phase {
	p := &phase{name: "Phase 3: Mean + perturbation decomposition"}

	mean := state.EnsembleMean().Values()
	perts := state.EnsemblePerts().Values()
	values := state.Array().Values()
	nmems := state.NumMems()

	for row := range state.NumState() {
		var sum float64
		for m := range nmems {
			i := row*nmems + m
			sum += perts[i]
			if got := mean[row] + perts[i]; math.Abs(got-values[i]) > tol {
				p.errorf("row %d member %d: mean+pert %g != value %g", row, m, got, values[i])
			}
		}
		if math.Abs(sum) > tol*float64(nmems) {
			p.errorf("row %d: perturbations sum to %g", row, sum)
		}
		if len(p.errors) >= maxErrors {
			break
		}
	}
	return p
}

// ── Phase 4: Forward operator ──

func validateForwardOperator(state *ensemble.State, tol float64) *phase {
	p := &phase{name: "Phase 4: Forward operator (H·X == HXb)"}

	obs, err := observationsFor(state)
	if err != nil {
		p.errorf("%v", err)
		return p
	}

	x := state.ToMatrix()
	var hx mat.VecDense
	for _, ob := range obs {
		h, err := ob.H(state)
		if err != nil {
			p.errorf("H: %v", err)
			continue
		}
		hxb, err := ob.HXb(state)
		if err != nil {
			p.errorf("HXb: %v", err)
			continue
		}
		hx.MulVec(x.T(), h)
		if !floats.EqualApprox(hx.RawVector().Data, hxb, tol) {
			p.errorf("%s at %s %s: H·X differs from HXb", ob.ObType, ob.Location, ob.Time.Format(time.RFC3339))
		}
		if len(p.errors) >= maxErrors {
			break
		}
	}
	return p
}

// observationsFor returns one observation per state-vector row. The state
// must be laid out over var, time and location.
func observationsFor(state *ensemble.State) ([]domain.Observation, error) {
	dims := state.Dims()
	axes := map[string]int{}
	for i, d := range dims[:len(dims)-1] {
		axes[d.Name] = i
	}
	for _, name := range []string{domain.DimVar, domain.DimTime, domain.DimLocation} {
		if _, ok := axes[name]; !ok {
			return nil, fmt.Errorf("state has no %q dimension", name)
		}
	}
	if len(axes) != 3 {
		return nil, fmt.Errorf("state has %d non-member dimensions, want 3", len(axes))
	}

	shape := state.Shape()[:len(dims)-1]
	obs := make([]domain.Observation, 0, state.NumState())
	pos := make([]int, len(shape))
	for range state.NumState() {
		label := func(name string) ensemble.Label {
			ax := axes[name]
			return dims[ax].Labels[pos[ax]]
		}
		obtype, okVar := label(domain.DimVar).(string)
		at, okTime := label(domain.DimTime).(time.Time)
		loc, okLoc := label(domain.DimLocation).(string)
		if !okVar || !okTime || !okLoc {
			return nil, fmt.Errorf("labels at %v are not (string, time, string)", pos)
		}
		obs = append(obs, domain.Observation{ObType: obtype, Time: at, Location: loc})

		for ax := len(pos) - 1; ax >= 0; ax-- {
			pos[ax]++
			if pos[ax] < shape[ax] {
				break
			}
			pos[ax] = 0
		}
	}
	return obs, nil
}
