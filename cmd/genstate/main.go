// Command genstate writes a synthetic ensemble state dataset for local runs
// and tests. It fabricates SREF-style member forecasts for one station,
// including a precomputed mean member, and lays them out with the same
// forecast.BuildState the service relies on.
//
// Usage:
//
//	go run ./cmd/genstate \
//	  -location KLGB -members 26 -times 30 \
//	  -out data/ensemble_state.json
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/storm-ensemble-da/internal/domain"
	"github.com/couchcryptid/storm-ensemble-da/internal/ensemble"
	"github.com/couchcryptid/storm-ensemble-da/internal/forecast"
	"gonum.org/v1/gonum/stat/distuv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	location := flag.String("location", "KLGB", "station identifier")
	nmembers := flag.Int("members", 26, "number of ensemble members")
	ntimes := flag.Int("times", 30, "number of valid times")
	step := flag.Duration("step", 3*time.Hour, "interval between valid times")
	initStr := flag.String("init", "2015-06-01T09:00:00Z", "forecast initialization time (RFC 3339)")
	varsStr := flag.String("vars", "temp,dewp,uwnd,vwnd,psfc,wspd,precip,cldfrac", "comma-separated state variables")
	seed := flag.Uint64("seed", 1, "random seed")
	out := flag.String("out", "data/ensemble_state.json", "output dataset path")
	flag.Parse()

	if *nmembers < 1 || *ntimes < 1 {
		flag.Usage()
		return fmt.Errorf("-members and -times must be positive")
	}
	initTime, err := time.Parse(time.RFC3339, *initStr)
	if err != nil {
		return fmt.Errorf("parse -init: %w", err)
	}
	vars := strings.Split(*varsStr, ",")

	src := rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15)
	members := make(map[string]domain.Forecast, *nmembers+1)
	for m := range *nmembers {
		id := fmt.Sprintf("m%02d", m+1)
		members[id] = synthesize(*location, initTime, *step, *ntimes, src)
	}
	members[forecast.MeanMember] = synthesize(*location, initTime, *step, *ntimes, src)

	times := forecast.CommonTimes(members)
	state, err := forecast.BuildState(members, vars, times, *location)
	if err != nil {
		return err
	}
	log.Printf("state: shape %v, %d members, state size %d", state.Shape(), state.NumMems(), state.NumState())

	if err := writeDataset(*out, state.Dataset()); err != nil {
		return fmt.Errorf("writing dataset: %w", err)
	}
	log.Printf("wrote %s", *out)
	return nil
}

// synthesize builds one member's forecast: a diurnal temperature cycle
// with a per-member bias, a dewpoint depression, a slowly veering wind,
// and intermittent light precipitation.
func synthesize(location string, init time.Time, step time.Duration, ntimes int, src rand.Source) domain.Forecast {
	bias := distuv.Normal{Mu: 0, Sigma: 1.5, Src: src}.Rand()
	noise := distuv.Normal{Mu: 0, Sigma: 0.5, Src: src}
	depression := distuv.Uniform{Min: 2, Max: 8, Src: src}
	rain := distuv.Bernoulli{P: 0.2, Src: src}
	amount := distuv.Exponential{Rate: 2, Src: src}
	cloud := distuv.Beta{Alpha: 2, Beta: 3, Src: src}

	f := domain.Forecast{}
	for i := range ntimes {
		valid := init.Add(time.Duration(i) * step).UTC()
		hour := float64(valid.Hour())
		fh := i * int(step/time.Hour)

		tmpc := 20 + 6*math.Sin(2*math.Pi*(hour-9)/24) + bias + noise.Rand()
		dwpc := tmpc - depression.Rand()
		dir := math.Pi/2 + float64(i)*0.05
		speed := 4 + noise.Rand()
		uwnd := -speed * math.Sin(dir)
		vwnd := -speed * math.Cos(dir)
		pres := 1013 + 2*noise.Rand()
		precip := 0.0
		if rain.Rand() == 1 {
			precip = amount.Rand()
		}
		cfrl := 100 * cloud.Rand()

		p := domain.Profile{
			Model:     "sref",
			StationID: strings.ToUpper(location),
			ValidTime: valid,
			FcstHour:  &fh,
			Tmpc:      &tmpc,
			Dwpc:      &dwpc,
			Uwnd:      &uwnd,
			Vwnd:      &vwnd,
			Pres:      &pres,
			P01m:      &precip,
			Cfrl:      &cfrl,
		}
		p.DeriveWindSpeed()
		f.Add(p)
	}
	return f
}

func writeDataset(path string, ds *ensemble.Dataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := ds.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
