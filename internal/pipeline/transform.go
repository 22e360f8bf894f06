package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/couchcryptid/storm-ensemble-da/internal/domain"
	"github.com/couchcryptid/storm-ensemble-da/internal/ensemble"
	"github.com/couchcryptid/storm-ensemble-da/internal/observability"
)

// ObservationTransformer implements Transformer by matching each
// observation against a fixed ensemble state and attaching its prior.
type ObservationTransformer struct {
	state   *ensemble.State
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewTransformer creates an ObservationTransformer over state. The state
// must not be modified while the transformer is in use.
func NewTransformer(state *ensemble.State, logger *slog.Logger, metrics *observability.Metrics) *ObservationTransformer {
	return &ObservationTransformer{
		state:   state,
		logger:  logger,
		metrics: metrics,
	}
}

func (t *ObservationTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	ob, err := domain.ParseObservation(raw)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	ob, err = domain.AttachPrior(ob, t.state)
	if err != nil {
		if errors.Is(err, ensemble.ErrCoordinateNotFound) {
			t.metrics.CoordinateMisses.Inc()
		}
		return domain.OutputEvent{}, err
	}

	t.logger.Debug("prior attached",
		"id", ob.ID,
		"obtype", ob.ObType,
		"location", ob.Location,
		"prior_mean", *ob.PriorMean,
		"prior_var", *ob.PriorVar,
	)
	return domain.SerializeObservation(ob)
}
