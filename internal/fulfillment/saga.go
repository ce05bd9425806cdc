package fulfillment

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"storefront/backend/internal/logger"
	"storefront/backend/internal/metrics"
)

type Stage string

const (
	StagePending    Stage = "pending"
	StageValidated  Stage = "validated"
	StageResolved   Stage = "resolved"
	StageCommitted  Stage = "committed"
	StageReconciled Stage = "reconciled"
	StageRolledBack Stage = "rolled_back"
)

type compensation struct {
	name string
	undo func(ctx context.Context) error
}

// saga tracks the stage of one sale and the durable side effects it has
// produced so far.
type saga struct {
	stage   Stage
	steps   []compensation
	log     *logger.Logger
	metrics *metrics.SaleMetrics
}

func newSaga(log *logger.Logger, m *metrics.SaleMetrics) *saga {
	return &saga{stage: StagePending, log: log, metrics: m}
}

func (s *saga) advance(ctx context.Context, stage Stage) {
	s.log.Zerolog(ctx).Debug().Str("from", string(s.stage)).Str("to", string(stage)).Msg("sale stage")
	s.stage = stage
}

// record pushes a compensation for a side effect that has just been applied.
func (s *saga) record(name string, undo func(ctx context.Context) error) {
	s.steps = append(s.steps, compensation{name: name, undo: undo})
}

// rollback unwinds every recorded step, newest first. Cleanup failures are
// logged and returned combined; they never replace cause for the caller.
func (s *saga) rollback(ctx context.Context, cause error) error {
	if len(s.steps) == 0 {
		return nil
	}
	ctx = context.WithoutCancel(ctx)

	var errs error
	for i := len(s.steps) - 1; i >= 0; i-- {
		step := s.steps[i]
		err := step.undo(ctx)
		s.metrics.IncCompensation(step.name, err == nil)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", step.name, err))
		}
	}
	s.steps = nil
	s.advance(ctx, StageRolledBack)

	if errs != nil {
		s.log.Zerolog(ctx).Error().
			Err(errs).
			AnErr("cause", cause).
			Int("failed_steps", len(multierr.Errors(errs))).
			Msg("sale compensation incomplete")
	} else {
		s.log.Zerolog(ctx).Warn().AnErr("cause", cause).Msg("sale rolled back")
	}
	return errs
}
