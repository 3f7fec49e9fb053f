package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/openbuilders/payment-gateway/internal/bulk"
	"github.com/openbuilders/payment-gateway/internal/errors"
	"github.com/openbuilders/payment-gateway/internal/metrics"
	"github.com/openbuilders/payment-gateway/internal/transfer"
	"github.com/openbuilders/payment-gateway/internal/types"

	"github.com/google/uuid"
)

type Repository interface {
	CreateIntent(ctx context.Context, intent *types.ScheduledIntent) error
	GetIntent(ctx context.Context, id uuid.UUID) (*types.ScheduledIntent, error)
	ListIntentsByAddress(ctx context.Context, address string) ([]types.ScheduledIntent, error)
	DeleteIntent(ctx context.Context, id uuid.UUID) (bool, error)
	// SweepDue claims due intents so overlapping sweeps never share one,
	// deletes each successfully executed intent before releasing its claim
	// and keeps failed ones for the next sweep.
	SweepDue(ctx context.Context, now time.Time,
		execute func(context.Context, *types.ScheduledIntent) error) (int, error)
}

type SingleCreator interface {
	Create(ctx context.Context, req *types.CreateTransferRequest) (*transfer.CreateResult, error)
}

type BulkCreator interface {
	Create(ctx context.Context, req *types.CreateBulkRequest) (*bulk.CreateResult, error)
}

type Config struct {
	PollInterval time.Duration
	SweepTimeout time.Duration
}

// Scheduler holds transfer intents tagged with a future execution time and
// converts them into real transfers when they come due.
type Scheduler struct {
	config  *Config
	repo    Repository
	singles SingleCreator
	bulks   BulkCreator
	log     *slog.Logger
}

func New(config *Config, repo Repository, singles SingleCreator,
	bulks BulkCreator) *Scheduler {
	return &Scheduler{
		config:  config,
		repo:    repo,
		singles: singles,
		bulks:   bulks,
		log:     slog.With("component", "scheduler"),
	}
}

// Create stores the intent verbatim; nothing executes until it comes due.
// The payload is fully validated now so a malformed intent can't sit in the
// schedule waiting to fail.
func (s *Scheduler) Create(ctx context.Context, intent *types.ScheduledIntent) error {
	if intent.ScheduledAt.IsZero() {
		return errors.New(errors.CodeValidationError, "missing scheduled date")
	}

	switch intent.Kind {
	case types.IntentSingle:
		if intent.Single == nil {
			return errors.New(errors.CodeValidationError,
				"single intent without a transfer payload")
		}
		if err := transfer.ValidateCreateRequest(intent.Single); err != nil {
			return err
		}
	case types.IntentBulk:
		if intent.Bulk == nil {
			return errors.New(errors.CodeValidationError,
				"bulk intent without a transfer payload")
		}
		if err := bulk.ValidateCreateRequest(intent.Bulk); err != nil {
			return err
		}
	default:
		return errors.New(errors.CodeValidationError,
			"unknown intent kind %q", intent.Kind)
	}

	if intent.ID == uuid.Nil {
		intent.ID = uuid.New()
	}
	intent.CreatedAt = time.Now().UTC()

	if err := s.repo.CreateIntent(ctx, intent); err != nil {
		return err
	}

	s.log.Info("scheduled intent",
		"id", intent.ID,
		"kind", intent.Kind,
		"scheduled_at", intent.ScheduledAt,
	)

	return nil
}

func (s *Scheduler) Get(ctx context.Context, id uuid.UUID) (*types.ScheduledIntent, error) {
	return s.repo.GetIntent(ctx, id)
}

func (s *Scheduler) ListByAddress(ctx context.Context, address string) (
	[]types.ScheduledIntent, error) {

	if address == "" {
		return nil, errors.New(errors.CodeValidationError, "missing address")
	}

	return s.repo.ListIntentsByAddress(ctx, address)
}

// Cancel deletes the intent if and only if it has not executed yet. An
// already-executed intent is already gone and reports NotFound.
func (s *Scheduler) Cancel(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.DeleteIntent(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return errors.New(errors.CodeNotFound, "no scheduled intent %s", id)
	}

	s.log.Info("cancelled intent", "id", id)

	return nil
}

// Due runs one sweep over the intents due at now. Each due intent executes at
// most once; failures are reported and retried on the next sweep.
func (s *Scheduler) Due(ctx context.Context, now time.Time) (int, error) {
	executed, err := s.repo.SweepDue(ctx, now, s.execute)
	if err != nil {
		metrics.SchedulerExecutions.WithLabelValues("error").Inc()
	}

	return executed, err
}

func (s *Scheduler) execute(ctx context.Context, intent *types.ScheduledIntent) error {
	var err error

	switch intent.Kind {
	case types.IntentSingle:
		_, err = s.singles.Create(ctx, intent.Single)
	case types.IntentBulk:
		_, err = s.bulks.Create(ctx, intent.Bulk)
	default:
		err = errors.New(errors.CodeValidationError,
			"unknown intent kind %q", intent.Kind)
	}

	if err != nil {
		metrics.SchedulerExecutions.WithLabelValues("failure").Inc()
		s.log.Error("intent execution failed", "id", intent.ID, "error", err)
		return err
	}

	metrics.SchedulerExecutions.WithLabelValues("success").Inc()
	s.log.Info("executed intent", "id", intent.ID, "kind", intent.Kind)

	return nil
}

// Run drives Due on a fixed interval, standing in for an external cron. Sweep
// errors are logged, never fatal; the next tick retries what's left.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("Starting scheduler")

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Stopping scheduler...")
			return ctx.Err()
		case now := <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, s.config.SweepTimeout)

			executed, err := s.Due(sweepCtx, now.UTC())
			if err != nil {
				s.log.Error("sweep finished with errors",
					"executed", executed,
					"error", err,
				)
			} else if executed > 0 {
				s.log.Debug("sweep finished", "executed", executed)
			}

			cancel()
		}
	}
}
