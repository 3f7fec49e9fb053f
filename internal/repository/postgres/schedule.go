package postgres

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/openbuilders/payment-gateway/internal/errors"
	"github.com/openbuilders/payment-gateway/internal/types"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func marshalIntentPayload(intent *types.ScheduledIntent) ([]byte, error) {
	switch intent.Kind {
	case types.IntentSingle:
		return json.Marshal(intent.Single)
	case types.IntentBulk:
		return json.Marshal(intent.Bulk)
	}
	return nil, errors.New(errors.CodeValidationError,
		"unknown intent kind %q", intent.Kind)
}

func unmarshalIntentPayload(intent *types.ScheduledIntent, payload []byte) error {
	switch intent.Kind {
	case types.IntentSingle:
		intent.Single = &types.CreateTransferRequest{}
		return json.Unmarshal(payload, intent.Single)
	case types.IntentBulk:
		intent.Bulk = &types.CreateBulkRequest{}
		return json.Unmarshal(payload, intent.Bulk)
	}
	return fmt.Errorf("unknown intent kind %q", intent.Kind)
}

func (p *Postgres) CreateIntent(ctx context.Context, intent *types.ScheduledIntent) error {
	payload, err := marshalIntentPayload(intent)
	if err != nil {
		return err
	}

	_, err = p.pg.Exec(ctx, `
		INSERT INTO scheduled_intent (id, kind, payload, scheduled_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		intent.ID, intent.Kind, payload, intent.ScheduledAt, intent.CreatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return errors.Wrap(errors.CodeConflict, err,
				"scheduled intent %s already exists", intent.ID)
		}
		return fmt.Errorf("couldn't persist scheduled intent: %w", err)
	}

	return nil
}

func (p *Postgres) GetIntent(ctx context.Context, id uuid.UUID) (
	*types.ScheduledIntent, error) {

	var (
		intent  types.ScheduledIntent
		payload []byte
	)

	err := p.pg.QueryRow(ctx, `
		SELECT id, kind, payload, scheduled_at, created_at
		FROM scheduled_intent
		WHERE id = $1`,
		id,
	).Scan(&intent.ID, &intent.Kind, &payload, &intent.ScheduledAt,
		&intent.CreatedAt)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New(errors.CodeNotFound,
				"no scheduled intent %s", id)
		}
		return nil, fmt.Errorf("couldn't fetch scheduled intent: %w", err)
	}

	if err := unmarshalIntentPayload(&intent, payload); err != nil {
		return nil, fmt.Errorf("couldn't decode scheduled intent: %w", err)
	}

	return &intent, nil
}

func (p *Postgres) ListIntentsByAddress(ctx context.Context, address string) (
	[]types.ScheduledIntent, error) {

	rows, err := p.pg.Query(ctx, `
		SELECT id, kind, payload, scheduled_at, created_at
		FROM scheduled_intent
		WHERE payload->>'sender' = $1
		ORDER BY scheduled_at`,
		address,
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't list scheduled intents: %w", err)
	}
	defer rows.Close()

	var intents []types.ScheduledIntent
	for rows.Next() {
		var (
			intent  types.ScheduledIntent
			payload []byte
		)
		err = rows.Scan(&intent.ID, &intent.Kind, &payload,
			&intent.ScheduledAt, &intent.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("couldn't scan scheduled intent: %w", err)
		}
		if err := unmarshalIntentPayload(&intent, payload); err != nil {
			return nil, fmt.Errorf("couldn't decode scheduled intent: %w", err)
		}
		intents = append(intents, intent)
	}

	return intents, rows.Err()
}

func (p *Postgres) DeleteIntent(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := p.pg.Exec(ctx,
		`DELETE FROM scheduled_intent WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("couldn't delete scheduled intent: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// SweepDue runs one atomic pass over the intents due at now. Due rows are
// claimed with FOR UPDATE SKIP LOCKED, so overlapping sweeps never pick up the
// same intent. A successfully executed intent is deleted inside the claiming
// transaction, before its lock is released; a failed one keeps its row for the
// next sweep.
func (p *Postgres) SweepDue(ctx context.Context, now time.Time,
	execute func(context.Context, *types.ScheduledIntent) error) (int, error) {

	tx, err := p.pg.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("couldn't begin sweep transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT id, kind, payload, scheduled_at, created_at
		FROM scheduled_intent
		WHERE scheduled_at <= $1
		ORDER BY scheduled_at
		FOR UPDATE SKIP LOCKED`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("couldn't select due intents: %w", err)
	}

	var due []types.ScheduledIntent
	for rows.Next() {
		var (
			intent  types.ScheduledIntent
			payload []byte
		)
		err = rows.Scan(&intent.ID, &intent.Kind, &payload,
			&intent.ScheduledAt, &intent.CreatedAt)
		if err != nil {
			rows.Close()
			return 0, fmt.Errorf("couldn't scan due intent: %w", err)
		}
		if err := unmarshalIntentPayload(&intent, payload); err != nil {
			rows.Close()
			return 0, fmt.Errorf("couldn't decode due intent: %w", err)
		}
		due = append(due, intent)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	var (
		executed int
		execErrs []error
	)

	for i := range due {
		intent := &due[i]

		if err := execute(ctx, intent); err != nil {
			// the row stays in place for a retry on the next sweep
			execErrs = append(execErrs,
				fmt.Errorf("intent %s: %w", intent.ID, err))
			continue
		}

		_, err = tx.Exec(ctx,
			`DELETE FROM scheduled_intent WHERE id = $1`, intent.ID)
		if err != nil {
			return executed, fmt.Errorf(
				"couldn't delete executed intent %s: %w", intent.ID, err)
		}

		executed++
	}

	if err := tx.Commit(ctx); err != nil {
		return executed, fmt.Errorf("couldn't commit sweep: %w", err)
	}

	return executed, stderrors.Join(execErrs...)
}
