package postgres

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/openbuilders/payment-gateway/internal/errors"
	"github.com/openbuilders/payment-gateway/internal/types"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const payrollColumns = `id, name, owner_address, token_kind, total_amount, created_at`

func scanPayroll(row pgx.Row) (*types.PayrollTemplate, error) {
	var t types.PayrollTemplate
	err := row.Scan(&t.ID, &t.Name, &t.OwnerAddress, &t.TokenKind,
		&t.TotalAmount, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// recomputeTotal re-derives total_amount from the recipient rows. Always runs
// inside the same transaction as the mutation that made it stale.
func recomputeTotal(ctx context.Context, tx pgx.Tx, templateID uuid.UUID) (
	decimal.Decimal, error) {

	var total decimal.Decimal
	err := tx.QueryRow(ctx, `
		UPDATE payroll_template
		SET total_amount = COALESCE(
			(SELECT SUM(amount) FROM payroll_recipient WHERE template_id = $1),
			0)
		WHERE id = $1
		RETURNING total_amount`,
		templateID,
	).Scan(&total)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return total, errors.New(errors.CodeNotFound,
				"no payroll template %s", templateID)
		}
		return total, fmt.Errorf("couldn't recompute payroll total: %w", err)
	}

	return total, nil
}

func (p *Postgres) CreatePayroll(ctx context.Context, t *types.PayrollTemplate) error {
	tx, err := p.pg.Begin(ctx)
	if err != nil {
		return fmt.Errorf("couldn't begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO payroll_template (id, name, owner_address, token_kind,
			total_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.Name, t.OwnerAddress, t.TokenKind, t.TotalAmount, t.CreatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return errors.Wrap(errors.CodeConflict, err,
				"payroll template %q already exists for %q", t.Name,
				t.OwnerAddress)
		}
		return fmt.Errorf("couldn't persist payroll template: %w", err)
	}

	for i, r := range t.Recipients {
		_, err = tx.Exec(ctx, `
			INSERT INTO payroll_recipient (template_id, position, address, amount)
			VALUES ($1, $2, $3, $4)`,
			t.ID, i, r.Address, r.Amount,
		)
		if err != nil {
			if isDuplicateKey(err) {
				return errors.Wrap(errors.CodeConflict, err,
					"duplicate payroll recipient %q", r.Address)
			}
			return fmt.Errorf("couldn't persist payroll recipient: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("couldn't commit payroll template: %w", err)
	}

	return nil
}

func (p *Postgres) GetPayroll(ctx context.Context, id uuid.UUID) (
	*types.PayrollTemplate, error) {

	row := p.pg.QueryRow(ctx, `
		SELECT `+payrollColumns+`
		FROM payroll_template
		WHERE id = $1`,
		id,
	)

	t, err := scanPayroll(row)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New(errors.CodeNotFound,
				"no payroll template %s", id)
		}
		return nil, fmt.Errorf("couldn't fetch payroll template: %w", err)
	}

	t.Recipients, err = p.loadPayrollRecipients(ctx, id)
	if err != nil {
		return nil, err
	}

	return t, nil
}

func (p *Postgres) loadPayrollRecipients(ctx context.Context, id uuid.UUID) (
	[]types.PayrollRecipient, error) {

	rows, err := p.pg.Query(ctx, `
		SELECT address, amount
		FROM payroll_recipient
		WHERE template_id = $1
		ORDER BY position`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't list payroll recipients: %w", err)
	}
	defer rows.Close()

	var recipients []types.PayrollRecipient
	for rows.Next() {
		var r types.PayrollRecipient
		if err := rows.Scan(&r.Address, &r.Amount); err != nil {
			return nil, fmt.Errorf("couldn't scan payroll recipient: %w", err)
		}
		recipients = append(recipients, r)
	}

	return recipients, rows.Err()
}

func (p *Postgres) ListPayrollsByOwner(ctx context.Context, owner string) (
	[]types.PayrollTemplate, error) {

	rows, err := p.pg.Query(ctx, `
		SELECT `+payrollColumns+`
		FROM payroll_template
		WHERE owner_address = $1
		ORDER BY created_at DESC`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't list payroll templates: %w", err)
	}
	defer rows.Close()

	var templates []types.PayrollTemplate
	for rows.Next() {
		t, err := scanPayroll(rows)
		if err != nil {
			return nil, fmt.Errorf("couldn't scan payroll template: %w", err)
		}
		templates = append(templates, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range templates {
		templates[i].Recipients, err = p.loadPayrollRecipients(ctx, templates[i].ID)
		if err != nil {
			return nil, err
		}
	}

	return templates, nil
}

func (p *Postgres) DeletePayroll(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := p.pg.Exec(ctx,
		`DELETE FROM payroll_template WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("couldn't delete payroll template: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func (p *Postgres) AddPayrollRecipient(ctx context.Context, id uuid.UUID,
	r types.PayrollRecipient) (decimal.Decimal, error) {

	var total decimal.Decimal

	tx, err := p.pg.Begin(ctx)
	if err != nil {
		return total, fmt.Errorf("couldn't begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO payroll_recipient (template_id, position, address, amount)
		VALUES ($1,
			COALESCE((SELECT MAX(position) + 1 FROM payroll_recipient
				WHERE template_id = $1), 0),
			$2, $3)`,
		id, r.Address, r.Amount,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return total, errors.Wrap(errors.CodeConflict, err,
				"recipient %q already in payroll template", r.Address)
		}
		return total, fmt.Errorf("couldn't add payroll recipient: %w", err)
	}

	total, err = recomputeTotal(ctx, tx, id)
	if err != nil {
		return total, err
	}

	return total, tx.Commit(ctx)
}

func (p *Postgres) UpdatePayrollRecipientAmount(ctx context.Context,
	id uuid.UUID, address string, amount decimal.Decimal) (decimal.Decimal, error) {

	var total decimal.Decimal

	tx, err := p.pg.Begin(ctx)
	if err != nil {
		return total, fmt.Errorf("couldn't begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE payroll_recipient
		SET amount = $1
		WHERE template_id = $2 AND address = $3`,
		amount, id, address,
	)
	if err != nil {
		return total, fmt.Errorf("couldn't update payroll recipient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return total, errors.New(errors.CodeNotFound,
			"no recipient %q in payroll template %s", address, id)
	}

	total, err = recomputeTotal(ctx, tx, id)
	if err != nil {
		return total, err
	}

	return total, tx.Commit(ctx)
}

// DeletePayrollRecipient is idempotent: removing an absent recipient succeeds
// and leaves total_amount as-is.
func (p *Postgres) DeletePayrollRecipient(ctx context.Context, id uuid.UUID,
	address string) (decimal.Decimal, error) {

	var total decimal.Decimal

	tx, err := p.pg.Begin(ctx)
	if err != nil {
		return total, fmt.Errorf("couldn't begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		DELETE FROM payroll_recipient
		WHERE template_id = $1 AND address = $2`,
		id, address,
	)
	if err != nil {
		return total, fmt.Errorf("couldn't delete payroll recipient: %w", err)
	}

	total, err = recomputeTotal(ctx, tx, id)
	if err != nil {
		return total, err
	}

	return total, tx.Commit(ctx)
}
