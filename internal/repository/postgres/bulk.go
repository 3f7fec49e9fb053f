package postgres

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/openbuilders/payment-gateway/internal/errors"
	"github.com/openbuilders/payment-gateway/internal/types"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const bulkColumns = `id, chain_tx_ref, sender, token_kind, total_amount, created_at`

func scanBulk(row pgx.Row) (*types.BulkTransfer, error) {
	var b types.BulkTransfer
	err := row.Scan(&b.ID, &b.ChainTxRef, &b.Sender, &b.TokenKind,
		&b.TotalAmount, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBulkTransfer persists the parent record and all recipient entries in
// one transaction; either everything lands or nothing does.
func (p *Postgres) CreateBulkTransfer(ctx context.Context, b *types.BulkTransfer) error {
	tx, err := p.pg.Begin(ctx)
	if err != nil {
		return fmt.Errorf("couldn't begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO bulk_transfer (id, chain_tx_ref, sender, token_kind,
			total_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		b.ID, b.ChainTxRef, b.Sender, b.TokenKind, b.TotalAmount, b.CreatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return errors.Wrap(errors.CodeConflict, err,
				"bulk transfer %q already exists", b.ChainTxRef)
		}
		return fmt.Errorf("couldn't persist bulk transfer: %w", err)
	}

	rows := make([][]any, len(b.Recipients))
	for i, r := range b.Recipients {
		rows[i] = []any{b.ID, i, r.Address, r.Amount, r.Status,
			r.VerificationCodeHash, r.SupersedingTxRef}
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"bulk_recipient"},
		[]string{"bulk_id", "position", "address", "amount", "status",
			"verification_code_hash", "superseding_tx_ref"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("couldn't persist bulk recipients: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("couldn't commit bulk transfer: %w", err)
	}

	return nil
}

func (p *Postgres) loadRecipients(ctx context.Context, bulkID uuid.UUID) (
	[]types.RecipientEntry, error) {

	rows, err := p.pg.Query(ctx, `
		SELECT address, amount, status, verification_code_hash,
			superseding_tx_ref
		FROM bulk_recipient
		WHERE bulk_id = $1
		ORDER BY position`,
		bulkID,
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't list bulk recipients: %w", err)
	}
	defer rows.Close()

	var entries []types.RecipientEntry
	for rows.Next() {
		var e types.RecipientEntry
		err = rows.Scan(&e.Address, &e.Amount, &e.Status,
			&e.VerificationCodeHash, &e.SupersedingTxRef)
		if err != nil {
			return nil, fmt.Errorf("couldn't scan bulk recipient: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func (p *Postgres) GetBulkByChainRef(ctx context.Context, chainTxRef string) (
	*types.BulkTransfer, error) {

	row := p.pg.QueryRow(ctx, `
		SELECT `+bulkColumns+`
		FROM bulk_transfer
		WHERE chain_tx_ref = $1`,
		chainTxRef,
	)

	b, err := scanBulk(row)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New(errors.CodeNotFound,
				"no bulk transfer for %q", chainTxRef)
		}
		return nil, fmt.Errorf("couldn't fetch bulk transfer: %w", err)
	}

	b.Recipients, err = p.loadRecipients(ctx, b.ID)
	if err != nil {
		return nil, err
	}

	return b, nil
}

// UpdateRecipientEntry moves a single recipient entry to the requested status.
// The update targets exactly one (bulk, address) row with the status
// precondition in the WHERE clause, so concurrent updates to sibling
// recipients never overwrite each other.
func (p *Postgres) UpdateRecipientEntry(ctx context.Context, chainTxRef,
	address string, from []types.TransferStatus, to types.TransferStatus,
	supersedingTxRef *string) (*types.RecipientEntry, error) {

	row := p.pg.QueryRow(ctx, `
		UPDATE bulk_recipient r
		SET status = $1,
			superseding_tx_ref = COALESCE($2, r.superseding_tx_ref)
		FROM bulk_transfer b
		WHERE b.chain_tx_ref = $3
			AND r.bulk_id = b.id
			AND r.address = $4
			AND r.status = ANY($5)
		RETURNING r.address, r.amount, r.status, r.verification_code_hash,
			r.superseding_tx_ref`,
		to, supersedingTxRef, chainTxRef, address, statusStrings(from),
	)

	var e types.RecipientEntry
	err := row.Scan(&e.Address, &e.Amount, &e.Status, &e.VerificationCodeHash,
		&e.SupersedingTxRef)
	if err == nil {
		return &e, nil
	}

	if !stderrors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("couldn't update recipient entry: %w", err)
	}

	current, getErr := p.getRecipientEntry(ctx, chainTxRef, address)
	if getErr != nil {
		return nil, getErr
	}

	return nil, errors.New(errors.CodeIllegalTransition,
		"can't move recipient %q of %q from %q to %q", address, chainTxRef,
		current.Status, to)
}

func (p *Postgres) getRecipientEntry(ctx context.Context, chainTxRef,
	address string) (*types.RecipientEntry, error) {

	row := p.pg.QueryRow(ctx, `
		SELECT r.address, r.amount, r.status, r.verification_code_hash,
			r.superseding_tx_ref
		FROM bulk_recipient r
		JOIN bulk_transfer b ON r.bulk_id = b.id
		WHERE b.chain_tx_ref = $1 AND r.address = $2`,
		chainTxRef, address,
	)

	var e types.RecipientEntry
	err := row.Scan(&e.Address, &e.Amount, &e.Status, &e.VerificationCodeHash,
		&e.SupersedingTxRef)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New(errors.CodeNotFound,
				"no recipient %q in bulk transfer %q", address, chainTxRef)
		}
		return nil, fmt.Errorf("couldn't fetch recipient entry: %w", err)
	}

	return &e, nil
}

// ListBulkByAddress returns every bulk transfer in which the address appears,
// as sender or as a recipient, with recipient entries loaded.
func (p *Postgres) ListBulkByAddress(ctx context.Context, address string) (
	[]types.BulkTransfer, error) {

	rows, err := p.pg.Query(ctx, `
		SELECT `+bulkColumns+`
		FROM bulk_transfer
		WHERE sender = $1
			OR id IN (SELECT bulk_id FROM bulk_recipient WHERE address = $1)
		ORDER BY created_at DESC`,
		address,
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't list bulk transfers: %w", err)
	}
	defer rows.Close()

	var bulks []types.BulkTransfer
	for rows.Next() {
		b, err := scanBulk(rows)
		if err != nil {
			return nil, fmt.Errorf("couldn't scan bulk transfer: %w", err)
		}
		bulks = append(bulks, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range bulks {
		bulks[i].Recipients, err = p.loadRecipients(ctx, bulks[i].ID)
		if err != nil {
			return nil, err
		}
	}

	return bulks, nil
}
