package postgres

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/openbuilders/payment-gateway/internal/errors"
	"github.com/openbuilders/payment-gateway/internal/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		return pgErr.Code == DuplicateKeyValue
	}
	return false
}

func statusStrings(statuses []types.TransferStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

const transferColumns = `id, chain_tx_ref, sender, receiver, amount, token_kind,
	status, verification_code_hash, superseding_tx_ref, created_at`

func scanTransfer(row pgx.Row) (*types.Transfer, error) {
	var t types.Transfer
	err := row.Scan(&t.ID, &t.ChainTxRef, &t.Sender, &t.Receiver, &t.Amount,
		&t.TokenKind, &t.Status, &t.VerificationCodeHash, &t.SupersedingTxRef,
		&t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (p *Postgres) CreateTransfer(ctx context.Context, t *types.Transfer) error {
	_, err := p.pg.Exec(ctx, `
		INSERT INTO transfer (id, chain_tx_ref, sender, receiver, amount,
			token_kind, status, verification_code_hash, superseding_tx_ref,
			created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.ChainTxRef, t.Sender, t.Receiver, t.Amount, t.TokenKind,
		t.Status, t.VerificationCodeHash, t.SupersedingTxRef, t.CreatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return errors.Wrap(errors.CodeConflict, err,
				"transfer %q already exists", t.ChainTxRef)
		}
		return fmt.Errorf("couldn't persist transfer: %w", err)
	}

	return nil
}

func (p *Postgres) GetTransferByChainRef(ctx context.Context, chainTxRef string) (
	*types.Transfer, error) {

	row := p.pg.QueryRow(ctx, `
		SELECT `+transferColumns+`
		FROM transfer
		WHERE chain_tx_ref = $1`,
		chainTxRef,
	)

	t, err := scanTransfer(row)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New(errors.CodeNotFound,
				"no transfer for %q", chainTxRef)
		}
		return nil, fmt.Errorf("couldn't fetch transfer: %w", err)
	}

	return t, nil
}

// UpdateTransferStatus moves a transfer to the requested status if and only if
// its current status is one of from. The precondition lives in the WHERE
// clause so concurrent updates can never race the transition table.
func (p *Postgres) UpdateTransferStatus(ctx context.Context, chainTxRef string,
	from []types.TransferStatus, to types.TransferStatus,
	supersedingTxRef *string) (*types.Transfer, error) {

	row := p.pg.QueryRow(ctx, `
		UPDATE transfer
		SET status = $1,
			superseding_tx_ref = COALESCE($2, superseding_tx_ref)
		WHERE chain_tx_ref = $3 AND status = ANY($4)
		RETURNING `+transferColumns,
		to, supersedingTxRef, chainTxRef, statusStrings(from),
	)

	t, err := scanTransfer(row)
	if err == nil {
		return t, nil
	}

	if !stderrors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("couldn't update transfer status: %w", err)
	}

	// Nothing matched: distinguish a missing record from a forbidden
	// transition.
	current, getErr := p.GetTransferByChainRef(ctx, chainTxRef)
	if getErr != nil {
		return nil, getErr
	}

	return nil, errors.New(errors.CodeIllegalTransition,
		"can't move transfer %q from %q to %q", chainTxRef, current.Status, to)
}

func (p *Postgres) ListTransfersByAddress(ctx context.Context, address string) (
	[]types.Transfer, error) {

	rows, err := p.pg.Query(ctx, `
		SELECT `+transferColumns+`
		FROM transfer
		WHERE sender = $1 OR receiver = $1
		ORDER BY created_at DESC`,
		address,
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't list transfers: %w", err)
	}
	defer rows.Close()

	var transfers []types.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("couldn't scan transfer: %w", err)
		}
		transfers = append(transfers, *t)
	}

	return transfers, rows.Err()
}
