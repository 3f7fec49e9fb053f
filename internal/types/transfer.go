package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transfer is a single sender→receiver transfer. The core fields are set once
// at creation; only Status and SupersedingTxRef mutate afterwards.
type Transfer struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	ChainTxRef string          `db:"chain_tx_ref" json:"chain_tx_ref"`
	Sender     string          `db:"sender" json:"sender"`
	Receiver   string          `db:"receiver" json:"receiver"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
	TokenKind  TokenKind       `db:"token_kind" json:"token_kind"`
	Status     TransferStatus  `db:"status" json:"status"`
	// VerificationCodeHash is present iff the transfer was created in secure
	// mode. Only the bcrypt hash is ever stored, never the plaintext.
	VerificationCodeHash *string   `db:"verification_code_hash" json:"-"`
	SupersedingTxRef     *string   `db:"superseding_tx_ref" json:"superseding_tx_ref,omitempty"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
}

// TransferView is the flattened record returned by address listings. A bulk
// transfer contributes one view per sender↔recipient relationship, so callers
// cannot distinguish bulk membership from a single transfer except via IsBulk.
type TransferView struct {
	ID               uuid.UUID       `json:"id"`
	ChainTxRef       string          `json:"chain_tx_ref"`
	Sender           string          `json:"sender"`
	Receiver         string          `json:"receiver"`
	Amount           decimal.Decimal `json:"amount"`
	TokenKind        TokenKind       `json:"token_kind"`
	Status           TransferStatus  `json:"status"`
	SupersedingTxRef *string         `json:"superseding_tx_ref,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	IsBulk           bool            `json:"is_bulk"`
}

// View flattens a single transfer into the listing shape.
func (t *Transfer) View() TransferView {
	return TransferView{
		ID:               t.ID,
		ChainTxRef:       t.ChainTxRef,
		Sender:           t.Sender,
		Receiver:         t.Receiver,
		Amount:           t.Amount,
		TokenKind:        t.TokenKind,
		Status:           t.Status,
		SupersedingTxRef: t.SupersedingTxRef,
		CreatedAt:        t.CreatedAt,
		IsBulk:           false,
	}
}
