package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecipientEntry is the per-recipient sub-state of a bulk transfer. Entries
// progress through the same lifecycle as single transfers, independently of
// their siblings.
type RecipientEntry struct {
	Address              string          `db:"address" json:"address"`
	Amount               decimal.Decimal `db:"amount" json:"amount"`
	Status               TransferStatus  `db:"status" json:"status"`
	VerificationCodeHash *string         `db:"verification_code_hash" json:"-"`
	// SupersedingTxRef is set when this recipient's claim or refund produced
	// its own on-chain transaction.
	SupersedingTxRef *string `db:"superseding_tx_ref" json:"superseding_tx_ref,omitempty"`
}

// BulkTransfer is one sender→many-recipients transfer sharing a single chain
// transaction reference. TotalAmount always equals the sum of entry amounts;
// the invariant is checked before anything is persisted.
type BulkTransfer struct {
	ID          uuid.UUID        `db:"id" json:"id"`
	ChainTxRef  string           `db:"chain_tx_ref" json:"chain_tx_ref"`
	Sender      string           `db:"sender" json:"sender"`
	TokenKind   TokenKind        `db:"token_kind" json:"token_kind"`
	TotalAmount decimal.Decimal  `db:"total_amount" json:"total_amount"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	Recipients  []RecipientEntry `json:"recipients"`
}

// Entry returns the recipient entry for the given address, or nil.
func (b *BulkTransfer) Entry(address string) *RecipientEntry {
	for i := range b.Recipients {
		if b.Recipients[i].Address == address {
			return &b.Recipients[i]
		}
	}
	return nil
}

// EntryView flattens one recipient entry into the listing shape.
func (b *BulkTransfer) EntryView(entry *RecipientEntry) TransferView {
	return TransferView{
		ID:               b.ID,
		ChainTxRef:       b.ChainTxRef,
		Sender:           b.Sender,
		Receiver:         entry.Address,
		Amount:           entry.Amount,
		TokenKind:        b.TokenKind,
		Status:           entry.Status,
		SupersedingTxRef: entry.SupersedingTxRef,
		CreatedAt:        b.CreatedAt,
		IsBulk:           true,
	}
}
