package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayrollRecipient is a template line: no status, it is not a live transfer.
type PayrollRecipient struct {
	Address string          `db:"address" json:"address"`
	Amount  decimal.Decimal `db:"amount" json:"amount"`
}

// PayrollTemplate is a reusable named recipient list owned by a wallet.
// TotalAmount is derived and recomputed on every recipient mutation.
// Executing a template produces a new BulkTransfer and leaves the template
// untouched.
type PayrollTemplate struct {
	ID           uuid.UUID          `db:"id" json:"id"`
	Name         string             `db:"name" json:"name"`
	OwnerAddress string             `db:"owner_address" json:"owner_address"`
	TokenKind    TokenKind          `db:"token_kind" json:"token_kind"`
	TotalAmount  decimal.Decimal    `db:"total_amount" json:"total_amount"`
	CreatedAt    time.Time          `db:"created_at" json:"created_at"`
	Recipients   []PayrollRecipient `json:"recipients"`
}
