package chain

import (
	"context"

	"github.com/openbuilders/payment-gateway/internal/types"

	"github.com/shopspring/decimal"
)

// Recipient is one output of a transfer intent.
type Recipient struct {
	Address string
	Amount  decimal.Decimal
	Comment string
}

// TransferIntent is everything the blockchain layer needs to move funds. One
// intent maps to one external message, however many recipients it carries.
type TransferIntent struct {
	TokenKind  types.TokenKind
	Recipients []Recipient
}

// Total returns the sum of all recipient amounts.
func (ti *TransferIntent) Total() decimal.Decimal {
	total := decimal.Zero
	for _, r := range ti.Recipients {
		total = total.Add(r.Amount)
	}
	return total
}

// Submitter signs and submits a transfer intent and returns the chain
// transaction reference. Settlement time is unbounded; callers pass a context
// they are prepared to wait on.
type Submitter interface {
	Submit(ctx context.Context, intent *TransferIntent) (string, error)
}
