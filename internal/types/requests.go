package types

import (
	"github.com/shopspring/decimal"
)

// Request payloads are tagged per operation; every payload is validated before
// it reaches a service.

type CreateTransferRequest struct {
	Sender    string          `json:"sender"`
	Receiver  string          `json:"receiver"`
	Amount    decimal.Decimal `json:"amount"`
	TokenKind TokenKind       `json:"token_kind"`
	Mode      Mode            `json:"mode"`
}

type RecipientInput struct {
	Address string          `json:"address"`
	Amount  decimal.Decimal `json:"amount"`
}

type CreateBulkRequest struct {
	Sender      string           `json:"sender"`
	Recipients  []RecipientInput `json:"recipients"`
	TokenKind   TokenKind        `json:"token_kind"`
	TotalAmount decimal.Decimal  `json:"total_amount"`
	Mode        Mode             `json:"mode"`
}

type VerifyRequest struct {
	ChainTxRef      string `json:"chain_tx_ref"`
	Code            string `json:"code"`
	ClaimingAddress string `json:"claiming_address"`
}

type SetStatusRequest struct {
	ChainTxRef       string         `json:"chain_tx_ref"`
	Status           TransferStatus `json:"status"`
	SupersedingTxRef *string        `json:"superseding_tx_ref,omitempty"`
}

type SetRecipientStatusRequest struct {
	ChainTxRef       string         `json:"chain_tx_ref"`
	RecipientAddress string         `json:"recipient_address"`
	Status           TransferStatus `json:"status"`
	SupersedingTxRef *string        `json:"superseding_tx_ref,omitempty"`
}

type CreatePayrollRequest struct {
	Name         string             `json:"name"`
	OwnerAddress string             `json:"owner_address"`
	TokenKind    TokenKind          `json:"token_kind"`
	Recipients   []PayrollRecipient `json:"recipients"`
}
