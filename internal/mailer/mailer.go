package mailer

import (
	"context"
	"encoding/json"
	"log/slog"
)

const PatternVerificationCode = "verification-code"

// Mailer delivers a verification code to a recipient address. Delivery is
// best-effort from the state machine's perspective: a failure here never rolls
// back the transfer that triggered it.
type Mailer interface {
	SendVerificationCode(ctx context.Context, address, code, chainTxRef string)
}

type Publisher interface {
	Publish(message []byte) error
}

type VerificationCodeData struct {
	Address    string `json:"address"`
	Code       string `json:"code"`
	ChainTxRef string `json:"chain_tx_ref"`
}

type VerificationCodeMessage struct {
	Pattern string               `json:"pattern"`
	Data    VerificationCodeData `json:"data"`
}

// QueueMailer hands codes off to the email worker through the dispatch queue.
type QueueMailer struct {
	publisher Publisher
	log       *slog.Logger
}

func New(publisher Publisher) *QueueMailer {
	return &QueueMailer{
		publisher: publisher,
		log:       slog.With("component", "mailer"),
	}
}

func (m *QueueMailer) SendVerificationCode(ctx context.Context, address, code,
	chainTxRef string) {

	payload := VerificationCodeMessage{
		Pattern: PatternVerificationCode,
		Data: VerificationCodeData{
			Address:    address,
			Code:       code,
			ChainTxRef: chainTxRef,
		},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		m.log.Error("error marshaling JSON", "address", address, "error", err)
		return
	}

	if err := m.publisher.Publish(jsonData); err != nil {
		m.log.Error(
			"couldn't enqueue verification code email",
			"address", address,
			"error", err,
		)
	}
}
