package transfer

import (
	"context"
	"log/slog"
	"time"

	"github.com/openbuilders/payment-gateway/internal/chain"
	"github.com/openbuilders/payment-gateway/internal/errors"
	"github.com/openbuilders/payment-gateway/internal/mailer"
	"github.com/openbuilders/payment-gateway/internal/metrics"
	"github.com/openbuilders/payment-gateway/internal/types"
	"github.com/openbuilders/payment-gateway/internal/verify"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Repository interface {
	CreateTransfer(ctx context.Context, t *types.Transfer) error
	GetTransferByChainRef(ctx context.Context, chainTxRef string) (*types.Transfer, error)
	UpdateTransferStatus(ctx context.Context, chainTxRef string,
		from []types.TransferStatus, to types.TransferStatus,
		supersedingTxRef *string) (*types.Transfer, error)
	ListTransfersByAddress(ctx context.Context, address string) ([]types.Transfer, error)
}

// AttemptLimiter bounds failed verification attempts. Optional.
type AttemptLimiter interface {
	Allow(ctx context.Context, chainTxRef, address string) error
	RecordFailure(ctx context.Context, chainTxRef, address string)
	Reset(ctx context.Context, chainTxRef, address string)
}

// Service is the single transfer state machine. It holds no record state
// across requests; every operation is load → mutate → persist against the
// repository.
type Service struct {
	repo      Repository
	submitter chain.Submitter
	mailer    mailer.Mailer
	limiter   AttemptLimiter
	log       *slog.Logger
}

func New(repo Repository, submitter chain.Submitter, m mailer.Mailer,
	limiter AttemptLimiter) *Service {
	return &Service{
		repo:      repo,
		submitter: submitter,
		mailer:    m,
		limiter:   limiter,
		log:       slog.With("component", "transfer"),
	}
}

// CreateResult carries the plaintext verification code exactly once: on the
// create response of a secure transfer. It is never persisted or re-read.
type CreateResult struct {
	Transfer         *types.Transfer `json:"transfer"`
	VerificationCode string          `json:"verification_code,omitempty"`
}

// ValidateCreateRequest rejects malformed create payloads before anything is
// submitted or persisted.
func ValidateCreateRequest(req *types.CreateTransferRequest) error {
	switch {
	case req.Sender == "":
		return errors.New(errors.CodeValidationError, "missing sender address")
	case req.Receiver == "":
		return errors.New(errors.CodeValidationError, "missing receiver address")
	case !req.Amount.GreaterThan(decimal.Zero):
		return errors.New(errors.CodeValidationError,
			"amount must be positive, got %q", req.Amount)
	case !req.TokenKind.Valid():
		return errors.New(errors.CodeValidationError,
			"unknown token kind %q", req.TokenKind)
	case !req.Mode.Valid():
		return errors.New(errors.CodeValidationError,
			"unknown mode %q", req.Mode)
	}
	return nil
}

// Create validates the request, moves the funds on-chain and persists the new
// record: completed for direct mode, active with a hashed verification code
// for secure mode.
func (s *Service) Create(ctx context.Context, req *types.CreateTransferRequest) (
	*CreateResult, error) {

	if err := ValidateCreateRequest(req); err != nil {
		return nil, err
	}

	chainTxRef, err := s.submitter.Submit(ctx, &chain.TransferIntent{
		TokenKind: req.TokenKind,
		Recipients: []chain.Recipient{
			{Address: req.Receiver, Amount: req.Amount},
		},
	})
	if err != nil {
		return nil, err
	}

	t := &types.Transfer{
		ID:         uuid.New(),
		ChainTxRef: chainTxRef,
		Sender:     req.Sender,
		Receiver:   req.Receiver,
		Amount:     req.Amount,
		TokenKind:  req.TokenKind,
		Status:     types.StatusCompleted,
		CreatedAt:  time.Now().UTC(),
	}

	var code string
	if req.Mode == types.ModeSecure {
		code, err = verify.Generate()
		if err != nil {
			return nil, err
		}

		hash, err := verify.Hash(code)
		if err != nil {
			return nil, err
		}

		t.Status = types.StatusActive
		t.VerificationCodeHash = &hash
	}

	if err := s.repo.CreateTransfer(ctx, t); err != nil {
		return nil, err
	}

	if req.Mode == types.ModeSecure {
		s.mailer.SendVerificationCode(ctx, req.Receiver, code, chainTxRef)
	}

	metrics.TransfersCreated.WithLabelValues("single", string(req.Mode)).Inc()

	s.log.Info("created transfer",
		"chain_tx_ref", chainTxRef,
		"mode", req.Mode,
		"status", t.Status,
	)

	return &CreateResult{Transfer: t, VerificationCode: code}, nil
}

// Verify checks a submitted code against the stored hash. Success does not
// change the transfer status; the follow-up claim or reject call does.
func (s *Service) Verify(ctx context.Context, req *types.VerifyRequest) error {
	t, err := s.repo.GetTransferByChainRef(ctx, req.ChainTxRef)
	if err != nil {
		return err
	}

	if req.ClaimingAddress != t.Receiver {
		return errors.New(errors.CodeForbidden,
			"%q is not the receiver of %q", req.ClaimingAddress, req.ChainTxRef)
	}

	if t.VerificationCodeHash == nil {
		return errors.New(errors.CodeIllegalTransition,
			"transfer %q is not awaiting verification", req.ChainTxRef)
	}

	if s.limiter != nil {
		if err := s.limiter.Allow(ctx, req.ChainTxRef, req.ClaimingAddress); err != nil {
			return err
		}
	}

	if err := verify.Check(*t.VerificationCodeHash, req.Code); err != nil {
		if s.limiter != nil {
			s.limiter.RecordFailure(ctx, req.ChainTxRef, req.ClaimingAddress)
		}
		metrics.VerificationAttempts.WithLabelValues("mismatch").Inc()
		return err
	}

	if s.limiter != nil {
		s.limiter.Reset(ctx, req.ChainTxRef, req.ClaimingAddress)
	}
	metrics.VerificationAttempts.WithLabelValues("ok").Inc()

	return nil
}

// SetStatus applies one lifecycle step: active→claimed, active→rejected or
// rejected→refunded. Everything else fails with IllegalTransition. The status
// precondition is pushed into the store update, so a concurrent status change
// can never be overwritten.
func (s *Service) SetStatus(ctx context.Context, req *types.SetStatusRequest) (
	*types.Transfer, error) {

	if !req.Status.Valid() {
		return nil, errors.New(errors.CodeValidationError,
			"unknown status %q", req.Status)
	}

	from := req.Status.Predecessors()
	if len(from) == 0 {
		// the requested status is never a transition target; still report
		// a missing record first
		if _, err := s.repo.GetTransferByChainRef(ctx, req.ChainTxRef); err != nil {
			return nil, err
		}
		return nil, errors.New(errors.CodeIllegalTransition,
			"status %q is not a legal transition target", req.Status)
	}

	t, err := s.repo.UpdateTransferStatus(ctx, req.ChainTxRef, from,
		req.Status, req.SupersedingTxRef)
	if err != nil {
		return nil, err
	}

	metrics.StatusChanges.WithLabelValues(string(req.Status)).Inc()

	s.log.Info("transfer status changed",
		"chain_tx_ref", req.ChainTxRef,
		"status", req.Status,
	)

	return t, nil
}

// ListByAddress returns the flattened views of every single transfer the
// address participates in.
func (s *Service) ListByAddress(ctx context.Context, address string) (
	[]types.TransferView, error) {

	if address == "" {
		return nil, errors.New(errors.CodeValidationError, "missing address")
	}

	transfers, err := s.repo.ListTransfersByAddress(ctx, address)
	if err != nil {
		return nil, err
	}

	views := make([]types.TransferView, len(transfers))
	for i := range transfers {
		views[i] = transfers[i].View()
	}

	return views, nil
}
