package bulk

import (
	"context"
	"log/slog"
	"time"

	"github.com/openbuilders/payment-gateway/internal/chain"
	"github.com/openbuilders/payment-gateway/internal/errors"
	"github.com/openbuilders/payment-gateway/internal/mailer"
	"github.com/openbuilders/payment-gateway/internal/metrics"
	"github.com/openbuilders/payment-gateway/internal/transfer"
	"github.com/openbuilders/payment-gateway/internal/types"
	"github.com/openbuilders/payment-gateway/internal/verify"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Repository interface {
	CreateBulkTransfer(ctx context.Context, b *types.BulkTransfer) error
	GetBulkByChainRef(ctx context.Context, chainTxRef string) (*types.BulkTransfer, error)
	UpdateRecipientEntry(ctx context.Context, chainTxRef, address string,
		from []types.TransferStatus, to types.TransferStatus,
		supersedingTxRef *string) (*types.RecipientEntry, error)
	ListBulkByAddress(ctx context.Context, address string) ([]types.BulkTransfer, error)
}

// Service is the bulk transfer state machine: N independent recipient
// sub-lifecycles sharing one parent record and one chain transaction
// reference. Per-recipient mutations go through targeted store updates, never
// a read-modify-write of the whole recipient list.
type Service struct {
	repo      Repository
	submitter chain.Submitter
	mailer    mailer.Mailer
	limiter   transfer.AttemptLimiter
	log       *slog.Logger
}

func New(repo Repository, submitter chain.Submitter, m mailer.Mailer,
	limiter transfer.AttemptLimiter) *Service {
	return &Service{
		repo:      repo,
		submitter: submitter,
		mailer:    m,
		limiter:   limiter,
		log:       slog.With("component", "bulk"),
	}
}

// CreateResult returns the full set of plaintext codes keyed by recipient
// address, once. They are never persisted or re-readable.
type CreateResult struct {
	Bulk              *types.BulkTransfer `json:"bulk"`
	VerificationCodes map[string]string   `json:"verification_codes,omitempty"`
}

// ValidateCreateRequest checks the full recipient set, including the
// sum-equals-total invariant, before anything is submitted or persisted.
func ValidateCreateRequest(req *types.CreateBulkRequest) error {
	switch {
	case req.Sender == "":
		return errors.New(errors.CodeValidationError, "missing sender address")
	case len(req.Recipients) == 0:
		return errors.New(errors.CodeValidationError, "no recipients")
	case !req.TokenKind.Valid():
		return errors.New(errors.CodeValidationError,
			"unknown token kind %q", req.TokenKind)
	case !req.Mode.Valid():
		return errors.New(errors.CodeValidationError,
			"unknown mode %q", req.Mode)
	}

	seen := make(map[string]bool, len(req.Recipients))
	sum := decimal.Zero
	for _, r := range req.Recipients {
		if r.Address == "" {
			return errors.New(errors.CodeValidationError,
				"missing recipient address")
		}
		if seen[r.Address] {
			return errors.New(errors.CodeValidationError,
				"duplicate recipient %q", r.Address)
		}
		seen[r.Address] = true

		if !r.Amount.GreaterThan(decimal.Zero) {
			return errors.New(errors.CodeValidationError,
				"amount for %q must be positive, got %q", r.Address, r.Amount)
		}
		sum = sum.Add(r.Amount)
	}

	// the full recipient set is validated before anything is persisted, so a
	// mismatch can never leave a partial record behind
	if !sum.Equal(req.TotalAmount) {
		return errors.New(errors.CodeAmountMismatch,
			"recipient amounts sum to %s, total says %s", sum, req.TotalAmount)
	}

	return nil
}

// Create validates the whole recipient set, submits one on-chain transfer for
// all of them and persists the parent record with its entries. In secure mode
// every recipient gets an independently hashed verification code.
func (s *Service) Create(ctx context.Context, req *types.CreateBulkRequest) (
	*CreateResult, error) {

	if err := ValidateCreateRequest(req); err != nil {
		return nil, err
	}

	intent := &chain.TransferIntent{TokenKind: req.TokenKind}
	for _, r := range req.Recipients {
		intent.Recipients = append(intent.Recipients, chain.Recipient{
			Address: r.Address,
			Amount:  r.Amount,
		})
	}

	chainTxRef, err := s.submitter.Submit(ctx, intent)
	if err != nil {
		return nil, err
	}

	initial := types.StatusCompleted
	if req.Mode == types.ModeSecure {
		initial = types.StatusActive
	}

	b := &types.BulkTransfer{
		ID:          uuid.New(),
		ChainTxRef:  chainTxRef,
		Sender:      req.Sender,
		TokenKind:   req.TokenKind,
		TotalAmount: req.TotalAmount,
		CreatedAt:   time.Now().UTC(),
		Recipients:  make([]types.RecipientEntry, len(req.Recipients)),
	}

	var codes map[string]string
	if req.Mode == types.ModeSecure {
		codes = make(map[string]string, len(req.Recipients))
	}

	for i, r := range req.Recipients {
		entry := types.RecipientEntry{
			Address: r.Address,
			Amount:  r.Amount,
			Status:  initial,
		}

		if req.Mode == types.ModeSecure {
			code, err := verify.Generate()
			if err != nil {
				return nil, err
			}
			hash, err := verify.Hash(code)
			if err != nil {
				return nil, err
			}
			entry.VerificationCodeHash = &hash
			codes[r.Address] = code
		}

		b.Recipients[i] = entry
	}

	if err := s.repo.CreateBulkTransfer(ctx, b); err != nil {
		return nil, err
	}

	for address, code := range codes {
		s.mailer.SendVerificationCode(ctx, address, code, chainTxRef)
	}

	metrics.TransfersCreated.WithLabelValues("bulk", string(req.Mode)).Inc()

	s.log.Info("created bulk transfer",
		"chain_tx_ref", chainTxRef,
		"mode", req.Mode,
		"recipients", len(b.Recipients),
	)

	return &CreateResult{Bulk: b, VerificationCodes: codes}, nil
}

// Verify checks a submitted code against the hash of exactly one recipient
// entry. Siblings are untouched and success changes no status.
func (s *Service) Verify(ctx context.Context, req *types.VerifyRequest) error {
	b, err := s.repo.GetBulkByChainRef(ctx, req.ChainTxRef)
	if err != nil {
		return err
	}

	entry := b.Entry(req.ClaimingAddress)
	if entry == nil {
		return errors.New(errors.CodeNotFound,
			"no recipient %q in bulk transfer %q", req.ClaimingAddress,
			req.ChainTxRef)
	}

	if entry.VerificationCodeHash == nil {
		return errors.New(errors.CodeIllegalTransition,
			"recipient %q of %q is not awaiting verification",
			req.ClaimingAddress, req.ChainTxRef)
	}

	if s.limiter != nil {
		if err := s.limiter.Allow(ctx, req.ChainTxRef, req.ClaimingAddress); err != nil {
			return err
		}
	}

	if err := verify.Check(*entry.VerificationCodeHash, req.Code); err != nil {
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

// SetRecipientStatus applies one lifecycle step to a single recipient entry
// through a targeted update, so concurrent claims and rejects by sibling
// recipients never lose updates.
func (s *Service) SetRecipientStatus(ctx context.Context,
	req *types.SetRecipientStatusRequest) (*types.RecipientEntry, error) {

	if !req.Status.Valid() {
		return nil, errors.New(errors.CodeValidationError,
			"unknown status %q", req.Status)
	}
	if req.RecipientAddress == "" {
		return nil, errors.New(errors.CodeValidationError,
			"missing recipient address")
	}

	from := req.Status.Predecessors()
	if len(from) == 0 {
		if _, err := s.repo.GetBulkByChainRef(ctx, req.ChainTxRef); err != nil {
			return nil, err
		}
		return nil, errors.New(errors.CodeIllegalTransition,
			"status %q is not a legal transition target", req.Status)
	}

	entry, err := s.repo.UpdateRecipientEntry(ctx, req.ChainTxRef,
		req.RecipientAddress, from, req.Status, req.SupersedingTxRef)
	if err != nil {
		return nil, err
	}

	metrics.StatusChanges.WithLabelValues(string(req.Status)).Inc()

	s.log.Info("recipient status changed",
		"chain_tx_ref", req.ChainTxRef,
		"recipient", req.RecipientAddress,
		"status", req.Status,
	)

	return entry, nil
}

// ListByAddress flattens bulk membership into one Transfer-shaped view per
// relationship: every entry of a bulk the address sent, plus its own entry in
// bulks it received from.
func (s *Service) ListByAddress(ctx context.Context, address string) (
	[]types.TransferView, error) {

	if address == "" {
		return nil, errors.New(errors.CodeValidationError, "missing address")
	}

	bulks, err := s.repo.ListBulkByAddress(ctx, address)
	if err != nil {
		return nil, err
	}

	var views []types.TransferView
	for i := range bulks {
		b := &bulks[i]

		if b.Sender == address {
			for j := range b.Recipients {
				views = append(views, b.EntryView(&b.Recipients[j]))
			}
			continue
		}

		if entry := b.Entry(address); entry != nil {
			views = append(views, b.EntryView(entry))
		}
	}

	return views, nil
}
