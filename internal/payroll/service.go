package payroll

import (
	"context"
	"log/slog"
	"time"

	"github.com/openbuilders/payment-gateway/internal/bulk"
	"github.com/openbuilders/payment-gateway/internal/errors"
	"github.com/openbuilders/payment-gateway/internal/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Repository interface {
	CreatePayroll(ctx context.Context, t *types.PayrollTemplate) error
	GetPayroll(ctx context.Context, id uuid.UUID) (*types.PayrollTemplate, error)
	ListPayrollsByOwner(ctx context.Context, owner string) ([]types.PayrollTemplate, error)
	DeletePayroll(ctx context.Context, id uuid.UUID) (bool, error)
	AddPayrollRecipient(ctx context.Context, id uuid.UUID,
		r types.PayrollRecipient) (decimal.Decimal, error)
	UpdatePayrollRecipientAmount(ctx context.Context, id uuid.UUID,
		address string, amount decimal.Decimal) (decimal.Decimal, error)
	DeletePayrollRecipient(ctx context.Context, id uuid.UUID,
		address string) (decimal.Decimal, error)
}

// BulkCreator is the slice of the bulk state machine Execute needs.
type BulkCreator interface {
	Create(ctx context.Context, req *types.CreateBulkRequest) (*bulk.CreateResult, error)
}

// Service manages reusable payroll templates. A template is never consumed:
// executing it produces a fresh bulk transfer each time.
type Service struct {
	repo Repository
	bulk BulkCreator
	log  *slog.Logger
}

func New(repo Repository, bulkCreator BulkCreator) *Service {
	return &Service{
		repo: repo,
		bulk: bulkCreator,
		log:  slog.With("component", "payroll"),
	}
}

func validateRecipient(r types.PayrollRecipient) error {
	if r.Address == "" {
		return errors.New(errors.CodeValidationError, "missing recipient address")
	}
	if !r.Amount.GreaterThan(decimal.Zero) {
		return errors.New(errors.CodeValidationError,
			"amount for %q must be positive, got %q", r.Address, r.Amount)
	}
	return nil
}

// Create stores a new template. The name is unique per owner; a duplicate
// fails with Conflict. An empty recipient list is fine, recipients can be
// added later.
func (s *Service) Create(ctx context.Context, req *types.CreatePayrollRequest) (
	*types.PayrollTemplate, error) {

	switch {
	case req.Name == "":
		return nil, errors.New(errors.CodeValidationError, "missing template name")
	case req.OwnerAddress == "":
		return nil, errors.New(errors.CodeValidationError, "missing owner address")
	case !req.TokenKind.Valid():
		return nil, errors.New(errors.CodeValidationError,
			"unknown token kind %q", req.TokenKind)
	}

	total := decimal.Zero
	seen := make(map[string]bool, len(req.Recipients))
	for _, r := range req.Recipients {
		if err := validateRecipient(r); err != nil {
			return nil, err
		}
		if seen[r.Address] {
			return nil, errors.New(errors.CodeValidationError,
				"duplicate recipient %q", r.Address)
		}
		seen[r.Address] = true
		total = total.Add(r.Amount)
	}

	t := &types.PayrollTemplate{
		ID:           uuid.New(),
		Name:         req.Name,
		OwnerAddress: req.OwnerAddress,
		TokenKind:    req.TokenKind,
		TotalAmount:  total,
		CreatedAt:    time.Now().UTC(),
		Recipients:   req.Recipients,
	}

	if err := s.repo.CreatePayroll(ctx, t); err != nil {
		return nil, err
	}

	s.log.Info("created payroll template", "id", t.ID, "owner", t.OwnerAddress)

	return t, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*types.PayrollTemplate, error) {
	return s.repo.GetPayroll(ctx, id)
}

func (s *Service) ListByOwner(ctx context.Context, owner string) (
	[]types.PayrollTemplate, error) {

	if owner == "" {
		return nil, errors.New(errors.CodeValidationError, "missing owner address")
	}

	return s.repo.ListPayrollsByOwner(ctx, owner)
}

// Delete removes a template. Deleting an absent template is a no-op success,
// consistent with the idempotent DELETE policy.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.repo.DeletePayroll(ctx, id)
	return err
}

// AddRecipient appends a recipient and recomputes the template total.
func (s *Service) AddRecipient(ctx context.Context, id uuid.UUID,
	r types.PayrollRecipient) (decimal.Decimal, error) {

	if err := validateRecipient(r); err != nil {
		return decimal.Zero, err
	}

	return s.repo.AddPayrollRecipient(ctx, id, r)
}

// UpdateRecipientAmount changes one recipient's amount and recomputes the
// template total.
func (s *Service) UpdateRecipientAmount(ctx context.Context, id uuid.UUID,
	address string, amount decimal.Decimal) (decimal.Decimal, error) {

	if address == "" {
		return decimal.Zero, errors.New(errors.CodeValidationError,
			"missing recipient address")
	}
	if !amount.GreaterThan(decimal.Zero) {
		return decimal.Zero, errors.New(errors.CodeValidationError,
			"amount must be positive, got %q", amount)
	}

	return s.repo.UpdatePayrollRecipientAmount(ctx, id, address, amount)
}

// RemoveRecipient deletes a recipient and recomputes the template total.
// Removing an absent recipient is a no-op success.
func (s *Service) RemoveRecipient(ctx context.Context, id uuid.UUID,
	address string) (decimal.Decimal, error) {

	if address == "" {
		return decimal.Zero, errors.New(errors.CodeValidationError,
			"missing recipient address")
	}

	return s.repo.DeletePayrollRecipient(ctx, id, address)
}

// Execute reads the template's current recipients and runs them through the
// bulk state machine. The template itself is untouched.
func (s *Service) Execute(ctx context.Context, id uuid.UUID, mode types.Mode) (
	*bulk.CreateResult, error) {

	if !mode.Valid() {
		return nil, errors.New(errors.CodeValidationError, "unknown mode %q", mode)
	}

	t, err := s.repo.GetPayroll(ctx, id)
	if err != nil {
		return nil, err
	}

	if len(t.Recipients) == 0 {
		return nil, errors.New(errors.CodeValidationError,
			"payroll template %s has no recipients", id)
	}

	req := &types.CreateBulkRequest{
		Sender:      t.OwnerAddress,
		TokenKind:   t.TokenKind,
		TotalAmount: t.TotalAmount,
		Mode:        mode,
	}
	for _, r := range t.Recipients {
		req.Recipients = append(req.Recipients, types.RecipientInput{
			Address: r.Address,
			Amount:  r.Amount,
		})
	}

	result, err := s.bulk.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	s.log.Info("executed payroll template",
		"id", id,
		"chain_tx_ref", result.Bulk.ChainTxRef,
	)

	return result, nil
}
