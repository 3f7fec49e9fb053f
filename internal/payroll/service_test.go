package payroll

import (
	"context"
	"testing"

	"github.com/openbuilders/payment-gateway/internal/bulk"
	"github.com/openbuilders/payment-gateway/internal/errors"
	"github.com/openbuilders/payment-gateway/internal/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRepository is a mock implementation of Repository for testing
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreatePayroll(ctx context.Context,
	t *types.PayrollTemplate) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockRepository) GetPayroll(ctx context.Context, id uuid.UUID) (
	*types.PayrollTemplate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.PayrollTemplate), args.Error(1)
}

func (m *MockRepository) ListPayrollsByOwner(ctx context.Context, owner string) (
	[]types.PayrollTemplate, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.PayrollTemplate), args.Error(1)
}

func (m *MockRepository) DeletePayroll(ctx context.Context, id uuid.UUID) (
	bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) AddPayrollRecipient(ctx context.Context, id uuid.UUID,
	r types.PayrollRecipient) (decimal.Decimal, error) {
	args := m.Called(ctx, id, r)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockRepository) UpdatePayrollRecipientAmount(ctx context.Context,
	id uuid.UUID, address string, amount decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, id, address, amount)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockRepository) DeletePayrollRecipient(ctx context.Context, id uuid.UUID,
	address string) (decimal.Decimal, error) {
	args := m.Called(ctx, id, address)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockBulkCreator is a mock implementation of BulkCreator for testing
type MockBulkCreator struct {
	mock.Mock
}

func (m *MockBulkCreator) Create(ctx context.Context, req *types.CreateBulkRequest) (
	*bulk.CreateResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bulk.CreateResult), args.Error(1)
}

func payrollRequest() *types.CreatePayrollRequest {
	return &types.CreatePayrollRequest{
		Name:         "august salaries",
		OwnerAddress: "EQOwner",
		TokenKind:    types.TokenTON,
		Recipients: []types.PayrollRecipient{
			{Address: "EQAlice", Amount: decimal.NewFromInt(100)},
			{Address: "EQBob", Amount: decimal.NewFromInt(200)},
		},
	}
}

func TestCreate_TotalIsSumOfRecipients(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	repo.On("CreatePayroll", ctx, mock.MatchedBy(func(tpl *types.PayrollTemplate) bool {
		return tpl.TotalAmount.Equal(decimal.NewFromInt(300)) &&
			tpl.Name == "august salaries"
	})).Return(nil)

	service := New(repo, new(MockBulkCreator))

	tpl, err := service.Create(ctx, payrollRequest())
	require.NoError(t, err)
	assert.True(t, tpl.TotalAmount.Equal(decimal.NewFromInt(300)))

	repo.AssertExpectations(t)
}

func TestCreate_DuplicateName(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	repo.On("CreatePayroll", ctx, mock.Anything).Return(
		errors.New(errors.CodeConflict, "template name already in use"))

	service := New(repo, new(MockBulkCreator))

	_, err := service.Create(ctx, payrollRequest())
	assert.Equal(t, errors.CodeConflict, errors.CodeOf(err))
}

func TestCreate_Validation(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	service := New(repo, new(MockBulkCreator))

	cases := []struct {
		name   string
		mutate func(*types.CreatePayrollRequest)
	}{
		{"missing name", func(r *types.CreatePayrollRequest) { r.Name = "" }},
		{"missing owner", func(r *types.CreatePayrollRequest) { r.OwnerAddress = "" }},
		{"unknown token", func(r *types.CreatePayrollRequest) { r.TokenKind = "DOGE" }},
		{"duplicate recipient", func(r *types.CreatePayrollRequest) {
			r.Recipients[1].Address = r.Recipients[0].Address
		}},
		{"non-positive amount", func(r *types.CreatePayrollRequest) {
			r.Recipients[0].Amount = decimal.Zero
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := payrollRequest()
			tc.mutate(req)

			_, err := service.Create(ctx, req)
			assert.Equal(t, errors.CodeValidationError, errors.CodeOf(err))
		})
	}

	repo.AssertNotCalled(t, "CreatePayroll", mock.Anything, mock.Anything)
}

func TestDelete_AbsentTemplateIsNoOp(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	repo := new(MockRepository)
	repo.On("DeletePayroll", ctx, id).Return(false, nil)

	service := New(repo, new(MockBulkCreator))

	assert.NoError(t, service.Delete(ctx, id))
}

func TestRemoveRecipient_AbsentIsNoOp(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	repo := new(MockRepository)
	repo.On("DeletePayrollRecipient", ctx, id, "EQGone").Return(
		decimal.NewFromInt(300), nil)

	service := New(repo, new(MockBulkCreator))

	total, err := service.RemoveRecipient(ctx, id, "EQGone")
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(300)))
}

func TestUpdateRecipientAmount_Validation(t *testing.T) {
	ctx := context.Background()
	service := New(new(MockRepository), new(MockBulkCreator))

	_, err := service.UpdateRecipientAmount(ctx, uuid.New(), "EQAlice",
		decimal.NewFromInt(-1))
	assert.Equal(t, errors.CodeValidationError, errors.CodeOf(err))

	_, err = service.UpdateRecipientAmount(ctx, uuid.New(), "",
		decimal.NewFromInt(1))
	assert.Equal(t, errors.CodeValidationError, errors.CodeOf(err))
}

func TestExecute(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	tpl := &types.PayrollTemplate{
		ID:           id,
		Name:         "august salaries",
		OwnerAddress: "EQOwner",
		TokenKind:    types.TokenTON,
		TotalAmount:  decimal.NewFromInt(300),
		Recipients: []types.PayrollRecipient{
			{Address: "EQAlice", Amount: decimal.NewFromInt(100)},
			{Address: "EQBob", Amount: decimal.NewFromInt(200)},
		},
	}

	repo := new(MockRepository)
	repo.On("GetPayroll", ctx, id).Return(tpl, nil)

	creator := new(MockBulkCreator)
	creator.On("Create", ctx, mock.MatchedBy(func(req *types.CreateBulkRequest) bool {
		return req.Sender == "EQOwner" &&
			req.Mode == types.ModeDirect &&
			req.TotalAmount.Equal(decimal.NewFromInt(300)) &&
			len(req.Recipients) == 2 &&
			req.Recipients[0].Address == "EQAlice"
	})).Return(&bulk.CreateResult{
		Bulk: &types.BulkTransfer{ChainTxRef: "bulk-ref-1"},
	}, nil)

	service := New(repo, creator)

	result, err := service.Execute(ctx, id, types.ModeDirect)
	require.NoError(t, err)
	assert.Equal(t, "bulk-ref-1", result.Bulk.ChainTxRef)

	creator.AssertExpectations(t)
}

func TestExecute_EmptyTemplate(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	repo := new(MockRepository)
	repo.On("GetPayroll", ctx, id).Return(&types.PayrollTemplate{
		ID:           id,
		OwnerAddress: "EQOwner",
		TokenKind:    types.TokenTON,
	}, nil)

	creator := new(MockBulkCreator)
	service := New(repo, creator)

	_, err := service.Execute(ctx, id, types.ModeDirect)
	assert.Equal(t, errors.CodeValidationError, errors.CodeOf(err))

	creator.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestExecute_MissingTemplate(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	repo := new(MockRepository)
	repo.On("GetPayroll", ctx, id).Return(nil,
		errors.New(errors.CodeNotFound, "no payroll template"))

	service := New(repo, new(MockBulkCreator))

	_, err := service.Execute(ctx, id, types.ModeSecure)
	assert.Equal(t, errors.CodeNotFound, errors.CodeOf(err))
}
