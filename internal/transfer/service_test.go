package transfer

import (
	"context"
	"testing"

	"github.com/openbuilders/payment-gateway/internal/chain"
	"github.com/openbuilders/payment-gateway/internal/errors"
	"github.com/openbuilders/payment-gateway/internal/types"
	"github.com/openbuilders/payment-gateway/internal/verify"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRepository is a mock implementation of Repository for testing
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateTransfer(ctx context.Context, t *types.Transfer) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockRepository) GetTransferByChainRef(ctx context.Context, chainTxRef string) (
	*types.Transfer, error) {
	args := m.Called(ctx, chainTxRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Transfer), args.Error(1)
}

func (m *MockRepository) UpdateTransferStatus(ctx context.Context, chainTxRef string,
	from []types.TransferStatus, to types.TransferStatus,
	supersedingTxRef *string) (*types.Transfer, error) {
	args := m.Called(ctx, chainTxRef, from, to, supersedingTxRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Transfer), args.Error(1)
}

func (m *MockRepository) ListTransfersByAddress(ctx context.Context, address string) (
	[]types.Transfer, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Transfer), args.Error(1)
}

// MockSubmitter is a mock implementation of chain.Submitter for testing
type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) Submit(ctx context.Context, intent *chain.TransferIntent) (
	string, error) {
	args := m.Called(ctx, intent)
	return args.String(0), args.Error(1)
}

// MockMailer records verification code dispatches
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendVerificationCode(ctx context.Context, address, code,
	chainTxRef string) {
	m.Called(ctx, address, code, chainTxRef)
}

func newService(repo *MockRepository, submitter *MockSubmitter,
	m *MockMailer) *Service {
	return New(repo, submitter, m, nil)
}

func createRequest(mode types.Mode) *types.CreateTransferRequest {
	return &types.CreateTransferRequest{
		Sender:    "EQSender",
		Receiver:  "EQReceiver",
		Amount:    decimal.NewFromInt(10),
		TokenKind: types.TokenTON,
		Mode:      mode,
	}
}

func TestCreate_DirectMode(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	submitter := new(MockSubmitter)
	codeMailer := new(MockMailer)

	submitter.On("Submit", ctx, mock.MatchedBy(func(intent *chain.TransferIntent) bool {
		return len(intent.Recipients) == 1 &&
			intent.Recipients[0].Address == "EQReceiver" &&
			intent.Recipients[0].Amount.Equal(decimal.NewFromInt(10))
	})).Return("ref-1", nil)

	repo.On("CreateTransfer", ctx, mock.MatchedBy(func(tr *types.Transfer) bool {
		return tr.Status == types.StatusCompleted &&
			tr.VerificationCodeHash == nil &&
			tr.ChainTxRef == "ref-1"
	})).Return(nil)

	service := newService(repo, submitter, codeMailer)

	result, err := service.Create(ctx, createRequest(types.ModeDirect))
	require.NoError(t, err)

	// direct mode is created already terminal, with no code
	assert.Equal(t, types.StatusCompleted, result.Transfer.Status)
	assert.Empty(t, result.VerificationCode)

	codeMailer.AssertNotCalled(t, "SendVerificationCode",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
	submitter.AssertExpectations(t)
}

func TestCreate_SecureMode(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	submitter := new(MockSubmitter)
	codeMailer := new(MockMailer)

	submitter.On("Submit", ctx, mock.Anything).Return("ref-2", nil)

	var persisted *types.Transfer
	repo.On("CreateTransfer", ctx, mock.MatchedBy(func(tr *types.Transfer) bool {
		persisted = tr
		return tr.Status == types.StatusActive && tr.VerificationCodeHash != nil
	})).Return(nil)

	codeMailer.On("SendVerificationCode", ctx, "EQReceiver", mock.Anything,
		"ref-2").Return()

	service := newService(repo, submitter, codeMailer)

	result, err := service.Create(ctx, createRequest(types.ModeSecure))
	require.NoError(t, err)

	// the plaintext code is returned exactly once and never stored
	require.Len(t, result.VerificationCode, verify.CodeLength)
	require.NotNil(t, persisted.VerificationCodeHash)
	assert.NotEqual(t, result.VerificationCode, *persisted.VerificationCodeHash)
	assert.NoError(t,
		verify.Check(*persisted.VerificationCodeHash, result.VerificationCode))

	codeMailer.AssertExpectations(t)
}

func TestCreate_Validation(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	submitter := new(MockSubmitter)
	service := newService(repo, submitter, new(MockMailer))

	cases := []struct {
		name   string
		mutate func(*types.CreateTransferRequest)
	}{
		{"missing sender", func(r *types.CreateTransferRequest) { r.Sender = "" }},
		{"missing receiver", func(r *types.CreateTransferRequest) { r.Receiver = "" }},
		{"zero amount", func(r *types.CreateTransferRequest) { r.Amount = decimal.Zero }},
		{"negative amount", func(r *types.CreateTransferRequest) {
			r.Amount = decimal.NewFromInt(-5)
		}},
		{"unknown token", func(r *types.CreateTransferRequest) { r.TokenKind = "DOGE" }},
		{"unknown mode", func(r *types.CreateTransferRequest) { r.Mode = "express" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := createRequest(types.ModeDirect)
			tc.mutate(req)

			_, err := service.Create(ctx, req)
			assert.Equal(t, errors.CodeValidationError, errors.CodeOf(err))
		})
	}

	// nothing must reach the chain or the store on validation failures
	submitter.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "CreateTransfer", mock.Anything, mock.Anything)
}

func TestCreate_SubmissionFailurePersistsNothing(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	submitter := new(MockSubmitter)
	service := newService(repo, submitter, new(MockMailer))

	submitter.On("Submit", ctx, mock.Anything).Return("",
		errors.New(errors.CodeSubmissionFailed, "liteserver unavailable"))

	_, err := service.Create(ctx, createRequest(types.ModeDirect))
	assert.Equal(t, errors.CodeSubmissionFailed, errors.CodeOf(err))

	repo.AssertNotCalled(t, "CreateTransfer", mock.Anything, mock.Anything)
}

func secureTransfer(t *testing.T, code string) *types.Transfer {
	t.Helper()

	hash, err := verify.Hash(code)
	require.NoError(t, err)

	return &types.Transfer{
		ChainTxRef:           "ref-3",
		Sender:               "EQSender",
		Receiver:             "EQReceiver",
		Status:               types.StatusActive,
		VerificationCodeHash: &hash,
	}
}

func TestVerify(t *testing.T) {
	ctx := context.Background()
	stored := secureTransfer(t, "AB12CD")

	repo := new(MockRepository)
	repo.On("GetTransferByChainRef", ctx, "ref-3").Return(stored, nil)
	repo.On("GetTransferByChainRef", ctx, "missing").Return(nil,
		errors.New(errors.CodeNotFound, "no transfer"))

	service := newService(repo, new(MockSubmitter), new(MockMailer))

	t.Run("missing record", func(t *testing.T) {
		err := service.Verify(ctx, &types.VerifyRequest{
			ChainTxRef: "missing", Code: "AB12CD", ClaimingAddress: "EQReceiver",
		})
		assert.Equal(t, errors.CodeNotFound, errors.CodeOf(err))
	})

	t.Run("wrong claiming address", func(t *testing.T) {
		err := service.Verify(ctx, &types.VerifyRequest{
			ChainTxRef: "ref-3", Code: "AB12CD", ClaimingAddress: "EQIntruder",
		})
		assert.Equal(t, errors.CodeForbidden, errors.CodeOf(err))
	})

	t.Run("wrong code", func(t *testing.T) {
		err := service.Verify(ctx, &types.VerifyRequest{
			ChainTxRef: "ref-3", Code: "ZZZZZZ", ClaimingAddress: "EQReceiver",
		})
		assert.Equal(t, errors.CodeInvalidCode, errors.CodeOf(err))
	})

	t.Run("correct code", func(t *testing.T) {
		err := service.Verify(ctx, &types.VerifyRequest{
			ChainTxRef: "ref-3", Code: "AB12CD", ClaimingAddress: "EQReceiver",
		})
		assert.NoError(t, err)
		// verification alone never mutates status
		assert.Equal(t, types.StatusActive, stored.Status)
	})
}

func TestVerify_DirectTransferNotAwaiting(t *testing.T) {
	ctx := context.Background()
	stored := &types.Transfer{
		ChainTxRef: "ref-4",
		Receiver:   "EQReceiver",
		Status:     types.StatusCompleted,
	}

	repo := new(MockRepository)
	repo.On("GetTransferByChainRef", ctx, "ref-4").Return(stored, nil)

	service := newService(repo, new(MockSubmitter), new(MockMailer))

	err := service.Verify(ctx, &types.VerifyRequest{
		ChainTxRef: "ref-4", Code: "AB12CD", ClaimingAddress: "EQReceiver",
	})
	assert.Equal(t, errors.CodeIllegalTransition, errors.CodeOf(err))
}

func TestSetStatus_PassesTransitionPreconditions(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)

	claimed := &types.Transfer{ChainTxRef: "ref-5", Status: types.StatusClaimed}
	repo.On("UpdateTransferStatus", ctx, "ref-5",
		[]types.TransferStatus{types.StatusActive}, types.StatusClaimed,
		(*string)(nil)).Return(claimed, nil)

	service := newService(repo, new(MockSubmitter), new(MockMailer))

	got, err := service.SetStatus(ctx, &types.SetStatusRequest{
		ChainTxRef: "ref-5", Status: types.StatusClaimed,
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusClaimed, got.Status)

	repo.AssertExpectations(t)
}

func TestSetStatus_NeverLegalTarget(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	repo.On("GetTransferByChainRef", ctx, "ref-6").Return(
		&types.Transfer{ChainTxRef: "ref-6", Status: types.StatusClaimed}, nil)

	service := newService(repo, new(MockSubmitter), new(MockMailer))

	// active and completed exist only at creation; requesting them is always
	// an illegal transition
	for _, target := range []types.TransferStatus{types.StatusActive, types.StatusCompleted} {
		_, err := service.SetStatus(ctx, &types.SetStatusRequest{
			ChainTxRef: "ref-6", Status: target,
		})
		assert.Equal(t, errors.CodeIllegalTransition, errors.CodeOf(err))
	}

	repo.AssertNotCalled(t, "UpdateTransferStatus", mock.Anything, mock.Anything,
		mock.Anything, mock.Anything, mock.Anything)
}

func TestSetStatus_UnknownStatus(t *testing.T) {
	service := newService(new(MockRepository), new(MockSubmitter), new(MockMailer))

	_, err := service.SetStatus(context.Background(), &types.SetStatusRequest{
		ChainTxRef: "ref-7", Status: "pending",
	})
	assert.Equal(t, errors.CodeValidationError, errors.CodeOf(err))
}

func TestListByAddress(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	repo.On("ListTransfersByAddress", ctx, "EQSender").Return([]types.Transfer{
		{ChainTxRef: "ref-8", Sender: "EQSender", Receiver: "EQReceiver"},
	}, nil)

	service := newService(repo, new(MockSubmitter), new(MockMailer))

	views, err := service.ListByAddress(ctx, "EQSender")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.False(t, views[0].IsBulk)
	assert.Equal(t, "ref-8", views[0].ChainTxRef)
}
