package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"casino/events"
	"casino/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type economyMocks struct {
	factory   *MockUnitOfWorkFactory
	uow       *MockUnitOfWork
	accounts  *MockAccountRepository
	logs      *MockCasinoLogRepository
	publisher *MockEventPublisher
}

func newEconomyMocks() *economyMocks {
	m := &economyMocks{
		factory:   new(MockUnitOfWorkFactory),
		uow:       new(MockUnitOfWork),
		accounts:  new(MockAccountRepository),
		logs:      new(MockCasinoLogRepository),
		publisher: new(MockEventPublisher),
	}
	m.uow.SetRepositories(m.accounts, m.logs, m.publisher)
	m.factory.On("Create").Return(m.uow)
	return m
}

func (m *economyMocks) assertExpectations(t *testing.T) {
	m.factory.AssertExpectations(t)
	m.uow.AssertExpectations(t)
	m.accounts.AssertExpectations(t)
	m.logs.AssertExpectations(t)
	m.publisher.AssertExpectations(t)
}

func deltaUpdate(want string) interface{} {
	return mock.MatchedBy(func(u models.AccountUpdate) bool {
		return u.Balance == nil && u.BalanceDelta != nil && u.BalanceDelta.Equal(decimal.RequireFromString(want))
	})
}

func TestEconomyService_AddBalance_CreatesAccount(t *testing.T) {
	ctx := context.Background()
	m := newEconomyMocks()
	svc := NewEconomyService(m.factory, EconomyConfig{Daily: DefaultDailyPolicy(), RetryAttempts: 3})

	created := &models.UserAccount{ID: "42", Balance: decimal.NewFromInt(100)}

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Commit").Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.accounts.On("GetForUpdate", ctx, "42").Return(nil, nil)
	m.accounts.On("Upsert", ctx, "42", deltaUpdate("100")).Return(created, nil)
	m.publisher.On("Publish", mock.MatchedBy(func(e events.Event) bool {
		change, ok := e.(events.BalanceChangeEvent)
		return ok && change.UserID == "42" &&
			change.OldBalance.IsZero() &&
			change.NewBalance.Equal(decimal.NewFromInt(100)) &&
			change.TransactionType == models.TransactionTypeAdjustment
	})).Return()

	account, err := svc.AddBalance(ctx, "42", decimal.NewFromInt(100), models.TransactionTypeAdjustment)

	require.NoError(t, err)
	assert.True(t, account.Balance.Equal(decimal.NewFromInt(100)))
	assert.True(t, svc.GetBalance("42").Equal(decimal.NewFromInt(100)))
	m.assertExpectations(t)
}

func TestEconomyService_AddBalance_RejectsNegativeResult(t *testing.T) {
	ctx := context.Background()
	m := newEconomyMocks()
	svc := NewEconomyService(m.factory, EconomyConfig{Daily: DefaultDailyPolicy(), RetryAttempts: 3})

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.accounts.On("GetForUpdate", ctx, "42").Return(&models.UserAccount{ID: "42", Balance: decimal.NewFromInt(10)}, nil)

	_, err := svc.AddBalance(ctx, "42", decimal.NewFromInt(-11), models.TransactionTypeGameLoss)

	assert.ErrorIs(t, err, ErrInsufficientBalance)
	m.accounts.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything)
	m.uow.AssertNotCalled(t, "Commit")
	m.assertExpectations(t)
}

func TestEconomyService_AddBalance_StoreUnavailable(t *testing.T) {
	ctx := context.Background()
	m := newEconomyMocks()
	svc := NewEconomyService(m.factory, EconomyConfig{Daily: DefaultDailyPolicy(), RetryAttempts: 3})

	storeErr := errors.Join(ErrStoreUnavailable, errors.New("dial tcp: connection refused"))
	m.uow.On("Begin", ctx).Return(storeErr).Once()

	_, err := svc.AddBalance(ctx, "42", decimal.NewFromInt(5), models.TransactionTypeAdjustment)

	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.True(t, svc.GetBalance("42").IsZero(), "cache must not change on failure")
	m.factory.AssertNumberOfCalls(t, "Create", 1)
	m.assertExpectations(t)
}

func TestEconomyService_AddBalance_RetriesCommitConflict(t *testing.T) {
	ctx := context.Background()
	m := newEconomyMocks()
	svc := NewEconomyService(m.factory, EconomyConfig{Daily: DefaultDailyPolicy(), RetryAttempts: 3})

	existing := &models.UserAccount{ID: "7", Balance: decimal.NewFromInt(20)}
	updated := &models.UserAccount{ID: "7", Balance: decimal.NewFromInt(25)}

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.uow.On("Commit").Return(ErrConcurrentMutationConflict).Once()
	m.uow.On("Commit").Return(nil).Once()
	m.accounts.On("GetForUpdate", ctx, "7").Return(existing, nil)
	m.accounts.On("Upsert", ctx, "7", deltaUpdate("5")).Return(updated, nil)
	m.publisher.On("Publish", mock.Anything).Return()

	account, err := svc.AddBalance(ctx, "7", decimal.NewFromInt(5), models.TransactionTypeAdjustment)

	require.NoError(t, err)
	assert.True(t, account.Balance.Equal(decimal.NewFromInt(25)))
	m.factory.AssertNumberOfCalls(t, "Create", 2)
	m.assertExpectations(t)
}

func TestEconomyService_TransferBalance_Validation(t *testing.T) {
	ctx := context.Background()
	m := newEconomyMocks()
	svc := NewEconomyService(m.factory, EconomyConfig{Daily: DefaultDailyPolicy(), RetryAttempts: 3})

	_, err := svc.TransferBalance(ctx, "1", "1", decimal.NewFromInt(5))
	assert.ErrorIs(t, err, ErrSelfTransfer)

	_, err = svc.TransferBalance(ctx, "1", "2", decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	m.factory.AssertNotCalled(t, "Create")
}

func TestEconomyService_TransferBalance_RollsBackDebitWhenCreditFails(t *testing.T) {
	ctx := context.Background()
	m := newEconomyMocks()
	svc := NewEconomyService(m.factory, EconomyConfig{Daily: DefaultDailyPolicy(), RetryAttempts: 3})

	alice := &models.UserAccount{ID: "alice", Balance: decimal.NewFromInt(100)}
	bob := &models.UserAccount{ID: "bob", Balance: decimal.NewFromInt(20)}

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Commit").Return(nil).Once()
	m.uow.On("Rollback").Return(nil)
	m.accounts.On("GetAll", ctx).Return([]*models.UserAccount{alice, bob}, nil)
	require.NoError(t, svc.LoadCache(ctx))

	storeErr := errors.Join(ErrStoreUnavailable, errors.New("connection reset by peer"))
	m.accounts.On("GetForUpdate", ctx, "alice").Return(alice, nil)
	m.accounts.On("GetForUpdate", ctx, "bob").Return(bob, nil)
	m.accounts.On("Upsert", ctx, "alice", deltaUpdate("-30")).
		Return(&models.UserAccount{ID: "alice", Balance: decimal.NewFromInt(70)}, nil).Once()
	m.accounts.On("Upsert", ctx, "bob", deltaUpdate("30")).Return(nil, storeErr).Once()
	m.publisher.On("Publish", mock.MatchedBy(func(e events.Event) bool {
		change, ok := e.(events.BalanceChangeEvent)
		return ok && change.UserID == "alice" && change.TransactionType == models.TransactionTypeTransferOut
	})).Return().Once()

	result, err := svc.TransferBalance(ctx, "alice", "bob", decimal.NewFromInt(30))

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.True(t, svc.GetBalance("alice").Equal(decimal.NewFromInt(100)))
	assert.True(t, svc.GetBalance("bob").Equal(decimal.NewFromInt(20)))

	// One commit for the cache load, none for the failed transfer
	m.uow.AssertNumberOfCalls(t, "Commit", 1)
	m.uow.AssertNumberOfCalls(t, "Rollback", 2)
	m.factory.AssertNumberOfCalls(t, "Create", 2)
	m.assertExpectations(t)
}

func TestEconomyService_ClaimDaily_Unavailable(t *testing.T) {
	ctx := context.Background()
	m := newEconomyMocks()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := NewEconomyService(m.factory, EconomyConfig{
		Daily:         DefaultDailyPolicy(),
		RetryAttempts: 3,
		Now:           func() time.Time { return now },
	})

	account := &models.UserAccount{
		ID:               "9",
		Balance:          decimal.NewFromInt(500),
		LastDailyClaimAt: now.Add(-2 * time.Hour).UnixMilli(),
		DailyStreak:      2,
		TotalDailyClaims: 2,
	}

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Commit").Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.accounts.On("GetForUpdate", ctx, "9").Return(account, nil)

	resp, err := svc.ClaimDaily(ctx, "9")

	require.NoError(t, err)
	assert.Equal(t, models.DailyStatusUnavailable, resp.Status)
	assert.False(t, resp.Claimed)
	assert.True(t, now.Add(16*time.Hour).Equal(resp.AvailableAt))
	m.accounts.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestEconomyService_AddLog(t *testing.T) {
	ctx := context.Background()
	m := newEconomyMocks()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := NewEconomyService(m.factory, EconomyConfig{RetryAttempts: 3, Now: func() time.Time { return now }})

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Commit").Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.logs.On("Append", ctx, mock.MatchedBy(func(e *models.CasinoLogEntry) bool {
		return e.UserID == "3" && e.Game == models.GameLimbo && e.NetGain.Equal(decimal.RequireFromString("-2.50")) && e.Timestamp.Equal(now)
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.CasinoLogEntry).ID = 11
	}).Return(nil)

	entry, err := svc.AddLog(ctx, "3", models.GameLimbo, decimal.RequireFromString("-2.5"))

	require.NoError(t, err)
	assert.Equal(t, int64(11), entry.ID)
	m.assertExpectations(t)
}

func TestEconomyService_LoadCache(t *testing.T) {
	ctx := context.Background()
	m := newEconomyMocks()
	svc := NewEconomyService(m.factory, EconomyConfig{RetryAttempts: 3})

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Commit").Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.accounts.On("GetAll", ctx).Return([]*models.UserAccount{
		{ID: "1", Balance: decimal.NewFromInt(10)},
		{ID: "2", Balance: decimal.RequireFromString("0.50")},
	}, nil)

	require.NoError(t, svc.LoadCache(ctx))

	assert.True(t, svc.GetBalance("1").Equal(decimal.NewFromInt(10)))
	assert.True(t, svc.GetBalance("2").Equal(decimal.RequireFromString("0.5")))
	assert.True(t, svc.GetBalance("unknown").IsZero())
	assert.Equal(t, "unknown", svc.GetAccount("unknown").ID)
	m.assertExpectations(t)
}
