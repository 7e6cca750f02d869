package repository

import (
	"context"
	"testing"
	"time"

	"casino/events"
	"casino/models"
	"casino/repository/testutil"
	"casino/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitOfWork_CommitFlushesEvents(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	bus := events.NewBus()
	received := make(chan events.Event, 1)
	bus.Subscribe(events.EventTypeBalanceChange, func(ctx context.Context, e events.Event) {
		received <- e
	})

	factory := NewUnitOfWorkFactory(testDB.DB, bus)
	ctx := context.Background()

	err := service.WithUnitOfWork(ctx, factory, func(uow service.UnitOfWork) error {
		account, err := uow.AccountRepository().Upsert(ctx, "u1", models.AddBalance(decimal.NewFromInt(10)))
		if err != nil {
			return err
		}
		uow.EventBus().Publish(events.BalanceChangeEvent{UserID: "u1", NewBalance: account.Balance})
		return nil
	})
	require.NoError(t, err)

	select {
	case e := <-received:
		assert.Equal(t, "u1", e.(events.BalanceChangeEvent).UserID)
	case <-time.After(2 * time.Second):
		t.Fatal("balance change event was not delivered")
	}
}

func TestUnitOfWork_RollbackDiscardsWrites(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	factory := NewUnitOfWorkFactory(testDB.DB, nil)
	ctx := context.Background()

	err := service.WithUnitOfWork(ctx, factory, func(uow service.UnitOfWork) error {
		if _, err := uow.AccountRepository().Upsert(ctx, "u1", models.AddBalance(decimal.NewFromInt(10))); err != nil {
			return err
		}
		_, err := uow.AccountRepository().Upsert(ctx, "u1", models.AddBalance(decimal.NewFromInt(-20)))
		return err
	})
	assert.ErrorIs(t, err, service.ErrInsufficientBalance)

	account, err := NewAccountRepository(testDB.DB).GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, account)
}

func TestUnitOfWork_EconomyEndToEnd(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	factory := NewUnitOfWorkFactory(testDB.DB, nil)
	economy := service.NewEconomyService(factory, service.EconomyConfig{
		Daily:         service.DefaultDailyPolicy(),
		RetryAttempts: service.DefaultRetryAttempts,
	})
	ctx := context.Background()
	require.NoError(t, economy.LoadCache(ctx))

	_, err := economy.AddBalance(ctx, "a", decimal.NewFromInt(100), models.TransactionTypeAdjustment)
	require.NoError(t, err)

	result, err := economy.TransferBalance(ctx, "a", "b", decimal.RequireFromString("40.10"))
	require.NoError(t, err)
	assert.Equal(t, "59.90", result.FromBalance.StringFixed(2))
	assert.Equal(t, "40.10", result.ToBalance.StringFixed(2))

	_, err = economy.TransferBalance(ctx, "a", "b", decimal.NewFromInt(60))
	assert.ErrorIs(t, err, service.ErrInsufficientBalance)

	// A fresh cache sees exactly what was committed
	reloaded := service.NewEconomyService(factory, service.EconomyConfig{Daily: service.DefaultDailyPolicy()})
	require.NoError(t, reloaded.LoadCache(ctx))
	assert.Equal(t, "59.90", reloaded.GetBalance("a").StringFixed(2))
	assert.Equal(t, "40.10", reloaded.GetBalance("b").StringFixed(2))
}
