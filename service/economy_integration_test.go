package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"casino/games"
	"casino/models"
	"casino/repository/memory"
	"casino/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSource struct {
	n int
	u uint64
}

func (s fixedSource) IntN(bound int) int { return s.n % bound }
func (s fixedSource) Uint64() uint64     { return s.u }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	store   *memory.Store
	economy service.EconomyService
	clock   *fakeClock
}

func newHarness(t *testing.T, accounts ...*models.UserAccount) *harness {
	t.Helper()

	store := memory.NewStore(nil)
	store.Seed(accounts...)
	clock := newFakeClock()

	economy := service.NewEconomyService(store, service.EconomyConfig{
		Daily:         service.DefaultDailyPolicy(),
		RetryAttempts: 3,
		Now:           clock.Now,
	})
	require.NoError(t, economy.LoadCache(context.Background()))

	return &harness{store: store, economy: economy, clock: clock}
}

func account(id string, balance int64) *models.UserAccount {
	a := models.NewUserAccount(id)
	a.Balance = decimal.NewFromInt(balance)
	return a
}

func TestPlay_FlipAllInWin(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, account("player", 1000))
	svc := service.NewGameService(h.economy, fixedSource{n: 0}, decimal.Zero)

	result, err := svc.Play(ctx, "player", models.GameFlip, "all", gamesParams("heads"))

	require.NoError(t, err)
	assert.True(t, result.Won)
	assert.True(t, result.AllIn)
	assert.Equal(t, "1000.00", result.NetGain.StringFixed(2))
	assert.Equal(t, "2000.00", result.NewBalance.StringFixed(2))
	assert.Equal(t, "2000.00", h.economy.GetBalance("player").StringFixed(2))
	assert.Equal(t, "2000.00", h.store.Account("player").Balance.StringFixed(2))

	logs := h.store.Logs("player")
	require.Len(t, logs, 1)
	assert.Equal(t, models.GameFlip, logs[0].Game)
	assert.Equal(t, "1000.00", logs[0].NetGain.StringFixed(2))
}

func TestPlay_FlipLoss(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, account("player", 300))
	svc := service.NewGameService(h.economy, fixedSource{n: 1}, decimal.Zero)

	result, err := svc.Play(ctx, "player", models.GameFlip, "$120.50", gamesParams("heads"))

	require.NoError(t, err)
	assert.False(t, result.Won)
	assert.Equal(t, "-120.50", result.NetGain.StringFixed(2))
	assert.Equal(t, "179.50", result.NewBalance.StringFixed(2))
}

func TestPlay_LimboWin(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, account("player", 100))
	// u = 2^51 draws a 4.00x multiplier
	svc := service.NewGameService(h.economy, fixedSource{u: 1<<51 - 1}, decimal.Zero)

	result, err := svc.Play(ctx, "player", models.GameLimbo, "10", limboParams("3"))

	require.NoError(t, err)
	assert.True(t, result.Won)
	assert.Equal(t, "20.00", result.NetGain.StringFixed(2))
	assert.Equal(t, "120.00", result.NewBalance.StringFixed(2))
}

func TestPlay_InvalidWagersDoNotTouchTheStore(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, account("player", 250))
	svc := service.NewGameService(h.economy, fixedSource{}, decimal.Zero)

	tests := []struct {
		raw     string
		wantErr error
	}{
		{"abc", service.ErrInvalidWager},
		{"-5", service.ErrNonPositiveWager},
		{"0", service.ErrNonPositiveWager},
		{"9999999", service.ErrInsufficientBalance},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			_, err := svc.Play(ctx, "player", models.GameFlip, tt.raw, gamesParams("heads"))
			assert.ErrorIs(t, err, tt.wantErr)
			assert.NotEmpty(t, service.UserMessage(err))
		})
	}

	assert.Equal(t, "250.00", h.store.Account("player").Balance.StringFixed(2))
	assert.Empty(t, h.store.Logs("player"))
}

func TestPlay_InvalidChoiceDoesNotMutate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, account("player", 250))
	svc := service.NewGameService(h.economy, fixedSource{}, decimal.Zero)

	_, err := svc.Play(ctx, "player", models.GameFlip, "10", gamesParams("sideways"))

	assert.Error(t, err)
	assert.Equal(t, "250.00", h.economy.GetBalance("player").StringFixed(2))
}

func TestPlay_LogFailureIsTolerated(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, account("player", 1000))
	h.store.FailAppends(errors.New("disk full"))
	svc := service.NewGameService(h.economy, fixedSource{n: 0}, decimal.Zero)

	result, err := svc.Play(ctx, "player", models.GameFlip, "100", gamesParams("heads"))

	require.NoError(t, err)
	assert.Equal(t, "1100.00", result.NewBalance.StringFixed(2))
	assert.Equal(t, "1100.00", h.store.Account("player").Balance.StringFixed(2))
	assert.Empty(t, h.store.Logs("player"))
}

func TestPlay_StoreUnavailable(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, account("player", 1000))
	h.store.FailBegin(errors.New("connection refused"))
	svc := service.NewGameService(h.economy, fixedSource{n: 0}, decimal.Zero)

	_, err := svc.Play(ctx, "player", models.GameFlip, "100", gamesParams("heads"))

	assert.ErrorIs(t, err, service.ErrStoreUnavailable)
	assert.NotContains(t, service.UserMessage(err), "connection refused")
	assert.Equal(t, "1000.00", h.economy.GetBalance("player").StringFixed(2))

	h.store.FailBegin(nil)
	assert.Empty(t, h.store.Logs("player"))
	assert.Equal(t, "1000.00", h.store.Account("player").Balance.StringFixed(2))
}

func TestTransfer_ConservationUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	ids := []string{"a", "b", "c", "d"}
	h := newHarness(t, account("a", 1000), account("b", 1000), account("c", 1000), account("d", 1000))

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from := ids[i%len(ids)]
			to := ids[(i*7+1)%len(ids)]
			if from == to {
				to = ids[(i+1)%len(ids)]
			}
			amount := decimal.NewFromInt(int64(i%75 + 1))
			_, err := h.economy.TransferBalance(ctx, from, to, amount)
			if err != nil && !errors.Is(err, service.ErrInsufficientBalance) {
				t.Errorf("unexpected transfer error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	total := decimal.Zero
	for _, id := range ids {
		stored := h.store.Account(id).Balance
		assert.False(t, stored.IsNegative(), "account %s went negative", id)
		assert.True(t, stored.Equal(h.economy.GetBalance(id)), "cache diverged for %s", id)
		total = total.Add(stored)
	}
	assert.Equal(t, "4000.00", total.StringFixed(2))
}

func TestTransfer_ReportsBothBalances(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, account("from", 100))
	svc := service.NewGameService(h.economy, fixedSource{}, decimal.Zero)

	result, err := svc.Transfer(ctx, "from", "to", "40")
	require.NoError(t, err)
	assert.Equal(t, "60.00", result.FromBalance.StringFixed(2))
	assert.Equal(t, "40.00", result.ToBalance.StringFixed(2))

	_, err = svc.Transfer(ctx, "from", "to", "61")
	assert.ErrorIs(t, err, service.ErrInsufficientBalance)

	_, err = svc.Transfer(ctx, "from", "from", "1")
	assert.ErrorIs(t, err, service.ErrSelfTransfer)

	result, err = svc.Transfer(ctx, "from", "to", "all")
	require.NoError(t, err)
	assert.True(t, result.FromBalance.IsZero())
	assert.Equal(t, "100.00", result.ToBalance.StringFixed(2))
}

func TestWagers_NeverGoNegativeUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, account("player", 100))
	svc := service.NewGameService(h.economy, games.DefaultSource, decimal.Zero)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Play(ctx, "player", models.GameFlip, "60", gamesParams("heads"))
			if err != nil && !errors.Is(err, service.ErrInsufficientBalance) {
				t.Errorf("unexpected play error: %v", err)
			}
		}()
	}
	wg.Wait()

	stored := h.store.Account("player").Balance
	assert.False(t, stored.IsNegative())
	assert.True(t, stored.Equal(h.economy.GetBalance("player")))
}

func TestAddBalance_RetriesInjectedConflicts(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, account("player", 10))

	h.store.InjectConflicts(2)
	updated, err := h.economy.AddBalance(ctx, "player", decimal.NewFromInt(5), models.TransactionTypeAdjustment)
	require.NoError(t, err)
	assert.Equal(t, "15.00", updated.Balance.StringFixed(2))

	h.store.InjectConflicts(10)
	_, err = h.economy.AddBalance(ctx, "player", decimal.NewFromInt(5), models.TransactionTypeAdjustment)
	assert.ErrorIs(t, err, service.ErrConcurrentMutationConflict)
	h.store.InjectConflicts(0)

	assert.Equal(t, "15.00", h.economy.GetBalance("player").StringFixed(2))
	assert.Equal(t, "15.00", h.store.Account("player").Balance.StringFixed(2))
}

func TestSetBalance(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	updated, err := h.economy.SetBalance(ctx, "new", decimal.RequireFromString("12.345"))
	require.NoError(t, err)
	assert.Equal(t, "12.35", updated.Balance.StringFixed(2))

	_, err = h.economy.SetBalance(ctx, "new", decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, service.ErrInvalidAmount)
}

func TestClaimDaily_StreakLifecycle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	first, err := h.economy.ClaimDaily(ctx, "player")
	require.NoError(t, err)
	assert.True(t, first.Claimed)
	assert.Equal(t, models.DailyStatusAvailable, first.Status)
	assert.Equal(t, 1, first.Streak)
	assert.Equal(t, 1, first.TotalDaily)
	assert.Equal(t, "1010.00", first.Reward.StringFixed(2))
	assert.Equal(t, "1010.00", h.economy.GetBalance("player").StringFixed(2))

	h.clock.Advance(17*time.Hour + 59*time.Minute)
	again, err := h.economy.ClaimDaily(ctx, "player")
	require.NoError(t, err)
	assert.False(t, again.Claimed)
	assert.Equal(t, models.DailyStatusUnavailable, again.Status)
	assert.Equal(t, "1010.00", h.economy.GetBalance("player").StringFixed(2))

	h.clock.Advance(time.Minute)
	second, err := h.economy.ClaimDaily(ctx, "player")
	require.NoError(t, err)
	assert.True(t, second.Claimed)
	assert.Equal(t, 2, second.Streak)
	assert.Equal(t, "2186.42", second.Reward.StringFixed(2))

	h.clock.Advance(36 * time.Hour)
	assert.Equal(t, models.DailyStatusLate, h.economy.DailyStatus("player").Status)
	late, err := h.economy.ClaimDaily(ctx, "player")
	require.NoError(t, err)
	assert.True(t, late.Claimed)
	assert.Equal(t, models.DailyStatusLate, late.Status)
	assert.Equal(t, 1, late.Streak)
	assert.Equal(t, 3, late.TotalDaily)
	assert.Equal(t, "1030.00", late.Reward.StringFixed(2))

	stored := h.store.Account("player")
	assert.Equal(t, 2, stored.HighestStreak)
	assert.Equal(t, "4226.42", stored.Balance.StringFixed(2))
}

func TestFetchLogsAndStats(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, account("player", 1000))

	_, err := h.economy.AddLog(ctx, "player", models.GameFlip, decimal.NewFromInt(50))
	require.NoError(t, err)
	h.clock.Advance(time.Hour)
	_, err = h.economy.AddLog(ctx, "player", models.GameLimbo, decimal.NewFromInt(-20))
	require.NoError(t, err)
	h.clock.Advance(time.Hour)
	_, err = h.economy.AddLog(ctx, "player", models.GameFlip, decimal.NewFromInt(-10))
	require.NoError(t, err)

	recent, err := h.economy.FetchLogs(ctx, "player", 90*time.Minute, nil)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, models.GameFlip, recent[0].Game)
	assert.Equal(t, models.GameLimbo, recent[1].Game)

	svc := service.NewGameService(h.economy, fixedSource{}, decimal.Zero)
	flip := models.GameFlip
	stats, err := svc.Stats(ctx, "player", 24*time.Hour, &flip)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalGames)
	assert.Equal(t, 1, stats.TotalWins)
	assert.Equal(t, "40.00", stats.NetGain.StringFixed(2))
	assert.Equal(t, 50.0, stats.WinPercentage())
}

func gamesParams(choice string) games.Params {
	return games.Params{Choice: choice}
}

func limboParams(target string) games.Params {
	return games.Params{Target: decimal.RequireFromString(target)}
}

func ExampleUserMessage() {
	fmt.Println(service.UserMessage(service.ErrSelfTransfer))
	// Output: You cannot send money to yourself
}
