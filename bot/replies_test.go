package bot

import (
	"context"
	"testing"
	"time"

	"casino/models"
	"casino/repository/memory"
	"casino/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSource struct{ n int }

func (s fixedSource) IntN(bound int) int { return s.n % bound }
func (s fixedSource) Uint64() uint64     { return 1<<51 - 1 }

func newReplies(t *testing.T, balances map[string]int64) (*Replies, *memory.Store) {
	t.Helper()

	store := memory.NewStore(nil)
	for id, balance := range balances {
		account := models.NewUserAccount(id)
		account.Balance = decimal.NewFromInt(balance)
		store.Seed(account)
	}

	economy := service.NewEconomyService(store, service.EconomyConfig{Daily: service.DefaultDailyPolicy()})
	require.NoError(t, economy.LoadCache(context.Background()))

	src := fixedSource{n: 0}
	games := service.NewGameService(economy, src, decimal.Zero)
	mines := service.NewMinesService(economy, src, 15*time.Minute, nil)
	return NewReplies(economy, games, mines), store
}

func TestReplies_Balance(t *testing.T) {
	replies, _ := newReplies(t, map[string]int64{"1": 1500})

	r := replies.Balance("1", "Ada")
	assert.Contains(t, r.Content, "Ada, your balance is **$1,500.00**")
	assert.Contains(t, r.Content, "daily reward is ready")
	assert.False(t, r.Ephemeral)
}

func TestReplies_FlipWin(t *testing.T) {
	replies, store := newReplies(t, map[string]int64{"1": 1000})

	r := replies.Flip(context.Background(), "1", "all", "heads")
	assert.Contains(t, r.Content, "The coin landed on heads.")
	assert.Contains(t, r.Content, "You won!")
	assert.Contains(t, r.Content, "(all in)")
	assert.Contains(t, r.Content, "$2,000.00")
	assert.Equal(t, "2000.00", store.Account("1").Balance.StringFixed(2))
}

func TestReplies_FlipErrorsAreEphemeral(t *testing.T) {
	replies, _ := newReplies(t, map[string]int64{"1": 10})

	r := replies.Flip(context.Background(), "1", "50", "heads")
	assert.True(t, r.Ephemeral)
	assert.Contains(t, r.Content, "❌")
}

func TestReplies_Limbo(t *testing.T) {
	replies, _ := newReplies(t, map[string]int64{"1": 100})

	r := replies.Limbo(context.Background(), "1", "10", "3x")
	assert.Contains(t, r.Content, "Rolled 4.00x against a 3.00x target.")
	assert.Contains(t, r.Content, "$20.00")

	bad := replies.Limbo(context.Background(), "1", "10", "lots")
	assert.True(t, bad.Ephemeral)
}

func TestReplies_Give(t *testing.T) {
	replies, store := newReplies(t, map[string]int64{"1": 100})

	r := replies.Give(context.Background(), "1", "2", "Bob", "25")
	assert.Contains(t, r.Content, "Sent **$25.00** to **Bob**")
	assert.Equal(t, "25.00", store.Account("2").Balance.StringFixed(2))

	self := replies.Give(context.Background(), "1", "1", "Ada", "5")
	assert.True(t, self.Ephemeral)
	assert.Contains(t, self.Content, "You cannot send money to yourself")
}

func TestReplies_Daily(t *testing.T) {
	replies, _ := newReplies(t, nil)

	first := replies.Daily(context.Background(), "1", "Ada")
	assert.Contains(t, first.Content, "claimed **$1,010.00** (streak 1)")

	again := replies.Daily(context.Background(), "1", "Ada")
	assert.True(t, again.Ephemeral)
	assert.Contains(t, again.Content, "<t:")
}

func TestReplies_MinesFlow(t *testing.T) {
	replies, _ := newReplies(t, map[string]int64{"1": 1000})
	ctx := context.Background()

	status := replies.MinesStatus("1")
	assert.True(t, status.Ephemeral)
	assert.Empty(t, status.Image)

	start := replies.MinesStart(ctx, "1", "100", 5)
	assert.Contains(t, start.Content, "5 mines")
	assert.Contains(t, start.Content, "```")
	assert.NotEmpty(t, start.Image)

	reveal := replies.MinesReveal(ctx, "1", 10)
	assert.Contains(t, reveal.Content, "1.25x")

	cashout := replies.MinesCashOut(ctx, "1")
	assert.Contains(t, cashout.Content, "Cashed out")
	assert.Contains(t, cashout.Content, "+$25.00")
	assert.Contains(t, cashout.Content, "$1,025.00")
}

func TestReplies_MinesHitMine(t *testing.T) {
	replies, _ := newReplies(t, map[string]int64{"1": 1000})
	ctx := context.Background()

	replies.MinesStart(ctx, "1", "100", 5)
	r := replies.MinesReveal(ctx, "1", 1)
	assert.Contains(t, r.Content, "Boom!")
	assert.Contains(t, r.Content, "$900.00")
}

func TestReplies_Stats(t *testing.T) {
	replies, _ := newReplies(t, map[string]int64{"1": 1000})
	ctx := context.Background()

	empty := replies.Stats(ctx, "1", "Ada", 24, "")
	assert.Contains(t, empty.Content, "no all games results")

	replies.Flip(ctx, "1", "100", "heads")
	r := replies.Stats(ctx, "1", "Ada", 24, "flip")
	assert.Contains(t, r.Content, "Games: 1 | Wins: 1")
	assert.Contains(t, r.Content, "+$100.00")

	assert.True(t, replies.Stats(ctx, "1", "Ada", 0, "").Ephemeral)
	assert.True(t, replies.Stats(ctx, "1", "Ada", 24, "poker").Ephemeral)
}

func TestFormatPlayResult(t *testing.T) {
	loss := FormatPlayResult(&models.PlayResult{
		NetGain:    decimal.NewFromInt(-50),
		NewBalance: decimal.NewFromInt(950),
	})
	assert.Contains(t, loss, "You lost **$50.00**")
	assert.Contains(t, loss, "New balance: **$950.00**")
}
