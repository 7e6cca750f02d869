package games

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWinProbability_FiveMines(t *testing.T) {
	p0, err := WinProbability(5, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, p0.Cmp(big.NewRat(1, 1)))

	p1, err := WinProbability(5, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, p1.Cmp(big.NewRat(4, 5)))

	m1, err := Multiplier(5, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, m1.Cmp(big.NewRat(5, 4)))
	assert.Equal(t, 1.25, RatFloat(m1))
}

func TestWinProbability_MatchesBinomialRatio(t *testing.T) {
	for mines := MinMines; mines <= MaxMines; mines++ {
		for reveals := 0; reveals <= MinesCells-mines; reveals++ {
			p, err := WinProbability(mines, reveals)
			require.NoError(t, err)

			want := new(big.Rat).SetFrac(
				new(big.Int).Binomial(int64(MinesCells-mines), int64(reveals)),
				new(big.Int).Binomial(MinesCells, int64(reveals)),
			)
			assert.Equal(t, 0, p.Cmp(want), "mines=%d reveals=%d", mines, reveals)
		}
	}
}

func TestWinProbability_ProductOfNextTileChances(t *testing.T) {
	mines := 3
	product := big.NewRat(1, 1)
	for r := 0; r < MinesCells-mines; r++ {
		next, err := NextTileProbability(mines, r)
		require.NoError(t, err)
		product.Mul(product, next)

		p, err := WinProbability(mines, r+1)
		require.NoError(t, err)
		assert.Equal(t, 0, p.Cmp(product))
	}
}

func TestOdds_Extremes(t *testing.T) {
	m, err := Multiplier(24, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Cmp(big.NewRat(25, 1)))

	m, err = Multiplier(1, 24)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Cmp(big.NewRat(25, 1)))

	next, err := NextTileProbability(1, 24)
	require.NoError(t, err)
	assert.Equal(t, 0, next.Sign())
}

func TestOdds_InvalidInput(t *testing.T) {
	_, err := WinProbability(0, 0)
	assert.Error(t, err)
	_, err = WinProbability(25, 0)
	assert.Error(t, err)
	_, err = WinProbability(5, 21)
	assert.Error(t, err)
	_, err = WinProbability(5, -1)
	assert.Error(t, err)
}

func TestPayoutAndProfit(t *testing.T) {
	payout, err := Payout(decimal.NewFromInt(100), 5, 1)
	require.NoError(t, err)
	assert.Equal(t, "125.00", payout.StringFixed(2))

	profit, err := Profit(decimal.NewFromInt(100), 5, 1)
	require.NoError(t, err)
	assert.Equal(t, "25.00", profit.StringFixed(2))

	// 10 * 25/24 = 10.41666...
	payout, err = Payout(decimal.NewFromInt(10), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "10.41", payout.StringFixed(2))
}

func TestMulRat_FloorsToCents(t *testing.T) {
	got := MulRat(decimal.RequireFromString("10.00"), big.NewRat(4, 3))
	assert.Equal(t, "13.33", got.StringFixed(2))
}

func TestNewMinesGame_PlacesExactMineCount(t *testing.T) {
	for _, mines := range []int{1, 5, 24} {
		game, err := NewMinesGame(DefaultSource, decimal.NewFromInt(10), mines)
		require.NoError(t, err)

		count := 0
		for _, cell := range game.Cells() {
			if cell.Mine {
				count++
			}
			assert.False(t, cell.Revealed)
		}
		assert.Equal(t, mines, count)
		assert.Equal(t, MinesPlaying, game.State)
	}

	_, err := NewMinesGame(DefaultSource, decimal.NewFromInt(10), 0)
	assert.ErrorIs(t, err, ErrInvalidMines)
	_, err = NewMinesGame(DefaultSource, decimal.NewFromInt(10), 25)
	assert.ErrorIs(t, err, ErrInvalidMines)
}

func TestNewMinesGame_DeterministicLayout(t *testing.T) {
	game, err := NewMinesGame(&stubSource{ints: []int{0}}, decimal.NewFromInt(10), 3)
	require.NoError(t, err)

	cells := game.Cells()
	assert.True(t, cells[0].Mine)
	assert.True(t, cells[1].Mine)
	assert.True(t, cells[2].Mine)
	assert.False(t, cells[3].Mine)
}

func TestMinesGame_RevealAndCashOut(t *testing.T) {
	game, err := NewMinesGameWithLayout(decimal.NewFromInt(100), []int{0, 1, 2, 3, 4})
	require.NoError(t, err)

	assert.ErrorIs(t, game.CashOut(), ErrNothingRevealed)

	hit, err := game.Reveal(10)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, game.Reveals)
	assert.Equal(t, 0, game.CurrentMultiplier().Cmp(big.NewRat(5, 4)))
	assert.Equal(t, 0, game.NextTileChance().Cmp(big.NewRat(19, 24)))

	_, err = game.Reveal(10)
	assert.ErrorIs(t, err, ErrCellRevealed)
	_, err = game.Reveal(25)
	assert.ErrorIs(t, err, ErrCellOutOfRange)

	require.NoError(t, game.CashOut())
	assert.Equal(t, MinesWin, game.State)
	assert.Equal(t, "125.00", game.Payout().StringFixed(2))
	assert.Equal(t, "25.00", game.NetGain().StringFixed(2))

	for _, cell := range game.Cells() {
		assert.True(t, cell.Revealed)
	}

	_, err = game.Reveal(11)
	assert.ErrorIs(t, err, ErrGameOver)
	assert.ErrorIs(t, game.CashOut(), ErrGameOver)
}

func TestMinesGame_HitMineLoses(t *testing.T) {
	game, err := NewMinesGameWithLayout(decimal.NewFromInt(50), []int{7})
	require.NoError(t, err)

	hit, err := game.Reveal(7)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, MinesLose, game.State)
	assert.True(t, game.Payout().IsZero())
	assert.Equal(t, "-50.00", game.NetGain().StringFixed(2))
}

func TestMinesGame_RevealAllSafeWins(t *testing.T) {
	mines := make([]int, 0, 23)
	for i := 0; i < 23; i++ {
		mines = append(mines, i)
	}
	game, err := NewMinesGameWithLayout(decimal.NewFromInt(1), mines)
	require.NoError(t, err)

	_, err = game.Reveal(23)
	require.NoError(t, err)
	assert.Equal(t, MinesPlaying, game.State)

	_, err = game.Reveal(24)
	require.NoError(t, err)
	assert.Equal(t, MinesWin, game.State)
	// C(25,2)/C(2,2) = 300
	assert.Equal(t, "300.00", game.Payout().StringFixed(2))
}

func TestNewMinesGameWithLayout_Invalid(t *testing.T) {
	_, err := NewMinesGameWithLayout(decimal.NewFromInt(1), []int{3, 3})
	assert.ErrorIs(t, err, ErrInvalidMines)
	_, err = NewMinesGameWithLayout(decimal.NewFromInt(1), []int{30})
	assert.ErrorIs(t, err, ErrCellOutOfRange)
	_, err = NewMinesGameWithLayout(decimal.NewFromInt(1), nil)
	assert.ErrorIs(t, err, ErrInvalidMines)
}

func TestMinesGame_Render(t *testing.T) {
	game, err := NewMinesGameWithLayout(decimal.NewFromInt(1), []int{0})
	require.NoError(t, err)
	_, err = game.Reveal(1)
	require.NoError(t, err)

	out := game.Render()
	assert.Contains(t, out, "[ o]")
	assert.Contains(t, out, "[ 1]")
	assert.NotContains(t, out, "[ X]")
}

func TestMinesGame_ExpireRefundsWithoutReveals(t *testing.T) {
	game, err := NewMinesGameWithLayout(decimal.NewFromInt(40), []int{0, 1, 2})
	require.NoError(t, err)

	require.NoError(t, game.Expire())
	assert.Equal(t, MinesWin, game.State)
	assert.Equal(t, "40.00", game.Payout().StringFixed(2))
	assert.True(t, game.NetGain().IsZero())
	assert.ErrorIs(t, game.Expire(), ErrGameOver)
}
