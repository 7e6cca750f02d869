package games

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// MinesState is the lifecycle state of a Mines session
type MinesState string

const (
	MinesPlaying MinesState = "playing"
	MinesWin     MinesState = "win"
	MinesLose    MinesState = "lose"
)

var (
	ErrGameOver        = errors.New("mines game is already over")
	ErrCellOutOfRange  = errors.New("cell is outside the grid")
	ErrCellRevealed    = errors.New("cell is already revealed")
	ErrNothingRevealed = errors.New("reveal at least one cell before cashing out")
	ErrInvalidMines    = errors.New("invalid mine count")
)

// Cell is the visible state of one grid square
type Cell struct {
	Mine     bool
	Revealed bool
}

// MinesGame is a single Mines session. It is not safe for concurrent use;
// callers serialize access per player.
type MinesGame struct {
	Wager   decimal.Decimal
	Mines   int
	State   MinesState
	Reveals int

	grid [MinesCells]Cell
}

// NewMinesGame places mines uniformly at random without replacement
func NewMinesGame(src RandomSource, wager decimal.Decimal, mines int) (*MinesGame, error) {
	if mines < MinMines || mines > MaxMines {
		return nil, fmt.Errorf("%w: pick between %d and %d mines", ErrInvalidMines, MinMines, MaxMines)
	}

	// partial Fisher-Yates: the first k slots of a shuffled index list are the mines
	cells := make([]int, MinesCells)
	for i := range cells {
		cells[i] = i
	}
	for i := 0; i < mines; i++ {
		j := i + src.IntN(MinesCells-i)
		cells[i], cells[j] = cells[j], cells[i]
	}

	game := &MinesGame{Wager: wager, Mines: mines, State: MinesPlaying}
	for _, idx := range cells[:mines] {
		game.grid[idx].Mine = true
	}
	return game, nil
}

// NewMinesGameWithLayout builds a session from explicit mine positions
func NewMinesGameWithLayout(wager decimal.Decimal, mineCells []int) (*MinesGame, error) {
	if len(mineCells) < MinMines || len(mineCells) > MaxMines {
		return nil, fmt.Errorf("%w: pick between %d and %d mines", ErrInvalidMines, MinMines, MaxMines)
	}
	game := &MinesGame{Wager: wager, Mines: len(mineCells), State: MinesPlaying}
	for _, idx := range mineCells {
		if idx < 0 || idx >= MinesCells {
			return nil, fmt.Errorf("%w: %d", ErrCellOutOfRange, idx)
		}
		if game.grid[idx].Mine {
			return nil, fmt.Errorf("%w: duplicate mine at %d", ErrInvalidMines, idx)
		}
		game.grid[idx].Mine = true
	}
	return game, nil
}

// SafeCells is the number of cells without a mine
func (g *MinesGame) SafeCells() int {
	return MinesCells - g.Mines
}

// IsOver reports whether the session reached a terminal state
func (g *MinesGame) IsOver() bool {
	return g.State != MinesPlaying
}

// Reveal uncovers a cell. Hitting a mine loses; uncovering every safe cell wins.
func (g *MinesGame) Reveal(cell int) (hitMine bool, err error) {
	if g.IsOver() {
		return false, ErrGameOver
	}
	if cell < 0 || cell >= MinesCells {
		return false, fmt.Errorf("%w: %d", ErrCellOutOfRange, cell)
	}
	if g.grid[cell].Revealed {
		return false, fmt.Errorf("%w: %d", ErrCellRevealed, cell)
	}

	g.grid[cell].Revealed = true
	if g.grid[cell].Mine {
		g.finish(MinesLose)
		return true, nil
	}

	g.Reveals++
	if g.Reveals == g.SafeCells() {
		g.finish(MinesWin)
	}
	return false, nil
}

// CashOut ends a playing session as a win at the current reveal count
func (g *MinesGame) CashOut() error {
	if g.IsOver() {
		return ErrGameOver
	}
	if g.Reveals == 0 {
		return ErrNothingRevealed
	}
	g.finish(MinesWin)
	return nil
}

// Expire ends a playing session as a win at the current reveal count.
// With no reveals the payout equals the wager.
func (g *MinesGame) Expire() error {
	if g.IsOver() {
		return ErrGameOver
	}
	g.finish(MinesWin)
	return nil
}

func (g *MinesGame) finish(state MinesState) {
	g.State = state
	for i := range g.grid {
		g.grid[i].Revealed = true
	}
}

// Payout is the gross amount returned to the player: zero on a loss,
// wager * multiplier on a win
func (g *MinesGame) Payout() decimal.Decimal {
	if g.State == MinesLose {
		return decimal.Zero
	}
	payout, err := Payout(g.Wager, g.Mines, g.Reveals)
	if err != nil {
		return decimal.Zero
	}
	return payout
}

// NetGain is the payout minus the escrowed wager
func (g *MinesGame) NetGain() decimal.Decimal {
	return g.Payout().Sub(g.Wager)
}

// CurrentMultiplier is the fair multiplier at the current reveal count
func (g *MinesGame) CurrentMultiplier() *big.Rat {
	m, err := Multiplier(g.Mines, g.Reveals)
	if err != nil {
		return big.NewRat(1, 1)
	}
	return m
}

// NextTileChance is the probability that the next reveal is safe
func (g *MinesGame) NextTileChance() *big.Rat {
	p, err := NextTileProbability(g.Mines, g.Reveals)
	if err != nil {
		return new(big.Rat)
	}
	return p
}

// Cells returns a copy of the grid in row-major order
func (g *MinesGame) Cells() []Cell {
	cells := make([]Cell, MinesCells)
	copy(cells, g.grid[:])
	return cells
}

// Render draws the grid as text. Hidden cells show their index.
func (g *MinesGame) Render() string {
	var b strings.Builder
	for row := 0; row < MinesGridSize; row++ {
		for col := 0; col < MinesGridSize; col++ {
			idx := row*MinesGridSize + col
			cell := g.grid[idx]
			switch {
			case !cell.Revealed:
				fmt.Fprintf(&b, "[%2d]", idx+1)
			case cell.Mine:
				b.WriteString("[ X]")
			default:
				b.WriteString("[ o]")
			}
		}
		if row < MinesGridSize-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
