package models

import "github.com/shopspring/decimal"

// GameStats summarises casino log entries over a time window
type GameStats struct {
	Game        *Game // nil when all games are included
	TotalGames  int
	TotalWins   int
	TotalLosses int
	NetGain     decimal.Decimal
	BiggestWin  decimal.Decimal
	BiggestLoss decimal.Decimal
}

// WinPercentage returns wins as a percentage of played games
func (s *GameStats) WinPercentage() float64 {
	if s.TotalGames == 0 {
		return 0
	}
	return float64(s.TotalWins) / float64(s.TotalGames) * 100
}

// NewGameStats aggregates log entries
func NewGameStats(entries []*CasinoLogEntry, game *Game) *GameStats {
	stats := &GameStats{
		Game:        game,
		NetGain:     decimal.Zero,
		BiggestWin:  decimal.Zero,
		BiggestLoss: decimal.Zero,
	}
	for _, e := range entries {
		stats.TotalGames++
		stats.NetGain = stats.NetGain.Add(e.NetGain)
		switch {
		case e.IsWin():
			stats.TotalWins++
			if e.NetGain.GreaterThan(stats.BiggestWin) {
				stats.BiggestWin = e.NetGain
			}
		case e.IsLoss():
			stats.TotalLosses++
			if e.NetGain.LessThan(stats.BiggestLoss) {
				stats.BiggestLoss = e.NetGain
			}
		}
	}
	return stats
}
