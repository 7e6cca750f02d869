package bot

import (
	"fmt"
	"strings"
	"time"

	"casino/currency"
	"casino/models"

	"github.com/bwmarrin/discordgo"
)

// FormatPlayResult formats the result of a single-shot game
func FormatPlayResult(result *models.PlayResult) string {
	var b strings.Builder
	if result.Detail != "" {
		b.WriteString(result.Detail)
		b.WriteString("\n")
	}

	switch {
	case result.Won:
		fmt.Fprintf(&b, "🎉 **You won!** You gained **%s**.", currency.Format(result.NetGain))
	case result.NetGain.IsZero():
		b.WriteString("**Push.** Your wager was returned.")
	default:
		fmt.Fprintf(&b, "😔 **You lost!** You lost **%s**.", currency.Format(result.NetGain.Neg()))
	}
	if result.AllIn {
		b.WriteString(" (all in)")
	}
	fmt.Fprintf(&b, " New balance: **%s**", currency.Format(result.NewBalance))
	return b.String()
}

// FormatMines renders a mines snapshot with its board
func FormatMines(result *models.MinesResult) string {
	var b strings.Builder
	b.WriteString("```\n")
	b.WriteString(result.Board)
	b.WriteString("\n```\n")

	switch {
	case !result.IsOver():
		fmt.Fprintf(&b, "💣 %d mines | wager **%s** | %d revealed | multiplier **%.2fx** | next tile safe %.1f%%\n",
			result.Mines, currency.Format(result.Wager), result.Reveals, result.Multiplier, result.NextTileChance*100)
		fmt.Fprintf(&b, "Cash out now for **%s**.", currency.Format(result.Payout))
	case result.HitMine:
		fmt.Fprintf(&b, "💥 **Boom!** You hit a mine and lost **%s**. Balance: **%s**",
			currency.Format(result.Wager), currency.Format(result.Balance))
	default:
		fmt.Fprintf(&b, "💰 Cashed out at **%.2fx** for **%s** (%s). Balance: **%s**",
			result.Multiplier, currency.Format(result.Payout), currency.FormatSigned(result.NetGain), currency.Format(result.Balance))
	}
	return b.String()
}

// FormatStats formats aggregated casino results
func FormatStats(name string, hours int, stats *models.GameStats) string {
	scope := "all games"
	if stats.Game != nil {
		scope = stats.Game.String()
	}
	if stats.TotalGames == 0 {
		return fmt.Sprintf("%s has no %s results in the last %dh.", name, scope, hours)
	}

	return fmt.Sprintf("📊 **%s** (%s, last %dh)\nGames: %d | Wins: %d | Losses: %d | Win rate: %.1f%%\nNet: **%s** | Best: %s | Worst: %s",
		name, scope, hours,
		stats.TotalGames, stats.TotalWins, stats.TotalLosses, stats.WinPercentage(),
		currency.FormatSigned(stats.NetGain), currency.FormatSigned(stats.BiggestWin), currency.FormatSigned(stats.BiggestLoss))
}

// FormatDiscordTimestamp formats a time as a Discord timestamp that displays in user's local timezone
// Format types: "t" = short time, "T" = long time, "d" = short date, "D" = long date,
// "f" = short date/time, "F" = long date/time, "R" = relative time
func FormatDiscordTimestamp(t time.Time, format string) string {
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), format)
}

// GetDisplayName returns the server-specific display name for a user
// Falls back to username if nickname is not set or if there's an error
func GetDisplayName(s *discordgo.Session, guildID, userID string) string {
	if guildID != "" {
		member, err := s.GuildMember(guildID, userID)
		if err == nil && member != nil {
			if member.Nick != "" {
				return member.Nick
			}
			if member.User != nil {
				return member.User.Username
			}
		}
	}

	user, err := s.User(userID)
	if err == nil && user != nil {
		return user.Username
	}

	return "Unknown"
}
