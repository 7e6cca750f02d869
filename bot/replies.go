package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"casino/currency"
	"casino/games"
	"casino/models"
	"casino/service"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Reply is the text sent back for a command
type Reply struct {
	Content   string
	Ephemeral bool
	Image     []byte // PNG attached as BoardImageName
}

// Replies turns command input into reply text. It holds no Discord state.
type Replies struct {
	economy service.EconomyService
	games   service.GameService
	mines   service.MinesService
}

// NewReplies creates the command reply builder
func NewReplies(economy service.EconomyService, games service.GameService, mines service.MinesService) *Replies {
	return &Replies{economy: economy, games: games, mines: mines}
}

func errorReply(command string, userID string, err error) Reply {
	log.WithFields(log.Fields{
		"command": command,
		"user":    userID,
		"error":   err,
	}).Warn("Command failed")
	return Reply{Content: "❌ " + service.UserMessage(err), Ephemeral: true}
}

// Balance shows the cached balance and a hint about the daily reward
func (r *Replies) Balance(userID, name string) Reply {
	var b strings.Builder
	fmt.Fprintf(&b, "%s, your balance is **%s**", name, currency.Format(r.economy.GetBalance(userID)))

	daily := r.economy.DailyStatus(userID)
	switch {
	case daily.Status == models.DailyStatusLate:
		b.WriteString("\nYour daily streak has lapsed; /daily starts a new one.")
	case daily.AlmostLate:
		fmt.Fprintf(&b, "\n⏰ Claim your daily reward %s to keep your streak!", FormatDiscordTimestamp(time.Now().Add(daily.AlmostLateBy), "R"))
	case daily.Status == models.DailyStatusAvailable:
		b.WriteString("\nYour daily reward is ready.")
	}
	return Reply{Content: b.String()}
}

// Daily claims the daily reward
func (r *Replies) Daily(ctx context.Context, userID, name string) Reply {
	resp, err := r.economy.ClaimDaily(ctx, userID)
	if err != nil {
		return errorReply("daily", userID, err)
	}

	if !resp.Claimed {
		return Reply{
			Content:   fmt.Sprintf("Your next daily reward is available %s.", FormatDiscordTimestamp(resp.AvailableAt, "R")),
			Ephemeral: true,
		}
	}

	var b strings.Builder
	if resp.Status == models.DailyStatusLate {
		b.WriteString("You missed your window, so your streak starts over.\n")
	}
	fmt.Fprintf(&b, "🎁 %s claimed **%s** (streak %d). New balance: **%s**",
		name, currency.Format(resp.Reward), resp.Streak, currency.Format(resp.Balance))
	return Reply{Content: b.String()}
}

// Flip plays a coin flip
func (r *Replies) Flip(ctx context.Context, userID, amount, side string) Reply {
	result, err := r.games.Play(ctx, userID, models.GameFlip, amount, games.Params{Choice: side})
	if err != nil {
		return errorReply("flip", userID, err)
	}
	return Reply{Content: FormatPlayResult(result)}
}

// Limbo plays limbo against a target multiplier
func (r *Replies) Limbo(ctx context.Context, userID, amount, target string) Reply {
	parsed, err := decimal.NewFromString(strings.TrimSuffix(strings.TrimSpace(target), "x"))
	if err != nil {
		return Reply{Content: "❌ The target must be a number like 2 or 10.5.", Ephemeral: true}
	}

	result, err := r.games.Play(ctx, userID, models.GameLimbo, amount, games.Params{Target: parsed})
	if err != nil {
		return errorReply("limbo", userID, err)
	}
	return Reply{Content: FormatPlayResult(result)}
}

// Give transfers money to another player
func (r *Replies) Give(ctx context.Context, fromID, toID, toName, amount string) Reply {
	result, err := r.games.Transfer(ctx, fromID, toID, amount)
	if err != nil {
		return errorReply("give", fromID, err)
	}
	return Reply{Content: fmt.Sprintf("✅ Sent **%s** to **%s**. Your balance: **%s**",
		currency.Format(result.Amount), toName, currency.Format(result.FromBalance))}
}

// Stats summarises recent results
func (r *Replies) Stats(ctx context.Context, userID, name string, hours int, rawGame string) Reply {
	if hours < 1 {
		return Reply{Content: "❌ Hours must be at least 1.", Ephemeral: true}
	}

	var game *models.Game
	if rawGame != "" {
		parsed, err := models.ParseGame(rawGame)
		if err != nil {
			return Reply{Content: "❌ Unknown game.", Ephemeral: true}
		}
		game = &parsed
	}

	stats, err := r.games.Stats(ctx, userID, time.Duration(hours)*time.Hour, game)
	if err != nil {
		return errorReply("stats", userID, err)
	}
	return Reply{Content: FormatStats(name, hours, stats)}
}

// MinesStart opens a mines game
func (r *Replies) MinesStart(ctx context.Context, userID, amount string, mines int) Reply {
	result, err := r.mines.Start(ctx, userID, amount, mines)
	if err != nil {
		return errorReply("mines start", userID, err)
	}
	return minesReply(result, false)
}

// MinesReveal uncovers a tile
func (r *Replies) MinesReveal(ctx context.Context, userID string, cell int) Reply {
	result, err := r.mines.Reveal(ctx, userID, cell)
	if err != nil {
		return errorReply("mines reveal", userID, err)
	}
	return minesReply(result, false)
}

// MinesCashOut ends the game at the current multiplier
func (r *Replies) MinesCashOut(ctx context.Context, userID string) Reply {
	result, err := r.mines.CashOut(ctx, userID)
	if err != nil {
		return errorReply("mines cashout", userID, err)
	}
	return minesReply(result, false)
}

// MinesStatus shows the active game
func (r *Replies) MinesStatus(userID string) Reply {
	result, ok := r.mines.Active(userID)
	if !ok {
		return Reply{Content: "❌ " + service.UserMessage(service.ErrNoActiveGame), Ephemeral: true}
	}
	return minesReply(result, true)
}

// minesReply renders the board image; a rendering failure falls back to text
func minesReply(result *models.MinesResult, ephemeral bool) Reply {
	reply := Reply{Content: FormatMines(result), Ephemeral: ephemeral}
	image, err := RenderMinesBoard(result)
	if err != nil {
		log.WithError(err).Warn("Failed to render mines board")
		return reply
	}
	reply.Image = image
	return reply
}
