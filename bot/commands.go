package bot

import (
	"fmt"

	"casino/games"

	"github.com/bwmarrin/discordgo"
)

func amountOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "amount",
		Description: description,
		Required:    true,
	}
}

func gameChoices() []*discordgo.ApplicationCommandOptionChoice {
	return []*discordgo.ApplicationCommandOptionChoice{
		{Name: "Flip", Value: "flip"},
		{Name: "Limbo", Value: "limbo"},
		{Name: "Mines", Value: "mines"},
	}
}

// registerCommands registers all slash commands with Discord
func (b *Bot) registerCommands() error {
	minMines := float64(games.MinMines)
	minCell := float64(1)

	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "balance",
			Description: "Check your current balance",
		},
		{
			Name:        "daily",
			Description: "Claim your daily reward",
		},
		{
			Name:        "flip",
			Description: "Flip a coin for double or nothing",
			Options: []*discordgo.ApplicationCommandOption{
				amountOption("Amount to wager, e.g. 100, $2.5k or all"),
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "side",
					Description: "Heads or tails (defaults to heads)",
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Heads", Value: "heads"},
						{Name: "Tails", Value: "tails"},
					},
				},
			},
		},
		{
			Name:        "limbo",
			Description: "Pick a target multiplier and hope the roll beats it",
			Options: []*discordgo.ApplicationCommandOption{
				amountOption("Amount to wager, e.g. 100, $2.5k or all"),
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "target",
					Description: "Target multiplier, e.g. 2 or 10.5",
					Required:    true,
				},
			},
		},
		{
			Name:        "mines",
			Description: "Uncover safe tiles on a 5x5 grid",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "start",
					Description: "Start a new mines game",
					Options: []*discordgo.ApplicationCommandOption{
						amountOption("Amount to wager, e.g. 100, $2.5k or all"),
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "mines",
							Description: "Number of mines (defaults to 3)",
							MinValue:    &minMines,
							MaxValue:    float64(games.MaxMines),
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "reveal",
					Description: "Reveal a tile",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "cell",
							Description: "Tile number from 1 to 25",
							Required:    true,
							MinValue:    &minCell,
							MaxValue:    float64(games.MinesCells),
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "cashout",
					Description: "Cash out at the current multiplier",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "status",
					Description: "Show your current game",
				},
			},
		},
		{
			Name:        "give",
			Description: "Give money to another player",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "User to give money to",
					Required:    true,
				},
				amountOption("Amount to give, e.g. 100, $2.5k or all"),
			},
		},
		{
			Name:        "stats",
			Description: "Show your recent casino results",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "hours",
					Description: "How many hours to look back (defaults to 24)",
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "game",
					Description: "Only include one game",
					Choices:     gameChoices(),
				},
			},
		},
	}

	for _, cmd := range commands {
		_, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, b.config.GuildID, cmd)
		if err != nil {
			return fmt.Errorf("cannot create '%s' command: %w", cmd.Name, err)
		}
	}

	return nil
}
