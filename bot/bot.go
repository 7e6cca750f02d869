package bot

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"casino/service"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// commandTimeout bounds the ledger work behind a single slash command
const commandTimeout = 10 * time.Second

// Config holds bot configuration
type Config struct {
	Token   string
	GuildID string
}

type Bot struct {
	config  Config
	session *discordgo.Session
	replies *Replies
}

// New opens the Discord session and registers the slash commands
func New(config Config, economy service.EconomyService, games service.GameService, mines service.MinesService) (*Bot, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds

	bot := &Bot{
		config:  config,
		session: dg,
		replies: NewReplies(economy, games, mines),
	}

	dg.AddHandler(bot.handleCommands)

	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("error opening connection: %w", err)
	}

	if err := bot.registerCommands(); err != nil {
		dg.Close()
		return nil, fmt.Errorf("error registering commands: %w", err)
	}

	return bot, nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) handleCommands(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	user := interactionUser(i)
	if user == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	data := i.ApplicationCommandData()
	opts := optionMap(data.Options)
	name := GetDisplayName(s, i.GuildID, user.ID)

	var r Reply
	switch data.Name {
	case "balance":
		r = b.replies.Balance(user.ID, name)
	case "daily":
		r = b.replies.Daily(ctx, user.ID, name)
	case "flip":
		r = b.replies.Flip(ctx, user.ID, stringOption(opts, "amount"), stringOption(opts, "side"))
	case "limbo":
		r = b.replies.Limbo(ctx, user.ID, stringOption(opts, "amount"), stringOption(opts, "target"))
	case "mines":
		r = b.handleMines(ctx, user.ID, data.Options)
	case "give":
		recipient, ok := opts["user"]
		if !ok {
			r = Reply{Content: "Pick someone to give money to.", Ephemeral: true}
			break
		}
		target := recipient.UserValue(s)
		r = b.replies.Give(ctx, user.ID, target.ID, GetDisplayName(s, i.GuildID, target.ID), stringOption(opts, "amount"))
	case "stats":
		r = b.replies.Stats(ctx, user.ID, name, int(intOption(opts, "hours", 24)), stringOption(opts, "game"))
	default:
		return
	}

	b.respond(s, i, r)
}

func (b *Bot) handleMines(ctx context.Context, userID string, options []*discordgo.ApplicationCommandInteractionDataOption) Reply {
	if len(options) == 0 {
		return Reply{Content: "Pick a subcommand: start, reveal, cashout or status.", Ephemeral: true}
	}

	sub := options[0]
	opts := optionMap(sub.Options)
	switch sub.Name {
	case "start":
		return b.replies.MinesStart(ctx, userID, stringOption(opts, "amount"), int(intOption(opts, "mines", 3)))
	case "reveal":
		return b.replies.MinesReveal(ctx, userID, int(intOption(opts, "cell", 0)))
	case "cashout":
		return b.replies.MinesCashOut(ctx, userID)
	case "status":
		return b.replies.MinesStatus(userID)
	default:
		return Reply{Content: "Unknown subcommand.", Ephemeral: true}
	}
}

func (b *Bot) respond(s *discordgo.Session, i *discordgo.InteractionCreate, r Reply) {
	data := &discordgo.InteractionResponseData{Content: r.Content}
	if r.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	if len(r.Image) > 0 {
		data.Files = []*discordgo.File{{
			Name:        BoardImageName,
			ContentType: "image/png",
			Reader:      bytes.NewReader(r.Image),
		}}
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		log.Errorf("Error responding to /%s: %v", i.ApplicationCommandData().Name, err)
	}
}

// interactionUser returns the invoking user for guild and DM interactions
func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

func optionMap(options []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		m[opt.Name] = opt
	}
	return m
}

func stringOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if opt, ok := opts[name]; ok {
		return opt.StringValue()
	}
	return ""
}

func intOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string, fallback int64) int64 {
	if opt, ok := opts[name]; ok {
		return opt.IntValue()
	}
	return fallback
}
