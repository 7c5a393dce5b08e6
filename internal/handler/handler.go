package handler

import (
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"modkeeper/internal/config"
	"modkeeper/internal/crash"
	"modkeeper/internal/gateway"
	"modkeeper/internal/logger"
	"modkeeper/internal/moderation"
	"modkeeper/internal/notifier"
)

// Handler translates Discord interactions into engine calls and renders the
// engine's results and errors back as responses. All authorization beyond
// target eligibility is assumed to be handled by Discord command permissions.
type Handler struct {
	session *discordgo.Session
	engine  *moderation.Coordinator
	gw      gateway.Gateway
	notif   notifier.Notifier
	cfg     *config.Config
}

// New creates a Handler
func New(session *discordgo.Session, engine *moderation.Coordinator, gw gateway.Gateway, notif notifier.Notifier, cfg *config.Config) *Handler {
	return &Handler{
		session: session,
		engine:  engine,
		gw:      gw,
		notif:   notif,
		cfg:     cfg,
	}
}

// Register installs the gateway event handlers and overwrites the guild's
// application commands. Call after the session is open and the engine has
// finished startup recovery.
func (h *Handler) Register() error {
	h.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		defer crash.RecoverWithStack("interaction")
		h.onInteraction(s, i)
	})
	h.session.AddHandler(func(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
		defer crash.RecoverWithStack("member-join")
		h.onMemberJoin(s, m)
	})

	appID := h.session.State.User.ID
	guildID := strconv.FormatInt(h.cfg.Bot.GuildID, 10)
	if _, err := h.session.ApplicationCommandBulkOverwrite(appID, guildID, commandDefinitions()); err != nil {
		return fmt.Errorf("register application commands: %w", err)
	}
	logger.Infof("Registered %d application commands for guild %s", len(commandDefinitions()), guildID)
	return nil
}

func (h *Handler) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	fn, ok := commandHandlers[data.Name]
	if !ok {
		logger.Warningf("Unknown command %q", data.Name)
		return
	}
	fn(h, s, i)
}

func parseID(id string) int64 {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		logger.Warningf("Unparseable snowflake %q", id)
		return 0
	}
	return n
}
