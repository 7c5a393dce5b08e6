package bot

import (
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"modkeeper/internal/config"
	"modkeeper/internal/logger"
)

// Initialize creates and opens the Discord session
func Initialize(cfg *config.Config) (*discordgo.Session, error) {
	if cfg.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	session, err := discordgo.New("Bot " + cfg.Bot.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	// Guild state for role lookups, member events for rejoin enforcement.
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers

	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("failed to open gateway connection: %w", err)
	}

	logger.Infof("Authorized on account %s (%s)", session.State.User.Username, session.State.User.ID)
	return session, nil
}

// SelfID returns the session's own user id as an integer
func SelfID(session *discordgo.Session) (int64, error) {
	id, err := strconv.ParseInt(session.State.User.ID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable bot user id %q: %w", session.State.User.ID, err)
	}
	return id, nil
}
