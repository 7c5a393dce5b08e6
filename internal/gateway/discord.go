package gateway

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"

	"modkeeper/internal/logger"
)

// MuteDeny is the permission set denied by a channel mute: everything that
// lets a member produce content in the channel.
const MuteDeny = discordgo.PermissionSendMessages |
	discordgo.PermissionSendMessagesInThreads |
	discordgo.PermissionCreatePublicThreads |
	discordgo.PermissionCreatePrivateThreads |
	discordgo.PermissionAddReactions |
	discordgo.PermissionVoiceSpeak

// Discord implements Gateway on top of a discordgo session.
type Discord struct {
	session *discordgo.Session
}

// NewDiscord creates a Discord gateway around an open session
func NewDiscord(session *discordgo.Session) *Discord {
	return &Discord{session: session}
}

func fmtID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// withRetry runs fn, retrying after the indicated delay when the API reports
// a rate limit. Any other error is returned as-is.
func (g *Discord) withRetry(ctx context.Context, op string, fn func() error) error {
	for {
		err := fn()
		var rl *discordgo.RateLimitError
		if !errors.As(err, &rl) {
			return err
		}
		logger.Warningf("Rate limited on %s, retrying after %v", op, rl.RetryAfter)
		select {
		case <-time.After(rl.RetryAfter):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (g *Discord) Ban(ctx context.Context, communityID, targetID int64, reason string) error {
	return g.withRetry(ctx, "ban", func() error {
		return g.session.GuildBanCreate(fmtID(communityID), fmtID(targetID), 0,
			discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	})
}

func (g *Discord) Unban(ctx context.Context, communityID, targetID int64, reason string) error {
	return g.withRetry(ctx, "unban", func() error {
		return g.session.GuildBanDelete(fmtID(communityID), fmtID(targetID),
			discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	})
}

func (g *Discord) Kick(ctx context.Context, communityID, targetID int64, reason string) error {
	return g.withRetry(ctx, "kick", func() error {
		return g.session.GuildMemberDelete(fmtID(communityID), fmtID(targetID),
			discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	})
}

func (g *Discord) SetChannelOverride(ctx context.Context, channelID, targetID int64, allow, deny int64, reason string) error {
	return g.withRetry(ctx, "set channel override", func() error {
		return g.session.ChannelPermissionSet(fmtID(channelID), fmtID(targetID),
			discordgo.PermissionOverwriteTypeMember, allow, deny,
			discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	})
}

func (g *Discord) ClearChannelOverride(ctx context.Context, channelID, targetID int64, reason string) error {
	return g.withRetry(ctx, "clear channel override", func() error {
		return g.session.ChannelPermissionDelete(fmtID(channelID), fmtID(targetID),
			discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	})
}

func (g *Discord) UserName(ctx context.Context, userID int64) (string, error) {
	user, err := g.session.User(fmtID(userID), discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return user.Username, nil
}
