package handler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"modkeeper/internal/moderation"
)

type options map[string]*discordgo.ApplicationCommandInteractionDataOption

func collectOptions(i *discordgo.InteractionCreate) options {
	data := i.ApplicationCommandData()
	opts := make(options, len(data.Options))
	for _, o := range data.Options {
		opts[o.Name] = o
	}
	return opts
}

func (o options) str(name string) string {
	if opt, ok := o[name]; ok {
		return opt.StringValue()
	}
	return ""
}

func (o options) boolean(name string) bool {
	if opt, ok := o[name]; ok {
		return opt.BoolValue()
	}
	return false
}

func (o options) user(s *discordgo.Session, i *discordgo.InteractionCreate, name string) *discordgo.User {
	if opt, ok := o[name]; ok {
		return opt.UserValue(s)
	}
	return nil
}

func (o options) channelID(i *discordgo.InteractionCreate, name string) int64 {
	if opt, ok := o[name]; ok {
		if ch := opt.ChannelValue(nil); ch != nil {
			return parseID(ch.ID)
		}
	}
	// Default to the channel the command was invoked in.
	return parseID(i.ChannelID)
}

// parseExpiration turns a user-supplied duration ("30m", "12h", "7d", "2w")
// into an absolute expiration time. Empty input means permanent.
func parseExpiration(input string, now time.Time) (*time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}
	d, err := parseLongDuration(input)
	if err != nil {
		return nil, err
	}
	if d <= 0 {
		return nil, fmt.Errorf("duration must be positive")
	}
	t := now.Add(d)
	return &t, nil
}

// parseLongDuration extends time.ParseDuration with day and week suffixes.
func parseLongDuration(input string) (time.Duration, error) {
	if d, err := time.ParseDuration(input); err == nil {
		return d, nil
	}
	for suffix, unit := range map[string]time.Duration{"d": 24 * time.Hour, "w": 7 * 24 * time.Hour} {
		if !strings.HasSuffix(input, suffix) {
			continue
		}
		n, err := strconv.ParseFloat(strings.TrimSuffix(input, suffix), 64)
		if err != nil {
			break
		}
		return time.Duration(n * float64(unit)), nil
	}
	return 0, fmt.Errorf("unrecognized duration %q (try 30m, 12h, 7d, 2w)", input)
}

// topRolePosition returns the highest role position a member holds.
func topRolePosition(s *discordgo.Session, guildID string, roleIDs []string) int {
	var roles []*discordgo.Role
	if g, err := s.State.Guild(guildID); err == nil && g != nil {
		roles = g.Roles
	} else if fetched, err := s.GuildRoles(guildID); err == nil {
		roles = fetched
	}
	held := make(map[string]bool, len(roleIDs))
	for _, id := range roleIDs {
		held[id] = true
	}
	pos := 0
	for _, r := range roles {
		if held[r.ID] && r.Position > pos {
			pos = r.Position
		}
	}
	return pos
}

// memberInfo assembles the engine's view of a guild member.
func (h *Handler) memberInfo(s *discordgo.Session, guildID string, user *discordgo.User) moderation.MemberInfo {
	info := moderation.MemberInfo{ID: parseID(user.ID), IsBot: user.Bot}
	member, err := s.GuildMember(guildID, user.ID)
	if err != nil || member == nil {
		return info
	}
	pos := topRolePosition(s, guildID, member.Roles)
	info.Rank = pos
	info.RolePosition = pos
	return info
}

// targetPolicy builds the engine target policy from current session state.
func (h *Handler) targetPolicy(s *discordgo.Session, guildID string) moderation.TargetPolicy {
	me, err := s.GuildMember(guildID, s.State.User.ID)
	botPos := 0
	if err == nil && me != nil {
		botPos = topRolePosition(s, guildID, me.Roles)
	}
	return moderation.TargetPolicy{
		BotID:           h.engine.BotID(),
		OwnerID:         h.cfg.Bot.OwnerID,
		BotRolePosition: botPos,
	}
}
