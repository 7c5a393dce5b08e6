package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"modkeeper/internal/models"
	"modkeeper/internal/moderation"
)

func commandDefinitions() []*discordgo.ApplicationCommand {
	userOpt := func(desc string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: desc, Required: true,
		}
	}
	reasonOpt := &discordgo.ApplicationCommandOption{
		Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Why this action is being taken",
	}
	durationOpt := &discordgo.ApplicationCommandOption{
		Type: discordgo.ApplicationCommandOptionString, Name: "duration", Description: "How long the restriction lasts (e.g. 12h, 7d); omit for permanent",
	}
	silentOpt := &discordgo.ApplicationCommandOption{
		Type: discordgo.ApplicationCommandOptionBoolean, Name: "silent", Description: "Skip DMing the user",
	}
	channelOpt := &discordgo.ApplicationCommandOption{
		Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "Channel to act on (defaults to this one)",
	}

	return []*discordgo.ApplicationCommand{
		{Name: "ban", Description: "Ban a user from the server",
			Options: []*discordgo.ApplicationCommandOption{userOpt("User to ban"), reasonOpt, durationOpt, silentOpt}},
		{Name: "unban", Description: "Revoke a user's ban",
			Options: []*discordgo.ApplicationCommandOption{userOpt("User to unban"), reasonOpt}},
		{Name: "softban", Description: "Softban a user: kick them now and again whenever they rejoin",
			Options: []*discordgo.ApplicationCommandOption{userOpt("User to softban"), reasonOpt, durationOpt, silentOpt}},
		{Name: "unsoftban", Description: "Revoke a user's softban",
			Options: []*discordgo.ApplicationCommandOption{userOpt("User to unsoftban"), reasonOpt}},
		{Name: "mute", Description: "Take away a user's ability to speak in a channel",
			Options: []*discordgo.ApplicationCommandOption{userOpt("User to mute"), reasonOpt, durationOpt, silentOpt, channelOpt}},
		{Name: "unmute", Description: "Allow a user to speak again in a channel",
			Options: []*discordgo.ApplicationCommandOption{userOpt("User to unmute"), reasonOpt, channelOpt}},
		{Name: "warn", Description: "Issue a formal warning to a user",
			Options: []*discordgo.ApplicationCommandOption{userOpt("User to warn"), reasonOpt, durationOpt, silentOpt}},
		{Name: "unwarn", Description: "Remove a warning by its case ID",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "case_id", Description: "Case ID of the warning", Required: true},
				reasonOpt,
			}},
		{Name: "warnings", Description: "List a user's active warnings",
			Options: []*discordgo.ApplicationCommandOption{userOpt("User to inspect")}},
		{Name: "modlog", Description: "List every mod action recorded for a user, including lifted ones",
			Options: []*discordgo.ApplicationCommandOption{userOpt("User to inspect")}},
	}
}

var commandHandlers = map[string]func(h *Handler, s *discordgo.Session, i *discordgo.InteractionCreate){
	"ban":       func(h *Handler, s *discordgo.Session, i *discordgo.InteractionCreate) { h.handleApply(s, i, models.KindBan, "ban") },
	"softban":   func(h *Handler, s *discordgo.Session, i *discordgo.InteractionCreate) { h.handleApply(s, i, models.KindSoftban, "softban") },
	"mute":      func(h *Handler, s *discordgo.Session, i *discordgo.InteractionCreate) { h.handleApply(s, i, models.KindChannelMute, "mute") },
	"warn":      func(h *Handler, s *discordgo.Session, i *discordgo.InteractionCreate) { h.handleApply(s, i, models.KindWarning, "warn") },
	"unban":     func(h *Handler, s *discordgo.Session, i *discordgo.InteractionCreate) { h.handleLift(s, i, models.KindBan) },
	"unsoftban": func(h *Handler, s *discordgo.Session, i *discordgo.InteractionCreate) { h.handleLift(s, i, models.KindSoftban) },
	"unmute":    func(h *Handler, s *discordgo.Session, i *discordgo.InteractionCreate) { h.handleLift(s, i, models.KindChannelMute) },
	"unwarn":    (*Handler).handleUnwarn,
	"warnings":  (*Handler).handleWarnings,
	"modlog":    (*Handler).handleModlog,
}

func (h *Handler) handleApply(s *discordgo.Session, i *discordgo.InteractionCreate, kind models.Kind, verb string) {
	opts := collectOptions(i)
	target := opts.user(s, i, "user")
	if target == nil || i.Member == nil {
		h.respondInfo(s, i, "Invalid command", "A target user is required.")
		return
	}

	policy := h.targetPolicy(s, i.GuildID)
	issuer := h.memberInfo(s, i.GuildID, i.Member.User)
	if err := policy.CheckTarget(issuer, h.memberInfo(s, i.GuildID, target), verb); err != nil {
		h.respondError(s, i, err)
		return
	}

	expires, err := parseExpiration(opts.str("duration"), time.Now())
	if err != nil {
		h.respondInfo(s, i, "Invalid duration", err.Error())
		return
	}

	params := moderation.CreateParams{
		Kind:        kind,
		CommunityID: parseID(i.GuildID),
		IssuerID:    issuer.ID,
		TargetID:    parseID(target.ID),
		Reason:      opts.str("reason"),
		ExpiresAt:   expires,
		Silent:      opts.boolean("silent"),
	}
	if kind == models.KindChannelMute {
		params.ChannelID = opts.channelID(i, "channel")
	}

	ctx := context.Background()
	rec, err := h.engine.CreateAndApply(ctx, params)
	if err != nil {
		h.respondError(s, i, err)
		return
	}

	switch kind {
	case models.KindBan:
		h.respondOK(s, i, fmt.Sprintf("%s is now banned. (case ID: %s)", target.Mention(), rec.ID))
	case models.KindSoftban:
		h.respondOK(s, i, fmt.Sprintf("%s is now gone. I'll make sure they don't come back. (case ID: %s)", target.Mention(), rec.ID))
	case models.KindChannelMute:
		h.respondOK(s, i, fmt.Sprintf("%s can no longer speak in <#%d>. (case ID: %s)", target.Mention(), rec.ChannelID, rec.ID))
	case models.KindWarning:
		count, cerr := h.engine.ActiveWarningCount(ctx, rec.CommunityID, rec.TargetID)
		if cerr != nil {
			count = 1
		}
		h.respondOK(s, i, fmt.Sprintf("%s warned. User has %d warning%s. (case ID: %s)",
			target.Mention(), count, plural(count), rec.ID))
	}
}

func (h *Handler) handleLift(s *discordgo.Session, i *discordgo.InteractionCreate, kind models.Kind) {
	opts := collectOptions(i)
	target := opts.user(s, i, "user")
	if target == nil || i.Member == nil {
		h.respondInfo(s, i, "Invalid command", "A target user is required.")
		return
	}

	channelID := int64(0)
	if kind == models.KindChannelMute {
		channelID = opts.channelID(i, "channel")
	}

	ctx := context.Background()
	communityID := parseID(i.GuildID)
	rec, err := h.engine.FindActive(ctx, kind, communityID, parseID(target.ID), channelID)
	if err != nil {
		h.respondError(s, i, err)
		return
	}
	if rec == nil {
		h.respondInfo(s, i, "Nothing to lift",
			fmt.Sprintf("I could not find an active %s for %s in my database.", kind.Noun(), target.Mention()))
		return
	}

	if _, err := h.engine.LiftByID(ctx, rec.ID, parseID(i.Member.User.ID), opts.str("reason")); err != nil {
		h.respondError(s, i, err)
		return
	}

	switch kind {
	case models.KindBan:
		h.respondOK(s, i, fmt.Sprintf("%s is now unbanned.", target.Mention()))
	case models.KindSoftban:
		h.respondOK(s, i, fmt.Sprintf("%s can now join again.", target.Mention()))
	case models.KindChannelMute:
		h.respondOK(s, i, fmt.Sprintf("%s can now speak again in <#%d>.", target.Mention(), rec.ChannelID))
	}
}

func (h *Handler) handleUnwarn(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Member == nil {
		return
	}
	opts := collectOptions(i)
	caseID := opts.str("case_id")

	ctx := context.Background()
	rec, err := h.engine.LiftWarningByID(ctx, caseID, parseID(i.GuildID), parseID(i.Member.User.ID), opts.str("reason"))
	if err != nil {
		h.respondError(s, i, err)
		return
	}
	count, cerr := h.engine.ActiveWarningCount(ctx, rec.CommunityID, rec.TargetID)
	if cerr != nil {
		count = 0
	}
	h.respondOK(s, i, fmt.Sprintf("Removed warning %s from <@%d>. User now has %d warning%s.",
		caseID, rec.TargetID, count, plural(count)))
}

func (h *Handler) handleWarnings(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := collectOptions(i)
	target := opts.user(s, i, "user")
	if target == nil {
		return
	}

	ctx := context.Background()
	warns, err := h.engine.ListActiveOfKind(ctx, models.KindWarning, parseID(i.GuildID), parseID(target.ID))
	if err != nil {
		h.respondError(s, i, err)
		return
	}
	if len(warns) == 0 {
		h.respondInfo(s, i, "No warnings found", fmt.Sprintf("%s has no active warnings.", target.Mention()))
		return
	}

	desc := ""
	for _, w := range warns {
		reason := w.Reason
		if reason == "" {
			reason = "no reason given"
		}
		desc += fmt.Sprintf("`%s` — %s (issued by <@%d> at <t:%d:f>)\n", w.ID, reason, w.IssuerID, w.CreatedAt.Unix())
	}
	h.respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%d active warning%s", len(warns), plural(len(warns))),
		Description: desc,
	}, true)
}

func (h *Handler) handleModlog(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := collectOptions(i)
	target := opts.user(s, i, "user")
	if target == nil {
		return
	}

	ctx := context.Background()
	recs, err := h.engine.ListAll(ctx, parseID(i.GuildID), parseID(target.ID), true)
	if err != nil {
		h.respondError(s, i, err)
		return
	}
	if len(recs) == 0 {
		h.respondInfo(s, i, "No entries found",
			fmt.Sprintf("%s has no mod actions on record.", target.Mention()))
		return
	}

	desc := ""
	for _, r := range recs {
		status := "active"
		if r.LiftedAt != nil {
			status = fmt.Sprintf("lifted <t:%d:f>", r.LiftedAt.Unix())
		}
		desc += fmt.Sprintf("`%s` %s — issued <t:%d:f> by <@%d>, %s\n", r.ID, r.Kind.Noun(), r.CreatedAt.Unix(), r.IssuerID, status)
	}
	h.respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Mod actions for %s", target.Username),
		Description: desc,
	}, true)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
