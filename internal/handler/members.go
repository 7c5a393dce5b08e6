package handler

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"modkeeper/internal/gateway"
	"modkeeper/internal/logger"
	"modkeeper/internal/models"
	"modkeeper/internal/notifier"
)

// onMemberJoin re-enforces restrictions that survive a member leaving:
// softbanned accounts are kicked again, and channel mutes are reinstalled
// (Discord drops per-member overwrites when the member leaves).
func (h *Handler) onMemberJoin(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	ctx := context.Background()
	communityID := parseID(m.GuildID)
	targetID := parseID(m.User.ID)

	h.enforceSoftban(ctx, communityID, targetID)
	h.restoreChannelMutes(ctx, communityID, targetID)
}

func (h *Handler) enforceSoftban(ctx context.Context, communityID, targetID int64) {
	rec, err := h.engine.FindActive(ctx, models.KindSoftban, communityID, targetID, 0)
	if err != nil {
		logger.Errorf("Softban lookup for joining user %d failed: %v", targetID, err)
		return
	}
	if rec == nil {
		return
	}

	summary := notifier.Summary{
		Title: "Softban in effect",
		Description: "You were automatically kicked because this account has been softbanned.\n" +
			"If you believe you have gotten this message in error or wish to appeal, " +
			"please join our ban appeal server for next steps: " + h.cfg.Bot.AppealURL,
		Color: notifier.ColorRed,
	}
	if err := h.notif.NotifyTarget(ctx, rec, summary); err != nil {
		logger.Warningf("Couldn't DM softbanned user %d: %v", targetID, err)
	}

	if err := h.gw.Kick(ctx, communityID, targetID, "Attempted to join while softbanned"); err != nil {
		logger.Errorf("Auto-kick of softbanned user %d failed: %v", targetID, err)
		if aerr := h.notif.AnnounceFailure(ctx, rec, "softban auto-kick", err); aerr != nil {
			logger.Warningf("Couldn't announce auto-kick failure for case %s: %v", rec.ID, aerr)
		}
		return
	}
	logger.Infof("Auto-kicked softbanned user %d (case %s)", targetID, rec.ID)
	if err := h.notif.AnnounceApply(ctx, rec, notifier.Summary{
		Title:       "User auto-kicked",
		Description: fmt.Sprintf("<@%d> tried to join while softbanned!", targetID),
		Color:       notifier.ColorOrange,
	}); err != nil {
		logger.Warningf("Couldn't announce auto-kick for case %s: %v", rec.ID, err)
	}
}

func (h *Handler) restoreChannelMutes(ctx context.Context, communityID, targetID int64) {
	mutes, err := h.engine.ListActiveOfKind(ctx, models.KindChannelMute, communityID, targetID)
	if err != nil {
		logger.Errorf("Channel mute lookup for joining user %d failed: %v", targetID, err)
		return
	}
	for _, rec := range mutes {
		err := h.gw.SetChannelOverride(ctx, rec.ChannelID, targetID, 0, gateway.MuteDeny,
			"Restoring channel mutes to returning member")
		if err != nil {
			logger.Errorf("Couldn't restore mute %s in channel %d for user %d: %v",
				rec.ID, rec.ChannelID, targetID, err)
			continue
		}
		logger.Infof("Restored channel mute %s for returning user %d", rec.ID, targetID)
	}
}
