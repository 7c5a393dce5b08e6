package notifier

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"

	"modkeeper/internal/logger"
	"modkeeper/internal/models"
)

// Discord renders notifications as embeds: DMs to targets and messages to the
// configured audit-log channel.
type Discord struct {
	session      *discordgo.Session
	logChannelID int64
}

// NewDiscord creates a Discord notifier
func NewDiscord(session *discordgo.Session, logChannelID int64) *Discord {
	return &Discord{session: session, logChannelID: logChannelID}
}

func fmtID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func mention(id int64) string {
	return fmt.Sprintf("<@%d>", id)
}

func timestamp(t time.Time) string {
	return fmt.Sprintf("<t:%d:f>", t.Unix())
}

func baseEmbed(rec *models.Restriction, s Summary) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       s.Title,
		Description: s.Description,
		Color:       s.Color,
		Timestamp:   rec.CreatedAt.Format(time.RFC3339),
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Case ID: %s", rec.ID)},
	}
	for _, f := range s.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value})
	}
	return embed
}

func (n *Discord) NotifyTarget(ctx context.Context, rec *models.Restriction, s Summary) error {
	channel, err := n.session.UserChannelCreate(fmtID(rec.TargetID), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("create DM channel for %d: %w", rec.TargetID, err)
	}
	embed := baseEmbed(rec, s)
	if rec.Reason != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "The given reason is", Value: rec.Reason,
		})
	}
	if rec.ExpiresAt != nil {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("This %s expires", rec.Kind.Noun()),
			Value: timestamp(*rec.ExpiresAt),
		})
	}
	_, err = n.session.ChannelMessageSendEmbed(channel.ID, embed, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("send DM to %d: %w", rec.TargetID, err)
	}
	return nil
}

// auditEmbed builds the full audit-log embed for a record, including lift
// details when present.
func (n *Discord) auditEmbed(rec *models.Restriction, s Summary) *discordgo.MessageEmbed {
	embed := baseEmbed(rec, s)
	expiration := "None"
	if rec.ExpiresAt != nil {
		expiration = timestamp(*rec.ExpiresAt)
	}
	reason := rec.Reason
	if reason == "" {
		reason = "none given"
	}
	embed.Fields = append(embed.Fields,
		&discordgo.MessageEmbedField{
			Name:  "Issued",
			Value: fmt.Sprintf("by %s at %s", mention(rec.IssuerID), timestamp(rec.CreatedAt)),
		},
		&discordgo.MessageEmbedField{Name: "Target", Value: mention(rec.TargetID)},
		&discordgo.MessageEmbedField{Name: "Reason", Value: reason},
		&discordgo.MessageEmbedField{Name: "Expiration", Value: expiration},
	)
	if rec.LiftedAt != nil && rec.LiftedBy != nil {
		liftReason := rec.LiftReason
		if liftReason == "" {
			liftReason = "none given"
		}
		embed.Fields = append(embed.Fields,
			&discordgo.MessageEmbedField{
				Name:  "Lifted",
				Value: fmt.Sprintf("by %s at %s", mention(*rec.LiftedBy), timestamp(*rec.LiftedAt)),
			},
			&discordgo.MessageEmbedField{Name: "Lift reason", Value: liftReason},
		)
	}
	return embed
}

func (n *Discord) sendToLog(ctx context.Context, embed *discordgo.MessageEmbed) error {
	_, err := n.session.ChannelMessageSendEmbed(fmtID(n.logChannelID), embed, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("send to log channel %d: %w", n.logChannelID, err)
	}
	return nil
}

func (n *Discord) AnnounceApply(ctx context.Context, rec *models.Restriction, s Summary) error {
	return n.sendToLog(ctx, n.auditEmbed(rec, s))
}

func (n *Discord) AnnounceLift(ctx context.Context, rec *models.Restriction, s Summary, viaExpiration bool) error {
	embed := n.auditEmbed(rec, s)
	if viaExpiration {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Provenance", Value: "Lifted automatically on expiration",
		})
	}
	return n.sendToLog(ctx, embed)
}

func (n *Discord) AnnounceFailure(ctx context.Context, rec *models.Restriction, stage string, cause error) error {
	logger.Errorf("Gateway failure on %s for case %s: %v", stage, rec.ID, cause)
	embed := &discordgo.MessageEmbed{
		Title: "Enforcement call failed",
		Description: fmt.Sprintf("The %s call for %s against %s failed and needs manual attention.",
			stage, rec.Kind.Noun(), mention(rec.TargetID)),
		Color:  ColorRed,
		Footer: &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Case ID: %s", rec.ID)},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Error", Value: cause.Error()},
		},
	}
	return n.sendToLog(ctx, embed)
}
