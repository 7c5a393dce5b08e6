package moderation

import (
	"context"
	"fmt"
	"strings"

	"modkeeper/internal/gateway"
	"modkeeper/internal/models"
	"modkeeper/internal/notifier"
)

// summaryContext carries the per-apply facts summaries need. The warning
// count is computed fresh for each apply; it is never cached across calls.
type summaryContext struct {
	warningCount int
	threshold    int
	appealURL    string
}

// escalation asks the coordinator to create an automatic ban after a target
// crossed the warning threshold. Kind behaviors never call the coordinator
// back directly; returning this value keeps the dependency one-way.
type escalation struct {
	count int
}

type kindBehavior struct {
	apply           func(ctx context.Context, gw gateway.Gateway, rec *models.Restriction, auditReason string, sc summaryContext) (*escalation, error)
	lift            func(ctx context.Context, gw gateway.Gateway, rec *models.Restriction, auditReason string) error
	summarizeTarget func(rec *models.Restriction, sc summaryContext) notifier.Summary
	summarizeAudit  func(rec *models.Restriction, sc summaryContext) notifier.Summary
}

// liftNoop is the lift behavior for kinds with nothing to reverse on the
// platform; lifting them only closes the bookkeeping record.
func liftNoop(context.Context, gateway.Gateway, *models.Restriction, string) error {
	return nil
}

// kindBehaviors is the closed dispatch table over restriction kinds.
var kindBehaviors = map[models.Kind]kindBehavior{
	models.KindBan: {
		apply: func(ctx context.Context, gw gateway.Gateway, rec *models.Restriction, auditReason string, _ summaryContext) (*escalation, error) {
			return nil, gw.Ban(ctx, rec.CommunityID, rec.TargetID, auditReason)
		},
		lift: func(ctx context.Context, gw gateway.Gateway, rec *models.Restriction, auditReason string) error {
			return gw.Unban(ctx, rec.CommunityID, rec.TargetID, auditReason)
		},
		summarizeTarget: func(rec *models.Restriction, sc summaryContext) notifier.Summary {
			desc := "You have been banned from the server."
			if sc.appealURL != "" {
				desc += "\nIf you feel this was unjustified, please join our ban appeal server for next steps: " + sc.appealURL
			}
			return notifier.Summary{Title: "Banned", Description: desc, Color: notifier.ColorRed}
		},
		summarizeAudit: func(rec *models.Restriction, _ summaryContext) notifier.Summary {
			return notifier.Summary{Title: "Server Ban", Color: notifier.ColorRed}
		},
	},

	models.KindSoftban: {
		apply: func(ctx context.Context, gw gateway.Gateway, rec *models.Restriction, auditReason string, _ summaryContext) (*escalation, error) {
			return nil, gw.Kick(ctx, rec.CommunityID, rec.TargetID, auditReason)
		},
		// Nothing to reverse: we simply stop kicking them on join.
		lift: liftNoop,
		summarizeTarget: func(rec *models.Restriction, sc summaryContext) notifier.Summary {
			desc := "This account is no longer permitted to participate in the server."
			if sc.appealURL != "" {
				desc += "\nIf you feel this was unjustified, please join our ban appeal server for next steps: " + sc.appealURL
			}
			return notifier.Summary{Title: "Softbanned", Description: desc, Color: notifier.ColorRed}
		},
		summarizeAudit: func(rec *models.Restriction, _ summaryContext) notifier.Summary {
			return notifier.Summary{Title: "Softban", Color: notifier.ColorRed}
		},
	},

	models.KindChannelMute: {
		apply: func(ctx context.Context, gw gateway.Gateway, rec *models.Restriction, auditReason string, _ summaryContext) (*escalation, error) {
			return nil, gw.SetChannelOverride(ctx, rec.ChannelID, rec.TargetID, 0, gateway.MuteDeny, auditReason)
		},
		lift: func(ctx context.Context, gw gateway.Gateway, rec *models.Restriction, auditReason string) error {
			return gw.ClearChannelOverride(ctx, rec.ChannelID, rec.TargetID, auditReason)
		},
		summarizeTarget: func(rec *models.Restriction, _ summaryContext) notifier.Summary {
			return notifier.Summary{
				Title:       "Channel muted",
				Description: fmt.Sprintf("You have been muted in <#%d>.", rec.ChannelID),
				Color:       notifier.ColorOrange,
			}
		},
		summarizeAudit: func(rec *models.Restriction, _ summaryContext) notifier.Summary {
			return notifier.Summary{
				Title: "Channel mute",
				Color: notifier.ColorOrange,
				Fields: []notifier.Field{
					{Name: "Channel", Value: fmt.Sprintf("<#%d>", rec.ChannelID)},
				},
			}
		},
	},

	models.KindWarning: {
		apply: func(ctx context.Context, gw gateway.Gateway, rec *models.Restriction, auditReason string, sc summaryContext) (*escalation, error) {
			// No platform effect. Crossing the threshold asks the
			// coordinator to issue the automatic ban.
			if sc.warningCount >= sc.threshold {
				return &escalation{count: sc.warningCount}, nil
			}
			return nil, nil
		},
		lift: liftNoop,
		summarizeTarget: func(rec *models.Restriction, sc summaryContext) notifier.Summary {
			s := notifier.Summary{
				Title:       "Warning",
				Description: "You have been issued a warning in the server.",
				Color:       notifier.ColorYellow,
				Fields: []notifier.Field{
					{
						Name: "Warning count",
						Value: fmt.Sprintf("%s This is your **%s active warning**.",
							strings.Repeat("⚠", sc.warningCount), ordinal(sc.warningCount)),
					},
				},
			}
			switch {
			case sc.warningCount == sc.threshold-1:
				s.Fields = append(s.Fields, notifier.Field{
					Name:  "FINAL WARNING!",
					Value: "If you receive **one more warning**, you will be **permanently banned** from the server.",
				})
			case sc.warningCount >= sc.threshold:
				s.Fields = append(s.Fields, notifier.Field{
					Name:  "Banned",
					Value: fmt.Sprintf("You have been banned for accumulating %d warnings.", sc.warningCount),
				})
			default:
				s.Fields = append(s.Fields, notifier.Field{
					Name: fmt.Sprintf("%d warnings = ban", sc.threshold),
					Value: fmt.Sprintf("If you accumulate %d warnings, you will be permanently banned from the server.",
						sc.threshold),
				})
			}
			return s
		},
		summarizeAudit: func(rec *models.Restriction, sc summaryContext) notifier.Summary {
			s := notifier.Summary{
				Title: "Warning",
				Color: notifier.ColorYellow,
				Fields: []notifier.Field{
					{Name: "Warning count", Value: fmt.Sprintf("%s warning", ordinal(sc.warningCount))},
				},
			}
			switch {
			case sc.warningCount == sc.threshold-1:
				s.Fields = append(s.Fields, notifier.Field{
					Name:  "FINAL WARNING!",
					Value: "The user will be banned if they receive another warning.",
				})
			case sc.warningCount >= sc.threshold:
				s.Fields = append(s.Fields, notifier.Field{
					Name:  "Auto-banned",
					Value: fmt.Sprintf("The user was banned for accumulating %d warnings.", sc.warningCount),
				})
			}
			return s
		},
	},
}

func ordinal(n int) string {
	suffix := "th"
	switch {
	case n%100 >= 11 && n%100 <= 13:
	case n%10 == 1:
		suffix = "st"
	case n%10 == 2:
		suffix = "nd"
	case n%10 == 3:
		suffix = "rd"
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
