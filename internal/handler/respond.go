package handler

import (
	"errors"

	"github.com/bwmarrin/discordgo"

	"modkeeper/internal/logger"
	"modkeeper/internal/moderation"
	"modkeeper/internal/notifier"
)

func (h *Handler) respondEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	var flags discordgo.MessageFlags
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  flags,
		},
	})
	if err != nil {
		logger.Warningf("Couldn't respond to interaction: %v", err)
	}
}

func (h *Handler) respondOK(s *discordgo.Session, i *discordgo.InteractionCreate, description string) {
	h.respondEmbed(s, i, &discordgo.MessageEmbed{
		Description: description,
		Color:       notifier.ColorGreen,
	}, false)
}

func (h *Handler) respondInfo(s *discordgo.Session, i *discordgo.InteractionCreate, title, description string) {
	h.respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       notifier.ColorYellow,
	}, true)
}

// respondError maps engine errors onto user-facing responses. Validation
// errors are informational; everything else is a real failure.
func (h *Handler) respondError(s *discordgo.Session, i *discordgo.InteractionCreate, err error) {
	var (
		conflict      *moderation.ConflictError
		rejected      *moderation.TargetRejectedError
		notFound      *moderation.NotFoundError
		alreadyLifted *moderation.AlreadyLiftedError
		wrongKind     *moderation.WrongKindError
		gwErr         *moderation.GatewayError
	)
	switch {
	case errors.As(err, &conflict):
		h.respondInfo(s, i, "Duplicate restriction", conflict.Error())
	case errors.As(err, &wrongKind):
		h.respondInfo(s, i, "Wrong case type", wrongKind.Error())
	case errors.As(err, &rejected):
		h.respondInfo(s, i, "Invalid target", rejected.Error())
	case errors.As(err, &notFound):
		h.respondInfo(s, i, "Not found", notFound.Error())
	case errors.As(err, &alreadyLifted):
		h.respondInfo(s, i, "Already lifted", alreadyLifted.Error())
	case errors.Is(err, moderation.ErrExpiresNotFuture):
		h.respondInfo(s, i, "Invalid expiration", "The expiration must be in the future.")
	case errors.As(err, &gwErr):
		h.respondEmbed(s, i, &discordgo.MessageEmbed{
			Title: "Enforcement call failed",
			Description: "The record was saved (case ID: " + gwErr.CaseID +
				"), but the platform call failed and needs manual attention: " + gwErr.Err.Error(),
			Color: notifier.ColorRed,
		}, true)
	default:
		logger.Errorf("Command failed: %v", err)
		h.respondEmbed(s, i, &discordgo.MessageEmbed{
			Title:       "Something went wrong",
			Description: err.Error(),
			Color:       notifier.ColorRed,
		}, true)
	}
}
