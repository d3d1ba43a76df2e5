package discord

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"discord-core-bot/internal/command"
	"discord-core-bot/internal/lane"
)

// deniedNotice answers a structured command the invoker may not use.
const deniedNotice = "You are not permitted to use this command here."

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	d := &dispatcher{api: s, router: b.router, jobs: b.jobs, log: b.log}
	d.dispatch(i.Interaction, func() command.ChannelKind {
		return lookupChannelKind(s, i.ChannelID)
	})
}

// dispatcher turns application command interactions into lane jobs.
type dispatcher struct {
	api    interactionAPI
	router *command.Router
	jobs   Submitter
	log    zerolog.Logger
}

// dispatch resolves i, checks restrictions, acquires the deferred reply and
// submits the event. kind is only consulted once the command is known.
func (d *dispatcher) dispatch(i *discordgo.Interaction, kind func() command.ChannelKind) {
	data := i.ApplicationCommandData()

	var (
		def  *command.Definition
		err  error
		opts []*discordgo.ApplicationCommandInteractionDataOption
	)
	switch data.CommandType {
	case discordgo.ChatApplicationCommand, 0:
		var path string
		path, opts = command.SlashPath(data)
		def, err = d.router.Structured(command.KindSlash, path)
	case discordgo.MessageApplicationCommand:
		def, err = d.router.Structured(command.KindMessage, data.Name)
	default:
		d.log.Debug().Int("type", int(data.CommandType)).Msg("ignoring unsupported command type")
		return
	}
	if err != nil {
		d.log.Warn().Err(err).Str("interaction", i.ID).Msg("dropping interaction")
		return
	}

	inv := interactionInvocation(i, kind())
	logger := d.log.With().Str("invocation", inv.ID).Str("command", def.Path).Logger()

	if !command.Permitted(def, inv) {
		logger.Info().Str("user", inv.User.ID).Msg("restricted command denied")
		err := d.api.InteractionRespond(i, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{Content: deniedNotice, Flags: discordgo.MessageFlagsEphemeral},
		})
		if err != nil {
			logger.Warn().Err(err).Msg("failed to send denial")
		}
		return
	}

	resp, err := deferReply(d.api, i, def.HasRestriction(command.Ephemeral))
	if err != nil {
		logger.Error().Err(err).Msg("failed to acknowledge interaction")
		return
	}

	base := command.NewBaseEvent(def, inv, resp)
	var ev command.Event
	switch def.Kind {
	case command.KindMessage:
		ev = &command.MessageCommandEvent{BaseEvent: base, Target: resolvedTarget(data)}
	default:
		ev = &command.SlashEvent{BaseEvent: base, Options: opts}
	}

	if err := d.jobs.Submit(lane.Job{Key: jobKey(inv.GuildID, inv.ChannelID), Event: ev}); err != nil {
		if errors.Is(err, lane.ErrClosed) {
			logger.Warn().Msg("lane closed, retracting reply")
		} else {
			logger.Error().Err(err).Msg("failed to queue command")
		}
		if err := resp.Delete(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("failed to delete deferred reply")
		}
	}
}

// resolvedTarget returns the message a context menu command was used on.
func resolvedTarget(data discordgo.ApplicationCommandInteractionData) *discordgo.Message {
	if data.Resolved == nil {
		return nil
	}
	return data.Resolved.Messages[data.TargetID]
}
