package discord

import (
	"context"
	"sync"

	"github.com/bwmarrin/discordgo"

	"discord-core-bot/internal/command"
)

// interactionAPI is the part of the session the deferred reply handle uses.
type interactionAPI interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionResponseDelete(interaction *discordgo.Interaction, options ...discordgo.RequestOption) error
}

// deferReply acknowledges i with a "thinking" placeholder and returns the handle
// that later completes it.
func deferReply(api interactionAPI, i *discordgo.Interaction, ephemeral bool) (*interactionResponder, error) {
	resp := &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredChannelMessageWithSource}
	if ephemeral {
		resp.Data = &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral}
	}
	if err := api.InteractionRespond(i, resp); err != nil {
		return nil, err
	}
	return &interactionResponder{api: api, i: i, ephemeral: ephemeral}, nil
}

// interactionResponder implements command.Responder on top of an
// acknowledged interaction. The first Send replaces the placeholder, later
// ones are follow-ups with the same visibility.
type interactionResponder struct {
	api       interactionAPI
	i         *discordgo.Interaction
	ephemeral bool

	mu     sync.Mutex
	edited bool
}

var _ command.Responder = (*interactionResponder)(nil)

func (r *interactionResponder) Send(_ context.Context, reply *command.Reply) (*discordgo.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.edited {
		edit := &discordgo.WebhookEdit{Files: reply.Files}
		if reply.Content != "" {
			edit.Content = &reply.Content
		}
		if len(reply.Embeds) > 0 {
			embeds := reply.Embeds
			edit.Embeds = &embeds
		}
		msg, err := r.api.InteractionResponseEdit(r.i, edit)
		if err != nil {
			return nil, err
		}
		r.edited = true
		return msg, nil
	}

	params := &discordgo.WebhookParams{
		Content: reply.Content,
		Embeds:  reply.Embeds,
		Files:   reply.Files,
	}
	if r.ephemeral {
		params.Flags = discordgo.MessageFlagsEphemeral
	}
	return r.api.FollowupMessageCreate(r.i, true, params)
}

// Delete removes the placeholder. It is a no-op once a reply replaced it.
func (r *interactionResponder) Delete(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.edited {
		return nil
	}
	return r.api.InteractionResponseDelete(r.i)
}
