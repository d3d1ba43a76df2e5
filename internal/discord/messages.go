package discord

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"discord-core-bot/internal/command"
	"discord-core-bot/pkg/retrylimit"
)

const noticeTimeout = 15 * time.Second

// textMessage extracts what the router needs from a chat message.
func textMessage(m *discordgo.Message, selfID string, kind command.ChannelKind, member *command.Member) command.TextMessage {
	msg := command.TextMessage{
		Content:     m.Content,
		ChannelKind: kind,
		GuildID:     m.GuildID,
		SelfID:      selfID,
		Member:      member,
	}
	if m.Author != nil {
		msg.AuthorBot = m.Author.Bot
	}
	for _, u := range m.Mentions {
		if u != nil && u.ID == selfID {
			msg.MentionsSelf = true
			break
		}
	}
	return msg
}

// noticeAPI is the part of the session legacy redirects use.
type noticeAPI interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// onMessageCreate forwards every message to the text watcher and answers
// legacy commands with a pointer to their slash form. Legacy commands are
// never executed.
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if b.opts.Text != nil {
		b.opts.Text.MessageCreated(s, m)
	}
	if s.State == nil || s.State.User == nil {
		return
	}
	h := &legacyHandler{api: s, router: b.router, limiter: b.notices, log: b.log}
	h.handle(m.Message, s.State.User.ID,
		func() command.ChannelKind { return lookupChannelKind(s, m.ChannelID) },
		func() *command.Member { return messageMember(s, m.Message) },
	)
}

// legacyHandler answers free-text commands with a redirect notice.
type legacyHandler struct {
	api     noticeAPI
	router  *command.Router
	limiter *retrylimit.AdaptiveLimiter
	log     zerolog.Logger
}

// handle routes m and, on a permitted match, sends the redirect to the
// channel m came from. kind and member are resolved only for human authors.
func (h *legacyHandler) handle(m *discordgo.Message, selfID string, kind func() command.ChannelKind, member func() *command.Member) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	msg := textMessage(m, selfID, kind(), member())
	def, ok := h.router.Legacy(msg)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), noticeTimeout)
	defer cancel()
	embed := &discordgo.MessageEmbed{Description: command.RedirectNotice(def)}
	err := retrylimit.WithRetry(ctx, func() error {
		_, err := h.api.ChannelMessageSendEmbed(m.ChannelID, embed)
		return err
	}, h.limiter)
	if err != nil {
		h.log.Warn().Err(err).Str("channel", m.ChannelID).Str("command", def.Path).Msg("failed to send redirect notice")
	}
}

func (b *Bot) onMessageUpdate(s *discordgo.Session, m *discordgo.MessageUpdate) {
	if b.opts.Text != nil {
		b.opts.Text.MessageUpdated(s, m)
	}
}

func (b *Bot) onMessageDelete(s *discordgo.Session, m *discordgo.MessageDelete) {
	if b.opts.Text != nil {
		b.opts.Text.MessageDeleted(s, m)
	}
}

func (b *Bot) onMessageReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if b.opts.Reactions != nil {
		b.opts.Reactions.ReactionAdded(s, r)
	}
}

func (b *Bot) onMessageReactionRemove(s *discordgo.Session, r *discordgo.MessageReactionRemove) {
	if b.opts.Reactions != nil {
		b.opts.Reactions.ReactionRemoved(s, r)
	}
}

func (b *Bot) onMessageReactionRemoveAll(s *discordgo.Session, r *discordgo.MessageReactionRemoveAll) {
	if b.opts.Reactions != nil {
		b.opts.Reactions.ReactionsCleared(s, r)
	}
}
