package discord

import (
	"github.com/bwmarrin/discordgo"

	"discord-core-bot/internal/command"
)

// channelKind maps a Discord channel type onto the kinds restrictions care
// about. Announcement channels behave like text channels; group DMs are
// private.
func channelKind(t discordgo.ChannelType) command.ChannelKind {
	switch t {
	case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews:
		return command.ChannelGuildText
	case discordgo.ChannelTypeDM, discordgo.ChannelTypeGroupDM:
		return command.ChannelPrivate
	default:
		return command.ChannelOther
	}
}

// lookupChannelKind resolves the kind of channelID, preferring the state
// cache over a REST call.
func lookupChannelKind(s *discordgo.Session, channelID string) command.ChannelKind {
	ch, err := s.State.Channel(channelID)
	if err != nil {
		ch, err = s.Channel(channelID)
		if err != nil {
			return command.ChannelOther
		}
	}
	return channelKind(ch.Type)
}

// interactionUser returns whoever invoked i. Guild interactions carry the
// user on the member.
func interactionUser(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

func toUser(u *discordgo.User) command.User {
	if u == nil {
		return command.User{}
	}
	return command.User{ID: u.ID, Name: u.DisplayName(), AvatarURL: u.AvatarURL("")}
}

// interactionInvocation builds the invocation for i. Interactions carry the
// member's effective permissions, so no role lookup is needed.
func interactionInvocation(i *discordgo.Interaction, kind command.ChannelKind) *command.Invocation {
	var member *command.Member
	if i.Member != nil {
		member = &command.Member{Permissions: i.Member.Permissions}
	}
	return command.NewInvocation(toUser(interactionUser(i)), member, i.ChannelID, kind, i.GuildID)
}

// messageMember computes the author's channel permissions from the roles on
// the message and the cached guild. Message events do not carry them.
func messageMember(s *discordgo.Session, m *discordgo.Message) *command.Member {
	if m.GuildID == "" || m.Member == nil {
		return nil
	}
	perms, err := s.State.MessagePermissions(m)
	if err != nil {
		return nil
	}
	return &command.Member{Permissions: perms}
}

// jobKey shards lane jobs by guild, falling back to the channel for direct
// messages.
func jobKey(guildID, channelID string) string {
	if guildID != "" {
		return guildID
	}
	return channelID
}
