package report

import (
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

// EmbedLength counts the characters Discord charges against an embed's total.
func EmbedLength(e *discordgo.MessageEmbed) int {
	n := utf8.RuneCountInString(e.Title) + utf8.RuneCountInString(e.Description)
	if e.Author != nil {
		n += utf8.RuneCountInString(e.Author.Name)
	}
	if e.Footer != nil {
		n += utf8.RuneCountInString(e.Footer.Text)
	}
	for _, f := range e.Fields {
		n += utf8.RuneCountInString(f.Name) + utf8.RuneCountInString(f.Value)
	}
	return n
}

// Fits reports whether e is within Discord's size and field count limits.
func Fits(e *discordgo.MessageEmbed) bool {
	return EmbedLength(e) <= MaxEmbedLength && len(e.Fields) <= MaxFields
}

// Paginate splits e into embeds that each fit, moving trailing fields into a
// fresh embed until the remainder fits. Field order is kept across the
// sequence and a field is never split. Continuation embeds carry fields only.
// An embed always keeps at least one field, so a single oversized field is
// emitted as is.
func Paginate(e *discordgo.MessageEmbed) []*discordgo.MessageEmbed {
	if Fits(e) {
		return []*discordgo.MessageEmbed{e}
	}

	var out []*discordgo.MessageEmbed
	cur := e
	for {
		var overflow []*discordgo.MessageEmbedField
		for !Fits(cur) && len(cur.Fields) > 1 {
			last := cur.Fields[len(cur.Fields)-1]
			cur.Fields = cur.Fields[:len(cur.Fields)-1]
			overflow = append(overflow, last)
		}
		out = append(out, cur)
		if len(overflow) == 0 {
			return out
		}

		reversed := make([]*discordgo.MessageEmbedField, len(overflow))
		for i, f := range overflow {
			reversed[len(overflow)-1-i] = f
		}
		cur = &discordgo.MessageEmbed{Fields: reversed}
		if Fits(cur) {
			return append(out, cur)
		}
	}
}

// Batches groups embeds into messages in order. A message takes embeds while
// their combined length stays within MaxEmbedLength and their count within
// MaxEmbedsPerMessage. An embed that is oversized on its own travels alone.
func Batches(embeds []*discordgo.MessageEmbed) [][]*discordgo.MessageEmbed {
	var (
		out   [][]*discordgo.MessageEmbed
		cur   []*discordgo.MessageEmbed
		total int
	)
	for _, e := range embeds {
		n := EmbedLength(e)
		if len(cur) > 0 && (total+n > MaxEmbedLength || len(cur) == MaxEmbedsPerMessage) {
			out = append(out, cur)
			cur, total = nil, 0
		}
		cur = append(cur, e)
		total += n
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}
