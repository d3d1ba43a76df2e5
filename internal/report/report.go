// Package report accumulates the diagnostics of one command invocation and
// renders them as Discord embeds, splitting across several embeds when the
// content does not fit in one.
package report

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"discord-core-bot/internal/command"
)

// Discord embed limits.
const (
	MaxEmbedLength = 6000
	MaxFields      = 25

	// MaxEmbedsPerMessage bounds one message. MaxEmbedLength applies to the
	// sum over every embed in it.
	MaxEmbedsPerMessage = 10
)

// Field body ceilings applied by the report itself.
const (
	CommandLimit = 250
	FieldLimit   = 1000
)

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true, ".tiff": true, ".svg": true}

type blamed struct {
	err   error
	blame string
}

// Report is owned by a single handler invocation. It is not safe for
// concurrent use and is rendered once, after the handler returns.
type Report struct {
	author     string
	authorIcon string
	start      time.Time

	command  string
	imageURL string
	level    Level

	fields   []*discordgo.MessageEmbedField
	warnings []string
	debugs   []string
	errs     []blamed
	replies  []*discordgo.Message

	replyImages []string
	replyFiles  []string

	suppressed bool

	now func() time.Time
}

// New starts a report. A zero start omits the timestamp and response time.
func New(author, authorIcon string, start time.Time) *Report {
	return &Report{author: author, authorIcon: authorIcon, start: start, now: time.Now}
}

// ForEvent starts a report attributed to the invoking user, labelled with the
// command's slash usage.
func ForEvent(ev command.Event) *Report {
	inv := ev.Invocation()
	r := New(inv.User.Name, inv.User.AvatarURL, inv.Start)
	r.command = ev.Definition().SlashUsage()
	return r
}

// SetCommand sets the label of the "Command" field.
func (r *Report) SetCommand(label string) { r.command = label }

// SetImageURL sets the embed image. It takes precedence over reply images.
func (r *Report) SetImageURL(url string) { r.imageURL = url }

// AddField appends a custom field. Callers building values from unbounded
// text should pass them through LimitContent.
func (r *Report) AddField(name, value string, inline bool) {
	r.fields = append(r.fields, &discordgo.MessageEmbedField{Name: name, Value: value, Inline: inline})
}

func (r *Report) AddWarning(msg string) {
	r.warnings = append(r.warnings, msg)
	r.ElevateLevel(Warning)
}

func (r *Report) AddDebug(msg string) {
	r.debugs = append(r.debugs, msg)
	r.ElevateLevel(Debug)
}

func (r *Report) AddError(err error) { r.AddErrorBlame(err, "") }

// AddErrorBlame records err together with whoever is held responsible for it.
func (r *Report) AddErrorBlame(err error, blame string) {
	if err == nil {
		return
	}
	r.errs = append(r.errs, blamed{err: err, blame: blame})
	r.ElevateLevel(Error)
}

// Errors returns the recorded errors in order.
func (r *Report) Errors() []error {
	out := make([]error, 0, len(r.errs))
	for _, b := range r.errs {
		out = append(out, b.err)
	}
	return out
}

// AddReply records a message the handler sent, harvesting its images and
// attachments.
func (r *Report) AddReply(msg *discordgo.Message) {
	if msg == nil {
		return
	}
	r.replies = append(r.replies, msg)
	for _, e := range msg.Embeds {
		if e.Image != nil && e.Image.URL != "" {
			r.replyImages = append(r.replyImages, e.Image.URL)
		}
	}
	for _, a := range msg.Attachments {
		if isImage(a) {
			r.replyImages = append(r.replyImages, a.URL)
		} else {
			r.replyFiles = append(r.replyFiles, a.URL)
		}
	}
}

func isImage(a *discordgo.MessageAttachment) bool {
	if strings.HasPrefix(a.ContentType, "image/") {
		return true
	}
	return imageExts[strings.ToLower(path.Ext(a.Filename))]
}

// Suppress makes the report render to nothing.
func (r *Report) Suppress() { r.suppressed = true }

func (r *Report) SetAttention() { r.ElevateLevel(Attention) }

// ElevateLevel raises the level to l. Lower levels are ignored.
func (r *Report) ElevateLevel(l Level) {
	if l > r.level {
		r.level = l
	}
}

func (r *Report) Level() Level { return r.level }

// Embeds renders the report. A reply image consumed as the embed image is no
// longer listed by URLs afterwards.
func (r *Report) Embeds() []*discordgo.MessageEmbed {
	if r.suppressed {
		return nil
	}

	e := &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{Name: r.author, IconURL: r.authorIcon},
	}
	if !r.start.IsZero() {
		e.Timestamp = r.start.Format(time.RFC3339)
	}
	if r.level != Info {
		e.Color = r.level.Color()
	}

	add := func(name, value string, inline bool) {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: name, Value: value, Inline: inline})
	}

	if r.command != "" {
		add("Command", LimitContent(CommandLimit, r.command), false)
	}
	if !r.start.IsZero() {
		add("Response Time", fmt.Sprintf("%dms", r.now().Sub(r.start).Milliseconds()), true)
	}

	e.Fields = append(e.Fields, r.fields...)

	if len(r.warnings) > 0 {
		add("Warnings", LimitContent(FieldLimit, JoinUnique(r.warnings)), true)
	}
	if len(r.debugs) > 0 {
		add("Debug", LimitContent(FieldLimit, JoinUnique(r.debugs)), true)
	}

	if len(r.errs) > 0 {
		msgs := make([]string, 0, len(r.errs))
		var traces []string
		seen := make(map[string]bool)
		for _, b := range r.errs {
			line := ErrorKind(b.err) + ": " + b.err.Error()
			trace := StackTrace(b.err)
			if b.blame != "" {
				line += " (" + b.blame + ")"
				trace = "(" + b.blame + ") " + trace
			}
			msgs = append(msgs, line)
			if !seen[trace] {
				seen[trace] = true
				traces = append(traces, trace)
			}
		}
		add("Exceptions", LimitContent(FieldLimit, JoinUnique(msgs)), true)
		add("Stack Trace", LimitContent(FieldLimit, strings.Join(traces, "\n\n")), false)
	}

	if len(r.replies) > 0 {
		links := make([]string, 0, len(r.replies))
		for _, m := range r.replies {
			links = append(links, "[Message]("+JumpURL(m)+")")
		}
		add("Replies", strings.Join(links, "\n"), false)
	}

	if r.imageURL != "" {
		e.Image = &discordgo.MessageEmbedImage{URL: r.imageURL}
	} else if len(r.replyImages) == 1 {
		e.Image = &discordgo.MessageEmbedImage{URL: r.replyImages[0]}
		r.replyImages = r.replyImages[:0]
	}

	return Paginate(e)
}

// URLs lists harvested reply images followed by reply files.
func (r *Report) URLs() []string {
	out := make([]string, 0, len(r.replyImages)+len(r.replyFiles))
	out = append(out, r.replyImages...)
	return append(out, r.replyFiles...)
}

// Send renders the report and sends it through the event's reply handle,
// followed by a plain message with any attachment URLs that did not make it
// into an embed.
func (r *Report) Send(ctx context.Context, ev command.Event) error {
	for _, batch := range Batches(r.Embeds()) {
		if _, err := ev.Reply(ctx, &command.Reply{Embeds: batch}); err != nil {
			return fmt.Errorf("send report: %w", err)
		}
	}
	if urls := r.URLs(); len(urls) > 0 {
		if _, err := ev.Reply(ctx, &command.Reply{Content: LimitContent(2000, strings.Join(urls, "\n"))}); err != nil {
			return fmt.Errorf("send report attachments: %w", err)
		}
	}
	return nil
}

// JumpURL links to msg in the Discord client.
func JumpURL(msg *discordgo.Message) string {
	guild := msg.GuildID
	if guild == "" {
		guild = "@me"
	}
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guild, msg.ChannelID, msg.ID)
}
