package command

// Permitted reports whether inv may run def. The checks are conjunctive and
// free of side effects, so it is safe to evaluate repeatedly for one event.
// A definition without access flags is always permitted.
func Permitted(def *Definition, inv *Invocation) bool {
	if def.HasRestriction(AdminOnly) && !inv.Member.Administrator() {
		return false
	}
	if def.HasRestriction(GuildChannelOnly) && inv.ChannelKind != ChannelGuildText {
		return false
	}
	if def.HasRestriction(PrivateChannelOnly) && inv.ChannelKind != ChannelPrivate {
		return false
	}
	return true
}
