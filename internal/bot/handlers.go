package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rudyprotect/internal/analytics"
	"rudyprotect/internal/modules/audit"
	"rudyprotect/internal/modules/blacklist"
	"rudyprotect/internal/modules/moderation"
	"rudyprotect/internal/modules/reports"
	"rudyprotect/internal/storage"
	"rudyprotect/internal/verification"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const maxEmbedDescription = 4000

type commandOptions map[string]*discordgo.ApplicationCommandInteractionDataOption

func optionMap(options []*discordgo.ApplicationCommandInteractionDataOption) commandOptions {
	out := make(commandOptions, len(options))
	for _, opt := range options {
		out[opt.Name] = opt
	}
	return out
}

func (o commandOptions) string(name string) string {
	if opt, ok := o[name]; ok {
		return opt.StringValue()
	}
	return ""
}

func (o commandOptions) int(name string, fallback int) int {
	if opt, ok := o[name]; ok {
		return int(opt.IntValue())
	}
	return fallback
}

// id returns the raw snowflake of a user, role or channel option.
func (o commandOptions) id(name string) string {
	if opt, ok := o[name]; ok {
		if value, ok := opt.Value.(string); ok {
			return value
		}
	}
	return ""
}

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	ctx := context.Background()

	switch interaction.Type {
	case discordgo.InteractionMessageComponent:
		if id, ok := verification.ParseControlID(interaction.MessageComponentData().CustomID); ok {
			b.handleVerifyButton(ctx, session, interaction, id)
		}
		return
	case discordgo.InteractionApplicationCommand:
	default:
		return
	}

	data := interaction.ApplicationCommandData()
	lang := b.cfg.DefaultLanguage
	if interaction.GuildID != "" {
		lang = b.guildSettings(ctx, interaction.GuildID).Language
	}

	switch data.Name {
	case "help":
		b.respondEmbed(session, interaction, b.helpEmbed(lang), true)
		return
	case "ping":
		latency := session.HeartbeatLatency().Milliseconds()
		b.respondEmbed(session, interaction, b.commandEmbed(b.t(lang, "ping_title"), fmt.Sprintf(b.t(lang, "ping_desc"), latency), b.cfg.Notifications.EmbedColors.Action, nil), true)
		return
	case "report":
		b.handleReportCommand(ctx, session, interaction, lang, optionMap(data.Options))
		return
	}

	if interaction.GuildID == "" {
		b.respondEmbed(session, interaction, b.commandEmbed(b.t(lang, "error_title"), b.t(lang, "error_only_guild"), b.cfg.Notifications.EmbedColors.Error, nil), true)
		return
	}

	switch data.Name {
	case "ban":
		b.handleModerationCommand(ctx, session, interaction, lang, moderation.ActionBan, data)
	case "kick":
		b.handleModerationCommand(ctx, session, interaction, lang, moderation.ActionKick, data)
	case "mute":
		b.handleModerationCommand(ctx, session, interaction, lang, moderation.ActionMute, data)
	case "blacklist":
		b.handleBlacklistCommand(ctx, session, interaction, lang, data.Options)
	case "settings":
		b.handleSettingsCommand(ctx, session, interaction, lang, data.Options)
	case "stats":
		b.handleStatsCommand(ctx, session, interaction, lang, optionMap(data.Options))
	}
}

// deferResponse acknowledges the interaction so slow REST work can follow.
func (b *Bot) deferResponse(session *discordgo.Session, interaction *discordgo.InteractionCreate, ephemeral bool) bool {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	err := session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: flags},
	})
	if err != nil {
		b.logger.Warn("interaction defer failed", zap.String("command", interaction.ApplicationCommandData().Name), zap.Error(err))
		return false
	}
	return true
}

func (b *Bot) editEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	embeds := []*discordgo.MessageEmbed{embed}
	if _, err := session.InteractionResponseEdit(interaction.Interaction, &discordgo.WebhookEdit{Embeds: &embeds}); err != nil {
		b.logger.Warn("interaction edit failed", zap.Error(err))
	}
}

func (b *Bot) errorEmbed(lang, titleKey, messageKey string) *discordgo.MessageEmbed {
	return b.commandEmbed(b.t(lang, titleKey), b.t(lang, messageKey), b.cfg.Notifications.EmbedColors.Error, nil)
}

func (b *Bot) handleModerationCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, lang string, action moderation.Action, data discordgo.ApplicationCommandInteractionData) {
	titleKey := "moderation_" + string(action) + "_title"
	opts := optionMap(data.Options)
	actor := interactionUser(interaction)
	targetID := opts.id("user")
	if actor == nil || targetID == "" {
		b.respondEmbed(session, interaction, b.errorEmbed(lang, titleKey, "error_user_ctx"), true)
		return
	}

	if !b.deferResponse(session, interaction, false) {
		return
	}

	guild, err := b.guild(ctx, interaction.GuildID)
	if err != nil {
		b.logger.Warn("guild lookup failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		b.editEmbed(session, interaction, b.errorEmbed(lang, titleKey, "error_failed"))
		return
	}

	target := b.moderationTarget(ctx, guild, interaction, targetID, data.Resolved)
	if err := moderation.CheckTarget(target, action != moderation.ActionBan); err != nil {
		b.editEmbed(session, interaction, b.errorEmbed(lang, titleKey, moderationErrorKey(err)))
		return
	}

	req := moderation.Request{
		GuildID:         guild.ID,
		GuildName:       guild.Name,
		ActorID:         actor.ID,
		ActorTag:        actor.String(),
		TargetID:        targetID,
		Reason:          opts.string("reason"),
		DeleteDays:      opts.int("delete_messages", 0),
		DurationMinutes: opts.int("duration", 0),
	}

	var outcome moderation.Outcome
	switch action {
	case moderation.ActionBan:
		outcome, err = b.moderation.Ban(ctx, req)
	case moderation.ActionKick:
		outcome, err = b.moderation.Kick(ctx, req)
	case moderation.ActionMute:
		outcome, err = b.moderation.Mute(ctx, req)
	}
	if err != nil {
		b.logger.Warn("moderation action failed", zap.String("action", string(action)), zap.String("guild_id", guild.ID), zap.String("target_id", targetID), zap.Error(err))
		b.editEmbed(session, interaction, b.errorEmbed(lang, titleKey, moderationErrorKey(err)))
		return
	}

	b.editEmbed(session, interaction, b.moderationEmbed(lang, titleKey, targetID, actor.ID, outcome))
}

func (b *Bot) moderationEmbed(lang, titleKey, targetID, actorID string, outcome moderation.Outcome) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: b.t(lang, "field_user"), Value: "<@" + targetID + ">", Inline: true},
		{Name: b.t(lang, "field_moderator"), Value: "<@" + actorID + ">", Inline: true},
		{Name: b.t(lang, "field_reason"), Value: outcome.Reason, Inline: false},
	}
	switch outcome.Action {
	case moderation.ActionBan:
		fields = append(fields, &discordgo.MessageEmbedField{Name: b.t(lang, "field_delete_days"), Value: fmt.Sprintf("%d", outcome.DeleteDays), Inline: true})
	case moderation.ActionMute:
		fields = append(fields,
			&discordgo.MessageEmbedField{Name: b.t(lang, "field_duration"), Value: outcome.DurationText, Inline: true},
			&discordgo.MessageEmbedField{Name: b.t(lang, "field_expires"), Value: fmt.Sprintf("<t:%d:R>", outcome.ExpiresAt.Unix()), Inline: true},
		)
	}
	notified := b.t(lang, "value_yes")
	if !outcome.Notified {
		notified = b.t(lang, "value_no")
	}
	fields = append(fields, &discordgo.MessageEmbedField{Name: b.t(lang, "field_notified"), Value: notified, Inline: true})
	return b.commandEmbed(b.t(lang, titleKey), b.t(lang, "moderation_"+string(outcome.Action)+"_done"), b.cfg.Notifications.EmbedColors.Success, fields)
}

// moderationTarget gathers the ownership, membership and role positions the
// safety checks need.
func (b *Bot) moderationTarget(ctx context.Context, guild *discordgo.Guild, interaction *discordgo.InteractionCreate, targetID string, resolved *discordgo.ApplicationCommandInteractionDataResolved) moderation.Target {
	t := moderation.Target{TargetID: targetID, OwnerID: guild.OwnerID}
	roles := guild.Roles
	if len(roles) == 0 {
		if fetched, err := b.session.GuildRoles(guild.ID, discordgo.WithContext(ctx)); err == nil {
			roles = fetched
		}
	}
	if interaction.Member != nil {
		if interaction.Member.User != nil {
			t.ActorID = interaction.Member.User.ID
		}
		t.ActorTopPosition = highestRolePosition(roles, interaction.Member.Roles)
	}

	var member *discordgo.Member
	if resolved != nil {
		member = resolved.Members[targetID]
	}
	if member == nil {
		if fetched, err := b.session.GuildMember(guild.ID, targetID, discordgo.WithContext(ctx)); err == nil {
			member = fetched
		}
	}
	if member != nil {
		t.TargetIsMember = true
		t.TargetTopPosition = highestRolePosition(roles, member.Roles)
	}
	return t
}

// highestRolePosition returns the top position among memberRoles, or 0 (the
// @everyone position) when the member has no listed role.
func highestRolePosition(roles []*discordgo.Role, memberRoles []string) int {
	held := make(map[string]struct{}, len(memberRoles))
	for _, id := range memberRoles {
		held[id] = struct{}{}
	}
	top := 0
	for _, role := range roles {
		if _, ok := held[role.ID]; ok && role.Position > top {
			top = role.Position
		}
	}
	return top
}

func moderationErrorKey(err error) string {
	switch {
	case errors.Is(err, moderation.ErrSelfTarget):
		return "error_self_target"
	case errors.Is(err, moderation.ErrOwnerTarget):
		return "error_owner_target"
	case errors.Is(err, moderation.ErrNotMember), errors.Is(err, moderation.ErrUnknownTarget):
		return "error_not_member"
	case errors.Is(err, moderation.ErrHierarchy):
		return "error_hierarchy"
	case errors.Is(err, moderation.ErrInvalidDuration):
		return "error_invalid_duration"
	default:
		return "error_failed"
	}
}

func (b *Bot) guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	if guild, err := b.session.State.Guild(guildID); err == nil {
		return guild, nil
	}
	return b.session.Guild(guildID, discordgo.WithContext(ctx))
}

func (b *Bot) handleBlacklistCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, lang string, options []*discordgo.ApplicationCommandInteractionDataOption) {
	titleKey := "blacklist_title"
	if len(options) == 0 || len(options[0].Options) == 0 {
		b.respondEmbed(session, interaction, b.errorEmbed(lang, titleKey, "error_no_subcommand"), true)
		return
	}
	kind := storage.BlacklistKind(options[0].Name)
	sub := options[0].Options[0]
	opts := optionMap(sub.Options)
	actorID := ""
	if actor := interactionUser(interaction); actor != nil {
		actorID = actor.ID
	}

	var (
		entry storage.BlacklistEntry
		err   error
	)
	switch sub.Name {
	case "add":
		entry, err = b.blacklist.Add(ctx, kind, opts.string("value"), interaction.GuildID, opts.string("reason"), actorID)
	case "remove":
		entry, err = b.blacklist.Remove(ctx, kind, opts.string("value"), interaction.GuildID, actorID)
	case "update":
		entry, err = b.blacklist.UpdateReason(ctx, kind, opts.string("value"), interaction.GuildID, opts.string("reason"), actorID)
	case "view":
		entry, err = b.blacklist.Get(ctx, kind, opts.string("value"))
	case "list":
		entries, listErr := b.blacklist.List(ctx, kind, "", opts.int("limit", blacklist.DefaultLimit))
		if listErr != nil {
			b.logger.Warn("blacklist list failed", zap.Error(listErr))
			b.respondEmbed(session, interaction, b.errorEmbed(lang, titleKey, "error_failed"), true)
			return
		}
		b.respondEmbed(session, interaction, b.blacklistListEmbed(lang, kind, entries), true)
		return
	default:
		b.respondEmbed(session, interaction, b.errorEmbed(lang, titleKey, "error_unknown"), true)
		return
	}
	if err != nil {
		b.respondEmbed(session, interaction, b.errorEmbed(lang, titleKey, blacklistErrorKey(err)), true)
		return
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: b.t(lang, "field_value"), Value: "`" + entry.Value + "`", Inline: true},
		{Name: b.t(lang, "field_reason"), Value: entry.Reason, Inline: true},
	}
	if entry.AddedBy != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: b.t(lang, "field_added_by"), Value: "<@" + entry.AddedBy + ">", Inline: true})
	}
	if !entry.CreatedAt.IsZero() {
		fields = append(fields, &discordgo.MessageEmbedField{Name: b.t(lang, "field_added_at"), Value: fmt.Sprintf("<t:%d:f>", entry.CreatedAt.Unix()), Inline: true})
	}
	b.respondEmbed(session, interaction, b.commandEmbed(b.t(lang, titleKey), b.t(lang, "blacklist_"+sub.Name+"_done"), b.cfg.Notifications.EmbedColors.Action, fields), true)
}

func (b *Bot) blacklistListEmbed(lang string, kind storage.BlacklistKind, entries []storage.BlacklistEntry) *discordgo.MessageEmbed {
	if len(entries) == 0 {
		return b.commandEmbed(b.t(lang, "blacklist_title"), b.t(lang, "blacklist_empty"), b.cfg.Notifications.EmbedColors.Action, nil)
	}
	var sb strings.Builder
	for _, entry := range entries {
		line := fmt.Sprintf("`%s` - %s (<t:%d:R>)\n", entry.Value, entry.Reason, entry.CreatedAt.Unix())
		if sb.Len()+len(line) > maxEmbedDescription {
			sb.WriteString("…")
			break
		}
		sb.WriteString(line)
	}
	fields := []*discordgo.MessageEmbedField{{Name: b.t(lang, "field_count"), Value: fmt.Sprintf("%d", len(entries)), Inline: true}}
	return b.commandEmbed(fmt.Sprintf(b.t(lang, "blacklist_list_title"), kind), sb.String(), b.cfg.Notifications.EmbedColors.Action, fields)
}

func blacklistErrorKey(err error) string {
	switch {
	case errors.Is(err, storage.ErrAlreadyExists):
		return "blacklist_exists"
	case errors.Is(err, storage.ErrNotFound):
		return "blacklist_not_found"
	case errors.Is(err, blacklist.ErrInvalidUserID):
		return "error_invalid_user_id"
	case errors.Is(err, blacklist.ErrInvalidMAC):
		return "error_invalid_mac"
	default:
		return "error_failed"
	}
}

func (b *Bot) handleReportCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, lang string, opts commandOptions) {
	user := interactionUser(interaction)
	if user == nil {
		return
	}
	if !b.deferResponse(session, interaction, true) {
		return
	}
	sub := reports.Submission{
		GuildID: interaction.GuildID,
		UserID:  user.ID,
		UserTag: user.String(),
		Type:    opts.string("type"),
		Details: opts.string("details"),
	}
	if guild, err := b.session.State.Guild(interaction.GuildID); err == nil {
		sub.GuildName = guild.Name
	}

	report, err := b.reports.Submit(ctx, sub)
	switch {
	case errors.Is(err, reports.ErrBlacklisted):
		b.editEmbed(session, interaction, b.errorEmbed(lang, "report_title", "report_blacklisted"))
		return
	case errors.Is(err, reports.ErrEmptyDetails), errors.Is(err, reports.ErrUnknownType):
		b.editEmbed(session, interaction, b.errorEmbed(lang, "report_title", "report_invalid"))
		return
	case err != nil && report.ID == 0:
		b.logger.Warn("report failed", zap.Error(err))
		b.editEmbed(session, interaction, b.errorEmbed(lang, "report_title", "error_failed"))
		return
	case err != nil:
		// Stored but not delivered; the developer can still list it.
		b.logger.Warn("report delivery failed", zap.Int64("report_id", report.ID), zap.Error(err))
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: b.t(lang, "field_type"), Value: reports.Label(report.Type), Inline: true},
		{Name: b.t(lang, "field_id"), Value: fmt.Sprintf("#%d", report.ID), Inline: true},
	}
	b.editEmbed(session, interaction, b.commandEmbed(b.t(lang, "report_title"), b.t(lang, "report_sent"), b.cfg.Notifications.EmbedColors.Success, fields))
}

func (b *Bot) handleSettingsCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, lang string, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if len(options) == 0 {
		b.respondEmbed(session, interaction, b.errorEmbed(lang, "settings_title", "error_no_subcommand"), true)
		return
	}
	sub := options[0]
	switch sub.Name {
	case "captcha":
		if len(sub.Options) == 0 {
			b.respondEmbed(session, interaction, b.errorEmbed(lang, "captcha_settings_title", "error_no_subcommand"), true)
			return
		}
		b.handleCaptchaSettings(ctx, session, interaction, lang, sub.Options[0])
	case "language":
		settings := b.guildSettings(ctx, interaction.GuildID)
		value := optionMap(sub.Options).string("value")
		if value != "fr" && value != "en" {
			b.respondEmbed(session, interaction, b.errorEmbed(lang, "settings_title", "error_unknown"), true)
			return
		}
		settings.Language = value
		if err := b.store.UpsertGuildSettings(ctx, settings); err != nil {
			b.logger.Warn("language update failed", zap.Error(err))
			b.respondEmbed(session, interaction, b.errorEmbed(lang, "settings_title", "error_failed"), true)
			return
		}
		b.auditSettings(ctx, interaction, "settings_language", "language="+value)
		// Confirm in the newly selected language.
		b.respondEmbed(session, interaction, b.commandEmbed(b.t(value, "settings_title"), b.t(value, "settings_language_updated"), b.cfg.Notifications.EmbedColors.Action, nil), true)
	case "logs":
		settings := b.guildSettings(ctx, interaction.GuildID)
		channelID := optionMap(sub.Options).id("channel")
		if channelID == "" {
			value := b.t(lang, "value_not_set")
			if settings.LogChannel != "" {
				value = "<#" + settings.LogChannel + ">"
			}
			fields := []*discordgo.MessageEmbedField{{Name: b.t(lang, "field_channel"), Value: value, Inline: true}}
			b.respondEmbed(session, interaction, b.commandEmbed(b.t(lang, "logs_title"), b.t(lang, "logs_current"), b.cfg.Notifications.EmbedColors.Action, fields), true)
			return
		}
		settings.LogChannel = channelID
		if err := b.store.UpsertGuildSettings(ctx, settings); err != nil {
			b.logger.Warn("log channel update failed", zap.Error(err))
			b.respondEmbed(session, interaction, b.errorEmbed(lang, "logs_title", "error_failed"), true)
			return
		}
		b.auditSettings(ctx, interaction, "settings_logs", "channel="+channelID)
		fields := []*discordgo.MessageEmbedField{{Name: b.t(lang, "field_channel"), Value: "<#" + channelID + ">", Inline: true}}
		b.respondEmbed(session, interaction, b.commandEmbed(b.t(lang, "logs_title"), b.t(lang, "logs_updated"), b.cfg.Notifications.EmbedColors.Action, fields), true)
	default:
		b.respondEmbed(session, interaction, b.errorEmbed(lang, "settings_title", "error_unknown"), true)
	}
}

func (b *Bot) handleCaptchaSettings(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, lang string, sub *discordgo.ApplicationCommandInteractionDataOption) {
	titleKey := "captcha_settings_title"
	cfg, err := b.captcha.Get(ctx, interaction.GuildID)
	if err != nil {
		b.logger.Warn("captcha config load failed", zap.Error(err))
		b.respondEmbed(session, interaction, b.errorEmbed(lang, titleKey, "error_failed"), true)
		return
	}

	opts := optionMap(sub.Options)
	switch sub.Name {
	case "view":
		b.respondEmbed(session, interaction, b.captchaConfigEmbed(lang, "captcha_settings_current", cfg), true)
		return
	case "enable":
		cfg.Enabled = true
	case "disable":
		cfg.Enabled = false
	case "channel":
		cfg.ChannelID = opts.id("channel")
	case "role":
		cfg.RoleID = opts.id("role")
	case "timeout":
		cfg.TimeoutMinutes = max(0, min(opts.int("minutes", cfg.TimeoutMinutes), maxCaptchaTimeoutMinutes))
	default:
		b.respondEmbed(session, interaction, b.errorEmbed(lang, titleKey, "error_unknown"), true)
		return
	}

	if err := b.captcha.Save(ctx, cfg); err != nil {
		b.logger.Warn("captcha config save failed", zap.Error(err))
		b.respondEmbed(session, interaction, b.errorEmbed(lang, titleKey, "error_failed"), true)
		return
	}
	b.auditSettings(ctx, interaction, audit.EventCaptchaConfig, fmt.Sprintf("enabled=%t channel=%s role=%s timeout=%dm", cfg.Enabled, cfg.ChannelID, cfg.RoleID, cfg.TimeoutMinutes))
	b.respondEmbed(session, interaction, b.captchaConfigEmbed(lang, "captcha_settings_updated", cfg), true)
}

func (b *Bot) captchaConfigEmbed(lang, descKey string, cfg storage.CaptchaConfig) *discordgo.MessageEmbed {
	state := b.t(lang, "value_disabled")
	if cfg.Enabled {
		state = b.t(lang, "value_enabled")
	}
	channel := b.t(lang, "value_auto")
	if cfg.ChannelID != "" {
		channel = "<#" + cfg.ChannelID + ">"
	}
	role := b.t(lang, "value_none")
	if cfg.RoleID != "" {
		role = "<@&" + cfg.RoleID + ">"
	}
	timeout := "∞"
	if cfg.TimeoutMinutes > 0 {
		timeout = moderation.DurationText(cfg.TimeoutMinutes)
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: b.t(lang, "field_status"), Value: state, Inline: true},
		{Name: b.t(lang, "field_channel"), Value: channel, Inline: true},
		{Name: b.t(lang, "field_role"), Value: role, Inline: true},
		{Name: b.t(lang, "field_timeout"), Value: timeout, Inline: true},
	}
	return b.commandEmbed(b.t(lang, "captcha_settings_title"), b.t(lang, descKey), b.cfg.Notifications.EmbedColors.Action, fields)
}

func (b *Bot) auditSettings(ctx context.Context, interaction *discordgo.InteractionCreate, event, details string) {
	if b.audit == nil {
		return
	}
	actorID := ""
	if actor := interactionUser(interaction); actor != nil {
		actorID = actor.ID
	}
	b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, actorID, event, details)
}

func (b *Bot) handleStatsCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, lang string, opts commandOptions) {
	report, err := b.analytics.Verification(ctx, interaction.GuildID, opts.int("days", analytics.DefaultDays))
	if err != nil {
		b.logger.Warn("stats failed", zap.Error(err))
		b.respondEmbed(session, interaction, b.errorEmbed(lang, "stats_title", "error_failed"), true)
		return
	}
	b.respondEmbed(session, interaction, b.statsEmbed(lang, report), true)
}

func (b *Bot) statsEmbed(lang string, report analytics.Report) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: b.t(lang, "stats_created"), Value: fmt.Sprintf("%d", report.Created), Inline: true},
		{Name: b.t(lang, "stats_verified"), Value: fmt.Sprintf("%d", report.Verified), Inline: true},
		{Name: b.t(lang, "stats_expired"), Value: fmt.Sprintf("%d", report.Expired), Inline: true},
		{Name: b.t(lang, "stats_abandoned"), Value: fmt.Sprintf("%d", report.Abandoned), Inline: true},
		{Name: b.t(lang, "stats_rate"), Value: fmt.Sprintf("%.1f%%", report.SuccessRate()), Inline: true},
	}
	return b.commandEmbed(b.t(lang, "stats_title"), fmt.Sprintf(b.t(lang, "stats_desc"), report.Days), b.cfg.Notifications.EmbedColors.Action, fields)
}

func (b *Bot) helpEmbed(lang string) *discordgo.MessageEmbed {
	var sb strings.Builder
	for _, cmd := range commandDefinitions() {
		desc := cmd.Description
		if cmd.DescriptionLocalizations != nil && lang == "en" {
			desc = (*cmd.DescriptionLocalizations)[discordgo.EnglishUS]
		}
		fmt.Fprintf(&sb, "`/%s` - %s\n", cmd.Name, desc)
	}
	return b.commandEmbed(b.t(lang, "help_title"), sb.String(), b.cfg.Notifications.EmbedColors.Action, nil)
}
