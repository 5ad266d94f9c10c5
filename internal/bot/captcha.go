package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rudyprotect/internal/cache"
	"rudyprotect/internal/verification"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	colorPrompt  = 0x5865F2
	colorWelcome = 0x57F287
	colorLeft    = 0xFFA500

	verifyButtonLabel = "✅ Vérifier mon compte"
	purgeTimeout      = 30 * time.Minute
)

// captchaSource exposes the cached captcha settings to the coordinator.
type captchaSource struct {
	configs *cache.CaptchaConfigs
}

func (c captchaSource) CaptchaConfig(ctx context.Context, guildID string) (verification.Config, error) {
	cfg, err := c.configs.Get(ctx, guildID)
	if err != nil {
		return verification.Config{}, err
	}
	return verification.Config{
		Enabled:        cfg.Enabled,
		ChannelID:      cfg.ChannelID,
		RoleID:         cfg.RoleID,
		TimeoutMinutes: cfg.TimeoutMinutes,
	}, nil
}

func promptMessage(p verification.Prompt, now time.Time) *discordgo.MessageSend {
	wait := ""
	if p.GraceMinutes > 0 {
		wait = fmt.Sprintf(" et attendre %d minute(s)", p.GraceMinutes)
	}
	remaining := "∞"
	if p.TimeoutMinutes > 0 {
		remaining = fmt.Sprintf("%d", p.TimeoutMinutes)
	}
	mention := "<@" + p.MemberID + ">"
	description := fmt.Sprintf("Bienvenue sur **%s**, %s!\n\n"+
		"Pour accéder au serveur, vous devez compléter la vérification%s avant de pouvoir accéder à tous les canaux.\n\n"+
		"**Cliquez sur le bouton ci-dessous pour vérifier votre compte.**", p.GuildName, mention, wait)

	return &discordgo.MessageSend{
		Content: mention,
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "🔐 Vérification requise",
			Description: description,
			Color:       colorPrompt,
			Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Vous avez %s minute(s) pour vous vérifier", remaining)},
			Timestamp:   now.UTC().Format(time.RFC3339),
		}},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: verifyButtonLabel, Style: discordgo.SuccessButton, CustomID: p.ControlID},
			}},
		},
		AllowedMentions: &discordgo.MessageAllowedMentions{Users: []string{p.MemberID}},
	}
}

func expiredNotice(guildName string) string {
	return fmt.Sprintf("⏰ Vous avez été expulsé de **%s** car vous n'avez pas complété la vérification à temps.", guildName)
}

func welcomeEmbed(guildName, iconURL string) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Bienvenue sur %s!", guildName),
		Description: "Votre compte a été vérifié avec succès.\n\nVous pouvez maintenant accéder à tous les canaux du serveur.",
		Color:       colorWelcome,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	if iconURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: iconURL}
	}
	return embed
}

func (b *Bot) onGuildMemberAdd(session *discordgo.Session, event *discordgo.GuildMemberAdd) {
	if event.Member == nil || event.User == nil || event.User.Bot {
		return
	}
	ctx := context.Background()

	join := verification.JoinEvent{GuildID: event.GuildID, MemberID: event.User.ID}
	if guild, err := session.State.Guild(event.GuildID); err == nil {
		join.GuildName = guild.Name
		join.VerificationLevel = int(guild.VerificationLevel)
	}

	if _, err := b.coordinator.OnMemberJoin(ctx, join); err != nil {
		b.logger.Debug("verification not started", zap.String("guild_id", event.GuildID), zap.String("user_id", event.User.ID), zap.Error(err))
	}
}

func (b *Bot) onGuildMemberRemove(session *discordgo.Session, event *discordgo.GuildMemberRemove) {
	if event.Member == nil || event.User == nil {
		return
	}
	if session.State.User != nil && event.User.ID == session.State.User.ID {
		return
	}
	ctx := context.Background()

	outcome := b.coordinator.OnMemberLeave(ctx, verification.LeaveEvent{GuildID: event.GuildID, MemberID: event.User.ID})
	b.logger.Info("member left", zap.String("guild_id", event.GuildID), zap.String("user_id", event.User.ID), zap.Stringer("status", outcome.Status))

	settings := b.guildSettings(ctx, event.GuildID)
	if !outcome.ShouldPurge() {
		b.sendLog(ctx, event.GuildID, b.unverifiedLeaveEmbed(settings.Language, event.User, outcome.Status))
		return
	}

	deleted := -1
	if b.purger != nil {
		purgeCtx, cancel := context.WithTimeout(ctx, purgeTimeout)
		result, err := b.purger.PurgeMember(purgeCtx, event.GuildID, event.User.ID)
		cancel()
		if err != nil {
			b.reporter.Report(ctx, verification.ErrorContext{Source: "member_leave_purge", GuildID: event.GuildID, UserID: event.User.ID}, err)
		}
		deleted = result.Deleted
	}
	b.sendLog(ctx, event.GuildID, b.leaveEmbed(settings.Language, event.User, deleted))
}

func (b *Bot) handleVerifyButton(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, verificationID string) {
	user := interactionUser(interaction)
	if user == nil {
		return
	}
	lang := b.cfg.DefaultLanguage
	if interaction.GuildID != "" {
		lang = b.guildSettings(ctx, interaction.GuildID).Language
	}

	err := session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		b.logger.Warn("verify defer failed", zap.Error(err))
		return
	}

	_, err = b.coordinator.OnVerifyConfirm(ctx, verificationID, user.ID)
	content := verifyResultMessage(lang, err)
	if _, editErr := session.InteractionResponseEdit(interaction.Interaction, &discordgo.WebhookEdit{Content: &content}); editErr != nil {
		b.logger.Warn("verify response failed", zap.Error(editErr))
	}
}

func verifyResultMessage(lang string, err error) string {
	switch {
	case err == nil:
		return translate(lang, "verify_success")
	case errors.Is(err, verification.ErrWrongUser):
		return translate(lang, "verify_wrong_user")
	case errors.Is(err, verification.ErrNotFound):
		return translate(lang, "verify_expired")
	default:
		return translate(lang, "verify_error")
	}
}

func (b *Bot) unverifiedLeaveEmbed(lang string, user *discordgo.User, status verification.LeaveStatus) *discordgo.MessageEmbed {
	statusKey := "leave_status_unverified"
	switch status {
	case verification.LeftAbandoned:
		statusKey = "leave_status_abandoned"
	case verification.LeftExpired:
		statusKey = "leave_status_expired"
	case verification.LeftUnknown:
		statusKey = "leave_status_unknown"
	}
	return &discordgo.MessageEmbed{
		Title:       b.t(lang, "leave_unverified_title"),
		Description: fmt.Sprintf(b.t(lang, "leave_unverified_desc"), user.String()),
		Color:       colorLeft,
		Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: user.AvatarURL("128")},
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: b.t(lang, "field_user"), Value: fmt.Sprintf("%s (%s)", user.String(), user.ID), Inline: true},
			{Name: b.t(lang, "field_status"), Value: b.t(lang, statusKey), Inline: true},
			{Name: b.t(lang, "field_messages"), Value: b.t(lang, "leave_messages_kept"), Inline: true},
		},
	}
}

// leaveEmbed reports a verified departure. A negative count means the purge is disabled.
func (b *Bot) leaveEmbed(lang string, user *discordgo.User, deleted int) *discordgo.MessageEmbed {
	count := b.t(lang, "purge_disabled")
	if deleted >= 0 {
		count = fmt.Sprintf(b.t(lang, "messages_deleted_count"), deleted)
	}
	return &discordgo.MessageEmbed{
		Title:       b.t(lang, "leave_title"),
		Description: fmt.Sprintf(b.t(lang, "leave_desc"), user.String()),
		Color:       colorLeft,
		Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: user.AvatarURL("128")},
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: b.t(lang, "field_user"), Value: fmt.Sprintf("%s (%s)", user.String(), user.ID), Inline: true},
			{Name: b.t(lang, "field_messages_deleted"), Value: count, Inline: true},
		},
	}
}

func interactionUser(interaction *discordgo.InteractionCreate) *discordgo.User {
	if interaction.Member != nil && interaction.Member.User != nil {
		return interaction.Member.User
	}
	return interaction.User
}
