package errreport

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rudyprotect/internal/verification"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	colorError  = 0xFF0000
	colorOnline = 0x57F287

	maxFieldLength = 1000
	dmTimeout      = 15 * time.Second
)

// DirectMessenger delivers an embed to a user's DM channel.
type DirectMessenger interface {
	SendDirectEmbed(ctx context.Context, userID string, embed *discordgo.MessageEmbed) error
}

// Reporter logs failures and forwards them to the developer when one is configured.
type Reporter struct {
	logger      *zap.Logger
	messenger   DirectMessenger
	developerID string
	now         func() time.Time
	async       bool
}

func New(logger *zap.Logger, messenger DirectMessenger, developerID string) *Reporter {
	return &Reporter{
		logger:      logger.Named("errors"),
		messenger:   messenger,
		developerID: developerID,
		now:         time.Now,
		async:       true,
	}
}

func (r *Reporter) Report(ctx context.Context, ec verification.ErrorContext, err error) {
	if err == nil {
		return
	}
	r.logger.Error("operation failed",
		zap.String("source", ec.Source),
		zap.String("guild_id", ec.GuildID),
		zap.String("user_id", ec.UserID),
		zap.String("channel_id", ec.ChannelID),
		zap.Error(err),
	)
	if r.messenger == nil || r.developerID == "" {
		return
	}

	embed := r.ErrorEmbed(ec, err)
	send := func() {
		dmCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dmTimeout)
		defer cancel()
		if dmErr := r.messenger.SendDirectEmbed(dmCtx, r.developerID, embed); dmErr != nil {
			r.logger.Warn("developer dm failed", zap.Error(dmErr))
		}
	}
	if r.async {
		go send()
		return
	}
	send()
}

func (r *Reporter) ErrorEmbed(ec verification.ErrorContext, err error) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Erreur", Value: codeBlock(err.Error())},
	}
	if ec.Source != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Source", Value: ec.Source, Inline: true})
	}
	if ec.GuildID != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Serveur", Value: ec.GuildID, Inline: true})
	}
	if ec.UserID != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Utilisateur", Value: fmt.Sprintf("<@%s> (%s)", ec.UserID, ec.UserID), Inline: true})
	}
	if ec.ChannelID != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Salon", Value: fmt.Sprintf("<#%s>", ec.ChannelID), Inline: true})
	}
	return &discordgo.MessageEmbed{
		Title:     "❌ Erreur détectée",
		Color:     colorError,
		Fields:    fields,
		Timestamp: r.now().UTC().Format(time.RFC3339),
	}
}

// NotifyOnline tells the developer the bot finished connecting.
func (r *Reporter) NotifyOnline(ctx context.Context, guilds int, latency time.Duration) {
	if r.messenger == nil || r.developerID == "" {
		return
	}
	embed := &discordgo.MessageEmbed{
		Title:       "🟢 Bot en ligne",
		Description: "RudyProtect est connecté et opérationnel.",
		Color:       colorOnline,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Serveurs", Value: fmt.Sprintf("%d", guilds), Inline: true},
			{Name: "Latence", Value: fmt.Sprintf("%dms", latency.Milliseconds()), Inline: true},
		},
		Timestamp: r.now().UTC().Format(time.RFC3339),
	}
	if err := r.messenger.SendDirectEmbed(ctx, r.developerID, embed); err != nil {
		r.logger.Warn("online dm failed", zap.Error(err))
	}
}

func codeBlock(text string) string {
	text = strings.ReplaceAll(text, "```", "'''")
	if len(text) > maxFieldLength {
		text = text[:maxFieldLength] + "…"
	}
	return "```\n" + text + "\n```"
}
