package bot

import (
	"context"
	"fmt"
	"time"

	"rudyprotect/internal/modules/moderation"

	"github.com/bwmarrin/discordgo"
)

const (
	bridgeActorID  = "api"
	bridgeActorTag = "RudyProtect API"
	bridgeReason   = "Action via RudyProtect API"

	colorBan  = 0xED4245
	colorKick = 0xFFA500
	colorMute = 0xFEE75C
)

// The methods below serve the HTTP bridge. They skip the slash command
// hierarchy checks because the website authorizes the caller itself.

func (b *Bot) bridgeRequest(guildID, userID, reason string) moderation.Request {
	req := moderation.Request{
		GuildID:  guildID,
		ActorID:  bridgeActorID,
		ActorTag: bridgeActorTag,
		TargetID: userID,
		Reason:   reason,
	}
	if guild, err := b.session.State.Guild(guildID); err == nil {
		req.GuildName = guild.Name
	}
	return req
}

func (b *Bot) KickMember(ctx context.Context, guildID, userID, reason string) error {
	_, err := b.moderation.Kick(ctx, b.bridgeRequest(guildID, userID, reason))
	return err
}

func (b *Bot) BanMember(ctx context.Context, guildID, userID, reason string, deleteDays int) error {
	req := b.bridgeRequest(guildID, userID, reason)
	req.DeleteDays = deleteDays
	_, err := b.moderation.Ban(ctx, req)
	return err
}

// MuteMember returns when the timeout ends.
func (b *Bot) MuteMember(ctx context.Context, guildID, userID string, minutes int, reason string) (time.Time, error) {
	req := b.bridgeRequest(guildID, userID, reason)
	req.DurationMinutes = minutes
	out, err := b.moderation.Mute(ctx, req)
	if err != nil {
		return time.Time{}, err
	}
	return out.ExpiresAt, nil
}

func (b *Bot) AddRole(ctx context.Context, guildID, userID, roleID string) error {
	return b.gateway.GrantRole(ctx, guildID, userID, roleID, bridgeReason)
}

func (b *Bot) RemoveRole(ctx context.Context, guildID, userID, roleID string) error {
	return b.gateway.RevokeRole(ctx, guildID, userID, roleID, bridgeReason)
}

func sanctionEmbed(notice moderation.Notice) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Raison", Value: notice.Reason, Inline: false},
		},
	}
	switch notice.Action {
	case moderation.ActionBan:
		embed.Title = "🔨 Bannissement"
		embed.Description = fmt.Sprintf("Vous avez été banni de **%s**.", notice.GuildName)
		embed.Color = colorBan
	case moderation.ActionKick:
		embed.Title = "👢 Expulsion"
		embed.Description = fmt.Sprintf("Vous avez été expulsé de **%s**.", notice.GuildName)
		embed.Color = colorKick
	case moderation.ActionMute:
		embed.Title = "🔇 Mise en sourdine"
		embed.Description = fmt.Sprintf("Vous avez été rendu muet sur **%s**.", notice.GuildName)
		embed.Color = colorMute
		embed.Fields = append(embed.Fields,
			&discordgo.MessageEmbedField{Name: "Durée", Value: notice.DurationText, Inline: true},
			&discordgo.MessageEmbedField{Name: "Fin", Value: fmt.Sprintf("<t:%d:R>", notice.ExpiresAt.Unix()), Inline: true},
		)
	}
	return embed
}
