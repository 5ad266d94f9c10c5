package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"rudyprotect/internal/modules/moderation"
	"rudyprotect/internal/modules/purge"
	"rudyprotect/internal/verification"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	promptPermissions = discordgo.PermissionViewChannel | discordgo.PermissionSendMessages
	purgePermissions  = discordgo.PermissionViewChannel | discordgo.PermissionReadMessageHistory | discordgo.PermissionManageMessages
)

// Gateway adapts a discordgo session to the interfaces of the verification,
// purge, moderation and reporting modules.
type Gateway struct {
	session *discordgo.Session
	logger  *zap.Logger
}

func NewGateway(session *discordgo.Session, logger *zap.Logger) *Gateway {
	return &Gateway{session: session, logger: logger.Named("gateway")}
}

func (g *Gateway) Kick(ctx context.Context, guildID, memberID, reason string) error {
	return restError(g.session.GuildMemberDeleteWithReason(guildID, memberID, reason, discordgo.WithContext(ctx)))
}

func (g *Gateway) GrantRole(ctx context.Context, guildID, memberID, roleID, reason string) error {
	return restError(g.session.GuildMemberRoleAdd(guildID, memberID, roleID, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason)))
}

func (g *Gateway) RevokeRole(ctx context.Context, guildID, memberID, roleID, reason string) error {
	return restError(g.session.GuildMemberRoleRemove(guildID, memberID, roleID, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason)))
}

func (g *Gateway) Ban(ctx context.Context, guildID, userID, reason string, deleteDays int) error {
	return restError(g.session.GuildBanCreateWithReason(guildID, userID, reason, deleteDays, discordgo.WithContext(ctx)))
}

func (g *Gateway) Timeout(ctx context.Context, guildID, userID string, until time.Time, reason string) error {
	return restError(g.session.GuildMemberTimeout(guildID, userID, &until, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason)))
}

// HasRole reads the member from the state cache, then from the API. A member
// that is already gone yields PresenceUnknown.
func (g *Gateway) HasRole(ctx context.Context, guildID, memberID, roleID string) verification.Presence {
	member, err := g.session.State.Member(guildID, memberID)
	if err != nil || member == nil {
		member, err = g.session.GuildMember(guildID, memberID, discordgo.WithContext(ctx))
		if err != nil {
			return verification.PresenceUnknown
		}
	}
	for _, id := range member.Roles {
		if id == roleID {
			return verification.PresenceYes
		}
	}
	return verification.PresenceNo
}

func (g *Gateway) Channels(ctx context.Context, guildID string) ([]verification.Channel, error) {
	channels, err := g.guildChannels(ctx, guildID)
	if err != nil {
		return nil, err
	}
	out := make([]verification.Channel, 0, len(channels))
	for _, ch := range channels {
		out = append(out, verification.Channel{
			ID:       ch.ID,
			Name:     ch.Name,
			Text:     isTextChannel(ch.Type),
			Postable: g.botCan(ch.ID, promptPermissions),
		})
	}
	return out, nil
}

func (g *Gateway) SendPrompt(ctx context.Context, channelID string, prompt verification.Prompt) (verification.MessageRef, error) {
	msg, err := g.session.ChannelMessageSendComplex(channelID, promptMessage(prompt, time.Now()), discordgo.WithContext(ctx))
	if err != nil {
		return verification.MessageRef{}, restError(err)
	}
	return verification.MessageRef{ChannelID: msg.ChannelID, MessageID: msg.ID}, nil
}

// DeleteMessage treats an already deleted message as success.
func (g *Gateway) DeleteMessage(ctx context.Context, ref verification.MessageRef) error {
	err := g.session.ChannelMessageDelete(ref.ChannelID, ref.MessageID, discordgo.WithContext(ctx))
	if restCode(err) == discordgo.ErrCodeUnknownMessage {
		return nil
	}
	return restError(err)
}

func (g *Gateway) DirectMessage(ctx context.Context, userID string, notice verification.Notice) error {
	channel, err := g.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return restError(err)
	}
	switch notice.Kind {
	case verification.NoticeExpired:
		_, err = g.session.ChannelMessageSend(channel.ID, expiredNotice(notice.GuildName), discordgo.WithContext(ctx))
	default:
		_, err = g.session.ChannelMessageSendEmbed(channel.ID, welcomeEmbed(notice.GuildName, g.guildIcon(notice.GuildID)), discordgo.WithContext(ctx))
	}
	return restError(err)
}

func (g *Gateway) SendDirectEmbed(ctx context.Context, userID string, embed *discordgo.MessageEmbed) error {
	channel, err := g.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return restError(err)
	}
	_, err = g.session.ChannelMessageSendEmbed(channel.ID, embed, discordgo.WithContext(ctx))
	return restError(err)
}

func (g *Gateway) NotifySanction(ctx context.Context, userID string, notice moderation.Notice) error {
	return g.SendDirectEmbed(ctx, userID, sanctionEmbed(notice))
}

func (g *Gateway) PurgeableChannels(ctx context.Context, guildID string) ([]string, error) {
	channels, err := g.guildChannels(ctx, guildID)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, ch := range channels {
		if !isMessageChannel(ch.Type) {
			continue
		}
		if !g.botCan(ch.ID, purgePermissions) {
			g.logger.Debug("skipping channel without purge permissions", zap.String("channel_id", ch.ID))
			continue
		}
		ids = append(ids, ch.ID)
	}
	return ids, nil
}

func (g *Gateway) Messages(ctx context.Context, channelID, before string, limit int) ([]purge.Message, error) {
	msgs, err := g.session.ChannelMessages(channelID, limit, before, "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, restError(err)
	}
	out := make([]purge.Message, 0, len(msgs))
	for _, msg := range msgs {
		author := ""
		if msg.Author != nil {
			author = msg.Author.ID
		}
		out = append(out, purge.Message{ID: msg.ID, AuthorID: author, CreatedAt: msg.Timestamp})
	}
	return out, nil
}

func (g *Gateway) BulkDelete(ctx context.Context, channelID string, messageIDs []string) error {
	return restError(g.session.ChannelMessagesBulkDelete(channelID, messageIDs, discordgo.WithContext(ctx)))
}

func (g *Gateway) DeleteChannelMessage(ctx context.Context, channelID, messageID string) error {
	return g.DeleteMessage(ctx, verification.MessageRef{ChannelID: channelID, MessageID: messageID})
}

// guildChannels prefers the state cache and orders channels as the client does.
func (g *Gateway) guildChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
	var channels []*discordgo.Channel
	if guild, err := g.session.State.Guild(guildID); err == nil && len(guild.Channels) > 0 {
		channels = append(channels, guild.Channels...)
	} else {
		fetched, err := g.session.GuildChannels(guildID, discordgo.WithContext(ctx))
		if err != nil {
			return nil, restError(err)
		}
		channels = fetched
	}
	sortChannels(channels)
	return channels, nil
}

func (g *Gateway) botCan(channelID string, perms int64) bool {
	if g.session.State == nil || g.session.State.User == nil {
		return false
	}
	granted, err := g.session.State.UserChannelPermissions(g.session.State.User.ID, channelID)
	if err != nil {
		return false
	}
	return granted&discordgo.PermissionAdministrator != 0 || granted&perms == perms
}

func (g *Gateway) guildIcon(guildID string) string {
	guild, err := g.session.State.Guild(guildID)
	if err != nil || guild.Icon == "" {
		return ""
	}
	return guild.IconURL("256")
}

func sortChannels(channels []*discordgo.Channel) {
	sort.SliceStable(channels, func(i, j int) bool {
		if channels[i].Position != channels[j].Position {
			return channels[i].Position < channels[j].Position
		}
		return channels[i].ID < channels[j].ID
	})
}

func isTextChannel(kind discordgo.ChannelType) bool {
	return kind == discordgo.ChannelTypeGuildText || kind == discordgo.ChannelTypeGuildNews
}

func isMessageChannel(kind discordgo.ChannelType) bool {
	switch kind {
	case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews, discordgo.ChannelTypeGuildVoice:
		return true
	default:
		return false
	}
}

func restCode(err error) int {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Message != nil {
		return rest.Message.Code
	}
	return 0
}

// restError tags unknown guild, member and user failures with
// moderation.ErrUnknownTarget so callers can map them to "not found".
func restError(err error) error {
	if err == nil {
		return nil
	}
	switch restCode(err) {
	case discordgo.ErrCodeUnknownGuild, discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownUser:
		return fmt.Errorf("%w: %w", moderation.ErrUnknownTarget, err)
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound && rest.Message == nil {
		return fmt.Errorf("%w: %w", moderation.ErrUnknownTarget, err)
	}
	return err
}
