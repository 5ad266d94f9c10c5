package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"rudyprotect/internal/analytics"
	"rudyprotect/internal/cache"
	"rudyprotect/internal/config"
	"rudyprotect/internal/modules/audit"
	"rudyprotect/internal/modules/blacklist"
	"rudyprotect/internal/modules/errreport"
	"rudyprotect/internal/modules/moderation"
	"rudyprotect/internal/modules/purge"
	"rudyprotect/internal/modules/reports"
	"rudyprotect/internal/storage"
	"rudyprotect/internal/verification"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	auditAggregateWindow = 10 * time.Minute
	maintenanceInterval  = 24 * time.Hour
	readyDMDelay         = 5 * time.Second
)

type Bot struct {
	cfg         config.Config
	logger      *zap.Logger
	store       *storage.Store
	captcha     *cache.CaptchaConfigs
	audit       *audit.Logger
	analytics   *analytics.Service
	session     *discordgo.Session
	gateway     *Gateway
	reporter    *errreport.Reporter
	blacklist   *blacklist.Service
	moderation  *moderation.Service
	reports     *reports.Service
	purger      *purge.Purger
	coordinator *verification.Coordinator
	startedAt   time.Time
	cancel      context.CancelFunc
	readyOnce   sync.Once
	auditAgg    map[string]*auditAggregate
	auditAggMu  sync.Mutex
}

type auditAggregate struct {
	channelID string
	messageID string
	count     int
	lastAt    time.Time
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, captchaConfigs *cache.CaptchaConfigs, auditLogger *audit.Logger, analyticsEngine *analytics.Service) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages

	gateway := NewGateway(session, logger)
	b := &Bot{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		captcha:   captchaConfigs,
		audit:     auditLogger,
		analytics: analyticsEngine,
		session:   session,
		gateway:   gateway,
		startedAt: time.Now(),
		auditAgg:  make(map[string]*auditAggregate),
	}

	b.reporter = errreport.New(logger, gateway, cfg.DeveloperID)
	b.blacklist = blacklist.NewService(store, auditLogger, logger)
	b.moderation = moderation.NewService(gateway, store, auditLogger, logger)
	b.reports = reports.NewService(store, b.blacklist, gateway, cfg.DeveloperID, logger)
	if cfg.Purge.Enabled {
		b.purger = purge.New(gateway, purge.Config{
			RequestsPerSecond: cfg.Purge.RequestsPerSecond,
			Concurrency:       cfg.Purge.Concurrency,
		}, logger)
	}
	b.coordinator = verification.NewCoordinator(gateway, gateway, gateway, captchaSource{configs: captchaConfigs}, b.reporter, logger.Named("verification"), verification.Options{
		GraceMinutes: cfg.Captcha.GraceMinutes,
		Recorder:     auditLogger,
	})

	if b.audit != nil {
		b.audit.SetNotifier(func(ctx context.Context, entry storage.AuditLog) {
			if !b.cfg.Notifications.AuditToChannel {
				return
			}
			b.notifyAudit(ctx, entry)
		})
	}

	return b, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onGuildMemberAdd)
	b.session.AddHandler(b.onGuildMemberRemove)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	if err := b.registerCommands(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.startMaintenance(ctx)

	return nil
}

// Open connects without registering handlers, for one-shot CLI tasks.
func (b *Bot) Open() error {
	return b.session.Open()
}

// SyncCommands pushes the slash command definitions to Discord.
func (b *Bot) SyncCommands() error {
	return b.registerCommands()
}

func (b *Bot) Close() {
	if b.cancel != nil {
		b.cancel()
	}
	b.coordinator.Close()
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) Blacklist() *blacklist.Service {
	return b.blacklist
}

func (b *Bot) Reporter() *errreport.Reporter {
	return b.reporter
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready", zap.String("user", session.State.User.Username), zap.Int("guilds", len(event.Guilds)))
	b.readyOnce.Do(func() {
		go func() {
			// Heartbeat latency is only known after the first ack.
			time.Sleep(readyDMDelay)
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			b.reporter.NotifyOnline(ctx, b.GuildCount(), session.HeartbeatLatency())
		}()
	})
}

func (b *Bot) GuildCount() int {
	if b.session == nil || b.session.State == nil {
		return 0
	}
	b.session.State.RLock()
	defer b.session.State.RUnlock()
	return len(b.session.State.Guilds)
}

func (b *Bot) Uptime() time.Duration {
	return time.Since(b.startedAt)
}

func (b *Bot) startMaintenance(ctx context.Context) {
	go func() {
		b.runMaintenance(ctx)
		ticker := time.NewTicker(maintenanceInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.runMaintenance(ctx)
			}
		}
	}()
}

func (b *Bot) runMaintenance(ctx context.Context) {
	if b.cfg.RetentionDays > 0 {
		removed, err := b.store.CleanupAuditLogs(ctx, b.cfg.RetentionDays)
		if err != nil {
			b.logger.Warn("audit retention failed", zap.Error(err))
		} else if removed > 0 {
			b.logger.Info("audit logs pruned", zap.Int64("removed", removed))
		}
	}
	if removed, err := b.store.CleanupExpiredMutes(ctx, time.Now()); err != nil {
		b.logger.Warn("mute cleanup failed", zap.Error(err))
	} else if removed > 0 {
		b.logger.Info("expired mutes removed", zap.Int64("removed", removed))
	}
}

func (b *Bot) guildSettings(ctx context.Context, guildID string) storage.GuildSettings {
	defaults := storage.GuildSettings{
		GuildID:    guildID,
		LogChannel: b.cfg.LogChannelID,
		Language:   b.cfg.DefaultLanguage,
	}

	settings, err := b.store.GetGuildSettings(ctx, guildID, defaults)
	if err != nil {
		b.logger.Warn("guild settings fallback", zap.Error(err))
		return defaults
	}
	if settings.Language == "" {
		settings.Language = b.cfg.DefaultLanguage
	}
	return settings
}

// logChannel returns the guild's log channel, ignoring a configured channel
// that belongs to another guild.
func (b *Bot) logChannel(ctx context.Context, guildID string) string {
	channelID := b.guildSettings(ctx, guildID).LogChannel
	if channelID == "" {
		return ""
	}
	if ch, err := b.session.State.Channel(channelID); err == nil && ch.GuildID != guildID {
		return ""
	}
	return channelID
}

func (b *Bot) sendLog(ctx context.Context, guildID string, embed *discordgo.MessageEmbed) {
	channelID := b.logChannel(ctx, guildID)
	if channelID == "" {
		return
	}
	if _, err := b.session.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx)); err != nil {
		b.logger.Warn("log channel send failed", zap.String("guild_id", guildID), zap.String("channel_id", channelID), zap.Error(err))
	}
}

func (b *Bot) buildAuditEmbed(lang string, entry storage.AuditLog, count int) *discordgo.MessageEmbed {
	userValue := "<@" + entry.UserID + ">"
	if entry.UserID == "" {
		userValue = b.t(lang, "value_system")
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: b.t(lang, "field_event"), Value: b.auditEventLabel(lang, entry.Event), Inline: false},
		{Name: b.t(lang, "audit_level"), Value: entry.Level, Inline: true},
		{Name: b.t(lang, "field_user"), Value: userValue, Inline: true},
	}
	if count > 1 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: b.t(lang, "field_count"), Value: fmt.Sprintf("%d", count), Inline: true})
	}
	if entry.Details != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: b.t(lang, "audit_details"), Value: entry.Details, Inline: false})
	}
	color := b.cfg.Notifications.EmbedColors.Action
	switch entry.Level {
	case audit.LevelWarn:
		color = b.cfg.Notifications.EmbedColors.Warning
	case audit.LevelCrit:
		color = b.cfg.Notifications.EmbedColors.Error
	}
	return &discordgo.MessageEmbed{
		Title:     b.t(lang, "audit_title"),
		Color:     color,
		Footer:    &discordgo.MessageEmbedFooter{Text: b.t(lang, "footer_brand")},
		Timestamp: entry.CreatedAt.Format(time.RFC3339),
		Fields:    fields,
	}
}

func (b *Bot) auditEventLabel(lang, event string) string {
	key := "event_" + event
	if label := b.t(lang, key); label != key {
		return label
	}
	return event
}

// quietEvents are stored but not mirrored to the log channel.
var quietEvents = map[string]bool{
	audit.EventCaptchaCreated: true,
}

func (b *Bot) notifyAudit(ctx context.Context, entry storage.AuditLog) {
	if entry.GuildID == "" || quietEvents[entry.Event] || b.session.State == nil || b.session.State.User == nil {
		return
	}
	channelID := b.logChannel(ctx, entry.GuildID)
	if channelID == "" {
		return
	}
	lang := b.guildSettings(ctx, entry.GuildID).Language

	// Bursts of the same event collapse into one message with a counter.
	key := entry.GuildID + "|" + entry.Level + "|" + entry.Event

	b.auditAggMu.Lock()
	agg := b.auditAgg[key]
	if agg != nil && agg.channelID == channelID && time.Since(agg.lastAt) <= auditAggregateWindow {
		agg.count++
		agg.lastAt = time.Now()
		count := agg.count
		messageID := agg.messageID
		b.auditAggMu.Unlock()
		embed := b.buildAuditEmbed(lang, entry, count)
		if _, err := b.session.ChannelMessageEditEmbed(channelID, messageID, embed); err == nil {
			return
		}
		b.auditAggMu.Lock()
		delete(b.auditAgg, key)
	}
	b.auditAggMu.Unlock()

	embed := b.buildAuditEmbed(lang, entry, 1)
	msg, err := b.session.ChannelMessageSendEmbed(channelID, embed)
	if err != nil || msg == nil {
		return
	}
	b.auditAggMu.Lock()
	b.auditAgg[key] = &auditAggregate{channelID: channelID, messageID: msg.ID, count: 1, lastAt: time.Now()}
	b.auditAggMu.Unlock()
}

func (b *Bot) respond(session *discordgo.Session, interaction *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
}

func (b *Bot) respondEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	if embed == nil {
		b.respond(session, interaction, "No response available.", ephemeral)
		return
	}
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  flags,
		},
	})
}

func (b *Bot) commandEmbed(title, description string, color int, fields []*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields:      fields,
	}
}
