package audit

import (
	"context"
	"time"

	"rudyprotect/internal/storage"

	"go.uber.org/zap"
)

const (
	LevelInfo = "INFO"
	LevelWarn = "WARN"
	LevelCrit = "CRIT"
)

// Captcha lifecycle and configuration events. Statistics count these names.
const (
	EventCaptchaCreated   = "captcha_created"
	EventCaptchaVerified  = "captcha_verified"
	EventCaptchaExpired   = "captcha_expired"
	EventCaptchaAbandoned = "captcha_abandoned"
	EventCaptchaConfig    = "captcha_config_updated"
)

type Store interface {
	AddAuditLog(ctx context.Context, log storage.AuditLog) error
}

type Logger struct {
	store  Store
	logger *zap.Logger
	notify func(context.Context, storage.AuditLog)
	now    func() time.Time
}

func NewLogger(store Store, logger *zap.Logger) *Logger {
	return &Logger{store: store, logger: logger, now: time.Now}
}

// SetNotifier registers a callback run after each entry is stored, typically
// to mirror it into a guild log channel.
func (l *Logger) SetNotifier(notify func(context.Context, storage.AuditLog)) {
	l.notify = notify
}

func (l *Logger) Log(ctx context.Context, level, guildID, userID, event, details string) {
	entry := storage.AuditLog{
		GuildID:   guildID,
		UserID:    userID,
		Level:     level,
		Event:     event,
		Details:   details,
		CreatedAt: l.now(),
	}
	if l.store != nil {
		if err := l.store.AddAuditLog(ctx, entry); err != nil {
			l.logger.Warn("audit persist failed", zap.String("event", event), zap.Error(err))
		}
	}
	if l.notify != nil {
		l.notify(ctx, entry)
	}
	l.logger.Info("audit", zap.String("level", level), zap.String("guild_id", guildID), zap.String("user_id", userID), zap.String("event", event), zap.String("details", details))
}
