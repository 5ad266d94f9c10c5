package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type CaptchaConfig struct {
	GuildID        string
	Enabled        bool
	ChannelID      string
	RoleID         string
	TimeoutMinutes int
	UpdatedAt      time.Time
}

// GetCaptchaConfig returns defaults (with the guild id set) when the guild
// has never been configured.
func (s *Store) GetCaptchaConfig(ctx context.Context, guildID string, defaults CaptchaConfig) (CaptchaConfig, error) {
	result := defaults
	result.GuildID = guildID

	var enabled int
	var updated int64
	err := s.queryRow(ctx, func(row *sql.Row) error {
		return row.Scan(&enabled, &result.ChannelID, &result.RoleID, &result.TimeoutMinutes, &updated)
	}, `
		SELECT enabled, channel_id, role_id, timeout_minutes, updated_at
		FROM captcha_config WHERE guild_id = ?
	`, guildID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return defaults.withGuild(guildID), nil
		}
		return CaptchaConfig{}, err
	}
	result.Enabled = enabled == 1
	result.UpdatedAt = time.Unix(updated, 0)
	return result, nil
}

func (c CaptchaConfig) withGuild(guildID string) CaptchaConfig {
	c.GuildID = guildID
	return c
}

func (s *Store) UpsertCaptchaConfig(ctx context.Context, cfg CaptchaConfig) error {
	if cfg.UpdatedAt.IsZero() {
		cfg.UpdatedAt = s.now()
	}
	return s.exec(ctx, `
		INSERT INTO captcha_config (guild_id, enabled, channel_id, role_id, timeout_minutes, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			enabled = excluded.enabled,
			channel_id = excluded.channel_id,
			role_id = excluded.role_id,
			timeout_minutes = excluded.timeout_minutes,
			updated_at = excluded.updated_at
	`, cfg.GuildID, boolToInt(cfg.Enabled), cfg.ChannelID, cfg.RoleID, cfg.TimeoutMinutes, cfg.UpdatedAt.Unix())
}
