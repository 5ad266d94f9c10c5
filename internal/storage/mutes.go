package storage

import (
	"context"
	"database/sql"
	"time"
)

type Mute struct {
	GuildID   string
	UserID    string
	Reason    string
	MutedBy   string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// UpsertMute records a timeout; a second mute of the same member replaces the first.
func (s *Store) UpsertMute(ctx context.Context, mute Mute) error {
	if mute.CreatedAt.IsZero() {
		mute.CreatedAt = s.now()
	}
	return s.exec(ctx, `
		INSERT INTO mutes (guild_id, user_id, reason, muted_by, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id, user_id) DO UPDATE SET
			reason = excluded.reason,
			muted_by = excluded.muted_by,
			expires_at = excluded.expires_at,
			created_at = excluded.created_at
	`, mute.GuildID, mute.UserID, mute.Reason, mute.MutedBy, mute.ExpiresAt.Unix(), mute.CreatedAt.Unix())
}

func (s *Store) ActiveMutes(ctx context.Context, guildID string, now time.Time) ([]Mute, error) {
	var mutes []Mute
	err := s.query(ctx, func(rows *sql.Rows) error {
		var mute Mute
		var expires, created int64
		if err := rows.Scan(&mute.GuildID, &mute.UserID, &mute.Reason, &mute.MutedBy, &expires, &created); err != nil {
			return err
		}
		mute.ExpiresAt = time.Unix(expires, 0)
		mute.CreatedAt = time.Unix(created, 0)
		mutes = append(mutes, mute)
		return nil
	}, `
		SELECT guild_id, user_id, reason, muted_by, expires_at, created_at
		FROM mutes
		WHERE guild_id = ? AND expires_at > ?
		ORDER BY expires_at
	`, guildID, now.Unix())
	return mutes, err
}

func (s *Store) CleanupExpiredMutes(ctx context.Context, now time.Time) (int64, error) {
	return s.execAffected(ctx, `DELETE FROM mutes WHERE expires_at <= ?`, now.Unix())
}
