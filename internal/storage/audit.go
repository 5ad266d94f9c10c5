package storage

import (
	"context"
	"database/sql"
	"time"
)

type AuditLog struct {
	ID        int64
	GuildID   string
	UserID    string
	Level     string
	Event     string
	Details   string
	CreatedAt time.Time
}

func (s *Store) AddAuditLog(ctx context.Context, log AuditLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = s.now()
	}
	return s.exec(ctx, `
		INSERT INTO audit_logs (guild_id, user_id, level, event, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, log.GuildID, log.UserID, log.Level, log.Event, log.Details, log.CreatedAt.Unix())
}

func (s *Store) ListAuditLogs(ctx context.Context, guildID string, since time.Time) ([]AuditLog, error) {
	var logs []AuditLog
	err := s.query(ctx, func(rows *sql.Rows) error {
		var log AuditLog
		var created int64
		if err := rows.Scan(&log.ID, &log.GuildID, &log.UserID, &log.Level, &log.Event, &log.Details, &created); err != nil {
			return err
		}
		log.CreatedAt = time.Unix(created, 0)
		logs = append(logs, log)
		return nil
	}, `
		SELECT id, guild_id, user_id, level, event, details, created_at
		FROM audit_logs
		WHERE guild_id = ? AND created_at >= ?
		ORDER BY created_at DESC, id DESC
	`, guildID, since.Unix())
	return logs, err
}

// CountAuditEvents groups audit rows by event since the given time. An empty
// guildID counts every guild.
func (s *Store) CountAuditEvents(ctx context.Context, guildID string, since time.Time) (map[string]int, error) {
	counts := make(map[string]int)
	scan := func(rows *sql.Rows) error {
		var event string
		var count int
		if err := rows.Scan(&event, &count); err != nil {
			return err
		}
		counts[event] = count
		return nil
	}
	if guildID == "" {
		err := s.query(ctx, scan, `
			SELECT event, COUNT(*) FROM audit_logs WHERE created_at >= ? GROUP BY event
		`, since.Unix())
		return counts, err
	}
	err := s.query(ctx, scan, `
		SELECT event, COUNT(*) FROM audit_logs WHERE guild_id = ? AND created_at >= ? GROUP BY event
	`, guildID, since.Unix())
	return counts, err
}

func (s *Store) CleanupAuditLogs(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := s.now().AddDate(0, 0, -retentionDays)
	return s.execAffected(ctx, `DELETE FROM audit_logs WHERE created_at < ?`, cutoff.Unix())
}
