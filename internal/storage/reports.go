package storage

import (
	"context"
	"database/sql"
	"time"
)

type Report struct {
	ID        int64
	GuildID   string
	UserID    string
	Type      string
	Details   string
	CreatedAt time.Time
}

func (s *Store) AddReport(ctx context.Context, report Report) (Report, error) {
	if report.CreatedAt.IsZero() {
		report.CreatedAt = s.now()
	}
	err := s.queryRow(ctx, func(row *sql.Row) error {
		return row.Scan(&report.ID)
	}, `
		INSERT INTO reports (guild_id, user_id, type, details, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`, report.GuildID, report.UserID, report.Type, report.Details, report.CreatedAt.Unix())
	if err != nil {
		return Report{}, err
	}
	return report, nil
}

func (s *Store) ListReports(ctx context.Context, guildID string, limit int) ([]Report, error) {
	if limit <= 0 {
		limit = 25
	}
	var reports []Report
	err := s.query(ctx, func(rows *sql.Rows) error {
		var report Report
		var created int64
		if err := rows.Scan(&report.ID, &report.GuildID, &report.UserID, &report.Type, &report.Details, &created); err != nil {
			return err
		}
		report.CreatedAt = time.Unix(created, 0)
		reports = append(reports, report)
		return nil
	}, `
		SELECT id, guild_id, user_id, type, details, created_at
		FROM reports
		WHERE guild_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, guildID, limit)
	return reports, err
}
