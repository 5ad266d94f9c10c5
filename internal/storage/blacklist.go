package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// BlacklistKind selects the user-ID list or the MAC address list.
type BlacklistKind string

const (
	BlacklistUser BlacklistKind = "id"
	BlacklistMAC  BlacklistKind = "ip"
)

type BlacklistEntry struct {
	Kind      BlacklistKind
	Value     string
	GuildID   string
	Reason    string
	AddedBy   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func blacklistTable(kind BlacklistKind) (table, column string) {
	if kind == BlacklistMAC {
		return "blacklist_ip", "mac_address"
	}
	return "blacklist_id", "user_id"
}

func (s *Store) AddBlacklist(ctx context.Context, entry BlacklistEntry) (BlacklistEntry, error) {
	table, column := blacklistTable(entry.Kind)
	now := s.now()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	affected, err := s.execAffected(ctx, `
		INSERT INTO `+table+` (`+column+`, guild_id, reason, added_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(`+column+`) DO NOTHING
	`, entry.Value, entry.GuildID, entry.Reason, entry.AddedBy, now.Unix(), now.Unix())
	if err != nil {
		return BlacklistEntry{}, err
	}
	if affected == 0 {
		return BlacklistEntry{}, ErrAlreadyExists
	}
	return entry, nil
}

func (s *Store) RemoveBlacklist(ctx context.Context, kind BlacklistKind, value string) (BlacklistEntry, error) {
	entry, err := s.GetBlacklist(ctx, kind, value)
	if err != nil {
		return BlacklistEntry{}, err
	}
	table, column := blacklistTable(kind)
	affected, err := s.execAffected(ctx, `DELETE FROM `+table+` WHERE `+column+` = ?`, value)
	if err != nil {
		return BlacklistEntry{}, err
	}
	if affected == 0 {
		return BlacklistEntry{}, ErrNotFound
	}
	return entry, nil
}

func (s *Store) UpdateBlacklistReason(ctx context.Context, kind BlacklistKind, value, reason string) (BlacklistEntry, error) {
	table, column := blacklistTable(kind)
	affected, err := s.execAffected(ctx, `
		UPDATE `+table+` SET reason = ?, updated_at = ? WHERE `+column+` = ?
	`, reason, s.now().Unix(), value)
	if err != nil {
		return BlacklistEntry{}, err
	}
	if affected == 0 {
		return BlacklistEntry{}, ErrNotFound
	}
	return s.GetBlacklist(ctx, kind, value)
}

func (s *Store) GetBlacklist(ctx context.Context, kind BlacklistKind, value string) (BlacklistEntry, error) {
	table, column := blacklistTable(kind)
	entry := BlacklistEntry{Kind: kind}
	var created, updated int64
	err := s.queryRow(ctx, func(row *sql.Row) error {
		return row.Scan(&entry.Value, &entry.GuildID, &entry.Reason, &entry.AddedBy, &created, &updated)
	}, `
		SELECT `+column+`, guild_id, reason, added_by, created_at, updated_at
		FROM `+table+` WHERE `+column+` = ?
	`, value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return BlacklistEntry{}, ErrNotFound
		}
		return BlacklistEntry{}, err
	}
	entry.CreatedAt = time.Unix(created, 0)
	entry.UpdatedAt = time.Unix(updated, 0)
	return entry, nil
}

func (s *Store) IsBlacklisted(ctx context.Context, kind BlacklistKind, value string) (bool, error) {
	_, err := s.GetBlacklist(ctx, kind, value)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// ListBlacklist returns the newest entries first. A non-empty guildID keeps
// only entries added from that guild.
func (s *Store) ListBlacklist(ctx context.Context, kind BlacklistKind, guildID string, limit int) ([]BlacklistEntry, error) {
	if limit <= 0 {
		limit = 25
	}
	table, column := blacklistTable(kind)
	var entries []BlacklistEntry
	scan := func(rows *sql.Rows) error {
		entry := BlacklistEntry{Kind: kind}
		var created, updated int64
		if err := rows.Scan(&entry.Value, &entry.GuildID, &entry.Reason, &entry.AddedBy, &created, &updated); err != nil {
			return err
		}
		entry.CreatedAt = time.Unix(created, 0)
		entry.UpdatedAt = time.Unix(updated, 0)
		entries = append(entries, entry)
		return nil
	}

	base := `SELECT ` + column + `, guild_id, reason, added_by, created_at, updated_at FROM ` + table
	var err error
	if guildID == "" {
		err = s.query(ctx, scan, base+` ORDER BY created_at DESC, `+column+` LIMIT ?`, limit)
	} else {
		err = s.query(ctx, scan, base+` WHERE guild_id = ? ORDER BY created_at DESC, `+column+` LIMIT ?`, guildID, limit)
	}
	return entries, err
}
