package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

var (
	ErrNotFound      = errors.New("storage: not found")
	ErrAlreadyExists = errors.New("storage: already exists")
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

type Store struct {
	db      *sql.DB
	dialect Dialect
	retry   RetryPolicy
	now     func() time.Time
}

type GuildSettings struct {
	GuildID    string
	LogChannel string
	Language   string
}

// New opens a SQLite file (or ":memory:") or, for postgres:// URLs, a
// PostgreSQL database through pgx.
func New(dsn string) (*Store, error) {
	dialect, driver, source := resolveDSN(dsn)
	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, err
	}
	if dialect == DialectSQLite {
		// One connection keeps ":memory:" databases shared and avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}
	return &Store{db: db, dialect: dialect, retry: DefaultRetryPolicy(), now: time.Now}, nil
}

func resolveDSN(dsn string) (Dialect, string, string) {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DialectPostgres, "pgx", dsn
	}
	return DialectSQLite, "sqlite", strings.TrimPrefix(dsn, "sqlite://")
}

func (s *Store) Dialect() Dialect {
	return s.dialect
}

// WithRetryPolicy replaces the retry policy used for every query.
func (s *Store) WithRetryPolicy(policy RetryPolicy) {
	s.retry = policy
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *Store) Migrate() error {
	dir := path.Join("migrations", string(s.dialect))
	entries, err := migrations.ReadDir(dir)
	if err != nil {
		return err
	}

	var files []string
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := migrations.ReadFile(path.Join(dir, file))
		if err != nil {
			return err
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			if isIgnorableMigrationError(err) {
				continue
			}
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
	}
	return nil
}

func (s *Store) GetGuildSettings(ctx context.Context, guildID string, defaults GuildSettings) (GuildSettings, error) {
	result := defaults
	result.GuildID = guildID

	var logChannel, language string
	err := s.queryRow(ctx, func(row *sql.Row) error {
		return row.Scan(&logChannel, &language)
	}, `SELECT log_channel, language FROM guild_settings WHERE guild_id = ?`, guildID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return result, nil
		}
		return GuildSettings{}, err
	}
	if logChannel != "" {
		result.LogChannel = logChannel
	}
	if language != "" {
		result.Language = language
	}
	return result, nil
}

func (s *Store) UpsertGuildSettings(ctx context.Context, settings GuildSettings) error {
	return s.exec(ctx, `
		INSERT INTO guild_settings (guild_id, log_channel, language)
		VALUES (?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			log_channel = excluded.log_channel,
			language = excluded.language
	`, settings.GuildID, settings.LogChannel, settings.Language)
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	query = s.rebind(query)
	return NoResult(ctx, s.retry, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

func (s *Store) execAffected(ctx context.Context, query string, args ...any) (int64, error) {
	query = s.rebind(query)
	return Operation(ctx, s.retry, func(ctx context.Context) (int64, error) {
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, err
		}
		return res.RowsAffected()
	})
}

func (s *Store) queryRow(ctx context.Context, scan func(*sql.Row) error, query string, args ...any) error {
	query = s.rebind(query)
	return NoResult(ctx, s.retry, func(ctx context.Context) error {
		return scan(s.db.QueryRowContext(ctx, query, args...))
	})
}

func (s *Store) query(ctx context.Context, scan func(*sql.Rows) error, query string, args ...any) error {
	query = s.rebind(query)
	rows, err := Operation(ctx, s.retry, func(ctx context.Context) (*sql.Rows, error) {
		return s.db.QueryContext(ctx, query, args...)
	})
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// rebind rewrites "?" placeholders to "$n" for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func isIgnorableMigrationError(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "duplicate column name") || strings.Contains(message, "already exists")
}
