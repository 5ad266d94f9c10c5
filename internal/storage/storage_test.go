package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)

	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	if err := store.Migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestResolveDSN(t *testing.T) {
	dialect, driver, source := resolveDSN("postgres://user:pw@localhost/rudy")
	if dialect != DialectPostgres || driver != "pgx" || source != "postgres://user:pw@localhost/rudy" {
		t.Fatalf("unexpected postgres resolution: %s %s %s", dialect, driver, source)
	}
	dialect, driver, source = resolveDSN("sqlite:///data/rudy.db")
	if dialect != DialectSQLite || driver != "sqlite" || source != "/data/rudy.db" {
		t.Fatalf("unexpected sqlite resolution: %s %s %s", dialect, driver, source)
	}
}

func TestRebind(t *testing.T) {
	pg := &Store{dialect: DialectPostgres}
	got := pg.rebind("SELECT a FROM t WHERE b = ? AND c = ?")
	if got != "SELECT a FROM t WHERE b = $1 AND c = $2" {
		t.Fatalf("unexpected rebind %q", got)
	}
	lite := &Store{dialect: DialectSQLite}
	if lite.rebind("x = ?") != "x = ?" {
		t.Fatalf("sqlite query should be unchanged")
	}
}

func TestUpsertGuildSettings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	defaults := GuildSettings{LogChannel: "fallback", Language: "fr"}
	got, err := store.GetGuildSettings(ctx, "g1", defaults)
	if err != nil {
		t.Fatalf("get defaults: %v", err)
	}
	if got.LogChannel != "fallback" || got.GuildID != "g1" {
		t.Fatalf("expected defaults, got %+v", got)
	}

	if err := store.UpsertGuildSettings(ctx, GuildSettings{GuildID: "g1", LogChannel: "c1", Language: "en"}); err != nil {
		t.Fatalf("upsert guild settings: %v", err)
	}
	if err := store.UpsertGuildSettings(ctx, GuildSettings{GuildID: "g1", LogChannel: "c2", Language: "en"}); err != nil {
		t.Fatalf("update guild settings: %v", err)
	}

	got, err = store.GetGuildSettings(ctx, "g1", defaults)
	if err != nil {
		t.Fatalf("get guild settings: %v", err)
	}
	if got.LogChannel != "c2" || got.Language != "en" {
		t.Fatalf("expected c2/en, got %+v", got)
	}
}

func TestCaptchaConfigRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	defaults := CaptchaConfig{TimeoutMinutes: 10}
	got, err := store.GetCaptchaConfig(ctx, "g1", defaults)
	if err != nil {
		t.Fatalf("get default captcha: %v", err)
	}
	if got.Enabled || got.TimeoutMinutes != 10 || got.GuildID != "g1" {
		t.Fatalf("expected disabled default, got %+v", got)
	}

	cfg := CaptchaConfig{GuildID: "g1", Enabled: true, ChannelID: "c1", RoleID: "r1", TimeoutMinutes: 0}
	if err := store.UpsertCaptchaConfig(ctx, cfg); err != nil {
		t.Fatalf("upsert captcha: %v", err)
	}
	got, err = store.GetCaptchaConfig(ctx, "g1", defaults)
	if err != nil {
		t.Fatalf("get captcha: %v", err)
	}
	if !got.Enabled || got.ChannelID != "c1" || got.RoleID != "r1" || got.TimeoutMinutes != 0 {
		t.Fatalf("unexpected captcha config %+v", got)
	}
}

func TestBlacklistLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := BlacklistEntry{Kind: BlacklistUser, Value: "123456789012345678", GuildID: "g1", Reason: "spam", AddedBy: "mod"}
	if _, err := store.AddBlacklist(ctx, entry); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := store.AddBlacklist(ctx, entry); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	listed, err := store.IsBlacklisted(ctx, BlacklistUser, entry.Value)
	if err != nil || !listed {
		t.Fatalf("expected blacklisted, got %v %v", listed, err)
	}
	listed, err = store.IsBlacklisted(ctx, BlacklistMAC, entry.Value)
	if err != nil || listed {
		t.Fatalf("mac list should be separate, got %v %v", listed, err)
	}

	updated, err := store.UpdateBlacklistReason(ctx, BlacklistUser, entry.Value, "raid")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Reason != "raid" {
		t.Fatalf("expected reason raid, got %q", updated.Reason)
	}

	if _, err := store.RemoveBlacklist(ctx, BlacklistUser, entry.Value); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := store.RemoveBlacklist(ctx, BlacklistUser, entry.Value); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.UpdateBlacklistReason(ctx, BlacklistUser, entry.Value, "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
}

func TestListBlacklistNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Unix(1_700_000_000, 0)
	for i, mac := range []string{"AA:BB:CC:DD:EE:01", "AA:BB:CC:DD:EE:02", "AA:BB:CC:DD:EE:03"} {
		at := base.Add(time.Duration(i) * time.Minute)
		store.now = func() time.Time { return at }
		if _, err := store.AddBlacklist(ctx, BlacklistEntry{Kind: BlacklistMAC, Value: mac, GuildID: "g1"}); err != nil {
			t.Fatalf("add %s: %v", mac, err)
		}
	}

	entries, err := store.ListBlacklist(ctx, BlacklistMAC, "", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 || entries[0].Value != "AA:BB:CC:DD:EE:03" {
		t.Fatalf("unexpected list %+v", entries)
	}
}

func TestMutesAndReports(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	if err := store.UpsertMute(ctx, Mute{GuildID: "g1", UserID: "u1", ExpiresAt: now.Add(time.Hour)}); err != nil {
		t.Fatalf("mute: %v", err)
	}
	if err := store.UpsertMute(ctx, Mute{GuildID: "g1", UserID: "u2", ExpiresAt: now.Add(-time.Hour)}); err != nil {
		t.Fatalf("mute: %v", err)
	}
	active, err := store.ActiveMutes(ctx, "g1", now)
	if err != nil {
		t.Fatalf("active mutes: %v", err)
	}
	if len(active) != 1 || active[0].UserID != "u1" {
		t.Fatalf("unexpected active mutes %+v", active)
	}
	removed, err := store.CleanupExpiredMutes(ctx, now)
	if err != nil || removed != 1 {
		t.Fatalf("expected one expired mute removed, got %d %v", removed, err)
	}

	report, err := store.AddReport(ctx, Report{GuildID: "g1", UserID: "u1", Type: "bug", Details: "broken"})
	if err != nil {
		t.Fatalf("add report: %v", err)
	}
	if report.ID == 0 {
		t.Fatalf("expected generated id")
	}
	reports, err := store.ListReports(ctx, "g1", 10)
	if err != nil || len(reports) != 1 || reports[0].Details != "broken" {
		t.Fatalf("unexpected reports %+v %v", reports, err)
	}
}

func TestAuditCountsAndCleanup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	logs := []AuditLog{
		{GuildID: "g1", Level: "INFO", Event: "captcha_verified", CreatedAt: now},
		{GuildID: "g1", Level: "INFO", Event: "captcha_verified", CreatedAt: now},
		{GuildID: "g1", Level: "WARN", Event: "captcha_expired", CreatedAt: now},
		{GuildID: "g2", Level: "INFO", Event: "captcha_verified", CreatedAt: now},
		{GuildID: "g1", Level: "INFO", Event: "captcha_verified", CreatedAt: now.AddDate(0, 0, -40)},
	}
	for _, log := range logs {
		if err := store.AddAuditLog(ctx, log); err != nil {
			t.Fatalf("add audit: %v", err)
		}
	}

	counts, err := store.CountAuditEvents(ctx, "g1", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts["captcha_verified"] != 2 || counts["captcha_expired"] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
	all, err := store.CountAuditEvents(ctx, "", now.Add(-time.Hour))
	if err != nil || all["captcha_verified"] != 3 {
		t.Fatalf("unexpected global counts %v %v", all, err)
	}

	removed, err := store.CleanupAuditLogs(ctx, 30)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
}
