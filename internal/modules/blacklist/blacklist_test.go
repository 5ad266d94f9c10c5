package blacklist

import (
	"context"
	"testing"

	"rudyprotect/internal/modules/audit"
	"rudyprotect/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) (*Service, *storage.Store) {
	t.Helper()
	store, err := storage.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.Migrate())

	return NewService(store, audit.NewLogger(store, zap.NewNop()), zap.NewNop()), store
}

func TestValidateUserID(t *testing.T) {
	assert.NoError(t, ValidateUserID("123456789012345678"))
	assert.ErrorIs(t, ValidateUserID("1234"), ErrInvalidUserID)
	assert.ErrorIs(t, ValidateUserID("12345678901234567a"), ErrInvalidUserID)
	assert.ErrorIs(t, ValidateUserID("12345678901234567890"), ErrInvalidUserID)
}

func TestNormalizeMAC(t *testing.T) {
	got, err := NormalizeMAC("aa-bb-cc-dd-ee-0f")
	require.NoError(t, err)
	assert.Equal(t, "AA:BB:CC:DD:EE:0F", got)

	got, err = NormalizeMAC(" 00:1a:2b:3c:4d:5e ")
	require.NoError(t, err)
	assert.Equal(t, "00:1A:2B:3C:4D:5E", got)

	_, err = NormalizeMAC("00:1a:2b:3c:4d")
	assert.ErrorIs(t, err, ErrInvalidMAC)
	_, err = NormalizeMAC("zz:1a:2b:3c:4d:5e")
	assert.ErrorIs(t, err, ErrInvalidMAC)
}

func TestServiceLifecycle(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	entry, err := svc.Add(ctx, storage.BlacklistMAC, "aa-bb-cc-dd-ee-ff", "g1", "", "mod1")
	require.NoError(t, err)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", entry.Value)
	assert.Equal(t, DefaultReason, entry.Reason)

	_, err = svc.Add(ctx, storage.BlacklistMAC, "AA:BB:CC:DD:EE:FF", "g1", "again", "mod1")
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	got, err := svc.Get(ctx, storage.BlacklistMAC, "aa:bb:cc:dd:ee:ff")
	require.NoError(t, err)
	assert.Equal(t, "mod1", got.AddedBy)

	updated, err := svc.UpdateReason(ctx, storage.BlacklistMAC, "AA-BB-CC-DD-EE-FF", "g1", "ban evasion", "mod2")
	require.NoError(t, err)
	assert.Equal(t, "ban evasion", updated.Reason)

	removed, err := svc.Remove(ctx, storage.BlacklistMAC, "aa:bb:cc:dd:ee:ff", "g1", "mod2")
	require.NoError(t, err)
	assert.Equal(t, "ban evasion", removed.Reason)

	_, err = svc.Get(ctx, storage.BlacklistMAC, "aa:bb:cc:dd:ee:ff")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	counts, err := store.CountAuditEvents(ctx, "g1", entry.CreatedAt.Add(-1))
	require.NoError(t, err)
	assert.Equal(t, 1, counts["blacklist_add"])
	assert.Equal(t, 1, counts["blacklist_remove"])
}

func TestCheck(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, storage.BlacklistUser, "123456789012345678", "g1", "raid", "mod")
	require.NoError(t, err)

	result, err := svc.Check(ctx, "123456789012345678", "00:11:22:33:44:55")
	require.NoError(t, err)
	assert.True(t, result.UserBlacklisted)
	assert.False(t, result.MACBlacklisted)

	_, err = svc.Check(ctx, "nope", "")
	assert.ErrorIs(t, err, ErrInvalidUserID)

	listed, err := svc.IsUserBlacklisted(ctx, "not-an-id")
	require.NoError(t, err)
	assert.False(t, listed)
}

func TestListClampsLimit(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	for _, id := range []string{"123456789012345671", "123456789012345672", "123456789012345673"} {
		_, err := svc.Add(ctx, storage.BlacklistUser, id, "g1", "", "mod")
		require.NoError(t, err)
	}
	entries, err := svc.List(ctx, storage.BlacklistUser, "", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	entries, err = svc.List(ctx, storage.BlacklistUser, "", 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
