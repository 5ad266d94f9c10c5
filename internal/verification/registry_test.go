package verification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryTakeFor(t *testing.T) {
	r := NewRegistry(time.Minute)
	r.Insert(Record{ID: "a", GuildID: "g", MemberID: "u1"})

	_, err := r.TakeFor("a", "u2")
	assert.ErrorIs(t, err, ErrWrongUser)
	assert.Equal(t, 1, r.Len())

	rec, err := r.TakeFor("a", "u1")
	require.NoError(t, err)
	assert.Equal(t, "a", rec.ID)

	_, err = r.TakeFor("a", "u1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, ok := r.TakeByMember("g", "u1")
	assert.False(t, ok)
}

func TestRegistryInsertReplaces(t *testing.T) {
	r := NewRegistry(time.Minute)
	_, replaced := r.Insert(Record{ID: "a", GuildID: "g", MemberID: "u1"})
	assert.False(t, replaced)

	prev, replaced := r.Insert(Record{ID: "b", GuildID: "g", MemberID: "u1"})
	assert.True(t, replaced)
	assert.Equal(t, "a", prev.ID)
	assert.Equal(t, 1, r.Len())

	// Same member in another guild is a separate attempt.
	_, replaced = r.Insert(Record{ID: "c", GuildID: "g2", MemberID: "u1"})
	assert.False(t, replaced)

	rec, ok := r.TakeByMember("g", "u1")
	require.True(t, ok)
	assert.Equal(t, "b", rec.ID)
}

func TestRegistryAttachPrompt(t *testing.T) {
	r := NewRegistry(time.Minute)
	r.Insert(Record{ID: "a", GuildID: "g", MemberID: "u1"})

	rec, _ := r.Get("a")
	assert.Equal(t, StateCreated, rec.State())

	assert.True(t, r.AttachPrompt("a", MessageRef{ChannelID: "c", MessageID: "m"}))
	rec, _ = r.Get("a")
	assert.Equal(t, StatePromptPosted, rec.State())

	r.Take("a")
	assert.False(t, r.AttachPrompt("a", MessageRef{ChannelID: "c", MessageID: "m"}))
}

func TestRegistryExpiredMemory(t *testing.T) {
	r := NewRegistry(time.Minute)
	now := time.Unix(1000, 0)

	r.MarkExpired("g", "u1", now)
	assert.True(t, r.ConsumeExpired("g", "u1", now.Add(30*time.Second)))
	assert.False(t, r.ConsumeExpired("g", "u1", now.Add(30*time.Second)))

	r.MarkExpired("g", "u2", now)
	assert.False(t, r.ConsumeExpired("g", "u2", now.Add(2*time.Minute)))

	r.MarkExpired("g", "u3", now)
	r.Insert(Record{ID: "x", GuildID: "g", MemberID: "u3"})
	assert.False(t, r.ConsumeExpired("g", "u3", now), "a rejoin clears the expiry marker")
}
