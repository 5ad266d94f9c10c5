package verification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveChannelPrecedence(t *testing.T) {
	channels := []Channel{
		{ID: "voice", Name: "Général vocal", Text: false, Postable: true},
		{ID: "chat", Name: "chat", Text: true, Postable: true},
		{ID: "welcome", Name: "👋・Welcome", Text: true, Postable: false},
		{ID: "cfg", Name: "verification", Text: true, Postable: true},
	}

	got, ok := ResolveChannel("cfg", channels)
	assert.True(t, ok)
	assert.Equal(t, "cfg", got)

	got, ok = ResolveChannel("", channels)
	assert.True(t, ok)
	assert.Equal(t, "welcome", got)

	got, ok = ResolveChannel("deleted-channel", channels)
	assert.True(t, ok)
	assert.Equal(t, "welcome", got)

	got, ok = ResolveChannel("", channels[:2])
	assert.True(t, ok)
	assert.Equal(t, "chat", got)

	_, ok = ResolveChannel("", channels[:1])
	assert.False(t, ok)
}

func TestResolveChannelKeywords(t *testing.T) {
	for _, name := range []string{"bienvenue", "ACCUEIL", "general", "général-chat", "the-welcome-desk"} {
		got, ok := ResolveChannel("", []Channel{
			{ID: "first", Name: "announcements", Text: true, Postable: true},
			{ID: "match", Name: name, Text: true},
		})
		assert.True(t, ok, name)
		assert.Equal(t, "match", got, name)
	}
}

func TestControlID(t *testing.T) {
	id := NewID("123456789012345678", newFakeClock().Now())
	custom := ControlID(id)
	assert.LessOrEqual(t, len(custom), 100)

	parsed, ok := ParseControlID(custom)
	assert.True(t, ok)
	assert.Equal(t, id, parsed)

	_, ok = ParseControlID("verify_")
	assert.False(t, ok)
	_, ok = ParseControlID("report_123")
	assert.False(t, ok)
}
