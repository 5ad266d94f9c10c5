package purge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeHistory struct {
	mu        sync.Mutex
	channels  map[string][]Message
	listErr   error
	bulkErr   error
	deleteErr map[string]error
	bulkCalls [][]string
	single    []string
	pages     int
}

func (f *fakeHistory) PurgeableChannels(context.Context, string) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	ids := make([]string, 0, len(f.channels))
	for id := range f.channels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeHistory) Messages(_ context.Context, channelID, before string, limit int) ([]Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages++
	all := f.channels[channelID]
	start := 0
	if before != "" {
		for i, msg := range all {
			if msg.ID == before {
				start = i + 1
				break
			}
		}
	}
	end := min(start+limit, len(all))
	return append([]Message(nil), all[start:end]...), nil
}

func (f *fakeHistory) BulkDelete(_ context.Context, _ string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bulkErr != nil {
		return f.bulkErr
	}
	f.bulkCalls = append(f.bulkCalls, append([]string(nil), ids...))
	return nil
}

func (f *fakeHistory) DeleteChannelMessage(_ context.Context, _ string, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deleteErr[id]; err != nil {
		return err
	}
	f.single = append(f.single, id)
	return nil
}

// history builds n messages newest first, alternating authors u1 and u2.
func history(prefix string, n int, age time.Duration) []Message {
	msgs := make([]Message, 0, n)
	for i := range n {
		author := "u2"
		if i%2 == 0 {
			author = "u1"
		}
		msgs = append(msgs, Message{ID: fmt.Sprintf("%s-%03d", prefix, i), AuthorID: author, CreatedAt: now.Add(-age - time.Duration(i)*time.Minute)})
	}
	return msgs
}

func newPurger(h History) *Purger {
	p := New(h, Config{Concurrency: 2}, zap.NewNop())
	p.now = func() time.Time { return now }
	return p
}

func TestPurgeRecentMessagesInBulk(t *testing.T) {
	h := &fakeHistory{channels: map[string][]Message{"c1": history("c1", 250, time.Hour)}}

	result, err := newPurger(h).PurgeMember(context.Background(), "g1", "u1")
	require.NoError(t, err)

	assert.Equal(t, 125, result.Deleted)
	assert.Equal(t, 250, result.Scanned)
	assert.Equal(t, 3, h.pages)
	require.Len(t, h.bulkCalls, 3)
	assert.Len(t, h.bulkCalls[0], 50)
	assert.Len(t, h.bulkCalls[2], 25)
	assert.Empty(t, h.single)
}

func TestPurgeOldMessagesOneByOne(t *testing.T) {
	h := &fakeHistory{channels: map[string][]Message{"c1": history("c1", 6, 20*24*time.Hour)}}

	result, err := newPurger(h).PurgeMember(context.Background(), "g1", "u1")
	require.NoError(t, err)

	assert.Equal(t, 3, result.Deleted)
	assert.Empty(t, h.bulkCalls)
	assert.Equal(t, []string{"c1-000", "c1-002", "c1-004"}, h.single)
}

func TestPurgeSingleRecentUsesDelete(t *testing.T) {
	h := &fakeHistory{channels: map[string][]Message{"c1": history("c1", 2, time.Hour)}}

	result, err := newPurger(h).PurgeMember(context.Background(), "g1", "u1")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Deleted)
	assert.Empty(t, h.bulkCalls)
	assert.Equal(t, []string{"c1-000"}, h.single)
}

func TestPurgeBulkFailureFallsBack(t *testing.T) {
	h := &fakeHistory{
		channels:  map[string][]Message{"c1": history("c1", 10, time.Hour)},
		bulkErr:   errors.New("bulk rejected"),
		deleteErr: map[string]error{"c1-004": errors.New("unknown message")},
	}

	result, err := newPurger(h).PurgeMember(context.Background(), "g1", "u1")
	require.NoError(t, err)

	assert.Equal(t, 4, result.Deleted)
	assert.Equal(t, []string{"c1-000", "c1-002", "c1-006", "c1-008"}, h.single)
}

func TestPurgeAcrossChannels(t *testing.T) {
	h := &fakeHistory{channels: map[string][]Message{
		"c1": history("c1", 4, time.Hour),
		"c2": history("c2", 4, 30*24*time.Hour),
		"c3": nil,
	}}

	result, err := newPurger(h).PurgeMember(context.Background(), "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, result.Deleted)
	assert.Equal(t, 3, result.Channels)
	assert.Zero(t, result.Failed)
}

func TestPurgeMaxPages(t *testing.T) {
	h := &fakeHistory{channels: map[string][]Message{"c1": history("c1", 300, time.Hour)}}
	p := New(h, Config{Concurrency: 1, MaxPages: 1}, zap.NewNop())
	p.now = func() time.Time { return now }

	result, err := p.PurgeMember(context.Background(), "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 50, result.Deleted)
	assert.Equal(t, 1, h.pages)
}

func TestPurgeListFailure(t *testing.T) {
	h := &fakeHistory{listErr: errors.New("missing access")}
	_, err := newPurger(h).PurgeMember(context.Background(), "g1", "u1")
	assert.Error(t, err)
}

func TestPurgeCancelled(t *testing.T) {
	h := &fakeHistory{channels: map[string][]Message{"c1": history("c1", 10, time.Hour)}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newPurger(h).PurgeMember(ctx, "g1", "u1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, result.Deleted)
}
