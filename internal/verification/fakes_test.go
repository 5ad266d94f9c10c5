package verification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"rudyprotect/internal/schedule"
)

// fakeTimer state is guarded by its clock's mutex.
type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	stopped bool
	fired   bool
	fn      func()
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) AfterFunc(d time.Duration, fn func()) schedule.Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{clock: f, at: f.now.Add(d), fn: fn}
	f.timers = append(f.timers, t)
	return t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	var due []*fakeTimer
	for _, timer := range f.timers {
		if !timer.stopped && !timer.fired && !timer.at.After(f.now) {
			timer.fired = true
			due = append(due, timer)
		}
	}
	f.mu.Unlock()
	for _, timer := range due {
		timer.fn()
	}
}

// fireAll runs every armed callback, including stopped ones, to simulate a
// timer that fired before it could be stopped.
func (f *fakeClock) fireAll() {
	f.mu.Lock()
	all := append([]*fakeTimer{}, f.timers...)
	f.mu.Unlock()
	for _, timer := range all {
		timer.fn()
	}
}

type fakeMembers struct {
	mu       sync.Mutex
	kicks    []string
	grants   []string
	kickErr  error
	grantErr error
}

func (f *fakeMembers) Kick(_ context.Context, guildID, memberID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kicks = append(f.kicks, guildID+"/"+memberID+"/"+reason)
	return f.kickErr
}

func (f *fakeMembers) GrantRole(_ context.Context, guildID, memberID, roleID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grants = append(f.grants, guildID+"/"+memberID+"/"+roleID)
	return f.grantErr
}

func (f *fakeMembers) kickCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.kicks)
}

type fakeMessages struct {
	mu       sync.Mutex
	channels []Channel
	listErr  error
	sendErr  error
	prompts  []Prompt
	sentTo   []string
	deleted  []MessageRef
	dms      []Notice
	dmErr    error
	next     int
	onSend   func()
}

func (f *fakeMessages) Channels(context.Context, string) ([]Channel, error) {
	return f.channels, f.listErr
}

func (f *fakeMessages) SendPrompt(_ context.Context, channelID string, prompt Prompt) (MessageRef, error) {
	if f.onSend != nil {
		f.onSend()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return MessageRef{}, f.sendErr
	}
	f.next++
	f.prompts = append(f.prompts, prompt)
	f.sentTo = append(f.sentTo, channelID)
	return MessageRef{ChannelID: channelID, MessageID: fmt.Sprintf("m%d", f.next)}, nil
}

func (f *fakeMessages) DeleteMessage(_ context.Context, ref MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ref)
	return nil
}

func (f *fakeMessages) DirectMessage(_ context.Context, _ string, notice Notice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dms = append(f.dms, notice)
	return f.dmErr
}

type fakeConfigs struct {
	cfg Config
	err error
}

func (f *fakeConfigs) CaptchaConfig(context.Context, string) (Config, error) {
	return f.cfg, f.err
}

type fakeProbe struct {
	mu       sync.Mutex
	presence Presence
	calls    int
}

func (f *fakeProbe) HasRole(context.Context, string, string, string) Presence {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.presence
}

type fakeReporter struct {
	mu   sync.Mutex
	errs []error
}

func (f *fakeReporter) Report(_ context.Context, _ ErrorContext, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, err)
}

func (f *fakeReporter) has(target error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, err := range f.errs {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeRecorder) Log(_ context.Context, _, _, _, event, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

type harness struct {
	clock    *fakeClock
	members  *fakeMembers
	messages *fakeMessages
	configs  *fakeConfigs
	probe    *fakeProbe
	reporter *fakeReporter
	recorder *fakeRecorder
	coord    *Coordinator
}

func newHarness(cfg Config) *harness {
	h := &harness{
		clock:   newFakeClock(),
		members: &fakeMembers{},
		messages: &fakeMessages{channels: []Channel{
			{ID: "c-rules", Name: "rules", Text: true, Postable: true},
			{ID: "c-welcome", Name: "Bienvenue", Text: true, Postable: true},
		}},
		configs:  &fakeConfigs{cfg: cfg},
		probe:    &fakeProbe{presence: PresenceUnknown},
		reporter: &fakeReporter{},
		recorder: &fakeRecorder{},
	}
	h.coord = NewCoordinator(h.members, h.probe, h.messages, h.configs, h.reporter, nil, Options{
		GraceMinutes: 10,
		Clock:        h.clock,
		Recorder:     h.recorder,
	})
	return h
}

func (h *harness) join(memberID string, level int) (*Record, error) {
	return h.coord.OnMemberJoin(context.Background(), JoinEvent{GuildID: "g1", GuildName: "Rudy", MemberID: memberID, VerificationLevel: level})
}
