package verification

import (
	"sync"
	"time"
)

// Registry holds pending verifications. Every terminal transition goes
// through one of the Take methods, so each record is removed exactly once.
type Registry struct {
	mu       sync.Mutex
	records  map[string]*Record
	byMember map[string]string
	expired  map[string]time.Time
	memory   time.Duration
}

func NewRegistry(expiredMemory time.Duration) *Registry {
	return &Registry{
		records:  make(map[string]*Record),
		byMember: make(map[string]string),
		expired:  make(map[string]time.Time),
		memory:   expiredMemory,
	}
}

func memberKey(guildID, memberID string) string {
	return guildID + "|" + memberID
}

// Insert stores rec and returns the record it replaced for the same member.
func (r *Registry) Insert(rec Record) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := memberKey(rec.GuildID, rec.MemberID)
	var prev Record
	replaced := false
	if id, ok := r.byMember[key]; ok {
		if old, ok := r.records[id]; ok {
			prev = *old
			replaced = true
			delete(r.records, id)
		}
	}
	stored := rec
	r.records[rec.ID] = &stored
	r.byMember[key] = rec.ID
	delete(r.expired, key)
	return prev, replaced
}

// AttachPrompt reports false when the record was resolved while the prompt
// was being posted.
func (r *Registry) AttachPrompt(id string, ref MessageRef) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return false
	}
	prompt := ref
	rec.Prompt = &prompt
	return true
}

func (r *Registry) Get(id string) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// TakeFor removes the record only when memberID owns it.
func (r *Registry) TakeFor(id, memberID string) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	if rec.MemberID != memberID {
		return Record{}, ErrWrongUser
	}
	return r.removeLocked(rec), nil
}

func (r *Registry) Take(id string) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return Record{}, false
	}
	return r.removeLocked(rec), true
}

func (r *Registry) TakeByMember(guildID, memberID string) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byMember[memberKey(guildID, memberID)]
	if !ok {
		return Record{}, false
	}
	rec, ok := r.records[id]
	if !ok {
		return Record{}, false
	}
	return r.removeLocked(rec), true
}

func (r *Registry) removeLocked(rec *Record) Record {
	delete(r.records, rec.ID)
	key := memberKey(rec.GuildID, rec.MemberID)
	if r.byMember[key] == rec.ID {
		delete(r.byMember, key)
	}
	return *rec
}

// MarkExpired remembers a member kicked for not verifying so the leave event
// caused by the kick is not mistaken for a verified departure.
func (r *Registry) MarkExpired(guildID, memberID string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, marked := range r.expired {
		if at.Sub(marked) > r.memory {
			delete(r.expired, key)
		}
	}
	r.expired[memberKey(guildID, memberID)] = at
}

func (r *Registry) ConsumeExpired(guildID, memberID string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := memberKey(guildID, memberID)
	marked, ok := r.expired[key]
	if !ok {
		return false
	}
	delete(r.expired, key)
	return now.Sub(marked) <= r.memory
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}
