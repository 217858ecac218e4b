package usecase

import (
	"sync"
	"time"

	"vrc-auth-service/app/domain"
	"vrc-auth-service/app/metrics"
)

// registryEntry pairs an attempt with its expiry timer.
type registryEntry struct {
	attempt *domain.ChallengeAttempt
	timer   *time.Timer
}

// attemptRegistry holds in-flight challenge attempts, one per owner, in
// process memory only. Every entry expires deterministically through its
// own timer even if the caller never submits a code; a periodic sweep
// covers timers lost to clock weirdness.
type attemptRegistry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
}

func newAttemptRegistry() *attemptRegistry {
	return &attemptRegistry{
		entries: make(map[string]*registryEntry),
	}
}

// Put stores the attempt for its owner, replacing and cancelling any
// previous one. The attempt is dropped automatically when its challenge
// window closes.
func (r *attemptRegistry) Put(attempt *domain.ChallengeAttempt) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.entries[attempt.OwnerID]; ok {
		prev.timer.Stop()
	}

	ownerID := attempt.OwnerID
	entry := &registryEntry{attempt: attempt}
	entry.timer = time.AfterFunc(time.Until(attempt.ExpiresAt), func() {
		r.expire(ownerID)
	})
	r.entries[ownerID] = entry
	metrics.SetPendingChallenges(len(r.entries))
}

// Get returns the live attempt for an owner, or nil.
func (r *attemptRegistry) Get(ownerID string) *domain.ChallengeAttempt {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[ownerID]
	if !ok || entry.attempt.IsExpired() {
		return nil
	}
	return entry.attempt
}

// Delete discards the attempt for an owner.
func (r *attemptRegistry) Delete(ownerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteLocked(ownerID)
}

// Len reports the number of pending attempts.
func (r *attemptRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep drops every expired attempt. The per-entry timers make this
// redundant in the common case; it exists so a janitor can reconcile after
// suspend/resume.
func (r *attemptRegistry) Sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for ownerID, entry := range r.entries {
		if entry.attempt.IsExpired() {
			r.deleteLocked(ownerID)
		}
	}
}

func (r *attemptRegistry) expire(ownerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[ownerID]
	if !ok || !entry.attempt.IsExpired() {
		return
	}
	r.deleteLocked(ownerID)
}

func (r *attemptRegistry) deleteLocked(ownerID string) {
	if entry, ok := r.entries[ownerID]; ok {
		entry.timer.Stop()
		delete(r.entries, ownerID)
		metrics.SetPendingChallenges(len(r.entries))
	}
}
