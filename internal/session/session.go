package session

import (
	"sync"
	"time"

	"github.com/jothihub/jothi-gateway/internal/metrics"
)

// TTL is how long a session waits for its next conversational input
const TTL = 300 * time.Second

// State is the expected-next-input marker of a live session. The set of
// states is closed: one variant per multi-step flow, each carrying only
// the fields that flow needs.
type State interface {
	sessionState()
}

// AwaitingVoiceModel waits for a voice model choice (1-4) after
// /announce text; Body is the announcement text to synthesize.
type AwaitingVoiceModel struct {
	Body string
}

// AwaitingVoiceNote waits for a voice recording after /announce voice
type AwaitingVoiceNote struct{}

// AwaitingTodayTimes waits for a comma-separated HH:MM list after
// /bellmode today
type AwaitingTodayTimes struct{}

func (AwaitingVoiceModel) sessionState() {}
func (AwaitingVoiceNote) sessionState()  {}
func (AwaitingTodayTimes) sessionState() {}

// Session is one sender's pending conversational state
type Session struct {
	State     State
	CreatedAt time.Time
}

// Store holds at most one session per identity. Sessions are replaced
// wholesale on transition and evicted lazily once older than TTL.
//
// Acquire hands out a per-identity mutex so that a handler's
// get-act-clear sequence for one sender never interleaves with another
// handler for the same sender.
type Store struct {
	mu       sync.Mutex
	sessions map[string]Session
	locks    map[string]*identityLock
	ttl      time.Duration
	now      func() time.Time
}

// identityLock is reference counted so the lock map does not grow a
// permanent entry for every sender that ever messaged
type identityLock struct {
	mu   sync.Mutex
	refs int
}

// NewStore creates an empty session store with the standard TTL
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]Session),
		locks:    make(map[string]*identityLock),
		ttl:      TTL,
		now:      time.Now,
	}
}

// Acquire locks the identity and returns the release function. The
// lock entry is removed once the last concurrent holder releases it.
func (s *Store) Acquire(identity string) func() {
	s.mu.Lock()
	lock, ok := s.locks[identity]
	if !ok {
		lock = &identityLock{}
		s.locks[identity] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()

		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, identity)
		}
		s.mu.Unlock()
	}
}

// Get returns the identity's live session. An expired session is
// evicted and reported as absent. A session aged exactly TTL is still
// live; expiry requires age strictly greater than TTL.
func (s *Store) Get(identity string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[identity]
	if !ok {
		return Session{}, false
	}
	if s.now().Sub(sess.CreatedAt) > s.ttl {
		delete(s.sessions, identity)
		metrics.ActiveSessions.Set(float64(len(s.sessions)))
		return Session{}, false
	}
	return sess, true
}

// Set replaces any existing session for the identity
func (s *Store) Set(identity string, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[identity] = Session{State: state, CreatedAt: s.now()}
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
}

// Clear removes the identity's session, if any
func (s *Store) Clear(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, identity)
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
}

// Len returns the number of stored sessions, counting expired ones not
// yet evicted
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
