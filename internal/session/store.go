package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/online-compiler/internal/metrics"
)

// DefaultIdleTTL is how long an untouched session is kept.
const DefaultIdleTTL = 30 * time.Minute

// Store holds the live sessions in memory and evicts idle ones in the background.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*State

	idleTTL time.Duration
	logger  *slog.Logger
	now     func() time.Time

	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewStore creates an empty Store. A non-positive idleTTL uses DefaultIdleTTL.
func NewStore(idleTTL time.Duration, logger *slog.Logger) *Store {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	return &Store{
		sessions: make(map[string]*State),
		idleTTL:  idleTTL,
		logger:   logger,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

// Create starts a new session with a fresh id.
func (s *Store) Create() *State {
	return s.GetOrCreate(xid.New().String())
}

// Get returns the session for id and marks it as seen.
func (s *Store) Get(id string) (*State, bool) {
	s.mu.Lock()
	st, ok := s.sessions[id]
	s.mu.Unlock()

	if ok {
		st.touch(s.now())
	}
	return st, ok
}

// GetOrCreate returns the session for id, creating a default one when it is
// unknown (never seen, or evicted).
func (s *Store) GetOrCreate(id string) *State {
	now := s.now()

	s.mu.Lock()
	st, ok := s.sessions[id]
	if !ok {
		st = newState(id, now)
		s.sessions[id] = st
		metrics.ActiveSessions.Set(float64(len(s.sessions)))
	}
	s.mu.Unlock()

	if ok {
		st.touch(now)
	}
	return st
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// EvictIdle removes every session not seen for idleTTL and not busy.
// It returns the number of sessions removed.
func (s *Store) EvictIdle() int {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, st := range s.sessions {
		if st.idleSince(cutoff) {
			delete(s.sessions, id)
			evicted++
		}
	}
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	return evicted
}

// Start runs the janitor in the background. Calling Start twice is a no-op.
func (s *Store) Start() {
	s.startOnce.Do(func() {
		interval := s.idleTTL / 2
		if interval > time.Minute {
			interval = time.Minute
		}
		s.logger.Info("starting session janitor",
			slog.Duration("idleTTL", s.idleTTL),
			slog.Duration("interval", interval),
		)
		s.wg.Add(1)
		go s.janitor(interval)
	})
}

// Stop ends the janitor and waits for it to exit.
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
}

func (s *Store) janitor(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if n := s.EvictIdle(); n > 0 {
				s.logger.Debug("evicted idle sessions",
					slog.Int("evicted", n),
					slog.Int("remaining", s.Len()),
				)
			}
		}
	}
}
