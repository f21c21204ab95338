// Package session tracks per-user conversation state for the relay.
//
// A session is created on the first event from a user and lives for the
// process lifetime. The stage only moves forward, with one sanctioned
// exception: Submitted and AwaitingLargeFileLink may flip between each
// other when a re-submitted document turns out to be too large.
package session

import "sync"

// Stage identifies how far a user has progressed through the submission flow.
type Stage int

const (
	// StageNew means no display name has been collected yet.
	StageNew Stage = iota
	// StageNameCollected means the display name is recorded and a file or link is expected.
	StageNameCollected
	// StageAwaitingLargeFileLink means the last document exceeded the size bound
	// and the user was asked for a link instead.
	StageAwaitingLargeFileLink
	// StageSubmitted means at least one submission reached the admin channel.
	StageSubmitted
)

// String returns the stage name for logs.
func (s Stage) String() string {
	switch s {
	case StageNew:
		return "new"
	case StageNameCollected:
		return "name_collected"
	case StageAwaitingLargeFileLink:
		return "awaiting_large_file_link"
	case StageSubmitted:
		return "submitted"
	default:
		return "unknown"
	}
}

// canTransition reports whether moving from s to next is a legal stage change.
// Same-stage writes are legal so a re-submission can "advance" Submitted to itself.
func (s Stage) canTransition(next Stage) bool {
	if s == next {
		return true
	}
	switch s {
	case StageNew:
		return next == StageNameCollected
	case StageNameCollected:
		return next == StageAwaitingLargeFileLink || next == StageSubmitted
	case StageAwaitingLargeFileLink:
		return next == StageSubmitted
	case StageSubmitted:
		return next == StageAwaitingLargeFileLink
	default:
		return false
	}
}

// Session is a snapshot of one user's conversation state.
type Session struct {
	Stage       Stage
	DisplayName string
	// AwaitingQuestion is orthogonal to Stage: while set, the next text
	// message is treated as a question body regardless of the stage.
	AwaitingQuestion bool
}

// Store owns all sessions. It is safe for concurrent use; reads return
// snapshots so a handler never observes a half-applied update.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewStore constructs an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[int64]*Session)}
}

// Get returns a snapshot of the user's session, creating it if absent.
func (s *Store) Get(userID int64) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.locked(userID)
}

func (s *Store) locked(userID int64) *Session {
	sess, ok := s.sessions[userID]
	if !ok {
		sess = &Session{Stage: StageNew}
		s.sessions[userID] = sess
	}
	return sess
}

// SetDisplayName records the display name. It is set exactly once; later
// calls are ignored and reported as false.
func (s *Store) SetDisplayName(userID int64, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.locked(userID)
	if sess.DisplayName != "" {
		return false
	}
	sess.DisplayName = name
	return true
}

// SetStage advances the stage, refusing illegal transitions.
// It reports whether the write was applied.
func (s *Store) SetStage(userID int64, next Stage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.locked(userID)
	if !sess.Stage.canTransition(next) {
		return false
	}
	sess.Stage = next
	return true
}

// SetAwaitingQuestion toggles the orthogonal question flag.
func (s *Store) SetAwaitingQuestion(userID int64, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked(userID).AwaitingQuestion = v
}

// Len returns the number of known sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
