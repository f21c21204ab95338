// Package correlation maps messages forwarded into the admin channel back
// to the users who originated them, so an organizer's reply can be routed.
package correlation

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Category classifies a forwarded message and selects the reply label.
type Category int

const (
	// CategorySubmission marks a forwarded file or file link.
	CategorySubmission Category = iota
	// CategoryQuestion marks a forwarded free-text question.
	CategoryQuestion
)

// String returns the category name for logs.
func (c Category) String() string {
	switch c {
	case CategorySubmission:
		return "submission"
	case CategoryQuestion:
		return "question"
	default:
		return "unknown"
	}
}

// Entry records who originated a forwarded message and why it was forwarded.
type Entry struct {
	UserID   int64
	Category Category
}

// Store keeps a bounded window of forwarded-message correlations. Retention
// is LRU so replies to recent forwards always resolve while the map cannot
// grow without bound over the process lifetime.
type Store struct {
	cache *lru.Cache[int, Entry]
}

// NewStore constructs a store bounded to the given number of entries.
func NewStore(capacity int) (*Store, error) {
	cache, err := lru.New[int, Entry](capacity)
	if err != nil {
		return nil, fmt.Errorf("correlation: %w", err)
	}
	return &Store{cache: cache}, nil
}

// Put records a correlation for a message the relay just sent into the admin
// channel. Entries are never updated: the first write for a message ID wins.
func (s *Store) Put(messageID int, userID int64, category Category) {
	s.cache.ContainsOrAdd(messageID, Entry{UserID: userID, Category: category})
}

// Get resolves a forwarded message ID to its originating user and category.
func (s *Store) Get(messageID int) (Entry, bool) {
	return s.cache.Get(messageID)
}

// Len returns the number of currently retained correlations.
func (s *Store) Len() int {
	return s.cache.Len()
}
