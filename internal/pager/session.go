package pager

import (
	"errors"
	"fmt"
	"sync"

	"torrentbot/internal/domain"
)

// Action names a button on a result view.
type Action string

// Actions supported by every view.
const (
	ActionPrevious Action = "prev"
	ActionNext     Action = "next"
	ActionAdd      Action = "add"
)

// ErrNoResults is returned when opening a view over an empty result list.
var ErrNoResults = errors.New("no results to page through")

// Field is a labelled value on a rendered page.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// View is the platform-neutral rendering of one page. Chat adapters bind
// each Action to a platform button.
type View struct {
	SessionID string
	Heading   string
	Fields    []Field
	Actions   []Action
}

// Session is a paginated view over a fixed list of results.
// The index always stays within [0, len(items)-1].
type Session struct {
	id    string
	owner int64

	mu    sync.Mutex
	items []domain.SearchResult
	index int
}

// NewSession creates a session positioned on the first item.
func NewSession(id string, owner int64, items []domain.SearchResult) (*Session, error) {
	if len(items) == 0 {
		return nil, ErrNoResults
	}
	return &Session{
		id:    id,
		owner: owner,
		items: append([]domain.SearchResult(nil), items...),
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Owner returns the user who opened the session.
func (s *Session) Owner() int64 { return s.owner }

// Len returns the number of items.
func (s *Session) Len() int { return len(s.items) }

// Index returns the current 0-based position.
func (s *Session) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Previous moves back one item. It is a no-op on the first item and
// reports whether the position changed.
func (s *Session) Previous() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == 0 {
		return false
	}
	s.index--
	return true
}

// Next moves forward one item. It is a no-op on the last item and
// reports whether the position changed.
func (s *Session) Next() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index >= len(s.items)-1 {
		return false
	}
	s.index++
	return true
}

// Current returns the item at the current position.
func (s *Session) Current() domain.SearchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[s.index]
}

// Render builds the view of the current page.
func (s *Session) Render() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.items[s.index]
	return View{
		SessionID: s.id,
		Heading:   fmt.Sprintf("Result %d/%d", s.index+1, len(s.items)),
		Fields: []Field{
			{Name: "Title", Value: item.Title},
			{Name: "Size", Value: item.SizeText, Inline: true},
			{Name: "Magnet", Value: item.MagnetLink},
		},
		Actions: []Action{ActionPrevious, ActionNext, ActionAdd},
	}
}
