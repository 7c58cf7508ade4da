// Package marks holds the per-day mark states and the reasons attached to
// Cross and Triangle days.
package marks

import (
	"errors"
	"sort"
	"sync"
	"time"

	"markcal/internal/datekey"
	"markcal/internal/model"
)

// ErrNotAnnotatable is returned when a reason is set for a kind other than
// Cross or Triangle.
var ErrNotAnnotatable = errors.New("marks: only cross and triangle days carry reasons")

// Store is safe for concurrent use.
type Store struct {
	loc *time.Location

	mu        sync.RWMutex
	marks     map[model.DateKey]model.Mark
	crosses   map[model.DateKey]string
	triangles map[model.DateKey]string
}

// NewStore returns an empty store whose listed dates are in time.Local.
func NewStore() *Store {
	return NewStoreIn(time.Local)
}

// NewStoreIn returns an empty store whose listed dates are in loc.
func NewStoreIn(loc *time.Location) *Store {
	if loc == nil {
		loc = time.Local
	}
	return &Store{
		loc:       loc,
		marks:     make(map[model.DateKey]model.Mark),
		crosses:   make(map[model.DateKey]string),
		triangles: make(map[model.DateKey]string),
	}
}

// next is the cycle None -> Circle -> Cross -> Triangle -> None.
func next(m model.Mark) model.Mark {
	switch m {
	case model.MarkNone:
		return model.MarkCircle
	case model.MarkCircle:
		return model.MarkCross
	case model.MarkCross:
		return model.MarkTriangle
	default:
		return model.MarkNone
	}
}

// Toggle advances k's mark one step and returns the new mark.
//
// Arriving at None deletes both reasons of k. Cross -> Triangle keeps the
// cross reason stored but unlisted until the cycle next reaches None.
func (s *Store) Toggle(k model.DateKey) model.Mark {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := next(s.marks[k])
	if m == model.MarkNone {
		delete(s.marks, k)
		delete(s.crosses, k)
		delete(s.triangles, k)
		return m
	}
	s.marks[k] = m
	return m
}

// Mark returns k's current mark, MarkNone when unseen.
func (s *Store) Mark(k model.DateKey) model.Mark {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.marks[k]
}

// Marks returns a copy of every non-None mark.
func (s *Store) Marks() map[model.DateKey]model.Mark {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[model.DateKey]model.Mark, len(s.marks))
	for k, m := range s.marks {
		out[k] = m
	}
	return out
}

func (s *Store) reasonsFor(kind model.Mark) map[model.DateKey]string {
	switch kind {
	case model.MarkCross:
		return s.crosses
	case model.MarkTriangle:
		return s.triangles
	default:
		return nil
	}
}

// SetReason upserts the reason of kind for k. It does not check that k
// currently carries kind; the edit flow only offers the editor when it does.
func (s *Store) SetReason(k model.DateKey, kind model.Mark, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reasons := s.reasonsFor(kind)
	if reasons == nil {
		return ErrNotAnnotatable
	}
	reasons[k] = text
	return nil
}

// Reason returns the stored reason, or "" when absent.
func (s *Store) Reason(k model.DateKey, kind model.Mark) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reasons := s.reasonsFor(kind)
	if reasons == nil {
		return ""
	}
	return reasons[k]
}

// ListByKind lists the days currently marked kind with their reasons,
// ascending by date.
func (s *Store) ListByKind(kind model.Mark) []model.Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reasons := s.reasonsFor(kind)
	out := make([]model.Annotation, 0)
	for k, m := range s.marks {
		if m != kind {
			continue
		}
		a := model.Annotation{Key: k, Reason: reasons[k]}
		if d, err := datekey.Date(k, s.loc); err == nil {
			a.Date = d
		}
		out = append(out, a)
	}

	sort.Slice(out, func(i, j int) bool { return datekey.Less(out[i].Key, out[j].Key) })
	return out
}
