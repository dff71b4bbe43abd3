package session

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxFeedbackLength bounds review feedback text, in characters.
const MaxFeedbackLength = 2000

// Entry is one row of an EntryStore snapshot.
type Entry struct {
	MemberID string `json:"member_id"`
	Value    Value  `json:"value"`
	Feedback string `json:"feedback,omitempty"`
}

// EntryStore maps every roster member to exactly one entry value.
// Feedback is kept in its own map so status changes never touch it.
// INVARIANT: the key set equals the roster passed to NewEntryStore
// INVARIANT: graded scores lie in [0, maxScore]
type EntryStore struct {
	kind     Kind
	maxScore int
	order    []string
	values   map[string]Value
	feedback map[string]string
}

// NewEntryStore creates a store with one default entry per member.
// PRE: k is valid, memberIDs is non-empty and free of duplicates
// POST: Every member holds DefaultValue(k); feedback is empty
func NewEntryStore(k Kind, memberIDs []string) (*EntryStore, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, k)
	}
	if len(memberIDs) == 0 {
		return nil, ErrEmptyRoster
	}
	s := &EntryStore{
		kind:     k,
		order:    make([]string, 0, len(memberIDs)),
		values:   make(map[string]Value, len(memberIDs)),
		feedback: make(map[string]string),
	}
	def := DefaultValue(k)
	for _, id := range memberIDs {
		if _, dup := s.values[id]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMember, id)
		}
		s.order = append(s.order, id)
		s.values[id] = def
	}
	return s, nil
}

// Kind returns the kind of every value in the store.
func (s *EntryStore) Kind() Kind { return s.kind }

// Len returns the number of roster members.
func (s *EntryStore) Len() int { return len(s.order) }

// MemberIDs returns the member IDs in roll order.
func (s *EntryStore) MemberIDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Has reports whether id is on the roster.
func (s *EntryStore) Has(id string) bool {
	_, ok := s.values[id]
	return ok
}

// Get returns the entry for id.
func (s *EntryStore) Get(id string) (Value, bool) {
	v, ok := s.values[id]
	return v, ok
}

// Feedback returns the feedback for id, or "".
func (s *EntryStore) Feedback(id string) string {
	return s.feedback[id]
}

// MaxScore returns the bound applied to graded scores.
func (s *EntryStore) MaxScore() int { return s.maxScore }

// SetMaxScore changes the score bound and clamps stored scores to it.
// PRE: max > 0 for score stores
// POST: Every graded score lies in [0, max]
func (s *EntryStore) SetMaxScore(max int) {
	s.maxScore = max
	if s.kind != KindScore {
		return
	}
	for id, v := range s.values {
		if n, err := v.normalize(max); err == nil {
			s.values[id] = n
		}
	}
}

func (s *EntryStore) check(v Value) (Value, error) {
	if v.kind != s.kind {
		return Value{}, fmt.Errorf("%w: got %s, session is %s", ErrKindMismatch, v.kind, s.kind)
	}
	return v.normalize(s.maxScore)
}

// Set replaces one member's entry.
// PRE: id is on the roster, v has the store's kind
// POST: Entry for id equals v (scores clamped); other entries unchanged
func (s *EntryStore) Set(id string, v Value) error {
	if !s.Has(id) {
		return fmt.Errorf("%w: %s", ErrUnknownMember, id)
	}
	n, err := s.check(v)
	if err != nil {
		return err
	}
	s.values[id] = n
	return nil
}

// ApplyAll replaces every member's entry with v in one step.
// PRE: v has the store's kind
// POST: Every entry equals v (scores clamped); feedback unchanged
func (s *EntryStore) ApplyAll(v Value) error {
	n, err := s.check(v)
	if err != nil {
		return err
	}
	for _, id := range s.order {
		s.values[id] = n
	}
	return nil
}

// SetFeedback sets or clears the feedback text for one member.
// PRE: store kind is review, id is on the roster
// POST: Feedback for id is the trimmed text; blank text removes it
func (s *EntryStore) SetFeedback(id, text string) error {
	if s.kind != KindReview {
		return ErrFeedbackUnsupported
	}
	if !s.Has(id) {
		return fmt.Errorf("%w: %s", ErrUnknownMember, id)
	}
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) > MaxFeedbackLength {
		return fmt.Errorf("%w: feedback cannot exceed %d characters", ErrInvalidValue, MaxFeedbackLength)
	}
	if text == "" {
		delete(s.feedback, id)
		return nil
	}
	s.feedback[id] = text
	return nil
}

// Snapshot returns the entries in roll order.
// POST: Returned slice is independent of the store
func (s *EntryStore) Snapshot() []Entry {
	out := make([]Entry, len(s.order))
	for i, id := range s.order {
		out[i] = Entry{MemberID: id, Value: s.values[id], Feedback: s.feedback[id]}
	}
	return out
}
