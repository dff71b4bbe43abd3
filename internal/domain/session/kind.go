package session

import "fmt"

// Kind selects the entry value domain of a session.
type Kind string

// Session kinds
const (
	KindAttendance Kind = "attendance"
	KindScore      Kind = "score"
	KindReview     Kind = "review"
)

// Kinds lists every supported session kind.
var Kinds = []Kind{KindAttendance, KindScore, KindReview}

// Valid reports whether k is a supported kind.
func (k Kind) Valid() bool {
	switch k {
	case KindAttendance, KindScore, KindReview:
		return true
	}
	return false
}

// Scored reports whether sessions of this kind carry a maximum score.
func (k Kind) Scored() bool {
	return k == KindScore
}

// ParseKind converts a raw string into a Kind.
// PRE: none
// POST: Returns a valid Kind or ErrInvalidKind
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
	return k, nil
}

// Mark is an attendance entry.
type Mark string

// Attendance marks
const (
	MarkPresent Mark = "present"
	MarkAbsent  Mark = "absent"
	MarkLeave   Mark = "leave"
)

// Marks lists the attendance marks in display order.
var Marks = []Mark{MarkPresent, MarkAbsent, MarkLeave}

func (m Mark) valid() bool {
	return m == MarkPresent || m == MarkAbsent || m == MarkLeave
}

// Review is a homework review status.
type Review string

// Review statuses
const (
	ReviewChecked Review = "checked"
	ReviewPending Review = "pending"
)

func (r Review) valid() bool {
	return r == ReviewChecked || r == ReviewPending
}
