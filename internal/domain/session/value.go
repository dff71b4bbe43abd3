package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is one member's entry. It is a tagged variant: the kind decides
// which of mark, score or review is meaningful.
// An ungraded score is distinct from a score of zero.
type Value struct {
	kind   Kind
	mark   Mark
	review Review
	score  float64
	graded bool
}

// MarkValue returns an attendance entry.
func MarkValue(m Mark) Value {
	return Value{kind: KindAttendance, mark: m}
}

// ScoreValue returns a graded score entry.
func ScoreValue(v float64) Value {
	return Value{kind: KindScore, score: v, graded: true}
}

// Ungraded returns a score entry that has not been graded yet.
func Ungraded() Value {
	return Value{kind: KindScore}
}

// ReviewValue returns a homework review entry.
func ReviewValue(r Review) Value {
	return Value{kind: KindReview, review: r}
}

// DefaultValue returns the entry every roster member starts with.
// PRE: k is valid
// POST: present for attendance, ungraded for score, pending for review
func DefaultValue(k Kind) Value {
	switch k {
	case KindAttendance:
		return MarkValue(MarkPresent)
	case KindScore:
		return Ungraded()
	case KindReview:
		return ReviewValue(ReviewPending)
	}
	return Value{}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// Mark returns the attendance mark (empty for other kinds).
func (v Value) Mark() Mark { return v.mark }

// Review returns the review status (empty for other kinds).
func (v Value) Review() Review { return v.review }

// Score returns the score and whether it has been graded.
func (v Value) Score() (float64, bool) { return v.score, v.graded }

// IsZero reports whether v carries no variant at all.
func (v Value) IsZero() bool { return v.kind == "" }

// normalize checks enum membership and clamps scores into [0, maxScore].
// PRE: maxScore > 0 when v is a graded score
// POST: Returns a value that satisfies the bounds of its kind
func (v Value) normalize(maxScore int) (Value, error) {
	switch v.kind {
	case KindAttendance:
		if !v.mark.valid() {
			return Value{}, fmt.Errorf("%w: attendance mark %q", ErrInvalidValue, v.mark)
		}
	case KindReview:
		if !v.review.valid() {
			return Value{}, fmt.Errorf("%w: review status %q", ErrInvalidValue, v.review)
		}
	case KindScore:
		if !v.graded {
			return Ungraded(), nil
		}
		if math.IsNaN(v.score) || math.IsInf(v.score, 0) {
			return Value{}, fmt.Errorf("%w: score must be a finite number", ErrInvalidValue)
		}
		return ScoreValue(clamp(v.score, float64(maxScore))), nil
	default:
		return Value{}, fmt.Errorf("%w: missing kind", ErrInvalidValue)
	}
	return v, nil
}

func clamp(v, max float64) float64 {
	if v < 0 {
		return 0
	}
	if max > 0 && v > max {
		return max
	}
	return v
}

// Text returns the storage form of v: the mark or status name, the score
// formatted as a decimal, or "" for an ungraded score.
func (v Value) Text() string {
	switch v.kind {
	case KindAttendance:
		return string(v.mark)
	case KindReview:
		return string(v.review)
	case KindScore:
		if !v.graded {
			return ""
		}
		return strconv.FormatFloat(v.score, 'f', -1, 64)
	}
	return ""
}

// String implements fmt.Stringer.
func (v Value) String() string {
	if v.kind == KindScore && !v.graded {
		return "ungraded"
	}
	return v.Text()
}

// ParseText is the inverse of Text.
// PRE: k is valid
// POST: Returns a value of kind k or ErrInvalidValue
func ParseText(k Kind, s string) (Value, error) {
	s = strings.TrimSpace(s)
	switch k {
	case KindAttendance:
		m := Mark(strings.ToLower(s))
		if !m.valid() {
			return Value{}, fmt.Errorf("%w: attendance mark %q", ErrInvalidValue, s)
		}
		return MarkValue(m), nil
	case KindReview:
		r := Review(strings.ToLower(s))
		if !r.valid() {
			return Value{}, fmt.Errorf("%w: review status %q", ErrInvalidValue, s)
		}
		return ReviewValue(r), nil
	case KindScore:
		if s == "" {
			return Ungraded(), nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: score %q", ErrInvalidValue, s)
		}
		return ScoreValue(f), nil
	}
	return Value{}, fmt.Errorf("%w: %q", ErrInvalidKind, k)
}

// MarshalJSON encodes marks and statuses as strings and scores as a number or null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindScore:
		if !v.graded {
			return []byte("null"), nil
		}
		return json.Marshal(v.score)
	case KindAttendance, KindReview:
		return json.Marshal(v.Text())
	}
	return []byte("null"), nil
}

// ParseJSON decodes a JSON entry value for a session of kind k.
// Scores accept a number or null; the other kinds accept a string.
// PRE: k is valid
// POST: Returns a value of kind k or ErrInvalidValue
func ParseJSON(k Kind, raw json.RawMessage) (Value, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Value{}, fmt.Errorf("%w: empty value", ErrInvalidValue)
	}
	if k == KindScore {
		if bytes.Equal(raw, []byte("null")) {
			return Ungraded(), nil
		}
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return Value{}, fmt.Errorf("%w: score must be a number or null", ErrInvalidValue)
		}
		return ScoreValue(f), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return Value{}, fmt.Errorf("%w: expected a string", ErrInvalidValue)
	}
	return ParseText(k, s)
}
