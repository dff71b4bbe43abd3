package session

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxTitleLength bounds the session title, in characters.
const MaxTitleLength = 200

// Metadata is the descriptive header of a session.
type Metadata struct {
	Title      string    `json:"title"`
	OccurredAt time.Time `json:"occurred_at"`
	MaxScore   int       `json:"max_score,omitempty"` // scored sessions only
}

// Validate checks the metadata against the rules of kind k.
// PRE: k is valid
// POST: Returns ErrEmptyTitle, ErrTitleTooLong or ErrInvalidMaxScore on violation, nil otherwise
func (m Metadata) Validate(k Kind) error {
	if strings.TrimSpace(m.Title) == "" {
		return ErrEmptyTitle
	}
	if utf8.RuneCountInString(m.Title) > MaxTitleLength {
		return fmt.Errorf("%w: limit is %d characters", ErrTitleTooLong, MaxTitleLength)
	}
	if k.Scored() && m.MaxScore <= 0 {
		return ErrInvalidMaxScore
	}
	return nil
}

// normalized trims the title and drops MaxScore for unscored kinds.
func (m Metadata) normalized(k Kind) Metadata {
	m.Title = strings.TrimSpace(m.Title)
	if !k.Scored() {
		m.MaxScore = 0
	}
	return m
}

// Equal reports whether two headers describe the same session.
func (m Metadata) Equal(o Metadata) bool {
	return m.Title == o.Title && m.MaxScore == o.MaxScore && m.OccurredAt.Equal(o.OccurredAt)
}
