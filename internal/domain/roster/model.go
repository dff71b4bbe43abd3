package roster

import (
	"errors"
	"strings"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength = 100
	MaxRollLength = 20
)

// Domain errors
var (
	ErrEmptyID        = errors.New("roster member ID is required")
	ErrEmptyClassID   = errors.New("roster member must belong to a class")
	ErrEmptyName      = errors.New("roster member name cannot be empty")
	ErrInvalidContact = errors.New("guardian contact must be a valid email address")
)

// Member is one entry of a class roster.
// Members are immutable for the duration of a session.
type Member struct {
	ID              string
	ClassID         string
	DisplayName     string
	RollLabel       string
	GuardianContact string // optional email address
}

// Validate checks if the Member has valid data.
// PRE: Member struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: ID, ClassID and DisplayName must not be empty
func (m *Member) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(m.ClassID) == "" {
		return ErrEmptyClassID
	}
	if strings.TrimSpace(m.DisplayName) == "" {
		return ErrEmptyName
	}
	if len(m.DisplayName) > MaxNameLength {
		return errors.New("roster member name cannot exceed 100 characters")
	}
	if len(m.RollLabel) > MaxRollLength {
		return errors.New("roll label cannot exceed 20 characters")
	}
	if m.GuardianContact != "" && !strings.Contains(m.GuardianContact, "@") {
		return ErrInvalidContact
	}
	return nil
}

// HasGuardianContact returns true if a guardian can be notified about this member.
// INVARIANT: Member fields are not mutated
func (m *Member) HasGuardianContact() bool {
	return strings.TrimSpace(m.GuardianContact) != ""
}

// IDs returns the member IDs of a roster in roll order.
// PRE: none
// POST: Returns a new slice with len(members) entries
func IDs(members []Member) []string {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	return ids
}
