package session

import "errors"

// Domain errors
var (
	ErrEmptyTitle          = errors.New("session title cannot be empty")
	ErrTitleTooLong        = errors.New("session title is too long")
	ErrInvalidMaxScore     = errors.New("maximum score must be a positive integer")
	ErrInvalidKind         = errors.New("session kind must be one of: attendance, score, review")
	ErrEmptyRoster         = errors.New("roster has no members")
	ErrDuplicateMember     = errors.New("roster lists the same member twice")
	ErrUnknownMember       = errors.New("member is not on the session roster")
	ErrInvalidValue        = errors.New("invalid entry value")
	ErrKindMismatch        = errors.New("entry value does not match the session kind")
	ErrFeedbackUnsupported = errors.New("feedback is only recorded for review sessions")
	ErrInvalidTransition   = errors.New("operation not allowed in the current session state")
	ErrSubmitted           = errors.New("session has already been submitted")
	ErrSubmitInProgress    = errors.New("session submit is in progress")
	ErrRecordNotFound      = errors.New("session record not found")
	ErrUnsavedChanges      = errors.New("session has unsaved changes")
	ErrNoSink              = errors.New("session sink is required")
)
