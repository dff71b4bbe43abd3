package audit

import (
	"time"

	"github.com/google/uuid"

	"classbook/internal/domain/session"
)

// Category represents the type of audit event.
type Category string

const (
	CategoryAccount    Category = "account"
	CategoryAttendance Category = "attendance"
	CategoryMarks      Category = "marks"
	CategoryReview     Category = "review"
	CategorySecurity   Category = "security"
)

// CategoryFor maps a session kind to the audit category of its submissions.
func CategoryFor(k session.Kind) Category {
	switch k {
	case session.KindAttendance:
		return CategoryAttendance
	case session.KindScore:
		return CategoryMarks
	case session.KindReview:
		return CategoryReview
	}
	return ""
}

// Action represents the action that occurred.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionLogin  Action = "login"
	ActionLogout Action = "logout"
)

// Severity represents the severity level of an audit event.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Event represents a single audit log entry.
type Event struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Category     Category  `json:"category"`
	Action       Action    `json:"action"`
	Severity     Severity  `json:"severity"`
	ActorID      string    `json:"actor_id"`
	ResourceID   string    `json:"resource_id"`
	ResourceType string    `json:"resource_type"`
	Description  string    `json:"description"`
	Metadata     string    `json:"metadata"`
}

// NewEvent creates an info-level audit event.
// PRE: category and action are non-empty
// POST: Returns an Event with a fresh ID stamped at now
func NewEvent(now time.Time, actorID string, category Category, action Action) Event {
	return Event{
		ID:        uuid.NewString(),
		Timestamp: now,
		Category:  category,
		Action:    action,
		Severity:  SeverityInfo,
		ActorID:   actorID,
	}
}

// WithSeverity sets the severity level.
func (e Event) WithSeverity(s Severity) Event {
	e.Severity = s
	return e
}

// WithResource sets resource information.
// PRE: resourceType and resourceID are non-empty
// POST: Event resource fields are populated
func (e Event) WithResource(resourceType, resourceID string) Event {
	e.ResourceType = resourceType
	e.ResourceID = resourceID
	return e
}

// WithDescription sets the event description.
func (e Event) WithDescription(desc string) Event {
	e.Description = desc
	return e
}

// WithMetadata sets optional JSON metadata.
// PRE: metadata is valid JSON or empty
func (e Event) WithMetadata(metadata string) Event {
	e.Metadata = metadata
	return e
}
