package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Review events
	EventReviewCompleted  = "review.document.completed"
	EventReviewRejected   = "review.document.rejected"
	EventReviewNeedsHuman = "review.document.needs_review"
	EventReviewFailed     = "review.document.failed"

	// Intake events
	EventIntakeRejected  = "intake.document.rejected"
	EventIntakeDuplicate = "intake.document.duplicate"
)

// Exchange names
const (
	ExchangeReviewEvents = "review.events"
	ExchangeIntakeEvents = "intake.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// ReviewCompletedEvent is published after a document review finishes,
// regardless of outcome. Field values are never included: only field
// identifiers and verdict states cross the event boundary.
type ReviewCompletedEvent struct {
	DocumentID     string   `json:"document_id"`
	Filename       string   `json:"filename"`
	Status         string   `json:"status"`
	RejectedFields []string `json:"rejected_fields,omitempty"`
	ReviewFields   []string `json:"review_fields,omitempty"`
	Reasons        []string `json:"reasons,omitempty"`
	DurationMs     int64    `json:"duration_ms"`
}

// IntakeRejectedEvent is published when a document fails an intake gate
// before the review core runs.
type IntakeRejectedEvent struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Gate       string `json:"gate"`
	Reason     string `json:"reason"`
}
