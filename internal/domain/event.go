package domain

import "time"

type EventType string

const (
	EventRelationshipsChanged EventType = "relationships.changed"
	EventOfferingChanged      EventType = "offering.changed"
)

// Event tells connected viewers that an entry needs to be re-resolved.
type Event struct {
	Type      EventType `json:"type"`
	EntryID   string    `json:"entryId"`
	SubjectID string    `json:"subjectId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
