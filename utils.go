package journal

import (
	"fmt"
	"strings"
)

// UUIDSegment is one Type.id pair of a document uuid.
type UUIDSegment struct {
	Type DocumentType
	ID   string
}

// ParseUUID splits a dotted document uuid such as
// "JournalEntry.abc.JournalEntryPage.def" into its segments.
func ParseUUID(uuid string) ([]UUIDSegment, error) {
	if uuid == "" {
		return nil, fmt.Errorf("empty uuid")
	}
	parts := strings.Split(uuid, ".")
	if len(parts)%2 != 0 {
		return nil, fmt.Errorf("invalid uuid: %s", uuid)
	}

	segments := make([]UUIDSegment, 0, len(parts)/2)
	for i := 0; i < len(parts); i += 2 {
		t := DocumentType(parts[i])
		if !t.Valid() || parts[i+1] == "" {
			return nil, fmt.Errorf("invalid uuid segment: %s.%s", parts[i], parts[i+1])
		}
		segments = append(segments, UUIDSegment{Type: t, ID: parts[i+1]})
	}
	return segments, nil
}

func ComposeUUID(segments ...UUIDSegment) string {
	parts := make([]string, 0, len(segments)*2)
	for _, s := range segments {
		parts = append(parts, string(s.Type), s.ID)
	}
	return strings.Join(parts, ".")
}

// RefFromUUID returns the ref of the last segment of uuid.
func RefFromUUID(uuid string) (Ref, error) {
	segments, err := ParseUUID(uuid)
	if err != nil {
		return Ref{}, err
	}
	last := segments[len(segments)-1]
	return Ref{Type: last.Type, ID: last.ID, UUID: uuid}, nil
}
