package journal

// DocumentType names the kind of a document in the journal graph.
type DocumentType string

const (
	TypeJournalEntry DocumentType = "JournalEntry"
	TypePage         DocumentType = "JournalEntryPage"
	TypeActor        DocumentType = "Actor"
	TypeItem         DocumentType = "Item"
)

// Ref names a document without owning it.
type Ref struct {
	Type DocumentType `json:"type"`
	ID   string       `json:"id"`
	UUID string       `json:"uuid,omitempty"`
}

func (r Ref) IsZero() bool {
	return r.ID == "" && r.UUID == ""
}

// Valid reports whether t is one of the known document types.
func (t DocumentType) Valid() bool {
	switch t {
	case TypeJournalEntry, TypePage, TypeActor, TypeItem:
		return true
	default:
		return false
	}
}
