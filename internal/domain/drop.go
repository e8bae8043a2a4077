package domain

import (
	"encoding/json"
	"fmt"

	"github.com/totegamma/concrnt-journal"
)

type DropKind string

const (
	DropKindContainer DropKind = "container"
	DropKindPage      DropKind = "page"
	DropKindItem      DropKind = "item"
	DropKindUnknown   DropKind = "unknown"
)

// Drop is the classified form of a drag-and-drop payload. The concrete type
// is one of ContainerDrop, PageDrop, ItemDrop or UnknownDrop.
type Drop interface {
	Kind() DropKind
	isDrop()
}

type ContainerDrop struct {
	Ref    journal.Ref
	Hidden bool
}

type PageDrop struct {
	Ref journal.Ref
}

type ItemDrop struct {
	Ref journal.Ref
}

type UnknownDrop struct {
	Reason string
}

func (ContainerDrop) Kind() DropKind { return DropKindContainer }
func (PageDrop) Kind() DropKind      { return DropKindPage }
func (ItemDrop) Kind() DropKind      { return DropKindItem }
func (UnknownDrop) Kind() DropKind   { return DropKindUnknown }

func (ContainerDrop) isDrop() {}
func (PageDrop) isDrop()      {}
func (ItemDrop) isDrop()      {}
func (UnknownDrop) isDrop()   {}

type dropPayload struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	UUID   string `json:"uuid"`
	Hidden *bool  `json:"hidden,omitempty"`
}

// ParseDrop classifies a raw payload. It never fails: anything it cannot
// make sense of comes back as UnknownDrop.
func ParseDrop(raw []byte) Drop {
	var payload dropPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return UnknownDrop{Reason: fmt.Sprintf("malformed payload: %v", err)}
	}

	ref, err := payloadRef(payload)
	if err != nil {
		return UnknownDrop{Reason: err.Error()}
	}

	switch ref.Type {
	case journal.TypeJournalEntry:
		hidden := payload.Hidden != nil && *payload.Hidden
		return ContainerDrop{Ref: ref, Hidden: hidden}
	case journal.TypePage:
		return PageDrop{Ref: ref}
	case journal.TypeItem:
		return ItemDrop{Ref: ref}
	default:
		return UnknownDrop{Reason: fmt.Sprintf("unsupported payload type %q", payload.Type)}
	}
}

func payloadRef(p dropPayload) (journal.Ref, error) {
	ref := journal.Ref{Type: journal.DocumentType(p.Type), ID: p.ID, UUID: p.UUID}
	if !ref.Type.Valid() {
		return journal.Ref{}, fmt.Errorf("unsupported payload type %q", p.Type)
	}

	if p.UUID != "" {
		fromUUID, err := journal.RefFromUUID(p.UUID)
		if err != nil {
			return journal.Ref{}, err
		}
		if fromUUID.Type != ref.Type {
			return journal.Ref{}, fmt.Errorf("payload type %s does not match uuid %s", p.Type, p.UUID)
		}
		if ref.ID != "" && ref.ID != fromUUID.ID {
			return journal.Ref{}, fmt.Errorf("payload id %s does not match uuid %s", p.ID, p.UUID)
		}
		ref.ID = fromUUID.ID
	}

	if ref.ID == "" {
		return journal.Ref{}, fmt.Errorf("payload has neither id nor uuid")
	}
	return ref, nil
}
