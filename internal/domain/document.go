package domain

import (
	"github.com/totegamma/concrnt-journal"
)

// Document is a node of the journal graph as seen by the core: a container
// entry, one of its pages, an actor or an owned item.
type Document struct {
	ID        string               `json:"id"`
	UUID      string               `json:"uuid"`
	Type      journal.DocumentType `json:"type"`
	ParentID  string               `json:"parentId,omitempty"`
	Name      string               `json:"name"`
	Img       string               `json:"img,omitempty"`
	SheetType string               `json:"sheetType,omitempty"`
	Sort      int                  `json:"sort,omitempty"`
	Quantity  int                  `json:"quantity,omitempty"`
	Hidden    bool                 `json:"hidden,omitempty"`

	DefaultPermission PermissionLevel            `json:"defaultPermission"`
	Permissions       map[string]PermissionLevel `json:"permissions,omitempty"`

	// Parent is set for pages and items.
	Parent *Document `json:"-"`
	// Pages are ordered by sort for container entries.
	Pages []Document `json:"pages,omitempty"`
}

func (d Document) Ref() journal.Ref {
	return journal.Ref{Type: d.Type, ID: d.ID, UUID: d.UUID}
}

// PermissionFor returns the effective level of a non-GM user.
func (d Document) PermissionFor(userID string) PermissionLevel {
	level := d.DefaultPermission
	if granted, ok := d.Permissions[userID]; ok && granted > level {
		level = granted
	}
	return level
}

// Display returns the document that carries the display data of d: the first
// page for containers, d itself otherwise.
func (d Document) Display() Document {
	if d.Type == journal.TypeJournalEntry && len(d.Pages) > 0 {
		return d.Pages[0]
	}
	return d
}
