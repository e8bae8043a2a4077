package domain

import (
	"github.com/totegamma/concrnt-journal"
)

// RelationshipRecord links an owning entry to another entry.
type RelationshipRecord struct {
	ID           string      `json:"id"`
	Target       journal.Ref `json:"target"`
	Hidden       bool        `json:"hidden"`
	Relationship string      `json:"relationship,omitempty"`
	CachedName   string      `json:"name,omitempty"`
	CachedImg    string      `json:"img,omitempty"`
	CachedType   string      `json:"type,omitempty"`
}

// RelationshipPatch carries the fields submitted for one record. Nil fields
// are left as stored.
type RelationshipPatch struct {
	Hidden       *bool   `json:"hidden,omitempty"`
	Relationship *string `json:"relationship,omitempty"`
}

func (p RelationshipPatch) Apply(r RelationshipRecord) RelationshipRecord {
	if p.Hidden != nil {
		r.Hidden = *p.Hidden
	}
	if p.Relationship != nil {
		r.Relationship = *p.Relationship
	}
	return r
}

// RelationshipGroup is derived per read and never stored.
type RelationshipGroup struct {
	EffectiveType string               `json:"type"`
	Label         string               `json:"name"`
	Documents     []RelationshipRecord `json:"documents"`
}
