package domain

import (
	"time"

	"github.com/totegamma/concrnt-journal"
)

type OfferingItem struct {
	ItemID    string `json:"itemId"`
	ItemName  string `json:"itemName"`
	ActorID   string `json:"actorId"`
	ActorName string `json:"actorName"`
	Quantity  int    `json:"qty"`
}

// OfferingRecord is a proposed transfer of items from the proposer actor to
// the recipient entry.
type OfferingRecord struct {
	ID        string         `json:"id"`
	Proposer  journal.Ref    `json:"proposer"`
	Recipient journal.Ref    `json:"recipient"`
	Items     []OfferingItem `json:"items"`
	State     OfferingState  `json:"state"`
	Hidden    bool           `json:"hidden"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Normalize defaults unset quantities to 1 and rejects non-positive ones.
func (o *OfferingRecord) Normalize() error {
	if len(o.Items) == 0 {
		return ValidationError{Reason: "offering has no items"}
	}
	for i := range o.Items {
		if o.Items[i].Quantity == 0 {
			o.Items[i].Quantity = 1
		}
		if o.Items[i].Quantity < 0 {
			return ValidationError{Reason: "quantity must be a positive integer"}
		}
		if o.Items[i].ItemID == "" {
			return ValidationError{Reason: "offering item has no id"}
		}
	}
	return nil
}

// Patch is one write against an owning entry. Relationships, when set,
// replaces the stored sequence; Offerings are upserted by id.
type Patch struct {
	Relationships *[]RelationshipRecord
	Offerings     []OfferingRecord
}
