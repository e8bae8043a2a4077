package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/totegamma/concrnt-journal"
	"github.com/totegamma/concrnt-journal/internal/domain"
	"github.com/totegamma/concrnt-journal/internal/infrastructure/database/models"
)

// relationshipV1 is the stored form of a relationship record at schema
// version 1.
type relationshipV1 struct {
	TargetType   string `json:"targetType"`
	TargetID     string `json:"targetId"`
	TargetUUID   string `json:"targetUuid,omitempty"`
	Hidden       bool   `json:"hidden"`
	Relationship string `json:"relationship,omitempty"`
	Name         string `json:"name,omitempty"`
	Img          string `json:"img,omitempty"`
	Type         string `json:"type,omitempty"`
}

type offeringItemV1 struct {
	ItemID    string `json:"itemId"`
	ItemName  string `json:"itemName"`
	ActorID   string `json:"actorId"`
	ActorName string `json:"actorName"`
	Qty       int    `json:"qty"`
}

type offeringV1 struct {
	ProposerType  string           `json:"proposerType"`
	ProposerID    string           `json:"proposerId"`
	ProposerUUID  string           `json:"proposerUuid,omitempty"`
	RecipientType string           `json:"recipientType"`
	RecipientID   string           `json:"recipientId"`
	RecipientUUID string           `json:"recipientUuid,omitempty"`
	Items         []offeringItemV1 `json:"items"`
	Hidden        bool             `json:"hidden"`
	CreatedAt     time.Time        `json:"createdAt"`
}

func encodeRelationship(ownerID string, position int, r domain.RelationshipRecord) (models.Relationship, error) {
	value, err := json.Marshal(relationshipV1{
		TargetType:   string(r.Target.Type),
		TargetID:     r.Target.ID,
		TargetUUID:   r.Target.UUID,
		Hidden:       r.Hidden,
		Relationship: r.Relationship,
		Name:         r.CachedName,
		Img:          r.CachedImg,
		Type:         r.CachedType,
	})
	if err != nil {
		return models.Relationship{}, err
	}
	return models.Relationship{
		OwnerID:       ownerID,
		ID:            r.ID,
		TargetID:      r.Target.ID,
		Position:      position,
		SchemaVersion: domain.RelationshipSchemaVersion,
		Value:         string(value),
	}, nil
}

func decodeRelationship(row models.Relationship) (domain.RelationshipRecord, error) {
	switch row.SchemaVersion {
	case 1:
		var v relationshipV1
		if err := json.Unmarshal([]byte(row.Value), &v); err != nil {
			return domain.RelationshipRecord{}, err
		}
		return domain.RelationshipRecord{
			ID: row.ID,
			Target: journal.Ref{
				Type: journal.DocumentType(v.TargetType),
				ID:   v.TargetID,
				UUID: v.TargetUUID,
			},
			Hidden:       v.Hidden,
			Relationship: v.Relationship,
			CachedName:   v.Name,
			CachedImg:    v.Img,
			CachedType:   v.Type,
		}, nil
	default:
		return domain.RelationshipRecord{}, fmt.Errorf("unsupported relationship schema version %d", row.SchemaVersion)
	}
}

func encodeOffering(o domain.OfferingRecord) (models.Offering, error) {
	items := make([]offeringItemV1, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, offeringItemV1{
			ItemID:    item.ItemID,
			ItemName:  item.ItemName,
			ActorID:   item.ActorID,
			ActorName: item.ActorName,
			Qty:       item.Quantity,
		})
	}
	value, err := json.Marshal(offeringV1{
		ProposerType:  string(o.Proposer.Type),
		ProposerID:    o.Proposer.ID,
		ProposerUUID:  o.Proposer.UUID,
		RecipientType: string(o.Recipient.Type),
		RecipientID:   o.Recipient.ID,
		RecipientUUID: o.Recipient.UUID,
		Items:         items,
		Hidden:        o.Hidden,
		CreatedAt:     o.CreatedAt,
	})
	if err != nil {
		return models.Offering{}, err
	}
	return models.Offering{
		ID:            o.ID,
		RecipientID:   o.Recipient.ID,
		ProposerID:    o.Proposer.ID,
		State:         string(o.State),
		SchemaVersion: domain.OfferingSchemaVersion,
		Value:         string(value),
	}, nil
}

func decodeOffering(row models.Offering) (domain.OfferingRecord, error) {
	switch row.SchemaVersion {
	case 1:
		var v offeringV1
		if err := json.Unmarshal([]byte(row.Value), &v); err != nil {
			return domain.OfferingRecord{}, err
		}
		items := make([]domain.OfferingItem, 0, len(v.Items))
		for _, item := range v.Items {
			items = append(items, domain.OfferingItem{
				ItemID:    item.ItemID,
				ItemName:  item.ItemName,
				ActorID:   item.ActorID,
				ActorName: item.ActorName,
				Quantity:  item.Qty,
			})
		}
		return domain.OfferingRecord{
			ID:        row.ID,
			Proposer:  journal.Ref{Type: journal.DocumentType(v.ProposerType), ID: v.ProposerID, UUID: v.ProposerUUID},
			Recipient: journal.Ref{Type: journal.DocumentType(v.RecipientType), ID: v.RecipientID, UUID: v.RecipientUUID},
			Items:     items,
			State:     domain.OfferingState(row.State),
			Hidden:    v.Hidden,
			CreatedAt: v.CreatedAt,
		}, nil
	default:
		return domain.OfferingRecord{}, fmt.Errorf("unsupported offering schema version %d", row.SchemaVersion)
	}
}
