package gateway

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/totegamma/concrnt-journal"
	"github.com/totegamma/concrnt-journal/internal/domain"
	"github.com/totegamma/concrnt-journal/internal/infrastructure/cache"
	"github.com/totegamma/concrnt-journal/internal/infrastructure/database/models"
)

var tracer = otel.Tracer("gateway")

// TransferGateway moves item quantities out of the proposing actor and into
// a stack owned by the recipient entry. Only items the proposer still holds
// are taken. Stacks are matched on origin_id.
type TransferGateway struct {
	db    *gorm.DB
	cache *cache.DocumentCache
}

func NewTransferGateway(db *gorm.DB, c *cache.DocumentCache) *TransferGateway {
	return &TransferGateway{db: db, cache: c}
}

func (g *TransferGateway) Transfer(ctx context.Context, offering domain.OfferingRecord) error {
	ctx, span := tracer.Start(ctx, "Transfer.Gateway.Transfer")
	defer span.End()
	span.SetAttributes(attribute.String("offering", offering.ID))

	touched := []string{}
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range offering.Items {
			var source models.Document
			err := tx.
				Where("id = ? AND type = ? AND parent_id = ?", item.ItemID, string(journal.TypeItem), offering.Proposer.ID).
				Take(&source).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NotFoundError{Resource: "item " + item.ItemID + " of " + offering.Proposer.ID}
			}
			if err != nil {
				return err
			}
			if source.Quantity < item.Quantity {
				return domain.ValidationError{Reason: fmt.Sprintf("item %s has only %d left", source.ID, source.Quantity)}
			}

			if err := take(tx, source, item.Quantity); err != nil {
				return err
			}
			stackID, err := give(tx, source, offering.Recipient, item.Quantity)
			if err != nil {
				return err
			}
			touched = append(touched, source.ID, stackID)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "TransferGateway.Transfer")
	}

	g.invalidate(touched)
	return nil
}

// Revert hands the quantities moved by Transfer back to their actors.
func (g *TransferGateway) Revert(ctx context.Context, offering domain.OfferingRecord) error {
	ctx, span := tracer.Start(ctx, "Transfer.Gateway.Revert")
	defer span.End()
	span.SetAttributes(attribute.String("offering", offering.ID))

	touched := []string{}
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range offering.Items {
			var stack models.Document
			err := tx.
				Where("parent_id = ? AND origin_id = ? AND type = ?", offering.Recipient.ID, item.ItemID, string(journal.TypeItem)).
				Take(&stack).Error
			if err != nil {
				return errors.Wrapf(err, "stack for %s", item.ItemID)
			}
			if stack.Quantity < item.Quantity {
				return domain.ValidationError{Reason: fmt.Sprintf("stack %s has only %d left", stack.ID, stack.Quantity)}
			}
			if err := take(tx, stack, item.Quantity); err != nil {
				return err
			}

			var source models.Document
			err = tx.Where("id = ?", item.ItemID).Take(&source).Error
			switch {
			case err == nil:
				source.Quantity += item.Quantity
				if err := tx.Model(&source).Update("quantity", source.Quantity).Error; err != nil {
					return err
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				actorID := item.ActorID
				restored := models.Document{
					ID:         item.ItemID,
					Type:       string(journal.TypeItem),
					ParentID:   &actorID,
					ParentType: string(journal.TypeActor),
					Name:       stack.Name,
					Img:        stack.Img,
					SheetType:  stack.SheetType,
					Quantity:   item.Quantity,
				}
				if err := tx.Create(&restored).Error; err != nil {
					return err
				}
			default:
				return err
			}
			touched = append(touched, item.ItemID, stack.ID)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "TransferGateway.Revert")
	}

	g.invalidate(touched)
	return nil
}

func (g *TransferGateway) invalidate(ids []string) {
	if g.cache == nil {
		return
	}
	for _, id := range ids {
		g.cache.Invalidate(journal.TypeItem, id)
	}
}

// take removes qty from doc, deleting it once empty.
func take(tx *gorm.DB, doc models.Document, qty int) error {
	if doc.Quantity == qty {
		return tx.Where("id = ?", doc.ID).Delete(&models.Document{}).Error
	}
	return tx.Model(&doc).Update("quantity", doc.Quantity-qty).Error
}

func give(tx *gorm.DB, source models.Document, recipient journal.Ref, qty int) (string, error) {
	var stack models.Document
	err := tx.
		Where("parent_id = ? AND origin_id = ? AND type = ?", recipient.ID, source.ID, string(journal.TypeItem)).
		Take(&stack).Error
	if err == nil {
		return stack.ID, tx.Model(&stack).Update("quantity", stack.Quantity+qty).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	parentID, originID := recipient.ID, source.ID
	parentType := recipient.Type
	if parentType == "" {
		parentType = journal.TypeJournalEntry
	}
	stack = models.Document{
		ID:         uuid.NewString(),
		Type:       string(journal.TypeItem),
		ParentID:   &parentID,
		ParentType: string(parentType),
		Name:       source.Name,
		Img:        source.Img,
		SheetType:  source.SheetType,
		Quantity:   qty,
		OriginID:   &originID,
	}
	return stack.ID, tx.Create(&stack).Error
}
