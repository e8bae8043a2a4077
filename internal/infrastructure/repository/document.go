package repository

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/totegamma/concrnt-journal"
	"github.com/totegamma/concrnt-journal/internal/domain"
	"github.com/totegamma/concrnt-journal/internal/infrastructure/cache"
	"github.com/totegamma/concrnt-journal/internal/infrastructure/database/models"
)

var tracer = otel.Tracer("repository")

// DocumentRepository is the gorm backed document graph.
type DocumentRepository struct {
	db    *gorm.DB
	cache *cache.DocumentCache
}

func NewDocumentRepository(db *gorm.DB, c *cache.DocumentCache) *DocumentRepository {
	return &DocumentRepository{db: db, cache: c}
}

func (r *DocumentRepository) Get(ctx context.Context, ref journal.Ref, expectedType journal.DocumentType, includeHidden bool) (domain.Document, error) {
	ctx, span := tracer.Start(ctx, "Document.Repository.Get")
	defer span.End()

	if ref.IsZero() {
		return domain.Document{}, domain.NotFoundError{Resource: "empty reference"}
	}

	id, typ := ref.ID, expectedType
	if ref.UUID != "" {
		last, err := journal.RefFromUUID(ref.UUID)
		if err != nil {
			return domain.Document{}, domain.NotFoundError{Resource: ref.UUID}
		}
		id, typ = last.ID, last.Type
	}

	doc, err := r.load(ctx, id, typ)
	if err != nil {
		span.RecordError(err)
		return domain.Document{}, err
	}
	if doc.Hidden && !includeHidden {
		return domain.Document{}, domain.NotFoundError{Resource: string(doc.Type) + " " + id}
	}
	return doc, nil
}

// TestPermission treats GMs as owners of everything. Pages and items also
// inherit the level their parent grants.
func (r *DocumentRepository) TestPermission(doc domain.Document, viewer domain.Viewer, level domain.PermissionLevel) bool {
	if viewer.IsGM() {
		return true
	}
	granted := doc.PermissionFor(viewer.ID)
	if doc.Parent != nil && (doc.Type == journal.TypePage || doc.Type == journal.TypeItem) {
		if inherited := doc.Parent.PermissionFor(viewer.ID); inherited > granted {
			granted = inherited
		}
	}
	return granted >= level
}

// Update applies patch to ownerID in one transaction. Concurrent writers
// are last-writer-wins.
func (r *DocumentRepository) Update(ctx context.Context, ownerID string, patch domain.Patch) error {
	ctx, span := tracer.Start(ctx, "Document.Repository.Update")
	defer span.End()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if patch.Relationships != nil {
			if err := tx.Where("owner_id = ?", ownerID).Delete(&models.Relationship{}).Error; err != nil {
				return err
			}

			rows := make([]models.Relationship, 0, len(*patch.Relationships))
			for i, record := range *patch.Relationships {
				row, err := encodeRelationship(ownerID, i, record)
				if err != nil {
					return err
				}
				rows = append(rows, row)
			}
			if len(rows) > 0 {
				if err := tx.Omit(clause.Associations).Create(&rows).Error; err != nil {
					return err
				}
			}
		}

		for _, offering := range patch.Offerings {
			if offering.Recipient.ID != ownerID {
				return fmt.Errorf("offering %s does not belong to %s", offering.ID, ownerID)
			}
			row, err := encodeOffering(offering)
			if err != nil {
				return err
			}
			err = tx.Omit(clause.Associations).Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"state", "schema_version", "value", "m_date"}),
			}).Create(&row).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "DocumentRepository.Update")
	}
	return nil
}

func (r *DocumentRepository) Relationships(ctx context.Context, ownerID string) ([]domain.RelationshipRecord, error) {
	var rows []models.Relationship
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("position ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	records := make([]domain.RelationshipRecord, 0, len(rows))
	for _, row := range rows {
		record, err := decodeRelationship(row)
		if err != nil {
			return nil, errors.Wrapf(err, "relationship %s", row.ID)
		}
		records = append(records, record)
	}
	return records, nil
}

func (r *DocumentRepository) Offering(ctx context.Context, id string) (domain.OfferingRecord, error) {
	var row models.Offering
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.OfferingRecord{}, domain.NotFoundError{Resource: "offering " + id}
	}
	if err != nil {
		return domain.OfferingRecord{}, err
	}
	return decodeOffering(row)
}

func (r *DocumentRepository) Offerings(ctx context.Context, entryID string) ([]domain.OfferingRecord, error) {
	var rows []models.Offering
	err := r.db.WithContext(ctx).
		Where("recipient_id = ? OR proposer_id = ?", entryID, entryID).
		Order("c_date ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	offerings := make([]domain.OfferingRecord, 0, len(rows))
	for _, row := range rows {
		o, err := decodeOffering(row)
		if err != nil {
			return nil, errors.Wrapf(err, "offering %s", row.ID)
		}
		offerings = append(offerings, o)
	}
	return offerings, nil
}

// Put creates or replaces a document and its permission grants.
func (r *DocumentRepository) Put(ctx context.Context, doc domain.Document) error {
	row := models.Document{
		ID:                doc.ID,
		Type:              string(doc.Type),
		Name:              doc.Name,
		Img:               doc.Img,
		SheetType:         doc.SheetType,
		Sort:              doc.Sort,
		Quantity:          doc.Quantity,
		Hidden:            doc.Hidden,
		DefaultPermission: int(doc.DefaultPermission),
	}
	if doc.ParentID != "" {
		parentID := doc.ParentID
		row.ParentID = &parentID
		row.ParentType = string(parentType(doc))
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"type", "parent_id", "parent_type", "name", "img", "sheet_type", "sort", "quantity", "hidden", "default_permission", "m_date"}),
		}).Create(&row).Error
		if err != nil {
			return err
		}

		if err := tx.Where("document_id = ?", doc.ID).Delete(&models.DocumentPermission{}).Error; err != nil {
			return err
		}
		for userID, level := range doc.Permissions {
			perm := models.DocumentPermission{DocumentID: doc.ID, UserID: userID, Level: int(level)}
			if err := tx.Omit(clause.Associations).Create(&perm).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "DocumentRepository.Put")
	}

	r.cache.Invalidate(doc.Type, doc.ID)
	if doc.ParentID != "" && doc.Type == journal.TypePage {
		r.cache.Invalidate(journal.TypeJournalEntry, doc.ParentID)
	}
	return nil
}

func (r *DocumentRepository) load(ctx context.Context, id string, typ journal.DocumentType) (domain.Document, error) {
	if typ != "" {
		if doc, ok := r.cache.Get(typ, id); ok {
			return doc, nil
		}
	}

	q := r.db.WithContext(ctx).Where("id = ?", id)
	if typ != "" {
		q = q.Where("type = ?", string(typ))
	}
	var row models.Document
	err := q.Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Document{}, domain.NotFoundError{Resource: string(typ) + " " + id}
	}
	if err != nil {
		return domain.Document{}, err
	}

	doc, err := r.hydrate(ctx, row)
	if err != nil {
		return domain.Document{}, err
	}

	if row.ParentID != nil {
		var parentRow models.Document
		err := r.db.WithContext(ctx).Where("id = ?", *row.ParentID).Take(&parentRow).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Document{}, err
		}
		if err == nil {
			parent, err := r.hydrate(ctx, parentRow)
			if err != nil {
				return domain.Document{}, err
			}
			doc.Parent = &parent
		}
	}

	if doc.Type == journal.TypeJournalEntry {
		var pageRows []models.Document
		err := r.db.WithContext(ctx).
			Where("parent_id = ? AND type = ?", doc.ID, string(journal.TypePage)).
			Order("sort ASC, id ASC").
			Find(&pageRows).Error
		if err != nil {
			return domain.Document{}, err
		}
		for _, pageRow := range pageRows {
			page, err := r.hydrate(ctx, pageRow)
			if err != nil {
				return domain.Document{}, err
			}
			doc.Pages = append(doc.Pages, page)
		}
	}

	r.cache.Set(doc)
	return doc, nil
}

func (r *DocumentRepository) hydrate(ctx context.Context, row models.Document) (domain.Document, error) {
	doc := domain.Document{
		ID:                row.ID,
		Type:              journal.DocumentType(row.Type),
		Name:              row.Name,
		Img:               row.Img,
		SheetType:         row.SheetType,
		Sort:              row.Sort,
		Quantity:          row.Quantity,
		Hidden:            row.Hidden,
		DefaultPermission: domain.PermissionLevel(row.DefaultPermission),
	}
	if row.ParentID != nil {
		doc.ParentID = *row.ParentID
	}
	doc.UUID = documentUUID(doc, journal.DocumentType(row.ParentType))

	var perms []models.DocumentPermission
	err := r.db.WithContext(ctx).Where("document_id = ?", row.ID).Find(&perms).Error
	if err != nil {
		return domain.Document{}, err
	}
	if len(perms) > 0 {
		doc.Permissions = make(map[string]domain.PermissionLevel, len(perms))
		for _, p := range perms {
			doc.Permissions[p.UserID] = domain.PermissionLevel(p.Level)
		}
	}
	return doc, nil
}

func parentType(doc domain.Document) journal.DocumentType {
	if doc.Parent != nil {
		return doc.Parent.Type
	}
	if doc.Type == journal.TypePage {
		return journal.TypeJournalEntry
	}
	return journal.TypeActor
}

func documentUUID(doc domain.Document, parent journal.DocumentType) string {
	self := journal.UUIDSegment{Type: doc.Type, ID: doc.ID}
	if doc.ParentID == "" || !parent.Valid() {
		return journal.ComposeUUID(self)
	}
	return journal.ComposeUUID(journal.UUIDSegment{Type: parent, ID: doc.ParentID}, self)
}
