package usecase

import (
	"context"

	"github.com/totegamma/concrnt-journal"
	"github.com/totegamma/concrnt-journal/internal/domain"
)

// DocumentGraph resolves documents, evaluates permissions and persists
// patches against owning entries.
type DocumentGraph interface {
	// Get returns domain.ErrNotFound when the document is absent. A ref
	// without uuid is looked up by id within expectedType.
	Get(ctx context.Context, ref journal.Ref, expectedType journal.DocumentType, includeHidden bool) (domain.Document, error)
	TestPermission(doc domain.Document, viewer domain.Viewer, level domain.PermissionLevel) bool
	Update(ctx context.Context, ownerID string, patch domain.Patch) error

	Relationships(ctx context.Context, ownerID string) ([]domain.RelationshipRecord, error)
	Offering(ctx context.Context, id string) (domain.OfferingRecord, error)
	Offerings(ctx context.Context, entryID string) ([]domain.OfferingRecord, error)
}

// Localizer turns a catalog key into a display string.
type Localizer interface {
	Translate(key string) string
}

// ItemTransfer moves the items listed on an offering between inventories.
// Revert undoes a completed Transfer.
type ItemTransfer interface {
	Transfer(ctx context.Context, offering domain.OfferingRecord) error
	Revert(ctx context.Context, offering domain.OfferingRecord) error
}

// Publisher broadcasts change events to connected viewers.
type Publisher interface {
	Publish(ctx context.Context, channel string, event domain.Event) error
}
