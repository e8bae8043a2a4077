package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/totegamma/concrnt-journal"
	"github.com/totegamma/concrnt-journal/internal/domain"
)

// DropResult reports what a drop did. Review is set when the caller should
// open the review view of the created offering.
type DropResult struct {
	Kind         domain.DropKind            `json:"kind"`
	Relationship *domain.RelationshipRecord `json:"relationship,omitempty"`
	Added        bool                       `json:"added"`
	Offering     *domain.OfferingRecord     `json:"offering,omitempty"`
	Review       bool                       `json:"review"`
}

type DropUsecase struct {
	relationships *RelationshipUsecase
	offerings     *OfferingUsecase
}

func NewDropUsecase(relationships *RelationshipUsecase, offerings *OfferingUsecase) *DropUsecase {
	return &DropUsecase{
		relationships: relationships,
		offerings:     offerings,
	}
}

// Ingest classifies a payload dropped on entryID and routes it. Payloads
// that cannot be classified change nothing and return a DropKindUnknown
// result without error.
func (uc *DropUsecase) Ingest(ctx context.Context, s Session, entryID string, raw []byte) (DropResult, error) {
	ctx, span := tracer.Start(ctx, "Drop.Usecase.Ingest")
	defer span.End()

	drop := domain.ParseDrop(raw)

	if unknown, ok := drop.(domain.UnknownDrop); ok {
		slog.InfoContext(
			ctx, "drop ignored",
			slog.String("reason", unknown.Reason),
			slog.String("entry", entryID),
			slog.String("module", "drop"),
		)
		return DropResult{Kind: domain.DropKindUnknown}, nil
	}

	entry, err := s.entry(ctx, entryID)
	if err != nil {
		span.RecordError(err)
		return DropResult{}, err
	}
	if !s.CanManage(entry) {
		return DropResult{}, domain.PermissionDeniedError{Action: "drop on entry"}
	}

	slog.DebugContext(
		ctx, "drop data",
		slog.String("kind", string(drop.Kind())),
		slog.String("entry", entryID),
		slog.String("module", "drop"),
	)

	switch d := drop.(type) {
	case domain.ContainerDrop:
		return uc.link(ctx, s, entryID, d.Ref, d.Hidden, domain.DropKindContainer)
	case domain.PageDrop:
		page, err := s.Graph.Get(ctx, d.Ref, journal.TypePage, true)
		if err != nil {
			span.RecordError(err)
			return DropResult{}, err
		}
		container, err := owningContainer(ctx, s, page)
		if err != nil {
			span.RecordError(err)
			return DropResult{}, err
		}
		return uc.link(ctx, s, entryID, container.Ref(), false, domain.DropKindPage)
	case domain.ItemDrop:
		return uc.offer(ctx, s, entry, d.Ref)
	default:
		panic(fmt.Sprintf("unhandled drop kind %T", drop))
	}
}

func (uc *DropUsecase) link(ctx context.Context, s Session, entryID string, target journal.Ref, hidden bool, kind domain.DropKind) (DropResult, error) {
	record, added, err := uc.relationships.Add(ctx, s, entryID, target, hidden)
	if err != nil {
		return DropResult{}, err
	}
	return DropResult{Kind: kind, Relationship: &record, Added: added}, nil
}

func (uc *DropUsecase) offer(ctx context.Context, s Session, entry domain.Document, ref journal.Ref) (DropResult, error) {
	item, err := s.Graph.Get(ctx, ref, journal.TypeItem, true)
	if err != nil {
		return DropResult{}, err
	}
	actor, err := owningActor(ctx, s, item)
	if err != nil {
		return DropResult{}, err
	}

	offering, err := uc.offerings.Create(ctx, s, domain.OfferingRecord{
		Proposer:  actor.Ref(),
		Recipient: entry.Ref(),
		Items: []domain.OfferingItem{{
			ItemID:    item.ID,
			ItemName:  item.Name,
			ActorID:   actor.ID,
			ActorName: actor.Name,
			Quantity:  1,
		}},
	})
	if err != nil {
		return DropResult{}, err
	}
	return DropResult{Kind: domain.DropKindItem, Offering: &offering, Review: true}, nil
}

func owningContainer(ctx context.Context, s Session, page domain.Document) (domain.Document, error) {
	if page.Parent != nil && page.Parent.Type == journal.TypeJournalEntry {
		return *page.Parent, nil
	}
	if page.ParentID == "" {
		return domain.Document{}, domain.NotFoundError{Resource: "container of page " + page.ID}
	}
	return s.entry(ctx, page.ParentID)
}

func owningActor(ctx context.Context, s Session, item domain.Document) (domain.Document, error) {
	if item.Parent != nil {
		if item.Parent.Type != journal.TypeActor {
			return domain.Document{}, domain.ValidationError{Reason: "item is not owned by an actor"}
		}
		return *item.Parent, nil
	}
	if item.ParentID == "" {
		return domain.Document{}, domain.ValidationError{Reason: "item is not owned by an actor"}
	}
	return s.Graph.Get(ctx, journal.Ref{Type: journal.TypeActor, ID: item.ParentID}, journal.TypeActor, true)
}
