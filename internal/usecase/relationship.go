package usecase

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/concrnt-journal"
	"github.com/totegamma/concrnt-journal/internal/domain"
)

var tracer = otel.Tracer("usecase")

type RelationshipUsecase struct {
	signal Publisher
	newID  func() string
}

func NewRelationshipUsecase(signal Publisher) *RelationshipUsecase {
	return &RelationshipUsecase{
		signal: signal,
		newID:  uuid.NewString,
	}
}

// List returns the stored records of an entry the viewer can see at all.
func (uc *RelationshipUsecase) List(ctx context.Context, s Session, ownerID string) ([]domain.RelationshipRecord, error) {
	ctx, span := tracer.Start(ctx, "Relationship.Usecase.List")
	defer span.End()

	owner, err := s.entry(ctx, ownerID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !s.CanView(owner) {
		return nil, domain.PermissionDeniedError{Action: "view relationships"}
	}

	return s.Graph.Relationships(ctx, ownerID)
}

// Add links ownerID to target. The target must resolve to an existing entry
// and records are deduplicated on its resolved id. It returns the record
// targeting it and whether it was created by this call.
func (uc *RelationshipUsecase) Add(ctx context.Context, s Session, ownerID string, target journal.Ref, hidden bool) (domain.RelationshipRecord, bool, error) {
	ctx, span := tracer.Start(ctx, "Relationship.Usecase.Add")
	defer span.End()
	span.SetAttributes(attribute.String("owner", ownerID), attribute.String("target", target.ID))

	if target.Type != journal.TypeJournalEntry {
		return domain.RelationshipRecord{}, false, domain.ValidationError{Reason: "relationships must target a journal entry"}
	}

	records, err := uc.authorized(ctx, s, ownerID, "add relationship")
	if err != nil {
		span.RecordError(err)
		return domain.RelationshipRecord{}, false, err
	}

	resolved, err := s.Graph.Get(ctx, target, journal.TypeJournalEntry, true)
	if err != nil {
		span.RecordError(err)
		return domain.RelationshipRecord{}, false, err
	}
	if resolved.Type != journal.TypeJournalEntry {
		return domain.RelationshipRecord{}, false, domain.ValidationError{Reason: "relationships must target a journal entry"}
	}

	for _, r := range records {
		if r.Target.ID == resolved.ID {
			return r, false, nil
		}
	}

	record := domain.RelationshipRecord{
		ID:     uc.newID(),
		Target: resolved.Ref(),
		Hidden: hidden,
	}
	next := append(slices.Clone(records), record)

	if err := uc.commit(ctx, s, ownerID, next, record.ID); err != nil {
		span.RecordError(err)
		return domain.RelationshipRecord{}, false, err
	}
	return record, true, nil
}

func (uc *RelationshipUsecase) Remove(ctx context.Context, s Session, ownerID, id string) error {
	ctx, span := tracer.Start(ctx, "Relationship.Usecase.Remove")
	defer span.End()

	records, err := uc.authorized(ctx, s, ownerID, "remove relationship")
	if err != nil {
		span.RecordError(err)
		return err
	}

	idx := slices.IndexFunc(records, func(r domain.RelationshipRecord) bool { return r.ID == id })
	if idx < 0 {
		return domain.NotFoundError{Resource: "relationship " + id}
	}

	next := slices.Delete(slices.Clone(records), idx, idx+1)
	return uc.commit(ctx, s, ownerID, next, id)
}

func (uc *RelationshipUsecase) SetHidden(ctx context.Context, s Session, ownerID, id string, hidden bool) (domain.RelationshipRecord, error) {
	ctx, span := tracer.Start(ctx, "Relationship.Usecase.SetHidden")
	defer span.End()

	records, err := uc.authorized(ctx, s, ownerID, "hide relationship")
	if err != nil {
		span.RecordError(err)
		return domain.RelationshipRecord{}, err
	}

	idx := slices.IndexFunc(records, func(r domain.RelationshipRecord) bool { return r.ID == id })
	if idx < 0 {
		return domain.RelationshipRecord{}, domain.NotFoundError{Resource: "relationship " + id}
	}

	next := slices.Clone(records)
	next[idx].Hidden = hidden
	if err := uc.commit(ctx, s, ownerID, next, id); err != nil {
		span.RecordError(err)
		return domain.RelationshipRecord{}, err
	}
	return next[idx], nil
}

// MergeSubmittedFields overlays the submitted fields onto the stored records
// they name. Unnamed records and unset fields keep their stored values; ids
// that are not stored are ignored.
func (uc *RelationshipUsecase) MergeSubmittedFields(ctx context.Context, s Session, ownerID string, edits map[string]domain.RelationshipPatch) ([]domain.RelationshipRecord, error) {
	ctx, span := tracer.Start(ctx, "Relationship.Usecase.MergeSubmittedFields")
	defer span.End()

	records, err := uc.authorized(ctx, s, ownerID, "edit relationships")
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	next := slices.Clone(records)
	changed := false
	for i, r := range next {
		patch, ok := edits[r.ID]
		if !ok {
			continue
		}
		merged := patch.Apply(r)
		if merged != r {
			next[i] = merged
			changed = true
		}
	}

	if !changed {
		return records, nil
	}
	if err := uc.commit(ctx, s, ownerID, next, ""); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return next, nil
}

func (uc *RelationshipUsecase) authorized(ctx context.Context, s Session, ownerID, action string) ([]domain.RelationshipRecord, error) {
	owner, err := s.entry(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !s.CanManage(owner) {
		return nil, domain.PermissionDeniedError{Action: action}
	}
	return s.Graph.Relationships(ctx, ownerID)
}

func (uc *RelationshipUsecase) commit(ctx context.Context, s Session, ownerID string, next []domain.RelationshipRecord, subject string) error {
	err := s.Graph.Update(ctx, ownerID, domain.Patch{Relationships: &next})
	if err != nil {
		return errors.Wrap(err, "RelationshipUsecase: update failed")
	}

	publish(ctx, uc.signal, domain.Event{
		Type:      domain.EventRelationshipsChanged,
		EntryID:   ownerID,
		SubjectID: subject,
		Timestamp: time.Now(),
	})
	return nil
}
