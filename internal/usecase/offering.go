package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/concrnt-journal"
	"github.com/totegamma/concrnt-journal/internal/domain"
)

type OfferingUsecase struct {
	transfer ItemTransfer
	signal   Publisher
	newID    func() string
	now      func() time.Time
}

func NewOfferingUsecase(transfer ItemTransfer, signal Publisher) *OfferingUsecase {
	return &OfferingUsecase{
		transfer: transfer,
		signal:   signal,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// Create stores a new proposed offering under its recipient entry.
func (uc *OfferingUsecase) Create(ctx context.Context, s Session, offering domain.OfferingRecord) (domain.OfferingRecord, error) {
	ctx, span := tracer.Start(ctx, "Offering.Usecase.Create")
	defer span.End()

	if err := offering.Normalize(); err != nil {
		return domain.OfferingRecord{}, err
	}

	recipient, err := s.entry(ctx, offering.Recipient.ID)
	if err != nil {
		span.RecordError(err)
		return domain.OfferingRecord{}, err
	}
	proposer, err := s.Graph.Get(ctx, offering.Proposer, journal.TypeActor, true)
	if err != nil {
		span.RecordError(err)
		return domain.OfferingRecord{}, err
	}
	if proposer.Type != journal.TypeActor {
		return domain.OfferingRecord{}, domain.ValidationError{Reason: "offerings must be proposed by an actor"}
	}
	if !s.CanManage(proposer) {
		return domain.OfferingRecord{}, domain.PermissionDeniedError{Action: "propose offering"}
	}

	items := make([]domain.OfferingItem, len(offering.Items))
	for i, item := range offering.Items {
		if item.ActorID != "" && item.ActorID != proposer.ID {
			return domain.OfferingRecord{}, domain.ValidationError{Reason: "offered item " + item.ItemID + " is not held by the proposer"}
		}
		held, err := s.Graph.Get(ctx, journal.Ref{Type: journal.TypeItem, ID: item.ItemID}, journal.TypeItem, true)
		if err != nil {
			span.RecordError(err)
			return domain.OfferingRecord{}, err
		}
		if held.ParentID != proposer.ID {
			return domain.OfferingRecord{}, domain.ValidationError{Reason: "offered item " + item.ItemID + " is not held by the proposer"}
		}
		item.ItemName = held.Name
		item.ActorID = proposer.ID
		item.ActorName = proposer.Name
		items[i] = item
	}

	record := domain.OfferingRecord{
		ID:        uc.newID(),
		Proposer:  proposer.Ref(),
		Recipient: recipient.Ref(),
		Items:     items,
		State:     domain.OfferingProposed,
		Hidden:    offering.Hidden,
		CreatedAt: uc.now(),
	}
	span.SetAttributes(attribute.String("offering", record.ID))

	if err := uc.commit(ctx, s, record); err != nil {
		span.RecordError(err)
		return domain.OfferingRecord{}, err
	}
	return record, nil
}

// Accept moves the offered items and marks the offering accepted. A failed
// transfer leaves the offering proposed.
func (uc *OfferingUsecase) Accept(ctx context.Context, s Session, id string) (domain.OfferingRecord, error) {
	return uc.transition(ctx, s, id, domain.OfferingAccepted)
}

func (uc *OfferingUsecase) Cancel(ctx context.Context, s Session, id string) (domain.OfferingRecord, error) {
	return uc.transition(ctx, s, id, domain.OfferingCancelled)
}

func (uc *OfferingUsecase) Reject(ctx context.Context, s Session, id string) (domain.OfferingRecord, error) {
	return uc.transition(ctx, s, id, domain.OfferingRejected)
}

// List returns the offerings an entry takes part in. Hidden offerings are
// only listed for viewers who manage the entry.
func (uc *OfferingUsecase) List(ctx context.Context, s Session, entryID string) ([]domain.OfferingRecord, error) {
	ctx, span := tracer.Start(ctx, "Offering.Usecase.List")
	defer span.End()

	entry, err := s.entry(ctx, entryID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !s.CanView(entry) {
		return nil, domain.PermissionDeniedError{Action: "view offerings"}
	}

	offerings, err := s.Graph.Offerings(ctx, entryID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	manage := s.CanManage(entry)
	result := make([]domain.OfferingRecord, 0, len(offerings))
	for _, o := range offerings {
		if o.Hidden && !manage {
			continue
		}
		result = append(result, o)
	}
	return result, nil
}

// SetHidden toggles whether non-managers can list a proposed offering.
// Settled offerings are left as they are.
func (uc *OfferingUsecase) SetHidden(ctx context.Context, s Session, id string, hidden bool) (domain.OfferingRecord, error) {
	ctx, span := tracer.Start(ctx, "Offering.Usecase.SetHidden")
	defer span.End()

	offering, err := s.Graph.Offering(ctx, id)
	if err != nil {
		span.RecordError(err)
		return domain.OfferingRecord{}, err
	}
	recipient, err := s.entry(ctx, offering.Recipient.ID)
	if err != nil {
		span.RecordError(err)
		return domain.OfferingRecord{}, err
	}
	if !s.CanManage(recipient) {
		return domain.OfferingRecord{}, domain.PermissionDeniedError{Action: "hide offering"}
	}

	if offering.State.Terminal() {
		return domain.OfferingRecord{}, domain.InvalidTransitionError{From: offering.State, To: offering.State}
	}

	next := offering
	next.Hidden = hidden
	if err := uc.commit(ctx, s, next); err != nil {
		span.RecordError(err)
		return domain.OfferingRecord{}, err
	}
	return next, nil
}

func (uc *OfferingUsecase) transition(ctx context.Context, s Session, id string, to domain.OfferingState) (domain.OfferingRecord, error) {
	ctx, span := tracer.Start(ctx, "Offering.Usecase.Transition")
	defer span.End()
	span.SetAttributes(attribute.String("offering", id), attribute.String("to", string(to)))

	offering, err := s.Graph.Offering(ctx, id)
	if err != nil {
		span.RecordError(err)
		return domain.OfferingRecord{}, err
	}

	if err := uc.authorizeTransition(ctx, s, offering, to); err != nil {
		span.RecordError(err)
		return domain.OfferingRecord{}, err
	}

	if offering.State.Terminal() {
		return domain.OfferingRecord{}, domain.InvalidTransitionError{From: offering.State, To: to}
	}

	next := offering
	next.Items = append([]domain.OfferingItem(nil), offering.Items...)
	next.State = to

	if to == domain.OfferingAccepted {
		if err := uc.transfer.Transfer(ctx, offering); err != nil {
			span.RecordError(err)
			return domain.OfferingRecord{}, errors.Wrap(err, "OfferingUsecase: item transfer failed")
		}
	}

	if err := uc.commit(ctx, s, next); err != nil {
		span.RecordError(err)
		if to == domain.OfferingAccepted {
			if rerr := uc.transfer.Revert(ctx, offering); rerr != nil {
				span.RecordError(rerr)
				return domain.OfferingRecord{}, errors.Wrapf(err, "OfferingUsecase: revert failed (%v)", rerr)
			}
		}
		return domain.OfferingRecord{}, err
	}
	return next, nil
}

func (uc *OfferingUsecase) authorizeTransition(ctx context.Context, s Session, offering domain.OfferingRecord, to domain.OfferingState) error {
	switch to {
	case domain.OfferingAccepted, domain.OfferingRejected:
		recipient, err := s.entry(ctx, offering.Recipient.ID)
		if err != nil {
			return err
		}
		if !s.CanManage(recipient) {
			return domain.PermissionDeniedError{Action: string(to) + " offering"}
		}
		return nil
	case domain.OfferingCancelled:
		proposer, err := s.Graph.Get(ctx, offering.Proposer, journal.TypeActor, true)
		if err != nil {
			return err
		}
		if !s.CanManage(proposer) {
			return domain.PermissionDeniedError{Action: "cancel offering"}
		}
		return nil
	default:
		return domain.InvalidTransitionError{From: offering.State, To: to}
	}
}

func (uc *OfferingUsecase) commit(ctx context.Context, s Session, offering domain.OfferingRecord) error {
	err := s.Graph.Update(ctx, offering.Recipient.ID, domain.Patch{Offerings: []domain.OfferingRecord{offering}})
	if err != nil {
		return errors.Wrap(err, "OfferingUsecase: update failed")
	}

	publish(ctx, uc.signal, domain.Event{
		Type:      domain.EventOfferingChanged,
		EntryID:   offering.Recipient.ID,
		SubjectID: offering.ID,
		Timestamp: uc.now(),
	})
	return nil
}
