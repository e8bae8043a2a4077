package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/totegamma/concrnt-journal"
	"github.com/totegamma/concrnt-journal/internal/domain"
)

func TestRelationshipAddDedup(t *testing.T) {
	g := fixture()
	pub := &mockPublisher{}
	uc := NewRelationshipUsecase(pub)
	s := NewSession(owner, g)
	ctx := context.Background()

	record, added, err := uc.Add(ctx, s, "org", entryRef("p1"), false)
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if !added || record.Target.ID != "p1" || record.ID == "" {
		t.Fatalf("unexpected record %+v (added=%v)", record, added)
	}

	again, added, err := uc.Add(ctx, s, "org", journal.Ref{Type: journal.TypeJournalEntry, ID: "p1"}, true)
	if err != nil {
		t.Fatalf("second add failed: %v", err)
	}
	if added {
		t.Fatalf("expected duplicate add to be a no-op")
	}
	if again.ID != record.ID {
		t.Fatalf("expected existing record back, got %+v", again)
	}
	if len(g.relationships["org"]) != 1 {
		t.Fatalf("expected 1 record got %d", len(g.relationships["org"]))
	}
	if g.updates != 1 || len(pub.events) != 1 {
		t.Fatalf("expected exactly one write and event, got %d/%d", g.updates, len(pub.events))
	}
}

func TestRelationshipAddRejectsNonContainer(t *testing.T) {
	g := fixture()
	uc := NewRelationshipUsecase(nil)

	_, _, err := uc.Add(context.Background(), NewSession(owner, g), "org", journal.Ref{Type: journal.TypePage, ID: "p1page"}, false)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error got %v", err)
	}
	if g.updates != 0 {
		t.Fatalf("expected no write")
	}
}

func TestRelationshipMutationsRequireOwner(t *testing.T) {
	g := fixture()
	g.relationships["org"] = []domain.RelationshipRecord{{ID: "r1", Target: entryRef("p1")}}
	uc := NewRelationshipUsecase(nil)
	s := NewSession(player, g)
	ctx := context.Background()

	if err := uc.Remove(ctx, s, "org", "r1"); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected permission denied on remove got %v", err)
	}
	if _, err := uc.SetHidden(ctx, s, "org", "r1", true); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected permission denied on hide got %v", err)
	}
	if _, _, err := uc.Add(ctx, s, "org", entryRef("p2"), false); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected permission denied on add got %v", err)
	}
	if g.updates != 0 || len(g.relationships["org"]) != 1 || g.relationships["org"][0].Hidden {
		t.Fatalf("store changed after denied mutations")
	}

	if _, err := uc.SetHidden(ctx, NewSession(gm, g), "org", "r1", true); err != nil {
		t.Fatalf("gm hide failed: %v", err)
	}
	if !g.relationships["org"][0].Hidden {
		t.Fatalf("expected record hidden")
	}
	if err := uc.Remove(ctx, NewSession(owner, g), "org", "r1"); err != nil {
		t.Fatalf("owner remove failed: %v", err)
	}
	if len(g.relationships["org"]) != 0 {
		t.Fatalf("expected record removed")
	}
}

func TestRelationshipRemoveUnknown(t *testing.T) {
	g := fixture()
	uc := NewRelationshipUsecase(nil)

	err := uc.Remove(context.Background(), NewSession(owner, g), "org", "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found got %v", err)
	}
}

func TestRelationshipUpdateFailureLeavesStore(t *testing.T) {
	g := fixture()
	g.relationships["org"] = []domain.RelationshipRecord{{ID: "r1", Target: entryRef("p1")}}
	g.updateErr = errBoom
	uc := NewRelationshipUsecase(nil)

	_, err := uc.SetHidden(context.Background(), NewSession(owner, g), "org", "r1", true)
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected update error got %v", err)
	}
	if g.relationships["org"][0].Hidden {
		t.Fatalf("record changed despite failed update")
	}
}

func TestMergeSubmittedFields(t *testing.T) {
	g := fixture()
	g.relationships["org"] = []domain.RelationshipRecord{
		{ID: "r1", Target: entryRef("p1"), Relationship: "ally", Hidden: true},
		{ID: "r2", Target: entryRef("p2"), Relationship: "rival"},
	}
	uc := NewRelationshipUsecase(nil)

	label := "sworn enemy"
	records, err := uc.MergeSubmittedFields(context.Background(), NewSession(owner, g), "org", map[string]domain.RelationshipPatch{
		"r1":      {Relationship: &label},
		"unknown": {Relationship: &label},
	})
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records got %d", len(records))
	}
	if records[0].Relationship != label || !records[0].Hidden || records[0].Target.ID != "p1" {
		t.Fatalf("unexpected merged record %+v", records[0])
	}
	if records[1].Relationship != "rival" {
		t.Fatalf("untouched record changed: %+v", records[1])
	}
	if g.relationships["org"][0].Relationship != label {
		t.Fatalf("merge not persisted")
	}
}

func TestRelationshipAddRequiresExistingTarget(t *testing.T) {
	g := fixture()
	uc := NewRelationshipUsecase(nil)
	ctx := context.Background()

	_, _, err := uc.Add(ctx, NewSession(owner, g), "org", entryRef("gone"), false)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found got %v", err)
	}
	if g.updates != 0 || len(g.relationships["org"]) != 0 {
		t.Fatalf("dangling record was stored")
	}

	record, added, err := uc.Add(ctx, NewSession(owner, g), "org", journal.Ref{Type: journal.TypeJournalEntry, ID: "p1"}, false)
	if err != nil || !added {
		t.Fatalf("add failed: %v", err)
	}
	if record.Target.UUID != "JournalEntry.p1" {
		t.Fatalf("expected target taken from the resolved entry got %+v", record.Target)
	}
}
