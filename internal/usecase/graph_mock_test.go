package usecase

import (
	"context"
	"errors"
	"slices"

	"github.com/totegamma/concrnt-journal"
	"github.com/totegamma/concrnt-journal/internal/domain"
)

type mockGraph struct {
	docs          map[string]domain.Document
	relationships map[string][]domain.RelationshipRecord
	offerings     map[string]domain.OfferingRecord
	updates       int
	updateErr     error
}

func newMockGraph() *mockGraph {
	return &mockGraph{
		docs:          map[string]domain.Document{},
		relationships: map[string][]domain.RelationshipRecord{},
		offerings:     map[string]domain.OfferingRecord{},
	}
}

func (m *mockGraph) add(doc domain.Document) domain.Document {
	if doc.UUID == "" {
		doc.UUID = string(doc.Type) + "." + doc.ID
	}
	m.docs[doc.ID] = doc
	return doc
}

func (m *mockGraph) Get(ctx context.Context, ref journal.Ref, expectedType journal.DocumentType, includeHidden bool) (domain.Document, error) {
	doc, ok := m.docs[ref.ID]
	if !ok {
		return domain.Document{}, domain.NotFoundError{Resource: ref.ID}
	}
	if ref.UUID == "" && expectedType != "" && doc.Type != expectedType {
		return domain.Document{}, domain.NotFoundError{Resource: ref.ID}
	}
	if doc.Hidden && !includeHidden {
		return domain.Document{}, domain.NotFoundError{Resource: ref.ID}
	}
	if doc.ParentID != "" {
		if parent, ok := m.docs[doc.ParentID]; ok {
			doc.Parent = &parent
		}
	}
	return doc, nil
}

func (m *mockGraph) TestPermission(doc domain.Document, viewer domain.Viewer, level domain.PermissionLevel) bool {
	if viewer.IsGM() {
		return true
	}
	return doc.PermissionFor(viewer.ID) >= level
}

func (m *mockGraph) Update(ctx context.Context, ownerID string, patch domain.Patch) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updates++
	if patch.Relationships != nil {
		m.relationships[ownerID] = slices.Clone(*patch.Relationships)
	}
	for _, o := range patch.Offerings {
		m.offerings[o.ID] = o
	}
	return nil
}

func (m *mockGraph) Relationships(ctx context.Context, ownerID string) ([]domain.RelationshipRecord, error) {
	return slices.Clone(m.relationships[ownerID]), nil
}

func (m *mockGraph) Offering(ctx context.Context, id string) (domain.OfferingRecord, error) {
	o, ok := m.offerings[id]
	if !ok {
		return domain.OfferingRecord{}, domain.NotFoundError{Resource: "offering " + id}
	}
	return o, nil
}

func (m *mockGraph) Offerings(ctx context.Context, entryID string) ([]domain.OfferingRecord, error) {
	var result []domain.OfferingRecord
	for _, o := range m.offerings {
		if o.Recipient.ID == entryID || o.Proposer.ID == entryID {
			result = append(result, o)
		}
	}
	slices.SortFunc(result, func(a, b domain.OfferingRecord) int {
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return result, nil
}

type mockLocalizer struct{}

func (mockLocalizer) Translate(key string) string { return "label:" + key }

type mockTransfer struct {
	transferred []string
	reverted    []string
	err         error
}

func (m *mockTransfer) Transfer(ctx context.Context, o domain.OfferingRecord) error {
	if m.err != nil {
		return m.err
	}
	m.transferred = append(m.transferred, o.ID)
	return nil
}

func (m *mockTransfer) Revert(ctx context.Context, o domain.OfferingRecord) error {
	m.reverted = append(m.reverted, o.ID)
	return nil
}

type mockPublisher struct {
	events []domain.Event
}

func (m *mockPublisher) Publish(ctx context.Context, channel string, event domain.Event) error {
	m.events = append(m.events, event)
	return nil
}

var errBoom = errors.New("boom")

var (
	gm     = domain.Viewer{ID: "gm", Role: domain.RoleGM}
	owner  = domain.Viewer{ID: "alice", Role: domain.RolePlayer}
	player = domain.Viewer{ID: "bob", Role: domain.RolePlayer}
)

// fixture builds an organization entry owned by alice and visible to bob,
// plus a few related entries and an actor with an item.
func fixture() *mockGraph {
	g := newMockGraph()
	g.add(domain.Document{
		ID: "org", Type: journal.TypeJournalEntry, Name: "Guild",
		DefaultPermission: domain.PermissionLimited,
		Permissions:       map[string]domain.PermissionLevel{"alice": domain.PermissionOwner},
		Pages:             []domain.Document{{ID: "orgp", Type: journal.TypePage, Name: "Guild", SheetType: "organization"}},
	})
	for _, e := range []struct{ id, name, sheet string }{
		{"p1", "Zed", "person"},
		{"p2", "Ávila", "person"},
		{"p3", "Bram", "person"},
		{"pl1", "Harbor", "place"},
	} {
		g.add(domain.Document{
			ID: e.id, Type: journal.TypeJournalEntry, Name: e.name + " entry",
			DefaultPermission: domain.PermissionLimited,
			Pages: []domain.Document{{
				ID: e.id + "page", Type: journal.TypePage, ParentID: e.id, Name: e.name, SheetType: e.sheet, Img: e.id + ".png",
			}},
		})
		g.add(domain.Document{
			ID: e.id + "page", Type: journal.TypePage, ParentID: e.id, Name: e.name, SheetType: e.sheet,
			UUID: "JournalEntry." + e.id + ".JournalEntryPage." + e.id + "page",
		})
	}
	g.add(domain.Document{
		ID: "secret", Type: journal.TypeJournalEntry, Name: "Secret",
		DefaultPermission: domain.PermissionNone,
		Pages:             []domain.Document{{ID: "secretpage", Type: journal.TypePage, Name: "Secret", SheetType: "person"}},
	})
	g.add(domain.Document{
		ID: "hero", Type: journal.TypeActor, Name: "Hero",
		Permissions: map[string]domain.PermissionLevel{"alice": domain.PermissionOwner},
	})
	g.add(domain.Document{
		ID: "sword", Type: journal.TypeItem, ParentID: "hero", Name: "Sword", Quantity: 1,
		UUID: "Actor.hero.Item.sword",
	})
	return g
}

func entryRef(id string) journal.Ref {
	return journal.Ref{Type: journal.TypeJournalEntry, ID: id, UUID: "JournalEntry." + id}
}
