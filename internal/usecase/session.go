package usecase

import (
	"context"
	"log/slog"

	"github.com/totegamma/concrnt-journal"
	"github.com/totegamma/concrnt-journal/internal/domain"
)

// Session is the explicit per-call context: who is asking and which graph
// answers.
type Session struct {
	Viewer domain.Viewer
	Graph  DocumentGraph
}

func NewSession(viewer domain.Viewer, graph DocumentGraph) Session {
	return Session{Viewer: viewer, Graph: graph}
}

// CanManage reports whether the viewer holds the GM or owner role on doc.
func (s Session) CanManage(doc domain.Document) bool {
	return s.Viewer.IsGM() || s.Graph.TestPermission(doc, s.Viewer, domain.PermissionOwner)
}

func (s Session) CanView(doc domain.Document) bool {
	return s.Viewer.IsGM() || s.Graph.TestPermission(doc, s.Viewer, domain.PermissionLimited)
}

func (s Session) entry(ctx context.Context, entryID string) (domain.Document, error) {
	return s.Graph.Get(ctx, journal.Ref{Type: journal.TypeJournalEntry, ID: entryID}, journal.TypeJournalEntry, true)
}

func EntryChannel(entryID string) string {
	return "journal:" + entryID
}

func publish(ctx context.Context, signal Publisher, event domain.Event) {
	if signal == nil {
		return
	}
	err := signal.Publish(ctx, EntryChannel(event.EntryID), event)
	if err != nil {
		slog.WarnContext(
			ctx, "failed to publish event",
			slog.String("error", err.Error()),
			slog.String("type", string(event.Type)),
			slog.String("module", "usecase"),
		)
	}
}
