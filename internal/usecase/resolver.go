package usecase

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/totegamma/concrnt-journal"
	"github.com/totegamma/concrnt-journal/internal/domain"
)

const labelKeyPrefix = "EnhancedJournal."

// ResolveRelationships derives the viewer's grouped view of records. Records
// whose target is missing, not visible to the viewer, or hidden from a
// non-GM are left out. Input records are not modified and nothing is cached.
func ResolveRelationships(ctx context.Context, s Session, loc Localizer, records []domain.RelationshipRecord) []domain.RelationshipGroup {
	ctx, span := tracer.Start(ctx, "Relationship.Resolve")
	defer span.End()

	groups := make([]domain.RelationshipGroup, 0)
	index := make(map[string]int)

	for _, record := range records {
		if record.Hidden && !s.Viewer.IsGM() {
			continue
		}

		target, err := s.Graph.Get(ctx, record.Target, journal.TypeJournalEntry, false)
		if err != nil {
			slog.DebugContext(
				ctx, "relationship target unresolved",
				slog.String("target", record.Target.ID),
				slog.String("error", err.Error()),
				slog.String("module", "resolver"),
			)
			continue
		}
		if !s.Graph.TestPermission(target, s.Viewer, domain.PermissionLimited) {
			continue
		}

		display := target.Display()
		effectiveType := display.SheetType

		resolved := record
		resolved.CachedName = display.Name
		resolved.CachedImg = display.Img
		resolved.CachedType = effectiveType

		i, ok := index[effectiveType]
		if !ok {
			i = len(groups)
			index[effectiveType] = i
			groups = append(groups, domain.RelationshipGroup{
				EffectiveType: effectiveType,
				Label:         loc.Translate(labelKeyPrefix + strings.ToLower(effectiveType)),
			})
		}
		groups[i].Documents = append(groups[i].Documents, resolved)
	}

	col := collate.New(viewerLanguage(s.Viewer))
	for i := range groups {
		docs := groups[i].Documents
		sort.SliceStable(docs, func(a, b int) bool {
			c := col.CompareString(docs[a].CachedName, docs[b].CachedName)
			if c != 0 {
				return c < 0
			}
			return docs[a].ID < docs[b].ID
		})
	}

	return groups
}

func viewerLanguage(v domain.Viewer) language.Tag {
	if v.Locale == "" {
		return language.English
	}
	tags, _, err := language.ParseAcceptLanguage(v.Locale)
	if err != nil || len(tags) == 0 {
		return language.English
	}
	return tags[0]
}
