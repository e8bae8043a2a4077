package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/text/language"

	"github.com/totegamma/concrnt-journal"
	"github.com/totegamma/concrnt-journal/internal/domain"
	"github.com/totegamma/concrnt-journal/internal/infrastructure/cache"
	"github.com/totegamma/concrnt-journal/internal/infrastructure/database"
	"github.com/totegamma/concrnt-journal/internal/infrastructure/gateway"
	"github.com/totegamma/concrnt-journal/internal/infrastructure/localization"
	"github.com/totegamma/concrnt-journal/internal/infrastructure/repository"
	"github.com/totegamma/concrnt-journal/internal/present/rest/middleware"
	"github.com/totegamma/concrnt-journal/internal/service"
	"github.com/totegamma/concrnt-journal/internal/usecase"
)

var testConfig = domain.Config{FQDN: "journal.test", JwtSecret: "test-secret"}

type testServer struct {
	e    *echo.Echo
	auth *service.AuthService
	repo *repository.DocumentRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.NewSqlite(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	docCache := cache.NewDocumentCache(nil, time.Minute)
	repo := repository.NewDocumentRepository(db, docCache)
	ctx := context.Background()
	docs := []domain.Document{
		{ID: "org", Type: journal.TypeJournalEntry, Name: "Guild", DefaultPermission: domain.PermissionLimited,
			Permissions: map[string]domain.PermissionLevel{"alice": domain.PermissionOwner}},
		{ID: "orgp", Type: journal.TypePage, ParentID: "org", Name: "Guild", SheetType: "organization"},
		{ID: "p1", Type: journal.TypeJournalEntry, Name: "Zed", DefaultPermission: domain.PermissionLimited},
		{ID: "p1p", Type: journal.TypePage, ParentID: "p1", Name: "Zed", SheetType: "person", Img: "zed.png"},
		{ID: "hero", Type: journal.TypeActor, Name: "Hero",
			Permissions: map[string]domain.PermissionLevel{"alice": domain.PermissionOwner}},
		{ID: "sword", Type: journal.TypeItem, ParentID: "hero", Name: "Sword", Quantity: 1},
		{ID: "secret", Type: journal.TypeJournalEntry, Name: "Secret"},
		{ID: "secretp", Type: journal.TypePage, ParentID: "secret", Name: "Secret", SheetType: "person"},
		{ID: "villain", Type: journal.TypeActor, Name: "Villain"},
		{ID: "gem", Type: journal.TypeItem, ParentID: "villain", Name: "Gem", Quantity: 1},
	}
	for _, d := range docs {
		if err := repo.Put(ctx, d); err != nil {
			t.Fatalf("put %s: %v", d.ID, err)
		}
	}

	catalog := localization.NewCatalog(language.English)
	if err := catalog.Add(language.English, []byte("EnhancedJournal:\n  person: People\n")); err != nil {
		t.Fatalf("catalog: %v", err)
	}

	relUC := usecase.NewRelationshipUsecase(nil)
	offUC := usecase.NewOfferingUsecase(gateway.NewTransferGateway(db, docCache), nil)
	dropUC := usecase.NewDropUsecase(relUC, offUC)
	auth := service.NewAuthService(testConfig)

	h := NewHandler(testConfig, repo, catalog, relUC, offUC, dropUC, nil)
	e := echo.New()
	h.RegisterRoutes(e, middleware.NewAuthMiddleware(auth))

	return &testServer{e: e, auth: auth, repo: repo}
}

func (ts *testServer) do(t *testing.T, viewer *domain.Viewer, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if viewer != nil {
		token, err := ts.auth.Issue(*viewer, time.Hour)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

var (
	alice = &domain.Viewer{ID: "alice", Name: "Alice", Role: domain.RolePlayer}
	bob   = &domain.Viewer{ID: "bob", Name: "Bob", Role: domain.RolePlayer}
	gm    = &domain.Viewer{ID: "gm", Name: "GM", Role: domain.RoleGM}
)

func TestRequiresAuthentication(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, nil, http.MethodGet, "/entries/org/relationships", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestDropAndListRelationships(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, alice, http.MethodPost, "/entries/org/drop", `{"type":"JournalEntry","uuid":"JournalEntry.p1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("drop failed %d: %s", rec.Code, rec.Body.String())
	}
	var result usecase.DropResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode drop: %v", err)
	}
	if result.Kind != domain.DropKindContainer || !result.Added {
		t.Fatalf("unexpected drop result %+v", result)
	}

	rec = ts.do(t, bob, http.MethodGet, "/entries/org/relationships", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list failed %d: %s", rec.Code, rec.Body.String())
	}
	var resp relationshipsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(resp.Groups) != 1 || resp.Groups[0].Label != "People" || resp.Groups[0].Documents[0].CachedImg != "zed.png" {
		t.Fatalf("unexpected groups %+v", resp.Groups)
	}

	rec = ts.do(t, bob, http.MethodPost, "/entries/org/drop", `{"type":"JournalEntry","uuid":"JournalEntry.p1"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner drop got %d", rec.Code)
	}

	rec = ts.do(t, alice, http.MethodPost, "/entries/org/drop", `not json`)
	if rec.Code != http.StatusOK {
		t.Fatalf("malformed drop should be a no-op, got %d", rec.Code)
	}
}

func TestHideAndSubmitRelationships(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, alice, http.MethodPost, "/entries/org/drop", `{"type":"JournalEntry","id":"p1"}`)
	var result usecase.DropResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil || result.Relationship == nil {
		t.Fatalf("drop failed: %s", rec.Body.String())
	}
	rid := result.Relationship.ID

	rec = ts.do(t, alice, http.MethodPut, "/entries/org/relationships/"+rid+"/hidden", `{"hidden":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("hide failed %d: %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, bob, http.MethodGet, "/entries/org/relationships", "")
	var resp relationshipsResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Groups) != 0 || len(resp.Records) != 0 {
		t.Fatalf("hidden relationship leaked to player: %+v", resp)
	}

	rec = ts.do(t, gm, http.MethodGet, "/entries/org/relationships", "")
	resp = relationshipsResponse{}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Groups) != 1 {
		t.Fatalf("gm should see hidden relationship: %+v", resp)
	}

	rec = ts.do(t, alice, http.MethodPost, "/entries/org/relationships/submit",
		`{"relationships":{"`+rid+`":{"hidden":false,"relationship":"rival"}}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit failed %d: %s", rec.Code, rec.Body.String())
	}
	stored, err := ts.repo.Relationships(context.Background(), "org")
	if err != nil || len(stored) != 1 || stored[0].Hidden || stored[0].Relationship != "rival" {
		t.Fatalf("unexpected stored records %+v (%v)", stored, err)
	}

	rec = ts.do(t, alice, http.MethodDelete, "/entries/org/relationships/"+rid, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("remove failed %d: %s", rec.Code, rec.Body.String())
	}
	rec = ts.do(t, alice, http.MethodDelete, "/entries/org/relationships/"+rid, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second remove got %d", rec.Code)
	}
}

func TestOfferingLifecycle(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, alice, http.MethodPost, "/entries/org/drop", `{"type":"Item","uuid":"Actor.hero.Item.sword"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("item drop failed %d: %s", rec.Code, rec.Body.String())
	}
	var result usecase.DropResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil || result.Offering == nil || !result.Review {
		t.Fatalf("unexpected drop result %s", rec.Body.String())
	}
	id := result.Offering.ID

	rec = ts.do(t, bob, http.MethodPost, "/offerings/"+id+"/accept", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}

	rec = ts.do(t, gm, http.MethodPost, "/offerings/"+id+"/accept", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("accept failed %d: %s", rec.Code, rec.Body.String())
	}
	var accepted domain.OfferingRecord
	_ = json.Unmarshal(rec.Body.Bytes(), &accepted)
	if accepted.State != domain.OfferingAccepted {
		t.Fatalf("unexpected state %s", accepted.State)
	}

	rec = ts.do(t, gm, http.MethodPost, "/offerings/"+id+"/cancel", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on terminal transition got %d", rec.Code)
	}

	rec = ts.do(t, alice, http.MethodGet, "/entries/org/offerings", "")
	var list []domain.OfferingRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil || len(list) != 1 {
		t.Fatalf("unexpected offerings %s", rec.Body.String())
	}
}

func TestCreateOfferingValidation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, alice, http.MethodPost, "/entries/org/offerings", `{"items":[{"itemId":"sword"}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without proposer got %d", rec.Code)
	}

	rec = ts.do(t, alice, http.MethodPost, "/entries/org/offerings", `{"proposer":"hero","items":[{"itemId":"sword","qty":-2}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative quantity got %d", rec.Code)
	}

	rec = ts.do(t, alice, http.MethodPost, "/entries/org/offerings", `{"proposer":"hero","hidden":true,"items":[{"itemId":"sword"}]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create failed %d: %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, bob, http.MethodGet, "/entries/org/offerings", "")
	var list []domain.OfferingRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil || len(list) != 0 {
		t.Fatalf("hidden offering leaked to player: %s", rec.Body.String())
	}
}

func TestListRelationshipsOmitsUnviewableTargets(t *testing.T) {
	ts := newTestServer(t)

	for _, body := range []string{`{"type":"JournalEntry","id":"secret"}`, `{"type":"JournalEntry","id":"p1"}`} {
		rec := ts.do(t, gm, http.MethodPost, "/entries/org/drop", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("drop failed %d: %s", rec.Code, rec.Body.String())
		}
	}

	rec := ts.do(t, bob, http.MethodGet, "/entries/org/relationships", "")
	var resp relationshipsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(resp.Records) != 1 || resp.Records[0].Target.ID != "p1" {
		t.Fatalf("unviewable target leaked to player: %s", rec.Body.String())
	}

	rec = ts.do(t, gm, http.MethodGet, "/entries/org/relationships", "")
	resp = relationshipsResponse{}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Records) != 2 {
		t.Fatalf("gm should see both records: %s", rec.Body.String())
	}
}

func TestDropMismatchedIdentityIsIgnored(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, alice, http.MethodPost, "/entries/org/drop", `{"type":"JournalEntry","id":"bogus","uuid":"JournalEntry.p1"}`)
	var result usecase.DropResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil || result.Kind != domain.DropKindUnknown {
		t.Fatalf("expected unknown drop got %s", rec.Body.String())
	}

	for i := 0; i < 2; i++ {
		rec = ts.do(t, alice, http.MethodPost, "/entries/org/drop", `{"type":"JournalEntry","id":"p1","uuid":"JournalEntry.p1"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("drop failed %d: %s", rec.Code, rec.Body.String())
		}
	}
	rec = ts.do(t, alice, http.MethodPost, "/entries/org/drop", `{"type":"JournalEntry","id":"nobody"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a missing target got %d", rec.Code)
	}

	stored, err := ts.repo.Relationships(context.Background(), "org")
	if err != nil || len(stored) != 1 {
		t.Fatalf("expected a single record got %+v (%v)", stored, err)
	}
}

func TestOfferingForeignItemRejected(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, alice, http.MethodPost, "/entries/org/offerings", `{"proposer":"hero","items":[{"itemId":"gem"}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an item the proposer does not hold got %d: %s", rec.Code, rec.Body.String())
	}
	if _, err := ts.repo.Get(context.Background(), journal.Ref{ID: "gem"}, journal.TypeItem, true); err != nil {
		t.Fatalf("gem should stay with its owner: %v", err)
	}
}

func TestHideSettledOfferingConflicts(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, alice, http.MethodPost, "/entries/org/offerings", `{"proposer":"hero","items":[{"itemId":"sword"}]}`)
	var created domain.OfferingRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil || created.ID == "" {
		t.Fatalf("create failed: %s", rec.Body.String())
	}

	rec = ts.do(t, alice, http.MethodPost, "/offerings/"+created.ID+"/reject", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("reject failed %d: %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, alice, http.MethodPut, "/offerings/"+created.ID+"/hidden", `{"hidden":true}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 hiding a settled offering got %d", rec.Code)
	}
}
