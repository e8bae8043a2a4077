package rest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/totegamma/concrnt-journal"
	"github.com/totegamma/concrnt-journal/internal/domain"
	"github.com/totegamma/concrnt-journal/internal/infrastructure/localization"
	"github.com/totegamma/concrnt-journal/internal/present/rest/middleware"
	"github.com/totegamma/concrnt-journal/internal/present/rest/presenter"
	"github.com/totegamma/concrnt-journal/internal/service"
	"github.com/totegamma/concrnt-journal/internal/usecase"
)

const maxDropSize = 64 << 10

type Handler struct {
	config        domain.Config
	graph         usecase.DocumentGraph
	catalog       *localization.Catalog
	relationships *usecase.RelationshipUsecase
	offerings     *usecase.OfferingUsecase
	drops         *usecase.DropUsecase
	signal        *service.SignalService
}

func NewHandler(
	config domain.Config,
	graph usecase.DocumentGraph,
	catalog *localization.Catalog,
	relationships *usecase.RelationshipUsecase,
	offerings *usecase.OfferingUsecase,
	drops *usecase.DropUsecase,
	signal *service.SignalService,
) *Handler {
	return &Handler{
		config:        config,
		graph:         graph,
		catalog:       catalog,
		relationships: relationships,
		offerings:     offerings,
		drops:         drops,
		signal:        signal,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo, auth *middleware.AuthMiddleware) {
	g := e.Group("", auth.IdentifyViewer, middleware.RequireViewer)

	g.GET("/entries/:id/relationships", h.handleListRelationships)
	g.POST("/entries/:id/drop", h.handleDrop)
	g.DELETE("/entries/:id/relationships/:rid", h.handleRemoveRelationship)
	g.PUT("/entries/:id/relationships/:rid/hidden", h.handleHideRelationship)
	g.POST("/entries/:id/relationships/submit", h.handleSubmitRelationships)

	g.GET("/entries/:id/offerings", h.handleListOfferings)
	g.POST("/entries/:id/offerings", h.handleCreateOffering)
	g.POST("/offerings/:id/accept", h.handleTransition(h.offerings.Accept))
	g.POST("/offerings/:id/cancel", h.handleTransition(h.offerings.Cancel))
	g.POST("/offerings/:id/reject", h.handleTransition(h.offerings.Reject))
	g.PUT("/offerings/:id/hidden", h.handleHideOffering)

	g.GET("/realtime", h.handleRealtime)
}

func (h *Handler) session(c echo.Context) usecase.Session {
	viewer, _ := middleware.ViewerFrom(c.Request().Context())
	return usecase.NewSession(viewer, h.graph)
}

type relationshipsResponse struct {
	Records []domain.RelationshipRecord `json:"records"`
	Groups  []domain.RelationshipGroup  `json:"groups"`
}

func (h *Handler) handleListRelationships(c echo.Context) error {
	ctx := c.Request().Context()
	s := h.session(c)

	records, err := h.relationships.List(ctx, s, c.Param("id"))
	if err != nil {
		return presenter.Error(c, err)
	}

	groups := usecase.ResolveRelationships(ctx, s, h.catalog.For(s.Viewer.Locale), records)

	// records lists only what survived resolution, in stored order
	resolved := make(map[string]bool)
	for _, g := range groups {
		for _, d := range g.Documents {
			resolved[d.ID] = true
		}
	}
	visible := make([]domain.RelationshipRecord, 0, len(resolved))
	for _, r := range records {
		if resolved[r.ID] {
			visible = append(visible, r)
		}
	}
	return presenter.OK(c, relationshipsResponse{Records: visible, Groups: groups})
}

func (h *Handler) handleDrop(c echo.Context) error {
	ctx := c.Request().Context()

	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxDropSize))
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	result, err := h.drops.Ingest(ctx, h.session(c), c.Param("id"), raw)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, result)
}

func (h *Handler) handleRemoveRelationship(c echo.Context) error {
	ctx := c.Request().Context()

	err := h.relationships.Remove(ctx, h.session(c), c.Param("id"), c.Param("rid"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"status": "ok"})
}

type hiddenRequest struct {
	Hidden bool `json:"hidden"`
}

func (h *Handler) handleHideRelationship(c echo.Context) error {
	ctx := c.Request().Context()

	var req hiddenRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	record, err := h.relationships.SetHidden(ctx, h.session(c), c.Param("id"), c.Param("rid"), req.Hidden)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, record)
}

type submitRequest struct {
	Relationships map[string]domain.RelationshipPatch `json:"relationships"`
}

func (h *Handler) handleSubmitRelationships(c echo.Context) error {
	ctx := c.Request().Context()

	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	records, err := h.relationships.MergeSubmittedFields(ctx, h.session(c), c.Param("id"), req.Relationships)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, records)
}

func (h *Handler) handleListOfferings(c echo.Context) error {
	ctx := c.Request().Context()

	offerings, err := h.offerings.List(ctx, h.session(c), c.Param("id"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, offerings)
}

type createOfferingRequest struct {
	Proposer string                `json:"proposer"`
	Items    []domain.OfferingItem `json:"items"`
	Hidden   bool                  `json:"hidden"`
}

func (h *Handler) handleCreateOffering(c echo.Context) error {
	ctx := c.Request().Context()

	var req createOfferingRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}
	if req.Proposer == "" {
		return presenter.BadRequestMessage(c, "proposer is required")
	}

	offering, err := h.offerings.Create(ctx, h.session(c), domain.OfferingRecord{
		Proposer:  journal.Ref{Type: journal.TypeActor, ID: req.Proposer},
		Recipient: journal.Ref{Type: journal.TypeJournalEntry, ID: c.Param("id")},
		Items:     req.Items,
		Hidden:    req.Hidden,
	})
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Created(c, offering)
}

type transitionFunc func(ctx context.Context, s usecase.Session, id string) (domain.OfferingRecord, error)

func (h *Handler) handleTransition(fn transitionFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		offering, err := fn(c.Request().Context(), h.session(c), c.Param("id"))
		if err != nil {
			return presenter.Error(c, err)
		}
		return presenter.OK(c, offering)
	}
}

func (h *Handler) handleHideOffering(c echo.Context) error {
	ctx := c.Request().Context()

	var req hiddenRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	offering, err := h.offerings.SetHidden(ctx, h.session(c), c.Param("id"), req.Hidden)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, offering)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Request struct {
	Type    string   `json:"type"`
	Entries []string `json:"entries"`
}

// listenable keeps the entries the viewer may see and maps them to their
// event channels.
func (h *Handler) listenable(ctx context.Context, s usecase.Session, entries []string) []string {
	channels := make([]string, 0, len(entries))
	for _, id := range entries {
		entry, err := s.Graph.Get(ctx, journal.Ref{Type: journal.TypeJournalEntry, ID: id}, journal.TypeJournalEntry, s.Viewer.IsGM())
		if err != nil || !s.CanView(entry) {
			continue
		}
		channels = append(channels, usecase.EntryChannel(id))
	}
	return channels
}

func (h *Handler) handleRealtime(c echo.Context) error {
	if h.signal == nil {
		return presenter.NotFound(c, "realtime is disabled")
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}
	defer func() {
		ws.Close()
	}()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()
	s := h.session(c)

	input := make(chan []string)
	output := make(chan domain.Event)

	go h.signal.Realtime(ctx, input, output)

	quit := make(chan struct{})

	go func() {
		defer close(quit)
		for {
			var req Request
			err := ws.ReadJSON(&req)
			if err != nil {

				wsErr, ok := err.(*websocket.CloseError)
				if ok {
					if !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
						slog.DebugContext(
							ctx, "WebSocket closed",
							slog.String("error", wsErr.Error()),
							slog.String("module", "socket"),
						)
					}
				} else {
					slog.ErrorContext(
						ctx, "Error reading message",
						slog.String("error", err.Error()),
						slog.String("module", "socket"),
					)
				}
				return
			}

			switch req.Type {
			case "listen":
				channels := h.listenable(ctx, s, req.Entries)
				select {
				case input <- channels:
				case <-ctx.Done():
					return
				}
				slog.DebugContext(
					ctx, fmt.Sprintf("Socket subscribe: %s", channels),
					slog.String("module", "socket"),
				)
			case "h": // heartbeat
				// do nothing
			default:
				slog.InfoContext(
					ctx, "Unknown request type",
					slog.String("type", req.Type),
					slog.String("module", "socket"),
				)
			}
		}
	}()

	for {
		select {
		case <-quit:
			return nil
		case event := <-output:
			err := ws.WriteJSON(event)
			if err != nil {
				slog.ErrorContext(
					ctx, "Error writing message",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return nil
			}
		}
	}
}
