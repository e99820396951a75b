package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/bare-gateway/internal/api/middleware"
	"github.com/tjfontaine/bare-gateway/internal/core/domain"
	"github.com/tjfontaine/bare-gateway/internal/core/ports"
)

// Dispatcher runs a raw message through the server pipeline.
type Dispatcher interface {
	Dispatch(ctx context.Context, raw any) (domain.Response, error)
}

// Catalog lists the registered backends.
type Catalog interface {
	Aliases() []string
	GetBackend(alias string) (ports.Backend, bool)
}

// HandlerConfig wires a Handler. Catalog and Events are optional; without
// them the matching listing endpoint answers 501.
type HandlerConfig struct {
	Dispatcher Dispatcher
	Catalog    Catalog
	Events     ports.EventStore
	Logger     *slog.Logger
}

type Handler struct {
	dispatcher Dispatcher
	catalog    Catalog
	events     ports.EventStore
	logger     *slog.Logger
}

func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		dispatcher: cfg.Dispatcher,
		catalog:    cfg.Catalog,
		events:     cfg.Events,
		logger:     logger,
	}
}

// Routes mounts the frontdoor endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/v1/dispatch", h.HandleDispatch)
	r.Post("/v1/backends/{alias}", h.HandleDispatch)
	r.Get("/v1/backends", h.HandleListBackends)
	r.Get("/v1/events", h.HandleListEvents)
}

// HandleDispatch hands the request to the pipeline. When the pipeline fails
// before anything was written, the error is rendered here.
func (h *Handler) HandleDispatch(w http.ResponseWriter, r *http.Request) {
	ex := &Exchange{W: w, R: r, Alias: chi.URLParam(r, "alias")}
	middleware.AddLogField(r.Context(), "alias", ex.Alias)

	resp, err := h.dispatcher.Dispatch(r.Context(), ex)
	if err != nil {
		middleware.AddError(r.Context(), err)
		if !ex.Sent() {
			WriteError(w, r, err)
		}
		return
	}
	if !ex.Sent() {
		writeJSON(w, http.StatusOK, Envelope{ID: middleware.GetRequestID(r.Context()), Response: resp})
	}
}

// BackendInfo describes one alias in the backend listing.
type BackendInfo struct {
	Alias   string `json:"alias"`
	Backend string `json:"backend"`
}

func (h *Handler) HandleListBackends(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		WriteError(w, r, domain.NotImplemented("backend listing"))
		return
	}

	aliases := h.catalog.Aliases()
	out := make([]BackendInfo, 0, len(aliases))
	for _, alias := range aliases {
		info := BackendInfo{Alias: alias}
		if b, ok := h.catalog.GetBackend(alias); ok {
			info.Backend = b.Name()
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

// HandleListEvents lists recorded events newest first. Query parameters:
// request_id, type, alias, limit, offset.
func (h *Handler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		WriteError(w, r, domain.NotImplemented("event listing"))
		return
	}

	q := r.URL.Query()
	opts := ports.EventListOptions{
		RequestID: q.Get("request_id"),
		Type:      domain.EventType(q.Get("type")),
		Alias:     q.Get("alias"),
	}
	var err error
	if opts.Limit, err = intParam(q.Get("limit")); err != nil {
		WriteError(w, r, err)
		return
	}
	if opts.Offset, err = intParam(q.Get("offset")); err != nil {
		WriteError(w, r, err)
		return
	}

	events, err := h.events.ListEvents(r.Context(), opts)
	if err != nil {
		h.logger.Error("failed to list events", slog.String("error", err.Error()))
		middleware.AddError(r.Context(), err)
		writeJSON(w, http.StatusInternalServerError, ErrorBody{Error: ErrorDetail{
			Type:    "storage",
			Message: "failed to list events",
		}})
		return
	}
	if events == nil {
		events = []*domain.EventRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": events})
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: expected a non-negative integer, got %q", domain.ErrInvalidRequest, v)
	}
	return n, nil
}
