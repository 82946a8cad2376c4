package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-cms/pkg/simplecms"
)

// ResourceHandler serves every registered entity through the same generic
// routes. Per-resource controllers are routing glue; all behavior lives in
// the simplecms service.
type ResourceHandler struct {
	service simplecms.Service
}

// NewResourceHandler creates a handler over the service's registry.
func NewResourceHandler(service simplecms.Service) *ResourceHandler {
	return &ResourceHandler{service: service}
}

// Routes returns the routes for every registered resource.
func (h *ResourceHandler) Routes() chi.Router {
	r := chi.NewRouter()

	for _, entity := range h.service.Registry().Names() {
		r.Route("/"+entity, func(r chi.Router) {
			r.Get("/", h.list(entity))
			r.Post("/", h.create(entity))
			r.Put("/reorder", h.reorder(entity))
			r.Get("/{id}", h.get(entity))
			r.Put("/{id}", h.update(entity))
			r.Delete("/{id}", h.delete(entity))

			r.Put("/{id}/assets/{field}", h.attachAsset(entity))
			r.Get("/{id}/assets/{field}", h.downloadAsset(entity))
		})
	}

	return r
}

// ListResponse is the discoverability envelope of a listing call.
type ListResponse struct {
	Data  []simplecms.Record  `json:"data"`
	Meta  simplecms.PageMeta  `json:"meta"`
	Links simplecms.PageLinks `json:"links"`
}

// ReorderRequest is the request body for reordering a collection.
type ReorderRequest struct {
	Items []ReorderItem `json:"items"`
}

// ReorderItem names one row; list index defines its new position.
type ReorderItem struct {
	ID int64 `json:"id"`
}

// ErrorResponse is the structured failure body: which precondition failed
// and, when one is involved, the offending id.
type ErrorResponse struct {
	Error string `json:"error"`
	ID    int64  `json:"id,omitempty"`
}

func (h *ResourceHandler) list(entity string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := simplecms.ParsePageRequest(r.URL.Query())

		page, err := h.service.List(r.Context(), entity, req)
		if err != nil {
			h.renderError(w, r, entity, err)
			return
		}

		meta, links := simplecms.BuildEnvelope(r.URL.Path, req, page.Total)
		render.JSON(w, r, ListResponse{Data: page.Data, Meta: meta, Links: links})
	}
}

func (h *ResourceHandler) get(entity string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}

		rec, err := h.service.Get(r.Context(), entity, id)
		if err != nil {
			h.renderError(w, r, entity, err)
			return
		}
		render.JSON(w, r, rec)
	}
}

func (h *ResourceHandler) create(entity string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var fields simplecms.Record
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, ErrorResponse{Error: "invalid request body"})
			return
		}

		rec, err := h.service.Create(r.Context(), entity, fields)
		if err != nil {
			h.renderError(w, r, entity, err)
			return
		}

		slog.Info("record created", "entity", entity, "id", rec.ID())
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, rec)
	}
}

func (h *ResourceHandler) update(entity string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}

		var fields simplecms.Record
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, ErrorResponse{Error: "invalid request body"})
			return
		}

		rec, err := h.service.Update(r.Context(), entity, id, fields)
		if err != nil {
			h.renderError(w, r, entity, err)
			return
		}
		render.JSON(w, r, rec)
	}
}

func (h *ResourceHandler) delete(entity string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}

		result, err := h.service.Delete(r.Context(), entity, id)
		if err != nil {
			h.renderError(w, r, entity, err)
			return
		}
		render.JSON(w, r, result)
	}
}

func (h *ResourceHandler) reorder(entity string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReorderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, ErrorResponse{Error: "invalid request body"})
			return
		}

		ids := make([]int64, len(req.Items))
		for i, item := range req.Items {
			ids[i] = item.ID
		}

		rows, err := h.service.Reorder(r.Context(), entity, simplecms.ReorderRequest{IDs: ids})
		if err != nil {
			h.renderError(w, r, entity, err)
			return
		}

		slog.Info("collection reordered", "entity", entity, "rows", len(rows))
		render.JSON(w, r, map[string]any{"data": rows})
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "invalid id"})
		return 0, false
	}
	return id, true
}

func (h *ResourceHandler) renderError(w http.ResponseWriter, r *http.Request, entity string, err error) {
	var reorderErr *simplecms.ReorderError
	if errors.As(err, &reorderErr) {
		status := http.StatusBadRequest
		if errors.Is(reorderErr.Err, simplecms.ErrRecordNotFound) {
			status = http.StatusNotFound
		}
		render.Status(r, status)
		render.JSON(w, r, ErrorResponse{Error: reorderErr.Err.Error(), ID: reorderErr.ID})
		return
	}

	switch {
	case errors.Is(err, simplecms.ErrNotAssetField):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: err.Error()})
	case errors.Is(err, simplecms.ErrEntityNotFound),
		errors.Is(err, simplecms.ErrRecordNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse{Error: "not found"})
	default:
		slog.Error("resource operation failed", "entity", entity, "err", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "internal error"})
	}
}
