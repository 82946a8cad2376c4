package api

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// Asset endpoints: the request body is streamed to the blob store and the
// generated locator is stored in the record's asset field. The filename
// comes from the X-File-Name header when the client sends one.

func (h *ResourceHandler) attachAsset(entity string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}
		field := chi.URLParam(r, "field")

		rec, err := h.service.AttachAsset(r.Context(), entity, id, field,
			r.Header.Get("X-File-Name"), r.Body)
		if err != nil {
			h.renderError(w, r, entity, err)
			return
		}

		slog.Info("asset attached", "entity", entity, "id", id, "field", field)
		render.JSON(w, r, rec)
	}
}

func (h *ResourceHandler) downloadAsset(entity string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}
		field := chi.URLParam(r, "field")

		body, err := h.service.OpenAsset(r.Context(), entity, id, field)
		if err != nil {
			h.renderError(w, r, entity, err)
			return
		}
		defer body.Close()

		w.Header().Set("Content-Type", "application/octet-stream")
		if _, err := io.Copy(w, body); err != nil {
			slog.Error("asset download interrupted", "entity", entity, "id", id, "err", err)
		}
	}
}
