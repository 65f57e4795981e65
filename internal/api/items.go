// Package api exposes the catalog over a localhost HTTP surface and an MCP
// stdio server. The API is a thin translation layer: all semantics live in
// the application controller, handlers only map requests and errors.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/auraarchive/aura/internal/app"
	"github.com/auraarchive/aura/internal/catalog"
	"github.com/auraarchive/aura/internal/enrich"
)

// Bodies carrying inline base64 images get headroom; everything else is
// JSON small enough for the 1MB default.
const (
	maxRequestBodySize = 1 << 20  // 1MB
	maxImageBodySize   = 15 << 20 // 15MB
)

type Deps struct {
	App     *app.App
	Token   string
	Version string
}

func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/status", handleStatus(deps))

		r.Route("/items", func(r chi.Router) {
			r.Get("/", handleListItems(deps))
			r.Post("/", handleSaveItem(deps))
			r.Post("/import", handleImportCandidates(deps))
			r.Get("/{id}", handleGetItem(deps))
			r.Put("/{id}", handleUpdateItem(deps))
			r.Delete("/{id}", handleDeleteItem(deps))
			r.Get("/{id}/advice", handleAdvice(deps))
			r.Post("/{id}/analysis", handleApplyAnalysis(deps))
		})

		r.Post("/sync/push", handleSyncPush(deps))
		r.Post("/sync/pull", handleSyncPull(deps))
		r.Get("/backup/export", handleBackupExport(deps))
		r.Post("/backup/import", handleBackupImport(deps))
		r.Post("/enrich/analyze", handleAnalyze(deps))
		r.Post("/enrich/receipt", handleReceipt(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func handleStatus(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var lastSynced string
		if ts := deps.App.LastSynced(); !ts.IsZero() {
			lastSynced = ts.Format(time.RFC3339)
		}
		writeJSON(w, map[string]any{
			"version":          deps.Version,
			"items":            deps.App.Count(),
			"cloud_configured": deps.App.CloudConfigured(),
			"connected":        deps.App.Connected(),
			"last_synced":      lastSynced,
		})
	}
}

func handleListItems(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		f := catalog.Filter{
			Type:     catalog.ItemType(q.Get("type")),
			Search:   q.Get("q"),
			Color:    q.Get("color"),
			Category: q.Get("category"),
			Season:   catalog.Season(q.Get("season")),
		}
		if raw := q.Get("status"); raw != "" {
			for _, s := range strings.Split(raw, ",") {
				if s = strings.TrimSpace(s); s != "" {
					f.Statuses = append(f.Statuses, catalog.RefillStatus(s))
				}
			}
		}

		items := deps.App.Filtered(f)
		if items == nil {
			items = []catalog.Item{}
		}
		writeJSON(w, items)
	}
}

func decodeItem(w http.ResponseWriter, r *http.Request) (catalog.Item, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBodySize)
	defer r.Body.Close()

	var it catalog.Item
	if err := json.NewDecoder(r.Body).Decode(&it); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return catalog.Item{}, false
	}
	if it.Name == "" {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "name is required")
		return catalog.Item{}, false
	}
	if it.Type != catalog.TypeClothing && it.Type != catalog.TypeBeauty {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "type must be %q or %q", catalog.TypeClothing, catalog.TypeBeauty)
		return catalog.Item{}, false
	}
	return it, true
}

func handleSaveItem(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		it, ok := decodeItem(w, r)
		if !ok {
			return
		}
		stored, err := deps.App.Save(it)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to persist item: %v", err)
			return
		}
		writeJSON(w, stored)
	}
}

func handleGetItem(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		it, err := deps.App.Get(chi.URLParam(r, "id"))
		if errors.Is(err, app.ErrItemNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "item not found")
			return
		}
		writeJSON(w, it)
	}
}

func handleUpdateItem(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := deps.App.Get(id); errors.Is(err, app.ErrItemNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "item not found")
			return
		}
		it, ok := decodeItem(w, r)
		if !ok {
			return
		}
		it.ID = id
		stored, err := deps.App.Save(it)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to persist item: %v", err)
			return
		}
		writeJSON(w, stored)
	}
}

func handleDeleteItem(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := deps.App.Delete(chi.URLParam(r, "id"))
		if errors.Is(err, app.ErrItemNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "item not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete item: %v", err)
			return
		}
		writeJSON(w, map[string]string{"status": "deleted"})
	}
}

func handleAdvice(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		advice, err := deps.App.Advice(r.Context(), chi.URLParam(r, "id"))
		switch {
		case errors.Is(err, app.ErrItemNotFound):
			httpError(w, http.StatusNotFound, "not_found", "item not found")
		case errors.Is(err, app.ErrNoEnricher):
			httpError(w, http.StatusServiceUnavailable, "not_configured", "enrichment is not configured")
		case err != nil:
			httpError(w, http.StatusBadGateway, "api_error", "advice request failed: %v", err)
		default:
			writeJSON(w, map[string]string{"advice": advice})
		}
	}
}

func handleApplyAnalysis(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var an enrich.Analysis
		if err := json.NewDecoder(r.Body).Decode(&an); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		stored, err := deps.App.ApplyAnalysis(chi.URLParam(r, "id"), an)
		if errors.Is(err, app.ErrItemNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "item not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to persist item: %v", err)
			return
		}
		writeJSON(w, stored)
	}
}

func handleImportCandidates(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req struct {
			Candidates []enrich.Candidate `json:"candidates"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if len(req.Candidates) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "candidates is required and must not be empty")
			return
		}

		created, err := deps.App.ImportCandidates(req.Candidates)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to persist items: %v", err)
			return
		}
		writeJSON(w, map[string]any{"created": created})
	}
}
