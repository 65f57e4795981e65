package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/auraarchive/aura/internal/app"
	"github.com/auraarchive/aura/internal/backup"
	"github.com/auraarchive/aura/internal/catalog"
)

func replaceParam(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("replace"))
	return v
}

func syncError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrSyncBusy):
		httpError(w, http.StatusConflict, "conflict", "a sync operation is already in progress")
	case errors.Is(err, app.ErrNoCloud):
		httpError(w, http.StatusServiceUnavailable, "not_configured", "cloud backup is not configured")
	case backup.IsAuthError(err):
		httpError(w, http.StatusBadGateway, "authentication_error", "cloud credential rejected: %v", err)
	default:
		httpError(w, http.StatusBadGateway, "api_error", "sync failed: %v", err)
	}
}

func handleSyncPush(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, err := deps.App.SyncPush(r.Context())
		if err != nil {
			syncError(w, err)
			return
		}
		writeJSON(w, map[string]string{
			"status":    "ok",
			"synced_at": ts.Format(time.RFC3339),
		})
	}
}

func handleSyncPull(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := deps.App.SyncPull(r.Context(), replaceParam(r))
		if errors.Is(err, backup.ErrNoBackup) {
			// Valid first-run outcome, not a failure.
			httpError(w, http.StatusNotFound, "not_found", "no cloud backup found")
			return
		}
		if err != nil {
			syncError(w, err)
			return
		}
		writeJSON(w, map[string]any{"status": "ok", "items": count})
	}
}

func handleBackupExport(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items := deps.App.Items()
		if items == nil {
			items = []catalog.Item{}
		}
		data, err := json.MarshalIndent(items, "", "  ")
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to encode catalog: %v", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
		w.Write([]byte("\n"))
	}
}

func handleBackupImport(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxImageBodySize)
		defer r.Body.Close()

		var incoming []catalog.Item
		if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid backup payload: %v", err)
			return
		}

		count, err := deps.App.Import(incoming, replaceParam(r))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to persist imported items: %v", err)
			return
		}
		writeJSON(w, map[string]any{"status": "ok", "items": count})
	}
}
