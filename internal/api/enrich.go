package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/auraarchive/aura/internal/app"
	"github.com/auraarchive/aura/internal/catalog"
	"github.com/auraarchive/aura/internal/enrich"
)

func enrichError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrNoEnricher):
		httpError(w, http.StatusServiceUnavailable, "not_configured", "enrichment is not configured")
	case enrich.IsAuthError(err):
		httpError(w, http.StatusBadGateway, "authentication_error", "enrichment credential rejected: %v", err)
	default:
		httpError(w, http.StatusBadGateway, "api_error", "enrichment failed: %v", err)
	}
}

func handleAnalyze(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxImageBodySize)
		var req struct {
			Image string           `json:"image"`
			Type  catalog.ItemType `json:"type"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Image == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "image is required")
			return
		}
		if req.Type == "" {
			req.Type = catalog.TypeClothing
		}

		analysis, err := deps.App.AnalyzeItem(r.Context(), req.Image, req.Type)
		if err != nil {
			enrichError(w, err)
			return
		}
		writeJSON(w, analysis)
	}
}

// handleReceipt accepts exactly one of image (base64 photo), text (raw
// receipt text) or pdf (base64 document) and returns staged candidates. The
// candidates are not added to the catalog; the client confirms a subset via
// POST /items/import.
func handleReceipt(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxImageBodySize)
		var req struct {
			Image string `json:"image"`
			Text  string `json:"text"`
			PDF   string `json:"pdf"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		var (
			cands []enrich.Candidate
			err   error
		)
		switch {
		case req.Image != "" && req.Text == "" && req.PDF == "":
			cands, err = deps.App.ExtractReceiptImage(r.Context(), req.Image)
		case req.Text != "" && req.Image == "" && req.PDF == "":
			cands, err = deps.App.ExtractReceiptText(r.Context(), req.Text)
		case req.PDF != "" && req.Image == "" && req.Text == "":
			var data []byte
			data, err = base64.StdEncoding.DecodeString(req.PDF)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid base64 pdf content")
				return
			}
			cands, err = deps.App.ExtractReceiptPDF(r.Context(), data)
		default:
			httpError(w, http.StatusBadRequest, "invalid_request_error", "exactly one of image, text or pdf is required")
			return
		}
		if err != nil {
			enrichError(w, err)
			return
		}

		if cands == nil {
			cands = []enrich.Candidate{}
		}
		writeJSON(w, map[string]any{"candidates": cands})
	}
}
