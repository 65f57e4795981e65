package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/auraarchive/aura/internal/app"
	"github.com/auraarchive/aura/internal/catalog"
	"github.com/auraarchive/aura/internal/enrich"
	"github.com/auraarchive/aura/internal/merge"
	"github.com/auraarchive/aura/internal/storage"
)

const testToken = "test-token-12345"

// --- mocks ---

type mockCloud struct {
	stored  []catalog.Item
	pushErr error
	pullErr error

	block   bool
	started chan struct{}
	release chan struct{}
}

func (m *mockCloud) Push(ctx context.Context, items []catalog.Item) (time.Time, error) {
	if m.block {
		m.started <- struct{}{}
		<-m.release
	}
	if m.pushErr != nil {
		return time.Time{}, m.pushErr
	}
	m.stored = append([]catalog.Item(nil), items...)
	return time.Now(), nil
}

func (m *mockCloud) Pull(ctx context.Context) ([]catalog.Item, error) {
	if m.pullErr != nil {
		return nil, m.pullErr
	}
	return append([]catalog.Item(nil), m.stored...), nil
}

func (m *mockCloud) Available() bool { return true }

type mockEnricher struct {
	analysis   enrich.Analysis
	candidates []enrich.Candidate
	advice     string
	err        error
}

func (m *mockEnricher) AnalyzeItem(_ context.Context, _ string, _ catalog.ItemType) (enrich.Analysis, error) {
	return m.analysis, m.err
}

func (m *mockEnricher) ExtractReceiptImage(_ context.Context, _ string) ([]enrich.Candidate, error) {
	return m.candidates, m.err
}

func (m *mockEnricher) ExtractReceiptText(_ context.Context, _ string) ([]enrich.Candidate, error) {
	return m.candidates, m.err
}

func (m *mockEnricher) ExtractReceiptPDF(_ context.Context, _ []byte) ([]enrich.Candidate, error) {
	return m.candidates, m.err
}

func (m *mockEnricher) Advice(_ context.Context, _ catalog.Item) (string, error) {
	return m.advice, m.err
}

// --- helpers ---

func setupHandler(t *testing.T, cloud app.CloudGateway, enricher app.Enricher) (http.Handler, *app.App) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	a, err := app.New(store, cloud, enricher, merge.LocalWins)
	if err != nil {
		t.Fatalf("creating app: %v", err)
	}
	return NewHandler(Deps{App: a, Token: testToken, Version: "test"}), a
}

func authReq(method, url, body, token string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

// --- tests ---

func TestAuthRequired(t *testing.T) {
	h, _ := setupHandler(t, nil, nil)

	rr := do(h, authReq(http.MethodGet, "/items", "", ""))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", rr.Code)
	}

	rr = do(h, authReq(http.MethodGet, "/items", "", "wrong-token"))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d, want 401", rr.Code)
	}

	// Health stays open for liveness probes.
	rr = do(h, authReq(http.MethodGet, "/health", "", ""))
	if rr.Code != http.StatusOK {
		t.Errorf("health: status = %d, want 200", rr.Code)
	}
}

func TestItemCRUD(t *testing.T) {
	h, _ := setupHandler(t, nil, nil)

	rr := do(h, authReq(http.MethodPost, "/items",
		`{"name":"Blazer","brand":"Acme","type":"clothing","status":"in-stock"}`, testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("create: status = %d, body = %s", rr.Code, rr.Body.String())
	}
	created := decode[catalog.Item](t, rr)
	if created.ID == "" {
		t.Fatal("created item has no id")
	}

	rr = do(h, authReq(http.MethodGet, "/items/"+created.ID, "", testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("get: status = %d", rr.Code)
	}

	rr = do(h, authReq(http.MethodPut, "/items/"+created.ID,
		`{"name":"Wool Blazer","brand":"Acme","type":"clothing"}`, testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("update: status = %d, body = %s", rr.Code, rr.Body.String())
	}
	updated := decode[catalog.Item](t, rr)
	if updated.ID != created.ID || updated.Name != "Wool Blazer" {
		t.Errorf("updated = %+v", updated)
	}

	rr = do(h, authReq(http.MethodDelete, "/items/"+created.ID, "", testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("delete: status = %d", rr.Code)
	}

	rr = do(h, authReq(http.MethodGet, "/items/"+created.ID, "", testToken))
	if rr.Code != http.StatusNotFound {
		t.Errorf("get after delete: status = %d, want 404", rr.Code)
	}
}

func TestCreateItem_Validation(t *testing.T) {
	h, _ := setupHandler(t, nil, nil)

	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"type":"clothing"}`},
		{"bad type", `{"name":"Thing","type":"appliance"}`},
		{"invalid json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(h, authReq(http.MethodPost, "/items", tt.body, testToken))
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rr.Code)
			}
		})
	}
}

func TestListItems_Filters(t *testing.T) {
	h, a := setupHandler(t, nil, nil)

	a.Save(catalog.Item{Name: "Wool Coat", Brand: "North", Type: catalog.TypeClothing, Season: catalog.Seasons{catalog.SeasonWinter}})
	a.Save(catalog.Item{Name: "Linen Shirt", Brand: "Breeze", Type: catalog.TypeClothing, Season: catalog.Seasons{catalog.SeasonSummer}})
	a.Save(catalog.Item{Name: "Vitamin C Serum", Brand: "GlowLab", Type: catalog.TypeBeauty, Status: catalog.StatusLow})

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"all", "", 3},
		{"by type", "?type=beauty", 1},
		{"by search", "?q=linen", 1},
		{"by season", "?season=Winter", 1},
		{"by status", "?status=low", 1},
		{"combined no match", "?type=beauty&q=linen", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(h, authReq(http.MethodGet, "/items"+tt.query, "", testToken))
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d", rr.Code)
			}
			items := decode[[]catalog.Item](t, rr)
			if len(items) != tt.want {
				t.Errorf("got %d items, want %d", len(items), tt.want)
			}
		})
	}
}

func TestAdvice(t *testing.T) {
	h, a := setupHandler(t, nil, &mockEnricher{advice: "Pair it with denim."})
	stored, _ := a.Save(catalog.Item{Name: "Blazer", Type: catalog.TypeClothing})

	rr := do(h, authReq(http.MethodGet, "/items/"+stored.ID+"/advice", "", testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	resp := decode[map[string]string](t, rr)
	if resp["advice"] != "Pair it with denim." {
		t.Errorf("advice = %q", resp["advice"])
	}

	rr = do(h, authReq(http.MethodGet, "/items/missing/advice", "", testToken))
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing item: status = %d, want 404", rr.Code)
	}
}

func TestAdvice_NotConfigured(t *testing.T) {
	h, a := setupHandler(t, nil, nil)
	stored, _ := a.Save(catalog.Item{Name: "Blazer", Type: catalog.TypeClothing})

	rr := do(h, authReq(http.MethodGet, "/items/"+stored.ID+"/advice", "", testToken))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rr.Code)
	}
}

func TestApplyAnalysis(t *testing.T) {
	h, a := setupHandler(t, nil, nil)
	stored, _ := a.Save(catalog.Item{Name: "Unknown", Type: catalog.TypeBeauty, Notes: "gift"})

	rr := do(h, authReq(http.MethodPost, "/items/"+stored.ID+"/analysis",
		`{"name":"Vitamin C Serum","brand":"GlowLab","description":"A brightening serum."}`, testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	got := decode[catalog.Item](t, rr)
	if got.Name != "Vitamin C Serum" || got.Notes != "gift\nA brightening serum." {
		t.Errorf("item = %+v", got)
	}
}

func TestImportCandidates(t *testing.T) {
	h, a := setupHandler(t, nil, nil)

	rr := do(h, authReq(http.MethodPost, "/items/import",
		`{"candidates":[{"name":"Sunscreen","brand":"Sol","type":"beauty"},{"name":"Tote","type":"clothing"}]}`, testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	resp := decode[map[string][]catalog.Item](t, rr)
	if len(resp["created"]) != 2 {
		t.Fatalf("created %d items, want 2", len(resp["created"]))
	}
	if a.Count() != 2 {
		t.Errorf("catalog count = %d, want 2", a.Count())
	}

	rr = do(h, authReq(http.MethodPost, "/items/import", `{"candidates":[]}`, testToken))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("empty candidates: status = %d, want 400", rr.Code)
	}
}
