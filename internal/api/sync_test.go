package api

import (
	"net/http"
	"testing"

	"github.com/auraarchive/aura/internal/backup"
	"github.com/auraarchive/aura/internal/catalog"
	"github.com/auraarchive/aura/internal/enrich"
)

func TestSyncPushAndPull(t *testing.T) {
	cloud := &mockCloud{}
	h, a := setupHandler(t, cloud, nil)
	a.Save(catalog.Item{Name: "Blazer", Type: catalog.TypeClothing})

	rr := do(h, authReq(http.MethodPost, "/sync/push", "", testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("push: status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if len(cloud.stored) != 1 {
		t.Fatalf("cloud holds %d items, want 1", len(cloud.stored))
	}

	h2, a2 := setupHandler(t, cloud, nil)
	a2.Save(catalog.Item{Name: "Serum", Type: catalog.TypeBeauty})

	rr = do(h2, authReq(http.MethodPost, "/sync/pull", "", testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("pull: status = %d, body = %s", rr.Code, rr.Body.String())
	}
	resp := decode[map[string]any](t, rr)
	if resp["items"].(float64) != 2 {
		t.Errorf("items = %v, want 2", resp["items"])
	}
}

func TestSyncPull_Replace(t *testing.T) {
	cloud := &mockCloud{stored: []catalog.Item{
		{ID: "c1", Name: "Cloud Coat", Type: catalog.TypeClothing, LastUpdated: 1},
	}}
	h, a := setupHandler(t, cloud, nil)
	a.Save(catalog.Item{Name: "Local Serum", Type: catalog.TypeBeauty})

	rr := do(h, authReq(http.MethodPost, "/sync/pull?replace=true", "", testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if a.Count() != 1 {
		t.Errorf("count = %d, want 1 after replace", a.Count())
	}
}

func TestSyncPull_NoBackup(t *testing.T) {
	cloud := &mockCloud{pullErr: backup.ErrNoBackup}
	h, _ := setupHandler(t, cloud, nil)

	rr := do(h, authReq(http.MethodPost, "/sync/pull", "", testToken))
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestSync_BusyReturnsConflict(t *testing.T) {
	cloud := &mockCloud{block: true, started: make(chan struct{}), release: make(chan struct{})}
	h, _ := setupHandler(t, cloud, nil)

	done := make(chan int, 1)
	go func() {
		rr := do(h, authReq(http.MethodPost, "/sync/push", "", testToken))
		done <- rr.Code
	}()
	<-cloud.started

	rr := do(h, authReq(http.MethodPost, "/sync/push", "", testToken))
	if rr.Code != http.StatusConflict {
		t.Errorf("concurrent push: status = %d, want 409", rr.Code)
	}

	close(cloud.release)
	if code := <-done; code != http.StatusOK {
		t.Fatalf("first push: status = %d", code)
	}
}

func TestSync_NotConfigured(t *testing.T) {
	h, _ := setupHandler(t, nil, nil)

	rr := do(h, authReq(http.MethodPost, "/sync/push", "", testToken))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("push: status = %d, want 503", rr.Code)
	}
	rr = do(h, authReq(http.MethodPost, "/sync/pull", "", testToken))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("pull: status = %d, want 503", rr.Code)
	}
}

func TestBackupExportImport(t *testing.T) {
	h, a := setupHandler(t, nil, nil)
	a.Save(catalog.Item{Name: "Blazer", Type: catalog.TypeClothing})

	rr := do(h, authReq(http.MethodGet, "/backup/export", "", testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("export: status = %d", rr.Code)
	}
	exported := rr.Body.String()

	h2, a2 := setupHandler(t, nil, nil)
	a2.Save(catalog.Item{Name: "Serum", Type: catalog.TypeBeauty})

	rr = do(h2, authReq(http.MethodPost, "/backup/import", exported, testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("import: status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if a2.Count() != 2 {
		t.Errorf("count after merge import = %d, want 2", a2.Count())
	}

	rr = do(h2, authReq(http.MethodPost, "/backup/import?replace=true", exported, testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("replace import: status = %d", rr.Code)
	}
	if a2.Count() != 1 {
		t.Errorf("count after replace import = %d, want 1", a2.Count())
	}
}

func TestBackupImport_InvalidPayload(t *testing.T) {
	h, a := setupHandler(t, nil, nil)
	a.Save(catalog.Item{Name: "Blazer", Type: catalog.TypeClothing})

	rr := do(h, authReq(http.MethodPost, "/backup/import", "not json", testToken))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
	if a.Count() != 1 {
		t.Error("catalog changed after invalid import")
	}
}

func TestEnrichReceipt(t *testing.T) {
	enricher := &mockEnricher{candidates: nil}
	h, _ := setupHandler(t, nil, enricher)

	// Zero candidates is a successful empty staging, not an error.
	rr := do(h, authReq(http.MethodPost, "/enrich/receipt", `{"text":"illegible"}`, testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	resp := decode[map[string][]map[string]any](t, rr)
	if resp["candidates"] == nil || len(resp["candidates"]) != 0 {
		t.Errorf("candidates = %v, want empty array", resp["candidates"])
	}

	rr = do(h, authReq(http.MethodPost, "/enrich/receipt", `{"text":"a","image":"b"}`, testToken))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("two inputs: status = %d, want 400", rr.Code)
	}
	rr = do(h, authReq(http.MethodPost, "/enrich/receipt", `{}`, testToken))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("no input: status = %d, want 400", rr.Code)
	}
}

func TestEnrichAnalyze(t *testing.T) {
	h, _ := setupHandler(t, nil, &mockEnricher{analysis: enrich.Analysis{Name: "Blazer", Brand: "Acme"}})

	rr := do(h, authReq(http.MethodPost, "/enrich/analyze", `{"type":"clothing"}`, testToken))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing image: status = %d, want 400", rr.Code)
	}

	rr = do(h, authReq(http.MethodPost, "/enrich/analyze", `{"image":"aW1n","type":"clothing"}`, testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	got := decode[enrich.Analysis](t, rr)
	if got.Name != "Blazer" || got.Brand != "Acme" {
		t.Errorf("analysis = %+v", got)
	}
}
