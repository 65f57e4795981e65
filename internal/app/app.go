// Package app is the application controller: the single owner of the
// in-memory catalog. Every mutation flows through it, every store write is
// issued under its lock in mutation order, and at most one cloud sync is
// outstanding at a time. Components below it never assume a UI exists; the
// controller is where failures become user-facing outcomes.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/auraarchive/aura/internal/backup"
	"github.com/auraarchive/aura/internal/catalog"
	"github.com/auraarchive/aura/internal/enrich"
	"github.com/auraarchive/aura/internal/merge"
	"github.com/auraarchive/aura/internal/storage"
)

var (
	// ErrSyncBusy rejects a sync request while another one is outstanding.
	// Interleaving two syncs around the additive merge could reintroduce a
	// deleted item or race the store write, so the second request is refused
	// rather than queued.
	ErrSyncBusy = errors.New("a sync operation is already in progress")

	// ErrNoCloud reports that cloud backup is not configured.
	ErrNoCloud = errors.New("cloud backup is not configured")

	// ErrNoEnricher reports that the AI enrichment service is not configured.
	ErrNoEnricher = errors.New("enrichment is not configured")

	// ErrItemNotFound reports an unknown item id.
	ErrItemNotFound = errors.New("item not found")
)

const lastSyncedKey = "last_synced_at"

// CloudGateway is the whole-catalog backup contract.
type CloudGateway interface {
	Push(ctx context.Context, items []catalog.Item) (time.Time, error)
	Pull(ctx context.Context) ([]catalog.Item, error)
	Available() bool
}

// Enricher is the AI analysis contract. Nothing it returns is applied to the
// catalog without explicit confirmation.
type Enricher interface {
	AnalyzeItem(ctx context.Context, imageB64 string, itemType catalog.ItemType) (enrich.Analysis, error)
	ExtractReceiptImage(ctx context.Context, imageB64 string) ([]enrich.Candidate, error)
	ExtractReceiptText(ctx context.Context, text string) ([]enrich.Candidate, error)
	ExtractReceiptPDF(ctx context.Context, data []byte) ([]enrich.Candidate, error)
	Advice(ctx context.Context, item catalog.Item) (string, error)
}

// App owns the catalog. Gateways are injected; either may be nil when the
// corresponding feature is not configured.
type App struct {
	store    *storage.Store
	cloud    CloudGateway
	enricher Enricher
	strategy merge.Strategy

	mu    sync.Mutex
	items []catalog.Item

	syncing    atomic.Bool
	cloudDown  atomic.Bool
	lastSynced atomic.Int64 // epoch millis, 0 = never
}

// New loads the persisted catalog and sync metadata into a controller.
func New(store *storage.Store, cloud CloudGateway, enricher Enricher, strategy merge.Strategy) (*App, error) {
	items, err := store.LoadCatalog()
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	a := &App{
		store:    store,
		cloud:    cloud,
		enricher: enricher,
		strategy: strategy,
		items:    items,
	}

	if v, err := store.GetSetting(lastSyncedKey); err == nil {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			a.lastSynced.Store(ms)
		}
	}

	return a, nil
}

// persistLocked writes the whole collection to the local store. Called with
// a.mu held so writes land in mutation order. A write failure is reported to
// the caller but the in-memory state is kept, not rolled back.
func (a *App) persistLocked() error {
	if err := a.store.SaveCatalog(a.items); err != nil {
		slog.Warn("persisting catalog failed; in-memory state kept", "error", err)
		return fmt.Errorf("persisting catalog: %w", err)
	}
	return nil
}

// Items returns the catalog in display order, most recently updated first.
func (a *App) Items() []catalog.Item {
	a.mu.Lock()
	defer a.mu.Unlock()
	return catalog.SortByRecency(a.items)
}

// Filtered returns the display-ordered subsequence matching the filter.
func (a *App) Filtered(f catalog.Filter) []catalog.Item {
	a.mu.Lock()
	defer a.mu.Unlock()
	return catalog.SortByRecency(f.Apply(a.items))
}

// Count returns the number of items in the catalog.
func (a *App) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.items)
}

// Get returns one item by id.
func (a *App) Get(id string) (catalog.Item, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, it := range a.items {
		if it.ID == id {
			return it, nil
		}
	}
	return catalog.Item{}, ErrItemNotFound
}

// Save upserts a record and persists the collection. The stored record
// (with generated id and bumped lastUpdated) is returned even when the
// persistence write fails.
func (a *App) Save(rec catalog.Item) (catalog.Item, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var stored catalog.Item
	a.items, stored = catalog.Upsert(a.items, rec)
	return stored, a.persistLocked()
}

// Delete removes an item by id.
func (a *App) Delete(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	before := len(a.items)
	a.items = catalog.Remove(a.items, id)
	if len(a.items) == before {
		return ErrItemNotFound
	}
	return a.persistLocked()
}

// ApplyAnalysis merges confirmed AI analysis results into an existing item:
// empty fields are left alone and the description is appended to the notes
// on a new line, never overwriting what the user wrote.
func (a *App) ApplyAnalysis(id string, an enrich.Analysis) (catalog.Item, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, it := range a.items {
		if it.ID != id {
			continue
		}
		if an.Name != "" {
			it.Name = an.Name
		}
		if an.Brand != "" {
			it.Brand = an.Brand
		}
		if an.Category != "" {
			it.Category = an.Category
		}
		it.Notes = catalog.AppendNote(it.Notes, an.Description)

		var stored catalog.Item
		a.items, stored = catalog.Upsert(a.items, it)
		return stored, a.persistLocked()
	}
	return catalog.Item{}, ErrItemNotFound
}

// ImportCandidates promotes user-confirmed batch candidates to catalog
// items. Each becomes a full item with a fresh id, in-stock status, and the
// extraction notes.
func (a *App) ImportCandidates(cands []enrich.Candidate) ([]catalog.Item, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	created := make([]catalog.Item, 0, len(cands))
	for _, c := range cands {
		var stored catalog.Item
		a.items, stored = catalog.Upsert(a.items, catalog.Item{
			Name:     c.Name,
			Brand:    c.Brand,
			Category: c.Category,
			Type:     c.Type,
			Status:   catalog.StatusInStock,
			Notes:    c.Notes,
		})
		created = append(created, stored)
	}
	return created, a.persistLocked()
}

// ExportFile writes the catalog to a pretty-printed local backup file.
func (a *App) ExportFile(path string) error {
	a.mu.Lock()
	snapshot := make([]catalog.Item, len(a.items))
	copy(snapshot, a.items)
	a.mu.Unlock()
	return backup.WriteFile(path, snapshot)
}

// ImportFile merges (or, with replace, wholesale-replaces) the catalog from
// a local backup file. Returns the resulting item count. Invalid files are
// reported without touching local state.
func (a *App) ImportFile(path string, replace bool) (int, error) {
	incoming, err := backup.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return a.Import(incoming, replace)
}

// Import merges (or wholesale-replaces) an already-decoded collection into
// the catalog. Returns the resulting item count.
func (a *App) Import(incoming []catalog.Item, replace bool) (int, error) {
	return a.applyIncoming(incoming, replace)
}

func (a *App) applyIncoming(incoming []catalog.Item, replace bool) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if replace {
		a.items = merge.ReplaceAll(incoming)
	} else {
		a.items = merge.Additive(a.items, incoming, a.strategy)
	}
	return len(a.items), a.persistLocked()
}

// SyncPush uploads the whole catalog to the cloud backup. At most one sync
// operation may be outstanding; a second request fails with ErrSyncBusy. A
// failed push leaves local state untouched and relies on explicit
// user-triggered retry.
func (a *App) SyncPush(ctx context.Context) (time.Time, error) {
	if a.cloud == nil {
		return time.Time{}, ErrNoCloud
	}
	if !a.syncing.CompareAndSwap(false, true) {
		return time.Time{}, ErrSyncBusy
	}
	defer a.syncing.Store(false)

	a.mu.Lock()
	snapshot := make([]catalog.Item, len(a.items))
	copy(snapshot, a.items)
	a.mu.Unlock()

	ts, err := a.cloud.Push(ctx, snapshot)
	if err != nil {
		a.noteCloudError(err)
		return time.Time{}, fmt.Errorf("cloud push: %w", err)
	}

	a.noteSynced(ts)
	return ts, nil
}

// SyncPull downloads the cloud backup and reconciles it into the catalog:
// additive merge for a routine pull, wholesale replacement for the
// confirmed first-adoption/restore path. Returns the resulting item count.
// backup.ErrNoBackup is passed through as the benign "nothing there yet"
// outcome.
func (a *App) SyncPull(ctx context.Context, replace bool) (int, error) {
	if a.cloud == nil {
		return 0, ErrNoCloud
	}
	if !a.syncing.CompareAndSwap(false, true) {
		return 0, ErrSyncBusy
	}
	defer a.syncing.Store(false)

	incoming, err := a.cloud.Pull(ctx)
	if err != nil {
		if errors.Is(err, backup.ErrNoBackup) {
			return 0, err
		}
		a.noteCloudError(err)
		return 0, fmt.Errorf("cloud pull: %w", err)
	}

	count, persistErr := a.applyIncoming(incoming, replace)
	a.noteSynced(time.Now())
	return count, persistErr
}

func (a *App) noteSynced(ts time.Time) {
	a.cloudDown.Store(false)
	a.lastSynced.Store(ts.UnixMilli())
	if err := a.store.SetSetting(lastSyncedKey, strconv.FormatInt(ts.UnixMilli(), 10)); err != nil {
		slog.Warn("recording last sync time failed", "error", err)
	}
}

// noteCloudError downgrades the connected state on auth-shaped failures so
// the UI stops assuming availability instead of failing silently on every
// subsequent call.
func (a *App) noteCloudError(err error) {
	if backup.IsAuthError(err) {
		slog.Warn("cloud credential rejected; marking cloud unavailable", "error", err)
		a.cloudDown.Store(true)
	}
}

// CloudConfigured reports whether a cloud gateway was injected at all.
func (a *App) CloudConfigured() bool {
	return a.cloud != nil
}

// Connected reports whether cloud sync is currently believed to work: a
// gateway is configured, holds a credential, and has not recently failed
// auth. Cheap; never touches the network.
func (a *App) Connected() bool {
	return a.cloud != nil && a.cloud.Available() && !a.cloudDown.Load()
}

// LastSynced returns the completion time of the most recent successful
// sync, or the zero time if none.
func (a *App) LastSynced() time.Time {
	ms := a.lastSynced.Load()
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// --- Enrichment passthroughs ---
//
// These never touch the catalog: results are returned to the caller for
// explicit confirmation and applied later via Save, ApplyAnalysis or
// ImportCandidates.

func (a *App) AnalyzeItem(ctx context.Context, imageB64 string, itemType catalog.ItemType) (enrich.Analysis, error) {
	if a.enricher == nil {
		return enrich.Analysis{}, ErrNoEnricher
	}
	return a.enricher.AnalyzeItem(ctx, imageB64, itemType)
}

func (a *App) ExtractReceiptImage(ctx context.Context, imageB64 string) ([]enrich.Candidate, error) {
	if a.enricher == nil {
		return nil, ErrNoEnricher
	}
	return a.enricher.ExtractReceiptImage(ctx, imageB64)
}

func (a *App) ExtractReceiptText(ctx context.Context, text string) ([]enrich.Candidate, error) {
	if a.enricher == nil {
		return nil, ErrNoEnricher
	}
	return a.enricher.ExtractReceiptText(ctx, text)
}

func (a *App) ExtractReceiptPDF(ctx context.Context, data []byte) ([]enrich.Candidate, error) {
	if a.enricher == nil {
		return nil, ErrNoEnricher
	}
	return a.enricher.ExtractReceiptPDF(ctx, data)
}

// Advice returns a usage or styling tip for an item.
func (a *App) Advice(ctx context.Context, id string) (string, error) {
	if a.enricher == nil {
		return "", ErrNoEnricher
	}
	item, err := a.Get(id)
	if err != nil {
		return "", err
	}
	return a.enricher.Advice(ctx, item)
}
