// Package engine implements the block-tree document engine: an in-memory
// store of pages, blocks, books, and concepts for the active vault, with
// transactional undo/redo, a derived backlink graph, and debounced
// persistence through a storage.Provider.
//
// All entry points serialize on a single mutex, so the foreground editor
// and the background generator share one writer context and tree invariants
// never need finer-grained locking.
package engine

import (
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/starford/othala/internal/checksum"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/storage"
)

// DefaultHistoryLimit caps the undo stack when no limit is configured.
const DefaultHistoryLimit = 100

// DefaultSaveDelay is the content-edit persistence debounce window.
const DefaultSaveDelay = 300 * time.Millisecond

// structuralSaveDelay is the independent (non-resetting) delay for saves
// scheduled by tree-structural mutations, so they never starve behind a
// constantly-resetting content debounce.
const structuralSaveDelay = 50 * time.Millisecond

// Event is a change notification emitted after a committed mutation.
type Event struct {
	Type string
	Data map[string]string
}

// Notifier receives engine events (the SSE broker in production).
type Notifier func(Event)

// Options configures a Store.
type Options struct {
	HistoryLimit int
	SaveDelay    time.Duration
	Logger       *slog.Logger
	Notify       Notifier
}

// Store is the single owned aggregate holding the active vault's state.
type Store struct {
	mu       sync.Mutex
	provider storage.Provider
	logger   *slog.Logger
	notify   Notifier

	historyLimit int
	saveDelay    time.Duration

	activeVault string
	vaults      map[string]*models.Vault

	pages    map[string]*models.Page
	blocks   map[string]*models.Block
	books    map[string]*models.Book
	concepts map[string]*models.Concept
	links    []models.PageLink

	undoStack []*models.Transaction
	redoStack []*models.Transaction

	focusedBlock string

	// Persistence scheduling. dirty marks collections awaiting a write;
	// lastWritten holds the checksum of each collection's last persisted
	// payload so unchanged collections (and externally observed self-writes)
	// are skipped.
	dirty        map[string]bool
	lastWritten  map[string]string
	contentTimer *time.Timer
	structTimer  *time.Timer
	closed       bool
}

// Open loads the vault index from the provider, creates a default vault if
// none exists, and loads the active vault's collections into memory.
func Open(provider storage.Provider, opts Options) (*Store, error) {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.SaveDelay <= 0 {
		opts.SaveDelay = DefaultSaveDelay
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Store{
		provider:     provider,
		logger:       opts.Logger,
		notify:       opts.Notify,
		historyLimit: opts.HistoryLimit,
		saveDelay:    opts.SaveDelay,
		vaults:       make(map[string]*models.Vault),
		dirty:        make(map[string]bool),
		lastWritten:  make(map[string]string),
	}
	s.resetCollections()

	if err := s.loadVaultIndex(); err != nil {
		return nil, err
	}
	s.loadActiveVault()
	return s, nil
}

// Close flushes pending writes and stops the save timers.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.contentTimer != nil {
		s.contentTimer.Stop()
	}
	if s.structTimer != nil {
		s.structTimer.Stop()
	}
	s.flushAllLocked()
	s.closed = true
}

func (s *Store) resetCollections() {
	s.pages = make(map[string]*models.Page)
	s.blocks = make(map[string]*models.Block)
	s.books = make(map[string]*models.Book)
	s.concepts = make(map[string]*models.Concept)
	s.links = nil
	s.undoStack = nil
	s.redoStack = nil
	s.focusedBlock = ""
	s.dirty = make(map[string]bool)
	s.lastWritten = make(map[string]string)
}

func (s *Store) emit(typ string, data map[string]string) {
	if s.notify != nil {
		s.notify(Event{Type: typ, Data: data})
	}
}

// --- Persistence scheduling ---

// scheduleContentSave coalesces high-frequency content edits: each call
// cancels and restarts the debounce timer, so only the settled state in the
// window is persisted.
func (s *Store) scheduleContentSave(collections ...string) {
	s.markDirty(collections...)
	if s.closed {
		return
	}
	if s.contentTimer == nil {
		s.contentTimer = time.AfterFunc(s.saveDelay, s.flushAsync)
		return
	}
	s.contentTimer.Reset(s.saveDelay)
}

// scheduleStructuralSave persists tree-structural mutations on a short,
// non-resetting timer independent of the content debounce.
func (s *Store) scheduleStructuralSave(collections ...string) {
	s.markDirty(collections...)
	if s.closed {
		return
	}
	if s.structTimer == nil {
		s.structTimer = time.AfterFunc(structuralSaveDelay, func() {
			s.mu.Lock()
			s.structTimer = nil
			s.flushLocked()
			s.mu.Unlock()
		})
	}
}

func (s *Store) markDirty(collections ...string) {
	for _, c := range collections {
		s.dirty[c] = true
	}
}

func (s *Store) flushAsync() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushLocked()
}

// Flush synchronously persists all dirty collections. Vault switches and
// shutdown call this directly; the path is never debounced.
func (s *Store) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushAllLocked()
}

// flushAllLocked marks every collection dirty and writes them out.
func (s *Store) flushAllLocked() {
	s.markDirty(storage.Collections...)
	s.flushLocked()
}

// flushLocked writes dirty collections, skipping any whose serialized form
// matches the last persisted payload. Persistence failures are logged and
// swallowed: the in-memory engine is the source of truth for the session.
func (s *Store) flushLocked() {
	if s.closed {
		return
	}
	for collection := range s.dirty {
		delete(s.dirty, collection)
		data, err := s.marshalCollection(collection)
		if err != nil {
			s.logger.Warn("persist: marshal failed",
				slog.String("collection", collection),
				slog.String("error", err.Error()))
			continue
		}
		sum := checksum.Sum(data)
		if s.lastWritten[collection] == sum {
			continue
		}
		if err := s.provider.Write(s.activeVault, collection, data); err != nil {
			s.logger.Warn("persist: write failed",
				slog.String("collection", collection),
				slog.String("error", err.Error()))
			continue
		}
		s.lastWritten[collection] = sum
	}
}

func (s *Store) marshalCollection(collection string) ([]byte, error) {
	switch collection {
	case storage.CollectionPages:
		return json.Marshal(sortedValues(s.pages, func(p *models.Page) string { return p.ID }))
	case storage.CollectionBlocks:
		return json.Marshal(sortedValues(s.blocks, func(b *models.Block) string { return b.ID }))
	case storage.CollectionBooks:
		return json.Marshal(sortedValues(s.books, func(b *models.Book) string { return b.ID }))
	case storage.CollectionConcepts:
		return json.Marshal(sortedValues(s.concepts, func(c *models.Concept) string { return c.ID }))
	}
	return nil, nil
}

// sortedValues returns map values ordered by key so serialization is stable
// and the checksum skip actually fires.
func sortedValues[T any](m map[string]T, key func(T) string) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return key(out[i]) < key(out[j]) })
	return out
}

// ExternalReload handles a watcher-reported external change to a collection
// file. Changes matching what the engine last wrote itself are ignored;
// anything else reloads the collection from storage. The watcher reports a
// changed global vault index as ("", "vaults").
func (s *Store) ExternalReload(vaultID, collection string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if vaultID == "" && collection == "vaults" {
		s.reloadVaultIndexLocked()
		return
	}
	if vaultID != s.activeVault {
		return
	}
	data, err := s.provider.Read(vaultID, collection)
	if err != nil || data == nil {
		return
	}
	if s.lastWritten[collection] == checksum.Sum(data) {
		return
	}
	s.logger.Info("engine: reloading externally changed collection",
		slog.String("collection", collection))
	s.unmarshalCollection(collection, data)
	s.lastWritten[collection] = checksum.Sum(data)
	s.rebuildPageLinksLocked()
	s.emit("graph.updated", nil)
}

func (s *Store) unmarshalCollection(collection string, data []byte) {
	switch collection {
	case storage.CollectionPages:
		var pages []*models.Page
		if err := json.Unmarshal(data, &pages); err != nil {
			return
		}
		s.pages = make(map[string]*models.Page, len(pages))
		for _, p := range pages {
			s.pages[p.ID] = p
		}
	case storage.CollectionBlocks:
		var blocks []*models.Block
		if err := json.Unmarshal(data, &blocks); err != nil {
			return
		}
		s.blocks = make(map[string]*models.Block, len(blocks))
		for _, b := range blocks {
			s.blocks[b.ID] = b
		}
	case storage.CollectionBooks:
		var books []*models.Book
		if err := json.Unmarshal(data, &books); err != nil {
			return
		}
		s.books = make(map[string]*models.Book, len(books))
		for _, b := range books {
			s.books[b.ID] = b
		}
	case storage.CollectionConcepts:
		var concepts []*models.Concept
		if err := json.Unmarshal(data, &concepts); err != nil {
			return
		}
		s.concepts = make(map[string]*models.Concept, len(concepts))
		for _, c := range concepts {
			s.concepts[c.ID] = c
		}
	}
}

// FocusedBlock returns the id of the block the editor currently focuses,
// or empty when none.
func (s *Store) FocusedBlock() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focusedBlock
}

// SetFocusedBlock records the editor focus; unknown ids clear it.
func (s *Store) SetFocusedBlock(blockID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blocks[blockID]; ok {
		s.focusedBlock = blockID
	} else {
		s.focusedBlock = ""
	}
}
