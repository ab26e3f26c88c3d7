package api

import (
	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/engine"
	"github.com/starford/othala/internal/generator"
	"github.com/starford/othala/internal/models"
)

// Service translates engine semantics (nil / empty-id / false returns for
// structural no-ops) into sentinel errors the HTTP layer maps to statuses.
type Service struct {
	store  *engine.Store
	runner *generator.Runner
}

// NewService creates a new API service. runner may be nil when the
// generator surface is disabled.
func NewService(store *engine.Store, runner *generator.Runner) *Service {
	return &Service{store: store, runner: runner}
}

// Store exposes the underlying engine for read-only surfaces.
func (s *Service) Store() *engine.Store { return s.store }

// --- Pages ---

// CreatePage creates a page, failing when the normalized title collides.
func (s *Service) CreatePage(title string) (*models.Page, error) {
	p := s.store.CreatePage(title)
	if p == nil {
		if s.store.GetPageByName(title) != nil {
			return nil, apperr.ErrAlreadyExists
		}
		return nil, apperr.ErrInvalid
	}
	return p, nil
}

// EnsurePage returns the page with the given normalized title, creating it
// when absent.
func (s *Service) EnsurePage(title string) (*models.Page, error) {
	p := s.store.EnsurePage(title)
	if p == nil {
		return nil, apperr.ErrInvalid
	}
	return p, nil
}

// GetPage returns a page by id.
func (s *Service) GetPage(pageID string) (*models.Page, error) {
	p := s.store.GetPage(pageID)
	if p == nil {
		return nil, apperr.ErrNotFound
	}
	return p, nil
}

// RenamePage retitles a page and rewrites references to it.
func (s *Service) RenamePage(pageID, title string) (*models.Page, error) {
	if s.store.GetPage(pageID) == nil {
		return nil, apperr.ErrNotFound
	}
	if !s.store.RenamePage(pageID, title) {
		return nil, apperr.ErrConflict
	}
	return s.store.GetPage(pageID), nil
}

// DeletePage removes a page with full cascade.
func (s *Service) DeletePage(pageID string) error {
	if s.store.GetPage(pageID) == nil {
		return apperr.ErrNotFound
	}
	s.store.DeletePage(pageID)
	return nil
}

// SetPageFlag toggles favorite or pinned on a page.
func (s *Service) SetPageFlag(pageID, flag string, value bool) error {
	if s.store.GetPage(pageID) == nil {
		return apperr.ErrNotFound
	}
	switch flag {
	case "favorite":
		s.store.SetPageFavorite(pageID, value)
	case "pin":
		s.store.SetPagePinned(pageID, value)
	default:
		return apperr.ErrInvalid
	}
	return nil
}

// PageBlocks returns a page's outline.
func (s *Service) PageBlocks(pageID string) ([]*models.Block, error) {
	if s.store.GetPage(pageID) == nil {
		return nil, apperr.ErrNotFound
	}
	return s.store.PageBlocks(pageID), nil
}

// --- Blocks ---

// CreateBlock inserts a block.
func (s *Service) CreateBlock(req CreateBlockRequest) (*models.Block, error) {
	id := s.store.CreateBlock(engine.CreateBlockParams{
		PageID:       req.PageID,
		ParentID:     req.ParentID,
		AfterBlockID: req.AfterBlockID,
		Content:      req.Content,
		Type:         req.Type,
		Properties:   req.Properties,
	})
	if id == "" {
		return nil, apperr.ErrNotFound
	}
	return s.store.GetBlock(id), nil
}

// UpdateBlock sets a block's content.
func (s *Service) UpdateBlock(blockID, content string, transact bool) (*models.Block, error) {
	if s.store.GetBlock(blockID) == nil {
		return nil, apperr.ErrNotFound
	}
	s.store.UpdateBlockContent(blockID, content, transact)
	return s.store.GetBlock(blockID), nil
}

// DeleteBlock removes a block subtree.
func (s *Service) DeleteBlock(blockID string) error {
	if s.store.GetBlock(blockID) == nil {
		return apperr.ErrNotFound
	}
	s.store.DeleteBlock(blockID)
	return nil
}

// MoveBlock reparents/reorders a block. A structurally refused move (cross
// page, cycle) surfaces as a conflict.
func (s *Service) MoveBlock(blockID, parentID, afterBlockID string) (*models.Block, error) {
	before := s.store.GetBlock(blockID)
	if before == nil {
		return nil, apperr.ErrNotFound
	}
	s.store.MoveBlock(blockID, parentID, afterBlockID)
	after := s.store.GetBlock(blockID)
	// A successful move always reassigns the order key, so an untouched
	// block means the engine refused the move.
	if after.ParentID == before.ParentID && after.Order == before.Order && after.Indent == before.Indent {
		return nil, apperr.ErrConflict
	}
	return after, nil
}

// IndentBlock nests a block under its previous sibling.
func (s *Service) IndentBlock(blockID string) (*models.Block, error) {
	if s.store.GetBlock(blockID) == nil {
		return nil, apperr.ErrNotFound
	}
	s.store.IndentBlock(blockID)
	return s.store.GetBlock(blockID), nil
}

// OutdentBlock promotes a block to its parent's level.
func (s *Service) OutdentBlock(blockID string) (*models.Block, error) {
	if s.store.GetBlock(blockID) == nil {
		return nil, apperr.ErrNotFound
	}
	s.store.OutdentBlock(blockID)
	return s.store.GetBlock(blockID), nil
}

// MergeBlockUp merges a block into its previous sibling. A refused merge is
// reported as not-merged, not as an error.
func (s *Service) MergeBlockUp(blockID string) (MergeResponse, error) {
	if s.store.GetBlock(blockID) == nil {
		return MergeResponse{}, apperr.ErrNotFound
	}
	survivor := s.store.MergeBlockUp(blockID)
	return MergeResponse{Merged: survivor != "", SurvivorID: survivor}, nil
}

// SplitBlock splits a block in two.
func (s *Service) SplitBlock(blockID, before, after string) (SplitResponse, error) {
	id := s.store.SplitBlock(blockID, before, after)
	if id == "" {
		return SplitResponse{}, apperr.ErrNotFound
	}
	return SplitResponse{NewBlockID: id}, nil
}

// ChangeBlockType swaps a block's type, clearing content.
func (s *Service) ChangeBlockType(blockID string, typ models.BlockType, props map[string]string) (*models.Block, error) {
	if s.store.GetBlock(blockID) == nil {
		return nil, apperr.ErrNotFound
	}
	s.store.ChangeBlockType(blockID, typ, props)
	return s.store.GetBlock(blockID), nil
}

// --- History ---

// Undo reverts the latest transaction.
func (s *Service) Undo() HistoryResponse {
	applied := s.store.Undo()
	return HistoryResponse{Applied: applied, UndoDepth: s.store.UndoDepth(), RedoDepth: s.store.RedoDepth()}
}

// Redo reapplies the latest undone transaction.
func (s *Service) Redo() HistoryResponse {
	applied := s.store.Redo()
	return HistoryResponse{Applied: applied, UndoDepth: s.store.UndoDepth(), RedoDepth: s.store.RedoDepth()}
}

// --- Vaults ---

// SwitchVault activates another vault. Switching to the active vault is a
// successful no-op.
func (s *Service) SwitchVault(vaultID string) error {
	if vaultID == s.store.ActiveVault() {
		return nil
	}
	if !s.store.SwitchVault(vaultID) {
		return apperr.ErrNotFound
	}
	return nil
}

// DeleteVault removes an inactive vault.
func (s *Service) DeleteVault(vaultID string) error {
	if vaultID == s.store.ActiveVault() {
		return apperr.ErrConflict
	}
	if !s.store.DeleteVault(vaultID) {
		return apperr.ErrNotFound
	}
	return nil
}

// --- Books ---

// AddPageToBook attaches a page to a book.
func (s *Service) AddPageToBook(bookID, pageID string) error {
	if !s.store.AddPageToBook(bookID, pageID) {
		return apperr.ErrNotFound
	}
	return nil
}

// --- Generator ---

// StartGeneration opens a new generator session.
func (s *Service) StartGeneration() (uint64, error) {
	if s.runner == nil {
		return 0, apperr.ErrInvalid
	}
	return s.runner.Start(), nil
}

// AbortGeneration cancels the live generator session.
func (s *Service) AbortGeneration() error {
	if s.runner == nil {
		return apperr.ErrInvalid
	}
	s.runner.Abort()
	return nil
}

// HandleGenerationEvent feeds one stream event into the live session.
// Stale-generation events are reported as conflicts and mutate nothing.
func (s *Service) HandleGenerationEvent(gen uint64, ev generator.Event) error {
	if s.runner == nil {
		return apperr.ErrInvalid
	}
	if !s.runner.Handle(gen, ev) {
		return apperr.ErrConflict
	}
	return nil
}
