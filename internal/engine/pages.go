package engine

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/parser"
	"github.com/starford/othala/internal/storage"
)

// CreatePage creates a page with a single empty seed block and returns a
// copy. Returns nil when a page with the same normalized name exists.
func (s *Store) CreatePage(title string) *models.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createPageLocked(title, false, "")
}

func (s *Store) createPageLocked(title string, isJournal bool, journalDate string) *models.Page {
	name := parser.Normalize(title)
	if name == "" || s.pageByNameLocked(name) != nil {
		return nil
	}

	now := time.Now()
	p := &models.Page{
		ID:          uuid.NewString(),
		Title:       title,
		Name:        name,
		IsJournal:   isJournal,
		JournalDate: journalDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.pages[p.ID] = p
	s.bumpVaultPageCountLocked(1)

	// Seed block: every page starts with one empty paragraph. The first
	// externally generated block reuses it instead of leaving a blank.
	seed := &models.Block{
		ID:        uuid.NewString(),
		PageID:    p.ID,
		Type:      models.TypeParagraph,
		Order:     s.orderForInsert(p.ID, "", ""),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.blocks[seed.ID] = seed

	// References typed before the page existed become live edges now.
	s.rebuildPageLinksLocked()
	s.scheduleStructuralSave(storage.CollectionPages, storage.CollectionBlocks)
	s.emit("page.created", map[string]string{"id": p.ID, "title": p.Title})
	return p.Clone()
}

// EnsurePage returns the page with the given title, creating it when
// absent. Lookup is by normalized name, so "Apple Pie" and "apple  pie"
// resolve to the same page.
func (s *Store) EnsurePage(title string) *models.Page {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p := s.pageByNameLocked(parser.Normalize(title)); p != nil {
		return p.Clone()
	}
	return s.createPageLocked(title, false, "")
}

// GetPage returns a copy of a page, or nil when absent.
func (s *Store) GetPage(pageID string) *models.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pages[pageID]; ok {
		return p.Clone()
	}
	return nil
}

// GetPageByName returns a copy of the page whose normalized name matches
// title, or nil.
func (s *Store) GetPageByName(title string) *models.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.pageByNameLocked(parser.Normalize(title)); p != nil {
		return p.Clone()
	}
	return nil
}

// ListPages returns all pages: pinned first, then favorites, then by most
// recent update.
func (s *Store) ListPages() []*models.Page {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Page, 0, len(s.pages))
	for _, p := range s.pages {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Pinned != b.Pinned {
			return a.Pinned
		}
		if a.Favorite != b.Favorite {
			return a.Favorite
		}
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.ID < b.ID
	})
	return out
}

// RenamePage retitles a page, rewrites every textual reference to the old
// title across all blocks, and rebuilds the link graph. Returns false when
// the page is missing or the new name collides with another page.
func (s *Store) RenamePage(pageID, newTitle string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pages[pageID]
	if !ok {
		return false
	}
	newName := parser.Normalize(newTitle)
	if newName == "" {
		return false
	}
	if existing := s.pageByNameLocked(newName); existing != nil && existing.ID != pageID {
		return false
	}

	oldTitle := p.Title
	p.Title = newTitle
	p.Name = newName
	p.UpdatedAt = time.Now()

	// Rewrite reference tokens before rebuilding so the graph picks up
	// the new spelling.
	for _, b := range s.blocks {
		rewritten, changed := parser.RewriteRefs(b.Content, oldTitle, newTitle)
		if !changed {
			continue
		}
		b.Content = rewritten
		b.Refs = parser.ExtractRefs(rewritten)
		b.UpdatedAt = p.UpdatedAt
	}

	s.rebuildPageLinksLocked()
	s.scheduleStructuralSave(storage.CollectionPages, storage.CollectionBlocks)
	s.emit("page.updated", map[string]string{"id": p.ID, "title": p.Title})
	return true
}

// DeletePage removes a page, all its blocks, its concepts, its book
// membership, and every link edge touching it. Page deletion clears the
// history stacks: transactions referring to a dead page must not replay.
func (s *Store) DeletePage(pageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pages[pageID]
	if !ok {
		return
	}

	for id, b := range s.blocks {
		if b.PageID == pageID {
			if id == s.focusedBlock {
				s.focusedBlock = ""
			}
			delete(s.blocks, id)
		}
	}
	for id, c := range s.concepts {
		if c.PageID == pageID {
			delete(s.concepts, id)
		}
	}
	for _, book := range s.books {
		book.PageIDs = removeString(book.PageIDs, pageID)
	}
	delete(s.pages, pageID)
	s.bumpVaultPageCountLocked(-1)

	s.undoStack = nil
	s.redoStack = nil

	s.rebuildPageLinksLocked()
	s.scheduleStructuralSave(storage.Collections...)
	s.emit("page.deleted", map[string]string{"id": p.ID})
}

// SetPageFavorite toggles the favorite flag; unknown ids are no-ops.
func (s *Store) SetPageFavorite(pageID string, favorite bool) {
	s.setPageFlag(pageID, func(p *models.Page) { p.Favorite = favorite })
}

// SetPagePinned toggles the pinned flag; unknown ids are no-ops.
func (s *Store) SetPagePinned(pageID string, pinned bool) {
	s.setPageFlag(pageID, func(p *models.Page) { p.Pinned = pinned })
}

func (s *Store) setPageFlag(pageID string, apply func(*models.Page)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pages[pageID]
	if !ok {
		return
	}
	apply(p)
	p.UpdatedAt = time.Now()
	s.scheduleStructuralSave(storage.CollectionPages)
	s.emit("page.updated", map[string]string{"id": p.ID, "title": p.Title})
}

// GetOrCreateTodayJournal returns today's journal page, creating it with a
// human-readable title when absent.
func (s *Store) GetOrCreateTodayJournal() *models.Page {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := time.Now().Format("2006-01-02")
	for _, p := range s.pages {
		if p.IsJournal && p.JournalDate == today {
			return p.Clone()
		}
	}
	title := time.Now().Format("January 2, 2006")
	return s.createPageLocked(title, true, today)
}

func (s *Store) pageByNameLocked(name string) *models.Page {
	for _, p := range s.pages {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func (s *Store) bumpVaultPageCountLocked(delta int) {
	if v, ok := s.vaults[s.activeVault]; ok {
		v.PageCount += delta
		v.UpdatedAt = time.Now()
		s.saveVaultIndexLocked()
	}
}

func removeString(list []string, target string) []string {
	out := list[:0]
	for _, v := range list {
		if v != target {
			out = append(out, v)
		}
	}
	return out
}
