package engine

import (
	"testing"
	"time"

	"github.com/starford/othala/internal/models"
)

func TestCreatePage_SeedBlock(t *testing.T) {
	s, _ := newTestStore(t)
	p := s.CreatePage("Alpha")

	blocks := s.PageBlocks(p.ID)
	if len(blocks) != 1 {
		t.Fatalf("new page has %d blocks, want 1 seed", len(blocks))
	}
	seed := blocks[0]
	if seed.Type != models.TypeParagraph || seed.Content != "" || seed.ParentID != "" {
		t.Errorf("seed = %+v", seed)
	}
}

func TestCreatePage_DuplicateNormalizedName(t *testing.T) {
	s, _ := newTestStore(t)
	if s.CreatePage("Apple Pie") == nil {
		t.Fatal("first create failed")
	}
	if s.CreatePage("apple  PIE") != nil {
		t.Error("duplicate normalized name was accepted")
	}
	if s.CreatePage("") != nil {
		t.Error("empty title was accepted")
	}
}

func TestEnsurePage_Idempotent(t *testing.T) {
	s, _ := newTestStore(t)
	first := s.EnsurePage("Gamma")
	second := s.EnsurePage("gamma")
	if first == nil || second == nil {
		t.Fatal("EnsurePage returned nil")
	}
	if first.ID != second.ID {
		t.Errorf("EnsurePage created a second page: %s vs %s", first.ID, second.ID)
	}
}

func TestDeletePage_Cascades(t *testing.T) {
	s, _ := newTestStore(t)
	a := s.CreatePage("Alpha")
	b := s.CreatePage("Beta")
	blk := s.CreateBlock(CreateBlockParams{PageID: a.ID, Content: "# Topic [[Beta]]"})
	s.CreateBlock(CreateBlockParams{PageID: b.ID, Content: "points back to [[Alpha]]"})
	s.ExtractConcepts(a.ID)
	book := s.CreateBook("Shelf", nil, false)
	s.AddPageToBook(book.ID, a.ID)
	s.SetFocusedBlock(blk)

	s.DeletePage(a.ID)

	if s.GetPage(a.ID) != nil {
		t.Fatal("page survived delete")
	}
	if s.GetBlock(blk) != nil {
		t.Error("page block survived delete")
	}
	if got := len(s.PageConcepts(a.ID)); got != 0 {
		t.Errorf("concepts = %d, want 0", got)
	}
	if got := s.GetBook(book.ID).PageIDs; len(got) != 0 {
		t.Errorf("book pages = %v, want empty", got)
	}
	if got := len(s.Backlinks(a.ID)); got != 0 {
		t.Errorf("backlinks to deleted page = %d, want 0", got)
	}
	if got := s.FocusedBlock(); got != "" {
		t.Errorf("focus = %q, want cleared", got)
	}
	// History cannot replay into a deleted page.
	if s.UndoDepth() != 0 || s.RedoDepth() != 0 {
		t.Errorf("history = %d/%d, want cleared", s.UndoDepth(), s.RedoDepth())
	}
}

func TestListPages_PinnedThenFavorite(t *testing.T) {
	s, _ := newTestStore(t)
	plain := s.CreatePage("Plain")
	fav := s.CreatePage("Fav")
	pin := s.CreatePage("Pin")
	s.SetPageFavorite(fav.ID, true)
	s.SetPagePinned(pin.ID, true)

	pages := s.ListPages()
	if len(pages) != 3 {
		t.Fatalf("pages = %d, want 3", len(pages))
	}
	if pages[0].ID != pin.ID {
		t.Errorf("pages[0] = %s, want pinned %s", pages[0].Title, "Pin")
	}
	if pages[1].ID != fav.ID {
		t.Errorf("pages[1] = %s, want favorite %s", pages[1].Title, "Fav")
	}
	if pages[2].ID != plain.ID {
		t.Errorf("pages[2] = %s, want %s", pages[2].Title, "Plain")
	}
}

func TestGetOrCreateTodayJournal(t *testing.T) {
	s, _ := newTestStore(t)
	first := s.GetOrCreateTodayJournal()
	if first == nil {
		t.Fatal("journal create failed")
	}
	if !first.IsJournal {
		t.Error("journal flag not set")
	}
	if got, want := first.JournalDate, time.Now().Format("2006-01-02"); got != want {
		t.Errorf("journal date = %q, want %q", got, want)
	}

	second := s.GetOrCreateTodayJournal()
	if second.ID != first.ID {
		t.Error("second call created a new journal page")
	}
}

func TestVaultPageCount(t *testing.T) {
	s, _ := newTestStore(t)
	p := s.CreatePage("Alpha")
	s.CreatePage("Beta")

	if got := s.ListVaults()[0].PageCount; got != 2 {
		t.Errorf("page count = %d, want 2", got)
	}
	s.DeletePage(p.ID)
	if got := s.ListVaults()[0].PageCount; got != 1 {
		t.Errorf("page count after delete = %d, want 1", got)
	}
}
