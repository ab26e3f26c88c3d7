package engine

import (
	"fmt"
	"testing"
)

func TestSearchNotes_Ranking(t *testing.T) {
	s, _ := newTestStore(t)
	p := s.CreatePage("Gardening Basics")
	other := s.CreatePage("Tools")
	s.CreateBlock(CreateBlockParams{PageID: other.ID, Content: "gardening gloves"})
	s.CreateBlock(CreateBlockParams{PageID: other.ID, Content: "a note on gardening"})

	results := s.SearchNotes("gardening")
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	// Prefix-matched page outranks everything.
	if results[0].Kind != "page" || results[0].PageID != p.ID {
		t.Errorf("results[0] = %+v, want the prefix-matched page", results[0])
	}
	// Prefix-matched block outranks the mid-string block hit.
	if results[1].Kind != "block" || results[1].Snippet != "gardening gloves" {
		t.Errorf("results[1] = %+v, want the prefix block", results[1])
	}
	if results[2].Snippet != "a note on gardening" {
		t.Errorf("results[2] = %+v", results[2])
	}
}

func TestSearchNotes_CaseInsensitive(t *testing.T) {
	s, _ := newTestStore(t)
	s.CreatePage("Quantum Notes")

	if got := len(s.SearchNotes("qUaNtUm")); got != 1 {
		t.Errorf("results = %d, want 1", got)
	}
}

func TestSearchNotes_EmptyQuery(t *testing.T) {
	s, _ := newTestStore(t)
	s.CreatePage("Alpha")
	if got := s.SearchNotes("   "); got != nil {
		t.Errorf("results for blank query = %v, want nil", got)
	}
}

func TestSearchNotes_Capped(t *testing.T) {
	s, _ := newTestStore(t)
	p := s.CreatePage("Alpha")
	for i := 0; i < 30; i++ {
		s.CreateBlock(CreateBlockParams{PageID: p.ID, Content: fmt.Sprintf("needle %d", i)})
	}

	if got := len(s.SearchNotes("needle")); got != maxSearchResults {
		t.Errorf("results = %d, want cap %d", got, maxSearchResults)
	}
}

func TestSearchNotes_BlockCarriesPageTitle(t *testing.T) {
	s, _ := newTestStore(t)
	p := s.CreatePage("Recipes")
	s.CreateBlock(CreateBlockParams{PageID: p.ID, Content: "sourdough starter"})

	results := s.SearchNotes("sourdough")
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	if results[0].Title != "Recipes" {
		t.Errorf("title = %q, want the containing page title", results[0].Title)
	}
}
