package engine

import (
	"testing"

	"github.com/starford/othala/internal/models"
)

func TestExtractConcepts_Sources(t *testing.T) {
	s, _ := newTestStore(t)
	p := s.CreatePage("Alpha")
	s.CreateBlock(CreateBlockParams{PageID: p.ID, Type: models.TypeHeading, Content: "Compost Theory"})
	s.CreateBlock(CreateBlockParams{PageID: p.ID, Content: "always use **worm castings** here"})
	s.CreateBlock(CreateBlockParams{PageID: p.ID, Content: "related: [[Soil Health]]"})

	concepts := s.ExtractConcepts(p.ID)
	kinds := make(map[string]string)
	for _, c := range concepts {
		kinds[c.Name] = c.Kind
	}
	if kinds["Compost Theory"] != "heading" {
		t.Errorf("heading concept missing: %v", kinds)
	}
	if kinds["worm castings"] != "emphasis" {
		t.Errorf("emphasis concept missing: %v", kinds)
	}
	if kinds["Soil Health"] != "reference" {
		t.Errorf("reference concept missing: %v", kinds)
	}
}

func TestExtractConcepts_BoldReferenceNotDuplicated(t *testing.T) {
	s, _ := newTestStore(t)
	p := s.CreatePage("Alpha")
	s.CreateBlock(CreateBlockParams{PageID: p.ID, Content: "study **Soil Health** via [[Soil Health]]"})

	concepts := s.ExtractConcepts(p.ID)
	count := 0
	for _, c := range concepts {
		if c.Name == "Soil Health" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Soil Health extracted %d times, want 1", count)
	}
	if got := len(s.PageConcepts(p.ID)); got != len(concepts) {
		t.Errorf("stored concepts = %d, returned = %d, want equal", got, len(concepts))
	}
}

func TestExtractConcepts_ReextractionReplaces(t *testing.T) {
	s, _ := newTestStore(t)
	p := s.CreatePage("Alpha")
	b := s.CreateBlock(CreateBlockParams{PageID: p.ID, Type: models.TypeHeading, Content: "Old Topic"})

	first := s.ExtractConcepts(p.ID)
	if len(first) != 1 {
		t.Fatalf("concepts = %d, want 1", len(first))
	}

	// Repeated extraction on unchanged content is stable.
	if again := s.ExtractConcepts(p.ID); len(again) != 1 || again[0].ID != first[0].ID {
		t.Errorf("re-extraction changed concepts: %v", again)
	}

	s.UpdateBlockContent(b, "New Topic", false)
	second := s.ExtractConcepts(p.ID)
	if len(second) != 1 {
		t.Fatalf("concepts after edit = %d, want 1 (old replaced)", len(second))
	}
	if second[0].Name != "New Topic" {
		t.Errorf("concept = %q, want New Topic", second[0].Name)
	}
	if got := len(s.PageConcepts(p.ID)); got != 1 {
		t.Errorf("stored concepts = %d, want 1", got)
	}
}

func TestExtractConcepts_UnknownPage(t *testing.T) {
	s, _ := newTestStore(t)
	if got := s.ExtractConcepts("nope"); got != nil {
		t.Errorf("concepts for unknown page = %v, want nil", got)
	}
}

func TestCorrelatePages_ExactNameTops(t *testing.T) {
	s, _ := newTestStore(t)
	a := s.CreatePage("Alpha")
	b := s.CreatePage("Beta")
	s.CreateBlock(CreateBlockParams{PageID: a.ID, Type: models.TypeHeading, Content: "Fermentation"})
	s.CreateBlock(CreateBlockParams{PageID: b.ID, Type: models.TypeHeading, Content: "fermentation"})
	s.CreateBlock(CreateBlockParams{PageID: a.ID, Content: "see [[Beta]]"})
	s.ExtractConcepts(a.ID)
	s.ExtractConcepts(b.ID)

	correlations := s.CorrelatePages(a.ID, b.ID)
	if len(correlations) < 2 {
		t.Fatalf("correlations = %+v, want name match plus reference", correlations)
	}
	if correlations[0].Score != scoreExactName {
		t.Errorf("top score = %v, want exact-name %v", correlations[0].Score, scoreExactName)
	}
	found := false
	for _, c := range correlations {
		if c.Score == scoreOneWayRef {
			found = true
		}
	}
	if !found {
		t.Error("one-way reference correlation missing")
	}
}

func TestCorrelatePages_MutualReference(t *testing.T) {
	s, _ := newTestStore(t)
	a := s.CreatePage("Alpha")
	b := s.CreatePage("Beta")
	s.CreateBlock(CreateBlockParams{PageID: a.ID, Content: "[[Beta]]"})
	s.CreateBlock(CreateBlockParams{PageID: b.ID, Content: "[[Alpha]]"})

	correlations := s.CorrelatePages(a.ID, b.ID)
	if len(correlations) != 1 || correlations[0].Score != scoreMutualRef {
		t.Errorf("correlations = %+v, want single mutual-reference entry", correlations)
	}
}

func TestCorrelatePages_UnknownPage(t *testing.T) {
	s, _ := newTestStore(t)
	a := s.CreatePage("Alpha")
	if got := s.CorrelatePages(a.ID, "nope"); got != nil {
		t.Errorf("correlations = %v, want nil", got)
	}
}
