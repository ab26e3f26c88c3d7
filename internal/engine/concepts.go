package engine

import (
	"sort"
	"strings"

	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/parser"
	"github.com/starford/othala/internal/storage"
)

// conceptIDTermLen is the truncated term slice used in deterministic
// concept ids, so re-extraction replaces a block's prior concepts instead
// of accumulating near-duplicates.
const conceptIDTermLen = 24

// Concept correlation scores. Exact name equality ranks highest by design.
const (
	scoreExactName   = 1.0
	scoreMutualRef   = 0.8
	scoreContainment = 0.6
	scoreOneWayRef   = 0.4
)

// ExtractConcepts rescans a page's blocks and replaces its concept records:
// headings contribute their text, bold spans contribute bounded terms, and
// page references contribute the referenced name.
func (s *Store) ExtractConcepts(pageID string) []*models.Concept {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pages[pageID]; !ok {
		return nil
	}

	for id, c := range s.concepts {
		if c.PageID == pageID {
			delete(s.concepts, id)
		}
	}

	var out []*models.Concept
	add := func(blockID, term, kind string) {
		term = strings.TrimSpace(term)
		if term == "" {
			return
		}
		id := conceptID(blockID, term)
		// A term harvested twice from one block (e.g. a bold reference)
		// collapses to a single concept; the first kind wins.
		if _, ok := s.concepts[id]; ok {
			return
		}
		c := &models.Concept{
			ID:     id,
			PageID: pageID,
			Name:   term,
			Kind:   kind,
		}
		s.concepts[c.ID] = c
		out = append(out, c)
	}

	for _, b := range s.pageBlocksLocked(pageID) {
		if b.Type == models.TypeHeading {
			add(b.ID, b.Content, "heading")
		}
		for _, term := range parser.ExtractEmphasis(b.Content) {
			add(b.ID, term, "emphasis")
		}
		for _, ref := range b.Refs {
			add(b.ID, ref, "reference")
		}
	}

	s.scheduleStructuralSave(storage.CollectionConcepts)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PageConcepts returns the stored concepts for a page.
func (s *Store) PageConcepts(pageID string) []*models.Concept {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageConceptsLocked(pageID)
}

func (s *Store) pageConceptsLocked(pageID string) []*models.Concept {
	var out []*models.Concept
	for _, c := range s.concepts {
		if c.PageID == pageID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CorrelatePages heuristically scores the relationship between two pages:
// concept name equality or containment, plus reference edges between them.
// This is lexical similarity, not semantic matching.
func (s *Store) CorrelatePages(pageA, pageB string) []models.Correlation {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pages[pageA]; !ok {
		return nil
	}
	if _, ok := s.pages[pageB]; !ok {
		return nil
	}

	var out []models.Correlation
	add := func(score float64, reason string) {
		out = append(out, models.Correlation{PageA: pageA, PageB: pageB, Score: score, Reason: reason})
	}

	conceptsA := s.pageConceptsLocked(pageA)
	conceptsB := s.pageConceptsLocked(pageB)
	seen := make(map[string]bool)
	for _, a := range conceptsA {
		na := parser.Normalize(a.Name)
		for _, b := range conceptsB {
			nb := parser.Normalize(b.Name)
			key := na + "\x00" + nb
			if seen[key] {
				continue
			}
			switch {
			case na == nb:
				seen[key] = true
				add(scoreExactName, "concept: "+a.Name)
			case strings.Contains(na, nb) || strings.Contains(nb, na):
				seen[key] = true
				add(scoreContainment, "concept overlap: "+a.Name+" / "+b.Name)
			}
		}
	}

	aToB, bToA := false, false
	for _, e := range s.links {
		if e.SourcePageID == pageA && e.TargetPageID == pageB {
			aToB = true
		}
		if e.SourcePageID == pageB && e.TargetPageID == pageA {
			bToA = true
		}
	}
	switch {
	case aToB && bToA:
		add(scoreMutualRef, "mutual reference")
	case aToB || bToA:
		add(scoreOneWayRef, "reference")
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// conceptID derives a deterministic id from the block and a truncated,
// normalized slice of the term.
func conceptID(blockID, term string) string {
	key := parser.Normalize(term)
	if len(key) > conceptIDTermLen {
		key = key[:conceptIDTermLen]
	}
	return blockID + ":" + strings.ReplaceAll(key, " ", "-")
}
