package engine

import (
	"sort"
	"strings"

	"github.com/starford/othala/internal/models"
)

// maxSearchResults caps search output.
const maxSearchResults = 20

// Search result scoring. Pages weigh slightly above blocks; a prefix match
// boosts over a plain substring hit.
const (
	pageBaseScore  = 2.0
	blockBaseScore = 1.5
	prefixBoost    = 1.0
)

// SearchResult is one ranked hit over page titles and block content.
type SearchResult struct {
	Kind    string  `json:"kind"` // "page" or "block"
	PageID  string  `json:"page_id"`
	BlockID string  `json:"block_id,omitempty"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet,omitempty"`
	Score   float64 `json:"score"`
}

// SearchNotes performs a case-insensitive substring search over page titles
// and block text, returning up to 20 results ranked by score (prefix
// matches boosted, pages slightly above blocks).
func (s *Store) SearchNotes(query string) []SearchResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	var results []SearchResult

	for _, p := range sortedValues(s.pages, func(p *models.Page) string { return p.ID }) {
		title := strings.ToLower(p.Title)
		if !strings.Contains(title, q) {
			continue
		}
		score := pageBaseScore
		if strings.HasPrefix(title, q) {
			score += prefixBoost
		}
		results = append(results, SearchResult{
			Kind:   "page",
			PageID: p.ID,
			Title:  p.Title,
			Score:  score,
		})
	}

	for _, b := range sortedValues(s.blocks, func(b *models.Block) string { return b.ID }) {
		content := strings.ToLower(b.Content)
		if !strings.Contains(content, q) {
			continue
		}
		score := blockBaseScore
		if strings.HasPrefix(content, q) {
			score += prefixBoost
		}
		title := ""
		if p, ok := s.pages[b.PageID]; ok {
			title = p.Title
		}
		results = append(results, SearchResult{
			Kind:    "block",
			PageID:  b.PageID,
			BlockID: b.ID,
			Title:   title,
			Snippet: truncate(b.Content, linkContextLen),
			Score:   score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > maxSearchResults {
		results = results[:maxSearchResults]
	}
	return results
}
