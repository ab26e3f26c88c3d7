package engine

import (
	"sort"
	"unicode/utf8"

	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/parser"
)

// linkContextLen bounds the content snippet stored on a derived edge.
const linkContextLen = 120

// RebuildPageLinks recomputes the full backlink graph from block content.
// The graph is derived state: it is never edited directly and a rebuild
// with unchanged content is idempotent.
func (s *Store) RebuildPageLinks() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebuildPageLinksLocked()
}

func (s *Store) rebuildPageLinksLocked() {
	byName := make(map[string]*models.Page, len(s.pages))
	for _, p := range s.pages {
		byName[p.Name] = p
	}

	// Deterministic block order keeps the edge list stable across rebuilds.
	blocks := sortedValues(s.blocks, func(b *models.Block) string { return b.ID })

	var edges []models.PageLink
	for _, b := range blocks {
		for _, ref := range b.Refs {
			target, ok := byName[parser.Normalize(ref)]
			if !ok {
				// Dangling references are dropped, not stored as
				// broken edges.
				continue
			}
			edges = append(edges, models.PageLink{
				SourcePageID:  b.PageID,
				SourceBlockID: b.ID,
				TargetPageID:  target.ID,
				Context:       truncate(b.Content, linkContextLen),
			})
		}
	}
	s.links = edges
}

// Backlinks returns every edge whose target is pageID.
func (s *Store) Backlinks(pageID string) []models.PageLink {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.PageLink
	for _, e := range s.links {
		if e.TargetPageID == pageID {
			out = append(out, e)
		}
	}
	return out
}

// OutgoingLinks returns every edge whose source is pageID.
func (s *Store) OutgoingLinks(pageID string) []models.PageLink {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.PageLink
	for _, e := range s.links {
		if e.SourcePageID == pageID {
			out = append(out, e)
		}
	}
	return out
}

// GraphNode is a page node for graph visualization.
type GraphNode struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// GraphEdge is a directed page-to-page edge for graph visualization.
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph returns all pages as nodes and the deduplicated page-to-page edges.
func (s *Store) Graph() ([]GraphNode, []GraphEdge) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nodes := make([]GraphNode, 0, len(s.pages))
	for _, p := range sortedValues(s.pages, func(p *models.Page) string { return p.ID }) {
		nodes = append(nodes, GraphNode{ID: p.ID, Title: p.Title})
	}

	seen := make(map[[2]string]bool)
	var edges []GraphEdge
	for _, e := range s.links {
		key := [2]string{e.SourcePageID, e.TargetPageID}
		if seen[key] || e.SourcePageID == e.TargetPageID {
			continue
		}
		seen[key] = true
		edges = append(edges, GraphEdge{Source: e.SourcePageID, Target: e.TargetPageID})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].Target < edges[j].Target
	})
	return nodes, edges
}

// truncate cuts s to at most n bytes without splitting a multi-byte rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
