// Package models defines the domain types for Othala.
package models

import "time"

// BlockType enumerates the content block kinds the engine understands.
type BlockType string

// Block types.
const (
	TypeParagraph    BlockType = "paragraph"
	TypeHeading      BlockType = "heading"
	TypeCode         BlockType = "code"
	TypeMath         BlockType = "math"
	TypeQuote        BlockType = "quote"
	TypeCallout      BlockType = "callout"
	TypeList         BlockType = "list"
	TypeNumberedList BlockType = "numbered-list"
	TypeTodo         BlockType = "todo"
	TypeDivider      BlockType = "divider"
	TypeImage        BlockType = "image"
	TypeTable        BlockType = "table"
	TypeEmbed        BlockType = "embed"
	TypeToggle       BlockType = "toggle"
)

// IsSeparator reports whether the type is a structural separator that
// content can never be merged into.
func (t BlockType) IsSeparator() bool {
	return t == TypeDivider
}

// Block is the atomic unit of content. Every block belongs to exactly one
// page and may be nested under a parent block in the same page. Sibling
// order is a fractional string key, unique per (PageID, ParentID).
type Block struct {
	ID         string            `json:"id"`
	PageID     string            `json:"page_id"`
	ParentID   string            `json:"parent_id,omitempty"` // empty = top-level
	Type       BlockType         `json:"type"`
	Content    string            `json:"content"`
	Order      string            `json:"order"`
	Indent     int               `json:"indent"`
	Collapsed  bool              `json:"collapsed,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
	Refs       []string          `json:"refs,omitempty"` // page names referenced in Content
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Clone returns a deep copy so transaction snapshots never alias live state.
func (b *Block) Clone() *Block {
	cp := *b
	if b.Properties != nil {
		cp.Properties = make(map[string]string, len(b.Properties))
		for k, v := range b.Properties {
			cp.Properties[k] = v
		}
	}
	if b.Refs != nil {
		cp.Refs = append([]string(nil), b.Refs...)
	}
	return &cp
}

// Page groups blocks under a title. Name is the normalized lookup key
// (lowercased, whitespace collapsed) and is unique per vault.
type Page struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Name        string    `json:"name"`
	IsJournal   bool      `json:"is_journal,omitempty"`
	JournalDate string    `json:"journal_date,omitempty"` // YYYY-MM-DD
	Favorite    bool      `json:"favorite,omitempty"`
	Pinned      bool      `json:"pinned,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Clone returns a copy safe to hand outside the engine lock.
func (p *Page) Clone() *Page {
	cp := *p
	return &cp
}

// Book is an ordered named grouping of pages. A page belongs to at most
// one book, enforced by move semantics rather than the type itself.
type Book struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	PageIDs       []string  `json:"page_ids"`
	Chapters      []string  `json:"chapters,omitempty"`
	AutoGenerated bool      `json:"auto_generated,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Clone returns a copy with its own page id slice.
func (b *Book) Clone() *Book {
	cp := *b
	cp.PageIDs = append([]string(nil), b.PageIDs...)
	cp.Chapters = append([]string(nil), b.Chapters...)
	return &cp
}

// PageLink is a derived backlink-graph edge. It is recomputed from block
// content and never persisted or hand-edited.
type PageLink struct {
	SourcePageID  string `json:"source_page_id"`
	SourceBlockID string `json:"source_block_id"`
	TargetPageID  string `json:"target_page_id"`
	Context       string `json:"context,omitempty"`
}

// Concept is a lightweight extracted term used for cross-page correlation.
type Concept struct {
	ID     string `json:"id"` // deterministic: block id + truncated term
	PageID string `json:"page_id"`
	Name   string `json:"name"`
	Kind   string `json:"kind"` // "heading", "emphasis", or "reference"
}

// Correlation is a scored similarity record between two pages.
type Correlation struct {
	PageA  string  `json:"page_a"`
	PageB  string  `json:"page_b"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// Vault is an isolated namespace of pages, blocks, books, and concepts.
type Vault struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	PageCount int       `json:"page_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OpAction enumerates the primitive operations a transaction replays.
type OpAction string

// Operation actions.
const (
	OpInsert       OpAction = "insert"
	OpDelete       OpAction = "delete"
	OpUpdate       OpAction = "update"
	OpMove         OpAction = "move"
	OpSetBlockType OpAction = "setBlockType"
)

// Operation is one primitive step in a transaction. Data carries the block
// snapshot to apply; an insert with nil Data is the inverse tag whose replay
// removes the block.
type Operation struct {
	Action  OpAction `json:"action"`
	BlockID string   `json:"block_id"`
	PageID  string   `json:"page_id"`
	Data    *Block   `json:"data,omitempty"`
}

// Transaction pairs forward and inverse operation lists. Applying DoOps then
// UndoOps (or vice versa) is a no-op on observable block state.
type Transaction struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	DoOps     []Operation `json:"do_ops"`
	UndoOps   []Operation `json:"undo_ops"`
}
