package engine

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/order"
	"github.com/starford/othala/internal/parser"
	"github.com/starford/othala/internal/storage"
)

// CreateBlockParams are the inputs for CreateBlock. ParentID empty means
// top-level; AfterBlockID empty appends at the end of the sibling list.
type CreateBlockParams struct {
	PageID       string
	ParentID     string
	AfterBlockID string
	Content      string
	Type         models.BlockType
	Properties   map[string]string
}

// CreateBlock inserts a new block and returns its id. Operations on a
// nonexistent page or parent are structural no-ops returning "".
func (s *Store) CreateBlock(p CreateBlockParams) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createBlockLocked(p)
}

func (s *Store) createBlockLocked(p CreateBlockParams) string {
	if _, ok := s.pages[p.PageID]; !ok {
		return ""
	}
	indent := 0
	if p.ParentID != "" {
		parent, ok := s.blocks[p.ParentID]
		if !ok || parent.PageID != p.PageID {
			return ""
		}
		indent = parent.Indent + 1
	}
	if p.Type == "" {
		p.Type = models.TypeParagraph
	}

	now := time.Now()
	b := &models.Block{
		ID:         uuid.NewString(),
		PageID:     p.PageID,
		ParentID:   p.ParentID,
		Type:       p.Type,
		Content:    p.Content,
		Order:      s.orderForInsert(p.PageID, p.ParentID, p.AfterBlockID),
		Indent:     indent,
		Properties: p.Properties,
		Refs:       parser.ExtractRefs(p.Content),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.blocks[b.ID] = b

	s.pushTransactionLocked(
		[]models.Operation{{Action: models.OpInsert, BlockID: b.ID, PageID: b.PageID, Data: b.Clone()}},
		// Inverse insert carries no data: replay removes the block.
		[]models.Operation{{Action: models.OpInsert, BlockID: b.ID, PageID: b.PageID}},
	)

	if len(b.Refs) > 0 {
		s.rebuildPageLinksLocked()
	}
	s.scheduleStructuralSave(storage.CollectionBlocks)
	s.emit("block.created", map[string]string{"id": b.ID, "page_id": b.PageID})
	return b.ID
}

// UpdateBlockContent sets a block's content and recomputes its refs. When
// transact is false the edit is treated as an in-progress keystroke: it is
// persisted through the content debounce but recorded in history only at
// the caller's discretion (pass true for the settled value).
func (s *Store) UpdateBlockContent(blockID, content string, transact bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.blocks[blockID]
	if !ok {
		return
	}
	prev := b.Clone()
	hadRefs := len(b.Refs) > 0

	b.Content = content
	b.Refs = parser.ExtractRefs(content)
	b.UpdatedAt = time.Now()

	if transact {
		s.pushTransactionLocked(
			[]models.Operation{{Action: models.OpUpdate, BlockID: b.ID, PageID: b.PageID, Data: b.Clone()}},
			[]models.Operation{{Action: models.OpUpdate, BlockID: b.ID, PageID: b.PageID, Data: prev}},
		)
	}
	if hadRefs || len(b.Refs) > 0 {
		s.rebuildPageLinksLocked()
	}
	s.scheduleContentSave(storage.CollectionBlocks)
	s.emit("block.updated", map[string]string{"id": b.ID, "page_id": b.PageID})
}

// DeleteBlock removes a block and all its descendants atomically. If the
// focused block was deleted, focus moves to the nearest surviving sibling
// (backward first, then forward).
func (s *Store) DeleteBlock(blockID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteSubtreeLocked(blockID, nil, nil)
}

// deleteSubtreeLocked deletes blockID and descendants. When extraDo and
// extraUndo are non-nil the delete joins an enclosing transaction (merge);
// otherwise it pushes its own.
func (s *Store) deleteSubtreeLocked(blockID string, extraDo, extraUndo []models.Operation) {
	root, ok := s.blocks[blockID]
	if !ok {
		return
	}

	doomed := s.collectSubtree(blockID)
	hadRefs := false

	doOps := append([]models.Operation(nil), extraDo...)
	undoOps := append([]models.Operation(nil), extraUndo...)
	for _, b := range doomed {
		doOps = append(doOps, models.Operation{Action: models.OpDelete, BlockID: b.ID, PageID: b.PageID})
		undoOps = append(undoOps, models.Operation{Action: models.OpInsert, BlockID: b.ID, PageID: b.PageID, Data: b.Clone()})
		if len(b.Refs) > 0 {
			hadRefs = true
		}
	}

	deleted := make(map[string]bool, len(doomed))
	for _, b := range doomed {
		deleted[b.ID] = true
		delete(s.blocks, b.ID)
	}

	if deleted[s.focusedBlock] {
		s.focusedBlock = s.successorFocus(root, deleted)
	}

	s.pushTransactionLocked(doOps, undoOps)
	if hadRefs {
		s.rebuildPageLinksLocked()
	}
	s.scheduleStructuralSave(storage.CollectionBlocks)
	s.emit("block.deleted", map[string]string{"id": blockID, "page_id": root.PageID})
}

// collectSubtree gathers a block and all descendants in parent-before-child
// order using a single-pass traversal over a child adjacency index built
// once per call.
func (s *Store) collectSubtree(rootID string) []*models.Block {
	root, ok := s.blocks[rootID]
	if !ok {
		return nil
	}
	children := make(map[string][]*models.Block)
	for _, b := range s.blocks {
		if b.ParentID != "" && b.PageID == root.PageID {
			children[b.ParentID] = append(children[b.ParentID], b)
		}
	}

	var out []*models.Block
	queue := []*models.Block{root}
	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		out = append(out, b)
		kids := children[b.ID]
		sort.Slice(kids, func(i, j int) bool { return kids[i].Order < kids[j].Order })
		queue = append(queue, kids...)
	}
	return out
}

// successorFocus picks the focus target after a delete: walk backward from
// the deleted root among its page siblings, then forward, skipping anything
// in the deleted set.
func (s *Store) successorFocus(root *models.Block, deleted map[string]bool) string {
	siblings := s.siblingsLocked(root.PageID, root.ParentID)
	idx := -1
	for i, b := range siblings {
		if b.ID == root.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ""
	}
	for i := idx - 1; i >= 0; i-- {
		if !deleted[siblings[i].ID] {
			return siblings[i].ID
		}
	}
	for i := idx + 1; i < len(siblings); i++ {
		if !deleted[siblings[i].ID] {
			return siblings[i].ID
		}
	}
	return ""
}

// MoveBlock reparents and/or reorders a block. The new parent must be in
// the same page and must not be inside the moved subtree.
func (s *Store) MoveBlock(blockID, newParentID, afterBlockID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moveBlockLocked(blockID, newParentID, afterBlockID)
}

func (s *Store) moveBlockLocked(blockID, newParentID, afterBlockID string) {
	b, ok := s.blocks[blockID]
	if !ok {
		return
	}
	newIndent := 0
	if newParentID != "" {
		parent, ok := s.blocks[newParentID]
		if !ok || parent.PageID != b.PageID {
			return
		}
		// Reject cycles: the target parent may not live under the
		// moved block.
		for _, d := range s.collectSubtree(blockID) {
			if d.ID == newParentID {
				return
			}
		}
		newIndent = parent.Indent + 1
	}

	var doOps, undoOps []models.Operation
	record := func(blk *models.Block, prev *models.Block) {
		doOps = append(doOps, models.Operation{Action: models.OpMove, BlockID: blk.ID, PageID: blk.PageID, Data: blk.Clone()})
		undoOps = append(undoOps, models.Operation{Action: models.OpMove, BlockID: blk.ID, PageID: blk.PageID, Data: prev})
	}

	prev := b.Clone()
	delta := newIndent - b.Indent
	b.ParentID = newParentID
	b.Order = s.orderForInsert(b.PageID, newParentID, afterBlockID)
	b.Indent = newIndent
	b.UpdatedAt = time.Now()
	record(b, prev)

	// Descendants keep their relative structure; only indent shifts.
	if delta != 0 {
		for _, d := range s.collectSubtree(blockID) {
			if d.ID == blockID {
				continue
			}
			dPrev := d.Clone()
			d.Indent += delta
			record(d, dPrev)
		}
	}

	s.pushTransactionLocked(doOps, undoOps)
	s.scheduleStructuralSave(storage.CollectionBlocks)
	s.emit("block.moved", map[string]string{"id": b.ID, "page_id": b.PageID})
}

// IndentBlock nests a block under its previous sibling. The first block in
// a sibling list cannot be indented (no-op).
func (s *Store) IndentBlock(blockID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.blocks[blockID]
	if !ok {
		return
	}
	prev := s.previousSiblingLocked(b)
	if prev == nil {
		return
	}
	s.moveBlockLocked(blockID, prev.ID, lastChildID(s.siblingsLocked(b.PageID, prev.ID)))
}

// OutdentBlock promotes a block to its parent's sibling level, placed
// immediately after the parent. Top-level blocks cannot be outdented.
func (s *Store) OutdentBlock(blockID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.blocks[blockID]
	if !ok || b.ParentID == "" {
		return
	}
	parent, ok := s.blocks[b.ParentID]
	if !ok {
		return
	}
	s.moveBlockLocked(blockID, parent.ParentID, parent.ID)
}

// MergeBlockUp concatenates a block's content into its previous sibling and
// deletes the block (with descendants). Returns the surviving block's id,
// or "" when the merge is a no-op (first block in its list, or the previous
// sibling is a separator type).
func (s *Store) MergeBlockUp(blockID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.blocks[blockID]
	if !ok {
		return ""
	}
	prev := s.previousSiblingLocked(b)
	if prev == nil || prev.Type.IsSeparator() {
		return ""
	}

	prevSnapshot := prev.Clone()
	// Raw concatenation regardless of type; type mixing is permitted.
	prev.Content += b.Content
	prev.Refs = parser.ExtractRefs(prev.Content)
	prev.UpdatedAt = time.Now()

	extraDo := []models.Operation{{Action: models.OpUpdate, BlockID: prev.ID, PageID: prev.PageID, Data: prev.Clone()}}
	extraUndo := []models.Operation{{Action: models.OpUpdate, BlockID: prev.ID, PageID: prev.PageID, Data: prevSnapshot}}
	s.deleteSubtreeLocked(blockID, extraDo, extraUndo)

	if len(prev.Refs) > 0 {
		s.rebuildPageLinksLocked()
	}
	return prev.ID
}

// SplitBlock truncates a block to before and inserts a new paragraph
// sibling immediately after it carrying after. Returns the new block's id,
// or "" when the block does not exist.
func (s *Store) SplitBlock(blockID, before, after string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.blocks[blockID]
	if !ok {
		return ""
	}

	prev := b.Clone()
	b.Content = before
	b.Refs = parser.ExtractRefs(before)
	b.UpdatedAt = time.Now()

	now := time.Now()
	nb := &models.Block{
		ID:        uuid.NewString(),
		PageID:    b.PageID,
		ParentID:  b.ParentID,
		Type:      models.TypeParagraph,
		Content:   after,
		Order:     s.orderForInsert(b.PageID, b.ParentID, b.ID),
		Indent:    b.Indent,
		Refs:      parser.ExtractRefs(after),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.blocks[nb.ID] = nb

	s.pushTransactionLocked(
		[]models.Operation{
			{Action: models.OpUpdate, BlockID: b.ID, PageID: b.PageID, Data: b.Clone()},
			{Action: models.OpInsert, BlockID: nb.ID, PageID: nb.PageID, Data: nb.Clone()},
		},
		[]models.Operation{
			{Action: models.OpUpdate, BlockID: b.ID, PageID: b.PageID, Data: prev},
			{Action: models.OpInsert, BlockID: nb.ID, PageID: nb.PageID},
		},
	)

	if len(b.Refs) > 0 || len(nb.Refs) > 0 {
		s.rebuildPageLinksLocked()
	}
	s.scheduleStructuralSave(storage.CollectionBlocks)
	s.emit("block.created", map[string]string{"id": nb.ID, "page_id": nb.PageID})
	return nb.ID
}

// ChangeBlockType swaps a block's type and properties, clearing its content.
// The clear is destructive: callers recover prior content via undo.
func (s *Store) ChangeBlockType(blockID string, newType models.BlockType, properties map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.blocks[blockID]
	if !ok {
		return
	}
	prev := b.Clone()
	hadRefs := len(b.Refs) > 0

	b.Type = newType
	b.Properties = properties
	b.Content = ""
	b.Refs = nil
	b.UpdatedAt = time.Now()

	s.pushTransactionLocked(
		[]models.Operation{{Action: models.OpSetBlockType, BlockID: b.ID, PageID: b.PageID, Data: b.Clone()}},
		[]models.Operation{{Action: models.OpSetBlockType, BlockID: b.ID, PageID: b.PageID, Data: prev}},
	)

	if hadRefs {
		s.rebuildPageLinksLocked()
	}
	s.scheduleStructuralSave(storage.CollectionBlocks)
	s.emit("block.updated", map[string]string{"id": b.ID, "page_id": b.PageID})
}

// GetBlock returns a copy of a block, or nil when absent.
func (s *Store) GetBlock(blockID string) *models.Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.blocks[blockID]; ok {
		return b.Clone()
	}
	return nil
}

// PageBlocks returns copies of a page's blocks in depth-first outline order.
func (s *Store) PageBlocks(pageID string) []*models.Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageBlocksLocked(pageID)
}

func (s *Store) pageBlocksLocked(pageID string) []*models.Block {
	var walk func(parentID string, out []*models.Block) []*models.Block
	walk = func(parentID string, out []*models.Block) []*models.Block {
		for _, b := range s.siblingsLocked(pageID, parentID) {
			out = append(out, b.Clone())
			out = walk(b.ID, out)
		}
		return out
	}
	return walk("", nil)
}

// BlockCount returns the number of blocks in the store (all pages).
func (s *Store) BlockCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blocks)
}

// --- Sibling helpers ---

// siblingsLocked returns the blocks sharing (pageID, parentID) sorted by
// order key, id as tiebreaker.
func (s *Store) siblingsLocked(pageID, parentID string) []*models.Block {
	var out []*models.Block
	for _, b := range s.blocks {
		if b.PageID == pageID && b.ParentID == parentID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) previousSiblingLocked(b *models.Block) *models.Block {
	siblings := s.siblingsLocked(b.PageID, b.ParentID)
	var prev *models.Block
	for _, sib := range siblings {
		if sib.ID == b.ID {
			return prev
		}
		prev = sib
	}
	return nil
}

// orderForInsert computes the order key for inserting after afterBlockID
// among the siblings of (pageID, parentID), or at the end of the list when
// afterBlockID is empty or not a sibling.
func (s *Store) orderForInsert(pageID, parentID, afterBlockID string) string {
	siblings := s.siblingsLocked(pageID, parentID)
	if afterBlockID != "" {
		for i, sib := range siblings {
			if sib.ID == afterBlockID {
				next := ""
				if i+1 < len(siblings) {
					next = siblings[i+1].Order
				}
				return order.Between(sib.Order, next)
			}
		}
	}
	if len(siblings) == 0 {
		return order.First()
	}
	return order.Between(siblings[len(siblings)-1].Order, "")
}

func lastChildID(siblings []*models.Block) string {
	if len(siblings) == 0 {
		return ""
	}
	return siblings[len(siblings)-1].ID
}
