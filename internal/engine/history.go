package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/storage"
)

// pushTransactionLocked appends a transaction to the bounded undo stack,
// evicting the oldest entry past capacity, and clears the redo stack: a new
// mutation invalidates any redo history.
func (s *Store) pushTransactionLocked(doOps, undoOps []models.Operation) {
	tx := &models.Transaction{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		DoOps:     doOps,
		UndoOps:   undoOps,
	}
	s.undoStack = append(s.undoStack, tx)
	if len(s.undoStack) > s.historyLimit {
		s.undoStack = s.undoStack[len(s.undoStack)-s.historyLimit:]
	}
	s.redoStack = nil
}

// Undo pops the most recent transaction and replays its inverse operations
// in their original order. No-op on an empty stack. Undo is persisted the
// same way a direct edit is.
func (s *Store) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.undoStack) == 0 {
		return false
	}
	tx := s.undoStack[len(s.undoStack)-1]
	s.undoStack = s.undoStack[:len(s.undoStack)-1]

	s.applyOpsLocked(tx.UndoOps)
	s.redoStack = append(s.redoStack, tx)

	s.rebuildPageLinksLocked()
	s.scheduleStructuralSave(storage.CollectionBlocks)
	s.emit("history.undo", map[string]string{"transaction_id": tx.ID})
	return true
}

// Redo reapplies the most recently undone transaction. No-op when nothing
// has been undone since the last new mutation.
func (s *Store) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.redoStack) == 0 {
		return false
	}
	tx := s.redoStack[len(s.redoStack)-1]
	s.redoStack = s.redoStack[:len(s.redoStack)-1]

	s.applyOpsLocked(tx.DoOps)
	s.undoStack = append(s.undoStack, tx)

	s.rebuildPageLinksLocked()
	s.scheduleStructuralSave(storage.CollectionBlocks)
	s.emit("history.redo", map[string]string{"transaction_id": tx.ID})
	return true
}

// UndoDepth returns the number of undoable transactions.
func (s *Store) UndoDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.undoStack)
}

// RedoDepth returns the number of redoable transactions.
func (s *Store) RedoDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.redoStack)
}

// applyOpsLocked replays primitive operations in order. Operations are
// snapshot-based: an insert (or update/move/setBlockType) with data installs
// an exact copy; an insert without data and a delete both remove the block.
func (s *Store) applyOpsLocked(ops []models.Operation) {
	for _, op := range ops {
		switch op.Action {
		case models.OpDelete:
			delete(s.blocks, op.BlockID)
		case models.OpInsert:
			if op.Data == nil {
				delete(s.blocks, op.BlockID)
				continue
			}
			s.blocks[op.BlockID] = op.Data.Clone()
		case models.OpUpdate, models.OpMove, models.OpSetBlockType:
			if op.Data == nil {
				continue
			}
			s.blocks[op.BlockID] = op.Data.Clone()
		}
	}
	if _, ok := s.blocks[s.focusedBlock]; !ok {
		s.focusedBlock = ""
	}
}
