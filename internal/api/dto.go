package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/othala/internal/models"
)

// CreatePageRequest is the request body for creating a page.
type CreatePageRequest struct {
	Title string `json:"title" example:"Reading List"`
}

// Validate checks the request fields.
func (r CreatePageRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 512)),
	)
}

// RenamePageRequest is the request body for renaming a page.
type RenamePageRequest struct {
	Title string `json:"title" example:"Watching List"`
}

// Validate checks the request fields.
func (r RenamePageRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 512)),
	)
}

// PageFlagRequest toggles a boolean page flag (favorite, pinned).
type PageFlagRequest struct {
	Value bool `json:"value"`
}

// CreateBlockRequest is the request body for creating a block.
type CreateBlockRequest struct {
	PageID       string            `json:"page_id"`
	ParentID     string            `json:"parent_id,omitempty"`
	AfterBlockID string            `json:"after_block_id,omitempty"`
	Content      string            `json:"content,omitempty"`
	Type         models.BlockType  `json:"type,omitempty"`
	Properties   map[string]string `json:"properties,omitempty"`
}

// Validate checks the request fields.
func (r CreateBlockRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.PageID, validation.Required),
	)
}

// UpdateBlockRequest is the request body for a content edit. Transact marks
// the value as settled, making the edit undoable as its own step.
type UpdateBlockRequest struct {
	Content  string `json:"content"`
	Transact bool   `json:"transact,omitempty"`
}

// MoveBlockRequest is the request body for reparenting/reordering a block.
type MoveBlockRequest struct {
	ParentID     string `json:"parent_id,omitempty"`
	AfterBlockID string `json:"after_block_id,omitempty"`
}

// SplitBlockRequest is the request body for splitting a block in two.
type SplitBlockRequest struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

// ChangeTypeRequest is the request body for a destructive type change.
type ChangeTypeRequest struct {
	Type       models.BlockType  `json:"type"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Validate checks the request fields.
func (r ChangeTypeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Type, validation.Required),
	)
}

// CreateVaultRequest is the request body for creating a vault.
type CreateVaultRequest struct {
	Name string `json:"name" example:"Work"`
}

// Validate checks the request fields.
func (r CreateVaultRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 128)),
	)
}

// CreateBookRequest is the request body for creating a book.
type CreateBookRequest struct {
	Title    string   `json:"title"`
	Chapters []string `json:"chapters,omitempty"`
}

// Validate checks the request fields.
func (r CreateBookRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 512)),
	)
}

// BookPageRequest attaches a page to a book.
type BookPageRequest struct {
	PageID string `json:"page_id"`
}

// Validate checks the request fields.
func (r BookPageRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.PageID, validation.Required),
	)
}

// MergeResponse reports the outcome of a merge-up.
type MergeResponse struct {
	Merged     bool   `json:"merged"`
	SurvivorID string `json:"survivor_id,omitempty"`
}

// SplitResponse reports the block created by a split.
type SplitResponse struct {
	NewBlockID string `json:"new_block_id"`
}

// HistoryResponse reports whether an undo/redo applied and the depths after.
type HistoryResponse struct {
	Applied   bool `json:"applied"`
	UndoDepth int  `json:"undo_depth"`
	RedoDepth int  `json:"redo_depth"`
}

// GeneratorSessionResponse carries the fence token of a generation session.
type GeneratorSessionResponse struct {
	Generation uint64 `json:"generation"`
}
