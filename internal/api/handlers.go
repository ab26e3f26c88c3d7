package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/generator"
)

// Handler holds API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// decode reads a bounded JSON body into dst.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// writeErr maps sentinel errors to HTTP statuses.
func writeErr(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody("already exists"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("conflict"))
	case errors.Is(err, apperr.ErrInvalid):
		writeJSON(w, http.StatusBadRequest, errorBody("invalid input"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// --- Pages ---

// ListPages handles GET /api/pages.
//
//	@Summary	List pages, pinned and favorites first
//	@Tags		pages
//	@Produce	json
//	@Security	BearerAuth
//	@Router		/pages [get]
func (h *Handler) ListPages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"pages": h.svc.Store().ListPages()})
}

// CreatePage handles POST /api/pages.
//
//	@Summary	Create a page with its seed block
//	@Tags		pages
//	@Accept		json
//	@Produce	json
//	@Param		body	body	CreatePageRequest	true	"Page to create"
//	@Security	BearerAuth
//	@Router		/pages [post]
func (h *Handler) CreatePage(w http.ResponseWriter, r *http.Request) {
	var req CreatePageRequest
	if !decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	p, err := h.svc.CreatePage(req.Title)
	if err != nil {
		writeErr(w, err, "create page")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// EnsurePage handles POST /api/pages/ensure. Unlike CreatePage, an existing
// page with the same normalized title is returned rather than conflicting.
func (h *Handler) EnsurePage(w http.ResponseWriter, r *http.Request) {
	var req CreatePageRequest
	if !decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	p, err := h.svc.EnsurePage(req.Title)
	if err != nil {
		writeErr(w, err, "ensure page")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetPage handles GET /api/pages/{id}.
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetPage(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err, "get page")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeletePage handles DELETE /api/pages/{id}.
func (h *Handler) DeletePage(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeletePage(chi.URLParam(r, "id")); err != nil {
		writeErr(w, err, "delete page")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RenamePage handles POST /api/pages/{id}/rename.
//
//	@Summary	Rename a page, rewriting references to it
//	@Tags		pages
//	@Security	BearerAuth
//	@Router		/pages/{id}/rename [post]
func (h *Handler) RenamePage(w http.ResponseWriter, r *http.Request) {
	var req RenamePageRequest
	if !decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	p, err := h.svc.RenamePage(chi.URLParam(r, "id"), req.Title)
	if err != nil {
		writeErr(w, err, "rename page")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// SetPageFlag handles POST /api/pages/{id}/{flag} for favorite and pin.
func (h *Handler) SetPageFlag(flag string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PageFlagRequest
		if !decode(w, r, &req) {
			return
		}
		if err := h.svc.SetPageFlag(chi.URLParam(r, "id"), flag, req.Value); err != nil {
			writeErr(w, err, "set page flag")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// PageBlocks handles GET /api/pages/{id}/blocks.
func (h *Handler) PageBlocks(w http.ResponseWriter, r *http.Request) {
	blocks, err := h.svc.PageBlocks(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err, "page blocks")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"blocks": blocks})
}

// PageBacklinks handles GET /api/pages/{id}/backlinks.
func (h *Handler) PageBacklinks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.svc.GetPage(id); err != nil {
		writeErr(w, err, "backlinks")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"backlinks": h.svc.Store().Backlinks(id)})
}

// PageConcepts handles GET /api/pages/{id}/concepts.
func (h *Handler) PageConcepts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.svc.GetPage(id); err != nil {
		writeErr(w, err, "concepts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"concepts": h.svc.Store().PageConcepts(id)})
}

// ExtractConcepts handles POST /api/pages/{id}/concepts.
func (h *Handler) ExtractConcepts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.svc.GetPage(id); err != nil {
		writeErr(w, err, "extract concepts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"concepts": h.svc.Store().ExtractConcepts(id)})
}

// TodayJournal handles GET /api/journal/today.
func (h *Handler) TodayJournal(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Store().GetOrCreateTodayJournal())
}

// --- Blocks ---

// CreateBlock handles POST /api/blocks.
//
//	@Summary	Insert a block into a page's tree
//	@Tags		blocks
//	@Security	BearerAuth
//	@Router		/blocks [post]
func (h *Handler) CreateBlock(w http.ResponseWriter, r *http.Request) {
	var req CreateBlockRequest
	if !decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	b, err := h.svc.CreateBlock(req)
	if err != nil {
		writeErr(w, err, "create block")
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// GetBlock handles GET /api/blocks/{id}.
func (h *Handler) GetBlock(w http.ResponseWriter, r *http.Request) {
	b := h.svc.Store().GetBlock(chi.URLParam(r, "id"))
	if b == nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// UpdateBlock handles PATCH /api/blocks/{id}.
func (h *Handler) UpdateBlock(w http.ResponseWriter, r *http.Request) {
	var req UpdateBlockRequest
	if !decode(w, r, &req) {
		return
	}
	b, err := h.svc.UpdateBlock(chi.URLParam(r, "id"), req.Content, req.Transact)
	if err != nil {
		writeErr(w, err, "update block")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// DeleteBlock handles DELETE /api/blocks/{id}.
func (h *Handler) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteBlock(chi.URLParam(r, "id")); err != nil {
		writeErr(w, err, "delete block")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveBlock handles POST /api/blocks/{id}/move.
func (h *Handler) MoveBlock(w http.ResponseWriter, r *http.Request) {
	var req MoveBlockRequest
	if !decode(w, r, &req) {
		return
	}
	b, err := h.svc.MoveBlock(chi.URLParam(r, "id"), req.ParentID, req.AfterBlockID)
	if err != nil {
		writeErr(w, err, "move block")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// IndentBlock handles POST /api/blocks/{id}/indent.
func (h *Handler) IndentBlock(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.IndentBlock(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err, "indent block")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// OutdentBlock handles POST /api/blocks/{id}/outdent.
func (h *Handler) OutdentBlock(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.OutdentBlock(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err, "outdent block")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// MergeBlockUp handles POST /api/blocks/{id}/merge-up.
func (h *Handler) MergeBlockUp(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.MergeBlockUp(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err, "merge block")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// SplitBlock handles POST /api/blocks/{id}/split.
func (h *Handler) SplitBlock(w http.ResponseWriter, r *http.Request) {
	var req SplitBlockRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.svc.SplitBlock(chi.URLParam(r, "id"), req.Before, req.After)
	if err != nil {
		writeErr(w, err, "split block")
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// ChangeBlockType handles POST /api/blocks/{id}/type.
func (h *Handler) ChangeBlockType(w http.ResponseWriter, r *http.Request) {
	var req ChangeTypeRequest
	if !decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	b, err := h.svc.ChangeBlockType(chi.URLParam(r, "id"), req.Type, req.Properties)
	if err != nil {
		writeErr(w, err, "change block type")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// --- History ---

// Undo handles POST /api/undo.
func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Undo())
}

// Redo handles POST /api/redo.
func (h *Handler) Redo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Redo())
}

// --- Search, graph, correlation ---

// Search handles GET /api/search.
//
//	@Summary	Substring search over page titles and block text
//	@Tags		search
//	@Param		q	query	string	true	"Search query"
//	@Security	BearerAuth
//	@Router		/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": h.svc.Store().SearchNotes(q)})
}

// Graph handles GET /api/graph.
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	nodes, edges := h.svc.Store().Graph()
	writeJSON(w, http.StatusOK, map[string]any{"nodes": nodes, "edges": edges})
}

// Correlate handles GET /api/correlate?a=&b=.
func (h *Handler) Correlate(w http.ResponseWriter, r *http.Request) {
	a, b := r.URL.Query().Get("a"), r.URL.Query().Get("b")
	if a == "" || b == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameters 'a' and 'b' are required"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"correlations": h.svc.Store().CorrelatePages(a, b)})
}

// --- Vaults ---

// ListVaults handles GET /api/vaults.
func (h *Handler) ListVaults(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"active": h.svc.Store().ActiveVault(),
		"vaults": h.svc.Store().ListVaults(),
	})
}

// CreateVault handles POST /api/vaults.
func (h *Handler) CreateVault(w http.ResponseWriter, r *http.Request) {
	var req CreateVaultRequest
	if !decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusCreated, h.svc.Store().CreateVault(req.Name))
}

// SwitchVault handles POST /api/vaults/{id}/switch.
func (h *Handler) SwitchVault(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.SwitchVault(chi.URLParam(r, "id")); err != nil {
		writeErr(w, err, "switch vault")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteVault handles DELETE /api/vaults/{id}.
func (h *Handler) DeleteVault(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteVault(chi.URLParam(r, "id")); err != nil {
		writeErr(w, err, "delete vault")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Books ---

// ListBooks handles GET /api/books.
func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"books": h.svc.Store().ListBooks()})
}

// CreateBook handles POST /api/books.
func (h *Handler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req CreateBookRequest
	if !decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusCreated, h.svc.Store().CreateBook(req.Title, req.Chapters, false))
}

// AddPageToBook handles POST /api/books/{id}/pages.
func (h *Handler) AddPageToBook(w http.ResponseWriter, r *http.Request) {
	var req BookPageRequest
	if !decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if err := h.svc.AddPageToBook(chi.URLParam(r, "id"), req.PageID); err != nil {
		writeErr(w, err, "add page to book")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemovePageFromBook handles DELETE /api/books/{id}/pages/{pageID}.
func (h *Handler) RemovePageFromBook(w http.ResponseWriter, r *http.Request) {
	h.svc.Store().RemovePageFromBook(chi.URLParam(r, "id"), chi.URLParam(r, "pageID"))
	w.WriteHeader(http.StatusNoContent)
}

// DeleteBook handles DELETE /api/books/{id}.
func (h *Handler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	h.svc.Store().DeleteBook(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// --- Generator ---

// StartGeneration handles POST /api/generator/session.
func (h *Handler) StartGeneration(w http.ResponseWriter, r *http.Request) {
	gen, err := h.svc.StartGeneration()
	if err != nil {
		writeErr(w, err, "start generation")
		return
	}
	writeJSON(w, http.StatusCreated, GeneratorSessionResponse{Generation: gen})
}

// AbortGeneration handles DELETE /api/generator/session.
func (h *Handler) AbortGeneration(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.AbortGeneration(); err != nil {
		writeErr(w, err, "abort generation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GenerationEvent handles POST /api/generator/session/{gen}/events.
func (h *Handler) GenerationEvent(w http.ResponseWriter, r *http.Request) {
	gen, err := strconv.ParseUint(chi.URLParam(r, "gen"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid generation token"))
		return
	}
	var ev generator.Event
	if !decode(w, r, &ev) {
		return
	}
	if err := h.svc.HandleGenerationEvent(gen, ev); err != nil {
		writeErr(w, err, "generation event")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
