package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Pages.
	r.Get("/pages", h.ListPages)
	r.Post("/pages", h.CreatePage)
	r.Post("/pages/ensure", h.EnsurePage)
	r.Get("/pages/{id}", h.GetPage)
	r.Delete("/pages/{id}", h.DeletePage)
	r.Post("/pages/{id}/rename", h.RenamePage)
	r.Post("/pages/{id}/favorite", h.SetPageFlag("favorite"))
	r.Post("/pages/{id}/pin", h.SetPageFlag("pin"))
	r.Get("/pages/{id}/blocks", h.PageBlocks)
	r.Get("/pages/{id}/backlinks", h.PageBacklinks)
	r.Get("/pages/{id}/concepts", h.PageConcepts)
	r.Post("/pages/{id}/concepts", h.ExtractConcepts)
	r.Get("/journal/today", h.TodayJournal)

	// Blocks.
	r.Post("/blocks", h.CreateBlock)
	r.Get("/blocks/{id}", h.GetBlock)
	r.Patch("/blocks/{id}", h.UpdateBlock)
	r.Delete("/blocks/{id}", h.DeleteBlock)
	r.Post("/blocks/{id}/move", h.MoveBlock)
	r.Post("/blocks/{id}/indent", h.IndentBlock)
	r.Post("/blocks/{id}/outdent", h.OutdentBlock)
	r.Post("/blocks/{id}/merge-up", h.MergeBlockUp)
	r.Post("/blocks/{id}/split", h.SplitBlock)
	r.Post("/blocks/{id}/type", h.ChangeBlockType)

	// History.
	r.Post("/undo", h.Undo)
	r.Post("/redo", h.Redo)

	// Search, graph, correlation.
	r.Get("/search", h.Search)
	r.Get("/graph", h.Graph)
	r.Get("/correlate", h.Correlate)

	// Vaults.
	r.Get("/vaults", h.ListVaults)
	r.Post("/vaults", h.CreateVault)
	r.Post("/vaults/{id}/switch", h.SwitchVault)
	r.Delete("/vaults/{id}", h.DeleteVault)

	// Books.
	r.Get("/books", h.ListBooks)
	r.Post("/books", h.CreateBook)
	r.Post("/books/{id}/pages", h.AddPageToBook)
	r.Delete("/books/{id}/pages/{pageID}", h.RemovePageFromBook)
	r.Delete("/books/{id}", h.DeleteBook)

	// Generator session control.
	r.Post("/generator/session", h.StartGeneration)
	r.Delete("/generator/session", h.AbortGeneration)
	r.Post("/generator/session/{gen}/events", h.GenerationEvent)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
