// Package generator consumes a background content-generation event stream
// and applies it to the engine through the same mutation APIs the editor
// uses, so tree invariants hold for machine-authored content too.
//
// The pipeline itself (model, prompting, transport) lives elsewhere; this
// package only maps typed events onto store operations. A monotonic
// generation counter fences each session: events carrying a superseded
// token are dropped whole, never partially applied.
package generator

import (
	"encoding/json"
	"log/slog"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/othala/internal/engine"
	"github.com/starford/othala/internal/models"
)

// EventType enumerates the generator stream events.
type EventType string

// Stream event types.
const (
	EventPageCreated     EventType = "page-created"
	EventBlockCreated    EventType = "block-created"
	EventStepComplete    EventType = "step-complete"
	EventSessionComplete EventType = "session-complete"
	EventError           EventType = "error"
)

// originProperty tags machine-authored blocks.
const originProperty = "origin"

// originAI is the property value marking generator-authored content.
const originAI = "ai"

// Event is one message from the generation stream. Data is the raw JSON
// payload; malformed payloads are skipped per event, not per session.
type Event struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type pageCreatedData struct {
	Title     string `json:"title"`
	ClientRef string `json:"client_ref"`
}

func (d pageCreatedData) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Title, validation.Required),
		validation.Field(&d.ClientRef, validation.Required),
	)
}

type blockCreatedData struct {
	ClientRef string `json:"client_ref"`
	Content   string `json:"content"`
	Index     int    `json:"index"`
}

func (d blockCreatedData) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.ClientRef, validation.Required),
		validation.Field(&d.Index, validation.Min(0)),
	)
}

type sessionCompleteData struct {
	BookTitle string `json:"book_title"`
}

type errorData struct {
	Message string `json:"message"`
}

// session tracks one generation run: the pages it created keyed by the
// stream's client reference, plus which pages have consumed their seed block.
type session struct {
	pages  map[string]string // client ref -> page id
	order  []string          // page ids in creation order
	seeded map[string]bool   // page id -> first block landed
}

// Runner applies generator events to a store. One session is live at a
// time; starting a new one supersedes (fences out) the previous.
type Runner struct {
	mu     sync.Mutex
	store  *engine.Store
	logger *slog.Logger

	generation uint64
	session    *session
}

// New returns a Runner applying events to store.
func New(store *engine.Store, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{store: store, logger: logger}
}

// Start begins a new session and returns its generation token. Any prior
// session is superseded: its in-flight events will be dropped.
func (r *Runner) Start() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation++
	r.session = &session{
		pages:  make(map[string]string),
		seeded: make(map[string]bool),
	}
	r.logger.Info("generator: session started", slog.Uint64("generation", r.generation))
	return r.generation
}

// Abort cancels the live session. Content already applied remains; calling
// Abort with no live session is a no-op.
func (r *Runner) Abort() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.abortLocked("aborted")
}

func (r *Runner) abortLocked(reason string) {
	if r.session == nil {
		return
	}
	r.generation++
	r.session = nil
	r.logger.Info("generator: session ended", slog.String("reason", reason))
}

// Generation returns the current fence token.
func (r *Runner) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

// Active reports whether a session is live.
func (r *Runner) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session != nil
}

// Handle processes one stream event for the session identified by gen.
// Events from a superseded generation return false and mutate nothing.
// Malformed payloads are logged and skipped individually; the session
// stays live.
func (r *Runner) Handle(gen uint64, ev Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil || gen != r.generation {
		return false
	}

	switch ev.Type {
	case EventPageCreated:
		r.handlePageCreated(ev.Data)
	case EventBlockCreated:
		r.handleBlockCreated(ev.Data)
	case EventStepComplete:
		// Progress marker only; nothing to apply.
	case EventSessionComplete:
		r.handleSessionComplete(ev.Data)
	case EventError:
		var d errorData
		_ = json.Unmarshal(ev.Data, &d)
		r.logger.Warn("generator: stream error", slog.String("message", d.Message))
		r.abortLocked("stream error")
	default:
		r.logger.Warn("generator: unknown event type", slog.String("type", string(ev.Type)))
	}
	return true
}

func (r *Runner) handlePageCreated(data json.RawMessage) {
	var d pageCreatedData
	if err := json.Unmarshal(data, &d); err != nil {
		r.logger.Warn("generator: malformed page-created payload", slog.String("error", err.Error()))
		return
	}
	if err := d.Validate(); err != nil {
		r.logger.Warn("generator: invalid page-created payload", slog.String("error", err.Error()))
		return
	}

	p := r.store.EnsurePage(d.Title)
	if p == nil {
		r.logger.Warn("generator: page creation refused", slog.String("title", d.Title))
		return
	}
	if _, known := r.session.pages[d.ClientRef]; !known {
		r.session.order = append(r.session.order, p.ID)
	}
	r.session.pages[d.ClientRef] = p.ID
}

func (r *Runner) handleBlockCreated(data json.RawMessage) {
	var d blockCreatedData
	if err := json.Unmarshal(data, &d); err != nil {
		r.logger.Warn("generator: malformed block-created payload", slog.String("error", err.Error()))
		return
	}
	if err := d.Validate(); err != nil {
		r.logger.Warn("generator: invalid block-created payload", slog.String("error", err.Error()))
		return
	}

	pageID, ok := r.session.pages[d.ClientRef]
	if !ok {
		r.logger.Warn("generator: block for unknown client ref", slog.String("client_ref", d.ClientRef))
		return
	}

	// The page's empty seed block absorbs the first generated block instead
	// of leaving a blank line above the content.
	if !r.session.seeded[pageID] {
		r.session.seeded[pageID] = true
		if seed := r.seedBlock(pageID); seed != "" {
			r.store.UpdateBlockContent(seed, d.Content, false)
			return
		}
	}

	r.store.CreateBlock(engine.CreateBlockParams{
		PageID:     pageID,
		Content:    d.Content,
		Properties: map[string]string{originProperty: originAI},
	})
}

// seedBlock returns the id of a page's reusable seed block: its sole block,
// still an empty paragraph. Pages already holding content have no seed.
func (r *Runner) seedBlock(pageID string) string {
	blocks := r.store.PageBlocks(pageID)
	if len(blocks) != 1 {
		return ""
	}
	b := blocks[0]
	if b.Type != models.TypeParagraph || b.Content != "" {
		return ""
	}
	return b.ID
}

// handleSessionComplete finalizes the run: concepts are extracted for every
// generated page, and multi-page sessions are grouped into an auto-generated
// book when the stream names one.
func (r *Runner) handleSessionComplete(data json.RawMessage) {
	var d sessionCompleteData
	_ = json.Unmarshal(data, &d)

	for _, pageID := range r.session.order {
		r.store.ExtractConcepts(pageID)
	}

	if d.BookTitle != "" && len(r.session.order) > 1 {
		var chapters []string
		for _, pageID := range r.session.order {
			if p := r.store.GetPage(pageID); p != nil {
				chapters = append(chapters, p.Title)
			}
		}
		book := r.store.CreateBook(d.BookTitle, chapters, true)
		for _, pageID := range r.session.order {
			r.store.AddPageToBook(book.ID, pageID)
		}
	}

	r.abortLocked("complete")
}
