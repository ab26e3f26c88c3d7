package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/storage"
)

// CreateBook creates a named, ordered grouping of pages.
func (s *Store) CreateBook(title string, chapters []string, autoGenerated bool) *models.Book {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	b := &models.Book{
		ID:            uuid.NewString(),
		Title:         title,
		Chapters:      append([]string(nil), chapters...),
		AutoGenerated: autoGenerated,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.books[b.ID] = b
	s.scheduleStructuralSave(storage.CollectionBooks)
	return b.Clone()
}

// GetBook returns a copy of a book, or nil when absent.
func (s *Store) GetBook(bookID string) *models.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.books[bookID]; ok {
		return b.Clone()
	}
	return nil
}

// ListBooks returns all books ordered by creation time.
func (s *Store) ListBooks() []*models.Book {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := sortedValues(s.books, func(b *models.Book) string { return b.ID })
	copies := make([]*models.Book, len(out))
	for i, b := range out {
		copies[i] = b.Clone()
	}
	return copies
}

// AddPageToBook appends a page to a book, removing it from any book it
// previously belonged to (a page lives in at most one book). Unknown ids
// are no-ops returning false.
func (s *Store) AddPageToBook(bookID, pageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.books[bookID]
	if !ok {
		return false
	}
	if _, ok := s.pages[pageID]; !ok {
		return false
	}

	for _, other := range s.books {
		other.PageIDs = removeString(other.PageIDs, pageID)
	}
	book.PageIDs = append(book.PageIDs, pageID)
	book.UpdatedAt = time.Now()
	s.scheduleStructuralSave(storage.CollectionBooks)
	return true
}

// RemovePageFromBook detaches a page from a book.
func (s *Store) RemovePageFromBook(bookID, pageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.books[bookID]
	if !ok {
		return
	}
	book.PageIDs = removeString(book.PageIDs, pageID)
	book.UpdatedAt = time.Now()
	s.scheduleStructuralSave(storage.CollectionBooks)
}

// DeleteBook removes a book. Its pages are untouched.
func (s *Store) DeleteBook(bookID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[bookID]; !ok {
		return
	}
	delete(s.books, bookID)
	s.scheduleStructuralSave(storage.CollectionBooks)
}
