package engine

import "testing"

func TestAddPageToBook_SingleMembership(t *testing.T) {
	s, _ := newTestStore(t)
	p := s.CreatePage("Alpha")
	first := s.CreateBook("First", nil, false)
	second := s.CreateBook("Second", []string{"Intro"}, true)

	if !s.AddPageToBook(first.ID, p.ID) {
		t.Fatal("AddPageToBook failed")
	}
	// Moving to another book removes the page from the first.
	if !s.AddPageToBook(second.ID, p.ID) {
		t.Fatal("second AddPageToBook failed")
	}

	if got := s.GetBook(first.ID).PageIDs; len(got) != 0 {
		t.Errorf("first book pages = %v, want empty", got)
	}
	if got := s.GetBook(second.ID).PageIDs; len(got) != 1 || got[0] != p.ID {
		t.Errorf("second book pages = %v, want [%s]", got, p.ID)
	}
}

func TestAddPageToBook_UnknownIDs(t *testing.T) {
	s, _ := newTestStore(t)
	p := s.CreatePage("Alpha")
	b := s.CreateBook("Shelf", nil, false)

	if s.AddPageToBook("nope", p.ID) {
		t.Error("unknown book accepted a page")
	}
	if s.AddPageToBook(b.ID, "nope") {
		t.Error("unknown page was added to a book")
	}
}

func TestRemovePageFromBook(t *testing.T) {
	s, _ := newTestStore(t)
	p := s.CreatePage("Alpha")
	b := s.CreateBook("Shelf", nil, false)
	s.AddPageToBook(b.ID, p.ID)

	s.RemovePageFromBook(b.ID, p.ID)
	if got := s.GetBook(b.ID).PageIDs; len(got) != 0 {
		t.Errorf("book pages = %v, want empty", got)
	}
}

func TestDeleteBook_KeepsPages(t *testing.T) {
	s, _ := newTestStore(t)
	p := s.CreatePage("Alpha")
	b := s.CreateBook("Shelf", nil, false)
	s.AddPageToBook(b.ID, p.ID)

	s.DeleteBook(b.ID)
	if s.GetBook(b.ID) != nil {
		t.Error("book survived delete")
	}
	if s.GetPage(p.ID) == nil {
		t.Error("deleting a book removed its pages")
	}
}

func TestListBooks(t *testing.T) {
	s, _ := newTestStore(t)
	s.CreateBook("A", nil, false)
	s.CreateBook("B", nil, true)

	books := s.ListBooks()
	if len(books) != 2 {
		t.Fatalf("books = %d, want 2", len(books))
	}
}
