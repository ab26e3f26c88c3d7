package engine

import (
	"testing"

	"github.com/starford/othala/internal/models"
)

// outlineIDs returns a page's block ids in depth-first outline order.
func outlineIDs(s *Store, pageID string) []string {
	blocks := s.PageBlocks(pageID)
	out := make([]string, len(blocks))
	for i, b := range blocks {
		out[i] = b.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCreateBlock_AppendsAtEnd(t *testing.T) {
	s, _ := newTestStore(t)
	p := s.CreatePage("Alpha")
	seed := outlineIDs(s, p.ID)[0]

	b1 := s.CreateBlock(CreateBlockParams{PageID: p.ID, Content: "one"})
	b2 := s.CreateBlock(CreateBlockParams{PageID: p.ID, Content: "two"})
	b3 := s.CreateBlock(CreateBlockParams{PageID: p.ID, Content: "three"})

	want := []string{seed, b1, b2, b3}
	if got := outlineIDs(s, p.ID); !equalIDs(got, want) {
		t.Errorf("outline = %v, want %v", got, want)
	}
}

func TestCreateBlock_InsertAfter(t *testing.T) {
	s, _ := newTestStore(t)
	p := s.CreatePage("Alpha")
	seed := outlineIDs(s, p.ID)[0]
	b1 := s.CreateBlock(CreateBlockParams{PageID: p.ID, Content: "one"})

	mid := s.CreateBlock(CreateBlockParams{PageID: p.ID, AfterBlockID: seed, Content: "between"})

	want := []string{seed, mid, b1}
	if got := outlineIDs(s, p.ID); !equalIDs(got, want) {
		t.Errorf("outline = %v, want %v", got, want)
	}
}

func TestCreateBlock_UnknownTargets(t *testing.T) {
	s, _ := newTestStore(t)
	p := s.CreatePage("Alpha")

	if id := s.CreateBlock(CreateBlockParams{PageID: "nope", Content: "x"}); id != "" {
		t.Errorf("unknown page: got id %q, want empty", id)
	}
	if id := s.CreateBlock(CreateBlockParams{PageID: p.ID, ParentID: "nope", Content: "x"}); id != "" {
		t.Errorf("unknown parent: got id %q, want empty", id)
	}
}

func TestCreateBlock_ChildIndent(t *testing.T) {
	s, _ := newTestStore(t)
	p := s.CreatePage("Alpha")
	parent := s.CreateBlock(CreateBlockParams{PageID: p.ID, Content: "parent"})
	child := s.CreateBlock(CreateBlockParams{PageID: p.ID, ParentID: parent, Content: "child"})
	grand := s.CreateBlock(CreateBlockParams{PageID: p.ID, ParentID: child, Content: "grand"})

	if got := s.GetBlock(child).Indent; got != 1 {
		t.Errorf("child indent = %d, want 1", got)
	}
	if got := s.GetBlock(grand).Indent; got != 2 {
		t.Errorf("grandchild indent = %d, want 2", got)
	}
}

func TestDeleteBlock_RemovesSubtree(t *testing.T) {
	s, _ := newTestStore(t)
	p := s.CreatePage("Alpha")
	parent := s.CreateBlock(CreateBlockParams{PageID: p.ID, Content: "parent"})
	c1 := s.CreateBlock(CreateBlockParams{PageID: p.ID, ParentID: parent, Content: "c1"})
	s.CreateBlock(CreateBlockParams{PageID: p.ID, ParentID: parent, Content: "c2"})
	s.CreateBlock(CreateBlockParams{PageID: p.ID, ParentID: c1, Content: "g1"})
	keeper := s.CreateBlock(CreateBlockParams{PageID: p.ID, Content: "keeper"})

	s.DeleteBlock(parent)

	for _, id := range []string{parent, c1} {
		if s.GetBlock(id) != nil {
			t.Errorf("block %s survived subtree delete", id)
		}
	}
	if s.GetBlock(keeper) == nil {
		t.Error("unrelated block was deleted")
	}
	// No survivor may reference a deleted parent.
	for _, b := range s.PageBlocks(p.ID) {
		if b.ParentID != "" && s.GetBlock(b.ParentID) == nil {
			t.Errorf("block %s has dangling parent %s", b.ID, b.ParentID)
		}
	}
}

func TestDeleteBlock_FocusMovesToSibling(t *testing.T) {
	s, _ := newTestStore(t)
	p := s.CreatePage("Alpha")
	seed := outlineIDs(s, p.ID)[0]
	x := s.CreateBlock(CreateBlockParams{PageID: p.ID, Content: "x"})
	y := s.CreateBlock(CreateBlockParams{PageID: p.ID, Content: "y"})

	s.SetFocusedBlock(y)
	s.DeleteBlock(y)
	if got := s.FocusedBlock(); got != x {
		t.Errorf("focus = %s, want previous sibling %s", got, x)
	}

	// First block has no backward sibling: focus falls forward.
	s.SetFocusedBlock(seed)
	s.DeleteBlock(seed)
	if got := s.FocusedBlock(); got != x {
		t.Errorf("focus = %s, want next sibling %s", got, x)
	}
}

func TestMoveBlock_RejectsCycle(t *testing.T) {
	s, _ := newTestStore(t)
	p := s.CreatePage("Alpha")
	parent := s.CreateBlock(CreateBlockParams{PageID: p.ID, Content: "parent"})
	child := s.CreateBlock(CreateBlockParams{PageID: p.ID, ParentID: parent, Content: "child"})

	s.MoveBlock(parent, child, "")

	if got := s.GetBlock(parent).ParentID; got != "" {
		t.Errorf("cycle move changed parent to %q", got)
	}
}

func TestMoveBlock_ShiftsDescendantIndent(t *testing.T) {
	s, _ := newTestStore(t)
	p := s.CreatePage("Alpha")
	a := s.CreateBlock(CreateBlockParams{PageID: p.ID, Content: "a"})
	b := s.CreateBlock(CreateBlockParams{PageID: p.ID, Content: "b"})
	c := s.CreateBlock(CreateBlockParams{PageID: p.ID, ParentID: b, Content: "c"})

	s.MoveBlock(b, a, "")

	if got := s.GetBlock(b).Indent; got != 1 {
		t.Errorf("moved block indent = %d, want 1", got)
	}
	if got := s.GetBlock(c).Indent; got != 2 {
		t.Errorf("descendant indent = %d, want 2", got)
	}
}

func TestIndentOutdent_RoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	p := s.CreatePage("Alpha")
	a := s.CreateBlock(CreateBlockParams{PageID: p.ID, Content: "a"})
	b := s.CreateBlock(CreateBlockParams{PageID: p.ID, Content: "b"})

	s.IndentBlock(b)
	got := s.GetBlock(b)
	if got.ParentID != a || got.Indent != 1 {
		t.Fatalf("after indent: parent=%q indent=%d, want parent=%s indent=1", got.ParentID, got.Indent, a)
	}

	s.OutdentBlock(b)
	got = s.GetBlock(b)
	if got.ParentID != "" || got.Indent != 0 {
		t.Errorf("after outdent: parent=%q indent=%d, want top-level", got.ParentID, got.Indent)
	}
	// Outdent places the block right after its old parent.
	ids := outlineIDs(s, p.ID)
	for i, id := range ids {
		if id == a && (i+1 >= len(ids) || ids[i+1] != b) {
			t.Errorf("outline = %v, want %s immediately after %s", ids, b, a)
		}
	}
}

func TestIndentBlock_FirstSiblingNoop(t *testing.T) {
	s, _ := newTestStore(t)
	p := s.CreatePage("Alpha")
	seed := outlineIDs(s, p.ID)[0]

	s.IndentBlock(seed)
	if got := s.GetBlock(seed).ParentID; got != "" {
		t.Errorf("first sibling indented under %q", got)
	}
}

func TestMergeBlockUp(t *testing.T) {
	s, _ := newTestStore(t)
	p := s.CreatePage("Alpha")
	seed := outlineIDs(s, p.ID)[0]
	a := s.CreateBlock(CreateBlockParams{PageID: p.ID, Content: "Hello "})
	b := s.CreateBlock(CreateBlockParams{PageID: p.ID, Content: "world"})

	if got := s.MergeBlockUp(b); got != a {
		t.Fatalf("MergeBlockUp = %q, want %q", got, a)
	}
	if got := s.GetBlock(a).Content; got != "Hello world" {
		t.Errorf("merged content = %q, want %q", got, "Hello world")
	}
	if s.GetBlock(b) != nil {
		t.Error("merged block still exists")
	}

	// One undo reverts the whole merge: both the delete and the edit.
	s.Undo()
	if got := s.GetBlock(a).Content; got != "Hello " {
		t.Errorf("after undo content = %q, want %q", got, "Hello ")
	}
	if s.GetBlock(b) == nil {
		t.Error("undo did not restore the merged block")
	}

	// The first block in a list has nothing to merge into.
	if got := s.MergeBlockUp(seed); got != "" {
		t.Errorf("merge of first block = %q, want empty", got)
	}
}

func TestMergeBlockUp_RefusesSeparator(t *testing.T) {
	s, _ := newTestStore(t)
	p := s.CreatePage("Alpha")
	div := s.CreateBlock(CreateBlockParams{PageID: p.ID, Type: models.TypeDivider})
	b := s.CreateBlock(CreateBlockParams{PageID: p.ID, Content: "text"})

	if got := s.MergeBlockUp(b); got != "" {
		t.Errorf("merge into divider = %q, want empty", got)
	}
	if s.GetBlock(b) == nil || s.GetBlock(div) == nil {
		t.Error("refused merge mutated blocks")
	}
}

func TestSplitBlock(t *testing.T) {
	s, _ := newTestStore(t)
	p := s.CreatePage("Alpha")
	b := s.CreateBlock(CreateBlockParams{PageID: p.ID, Content: "HelloWorld"})
	tail := s.CreateBlock(CreateBlockParams{PageID: p.ID, Content: "tail"})

	nb := s.SplitBlock(b, "Hello", "World")
	if nb == "" {
		t.Fatal("SplitBlock returned empty id")
	}
	if got := s.GetBlock(b).Content; got != "Hello" {
		t.Errorf("original content = %q, want Hello", got)
	}
	split := s.GetBlock(nb)
	if split.Content != "World" || split.Type != models.TypeParagraph {
		t.Errorf("new block = %q/%s, want World/paragraph", split.Content, split.Type)
	}

	ids := outlineIDs(s, p.ID)
	for i, id := range ids {
		if id == b {
			if i+1 >= len(ids) || ids[i+1] != nb {
				t.Errorf("outline = %v, want %s immediately after %s", ids, nb, b)
			}
		}
	}
	_ = tail

	// One undo reverts both halves.
	s.Undo()
	if got := s.GetBlock(b).Content; got != "HelloWorld" {
		t.Errorf("after undo content = %q, want HelloWorld", got)
	}
	if s.GetBlock(nb) != nil {
		t.Error("undo did not remove the split-off block")
	}
}

func TestChangeBlockType_ClearsContent(t *testing.T) {
	s, _ := newTestStore(t)
	p := s.CreatePage("Alpha")
	b := s.CreateBlock(CreateBlockParams{PageID: p.ID, Content: "see [[Beta]]"})

	s.ChangeBlockType(b, models.TypeCode, map[string]string{"lang": "go"})

	got := s.GetBlock(b)
	if got.Type != models.TypeCode || got.Content != "" || len(got.Refs) != 0 {
		t.Errorf("after type change: type=%s content=%q refs=%v", got.Type, got.Content, got.Refs)
	}
	if got.Properties["lang"] != "go" {
		t.Errorf("properties = %v", got.Properties)
	}

	// The cleared content comes back through undo.
	s.Undo()
	got = s.GetBlock(b)
	if got.Content != "see [[Beta]]" || got.Type != models.TypeParagraph {
		t.Errorf("after undo: type=%s content=%q", got.Type, got.Content)
	}
}

func TestUpdateBlockContent_RecomputesRefs(t *testing.T) {
	s, _ := newTestStore(t)
	p := s.CreatePage("Alpha")
	b := s.CreateBlock(CreateBlockParams{PageID: p.ID, Content: "plain"})

	s.UpdateBlockContent(b, "link to [[Beta]] and [[Gamma]]", false)
	got := s.GetBlock(b)
	if len(got.Refs) != 2 || got.Refs[0] != "Beta" || got.Refs[1] != "Gamma" {
		t.Errorf("refs = %v, want [Beta Gamma]", got.Refs)
	}

	s.UpdateBlockContent(b, "plain again", false)
	if got := s.GetBlock(b); len(got.Refs) != 0 {
		t.Errorf("refs = %v, want none", got.Refs)
	}
}
