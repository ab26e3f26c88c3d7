package engine

import (
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/storage"
)

func TestExternalReload_VaultIndex(t *testing.T) {
	s, prov := newTestStore(t)
	active := s.ActiveVault()

	// Another process rewrites the shared index: a new vault appears and
	// the active pointer moves. The directory refreshes; the vault being
	// edited stays active and listed even though the index dropped it.
	data, err := json.Marshal(vaultIndex{
		Active: "ext-vault",
		Vaults: []*models.Vault{{ID: "ext-vault", Name: "Synced"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := prov.WriteIndex(data); err != nil {
		t.Fatal(err)
	}
	s.ExternalReload("", "vaults")

	if s.ActiveVault() != active {
		t.Errorf("active vault = %s after index reload, want %s", s.ActiveVault(), active)
	}
	ids := make(map[string]bool)
	for _, v := range s.ListVaults() {
		ids[v.ID] = true
	}
	if !ids["ext-vault"] {
		t.Error("externally added vault not visible after reload")
	}
	if !ids[active] {
		t.Error("active vault dropped from directory after reload")
	}

	// A corrupt external index is ignored.
	if err := prov.WriteIndex([]byte(`{`)); err != nil {
		t.Fatal(err)
	}
	s.ExternalReload("", "vaults")
	if len(s.ListVaults()) != 2 {
		t.Errorf("vaults = %d after corrupt index reload, want 2", len(s.ListVaults()))
	}
}

func TestSwitchVault_FlushesAndIsolates(t *testing.T) {
	s, prov := newTestStore(t)
	home := s.ActiveVault()
	p := s.CreatePage("Alpha")
	s.CreateBlock(CreateBlockParams{PageID: p.ID, Content: "home content"})

	work := s.CreateVault("Work")
	if !s.SwitchVault(work.ID) {
		t.Fatal("SwitchVault returned false")
	}

	// The outgoing vault's pending writes landed before the switch.
	if data, _ := prov.Read(home, storage.CollectionBlocks); data == nil {
		t.Error("outgoing vault blocks were not flushed on switch")
	}
	if got := len(s.ListPages()); got != 0 {
		t.Errorf("pages in fresh vault = %d, want 0", got)
	}
	if s.GetPage(p.ID) != nil {
		t.Error("page from another vault is visible")
	}

	wp := s.CreatePage("Work Notes")
	if !s.SwitchVault(home) {
		t.Fatal("switch back failed")
	}
	if s.GetPage(p.ID) == nil {
		t.Error("home vault page lost across switches")
	}
	if s.GetPage(wp.ID) != nil {
		t.Error("work vault page leaked into home vault")
	}
}

func TestSwitchVault_Noops(t *testing.T) {
	s, _ := newTestStore(t)
	if s.SwitchVault(s.ActiveVault()) {
		t.Error("switching to the active vault returned true")
	}
	if s.SwitchVault("unknown") {
		t.Error("switching to an unknown vault returned true")
	}
}

func TestSwitchVault_ClearsHistory(t *testing.T) {
	s, _ := newTestStore(t)
	p := s.CreatePage("Alpha")
	s.CreateBlock(CreateBlockParams{PageID: p.ID, Content: "x"})
	if s.UndoDepth() == 0 {
		t.Fatal("expected history before switch")
	}

	work := s.CreateVault("Work")
	s.SwitchVault(work.ID)
	if s.UndoDepth() != 0 || s.RedoDepth() != 0 {
		t.Errorf("history across vaults = %d/%d, want cleared", s.UndoDepth(), s.RedoDepth())
	}
}

func TestDeleteVault(t *testing.T) {
	s, prov := newTestStore(t)
	if s.DeleteVault(s.ActiveVault()) {
		t.Error("deleting the active vault succeeded")
	}

	work := s.CreateVault("Work")
	if !s.DeleteVault(work.ID) {
		t.Error("deleting an inactive vault failed")
	}
	if len(s.ListVaults()) != 1 {
		t.Errorf("vaults = %d, want 1", len(s.ListVaults()))
	}
	if s.SwitchVault(work.ID) {
		t.Error("switched into a deleted vault")
	}
	_ = prov
}

func TestOpen_ReloadsPersistedState(t *testing.T) {
	prov := newMemProvider()
	s, err := Open(prov, Options{Logger: slog.Default()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	p := s.CreatePage("Alpha")
	s.CreateBlock(CreateBlockParams{PageID: p.ID, Content: "persisted [[Beta]]"})
	beta := s.CreatePage("Beta")
	s.Close()

	// A second store over the same provider sees the same vault and data.
	s2, err := Open(prov, Options{Logger: slog.Default()})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(s2.Close)

	if got := s2.GetPage(p.ID); got == nil || got.Title != "Alpha" {
		t.Fatalf("page after reopen = %+v", got)
	}
	// Derived link state is rebuilt on load, not read from disk.
	if got := len(s2.Backlinks(beta.ID)); got != 1 {
		t.Errorf("backlinks after reopen = %d, want 1", got)
	}
}

func TestOpen_CorruptIndexStartsFresh(t *testing.T) {
	prov := newMemProvider()
	prov.index = []byte("{not json")

	s, err := Open(prov, Options{Logger: slog.Default()})
	if err != nil {
		t.Fatalf("Open with corrupt index: %v", err)
	}
	t.Cleanup(s.Close)
	if s.ActiveVault() == "" || len(s.ListVaults()) != 1 {
		t.Errorf("corrupt index did not degrade to a fresh default vault")
	}
}
