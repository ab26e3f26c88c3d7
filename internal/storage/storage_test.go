package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func testProviders(t *testing.T) map[string]Provider {
	t.Helper()

	fsProv, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}

	dbFile, err := os.CreateTemp("", "othala-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })
	sqlProv, err := NewSQLite(dbFile.Name())
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}

	bProv, err := NewBadger("", nil) // in-memory
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}

	provs := map[string]Provider{
		"fs":     fsProv,
		"sqlite": sqlProv,
		"badger": bProv,
	}
	t.Cleanup(func() {
		for _, p := range provs {
			p.Close()
		}
	})
	return provs
}

func TestProvider_ReadMissingReturnsNil(t *testing.T) {
	for name, p := range testProviders(t) {
		t.Run(name, func(t *testing.T) {
			data, err := p.Read("nosuch", CollectionPages)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if data != nil {
				t.Errorf("data = %q, want nil", data)
			}
		})
	}
}

func TestProvider_WriteReadRoundTrip(t *testing.T) {
	for name, p := range testProviders(t) {
		t.Run(name, func(t *testing.T) {
			payload := []byte(`[{"id":"b1"}]`)
			if err := p.Write("v1", CollectionBlocks, payload); err != nil {
				t.Fatalf("Write: %v", err)
			}
			got, err := p.Read("v1", CollectionBlocks)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if string(got) != string(payload) {
				t.Errorf("got %q, want %q", got, payload)
			}

			// Overwrite replaces, never appends.
			if err := p.Write("v1", CollectionBlocks, []byte(`[]`)); err != nil {
				t.Fatalf("second Write: %v", err)
			}
			got, _ = p.Read("v1", CollectionBlocks)
			if string(got) != `[]` {
				t.Errorf("after overwrite got %q", got)
			}
		})
	}
}

func TestProvider_DeleteVault(t *testing.T) {
	for name, p := range testProviders(t) {
		t.Run(name, func(t *testing.T) {
			for _, c := range Collections {
				if err := p.Write("doomed", c, []byte(`{}`)); err != nil {
					t.Fatalf("Write %s: %v", c, err)
				}
			}
			if err := p.Write("other", CollectionPages, []byte(`{}`)); err != nil {
				t.Fatal(err)
			}

			if err := p.DeleteVault("doomed"); err != nil {
				t.Fatalf("DeleteVault: %v", err)
			}
			for _, c := range Collections {
				data, err := p.Read("doomed", c)
				if err != nil {
					t.Fatalf("Read after delete: %v", err)
				}
				if data != nil {
					t.Errorf("collection %s survived vault delete", c)
				}
			}
			// Other vaults are untouched.
			if data, _ := p.Read("other", CollectionPages); data == nil {
				t.Error("unrelated vault was deleted")
			}
		})
	}
}

func TestProvider_Index(t *testing.T) {
	for name, p := range testProviders(t) {
		t.Run(name, func(t *testing.T) {
			if data, err := p.ReadIndex(); err != nil || data != nil {
				t.Fatalf("empty index: data=%q err=%v", data, err)
			}
			if err := p.WriteIndex([]byte(`{"active":"v1"}`)); err != nil {
				t.Fatalf("WriteIndex: %v", err)
			}
			data, err := p.ReadIndex()
			if err != nil {
				t.Fatalf("ReadIndex: %v", err)
			}
			if string(data) != `{"active":"v1"}` {
				t.Errorf("index = %q", data)
			}
		})
	}
}

func TestFS_RejectsUnsafeSegments(t *testing.T) {
	p, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Read("../../etc", "passwd"); err == nil {
		t.Error("expected error for traversal segment")
	}
	if err := p.Write("ok", "../evil", nil); err == nil {
		t.Error("expected error for traversal collection")
	}
}

func TestSplitCollectionPath(t *testing.T) {
	root := string(filepath.Separator) + "data"
	cases := []struct {
		path       string
		vault, col string
		ok         bool
	}{
		{filepath.Join(root, "v1", "pages.json"), "v1", "pages", true},
		{filepath.Join(root, "vaults.json"), "", "vaults", true},
		{filepath.Join(root, "v1", "deep", "x.json"), "", "", false},
		{filepath.Join(root, "v1", "pages.txt"), "", "", false},
	}
	for _, c := range cases {
		vault, col, ok := splitCollectionPath(root, c.path)
		if vault != c.vault || col != c.col || ok != c.ok {
			t.Errorf("splitCollectionPath(%q) = (%q, %q, %v), want (%q, %q, %v)",
				c.path, vault, col, ok, c.vault, c.col, c.ok)
		}
	}
}
