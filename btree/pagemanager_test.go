package btree

import (
	"path/filepath"
	"testing"
)

func TestAllocatePageAssignsIncreasingIDs(t *testing.T) {
	pm := openTestPageManager(t)

	first, err := pm.AllocatePage()
	if err != nil {
		t.Fatalf("AllocatePage: %v", err)
	}
	second, err := pm.AllocatePage()
	if err != nil {
		t.Fatalf("AllocatePage: %v", err)
	}
	if second <= first {
		t.Fatalf("expected increasing ids, got %d then %d", first, second)
	}

	page, err := pm.ReadPage(first)
	if err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if page.ID() != first {
		t.Fatalf("page reports id %d, want %d", page.ID(), first)
	}
}

func TestWritePageRoundTripsThroughCache(t *testing.T) {
	pm := openTestPageManager(t)

	id, err := pm.AllocatePage()
	if err != nil {
		t.Fatalf("AllocatePage: %v", err)
	}
	page, err := pm.ReadPage(id)
	if err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	page.SetFlags(FlagLeaf)
	if !page.PutElement([]byte("k"), []byte("v"), false) {
		t.Fatal("PutElement failed")
	}
	if err := pm.WritePage(page); err != nil {
		t.Fatalf("WritePage: %v", err)
	}

	reread, err := pm.ReadPage(id)
	if err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if reread.Count() != 1 {
		t.Fatalf("got count %d, want 1", reread.Count())
	}
}

func TestRootIDDefaultsToZeroAndPersists(t *testing.T) {
	pm := openTestPageManager(t)

	root, err := pm.RootID()
	if err != nil {
		t.Fatalf("RootID: %v", err)
	}
	if root != 0 {
		t.Fatalf("expected no root yet, got %d", root)
	}

	if err := pm.SetRootID(7); err != nil {
		t.Fatalf("SetRootID: %v", err)
	}
	root, err = pm.RootID()
	if err != nil {
		t.Fatalf("RootID: %v", err)
	}
	if root != 7 {
		t.Fatalf("got root %d, want 7", root)
	}
}

func TestOpenPageManagerRejectsUndersizedPages(t *testing.T) {
	dir := t.TempDir()
	_, err := OpenPageManager(filepath.Join(dir, "pages.db"), PageHeaderSize, 0)
	if err == nil {
		t.Fatal("expected error for page size too small to hold the header")
	}
}

func TestOpenPageManagerReopenKeepsNextIDCounter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pages.db")

	pm, err := OpenPageManager(path, DefaultPageSize, 0)
	if err != nil {
		t.Fatalf("OpenPageManager: %v", err)
	}
	var last uint64
	for i := 0; i < 5; i++ {
		last, err = pm.AllocatePage()
		if err != nil {
			t.Fatalf("AllocatePage: %v", err)
		}
	}
	if err := pm.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := OpenPageManager(path, DefaultPageSize, 0)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	next, err := reopened.AllocatePage()
	if err != nil {
		t.Fatalf("AllocatePage after reopen: %v", err)
	}
	if next <= last {
		t.Fatalf("expected next-id counter to survive reopen: got %d after %d", next, last)
	}
}
