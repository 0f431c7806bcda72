package btree

import (
	"bytes"
	"testing"
)

func newTestPage(t *testing.T) *Page {
	t.Helper()
	buf := make([]byte, DefaultPageSize)
	p := NewPage(buf)
	p.SetFlags(FlagLeaf)
	return p
}

func TestPagePutAndGet(t *testing.T) {
	p := newTestPage(t)

	if !p.PutElement([]byte("b"), []byte("bval"), false) {
		t.Fatal("put b failed")
	}
	if !p.PutElement([]byte("a"), []byte("aval"), false) {
		t.Fatal("put a failed")
	}
	if !p.PutElement([]byte("c"), []byte("cval"), false) {
		t.Fatal("put c failed")
	}

	if p.Count() != 3 {
		t.Fatalf("count = %d, want 3", p.Count())
	}

	// directory must stay sorted ascending by key
	for i := 0; i < p.Count()-1; i++ {
		if unsignedCompare(p.Element(i).Key(), p.Element(i+1).Key()) >= 0 {
			t.Fatalf("directory not sorted at index %d", i)
		}
	}

	wantVals := map[string]string{"a": "aval", "b": "bval", "c": "cval"}
	for i := 0; i < p.Count(); i++ {
		e := p.Element(i)
		want := wantVals[string(e.Key())]
		if string(e.Value()) != want {
			t.Fatalf("key %q: got value %q, want %q", e.Key(), e.Value(), want)
		}
	}
}

func TestPageUpdateSameLength(t *testing.T) {
	p := newTestPage(t)
	p.PutElement([]byte("k"), []byte("1234"), false)
	if !p.PutElement([]byte("k"), []byte("5678"), false) {
		t.Fatal("same-length update should succeed")
	}
	if p.Count() != 1 {
		t.Fatalf("count = %d, want 1", p.Count())
	}
	if !bytes.Equal(p.Element(0).Value(), []byte("5678")) {
		t.Fatalf("value not updated")
	}
}

func TestPageUpdateDifferentLengthFails(t *testing.T) {
	p := newTestPage(t)
	p.PutElement([]byte("k"), []byte("1234"), false)
	if p.PutElement([]byte("k"), []byte("12345"), false) {
		t.Fatal("different-length update should fail")
	}
	if p.Count() != 1 || !bytes.Equal(p.Element(0).Value(), []byte("1234")) {
		t.Fatal("page mutated on failed update")
	}
}

func TestPageEmptyKeyRejectedOnLeafAcceptedOnBranch(t *testing.T) {
	leaf := newTestPage(t)
	if leaf.PutElement(nil, []byte("v"), false) {
		t.Fatal("leaf page should reject an empty key")
	}

	branch := newTestPage(t)
	branch.SetFlags(FlagBranch)
	if !branch.PutElement(nil, []byte("v"), false) {
		t.Fatal("branch page should accept the reserved empty-key separator")
	}
	if !bytes.Equal(branch.Element(0).Key(), []byte{}) {
		t.Fatalf("got key %q, want empty", branch.Element(0).Key())
	}

	// The empty key always sorts first, as required for it to act as the
	// branch's child-0 catch-all regardless of insert order.
	branch.PutElement([]byte("m"), []byte("v"), false)
	if !bytes.Equal(branch.Element(0).Key(), []byte{}) {
		t.Fatal("empty key should remain the first directory entry")
	}
}

func TestPageElementOutOfRange(t *testing.T) {
	p := newTestPage(t)
	if p.Element(0) != nil {
		t.Fatal("expected nil for out-of-range element on empty page")
	}
	if p.Element(-1) != nil {
		t.Fatal("expected nil for negative index")
	}
}

func TestPageFillsUp(t *testing.T) {
	p := newTestPage(t)
	value := bytes.Repeat([]byte("x"), 200)
	inserted := 0
	for i := 0; i < 1000; i++ {
		key := []byte{byte(i >> 8), byte(i)}
		if !p.PutElement(key, value, false) {
			break
		}
		inserted++
	}
	if inserted == 0 {
		t.Fatal("expected at least one insertion before the page filled")
	}
	if p.UsedBytes() > p.Size() {
		t.Fatalf("used bytes %d exceeds page size %d", p.UsedBytes(), p.Size())
	}
}

func TestPageOverflowFlag(t *testing.T) {
	p := newTestPage(t)
	var ref [8]byte
	ref[7] = 42
	p.PutElement([]byte("big"), ref[:], true)
	e := p.Element(0)
	if !e.HasOverflow() {
		t.Fatal("expected overflow flag set")
	}
	if e.OverflowPageID() != 42 {
		t.Fatalf("overflow page id = %d, want 42", e.OverflowPageID())
	}
}
