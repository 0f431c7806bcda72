package btree

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"jparque/record"
)

func openTestEngine(t *testing.T, opts Options) *BTreeEngine {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "data.jpq")
	e, err := Open(path, opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestInsertReadReadMissing(t *testing.T) {
	e := openTestEngine(t, Options{})

	value := record.Fields{
		"name":  record.StringValue("John Doe"),
		"age":   record.Int32Value(30),
		"email": record.StringValue("john@example.com"),
	}
	if err := e.Write([]byte("test-key"), value); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, ok, err := e.Read([]byte("test-key"))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !ok {
		t.Fatal("expected test-key to be found")
	}
	for k, v := range value {
		if !got[k].Equal(v) {
			t.Fatalf("field %q: got %v, want %v", k, got[k], v)
		}
	}

	_, ok, err = e.Read([]byte("missing"))
	if err != nil {
		t.Fatalf("Read(missing): %v", err)
	}
	if ok {
		t.Fatal("expected missing key to be absent")
	}
}

func TestRangeScanWithProjection(t *testing.T) {
	e := openTestEngine(t, Options{})

	for i := 10; i <= 49; i++ {
		key := []byte(fmt.Sprintf("key-%03d", i))
		fields := record.Fields{
			"index":  record.Int32Value(int32(i)),
			"field1": record.StringValue("a"),
			"field2": record.StringValue("b"),
			"field3": record.StringValue("c"),
			"field4": record.StringValue("d"),
		}
		if err := e.Write(key, fields); err != nil {
			t.Fatalf("Write(%s): %v", key, err)
		}
	}

	results, err := e.Scan([]byte("key-020"), []byte("key-030"), nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(results) != 11 {
		t.Fatalf("got %d records, want 11", len(results))
	}
	for i, r := range results {
		want := fmt.Sprintf("key-%03d", 20+i)
		if string(r.Key) != want {
			t.Fatalf("result %d: key = %q, want %q", i, r.Key, want)
		}
	}

	projected, err := e.Scan([]byte("key-020"), []byte("key-020"), []string{"field1", "field3"})
	if err != nil {
		t.Fatalf("Scan with projection: %v", err)
	}
	if len(projected) != 1 {
		t.Fatalf("projected scan returned %d records, want 1", len(projected))
	}
	fields := projected[0].Value
	if len(fields) != 2 {
		t.Fatalf("projected record has %d fields, want 2", len(fields))
	}
	if _, ok := fields["field1"]; !ok {
		t.Fatal("expected field1 in projection")
	}
	if _, ok := fields["field3"]; !ok {
		t.Fatal("expected field3 in projection")
	}
	if _, ok := fields["field2"]; ok {
		t.Fatal("field2 should have been excluded by projection")
	}
}

func TestSplitsUnderLoad(t *testing.T) {
	e := openTestEngine(t, Options{})

	const n = 1000
	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("split-test-%04d", i))
		if err := e.Write(key, record.Fields{"index": record.Int32Value(int32(i))}); err != nil {
			t.Fatalf("Write(%s): %v", key, err)
		}
	}

	for i := 0; i < n; i += 50 {
		key := []byte(fmt.Sprintf("split-test-%04d", i))
		got, ok, err := e.Read(key)
		if err != nil {
			t.Fatalf("Read(%s): %v", key, err)
		}
		if !ok {
			t.Fatalf("key %s not found after load", key)
		}
		if got["index"].Int32 != int32(i) {
			t.Fatalf("key %s: index = %d, want %d", key, got["index"].Int32, i)
		}
	}

	found := 0
	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("split-test-%04d", i))
		_, ok, err := e.Read(key)
		if err != nil {
			t.Fatalf("Read(%s): %v", key, err)
		}
		if ok {
			found++
		}
	}
	if found != n {
		t.Fatalf("reachable from root: %d keys, want %d", found, n)
	}
}

func TestOverflowRoundTrip(t *testing.T) {
	e := openTestEngine(t, Options{})

	big := strings.Repeat("y", 1200*1024+17) // >= 1.2 MiB per the scenario

	if err := e.Write([]byte("large-value"), record.Fields{"payload": record.StringValue(big)}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, ok, err := e.Read([]byte("large-value"))
	if err != nil || !ok {
		t.Fatalf("Read after overflow write: ok=%v err=%v", ok, err)
	}
	if got["payload"].Str != big {
		t.Fatal("overflow payload did not round-trip byte-for-byte")
	}

	other := strings.Repeat("z", 1300*1024+3)
	if err := e.Write([]byte("large-value"), record.Fields{"payload": record.StringValue(other)}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, ok, err = e.Read([]byte("large-value"))
	if err != nil || !ok {
		t.Fatalf("Read after overwrite: ok=%v err=%v", ok, err)
	}
	if got["payload"].Str != other {
		t.Fatal("overwritten overflow payload did not round-trip")
	}

	if err := e.Delete([]byte("large-value")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_, ok, err = e.Read([]byte("large-value"))
	if err != nil {
		t.Fatalf("Read after delete: %v", err)
	}
	if ok {
		t.Fatal("expected large-value to be gone after delete")
	}
}

func TestWriteOverwritesSoleLeafKeyWithDifferentLengthValue(t *testing.T) {
	e := openTestEngine(t, Options{})

	if err := e.Write([]byte("k"), record.Fields{"a": record.Int32Value(1)}); err != nil {
		t.Fatalf("initial write: %v", err)
	}
	if err := e.Write([]byte("k"), record.Fields{"a": record.Int32Value(1), "b": record.StringValue("x")}); err != nil {
		t.Fatalf("overwrite with longer value: %v", err)
	}

	got, ok, err := e.Read([]byte("k"))
	if err != nil || !ok {
		t.Fatalf("Read after overwrite: ok=%v err=%v", ok, err)
	}
	if got["a"].Int32 != 1 || got["b"].Str != "x" {
		t.Fatalf("got %+v, want a=1 b=x", got)
	}

	if err := e.Write([]byte("k"), record.Fields{"a": record.Int32Value(2)}); err != nil {
		t.Fatalf("overwrite with shorter value: %v", err)
	}
	got, ok, err = e.Read([]byte("k"))
	if err != nil || !ok {
		t.Fatalf("Read after shrinking overwrite: ok=%v err=%v", ok, err)
	}
	if _, stillPresent := got["b"]; stillPresent {
		t.Fatalf("stale field from previous value survived overwrite: %+v", got)
	}
	if got["a"].Int32 != 2 {
		t.Fatalf("got %+v, want a=2", got)
	}
}

// TestInsertDescendingOrderKeepsAllKeysReachable exercises the leftmost
// leaf splitting on keys smaller than its parent's recorded separator — the
// scenario the ascending-order seed tests never reach, since their leftmost
// leaf's minimum key never drops after the first split.
func TestInsertDescendingOrderKeepsAllKeysReachable(t *testing.T) {
	e := openTestEngine(t, Options{})

	const n = 500
	for i := n - 1; i >= 0; i-- {
		key := []byte(fmt.Sprintf("desc-%04d", i))
		if err := e.Write(key, record.Fields{"index": record.Int32Value(int32(i))}); err != nil {
			t.Fatalf("Write(%s): %v", key, err)
		}
	}

	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("desc-%04d", i))
		got, ok, err := e.Read(key)
		if err != nil {
			t.Fatalf("Read(%s): %v", key, err)
		}
		if !ok {
			t.Fatalf("key %s unreachable after descending-order inserts", key)
		}
		if got["index"].Int32 != int32(i) {
			t.Fatalf("key %s: index = %d, want %d", key, got["index"].Int32, i)
		}
	}
}

// TestInsertShuffledOrderKeepsAllKeysReachable is the same invariant under a
// randomized insert order, which exercises splits on both the leftmost leaf
// and interior leaves regardless of where in the key space they land.
func TestInsertShuffledOrderKeepsAllKeysReachable(t *testing.T) {
	e := openTestEngine(t, Options{})

	const n = 500
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	rng := rand.New(rand.NewSource(42))
	rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })

	for _, i := range order {
		key := []byte(fmt.Sprintf("shuf-%04d", i))
		if err := e.Write(key, record.Fields{"index": record.Int32Value(int32(i))}); err != nil {
			t.Fatalf("Write(%s): %v", key, err)
		}
	}

	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("shuf-%04d", i))
		got, ok, err := e.Read(key)
		if err != nil {
			t.Fatalf("Read(%s): %v", key, err)
		}
		if !ok {
			t.Fatalf("key %s unreachable after shuffled inserts", key)
		}
		if got["index"].Int32 != int32(i) {
			t.Fatalf("key %s: index = %d, want %d", key, got["index"].Int32, i)
		}
	}
}

// TestWriteRoutesNearInlineThresholdValueToOverflow pins the inline-vs-
// overflow cutover to the exact accounting PutElement enforces. A cutover
// that is even one ElementSize too generous picks "inline" for a value that
// PutElement then refuses, and on a single-entry leaf that falls through to
// splitAndPromote's "fewer than two entries" guard instead of overflowing.
func TestWriteRoutesNearInlineThresholdValueToOverflow(t *testing.T) {
	e := openTestEngine(t, Options{})

	key := []byte("k")
	leaf, _, err := e.descend(key)
	if err != nil {
		t.Fatalf("descend: %v", err)
	}

	maxInline := leaf.freeSpaceForInsert() - putElementSafetyMargin - ElementSize - len(key)

	// EncodeValue's overhead for a single string field named "payload":
	// 4(count) + 4(keyLen) + len("payload") + 1(tag) + 4(strLen).
	const overhead = 4 + 4 + len("payload") + 1 + 4

	// A few bytes past the real inline limit, still inside the one-
	// ElementSize window a too-generous budget would have misjudged.
	strLen := maxInline - overhead + ElementSize/2
	if strLen < 0 {
		strLen = 0
	}
	payload := strings.Repeat("q", strLen)

	if err := e.Write(key, record.Fields{"payload": record.StringValue(payload)}); err != nil {
		t.Fatalf("Write near inline threshold: %v", err)
	}

	got, ok, err := e.Read(key)
	if err != nil || !ok {
		t.Fatalf("Read after near-threshold write: ok=%v err=%v", ok, err)
	}
	if got["payload"].Str != payload {
		t.Fatal("near-threshold payload did not round-trip")
	}
}

func TestDeleteMissingKeyIsNoop(t *testing.T) {
	e := openTestEngine(t, Options{})
	if err := e.Delete([]byte("nope")); err != nil {
		t.Fatalf("Delete on missing key should be a no-op, got: %v", err)
	}
}

func TestWriteEmptyKeyRejected(t *testing.T) {
	e := openTestEngine(t, Options{})
	err := e.Write(nil, record.Fields{"a": record.Int32Value(1)})
	if err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestReopenPersistsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.jpq")

	e, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for i := 0; i < 200; i++ {
		key := []byte(fmt.Sprintf("reopen-%04d", i))
		if err := e.Write(key, record.Fields{"index": record.Int32Value(int32(i))}); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, ok, err := reopened.Read([]byte("reopen-0042"))
	if err != nil || !ok {
		t.Fatalf("Read after reopen: ok=%v err=%v", ok, err)
	}
	if got["index"].Int32 != 42 {
		t.Fatalf("index = %d, want 42", got["index"].Int32)
	}
}

func TestWriteBatchEmptyIsNoChange(t *testing.T) {
	e := openTestEngine(t, Options{})
	if err := e.WriteBatch(nil); err != nil {
		t.Fatalf("WriteBatch(nil): %v", err)
	}
	results, err := e.Scan([]byte{0x00}, []byte{0xFF}, nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no records, got %d", len(results))
	}
}

func TestUnsignedByteKeyOrdering(t *testing.T) {
	e := openTestEngine(t, Options{})
	if err := e.Write([]byte{0x7F}, record.Fields{"v": record.Int32Value(1)}); err != nil {
		t.Fatal(err)
	}
	if err := e.Write([]byte{0x80}, record.Fields{"v": record.Int32Value(2)}); err != nil {
		t.Fatal(err)
	}
	results, err := e.Scan([]byte{0x00}, []byte{0xFF}, nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Key[0] != 0x7F || results[1].Key[0] != 0x80 {
		t.Fatalf("unsigned ordering violated: got %v, %v", results[0].Key, results[1].Key)
	}
}

