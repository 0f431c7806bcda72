package columnstore

import (
	"path/filepath"
	"testing"

	"jparque/compress"
	"jparque/record"
	"jparque/schema"
)

func testSchema() *schema.MessageType {
	return schema.NewMessageType("widgets",
		schema.NewField(0, "name", schema.TypeBinary, schema.Required).WithOriginalType(schema.UTF8),
		schema.NewField(1, "count", schema.TypeInt32, schema.Required),
	)
}

func openTestStore(t *testing.T) *ColumnStore {
	t.Helper()
	dir := t.TempDir()
	cs, err := Open(dir, "widgets", testSchema(), Options{Codec: compress.Snappy, Creator: "jparque-test"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { cs.Close() })
	return cs
}

func TestWriteThenReadRoundTrips(t *testing.T) {
	cs := openTestStore(t)

	value := record.Fields{"name": record.StringValue("bolt"), "count": record.Int32Value(5)}
	if err := cs.Write([]byte("w1"), value); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, ok, err := cs.Read([]byte("w1"))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !ok {
		t.Fatal("expected record to be found")
	}
	if _, hasKey := got[keyField]; hasKey {
		t.Fatal("internal key field leaked into Read result")
	}
	if !got["name"].Equal(value["name"]) || !got["count"].Equal(value["count"]) {
		t.Fatalf("got %+v, want %+v", got, value)
	}
}

func TestWriteReplacesExistingKey(t *testing.T) {
	cs := openTestStore(t)

	if err := cs.Write([]byte("w1"), record.Fields{"name": record.StringValue("bolt"), "count": record.Int32Value(5)}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := cs.Write([]byte("w1"), record.Fields{"name": record.StringValue("nut"), "count": record.Int32Value(9)}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if len(cs.cache) != 1 {
		t.Fatalf("cache has %d entries, want 1 after overwrite", len(cs.cache))
	}
	got, ok, err := cs.Read([]byte("w1"))
	if err != nil || !ok {
		t.Fatalf("Read: ok=%v err=%v", ok, err)
	}
	if got["name"].Str != "nut" {
		t.Fatalf("got name %q, want nut", got["name"].Str)
	}
}

func TestDeleteTombstonesAndHidesRecord(t *testing.T) {
	cs := openTestStore(t)

	if err := cs.Write([]byte("w1"), record.Fields{"name": record.StringValue("bolt"), "count": record.Int32Value(5)}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := cs.Delete([]byte("w1")); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	_, ok, err := cs.Read([]byte("w1"))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if ok {
		t.Fatal("expected deleted record to be hidden")
	}
}

func TestDeleteOfMissingKeyIsNoOp(t *testing.T) {
	cs := openTestStore(t)
	if err := cs.Delete([]byte("nope")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestScanRespectsExclusiveEndAndProjection(t *testing.T) {
	cs := openTestStore(t)

	for _, kv := range []struct {
		key   string
		name  string
		count int32
	}{
		{"a", "alpha", 1},
		{"b", "bravo", 2},
		{"c", "charlie", 3},
	} {
		if err := cs.Write([]byte(kv.key), record.Fields{"name": record.StringValue(kv.name), "count": record.Int32Value(kv.count)}); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	results, err := cs.Scan([]byte("a"), []byte("c"), []string{"name"})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 (exclusive end should drop %q)", len(results), "c")
	}
	if string(results[0].Key) != "a" || string(results[1].Key) != "b" {
		t.Fatalf("unexpected key order: %q, %q", results[0].Key, results[1].Key)
	}
	for _, r := range results {
		if _, hasCount := r.Value["count"]; hasCount {
			t.Fatal("projection should have dropped count")
		}
	}
}

func TestReopenReloadsRecordsFromDisk(t *testing.T) {
	dir := t.TempDir()

	cs, err := Open(dir, "widgets", testSchema(), Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := cs.Write([]byte("w1"), record.Fields{"name": record.StringValue("bolt"), "count": record.Int32Value(5)}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := cs.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(dir, "widgets", testSchema(), Options{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, ok, err := reopened.Read([]byte("w1"))
	if err != nil || !ok {
		t.Fatalf("Read after reopen: ok=%v err=%v", ok, err)
	}
	if got["name"].Str != "bolt" {
		t.Fatalf("got name %q, want bolt", got["name"].Str)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	cs := openTestStore(t)
	if err := cs.Write([]byte("w1"), record.Fields{"name": record.StringValue("bolt"), "count": record.Int32Value(5)}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := cs.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := cs.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestFilePathUsesParquetExtension(t *testing.T) {
	cs := openTestStore(t)
	if filepath.Ext(cs.path) != ".parquet" {
		t.Fatalf("path %q does not use .parquet extension", cs.path)
	}
}
