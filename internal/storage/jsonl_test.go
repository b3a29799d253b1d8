package storage

import (
	"os"
	"path/filepath"
	"testing"
)

type record struct {
	Title   string `json:"title"`
	Outcome string `json:"outcome"`
}

func TestJSONLWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report", "results.jsonl")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(path, []byte(`{"title":"stale"}`+"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	w, err := NewJSONLWriter(path, 10)
	if err != nil {
		t.Fatalf("NewJSONLWriter() error = %v", err)
	}
	if err := w.Write(record{Title: "a", Outcome: "passed"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	// Records are readable before Close.
	got, err := ReadJSONL[record](path)
	if err != nil {
		t.Fatalf("ReadJSONL() error = %v", err)
	}
	if len(got) != 1 || got[0].Title != "a" {
		t.Fatalf("ReadJSONL() = %+v, want one record titled a", got)
	}

	if err := w.Write(record{Title: "b", Outcome: "failed"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := w.Write(record{Title: "c"}); err == nil {
		t.Fatal("Write() after Close error = nil")
	}

	got, err = ReadJSONL[record](path)
	if err != nil {
		t.Fatalf("ReadJSONL() error = %v", err)
	}
	if len(got) != 2 || got[1].Outcome != "failed" {
		t.Fatalf("ReadJSONL() = %+v", got)
	}
}
