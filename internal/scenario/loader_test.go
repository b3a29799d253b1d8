package scenario

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleSuite = `
name: extra
scenarios:
  - title: mocked table
    timeout: 10s
    steps:
      - action: route
        route:
          pattern: "**/api/data"
          action: fulfill
          status: 200
          content_type: application/json
          body: '[]'
      - action: navigate
      - action: click
        target: "#loadDataButton"
      - action: assertCount
        target: "#dataTable tbody tr"
        count: 0
        timeout: 2s
---
scenarios:
  - title: dialogs
    steps:
      - action: onDialog
        dialogs:
          by_kind:
            confirm:
              accept: false
      - action: click
        target: "#confirmButton"
        opens_dialog: true
      - action: upload_missing_kind_guard
`

func TestParseMultiDocument(t *testing.T) {
	_, err := Parse([]byte(sampleSuite))
	if err == nil || !strings.Contains(err.Error(), "unknown action") {
		t.Fatalf("Parse() error = %v, want unknown action error", err)
	}

	valid := strings.Replace(sampleSuite, "      - action: upload_missing_kind_guard\n", "", 1)
	suite, err := Parse([]byte(valid))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got, want := suite.Name, "extra"; got != want {
		t.Fatalf("Name = %q, want %q", got, want)
	}
	if got, want := len(suite.Scenarios), 2; got != want {
		t.Fatalf("len(Scenarios) = %d, want %d", got, want)
	}
	if err := suite.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	first := suite.Scenarios[0]
	if first.Timeout != 10*time.Second {
		t.Fatalf("Timeout = %s, want 10s", first.Timeout)
	}
	if got := first.Steps[3].Timeout; got != 2*time.Second {
		t.Fatalf("steps[3].Timeout = %s, want 2s", got)
	}
	if got := first.Steps[0].Route.Action; got != RouteFulfill {
		t.Fatalf("route action = %q, want fulfill", got)
	}

	policy := suite.Scenarios[1].Steps[0].Dialogs
	if policy == nil {
		t.Fatal("dialog policy = nil")
	}
	if !policy.Default.Accept {
		t.Fatal("default dialog response should accept when unspecified")
	}
	if policy.Respond(DialogConfirm).Accept {
		t.Fatal("confirm response should dismiss")
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("scenarios:\n  - title: x\n    stepz: []\n"))
	if err == nil {
		t.Fatal("Parse() error = nil, want unknown field error")
	}
}

func TestLoadFileReadsUploadSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "payload.txt")
	if err := os.WriteFile(src, []byte("from disk"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	suitePath := filepath.Join(dir, "suite.yaml")
	doc := "scenarios:\n  - title: upload\n    steps:\n      - action: uploadFile\n        target: \"#fileUpload\"\n        files:\n          - name: payload.txt\n            source: " + src + "\n"
	if err := os.WriteFile(suitePath, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	suite, err := LoadFile(suitePath)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if suite.Name != suitePath {
		t.Fatalf("Name = %q, want file path fallback", suite.Name)
	}
	file := suite.Scenarios[0].Steps[0].Files[0]
	if string(file.Content) != "from disk" {
		t.Fatalf("Content = %q, want %q", file.Content, "from disk")
	}
	if file.MimeType != "application/octet-stream" {
		t.Fatalf("MimeType = %q, want default", file.MimeType)
	}
}

func TestLoadFileResolvesSourceNextToSuite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "suites")
	if err := os.MkdirAll(filepath.Join(dir, "fixtures"), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "fixtures", "payload.txt"), []byte("relative"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	suitePath := filepath.Join(dir, "suite.yaml")
	doc := "scenarios:\n  - title: upload\n    steps:\n      - action: uploadFile\n        target: \"#fileUpload\"\n        files:\n          - name: payload.txt\n            source: fixtures/payload.txt\n"
	if err := os.WriteFile(suitePath, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Chdir(t.TempDir())

	suite, err := LoadFile(suitePath)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if got := string(suite.Scenarios[0].Steps[0].Files[0].Content); got != "relative" {
		t.Fatalf("Content = %q, want %q", got, "relative")
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("LoadFile() error = nil, want not exist error")
	}
}
