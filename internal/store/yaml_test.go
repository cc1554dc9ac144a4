package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"dirigent/internal/types"
)

const securityRules = `
section: Security
layers: [data]
directives:
  - id: sec-param
    text: Always use parameterized queries
    severity: MUST
    topics: [Security, Database]
    technologies: [PostgreSQL]
    authoritative: true
  - text: Rotate credentials on a schedule
    severity: should
  - text: Log authentication failures
    severity: SHOULD
    section: Observability
    layers: ["7-CrossCutting"]
`

func writeRuleFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write rule file: %v", err)
	}
	return path
}

func TestLoadRuleFile(t *testing.T) {
	path := writeRuleFile(t, t.TempDir(), "security.yaml", securityRules)

	got, err := LoadRuleFile(path)
	if err != nil {
		t.Fatalf("LoadRuleFile: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("loaded %d directives, want 3", len(got))
	}

	first := got[0]
	if first.ID != "sec-param" {
		t.Errorf("ID = %s, want sec-param", first.ID)
	}
	if first.Severity != types.SeverityMust {
		t.Errorf("severity = %s, want MUST", first.Severity)
	}
	if first.Section != "Security" {
		t.Errorf("file-level section not applied: %s", first.Section)
	}
	if len(first.Layers) != 1 || first.Layers[0] != types.LayerData {
		t.Errorf("bare layer name not normalized: %v", first.Layers)
	}
	if first.Topics[0] != "security" || first.Technologies[0] != "postgresql" {
		t.Errorf("tags not lowercased: %v %v", first.Topics, first.Technologies)
	}
	if !first.Authoritative {
		t.Error("authoritative flag dropped")
	}
	if first.SourcePath != path {
		t.Errorf("SourcePath = %s, want %s", first.SourcePath, path)
	}

	second := got[1]
	if second.ID != "security-002" {
		t.Errorf("generated ID = %s, want security-002", second.ID)
	}
	if second.Severity != types.SeverityShould {
		t.Errorf("lowercase severity not normalized: %s", second.Severity)
	}

	third := got[2]
	if third.Section != "Observability" {
		t.Errorf("entry-level section should win: %s", third.Section)
	}
	if len(third.Layers) != 1 || third.Layers[0] != types.LayerCrossCutting {
		t.Errorf("canonical layer tag mangled: %v", third.Layers)
	}
}

func TestLoadRuleFile_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing text", func(t *testing.T) {
		path := writeRuleFile(t, dir, "bad.yaml", "directives:\n  - severity: MUST\n")
		if _, err := LoadRuleFile(path); err == nil {
			t.Error("expected error for directive without text")
		}
	})

	t.Run("unknown layer", func(t *testing.T) {
		path := writeRuleFile(t, dir, "layer.yaml",
			"directives:\n  - text: x\n    layers: [mezzanine]\n")
		if _, err := LoadRuleFile(path); err == nil {
			t.Error("expected error for unknown layer")
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeRuleFile(t, dir, "broken.yaml", "directives: [\n")
		if _, err := LoadRuleFile(path); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadRuleFile(filepath.Join(dir, "absent.yaml")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}

func TestLoadRuleDir(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "b.yaml", "directives:\n  - text: from b\n")
	writeRuleFile(t, dir, "a.yml", "directives:\n  - text: from a\n")
	writeRuleFile(t, dir, "notes.txt", "not a rule file")

	got, err := LoadRuleDir(dir)
	if err != nil {
		t.Fatalf("LoadRuleDir: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("loaded %d directives, want 2", len(got))
	}
	if got[0].Text != "from a" || got[1].Text != "from b" {
		t.Errorf("files not loaded in name order: %v", got)
	}
}

func TestImportFileReplacesStaleEntries(t *testing.T) {
	s := openTestStore(t)
	dir := t.TempDir()
	path := writeRuleFile(t, dir, "rules.yaml",
		"directives:\n  - text: first rule\n  - text: second rule\n")

	ctx := context.Background()
	if n, err := s.ImportFile(ctx, path); err != nil || n != 2 {
		t.Fatalf("ImportFile = (%d, %v), want (2, nil)", n, err)
	}

	// Shrink the file; the dropped rule must disappear from the store.
	writeRuleFile(t, dir, "rules.yaml", "directives:\n  - text: only rule\n")
	if n, err := s.ImportFile(ctx, path); err != nil || n != 1 {
		t.Fatalf("second ImportFile = (%d, %v), want (1, nil)", n, err)
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Errorf("Count = %d, want 1 after re-import", count)
	}
}
