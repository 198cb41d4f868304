package template_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"courier/internal/config"
	"courier/internal/template"
)

func TestApplyResolvesAllFields(t *testing.T) {
	tmpl, err := template.Parse("{ProjectCode}_{Sequence}_{Shot}_{Version}/{Shot}_{Version}.%04d.exr")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	got, err := tmpl.Apply(map[string]string{
		"ProjectCode": "abc",
		"Sequence":    "SEQ01",
		"Shot":        "SEQ01_0010",
		"Version":     template.FormatVersion(3),
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	want := "abc_SEQ01_SEQ01_0010_v003/SEQ01_0010_v003.%04d.exr"
	if got != want {
		t.Fatalf("Apply = %q, want %q", got, want)
	}
}

func TestApplyFailsOnMissingField(t *testing.T) {
	tmpl, err := template.Parse("{Sequence}/{Shot}")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	_, err = tmpl.Apply(map[string]string{"Sequence": "SEQ01"})
	if err == nil {
		t.Fatal("expected error for unresolved field")
	}
	if !strings.Contains(err.Error(), "Shot") {
		t.Fatalf("expected missing field name in error, got %v", err)
	}
}

func TestParseRejectsMalformedPatterns(t *testing.T) {
	for _, pattern := range []string{"", "{Shot", "{}", "{0bad}"} {
		if _, err := template.Parse(pattern); err == nil {
			t.Fatalf("expected Parse(%q) to fail", pattern)
		}
	}
}

func TestFieldsDeduplicated(t *testing.T) {
	tmpl, err := template.Parse("{Shot}/{Shot}_{Version}.%04d.exr")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	fields := tmpl.Fields()
	if len(fields) != 2 || fields[0] != "Shot" || fields[1] != "Version" {
		t.Fatalf("unexpected fields: %v", fields)
	}
}

func TestLoadSetFromManifest(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "templates.yml")
	writeFile(t, manifestPath, `
templates:
  delivery_sequence: "deliveries/{ProjectCode}_{Shot}_{Version}/{Shot}_{Version}.%04d.exr"
  delivery_folder: "deliveries"
`)

	cfg := config.Default()
	cfg.Templates.ManifestPath = manifestPath

	set, err := template.LoadSet(&cfg)
	if err != nil {
		t.Fatalf("LoadSet failed: %v", err)
	}
	if set.DeliveryFolder.String() != "deliveries" {
		t.Fatalf("unexpected folder template: %q", set.DeliveryFolder.String())
	}
	if !strings.Contains(set.DeliverySequence.String(), "%04d") {
		t.Fatalf("expected frame token in sequence template: %q", set.DeliverySequence.String())
	}
}

func TestLoadSetInlineOverridesManifest(t *testing.T) {
	cfg := config.Default()
	cfg.Templates.ManifestPath = filepath.Join(t.TempDir(), "absent.yml")
	cfg.Templates.DeliverySequence = "out/{Shot}.%04d.exr"
	cfg.Templates.DeliveryFolder = "out"

	set, err := template.LoadSet(&cfg)
	if err != nil {
		t.Fatalf("LoadSet failed: %v", err)
	}
	if set.DeliverySequence.String() != "out/{Shot}.%04d.exr" {
		t.Fatalf("unexpected sequence template: %q", set.DeliverySequence.String())
	}
}

func TestLoadSetRejectsUnknownFields(t *testing.T) {
	cfg := config.Default()
	cfg.Templates.DeliverySequence = "out/{Projectcode}_{Shot}_{version}.%04d.exr"
	cfg.Templates.DeliveryFolder = "out/{Shot}"

	_, err := template.LoadSet(&cfg)
	if err == nil {
		t.Fatal("expected error for unknown template fields")
	}
	for _, want := range []string{"Projectcode", "version", "supported: ProjectCode, Sequence, Shot, Version"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in error, got %v", want, err)
		}
	}
}

func TestLoadSetRejectsSequenceWithoutFrameToken(t *testing.T) {
	cfg := config.Default()
	cfg.Templates.DeliverySequence = "out/{Shot}.exr"
	cfg.Templates.DeliveryFolder = "out"

	if _, err := template.LoadSet(&cfg); err == nil {
		t.Fatal("expected error for sequence template without frame token")
	}
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
