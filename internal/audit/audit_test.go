package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testContext = "TU Delft drawing studio"

func writeDataset(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	return dir
}

func TestRunCleanDataset(t *testing.T) {
	dir := writeDataset(t, map[string]string{
		"a.jpg": "fake image bytes",
		"a.txt": testContext + " with tables by the window",
		"b.jpg": "fake image bytes",
		"b.txt": testContext + " seen from the doorway",
	})

	report, err := Run(dir, testContext)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Summary.TotalImages != 2 {
		t.Errorf("Expected 2 images, got %d", report.Summary.TotalImages)
	}
	if report.Summary.Accepted != 2 || report.Summary.Rejected != 0 {
		t.Errorf("Expected 2 accepted and 0 rejected, got %d and %d", report.Summary.Accepted, report.Summary.Rejected)
	}
}

func TestRunFlagsViolations(t *testing.T) {
	dir := writeDataset(t, map[string]string{
		"good.jpg":     "fake image bytes",
		"good.txt":     testContext + " with a clay model on the bench",
		"badstart.jpg": "fake image bytes",
		"badstart.txt": "A caption that ignores the required opening",
		"toolong.jpg":  "fake image bytes",
		"toolong.txt":  testContext + " " + strings.Repeat("word ", 60),
		"missing.jpg":  "fake image bytes",
		"orphan.txt":   "caption with no image",
	})

	report, err := Run(dir, testContext)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Summary.TotalImages != 4 {
		t.Errorf("Expected 4 images, got %d", report.Summary.TotalImages)
	}
	if report.Summary.Accepted != 1 {
		t.Errorf("Expected 1 accepted, got %d", report.Summary.Accepted)
	}
	if report.Summary.Rejected != 2 {
		t.Errorf("Expected 2 rejected, got %d", report.Summary.Rejected)
	}
	if report.Summary.MissingCaptions != 1 {
		t.Errorf("Expected 1 missing caption, got %d", report.Summary.MissingCaptions)
	}
	if report.Summary.OrphanCaptions != 1 {
		t.Errorf("Expected 1 orphan caption, got %d", report.Summary.OrphanCaptions)
	}

	byName := make(map[string]FileResult)
	for _, result := range report.Results {
		byName[result.Filename] = result
	}
	if byName["badstart.jpg"].Accepted {
		t.Error("Expected badstart.jpg to be rejected")
	}
	if len(byName["badstart.jpg"].Issues) == 0 {
		t.Error("Expected issues for badstart.jpg")
	}
	if byName["toolong.jpg"].Accepted {
		t.Error("Expected toolong.jpg to be rejected")
	}
}

func TestRunIgnoresExportMetadata(t *testing.T) {
	dir := writeDataset(t, map[string]string{
		"a.jpg":        "fake image bytes",
		"a.txt":        testContext + " at dusk",
		"metadata.txt": "a.jpg: " + testContext + " at dusk",
		"README.txt":   "usage notes",
	})

	report, err := Run(dir, testContext)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Summary.OrphanCaptions != 0 {
		t.Errorf("Expected metadata files to be ignored, got %d orphans", report.Summary.OrphanCaptions)
	}
}

func TestRunEmptyDir(t *testing.T) {
	if _, err := Run(t.TempDir(), testContext); err == nil {
		t.Error("Expected an error for a dataset with no images")
	}
}

func TestInferContext(t *testing.T) {
	tests := []struct {
		name     string
		captions map[string]string
		want     string
	}{
		{
			"shared prefix",
			map[string]string{
				"a.jpg": testContext + " with tables",
				"b.jpg": testContext + " at night",
				"c.jpg": testContext + " seen from above",
			},
			testContext,
		},
		{
			"no shared prefix",
			map[string]string{
				"a.jpg": "one thing entirely",
				"b.jpg": "another thing entirely",
			},
			"",
		},
		{
			"single caption",
			map[string]string{"a.jpg": "a lone caption"},
			"a lone caption",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferContext(tt.captions); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRunInfersContext(t *testing.T) {
	dir := writeDataset(t, map[string]string{
		"a.jpg": "fake image bytes",
		"a.txt": testContext + " with tables",
		"b.jpg": "fake image bytes",
		"b.txt": testContext + " at night",
	})

	report, err := Run(dir, "")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.SemanticContext != testContext {
		t.Errorf("Expected inferred context %q, got %q", testContext, report.SemanticContext)
	}
}
