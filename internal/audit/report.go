package audit

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// SaveYAML writes the report to the audits/ directory and returns the
// path it wrote.
func SaveYAML(report *Report) (string, error) {
	if err := os.MkdirAll("audits", 0755); err != nil {
		return "", fmt.Errorf("failed to create audits directory: %w", err)
	}

	report.Timestamp = time.Now().Format("2006-01-02_15-04-05")
	filename := fmt.Sprintf("audits/%s-%s.yaml", filepath.Base(report.Dir), report.Timestamp)

	data, err := yaml.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write YAML file: %w", err)
	}

	absPath, _ := filepath.Abs(filename)
	return absPath, nil
}

// WriteText renders a human-readable report
func WriteText(w io.Writer, report *Report) {
	fmt.Fprintln(w, "========================================")
	fmt.Fprintln(w, "Caption Contract Audit Report")
	fmt.Fprintln(w, "========================================")
	fmt.Fprintf(w, "Dataset:          %s\n", report.Dir)
	fmt.Fprintf(w, "Semantic context: %q\n", report.SemanticContext)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Images:           %d\n", report.Summary.TotalImages)
	fmt.Fprintf(w, "Accepted:         %d\n", report.Summary.Accepted)
	fmt.Fprintf(w, "Rejected:         %d\n", report.Summary.Rejected)
	fmt.Fprintf(w, "Missing captions: %d\n", report.Summary.MissingCaptions)
	if report.Summary.OrphanCaptions > 0 {
		fmt.Fprintf(w, "Orphan captions:  %d\n", report.Summary.OrphanCaptions)
	}

	var flagged []FileResult
	for _, result := range report.Results {
		if !result.Accepted {
			flagged = append(flagged, result)
		}
	}
	if len(flagged) == 0 {
		fmt.Fprintln(w, "\nEvery caption satisfies the contract.")
		return
	}

	fmt.Fprintln(w, "\nFlagged captions:")
	fmt.Fprintln(w, "========================================")
	for i, result := range flagged {
		fmt.Fprintf(w, "\n[%d] %s\n", i+1, result.Filename)
		if result.Caption != "" {
			fmt.Fprintf(w, "  Caption: %s\n", result.Caption)
		}
		for _, issue := range result.Issues {
			fmt.Fprintf(w, "  - %s\n", issue)
		}
	}
}
