// Package audit re-checks an exported dataset directory against the
// caption contract: every image has a caption file, every caption
// starts with the shared semantic context, and stays inside the word
// budget.
package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tudelft-ide/captioner/internal/caption"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// FileResult is the audit outcome for one image in the dataset
type FileResult struct {
	Filename  string   `yaml:"filename"`
	Caption   string   `yaml:"caption,omitempty"`
	Accepted  bool     `yaml:"accepted"`
	WordCount int      `yaml:"wordcount"`
	Issues    []string `yaml:"issues,omitempty"`
}

// Summary aggregates an audit run
type Summary struct {
	TotalImages     int `yaml:"totalimages"`
	Accepted        int `yaml:"accepted"`
	Rejected        int `yaml:"rejected"`
	MissingCaptions int `yaml:"missingcaptions"`
	OrphanCaptions  int `yaml:"orphancaptions"`
}

// Report is the complete result of auditing one dataset directory
type Report struct {
	Dir             string       `yaml:"dir"`
	SemanticContext string       `yaml:"semanticcontext"`
	Timestamp       string       `yaml:"timestamp"`
	Summary         Summary      `yaml:"summary"`
	Results         []FileResult `yaml:"results"`
}

// Run audits the dataset directory. When semanticContext is empty it
// is inferred from the captions themselves.
func Run(dir, semanticContext string) (*Report, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset directory: %w", err)
	}

	var imageNames []string
	captionFiles := make(map[string]bool)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		switch {
		case imageExtensions[ext]:
			imageNames = append(imageNames, name)
		case ext == ".txt" && name != "metadata.txt" && name != "README.txt":
			captionFiles[name] = true
		}
	}
	sort.Strings(imageNames)

	if len(imageNames) == 0 {
		return nil, fmt.Errorf("no images found in %s", dir)
	}

	captions := make(map[string]string, len(imageNames))
	for _, name := range imageNames {
		captionName := captionFilename(name)
		if !captionFiles[captionName] {
			continue
		}
		delete(captionFiles, captionName)
		data, err := os.ReadFile(filepath.Join(dir, captionName))
		if err != nil {
			return nil, fmt.Errorf("failed to read caption %s: %w", captionName, err)
		}
		captions[name] = strings.TrimSpace(string(data))
	}

	if semanticContext == "" {
		semanticContext = InferContext(captions)
		if semanticContext == "" {
			return nil, fmt.Errorf("could not infer a shared semantic context; pass one with --context")
		}
	}

	report := &Report{
		Dir:             dir,
		SemanticContext: semanticContext,
	}

	for _, name := range imageNames {
		result := FileResult{Filename: name}
		text, ok := captions[name]
		if !ok {
			result.Issues = []string{"caption file missing"}
			report.Summary.MissingCaptions++
			report.Results = append(report.Results, result)
			continue
		}

		validation := caption.Validate(text, semanticContext)
		result.Caption = text
		result.Accepted = validation.Accepted
		result.WordCount = caption.WordCount(text)
		result.Issues = validation.Issues
		if result.Accepted {
			report.Summary.Accepted++
		} else {
			report.Summary.Rejected++
		}
		report.Results = append(report.Results, result)
	}

	report.Summary.TotalImages = len(imageNames)
	report.Summary.OrphanCaptions = len(captionFiles)
	return report, nil
}

// InferContext derives the shared semantic context as the longest
// common word prefix across all captions. Returns "" when the captions
// share no opening words.
func InferContext(captions map[string]string) string {
	var prefix []string
	first := true
	for _, text := range captions {
		words := strings.Fields(text)
		if first {
			prefix = words
			first = false
			continue
		}
		if len(words) < len(prefix) {
			prefix = prefix[:len(words)]
		}
		for i := range prefix {
			if !strings.EqualFold(prefix[i], words[i]) {
				prefix = prefix[:i]
				break
			}
		}
	}
	return strings.Join(prefix, " ")
}

func captionFilename(imageName string) string {
	return strings.TrimSuffix(imageName, filepath.Ext(imageName)) + ".txt"
}
