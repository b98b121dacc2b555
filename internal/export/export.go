// Package export turns a captioned session into a training archive:
// every image next to a .txt caption file, a metadata.txt manifest, a
// parquet manifest for dataset tooling, and a README for the trainer.
package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

const trailingPunctuation = ".!?,;:"

// ValidateCaptions checks that every image has a non-empty caption,
// returning the offending filenames in upload order.
func ValidateCaptions(filenames []string, captions map[string]string) []string {
	var missing []string
	for _, filename := range filenames {
		if strings.TrimSpace(captions[filename]) == "" {
			missing = append(missing, filename)
		}
	}
	if len(missing) > 0 {
		slog.Warn("Caption validation failed", "missing", len(missing))
	}
	return missing
}

// Manifest renders the metadata.txt content: one caption per line,
// sorted case-insensitively by filename, trailing sentence punctuation
// stripped, LF line endings.
func Manifest(captions map[string]string) string {
	filenames := make([]string, 0, len(captions))
	for filename := range captions {
		filenames = append(filenames, filename)
	}
	sort.Slice(filenames, func(i, j int) bool {
		return strings.ToLower(filenames[i]) < strings.ToLower(filenames[j])
	})

	lines := make([]string, 0, len(filenames))
	for _, filename := range filenames {
		lines = append(lines, normalizeCaption(captions[filename]))
	}
	return strings.Join(lines, "\n")
}

// PreviewManifest returns the first maxLines of the manifest plus a
// truncation note when more exist.
func PreviewManifest(captions map[string]string, maxLines int) string {
	content := Manifest(captions)
	lines := strings.Split(content, "\n")
	if len(lines) <= maxLines {
		return content
	}
	preview := strings.Join(lines[:maxLines], "\n")
	return fmt.Sprintf("%s\n\n... and %d more lines", preview, len(lines)-maxLines)
}

// DatasetName derives an archive name from the semantic context,
// e.g. "TU Delft drawing studio" -> "tu_delft_drawing_studio".
func DatasetName(semanticContext string) string {
	name := strings.ToLower(strings.TrimSpace(semanticContext))
	name = strings.ReplaceAll(name, " ", "_")
	if name == "" {
		name = "dataset"
	}
	return name
}

// Entry is one image going into the archive
type Entry struct {
	Filename string
	Data     []byte
	Caption  string
	Edited   bool
}

// TrainingZip assembles the archive in memory: each image with a
// matching .txt caption file, metadata.txt, metadata.parquet, and a
// README. Export is rejected before anything is written when a
// caption is missing.
func TrainingZip(entries []Entry, datasetName string) ([]byte, string, error) {
	filenames := make([]string, 0, len(entries))
	captions := make(map[string]string, len(entries))
	for _, entry := range entries {
		filenames = append(filenames, entry.Filename)
		captions[entry.Filename] = entry.Caption
	}

	if missing := ValidateCaptions(filenames, captions); len(missing) > 0 {
		return nil, "", fmt.Errorf("cannot export: %d images missing captions: %s", len(missing), summarize(missing))
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, entry := range entries {
		if err := writeZipFile(zw, entry.Filename, entry.Data); err != nil {
			return nil, "", err
		}

		caption := normalizeCaption(entry.Caption)
		txtName := captionFilename(entry.Filename)
		if err := writeZipFile(zw, txtName, []byte(caption)); err != nil {
			return nil, "", err
		}
	}

	if err := writeZipFile(zw, "metadata.txt", []byte(Manifest(captions))); err != nil {
		return nil, "", err
	}

	parquetData, err := parquetManifest(entries)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build parquet manifest: %w", err)
	}
	if err := writeZipFile(zw, "metadata.parquet", parquetData); err != nil {
		return nil, "", err
	}

	if err := writeZipFile(zw, "README.txt", []byte(readme(entries, datasetName))); err != nil {
		return nil, "", err
	}

	if err := zw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize zip: %w", err)
	}

	sizeMB := float64(buf.Len()) / (1024 * 1024)
	message := fmt.Sprintf("Created %s_training.zip (%.1f MB) with %d images", datasetName, sizeMB, len(entries))
	slog.Info("Export archive assembled", "dataset", datasetName, "images", len(entries), "size_mb", fmt.Sprintf("%.1f", sizeMB))
	return buf.Bytes(), message, nil
}

func writeZipFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to add %s to zip: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write %s to zip: %w", name, err)
	}
	return nil
}

// captionFilename swaps the image extension for .txt
func captionFilename(imageName string) string {
	if idx := strings.LastIndex(imageName, "."); idx > 0 {
		return imageName[:idx] + ".txt"
	}
	return imageName + ".txt"
}

func summarize(filenames []string) string {
	const maxListed = 5
	if len(filenames) <= maxListed {
		return strings.Join(filenames, ", ")
	}
	return fmt.Sprintf("%s and %d more", strings.Join(filenames[:maxListed], ", "), len(filenames)-maxListed)
}

func readme(entries []Entry, datasetName string) string {
	var examples []string
	for _, entry := range entries {
		if len(examples) == 3 {
			break
		}
		examples = append(examples, "- "+normalizeCaption(entry.Caption))
	}

	return fmt.Sprintf(`# LoRA Training Dataset: %s

Generated: %s
Images: %d

## Instructions for Replicate.com:

1. Upload this zip to Replicate
2. When prompted, enter your trigger word (e.g. "tudelft_interior")
3. Replicate will prepend your trigger to each caption during training

## Caption Format:

Captions start with the semantic context, maximum 50 words, one
sentence per image. metadata.txt lists every caption; each image also
has a matching .txt file. metadata.parquet carries the same records
for dataset tooling.

Examples from this dataset:
%s

## After Training:

Use your trigger word in prompts:
"[your_trigger] spacious design studio with natural lighting"
`,
		datasetName,
		time.Now().Format("2006-01-02"),
		len(entries),
		strings.Join(examples, "\n"),
	)
}
