package export

import (
	"bytes"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// ManifestRow is one image's record in the parquet manifest. Hugging
// Face-style dataset tooling reads this directly.
type ManifestRow struct {
	FileName  string `parquet:"file_name"`
	Caption   string `parquet:"caption"`
	Edited    bool   `parquet:"edited"`
	WordCount int32  `parquet:"word_count"`
}

// parquetManifest serializes the caption records as a single-row-group
// parquet file.
func parquetManifest(entries []Entry) ([]byte, error) {
	rows := make([]ManifestRow, 0, len(entries))
	for _, entry := range entries {
		caption := normalizeCaption(entry.Caption)
		rows = append(rows, ManifestRow{
			FileName:  entry.Filename,
			Caption:   caption,
			Edited:    entry.Edited,
			WordCount: int32(countWords(caption)),
		})
	}

	var buf bytes.Buffer
	writer := parquet.NewGenericWriter[ManifestRow](&buf)
	if _, err := writer.Write(rows); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func normalizeCaption(caption string) string {
	return strings.TrimRight(strings.TrimSpace(caption), trailingPunctuation)
}

func countWords(s string) int {
	return len(strings.Fields(s))
}
