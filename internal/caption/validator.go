package caption

import (
	"fmt"
	"strings"
)

// MaxWords is the hard word budget for a training caption
const MaxWords = 50

// bannedPrefixes are generic openers the model must not emit. They are
// stripped rather than rejected; acceptance is decided by what remains.
var bannedPrefixes = []string{
	"photo of",
	"image of",
	"picture of",
	"a photo",
	"an image",
}

// sentenceDelimiters mark an internal sentence boundary; a caption
// containing one is truncated to its first sentence.
var sentenceDelimiters = []string{". ", "! ", "? "}

const trailingPunctuation = ".!?,;:"

// ValidationResult reports whether a caption meets the training
// contract, the normalized text, and every fix or violation applied in
// the order checked.
type ValidationResult struct {
	Accepted bool
	Text     string
	Issues   []string
}

// Validate checks and normalizes a generated caption against the
// contract: it must start with the semantic context verbatim and stay
// within the word budget. Generic prefixes, extra sentences, and
// trailing punctuation are fixed in place; either critical violation
// rejects the caption and short-circuits the non-critical fixes that
// would follow it.
//
// This is a pure function: no I/O and no randomness.
func Validate(caption, semanticContext string) ValidationResult {
	var issues []string

	caption = strings.TrimSpace(caption)

	for _, prefix := range bannedPrefixes {
		if strings.HasPrefix(strings.ToLower(caption), prefix) {
			caption = strings.TrimSpace(caption[len(prefix):])
			issues = append(issues, fmt.Sprintf("Removed '%s' prefix", prefix))
		}
	}

	if !strings.HasPrefix(caption, semanticContext) {
		issues = append(issues, fmt.Sprintf("CRITICAL: Doesn't start with '%s'", semanticContext))
		return ValidationResult{Accepted: false, Text: caption, Issues: issues}
	}

	if n := WordCount(caption); n > MaxWords {
		issues = append(issues, fmt.Sprintf("CRITICAL: %d words (max %d)", n, MaxWords))
		return ValidationResult{Accepted: false, Text: caption, Issues: issues}
	}

	if idx := firstSentenceEnd(caption); idx != -1 {
		caption = caption[:idx+1]
		issues = append(issues, "Multiple sentences - kept first")
	}

	if trimmed := strings.TrimRight(caption, trailingPunctuation); trimmed != caption {
		caption = trimmed
		issues = append(issues, "Removed trailing punctuation")
	}

	return ValidationResult{Accepted: true, Text: caption, Issues: issues}
}

// firstSentenceEnd returns the index of the punctuation closing the
// first sentence, or -1 when the caption is a single sentence.
func firstSentenceEnd(caption string) int {
	end := -1
	for _, delim := range sentenceDelimiters {
		if idx := strings.Index(caption, delim); idx != -1 && (end == -1 || idx < end) {
			end = idx
		}
	}
	return end
}

// WordCount counts whitespace-delimited tokens
func WordCount(s string) int {
	return len(strings.Fields(s))
}
