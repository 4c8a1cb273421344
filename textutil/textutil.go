// Package textutil holds small text-processing helpers shared by the
// section detector, learning-unit builder, and metadata extractor: sentence
// splitting, stop-word filtering, and truncation-to-preview. Grounded on the
// teacher's snippet.go sentence splitter and stop-word list, generalized
// from "find the most relevant sentence" to "find a sentence boundary" and
// "filter stop words out of a keyword list".
package textutil

import (
	"strings"
	"unicode"
)

// SplitSentences splits text into sentences at period/question/exclamation
// boundaries followed by whitespace or end of string.
func SplitSentences(text string) []string {
	var sentences []string
	var cur strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		cur.WriteRune(runes[i])
		if runes[i] == '.' || runes[i] == '?' || runes[i] == '!' {
			if i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' || runes[i+1] == '\t' {
				if s := strings.TrimSpace(cur.String()); s != "" {
					sentences = append(sentences, s)
				}
				cur.Reset()
			}
		}
	}
	if cur.Len() > 0 {
		if s := strings.TrimSpace(cur.String()); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// NextSentenceBoundary returns the absolute offset (within text) of the end
// of the first sentence that terminates at or after from, or -1 if none is
// found within maxScan characters of from.
func NextSentenceBoundary(text string, from, maxScan int) int {
	end := from + maxScan
	if end > len(text) {
		end = len(text)
	}
	if from >= len(text) {
		return -1
	}
	window := text[from:end]
	for i, r := range window {
		if r == '.' || r == '?' || r == '!' {
			next := i + 1
			if next >= len(window) || window[next] == ' ' || window[next] == '\n' || window[next] == '\t' {
				return from + i + 1
			}
		}
	}
	return -1
}

// SignificantWords returns the set of lowercased words >= 4 characters,
// excluding common stop words — used for keyword and main-concept
// extraction (§4.4 main_concepts: "stop-word-filtered").
func SignificantWords(text string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(w) >= 4 && !StopWords[w] {
			words[w] = true
		}
	}
	return words
}

// Truncate returns s truncated to at most n characters, breaking at the
// last word boundary when possible, with no ellipsis added (callers that
// want one append it themselves). Used for question-text previews (≤50
// chars) and math-expression previews (≤30 chars) in §4.4.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	if idx := strings.LastIndexByte(cut, ' '); idx > n/2 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut)
}

// WordCount returns the number of whitespace-delimited tokens in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// StopWords is a set of common English stop words excluded from keyword and
// concept matching, carried over from the teacher's answer-snippet matcher.
var StopWords = map[string]bool{
	"that": true, "this": true, "with": true, "from": true,
	"have": true, "been": true, "were": true, "they": true,
	"their": true, "will": true, "would": true, "could": true,
	"should": true, "about": true, "which": true, "there": true,
	"these": true, "those": true, "then": true, "than": true,
	"them": true, "what": true, "when": true, "where": true,
	"your": true, "more": true, "some": true, "such": true,
	"only": true, "also": true, "very": true, "just": true,
	"into": true, "over": true, "each": true, "does": true,
	"most": true, "after": true, "before": true, "other": true,
	"being": true, "same": true, "both": true, "between": true,
}
