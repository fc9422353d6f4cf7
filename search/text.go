package search

import "strings"

// Stop words to filter out when matching literals
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true,
}

// tokenizeAndFilter splits text into words, lowercases, trims punctuation, and removes stop words
func tokenizeAndFilter(text string) []string {
	words := strings.Fields(text)
	filtered := make([]string, 0, len(words))

	for _, word := range words {
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}"))
		if cleaned != "" && !stopWords[cleaned] {
			filtered = append(filtered, cleaned)
		}
	}

	return filtered
}

// matchScore returns the fraction of query words present in document,
// plus 0.3 when the whole query appears verbatim.
func matchScore(document string, queryWords []string, phrase string) float32 {
	if len(queryWords) == 0 {
		return 0
	}

	docWords := tokenizeAndFilter(document)
	docWordSet := make(map[string]bool, len(docWords))
	for _, word := range docWords {
		docWordSet[word] = true
	}

	found := 0
	for _, qWord := range queryWords {
		if docWordSet[qWord] {
			found++
		}
	}
	if found == 0 {
		return 0
	}

	score := float32(found) / float32(len(queryWords))
	if phrase != "" && strings.Contains(strings.ToLower(document), phrase) {
		score += 0.3
	}
	return score
}
