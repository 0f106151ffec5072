package rag

import (
	"regexp"
	"sort"
	"strings"
)

const (
	// DefaultChunkSize is the character budget per chunk.
	DefaultChunkSize = 500

	// DefaultChunkOverlap is how many trailing words seed the next chunk.
	DefaultChunkOverlap = 50

	maxKeywords = 10
)

var (
	sentenceSplit = regexp.MustCompile(`[.!?]+`)
	nonWord       = regexp.MustCompile(`[^\w\s]`)

	stopWords = map[string]bool{
		"the": true, "a": true, "an": true, "and": true, "or": true,
		"but": true, "in": true, "on": true, "at": true, "to": true,
		"for": true, "of": true, "with": true, "by": true, "is": true,
		"are": true, "was": true, "were": true, "be": true, "been": true,
		"have": true, "has": true, "had": true, "do": true, "does": true,
		"did": true, "will": true, "would": true, "could": true,
		"should": true, "this": true, "that": true, "these": true,
		"those": true, "i": true, "you": true, "he": true, "she": true,
		"it": true, "we": true, "they": true,
	}
)

// Processor splits document text into overlapping chunks and extracts
// keywords for retrieval scoring.
type Processor struct {
	chunkSize    int
	chunkOverlap int
}

// NewProcessor creates a processor. Zero values select the defaults.
func NewProcessor(chunkSize, chunkOverlap int) *Processor {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap <= 0 {
		chunkOverlap = DefaultChunkOverlap
	}
	return &Processor{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// Chunk splits content on sentence boundaries, closing a chunk once the
// next sentence would push it past the size budget. Each new chunk starts
// with the last overlap words of the previous one so context carries over.
func (p *Processor) Chunk(content string) []string {
	sentences := sentenceSplit.Split(content, -1)

	var chunks []string
	var current string

	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		if current != "" && len(current)+len(sentence) > p.chunkSize {
			chunks = append(chunks, strings.TrimSpace(current))
			words := strings.Fields(current)
			if len(words) > p.chunkOverlap {
				words = words[len(words)-p.chunkOverlap:]
			}
			current = strings.Join(words, " ") + " " + sentence
		} else if current != "" {
			current += " " + sentence
		} else {
			current = sentence
		}
	}

	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}
	return chunks
}

// ExtractKeywords lowercases the text, strips punctuation, drops stop words
// and words of two characters or fewer, and returns the ten most frequent
// remaining words. Frequency ties break by first occurrence.
func (p *Processor) ExtractKeywords(text string) []string {
	clean := nonWord.ReplaceAllString(strings.ToLower(text), "")

	counts := make(map[string]int)
	var order []string
	for _, word := range strings.Fields(clean) {
		if len(word) <= 2 || stopWords[word] {
			continue
		}
		if counts[word] == 0 {
			order = append(order, word)
		}
		counts[word]++
	}

	// order is first-occurrence ordered, so a stable sort keeps that
	// ordering for frequency ties.
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > maxKeywords {
		order = order[:maxKeywords]
	}
	return order
}
