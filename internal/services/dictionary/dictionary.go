package dictionary

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"strings"

	"github.com/mcoot/credaudit/internal/model"
)

//go:embed words.txt
var defaultWordsRaw string

// Dictionary is an ordered, immutable list of base words.
// Earlier entries have higher priority.
type Dictionary struct {
	words []string
}

// New creates a Dictionary from the given words, preserving order
func New(words []string) *Dictionary {
	cp := make([]string, len(words))
	copy(cp, words)
	return &Dictionary{words: cp}
}

// Default returns the built-in dictionary
func Default() *Dictionary {
	words, _ := ParseWords(strings.NewReader(defaultWordsRaw))
	return &Dictionary{words: words}
}

// ParseWords reads one word per line.
// Surrounding whitespace is trimmed, and blank lines and lines starting with '#' are skipped.
func ParseWords(r io.Reader) ([]string, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word == "" || strings.HasPrefix(word, "#") {
			continue
		}
		words = append(words, word)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return words, nil
}

// WordAt returns the word at the given 1-based priority position
func (d *Dictionary) WordAt(index int) (string, error) {
	if index < 1 || index > len(d.words) {
		return "", fmt.Errorf("%w: %d not in [1, %d]", model.ErrWordOutOfRange, index, len(d.words))
	}
	return d.words[index-1], nil
}

// Size returns the number of words
func (d *Dictionary) Size() int {
	return len(d.words)
}

// Words returns a copy of the words in priority order
func (d *Dictionary) Words() []string {
	cp := make([]string, len(d.words))
	copy(cp, d.words)
	return cp
}
