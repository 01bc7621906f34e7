package enumerator

import "fmt"

// Alphabet is an ordered set of single-character suffix symbols
type Alphabet struct {
	symbols []string
}

// Digits returns the decimal digit alphabet "0".."9"
func Digits() *Alphabet {
	symbols := make([]string, 10)
	for i := range symbols {
		symbols[i] = string(rune('0' + i))
	}
	return &Alphabet{symbols: symbols}
}

// SymbolAt returns the symbol at the given 1-based position
func (a *Alphabet) SymbolAt(index int) (string, error) {
	if index < 1 || index > len(a.symbols) {
		return "", fmt.Errorf("alphabet index %d not in [1, %d]", index, len(a.symbols))
	}
	return a.symbols[index-1], nil
}

// Size returns the number of symbols
func (a *Alphabet) Size() int {
	return len(a.symbols)
}
