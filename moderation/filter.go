// Package moderation masks banned words in customer-authored content
// before it reaches the admin console. Matching is normalization-aware so
// spacing, punctuation and common leet substitutions do not defeat it.
package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

type Filter struct {
	machine *goahocorasick.Machine
	mask    rune
}

// NewFilter compiles the banned-word list into an Aho-Corasick automaton.
// An empty list yields a pass-through filter.
func NewFilter(bannedWords []string, mask rune) (*Filter, error) {
	if len(bannedWords) == 0 {
		return &Filter{mask: mask}, nil
	}
	patterns := make([][]rune, 0, len(bannedWords))
	for _, word := range bannedWords {
		normalized, _ := normalize(word)
		if len(normalized) == 0 {
			continue
		}
		patterns = append(patterns, normalized)
	}
	if len(patterns) == 0 {
		return &Filter{mask: mask}, nil
	}

	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	return &Filter{machine: machine, mask: mask}, nil
}

// Mask replaces every rune of a banned match with the mask character,
// leaving surrounding spacing and punctuation untouched.
func (f *Filter) Mask(text string) string {
	if f.machine == nil {
		return text
	}

	normalized, origIdx := normalize(text)
	if len(normalized) == 0 {
		return text
	}
	matches := f.machine.MultiPatternSearch(normalized, false)
	if len(matches) == 0 {
		return text
	}

	runes := []rune(text)
	for _, match := range matches {
		start := match.Pos
		end := start + len(match.Word)
		if start < 0 || end > len(origIdx) {
			continue
		}
		for i := origIdx[start]; i <= origIdx[end-1]; i++ {
			runes[i] = f.mask
		}
	}
	return string(runes)
}

// normalize lowercases, resolves leet substitutions and drops noise runes,
// tracking each kept rune's position in the original text.
func normalize(text string) ([]rune, []int) {
	runes := []rune(text)
	normalized := make([]rune, 0, len(runes))
	origIdx := make([]int, 0, len(runes))

	for i, r := range runes {
		plain := deleet(r)
		if unicode.IsSpace(plain) || unicode.IsPunct(plain) || unicode.IsSymbol(plain) {
			continue
		}
		normalized = append(normalized, unicode.ToLower(plain))
		origIdx = append(origIdx, i)
	}
	return normalized, origIdx
}

func deleet(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}
