// Package match resolves which catalog item a free-text order comment
// refers to, using normalized token overlap.
package match

import (
	"strings"
	"unicode"
)

// Vietnamese diacritic letters preserved by the tokenizer. Stripping these
// would collapse distinct words ("mắm" vs "mam") and break near-duplicate
// matching for the target locale.
const diacritics = "áàảãạăắằẳẵặâấầẩẫậđéèẻẽẹêếềểễệíìỉĩịóòỏõọôốồổỗộơớờởỡợúùủũụưứừửữự"

// Tokenize lowercases s, replaces every rune outside [a-z0-9-], whitespace,
// and the Vietnamese diacritic set with a space, and splits on whitespace.
// It never fails; empty input yields no tokens.
func Tokenize(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case unicode.IsSpace(r):
			return r
		case strings.ContainsRune(diacritics, r):
			return r
		default:
			return ' '
		}
	}, s)
	tokens := strings.Fields(s)
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}

// tokenSet builds the set of unique tokens in s. Frequency is irrelevant to
// scoring, only presence.
func tokenSet(s string) map[string]struct{} {
	tokens := Tokenize(s)
	if len(tokens) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}
