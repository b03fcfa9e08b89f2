// Package correlate matches threat items against per-tenant software
// inventories and maintains the resulting correlation records.
package correlate

import "strings"

// minTokenLen drops short, generic tokens ("v2", "of") from the overlap
// comparison.
const minTokenLen = 3

// matchThreshold is the number of overlapping long tokens required when the
// normalized names are not exactly equal. A single shared token like
// "server" is too generic to count as a match.
const matchThreshold = 2

// IsMatch reports whether a threat's affected-product string matches a
// locally observed software name. Both inputs must already be normalized.
// Vendor-reported strings and scanner-observed names rarely agree exactly
// ("microsoft word" vs "word 2019 microsoft office"), so after an equality
// check the two are tokenized and matched on overlapping tokens, where
// overlap means one token is a substring of the other.
func IsMatch(threatProduct, inventoryProduct string) bool {
	if threatProduct == "" || inventoryProduct == "" {
		return false
	}
	if threatProduct == inventoryProduct {
		return true
	}

	return matchTokens(Tokenize(threatProduct), Tokenize(inventoryProduct))
}

// matchTokens counts overlapping tokens between the two sides, where overlap
// means one token is a substring of the other.
func matchTokens(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}

	overlap := 0
	for _, ta := range a {
		for _, tb := range b {
			if strings.Contains(ta, tb) || strings.Contains(tb, ta) {
				overlap++
				break
			}
		}
		if overlap >= matchThreshold {
			return true
		}
	}
	return false
}

// Tokenize splits a normalized name on whitespace, keeping tokens longer
// than two characters.
func Tokenize(name string) []string {
	fields := strings.Fields(name)
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) >= minTokenLen {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
