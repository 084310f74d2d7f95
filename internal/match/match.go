package match

import "github.com/muachung/tracker/internal/domain/catalog"

// PickItem selects the catalog item best matching the requested free-text
// type. The reported ok is false only when items is empty.
//
// A single item is returned unconditionally, and an empty requested type
// returns the first item: the first listed option is the canonical default.
// Otherwise items are scored by the number of tokens shared with the
// requested type; the strictly highest score wins and ties keep the earliest
// item. When nothing overlaps at all the result degrades to the same
// first-item default.
func PickItem(items []catalog.Item, requestedType string) (catalog.Item, bool) {
	if len(items) == 0 {
		return catalog.Item{}, false
	}
	if len(items) == 1 || requestedType == "" {
		return items[0], true
	}

	requested := tokenSet(requestedType)

	best := 0
	bestScore := -1
	for i, item := range items {
		score := overlap(requested, item.Type)
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	return items[best], true
}

// overlap counts the tokens of label present in the requested set.
func overlap(requested map[string]struct{}, label string) int {
	if len(requested) == 0 {
		return 0
	}
	seen := make(map[string]struct{})
	count := 0
	for _, t := range Tokenize(label) {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := requested[t]; ok {
			count++
		}
	}
	return count
}
