package hive

import (
	"fmt"
	"strings"
)

const (
	// Divider separates hierarchy levels inside a query.
	Divider = "."
	// RootSigil redirects a query to the root of the tree when used as prefix.
	RootSigil = "~"
)

// Query is the parsed form of a dotted query string.
type Query struct {
	// Raw is the string handed to ParseQuery.
	Raw string
	// Normalized is Raw after NormalizeKey.
	Normalized string
	// Root reports whether the query started with the root sigil.
	Root bool
	// Rootless is Normalized with one leading root sigil removed.
	Rootless string
	// First is the leading token.
	First string
	// Last is the trailing token. Equals First for single token queries.
	Last string
	// Count is the number of tokens.
	Count int
	// Segment holds the tokens between First and Last joined by the divider.
	Segment string
	// Rest is everything after First, empty for single token queries.
	Rest string

	divider string
}

// ParseQuery normalizes raw and splits it into tokens using divider. A leading
// rootSigil sets Root and is stripped from Rootless; tokenization runs on the
// rootless form. Empty input fails with ErrInvalidQuery.
func ParseQuery(raw, divider, rootSigil string) (Query, error) {
	normalized := normalizeKey(raw, divider, rootSigil)
	if normalized == "" {
		return Query{}, fmt.Errorf("%w: query must not be empty", ErrInvalidQuery)
	}

	q := Query{
		Raw:        raw,
		Normalized: normalized,
		Rootless:   normalized,
		divider:    divider,
	}

	if rootSigil != "" && strings.HasPrefix(normalized, rootSigil) {
		q.Root = true
		q.Rootless = strings.TrimPrefix(normalized, rootSigil)
	}

	tokens := strings.Split(q.Rootless, divider)
	for i := range tokens {
		tokens[i] = strings.TrimSpace(tokens[i])
	}
	q.Count = len(tokens)

	switch {
	case len(tokens) == 1:
		q.First = tokens[0]
		q.Last = tokens[0]
	case len(tokens) == 2:
		q.First, q.Last = tokens[0], tokens[1]
		q.Rest = q.Last
	default:
		q.First = tokens[0]
		q.Last = tokens[len(tokens)-1]
		q.Segment = strings.Join(tokens[1:len(tokens)-1], divider)
		q.Rest = q.Segment + divider + q.Last
	}

	return q, nil
}

// Parent returns the query addressing the node that holds Last, i.e. First
// and Segment joined. Single token queries return First.
func (q Query) Parent() string {
	if q.Count < 2 {
		return q.First
	}
	if q.Segment == "" {
		return q.First
	}
	return q.First + q.divider + q.Segment
}

// IsTerminal reports whether the query addresses a key on the current node.
func (q Query) IsTerminal() bool {
	return q.Count == 1
}

// NormalizeKey lowercases key and trims surrounding dividers and whitespace.
// A leading root sigil survives normalization so root detection still works.
func NormalizeKey(key string) string {
	return normalizeKey(key, Divider, RootSigil)
}

func normalizeKey(key, divider, rootSigil string) string {
	cutset := divider + " \t\r\n"
	key = strings.Trim(strings.ToLower(key), cutset)
	if rootSigil != "" && strings.HasPrefix(key, rootSigil) {
		rest := strings.Trim(strings.TrimPrefix(key, rootSigil), cutset)
		return rootSigil + rest
	}
	return key
}
