package tags

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// Canonical returns the canonical form of a single tag: trimmed,
// NFKC-normalized, casefolded. Returns "" for whitespace-only input.
func Canonical(tag string) string {
	t := strings.TrimSpace(tag)
	if t == "" {
		return ""
	}
	t = norm.NFKC.String(t)
	return folder.String(t)
}

// Normalize canonicalizes every tag, drops empties, de-dupes, and sorts.
// The result is deterministic for any input order, which keeps tag identity
// stable across sources (SEO keywords vs hand-entered tags).
func Normalize(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, raw := range in {
		t := Canonical(raw)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// NormalizeSet is Normalize returned as a membership set.
func NormalizeSet(in []string) map[string]struct{} {
	set := make(map[string]struct{}, len(in))
	for _, t := range Normalize(in) {
		set[t] = struct{}{}
	}
	return set
}
