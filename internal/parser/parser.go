// Package parser extracts page references and emphasized terms from block content.
package parser

import (
	"regexp"
	"strings"
)

var (
	refRe      = regexp.MustCompile(`\[\[(.*?)\]\]`)
	emphasisRe = regexp.MustCompile(`\*\*(.+?)\*\*`)
	spaceRe    = regexp.MustCompile(`\s+`)
)

// MaxEmphasisLen bounds the length of an emphasized span treated as a term.
const MaxEmphasisLen = 80

// ExtractRefs returns the page names referenced as [[Page Name]] tokens, in
// order of appearance and deduplicated by normalized name. Display casing is
// preserved; aliases ([[Target|Alias]]) resolve to the target.
func ExtractRefs(content string) []string {
	matches := refRe.FindAllStringSubmatch(content, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		target := m[1]
		if i := strings.Index(target, "|"); i >= 0 {
			target = target[:i]
		}
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		key := Normalize(target)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, target)
	}
	return out
}

// Normalize lowercases a page title and collapses internal whitespace so it
// can serve as a lookup key. Matching is normalized; display is not.
func Normalize(title string) string {
	return spaceRe.ReplaceAllString(strings.TrimSpace(strings.ToLower(title)), " ")
}

// ExtractEmphasis returns deduplicated **bold** spans up to MaxEmphasisLen
// characters, in order of appearance.
func ExtractEmphasis(content string) []string {
	matches := emphasisRe.FindAllStringSubmatch(content, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		term := strings.TrimSpace(m[1])
		if term == "" || len(term) > MaxEmphasisLen {
			continue
		}
		key := Normalize(term)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, term)
	}
	return out
}

// RewriteRefs replaces every reference token targeting oldTitle (matched by
// normalized name, aliases preserved) with one targeting newTitle, and
// reports whether anything changed.
func RewriteRefs(content, oldTitle, newTitle string) (string, bool) {
	oldKey := Normalize(oldTitle)
	changed := false
	out := refRe.ReplaceAllStringFunc(content, func(tok string) string {
		inner := tok[2 : len(tok)-2]
		target, alias := inner, ""
		if i := strings.Index(inner, "|"); i >= 0 {
			target, alias = inner[:i], inner[i:]
		}
		if Normalize(target) != oldKey {
			return tok
		}
		changed = true
		return "[[" + newTitle + alias + "]]"
	})
	return out, changed
}
