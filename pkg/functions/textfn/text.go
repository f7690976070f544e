// Package textfn implements the string function family the expression
// evaluator dispatches `function` expression nodes to.
package textfn

import "strings"

// ToUpper uppercases s.
func ToUpper(s string) string { return strings.ToUpper(s) }

// ToLower lowercases s.
func ToLower(s string) string { return strings.ToLower(s) }

// Trim strips leading and trailing whitespace.
func Trim(s string) string { return strings.TrimSpace(s) }

// LTrim strips leading whitespace.
func LTrim(s string) string { return strings.TrimLeft(s, " \t\n\r") }

// RTrim strips trailing whitespace.
func RTrim(s string) string { return strings.TrimRight(s, " \t\n\r") }

// Replace replaces every occurrence of old with new.
func Replace(s, old, new string) string { return strings.ReplaceAll(s, old, new) }

// Split splits s on delimiter.
func Split(s, delimiter string) []string {
	if delimiter == "" {
		return []string{s}
	}
	return strings.Split(s, delimiter)
}

// Substring returns the rune substring starting at start for length
// runes (or to the end of s if length is negative), matching Cypher's
// substring(s, start, length?) semantics.
func Substring(s string, start int, length int) string {
	r := []rune(s)
	if start < 0 {
		start = 0
	}
	if start >= len(r) {
		return ""
	}
	end := len(r)
	if length >= 0 && start+length < end {
		end = start + length
	}
	return string(r[start:end])
}

// Left returns the first n runes of s.
func Left(s string, n int) string {
	r := []rune(s)
	if n > len(r) {
		n = len(r)
	}
	if n < 0 {
		n = 0
	}
	return string(r[:n])
}

// Right returns the last n runes of s.
func Right(s string, n int) string {
	r := []rune(s)
	if n > len(r) {
		n = len(r)
	}
	if n < 0 {
		n = 0
	}
	return string(r[len(r)-n:])
}

// Reverse reverses s rune-by-rune.
func Reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}
