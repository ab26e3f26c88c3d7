// Package order generates fractional sort keys for sibling blocks.
//
// Keys are strings over 'a'..'z' interpreted as base-26 fractions. Between
// any two keys there is always another key, so inserting a block at an
// arbitrary position never requires renumbering its siblings. Generated
// keys never end in 'a' (the zero digit), which guarantees that further
// subdivision below a key is always possible.
package order

const (
	minDigit = 'a'
	maxDigit = 'z'
	base     = 26
)

// First returns the canonical key for the first block in an empty list.
func First() string {
	return Between("", "")
}

// Between returns a key that sorts strictly between before and after.
// An empty before means "no lower bound"; an empty after means "no upper
// bound". If the bounds are inverted the upper bound is ignored and the
// result simply sorts after before.
func Between(before, after string) string {
	if after != "" && before >= after {
		after = ""
	}
	return midpoint(before, after)
}

// midpoint computes a string strictly between a and b, where empty a is the
// open lower bound and empty b the open upper bound. Preconditions: a < b
// when both are set, and neither ends in the zero digit.
func midpoint(a, b string) string {
	if b != "" {
		// Strip the longest common prefix, treating a as padded with
		// zero digits ("" vs "ab" shares the prefix "a").
		n := 0
		for n < len(b) && digitAt(a, n) == b[n] {
			n++
		}
		if n > 0 {
			return b[:n] + midpoint(tail(a, n), b[n:])
		}
	}

	da := 0
	if a != "" {
		da = int(a[0] - minDigit)
	}
	db := base
	if b != "" {
		db = int(b[0] - minDigit)
	}

	if db-da > 1 {
		return string(rune(minDigit + (da+db)/2))
	}

	// Consecutive leading digits.
	if len(b) > 1 {
		// b's first digit alone sorts above a and, being a strict
		// prefix of b, below b.
		return b[:1]
	}
	return string(rune(minDigit+da)) + midpoint(tail(a, 1), "")
}

// digitAt returns the digit of s at position i, zero-padded past the end.
func digitAt(s string, i int) byte {
	if i >= len(s) {
		return minDigit
	}
	return s[i]
}

// tail returns s with the first n bytes removed, or "" when s is shorter.
func tail(s string, n int) string {
	if n >= len(s) {
		return ""
	}
	return s[n:]
}
