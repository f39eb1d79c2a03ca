package stats

import "cmp"

// ModeFunc returns the most frequent value. Ties go to the smallest value
// under less, so the result does not depend on input order. ok is false
// for an empty input.
func ModeFunc[T comparable](values []T, less func(a, b T) bool) (mode T, ok bool) {
	if len(values) == 0 {
		return mode, false
	}
	counts := make(map[T]int, len(values))
	best := 0
	for _, v := range values {
		counts[v]++
	}
	for v, n := range counts {
		if n > best || (n == best && less(v, mode)) {
			mode, best = v, n
		}
	}
	return mode, true
}

// Mode is ModeFunc for ordered types.
func Mode[T cmp.Ordered](values []T) (T, bool) {
	return ModeFunc(values, cmp.Less[T])
}

// ModeBool is ModeFunc for booleans with false ordered before true.
func ModeBool(values []bool) (bool, bool) {
	return ModeFunc(values, func(a, b bool) bool { return !a && b })
}
