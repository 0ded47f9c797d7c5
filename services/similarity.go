package services

import "strings"

// SimilarityRatio computes a normalized similarity between two strings in
// [0, 1] using Ratcliff-Obershelp matching: twice the number of matching
// characters divided by the total length of both strings. Comparison is
// case-insensitive with surrounding whitespace ignored.
func SimilarityRatio(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" && b == "" {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	// The recursive split depends on which longest-common-substring wins a
	// tie, so fix the argument order to keep the ratio symmetric.
	if a > b {
		a, b = b, a
	}
	matches := matchingChars([]rune(a), []rune(b))
	return 2.0 * float64(matches) / float64(len([]rune(a))+len([]rune(b)))
}

// matchingChars finds the longest common substring, then recurses on the
// unmatched pieces to the left and right of it.
func matchingChars(a, b []rune) int {
	ai, bi, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingChars(a[:ai], b[:bi])
	total += matchingChars(a[ai+size:], b[bi+size:])
	return total
}

func longestCommonSubstring(a, b []rune) (int, int, int) {
	bestA, bestB, bestSize := 0, 0, 0
	// lengths[j] holds the current match run ending at b[j-1]
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > bestSize {
					bestSize = cur[j]
					bestA = i - cur[j]
					bestB = j - cur[j]
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return bestA, bestB, bestSize
}
