package address

import "github.com/agnivade/levenshtein"

// maxSuggestDistance bounds how different a typo may be from a known name.
const maxSuggestDistance = 2

// closest returns the candidate nearest to name, or "" when none is close.
func closest(name string, candidates []string) string {
	best, bestDist := "", maxSuggestDistance+1
	for _, c := range candidates {
		if d := levenshtein.ComputeDistance(name, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
