package vector

import (
	"math"
	"sort"
)

const (
	// TieThreshold is the relative score gap under which two matches are
	// considered tied.
	TieThreshold = 0.02
	InLinkWeight  = 2
	OutLinkWeight = 1
)

// LinkAuthority is the tie-break signal: weighted inbound plus outbound
// links.
func LinkAuthority(p Payload) int {
	return InLinkWeight*p.InLinks + OutLinkWeight*p.OutLinks
}

func tied(a, b float64) bool {
	larger := math.Max(math.Abs(a), math.Abs(b))
	if larger == 0 {
		return true
	}
	return math.Abs(a-b)/larger < TieThreshold
}

// Rank orders matches by score, except that matches whose scores are within
// TieThreshold of each other are ordered by LinkAuthority. The result is
// truncated to limit. The input slice is reordered in place.
func Rank(matches []Match, limit int) []Match {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if tied(a.Score, b.Score) {
			return LinkAuthority(a.Payload) > LinkAuthority(b.Payload)
		}
		return a.Score > b.Score
	})
	if limit >= 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
