// Package match decides whether a catalog search candidate is the same
// real-world item as a source library entry.
//
// Scoring is deterministic and the weights are a product decision, not a
// tuning detail: changing them changes which items silently transfer
// versus get skipped.
package match

import (
	"strings"
	"unicode"

	"github.com/favx/favx/internal/models"
)

// Threshold is the minimum score a candidate needs to be accepted.
const Threshold = 40

// Result is the matcher's verdict for one source item.
type Result struct {
	Candidate models.Candidate
	Score     int
	Accepted  bool
}

// Normalize lowercases s, strips punctuation and symbols (letters and
// digits in any script are kept) and collapses whitespace.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Score computes the similarity score in [0, 100] for one candidate.
//
// Name: exact +50, containment either direction +30, else +20 scaled by
// the fraction of source tokens present in the candidate name. Artist
// overlap adds +30 for tracks and albums. Album name adds +20 exact or
// +10 containment for tracks only.
func Score(source models.Item, candidate models.Candidate, t models.ItemType) int {
	score := 0

	srcName := Normalize(source.Name)
	candName := Normalize(candidate.Name)

	switch {
	case srcName != "" && srcName == candName:
		score += 50
	case srcName != "" && candName != "" &&
		(strings.Contains(candName, srcName) || strings.Contains(srcName, candName)):
		score += 30
	default:
		srcTokens := strings.Fields(srcName)
		candTokens := strings.Fields(candName)
		if len(srcTokens) > 0 {
			candSet := make(map[string]struct{}, len(candTokens))
			for _, tok := range candTokens {
				candSet[tok] = struct{}{}
			}
			matched := 0
			for _, tok := range srcTokens {
				if _, ok := candSet[tok]; ok {
					matched++
				}
			}
			score += 20 * matched / len(srcTokens)
		}
	}

	if t == models.Tracks || t == models.Albums {
		if artistsOverlap(source.Artists, candidate.Artists) {
			score += 30
		}
	}

	if t == models.Tracks && source.Album != "" && candidate.Album != "" {
		srcAlbum := Normalize(source.Album)
		candAlbum := Normalize(candidate.Album)
		switch {
		case srcAlbum == candAlbum:
			score += 20
		case strings.Contains(candAlbum, srcAlbum) || strings.Contains(srcAlbum, candAlbum):
			score += 10
		}
	}

	return score
}

// artistsOverlap reports whether any normalized source artist equals,
// contains or is contained by any normalized candidate artist.
func artistsOverlap(source, candidate []string) bool {
	if len(source) == 0 || len(candidate) == 0 {
		return false
	}
	for _, s := range source {
		sn := Normalize(s)
		if sn == "" {
			continue
		}
		for _, c := range candidate {
			cn := Normalize(c)
			if cn == "" {
				continue
			}
			if sn == cn || strings.Contains(sn, cn) || strings.Contains(cn, sn) {
				return true
			}
		}
	}
	return false
}

// Best scores every candidate and returns the strictly highest scorer
// (first seen wins ties). Accepted reports whether the best score clears
// [Threshold]; callers record a skip otherwise.
func Best(source models.Item, candidates []models.Candidate, t models.ItemType) Result {
	var best Result
	for _, c := range candidates {
		s := Score(source, c, t)
		if s > best.Score {
			best = Result{Candidate: c, Score: s}
		}
	}
	best.Accepted = best.Score >= Threshold && best.Candidate.ID != ""
	return best
}
