package search

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	assist "github.com/ZanzyTHEbar/dragonscale-assist"
)

const earthRadiusMeters = 6371008.8

// Rule decides whether two restaurants are the same place: equal non-empty
// IDs, or within ProximityMeters of each other with normalized names at
// least NameSimilarity alike.
type Rule struct {
	ProximityMeters float64
	NameSimilarity  float64
}

// Same reports whether a and b are the same place under r.
func (r Rule) Same(a, b assist.Restaurant) bool {
	if a.ID != "" && a.ID == b.ID {
		return true
	}
	if DistanceMeters(a.Coordinates, b.Coordinates) > r.ProximityMeters {
		return false
	}
	return NameSimilarity(a.Name, b.Name) >= r.NameSimilarity
}

// Dedup orders items by distance from origin, then name, then ID, and keeps
// each item that is not the same place as one already kept. Applying Dedup
// to its own output returns it unchanged. The input slice is not modified.
func Dedup(origin assist.Coordinates, items []assist.Restaurant, rule Rule) []assist.Restaurant {
	ranked := rank(origin, items)
	kept := make([]assist.Restaurant, 0, len(ranked))
	for _, cand := range ranked {
		dup := false
		for _, k := range kept {
			if rule.Same(k, cand) {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, cand)
		}
	}
	return kept
}

func rank(origin assist.Coordinates, items []assist.Restaurant) []assist.Restaurant {
	type ranked struct {
		r    assist.Restaurant
		dist float64
	}
	rs := make([]ranked, len(items))
	for i, it := range items {
		rs[i] = ranked{r: it, dist: DistanceMeters(origin, it.Coordinates)}
	}
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].dist != rs[j].dist {
			return rs[i].dist < rs[j].dist
		}
		if rs[i].r.Name != rs[j].r.Name {
			return rs[i].r.Name < rs[j].r.Name
		}
		return rs[i].r.ID < rs[j].r.ID
	})
	out := make([]assist.Restaurant, len(rs))
	for i := range rs {
		out[i] = rs[i].r
	}
	return out
}

// DistanceMeters is the great-circle (haversine) distance between a and b.
func DistanceMeters(a, b assist.Coordinates) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// NormalizeName case-folds s, strips diacritics and punctuation, and collapses
// whitespace, so "Café  Müller!" and "cafe muller" compare equal.
func NormalizeName(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), cases.Fold(), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = strings.ToLower(s)
	}
	var b strings.Builder
	b.Grow(len(folded))
	space := false
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		default:
			space = true
		}
	}
	return b.String()
}

// NameSimilarity is 1 - levenshtein/maxlen over the normalized names, in [0,1].
func NameSimilarity(a, b string) float64 {
	ra := []rune(NormalizeName(a))
	rb := []rune(NormalizeName(b))
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

func levenshtein(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
