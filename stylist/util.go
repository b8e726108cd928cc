package stylist

import "strings"

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func containsAny(s string, parts ...string) bool {
	s = strings.ToLower(s)
	for _, p := range parts {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func intersects(a, b []int) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// jaccard returns |a∩b| / |a∪b|. Strings compare exactly; use foldedJaccard
// for free-form tags.
func jaccard(a, b []string) float64 {
	return setJaccard(a, b, func(s string) string { return s })
}

// foldedJaccard is jaccard over case-folded strings.
func foldedJaccard(a, b []string) float64 {
	return setJaccard(a, b, strings.ToLower)
}

func setJaccard(a, b []string, key func(string) string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, s := range a {
		setA[key(s)] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, s := range b {
		setB[key(s)] = struct{}{}
	}
	inter := 0
	for s := range setA {
		if _, ok := setB[s]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
