package stylist

import (
	"math"
	"time"
)

const (
	overdressPenalty  = 0.08
	underdressPenalty = 0.25
	recencySaturation = 30.0 // days
	repetitionScale   = 0.04
	neutralValue      = 0.5
)

// Base importance of each dimension before the user's personal weights.
var baseImportance = Weights{
	Formality: 0.30,
	Season:    0.25,
	Body:      0.10,
	Palette:   0.15,
	Style:     0.10,
	Recency:   0.10,
}

// ItemScore is the score of one garment with the per-dimension values that
// produced it. Every dimension value is in [0,1].
type ItemScore struct {
	Total      float64 `json:"total"`
	Formality  float64 `json:"formality"`
	Season     float64 `json:"season"`
	Body       float64 `json:"body"`
	Palette    float64 `json:"palette"`
	Style      float64 `json:"style"`
	Recency    float64 `json:"recency"`
	Repetition float64 `json:"repetition"`
}

// ScoreItem scores a garment against the context with the user's personal
// weights. The result is normalized to [0,1].
func ScoreItem(g Garment, ctx Context, p UserProfile, now time.Time) ItemScore {
	w := effectiveWeights(p.Weights)
	s := ItemScore{
		Formality:  formalityFit(g.Formality, ctx.FormalityTarget),
		Season:     clamp(g.SeasonScores[ctx.Season], 0, 1),
		Body:       bodyAffinity(g, p),
		Palette:    paletteAffinity(g, p),
		Style:      styleOverlap(g, p),
		Recency:    recencyBoost(g, now),
		Repetition: repetitionPenalty(g.WearCount),
	}

	num := w.Formality*baseImportance.Formality*s.Formality +
		w.Season*baseImportance.Season*s.Season +
		w.Body*baseImportance.Body*s.Body +
		w.Palette*baseImportance.Palette*s.Palette +
		w.Style*baseImportance.Style*s.Style +
		w.Recency*baseImportance.Recency*s.Recency
	den := w.Formality*baseImportance.Formality +
		w.Season*baseImportance.Season +
		w.Body*baseImportance.Body +
		w.Palette*baseImportance.Palette +
		w.Style*baseImportance.Style +
		w.Recency*baseImportance.Recency

	s.Total = clamp(num/den-w.Repetition*s.Repetition, 0, 1)
	return s
}

// formalityFit is 1 inside the garment's range, decays mildly when the
// garment is more formal than needed and steeply when it is less formal.
func formalityFit(r FormalityRange, target float64) float64 {
	switch {
	case target < r.Min:
		return clamp(1-overdressPenalty*(r.Min-target), 0, 1)
	case target > r.Max:
		return clamp(1-underdressPenalty*(target-r.Max), 0, 1)
	default:
		return 1
	}
}

// formalityDistance is 0 inside the range, otherwise the gap to its nearest end.
func formalityDistance(r FormalityRange, target float64) float64 {
	switch {
	case target < r.Min:
		return r.Min - target
	case target > r.Max:
		return target - r.Max
	default:
		return 0
	}
}

func bodyAffinity(g Garment, p UserProfile) float64 {
	if p.BodyType == "" || len(g.BodyTypes) == 0 {
		return neutralValue
	}
	if bodyMatch(g, p) {
		return 1
	}
	return 0
}

func bodyMatch(g Garment, p UserProfile) bool {
	for _, b := range g.BodyTypes {
		if b == p.BodyType {
			return true
		}
	}
	return false
}

func paletteAffinity(g Garment, p UserProfile) float64 {
	ids := paletteIDs(g)
	switch {
	case intersects(ids, p.AvoidColors):
		return 0
	case intersects(ids, p.BestColors):
		return 1
	default:
		return neutralValue
	}
}

func paletteIDs(g Garment) []int {
	ids := make([]int, 0, len(g.Colors))
	for _, c := range g.Colors {
		if c.PaletteID > 0 {
			ids = append(ids, c.PaletteID)
		}
	}
	return ids
}

func styleOverlap(g Garment, p UserProfile) float64 {
	if len(g.StyleTags) == 0 || len(p.StyleTags) == 0 {
		return neutralValue
	}
	return foldedJaccard(g.StyleTags, p.StyleTags)
}

// recencyBoost rewards garments not worn lately, saturating after a month.
func recencyBoost(g Garment, now time.Time) float64 {
	if g.LastWorn == nil {
		return 1
	}
	days := now.Sub(*g.LastWorn).Hours() / 24
	return clamp(days/recencySaturation, 0, 1)
}

// repetitionPenalty grows with the log of the wear count so that heavily
// worn garments sink without ever being excluded.
func repetitionPenalty(wearCount int) float64 {
	if wearCount <= 0 {
		return 0
	}
	return repetitionScale * math.Log1p(float64(wearCount))
}

func effectiveWeights(w Weights) Weights {
	fix := func(v float64) float64 {
		if v <= 0 {
			return 1
		}
		return clamp(v, WeightFloor, WeightCeiling)
	}
	return Weights{
		Formality:  fix(w.Formality),
		Season:     fix(w.Season),
		Body:       fix(w.Body),
		Palette:    fix(w.Palette),
		Style:      fix(w.Style),
		Recency:    fix(w.Recency),
		Repetition: fix(w.Repetition),
	}
}

// relevance is the cheap, weight-free score retrieval uses to truncate pools.
func relevance(g Garment, ctx Context, p UserProfile, now time.Time, cfg Config) float64 {
	closeness := clamp(1-formalityDistance(g.Formality, ctx.FormalityTarget)/5, 0, 1)
	score := 0.35*closeness + 0.25*clamp(g.SeasonScores[ctx.Season], 0, 1)

	ids := paletteIDs(g)
	if intersects(ids, p.BestColors) {
		score += 0.10
	}
	if intersects(ids, p.AvoidColors) {
		score -= 0.10
	}
	if p.BodyType != "" && bodyMatch(g, p) {
		score += 0.10
	}
	score += 0.10 * clamp(g.Versatility, 0, 1)
	if g.LastWorn != nil && now.Sub(*g.LastWorn) < time.Duration(cfg.RecentWearDays)*24*time.Hour {
		score -= 0.10
	}
	return clamp(score, 0, 1)
}
