package stylist

import (
	"fmt"
	"math"
	"slices"
	"time"
)

// Signal is a user reaction to a recommended outfit or garment.
type Signal string

const (
	SignalWorn      Signal = "worn"
	SignalLiked     Signal = "liked"
	SignalSaved     Signal = "saved"
	SignalFavorited Signal = "favorited"
	SignalDisliked  Signal = "disliked"
	SignalSkipped   Signal = "skipped"
	SignalDeleted   Signal = "deleted"
)

var signalDeltas = map[Signal]float64{
	SignalWorn:      0.03,
	SignalLiked:     0.05,
	SignalSaved:     0.04,
	SignalFavorited: 0.06,
	SignalDisliked:  -0.05,
	SignalSkipped:   -0.02,
	SignalDeleted:   -0.04,
}

// wear count at which repetition strength saturates
const repetitionSaturation = 50

// Valid reports whether the learner knows the signal.
func (s Signal) Valid() bool {
	_, ok := signalDeltas[s]
	return ok
}

// Interaction is one feedback event. Context and At are optional; without
// them the context-dependent dimensions learn at half strength.
type Interaction struct {
	Signal   Signal    `json:"signal"`
	Garments []Garment `json:"garments"`
	Context  *Context  `json:"context,omitempty"`
	At       time.Time `json:"at"`
}

// Learn returns a new profile with the weights nudged toward the dimensions
// the interacted garments were strong in. Positive signals never lower a
// weight and negative ones never raise one. The input is not modified.
func Learn(p UserProfile, in Interaction, cfg Config) (UserProfile, error) {
	delta, ok := signalDeltas[in.Signal]
	if !ok {
		return p, fmt.Errorf("learn %q: %w", in.Signal, ErrUnknownSignal)
	}
	cfg = cfg.Normalize()
	lc := cfg.Learner

	out := p
	out.BestColors = slices.Clone(p.BestColors)
	out.AvoidColors = slices.Clone(p.AvoidColors)
	out.StyleTags = slices.Clone(p.StyleTags)

	s := dimensionStrengths(in, p)
	w := effectiveWeights(p.Weights)
	// the band only limits movement in the signal's direction, so a weight
	// already outside it is never pulled back against the signal
	step := func(v, strength float64) float64 {
		d := delta * lc.LearningRate * strength
		if d >= 0 {
			return min(v+d, max(v, lc.MaxWeight))
		}
		return max(v+d, min(v, lc.MinWeight))
	}
	out.Weights = Weights{
		Formality:  step(w.Formality, s.Formality),
		Season:     step(w.Season, s.Season),
		Body:       step(w.Body, s.Body),
		Palette:    step(w.Palette, s.Palette),
		Style:      step(w.Style, s.Style),
		Recency:    step(w.Recency, s.Recency),
		Repetition: step(w.Repetition, s.Repetition),
	}
	out.InteractionCount++
	return out, nil
}

// dimensionStrengths is the mean per-dimension value over the garments,
// reusing Weights as a per-dimension vector.
func dimensionStrengths(in Interaction, p UserProfile) Weights {
	if len(in.Garments) == 0 {
		return Weights{
			Formality:  neutralValue,
			Season:     neutralValue,
			Body:       neutralValue,
			Palette:    neutralValue,
			Style:      neutralValue,
			Recency:    neutralValue,
			Repetition: neutralValue,
		}
	}

	var sum Weights
	for _, g := range in.Garments {
		formality, season := neutralValue, neutralValue
		if in.Context != nil {
			formality = formalityFit(g.Formality, in.Context.FormalityTarget)
			season = clamp(g.SeasonScores[in.Context.Season], 0, 1)
		}
		recency := neutralValue
		if !in.At.IsZero() {
			recency = recencyBoost(g, in.At)
		}
		sum.Formality += formality
		sum.Season += season
		sum.Body += bodyAffinity(g, p)
		sum.Palette += paletteAffinity(g, p)
		sum.Style += styleOverlap(g, p)
		sum.Recency += recency
		sum.Repetition += math.Min(1, math.Log1p(float64(max(0, g.WearCount)))/math.Log1p(repetitionSaturation))
	}

	n := float64(len(in.Garments))
	return Weights{
		Formality:  sum.Formality / n,
		Season:     sum.Season / n,
		Body:       sum.Body / n,
		Palette:    sum.Palette / n,
		Style:      sum.Style / n,
		Recency:    sum.Recency / n,
		Repetition: sum.Repetition / n,
	}
}
