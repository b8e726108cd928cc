package stylist

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

const (
	itemShare    = 0.7
	harmonyShare = 0.3

	silhouetteBonus = 0.05
	layerStep       = 0.02
	layerCap        = 0.10
	layerBaseline   = 4
	spreadAllowance = 2.0
	spreadStep      = 0.03
	spreadCap       = 0.15

	missingShoesPenalty = 0.10
	missingLayerPenalty = 0.05
)

// Assemble enumerates outfit formulas over the bounded pools, drops pairs
// failing the pairwise veto and returns the scored candidates best first.
func Assemble(pools Pools, ctx Context, p UserProfile, cfg Config) []OutfitCandidate {
	cfg = cfg.Normalize()
	shoes := bestN(pools[SlotShoes], cfg.ShoesPerCombo, nil)
	layers := bestN(pools[SlotLayer], cfg.LayersPerCombo, func(c Candidate) bool {
		return !c.Garment.NoLayerUnder
	})
	layering := wantsLayering(ctx, cfg)

	// A nil shoe stands for "no shoes available"; the outfit is then incomplete.
	shoeOpts := make([]*Candidate, 0, len(shoes))
	for i := range shoes {
		shoeOpts = append(shoeOpts, &shoes[i])
	}
	if len(shoeOpts) == 0 {
		shoeOpts = append(shoeOpts, nil)
	}

	var out []OutfitCandidate
	for _, top := range pools[SlotTop] {
		for _, bottom := range pools[SlotBottom] {
			if _, ok := VetoPair(top.Garment, bottom.Garment, p); !ok {
				continue
			}
			for _, shoe := range shoeOpts {
				out = append(out, buildOutfit(FormulaTopBottomShoes, ctx, withShoe(shoe, top, bottom)...))
			}
			if !layering || top.Garment.NoLayerUnder {
				continue
			}
			for _, layer := range layers {
				for _, shoe := range shoeOpts {
					out = append(out, buildOutfit(FormulaTopBottomLayerShoes, ctx, withShoe(shoe, top, bottom, layer)...))
				}
			}
		}
	}

	for _, piece := range pools[SlotOnePiece] {
		for _, shoe := range shoeOpts {
			if shoe != nil {
				out = append(out, buildOutfit(FormulaOnePieceShoes, ctx, piece, *shoe))
			}
		}
		if !layering || piece.Garment.NoLayerUnder {
			continue
		}
		for _, layer := range layers {
			for _, shoe := range shoeOpts {
				out = append(out, buildOutfit(FormulaOnePieceLayerShoes, ctx, withShoe(shoe, piece, layer)...))
			}
		}
	}

	SortCandidates(out)
	return out
}

// SortCandidates orders by score descending, then by garment ids so equal
// scores always come out in the same order.
func SortCandidates(cs []OutfitCandidate) {
	slices.SortStableFunc(cs, func(a, b OutfitCandidate) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(strings.Join(a.GarmentIDs, ","), strings.Join(b.GarmentIDs, ","))
	})
}

func wantsLayering(ctx Context, cfg Config) bool {
	return ctx.Season == SeasonWinter ||
		ctx.Temperature < cfg.LayeringTemp ||
		ctx.FormalityTarget >= cfg.HighFormality ||
		slices.Contains(ctx.RequiredSlots, SlotLayer)
}

func withShoe(shoe *Candidate, items ...Candidate) []Candidate {
	if shoe == nil {
		return items
	}
	return append(items, *shoe)
}

// bestN returns up to n candidates by item score, ties by id.
func bestN(pool []Candidate, n int, keep func(Candidate) bool) []Candidate {
	out := make([]Candidate, 0, len(pool))
	for _, c := range pool {
		if keep == nil || keep(c) {
			out = append(out, c)
		}
	}
	slices.SortStableFunc(out, func(a, b Candidate) int {
		if c := cmp.Compare(b.Score.Total, a.Score.Total); c != 0 {
			return c
		}
		return cmp.Compare(a.Garment.ID, b.Garment.ID)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func buildOutfit(formula Formula, ctx Context, items ...Candidate) OutfitCandidate {
	o := OutfitCandidate{Formula: formula, GarmentIDs: make([]string, 0, len(items))}
	garments := make([]Garment, 0, len(items))
	slots := make(map[Slot]Garment, len(items))

	var itemSum, formalitySum, bodySum, seasonSum float64
	for _, c := range items {
		o.GarmentIDs = append(o.GarmentIDs, c.Garment.ID)
		garments = append(garments, c.Garment)
		slots[c.Garment.Slot] = c.Garment
		itemSum += c.Score.Total
		formalitySum += c.Score.Formality
		bodySum += c.Score.Body
		seasonSum += c.Score.Season
	}
	n := float64(len(items))

	if top, ok := slots[SlotTop]; ok {
		o.dominant = top.ID
	} else if piece, ok := slots[SlotOnePiece]; ok {
		o.dominant = piece.ID
	}

	harmony := OutfitHarmony(garments)
	taste := silhouetteBalance(slots) + layeringFit(garments, ctx) + occasionCoherence(garments) + novelty(garments)

	penalty := 0.0
	if _, ok := slots[SlotShoes]; !ok {
		o.MissingSlots = append(o.MissingSlots, SlotShoes)
		o.Warnings = append(o.Warnings, "no wearable shoes available")
		penalty += missingShoesPenalty
	}
	_, hasLayer := slots[SlotLayer]
	if top, ok := slots[SlotTop]; ok && top.RequiresLayering && !hasLayer {
		o.MissingSlots = append(o.MissingSlots, SlotLayer)
		o.Warnings = append(o.Warnings, fmt.Sprintf("%s needs a layer on top", top.ID))
		penalty += missingLayerPenalty
	}
	for _, slot := range ctx.RequiredSlots {
		if _, ok := slots[slot]; !ok && !slices.Contains(o.MissingSlots, slot) {
			o.MissingSlots = append(o.MissingSlots, slot)
			o.Warnings = append(o.Warnings, fmt.Sprintf("event calls for a %s", slot))
		}
	}
	o.Complete = len(o.MissingSlots) == 0

	o.Score = clamp(itemShare*(itemSum/n)+harmonyShare*harmony+taste-penalty, 0, 1)
	o.SubScores = SubScores{
		ColorHarmony: harmony,
		ContextMatch: formalitySum / n,
		BodyFlattery: bodySum / n,
		Seasonality:  seasonSum / n,
		StylistPick:  clamp(0.5+taste, 0, 1),
	}
	return o
}

// silhouetteBalance rewards a fitted piece against a loose one and mildly
// penalizes loose on loose.
func silhouetteBalance(slots map[Slot]Garment) float64 {
	top, okTop := slots[SlotTop]
	bottom, okBottom := slots[SlotBottom]
	if !okTop || !okBottom {
		return 0
	}
	switch {
	case top.Fit == FitFitted && bottom.Fit == FitLoose, top.Fit == FitLoose && bottom.Fit == FitFitted:
		return silhouetteBonus
	case top.Fit == FitLoose && bottom.Fit == FitLoose:
		return -silhouetteBonus
	}
	return 0
}

// layeringFit rewards heavier outfits in winter and penalizes them in summer.
func layeringFit(garments []Garment, ctx Context) float64 {
	total := 0
	for _, g := range garments {
		total += int(g.Weight)
	}
	excess := float64(max(0, total-layerBaseline))
	switch ctx.Season {
	case SeasonWinter:
		return min(layerCap, layerStep*excess)
	case SeasonSummer:
		return -min(layerCap, layerStep*excess)
	}
	return 0
}

// occasionCoherence penalizes outfits mixing very different formality levels.
func occasionCoherence(garments []Garment) float64 {
	if len(garments) < 2 {
		return 0
	}
	lo, hi := garments[0].Formality.Mid(), garments[0].Formality.Mid()
	for _, g := range garments[1:] {
		lo = min(lo, g.Formality.Mid())
		hi = max(hi, g.Formality.Mid())
	}
	return -min(spreadCap, spreadStep*max(0, hi-lo-spreadAllowance))
}

// novelty is neutral until wear history feeds outfit-level scoring.
func novelty([]Garment) float64 {
	return 0
}
