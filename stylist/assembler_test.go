package stylist

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assemble(t *testing.T, wardrobe []Garment, in EventInput, p UserProfile) []OutfitCandidate {
	t.Helper()
	ctx := NormalizeContext(in)
	pools, _ := Retrieve(wardrobe, ctx, p, fixedNow, DefaultConfig())
	return Assemble(pools, ctx, p, DefaultConfig())
}

func formulas(cands []OutfitCandidate) map[Formula]int {
	out := map[Formula]int{}
	for _, c := range cands {
		out[c.Formula]++
	}
	return out
}

func TestAssembleLayeringOnlyWhenCold(t *testing.T) {
	wardrobe := append(basicWardrobe(), garment("cardigan", SlotLayer, weight(WeightMedium)))

	hot := assemble(t, wardrobe, EventInput{Event: "casual", Weather: warm(30)}, UserProfile{})
	assert.Equal(t, map[Formula]int{FormulaTopBottomShoes: 1}, formulas(hot))

	cold := assemble(t, wardrobe, EventInput{Event: "casual", Weather: warm(10)}, UserProfile{})
	assert.Equal(t, map[Formula]int{FormulaTopBottomShoes: 1, FormulaTopBottomLayerShoes: 1}, formulas(cold))

	hinted := assemble(t, wardrobe, EventInput{Event: "casual with a cardigan", Weather: warm(30)}, UserProfile{})
	require.Len(t, hinted, 2)
	for _, c := range hinted {
		if c.Formula == FormulaTopBottomShoes {
			assert.False(t, c.Complete)
			assert.Equal(t, []Slot{SlotLayer}, c.MissingSlots)
		} else {
			assert.True(t, c.Complete)
		}
	}
}

func TestAssembleOnePiece(t *testing.T) {
	wardrobe := []Garment{
		garment("dress", SlotOnePiece, subtype("midi dress"), colors(navy)),
		garment("flats", SlotShoes, colors(black)),
		garment("coat", SlotLayer, weight(WeightHeavy)),
	}
	cands := assemble(t, wardrobe, EventInput{Event: "casual", Weather: warm(8)}, UserProfile{})
	assert.Equal(t, map[Formula]int{FormulaOnePieceShoes: 1, FormulaOnePieceLayerShoes: 1}, formulas(cands))
	for _, c := range cands {
		assert.Equal(t, "dress", c.Dominant())
	}
}

func TestAssembleWithoutShoes(t *testing.T) {
	wardrobe := basicWardrobe()[:2]
	cands := assemble(t, wardrobe, EventInput{Event: "casual", Weather: warm(30)}, UserProfile{})
	require.Len(t, cands, 1)

	c := cands[0]
	assert.Equal(t, []string{"tee", "jeans"}, c.GarmentIDs)
	assert.False(t, c.Complete)
	assert.Equal(t, []Slot{SlotShoes}, c.MissingSlots)
	assert.NotEmpty(t, c.Warnings)

	full := assemble(t, basicWardrobe(), EventInput{Event: "casual", Weather: warm(30)}, UserProfile{})
	require.Len(t, full, 1)
	assert.Less(t, c.Score, full[0].Score)
}

func TestAssembleLayerConstraints(t *testing.T) {
	wardrobe := []Garment{
		garment("sheer", SlotTop, func(g *Garment) { g.RequiresLayering = true }),
		garment("bulky", SlotTop, func(g *Garment) { g.NoLayerUnder = true }),
		garment("jeans", SlotBottom),
		garment("boots", SlotShoes),
		garment("cape", SlotLayer, func(g *Garment) { g.NoLayerUnder = true }),
		garment("blazer", SlotLayer),
	}
	cands := assemble(t, wardrobe, EventInput{Event: "casual", Weather: warm(10)}, UserProfile{})

	for _, c := range cands {
		assert.NotContains(t, c.GarmentIDs, "cape")
		if c.Formula == FormulaTopBottomLayerShoes {
			assert.NotContains(t, c.GarmentIDs, "bulky")
		}
		if c.GarmentIDs[0] == "sheer" && c.Formula == FormulaTopBottomShoes {
			assert.Contains(t, c.MissingSlots, SlotLayer)
			assert.False(t, c.Complete)
		}
	}
	assert.Equal(t, map[Formula]int{FormulaTopBottomShoes: 2, FormulaTopBottomLayerShoes: 1}, formulas(cands))
}

func TestAssembleFanoutCaps(t *testing.T) {
	var wardrobe []Garment
	for i := range 4 {
		wardrobe = append(wardrobe,
			garment(fmt.Sprintf("top-%d", i), SlotTop),
			garment(fmt.Sprintf("bottom-%d", i), SlotBottom),
		)
	}
	for i := range 10 {
		wardrobe = append(wardrobe,
			garment(fmt.Sprintf("shoe-%d", i), SlotShoes),
			garment(fmt.Sprintf("layer-%d", i), SlotLayer),
		)
	}
	cands := assemble(t, wardrobe, EventInput{Event: "casual", Weather: warm(10)}, UserProfile{})

	// 16 pairs x 3 shoes, plus 16 pairs x 3 layers x 3 shoes
	assert.Len(t, cands, 16*3+16*3*3)
	for i := 1; i < len(cands); i++ {
		assert.GreaterOrEqual(t, cands[i-1].Score, cands[i].Score)
	}
}

func TestAssembleTasteAdjustments(t *testing.T) {
	ctx := Context{Season: SeasonTransitional, FormalityTarget: 3, Temperature: 22}
	mk := func(top, bottom Fit) OutfitCandidate {
		return buildOutfit(FormulaTopBottomShoes, ctx,
			Candidate{Garment: garment("t", SlotTop, fit(top)), Score: ItemScore{Total: 0.6}},
			Candidate{Garment: garment("b", SlotBottom, fit(bottom)), Score: ItemScore{Total: 0.6}},
			Candidate{Garment: garment("s", SlotShoes), Score: ItemScore{Total: 0.6}},
		)
	}
	base := mk(FitRegular, FitRegular)
	assert.InDelta(t, 0.7*0.6+0.3, base.Score, 1e-9)
	assert.InDelta(t, 0.5, base.SubScores.StylistPick, 1e-9)
	assert.InDelta(t, base.Score+0.05, mk(FitFitted, FitLoose).Score, 1e-9)
	assert.InDelta(t, base.Score-0.05, mk(FitLoose, FitLoose).Score, 1e-9)

	heavy := func(season Season) float64 {
		c := ctx
		c.Season = season
		return layeringFit([]Garment{
			garment("a", SlotTop, weight(WeightHeavy)),
			garment("b", SlotBottom, weight(WeightHeavy)),
			garment("c", SlotLayer, weight(WeightHeavy)),
			garment("d", SlotShoes, weight(WeightHeavy)),
		}, c)
	}
	assert.InDelta(t, 0.10, heavy(SeasonWinter), 1e-9)
	assert.InDelta(t, -0.10, heavy(SeasonSummer), 1e-9)
	assert.Equal(t, 0.0, heavy(SeasonTransitional))

	spread := occasionCoherence([]Garment{
		garment("a", SlotTop, formality(8, 10)),
		garment("b", SlotShoes, formality(0, 2)),
	})
	assert.InDelta(t, -0.15, spread, 1e-9)
	assert.Equal(t, 0.0, occasionCoherence([]Garment{garment("a", SlotTop), garment("b", SlotBottom, formality(2, 4))}))
}

func TestSortCandidatesTieBreak(t *testing.T) {
	cs := []OutfitCandidate{
		{GarmentIDs: []string{"b", "x"}, Score: 0.5},
		{GarmentIDs: []string{"a", "x"}, Score: 0.5},
		{GarmentIDs: []string{"c", "x"}, Score: 0.9},
	}
	SortCandidates(cs)
	assert.Equal(t, []string{"c", "x"}, cs[0].GarmentIDs)
	assert.Equal(t, []string{"a", "x"}, cs[1].GarmentIDs)
	assert.Equal(t, []string{"b", "x"}, cs[2].GarmentIDs)
}
