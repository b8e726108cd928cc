package stylist

import (
	"fmt"
	"math/rand/v2"
	"time"
)

var (
	white = Color{Hue: 0, Saturation: 0.02, Lightness: 0.97}
	black = Color{Hue: 0, Saturation: 0.0, Lightness: 0.05}
	navy  = Color{Hue: 225, Saturation: 0.6, Lightness: 0.3}
	red   = Color{Hue: 0, Saturation: 0.8, Lightness: 0.5}
	green = Color{Hue: 120, Saturation: 0.8, Lightness: 0.5}
	neon  = Color{Hue: 90, Saturation: 1, Lightness: 0.5, Neon: true}
)

var fixedNow = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

func allSeasons(v float64) map[Season]float64 {
	return map[Season]float64{
		SeasonSummer:       v,
		SeasonWinter:       v,
		SeasonMonsoon:      v,
		SeasonTransitional: v,
	}
}

func garment(id string, slot Slot, opts ...func(*Garment)) Garment {
	g := Garment{
		ID:           id,
		Slot:         slot,
		Subtype:      string(slot),
		Fabric:       "cotton",
		Pattern:      PatternSolid,
		Weight:       WeightLight,
		Fit:          FitRegular,
		Colors:       []Color{black},
		Formality:    FormalityRange{Min: 1, Max: 3},
		SeasonScores: allSeasons(0.9),
		Versatility:  0.5,
		Availability: AvailabilityActive,
	}
	for _, opt := range opts {
		opt(&g)
	}
	return g
}

func formality(lo, hi float64) func(*Garment) {
	return func(g *Garment) { g.Formality = FormalityRange{Min: lo, Max: hi} }
}

func colors(cs ...Color) func(*Garment) {
	return func(g *Garment) { g.Colors = cs }
}

func subtype(s string) func(*Garment) {
	return func(g *Garment) { g.Subtype = s }
}

func fabric(s string) func(*Garment) {
	return func(g *Garment) { g.Fabric = s }
}

func pattern(p Pattern) func(*Garment) {
	return func(g *Garment) { g.Pattern = p }
}

func availability(a Availability) func(*Garment) {
	return func(g *Garment) { g.Availability = a }
}

func weight(w WeightClass) func(*Garment) {
	return func(g *Garment) { g.Weight = w }
}

func fit(f Fit) func(*Garment) {
	return func(g *Garment) { g.Fit = f }
}

// basicWardrobe is the white tee, black jeans and sneakers wardrobe.
func basicWardrobe() []Garment {
	return []Garment{
		garment("tee", SlotTop, subtype("t-shirt"), colors(white), formality(2, 2)),
		garment("jeans", SlotBottom, subtype("jeans"), fabric("denim"), formality(2, 2)),
		garment("sneakers", SlotShoes, subtype("sneakers"), fabric("canvas"), colors(white), formality(1, 1)),
	}
}

func warm(temp float64) *Weather {
	return &Weather{Temperature: temp, Condition: "clear"}
}

var (
	randomSlots     = []Slot{SlotTop, SlotTop, SlotBottom, SlotBottom, SlotShoes, SlotLayer, SlotOnePiece, SlotAccessory}
	randomPatterns  = []Pattern{PatternSolid, PatternSolid, PatternStripe, PatternCheck, PatternGraphic, PatternFloral}
	randomFabrics   = []string{"cotton", "denim", "wool", "linen", "suede", "silk", "raw silk", "polyester"}
	randomSubtypes  = map[Slot][]string{SlotTop: {"shirt", "tank top", "crop top", "tee"}, SlotBottom: {"trousers", "shorts", "mini skirt", "jeans"}, SlotOnePiece: {"dress", "mini dress", "jumpsuit"}}
	randomAvailable = []Availability{AvailabilityActive, AvailabilityActive, AvailabilityActive, AvailabilityLaundry, AvailabilityArchived, AvailabilityDonated}
	randomPalette   = []Color{white, black, navy, red, green, neon}
	randomEvents    = []string{"casual", "office meeting", "wedding reception", "funeral service", "temple visit", "party", "gym", "date night", "family dinner"}
)

func randomWardrobe(r *rand.Rand, n int) []Garment {
	out := make([]Garment, 0, n)
	for i := range n {
		slot := randomSlots[r.IntN(len(randomSlots))]
		lo := float64(r.IntN(8))
		g := garment(fmt.Sprintf("g%03d", i), slot,
			pattern(randomPatterns[r.IntN(len(randomPatterns))]),
			fabric(randomFabrics[r.IntN(len(randomFabrics))]),
			availability(randomAvailable[r.IntN(len(randomAvailable))]),
			colors(randomPalette[r.IntN(len(randomPalette))], randomPalette[r.IntN(len(randomPalette))]),
			formality(lo, lo+float64(r.IntN(3))),
			weight(WeightClass(1+r.IntN(3))),
		)
		if subs, ok := randomSubtypes[slot]; ok {
			g.Subtype = subs[r.IntN(len(subs))]
		}
		g.SeasonScores = map[Season]float64{
			SeasonSummer:       r.Float64(),
			SeasonWinter:       r.Float64(),
			SeasonMonsoon:      r.Float64(),
			SeasonTransitional: r.Float64(),
		}
		g.WearCount = r.IntN(40)
		out = append(out, g)
	}
	return out
}

func randomEvent(r *rand.Rand) EventInput {
	return EventInput{
		Event: randomEvents[r.IntN(len(randomEvents))],
		Weather: &Weather{
			Temperature:     float64(r.IntN(40)),
			RainProbability: r.Float64(),
		},
	}
}
