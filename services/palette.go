package services

import (
	"math"

	"stylistapi/stylist"

	"github.com/lucasb-eyer/go-colorful"
)

// paletteMatchDistance is the largest CIEDE2000 distance at which a colour
// still snaps to a swatch.
const paletteMatchDistance = 0.12

type Swatch struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Hex  string `json:"hex"`
}

// Palette is the colour dictionary behind palette ids. Ids are stable and
// stored in user profiles, so only append.
var Palette = []Swatch{
	{1, "black", "#111111"},
	{2, "white", "#f7f7f5"},
	{3, "charcoal", "#3a3b3d"},
	{4, "grey", "#8e8f91"},
	{5, "navy", "#1f2a44"},
	{6, "beige", "#d9c7a7"},
	{7, "camel", "#b98a55"},
	{8, "brown", "#5c3a21"},
	{9, "olive", "#6b6b2f"},
	{10, "forest green", "#1f4d2b"},
	{11, "emerald", "#1a8a5a"},
	{12, "mint", "#a8e0c2"},
	{13, "teal", "#1f7a7a"},
	{14, "sky blue", "#8cc4ec"},
	{15, "royal blue", "#2848b8"},
	{16, "lavender", "#b9a7d9"},
	{17, "purple", "#5e2c86"},
	{18, "burgundy", "#6d1a2c"},
	{19, "red", "#c8202c"},
	{20, "coral", "#f07a64"},
	{21, "blush", "#efc3c0"},
	{22, "fuchsia", "#d52b8e"},
	{23, "mustard", "#d4a52a"},
	{24, "orange", "#e8702a"},
	{25, "cream", "#f1e6cf"},
	{26, "denim", "#4a6a92"},
}

var paletteColors = func() []colorful.Color {
	out := make([]colorful.Color, len(Palette))
	for i, s := range Palette {
		c, err := colorful.Hex(s.Hex)
		if err != nil {
			panic("bad palette swatch " + s.Name)
		}
		out[i] = c
	}
	return out
}()

// SwatchByID returns the swatch with id, or nil.
func SwatchByID(id int) *Swatch {
	for i := range Palette {
		if Palette[i].ID == id {
			return &Palette[i]
		}
	}
	return nil
}

// MatchPalette returns the id of the nearest swatch, or 0 when nothing is
// close enough.
func MatchPalette(c colorful.Color) int {
	best, bestDist := 0, math.MaxFloat64
	for i, p := range paletteColors {
		if d := c.DistanceCIEDE2000(p); d < bestDist {
			best, bestDist = Palette[i].ID, d
		}
	}
	if bestDist > paletteMatchDistance {
		return 0
	}
	return best
}

// GarmentColor describes c in the recommender's colour model.
func GarmentColor(c colorful.Color) stylist.Color {
	c = c.Clamped()
	h, s, l := c.Hsl()
	lab1, lab2, lab3 := c.Lab()
	if math.IsNaN(h) {
		h = 0
	}
	return stylist.Color{
		Hue:        math.Mod(h, 360),
		Saturation: s,
		Lightness:  l,
		Lab:        [3]float64{lab1 * 100, lab2 * 100, lab3 * 100},
		PaletteID:  MatchPalette(c),
		Neon:       s >= 0.9 && l >= 0.45 && l <= 0.7,
	}
}

// ColorFromHex parses "#rrggbb" into a garment colour.
func ColorFromHex(hex string) (stylist.Color, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return stylist.Color{}, err
	}
	return GarmentColor(c), nil
}
