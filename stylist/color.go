package stylist

import "math"

// Harmony is the relationship between two colours.
type Harmony string

const (
	HarmonyNeutral            Harmony = "neutral"
	HarmonyPaletteMatch       Harmony = "palette_match"
	HarmonyMonochromatic      Harmony = "monochromatic"
	HarmonyAnalogous          Harmony = "analogous"
	HarmonyComplementary      Harmony = "complementary"
	HarmonyTriadic            Harmony = "triadic"
	HarmonySplitComplementary Harmony = "split_complementary"
	HarmonyTetradic           Harmony = "tetradic"
	HarmonyClash              Harmony = "clash"
)

// Tolerances are part of the scoring contract; changing them changes ranking.
const (
	neutralSaturation = 0.15
	neutralDark       = 0.12
	neutralLight      = 0.90

	monoBand   = 15.0
	analogBand = 45.0
	complTol   = 20.0
	triadTol   = 15.0
	splitTol   = 15.0
	tetradTol  = 15.0
)

var harmonyScores = map[Harmony]float64{
	HarmonyNeutral:            1.0,
	HarmonyPaletteMatch:       1.0,
	HarmonyMonochromatic:      0.90,
	HarmonyAnalogous:          0.85,
	HarmonyComplementary:      0.80,
	HarmonyTriadic:            0.75,
	HarmonySplitComplementary: 0.70,
	HarmonyTetradic:           0.65,
	HarmonyClash:              0.30,
}

// IsNeutral reports whether a colour goes with anything.
func IsNeutral(c Color) bool {
	return c.Saturation < neutralSaturation || c.Lightness < neutralDark || c.Lightness > neutralLight
}

// ClassifyHarmony names the relationship between two colours.
func ClassifyHarmony(a, b Color) Harmony {
	if IsNeutral(a) || IsNeutral(b) {
		return HarmonyNeutral
	}
	if a.PaletteID > 0 && a.PaletteID == b.PaletteID {
		return HarmonyPaletteMatch
	}
	d := hueDistance(a.Hue, b.Hue)
	switch {
	case d <= monoBand:
		return HarmonyMonochromatic
	case d <= analogBand:
		return HarmonyAnalogous
	case math.Abs(d-180) <= complTol:
		return HarmonyComplementary
	case math.Abs(d-120) <= triadTol:
		return HarmonyTriadic
	case math.Abs(d-150) <= splitTol:
		return HarmonySplitComplementary
	case math.Abs(d-90) <= tetradTol:
		return HarmonyTetradic
	default:
		return HarmonyClash
	}
}

// PairHarmony scores two colours in [0,1].
func PairHarmony(a, b Color) float64 {
	return harmonyScores[ClassifyHarmony(a, b)]
}

// OutfitHarmony is the mean pairwise harmony of the garments' dominant colours.
func OutfitHarmony(garments []Garment) float64 {
	var colors []Color
	for _, g := range garments {
		if c, ok := g.DominantColor(); ok {
			colors = append(colors, c)
		}
	}
	if len(colors) < 2 {
		return 1
	}
	var sum float64
	pairs := 0
	for i := 0; i < len(colors); i++ {
		for j := i + 1; j < len(colors); j++ {
			sum += PairHarmony(colors[i], colors[j])
			pairs++
		}
	}
	return sum / float64(pairs)
}

// hueDistance is the shortest angular distance in [0,180].
func hueDistance(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}
