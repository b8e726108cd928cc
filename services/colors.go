package services

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"

	"stylistapi/stylist"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	_ "golang.org/x/image/webp"
)

const (
	// photos are reduced to this box before any pixel work
	colorSampleSize = 128
	// share of garment pixels a colour needs to be reported
	minColorShare = 0.08
	// below this share of non-background pixels the garment itself is white
	minGarmentShare = 0.05
)

// WhitenBackgroundFeathered blends bright pixels outside the protected
// centre towards white. Pixels at or below lower are untouched, pixels at or
// above upper become pure white, and the band in between is interpolated.
// protect is the share of width and height around the centre left as is.
func WhitenBackgroundFeathered(img image.Image, lower, upper uint8, protect float64) (*image.NRGBA, error) {
	if lower >= upper {
		return nil, fmt.Errorf("lower threshold must be less than upper threshold")
	}
	if protect < 0 || protect > 1 {
		return nil, fmt.Errorf("protection ratio must be between 0 and 1")
	}

	src := imaging.Clone(img)
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, width, height))

	protectedWidth := int(float64(width) * protect)
	protectedHeight := int(float64(height) * protect)
	x0 := (width - protectedWidth) / 2
	y0 := (height - protectedHeight) / 2
	x1 := x0 + protectedWidth
	y1 := y0 + protectedHeight

	transition := float64(upper - lower)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			px := src.NRGBAAt(x, y)
			if x >= x0 && x < x1 && y >= y0 && y < y1 {
				out.SetNRGBA(x, y, px)
				continue
			}
			luminance := 0.299*float64(px.R) + 0.587*float64(px.G) + 0.114*float64(px.B)
			switch {
			case luminance <= float64(lower):
				out.SetNRGBA(x, y, px)
			case luminance >= float64(upper):
				out.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: px.A})
			default:
				blend := (luminance - float64(lower)) / transition
				out.SetNRGBA(x, y, color.NRGBA{
					R: towardWhite(px.R, blend),
					G: towardWhite(px.G, blend),
					B: towardWhite(px.B, blend),
					A: px.A,
				})
			}
		}
	}
	return out, nil
}

func towardWhite(v uint8, blend float64) uint8 {
	return uint8(math.Round(float64(v)*(1-blend) + 255*blend))
}

type colorBin struct {
	r, g, b float64
	count   int
}

// ExtractGarmentColors returns up to max dominant colours of a garment photo,
// most frequent first. The background is whitened and ignored.
func ExtractGarmentColors(imageBytes []byte, max int) ([]stylist.Color, error) {
	if max <= 0 {
		max = 3
	}
	img, err := imaging.Decode(bytes.NewReader(imageBytes), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	small := imaging.Fit(img, colorSampleSize, colorSampleSize, imaging.Box)
	whitened, err := WhitenBackgroundFeathered(small, 200, 235, 0.5)
	if err != nil {
		return nil, err
	}

	bins := map[int]*colorBin{}
	total, garment := 0, 0
	b := whitened.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			px := whitened.NRGBAAt(x, y)
			if px.A < 128 {
				continue
			}
			total++
			if px.R == 255 && px.G == 255 && px.B == 255 {
				continue
			}
			garment++
			// 3 bits per channel
			key := int(px.R>>5)<<6 | int(px.G>>5)<<3 | int(px.B>>5)
			bin, ok := bins[key]
			if !ok {
				bin = &colorBin{}
				bins[key] = bin
			}
			bin.r += float64(px.R)
			bin.g += float64(px.G)
			bin.b += float64(px.B)
			bin.count++
		}
	}
	if total == 0 {
		return nil, fmt.Errorf("image has no opaque pixels")
	}
	if float64(garment)/float64(total) < minGarmentShare {
		return []stylist.Color{GarmentColor(colorful.Color{R: 1, G: 1, B: 1})}, nil
	}

	ranked := make([]*colorBin, 0, len(bins))
	for _, bin := range bins {
		ranked = append(ranked, bin)
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].count > ranked[j].count })

	var colors []stylist.Color
	seen := map[int]bool{}
	for _, bin := range ranked {
		if len(colors) == max || float64(bin.count)/float64(garment) < minColorShare {
			break
		}
		n := float64(bin.count) * 255
		c := GarmentColor(colorful.Color{R: bin.r / n, G: bin.g / n, B: bin.b / n})
		// neighbouring bins of one swatch collapse into the first
		if c.PaletteID > 0 {
			if seen[c.PaletteID] {
				continue
			}
			seen[c.PaletteID] = true
		}
		colors = append(colors, c)
	}
	if len(colors) == 0 {
		// no colour dominates; report the most frequent one anyway
		n := float64(ranked[0].count) * 255
		colors = append(colors, GarmentColor(colorful.Color{R: ranked[0].r / n, G: ranked[0].g / n, B: ranked[0].b / n}))
	}
	return colors, nil
}
