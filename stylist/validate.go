package stylist

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator"
)

var validate = validator.New()

// ValidateGarment checks a garment against the wardrobe invariants. The
// returned error is a *GarmentError.
func ValidateGarment(g Garment) error {
	if err := validate.Struct(g); err != nil {
		return &GarmentError{GarmentID: g.ID, Reason: describe(err)}
	}
	switch {
	case !g.Slot.Valid():
		return &GarmentError{GarmentID: g.ID, Reason: fmt.Sprintf("unknown slot %q", g.Slot)}
	case !g.Availability.Valid():
		return &GarmentError{GarmentID: g.ID, Reason: fmt.Sprintf("unknown availability %q", g.Availability)}
	case g.Pattern != "" && !g.Pattern.Valid():
		return &GarmentError{GarmentID: g.ID, Reason: fmt.Sprintf("unknown pattern %q", g.Pattern)}
	case g.Formality.Min > g.Formality.Max:
		return &GarmentError{GarmentID: g.ID, Reason: "formality min above max"}
	}
	for season, score := range g.SeasonScores {
		if score < 0 || score > 1 {
			return &GarmentError{GarmentID: g.ID, Reason: fmt.Sprintf("season score %s out of range", season)}
		}
	}
	return nil
}

// ValidateProfile checks the profile ranges. Zero weights mean "default" and
// are accepted.
func ValidateProfile(p UserProfile) error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidProfile, describe(err))
	}
	named := map[string]float64{
		"formality":  p.Weights.Formality,
		"season":     p.Weights.Season,
		"body":       p.Weights.Body,
		"palette":    p.Weights.Palette,
		"style":      p.Weights.Style,
		"recency":    p.Weights.Recency,
		"repetition": p.Weights.Repetition,
	}
	for name, w := range named {
		if w != 0 && (w < WeightFloor || w > WeightCeiling) {
			return fmt.Errorf("%w: weight %s=%.2f outside [%.1f, %.1f]", ErrInvalidProfile, name, w, WeightFloor, WeightCeiling)
		}
	}
	return nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}
