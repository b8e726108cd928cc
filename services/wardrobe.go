package services

import (
	"errors"
	"fmt"
	"strconv"

	"stylistapi/models"
	"stylistapi/stylist"

	"gorm.io/gorm"
)

// Defaults for metadata a garment record may still lack, for example while
// its analysis is pending.
const (
	defaultWeightClass  = stylist.WeightClass(2)
	defaultFormalityMin = 3.0
	defaultFormalityMax = 6.0
	defaultSeasonScore  = 0.5
	defaultVersatility  = 0.5
)

var allSeasons = []stylist.Season{
	stylist.SeasonSummer,
	stylist.SeasonWinter,
	stylist.SeasonMonsoon,
	stylist.SeasonTransitional,
}

// GarmentID is the recommender id of a clothing row.
func GarmentID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseGarmentIDs turns recommender ids back into clothing row ids.
func ParseGarmentIDs(ids []string) ([]int64, error) {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid garment id %q", id)
		}
		out = append(out, n)
	}
	return out, nil
}

// ClothingToGarment converts a clothing row. A row without colours cannot be
// scored and yields a *stylist.GarmentError.
func ClothingToGarment(c models.Clothing) (stylist.Garment, error) {
	id := GarmentID(c.ID)
	if len(c.Colors) == 0 {
		return stylist.Garment{}, &stylist.GarmentError{GarmentID: id, Reason: "colours not known yet"}
	}
	g := stylist.Garment{
		ID:               id,
		Slot:             stylist.Slot(c.ClothingType),
		Subtype:          c.Subtype,
		Fabric:           c.Fabric,
		Pattern:          stylist.Pattern(c.Pattern),
		Weight:           stylist.WeightClass(c.WeightClass),
		Fit:              stylist.Fit(c.Fit),
		Colors:           c.Colors,
		Formality:        stylist.FormalityRange{Min: defaultFormalityMin, Max: defaultFormalityMax},
		SeasonScores:     make(map[stylist.Season]float64, len(allSeasons)),
		Versatility:      defaultVersatility,
		BodyTypes:        c.BodyTypes,
		StyleTags:        c.StyleTags,
		NoLayerUnder:     c.NoLayerUnder,
		RequiresLayering: c.RequiresLayering,
		LastWorn:         c.LastWornAt,
		WearCount:        c.WearCount,
		Availability:     stylist.Availability(c.Availability),
	}
	if g.Pattern == "" {
		g.Pattern = stylist.PatternSolid
	}
	if g.Weight == 0 {
		g.Weight = defaultWeightClass
	}
	if g.Fit == "" {
		g.Fit = stylist.FitRegular
	}
	if g.Availability == "" {
		g.Availability = stylist.AvailabilityActive
	}
	if c.FormalityMin != nil {
		g.Formality.Min = *c.FormalityMin
	}
	if c.FormalityMax != nil {
		g.Formality.Max = *c.FormalityMax
	}
	if c.Versatility != nil {
		g.Versatility = *c.Versatility
	}
	for _, s := range allSeasons {
		score, ok := c.SeasonScores[string(s)]
		if !ok {
			score = defaultSeasonScore
		}
		g.SeasonScores[s] = score
	}
	if err := stylist.ValidateGarment(g); err != nil {
		return stylist.Garment{}, err
	}
	return g, nil
}

// ClothesToGarments converts rows, collecting the ones that cannot be scored
// instead of failing.
func ClothesToGarments(clothes []models.Clothing) ([]stylist.Garment, []*stylist.GarmentError) {
	garments := make([]stylist.Garment, 0, len(clothes))
	var rejected []*stylist.GarmentError
	for _, c := range clothes {
		g, err := ClothingToGarment(c)
		if err != nil {
			var gerr *stylist.GarmentError
			if !errors.As(err, &gerr) {
				gerr = &stylist.GarmentError{GarmentID: GarmentID(c.ID), Reason: err.Error()}
			}
			rejected = append(rejected, gerr)
			continue
		}
		garments = append(garments, g)
	}
	return garments, rejected
}

// ApplyClothingAnalysis copies analyzed metadata onto a row. Colours measured
// from the photo win over the model's guesses.
func ApplyClothingAnalysis(c *models.Clothing, a *ClothingAnalysis, measured []stylist.Color) {
	if c.Name == "" {
		c.Name = a.Name
	}
	if c.Description == nil {
		c.Description = StrPointer(a.Description)
	}
	if c.ClothingType == "" {
		c.ClothingType = a.Slot
	}
	c.Subtype = a.Subtype
	c.Fabric = a.Fabric
	if stylist.Pattern(a.Pattern).Valid() {
		c.Pattern = a.Pattern
	}
	if a.WeightClass >= 1 && a.WeightClass <= 3 {
		c.WeightClass = a.WeightClass
	}
	if stylist.Fit(a.Fit).Valid() {
		c.Fit = a.Fit
	}
	c.Colors = measured
	if len(c.Colors) == 0 {
		for _, hex := range a.Colors {
			if col, err := ColorFromHex(hex); err == nil {
				c.Colors = append(c.Colors, col)
			}
		}
	}
	fmin := clampUnit(a.FormalityMin/stylist.FormalityScaleMax) * stylist.FormalityScaleMax
	fmax := clampUnit(a.FormalityMax/stylist.FormalityScaleMax) * stylist.FormalityScaleMax
	c.FormalityMin, c.FormalityMax = &fmin, &fmax
	c.SeasonScores = map[string]float64{
		string(stylist.SeasonSummer):       clampUnit(a.Seasons.Summer),
		string(stylist.SeasonWinter):       clampUnit(a.Seasons.Winter),
		string(stylist.SeasonMonsoon):      clampUnit(a.Seasons.Monsoon),
		string(stylist.SeasonTransitional): clampUnit(a.Seasons.Transitional),
	}
	versatility := clampUnit(a.Versatility)
	c.Versatility = &versatility
	c.BodyTypes = a.BodyTypes
	c.StyleTags = a.StyleTags
	c.NoLayerUnder = a.NoLayerUnder
	c.RequiresLayering = a.RequiresLayering
}

func clampUnit(v float64) float64 {
	return min(max(v, 0), 1)
}

// ProfileFromModel builds the recommender profile. A user without a saved
// profile gets neutral defaults.
func ProfileFromModel(userID uint, sp *models.StyleProfile) stylist.UserProfile {
	p := stylist.UserProfile{
		UserID:  GarmentID(userID),
		Weights: stylist.DefaultWeights(),
	}
	if sp == nil {
		return p
	}
	p.BodyType = sp.BodyType
	p.Undertone = sp.Undertone
	p.Contrast = sp.Contrast
	p.ModestyLevel = sp.ModestyLevel
	p.BestColors = int64sToInts(sp.BestColors)
	p.AvoidColors = int64sToInts(sp.AvoidColors)
	p.StyleTags = sp.StyleTags
	if sp.Weights != (stylist.Weights{}) {
		p.Weights = sp.Weights
	}
	p.InteractionCount = sp.InteractionCount
	return p
}

func int64sToInts(in []int64) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}

// LoadStyleProfile returns the user's saved profile, or nil.
func LoadStyleProfile(db *gorm.DB, userID uint) (*models.StyleProfile, error) {
	var sp models.StyleProfile
	result := db.Where("user_account_id = ?", userID).Limit(1).Find(&sp)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &sp, nil
}

// LoadGarments loads the user's rows with the given ids as garments.
// Foreign or unknown ids are silently absent.
func LoadGarments(db *gorm.DB, userID uint, ids []int64) ([]stylist.Garment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var clothes []models.Clothing
	if err := db.Where("owner_id = ? and id in ?", userID, ids).Find(&clothes).Error; err != nil {
		return nil, err
	}
	garments, _ := ClothesToGarments(clothes)
	return garments, nil
}
