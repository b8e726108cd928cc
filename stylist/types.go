package stylist

import (
	"slices"
	"time"
)

// Slot is the functional role of a garment in an outfit.
type Slot string

const (
	SlotTop       Slot = "top"
	SlotBottom    Slot = "bottom"
	SlotLayer     Slot = "layer"
	SlotShoes     Slot = "shoes"
	SlotAccessory Slot = "accessory"
	SlotOnePiece  Slot = "one_piece"
)

// AllSlots lists slots in pool order.
var AllSlots = []Slot{SlotTop, SlotBottom, SlotLayer, SlotShoes, SlotAccessory, SlotOnePiece}

func (s Slot) Valid() bool {
	return slices.Contains(AllSlots, s)
}

type Pattern string

const (
	PatternSolid   Pattern = "solid"
	PatternStripe  Pattern = "stripe"
	PatternCheck   Pattern = "check"
	PatternGraphic Pattern = "graphic"
	PatternFloral  Pattern = "floral"
	PatternOther   Pattern = "other"
)

func (p Pattern) Valid() bool {
	switch p {
	case PatternSolid, PatternStripe, PatternCheck, PatternGraphic, PatternFloral, PatternOther:
		return true
	}
	return false
}

// Fit describes the silhouette of a garment.
type Fit string

const (
	FitFitted  Fit = "fitted"
	FitRegular Fit = "regular"
	FitLoose   Fit = "loose"
)

func (f Fit) Valid() bool {
	switch f {
	case FitFitted, FitRegular, FitLoose:
		return true
	}
	return false
}

// WeightClass is the warmth/heft of a garment: light=1, medium=2, heavy=3.
type WeightClass int

const (
	WeightLight  WeightClass = 1
	WeightMedium WeightClass = 2
	WeightHeavy  WeightClass = 3
)

type Availability string

const (
	AvailabilityActive   Availability = "active"
	AvailabilityLaundry  Availability = "laundry"
	AvailabilityArchived Availability = "archived"
	AvailabilityDonated  Availability = "donated"
)

func (a Availability) Valid() bool {
	switch a {
	case AvailabilityActive, AvailabilityLaundry, AvailabilityArchived, AvailabilityDonated:
		return true
	}
	return false
}

type Season string

const (
	SeasonSummer       Season = "summer"
	SeasonWinter       Season = "winter"
	SeasonMonsoon      Season = "monsoon"
	SeasonTransitional Season = "transitional"
)

// Color is one colour of a garment. Hue is in degrees, saturation and
// lightness are fractions. PaletteID 0 means "not in the palette dictionary".
type Color struct {
	Hue        float64    `json:"hue" validate:"gte=0,lte=360"`
	Saturation float64    `json:"saturation" validate:"gte=0,lte=1"`
	Lightness  float64    `json:"lightness" validate:"gte=0,lte=1"`
	Lab        [3]float64 `json:"lab"`
	PaletteID  int        `json:"palette_id" validate:"gte=0"`
	Neon       bool       `json:"neon"`
}

// FormalityRange is an interval on the 0-10 dress scale.
type FormalityRange struct {
	Min float64 `json:"min" validate:"gte=0,lte=10"`
	Max float64 `json:"max" validate:"gte=0,lte=10"`
}

func (r FormalityRange) Mid() float64 {
	return (r.Min + r.Max) / 2
}

// Garment is a read-only wardrobe record as the core sees it.
type Garment struct {
	ID               string             `json:"id" validate:"required"`
	Slot             Slot               `json:"slot" validate:"required"`
	Subtype          string             `json:"subtype"`
	Fabric           string             `json:"fabric"`
	Pattern          Pattern            `json:"pattern"`
	Weight           WeightClass        `json:"weight" validate:"gte=1,lte=3"`
	Fit              Fit                `json:"fit"`
	Colors           []Color            `json:"colors" validate:"required,min=1,dive"`
	Formality        FormalityRange     `json:"formality"`
	SeasonScores     map[Season]float64 `json:"season_scores"`
	Versatility      float64            `json:"versatility" validate:"gte=0,lte=1"`
	BodyTypes        []string           `json:"body_types"`
	StyleTags        []string           `json:"style_tags"`
	NoLayerUnder     bool               `json:"no_layer_under"`
	RequiresLayering bool               `json:"requires_layering"`
	LastWorn         *time.Time         `json:"last_worn,omitempty"`
	WearCount        int                `json:"wear_count" validate:"gte=0"`
	Availability     Availability       `json:"availability" validate:"required"`
}

// DominantColor returns the first colour, which callers treat as dominant.
func (g Garment) DominantColor() (Color, bool) {
	if len(g.Colors) == 0 {
		return Color{}, false
	}
	return g.Colors[0], true
}

// Rule is a culture or safety tag attached to a context.
type Rule string

const (
	RuleModesty            Rule = "modesty"
	RuleAvoidWhite         Rule = "avoid_white"
	RuleOfficeConservative Rule = "office_conservative"
	RuleMonsoonProtection  Rule = "monsoon_protection"
)

type TimeOfDay string

const (
	TimeMorning   TimeOfDay = "morning"
	TimeAfternoon TimeOfDay = "afternoon"
	TimeEvening   TimeOfDay = "evening"
	TimeNight     TimeOfDay = "night"
	TimeAny       TimeOfDay = "any"
)

// Context is the situational context of one request. It is derived once by
// NormalizeContext and treated as immutable afterwards.
type Context struct {
	Event           string    `json:"event"`
	FormalityTarget float64   `json:"formality_target"`
	Season          Season    `json:"season"`
	Temperature     float64   `json:"temperature"`
	RainProbability float64   `json:"rain_probability"`
	Raining         bool      `json:"raining"`
	Indoor          bool      `json:"indoor"`
	TimeOfDay       TimeOfDay `json:"time_of_day"`
	Mood            string    `json:"mood"`
	Rules           []Rule    `json:"rules"`
	RequiredSlots   []Slot    `json:"required_slots,omitempty"`
}

func (c Context) HasRule(r Rule) bool {
	return slices.Contains(c.Rules, r)
}

// Weights are the per-dimension scoring multipliers the learner adjusts.
type Weights struct {
	Formality  float64 `json:"formality"`
	Season     float64 `json:"season"`
	Body       float64 `json:"body"`
	Palette    float64 `json:"palette"`
	Style      float64 `json:"style"`
	Recency    float64 `json:"recency"`
	Repetition float64 `json:"repetition"`
}

// DefaultWeights returns the neutral weight vector.
func DefaultWeights() Weights {
	return Weights{
		Formality:  1,
		Season:     1,
		Body:       1,
		Palette:    1,
		Style:      1,
		Recency:    1,
		Repetition: 1,
	}
}

// UserProfile is a read-only snapshot of a user's style profile.
type UserProfile struct {
	UserID           string   `json:"user_id"`
	BodyType         string   `json:"body_type"`
	Undertone        string   `json:"undertone"`
	Contrast         string   `json:"contrast"`
	ModestyLevel     int      `json:"modesty_level" validate:"gte=0,lte=10"`
	BestColors       []int    `json:"best_colors"`
	AvoidColors      []int    `json:"avoid_colors"`
	StyleTags        []string `json:"style_tags"`
	Weights          Weights  `json:"weights"`
	InteractionCount int      `json:"interaction_count"`
}

// SubScores is the explainable breakdown of an outfit score.
type SubScores struct {
	ColorHarmony float64 `json:"color_harmony"`
	ContextMatch float64 `json:"context_match"`
	BodyFlattery float64 `json:"body_flattery"`
	Seasonality  float64 `json:"seasonality"`
	StylistPick  float64 `json:"stylist_pick"`
}

type Formula string

const (
	FormulaTopBottomShoes      Formula = "top_bottom_shoes"
	FormulaTopBottomLayerShoes Formula = "top_bottom_layer_shoes"
	FormulaOnePieceShoes       Formula = "one_piece_shoes"
	FormulaOnePieceLayerShoes  Formula = "one_piece_layer_shoes"
)

// OutfitCandidate is one scored outfit. It references garments by id only.
type OutfitCandidate struct {
	GarmentIDs   []string  `json:"garment_ids"`
	Formula      Formula   `json:"formula"`
	Score        float64   `json:"score"`
	SubScores    SubScores `json:"sub_scores"`
	Complete     bool      `json:"complete"`
	MissingSlots []Slot    `json:"missing_slots,omitempty"`
	Warnings     []string  `json:"warnings,omitempty"`
	Explanation  string    `json:"explanation,omitempty"`

	// dominant is the top or one-piece id used by the diversifier reuse cap.
	dominant string
}

// Dominant returns the id of the outfit's top or one-piece.
func (o OutfitCandidate) Dominant() string {
	if o.dominant != "" {
		return o.dominant
	}
	if len(o.GarmentIDs) > 0 {
		return o.GarmentIDs[0]
	}
	return ""
}
