package stylist

// VetoReason names the hard rule a garment or pair failed.
type VetoReason string

const (
	VetoUnavailable  VetoReason = "unavailable"
	VetoOffSeason    VetoReason = "off_season"
	VetoDelicateRain VetoReason = "delicate_fabric_in_rain"
	VetoModesty      VetoReason = "modesty"
	VetoWhiteHeavy   VetoReason = "white_heavy"
	VetoOfficeLoud   VetoReason = "office_loud"
	VetoUnderdressed VetoReason = "below_formality"
	VetoFormalLoud   VetoReason = "loud_in_formal"
	VetoDoubleLoud   VetoReason = "double_loud_pattern"
)

const (
	highModestyLevel    = 8
	nearWhiteLightness  = 0.85
	nearWhiteSaturation = 0.15
)

var delicateFabrics = []string{"suede", "raw silk", "silk", "velvet", "satin"}

var boldStyleTags = []string{"bold", "creative", "maximalist", "eclectic"}

// Veto is a rejected garment with the first rule it failed.
type Veto struct {
	GarmentID string     `json:"garment_id"`
	Reason    VetoReason `json:"reason"`
}

// VetoGarment runs the unary rules in order and reports the first failure.
// ok is true when the garment survives every rule.
func VetoGarment(g Garment, ctx Context, p UserProfile, cfg Config) (reason VetoReason, ok bool) {
	if g.Availability != AvailabilityActive {
		return VetoUnavailable, false
	}
	if g.SeasonScores[ctx.Season] < cfg.SeasonFloor {
		return VetoOffSeason, false
	}
	if ctx.RainProbability > cfg.DelicateRain && containsAny(g.Fabric, delicateFabrics...) {
		return VetoDelicateRain, false
	}
	if modestyActive(ctx, p) && immodest(g) {
		return VetoModesty, false
	}
	if ctx.HasRule(RuleAvoidWhite) && nearWhite(g) {
		return VetoWhiteHeavy, false
	}
	if ctx.HasRule(RuleOfficeConservative) && loud(g) {
		return VetoOfficeLoud, false
	}
	if g.Slot != SlotAccessory && g.Formality.Max+cfg.FormalityTolerance < ctx.FormalityTarget {
		return VetoUnderdressed, false
	}
	if ctx.FormalityTarget >= cfg.HighFormality && loud(g) {
		return VetoFormalLoud, false
	}
	return "", true
}

// VetoPair rejects a top+bottom pairing where both carry a pattern, unless
// the profile asks for bold styling. An unset pattern counts as solid.
func VetoPair(top, bottom Garment, p UserProfile) (VetoReason, bool) {
	if patterned(top) && patterned(bottom) && !prefersBold(p) {
		return VetoDoubleLoud, false
	}
	return "", true
}

func patterned(g Garment) bool {
	return g.Pattern != "" && g.Pattern != PatternSolid
}

func modestyActive(ctx Context, p UserProfile) bool {
	return ctx.HasRule(RuleModesty) || p.ModestyLevel >= highModestyLevel
}

func immodest(g Garment) bool {
	switch g.Slot {
	case SlotBottom:
		return containsAny(g.Subtype, "shorts", "mini")
	case SlotTop:
		return containsAny(g.Subtype, "tank", "crop")
	case SlotOnePiece:
		return containsAny(g.Subtype, "mini")
	}
	return false
}

func nearWhite(g Garment) bool {
	c, ok := g.DominantColor()
	return ok && c.Lightness >= nearWhiteLightness && c.Saturation <= nearWhiteSaturation
}

func loud(g Garment) bool {
	if g.Pattern == PatternGraphic {
		return true
	}
	for _, c := range g.Colors {
		if c.Neon {
			return true
		}
	}
	return false
}

func prefersBold(p UserProfile) bool {
	for _, tag := range p.StyleTags {
		if containsAny(tag, boldStyleTags...) {
			return true
		}
	}
	return false
}
