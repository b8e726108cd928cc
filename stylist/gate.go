package stylist

// Tier is the confidence band a result set was drawn from.
type Tier string

const (
	TierHigh Tier = "high"
	TierMid  Tier = "mid"
	TierLow  Tier = "low"
	TierNone Tier = "none"
)

type GateResult struct {
	Tier    Tier              `json:"tier"`
	Outfits []OutfitCandidate `json:"outfits"`
}

// ApplyConfidenceGate keeps the strongest tier that still has enough outfits.
// Order of the input is preserved.
func ApplyConfidenceGate(cands []OutfitCandidate, cfg Config) GateResult {
	cfg = cfg.Normalize()
	if high := atLeast(cands, cfg.Gate.High); len(high) >= cfg.Gate.MinCount {
		return GateResult{Tier: TierHigh, Outfits: high}
	}
	if mid := atLeast(cands, cfg.Gate.Mid); len(mid) >= cfg.Gate.MinCount {
		return GateResult{Tier: TierMid, Outfits: mid}
	}
	if low := atLeast(cands, cfg.Gate.Low); len(low) > 0 {
		return GateResult{Tier: TierLow, Outfits: low}
	}
	return GateResult{Tier: TierNone, Outfits: []OutfitCandidate{}}
}

func atLeast(cands []OutfitCandidate, threshold float64) []OutfitCandidate {
	var out []OutfitCandidate
	for _, c := range cands {
		if c.Score >= threshold {
			out = append(out, c)
		}
	}
	return out
}
