package stylist

// Diversify selects up to k candidates by greedy maximal marginal relevance:
// each step takes argmax(score - lambda * max Jaccard(items, selected)) among
// candidates whose dominant garment has not reached the reuse cap. Input is
// expected sorted best first; ties keep input order.
func Diversify(cands []OutfitCandidate, k int, cfg Config) []OutfitCandidate {
	cfg = cfg.Normalize()
	if k <= 0 {
		k = cfg.ResultCount
	}
	k = min(k, MaxResults, len(cands))
	if k == 0 {
		return nil
	}

	selected := make([]OutfitCandidate, 0, k)
	taken := make([]bool, len(cands))
	uses := make(map[string]int)

	for len(selected) < k {
		best := -1
		bestMMR := 0.0
		for i, c := range cands {
			if taken[i] || uses[c.Dominant()] >= cfg.ReuseCap {
				continue
			}
			maxSim := 0.0
			for _, s := range selected {
				maxSim = max(maxSim, jaccard(c.GarmentIDs, s.GarmentIDs))
			}
			mmr := c.Score - cfg.MMRLambda*maxSim
			if best < 0 || mmr > bestMMR {
				best, bestMMR = i, mmr
			}
		}
		if best < 0 {
			break
		}
		taken[best] = true
		uses[cands[best].Dominant()]++
		selected = append(selected, cands[best])
	}
	return selected
}
