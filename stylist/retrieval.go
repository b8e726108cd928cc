package stylist

import (
	"cmp"
	"slices"
	"time"
)

// Candidate is a garment that survived the unary veto, with its cheap
// relevance and full item score.
type Candidate struct {
	Garment   Garment
	Relevance float64
	Score     ItemScore
}

// Pools holds the bounded per-slot candidate lists.
type Pools map[Slot][]Candidate

// Size returns the total number of candidates across slots.
func (p Pools) Size() int {
	n := 0
	for _, c := range p {
		n += len(c)
	}
	return n
}

// Retrieve vetoes the wardrobe, buckets the survivors by slot and truncates
// each bucket to the configured cap by relevance. Every pool is ordered by
// relevance, ties broken by garment id.
func Retrieve(wardrobe []Garment, ctx Context, p UserProfile, now time.Time, cfg Config) (Pools, []Veto) {
	cfg = cfg.Normalize()
	pools := make(Pools, len(AllSlots))
	var vetoes []Veto

	for _, g := range wardrobe {
		if reason, ok := VetoGarment(g, ctx, p, cfg); !ok {
			vetoes = append(vetoes, Veto{GarmentID: g.ID, Reason: reason})
			continue
		}
		pools[g.Slot] = append(pools[g.Slot], Candidate{
			Garment:   g,
			Relevance: relevance(g, ctx, p, now, cfg),
			Score:     ScoreItem(g, ctx, p, now),
		})
	}

	for slot, bucket := range pools {
		slices.SortStableFunc(bucket, func(a, b Candidate) int {
			if c := cmp.Compare(b.Relevance, a.Relevance); c != 0 {
				return c
			}
			return cmp.Compare(a.Garment.ID, b.Garment.ID)
		})
		if len(bucket) > cfg.PoolSize {
			bucket = bucket[:cfg.PoolSize]
		}
		pools[slot] = bucket
	}
	return pools, vetoes
}
