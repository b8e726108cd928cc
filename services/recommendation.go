package services

import (
	"context"
	"fmt"
	"time"

	"stylistapi/metrics"
	"stylistapi/models"
	"stylistapi/stylist"

	"gorm.io/gorm"
)

// Recommendation is a recommender result plus the rows behind its garments.
type Recommendation struct {
	stylist.Result
	Clothes map[string]models.Clothing `json:"-"`
}

// RecommendationService feeds a user's wardrobe and profile into the
// recommender. It reads but never writes.
type RecommendationService struct {
	Recommender *stylist.Recommender
}

func NewRecommendationService(r *stylist.Recommender) *RecommendationService {
	return &RecommendationService{Recommender: r}
}

// Recommend builds outfits for user. Garments that cannot be converted are
// reported in Rejected next to the ones the recommender itself rejects.
func (s *RecommendationService) Recommend(ctx context.Context, db *gorm.DB, user models.UserAccount, event stylist.EventInput, limit int) (*Recommendation, error) {
	started := time.Now()

	var clothes []models.Clothing
	if err := db.WithContext(ctx).
		Where("owner_id = ? and availability <> ?", user.ID, stylist.AvailabilityDonated).
		Find(&clothes).Error; err != nil {
		return nil, fmt.Errorf("load wardrobe: %w", err)
	}
	sp, err := LoadStyleProfile(db.WithContext(ctx), user.ID)
	if err != nil {
		return nil, fmt.Errorf("load style profile: %w", err)
	}

	garments, rejected := ClothesToGarments(clothes)
	if event.Location == "" {
		event.Location = user.HomeCity
	}
	if event.Time.IsZero() {
		event.Time = started
	}

	result := s.Recommender.Recommend(ctx, stylist.Request{
		Wardrobe: garments,
		Profile:  ProfileFromModel(user.ID, sp),
		Event:    event,
		Limit:    limit,
	})
	result.Rejected = append(rejected, result.Rejected...)

	byID := make(map[string]models.Clothing, len(clothes))
	for _, c := range clothes {
		byID[GarmentID(c.ID)] = c
	}
	used := map[string]models.Clothing{}
	for _, o := range result.Outfits {
		for _, id := range o.GarmentIDs {
			used[id] = byID[id]
		}
	}

	metrics.ObserveRecommendation(string(result.Tier), len(result.Outfits), len(result.Rejected), time.Since(started))
	return &Recommendation{Result: result, Clothes: used}, nil
}
