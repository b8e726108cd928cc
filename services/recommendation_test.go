package services_test

import (
	"context"
	"testing"

	"stylistapi/dbhelper"
	"stylistapi/models"
	"stylistapi/services"
	"stylistapi/stylist"
	"stylistapi/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecommendationServiceUsesWardrobe(t *testing.T) {
	db := dbhelper.RequireTestDB(t)
	user := test.FakeUser(db, "", "")
	wardrobe := test.FakeWardrobe(db, user.ID)
	donated := test.FakeClothing(db, user.ID, "top", "#aa0000", 2, 6)
	db.Model(donated).Update("availability", stylist.AvailabilityDonated)
	other := test.FakeUser(db, "Other", "other@example.com")
	foreign := test.FakeClothing(db, other.ID, "top", "#00aa00", 2, 6)

	svc := services.NewRecommendationService(stylist.NewRecommender(stylist.DefaultConfig(),
		stylist.WithIDGenerator(func() string { return "rec-fixed" }),
	))
	rec, err := svc.Recommend(context.Background(), db, *user, stylist.EventInput{Event: "casual lunch"}, 5)
	require.NoError(t, err)

	assert.Equal(t, "rec-fixed", rec.ID)
	require.NotEmpty(t, rec.Outfits)
	owned := map[string]bool{}
	for _, c := range wardrobe {
		owned[services.GarmentID(c.ID)] = true
	}
	for _, o := range rec.Outfits {
		for _, id := range o.GarmentIDs {
			assert.True(t, owned[id], "garment %s is not from the wardrobe", id)
			assert.Contains(t, rec.Clothes, id)
		}
	}
	assert.NotContains(t, rec.Clothes, services.GarmentID(donated.ID))
	assert.NotContains(t, rec.Clothes, services.GarmentID(foreign.ID))
}

func TestRecommendationServiceReportsUnscorableGarments(t *testing.T) {
	db := dbhelper.RequireTestDB(t)
	user := test.FakeUser(db, "", "")
	pending := test.FakeClothing(db, user.ID, "top", "#f7f7f5", 2, 6)
	pending.Colors = nil
	require.NoError(t, db.Save(pending).Error)

	svc := services.NewRecommendationService(stylist.NewRecommender(stylist.DefaultConfig()))
	rec, err := svc.Recommend(context.Background(), db, *user, stylist.EventInput{Event: "office"}, 0)
	require.NoError(t, err)

	assert.Empty(t, rec.Outfits)
	require.Len(t, rec.Rejected, 1)
	assert.Equal(t, services.GarmentID(pending.ID), rec.Rejected[0].GarmentID)
}

func TestRecommendationServiceReadsProfile(t *testing.T) {
	db := dbhelper.RequireTestDB(t)
	user := test.FakeUser(db, "", "")
	test.FakeWardrobe(db, user.ID)
	weights := stylist.DefaultWeights()
	weights.Palette = 1.6
	require.NoError(t, db.Create(&models.StyleProfile{
		UserAccountID:    user.ID,
		Undertone:        "cool",
		BestColors:       []int64{5},
		Weights:          weights,
		InteractionCount: 12,
	}).Error)

	svc := services.NewRecommendationService(stylist.NewRecommender(stylist.DefaultConfig()))
	rec, err := svc.Recommend(context.Background(), db, *user, stylist.EventInput{Event: "casual"}, 3)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.Outfits)
	assert.LessOrEqual(t, len(rec.Outfits), 3)
}
