package tasks

import (
	"context"
	"errors"
	"image/color"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stylistapi/dbhelper"
	"stylistapi/models"
	"stylistapi/services"
	"stylistapi/stylist"
	"stylistapi/test"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func garmentServer(t *testing.T, fg color.NRGBA) *httptest.Server {
	body := test.GarmentPNG(fg)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func pendingClothing(t *testing.T, db *gorm.DB, ownerID uint) models.Clothing {
	c := models.Clothing{
		OwnerID:            ownerID,
		ImageStatus:        "uploaded",
		ProcessingStatus:   "pending",
		ImageURL:           test.NewRefString("clothes/shirt.png"),
		AlertWhenProcessed: true,
	}
	require.NoError(t, db.Create(&c).Error)
	return c
}

func TestTaskPayloads(t *testing.T) {
	task, err := NewStyleFeedbackTask(12)
	require.NoError(t, err)
	assert.Equal(t, TypeStyleFeedback, task.Type())
	assert.JSONEq(t, `{"feedback_id":12}`, string(task.Payload()))

	task, err = NewClothingAnalysisTask(7)
	require.NoError(t, err)
	assert.Equal(t, TypeClothingAnalyze, task.Type())
	assert.JSONEq(t, `{"clothing_id":7}`, string(task.Payload()))

	assert.Equal(t, "style:feedback:12", FeedbackTaskID(12))
	assert.Equal(t, "clothing:analyze:7", ClothingAnalysisTaskID(7))
	assert.Equal(t, TypeLaundryReminder, NewLaundryReminderTask().Type())
}

func TestBrokenPayloadSkipsRetry(t *testing.T) {
	task := asynq.NewTask(TypeStyleFeedback, []byte("{"))
	err := HandleStyleFeedbackTask(context.Background(), task, nil, stylist.DefaultConfig())
	assert.ErrorIs(t, err, asynq.SkipRetry)

	task = asynq.NewTask(TypeClothingAnalyze, []byte("nope"))
	err = HandleClothingAnalysisTask(context.Background(), task, nil, &test.MockClothingAnalyzer{}, test.AWSProviderMock{}, nil)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestClothingAnalysisTask(t *testing.T) {
	db := dbhelper.RequireTestDB(t)
	user := test.FakeUser(db, "", "")

	srv := garmentServer(t, color.NRGBA{R: 0xc8, G: 0x20, B: 0x2c, A: 0xff})
	clothing := pendingClothing(t, db, user.ID)
	analyzer := &test.MockClothingAnalyzer{Analysis: test.ShirtAnalysis()}

	task, err := NewClothingAnalysisTask(clothing.ID)
	require.NoError(t, err)
	err = HandleClothingAnalysisTask(context.Background(), task, db, analyzer, test.AWSProviderMock{MockUrl: srv.URL}, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), analyzer.Calls.Load())

	var updated models.Clothing
	require.NoError(t, db.First(&updated, clothing.ID).Error)
	assert.Equal(t, "completed", updated.ProcessingStatus)
	assert.Equal(t, "Oxford shirt", updated.Name)
	assert.Equal(t, "top", updated.ClothingType)
	assert.True(t, updated.AlertWhenProcessed)
	require.NotEmpty(t, updated.Colors)
	// measured red wins over the model's white
	assert.Equal(t, 19, updated.Colors[0].PaletteID)
	assert.Equal(t, 7.0, *updated.FormalityMax)

	// a second delivery is a no-op
	err = HandleClothingAnalysisTask(context.Background(), task, db, analyzer, test.AWSProviderMock{MockUrl: srv.URL}, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), analyzer.Calls.Load())
}

func TestClothingAnalysisTaskFailures(t *testing.T) {
	db := dbhelper.RequireTestDB(t)
	user := test.FakeUser(db, "", "")
	srv := garmentServer(t, color.NRGBA{R: 0x1f, G: 0x2a, B: 0x44, A: 0xff})
	aws := test.AWSProviderMock{MockUrl: srv.URL}

	t.Run("content violation fails without retry", func(t *testing.T) {
		clothing := pendingClothing(t, db, user.ID)
		task, _ := NewClothingAnalysisTask(clothing.ID)
		analyzer := &test.MockClothingAnalyzer{Err: services.ErrContentViolation}

		err := HandleClothingAnalysisTask(context.Background(), task, db, analyzer, aws, nil)
		require.NoError(t, err)

		var updated models.Clothing
		db.First(&updated, clothing.ID)
		assert.Equal(t, "failed", updated.ProcessingStatus)
		assert.Equal(t, 1, updated.ProcessRetryTimes)
		require.NotNil(t, updated.ProcessErrorMessage)
	})

	t.Run("no garment fails without retry", func(t *testing.T) {
		clothing := pendingClothing(t, db, user.ID)
		task, _ := NewClothingAnalysisTask(clothing.ID)
		analyzer := &test.MockClothingAnalyzer{Err: services.ErrNoGarmentDetected}

		require.NoError(t, HandleClothingAnalysisTask(context.Background(), task, db, analyzer, aws, nil))
		var updated models.Clothing
		db.First(&updated, clothing.ID)
		assert.Equal(t, "failed", updated.ProcessingStatus)
	})

	t.Run("model outage retries until the limit", func(t *testing.T) {
		clothing := pendingClothing(t, db, user.ID)
		task, _ := NewClothingAnalysisTask(clothing.ID)
		analyzer := &test.MockClothingAnalyzer{Err: errors.New("503 from model")}

		for i := 1; i <= maxProcessRetries; i++ {
			err := HandleClothingAnalysisTask(context.Background(), task, db, analyzer, aws, nil)
			if i < maxProcessRetries {
				assert.Error(t, err)
			}
			var updated models.Clothing
			db.First(&updated, clothing.ID)
			assert.Equal(t, i, updated.ProcessRetryTimes)
			if i < maxProcessRetries {
				assert.Equal(t, "pending", updated.ProcessingStatus)
			} else {
				assert.Equal(t, "failed", updated.ProcessingStatus)
			}
		}
	})

	t.Run("missing photo", func(t *testing.T) {
		clothing := models.Clothing{OwnerID: user.ID, ProcessingStatus: "pending", ImageStatus: "draft"}
		db.Create(&clothing)
		task, _ := NewClothingAnalysisTask(clothing.ID)
		analyzer := &test.MockClothingAnalyzer{Analysis: test.ShirtAnalysis()}

		require.NoError(t, HandleClothingAnalysisTask(context.Background(), task, db, analyzer, aws, nil))
		assert.Zero(t, analyzer.Calls.Load())
		var updated models.Clothing
		db.First(&updated, clothing.ID)
		assert.Equal(t, "failed", updated.ProcessingStatus)
	})
}

func TestStyleFeedbackTask(t *testing.T) {
	db := dbhelper.RequireTestDB(t)
	user := test.FakeUser(db, "", "")
	wardrobe := test.FakeWardrobe(db, user.ID)

	ctx := &stylist.Context{Event: "office meeting", FormalityTarget: 6, Season: stylist.SeasonWinter}
	feedback := models.OutfitFeedback{
		UserAccountID:    user.ID,
		RecommendationID: "rec-1",
		Signal:           string(stylist.SignalWorn),
		ClothingIDs:      []int64{int64(wardrobe[0].ID), int64(wardrobe[2].ID), int64(wardrobe[4].ID)},
		Context:          ctx,
	}
	require.NoError(t, db.Create(&feedback).Error)

	task, err := NewStyleFeedbackTask(feedback.ID)
	require.NoError(t, err)
	require.NoError(t, HandleStyleFeedbackTask(context.Background(), task, db, stylist.DefaultConfig()))

	var sp models.StyleProfile
	require.NoError(t, db.Where("user_account_id = ?", user.ID).First(&sp).Error)
	assert.Equal(t, 1, sp.InteractionCount)
	assert.NotEqual(t, stylist.DefaultWeights(), sp.Weights)

	var worn models.Clothing
	db.First(&worn, wardrobe[0].ID)
	assert.Equal(t, 1, worn.WearCount)
	require.NotNil(t, worn.LastWornAt)

	var applied models.OutfitFeedback
	db.First(&applied, feedback.ID)
	assert.True(t, applied.Applied)
	assert.NotNil(t, applied.AppliedAt)

	// redelivery does not learn twice
	require.NoError(t, HandleStyleFeedbackTask(context.Background(), task, db, stylist.DefaultConfig()))
	db.Where("user_account_id = ?", user.ID).First(&sp)
	assert.Equal(t, 1, sp.InteractionCount)
	db.First(&worn, wardrobe[0].ID)
	assert.Equal(t, 1, worn.WearCount)
}

func TestStyleFeedbackTaskUnknownSignal(t *testing.T) {
	db := dbhelper.RequireTestDB(t)
	user := test.FakeUser(db, "", "")

	feedback := models.OutfitFeedback{UserAccountID: user.ID, Signal: "shrugged"}
	require.NoError(t, db.Create(&feedback).Error)
	task, _ := NewStyleFeedbackTask(feedback.ID)

	err := HandleStyleFeedbackTask(context.Background(), task, db, stylist.DefaultConfig())
	assert.ErrorIs(t, err, asynq.SkipRetry)

	var stored models.OutfitFeedback
	db.First(&stored, feedback.ID)
	assert.False(t, stored.Applied)
	require.NotNil(t, stored.ErrorMessage)

	var profiles int64
	db.Model(&models.StyleProfile{}).Where("user_account_id = ?", user.ID).Count(&profiles)
	assert.Zero(t, profiles)
}

func TestLaundryReminderTask(t *testing.T) {
	db := dbhelper.RequireTestDB(t)
	user := test.FakeUser(db, "", "")
	wardrobe := test.FakeWardrobe(db, user.ID)

	old := time.Now().Add(-5 * 24 * time.Hour)
	db.Model(&models.Clothing{}).Where("id = ?", wardrobe[0].ID).
		UpdateColumns(map[string]interface{}{"availability": stylist.AvailabilityLaundry, "updated_at": old})

	err := HandleLaundryReminderTask(context.Background(), NewLaundryReminderTask(), db, nil)
	assert.NoError(t, err)
}
