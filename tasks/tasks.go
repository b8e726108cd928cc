package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"stylistapi/metrics"
	"stylistapi/models"
	"stylistapi/services"
	"stylistapi/stylist"

	firebase "firebase.google.com/go/v4"
	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	TypeStyleFeedback   = "style:feedback"
	TypeClothingAnalyze = "clothing:analyze"
	TypeLaundryReminder = "wardrobe:laundry_reminder"

	QueueStyle    = "style"
	QueueGenerate = "generate"

	maxProcessRetries = 3
	// colours measured per garment photo
	measuredColors = 3
	// laundry older than this triggers a reminder
	laundryReminderAge = 72 * time.Hour
)

type StyleFeedbackPayload struct {
	FeedbackID uint `json:"feedback_id"`
}

type ClothingAnalysisPayload struct {
	ClothingID uint `json:"clothing_id"`
}

func NewStyleFeedbackTask(feedbackID uint) (*asynq.Task, error) {
	payload, err := json.Marshal(StyleFeedbackPayload{FeedbackID: feedbackID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeStyleFeedback, payload), nil
}

func NewClothingAnalysisTask(clothingID uint) (*asynq.Task, error) {
	payload, err := json.Marshal(ClothingAnalysisPayload{ClothingID: clothingID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeClothingAnalyze, payload), nil
}

func NewLaundryReminderTask() *asynq.Task {
	return asynq.NewTask(TypeLaundryReminder, []byte{})
}

// FeedbackTaskID and ClothingAnalysisTaskID name enqueued tasks so a row is
// never queued twice and its task can be inspected.
func FeedbackTaskID(feedbackID uint) string {
	return fmt.Sprintf("%s:%d", TypeStyleFeedback, feedbackID)
}

func ClothingAnalysisTaskID(clothingID uint) string {
	return fmt.Sprintf("%s:%d", TypeClothingAnalyze, clothingID)
}

// HandleStyleFeedbackTask feeds one recorded interaction to the preference
// learner and stores the new weights. Applying is idempotent per feedback
// row and serialized per user by a row lock on the profile.
func HandleStyleFeedbackTask(ctx context.Context, t *asynq.Task, db *gorm.DB, cfg stylist.Config) error {
	var payload StyleFeedbackPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	logger := log.With().Uint("feedback", payload.FeedbackID).Logger()

	var feedback models.OutfitFeedback
	if err := db.WithContext(ctx).First(&feedback, payload.FeedbackID).Error; err != nil {
		sentry.CaptureException(fmt.Errorf("[Feedback: %v] load: %w", payload.FeedbackID, err))
		return err
	}
	if feedback.Applied {
		logger.Debug().Msg("feedback already applied")
		return nil
	}

	garments, err := services.LoadGarments(db.WithContext(ctx), feedback.UserAccountID, feedback.ClothingIDs)
	if err != nil {
		return fmt.Errorf("[Feedback: %v] load garments: %w", feedback.ID, err)
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sp models.StyleProfile
		res := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_account_id = ?", feedback.UserAccountID).
			Limit(1).Find(&sp)
		if res.Error != nil {
			return res.Error
		}
		var current *models.StyleProfile
		if res.RowsAffected > 0 {
			current = &sp
		} else {
			sp.UserAccountID = feedback.UserAccountID
		}

		learned, err := stylist.Learn(services.ProfileFromModel(feedback.UserAccountID, current), stylist.Interaction{
			Signal:   stylist.Signal(feedback.Signal),
			Garments: garments,
			Context:  feedback.Context,
			At:       feedback.CreatedAt,
		}, cfg)
		if err != nil {
			return err
		}
		sp.Weights = learned.Weights
		sp.InteractionCount = learned.InteractionCount
		if err := tx.Save(&sp).Error; err != nil {
			return err
		}

		if stylist.Signal(feedback.Signal) == stylist.SignalWorn && len(feedback.ClothingIDs) > 0 {
			if err := tx.Model(&models.Clothing{}).
				Where("owner_id = ? and id in ?", feedback.UserAccountID, []int64(feedback.ClothingIDs)).
				Updates(map[string]interface{}{
					"wear_count":   gorm.Expr("wear_count + 1"),
					"last_worn_at": feedback.CreatedAt,
				}).Error; err != nil {
				return err
			}
		}

		now := time.Now()
		feedback.Applied = true
		feedback.AppliedAt = &now
		feedback.ErrorMessage = nil
		return tx.Save(&feedback).Error
	})

	if errors.Is(err, stylist.ErrUnknownSignal) {
		metrics.FeedbackTotal.WithLabelValues(feedback.Signal, "failed").Inc()
		db.Model(&feedback).Update("error_message", err.Error())
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err != nil {
		metrics.FeedbackTotal.WithLabelValues(feedback.Signal, "failed").Inc()
		sentry.CaptureException(fmt.Errorf("[Feedback: %v] apply: %w", feedback.ID, err))
		return err
	}
	metrics.FeedbackTotal.WithLabelValues(feedback.Signal, "applied").Inc()
	logger.Info().Str("signal", feedback.Signal).Int("garments", len(garments)).Msg("feedback applied")
	return nil
}

func getFileForClothing(ctx context.Context, awsService services.AWSServiceProvider, clothing models.Clothing) ([]byte, string, error) {
	if clothing.ImageURL == nil {
		return nil, "", fmt.Errorf("[Clothing: %v] image URL is nil", clothing.ID)
	}
	fileName := filepath.Base(*clothing.ImageURL)
	fileUrl, err := awsService.GetPresignedR2FileReadURL(ctx, os.Getenv("R2_BUCKET_NAME"), *clothing.ImageURL)
	if err != nil {
		sentry.CaptureException(fmt.Errorf("[Clothing: %v] error on getting presigned URL for file %s: %w", clothing.ID, *clothing.ImageURL, err))
		return nil, fileName, err
	}
	fileBytes, err := services.ReadFileFromUrl(ctx, fileUrl)
	if err != nil {
		sentry.CaptureException(fmt.Errorf("[Clothing: %v] error on downloading file %s: %w", clothing.ID, *clothing.ImageURL, err))
		return nil, fileName, err
	}
	return fileBytes, fileName, nil
}

func saveClothingProcessingFail(db *gorm.DB, clothing models.Clothing, msg string, shouldRetry bool) error {
	clothing.ProcessRetryTimes = clothing.ProcessRetryTimes + 1
	clothing.ProcessErrorMessage = &msg
	if !shouldRetry || clothing.ProcessRetryTimes >= maxProcessRetries {
		clothing.ProcessingStatus = "failed"
		metrics.ClothingAnalysisTotal.WithLabelValues("failed").Inc()
	}
	tx := db.Omit("alert_when_processed").Save(&clothing)
	if tx.Error != nil {
		sentry.CaptureException(fmt.Errorf("[Clothing: %v] error on saving failed status: %w", clothing.ID, tx.Error))
		return tx.Error
	}
	return nil
}

// HandleClothingAnalysisTask fills a garment's metadata from its photo: the
// vision model describes it, its colours are measured from the pixels, and
// the result must pass garment validation before it is stored.
func HandleClothingAnalysisTask(
	ctx context.Context, t *asynq.Task, db *gorm.DB, analyzer services.ClothingAnalyzer,
	awsService services.AWSServiceProvider, fbApp *firebase.App) error {
	var payload ClothingAnalysisPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	logger := log.With().Uint("clothing", payload.ClothingID).Logger()

	var clothing models.Clothing
	if err := db.WithContext(ctx).First(&clothing, payload.ClothingID).Error; err != nil {
		sentry.CaptureException(fmt.Errorf("[Clothing: %v] error on retrieving clothing for processing: %w", payload.ClothingID, err))
		return err
	}
	if clothing.ProcessingStatus == "completed" || clothing.ProcessingStatus == "failed" {
		logger.Debug().Str("status", clothing.ProcessingStatus).Msg("clothing already processed")
		return nil
	}
	if clothing.ImageURL == nil {
		saveClothingProcessingFail(db, clothing, "Please upload a photo of the garment first", false)
		return nil
	}

	fileBytes, fileName, err := getFileForClothing(ctx, awsService, clothing)
	if err != nil {
		saveClothingProcessingFail(db, clothing, "Failed to read the garment photo, please upload it again", true)
		return err
	}
	filePath, err := services.CreateTempFile(fileBytes, fileName)
	if err != nil {
		return err
	}
	defer os.Remove(filePath)

	analysis, usage, err := analyzer.AnalyzeClothing(ctx, filePath, services.Flash25)
	switch {
	case errors.Is(err, services.ErrContentViolation):
		saveClothingProcessingFail(db, clothing, "Sorry, we cannot process this photo.", false)
		sentry.CaptureException(fmt.Errorf("[Clothing: %v] content violation: %w", clothing.ID, err))
		return nil
	case errors.Is(err, services.ErrNoGarmentDetected):
		saveClothingProcessingFail(db, clothing, "We could not find a garment on this photo.", false)
		return nil
	case err != nil:
		saveClothingProcessingFail(db, clothing, "Failed to analyze the garment, we will try again", true)
		sentry.CaptureException(fmt.Errorf("[Clothing: %v] analysis: %w", clothing.ID, err))
		return err
	}

	measured, err := services.ExtractGarmentColors(fileBytes, measuredColors)
	if err != nil {
		logger.Warn().Err(err).Msg("colour extraction failed, using model colours")
	}
	services.ApplyClothingAnalysis(&clothing, analysis, measured)
	if _, err := services.ClothingToGarment(clothing); err != nil {
		saveClothingProcessingFail(db, clothing, "The garment description was incomplete, please edit it manually", false)
		sentry.CaptureException(fmt.Errorf("[Clothing: %v] invalid analysis: %w", clothing.ID, err))
		return nil
	}

	clothing.ProcessingStatus = "completed"
	clothing.ProcessErrorMessage = nil
	if err := db.Omit("alert_when_processed").Save(&clothing).Error; err != nil {
		sentry.CaptureException(fmt.Errorf("[Clothing: %v] error on saving analysis: %w", clothing.ID, err))
		return err
	}
	metrics.ClothingAnalysisTotal.WithLabelValues("completed").Inc()
	event := logger.Info().Str("slot", clothing.ClothingType).Int("colors", len(clothing.Colors))
	if usage != nil {
		event = event.Int32("total_tokens", usage.TotalTokenCount)
	}
	event.Msg("clothing analyzed")

	if clothing.AlertWhenProcessed {
		err := services.SendNotification(ctx, fbApp, db, clothing.OwnerID, "Your closet is updated",
			fmt.Sprintf("%s is ready for outfits", clothing.Name),
			map[string]string{"clothing_id": fmt.Sprintf("%d", clothing.ID), "type": "clothing_processed"})
		if err != nil {
			logger.Warn().Err(err).Msg("failed to notify owner")
		}
	}
	return nil
}

type laundryRow struct {
	OwnerID uint
	Items   int
}

// HandleLaundryReminderTask nudges users whose garments sat in the laundry
// for a few days, since those garments are left out of recommendations.
func HandleLaundryReminderTask(ctx context.Context, t *asynq.Task, db *gorm.DB, fbApp *firebase.App) error {
	cutoff := time.Now().Add(-laundryReminderAge)
	var rows []laundryRow
	err := db.WithContext(ctx).Model(&models.Clothing{}).
		Select("owner_id, count(*) as items").
		Where("availability = ? and updated_at < ?", stylist.AvailabilityLaundry, cutoff).
		Group("owner_id").
		Scan(&rows).Error
	if err != nil {
		sentry.CaptureException(fmt.Errorf("[Laundry] error fetching owners: %w", err))
		return err
	}
	log.Info().Int("users", len(rows)).Msg("laundry reminders")
	for _, row := range rows {
		msg := fmt.Sprintf("%d items are still in the laundry. Mark them clean to get them back in your outfits.", row.Items)
		if row.Items == 1 {
			msg = "One item is still in the laundry. Mark it clean to get it back in your outfits."
		}
		if err := services.SendNotification(ctx, fbApp, db, row.OwnerID, "Laundry day?", msg, map[string]string{"type": "laundry_reminder"}); err != nil {
			log.Warn().Err(err).Uint("user", row.OwnerID).Msg("laundry reminder failed")
			sentry.CaptureException(err)
		}
	}
	return nil
}
