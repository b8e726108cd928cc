package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"stylistapi/metrics"
	"stylistapi/models"
	"stylistapi/services"
	"stylistapi/stylist"
	"stylistapi/tasks"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type WeatherIn struct {
	Temperature     float64 `json:"temperature" validate:"gte=-60,lte=60"`
	Condition       string  `json:"condition" validate:"omitempty,max=60"`
	RainProbability float64 `json:"rain_probability" validate:"gte=0,lte=1"`
	Indoor          bool    `json:"indoor"`
}

type RecommendIn struct {
	Event      string     `json:"event" validate:"max=300"`
	Weather    *WeatherIn `json:"weather"`
	Time       *time.Time `json:"time"`
	Location   string     `json:"location" validate:"omitempty,max=100"`
	GenderHint string     `json:"gender_hint" validate:"omitempty,max=30"`
	Limit      int        `json:"limit" validate:"omitempty,gte=1,lte=20"`
}

type RecommendOut struct {
	stylist.Result
	Clothes map[string]ClothingResponse `json:"clothes"`
}

type FeedbackIn struct {
	RecommendationID string           `json:"recommendation_id" validate:"omitempty,max=64"`
	Signal           string           `json:"signal" validate:"required,signal"`
	ClothingIDs      []uint           `json:"clothing_ids" validate:"required,min=1,max=8,dive,gte=1"`
	Context          *stylist.Context `json:"context"`
}

type SaveOutfitIn struct {
	RecommendationID string  `json:"recommendation_id" validate:"omitempty,max=64"`
	Name             string  `json:"name" validate:"omitempty,max=100"`
	Event            string  `json:"event" validate:"omitempty,max=300"`
	Formula          string  `json:"formula" validate:"omitempty,oneof=top_bottom_shoes top_bottom_layer_shoes one_piece_shoes one_piece_layer_shoes"`
	Score            float64 `json:"score" validate:"gte=0"`
	Explanation      string  `json:"explanation" validate:"omitempty,max=1000"`
	ClothingIDs      []uint  `json:"clothing_ids" validate:"required,min=1,max=8,dive,gte=1"`
}

type SavedOutfitsOut struct {
	Outfits []models.SavedOutfit        `json:"outfits"`
	Clothes map[string]ClothingResponse `json:"clothes"`
}

type OutfitsController struct {
	Recommendations *services.RecommendationService
	Images          *ClothesController
}

func (controller *OutfitsController) OutfitRoutes(g *echo.Group) {
	g.POST("/recommend", controller.Recommend)
	g.POST("/feedback", controller.Feedback)
	g.POST("/save", controller.Save)
	g.GET("/saved", controller.ListSaved)
	g.DELETE("/saved/:id", controller.DeleteSaved)
}

func (controller *OutfitsController) Recommend(c echo.Context) error {
	var req RecommendIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	event := stylist.EventInput{
		Event:      req.Event,
		Location:   req.Location,
		GenderHint: req.GenderHint,
	}
	if req.Time != nil {
		event.Time = *req.Time
	}
	if req.Weather != nil {
		event.Weather = &stylist.Weather{
			Temperature:     req.Weather.Temperature,
			Condition:       req.Weather.Condition,
			RainProbability: req.Weather.RainProbability,
			Indoor:          req.Weather.Indoor,
		}
	}

	rec, err := controller.Recommendations.Recommend(c.Request().Context(), db, user, event, req.Limit)
	if err != nil {
		sentry.CaptureException(fmt.Errorf("[User: %v] recommend: %w", user.ID, err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Could not build outfits, please try again"})
	}

	clothes := make([]models.Clothing, 0, len(rec.Clothes))
	for _, item := range rec.Clothes {
		clothes = append(clothes, item)
	}
	out := RecommendOut{Result: rec.Result, Clothes: controller.clothesByID(c, clothes)}
	log.Info().
		Uint("user", user.ID).
		Str("recommendation", rec.ID).
		Str("tier", string(rec.Tier)).
		Int("outfits", len(rec.Outfits)).
		Msg("outfits recommended")
	return c.JSON(http.StatusOK, out)
}

func (controller *OutfitsController) clothesByID(c echo.Context, clothes []models.Clothing) map[string]ClothingResponse {
	out := make(map[string]ClothingResponse, len(clothes))
	for _, resp := range controller.Images.withImageURLs(c.Request().Context(), clothes) {
		out[services.GarmentID(resp.ID)] = resp
	}
	return out
}

// checkOwnership reports whether every id names one of the user's garments.
func checkOwnership(db *gorm.DB, userID uint, ids []uint) (bool, error) {
	unique := slices.Clone(ids)
	slices.Sort(unique)
	unique = slices.Compact(unique)
	var owned int64
	if err := db.Model(&models.Clothing{}).Where("owner_id = ? and id in ?", userID, unique).Count(&owned).Error; err != nil {
		return false, err
	}
	return int(owned) == len(unique), nil
}

func toInt64s(ids []uint) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

// recordFeedback stores an interaction and queues it for the learner.
func recordFeedback(c echo.Context, db *gorm.DB, feedback *models.OutfitFeedback) error {
	if err := db.Create(feedback).Error; err != nil {
		return err
	}
	metrics.FeedbackTotal.WithLabelValues(feedback.Signal, "received").Inc()

	asynqClient, ok := c.Get("__asynqclient").(TaskEnqueuer)
	if !ok || asynqClient == nil {
		return errors.New("task queue is not configured")
	}
	task, err := tasks.NewStyleFeedbackTask(feedback.ID)
	if err != nil {
		return err
	}
	info, err := asynqClient.Enqueue(task,
		asynq.MaxRetry(3),
		asynq.Queue(tasks.QueueStyle),
		asynq.TaskID(tasks.FeedbackTaskID(feedback.ID)),
	)
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return err
	}
	if info != nil {
		log.Debug().Uint("feedback", feedback.ID).Str("task", info.ID).Msg("[Queue] feedback task submitted")
	}
	return nil
}

func (controller *OutfitsController) Feedback(c echo.Context) error {
	var req FeedbackIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	owned, err := checkOwnership(db, user.ID, req.ClothingIDs)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch clothes"})
	}
	if !owned {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Some clothes were not found"})
	}

	feedback := models.OutfitFeedback{
		UserAccountID:    user.ID,
		RecommendationID: req.RecommendationID,
		Signal:           req.Signal,
		ClothingIDs:      toInt64s(req.ClothingIDs),
		Context:          req.Context,
	}
	if err := recordFeedback(c, db, &feedback); err != nil {
		sentry.CaptureException(fmt.Errorf("[User: %v] record feedback: %w", user.ID, err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Could not record feedback, please try again"})
	}
	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"feedback_id": feedback.ID,
		"status":      "queued",
	})
}

func (controller *OutfitsController) Save(c echo.Context) error {
	var req SaveOutfitIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	owned, err := checkOwnership(db, user.ID, req.ClothingIDs)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch clothes"})
	}
	if !owned {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Some clothes were not found"})
	}

	saved := models.SavedOutfit{
		UserAccountID:    user.ID,
		RecommendationID: req.RecommendationID,
		Name:             req.Name,
		Event:            req.Event,
		Formula:          req.Formula,
		Score:            req.Score,
		Explanation:      req.Explanation,
		ClothingIDs:      toInt64s(req.ClothingIDs),
	}
	if err := db.Create(&saved).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Could not save the outfit, please try again"})
	}
	// saving teaches the learner too, but the outfit is kept either way
	feedback := models.OutfitFeedback{
		UserAccountID:    user.ID,
		RecommendationID: req.RecommendationID,
		Signal:           string(stylist.SignalSaved),
		ClothingIDs:      saved.ClothingIDs,
	}
	if err := recordFeedback(c, db, &feedback); err != nil {
		log.Warn().Err(err).Uint("user", user.ID).Msg("saved outfit without feedback")
	}
	return c.JSON(http.StatusCreated, saved)
}

func (controller *OutfitsController) ListSaved(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	outfits := []models.SavedOutfit{}
	if err := db.Where("user_account_id = ?", user.ID).Order("created_at desc").Find(&outfits).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch outfits"})
	}
	var ids []int64
	for _, o := range outfits {
		ids = append(ids, o.ClothingIDs...)
	}
	var clothes []models.Clothing
	if len(ids) > 0 {
		if err := db.Where("owner_id = ? and id in ?", user.ID, ids).Find(&clothes).Error; err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch clothes"})
		}
	}
	return c.JSON(http.StatusOK, SavedOutfitsOut{Outfits: outfits, Clothes: controller.clothesByID(c, clothes)})
}

func (controller *OutfitsController) DeleteSaved(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	var saved models.SavedOutfit
	r := db.Where("id = ? and user_account_id = ?", id, user.ID).Limit(1).Find(&saved)
	if r.Error != nil {
		return echo.ErrInternalServerError
	}
	if r.RowsAffected == 0 {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Outfit not found"})
	}
	if err := db.Delete(&saved).Error; err != nil {
		sentry.CaptureException(err)
		return echo.ErrInternalServerError
	}
	feedback := models.OutfitFeedback{
		UserAccountID:    user.ID,
		RecommendationID: saved.RecommendationID,
		Signal:           string(stylist.SignalDeleted),
		ClothingIDs:      saved.ClothingIDs,
	}
	if err := recordFeedback(c, db, &feedback); err != nil {
		log.Warn().Err(err).Uint("user", user.ID).Msg("deleted outfit without feedback")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"deleted": true})
}
