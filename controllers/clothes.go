package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"stylistapi/models"
	"stylistapi/services"
	"stylistapi/stylist"
	"stylistapi/tasks"

	firebase "firebase.google.com/go/v4"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// maxWardrobeSize caps the garments one user can own.
const maxWardrobeSize = 500

var allowedImageExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".heic": true, ".webp": true}

// ClothingMetadataIn carries the user-editable garment metadata. Everything
// is optional; the analysis task fills what is missing.
type ClothingMetadataIn struct {
	Subtype          *string            `json:"subtype" validate:"omitempty,max=60"`
	Fabric           *string            `json:"fabric" validate:"omitempty,max=60"`
	Pattern          *string            `json:"pattern" validate:"omitempty,pattern"`
	WeightClass      *int               `json:"weight_class" validate:"omitempty,gte=1,lte=3"`
	Fit              *string            `json:"fit" validate:"omitempty,fit"`
	Colors           []string           `json:"colors" validate:"omitempty,max=5,dive,hexcolor"`
	FormalityMin     *float64           `json:"formality_min" validate:"omitempty,gte=0,lte=10"`
	FormalityMax     *float64           `json:"formality_max" validate:"omitempty,gte=0,lte=10"`
	SeasonScores     map[string]float64 `json:"season_scores" validate:"omitempty,dive,keys,oneof=summer winter monsoon transitional,endkeys,gte=0,lte=1"`
	Versatility      *float64           `json:"versatility" validate:"omitempty,gte=0,lte=1"`
	StyleTags        []string           `json:"style_tags" validate:"omitempty,max=20,dive,max=40"`
	BodyTypes        []string           `json:"body_types" validate:"omitempty,max=5,dive,oneof=pear apple hourglass rectangle inverted_triangle"`
	NoLayerUnder     *bool              `json:"no_layer_under"`
	RequiresLayering *bool              `json:"requires_layering"`
}

type CreateClothingIn struct {
	ClothingMetadataIn
	Name         string  `json:"name" validate:"omitempty,max=100"`
	FileName     string  `json:"file_name" validate:"required,max=200"`
	Description  *string `json:"description" validate:"omitempty,max=500"`
	ClothingType string  `json:"clothing_type" validate:"required,clothing_type"`
	Analyze      *bool   `json:"analyze"`
}

type UpdateClothingIn struct {
	ClothingMetadataIn
	Name               *string `json:"name" validate:"omitempty,max=100"`
	Description        *string `json:"description" validate:"omitempty,max=500"`
	ClothingType       *string `json:"clothing_type" validate:"omitempty,clothing_type"`
	AlertWhenProcessed *bool   `json:"alert_when_processed"`
}

type ClothingStatusIn struct {
	Availability string `json:"availability" validate:"required,availability"`
}

type ClothingResponse struct {
	models.Clothing
	Uri *string `json:"uri,omitempty"`
}

type ClothingCreatedResponse struct {
	ClothingResponse ClothingResponse `json:"clothes"`
	FileUploadUrl    string           `json:"file_upload_url"`
}

// AnalysisTaskOut is the queue state of a garment's analysis task.
type AnalysisTaskOut struct {
	State         string     `json:"state"`
	Retried       int        `json:"retried"`
	LastErr       string     `json:"last_error,omitempty"`
	NextProcessAt *time.Time `json:"next_process_at,omitempty"`
}

type ClothingDetailResponse struct {
	ClothingResponse
	AnalysisTask *AnalysisTaskOut `json:"analysis_task,omitempty"`
}

type ClothesListResponse struct {
	Tops        []ClothingResponse `json:"tops"`
	Bottoms     []ClothingResponse `json:"bottoms"`
	Layers      []ClothingResponse `json:"layers"`
	OnePieces   []ClothingResponse `json:"one_pieces"`
	Shoes       []ClothingResponse `json:"shoes"`
	Accessories []ClothingResponse `json:"accessories"`
}

type ClothesController struct {
	AWSService  services.AWSServiceProvider
	FirebaseApp *firebase.App
	URLCache    services.URLCacheServiceProvider
}

func (controller *ClothesController) ClothingRoutes(g *echo.Group) {
	g.POST("/create", controller.CreateClothing)
	g.GET("/list", controller.ListClothes)
	g.GET("/:id", controller.GetClothing)
	g.PUT("/:id", controller.UpdateClothing)
	g.PUT("/:id/status", controller.UpdateStatus)
	g.POST("/:id/worn", controller.MarkWorn)
	g.POST("/:id/analyze", controller.Reanalyze)
}

// applyMetadata copies the provided fields onto the row.
func applyMetadata(clothing *models.Clothing, in ClothingMetadataIn) error {
	if in.Subtype != nil {
		clothing.Subtype = *in.Subtype
	}
	if in.Fabric != nil {
		clothing.Fabric = *in.Fabric
	}
	if in.Pattern != nil {
		clothing.Pattern = *in.Pattern
	}
	if in.WeightClass != nil {
		clothing.WeightClass = *in.WeightClass
	}
	if in.Fit != nil {
		clothing.Fit = *in.Fit
	}
	if len(in.Colors) > 0 {
		colors := make([]stylist.Color, 0, len(in.Colors))
		for _, hex := range in.Colors {
			col, err := services.ColorFromHex(hex)
			if err != nil {
				return err
			}
			colors = append(colors, col)
		}
		clothing.Colors = colors
	}
	if in.FormalityMin != nil {
		clothing.FormalityMin = in.FormalityMin
	}
	if in.FormalityMax != nil {
		clothing.FormalityMax = in.FormalityMax
	}
	if clothing.FormalityMin != nil && clothing.FormalityMax != nil && *clothing.FormalityMin > *clothing.FormalityMax {
		return errors.New("formality_min is above formality_max")
	}
	if in.SeasonScores != nil {
		clothing.SeasonScores = in.SeasonScores
	}
	if in.Versatility != nil {
		clothing.Versatility = in.Versatility
	}
	if in.StyleTags != nil {
		clothing.StyleTags = in.StyleTags
	}
	if in.BodyTypes != nil {
		clothing.BodyTypes = in.BodyTypes
	}
	if in.NoLayerUnder != nil {
		clothing.NoLayerUnder = *in.NoLayerUnder
	}
	if in.RequiresLayering != nil {
		clothing.RequiresLayering = *in.RequiresLayering
	}
	return nil
}

func (controller *ClothesController) enqueueAnalysis(c echo.Context, clothing models.Clothing) error {
	asynqClient, ok := c.Get("__asynqclient").(TaskEnqueuer)
	if !ok || asynqClient == nil {
		return errors.New("task queue is not configured")
	}
	task, err := tasks.NewClothingAnalysisTask(clothing.ID)
	if err != nil {
		return err
	}
	info, err := asynqClient.Enqueue(task,
		asynq.MaxRetry(3),
		asynq.Queue(tasks.QueueGenerate),
		asynq.TaskID(tasks.ClothingAnalysisTaskID(clothing.ID)),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		log.Info().Uint("clothing", clothing.ID).Msg("analysis already queued")
		return nil
	}
	if err != nil {
		return err
	}
	log.Info().Uint("clothing", clothing.ID).Str("task", info.ID).Msg("[Queue] clothing analysis task submitted")
	return nil
}

func (controller *ClothesController) CreateClothing(c echo.Context) error {
	var req CreateClothingIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	user, ok := c.Get("currentUser").(models.UserAccount)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	db, ok := c.Get("__db").(*gorm.DB)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Database connection error"})
	}

	ext := strings.ToLower(filepath.Ext(req.FileName))
	if !allowedImageExt[ext] {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Please upload a jpg, png, heic or webp photo"})
	}
	var owned int64
	if err := db.Model(&models.Clothing{}).Where("owner_id = ? and availability <> ?", user.ID, stylist.AvailabilityDonated).Count(&owned).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to get clothes data"})
	}
	if owned >= maxWardrobeSize {
		return c.JSON(http.StatusForbidden, map[string]string{"error": fmt.Sprintf("Your closet is full, the limit is %d items", maxWardrobeSize)})
	}

	analyze := req.Analyze == nil || *req.Analyze
	clothing := models.Clothing{
		Name:               req.Name,
		Description:        req.Description,
		ClothingType:       req.ClothingType,
		OwnerID:            user.ID,
		Availability:       string(stylist.AvailabilityActive),
		ImageStatus:        "draft",
		ProcessingStatus:   "idle",
		AlertWhenProcessed: analyze,
	}
	if err := applyMetadata(&clothing, req.ClothingMetadataIn); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if analyze {
		clothing.ProcessingStatus = "pending"
	}

	bucketName := services.GetEnv("R2_BUCKET_NAME", "")
	objectKey := fmt.Sprintf("clothes/%d/%s%s", user.ID, uuid.NewString(), ext)
	uploadUrl, err := controller.AWSService.PresignLink(c.Request().Context(), bucketName, objectKey)
	if err != nil {
		log.Error().Err(err).Uint("user", user.ID).Msg("unable to presign clothing upload")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Error while creating clothes with attachment"})
	}
	clothing.ImageURL = &objectKey
	clothing.ImageStatus = "uploaded"

	if err := db.Create(&clothing).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save clothes, please try again"})
	}
	if analyze {
		if err := controller.enqueueAnalysis(c, clothing); err != nil {
			sentry.CaptureException(fmt.Errorf("[Clothing: %v] enqueue analysis: %w", clothing.ID, err))
			db.Model(&clothing).Update("processing_status", "idle")
			clothing.ProcessingStatus = "idle"
		}
	}

	return c.JSON(http.StatusCreated, ClothingCreatedResponse{
		ClothingResponse: ClothingResponse{Clothing: clothing},
		FileUploadUrl:    uploadUrl,
	})
}

// readURL resolves an object key through the URL cache, falling back to a
// direct presign when the cache itself fails.
func (controller *ClothesController) readURL(ctx context.Context, objectKey string) string {
	url, err := controller.URLCache.GetReadURL(ctx, objectKey)
	if err == nil {
		return url
	}
	log.Warn().Err(err).Str("key", objectKey).Msg("url cache failed, presigning directly")
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("failure_type", "cache_system")
		scope.SetExtra("objectKey", objectKey)
		sentry.CaptureException(err)
	})
	url, err = controller.AWSService.GetPresignedR2FileReadURL(ctx, services.GetEnv("R2_BUCKET_NAME", ""), objectKey)
	if err != nil {
		log.Error().Err(err).Str("key", objectKey).Msg("direct presign failed too")
		sentry.CaptureException(err)
		return ""
	}
	return url
}

// withImageURLs maps rows to responses, resolving image URLs concurrently.
func (controller *ClothesController) withImageURLs(ctx context.Context, clothes []models.Clothing) []ClothingResponse {
	out := make([]ClothingResponse, len(clothes))
	var wg sync.WaitGroup
	for i, item := range clothes {
		out[i] = ClothingResponse{Clothing: item}
		if item.ImageURL == nil || *item.ImageURL == "" {
			continue
		}
		wg.Add(1)
		go func(index int, key string) {
			defer wg.Done()
			if url := controller.readURL(ctx, key); url != "" {
				out[index].Uri = &url
			}
		}(i, *item.ImageURL)
	}
	wg.Wait()
	return out
}

func (controller *ClothesController) ListClothes(c echo.Context) error {
	user, ok := c.Get("currentUser").(models.UserAccount)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	db := c.Get("__db").(*gorm.DB)

	query := db.Where("owner_id = ?", user.ID)
	if availability := c.QueryParam("availability"); availability != "" {
		if !stylist.Availability(availability).Valid() {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Unknown availability"})
		}
		query = query.Where("availability = ?", availability)
	} else {
		query = query.Where("availability <> ?", stylist.AvailabilityDonated)
	}
	var clothes []models.Clothing
	if err := query.Order("created_at desc").Find(&clothes).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch clothes"})
	}

	response := ClothesListResponse{
		Tops:        []ClothingResponse{},
		Bottoms:     []ClothingResponse{},
		Layers:      []ClothingResponse{},
		OnePieces:   []ClothingResponse{},
		Shoes:       []ClothingResponse{},
		Accessories: []ClothingResponse{},
	}
	for _, resp := range controller.withImageURLs(c.Request().Context(), clothes) {
		switch stylist.Slot(resp.ClothingType) {
		case stylist.SlotTop:
			response.Tops = append(response.Tops, resp)
		case stylist.SlotBottom:
			response.Bottoms = append(response.Bottoms, resp)
		case stylist.SlotLayer:
			response.Layers = append(response.Layers, resp)
		case stylist.SlotOnePiece:
			response.OnePieces = append(response.OnePieces, resp)
		case stylist.SlotShoes:
			response.Shoes = append(response.Shoes, resp)
		case stylist.SlotAccessory:
			response.Accessories = append(response.Accessories, resp)
		}
	}
	return c.JSON(http.StatusOK, response)
}

// ownedClothing loads one of the current user's garments or answers 404.
func ownedClothing(c echo.Context) (*models.Clothing, error) {
	id, err := pathID(c, "id")
	if err != nil {
		return nil, err
	}
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)
	var clothing models.Clothing
	r := db.Where("id = ? and owner_id = ?", id, user.ID).Limit(1).Find(&clothing)
	if r.Error != nil {
		return nil, echo.ErrInternalServerError
	}
	if r.RowsAffected == 0 {
		return nil, echo.NewHTTPError(http.StatusNotFound, "Clothes not found")
	}
	return &clothing, nil
}

func (controller *ClothesController) GetClothing(c echo.Context) error {
	clothing, err := ownedClothing(c)
	if err != nil {
		return err
	}
	resp := ClothingDetailResponse{
		ClothingResponse: controller.withImageURLs(c.Request().Context(), []models.Clothing{*clothing})[0],
	}
	if clothing.ProcessingStatus == "pending" {
		if inspector, ok := c.Get("__asynqinspector").(TaskInspector); ok && inspector != nil {
			info, err := inspector.GetTaskInfo(tasks.QueueGenerate, tasks.ClothingAnalysisTaskID(clothing.ID))
			switch {
			case err == nil:
				resp.AnalysisTask = &AnalysisTaskOut{State: info.State.String(), Retried: info.Retried, LastErr: info.LastErr}
				if !info.NextProcessAt.IsZero() {
					resp.AnalysisTask.NextProcessAt = &info.NextProcessAt
				}
			case errors.Is(err, asynq.ErrTaskNotFound), errors.Is(err, asynq.ErrQueueNotFound):
			default:
				log.Warn().Err(err).Uint("clothing", clothing.ID).Msg("failed to inspect analysis task")
			}
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (controller *ClothesController) UpdateClothing(c echo.Context) error {
	var req UpdateClothingIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	clothing, err := ownedClothing(c)
	if err != nil {
		return err
	}
	if req.Name != nil {
		clothing.Name = *req.Name
	}
	if req.Description != nil {
		clothing.Description = req.Description
	}
	if req.ClothingType != nil {
		clothing.ClothingType = *req.ClothingType
	}
	if req.AlertWhenProcessed != nil {
		clothing.AlertWhenProcessed = *req.AlertWhenProcessed
	}
	if err := applyMetadata(clothing, req.ClothingMetadataIn); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	// a manual edit completes a garment the analysis could not
	if clothing.ProcessingStatus == "failed" {
		if _, err := services.ClothingToGarment(*clothing); err == nil {
			clothing.ProcessingStatus = "completed"
			clothing.ProcessErrorMessage = nil
		}
	}
	db := c.Get("__db").(*gorm.DB)
	if err := db.Save(clothing).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update clothes"})
	}
	return c.JSON(http.StatusOK, ClothingResponse{Clothing: *clothing})
}

func (controller *ClothesController) UpdateStatus(c echo.Context) error {
	var req ClothingStatusIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	clothing, err := ownedClothing(c)
	if err != nil {
		return err
	}
	db := c.Get("__db").(*gorm.DB)
	if err := db.Model(clothing).Update("availability", req.Availability).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update clothes"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"id": clothing.ID, "availability": req.Availability})
}

func (controller *ClothesController) MarkWorn(c echo.Context) error {
	clothing, err := ownedClothing(c)
	if err != nil {
		return err
	}
	now := time.Now()
	db := c.Get("__db").(*gorm.DB)
	err = db.Model(clothing).Updates(map[string]interface{}{
		"wear_count":   gorm.Expr("wear_count + 1"),
		"last_worn_at": now,
	}).Error
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update clothes"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"id":           clothing.ID,
		"wear_count":   clothing.WearCount + 1,
		"last_worn_at": now,
	})
}

// Reanalyze queues a fresh analysis, dropping an archived earlier attempt
// that would otherwise hold the task id.
func (controller *ClothesController) Reanalyze(c echo.Context) error {
	clothing, err := ownedClothing(c)
	if err != nil {
		return err
	}
	if clothing.ProcessingStatus == "pending" {
		return c.JSON(http.StatusConflict, map[string]string{"error": "The analysis is already running"})
	}
	if clothing.ImageURL == nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Please upload a photo of the garment first"})
	}
	if inspector, ok := c.Get("__asynqinspector").(TaskInspector); ok && inspector != nil {
		err := inspector.DeleteTask(tasks.QueueGenerate, tasks.ClothingAnalysisTaskID(clothing.ID))
		if err != nil && !errors.Is(err, asynq.ErrTaskNotFound) && !errors.Is(err, asynq.ErrQueueNotFound) {
			log.Warn().Err(err).Uint("clothing", clothing.ID).Msg("failed to drop old analysis task")
		}
	}

	db := c.Get("__db").(*gorm.DB)
	clothing.ProcessingStatus = "pending"
	clothing.ProcessRetryTimes = 0
	clothing.ProcessErrorMessage = nil
	if err := db.Save(clothing).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update clothes"})
	}
	if err := controller.enqueueAnalysis(c, *clothing); err != nil {
		sentry.CaptureException(fmt.Errorf("[Clothing: %v] enqueue analysis: %w", clothing.ID, err))
		db.Model(clothing).Update("processing_status", "failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Sorry, could not process clothes, please try again"})
	}
	return c.JSON(http.StatusAccepted, ClothingResponse{Clothing: *clothing})
}
