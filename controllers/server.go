package controllers

import (
	"context"
	"net/http"
	"os"

	"stylistapi/metrics"
	"stylistapi/models"
	"stylistapi/services"

	firebase "firebase.google.com/go/v4"
	"github.com/go-playground/validator"
	"github.com/hibiken/asynq"
	echojwt "github.com/labstack/echo-jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// TaskEnqueuer is the part of *asynq.Client the handlers use.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TaskInspector is the part of *asynq.Inspector the handlers use.
type TaskInspector interface {
	GetTaskInfo(queue, id string) (*asynq.TaskInfo, error)
	DeleteTask(queue, id string) error
}

func SetupServer(
	db *gorm.DB,
	googleService services.GoogleServiceProvider,
	awsService services.AWSServiceProvider,
	firebaseApp *firebase.App,
	asynqClient TaskEnqueuer,
	asynqInspector TaskInspector,
	urlCache services.URLCacheServiceProvider,
	recommendations *services.RecommendationService,
) *echo.Echo {
	if err := awsService.InitPresignClient(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize object storage client")
	}

	e := echo.New()
	e.HideBanner = true
	v := validator.New()
	models.RegisterValidations(v)
	e.Validator = &CustomValidator{validator: v}
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("__db", db)
			c.Set("__asynqclient", asynqClient)
			c.Set("__asynqinspector", asynqInspector)
			return next(c)
		}
	})

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	e.GET("/metrics", metrics.Handler())

	authGroup := e.Group("/auth")
	authController := AuthController{Google: googleService, FirebaseApp: firebaseApp}
	authController.AuthRoutes(authGroup)

	shopGroup := e.Group("/shop", echojwt.JWT([]byte(os.Getenv("JWT_SECRET"))))
	shopGroup.Use(UserMiddleware)

	profileController := ProfileController{}
	profileController.ProfileRoutes(shopGroup.Group("/profile"))
	shopGroup.GET("/palette", profileController.ListPalette)

	clothesController := ClothesController{AWSService: awsService, FirebaseApp: firebaseApp, URLCache: urlCache}
	clothesController.ClothingRoutes(shopGroup.Group("/clothes"))

	outfitsController := OutfitsController{Recommendations: recommendations, Images: &clothesController}
	outfitsController.OutfitRoutes(shopGroup.Group("/outfits"))

	return e
}
