package controllers

import (
	"errors"
	"net/http"

	"stylistapi/models"
	"stylistapi/services"
	"stylistapi/stylist"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileController struct {
}

func (controller *ProfileController) ProfileRoutes(g *echo.Group) {
	g.GET("/me", controller.Me)
	g.POST("/settings", controller.Settings)
	g.GET("/style", controller.GetStyle)
	g.PUT("/style", controller.UpdateStyle)
}

func (controller *ProfileController) Me(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	var clothesCount int64
	if err := db.Model(&models.Clothing{}).Where("owner_id = ? and availability <> ?", user.ID, stylist.AvailabilityDonated).Count(&clothesCount).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Something happened"})
	}
	sp, err := services.LoadStyleProfile(db, user.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Something happened"})
	}
	return c.JSON(http.StatusOK, models.UserInfoOut{
		Id:                   user.ID,
		Name:                 user.Name,
		Email:                user.Email,
		AvatarURL:            user.AvatarURL,
		HomeCity:             user.HomeCity,
		ReceiveNotifications: user.ReceiveNotifications,
		ClothesCount:         clothesCount,
		StyleProfile:         sp,
	})
}

func (controller *ProfileController) Settings(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)
	settingsIn := new(models.UserSettingsIn)
	if err := c.Bind(settingsIn); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(settingsIn); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	updates := map[string]interface{}{}
	if settingsIn.ReceiveNotifications != nil {
		updates["receive_notifications"] = *settingsIn.ReceiveNotifications
	}
	if settingsIn.HomeCity != nil {
		updates["home_city"] = *settingsIn.HomeCity
	}
	if len(updates) > 0 {
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			sentry.CaptureException(err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save settings"})
		}
	}
	return c.JSON(http.StatusOK, settingsIn)
}

// GetStyle answers with the saved profile, or the neutral one a user
// without a profile is recommended with.
func (controller *ProfileController) GetStyle(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)
	sp, err := services.LoadStyleProfile(db, user.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Something happened"})
	}
	if sp == nil {
		sp = &models.StyleProfile{UserAccountID: user.ID, Weights: stylist.DefaultWeights()}
	}
	return c.JSON(http.StatusOK, sp)
}

// UpdateStyle edits the user-declared part of the profile. Learned weights
// are left to the feedback task.
func (controller *ProfileController) UpdateStyle(c echo.Context) error {
	req := new(models.StyleProfileIn)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	for _, id := range append(append([]int64{}, req.BestColors...), req.AvoidColors...) {
		if services.SwatchByID(int(id)) == nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Unknown palette colour"})
		}
	}
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	var sp models.StyleProfile
	err := db.Transaction(func(tx *gorm.DB) error {
		r := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_account_id = ?", user.ID).Limit(1).Find(&sp)
		if r.Error != nil {
			return r.Error
		}
		if r.RowsAffected == 0 {
			sp = models.StyleProfile{UserAccountID: user.ID, Weights: stylist.DefaultWeights()}
		}
		if req.BodyType != nil {
			sp.BodyType = *req.BodyType
		}
		if req.Undertone != nil {
			sp.Undertone = *req.Undertone
		}
		if req.Contrast != nil {
			sp.Contrast = *req.Contrast
		}
		if req.ModestyLevel != nil {
			sp.ModestyLevel = *req.ModestyLevel
		}
		if req.BestColors != nil {
			sp.BestColors = req.BestColors
		}
		if req.AvoidColors != nil {
			sp.AvoidColors = req.AvoidColors
		}
		if req.StyleTags != nil {
			sp.StyleTags = req.StyleTags
		}
		if err := stylist.ValidateProfile(services.ProfileFromModel(user.ID, &sp)); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return tx.Save(&sp).Error
	})
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return c.JSON(he.Code, map[string]interface{}{"error": he.Message})
	}
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save your style profile"})
	}
	log.Info().Uint("user", user.ID).Msg("style profile updated")
	return c.JSON(http.StatusOK, sp)
}

// ListPalette lists the colour dictionary palette ids refer to.
func (controller *ProfileController) ListPalette(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"palette": services.Palette})
}
