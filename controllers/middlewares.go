package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"stylistapi/models"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

func tokenUserID(c echo.Context) (uint, bool) {
	userRaw := c.Get("user")
	if userRaw == nil {
		return 0, false
	}
	token, ok := userRaw.(*jwt.Token)
	if !ok {
		return 0, false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, false
	}
	if typ, _ := claims["typ"].(string); typ == "refresh" {
		return 0, false
	}
	sub, _ := claims["sub"].(string)
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// UserMiddleware loads the token's user into "currentUser". Banned and
// deleted accounts are locked out.
func UserMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		db := c.Get("__db").(*gorm.DB)
		userID, ok := tokenUserID(c)
		if !ok {
			log.Warn().Msg("token without a usable subject")
			return echo.ErrUnauthorized
		}

		var currentUser models.UserAccount
		result := db.Where("id = ?", userID).Take(&currentUser)
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return echo.ErrUnauthorized
		}
		if result.Error != nil {
			log.Error().Err(result.Error).Uint("user", userID).Msg("failed to load user")
			return echo.ErrInternalServerError
		}
		if currentUser.Banned || currentUser.ConfirmedDeleteDate != nil {
			return echo.NewHTTPError(http.StatusLocked)
		}
		c.Set("currentUser", currentUser)
		return next(c)
	}
}
