package controllers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"stylistapi/models"
	"stylistapi/services"

	firebase "firebase.google.com/go/v4"
	apple "github.com/Timothylock/go-signin-with-apple/apple"
	"github.com/getsentry/sentry-go"
	echojwt "github.com/labstack/echo-jwt"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const defaultAvatarURL = "https://pub-df730af6a36c46a58d6d948f149dae31.r2.dev/user-circle.png"

type AuthController struct {
	Google      services.GoogleServiceProvider
	FirebaseApp *firebase.App
}

func (m *AuthController) AuthRoutes(g *echo.Group) {
	g.POST("/google", m.GoogleSignIn)
	g.POST("/apple", m.AppleSignIn)
	g.POST("/refresh-token", m.RefreshToken)

	authorized := echojwt.JWT([]byte(os.Getenv("JWT_SECRET")))
	g.POST("/register-push", m.RegisterPush, authorized, UserMiddleware)
	g.POST("/delete-push", m.DeletePush, authorized, UserMiddleware)
	g.POST("/delete-account", m.DeleteAccount, authorized, UserMiddleware)
}

func signInResponse(user *models.UserAccount, isNew bool) (models.SignInOut, error) {
	refreshToken, err := GenerateRefreshToken(UIntToStr(user.ID))
	if err != nil {
		return models.SignInOut{}, err
	}
	return models.SignInOut{
		Id:           user.ID,
		Email:        user.Email,
		Name:         user.Name,
		New:          isNew,
		Avatar:       user.AvatarURL,
		AccessToken:  GenerateUserToken(UIntToStr(user.ID)),
		RefreshToken: refreshToken,
	}, nil
}

func (m *AuthController) GoogleSignIn(c echo.Context) error {
	creds := new(models.GoogleAuthSignIn)
	if err := c.Bind(creds); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(creds); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	payload, err := m.Google.ValidateIdToken(c.Request().Context(), creds.IdToken, os.Getenv("GOOGLE_CLIENT_ID"))
	if err != nil {
		log.Warn().Err(err).Msg("google token validation failed")
		return c.JSON(http.StatusForbidden, map[string]string{"error": "Couldn't verify credentials"})
	}
	googleID, _ := payload.Claims["sub"].(string)
	email, _ := payload.Claims["email"].(string)
	if googleID == "" || email == "" {
		sentry.CaptureMessage(fmt.Sprintf("google token without sub or email: %v", payload.Claims))
		return c.JSON(http.StatusForbidden, map[string]string{"error": "Couldn't verify credentials"})
	}
	picture, _ := payload.Claims["picture"].(string)
	name, _ := payload.Claims["name"].(string)

	db := c.Get("__db").(*gorm.DB)
	var user models.UserAccount
	r := db.Where("google_id = ?", googleID).Limit(1).Find(&user)
	if r.Error != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	isNew := false
	if r.RowsAffected == 0 {
		r = db.Where("email = ?", email).Limit(1).Find(&user)
		if r.Error != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		}
		if r.RowsAffected == 0 {
			isNew = true
			user = models.UserAccount{Email: email, Status: "FINISHED_AUTH", ReceiveNotifications: true}
		}
	}
	if user.Banned {
		return echo.ErrForbidden
	}
	user.GoogleID = googleID
	if name != "" {
		user.Name = name
	}
	if picture != "" {
		user.AvatarURL = picture
	}
	user.LastIp = c.RealIP()
	user.Platform = models.ScanPlatform(creds.Platform)
	user.ConfirmedDeleteDate = nil
	if err := db.Save(&user).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	out, err := signInResponse(&user, isNew)
	if err != nil {
		log.Error().Err(err).Uint("user", user.ID).Msg("failed to sign refresh token")
		return echo.ErrInternalServerError
	}
	log.Info().Uint("user", user.ID).Bool("new", isNew).Msg("google sign in")
	return c.JSON(http.StatusOK, out)
}

func (m *AuthController) AppleSignIn(c echo.Context) error {
	var req models.AppleAuthRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	teamID := services.GetEnv("APPLE_TEAM_ID", "")
	keyID := services.GetEnv("APPLE_KEY_ID", "")
	clientID := services.GetEnv("APPLE_CLIENT_ID", "")
	privateKey, err := services.DecodeBase64EnvPrivateKey("APPLE_SIGNIN_PKEY_BASE64")
	if err != nil {
		log.Error().Err(err).Msg("apple private key is not configured")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	secret, err := apple.GenerateClientSecret(privateKey, teamID, clientID, keyID)
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	client := apple.New()
	var resp apple.ValidationResponse
	err = client.VerifyAppToken(context.Background(), apple.AppValidationTokenRequest{
		ClientID:     clientID,
		ClientSecret: secret,
		Code:         req.AuthorizationCode,
	}, &resp)
	if err != nil {
		log.Warn().Err(err).Msg("apple token verification failed")
		return c.JSON(http.StatusForbidden, map[string]string{"error": "Couldn't verify credentials"})
	}
	if resp.Error != "" {
		log.Warn().Str("apple_error", resp.Error).Str("description", resp.ErrorDescription).Msg("apple returned an error")
		return c.JSON(http.StatusForbidden, map[string]string{"error": "Couldn't verify credentials through Apple"})
	}
	appleID, err := apple.GetUniqueID(resp.IDToken)
	if err != nil {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "Couldn't get your unique identifier"})
	}
	claim, err := apple.GetClaims(resp.IDToken)
	if err != nil {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "Couldn't get your information"})
	}
	email, _ := (*claim)["email"].(string)

	db := c.Get("__db").(*gorm.DB)
	var user models.UserAccount
	q := db.Where("apple_id = ?", appleID)
	if email != "" {
		q = db.Where("apple_id = ? or email = ?", appleID, email)
	}
	r := q.Limit(1).Find(&user)
	if r.Error != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	isNew := r.RowsAffected == 0
	if isNew {
		if email == "" {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "Apple did not share an email for this first sign in, please try again."})
		}
		user = models.UserAccount{Email: email, Name: req.Name, Status: "FINISHED_AUTH", ReceiveNotifications: true, AvatarURL: defaultAvatarURL}
		if user.Name == "" {
			user.Name = email
		}
	}
	if user.Banned {
		return echo.ErrForbidden
	}
	user.AppleID = appleID
	user.LastIp = c.RealIP()
	user.Platform = models.ScanPlatform(req.Platform)
	user.ConfirmedDeleteDate = nil
	if err := db.Save(&user).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	out, err := signInResponse(&user, isNew)
	if err != nil {
		return echo.ErrInternalServerError
	}
	log.Info().Uint("user", user.ID).Bool("new", isNew).Msg("apple sign in")
	return c.JSON(http.StatusOK, out)
}

func (m *AuthController) RefreshToken(c echo.Context) error {
	tokenReq := new(models.RefreshTokenIn)
	if err := c.Bind(tokenReq); err != nil {
		return echo.ErrBadRequest
	}
	if err := c.Validate(tokenReq); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	sub, err := ParseRefreshToken(tokenReq.RefreshToken)
	if err != nil {
		log.Debug().Err(err).Msg("refresh token rejected")
		return echo.ErrUnauthorized
	}
	userID, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || userID == 0 {
		return echo.ErrUnauthorized
	}

	db := c.Get("__db").(*gorm.DB)
	var user models.UserAccount
	r := db.Where("id = ?", userID).Limit(1).Find(&user)
	if r.Error != nil {
		log.Error().Err(r.Error).Uint64("user", userID).Msg("failed to load user while refreshing token")
		return echo.ErrInternalServerError
	}
	if r.RowsAffected == 0 || user.Banned || user.ConfirmedDeleteDate != nil {
		return echo.ErrUnauthorized
	}
	rt, err := GenerateRefreshToken(sub)
	if err != nil {
		return echo.ErrInternalServerError
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  GenerateUserToken(sub),
		"refresh_token": rt,
	})
}

func (m *AuthController) RegisterPush(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)
	tokenRequest := new(models.UserPushIn)
	if err := c.Bind(tokenRequest); err != nil {
		return echo.ErrBadRequest
	}
	if err := c.Validate(tokenRequest); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	pushData := models.UserPushToken{
		Platform:      models.ScanPlatform(tokenRequest.Platform),
		Token:         tokenRequest.Token,
		UserAccountID: user.ID,
		Active:        true,
	}
	// the same device may be signed in to several accounts
	result := db.Where("token = ? and user_account_id = ?", tokenRequest.Token, user.ID).
		Assign(models.UserPushToken{Active: true}).
		FirstOrCreate(&pushData)
	if result.Error != nil {
		log.Error().Err(result.Error).Uint("user", user.ID).Msg("failed to register push token")
		return echo.ErrInternalServerError
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "registered",
		"push_id": pushData.ID,
	})
}

func (m *AuthController) DeletePush(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)
	tokenRequest := new(models.UserPushIn)
	if err := c.Bind(tokenRequest); err != nil {
		return echo.ErrBadRequest
	}
	if err := c.Validate(tokenRequest); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	result := db.Where("token = ? and user_account_id = ? and platform = ?", tokenRequest.Token, user.ID, tokenRequest.Platform).
		Delete(&models.UserPushToken{})
	if result.Error != nil {
		log.Error().Err(result.Error).Uint("user", user.ID).Msg("failed to delete push token")
		return echo.ErrInternalServerError
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "deleted",
		"deleted": result.RowsAffected > 0,
	})
}

// DeleteAccount marks the account for deletion and silences its devices.
func (m *AuthController) DeleteAccount(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)
	now := time.Now()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Update("confirmed_delete_date", now).Error; err != nil {
			return err
		}
		return tx.Model(&models.UserPushToken{}).Where("user_account_id = ?", user.ID).Update("active", false).Error
	})
	if err != nil {
		sentry.CaptureException(err)
		return echo.ErrInternalServerError
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "account scheduled for deletion"})
}
