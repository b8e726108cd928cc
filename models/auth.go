package models

import "time"

type JsonModel struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type GoogleAuthSignIn struct {
	IdToken  string `json:"idToken" validate:"required"`
	Platform string `json:"platform" validate:"required,platform"`
}

type AppleAuthRequest struct {
	IdentityToken     string `json:"identity_token"`
	Platform          string `json:"platform" validate:"required,platform"`
	AuthorizationCode string `json:"authorization_code" validate:"required"`
	Name              string `json:"name" validate:"omitempty,max=100"`
}

type RefreshTokenIn struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type SignInOut struct {
	Id           uint   `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	New          bool   `json:"new"`
	Avatar       string `json:"avatar"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
