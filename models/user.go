package models

import "time"

type UserAccount struct {
	JsonModel
	Name     string `json:"name"`
	Email    string `json:"email" gorm:"unique"`
	Banned   bool   `gorm:"default:false" json:"-"`
	LastIp   string `json:"-"`
	GoogleID string `json:"-"`
	AppleID  string `json:"-"`
	//"STARTED_AUTH", "FINISHED_AUTH"
	Status              string     `json:"-"`
	Platform            Platform   `sql:"type:ENUM('ios', 'android', 'web')" json:"platform"`
	ConfirmedDeleteDate *time.Time `json:"-"`
	// Notifications settings
	ReceiveNotifications bool   `gorm:"default:true" json:"receive_notifications"`
	AvatarURL            string `json:"avatar_url"`
	// free text location used as a weather hint when the client sends none
	HomeCity string `json:"home_city"`
}

type UserPushToken struct {
	JsonModel
	UserAccountID uint
	UserAccount   UserAccount `json:"user_account"`
	Platform      Platform    `sql:"type:ENUM('ios', 'android', 'web')" json:"platform"`
	Token         string      `json:"token"`
	Active        bool        `gorm:"default:false" json:"-"`
}

type UserPushIn struct {
	Token    string `json:"token" validate:"required"`
	Platform string `json:"platform" validate:"required,platform"`
}

type UserSettingsIn struct {
	ReceiveNotifications *bool   `json:"receive_notifications"`
	HomeCity             *string `json:"home_city" validate:"omitempty,max=100"`
}
