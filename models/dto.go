package models

type UserInfoOut struct {
	Id                   uint          `json:"id"`
	Name                 string        `json:"name"`
	Email                string        `json:"email"`
	AvatarURL            string        `json:"avatar_url"`
	HomeCity             string        `json:"home_city"`
	ReceiveNotifications bool          `json:"receive_notifications"`
	ClothesCount         int64         `json:"clothes_count"`
	StyleProfile         *StyleProfile `json:"style_profile"`
}
