package services

import (
	"context"
	"fmt"

	"stylistapi/models"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/idtoken"
	"gorm.io/gorm"
)

type GoogleServiceProvider interface {
	ValidateIdToken(ctx context.Context, idToken string, audience string) (*idtoken.Payload, error)
}

type GoogleService struct {
}

func (gs GoogleService) ValidateIdToken(ctx context.Context, idToken string, audience string) (*idtoken.Payload, error) {
	return idtoken.Validate(ctx, idToken, audience)
}

func stringMapToInterfaceMap(stringMap map[string]string) map[string]interface{} {
	interfaceMap := make(map[string]interface{}, len(stringMap))
	for key, value := range stringMap {
		interfaceMap[key] = value
	}
	return interfaceMap
}

func pushMessage(token models.UserPushToken, title string, body string, customData map[string]string) *messaging.Message {
	var iosCustomData map[string]interface{}
	if customData != nil {
		iosCustomData = stringMapToInterfaceMap(customData)
	}
	return &messaging.Message{
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		APNS: &messaging.APNSConfig{
			FCMOptions: &messaging.APNSFCMOptions{
				AnalyticsLabel: "stylist",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					ContentAvailable: true,
					Alert: &messaging.ApsAlert{
						Title: title,
						Body:  body,
					},
					Sound: "default",
				},
				CustomData: iosCustomData,
			},
		},
		Android: &messaging.AndroidConfig{
			Notification: &messaging.AndroidNotification{
				Priority:  messaging.PriorityMax,
				ChannelID: "stylist-high-priority",
			},
			Data: customData,
		},
		Data:  customData,
		Token: token.Token,
	}
}

// SendNotification pushes to every active token of the user through FCM.
// Users who turned notifications off are skipped, and tokens FCM reports as
// unregistered are deactivated.
func SendNotification(ctx context.Context, fbApp *firebase.App, db *gorm.DB, userId uint, title string, message string, customData map[string]string) error {
	if fbApp == nil {
		log.Debug().Uint("user", userId).Str("title", title).Msg("push disabled, skipping")
		return nil
	}
	var user models.UserAccount
	if err := db.Select("id", "receive_notifications").First(&user, userId).Error; err != nil {
		return fmt.Errorf("load user %d: %w", userId, err)
	}
	if !user.ReceiveNotifications {
		return nil
	}

	var tokens []models.UserPushToken
	if err := db.Where("user_account_id = ? and active = true", userId).Find(&tokens).Error; err != nil {
		return fmt.Errorf("load push tokens: %w", err)
	}
	if len(tokens) == 0 {
		return nil
	}

	client, err := fbApp.Messaging(ctx)
	if err != nil {
		return fmt.Errorf("init messaging client: %w", err)
	}
	messages := make([]*messaging.Message, 0, len(tokens))
	for _, token := range tokens {
		messages = append(messages, pushMessage(token, title, message, customData))
	}
	br, err := client.SendEach(ctx, messages)
	if err != nil {
		sentry.CaptureException(err)
		return fmt.Errorf("send push: %w", err)
	}

	for i, resp := range br.Responses {
		if resp == nil || resp.Success {
			continue
		}
		log.Warn().Err(resp.Error).Uint("token_id", tokens[i].ID).Str("platform", string(tokens[i].Platform)).Msg("push failed")
		if messaging.IsUnregistered(resp.Error) {
			db.Model(&models.UserPushToken{}).Where("id = ?", tokens[i].ID).Update("active", false)
		}
	}
	log.Info().Uint("user", userId).Int("sent", br.SuccessCount).Int("failed", br.FailureCount).Msg("push notifications sent")
	return nil
}
