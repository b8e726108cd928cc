package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"stylistapi/models"
	"stylistapi/services"
	"stylistapi/stylist"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/idtoken"
	"gorm.io/gorm"
)

func JsonString(model interface{}) string {
	bytes, _ := json.Marshal(model)
	return string(bytes)
}

func NewJSONRequest(method string, target string, param interface{}) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	return req
}

func GenerateUserToken(userPk string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userPk,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 72)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	t, err := token.SignedString([]byte(os.Getenv("JWT_SECRET")))
	if err != nil {
		log.Fatal().Err(err).Str("user", userPk).Msg("error when signing user token")
	}
	return t
}

func NewJSONAuthRequest(method string, target string, userPk string, param interface{}) *http.Request {
	req := NewJSONRequest(method, target, param)
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", GenerateUserToken(userPk)))
	return req
}

func NewJSONAuthRequestRaw(method string, target string, userPk string, json string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(json))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", GenerateUserToken(userPk)))
	return req
}

func UserPk(user *models.UserAccount) string {
	return fmt.Sprintf("%d", user.ID)
}

func NewRefString(data string) *string {
	return &data
}

func FakeUser(db *gorm.DB, userName string, email string) *models.UserAccount {
	if email == "" {
		email = "email@example.com"
	}
	if userName == "" {
		userName = "OurName"
	}
	user := &models.UserAccount{
		Name:                 userName,
		Email:                email,
		GoogleID:             "12232",
		Platform:             models.PlatformIOS,
		LastIp:               "123.122.122.122",
		Status:               "FINISHED_AUTH",
		AvatarURL:            "pictureurl",
		ReceiveNotifications: true,
	}
	db.Create(&user)
	tokenDb := models.UserPushToken{
		UserAccountID: user.ID,
		Platform:      "android",
		Token:         "cX-UZ3zwQEiPt-2GJkG2gA:APA91bGqRflaGrJrnynhRwZ442HdgUjVcO7mWMFnx6IwAdJ9RRKopvSP4QU7hbvTmk1XAp8XGvtHZLvo5JmOPTVKBbGqqvhfbZWKlXA9csEjx1hgpNvrWepU-rqG1sxS8_WCF5cGZchf",
		Active:        true,
	}
	db.Save(&tokenDb)
	return user
}

// FakeClothing stores an analyzed garment of the given slot and colour.
func FakeClothing(db *gorm.DB, ownerID uint, slot string, hex string, formalityMin, formalityMax float64) *models.Clothing {
	col, err := services.ColorFromHex(hex)
	if err != nil {
		panic(err)
	}
	versatility := 0.7
	clothing := &models.Clothing{
		Name:             fmt.Sprintf("%s %s", hex, slot),
		ClothingType:     slot,
		OwnerID:          ownerID,
		Availability:     string(stylist.AvailabilityActive),
		ImageStatus:      "uploaded",
		ProcessingStatus: "completed",
		ImageURL:         NewRefString(fmt.Sprintf("clothes/%d/%s-%s.jpg", ownerID, slot, strings.TrimPrefix(hex, "#"))),
		Pattern:          string(stylist.PatternSolid),
		WeightClass:      2,
		Fit:              string(stylist.FitRegular),
		Colors:           []stylist.Color{col},
		FormalityMin:     &formalityMin,
		FormalityMax:     &formalityMax,
		SeasonScores:     map[string]float64{"summer": 0.7, "winter": 0.6, "monsoon": 0.5, "transitional": 0.8},
		Versatility:      &versatility,
	}
	db.Create(clothing)
	return clothing
}

// FakeWardrobe stores a small smart casual closet: two tops, two bottoms,
// two pairs of shoes and a layer.
func FakeWardrobe(db *gorm.DB, ownerID uint) []*models.Clothing {
	return []*models.Clothing{
		FakeClothing(db, ownerID, "top", "#f7f7f5", 3, 7),
		FakeClothing(db, ownerID, "top", "#8cc4ec", 2, 6),
		FakeClothing(db, ownerID, "bottom", "#1f2a44", 3, 8),
		FakeClothing(db, ownerID, "bottom", "#d9c7a7", 2, 6),
		FakeClothing(db, ownerID, "shoes", "#5c3a21", 3, 8),
		FakeClothing(db, ownerID, "shoes", "#f7f7f5", 0, 5),
		FakeClothing(db, ownerID, "layer", "#3a3b3d", 4, 9),
	}
}

// GarmentPNG draws a garment of colour fg centred on a white background.
func GarmentPNG(fg color.NRGBA) []byte {
	const size = 64
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
			if x >= size/4 && x < size*3/4 && y >= size/4 && y < size*3/4 {
				img.SetNRGBA(x, y, fg)
			}
		}
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

type GoogleServiceMock struct{}

func (gsm GoogleServiceMock) ValidateIdToken(ctx context.Context, idToken string, audience string) (*idtoken.Payload, error) {
	return &idtoken.Payload{Issuer: "Issue", Audience: "AAA", Expires: 119919191919, IssuedAt: 12312321321, Subject: "fake@example.com", Claims: map[string]interface{}{
		"email":   "fake@example.com",
		"name":    "Fake Name",
		"picture": "pictureurl",
		"sub":     "123googleid",
	}}, nil
}

type AWSProviderMock struct {
	MockUrl string
}

func (awsService AWSProviderMock) InitPresignClient(ctx context.Context) error {
	return nil
}

func (awsService AWSProviderMock) PresignLink(ctx context.Context, bucketName string, fileName string) (string, error) {
	return fmt.Sprintf("https://fakebucketurl.com/%s", fileName), nil
}

func (awsService AWSProviderMock) GetPresignedR2FileReadURL(ctx context.Context, bucketName, fileKey string) (string, error) {
	if awsService.MockUrl != "" {
		return awsService.MockUrl, nil
	}
	return fmt.Sprintf("https://fakebucketurl.com/read/%s", fileKey), nil
}

type URLCacheMock struct{}

func (URLCacheMock) GetReadURL(ctx context.Context, objectKey string) (string, error) {
	if objectKey == "" {
		return "", nil
	}
	return "https://cdn.example.com/" + objectKey, nil
}

// MockClothingAnalyzer returns a fixed analysis.
type MockClothingAnalyzer struct {
	Analysis *services.ClothingAnalysis
	Err      error
	Calls    atomic.Int32
}

func (m *MockClothingAnalyzer) AnalyzeClothing(ctx context.Context, imagePath string, modelName services.LLMModelName) (*services.ClothingAnalysis, *services.LLMResponse, error) {
	m.Calls.Add(1)
	if _, err := os.Stat(imagePath); err != nil {
		return nil, nil, fmt.Errorf("analyzer got no file: %w", err)
	}
	if m.Err != nil {
		return nil, nil, m.Err
	}
	return m.Analysis, &services.LLMResponse{InputTokenCount: 10, OutputTokenCount: 13, TotalTokenCount: 23, IsTest: true}, nil
}

// ShirtAnalysis is a plausible analysis of a white oxford shirt.
func ShirtAnalysis() *services.ClothingAnalysis {
	return &services.ClothingAnalysis{
		Detected:     true,
		Name:         "Oxford shirt",
		Description:  "White cotton oxford shirt with button-down collar",
		Slot:         "top",
		Subtype:      "shirt",
		Fabric:       "cotton",
		Pattern:      "solid",
		WeightClass:  1,
		Fit:          "regular",
		Colors:       []string{"#f7f7f5"},
		FormalityMin: 4,
		FormalityMax: 7,
		Seasons:      services.SeasonFitness{Summer: 0.9, Winter: 0.5, Monsoon: 0.6, Transitional: 0.9},
		Versatility:  0.9,
		BodyTypes:    []string{"rectangle", "inverted_triangle"},
		StyleTags:    []string{"classic", "minimal"},
	}
}

// MockTextGenerator answers every prompt with Reply.
type MockTextGenerator struct {
	Reply string
	Err   error
	Calls atomic.Int32
}

func (m *MockTextGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.Calls.Add(1)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Reply, nil
}
