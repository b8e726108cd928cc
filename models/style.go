package models

import (
	"time"

	"stylistapi/stylist"

	"github.com/lib/pq"
)

// StyleProfile is the persisted counterpart of stylist.UserProfile. Weights
// are only written by the feedback task.
type StyleProfile struct {
	JsonModel
	UserAccountID    uint            `gorm:"uniqueIndex" json:"-"`
	UserAccount      UserAccount     `json:"-"`
	BodyType         string          `json:"body_type"`
	Undertone        string          `json:"undertone"`
	Contrast         string          `json:"contrast"`
	ModestyLevel     int             `json:"modesty_level"`
	BestColors       pq.Int64Array   `gorm:"type:integer[]" json:"best_colors"`
	AvoidColors      pq.Int64Array   `gorm:"type:integer[]" json:"avoid_colors"`
	StyleTags        pq.StringArray  `gorm:"type:text[]" json:"style_tags"`
	Weights          stylist.Weights `gorm:"serializer:json" json:"weights"`
	InteractionCount int             `json:"interaction_count"`
}

type StyleProfileIn struct {
	BodyType     *string  `json:"body_type" validate:"omitempty,oneof=pear apple hourglass rectangle inverted_triangle"`
	Undertone    *string  `json:"undertone" validate:"omitempty,oneof=warm cool neutral"`
	Contrast     *string  `json:"contrast" validate:"omitempty,oneof=low medium high"`
	ModestyLevel *int     `json:"modesty_level" validate:"omitempty,gte=0,lte=10"`
	BestColors   []int64  `json:"best_colors" validate:"omitempty,max=50,dive,gte=1"`
	AvoidColors  []int64  `json:"avoid_colors" validate:"omitempty,max=50,dive,gte=1"`
	StyleTags    []string `json:"style_tags" validate:"omitempty,max=20,dive,max=40"`
}

// OutfitFeedback is one interaction signal waiting for, or already consumed
// by, the preference learner.
type OutfitFeedback struct {
	JsonModel
	UserAccountID    uint             `json:"-"`
	RecommendationID string           `json:"recommendation_id"`
	Signal           string           `json:"signal"`
	ClothingIDs      pq.Int64Array    `gorm:"type:integer[]" json:"clothing_ids"`
	Context          *stylist.Context `gorm:"serializer:json" json:"context"`
	Applied          bool             `json:"applied"`
	AppliedAt        *time.Time       `json:"applied_at"`
	ErrorMessage     *string          `json:"error_message"`
}

// SavedOutfit is an outfit the user chose to keep.
type SavedOutfit struct {
	JsonModel
	UserAccountID    uint          `json:"-"`
	RecommendationID string        `json:"recommendation_id"`
	Name             string        `json:"name"`
	Event            string        `json:"event"`
	Formula          string        `json:"formula"`
	Score            float64       `json:"score"`
	Explanation      string        `json:"explanation"`
	ClothingIDs      pq.Int64Array `gorm:"type:integer[]" json:"clothing_ids"`
}
