package models

import (
	"time"

	"stylistapi/stylist"

	"github.com/lib/pq"
)

type Clothing struct {
	JsonModel
	Name                string      `json:"name"`
	Description         *string     `gorm:"type:text" json:"description"`
	ClothingType        string      `json:"clothing_type"` // top, bottom, layer, shoes, accessory, one_piece
	Owner               UserAccount `json:"-"`
	OwnerID             uint        `json:"-"`
	Availability        string      `gorm:"default:active" json:"availability"` // active, laundry, archived, donated
	ImageStatus         string      `json:"image_status"`                       // draft, uploaded
	ProcessingStatus    string      `json:"processing_status"`                  // idle, pending, completed, failed
	ProcessRetryTimes   int         `json:"process_retry_times"`
	ProcessErrorMessage *string     `json:"process_error_message"`
	ImageURL            *string     `json:"image_url"`
	AlertWhenProcessed  bool        `json:"alert_when_processed"`

	// filled by the user or by the clothing analysis task
	Subtype          string             `json:"subtype"`
	Fabric           string             `json:"fabric"`
	Pattern          string             `json:"pattern"`
	WeightClass      int                `json:"weight_class"`
	Fit              string             `json:"fit"`
	Colors           []stylist.Color    `gorm:"serializer:json" json:"colors"`
	FormalityMin     *float64           `json:"formality_min"`
	FormalityMax     *float64           `json:"formality_max"`
	SeasonScores     map[string]float64 `gorm:"serializer:json" json:"season_scores"`
	Versatility      *float64           `json:"versatility"`
	BodyTypes        pq.StringArray     `gorm:"type:text[]" json:"body_types"`
	StyleTags        pq.StringArray     `gorm:"type:text[]" json:"style_tags"`
	NoLayerUnder     bool               `json:"no_layer_under"`
	RequiresLayering bool               `json:"requires_layering"`
	LastWornAt       *time.Time         `json:"last_worn_at"`
	WearCount        int                `json:"wear_count"`
}
