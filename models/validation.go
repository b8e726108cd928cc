package models

import (
	"stylistapi/stylist"

	"github.com/go-playground/validator"
)

// ValidateClothingType backs the "clothing_type" tag.
func ValidateClothingType(fl validator.FieldLevel) bool {
	return stylist.Slot(fl.Field().String()).Valid()
}

// ValidateAvailability backs the "availability" tag.
func ValidateAvailability(fl validator.FieldLevel) bool {
	return stylist.Availability(fl.Field().String()).Valid()
}

// ValidateSignal backs the "signal" tag.
func ValidateSignal(fl validator.FieldLevel) bool {
	return stylist.Signal(fl.Field().String()).Valid()
}

// ValidatePattern backs the "pattern" tag.
func ValidatePattern(fl validator.FieldLevel) bool {
	return stylist.Pattern(fl.Field().String()).Valid()
}

// ValidateFit backs the "fit" tag.
func ValidateFit(fl validator.FieldLevel) bool {
	return stylist.Fit(fl.Field().String()).Valid()
}

// RegisterValidations installs the custom tags on v.
func RegisterValidations(v *validator.Validate) {
	v.RegisterValidation("platform", ValidatePlatform)
	v.RegisterValidation("clothing_type", ValidateClothingType)
	v.RegisterValidation("availability", ValidateAvailability)
	v.RegisterValidation("signal", ValidateSignal)
	v.RegisterValidation("pattern", ValidatePattern)
	v.RegisterValidation("fit", ValidateFit)
}
