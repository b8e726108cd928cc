package stylist

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidGarment = errors.New("invalid garment")
	ErrInvalidProfile = errors.New("invalid profile")
	ErrUnknownSignal  = errors.New("unknown interaction signal")
)

// GarmentError reports why a garment was rejected at the boundary.
type GarmentError struct {
	GarmentID string `json:"garment_id"`
	Reason    string `json:"reason"`
}

func (e *GarmentError) Error() string {
	return fmt.Sprintf("garment %q: %s", e.GarmentID, e.Reason)
}

func (e *GarmentError) Unwrap() error {
	return ErrInvalidGarment
}
