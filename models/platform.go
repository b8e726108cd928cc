package models

import (
	"regexp"

	"github.com/go-playground/validator"
)

type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformWeb     Platform = "web"
)

var platformRule = regexp.MustCompile("^(ios|android|web)$")

func (l *Platform) Scan(value interface{}) error {
	switch v := value.(type) {
	case string:
		*l = Platform(v)
	case []byte:
		*l = Platform(v)
	}
	return nil
}

func (l Platform) Value() string {
	return string(l)
}

func ScanPlatform(value string) Platform {
	return Platform(value)
}

func ValidatePlatform(fl validator.FieldLevel) bool {
	return platformRule.MatchString(fl.Field().String())
}

func ValidatePlatformRaw(value string) bool {
	return platformRule.MatchString(value)
}
