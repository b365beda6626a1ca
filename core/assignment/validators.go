package assignment

import (
	"github.com/go-playground/validator/v10"

	"github.com/jkamau/darasa/core"
)

var (
	statusTag  = "assignmentstatus"
	statusText = "must be one of DRAFT, PUBLISHED, COMPLETED"
)

func init() {
	_ = core.Validate.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(statusTag, statusText)
}

// statusValidation checks that the provided status is a known one.
func statusValidation(fl validator.FieldLevel) bool {
	status := fl.Field().String()
	for _, s := range AllStatuses {
		if status == s {
			return true
		}
	}
	return false
}
