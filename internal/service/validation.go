package service

import (
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/campus-records-api/internal/models"
)

// registerDomainValidations installs the closed-enum tags used by request structs.
// Registering twice on the same validator simply replaces the functions.
func registerDomainValidations(v *validator.Validate) {
	_ = v.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		return models.NormalizeAttendanceStatus(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("session_type", func(fl validator.FieldLevel) bool {
		return models.SessionType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("column_type", func(fl validator.FieldLevel) bool {
		return models.ColumnType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("doc_status", func(fl validator.FieldLevel) bool {
		switch models.DocumentStatus(fl.Field().String()) {
		case models.DocumentPending, models.DocumentCompleted, models.DocumentRejected:
			return true
		}
		return false
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return models.UserRole(fl.Field().String()).Valid()
	})
}

func newValidator(validate *validator.Validate) *validator.Validate {
	if validate == nil {
		validate = validator.New()
	}
	registerDomainValidations(validate)
	return validate
}
