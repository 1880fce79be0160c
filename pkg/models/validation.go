package models

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var stateNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// NewValidator returns a struct validator with the model-specific tags registered.
func NewValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())

	err := validate.RegisterValidation("statename", func(fl validator.FieldLevel) bool {
		return stateNamePattern.MatchString(fl.Field().String())
	})
	if err != nil {
		panic("models: registering statename validation: " + err.Error())
	}

	return validate
}
