package domain

import "github.com/go-playground/validator/v10"

// validatorInstance is shared so struct metadata is cached once.
var validatorInstance = validator.New()

// Validator returns the package validator so the HTTP layer validates request
// bodies with the same rules and cache.
func Validator() *validator.Validate {
	return validatorInstance
}
