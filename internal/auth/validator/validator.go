// Package validator registers the password policy on the shared validator.
package validator

import (
	"unicode"

	"franchise_crm/platform/validator"

	playground "github.com/go-playground/validator/v10"
)

// PasswordPolicy describes the password requirements for API error messages.
const PasswordPolicy = "Password must be at least 8 characters and include: uppercase letter, lowercase letter, number, and special character"

// Register adds the "strongpassword" rule.
func Register(v *validator.Validator) error {
	return v.RegisterValidation("strongpassword", validateStrongPassword)
}

func validateStrongPassword(fl playground.FieldLevel) bool {
	return IsStrong(fl.Field().String())
}

// IsStrong checks length and character class coverage.
func IsStrong(password string) bool {
	if len([]rune(password)) < 8 {
		return false
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasDigit = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSpecial
}
