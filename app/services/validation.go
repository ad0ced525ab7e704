package services

import (
	"regexp"
	"strings"
	"unicode"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// MinPasswordLength is the shortest accepted signup password.
const MinPasswordLength = 8

func validateEmail(fe FieldErrors, email string) {
	switch {
	case email == "":
		fe["email"] = "Email is required"
	case !emailPattern.MatchString(email):
		fe["email"] = "Please enter a valid email address"
	}
}

// ValidateLogin checks login form input before any lookup happens.
func ValidateLogin(email, password string) error {
	fe := FieldErrors{}
	validateEmail(fe, strings.TrimSpace(email))
	if password == "" {
		fe["password"] = "Password is required"
	}
	return fe.orNil()
}

// ValidateSignup checks signup input, including password strength.
func ValidateSignup(email, password string) error {
	fe := FieldErrors{}
	validateEmail(fe, strings.TrimSpace(email))
	if msg := passwordProblem(password); msg != "" {
		fe["password"] = msg
	}
	return fe.orNil()
}

// ValidateSignupForm additionally checks the confirmation field of the web form.
func ValidateSignupForm(email, password, confirm string) error {
	fe := FieldErrors{}
	if err := ValidateSignup(email, password); err != nil {
		fe = err.(FieldErrors)
	}
	switch {
	case confirm == "":
		fe["confirmPassword"] = "Please confirm your password"
	case password != confirm:
		fe["confirmPassword"] = "Passwords do not match"
	}
	return fe.orNil()
}

func passwordProblem(password string) string {
	if password == "" {
		return "Password is required"
	}
	if len(password) < MinPasswordLength {
		return "Password must be at least 8 characters"
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	switch {
	case !upper:
		return "Password must contain at least one uppercase letter"
	case !lower:
		return "Password must contain at least one lowercase letter"
	case !digit:
		return "Password must contain at least one number"
	}
	return ""
}

// ValidateTitle trims title and rejects blank input.
func ValidateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", FieldErrors{"title": "Title cannot be empty"}
	}
	return title, nil
}
