package validation

import (
	"regexp"
	"unicode"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Indian mobile number: ten digits starting 6-9.
var phoneRe = regexp.MustCompile(`^[6-9]\d{9}$`)

var pincodeRe = regexp.MustCompile(`^[1-9][0-9]{5}$`)

// Name: letters, spaces, hyphens, apostrophes only.
var nameRe = regexp.MustCompile(`^[A-Za-z\s\-']+$`)

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

func IsValidPhone(phone string) bool {
	return phoneRe.MatchString(phone)
}

func IsValidPincode(pincode string) bool {
	return pincode == "" || pincodeRe.MatchString(pincode)
}

func IsValidName(name string) bool {
	return name != "" && nameRe.MatchString(name)
}

// IsValidPassword requires at least 8 characters with at least one
// letter, one digit and one special character.
func IsValidPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	hasLetter, hasDigit, hasSpecial := false, false, false
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	return hasLetter && hasDigit && hasSpecial
}
