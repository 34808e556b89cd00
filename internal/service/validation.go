package service

import "regexp"

const (
	// Amounts are in paise. The floor is one rupee; the ceiling matches the
	// gateway's per-transaction limit.
	MinAmount = 100
	MaxAmount = 10_000_000
)

var (
	phonePattern = regexp.MustCompile(`^[6-9]\d{9}$`)
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	namePattern  = regexp.MustCompile(`^[a-zA-Z][a-zA-Z ]{1,99}$`)
)

// ValidatePhoneNumber accepts 10-digit Indian mobile numbers (leading 6-9).
func ValidatePhoneNumber(phone string) bool {
	return phonePattern.MatchString(phone)
}

func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidateName accepts alphabetic names with spaces, 2-100 characters.
func ValidateName(name string) bool {
	return namePattern.MatchString(name)
}

func ValidateAmount(amount int64) bool {
	return amount >= MinAmount && amount <= MaxAmount
}

func validateCustomer(info CustomerInfo) error {
	if !ValidateName(info.Name) {
		return &ValidationError{Field: "name", Reason: "must be alphabetic, 2-100 characters"}
	}
	if !ValidateEmail(info.Email) {
		return &ValidationError{Field: "email", Reason: "must be a valid email address"}
	}
	if !ValidatePhoneNumber(info.Phone) {
		return &ValidationError{Field: "phone", Reason: "must be a 10-digit number starting with 6-9"}
	}
	return nil
}
