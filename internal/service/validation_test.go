package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePhoneNumber(t *testing.T) {
	valid := []string{"9876543210", "6000000000", "7123456789", "8999999999"}
	for _, phone := range valid {
		assert.True(t, ValidatePhoneNumber(phone), "expected %q to be valid", phone)
	}

	invalid := []string{
		"",
		"5876543210",  // leading digit below 6
		"987654321",   // 9 digits
		"98765432100", // 11 digits
		"98765A3210",
		"+919876543210",
		"98765 43210",
	}
	for _, phone := range invalid {
		assert.False(t, ValidatePhoneNumber(phone), "expected %q to be invalid", phone)
	}
}

func TestValidateAmount(t *testing.T) {
	assert.True(t, ValidateAmount(100))
	assert.True(t, ValidateAmount(10000))
	assert.True(t, ValidateAmount(10_000_000))

	assert.False(t, ValidateAmount(99))
	assert.False(t, ValidateAmount(0))
	assert.False(t, ValidateAmount(-100))
	assert.False(t, ValidateAmount(10_000_001))
}

func TestValidateName(t *testing.T) {
	assert.True(t, ValidateName("Asha Rao"))
	assert.True(t, ValidateName("Jo"))

	assert.False(t, ValidateName("A"))
	assert.False(t, ValidateName(""))
	assert.False(t, ValidateName("R2 D2"))
	assert.False(t, ValidateName(" starts with space"))
}

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("asha@example.com"))
	assert.True(t, ValidateEmail("a.b+tag@sub.example.co.in"))

	assert.False(t, ValidateEmail("not-an-email"))
	assert.False(t, ValidateEmail("missing@tld"))
	assert.False(t, ValidateEmail("@example.com"))
}
