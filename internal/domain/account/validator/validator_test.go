package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/account/entities"
	pkgerrors "github.com/Conte777/NewsFlow/services/connector-service/pkg/errors"
)

func validAccount() *entities.Account {
	return &entities.Account{
		ID:          "acc-1",
		Nickname:    "main",
		APIID:       "12345",
		APIHash:     strings.Repeat("a", 20),
		PhoneNumber: "+15551234567",
	}
}

func TestValidateAPIID(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"12345", true},
		{"1", true},
		{"0", false},
		{"-5", false},
		{"", false},
		{"12a45", false},
		{"1.5", false},
		{"+12345", false},
		{" 12345", false},
	}

	for _, tt := range tests {
		err := ValidateAPIID(tt.in)
		if tt.valid {
			assert.NoError(t, err, tt.in)
		} else {
			assert.Error(t, err, tt.in)
			assert.True(t, pkgerrors.IsKind(err, pkgerrors.KindInvalidCredentials), tt.in)
		}
	}
}

func TestValidateAPIHash(t *testing.T) {
	assert.NoError(t, ValidateAPIHash("abcde"))
	assert.Error(t, ValidateAPIHash("abcd"))
	assert.Error(t, ValidateAPIHash(""))
}

func TestValidatePhoneNumber(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"+15551234567", true},
		{"+1234567", true},
		{"+123456789012345", true},
		{"+123456", false},
		{"+1234567890123456", false},
		{"15551234567", false},
		{"+1555-123-4567", false},
		{"", false},
	}

	for _, tt := range tests {
		err := ValidatePhoneNumber(tt.in)
		assert.Equal(t, tt.valid, err == nil, tt.in)
	}
}

func TestIsFormValid(t *testing.T) {
	require.True(t, IsFormValid(validAccount()))

	mutations := map[string]func(a *entities.Account){
		"api id":   func(a *entities.Account) { a.APIID = "zero" },
		"api hash": func(a *entities.Account) { a.APIHash = "abc" },
		"phone":    func(a *entities.Account) { a.PhoneNumber = "555" },
		"nickname": func(a *entities.Account) { a.Nickname = "   " },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			a := validAccount()
			mutate(a)
			assert.False(t, IsFormValid(a))
			assert.Error(t, Validate(a))
		})
	}

	assert.False(t, IsFormValid(nil))
}

func TestValidateReturnsReason(t *testing.T) {
	a := validAccount()
	a.PhoneNumber = "+1"

	err := Validate(a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "phone number")
}
