// Package validator checks the shape of Telegram credentials before any
// network call is made.
package validator

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/account/entities"
	pkgerrors "github.com/Conte777/NewsFlow/services/connector-service/pkg/errors"
)

// MinAPIHashLength is the shortest API hash accepted.
const MinAPIHashLength = 5

var (
	phonePattern = regexp.MustCompile(`^\+[0-9]{7,15}$`)
	digitsOnly   = regexp.MustCompile(`^[0-9]+$`)
)

// ValidateAPIID fails unless s parses to an integer greater than zero.
func ValidateAPIID(s string) error {
	if s == "" {
		return pkgerrors.New(pkgerrors.KindInvalidCredentials, "API ID is required")
	}
	if !digitsOnly.MatchString(s) {
		return pkgerrors.New(pkgerrors.KindInvalidCredentials, "API ID must be a number")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return pkgerrors.New(pkgerrors.KindInvalidCredentials, "API ID must be a number")
	}
	if n <= 0 {
		return pkgerrors.New(pkgerrors.KindInvalidCredentials, "API ID must be a positive number")
	}
	return nil
}

// ValidateAPIHash fails if s is empty or shorter than MinAPIHashLength.
func ValidateAPIHash(s string) error {
	if s == "" {
		return pkgerrors.New(pkgerrors.KindInvalidCredentials, "API hash is required")
	}
	if len(s) < MinAPIHashLength {
		return pkgerrors.Newf(pkgerrors.KindInvalidCredentials,
			"API hash must be at least %d characters", MinAPIHashLength)
	}
	return nil
}

// ValidatePhoneNumber fails unless s is '+' followed by 7 to 15 digits.
func ValidatePhoneNumber(s string) error {
	if s == "" {
		return pkgerrors.New(pkgerrors.KindInvalidCredentials, "phone number is required")
	}
	if !phonePattern.MatchString(s) {
		return pkgerrors.New(pkgerrors.KindInvalidCredentials,
			"phone number must start with + followed by 7 to 15 digits")
	}
	return nil
}

// ValidateNickname fails if s is blank.
func ValidateNickname(s string) error {
	if strings.TrimSpace(s) == "" {
		return pkgerrors.New(pkgerrors.KindInvalidCredentials, "nickname is required")
	}
	return nil
}

// ValidateCredentials checks API id, API hash and phone number, returning the first failure.
func ValidateCredentials(apiID, apiHash, phone string) error {
	if err := ValidateAPIID(apiID); err != nil {
		return err
	}
	if err := ValidateAPIHash(apiHash); err != nil {
		return err
	}
	return ValidatePhoneNumber(phone)
}

// Validate returns the first failing field of the account form.
func Validate(account *entities.Account) error {
	if account == nil {
		return pkgerrors.New(pkgerrors.KindInvalidCredentials, "account is required")
	}
	if err := ValidateCredentials(account.APIID, account.APIHash, account.PhoneNumber); err != nil {
		return err
	}
	return ValidateNickname(account.Nickname)
}

// IsFormValid reports whether every account field passes validation.
func IsFormValid(account *entities.Account) bool {
	return Validate(account) == nil
}
