// Package validation содержит функции валидации входных данных.
package validation

import (
	"regexp"
	"strings"

	"github.com/mmeshcher/freshveggies-system/internal/model"
)

var (
	emailRe   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	mobileRe  = regexp.MustCompile(`^[6-9]\d{9}$`)
	pincodeRe = regexp.MustCompile(`^\d{6}$`)
)

// IsValidEmail проверяет корректность адреса электронной почты.
func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// IsValidMobile проверяет корректность индийского мобильного номера
// (10 цифр, первая из диапазона 6-9).
func IsValidMobile(mobile string) bool {
	return mobileRe.MatchString(mobile)
}

// IsValidPincode проверяет корректность шестизначного почтового индекса.
func IsValidPincode(pincode string) bool {
	return pincodeRe.MatchString(pincode)
}

// IsValidPassword проверяет минимальную длину пароля.
func IsValidPassword(password string) bool {
	return len(password) >= 6
}

// FieldErrors содержит ошибки валидации по именам полей формы.
type FieldErrors map[string]string

// ValidateAddress проверяет адрес доставки и возвращает ошибки по полям.
// Пустой результат означает корректный адрес.
func ValidateAddress(a model.Address) FieldErrors {
	errs := make(FieldErrors)

	if strings.TrimSpace(a.FullName) == "" {
		errs["fullName"] = "Full name is required"
	}

	if a.Mobile == "" {
		errs["mobile"] = "Mobile number is required"
	} else if !IsValidMobile(a.Mobile) {
		errs["mobile"] = "Please enter a valid 10-digit mobile number"
	}

	if a.Email == "" {
		errs["email"] = "Email is required"
	} else if !IsValidEmail(a.Email) {
		errs["email"] = "Please enter a valid email address"
	}

	if strings.TrimSpace(a.Street) == "" {
		errs["street"] = "Street address is required"
	}

	if strings.TrimSpace(a.City) == "" {
		errs["city"] = "City is required"
	}

	if a.Pincode == "" {
		errs["pincode"] = "Pincode is required"
	} else if !IsValidPincode(a.Pincode) {
		errs["pincode"] = "Please enter a valid 6-digit pincode"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
