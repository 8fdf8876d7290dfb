// Package validation configures go-playground/validator with the storefront's custom
// rules and converts its errors into VALIDATION_FAILED domain errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"storefront/internal/model"

	"github.com/go-playground/validator/v10"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9 ()\-.]+$`)

// New returns a validator with the phone, cardnumber and cardexpiry rules registered.
// Field names in errors are taken from json tags.
func New() *validator.Validate {
	return NewWithClock(time.Now)
}

// NewWithClock is New with a replaceable clock for the card expiry rule.
func NewWithClock(now func() time.Time) *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	// Registration only fails for empty tags or nil functions.
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return ValidPhone(fl.Field().String())
	})
	_ = v.RegisterValidation("cardnumber", func(fl validator.FieldLevel) bool {
		return ValidCardNumber(fl.Field().String())
	})
	_ = v.RegisterValidation("cardexpiry", func(fl validator.FieldLevel) bool {
		return ValidCardExpiry(fl.Field().String(), now())
	})

	return v
}

// ValidPhone accepts an optional leading + followed by 7 to 15 digits, optionally separated
// by spaces, dashes, dots or parentheses.
func ValidPhone(s string) bool {
	s = strings.TrimSpace(s)
	if !phonePattern.MatchString(s) {
		return false
	}
	n := digitCount(s)
	return n >= 7 && n <= 15
}

// ValidCardNumber accepts 13 to 19 digits (spaces and dashes ignored) passing the Luhn check.
func ValidCardNumber(s string) bool {
	digits := strings.NewReplacer(" ", "", "-", "").Replace(s)
	if len(digits) < 13 || len(digits) > 19 || digitCount(digits) != len(digits) {
		return false
	}
	return Luhn(digits)
}

// Luhn reports whether the digit string passes the Luhn checksum.
func Luhn(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if d < 0 || d > 9 {
			return false
		}
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// ValidCardExpiry accepts MM/YY dates whose month has not ended at now.
func ValidCardExpiry(s string, now time.Time) bool {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return false
	}
	month, err := strconv.Atoi(parts[0])
	if err != nil || month < 1 || month > 12 {
		return false
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil || year < 0 {
		return false
	}
	year += 2000

	cur := now.Year()*12 + int(now.Month())
	return year*12+month >= cur
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// Struct validates s and returns a VALIDATION_FAILED domain error listing every invalid
// field, or nil.
func Struct(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validation: %w", err)
	}
	return model.NewValidationError(FieldErrors(verrs))
}

// FieldErrors maps each failing field (dotted json path without the root struct) to a
// human-readable message.
func FieldErrors(verrs validator.ValidationErrors) map[string]string {
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := fe.Namespace()
		if i := strings.Index(name, "."); i >= 0 {
			name = name[i+1:]
		}
		if _, exists := fields[name]; !exists {
			fields[name] = message(fe)
		}
	}
	return fields
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "phone":
		return "must be a valid phone number"
	case "cardnumber":
		return "must be a valid card number"
	case "cardexpiry":
		return "must be a future MM/YY date"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min":
		if fe.Kind() == reflect.Slice {
			return "must contain at least " + fe.Param() + " item(s)"
		}
		if fe.Kind() == reflect.String {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "number", "numeric":
		return "must contain digits only"
	default:
		return "is invalid"
	}
}
