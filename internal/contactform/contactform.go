// Package contactform holds the contact form payload and the validation
// rules shared by the browser-facing client and the relay.
package contactform

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// Field names as they appear on the wire.
const (
	FieldFirstName    = "firstName"
	FieldLastName     = "lastName"
	FieldMobileNumber = "mobileNumber"
	FieldEmail        = "email"
	FieldMessage      = "message"
)

// Fields lists the form fields in display order.
var Fields = []string{FieldFirstName, FieldLastName, FieldMobileNumber, FieldEmail, FieldMessage}

// MinMessageLength is the client-side minimum for the trimmed message, in characters.
const MinMessageLength = 10

// Payload is the JSON body POSTed to the relay.
type Payload struct {
	FirstName    string `json:"firstName" validate:"notblank"`
	LastName     string `json:"lastName" validate:"notblank"`
	MobileNumber string `json:"mobileNumber" validate:"notblank,mobile"`
	Email        string `json:"email" validate:"notblank,contactemail"`
	Message      string `json:"message" validate:"notblank,trimmedmin=10"`
}

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	mobilePattern = regexp.MustCompile(`^[0-9+\-\s()]+$`)
)

// EmailValid reports whether s has the shape local@domain.tld with no
// whitespace. The value is tested as given, without trimming.
func EmailValid(s string) bool {
	return emailPattern.MatchString(s)
}

// MobileValid reports whether the trimmed value is non-empty and made only
// of digits, spaces, and + - ( ).
func MobileValid(s string) bool {
	return mobilePattern.MatchString(strings.TrimSpace(s))
}

// CheckRequired reports whether all five fields are non-blank.
func CheckRequired(p Payload) bool {
	for _, v := range []string{p.FirstName, p.LastName, p.MobileNumber, p.Email, p.Message} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// messages maps field and failing rule to the text shown next to the field.
var messages = map[string]map[string]string{
	FieldFirstName:    {"notblank": "First name is required"},
	FieldLastName:     {"notblank": "Last name is required"},
	FieldMobileNumber: {"notblank": "Mobile number is required", "mobile": "Please enter a valid mobile number"},
	FieldEmail:        {"notblank": "Email is required", "contactemail": "Please enter a valid email address"},
	FieldMessage:      {"notblank": "Message is required", "trimmedmin": "Message must be at least " + strconv.Itoa(MinMessageLength) + " characters"},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		return MobileValid(fl.Field().String())
	})
	_ = v.RegisterValidation("contactemail", func(fl validator.FieldLevel) bool {
		return EmailValid(fl.Field().String())
	})
	_ = v.RegisterValidation("trimmedmin", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return utf8.RuneCountInString(strings.TrimSpace(fl.Field().String())) >= n
	})
	return v
}

// Validate runs every field rule and returns one message per failing field,
// or nil when the payload may be submitted.
func Validate(p Payload) FieldErrors {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return FieldErrors{FieldMessage: err.Error()}
	}

	fe := make(FieldErrors, len(verrs))
	for _, v := range verrs {
		field := v.Field()
		msg, ok := messages[field][v.Tag()]
		if !ok {
			msg = "Invalid value"
		}
		fe[field] = msg
	}
	return fe
}
