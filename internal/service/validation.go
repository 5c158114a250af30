package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/letterbox/letterbox/internal/model"
)

// Characters rejected in subscriber names.
const forbiddenNameChars = `/()"<>\{}`

const (
	nameCharsTag      = "namechars"
	nameLengthRule    = "min=1,max=256"
	usernameLenRule   = "min=1,max=256"
	passwordLenRule   = "min=6"
	emailRule         = "email"
	reasonEmpty       = "must not be empty"
	reasonTooLong     = "must be at most 256 characters"
	reasonForbidden   = `must not contain any of / ( ) " < > \ { }`
	reasonEmail       = "must be a valid email address"
	reasonPasswordLen = "must be at least 6 characters"
)

// Validator checks untrusted input. It is pure and safe for concurrent use.
type Validator struct {
	v *validator.Validate
}

// NewValidator builds a Validator with the custom rules registered.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON field names instead of Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation(nameCharsTag, func(fl validator.FieldLevel) bool {
		return !strings.ContainsAny(fl.Field().String(), forbiddenNameChars)
	}); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", nameCharsTag, err))
	}

	return &Validator{v: v}
}

// ValidateSubscriber checks a proposed subscriber. Length and character rules
// on the name are evaluated independently so both can be reported at once.
func (val *Validator) ValidateSubscriber(name, email string) error {
	verr := &ValidationError{}

	if err := val.v.Var(name, nameLengthRule); err != nil {
		verr.add("name", lengthReason(err))
	}
	if err := val.v.Var(name, nameCharsTag); err != nil {
		verr.add("name", reasonForbidden)
	}
	if err := val.v.Var(email, emailRule); err != nil {
		verr.add("email", reasonEmail)
	}

	return verr.orNil()
}

// ValidateOperator checks credentials for a new broadcast operator.
func (val *Validator) ValidateOperator(username, password string) error {
	verr := &ValidationError{}

	if err := val.v.Var(username, usernameLenRule); err != nil {
		verr.add("username", lengthReason(err))
	}
	if err := val.v.Var(password, passwordLenRule); err != nil {
		verr.add("password", reasonPasswordLen)
	}

	return verr.orNil()
}

// ValidateNewsletter checks a decoded publish request.
func (val *Validator) ValidateNewsletter(req *model.NewsletterRequest) error {
	err := val.v.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate newsletter: %w", err)
	}

	verr := &ValidationError{}
	for _, fe := range fieldErrs {
		verr.add(fieldPath(fe), fieldReason(fe))
	}
	return verr.orNil()
}

func lengthReason(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 && fieldErrs[0].Tag() == "max" {
		return reasonTooLong
	}
	return reasonEmpty
}

// fieldPath drops the root struct name: "NewsletterRequest.content.html" -> "content.html".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return reasonEmail
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed validation (%s)", fe.Tag())
	}
}
