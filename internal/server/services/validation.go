package services

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/blogd/internal/common"
	"github.com/go-playground/validator/v10"
)

const (
	MaxUsernameLength = 50
	MaxEmailLength    = 255
	MinPasswordLength = 8
	MaxPasswordLength = 128
	MaxTitleLength    = 255
	MaxContentLength  = 100000
)

// Usernames may not contain '@', so an identifier with one can only ever
// match an email at login.
var (
	usernameRules = "required,excludes=@,max=" + strconv.Itoa(MaxUsernameLength)
	emailRules    = "required,email,max=" + strconv.Itoa(MaxEmailLength)
	passwordRules = "min=" + strconv.Itoa(MinPasswordLength) + ",max=" + strconv.Itoa(MaxPasswordLength)
	titleRules    = "required,max=" + strconv.Itoa(MaxTitleLength)
	contentRules  = "required,max=" + strconv.Itoa(MaxContentLength)
)

type registerFields struct {
	Username string `json:"username" validate:"username"`
	Email    string `json:"email" validate:"email_address"`
	Password string `json:"password" validate:"password"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return strings.ToLower(f.Name)
		}
		return name
	})
	v.RegisterAlias("username", usernameRules)
	v.RegisterAlias("email_address", emailRules)
	v.RegisterAlias("password", passwordRules)
	return v
}

// invalid converts a validator failure into an ErrorValidation describing the
// first offending field.
func invalid(field string, err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return fmt.Errorf("%w: %s: %v", common.ErrorValidation, field, err)
	}
	fe := ve[0]
	if fe.Field() != "" {
		field = fe.Field()
	}
	switch fe.ActualTag() {
	case "required":
		return fmt.Errorf("%w: %s is required", common.ErrorValidation, field)
	case "email":
		return fmt.Errorf("%w: %s must be a valid email address", common.ErrorValidation, field)
	case "min":
		return fmt.Errorf("%w: %s must be at least %s characters", common.ErrorValidation, field, fe.Param())
	case "max":
		return fmt.Errorf("%w: %s must be at most %s characters", common.ErrorValidation, field, fe.Param())
	case "excludes":
		return fmt.Errorf("%w: %s must not contain %q", common.ErrorValidation, field, fe.Param())
	}
	return fmt.Errorf("%w: %s is invalid", common.ErrorValidation, field)
}
