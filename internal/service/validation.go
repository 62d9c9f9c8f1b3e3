package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/listing-platform/internal/apperror"
)

var usernameRe = regexp.MustCompile(`^[\w.@+-]+$`)

// Validator wraps go-playground/validator. It satisfies echo.Validator and
// reports failures as apperror validation errors keyed by JSON field name.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query", "param"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRe.MatchString(fl.Field().String())
	})
	return &Validator{v: v}
}

// Validate checks struct tags on i.
func (v *Validator) Validate(i any) error {
	err := v.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperror.Validation(err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return apperror.Validation(strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	f := fe.Field()
	switch fe.Tag() {
	case "required":
		return f + ": this field is required"
	case "email":
		return f + ": enter a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s: must be at least %s characters", f, fe.Param())
		}
		return fmt.Sprintf("%s: must be at least %s", f, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s: must be at most %s characters", f, fe.Param())
		}
		return fmt.Sprintf("%s: must be at most %s", f, fe.Param())
	case "username":
		return f + ": may contain only letters, numbers, and @/./+/-/_ characters"
	default:
		return fmt.Sprintf("%s: failed %s validation", f, fe.Tag())
	}
}
