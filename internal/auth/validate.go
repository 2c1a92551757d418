package auth

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// newValidator создаёт validator с именами полей из json-тегов.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return strings.ToLower(f.Name[:1]) + f.Name[1:]
		}
		return name
	})
	return v
}

// check проверяет структуру и возвращает первую ошибку как *ValidationError.
func (g *Gateway) check(v any) error {
	err := g.validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("проверка ввода: %w", err)
	}

	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return &ValidationError{Field: field, Key: "validation.required", Message: fmt.Sprintf("%s is required", field)}
	case "email":
		return &ValidationError{Field: field, Key: "validation.email", Message: "Please enter a valid email address"}
	case "eqfield":
		return &ValidationError{Field: field, Key: "validation.password_mismatch", Message: "Passwords do not match"}
	case "min":
		return &ValidationError{Field: field, Key: "validation.password_too_short", Message: fmt.Sprintf("Password must be at least %s characters", fe.Param())}
	default:
		return &ValidationError{Field: field, Key: "validation.invalid", Message: fmt.Sprintf("%s is invalid", field)}
	}
}
