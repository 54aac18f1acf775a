// Package inputval wraps go-playground/validator with human-readable,
// label-aware messages. The same rules run on create and update paths.
//
// Callers list the rules for each field as a Check and First reports the
// earliest failure, so the reported error is stable across requests.
package inputval

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FieldError is one failed rule.
type FieldError struct {
	Field   string
	Tag     string // the failing rule
	Message string
}

var httpURLPattern = regexp.MustCompile(`^https?://.+`)

// IsValidHTTPURL reports whether s starts with http:// or https:// followed
// by at least one character.
func IsValidHTTPURL(s string) bool {
	return httpURLPattern.MatchString(strings.TrimSpace(s))
}

// IsValidObjectID reports whether s is a 24-char hex ObjectID.
func IsValidObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	return err == nil
}

var (
	once sync.Once
	v    *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v = validator.New()
		_ = v.RegisterValidation("httpurl", func(fl validator.FieldLevel) bool {
			return IsValidHTTPURL(fl.Field().String())
		})
		_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
			return IsValidObjectID(fl.Field().String())
		})
	})
	return v
}

// Var validates a single value against tag, naming it label in messages.
// It returns nil when the value passes.
func Var(label string, value any, tag string) *FieldError {
	err := instance().Var(value, tag)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return &FieldError{Field: label, Message: err.Error()}
	}
	fe := toFieldError(label, verrs[0])
	return &fe
}

func toFieldError(label string, fe validator.FieldError) FieldError {
	return FieldError{Field: label, Tag: fe.Tag(), Message: message(label, fe)}
}

func message(label string, fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required.", label)
	case "min", "gte":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters.", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s.", label, fe.Param())
	case "max", "lte":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters.", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s.", label, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", label, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "httpurl":
		return fmt.Sprintf("%s must be a valid URL starting with http:// or https://.", label)
	case "objectid":
		return fmt.Sprintf("%s is not a valid id.", label)
	default:
		return fmt.Sprintf("%s is invalid.", label)
	}
}

// Check is one field rule evaluated by First.
type Check struct {
	Field string // machine name reported in FieldError.Field
	Label string // human name used in the message
	Value any
	Tag   string
}

// First evaluates checks in order and returns the first failure, or nil.
func First(checks ...Check) *FieldError {
	for _, c := range checks {
		if fe := Var(c.Label, c.Value, c.Tag); fe != nil {
			fe.Field = c.Field
			return fe
		}
	}
	return nil
}
