// Package validate checks console forms before they are submitted.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"werss_bot/internal/cronexpr"
)

var mpIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_=-]+$`)

// messages override the generic text for specific field and tag pairs.
var messages = map[string]string{
	"mp_name.required":         "Please enter the account name.",
	"mp_name.min":              "Account name must be 2 to 30 characters.",
	"mp_name.max":              "Account name must be 2 to 30 characters.",
	"mp_id.required":           "Please enter the account ID.",
	"mp_id.mpid":               "Account ID may only contain letters, digits, _, = and -.",
	"avatar.required":          "Please provide an avatar URL.",
	"avatar.httpprefix":        "Avatar must be a URL starting with http.",
	"mp_intro.max":             "Intro must be at most 200 characters.",
	"cover.httpprefix":         "Cover must be a URL starting with http.",
	"cron_exp.required":        "Please enter a cron expression.",
	"cron_exp.cron":            "Cron expression must have 5 valid fields, e.g. */30 * * * *.",
	"web_hook_url.required_if": "A webhook URL is required for webhook tasks.",
	"formats.min":              "Select at least one export format.",
	"permissions.oneof":        "Permission must be read or read_write.",
}

// FieldError is one failed rule.
type FieldError struct {
	Field   string
	Tag     string
	Message string
}

// Errors is the list of failed rules for one form.
type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, fe := range e {
		msgs = append(msgs, fe.Message)
	}
	return strings.Join(msgs, "\n")
}

// Validator checks structs tagged with `validate` rules.
type Validator struct {
	v *validator.Validate
}

// New returns a Validator with the console's custom rules registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return strings.ToLower(f.Name)
		}
		return name
	})
	must(v.RegisterValidation("mpid", func(fl validator.FieldLevel) bool {
		return mpIDPattern.MatchString(fl.Field().String())
	}))
	must(v.RegisterValidation("httpprefix", func(fl validator.FieldLevel) bool {
		return strings.HasPrefix(fl.Field().String(), "http")
	}))
	must(v.RegisterValidation("cron", func(fl validator.FieldLevel) bool {
		return cronexpr.Validate(fl.Field().String()) == nil
	}))
	return &Validator{v: v}
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// Struct validates s and returns Errors when any rule fails.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}
	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: message(fe),
		})
	}
	return out
}

func message(fe validator.FieldError) string {
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	field := fe.Field()
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required.", field)
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s needs at least %s entries.", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters.", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "httpprefix":
		return fmt.Sprintf("%s must start with http.", field)
	default:
		return fmt.Sprintf("%s is invalid.", field)
	}
}
