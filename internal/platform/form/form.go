// Package form validates dashboard form input against declarative struct-tag
// schemas and carries the edit-mode prefill contract.
package form

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/practice/dashboard/internal/platform/apiclient"
)

// Mode distinguishes creating a record from editing one.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// FieldError is one field-scoped validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Errors is the set of validation failures for a submission. It blocks the
// submission before any network call.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ErrorKind classifies Errors for the shared error taxonomy.
func (e Errors) ErrorKind() apiclient.Kind { return apiclient.KindValidation }

// ByField returns the errors keyed by field name.
func (e Errors) ByField() map[string]string {
	out := make(map[string]string, len(e))
	for _, fe := range e {
		if _, seen := out[fe.Field]; !seen {
			out[fe.Field] = fe.Message
		}
	}
	return out
}

var (
	once     sync.Once
	validate *validator.Validate

	clockRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d(:[0-5]\d)?$`)
	phoneRe = regexp.MustCompile(`^\+?[0-9 ()\-]{7,20}$`)
)

func instance() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
			return clockRe.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return phoneRe.MatchString(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// Validate checks v against its `validate` tags. It returns nil or Errors.
func Validate(v any) error {
	err := instance().Struct(v)
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
			Field:   fieldPath(fe),
			Rule:    fe.Tag(),
			Message: message(fe),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "required_with":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url", "http_url":
		return "must be a valid URL"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s items", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "clock":
		return "must be a time of day (HH:MM)"
	case "phone":
		return "must be a valid phone number"
	case "gtfield", "gtcsfield":
		return "must be after " + fe.Param()
	default:
		return "is invalid"
	}
}

// Field returns a single field-scoped failure, for checks that do not fit a
// struct tag.
func Field(field, rule, msg string) Errors {
	return Errors{{Field: field, Rule: rule, Message: msg}}
}

// View is what an edit or create form renders. In edit mode Values come from
// the fetched record; until that fetch resolves Loading is set and Values
// holds the defaults.
type View[T any] struct {
	Mode    Mode              `json:"mode"`
	ID      string            `json:"id,omitempty"`
	Loading bool              `json:"loading"`
	Values  T                 `json:"values"`
	Errors  map[string]string `json:"errors,omitempty"`
	Message string            `json:"message,omitempty"`
	Pending bool              `json:"pending"`
}

// NewCreate builds a create-mode view from defaults.
func NewCreate[T any](defaults T) View[T] {
	return View[T]{Mode: ModeCreate, Values: defaults}
}

// NewEdit builds an edit-mode view prefilled from a loaded record.
func NewEdit[T any](id string, values T) View[T] {
	return View[T]{Mode: ModeEdit, ID: id, Values: values}
}

// WithError attaches a submission failure to the view, keeping the values so
// the form stays editable.
func (v View[T]) WithError(err error) View[T] {
	var ferrs Errors
	if errors.As(err, &ferrs) {
		v.Errors = ferrs.ByField()
		return v
	}
	v.Message = apiclient.Message(err)
	return v
}
