// Package validator wraps go-playground/validator with JSON field names,
// a notblank tag and readable messages listed in struct field order.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate = newValidate()

	customMu       sync.RWMutex
	customMessages = map[string]string{}
)

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	// notblank is required for strings that also rejects whitespace.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		f := fl.Field()
		if f.Kind() == reflect.String {
			return strings.TrimSpace(f.String()) != ""
		}
		return !f.IsZero()
	})

	return v
}

// MustRegister adds a validation tag and the message shown when a field
// fails it. It panics if the tag cannot be registered.
func MustRegister(tag string, fn validator.Func, message string) {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
	customMu.Lock()
	customMessages[tag] = message
	customMu.Unlock()
}

// Validate checks s against its `validate` tags. Rule violations come back
// as *ValidationError.
func Validate(s any) error {
	err := validate.Struct(s)
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return &ValidationError{Errors: fieldErrs}
	}
	return err
}

// ValidationError lists every violated rule of one struct.
type ValidationError struct {
	Errors validator.ValidationErrors
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("field '%s' %s", fe.Field(), message(fe)))
	}
	return strings.Join(msgs, "; ")
}

// Fields maps each failing field to its message.
func (e *ValidationError) Fields() map[string]string {
	fields := make(map[string]string, len(e.Errors))
	for _, fe := range e.Errors {
		fields[fe.Field()] = message(fe)
	}
	return fields
}

// Messages returns one sentence per violation, such as "style is required".
func (e *ValidationError) Messages() []string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Field()+" "+message(fe))
	}
	return msgs
}

var tagMessages = map[string]func(fe validator.FieldError) string{
	"required": func(validator.FieldError) string { return "is required" },
	"notblank": func(validator.FieldError) string { return "is required" },
	"min":      func(fe validator.FieldError) string { return bound("at least", fe) },
	"max":      func(fe validator.FieldError) string { return bound("at most", fe) },
	"gte":      func(fe validator.FieldError) string { return "must be greater than or equal to " + fe.Param() },
	"lte":      func(fe validator.FieldError) string { return "must be less than or equal to " + fe.Param() },
	"oneof":    func(fe validator.FieldError) string { return "must be one of: " + fe.Param() },
}

func message(fe validator.FieldError) string {
	customMu.RLock()
	custom, ok := customMessages[fe.Tag()]
	customMu.RUnlock()
	if ok {
		return custom
	}
	if render, ok := tagMessages[fe.Tag()]; ok {
		return render(fe)
	}
	return fmt.Sprintf("failed on '%s' validation", fe.Tag())
}

// bound words min/max: a length for strings and slices, a value for numbers.
func bound(prefix string, fe validator.FieldError) string {
	switch fe.Kind() {
	case reflect.String:
		return fmt.Sprintf("must be %s %s characters", prefix, fe.Param())
	case reflect.Slice, reflect.Array, reflect.Map:
		return fmt.Sprintf("must have %s %s items", prefix, fe.Param())
	default:
		return fmt.Sprintf("must be %s %s", prefix, fe.Param())
	}
}
