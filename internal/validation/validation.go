// Package validation checks raw JSON request bodies against per-entity rule sets.
// Rules are go-playground/validator tag strings applied field by field, so bodies stay
// plain maps and fields without rules pass through untouched.
package validation

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidInput is the marker error for aggregated validation failures (maps to HTTP 400).
// Field-level details are retrieved via FieldErrors(err).
var ErrInvalidInput = errors.New("invalid input")

// FieldError describes a single invalid field in a client request.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator checks one request body. An empty result means the body is acceptable.
type Validator interface {
	Validate(body map[string]any) []FieldError
}

// Rules maps a field name to its validator tag string, e.g. "required,text,max=200".
// "required" means the field must be present, non-null and, for strings, non-empty.
type Rules map[string]string

type rule struct {
	required bool
	tag      string
}

// Schema is a compiled rule set. It is immutable and safe for concurrent use.
type Schema struct {
	fields  []string
	rules   map[string]rule
	partial bool
}

var _ Validator = (*Schema)(nil)

// New compiles rules into a Schema for create requests.
func New(rules Rules) *Schema {
	s := &Schema{rules: make(map[string]rule, len(rules))}
	for field, tag := range rules {
		var r rule
		var rest []string
		for _, t := range strings.Split(tag, ",") {
			switch t = strings.TrimSpace(t); t {
			case "required":
				r.required = true
			case "", "omitempty":
			default:
				rest = append(rest, t)
			}
		}
		r.tag = strings.Join(rest, ",")
		s.rules[field] = r
		s.fields = append(s.fields, field)
	}
	sort.Strings(s.fields)
	return s
}

// Partial derives the schema for partial updates: absent fields are fine,
// supplied ones must still satisfy their rules.
func (s *Schema) Partial() *Schema {
	p := *s
	p.partial = true
	return &p
}

// Validate returns at most one FieldError per field, ordered by field name.
func (s *Schema) Validate(body map[string]any) []FieldError {
	var out []FieldError
	for _, field := range s.fields {
		r := s.rules[field]
		value, present := body[field]

		var msg string
		switch {
		case !present:
			if r.required && !s.partial {
				msg = "is required"
			}
		case value == nil:
			if r.required {
				msg = "is required"
				if s.partial {
					msg = "cannot be null"
				}
			}
		case r.required && value == "":
			msg = "is required"
		case r.tag != "":
			msg = check(value, r.tag)
		}
		if msg != "" {
			out = append(out, FieldError{Field: field, Message: msg})
		}
	}
	return out
}

// Check runs v against body and wraps any failures into an error carrying them.
func Check(v Validator, body map[string]any) error {
	if v == nil {
		return nil
	}
	return NewInvalidInput(v.Validate(body))
}

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New()
	for tag, fn := range customTags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("validation: register %q: %v", tag, err))
		}
	}
	return v
}

// customTags are the type checks used by entity rules on top of the built-in tags.
var customTags = map[string]validator.Func{
	"text": func(fl validator.FieldLevel) bool {
		return fl.Field().Kind() == reflect.String
	},
	"integer": func(fl validator.FieldLevel) bool {
		f := fl.Field()
		switch f.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return true
		case reflect.Float32, reflect.Float64:
			return f.Float() == math.Trunc(f.Float())
		}
		return false
	},
	"object": func(fl validator.FieldLevel) bool {
		return fl.Field().Kind() == reflect.Map
	},
}

// check runs one tag string against a value. Built-in validators panic on kinds they
// don't support (e.g. datetime on a number); that is reported as a type error.
func check(value any, tag string) (msg string) {
	defer func() {
		if recover() != nil {
			msg = "has an invalid type"
		}
	}()
	err := validate.Var(value, tag)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return message(verrs[0])
	}
	return "is invalid"
}

func message(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "text":
		return "must be a string"
	case "integer":
		return "must be an integer"
	case "object":
		return "must be an object"
	case "email":
		return "must be a valid email address"
	case "url", "http_url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(fe.Param()), ", ")
	case "datetime":
		return fmt.Sprintf("must be a date in the format %s", fe.Param())
	case "numeric", "number":
		return "must be numeric"
	case "len":
		if isString {
			return fmt.Sprintf("must be exactly %s characters long", fe.Param())
		}
		return fmt.Sprintf("must have exactly %s items", fe.Param())
	case "min", "gte":
		if isString {
			return fmt.Sprintf("must be at least %s characters long", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max", "lte":
		if isString {
			return fmt.Sprintf("must be at most %s characters long", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "lt":
		return "must be less than " + fe.Param()
	case "base64":
		return "must be base64 encoded"
	case "e164":
		return "must be a phone number in E.164 format"
	}
	return fmt.Sprintf("failed the '%s' rule", fe.Tag())
}
