package handler

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aqoutlook/aqoutlook/internal/api/models"
)

// newValidator returns a validator that reports fields by their query name.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("query"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// queryParser collects parse errors for typed query parameters.
type queryParser struct {
	values url.Values
	errs   []models.FieldError
}

func newQueryParser(values url.Values) *queryParser {
	return &queryParser{values: values}
}

func (p *queryParser) str(name string) string {
	return strings.TrimSpace(p.values.Get(name))
}

// float returns nil when the parameter is absent.
func (p *queryParser) float(name string) *float64 {
	raw := p.str(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(name, "must be a number")
		return nil
	}
	return &v
}

// int returns def when the parameter is absent.
func (p *queryParser) int(name string, def int) int {
	raw := p.str(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(name, "must be an integer")
		return def
	}
	return v
}

func (p *queryParser) int64(name string) int64 {
	raw := p.str(name)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		p.fail(name, "must be an integer")
		return 0
	}
	return v
}

func (p *queryParser) fail(name, message string) {
	p.errs = append(p.errs, models.FieldError{Field: name, Message: message, Code: "INVALID_TYPE"})
}

// validate returns parse errors first, then struct validation errors.
func validate(v *validator.Validate, p *queryParser, dto any) []models.FieldError {
	if len(p.errs) > 0 {
		return p.errs
	}
	err := v.Struct(dto)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []models.FieldError{{Field: "query", Message: err.Error(), Code: "INVALID"}}
	}

	out := make([]models.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, models.FieldError{
			Field:   fe.Field(),
			Message: fieldMessage(fe),
			Code:    strings.ToUpper(fe.Tag()),
		})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_with":
		return "is required"
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
