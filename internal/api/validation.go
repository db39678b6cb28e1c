package api

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"catalog-builder-service/internal/slug"
)

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	// Prices validate as numbers so gte/lte apply.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	if err := v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slug.Valid(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// validationDetails maps each failing field, addressed by its JSON path
// (e.g. "social_links[1].url"), to the rule it broke.
func validationDetails(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		details[field] = rule
	}
	return details
}

func respondWithValidationError(w http.ResponseWriter, err error) {
	details := validationDetails(err)
	if details == nil {
		zap.S().Errorf("validator failed unexpectedly: %v", err)
		respondWithError(w, http.StatusBadRequest, "Validation failed")
		return
	}
	respondWithJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Validation failed", Details: details})
}

func respondWithFieldError(w http.ResponseWriter, field, rule string) {
	respondWithJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   "Validation failed",
		Details: map[string]string{field: rule},
	})
}

// resolveSlug picks the slug for a write. A non-blank explicit slug wins and
// must already be normalized. Without one, creates derive it from name and
// updates keep current.
func resolveSlug(w http.ResponseWriter, explicit *string, name, current string) (string, bool) {
	var a slug.AutoSlug
	if current != "" {
		a.SetSlug(current)
	}
	a.SetName(name)
	if s := trimmedOrNil(explicit); s != nil {
		a.SetSlug(*s)
	}
	if !slug.Valid(a.Value()) {
		respondWithFieldError(w, "slug", "slug")
		return "", false
	}
	return a.Value(), true
}

// normalizeInput trims every exported string reachable from v through
// structs, slices and pointers. Optional strings that end up blank become nil,
// so "omitempty" rules skip them and "required" rejects whitespace.
func normalizeInput(v reflect.Value) {
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return
		}
		elem := v.Elem()
		normalizeInput(elem)
		if elem.Kind() == reflect.String && elem.Len() == 0 && v.CanSet() {
			v.Set(reflect.Zero(v.Type()))
		}
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			if t.Field(i).IsExported() {
				normalizeInput(v.Field(i))
			}
		}
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			normalizeInput(v.Index(i))
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(strings.TrimSpace(v.String()))
		}
	}
}

// trimmedOrNil turns blank optional strings into NULLs.
func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
