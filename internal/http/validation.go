package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/example/lab-timetable/internal/application"
	"github.com/example/lab-timetable/internal/calendar"
)

const maxBodyBytes = 4 << 20

var requestValidator = newRequestValidator()

func newRequestValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// decodeJSON reads a JSON body into dst and validates its struct tags.
// Decoding problems return errBadRequestBody; tag violations return a
// *application.ValidationError keyed by JSON field path.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequestBody, err)
	}
	return validateStruct(dst)
}

func validateStruct(dst any) error {
	err := requestValidator.Struct(dst)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	vErr := &application.ValidationError{FieldErrors: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		vErr.FieldErrors[fieldPath(fe.Namespace())] = describeTag(fe)
	}
	return vErr
}

// fieldPath drops the leading struct name from a validator namespace.
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "gt":
		return fe.Field() + " must be greater than " + fe.Param()
	case "gte", "min":
		return fe.Field() + " must be at least " + fe.Param()
	case "lte", "max":
		return fe.Field() + " must be at most " + fe.Param()
	case "oneof":
		return fe.Field() + " must be one of " + fe.Param()
	case "datetime":
		return fe.Field() + " must use YYYY-MM-DD"
	default:
		return fe.Field() + " is invalid"
	}
}

// queryDate reads a required YYYY-MM-DD query parameter.
func queryDate(r *http.Request, name string, vErr *application.ValidationError) string {
	value := strings.TrimSpace(r.URL.Query().Get(name))
	if value == "" {
		setFieldError(vErr, name, name+" is required")
		return ""
	}
	if _, err := calendar.ParseDate(value); err != nil {
		setFieldError(vErr, name, name+" must use YYYY-MM-DD")
	}
	return value
}

// queryRoomID reads an optional positive room_id query parameter.
func queryRoomID(r *http.Request, vErr *application.ValidationError) *int {
	raw := strings.TrimSpace(r.URL.Query().Get("room_id"))
	if raw == "" {
		return nil
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		setFieldError(vErr, "room_id", "room_id must be a positive integer")
		return nil
	}
	return &id
}

func setFieldError(vErr *application.ValidationError, field, message string) {
	if vErr.FieldErrors == nil {
		vErr.FieldErrors = make(map[string]string)
	}
	vErr.FieldErrors[field] = message
}

func pathInt(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
