package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// TelemetryCreateRequest mirrors the POST /telemetry body. Altitude and
// velocity are pointers so an explicit 0 reaches the gt check instead of
// being reported as missing.
type TelemetryCreateRequest struct {
	SatelliteID string   `json:"satelliteId" binding:"required,min=1,max=64"`
	Timestamp   string   `json:"timestamp" binding:"required"`
	Altitude    *float64 `json:"altitude" binding:"required,gt=0"`
	Velocity    *float64 `json:"velocity" binding:"required,gt=0"`
	Status      string   `json:"status" binding:"required,oneof=healthy critical"`
}

// FieldError names one failing field in a 422 response.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func init() {
	// Отдаём клиенту имена json-полей, а не имена полей структуры
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

func fieldErrorsFromBinding(err error) []FieldError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, FieldError{
				Field:   fe.Field(),
				Message: messageForTag(fe),
			})
		}
		return fields
	}

	var uterr *json.UnmarshalTypeError
	if errors.As(err, &uterr) && uterr.Field != "" {
		return []FieldError{{
			Field:   uterr.Field,
			Message: fmt.Sprintf("must be a valid %s", uterr.Type.Kind()),
		}}
	}

	return []FieldError{{Field: "body", Message: "must be a valid JSON object"}}
}

func messageForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "oneof":
		return "must be one of: healthy, critical"
	default:
		return "is invalid"
	}
}

// parseTimestamp accepts RFC 3339 (with or without fractional seconds) and
// the zone-less form the API has always taken; zone-less values are UTC.
func parseTimestamp(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05.999999999", value, time.UTC); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid timestamp: %q", value)
}
