package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/dandantas/adbfleet/internal/device"
	"github.com/dandantas/adbfleet/internal/metadata"
	"github.com/dandantas/adbfleet/internal/model"
	"github.com/dandantas/adbfleet/internal/service"
	"github.com/go-playground/validator/v10"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}

// writeServiceError maps domain errors onto HTTP statuses
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrJobNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrDeviceNotReady):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrSessionActive):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidDeviceName), errors.Is(err, metadata.ErrInvalidChannel):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, metadata.ErrNoChannelVideos):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, device.ErrUnavailable), errors.Is(err, service.ErrShuttingDown), errors.Is(err, service.ErrChannelsDisabled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// normalizer is implemented by requests that clean up their input before validation
type normalizer interface {
	normalize()
}

// trimEntries trims every entry and drops the blank ones. An all-blank list becomes nil.
func trimEntries(entries []string) []string {
	var kept []string
	for _, e := range entries {
		if e = strings.TrimSpace(e); e != "" {
			kept = append(kept, e)
		}
	}
	return kept
}

// decodeRequest decodes a JSON body into dst, normalizes it and validates its
// struct tags. It writes the 400 response itself and reports false on failure.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}

	err := validate.Struct(dst)
	if err == nil {
		return true
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}

	fields := make(map[string]string, len(validationErrs))
	for _, e := range validationErrs {
		fields[fieldPath(e)] = validationMessage(e)
	}
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   http.StatusText(http.StatusBadRequest),
		Message: "Request validation failed",
		Fields:  fields,
	})
	return false
}

// fieldPath drops the struct name from the namespace: "req.devices[0]" -> "devices[0]"
func fieldPath(e validator.FieldError) string {
	_, path, found := strings.Cut(e.Namespace(), ".")
	if !found {
		return e.Field()
	}
	return path
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "required_without":
		return "is required"
	case "min":
		return "must contain at least " + e.Param() + " item(s)"
	case "max":
		return "must be at most " + e.Param() + " characters"
	case "url":
		return "must be a valid URL"
	case "gt":
		return "must be greater than " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	}
	return "is invalid (" + e.Tag() + ")"
}

// parseQueryBool parses a boolean query parameter
func parseQueryBool(r *http.Request, key string) *bool {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil
	}

	boolValue := value == "true" || value == "1"
	return &boolValue
}
