// Package response holds the JSON envelope and error mapping shared by the
// HTTP handlers.
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kevin07696/billing-orchestrator/internal/domain"
	"github.com/kevin07696/billing-orchestrator/pkg/encoding"
	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies; webhook payloads are tiny
const maxBodyBytes = 64 * 1024

// Envelope is the body every endpoint answers with
type Envelope struct {
	Data      interface{} `json:"data,omitempty"`
	PaymentID string      `json:"paymentId,omitempty"`
	Message   string      `json:"message,omitempty"`
	Code      string      `json:"code,omitempty"`
	Success   bool        `json:"success"`
}

// NewValidator returns a validator that reports fields by their JSON names
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// StatusFor maps a domain error to its HTTP status
func StatusFor(err error) int {
	switch {
	case domain.IsValidationError(err):
		return http.StatusBadRequest
	case domain.IsNotFoundError(err):
		return http.StatusNotFound
	case domain.IsDeliveryInFlight(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// OK writes a 200 success envelope
func OK(w http.ResponseWriter, env Envelope) {
	env.Success = true
	_ = encoding.WriteJSON(w, http.StatusOK, env)
}

// Error writes the failure envelope for err. Server-side failures are logged
// and their details withheld from the caller.
func Error(w http.ResponseWriter, r *http.Request, err error, logger *zap.Logger) {
	status := StatusFor(err)
	env := Envelope{Code: string(domain.GetErrorCode(err))}

	var de *domain.DomainError
	if errors.As(err, &de) {
		env.Message = de.Message
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
		if env.Code == "" {
			env.Code = string(domain.ErrorCodeInternalError)
			env.Message = "internal server error"
		}
	}

	_ = encoding.WriteJSON(w, status, env)
}

// Decode reads a JSON body into dst and validates it. Problems are returned
// as validation DomainErrors.
func Decode(r *http.Request, dst interface{}, v *validator.Validate) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return domain.WrapError(domain.ErrorCodeValidationFailed, "request body is not valid JSON", err)
	}

	if err := v.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return domain.WrapError(domain.ErrorCodeValidationFailed, "request validation failed", err)
		}
		fe := verrs[0]
		field := strings.TrimPrefix(fe.Namespace(), strings.SplitN(fe.Namespace(), ".", 2)[0]+".")
		if fe.Tag() == "required" {
			return domain.NewDomainError(domain.ErrorCodeValidationMissingField, field+" is required").
				WithDetail("field", field)
		}
		return domain.NewDomainError(domain.ErrorCodeValidationFailed, fmt.Sprintf("%s failed %s", field, fe.Tag())).
			WithDetail("field", field)
	}
	return nil
}
