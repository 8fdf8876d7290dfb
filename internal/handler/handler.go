package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Response is the success envelope.
type Response struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

// writeJSON writes a JSON response with the given status code. The status line is already
// sent when encoding fails, so the failure is only logged.
func writeJSON(w http.ResponseWriter, status int, data any, logger zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error().Err(err).Int("status", status).Msg("failed to encode response")
	}
}

// writeData wraps data in the success envelope.
func writeData(w http.ResponseWriter, status int, data any, logger zerolog.Logger) {
	writeJSON(w, status, Response{Success: true, Data: data}, logger)
}

// writeError writes an error envelope with the given status code and message.
func writeError(w http.ResponseWriter, status int, code, message string, logger zerolog.Logger) {
	logger.Warn().Str("error", message).Str("code", code).Int("status", status).Msg("handler error")
	writeJSON(w, status, model.ErrorResponse{Success: false, Message: message, Code: code}, logger)
}

// writeDomainError maps err to a status code. Errors without a domain code are logged and
// answered with fallback so internals never reach the client.
func writeDomainError(w http.ResponseWriter, err error, fallback string, logger zerolog.Logger) {
	var de *model.DomainError
	if !errors.As(err, &de) {
		logger.Error().Err(err).Msg("internal error")
		writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Message: fallback,
			Code:    model.ErrCodeInternalError,
		}, logger)
		return
	}

	status := statusFor(de.Code)
	if status >= http.StatusInternalServerError {
		logger.Error().Str("code", de.Code).Str("error", de.Message).Msg("request failed")
	} else {
		logger.Info().Str("code", de.Code).Str("error", de.Message).Int("status", status).Msg("request rejected")
	}
	writeJSON(w, status, model.ErrorResponse{
		Success: false,
		Message: de.Message,
		Code:    de.Code,
		Fields:  de.Fields,
	}, logger)
}

func statusFor(code string) int {
	switch code {
	case model.ErrCodeValidationFailed,
		model.ErrCodeInvalidJSON,
		model.ErrCodeMissingField,
		model.ErrCodeInvalidQuantity,
		model.ErrCodeInvalidPrice,
		model.ErrCodeInvalidStatus,
		model.ErrCodeProductNotFound,
		model.ErrCodeDeliveryMethodNotFound,
		model.ErrCodeTotalsMismatch:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorised:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeOrderNotFound, model.ErrCodeItemNotFound:
		return http.StatusNotFound
	case model.ErrCodeInsufficientStock, model.ErrCodeInvalidStatusTransition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return model.NewDomainError(model.ErrCodeInvalidJSON, "invalid request body")
	}
	return nil
}
