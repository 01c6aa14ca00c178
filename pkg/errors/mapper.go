package errors

import (
	"errors"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// Mapper maps domain errors to HTTP status codes
type Mapper struct {
	logger zerolog.Logger
}

// NewMapper creates a new error mapper
func NewMapper(logger zerolog.Logger) *Mapper {
	return &Mapper{logger: logger}
}

// StatusForKind returns the HTTP status used for a kinded error.
func StatusForKind(kind Kind) int {
	switch kind {
	case KindInvalidCredentials, KindNoChannelsConfigured:
		return fasthttp.StatusBadRequest
	case KindAuthenticationRequired:
		return fasthttp.StatusUnauthorized
	case KindInvalidVerificationCode:
		return fasthttp.StatusUnprocessableEntity
	case KindProtocolRejection:
		return fasthttp.StatusConflict
	case KindTransportFailure, KindDeploymentUnavailable:
		return fasthttp.StatusServiceUnavailable
	default:
		return fasthttp.StatusInternalServerError
	}
}

// MapErrorToHTTP maps an error to HTTP status code and message
func (m *Mapper) MapErrorToHTTP(err error) (int, string) {
	if err == nil {
		return fasthttp.StatusOK, ""
	}

	var kinded *Error
	if errors.As(err, &kinded) {
		status := StatusForKind(kinded.Kind)
		if status == fasthttp.StatusInternalServerError {
			m.logger.Error().Err(err).Msg("unclassified domain error")
		}
		return status, kinded.Error()
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return fasthttp.StatusBadRequest, validationErr.Error()
	}

	var unauthorizedErr *UnauthorizedError
	if errors.As(err, &unauthorizedErr) {
		return fasthttp.StatusUnauthorized, unauthorizedErr.Error()
	}

	var notFoundErr *NotFoundError
	if errors.As(err, &notFoundErr) {
		return fasthttp.StatusNotFound, notFoundErr.Error()
	}

	var internalErr *InternalError
	if errors.As(err, &internalErr) {
		m.logger.Error().Err(err).Msg("internal server error")
		return fasthttp.StatusInternalServerError, internalErr.message
	}

	m.logger.Error().Err(err).Msg("unknown error")
	return fasthttp.StatusInternalServerError, "internal server error"
}
