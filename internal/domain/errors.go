package domain

import (
	"fmt"
)

type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code, so copies produced by
// WithError still satisfy errors.Is against the sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "An unexpected error occurred",
	}

	// ErrNoFaceDetected: nenhuma face no frame atual. Recuperável,
	// o estado da sessão não é alterado.
	ErrNoFaceDetected = &AppError{
		Code:    "NO_FACE_DETECTED",
		Message: "No face detected in the current frame",
	}

	ErrMalformedFrame = &AppError{
		Code:    "MALFORMED_FRAME",
		Message: "Frame landmark data is malformed",
	}

	ErrExtractionFailed = &AppError{
		Code:    "EXTRACTION_FAILED",
		Message: "No face descriptor could be produced",
	}

	ErrExtractionInFlight = &AppError{
		Code:    "EXTRACTION_IN_FLIGHT",
		Message: "A descriptor extraction is already in progress",
	}

	ErrLivenessIncomplete = &AppError{
		Code:    "LIVENESS_INCOMPLETE",
		Message: "Liveness challenge has not been completed",
	}

	ErrVectorShape = &AppError{
		Code:    "VECTOR_SHAPE",
		Message: "Descriptor vectors cannot be compared",
	}

	ErrEmptyDescriptor = &AppError{
		Code:    "EMPTY_DESCRIPTOR",
		Message: "Face descriptor is empty",
	}

	ErrPersistence = &AppError{
		Code:    "PERSISTENCE_FAILED",
		Message: "Enrollment storage operation failed",
	}

	ErrSessionCancelled = &AppError{
		Code:    "SESSION_CANCELLED",
		Message: "Capture session was cancelled",
	}

	ErrSessionFinished = &AppError{
		Code:    "SESSION_FINISHED",
		Message: "Capture session already produced a terminal result",
	}

	ErrUnsupportedOperation = &AppError{
		Code:    "UNSUPPORTED_OPERATION",
		Message: "Operation is not supported by this detector",
	}

	ErrTooManySessions = &AppError{
		Code:    "TOO_MANY_SESSIONS",
		Message: "Session start rate limit exceeded for this owner",
	}
)
