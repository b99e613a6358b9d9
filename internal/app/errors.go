package app

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrNoUpload = errors.New("no upload")

// Kind classifies where in the pipeline a request failed.
type Kind string

const (
	KindValidation Kind = "validation"
	KindPreprocess Kind = "preprocess"
	KindInference  Kind = "inference"
	KindReport     Kind = "report"
	KindTimeout    Kind = "timeout"
	KindCanceled   Kind = "canceled"
	KindInternal   Kind = "internal"
)

// StatusClientClosedRequest is reported when the caller went away mid-pipeline.
const StatusClientClosedRequest = 499

// StageError is returned by every failing pipeline stage. Message is safe to show
// to clients; Err holds the cause for logs only.
type StageError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func newStageError(kind Kind, message string, err error) *StageError {
	return &StageError{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first StageError in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Kind
	}
	return KindInternal
}

// PublicMessage returns the client-facing message for err.
func PublicMessage(err error) string {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Message
	}
	return "internal server error"
}

func (k Kind) StatusCode() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindCanceled:
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}
