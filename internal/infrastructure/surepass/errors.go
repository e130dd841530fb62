package surepass

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind is the normalized vendor failure category
type Kind string

const (
	KindRateLimited  Kind = "rate_limited"
	KindBadRequest   Kind = "bad_request"
	KindUnauthorized Kind = "unauthorized"
	KindUnavailable  Kind = "vendor_unavailable"
	KindUnknown      Kind = "unknown"
)

// FaceReason refines a face endpoint failure into something a worker can act on
type FaceReason string

const (
	ReasonNone           FaceReason = ""
	ReasonNoFaceDetected FaceReason = "no_face_detected"
	ReasonMultipleFaces  FaceReason = "multiple_faces"
	ReasonLivenessFailed FaceReason = "liveness_failed"
)

// Error is every failure returned by Client. StatusCode is 0 when no HTTP
// response was received.
type Error struct {
	Kind       Kind
	Endpoint   string
	StatusCode int
	Message    string
	Reason     FaceReason
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("surepass %s [%s %d]: %s: %v", e.Endpoint, e.Kind, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("surepass %s [%s %d]: %s", e.Endpoint, e.Kind, e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError extracts a vendor error from err's chain
func AsError(err error) (*Error, bool) {
	var ve *Error
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// KindOf returns the vendor error kind of err, or KindUnknown
func KindOf(err error) Kind {
	if ve, ok := AsError(err); ok {
		return ve.Kind
	}
	return KindUnknown
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return KindBadRequest
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindUnauthorized
	case status == 0, status >= 500:
		return KindUnavailable
	}
	return KindUnknown
}

// faceReason reads the vendor's free-text message. This is the only place
// the message text is inspected.
func faceReason(message string) FaceReason {
	m := strings.ToLower(message)
	switch {
	case strings.Contains(m, "multiple face"), strings.Contains(m, "more than one face"):
		return ReasonMultipleFaces
	case strings.Contains(m, "no face"), strings.Contains(m, "face not detected"), strings.Contains(m, "face not found"):
		return ReasonNoFaceDetected
	case strings.Contains(m, "liveness"), strings.Contains(m, "spoof"), strings.Contains(m, "not live"):
		return ReasonLivenessFailed
	}
	return ReasonNone
}
