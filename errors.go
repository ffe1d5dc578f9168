package menulens

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrMissingCredentials is returned when a provider has no API key or service account.
	ErrMissingCredentials = errors.New("missing credentials")
	// ErrTimeout is returned when a provider call exceeds its time budget.
	ErrTimeout = errors.New("provider timeout")
	// ErrTransport covers connection-level failures other than timeouts.
	ErrTransport = errors.New("provider transport failure")
	// ErrUnexpectedEnvelope is returned when a provider answered without the
	// candidates/choices/textAnnotations structure we read text from.
	ErrUnexpectedEnvelope = errors.New("unexpected provider envelope")
	ErrNoImage            = errors.New("either image or image_url must be provided")
	ErrInvalidImage       = errors.New("image payload is not valid base64")
	ErrNoDishes           = errors.New("no dishes provided")
	ErrImageFetch         = errors.New("image_url could not be fetched")
	ErrNoText             = errors.New("text must be provided")
)

// StatusError is returned when a provider answers with a non-2xx status.
type StatusError struct {
	Provider string
	Code     int
	Body     string // excerpt only
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s api error: status %d", e.Provider, e.Code)
	}
	return fmt.Sprintf("%s api error: status %d: %s", e.Provider, e.Code, e.Body)
}

// ContractErrorKind distinguishes unparseable output from schema mismatches.
type ContractErrorKind string

const (
	MalformedJSON   ContractErrorKind = "malformed_json"
	SchemaViolation ContractErrorKind = "schema_violation"
	CountMismatch   ContractErrorKind = "count_mismatch"
)

// ContractError reports provider output that could not be coerced into the
// response contract. It carries the text length, never the text itself.
type ContractError struct {
	Kind   ContractErrorKind
	Length int
	Err    error
}

func (e *ContractError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("response contract: %s (%d bytes): %v", e.Kind, e.Length, e.Err)
	}
	return fmt.Sprintf("response contract: %s (%d bytes)", e.Kind, e.Length)
}

func (e *ContractError) Unwrap() error { return e.Err }

// ErrorClass is the coarse taxonomy surfaced to callers.
type ErrorClass string

const (
	ClassNone          ErrorClass = ""
	ClassConfiguration ErrorClass = "configuration"
	ClassTransport     ErrorClass = "transport"
	ClassContract      ErrorClass = "contract"
	ClassSemantic      ErrorClass = "provider_semantic"
	ClassInput         ErrorClass = "input"
)

// Classify maps an error onto the taxonomy. Semantic errors are reported
// separately but handled like transport failures.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassNone
	}
	var ce *ContractError
	var se *StatusError
	switch {
	case errors.Is(err, ErrNoImage), errors.Is(err, ErrInvalidImage), errors.Is(err, ErrNoDishes), errors.Is(err, ErrImageFetch), errors.Is(err, ErrNoText):
		return ClassInput
	case errors.Is(err, ErrMissingCredentials):
		return ClassConfiguration
	case errors.As(err, &ce):
		return ClassContract
	case errors.Is(err, ErrUnexpectedEnvelope):
		return ClassSemantic
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrTransport), errors.As(err, &se):
		return ClassTransport
	}
	return ClassTransport
}

// wrapTransport normalizes a failed call into ErrTimeout or ErrTransport.
func wrapTransport(provider string, err error) error {
	if err == nil {
		return nil
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return fmt.Errorf("%s: %w: %v", provider, ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w: %v", provider, ErrTransport, err)
}

// excerpt trims a response body for diagnostics.
func excerpt(b []byte) string {
	const limit = 256
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
