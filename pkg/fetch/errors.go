package fetch

import (
	"errors"
	"fmt"
)

// Kind classifies why a fetch failed.
type Kind int

const (
	// KindTransport covers DNS, TLS, connection, timeout and cancellation failures.
	KindTransport Kind = iota + 1
	// KindMalformedPayload means the body arrived completely but is not valid JSON.
	KindMalformedPayload
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport_error"
	case KindMalformedPayload:
		return "malformed_payload"
	default:
		return "unknown"
	}
}

var (
	// ErrTransport matches any *FetchError of KindTransport via errors.Is.
	ErrTransport = errors.New("transport error")
	// ErrMalformedPayload matches any *FetchError of KindMalformedPayload via errors.Is.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrRequestUsed is returned when Do is called on a Request more than once.
	ErrRequestUsed = errors.New("request already executed")
)

// FetchError is the failure outcome of a Request.
type FetchError struct {
	Kind       Kind
	URL        string
	StatusCode int
	// Raw is the complete body, set for KindMalformedPayload only.
	Raw []byte
	Err error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindMalformedPayload:
		return fmt.Sprintf("malformed payload from %s (status %d): %v; body: %s", e.URL, e.StatusCode, e.Err, Describe(e.Raw))
	default:
		return fmt.Sprintf("transport error fetching %s: %v", e.URL, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is matches the ErrTransport and ErrMalformedPayload sentinels by kind.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrMalformedPayload:
		return e.Kind == KindMalformedPayload
	default:
		return false
	}
}

// KindOf returns the kind of a fetch failure, or 0 when err is not a *FetchError.
func KindOf(err error) Kind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}
