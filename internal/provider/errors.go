package provider

import "fmt"

// ErrorKind classifies an adapter failure.
type ErrorKind int

const (
	// KindUnavailable covers transport errors, timeouts and non-2xx
	// upstream responses.
	KindUnavailable ErrorKind = iota
	// KindRejected means the upstream explicitly refused the request
	// (4xx attributable to the payload or credentials).
	KindRejected
	// KindMalformed means the upstream returned 2xx but the body could
	// not be parsed into a completion.
	KindMalformed
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindRejected:
		return "rejected"
	case KindMalformed:
		return "malformed"
	}
	return "unknown"
}

// Error is a typed adapter failure. Status and Detail capture the
// upstream response for diagnostics; callers must not leak them to
// end users.
type Error struct {
	Provider string
	Kind     ErrorKind
	Status   int    // upstream HTTP status, 0 if none
	Detail   string // upstream body or transport error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Provider, e.Kind, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Detail)
}

func Unavailable(name string, status int, detail string) *Error {
	return &Error{Provider: name, Kind: KindUnavailable, Status: status, Detail: detail}
}

func Rejected(name string, status int, detail string) *Error {
	return &Error{Provider: name, Kind: KindRejected, Status: status, Detail: detail}
}

func Malformed(name, detail string) *Error {
	return &Error{Provider: name, Kind: KindMalformed, Detail: detail}
}

// ClassifyStatus maps an upstream non-2xx status to an error kind:
// 400/401/403/404/422 mean the request itself was refused, everything
// else is treated as the backend being unavailable.
func ClassifyStatus(name string, status int, body string) *Error {
	switch status {
	case 400, 401, 403, 404, 422:
		return Rejected(name, status, body)
	default:
		return Unavailable(name, status, body)
	}
}
