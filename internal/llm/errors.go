package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Kind classifies a provider failure.
type Kind string

const (
	// KindAuth: invalid or missing credential. Not retryable.
	KindAuth Kind = "auth"
	// KindRateLimit: upstream throttled the call. The caller may back off
	// and retry; providers never retry it themselves.
	KindRateLimit Kind = "rate_limit"
	// KindBadRequest: the input was rejected (oversized image, bad encoding).
	KindBadRequest Kind = "bad_request"
	// KindEmptyResponse: the call succeeded but carried no content.
	KindEmptyResponse Kind = "empty_response"
	// KindUnavailable: transport failure or 5xx.
	KindUnavailable Kind = "unavailable"
)

var (
	ErrAuth          = errors.New("model authentication failed")
	ErrRateLimit     = errors.New("model rate limit exceeded")
	ErrBadRequest    = errors.New("model rejected the request")
	ErrEmptyResponse = errors.New("model returned no content")
	ErrUnavailable   = errors.New("model service unavailable")
)

func (k Kind) sentinel() error {
	switch k {
	case KindAuth:
		return ErrAuth
	case KindRateLimit:
		return ErrRateLimit
	case KindBadRequest:
		return ErrBadRequest
	case KindEmptyResponse:
		return ErrEmptyResponse
	default:
		return ErrUnavailable
	}
}

// Error is returned by every Provider on failure.
type Error struct {
	Kind       Kind
	Provider   string
	StatusCode int
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Provider)
	b.WriteString(": ")
	b.WriteString(e.Kind.sentinel().Error())
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for e.Kind, so errors.Is(err, ErrRateLimit)
// works through any amount of wrapping.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// NewError builds an Error of the given kind.
func NewError(provider string, kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Provider: provider, Message: message, Err: cause}
}

// KindOf reports the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// RetryAfter returns the upstream-suggested wait, if any.
func RetryAfter(err error) time.Duration {
	var e *Error
	if errors.As(err, &e) {
		return e.RetryAfter
	}
	return 0
}

// FromStatus classifies a non-2xx HTTP response.
func FromStatus(provider string, status int, body []byte, header http.Header) *Error {
	e := &Error{
		Provider:   provider,
		StatusCode: status,
		Message:    errorMessage(body),
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind = KindAuth
	case status == http.StatusTooManyRequests:
		e.Kind = KindRateLimit
		e.RetryAfter = parseRetryAfter(header)
	case status == http.StatusBadRequest,
		status == http.StatusNotFound,
		status == http.StatusRequestEntityTooLarge,
		status == http.StatusUnsupportedMediaType,
		status == http.StatusUnprocessableEntity:
		e.Kind = KindBadRequest
	default:
		e.Kind = KindUnavailable
	}
	return e
}

// ClassifyMessage guesses a Kind from an error string, for SDKs that do
// not expose a status code.
func ClassifyMessage(msg string) Kind {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "api key not valid"),
		strings.Contains(lower, "unauthenticated"),
		strings.Contains(lower, "permission denied"),
		strings.Contains(lower, "permissiondenied"),
		strings.Contains(lower, "401"),
		strings.Contains(lower, "403"):
		return KindAuth
	case strings.Contains(lower, "429"),
		strings.Contains(lower, "quota"),
		strings.Contains(lower, "rate limit"),
		strings.Contains(lower, "resource_exhausted"),
		strings.Contains(lower, "resourceexhausted"):
		return KindRateLimit
	case strings.Contains(lower, "invalid_argument"),
		strings.Contains(lower, "invalidargument"),
		strings.Contains(lower, "400"),
		strings.Contains(lower, "413"):
		return KindBadRequest
	default:
		return KindUnavailable
	}
}

func errorMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > 512 {
		msg = msg[:512] + "..."
	}
	return msg
}

func parseRetryAfter(header http.Header) time.Duration {
	if header == nil {
		return 0
	}
	v := header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
