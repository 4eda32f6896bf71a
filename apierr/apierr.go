// Package apierr holds the single error taxonomy shared by every cdcflow
// package. Failures are classified into a Kind where they are first observed
// and travel as *Error from then on.
package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Kind classifies an Error.
type Kind int

const (
	KindUnclassified Kind = iota
	KindInvalidRequest
	KindAuthFailed
	KindDecodeFailure
	KindSendFailure
	KindUnsupportedMethod
	KindUnsupportedSubscription
	KindNumericParseFailure
	KindMissingConfiguration
)

var kindNames = map[Kind]string{
	KindUnclassified:            "unclassified",
	KindInvalidRequest:          "invalid_request",
	KindAuthFailed:              "auth_failed",
	KindDecodeFailure:           "decode_failure",
	KindSendFailure:             "send_failure",
	KindUnsupportedMethod:       "unsupported_method",
	KindUnsupportedSubscription: "unsupported_subscription",
	KindNumericParseFailure:     "numeric_parse_failure",
	KindMissingConfiguration:    "missing_configuration",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the only error type produced by cdcflow packages.
//
// Field names the missing or malformed value for InvalidRequest,
// NumericParseFailure and MissingConfiguration. Code carries the venue status
// for AuthFailed. Method, Channel and Raw retain the offending envelope for the
// two Unsupported kinds.
type Error struct {
	Kind    Kind
	Field   string
	Code    int64
	Method  string
	Channel string
	Raw     []byte
	Err     error
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindInvalidRequest:
		msg = fmt.Sprintf("missing `%s` from request", e.Field)
	case KindAuthFailed:
		msg = fmt.Sprintf("authorization failed code: `%d`", e.Code)
	case KindDecodeFailure:
		msg = "failed to decode payload"
	case KindSendFailure:
		msg = "failed to send websocket message"
	case KindUnsupportedMethod:
		msg = fmt.Sprintf("unsupported method %q", e.Method)
	case KindUnsupportedSubscription:
		msg = fmt.Sprintf("unsupported subscription channel %q", e.Channel)
	case KindNumericParseFailure:
		msg = "failed to parse number"
		if e.Field != "" {
			msg = fmt.Sprintf("failed to parse number in `%s`", e.Field)
		}
	case KindMissingConfiguration:
		msg = fmt.Sprintf("missing configuration `%s`", e.Field)
	default:
		msg = "unclassified error"
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality so that errors.Is(err, apierr.ErrSendFailure)
// matches any SendFailure regardless of its payload.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrUnclassified            = &Error{Kind: KindUnclassified}
	ErrInvalidRequest          = &Error{Kind: KindInvalidRequest}
	ErrAuthFailed              = &Error{Kind: KindAuthFailed}
	ErrDecodeFailure           = &Error{Kind: KindDecodeFailure}
	ErrSendFailure             = &Error{Kind: KindSendFailure}
	ErrUnsupportedMethod       = &Error{Kind: KindUnsupportedMethod}
	ErrUnsupportedSubscription = &Error{Kind: KindUnsupportedSubscription}
	ErrNumericParseFailure     = &Error{Kind: KindNumericParseFailure}
	ErrMissingConfiguration    = &Error{Kind: KindMissingConfiguration}
)

func InvalidRequest(field string) *Error {
	return &Error{Kind: KindInvalidRequest, Field: field}
}

func AuthFailed(code int64) *Error {
	return &Error{Kind: KindAuthFailed, Code: code}
}

func Decode(err error) *Error {
	return &Error{Kind: KindDecodeFailure, Err: err}
}

func Send(err error) *Error {
	return &Error{Kind: KindSendFailure, Err: err}
}

func UnsupportedMethod(method string, raw []byte) *Error {
	return &Error{Kind: KindUnsupportedMethod, Method: method, Raw: raw}
}

func UnsupportedSubscription(method, channel string, raw []byte) *Error {
	return &Error{Kind: KindUnsupportedSubscription, Method: method, Channel: channel, Raw: raw}
}

func NumericParse(field string, err error) *Error {
	return &Error{Kind: KindNumericParseFailure, Field: field, Err: err}
}

func MissingConfiguration(field string) *Error {
	return &Error{Kind: KindMissingConfiguration, Field: field}
}

func Unclassified(err error) *Error {
	return &Error{Kind: KindUnclassified, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindUnclassified when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnclassified
}

// Classify maps a foreign error onto the taxonomy. Errors that already carry
// a kind are returned unchanged; nil stays nil.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}

	var (
		syntaxErr    *json.SyntaxError
		typeErr      *json.UnmarshalTypeError
		unmarshalErr *json.InvalidUnmarshalError
		numErr       *strconv.NumError
	)
	switch {
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr), errors.As(err, &unmarshalErr):
		return Decode(err)
	case errors.As(err, &numErr):
		return NumericParse(numErr.Num, err)
	default:
		return Unclassified(err)
	}
}
