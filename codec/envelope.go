// Package codec encodes outbound commands and decodes inbound envelopes for
// the exchange websocket protocol.
package codec

import (
	"encoding/json"
	"errors"
	"unicode/utf8"

	"cdcflow/apierr"
)

// NoID is the id carried by envelopes that do not answer a request.
const NoID int64 = -1

var errInvalidUTF8 = errors.New("binary frame is not valid utf-8")

// Envelope is the generic shape shared by every inbound frame. Result is kept
// raw until the frame has been classified.
type Envelope struct {
	ID            int64           `json:"id"`
	Method        string          `json:"method"`
	Result        json.RawMessage `json:"result,omitempty"`
	Code          *int64          `json:"code,omitempty"`
	Message       *string         `json:"message,omitempty"`
	Original      *string         `json:"original,omitempty"`
	DetailCode    *string         `json:"detail_code,omitempty"`
	DetailMessage *string         `json:"detail_message,omitempty"`
}

// Succeeded reports whether the venue accepted the request: code absent or 0.
func (e *Envelope) Succeeded() bool {
	return e.Code == nil || *e.Code == 0
}

// StatusCode returns the status code, 0 when absent.
func (e *Envelope) StatusCode() int64 {
	if e.Code == nil {
		return 0
	}
	return *e.Code
}

// HasResult reports whether a non-null result was sent.
func (e *Envelope) HasResult() bool {
	return len(e.Result) > 0 && string(e.Result) != "null"
}

// DecodeText decodes a text frame into an Envelope.
func DecodeText(data []byte) (*Envelope, error) {
	env := &Envelope{ID: NoID}
	if err := json.Unmarshal(data, env); err != nil {
		return nil, apierr.Decode(err)
	}
	return env, nil
}

// DecodeBinary decodes a binary frame. The payload must be valid UTF-8 JSON.
func DecodeBinary(data []byte) (*Envelope, error) {
	if !utf8.Valid(data) {
		return nil, apierr.Decode(errInvalidUTF8)
	}
	return DecodeText(data)
}

// Subscription is the nested result carried by "subscribe" pushes. Channel
// selects the payload decoder; Data stays raw.
type Subscription struct {
	Channel        string          `json:"channel"`
	Subscription   string          `json:"subscription"`
	InstrumentName string          `json:"instrument_name,omitempty"`
	Interval       string          `json:"interval,omitempty"`
	Depth          *uint64         `json:"depth,omitempty"`
	T              *uint64         `json:"t,omitempty"`
	Data           json.RawMessage `json:"data,omitempty"`
}

// ParseSubscription decodes the result of a subscribe envelope.
func ParseSubscription(result json.RawMessage) (*Subscription, error) {
	var sub Subscription
	if err := json.Unmarshal(result, &sub); err != nil {
		return nil, apierr.Decode(err)
	}
	return &sub, nil
}
