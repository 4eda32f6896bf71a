package codec

import (
	"encoding/json"
	"errors"

	"cdcflow/apierr"
)

const (
	MethodHeartbeat        = "public/heartbeat"
	MethodRespondHeartbeat = "public/respond-heartbeat"
)

// FrameKind selects the websocket message type used to write a Frame.
type FrameKind int

const (
	FrameText FrameKind = iota
	FramePong
	FrameClose
)

func (k FrameKind) String() string {
	switch k {
	case FrameText:
		return "text"
	case FramePong:
		return "pong"
	case FrameClose:
		return "close"
	default:
		return "unknown"
	}
}

// Frame is one outbound websocket message.
type Frame struct {
	Kind    FrameKind
	Payload []byte
}

// FrameSink accepts outbound frames for a single connection.
type FrameSink interface {
	Push(Frame) error
}

// TextFrame JSON encodes v into a text frame.
func TextFrame(v any) (Frame, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Frame{}, apierr.Decode(err)
	}
	return Frame{Kind: FrameText, Payload: data}, nil
}

// Send builds req's frame and pushes it to out.
func Send(out FrameSink, req Request) error {
	frame, err := TextFrame(req)
	if err != nil {
		return err
	}
	if err := out.Push(frame); err != nil {
		var e *apierr.Error
		if errors.As(err, &e) {
			return err
		}
		return apierr.Send(err)
	}
	return nil
}

// RespondHeartbeat answers a venue heartbeat, echoing its id. The response
// carries no nonce.
func RespondHeartbeat(out FrameSink, id uint64) error {
	req, err := NewRequest().WithID(id).WithMethod(MethodRespondHeartbeat).Build()
	if err != nil {
		return err
	}
	return Send(out, req)
}
