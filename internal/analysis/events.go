package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Frame decoding errors. Both are policy signals, not failures: the channel
// drops the offending frame and the session continues.
var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrUnknownEvent   = errors.New("unknown event type")
)

// ChannelState reflects transport liveness, independent of pipeline progress.
type ChannelState string

const (
	ChannelConnecting ChannelState = "connecting"
	ChannelOpen       ChannelState = "open"
	ChannelClosed     ChannelState = "closed"
)

// Event is one notification delivered by the live update channel.
type Event interface {
	isEvent()
}

// StepUpdateEvent reports a status change for a single pipeline stage.
type StepUpdateEvent struct {
	StepID string
	Status StageStatus
	Detail string
}

// ResultEvent carries the final verdict payload.
type ResultEvent struct {
	Result Result
}

// ConnectivityEvent reports a channel lifecycle transition.
type ConnectivityEvent struct {
	State ChannelState
}

func (StepUpdateEvent) isEvent()   {}
func (ResultEvent) isEvent()       {}
func (ConnectivityEvent) isEvent() {}

// Event type discriminants on the wire.
const (
	frameStepUpdate = "step_update"
	frameResult     = "result"
)

// frame is the wire shape of an inbound websocket message.
type frame struct {
	Type   string          `json:"type"`
	StepID string          `json:"step_id"`
	Status StageStatus     `json:"status"`
	Detail string          `json:"detail"`
	Data   json.RawMessage `json:"data"`
}

// DecodeFrame parses a raw websocket frame into a typed event.
// Returns ErrMalformedFrame for unparseable input and ErrUnknownEvent for a
// parseable frame whose discriminant is not recognized; callers must treat
// both as droppable noise, never as session failures.
func DecodeFrame(data []byte) (Event, error) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	switch f.Type {
	case frameStepUpdate:
		if !f.Status.Valid() {
			return nil, fmt.Errorf("%w: status %q", ErrMalformedFrame, f.Status)
		}
		return StepUpdateEvent{
			StepID: f.StepID,
			Status: f.Status,
			Detail: f.Detail,
		}, nil

	case frameResult:
		var result Result
		if err := json.Unmarshal(f.Data, &result); err != nil {
			return nil, fmt.Errorf("%w: result payload: %v", ErrMalformedFrame, err)
		}
		return ResultEvent{Result: result}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, f.Type)
	}
}
