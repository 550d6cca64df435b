package nodeconn

import "encoding/json"

const (
	frameRequest  = "req"
	frameResponse = "resp"
	frameEvent    = "event"
)

// frame is the wire unit. Requests carry an id that the response echoes;
// events carry neither id nor response.
type frame struct {
	ID   string          `json:"id,omitempty"`
	Kind string          `json:"kind"`
	Op   string          `json:"op,omitempty"`
	Body json.RawMessage `json:"body,omitempty"`
}

// ack is the body of every response frame.
type ack struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// MessageBody is implemented by every request and event payload.
type MessageBody interface {
	OpName() string
}

// CodeMessage is the application-level failure a handler returns instead of
// a response.
type CodeMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func Failed(code string, msg string) *CodeMessage {
	return &CodeMessage{
		Code:    code,
		Message: msg,
	}
}

func ReplyOK[T any](resp T) (T, *CodeMessage) {
	return resp, nil
}
