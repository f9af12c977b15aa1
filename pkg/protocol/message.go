// Package protocol defines the chat wire format: outgoing frames are raw text,
// incoming frames are either bare text or a structured {user, message} record.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// ErrMalformedPayload is returned when a frame is not a valid structured payload.
var ErrMalformedPayload = errors.New("malformed payload")

// Field names of a structured payload.
const (
	FieldUser    = "user"
	FieldMessage = "message"
)

// Frame is one discrete message received from the connection.
type Frame struct {
	Body   []byte
	Binary bool
}

// TextFrame returns a text frame carrying s.
func TextFrame(s string) Frame {
	return Frame{Body: []byte(s)}
}

// Payload is a decoded incoming frame. It is either Text or Structured.
type Payload interface {
	// DisplayLine returns the line shown in the message list.
	DisplayLine() string
	isPayload()
}

// Text is a bare text payload, displayed verbatim.
type Text struct {
	Body string
}

// DisplayLine implements Payload.
func (t Text) DisplayLine() string { return t.Body }

func (Text) isPayload() {}

// Structured is a {user, message} payload.
type Structured struct {
	User    string `json:"user"`
	Message string `json:"message"`
}

// DisplayLine implements Payload. The message comes before the user.
func (s Structured) DisplayLine() string {
	return s.Message + " " + s.User
}

func (Structured) isPayload() {}

// Encode encodes the payload as a JSON text frame body.
func (s Structured) Encode() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return data, nil
}

// EncodeBinary encodes the payload as a protobuf google.protobuf.Struct,
// the body of a structured binary frame.
func (s Structured) EncodeBinary() ([]byte, error) {
	st, err := structpb.NewStruct(map[string]any{
		FieldUser:    s.User,
		FieldMessage: s.Message,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	data, err := proto.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return data, nil
}

// Decode resolves a frame into a Payload. A structured decode is attempted
// first; any failure yields the frame body as Text. Decode never fails.
func Decode(f Frame) Payload {
	s, err := DecodeStructured(f)
	if err != nil {
		return Text{Body: string(f.Body)}
	}
	return s
}

// DecodeStructured decodes a frame as a Structured payload. Unknown fields are
// ignored. A missing or non-string user or message field is an error.
func DecodeStructured(f Frame) (Structured, error) {
	if f.Binary {
		return decodeBinary(f.Body)
	}
	return decodeJSON(f.Body)
}

// decodeJSON matches field names exactly, unlike encoding/json struct tags.
func decodeJSON(data []byte) (Structured, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Structured{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	user, err := jsonStringField(fields, FieldUser)
	if err != nil {
		return Structured{}, err
	}
	message, err := jsonStringField(fields, FieldMessage)
	if err != nil {
		return Structured{}, err
	}
	return Structured{User: user, Message: message}, nil
}

func jsonStringField(fields map[string]json.RawMessage, name string) (string, error) {
	raw, ok := fields[name]
	if !ok {
		return "", fmt.Errorf("%w: missing %s", ErrMalformedPayload, name)
	}
	var v *string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrMalformedPayload, name, err)
	}
	if v == nil {
		return "", fmt.Errorf("%w: %s is null", ErrMalformedPayload, name)
	}
	return *v, nil
}

func decodeBinary(data []byte) (Structured, error) {
	st := &structpb.Struct{}
	if err := proto.Unmarshal(data, st); err != nil {
		return Structured{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	user, ok := stringField(st, FieldUser)
	if !ok {
		return Structured{}, fmt.Errorf("%w: missing %s", ErrMalformedPayload, FieldUser)
	}
	message, ok := stringField(st, FieldMessage)
	if !ok {
		return Structured{}, fmt.Errorf("%w: missing %s", ErrMalformedPayload, FieldMessage)
	}
	return Structured{User: user, Message: message}, nil
}

func stringField(st *structpb.Struct, name string) (string, bool) {
	v, ok := st.GetFields()[name]
	if !ok {
		return "", false
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", false
	}
	return sv.StringValue, true
}
