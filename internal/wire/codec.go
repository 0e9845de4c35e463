package wire

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/notaro/notaro/internal/model"
)

var (
	// ErrUnknownType is returned by Unmarshal for an unrecognised type tag.
	ErrUnknownType = errors.New("unknown message type")

	// ErrMissingPayload is returned by Unmarshal when a message other than
	// Ack has no payload.
	ErrMissingPayload = errors.New("missing payload")
)

type envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Marshal encodes msg as a type-tagged envelope. Nil change lists encode as
// empty arrays.
func Marshal(msg Message) ([]byte, error) {
	if msg == nil {
		return nil, errors.New("marshal: nil message")
	}

	payload, err := Visit[payloadResult](msg, payloadVisitor{})()
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", msg.Type(), err)
	}
	return json.Marshal(envelope{Type: msg.Type(), Payload: payload})
}

// Unmarshal decodes an envelope produced by Marshal.
func Unmarshal(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case TypeAck:
		return Ack{}, nil
	case TypePullRequest:
		var m PullRequest
		if err := decodePayload(env, &m); err != nil {
			return nil, err
		}
		return m, nil
	case TypePullResponse:
		var m PullResponse
		if err := decodePayload(env, &m); err != nil {
			return nil, err
		}
		return m, nil
	case TypePushUpdates:
		var m PushUpdates
		if err := decodePayload(env, &m); err != nil {
			return nil, err
		}
		return m, nil
	}
	return nil, fmt.Errorf("unmarshal: %w: %q", ErrUnknownType, env.Type)
}

func decodePayload(env envelope, dst any) error {
	if len(env.Payload) == 0 || string(env.Payload) == "null" {
		return fmt.Errorf("unmarshal %s: %w", env.Type, ErrMissingPayload)
	}
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		return fmt.Errorf("unmarshal %s payload: %w", env.Type, err)
	}
	return nil
}

// payloadResult defers encoding so Visit can stay single-valued.
type payloadResult func() (json.RawMessage, error)

type payloadVisitor struct{}

func (payloadVisitor) PullRequest(m PullRequest) payloadResult {
	return encodePayload(m)
}

func (payloadVisitor) PullResponse(m PullResponse) payloadResult {
	m.Changes = nonNil(m.Changes)
	return encodePayload(m)
}

func (payloadVisitor) PushUpdates(m PushUpdates) payloadResult {
	m.Changes = nonNil(m.Changes)
	return encodePayload(m)
}

func (payloadVisitor) Ack(Ack) payloadResult {
	return func() (json.RawMessage, error) { return nil, nil }
}

func encodePayload(v any) payloadResult {
	return func() (json.RawMessage, error) {
		return json.Marshal(v)
	}
}

func nonNil(notes []model.Note) []model.Note {
	if notes == nil {
		return []model.Note{}
	}
	return notes
}
