package wire

import "github.com/notaro/notaro/internal/model"

// MessageType is the envelope tag of a message.
type MessageType string

const (
	TypePullRequest  MessageType = "PullRequest"
	TypePullResponse MessageType = "PullResponse"
	TypePushUpdates  MessageType = "PushUpdates"
	TypeAck          MessageType = "Ack"
)

// Message is one of PullRequest, PullResponse, PushUpdates or Ack.
// Messages are passed by value; the set cannot be extended outside this
// package.
type Message interface {
	Type() MessageType
	message()
}

// PullRequest asks a peer for every record newer than SinceVersion.
type PullRequest struct {
	SinceVersion int64 `json:"since_version" validate:"min=0"`
}

// PullResponse answers a PullRequest with the matching records and the
// responder's current version.
type PullResponse struct {
	Changes        []model.Note `json:"changes" validate:"dive"`
	CurrentVersion int64        `json:"current_version" validate:"min=0"`
}

// PushUpdates sends unsolicited records to a peer.
type PushUpdates struct {
	Changes []model.Note `json:"changes" validate:"dive"`
}

// Ack confirms that a batch was applied. It has no payload.
type Ack struct{}

func (PullRequest) Type() MessageType  { return TypePullRequest }
func (PullResponse) Type() MessageType { return TypePullResponse }
func (PushUpdates) Type() MessageType  { return TypePushUpdates }
func (Ack) Type() MessageType          { return TypeAck }

func (PullRequest) message()  {}
func (PullResponse) message() {}
func (PushUpdates) message()  {}
func (Ack) message()          {}

// Changes returns the records a message carries, or nil for messages that
// carry none.
func Changes(msg Message) []model.Note {
	return Visit[[]model.Note](msg, changesVisitor{})
}

type changesVisitor struct{}

func (changesVisitor) PullRequest(PullRequest) []model.Note    { return nil }
func (changesVisitor) PullResponse(m PullResponse) []model.Note { return m.Changes }
func (changesVisitor) PushUpdates(m PushUpdates) []model.Note   { return m.Changes }
func (changesVisitor) Ack(Ack) []model.Note                     { return nil }
