package wire

import "fmt"

// Visitor handles each message type. Implementations must cover all four;
// there is no fallback.
type Visitor[R any] interface {
	PullRequest(PullRequest) R
	PullResponse(PullResponse) R
	PushUpdates(PushUpdates) R
	Ack(Ack) R
}

// Visit dispatches msg to the matching Visitor method.
//
// Visit panics on a nil message or a pointer to a message, neither of which
// can be produced by Unmarshal.
func Visit[R any](msg Message, v Visitor[R]) R {
	switch m := msg.(type) {
	case PullRequest:
		return v.PullRequest(m)
	case PullResponse:
		return v.PullResponse(m)
	case PushUpdates:
		return v.PushUpdates(m)
	case Ack:
		return v.Ack(m)
	}
	panic(fmt.Sprintf("wire: cannot visit %T", msg))
}
