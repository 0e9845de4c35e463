package replica

import (
	"context"

	"github.com/notaro/notaro/internal/wire"
)

// EncodedPeer sends every message through the JSON codec before it reaches
// the handler, and decodes the reply, as a network transport would.
type EncodedPeer struct {
	Handler *Handler
}

// Exchange implements Peer.
func (p EncodedPeer) Exchange(ctx context.Context, msg wire.Message) (wire.Message, error) {
	data, err := wire.Marshal(msg)
	if err != nil {
		return nil, err
	}
	out, err := p.Handler.HandleBytes(ctx, data)
	if err != nil || out == nil {
		return nil, err
	}
	return wire.Unmarshal(out)
}
