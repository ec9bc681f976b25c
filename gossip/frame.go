package gossip

import (
	"bytes"

	"github.com/vince06fr/lightning/wire"
)

// frameMessage encodes msg with its full wire framing (2-byte length
// prefix, 2-byte type, body) so the result can be handed directly to a
// peer's outbound queue, or compared against the cached bytes ingestion
// stores for replayed announcements and updates.
func frameMessage(msg wire.Message) ([]byte, error) {
	var buf bytes.Buffer
	if err := wire.WriteMessage(&buf, msg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
