package localchan

import (
	"bytes"

	"github.com/vince06fr/lightning/wire"
)

// frameMessage encodes msg with its full wire framing (2-byte length
// prefix, 2-byte type, body), the same helper gossip/frame.go provides
// for its own package — duplicated rather than exported cross-package
// since it's a three-line wrapper around wire.WriteMessage and neither
// package should depend on the other's internals.
func frameMessage(msg wire.Message) ([]byte, error) {
	var buf bytes.Buffer
	if err := wire.WriteMessage(&buf, msg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
