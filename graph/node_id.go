// Package graph implements the in-memory routing graph: channels, nodes,
// and the append-only broadcast log that fans accepted gossip out to
// peers. It is the external-collaborator boundary the peer session and
// daemon controller consume through a small set of typed ingestion
// entry points; everything here is single-owner state mutated only by
// the controller's event loop (see concurrency model).
package graph

import (
	"bytes"
	"encoding/hex"
)

// NodeID is a node's 33-byte compressed public key. Equality and byte
// order define identity and the canonical ordering used to uniquify node
// lists during scid-query replies.
type NodeID [33]byte

// Less reports whether n sorts before other under byte-lexicographic
// order, matching uniquify_node_ids's pubkey_order in the original
// gossipd.
func (n NodeID) Less(other NodeID) bool {
	return bytes.Compare(n[:], other[:]) < 0
}

// String returns the hex-encoded compressed public key.
func (n NodeID) String() string {
	return hex.EncodeToString(n[:])
}

// NodeIDFromBytes copies a 33-byte compressed public key into a NodeID.
func NodeIDFromBytes(b [33]byte) NodeID {
	return NodeID(b)
}
