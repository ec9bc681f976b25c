// Package signer implements the client side of the signer channel (spec
// §6): a length-prefixed request/reply protocol over fd 3 to the
// key-holding process that owns this node's private key. The core process
// never sees key material; it hands over an unsigned message and gets
// signed bytes back.
package signer

import (
	"fmt"
	"io"
	"sync"

	"github.com/vince06fr/lightning/wire"
)

// Client is a synchronous request/reply client for the signer channel.
// Requests are issued one at a time; the signer channel has no pipelining,
// mirroring the daemon's own single-threaded event loop, which never has
// more than one signing request in flight.
type Client struct {
	rw io.ReadWriter
	mu sync.Mutex
}

// NewClient wraps rw (ordinarily the fd 3 pipe to the signer process) in a
// Client.
func NewClient(rw io.ReadWriter) *Client {
	return &Client{rw: rw}
}

// SignNodeAnnouncement sends the unsigned, serialized body of a
// node_announcement (everything the signature covers) to the signer and
// returns the resulting signature.
func (c *Client) SignNodeAnnouncement(unsigned []byte) (wire.Sig, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := writeFrame(c.rw, reqSignNodeAnnouncement, unsigned); err != nil {
		return wire.Sig{}, fmt.Errorf("writing sign_node_announcement request: %w", err)
	}

	t, body, err := readFrame(c.rw)
	if err != nil {
		return wire.Sig{}, fmt.Errorf("reading sign_node_announcement reply: %w", err)
	}
	if t != replySignNodeAnnouncement {
		return wire.Sig{}, fmt.Errorf("unexpected signer reply type: %v", t)
	}

	var raw [64]byte
	if len(body) != len(raw) {
		return wire.Sig{}, fmt.Errorf("signer returned %d-byte signature, want %d", len(body), len(raw))
	}
	copy(raw[:], body)

	return wire.NewSigFromRawBytes(raw), nil
}

// SignChannelUpdate sends the unsigned, serialized body of a
// channel_update to the signer and returns the fully framed, signed
// message bytes ready to hand to a peer or the graph.
func (c *Client) SignChannelUpdate(unsigned []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := writeFrame(c.rw, reqSignChannelUpdate, unsigned); err != nil {
		return nil, fmt.Errorf("writing sign_channel_update request: %w", err)
	}

	t, body, err := readFrame(c.rw)
	if err != nil {
		return nil, fmt.Errorf("reading sign_channel_update reply: %w", err)
	}
	if t != replySignChannelUpdate {
		return nil, fmt.Errorf("unexpected signer reply type: %v", t)
	}

	return body, nil
}
