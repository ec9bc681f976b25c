package daemon

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// CommandType identifies a parent-process or connection-daemon control
// message (spec §6: "length-prefixed typed messages" on fd 0 and fd 4).
// spec.md does not fix a wire format for these bodies beyond that
// framing, unlike the bit-exact peer protocol in package wire or the
// signer channel's fixed-shape requests — each command here carries a
// different, variably-shaped payload (a node list, a single scid, a
// pair of addresses...), so this package frames a JSON body rather than
// hand-rolling a bespoke binary layout per command.
type CommandType uint16

const (
	// Parent process control channel (fd 0).
	CmdInit                  CommandType = 1
	CmdGetNodes CommandType = 2
	// CmdGetRoute names the getroute command for framing purposes only;
	// path-finding itself is an external-collaborator black box (spec
	// §1 Non-goals) this package never implements.
	CmdGetRoute              CommandType = 13
	CmdGetChannels           CommandType = 3
	CmdGetChannelPeer        CommandType = 4
	CmdGetIncomingChannels   CommandType = 5
	CmdPing                  CommandType = 6
	CmdGetTxoutReply         CommandType = 7
	CmdRoutingFailure        CommandType = 8
	CmdMarkChannelUnroutable CommandType = 9
	CmdOutpointSpent         CommandType = 10
	CmdLocalChannelClose     CommandType = 11
	CmdLocalChannelUpdate    CommandType = 12

	// Connection daemon control channel (fd 4). The new_peer reply's
	// socketpair endpoint travels out-of-band (SCM_RIGHTS in the real
	// transport); this channel only carries the command and its ack.
	CmdNewPeer  CommandType = 100
	CmdGetAddrs CommandType = 101

	// CmdReply wraps a successful reply to any of the above; CmdError
	// wraps a failure, body being the error's message text.
	CmdReply CommandType = 65534
	CmdError CommandType = 65535
)

// maxFrameBody bounds a single control-channel frame, matching the peer
// wire codec's own slice-length ceiling.
const maxFrameBody = 65535

// Command is one frame on either control channel: a type tag and its
// JSON-encoded payload.
type Command struct {
	Type    CommandType
	Payload []byte
}

// WriteCommand serializes a length-prefixed, typed frame to w: 2-byte
// big-endian length, 2-byte big-endian type, then the JSON payload.
func WriteCommand(w io.Writer, t CommandType, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %v payload: %w", t, err)
	}
	if len(body) > maxFrameBody-2 {
		return fmt.Errorf("%v frame body too large: %d bytes", t, len(body))
	}

	buf := make([]byte, 4+len(body))
	binary.BigEndian.PutUint16(buf[0:2], uint16(2+len(body)))
	binary.BigEndian.PutUint16(buf[2:4], uint16(t))
	copy(buf[4:], body)

	_, err = w.Write(buf)
	return err
}

// ReadCommand reads a single length-prefixed, typed frame from r.
func ReadCommand(r io.Reader) (Command, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return Command{}, err
	}
	frameLen := binary.BigEndian.Uint16(lenBuf[:])
	if frameLen < 2 {
		return Command{}, fmt.Errorf("control frame too short: %d bytes", frameLen)
	}

	body := make([]byte, frameLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return Command{}, err
	}

	return Command{
		Type:    CommandType(binary.BigEndian.Uint16(body[:2])),
		Payload: body[2:],
	}, nil
}

// Decode unmarshals c's payload into v.
func (c Command) Decode(v interface{}) error {
	return json.Unmarshal(c.Payload, v)
}
