package signer

import (
	"encoding/binary"
	"fmt"
	"io"
)

// requestType identifies which of the two signer operations a frame carries.
// The signer channel is a private control link (spec §6) between this
// process and the key-holding signer process on fd 3, distinct from the
// peer gossip wire in package wire, but framed the same way: a 2-byte
// big-endian length prefix, a 2-byte big-endian type tag, then the body.
type requestType uint16

const (
	reqSignNodeAnnouncement   requestType = 1
	replySignNodeAnnouncement requestType = 2
	reqSignChannelUpdate      requestType = 3
	replySignChannelUpdate    requestType = 4
)

// maxFrameBody bounds a single frame's body, matching the wire package's
// slice-length ceiling so a corrupt or hostile signer can't force an
// unbounded allocation.
const maxFrameBody = 65535

func (t requestType) String() string {
	switch t {
	case reqSignNodeAnnouncement:
		return "SignNodeAnnouncementRequest"
	case replySignNodeAnnouncement:
		return "SignNodeAnnouncementReply"
	case reqSignChannelUpdate:
		return "SignChannelUpdateRequest"
	case replySignChannelUpdate:
		return "SignChannelUpdateReply"
	default:
		return fmt.Sprintf("<unknown %d>", uint16(t))
	}
}

// writeFrame serializes a length-prefixed, typed frame to w.
func writeFrame(w io.Writer, t requestType, body []byte) error {
	if len(body) > maxFrameBody-2 {
		return fmt.Errorf("signer frame body too large: %d bytes", len(body))
	}

	buf := make([]byte, 4+len(body))
	binary.BigEndian.PutUint16(buf[0:2], uint16(2+len(body)))
	binary.BigEndian.PutUint16(buf[2:4], uint16(t))
	copy(buf[4:], body)

	_, err := w.Write(buf)
	return err
}

// readFrame reads a single length-prefixed, typed frame from r.
func readFrame(r io.Reader) (requestType, []byte, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return 0, nil, err
	}
	frameLen := binary.BigEndian.Uint16(lenBuf[:])
	if frameLen < 2 {
		return 0, nil, fmt.Errorf("signer frame too short: %d bytes", frameLen)
	}

	body := make([]byte, frameLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, err
	}

	t := requestType(binary.BigEndian.Uint16(body[:2]))
	return t, body[2:], nil
}
