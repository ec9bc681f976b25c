package wire

import (
	"encoding/binary"
	"io"
)

// ExtraOpaqueData is the set of bytes appended to a message beyond the
// fields this core understands. Messages must round-trip this data
// untouched: it may carry TLV fields a future protocol version defines,
// and signatures cover it, so dropping it would invalidate them.
type ExtraOpaqueData []byte

// Encode writes the length-prefixed extra data to w.
func (e ExtraOpaqueData) Encode(w io.Writer) error {
	var l [2]byte
	binary.BigEndian.PutUint16(l[:], uint16(len(e)))
	if _, err := w.Write(l[:]); err != nil {
		return err
	}
	if len(e) == 0 {
		return nil
	}
	_, err := w.Write(e)
	return err
}

// Decode reads the length-prefixed extra data from r into e. A message
// whose sender did not append any extra data ends right where this field
// would start, so a clean EOF here means "no extra data" rather than a
// truncated message.
func (e *ExtraOpaqueData) Decode(r io.Reader) error {
	var l [2]byte
	if _, err := io.ReadFull(r, l[:]); err != nil {
		if err == io.EOF {
			*e = nil
			return nil
		}
		return err
	}
	n := binary.BigEndian.Uint16(l[:])
	if n == 0 {
		*e = nil
		return nil
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}
	*e = buf
	return nil
}
