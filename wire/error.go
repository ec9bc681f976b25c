package wire

import "io"

// Error carries a protocol-level failure, either scoped to one channel
// (ChannelID non-zero) or to the whole connection (ChannelID all zero).
type Error struct {
	ChannelID [32]byte
	Data      []byte
}

var _ Message = (*Error)(nil)

func (e *Error) Decode(r io.Reader, pver uint32) error {
	if err := ReadElements(r, e.ChannelID[:]); err != nil {
		return err
	}
	return readVarLenBytes(r, &e.Data)
}

func (e *Error) Encode(w io.Writer, pver uint32) error {
	if err := WriteElements(w, e.ChannelID[:]); err != nil {
		return err
	}
	return writeVarLenBytes(w, e.Data)
}

func (e *Error) MsgType() MessageType {
	return MsgError
}

// String returns Data interpreted as a human-readable failure reason,
// following the convention that error text is plain UTF-8.
func (e *Error) String() string {
	return string(e.Data)
}
