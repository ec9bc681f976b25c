package wire

import "io"

// Ping asks the receiver to reply with a Pong carrying NumPongBytes bytes
// of padding, and pads itself with PaddingBytes to help disguise real
// traffic patterns.
type Ping struct {
	NumPongBytes uint16
	PaddingBytes []byte
}

var _ Message = (*Ping)(nil)

func (p *Ping) Decode(r io.Reader, pver uint32) error {
	if err := ReadElements(r, &p.NumPongBytes); err != nil {
		return err
	}
	return readVarLenBytes(r, &p.PaddingBytes)
}

func (p *Ping) Encode(w io.Writer, pver uint32) error {
	if err := WriteElements(w, p.NumPongBytes); err != nil {
		return err
	}
	return writeVarLenBytes(w, p.PaddingBytes)
}

func (p *Ping) MsgType() MessageType {
	return MsgPing
}

// Pong replies to a Ping, padded out to the size the ping requested.
type Pong struct {
	PongBytes []byte
}

var _ Message = (*Pong)(nil)

func (p *Pong) Decode(r io.Reader, pver uint32) error {
	return readVarLenBytes(r, &p.PongBytes)
}

func (p *Pong) Encode(w io.Writer, pver uint32) error {
	return writeVarLenBytes(w, p.PongBytes)
}

func (p *Pong) MsgType() MessageType {
	return MsgPong
}

func writeVarLenBytes(w io.Writer, b []byte) error {
	return WriteElements(w, uint16(len(b)), b)
}

func readVarLenBytes(r io.Reader, out *[]byte) error {
	var n uint16
	if err := ReadElements(r, &n); err != nil {
		return err
	}
	buf := make([]byte, n)
	if n > 0 {
		if err := ReadElement(r, buf); err != nil {
			return err
		}
	}
	*out = buf
	return nil
}
