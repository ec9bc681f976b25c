package wire

import (
	"encoding/binary"
	"fmt"
	"image/color"
	"io"
	"net"
)

// WriteElement serializes a single element into w using the fixed-width,
// big-endian encoding the gossip wire format uses throughout.
func WriteElement(w io.Writer, element interface{}) error {
	switch e := element.(type) {
	case uint8:
		_, err := w.Write([]byte{e})
		return err

	case uint16:
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], e)
		_, err := w.Write(b[:])
		return err

	case uint32:
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], e)
		_, err := w.Write(b[:])
		return err

	case uint64:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], e)
		_, err := w.Write(b[:])
		return err

	case []byte:
		_, err := w.Write(e)
		return err

	case [33]byte:
		_, err := w.Write(e[:])
		return err

	case color.RGBA:
		_, err := w.Write([]byte{e.R, e.G, e.B})
		return err

	case ShortChannelID:
		return WriteShortChannelID(w, e)

	case Sig:
		_, err := w.Write(e.bytes[:])
		return err

	case *RawFeatureVector:
		if e == nil {
			e = NewRawFeatureVector()
		}
		return e.Encode(w)

	case ExtraOpaqueData:
		return e.Encode(w)

	case []net.Addr:
		return writeAddresses(w, e)

	default:
		return fmt.Errorf("unknown type in WriteElement: %T", e)
	}
}

// WriteElements writes each element in order using WriteElement.
func WriteElements(w io.Writer, elements ...interface{}) error {
	for _, e := range elements {
		if err := WriteElement(w, e); err != nil {
			return err
		}
	}
	return nil
}

// ReadElement deserializes a single element from r into the pointer target.
func ReadElement(r io.Reader, element interface{}) error {
	switch e := element.(type) {
	case *uint8:
		var b [1]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return err
		}
		*e = b[0]

	case *uint16:
		var b [2]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return err
		}
		*e = binary.BigEndian.Uint16(b[:])

	case *uint32:
		var b [4]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return err
		}
		*e = binary.BigEndian.Uint32(b[:])

	case *uint64:
		var b [8]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return err
		}
		*e = binary.BigEndian.Uint64(b[:])

	case []byte:
		_, err := io.ReadFull(r, e)
		return err

	case *[33]byte:
		_, err := io.ReadFull(r, e[:])
		return err

	case *color.RGBA:
		var b [3]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return err
		}
		e.R, e.G, e.B = b[0], b[1], b[2]
		e.A = 255

	case *ShortChannelID:
		return ReadShortChannelID(r, e)

	case *Sig:
		_, err := io.ReadFull(r, e.bytes[:])
		return err

	case **RawFeatureVector:
		fv := NewRawFeatureVector()
		if err := fv.Decode(r); err != nil {
			return err
		}
		*e = fv

	case *ExtraOpaqueData:
		return e.Decode(r)

	case *[]net.Addr:
		addrs, err := readAddresses(r)
		if err != nil {
			return err
		}
		*e = addrs

	default:
		return fmt.Errorf("unknown type in ReadElement: %T", e)
	}

	return nil
}

// ReadElements reads each element in order using ReadElement.
func ReadElements(r io.Reader, elements ...interface{}) error {
	for _, e := range elements {
		if err := ReadElement(r, e); err != nil {
			return err
		}
	}
	return nil
}
