package wire

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"sort"
)

// ShortChanIDEncoding identifies how a list of short channel IDs has been
// packed onto the wire.
type ShortChanIDEncoding uint8

const (
	// EncodingSortedPlain is a sorted array of 8-byte short channel IDs,
	// back to back with no compression.
	EncodingSortedPlain ShortChanIDEncoding = 0

	// EncodingSortedZlib is the same sorted array, zlib-compressed. A
	// sender should only use this encoding when it actually shrinks the
	// payload; a receiver must accept either.
	EncodingSortedZlib ShortChanIDEncoding = 1
)

// ErrUnknownShortChanIDEncoding is returned when a query or reply body
// declares an encoding type this core doesn't understand.
func ErrUnknownShortChanIDEncoding(encoding ShortChanIDEncoding) error {
	return fmt.Errorf("unknown short chan id encoding: %v", encoding)
}

// encodeShortChanIDs writes the length-prefixed, tagged encoding of ids to
// w. The IDs are sorted in place. Per the zlib fallback policy, the
// compressed form is only used when it comes out smaller than the plain
// form; otherwise the plain form is sent even if the caller asked for
// zlib, since there is never a reason to spend extra bytes compressing.
func encodeShortChanIDs(w io.Writer, preferZlib bool, ids []ShortChannelID) error {
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].Less(ids[j])
	})

	var plain bytes.Buffer
	for _, id := range ids {
		if err := WriteShortChannelID(&plain, id); err != nil {
			return err
		}
	}

	encodingType := EncodingSortedPlain
	body := plain.Bytes()

	if preferZlib {
		var zbuf bytes.Buffer
		zw := zlib.NewWriter(&zbuf)
		if _, err := zw.Write(plain.Bytes()); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}

		if zbuf.Len() < len(body) {
			encodingType = EncodingSortedZlib
			body = zbuf.Bytes()
		}
	}

	numBytesBody := uint16(len(body)) + 1
	if err := WriteElements(w, numBytesBody, uint8(encodingType)); err != nil {
		return err
	}

	_, err := w.Write(body)
	return err
}

// decodeShortChanIDs reads a length-prefixed, tagged short channel ID list
// from r, transparently inflating zlib-compressed bodies.
func decodeShortChanIDs(r io.Reader) (ShortChanIDEncoding, []ShortChannelID, error) {
	var numBytesBody uint16
	if err := ReadElements(r, &numBytesBody); err != nil {
		return 0, nil, err
	}
	if numBytesBody == 0 {
		return 0, nil, fmt.Errorf("short chan id body missing encoding byte")
	}

	raw := make([]byte, numBytesBody)
	if _, err := io.ReadFull(r, raw); err != nil {
		return 0, nil, err
	}

	encodingType := ShortChanIDEncoding(raw[0])
	body := raw[1:]

	switch encodingType {
	case EncodingSortedPlain:
		// no-op, body is already plain

	case EncodingSortedZlib:
		zr, err := zlib.NewReader(bytes.NewReader(body))
		if err != nil {
			return 0, nil, fmt.Errorf("invalid zlib short chan id body: %w", err)
		}
		defer zr.Close()

		inflated, err := io.ReadAll(zr)
		if err != nil {
			return 0, nil, fmt.Errorf("invalid zlib short chan id body: %w", err)
		}
		body = inflated

	default:
		return 0, nil, ErrUnknownShortChanIDEncoding(encodingType)
	}

	if len(body)%8 != 0 {
		return 0, nil, fmt.Errorf("short chan id body length %d is not a "+
			"multiple of 8", len(body))
	}

	n := len(body) / 8
	ids := make([]ShortChannelID, n)
	br := bytes.NewReader(body)
	for i := 0; i < n; i++ {
		if err := ReadShortChannelID(br, &ids[i]); err != nil {
			return 0, nil, fmt.Errorf("unable to parse short chan id: %w", err)
		}
	}

	return encodingType, ids, nil
}
