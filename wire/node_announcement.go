package wire

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"net"
	"unicode/utf8"
)

// NodeAlias is a 32-byte UTF-8 label a node chooses for itself; it carries
// no uniqueness guarantee.
type NodeAlias [32]byte

// NewNodeAlias validates s and returns it padded to a NodeAlias.
func NewNodeAlias(s string) (NodeAlias, error) {
	var n NodeAlias

	if len(s) > 32 {
		return n, fmt.Errorf("alias too long: max 32, got %d", len(s))
	}
	if !utf8.ValidString(s) {
		return n, fmt.Errorf("alias is not valid utf8")
	}

	copy(n[:], s)
	return n, nil
}

// String trims the trailing zero padding and returns the alias text.
func (n NodeAlias) String() string {
	return string(bytes.TrimRight(n[:], "\x00"))
}

// NodeAnnouncement announces a node's identity, supported features, and
// reachable addresses.
type NodeAnnouncement struct {
	Signature Sig
	Features  *RawFeatureVector
	Timestamp uint32
	NodeID    [33]byte
	RGBColor  color.RGBA
	Alias     NodeAlias
	Addresses []net.Addr

	ExtraOpaqueData ExtraOpaqueData
}

var _ Message = (*NodeAnnouncement)(nil)

func (a *NodeAnnouncement) Decode(r io.Reader, pver uint32) error {
	return ReadElements(r,
		&a.Signature,
		&a.Features,
		&a.Timestamp,
		&a.NodeID,
		&a.RGBColor,
		a.Alias[:],
		&a.Addresses,
		&a.ExtraOpaqueData,
	)
}

func (a *NodeAnnouncement) Encode(w io.Writer, pver uint32) error {
	return WriteElements(w,
		a.Signature,
		a.Features,
		a.Timestamp,
		a.NodeID,
		a.RGBColor,
		a.Alias[:],
		a.Addresses,
		a.ExtraOpaqueData,
	)
}

func (a *NodeAnnouncement) MsgType() MessageType {
	return MsgNodeAnnouncement
}

// DataToSign returns the portion of the message the signature covers.
func (a *NodeAnnouncement) DataToSign() ([]byte, error) {
	var buf bytes.Buffer
	err := WriteElements(&buf,
		a.Features,
		a.Timestamp,
		a.NodeID,
		a.RGBColor,
		a.Alias[:],
		a.Addresses,
		a.ExtraOpaqueData,
	)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
