package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ShortChannelID encodes the on-chain location of a channel's funding
// output as the triple (block height, transaction index, output index),
// packed into a single uint64 as block_height:24 || tx_index:24 ||
// tx_position:16.
type ShortChannelID struct {
	BlockHeight uint32
	TxIndex     uint32
	TxPosition  uint16
}

// NewShortChanIDFromInt converts the packed uint64 representation used in
// queries and graph lookups into its three component fields.
func NewShortChanIDFromInt(id uint64) ShortChannelID {
	return ShortChannelID{
		BlockHeight: uint32(id >> 40),
		TxIndex:     uint32(id>>16) & 0xFFFFFF,
		TxPosition:  uint16(id),
	}
}

// ToUint64 packs the three fields back into the single uint64
// representation, which also happens to sort identically to lexicographic
// (block, tx, position) ordering.
func (c ShortChannelID) ToUint64() uint64 {
	return ((uint64(c.BlockHeight) << 40) | (uint64(c.TxIndex) << 16) |
		uint64(c.TxPosition))
}

// String returns the block:tx:position representation used in logs.
func (c ShortChannelID) String() string {
	return fmt.Sprintf("%d:%d:%d", c.BlockHeight, c.TxIndex, c.TxPosition)
}

// Less reports whether c sorts before other under the canonical ordering:
// lexicographic on (block height, tx index, output index), equivalently
// numeric on the packed uint64.
func (c ShortChannelID) Less(other ShortChannelID) bool {
	return c.ToUint64() < other.ToUint64()
}

// WriteShortChannelID appends the 3+3+2 byte encoding of id to w.
func WriteShortChannelID(w io.Writer, id ShortChannelID) error {
	if id.BlockHeight > (1<<24)-1 {
		return fmt.Errorf("block height %d overflows 3 bytes", id.BlockHeight)
	}
	if id.TxIndex > (1<<24)-1 {
		return fmt.Errorf("tx index %d overflows 3 bytes", id.TxIndex)
	}

	var buf [8]byte
	binary.BigEndian.PutUint32(buf[0:4], id.BlockHeight)
	binary.BigEndian.PutUint32(buf[4:8], id.TxIndex)

	if _, err := w.Write(buf[1:4]); err != nil {
		return err
	}
	if _, err := w.Write(buf[5:8]); err != nil {
		return err
	}

	var posBuf [2]byte
	binary.BigEndian.PutUint16(posBuf[:], id.TxPosition)
	_, err := w.Write(posBuf[:])
	return err
}

// ReadShortChannelID decodes the 3+3+2 byte encoding of a ShortChannelID
// from r into id.
func ReadShortChannelID(r io.Reader, id *ShortChannelID) error {
	var blockTx [6]byte
	if _, err := io.ReadFull(r, blockTx[:]); err != nil {
		return err
	}

	var blockBuf, txBuf [4]byte
	copy(blockBuf[1:], blockTx[0:3])
	copy(txBuf[1:], blockTx[3:6])

	id.BlockHeight = binary.BigEndian.Uint32(blockBuf[:])
	id.TxIndex = binary.BigEndian.Uint32(txBuf[:])

	var posBuf [2]byte
	if _, err := io.ReadFull(r, posBuf[:]); err != nil {
		return err
	}
	id.TxPosition = binary.BigEndian.Uint16(posBuf[:])

	return nil
}
