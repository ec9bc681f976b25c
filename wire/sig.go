package wire

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// Sig is a raw, fixed-size ECDSA signature as carried on the wire: 32
// bytes of R followed by 32 bytes of S, with no DER framing.
type Sig struct {
	bytes [64]byte
}

// NewSigFromSignature converts a *ecdsa.Signature into the fixed 64-byte
// wire representation.
func NewSigFromSignature(sig *ecdsa.Signature) (Sig, error) {
	var s Sig
	if sig == nil {
		return s, nil
	}

	// Serialize() returns a DER-encoded signature; the wire format wants
	// the raw (r, s) pair instead, so pull the values back out.
	r := sig.R()
	sVal := sig.S()
	rArr := r.Bytes()
	sArr := sVal.Bytes()
	rBytes := rArr[:]
	sBytes := sArr[:]

	copy(s.bytes[32-len(rBytes):32], rBytes)
	copy(s.bytes[64-len(sBytes):64], sBytes)

	return s, nil
}

// ToSignature reconstructs a btcec ECDSA signature from the raw wire bytes.
func (s Sig) ToSignature() (*ecdsa.Signature, error) {
	var rBytes, sBytes [32]byte
	copy(rBytes[:], s.bytes[:32])
	copy(sBytes[:], s.bytes[32:])

	var r, sVal btcec.ModNScalar
	r.SetBytes(&rBytes)
	sVal.SetBytes(&sBytes)

	return ecdsa.NewSignature(&r, &sVal), nil
}

// RawBytes returns the raw 64-byte (r, s) encoding.
func (s Sig) RawBytes() [64]byte {
	return s.bytes
}

// NewSigFromRawBytes builds a Sig directly from its 64-byte wire encoding,
// primarily used by tests.
func NewSigFromRawBytes(b [64]byte) Sig {
	return Sig{bytes: b}
}
