package graph

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/vince06fr/lightning/wire"
)

// verifyDigestSig checks sig against the double-SHA256 digest of data
// under the compressed public key pubKeyBytes, the signature scheme
// every gossip message in this protocol uses.
func verifyDigestSig(pubKeyBytes [33]byte, data []byte, sig wire.Sig) error {
	pubKey, err := btcec.ParsePubKey(pubKeyBytes[:])
	if err != nil {
		return fmt.Errorf("%w: invalid pubkey: %v", ErrInvalidSignature, err)
	}

	ecdsaSig, err := sig.ToSignature()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	digest := chainhash.DoubleHashB(data)
	if !ecdsaSig.Verify(digest, pubKey) {
		return ErrInvalidSignature
	}
	return nil
}
