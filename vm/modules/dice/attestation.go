package dice

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/fyusuf-a/2026-q1-turbin3/core"
	"github.com/fyusuf-a/2026-q1-turbin3/crypto"
	"github.com/fyusuf-a/2026-q1-turbin3/vm"
)

// verifyAttestation checks that the transaction carries exactly one verified
// signature co-instruction and that it binds the house key, the claimed
// signature, and the canonical message rebuilt from the stored bet. It returns
// the raw signature bytes on success.
func verifyAttestation(ctx *vm.Context, bet *core.Bet, claimed string) ([]byte, error) {
	verified := ctx.Verified()
	if len(verified) != 1 {
		return nil, fmt.Errorf("%w: want 1 signature co-instruction, got %d", core.ErrInvalidAttestation, len(verified))
	}
	v := verified[0]

	house, err := crypto.PubKeyFromHex(bet.House)
	if err != nil {
		return nil, fmt.Errorf("bet house: %w", err)
	}
	signer, err := crypto.PubKeyFromHex(v.PubKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidAttestation, err)
	}
	if !house.Equal(signer) {
		return nil, fmt.Errorf("%w: signed by %s, bet house is %s", core.ErrInvalidAttestation, signer.Hex(), bet.House)
	}

	sig, err := hex.DecodeString(claimed)
	if err != nil || len(sig) != crypto.SignatureSize {
		return nil, fmt.Errorf("%w: malformed signature", core.ErrInvalidAttestation)
	}
	verifiedSig, err := hex.DecodeString(v.Signature)
	if err != nil || !bytes.Equal(sig, verifiedSig) {
		return nil, fmt.Errorf("%w: signature differs from the verified one", core.ErrInvalidAttestation)
	}

	want, err := bet.Message()
	if err != nil {
		return nil, err
	}
	got, err := v.MessageBytes()
	if err != nil || !bytes.Equal(want, got) {
		return nil, fmt.Errorf("%w: verified message does not match bet %s", core.ErrInvalidAttestation, bet.ID)
	}
	return sig, nil
}
