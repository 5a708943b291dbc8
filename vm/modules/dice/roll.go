package dice

import (
	"encoding/binary"
	"math/bits"

	"github.com/fyusuf-a/2026-q1-turbin3/crypto"
)

// RollRange is the number of possible outcomes; rolls fall in [0, RollRange).
const RollRange = 100

// Roll maps an attestation signature to an outcome in [0,99].
//
// The signature is hashed with SHA-256 and the digest is read as two
// little-endian 128-bit integers. Their sum, wrapping at 2^128, is reduced
// modulo 100. The mapping is fixed: changing it would change the outcome of
// every past bet.
func Roll(sig []byte) uint8 {
	h := crypto.HashBytes(sig)
	lowLo := binary.LittleEndian.Uint64(h[0:8])
	lowHi := binary.LittleEndian.Uint64(h[8:16])
	upLo := binary.LittleEndian.Uint64(h[16:24])
	upHi := binary.LittleEndian.Uint64(h[24:32])

	lo, carry := bits.Add64(lowLo, upLo, 0)
	hi, _ := bits.Add64(lowHi, upHi, carry)
	return uint8(bits.Rem64(hi, lo, RollRange))
}
