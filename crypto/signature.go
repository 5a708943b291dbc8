package crypto

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
)

// SignatureSize is the length of a raw ed25519 signature.
const SignatureSize = ed25519.SignatureSize

// ErrBadSignature is returned when an ed25519 signature does not verify.
var ErrBadSignature = errors.New("signature verification failed")

// Sign signs data with the private key and returns a hex-encoded signature.
func Sign(priv PrivateKey, data []byte) string {
	return hex.EncodeToString(SignBytes(priv, data))
}

// SignBytes signs data and returns the raw 64-byte signature. ed25519
// signatures are deterministic: the same key and message always yield the
// same bytes.
func SignBytes(priv PrivateKey, data []byte) []byte {
	return ed25519.Sign(ed25519.PrivateKey(priv), data)
}

// Verify checks a hex-encoded signature against data using the public key.
func Verify(pub PublicKey, data []byte, sigHex string) error {
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return fmt.Errorf("invalid signature hex: %w", err)
	}
	return VerifyBytes(pub, data, sig)
}

// VerifyBytes checks a raw signature against data using the public key.
func VerifyBytes(pub PublicKey, data, sig []byte) error {
	if len(pub) != ed25519.PublicKeySize {
		return fmt.Errorf("pubkey must be %d bytes, got %d", ed25519.PublicKeySize, len(pub))
	}
	if len(sig) != SignatureSize {
		return fmt.Errorf("signature must be %d bytes, got %d", SignatureSize, len(sig))
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), data, sig) {
		return ErrBadSignature
	}
	return nil
}
