package crypto

import "github.com/mr-tron/base58"

// Tags for program-derived addresses. Each is hashed as the first component so
// that addresses of different kinds can never collide.
const (
	TagBankrollVault = "vault"
	TagBet           = "bet"
	TagBetVault      = "player_vault"
)

// DeriveAddress returns base58(SHA-256(tag || parts...)). Derived addresses are
// 32-byte hashes and carry no private key, so only the VM can move funds out
// of them. They are base58 encoded to keep them visually distinct from the
// hex-encoded public keys that address user accounts.
func DeriveAddress(tag string, parts ...[]byte) string {
	all := make([][]byte, 0, len(parts)+1)
	all = append(all, []byte(tag))
	all = append(all, parts...)
	h := HashParts(all...)
	return base58.Encode(h[:])
}

// IsDerivedAddress reports whether addr decodes to a 32-byte derived address.
func IsDerivedAddress(addr string) bool {
	b, err := base58.Decode(addr)
	return len(addr) < 2*len(b) && err == nil && len(b) == 32
}
