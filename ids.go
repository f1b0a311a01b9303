package trystero

import (
	crand "crypto/rand"
	"crypto/sha1"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// hashLimit is the length, in base-36 characters, of an InfoHash.
const hashLimit = 20

// libName identifies this implementation in the InfoHash preimage, matching
// the wire-compatible scheme of "<libName>:<appId>:<ns>" hashed with SHA-1.
const libName = "trystero"

// base36Width is the fixed width every base-36 encoding is left-padded to
// before it is cut to hashLimit characters. It is wider than the longest
// base-36 encoding of a SHA-1 digest (31 characters) or of a 128-bit offer
// id (25 characters), so every InfoHash starts with at least one zero and
// every offer id with at least seven; the result is deterministic and
// exactly hashLimit characters for every input.
const base36Width = 32

// InfoHash deterministically derives the tracker swarm key for (appID, ns).
// It is the first hashLimit characters of the base-36 encoding of
// SHA-1("<libName>:<appID>:<ns>"), left-padded with zeros to base36Width
// characters first.
//
// Two calls with identical appID and ns always produce the same InfoHash,
// in this process or any other.
func InfoHash(appID, ns string) string {
	sum := sha1.Sum([]byte(libName + ":" + appID + ":" + ns))
	n := new(big.Int).SetBytes(sum[:])
	s := n.Text(36)
	if len(s) < base36Width {
		s = strings.Repeat("0", base36Width-len(s)) + s
	}
	return s[:hashLimit]
}

// NewSelfID returns a fresh, process-wide-unique participant identifier.
// Callers normally invoke this once per process and reuse the value; the
// package-level SelfID does this for them.
func NewSelfID() string {
	return uuid.NewString()
}

// SelfID is this process's stable participant identifier, generated once
// when the package is initialized.
var SelfID = NewSelfID()

// newOfferID returns a fresh random base-36 token identifying one pooled
// offer, matching the id width of an InfoHash.
func newOfferID() string {
	var buf [16]byte
	_, _ = crand.Read(buf[:])
	n := new(big.Int).SetBytes(buf[:])
	s := n.Text(36)
	if len(s) < base36Width {
		s = strings.Repeat("0", base36Width-len(s)) + s
	}
	return s[:hashLimit]
}
