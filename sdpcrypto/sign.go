// Package sdpcrypto implements the two independent cryptographic concerns
// the signaling core needs: signing and verifying SDPs so peers are bound to
// a key before a WebRTC connection opens, and deriving a symmetric room key
// from a password for the (external) Room layer.
package sdpcrypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-jose/go-jose/v4"
)

// ErrBadEnvelope means a signed SDP envelope could not be parsed, or its
// embedded key is not a P-384 ECDSA public key.
var ErrBadEnvelope = errors.New("sdpcrypto: malformed signed sdp envelope")

// ErrUnverified means a signed SDP envelope's signature did not check out
// against its embedded key.
var ErrUnverified = errors.New("sdpcrypto: sdp signature verification failed")

// envelope is the wire shape of a signed SDP: {sdp, signature, key}, where
// key is a JWK of the signer's P-384 public key.
type envelope struct {
	SDP       string          `json:"sdp"`
	Signature string          `json:"signature"`
	Key       json.RawMessage `json:"key"`
}

// GenerateKey creates a fresh ECDSA P-384 key pair for signing SDPs over the
// lifetime of one Join.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
}

// Sign computes an ECDSA/SHA-384 signature over UTF-8(sdp), exports priv's
// public key as a JWK, and returns the JSON-encoded envelope
// {sdp, signature, key}.
func Sign(priv *ecdsa.PrivateKey, sdp string) (string, error) {
	hash := sha512.Sum384([]byte(sdp))
	sig, err := ecdsa.SignASN1(rand.Reader, priv, hash[:])
	if err != nil {
		return "", fmt.Errorf("sdpcrypto: sign: %w", err)
	}

	jwk := jose.JSONWebKey{Key: &priv.PublicKey, Algorithm: "ES384", Use: "sig"}
	keyJSON, err := jwk.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("sdpcrypto: marshal jwk: %w", err)
	}

	out, err := json.Marshal(envelope{
		SDP:       sdp,
		Signature: base64.StdEncoding.EncodeToString(sig),
		Key:       keyJSON,
	})
	if err != nil {
		return "", fmt.Errorf("sdpcrypto: marshal envelope: %w", err)
	}
	return string(out), nil
}

// Verify parses a signed SDP envelope, imports its embedded JWK as a P-384
// verification key, and checks the signature. It returns the original SDP
// text and the imported public key so the caller may pin it to a Peer.
//
// Verify trusts the key embedded in the envelope: it proves the SDP is bound
// to that key, not that the key belongs to any previously-known identity.
// Pinning a key to an application-level identity across sessions is a
// higher-layer concern this package does not address.
func Verify(signed string) (sdp string, pub *ecdsa.PublicKey, err error) {
	var env envelope
	if err := json.Unmarshal([]byte(signed), &env); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}

	var jwk jose.JSONWebKey
	if err := jwk.UnmarshalJSON(env.Key); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}
	pub, ok := jwk.Key.(*ecdsa.PublicKey)
	if !ok || pub.Curve != elliptic.P384() {
		return "", nil, fmt.Errorf("%w: key is not a p-384 ecdsa public key", ErrBadEnvelope)
	}

	sig, err := base64.StdEncoding.DecodeString(env.Signature)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}

	hash := sha512.Sum384([]byte(env.SDP))
	if !ecdsa.VerifyASN1(pub, hash[:], sig) {
		return "", nil, ErrUnverified
	}
	return env.SDP, pub, nil
}
