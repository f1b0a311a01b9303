package sdpcrypto

import (
	"bytes"
	"errors"
	"testing"
)

func TestRoomKeyEncryptDecryptRoundTrip(t *testing.T) {
	key := DeriveRoomKey("correct horse battery staple", "my-namespace")

	cases := [][]byte{
		[]byte(""),
		[]byte("short"),
		bytes.Repeat([]byte("x"), 16),  // exactly one AES block
		bytes.Repeat([]byte("xy"), 33), // not a multiple of the block size
	}
	for _, plaintext := range cases {
		envelope, err := key.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("Encrypt(%q): %v", plaintext, err)
		}
		got, err := key.Decrypt(envelope)
		if err != nil {
			t.Fatalf("Decrypt(%q): %v", plaintext, err)
		}
		if !bytes.Equal(got, plaintext) {
			t.Errorf("round trip = %q, want %q", got, plaintext)
		}
	}
}

func TestDeriveRoomKeyDeterministic(t *testing.T) {
	a := DeriveRoomKey("password", "ns")
	b := DeriveRoomKey("password", "ns")
	if a != b {
		t.Errorf("DeriveRoomKey not deterministic")
	}

	c := DeriveRoomKey("password", "other-ns")
	if a == c {
		t.Errorf("DeriveRoomKey ignored the namespace")
	}
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	envelope, err := DeriveRoomKey("password", "ns").Encrypt([]byte("secret"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	wrongKey := DeriveRoomKey("different-password", "ns")
	if _, err := wrongKey.Decrypt(envelope); err == nil {
		t.Errorf("Decrypt with wrong key succeeded, want an error")
	}
}

func TestDecryptRejectsMalformedEnvelope(t *testing.T) {
	if _, err := (RoomKey{}).Decrypt([]byte("not json")); !errors.Is(err, ErrBadCiphertext) {
		t.Errorf("Decrypt(malformed) error = %v, want ErrBadCiphertext", err)
	}
}
