package secretbox

import (
	"encoding/base64"
	"os"
	"strings"
	"testing"
)

func setKey(t *testing.T, seed byte) {
	t.Helper()
	UnsafeResetForTests()
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = seed + byte(i)
	}
	t.Setenv("TASKCAL_MASTER_KEY", base64.StdEncoding.EncodeToString(raw))
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	setKey(t, 1)

	msg := "ya29.a0AfH6-secret-access-token"
	ct, err := Encrypt(msg)
	if err != nil {
		t.Fatalf("Encrypt err: %v", err)
	}
	if ct == msg {
		t.Fatal("ciphertext equals plaintext")
	}
	pt, err := Decrypt(ct)
	if err != nil {
		t.Fatalf("Decrypt err: %v", err)
	}
	if pt != msg {
		t.Fatalf("plaintext mismatch: got %q want %q", pt, msg)
	}
}

func TestDecrypt_DetectsTamper(t *testing.T) {
	setKey(t, 7)

	ct, err := Encrypt("top secret")
	if err != nil {
		t.Fatalf("Encrypt err: %v", err)
	}
	parts := strings.Split(ct, "|")
	if len(parts) != 2 {
		t.Fatalf("unexpected ct format")
	}
	bs, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatal(err)
	}
	bs[0] ^= 0xFF
	tampered := parts[0] + "|" + base64.StdEncoding.EncodeToString(bs)
	if _, err := Decrypt(tampered); err == nil {
		t.Fatal("expected decrypt failure on tampered ciphertext")
	}
}

func TestEncrypt_MissingKey(t *testing.T) {
	UnsafeResetForTests()
	os.Unsetenv("TASKCAL_MASTER_KEY")
	if _, err := Encrypt("x"); err == nil {
		t.Fatal("expected error without master key")
	}
}

func TestEncrypt_NonceUnique(t *testing.T) {
	setKey(t, 42)
	a, err := Encrypt("same input")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Encrypt("same input")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatal("two encryptions of the same plaintext must differ")
	}
}
