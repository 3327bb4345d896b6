package backup

import (
	"bytes"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plaintext := []byte("SQLite format 3\x00 pretend database contents")

	encrypted, err := Encrypt(plaintext, "correct horse battery staple")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Contains(encrypted, []byte("pretend database")) {
		t.Fatal("ciphertext leaks plaintext")
	}

	decrypted, err := Decrypt(encrypted, "correct horse battery staple")
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Error("round trip altered the data")
	}
}

func TestDecryptWrongPassphrase(t *testing.T) {
	encrypted, err := Encrypt([]byte("secret"), "right")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := Decrypt(encrypted, "wrong"); err == nil {
		t.Error("wrong passphrase accepted")
	}
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	encrypted, err := Encrypt([]byte("secret"), "pass")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	encrypted[len(encrypted)-1] ^= 0xff
	if _, err := Decrypt(encrypted, "pass"); err == nil {
		t.Error("tampered ciphertext accepted")
	}
}

func TestDecryptTooShort(t *testing.T) {
	if _, err := Decrypt([]byte("short"), "pass"); err != ErrCiphertextTooShort {
		t.Errorf("err = %v, want ErrCiphertextTooShort", err)
	}
}

func TestEncryptUniqueSalts(t *testing.T) {
	a, err := Encrypt([]byte("same input"), "pass")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	b, err := Encrypt([]byte("same input"), "pass")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Equal(a[:saltSize+nonceSize], b[:saltSize+nonceSize]) {
		t.Error("salt and nonce repeated across calls")
	}
}
