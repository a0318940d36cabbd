package encrypt

import "testing"

func TestEncryptDecryptRoundtrip(t *testing.T) {
	key := "0123456789abcdef0123456789abcdef"

	enc, err := EncryptString(key, "sk-secret")
	if err != nil {
		t.Fatalf("EncryptString: %v", err)
	}
	if enc == "sk-secret" {
		t.Fatalf("ciphertext equals plaintext")
	}

	dec, err := DecryptString(key, enc)
	if err != nil {
		t.Fatalf("DecryptString: %v", err)
	}
	if dec != "sk-secret" {
		t.Fatalf("want sk-secret got %q", dec)
	}

	// Same input encrypts differently each time (random nonce).
	enc2, _ := EncryptString(key, "sk-secret")
	if enc == enc2 {
		t.Fatalf("nonce reuse: identical ciphertexts")
	}
}

func TestInvalidKeyLength(t *testing.T) {
	if _, err := EncryptString("tooshort", "data"); err == nil {
		t.Fatalf("want error for bad key length")
	}
}

func TestDecryptWithWrongKey(t *testing.T) {
	enc, err := EncryptString("0123456789abcdef0123456789abcdef", "data")
	if err != nil {
		t.Fatalf("EncryptString: %v", err)
	}
	if _, err := DecryptString("abcdef0123456789abcdef0123456789", enc); err == nil {
		t.Fatalf("want error decrypting with wrong key")
	}
}
