package auth

import "testing"

func TestHashPasswordNeverStoresPlaintext(t *testing.T) {
	hash, err := HashPassword("Secret123!")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "Secret123!" {
		t.Fatalf("hash equals plaintext")
	}
	if err := VerifyPassword(hash, "Secret123!"); err != nil {
		t.Fatalf("VerifyPassword correct password: %v", err)
	}
	if err := VerifyPassword(hash, "wrong"); err == nil {
		t.Fatalf("expected mismatch error for wrong password")
	}
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Fatalf("expected error for empty password")
	}
	if err := VerifyPassword("", "whatever"); err == nil {
		t.Fatalf("expected error for empty hash")
	}
}

func TestHashPasswordSalted(t *testing.T) {
	h1, err := HashPassword("same-input")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	h2, err := HashPassword("same-input")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if h1 == h2 {
		t.Fatalf("expected distinct salted hashes")
	}
}
