package token

import "testing"

func TestGenerateRandomToken_Unique(t *testing.T) {
	a, err := GenerateRandomToken(48)
	if err != nil {
		t.Fatalf("expected token generation to succeed, got %v", err)
	}
	b, err := GenerateRandomToken(48)
	if err != nil {
		t.Fatalf("expected token generation to succeed, got %v", err)
	}
	if a == b {
		t.Fatal("expected two generated tokens to differ")
	}
	if len(a) != 64 {
		t.Fatalf("expected 48 random bytes to encode to 64 characters, got %d", len(a))
	}
}

func TestHashSHA256_Deterministic(t *testing.T) {
	h1 := HashSHA256("refresh-token")
	h2 := HashSHA256("refresh-token")
	if h1 != h2 {
		t.Fatal("expected identical tokens to hash identically")
	}
	if len(h1) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(h1))
	}
	if HashSHA256("other") == h1 {
		t.Fatal("expected different tokens to hash differently")
	}
}
