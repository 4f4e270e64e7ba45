package security

import (
	"strconv"
	"testing"
)

func TestGenerateDeliveryCodeRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := GenerateDeliveryCode()
		if err != nil {
			t.Fatalf("GenerateDeliveryCode: %v", err)
		}
		if len(code) != 4 {
			t.Fatalf("expected 4 digits, got %q", code)
		}
		n, err := strconv.Atoi(code)
		if err != nil {
			t.Fatalf("non-numeric code %q", code)
		}
		if n < 1000 || n > 9999 {
			t.Fatalf("code %d out of range", n)
		}
	}
}

func TestHashAndVerifyDeliveryCode(t *testing.T) {
	hash, err := HashDeliveryCode("4821", DefaultBcryptCost)
	if err != nil {
		t.Fatalf("HashDeliveryCode: %v", err)
	}
	if hash == "4821" {
		t.Fatal("hash must not equal the raw code")
	}

	ok, err := VerifyDeliveryCode("4821", hash)
	if err != nil || !ok {
		t.Fatalf("expected match (ok=%v err=%v)", ok, err)
	}

	ok, err = VerifyDeliveryCode("1234", hash)
	if err != nil {
		t.Fatalf("mismatch must not be an error: %v", err)
	}
	if ok {
		t.Fatal("wrong code must not verify")
	}
}

func TestHashDeliveryCodeRejectsMalformedCodes(t *testing.T) {
	for _, code := range []string{"", "123", "12345", "abcd", "12a4"} {
		if _, err := HashDeliveryCode(code, DefaultBcryptCost); err == nil {
			t.Fatalf("expected error for %q", code)
		}
	}
}

func TestHashDeliveryCodeClampsCost(t *testing.T) {
	hash, err := HashDeliveryCode("1000", 999)
	if err != nil {
		t.Fatalf("HashDeliveryCode: %v", err)
	}
	ok, err := VerifyDeliveryCode("1000", hash)
	if err != nil || !ok {
		t.Fatalf("expected match with clamped cost (ok=%v err=%v)", ok, err)
	}
}
