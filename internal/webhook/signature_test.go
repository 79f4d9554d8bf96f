package webhook

import (
	"strings"
	"testing"
)

// TestValidateSignature_ValidSignature verifies that a correctly signed payload is accepted
func TestValidateSignature_ValidSignature(t *testing.T) {
	secret := "test-secret"
	payload := []byte(`{"action":"opened","number":123}`)
	// echo -n '{"action":"opened","number":123}' | openssl dgst -sha256 -hmac 'test-secret'
	signature := "sha256=2c4854fbccd6d98cff684aedfef5f0edee3d89d30c1bae27c7e111bc1e82c282"

	if !ValidateSignature(payload, signature, secret) {
		t.Error("ValidateSignature returns false for valid signature")
	}
}

func TestValidateSignature_InvalidSignature(t *testing.T) {
	secret := "test-secret"
	payload := []byte(`{"action":"opened","number":123}`)
	signature := "sha256=0000000000000000000000000000000000000000000000000000000000000000"

	if ValidateSignature(payload, signature, secret) {
		t.Error("ValidateSignature returns true for invalid signature")
	}
}

// TestValidateSignature_TamperedBody verifies that the original signature no longer matches a modified body
func TestValidateSignature_TamperedBody(t *testing.T) {
	secret := "test-secret"
	original := []byte(`{"action":"opened","number":123}`)
	signature := ComputeSignature(original, secret)

	tampered := []byte(`{"action":"opened","number":124}`)
	if ValidateSignature(tampered, signature, secret) {
		t.Error("ValidateSignature accepts a tampered body with the original signature")
	}

	if !ValidateSignature(tampered, ComputeSignature(tampered, secret), secret) {
		t.Error("ValidateSignature rejects a signature recomputed over the transmitted body")
	}
}

func TestValidateSignature_MissingSignature(t *testing.T) {
	payload := []byte(`{"action":"opened","number":123}`)

	if ValidateSignature(payload, "", "test-secret") {
		t.Error("ValidateSignature returns true for missing signature")
	}
}

// TestValidateSignature_WrongAlgorithm verifies that SHA1 signatures are rejected
func TestValidateSignature_WrongAlgorithm(t *testing.T) {
	secret := "test-secret"
	payload := []byte(`{"action":"opened","number":123}`)
	signature := "sha1=2c4854fbccd6d98cff684aedfef5f0edee3d89d30c1bae27"

	if ValidateSignature(payload, signature, secret) {
		t.Error("ValidateSignature returns true for SHA1 signature (should require SHA256)")
	}
}

func TestValidateSignature_MissingPrefix(t *testing.T) {
	secret := "test-secret"
	payload := []byte(`{"action":"opened","number":123}`)
	signature := strings.TrimPrefix(ComputeSignature(payload, secret), "sha256=")

	if ValidateSignature(payload, signature, secret) {
		t.Error("ValidateSignature returns true for a digest without the sha256= prefix")
	}
}

func TestValidateSignature_MalformedDigest(t *testing.T) {
	secret := "test-secret"
	payload := []byte(`{"action":"opened","number":123}`)

	tests := map[string]string{
		"not hex":   "sha256=zz4854fbccd6d98cff684aedfef5f0edee3d89d30c1bae27c7e111bc1e82c282",
		"truncated": "sha256=2c4854fbccd6d98cff684aedfef5f0ed",
		"too long":  "sha256=2c4854fbccd6d98cff684aedfef5f0edee3d89d30c1bae27c7e111bc1e82c28200",
		"empty":     "sha256=",
	}
	for name, signature := range tests {
		t.Run(name, func(t *testing.T) {
			if ValidateSignature(payload, signature, secret) {
				t.Errorf("ValidateSignature returns true for %q", signature)
			}
		})
	}
}

func TestValidateSignature_EmptySecret(t *testing.T) {
	payload := []byte(`{"action":"opened","number":123}`)
	signature := "sha256=2c4854fbccd6d98cff684aedfef5f0edee3d89d30c1bae27c7e111bc1e82c282"

	if ValidateSignature(payload, signature, "") {
		t.Error("ValidateSignature returns true with empty secret")
	}
}

func TestComputeSignature(t *testing.T) {
	got := ComputeSignature([]byte(`{"action":"opened","number":123}`), "test-secret")
	want := "sha256=2c4854fbccd6d98cff684aedfef5f0edee3d89d30c1bae27c7e111bc1e82c282"
	if got != want {
		t.Errorf("ComputeSignature = %q, expected %q", got, want)
	}
}
