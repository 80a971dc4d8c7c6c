package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestValidateHMAC(t *testing.T) {
	secret := []byte("s3cr3t")
	body := []byte(`{"email":"a@b.com"}`)
	sig := sign(secret, body)

	if !validateHMAC(secret, body, "sha256="+sig) {
		t.Fatalf("expected prefixed signature to validate")
	}
	if !validateHMAC(secret, body, sig) {
		t.Fatalf("expected unprefixed signature to validate")
	}
	if validateHMAC(secret, body, "sha256="+sign([]byte("wrong-secret"), body)) {
		t.Fatalf("wrong secret must not validate")
	}
	if validateHMAC(secret, []byte("tampered"), "sha256="+sig) {
		t.Fatalf("tampered body must not validate")
	}
	if validateHMAC(secret, body, "not-hex!!") {
		t.Fatalf("malformed hex must not validate")
	}
	if validateHMAC(secret, body, "") {
		t.Fatalf("empty signature must not validate")
	}
}
