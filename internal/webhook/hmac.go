package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// validateHMAC reports whether sig (optionally prefixed "sha256=") equals
// the hex-encoded HMAC-SHA256 of body under secret, using a constant-time
// comparison (§8's HMAC property: never a variable-time byte compare).
func validateHMAC(secret, body []byte, sig string) bool {
	sig = strings.TrimPrefix(sig, "sha256=")
	want, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	got := mac.Sum(nil)
	return hmac.Equal(got, want)
}
