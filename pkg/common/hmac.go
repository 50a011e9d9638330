package common

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HmacSha256Hex signs body with secret.
func HmacSha256Hex(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHmacSha256Hex checks a hex signature, optionally prefixed with
// "sha256=", in constant time.
func VerifyHmacSha256Hex(secret string, body []byte, signature string) bool {
	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	if secret == "" || signature == "" {
		return false
	}
	expected := HmacSha256Hex(secret, body)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}
