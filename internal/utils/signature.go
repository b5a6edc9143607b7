package utils

import (
	"crypto/hmac"   // HMAC for webhook signatures
	"crypto/sha256" // SHA-256 digest
	"encoding/hex"  // Hex encoding of the signature
)

// SignPayload computes the hex HMAC-SHA256 signature of a webhook body
func SignPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret)) // Keyed hash with the shared secret
	mac.Write(body)                             // Hash the raw body
	return hex.EncodeToString(mac.Sum(nil))     // Hex-encode the digest
}

// VerifySignature checks a webhook signature in constant time
func VerifySignature(secret string, body []byte, signature string) bool {
	expected := SignPayload(secret, body) // Recompute the expected signature
	return hmac.Equal([]byte(expected), []byte(signature))
}
