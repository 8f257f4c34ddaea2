package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Signature header names in priority order. The first non-empty one wins.
var signatureHeaders = []string{
	"X-Webhook-Signature",
	"X-Hub-Signature-256",
	"X-Signature",
}

// ExtractSignature pulls the webhook signature out of the request headers,
// stripping an optional "sha256=" prefix.
func ExtractSignature(header func(string) string) string {
	for _, name := range signatureHeaders {
		if v := strings.TrimSpace(header(name)); v != "" {
			return strings.TrimPrefix(v, "sha256=")
		}
	}
	return ""
}

// VerifySignature checks an HMAC-SHA256 signature over the raw request body.
// The comparison runs over every byte regardless of early mismatch.
func VerifySignature(payload []byte, signatureHeader, webhookSecret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(webhookSecret)
	if sig == "" || secret == "" {
		return false
	}

	decodedSig, err := hex.DecodeString(strings.ToLower(strings.TrimPrefix(sig, "sha256=")))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), decodedSig)
}
