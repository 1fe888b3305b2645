package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// SignatureHeader is the canonical header carrying the HMAC of the raw body.
// Some vendors deliver the same value under their own header name instead.
const SignatureHeader = "X-Webhook-Signature"

func SignBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks an HMAC-SHA256 signature over the raw payload.
// A "sha256=" prefix on the header value is accepted and stripped.
func VerifySignature(secret string, body []byte, signatureHeader string) bool {
	sig := strings.TrimSpace(signatureHeader)
	if sig == "" || secret == "" {
		return false
	}
	if strings.HasPrefix(strings.ToLower(sig), "sha256=") {
		sig = sig[len("sha256="):]
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	expected := mac.Sum(nil)
	return hmac.Equal(got, expected)
}

// ExtractSignature returns the first non-empty signature among the canonical
// header and any vendor-specific alternates.
func ExtractSignature(h http.Header, alternates ...string) string {
	if v := strings.TrimSpace(h.Get(SignatureHeader)); v != "" {
		return v
	}
	for _, name := range alternates {
		if v := strings.TrimSpace(h.Get(name)); v != "" {
			return v
		}
	}
	return ""
}

// PayloadHash fingerprints a raw payload for audit records.
func PayloadHash(body []byte) string {
	sum := sha256.Sum256(body)
	return "sha256:" + hex.EncodeToString(sum[:])
}
