package webhooks

import (
	"net/http"
	"strings"
	"testing"
)

func TestVerifySignatureRoundTrip(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"event":"submission.completed","id":"abc"}`)

	sig := SignBody(secret, body)
	if !strings.HasPrefix(sig, "sha256=") {
		t.Fatalf("SignBody should produce sha256= prefix, got %q", sig)
	}
	if !VerifySignature(secret, body, sig) {
		t.Fatalf("signature produced by SignBody should verify")
	}
	// Bare hex without the prefix is also accepted.
	if !VerifySignature(secret, body, strings.TrimPrefix(sig, "sha256=")) {
		t.Fatalf("bare hex signature should verify")
	}
}

func TestVerifySignatureRejects(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"event":"submission.completed"}`)
	sig := SignBody(secret, body)

	cases := []struct {
		name   string
		secret string
		body   []byte
		header string
	}{
		{name: "empty_header", secret: secret, body: body, header: ""},
		{name: "empty_secret", secret: "", body: body, header: sig},
		{name: "tampered_body", secret: secret, body: []byte(`{"event":"submission.declined"}`), header: sig},
		{name: "wrong_secret", secret: "other", body: body, header: sig},
		{name: "not_hex", secret: secret, body: body, header: "sha256=zzzz"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if VerifySignature(tc.secret, tc.body, tc.header) {
				t.Fatalf("VerifySignature should reject %s", tc.name)
			}
		})
	}
}

func TestExtractSignature(t *testing.T) {
	h := http.Header{}
	h.Set("X-Docuseal-Signature", "sha256=deadbeef")
	if got := ExtractSignature(h, "X-Docuseal-Signature"); got != "sha256=deadbeef" {
		t.Fatalf("alternate header not picked up, got %q", got)
	}
	h.Set(SignatureHeader, "sha256=cafef00d")
	if got := ExtractSignature(h, "X-Docuseal-Signature"); got != "sha256=cafef00d" {
		t.Fatalf("canonical header should win, got %q", got)
	}
	if got := ExtractSignature(http.Header{}, "X-Docuseal-Signature"); got != "" {
		t.Fatalf("missing headers should return empty, got %q", got)
	}
}
